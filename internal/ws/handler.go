package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/DoyleJ11/chess-session-backend/internal/broadcast"
	"github.com/DoyleJ11/chess-session-backend/internal/gateway"
)

const writeTimeout = 5 * time.Second

type Options struct {
	// OriginPatterns loosens the same-origin check, e.g. "localhost:*" in dev.
	OriginPatterns []string
}

// Handler upgrades to a websocket bound to one identity. The identity query
// parameter lets a client reclaim its seats after reconnecting.
func Handler(g *gateway.Gateway, log *zap.Logger, opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			log.Debug("websocket accept", zap.Error(err))
			return
		}
		defer conn.CloseNow()

		c := g.OnConnect(r.URL.Query().Get("identity"))
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			defer cancel()
			g.OnDisconnect(ctx, c)
		}()

		ctx, cancel := context.WithCancel(r.Context())
		wrote := make(chan struct{})

		// Writer goroutine. The handler does not return before it does.
		go func() {
			defer close(wrote)
			defer cancel()
			if err := writeLoop(ctx, conn, c); err != nil && !errors.Is(err, context.Canceled) {
				log.Debug("websocket write", zap.String("identity", c.ID), zap.Error(err))
			}
		}()
		defer func() {
			cancel()
			<-wrote
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					if !errors.Is(err, context.Canceled) {
						log.Debug("websocket read", zap.String("identity", c.ID), zap.Error(err))
					}
				}
				return
			}
			g.Dispatch(ctx, c, data)
		}
	}
}

// writeLoop drains the outbox until the client is kicked or ctx ends. Events
// already queued are flushed before a kick closes the connection.
func writeLoop(ctx context.Context, conn *websocket.Conn, c *broadcast.Client) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev := <-c.Events():
			if err := write(ctx, conn, ev); err != nil {
				return err
			}

		case <-c.Done():
			return conn.Close(websocket.StatusPolicyViolation, "too slow")
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, v any) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, v)
}

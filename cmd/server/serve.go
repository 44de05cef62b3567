package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/chess-session-backend/internal/archive"
	"github.com/DoyleJ11/chess-session-backend/internal/config"
	"github.com/DoyleJ11/chess-session-backend/internal/engine"
	"github.com/DoyleJ11/chess-session-backend/internal/gateway"
	"github.com/DoyleJ11/chess-session-backend/internal/httpapi"
	"github.com/DoyleJ11/chess-session-backend/internal/hub"
	"github.com/DoyleJ11/chess-session-backend/internal/ws"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var envFile string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the websocket session server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	return cmd
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	if cfg.LogFormat == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func openArchive(cfg config.Config, log *zap.Logger) (archive.Recorder, error) {
	if cfg.ArchiveDSN == "" {
		return archive.Nop{}, nil
	}
	return archive.Open(cfg.ArchiveDSN, log)
}

func serve(ctx context.Context, cfg config.Config) (err error) {
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() {
		// stderr sync fails with EINVAL on some platforms
		_ = log.Sync()
	}()

	rec, err := openArchive(cfg, log)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, rec.Close()) }()

	h := hub.NewHub(ctx, cfg.Hub(), hub.Deps{
		Rules:    engine.NewChess(),
		Logger:   log,
		Recorder: rec,
	})
	g := gateway.New(h, log, cfg.OutboxSize)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.SetupRoutes(h, g, log, ws.Options{OriginPatterns: cfg.OriginPatterns}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr), zap.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		h.Shutdown()
		return multierr.Append(srv.Shutdown(sctx), waitHub(sctx, h))
	})
	return eg.Wait()
}

func waitHub(ctx context.Context, h *hub.Hub) error {
	select {
	case <-h.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("hub shutdown: %w", ctx.Err())
	}
}

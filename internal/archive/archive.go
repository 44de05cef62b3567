// Package archive keeps a write-only history of finished games. Live sessions
// are never restored from it.
package archive

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/DoyleJ11/chess-session-backend/internal/engine"
	"github.com/DoyleJ11/chess-session-backend/internal/session"
)

// Recorder stores completed sessions.
type Recorder interface {
	Record(ctx context.Context, s *session.Session) error
	Close() error
}

// Nop discards everything. Used when no archive is configured.
type Nop struct{}

func (Nop) Record(context.Context, *session.Session) error { return nil }
func (Nop) Close() error                                   { return nil }

// Game is one finished game.
type Game struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	SessionID     string    `gorm:"size:16;index"`
	White         string    `gorm:"index"`
	Black         string    `gorm:"index"`
	Reason        string
	Winner        string
	FinalPosition string
	Successor     string
	StartedAt     time.Time
	EndedAt       time.Time `gorm:"index"`
	CreatedAt     time.Time
	Moves         []Move `gorm:"constraint:OnDelete:CASCADE;"`
}

// Move stores a single move of a game, in SAN.
type Move struct {
	ID     uint      `gorm:"primaryKey"`
	GameID uuid.UUID `gorm:"type:uuid;index"`
	Number int
	Color  string
	SAN    string
}

// GameOf maps a completed session to its archive rows.
func GameOf(s *session.Session) Game {
	g := Game{
		ID:            uuid.New(),
		SessionID:     s.ID,
		White:         s.White.Identity,
		Black:         s.Black.Identity,
		FinalPosition: s.Position,
		Successor:     s.Successor,
		StartedAt:     s.CreatedAt,
		EndedAt:       s.LastActivityAt,
	}
	if s.Result != nil {
		g.Reason = string(s.Result.Reason)
		g.Winner = string(s.Result.Winner)
	}
	for i, san := range s.MoveHistory {
		g.Moves = append(g.Moves, Move{
			GameID: g.ID,
			Number: i/2 + 1,
			Color:  string(engine.TurnForPly(i)),
			SAN:    san,
		})
	}
	return g
}

// PGNMoves renders the move list as PGN movetext.
func (g Game) PGNMoves() string {
	var b strings.Builder
	for i, m := range g.Moves {
		if i > 0 {
			b.WriteByte(' ')
		}
		if m.Color == string(engine.White) {
			fmt.Fprintf(&b, "%d. ", m.Number)
		}
		b.WriteString(m.SAN)
	}
	return b.String()
}

type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

// Open connects to postgres and migrates the archive tables.
func Open(dsn string, log *zap.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	if err := db.AutoMigrate(&Game{}, &Move{}); err != nil {
		return nil, fmt.Errorf("migrate archive: %w", err)
	}
	return NewStore(db, log), nil
}

func NewStore(db *gorm.DB, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{db: db, log: log.Named("archive")}
}

func (s *Store) Record(ctx context.Context, sess *session.Session) error {
	g := GameOf(sess)
	if err := s.db.WithContext(ctx).Create(&g).Error; err != nil {
		return fmt.Errorf("record game %s: %w", sess.ID, err)
	}
	s.log.Debug("game archived", zap.String("session_id", sess.ID), zap.Int("moves", len(g.Moves)))
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Package users resolves platform identities to stable application
// user records.
package users

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/SUMERGeg/lostfound/core/logger"
)

// User is the application-level user record.
type User struct {
	ID         string         `db:"id"`
	TelegramID int64          `db:"telegram_id"`
	Phone      sql.NullString `db:"phone"`
	CreatedAt  time.Time      `db:"created_at"`
}

// Service resolves and creates users against the users table.
type Service struct {
	db *sqlx.DB
}

// NewService creates the service over an established connection pool.
func NewService(db *sqlx.DB) *Service {
	return &Service{db: db}
}

// Resolve returns the stable application user id for a platform id,
// creating the user on first contact. The no-op conflict update makes
// the insert return the existing row's id.
func (s *Service) Resolve(ctx context.Context, telegramID int64) (string, error) {
	if telegramID == 0 {
		return "", fmt.Errorf("users: empty platform id")
	}

	var id string
	err := s.db.GetContext(ctx, &id,
		`INSERT INTO users (id, telegram_id)
		 VALUES ($1, $2)
		 ON CONFLICT (telegram_id)
		 DO UPDATE SET telegram_id = EXCLUDED.telegram_id
		 RETURNING id`,
		uuid.NewString(), telegramID,
	)
	if err != nil {
		return "", fmt.Errorf("users: resolve %d: %w", telegramID, err)
	}

	logger.Debug(ctx, "service.users", "resolve",
		slog.Int64("telegram_id", telegramID),
		slog.String("app_user", id),
	)
	return id, nil
}

package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/SUMERGeg/lostfound/core/logger"
	"github.com/SUMERGeg/lostfound/flow"
)

// Postgres persists dialogue state as one row per user in the
// dialog_states table, with the payload as a JSONB document.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres creates a store over an established connection pool.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

type stateRow struct {
	UserID    string    `db:"user_id"`
	Step      string    `db:"step"`
	Payload   []byte    `db:"payload"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Get loads the user's record. A payload that fails to decode is logged
// and reported as absent; the row stays in place until overwritten.
func (p *Postgres) Get(ctx context.Context, userID string) (flow.Record, bool, error) {
	var row stateRow
	err := p.db.GetContext(ctx, &row,
		`SELECT user_id, step, payload, updated_at FROM dialog_states WHERE user_id = $1`,
		userID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return flow.Record{}, false, nil
	}
	if err != nil {
		return flow.Record{}, false, fmt.Errorf("state: select: %w", err)
	}

	payload, err := flow.DecodePayload(row.Payload)
	if err != nil {
		logger.Warn(ctx, "fsm.store", "payload.corrupt",
			slog.String("app_user", userID),
			slog.String("step", row.Step),
			slog.String("err", err.Error()),
		)
		return flow.Record{}, false, nil
	}

	return flow.Record{
		Step:      flow.Step(row.Step),
		Payload:   payload,
		UpdatedAt: row.UpdatedAt,
	}, true, nil
}

// Put upserts the user's record.
func (p *Postgres) Put(ctx context.Context, userID string, step flow.Step, payload *flow.Payload) error {
	data, err := flow.EncodePayload(payload)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO dialog_states (user_id, step, payload, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (user_id)
		 DO UPDATE SET step = EXCLUDED.step, payload = EXCLUDED.payload, updated_at = now()`,
		userID, string(step), data,
	)
	if err != nil {
		return fmt.Errorf("state: upsert: %w", err)
	}
	return nil
}

// Delete removes the user's record.
func (p *Postgres) Delete(ctx context.Context, userID string) error {
	if _, err := p.db.ExecContext(ctx,
		`DELETE FROM dialog_states WHERE user_id = $1`, userID,
	); err != nil {
		return fmt.Errorf("state: delete: %w", err)
	}
	return nil
}

// Count reports the number of dialogues in progress.
func (p *Postgres) Count(ctx context.Context) (int, error) {
	var n int
	if err := p.db.GetContext(ctx, &n, `SELECT count(*) FROM dialog_states`); err != nil {
		return 0, fmt.Errorf("state: count: %w", err)
	}
	return n, nil
}

// Sweep deletes records untouched for longer than ttl.
func (p *Postgres) Sweep(ctx context.Context, ttl time.Duration) (int, error) {
	res, err := p.db.ExecContext(ctx,
		`DELETE FROM dialog_states WHERE updated_at < now() - ($1 * interval '1 second')`,
		int64(ttl.Seconds()),
	)
	if err != nil {
		return 0, fmt.Errorf("state: sweep: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("state: sweep rows: %w", err)
	}
	return int(n), nil
}

// Package state provides the interchangeable StateStore implementations
// the dialogue engine persists per-user progress into: an in-process map
// for tests and single-process runs, a Postgres row store for durable
// multi-process deployments, and a Redis store with native expiry.
package state

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/SUMERGeg/lostfound/core/logger"
	"github.com/SUMERGeg/lostfound/flow"
)

// Memory is an ephemeral in-process store. Records are deep-copied on
// the way in and out so callers can never mutate stored state in place.
type Memory struct {
	mu      sync.RWMutex
	records map[string]flow.Record
	clock   func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]flow.Record),
		clock:   time.Now,
	}
}

// Get returns the record for a user if one exists.
func (m *Memory) Get(ctx context.Context, userID string) (flow.Record, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[userID]
	if !ok {
		return flow.Record{}, false, nil
	}
	rec.Payload = rec.Payload.Clone()
	return rec, true, nil
}

// Put upserts the user's record and refreshes its timestamp.
func (m *Memory) Put(ctx context.Context, userID string, step flow.Step, payload *flow.Payload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[userID] = flow.Record{
		Step:      step,
		Payload:   payload.Clone(),
		UpdatedAt: m.clock(),
	}
	return nil
}

// Delete removes the user's record. Deleting an absent record is a no-op.
func (m *Memory) Delete(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, userID)
	return nil
}

// Count reports the number of dialogues in progress.
func (m *Memory) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records), nil
}

// Sweep deletes every record older than ttl and returns how many went.
func (m *Memory) Sweep(ctx context.Context, ttl time.Duration) (int, error) {
	cutoff := m.clock().Add(-ttl)
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for userID, rec := range m.records {
		if rec.UpdatedAt.Before(cutoff) {
			delete(m.records, userID)
			removed++
		}
	}
	return removed, nil
}

// Sweeper is implemented by stores that expire stale records themselves.
// Redis relies on native key TTL instead.
type Sweeper interface {
	Sweep(ctx context.Context, ttl time.Duration) (int, error)
}

// RunSweeper expires stale records on a ticker until ctx is done. The
// sweep is a best-effort crash-recovery net and never synchronizes with
// live transitions beyond the store's own atomicity.
func RunSweeper(ctx context.Context, s Sweeper, interval, ttl time.Duration) {
	if s == nil || interval <= 0 || ttl <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.Sweep(ctx, ttl)
			if err != nil {
				logger.Warn(ctx, "fsm.store", "sweep.failed",
					slog.String("err", err.Error()),
				)
				continue
			}
			if removed > 0 {
				logger.Info(ctx, "fsm.store", "sweep",
					slog.Int("expired", removed),
				)
			}
		}
	}
}

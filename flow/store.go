package flow

import (
	"context"
	"time"
)

// Record is the persisted dialogue state of one user. A record exists
// iff the user is mid-flow; an absent record means the user is idle.
type Record struct {
	Step      Step
	Payload   *Payload
	UpdatedAt time.Time
}

// Store is the durable per-user state mapping the engine runs against.
// Put is an upsert: at most one record per user at any time. A stored
// payload that fails to deserialize must surface as ok=false rather than
// as a corrupt record.
type Store interface {
	Get(ctx context.Context, userID string) (Record, bool, error)
	Put(ctx context.Context, userID string, step Step, payload *Payload) error
	Delete(ctx context.Context, userID string) error
	Count(ctx context.Context) (int, error)
}

// UserResolver maps a platform identity to a stable application user id.
type UserResolver interface {
	Resolve(ctx context.Context, platformID int64) (string, error)
}

package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SUMERGeg/lostfound/core/logger"
	"github.com/SUMERGeg/lostfound/flow"
)

const redisKeyPrefix = "dialog:state:"

// Redis keeps dialogue state as JSON documents with native key expiry,
// so no sweeper goroutine is needed for this backend.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis creates a store over an established client. A non-positive
// ttl disables expiry.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

type redisRecord struct {
	Step      string          `json:"step"`
	Payload   json.RawMessage `json:"payload"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func redisKey(userID string) string {
	return redisKeyPrefix + userID
}

// Get loads the user's record. Corrupt documents are logged and
// reported as absent.
func (r *Redis) Get(ctx context.Context, userID string) (flow.Record, bool, error) {
	raw, err := r.client.Get(ctx, redisKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return flow.Record{}, false, nil
	}
	if err != nil {
		return flow.Record{}, false, fmt.Errorf("state: redis get: %w", err)
	}

	var rec redisRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		logger.Warn(ctx, "fsm.store", "payload.corrupt",
			slog.String("app_user", userID),
			slog.String("err", err.Error()),
		)
		return flow.Record{}, false, nil
	}
	payload, err := flow.DecodePayload(rec.Payload)
	if err != nil {
		logger.Warn(ctx, "fsm.store", "payload.corrupt",
			slog.String("app_user", userID),
			slog.String("step", rec.Step),
			slog.String("err", err.Error()),
		)
		return flow.Record{}, false, nil
	}

	return flow.Record{
		Step:      flow.Step(rec.Step),
		Payload:   payload,
		UpdatedAt: rec.UpdatedAt,
	}, true, nil
}

// Put upserts the user's record and refreshes the key TTL.
func (r *Redis) Put(ctx context.Context, userID string, step flow.Step, payload *flow.Payload) error {
	data, err := flow.EncodePayload(payload)
	if err != nil {
		return err
	}
	doc, err := json.Marshal(redisRecord{
		Step:      string(step),
		Payload:   data,
		UpdatedAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("state: redis marshal: %w", err)
	}
	if err := r.client.Set(ctx, redisKey(userID), doc, r.ttl).Err(); err != nil {
		return fmt.Errorf("state: redis set: %w", err)
	}
	return nil
}

// Delete removes the user's record.
func (r *Redis) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, redisKey(userID)).Err(); err != nil {
		return fmt.Errorf("state: redis del: %w", err)
	}
	return nil
}

// Count reports the number of dialogues in progress via key scan.
func (r *Redis) Count(ctx context.Context) (int, error) {
	var (
		cursor uint64
		total  int
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, redisKeyPrefix+"*", 256).Result()
		if err != nil {
			return 0, fmt.Errorf("state: redis scan: %w", err)
		}
		total += len(keys)
		cursor = next
		if cursor == 0 {
			return total, nil
		}
	}
}

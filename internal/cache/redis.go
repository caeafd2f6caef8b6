// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultQueueName is the Redis list (queue) name for match action logs.
const DefaultQueueName = "codenames_actions"

// Record types that are not player actions.
const (
	TypeMatchCreated  = "match_created"
	TypePlayerJoined  = "player_joined"
	TypeRoundOver     = "round_over"
	TypeMatchDisposed = "match_disposed"
)

// ActionRecord holds the minimal info needed by the historian service.
type ActionRecord struct {
	Match       string          `json:"match"`
	ActionIndex int             `json:"action_index"`
	Actor       string          `json:"actor,omitempty"`
	ActionType  string          `json:"action_type"`
	Round       int             `json:"round"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Timestamp   int64           `json:"timestamp"`
}

// Publisher receives action records.
type Publisher interface {
	Publish(ctx context.Context, rec ActionRecord) error
}

// Connect opens a client for addr and checks it with a ping.
func Connect(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// Recorder pushes action records onto a Redis list.
type Recorder struct {
	rdb   redis.Cmdable
	queue string
}

// NewRecorder returns a recorder pushing to queue (DefaultQueueName if empty).
func NewRecorder(rdb redis.Cmdable, queue string) *Recorder {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &Recorder{rdb: rdb, queue: queue}
}

// Publish serializes rec to JSON, then pushes it to the queue.
func (r *Recorder) Publish(ctx context.Context, rec ActionRecord) error {
	if rec.Timestamp == 0 {
		rec.Timestamp = time.Now().UnixMilli()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal ActionRecord: %w", err)
	}
	if err := r.rdb.RPush(ctx, r.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", r.queue, err)
	}
	return nil
}

// Discard drops every record. Used when no Redis address is configured.
type Discard struct{}

func (Discard) Publish(context.Context, ActionRecord) error { return nil }

package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultStream is the Redis stream records are appended to.
const DefaultStream = "feetoken:events"

// RedisStream appends records to a Redis stream so watchers can consume them
// with XREAD.
type RedisStream struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisStream builds a stream sink. maxLen <= 0 keeps the stream unbounded.
func NewRedisStream(client *redis.Client, stream string, maxLen int64) *RedisStream {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisStream{client: client, stream: stream, maxLen: maxLen}
}

// Publish appends the records in one pipeline.
func (s *RedisStream) Publish(ctx context.Context, records ...Record) error {
	if len(records) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	pipe := s.client.Pipeline()
	for _, r := range records {
		args, err := json.Marshal(r.Args)
		if err != nil {
			return fmt.Errorf("encode event %s: %w", r.ID, err)
		}
		xadd := &redis.XAddArgs{
			Stream: s.stream,
			Values: map[string]any{
				"id":   r.ID,
				"kind": string(r.Kind),
				"args": string(args),
				"at":   r.At.Format(time.RFC3339Nano),
			},
		}
		if s.maxLen > 0 {
			xadd.MaxLen = s.maxLen
			xadd.Approx = true
		}
		pipe.XAdd(ctx, xadd)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish events to %s: %w", s.stream, err)
	}
	return nil
}

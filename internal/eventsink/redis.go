package eventsink

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/SprengerV/volume-analyzer/internal/domain"
)

// DefaultStream is the Redis stream events are appended to.
const DefaultStream = "volume-analyzer:events"

// streamClient is the subset of *redis.Client the sink uses.
type streamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// RedisOptions configures RedisSink.
type RedisOptions struct {
	Addr   string
	Stream string
	MaxLen int64 // approximate stream cap; 0 keeps everything
}

// RedisSink appends events to a Redis stream with fields kind, address
// and event (the JSON envelope).
type RedisSink struct {
	client streamClient
	stream string
	maxLen int64
}

// Compile-time interface check.
var _ Publisher = (*RedisSink)(nil)

// NewRedisSink connects to opts.Addr.
func NewRedisSink(opts RedisOptions) *RedisSink {
	client := redis.NewClient(&redis.Options{
		Addr: opts.Addr,
	})
	return newRedisSink(client, opts)
}

func newRedisSink(client streamClient, opts RedisOptions) *RedisSink {
	stream := opts.Stream
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisSink{client: client, stream: stream, maxLen: opts.MaxLen}
}

// Name returns "redis".
func (s *RedisSink) Name() string { return "redis" }

// Publish runs XADD for ev.
func (s *RedisSink) Publish(ctx context.Context, ev domain.Event) error {
	payload, err := Encode(ev)
	if err != nil {
		return err
	}

	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{
			"kind":    string(ev.Kind()),
			"address": ev.MonitorAddress(),
			"event":   string(payload),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}

	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	return nil
}

// Close closes the Redis client.
func (s *RedisSink) Close() error {
	return s.client.Close()
}

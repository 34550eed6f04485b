package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"habitforge/internal/engine"
	"habitforge/internal/platform/logger"
)

// Publisher is the slice of the redis client the notifier needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// Redis publishes events as JSON envelopes on one pub/sub channel.
type Redis struct {
	pub     Publisher
	channel string
}

func NewRedis(pub Publisher, channel string) *Redis {
	return &Redis{pub: pub, channel: channel}
}

func (r *Redis) Notify(ctx context.Context, e engine.Event) error {
	raw, err := Encode(e)
	if err != nil {
		return err
	}
	return r.pub.Publish(ctx, r.channel, raw).Err()
}

// DialRedis connects and pings.
func DialRedis(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// Subscribe forwards decoded events from channel to onEvent until ctx is
// done. Messages that do not decode are logged and skipped.
func Subscribe(ctx context.Context, rdb *redis.Client, channel string, log *logger.Logger, onEvent func(engine.Event)) error {
	sub := rdb.Subscribe(ctx, channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe: %w", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			e, err := Decode([]byte(msg.Payload))
			if err != nil {
				log.Warn("skip undecodable message", "channel", channel, "error", err)
				continue
			}
			onEvent(e)
		}
	}
}

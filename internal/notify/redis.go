package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"solana-token-exchange/internal/logging"
)

const redisKey = "notifications:v1"

// NewRedisClient configures a Redis client and verifies connectivity.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, fmt.Errorf("redis url is required")
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

// RedisFeed shares notifications between processes through a sorted set
// scored by expiry time in milliseconds.
type RedisFeed struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisFeed creates a feed on client whose notifications live for ttl.
func NewRedisFeed(client *redis.Client, ttl time.Duration) *RedisFeed {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisFeed{client: client, key: redisKey, ttl: ttl, now: time.Now}
}

// Compile-time interface check.
var _ Feed = (*RedisFeed)(nil)

// Send stores n, filling its id and timestamps.
func (f *RedisFeed) Send(ctx context.Context, n Notification) error {
	stamped := New(n.Level, n.Message, f.now(), f.ttl)

	payload, err := json.Marshal(stamped)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	pipe := f.client.TxPipeline()
	pipe.ZAdd(ctx, f.key, redis.Z{
		Score:  float64(stamped.ExpiresAt.UnixMilli()),
		Member: string(payload),
	})
	pipe.PExpire(ctx, f.key, f.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}
	return nil
}

// Active removes expired entries and returns the rest, oldest first.
func (f *RedisFeed) Active(ctx context.Context) ([]Notification, error) {
	now := strconv.FormatInt(f.now().UnixMilli(), 10)

	if err := f.client.ZRemRangeByScore(ctx, f.key, "-inf", now).Err(); err != nil {
		return nil, fmt.Errorf("prune notifications: %w", err)
	}

	members, err := f.client.ZRange(ctx, f.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	out := make([]Notification, 0, len(members))
	for _, m := range members {
		var n Notification
		if err := json.Unmarshal([]byte(m), &n); err != nil {
			logging.Notify.Warn().Err(err).Msg("skipping undecodable notification")
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

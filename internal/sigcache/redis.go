package sigcache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

// RedisCache stores entries in Redis for shared deployments where several
// processes rate the same universe. Redis TTL is set to twice the logical
// TTL so stale-but-reusable entries survive for the fallback path.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to the given Redis URL and verifies the
// connection with a short ping.
func NewRedisCache(url string, ttl time.Duration) (*RedisCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, eris.Wrap(err, "sigcache: parse redis url")
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, eris.Wrap(err, "sigcache: ping redis")
	}

	return &RedisCache{client: client, ttl: ttl}, nil
}

func redisKey(ticker string) string {
	return "sigcache:" + ticker
}

func (c *RedisCache) Get(ctx context.Context, ticker string) (*Entry, error) {
	data, err := c.client.Get(ctx, redisKey(ticker)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sigcache: redis get %s", ticker)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, nil // corrupt value, treat as absent
	}
	return &entry, nil
}

func (c *RedisCache) Put(ctx context.Context, entry *Entry) error {
	if entry == nil || entry.Ticker == "" {
		return eris.New("sigcache: entry requires a ticker")
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return eris.Wrap(err, "sigcache: marshal entry")
	}
	return eris.Wrapf(
		c.client.Set(ctx, redisKey(entry.Ticker), data, 2*c.ttl).Err(),
		"sigcache: redis set %s", entry.Ticker,
	)
}

func (c *RedisCache) Purge(ctx context.Context, ticker string) error {
	return eris.Wrapf(
		c.client.Del(ctx, redisKey(ticker)).Err(),
		"sigcache: redis del %s", ticker,
	)
}

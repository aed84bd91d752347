package stats

import (
	"fmt"
	"time"

	"github.com/go-redis/redis"
)

// Metrics tracked per month.
const (
	MetricQueries = "queries"
	MetricPlays   = "plays"
)

// Counter counts catalog and playback hits. Failures are logged and ignored
// at the call sites, counting never blocks a request.
type Counter interface {
	Inc(metric, id string) (int64, error)
	Close() error
}

// RedisStats implements the stats Redis backend.
// View available stats keys:
//      127.0.0.1:6379> keys stats/top/*
// Get stats top:
//      127.0.0.1:6379> zrevrange stats/top/2026/8/plays 0 100 withscores
// Query a specific item:
//      127.0.0.1:6379> hgetall "stats/2026/8/f3a91c"
type RedisStats struct {
	client *redis.Client
}

func NewRedisStats(redisURL string) (*RedisStats, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	if err := client.Ping().Err(); err != nil {
		return nil, err
	}

	return &RedisStats{client}, nil
}

func (r *RedisStats) Inc(metric, id string) (int64, error) {
	now := time.Now().UTC()

	key := makeKey(now, id)
	top := makeTop(now, metric)

	var cmd *redis.IntCmd
	_, err := r.client.TxPipelined(func(p redis.Pipeliner) error {
		cmd = p.HIncrBy(key, metric, 1)
		p.ZIncrBy(top, 1, id)
		return nil
	})

	if err != nil {
		return 0, err
	}

	return cmd.Result()
}

func (r *RedisStats) Get(metric, id string) (int64, error) {
	return r.client.HGet(makeKey(time.Now().UTC(), id), metric).Int64()
}

func (r *RedisStats) Close() error {
	return r.client.Close()
}

func makeKey(now time.Time, id string) string {
	return fmt.Sprintf("stats/%d/%d/%s", now.Year(), now.Month(), id)
}

func makeTop(now time.Time, metric string) string {
	return fmt.Sprintf("stats/top/%d/%d/%s", now.Year(), now.Month(), metric)
}

// Noop is used when no redis URL is configured.
type Noop struct{}

func (Noop) Inc(metric, id string) (int64, error) { return 0, nil }

func (Noop) Close() error { return nil }

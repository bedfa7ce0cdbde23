package redis

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
)

var logger = log.WithPrefix("redis")

// Connect establishes a connection to Redis. An empty URL returns a nil
// client, which callers treat as "no cache, no fan-out".
func Connect(redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		logger.Warn("REDIS_URL not set; snapshots and fan-out disabled")
		return nil, nil
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	logger.Info("connected", "addr", opt.Addr, "db", opt.DB)
	return client, nil
}

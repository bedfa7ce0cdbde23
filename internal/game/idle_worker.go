package game

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// StartIdleWorker closes tables nobody has touched for TABLE_IDLE_MINUTES.
// With Redis it pops due members of the table_idle sorted set; without it,
// it scans the live tables.
func StartIdleWorker(ctx context.Context, m *Manager) {
	if m == nil || m.cfg == nil {
		logger.Warn("manager or config missing; idle worker not started")
		return
	}

	poll := time.Duration(m.cfg.IdleWorkerPollInterval) * time.Second
	if poll <= 0 {
		poll = 15 * time.Second
	}

	logger.Info("idle worker started", "redis", m.rdb != nil, "poll", poll)
	go func() {
		ticker := time.NewTicker(poll)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				logger.Info("idle worker stopping")
				return
			case <-ticker.C:
				if m.rdb == nil {
					for _, id := range m.ExpireIdle(time.Now()) {
						logger.Info("table expired", "table", id)
					}
					continue
				}
				if err := m.expireFromRedis(ctx, time.Now()); err != nil {
					logger.Warn("idle sweep failed", "error", err)
				}
			}
		}
	}()
}

// expireFromRedis removes local tables whose idle deadline has passed.
// Members owned by other instances are left for them.
func (m *Manager) expireFromRedis(ctx context.Context, now time.Time) error {
	members, err := m.rdb.ZRangeByScore(ctx, idleSetKey, &redis.ZRangeBy{Min: "-inf", Max: fmt.Sprintf("%d", now.Unix())}).Result()
	if err != nil {
		return fmt.Errorf("fetch idle tables: %w", err)
	}

	for _, id := range members {
		if _, err := m.Get(id); err != nil {
			continue
		}
		// Attempt to remove (race-safe)
		if removed, _ := m.rdb.ZRem(ctx, idleSetKey, id).Result(); removed == 0 {
			continue
		}
		m.Remove(id)

		payload, _ := json.Marshal(map[string]interface{}{"type": "table_expired", "table_id": id, "at": now.Format(time.RFC3339)})
		if n, err := m.rdb.Publish(ctx, "idle_events", payload).Result(); err != nil {
			logger.Warn("publish expiry failed", "table", id, "error", err)
		} else {
			logger.Info("table expired", "table", id, "subscribers", n)
		}
	}
	return nil
}

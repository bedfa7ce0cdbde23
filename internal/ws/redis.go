package ws

import (
	"context"
	"encoding/json"

	"github.com/playmatatu/eightball/internal/game"
	"github.com/redis/go-redis/v9"
)

// IdleEventsChannel carries table expiry notices from the idle worker.
const IdleEventsChannel = "idle_events"

// StartEventSubscriber relays table events published by other instances to
// local watchers. Events from this instance were already delivered.
func StartEventSubscriber(ctx context.Context, rdb *redis.Client, h *Hub, instanceID string) {
	if rdb == nil {
		logger.Info("redis client not set; event subscriber not started")
		return
	}

	pubsub := rdb.Subscribe(ctx, game.TableEventsChannel, IdleEventsChannel)
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		logger.Info("table_events/idle_events subscriber started")
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				switch msg.Channel {
				case game.TableEventsChannel:
					relayTableEvent(h, instanceID, msg.Payload)
				case IdleEventsChannel:
					relayIdleEvent(h, msg.Payload)
				}
			}
		}
	}()
}

func relayTableEvent(h *Hub, instanceID, payload string) {
	var ev game.RemoteEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		logger.Warn("invalid table event payload", "error", err)
		return
	}
	if ev.Origin == instanceID || h.Watchers(ev.TableID) == 0 {
		return
	}
	h.BroadcastToTable(ev.TableID, ev.Event)
}

func relayIdleEvent(h *Hub, payload string) {
	var ev struct {
		Type    string `json:"type"`
		TableID string `json:"table_id"`
	}
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		logger.Warn("invalid idle event payload", "error", err)
		return
	}
	if ev.Type != "table_expired" || h.Watchers(ev.TableID) == 0 {
		return
	}
	logger.Info("table expired", "table", ev.TableID)
	h.BroadcastToTable(ev.TableID, game.Event{Type: game.EventClosed, TableID: ev.TableID})
}

package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/playmatatu/eightball/internal/game"
)

var logger = log.WithPrefix("ws")

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// origins are checked by middleware.WebSocketCORSCheck
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client is one WebSocket watching a table.
type Client struct {
	hub     *Hub
	manager *game.Manager
	conn    *websocket.Conn
	tableID string
	send    chan []byte
	quit    chan struct{}
	once    sync.Once

	// watchOnly clients follow a table hosted by another instance through
	// the table_events relay and cannot send commands.
	watchOnly bool
}

// Hub fans table events out to the clients watching each table.
type Hub struct {
	rooms      map[string]map[*Client]struct{} // tableID -> clients
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run owns room membership until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, room := range h.rooms {
				for c := range room {
					c.stop()
				}
				delete(h.rooms, id)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			room, ok := h.rooms[c.tableID]
			if !ok {
				room = make(map[*Client]struct{})
				h.rooms[c.tableID] = room
			}
			room[c] = struct{}{}
			n := len(room)
			h.mu.Unlock()
			logger.Info("client joined", "table", c.tableID, "watchers", n)

		case c := <-h.unregister:
			h.mu.Lock()
			if room, ok := h.rooms[c.tableID]; ok {
				if _, ok := room[c]; ok {
					delete(room, c)
					close(c.send)
				}
				if len(room) == 0 {
					delete(h.rooms, c.tableID)
				}
			}
			h.mu.Unlock()
			logger.Info("client left", "table", c.tableID)
		}
	}
}

// Watchers returns how many clients watch a table.
func (h *Hub) Watchers(tableID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[tableID])
}

// BroadcastToTable implements game.Broadcaster. Slow clients miss frames
// rather than stall the table loop.
func (h *Hub) BroadcastToTable(tableID string, ev game.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		logger.Error("marshal event failed", "table", tableID, "type", ev.Type, "error", err)
		return
	}
	h.broadcastRaw(tableID, data)

	if ev.Type == game.EventClosed {
		h.mu.RLock()
		for c := range h.rooms[tableID] {
			c.stop()
		}
		h.mu.RUnlock()
	}
}

func (h *Hub) broadcastRaw(tableID string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[tableID] {
		select {
		case c.send <- data:
		default:
			logger.Debug("send buffer full, dropping message", "table", tableID)
		}
	}
}

func (c *Client) stop() {
	c.once.Do(func() { close(c.quit) })
}

// writePump writes messages to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Debug("write failed", "table", c.tableID, "error", err)
				return
			}

		case <-c.quit:
			c.flush()
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "table closed"))
			return

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.Debug("ping failed", "table", c.tableID, "error", err)
				return
			}
		}
	}
}

// flush writes whatever is already queued.
func (c *Client) flush() {
	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		default:
			return
		}
	}
}

// reply queues a message for this client only.
func (c *Client) reply(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Error("marshal reply failed", "error", err)
		return
	}
	select {
	case c.send <- data:
	default:
		logger.Debug("reply dropped (buffer full)", "table", c.tableID)
	}
}

// sendError sends an error message to the client
func (c *Client) sendError(message string) {
	c.reply(map[string]interface{}{
		"type":    "error",
		"message": message,
	})
}

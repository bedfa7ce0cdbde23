package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/playmatatu/eightball/internal/game"
)

// WSMessage is an inbound command.
type WSMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type PointerData struct {
	Phase game.PointerPhase `json:"phase"`
	X     float64           `json:"x"`
	Y     float64           `json:"y"`
}

type StrikeData struct {
	DX    float64 `json:"dx"`
	DY    float64 `json:"dy"`
	Power float64 `json:"power"`
}

type PlaceCueData struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type ModeData struct {
	Mode game.Mode `json:"mode"`
}

const errWatchOnly = "Table is hosted on another instance"

// HandleTable upgrades GET /tables/:id/ws. The token has already been
// checked by middleware.RequireTableToken. A table hosted by another
// instance is streamed watch-only from its Redis snapshot and the relay.
func HandleTable(m *game.Manager, h *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		tableID := c.Param("id")
		s, err := m.Get(tableID)
		var snapshot json.RawMessage
		if err != nil {
			snapshot, err = m.LoadSnapshot(c.Request.Context(), tableID)
			if err != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "table not found"})
				return
			}
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("upgrade failed", "table", tableID, "error", err)
			return
		}

		client := &Client{
			hub:     h,
			manager: m,
			conn:    conn,
			tableID: tableID,
			send:    make(chan []byte, sendBuffer),
			quit:    make(chan struct{}),

			watchOnly: s == nil,
		}
		select {
		case h.register <- client:
		case <-h.done:
			conn.Close()
			return
		}

		if s != nil {
			client.reply(stateMessage(s.State()))
		} else {
			logger.Info("remote table watcher", "table", tableID)
			client.reply(remoteStateMessage(tableID, snapshot))
		}
		go client.writePump()
		go client.readPump()
	}
}

func stateMessage(st game.TableState) map[string]interface{} {
	return map[string]interface{}{"type": "state", "table_id": st.TableID, "state": st}
}

func remoteStateMessage(tableID string, snapshot json.RawMessage) map[string]interface{} {
	return map[string]interface{}{"type": "state", "table_id": tableID, "state": snapshot, "watch_only": true}
}

// readPump reads commands until the socket closes.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("unexpected close", "table", c.tableID, "error", err)
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.sendError("Invalid message")
			continue
		}
		c.handleMessage(msg)
	}
}

// handleMessage applies one command to the table.
func (c *Client) handleMessage(msg WSMessage) {
	if c.watchOnly {
		c.handleWatchOnly(msg)
		return
	}

	s, err := c.manager.Get(c.tableID)
	if err != nil {
		c.sendError("Table not found")
		return
	}

	switch msg.Type {
	case "pointer":
		var data PointerData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Invalid pointer data")
			return
		}
		res, err := s.Pointer(data.Phase, game.NewVec2(data.X, data.Y))
		if err != nil {
			c.sendError(err.Error())
			return
		}
		if data.Phase == game.PointerUp {
			c.reply(map[string]interface{}{"type": "pointer_result", "fired": res.Fired, "placed": res.Placed})
		}

	case "strike":
		var data StrikeData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Invalid strike data")
			return
		}
		fired, err := s.Strike(game.NewVec2(data.DX, data.DY), data.Power)
		if err != nil {
			c.sendError(err.Error())
			return
		}
		if !fired {
			c.reply(map[string]interface{}{"type": "strike_ignored"})
		}

	case "place_cue":
		var data PlaceCueData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Invalid placement data")
			return
		}
		if err := s.PlaceCue(game.NewVec2(data.X, data.Y)); err != nil {
			c.sendError(err.Error())
			return
		}
		c.hub.BroadcastToTable(c.tableID, game.Event{Type: game.EventFrame, TableID: c.tableID, Balls: s.State().Balls})

	case "new_rack":
		s.NewRack()

	case "reset":
		s.FullReset()

	case "set_mode":
		var data ModeData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Invalid mode data")
			return
		}
		if err := s.SetMode(data.Mode); err != nil {
			c.sendError(err.Error())
			return
		}

	case "get_state":
		c.reply(stateMessage(s.State()))
		return

	default:
		c.sendError("Unknown message type")
		return
	}

	c.manager.Touch(c.tableID)
}

// handleWatchOnly serves a client of a table hosted elsewhere: state reads
// come from the snapshot and every command is refused.
func (c *Client) handleWatchOnly(msg WSMessage) {
	if msg.Type != "get_state" {
		c.sendError(errWatchOnly)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	snapshot, err := c.manager.LoadSnapshot(ctx, c.tableID)
	if err != nil {
		c.sendError("Table not found")
		return
	}
	c.reply(remoteStateMessage(c.tableID, snapshot))
}

package websocket

import (
	"context"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// Connection wraps one websocket client in the board room
type Connection struct {
	ID     string
	UserID string

	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu sync.Mutex // guards UserID
}

// joinMessage is the only inbound frame clients send: it announces who
// is behind the connection. All mutations travel over the REST surface,
// so peer-relayed mutation frames from the socket are not accepted.
type joinMessage struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

// connectedMessage tells the client its connection id so it can tag
// REST requests for echo exclusion.
type connectedMessage struct {
	Type         string `json:"type"`
	ConnectionID string `json:"connectionId"`
}

func (c *Connection) setUser(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.UserID = userID
}

// writePump serializes all writes to the websocket
func (c *Connection) writePump() {
	defer func() {
		_ = c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for data := range c.send {
		ctx, cancel := context.WithTimeout(context.Background(), c.hub.config.WriteTimeout)
		err := c.conn.Write(ctx, websocket.MessageText, data)
		cancel()
		if err != nil {
			c.hub.logger.Debug("write failed, dropping connection", map[string]interface{}{
				"connection_id": c.ID,
				"error":         err.Error(),
			})
			c.hub.removeConnection(c)
			return
		}
	}
}

// readPump consumes inbound frames until the client goes away
func (c *Connection) readPump(ctx context.Context) {
	defer c.hub.removeConnection(c)

	for {
		var msg joinMessage
		if err := wsjson.Read(ctx, c.conn, &msg); err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure &&
				websocket.CloseStatus(err) != websocket.StatusGoingAway {
				c.hub.logger.Debug("read error", map[string]interface{}{
					"connection_id": c.ID,
					"error":         err.Error(),
				})
			}
			return
		}

		if msg.Type == "join" && msg.UserID != "" {
			c.setUser(msg.UserID)
			c.hub.logger.Info("user joined the board", map[string]interface{}{
				"connection_id": c.ID,
				"user_id":       msg.UserID,
			})
		}
	}
}

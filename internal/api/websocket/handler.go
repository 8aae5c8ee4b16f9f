package websocket

import (
	"context"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler upgrades the request and parks the connection in the board
// room until the client disconnects.
func Handler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
			OriginPatterns: hub.config.OriginPatterns,
		})
		if err != nil {
			hub.logger.Warn("websocket accept failed", map[string]interface{}{
				"error": err.Error(),
			})
			return
		}

		conn.SetReadLimit(hub.config.MaxMessageSize)

		client := &Connection{
			ID:   uuid.New().String(),
			hub:  hub,
			conn: conn,
			send: make(chan []byte, hub.config.SendBuffer),
		}

		if !hub.addConnection(client) {
			_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		}

		// Tell the client its connection id so REST requests can carry
		// it for echo exclusion.
		ctx, cancel := context.WithTimeout(c.Request.Context(), hub.config.WriteTimeout)
		err = wsjson.Write(ctx, conn, connectedMessage{
			Type:         "connected",
			ConnectionID: client.ID,
		})
		cancel()
		if err != nil {
			hub.removeConnection(client)
			_ = conn.Close(websocket.StatusInternalError, "handshake write failed")
			return
		}

		go client.writePump()
		client.readPump(c.Request.Context())
	}
}

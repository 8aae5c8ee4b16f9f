// Package websocket is the broadcast fanout: one hub, one logical board
// room, one buffered channel per connected client. Delivery is
// best-effort with no acknowledgment and no replay; a slow client's
// frames are dropped and it reconciles with a full re-fetch.
package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/S-Corkum/taskboard/internal/events"
	"github.com/S-Corkum/taskboard/internal/observability"
)

// Config holds hub and connection settings
type Config struct {
	// SendBuffer is the per-connection outbound queue depth. Events
	// beyond it are dropped for that connection.
	SendBuffer int `mapstructure:"send_buffer"`

	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`

	// OriginPatterns restricts websocket origins; empty allows same
	// host only.
	OriginPatterns []string `mapstructure:"origin_patterns"`
}

// DefaultConfig returns the hub defaults
func DefaultConfig() Config {
	return Config{
		SendBuffer:     64,
		WriteTimeout:   10 * time.Second,
		ReadTimeout:    60 * time.Second,
		MaxMessageSize: 32 * 1024,
	}
}

// Hub tracks every connection in the board room and fans events out to
// them. It implements events.Publisher.
type Hub struct {
	mu     sync.RWMutex
	conns  map[string]*Connection
	closed bool

	config Config
	logger observability.Logger
}

// NewHub creates an empty hub
func NewHub(config Config, logger observability.Logger) *Hub {
	if config.SendBuffer <= 0 {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	return &Hub{
		conns:  make(map[string]*Connection),
		config: config,
		logger: logger,
	}
}

// Publish delivers the event to every connection in the room except
// excludeConnID. The send is non-blocking: a connection whose buffer is
// full misses the event. Publish never blocks the mutation path on
// subscriber acknowledgment.
func (h *Hub) Publish(event events.Event, excludeConnID string) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to encode broadcast event", map[string]interface{}{
			"type":  event.Type,
			"error": err.Error(),
		})
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, conn := range h.conns {
		if id == excludeConnID {
			continue
		}
		select {
		case conn.send <- data:
		default:
			h.logger.Debug("dropping event for slow connection", map[string]interface{}{
				"type":          event.Type,
				"connection_id": id,
			})
		}
	}
}

// Count returns the number of connected clients
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) addConnection(c *Connection) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.conns[c.ID] = c
	return true
}

func (h *Hub) removeConnection(c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[c.ID]; !ok {
		return
	}
	delete(h.conns, c.ID)
	close(c.send)
}

// Close disconnects every client and stops accepting new ones
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, conn := range h.conns {
		delete(h.conns, id)
		close(conn.send)
	}
}

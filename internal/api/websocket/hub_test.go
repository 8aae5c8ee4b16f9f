package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/S-Corkum/taskboard/internal/events"
	"github.com/S-Corkum/taskboard/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeConn registers a connection without a real socket behind it
func fakeConn(hub *Hub, buffer int) *Connection {
	c := &Connection{
		ID:   uuid.New().String(),
		hub:  hub,
		send: make(chan []byte, buffer),
	}
	hub.addConnection(c)
	return c
}

func receive(t *testing.T, c *Connection) events.Event {
	t.Helper()
	select {
	case data := <-c.send:
		var event events.Event
		require.NoError(t, json.Unmarshal(data, &event))
		return event
	case <-time.After(time.Second):
		t.Fatal("expected a broadcast frame")
		return events.Event{}
	}
}

func TestHubPublish(t *testing.T) {
	t.Run("every connection receives the event", func(t *testing.T) {
		hub := NewHub(DefaultConfig(), nil)
		defer hub.Close()

		a := fakeConn(hub, 4)
		b := fakeConn(hub, 4)
		require.Equal(t, 2, hub.Count())

		task := &models.Task{ID: uuid.New(), Title: "Broadcast me", Version: 1}
		hub.Publish(events.NewTaskCreated(task), "")

		assert.Equal(t, events.EventTaskCreated, receive(t, a).Type)
		assert.Equal(t, events.EventTaskCreated, receive(t, b).Type)
	})

	t.Run("originator is excluded", func(t *testing.T) {
		hub := NewHub(DefaultConfig(), nil)
		defer hub.Close()

		origin := fakeConn(hub, 4)
		other := fakeConn(hub, 4)

		hub.Publish(events.NewTaskDeleted(uuid.New()), origin.ID)

		assert.Equal(t, events.EventTaskDeleted, receive(t, other).Type)
		assert.Empty(t, origin.send, "the originating connection must not see its own event")
	})

	t.Run("slow connection drops instead of blocking", func(t *testing.T) {
		hub := NewHub(DefaultConfig(), nil)
		defer hub.Close()

		slow := fakeConn(hub, 1)
		healthy := fakeConn(hub, 4)

		done := make(chan struct{})
		go func() {
			defer close(done)
			for i := 0; i < 3; i++ {
				hub.Publish(events.NewTaskDeleted(uuid.New()), "")
			}
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("publish blocked on a full connection buffer")
		}

		assert.Len(t, slow.send, 1)
		assert.Len(t, healthy.send, 3)
	})
}

func TestHubClose(t *testing.T) {
	hub := NewHub(DefaultConfig(), nil)

	conn := fakeConn(hub, 4)
	hub.Close()

	assert.Zero(t, hub.Count())

	_, open := <-conn.send
	assert.False(t, open, "send channel should be closed")

	// Close is idempotent and later registrations are rejected.
	hub.Close()
	rejected := &Connection{ID: uuid.New().String(), hub: hub, send: make(chan []byte, 1)}
	assert.False(t, hub.addConnection(rejected))

	// Publishing into a closed hub is a no-op.
	hub.Publish(events.NewTaskDeleted(uuid.New()), "")
}

func TestHubRemoveConnection(t *testing.T) {
	hub := NewHub(DefaultConfig(), nil)
	defer hub.Close()

	conn := fakeConn(hub, 4)
	hub.removeConnection(conn)
	assert.Zero(t, hub.Count())

	// Removing twice must not double-close the channel.
	hub.removeConnection(conn)

	hub.Publish(events.NewTaskDeleted(uuid.New()), "")
	_, open := <-conn.send
	assert.False(t, open)
}

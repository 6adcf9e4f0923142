package progress

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn records delivered events and can be told to fail
type fakeConn struct {
	id     string
	mu     sync.Mutex
	events []Event
	failed bool
	closed bool
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failed {
		return errors.New("connection gone")
	}
	c.events = append(c.events, ev)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) eventTypes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	types := make([]string, len(c.events))
	for i, ev := range c.events {
		types[i] = ev.Type()
	}
	return types
}

func (c *fakeConn) hasEventType(eventType string) bool {
	for _, t := range c.eventTypes() {
		if t == eventType {
			return true
		}
	}
	return false
}

func TestNotifierRegister(t *testing.T) {
	t.Run("Should greet new clients with connected event", func(t *testing.T) {
		notifier := NewNotifier()
		conn := &fakeConn{id: "c1"}

		notifier.Register(conn)

		assert.Equal(t, 1, notifier.ClientCount())
		assert.Eventually(t, func() bool {
			return conn.hasEventType("connected")
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("Should close connection on unregister", func(t *testing.T) {
		notifier := NewNotifier()
		conn := &fakeConn{id: "c1"}
		notifier.Register(conn)

		notifier.Unregister("c1")

		assert.Equal(t, 0, notifier.ClientCount())
		conn.mu.Lock()
		defer conn.mu.Unlock()
		assert.True(t, conn.closed)
	})
}

func TestNotifierPublish(t *testing.T) {
	t.Run("Should deliver only to clients subscribed to the job", func(t *testing.T) {
		notifier := NewNotifier()
		subscribed := &fakeConn{id: "c1"}
		other := &fakeConn{id: "c2"}
		notifier.Register(subscribed)
		notifier.Register(other)
		notifier.Subscribe("c1", "job-1")
		notifier.Subscribe("c2", "job-2")

		notifier.Publish("job-1", NewJobStartedEvent("job-1", 5))

		assert.Eventually(t, func() bool {
			return subscribed.hasEventType("job-started")
		}, time.Second, 5*time.Millisecond)
		assert.False(t, other.hasEventType("job-started"),
			"Clients subscribed to other jobs receive nothing")
	})

	t.Run("Should not deliver to unsubscribed clients", func(t *testing.T) {
		notifier := NewNotifier()
		conn := &fakeConn{id: "c1"}
		notifier.Register(conn)

		notifier.Publish("job-1", NewJobStartedEvent("job-1", 5))

		time.Sleep(20 * time.Millisecond)
		assert.False(t, conn.hasEventType("job-started"))
	})

	t.Run("Should prune clients whose send fails", func(t *testing.T) {
		notifier := NewNotifier()
		conn := &fakeConn{id: "c1", failed: true}
		notifier.Register(conn)
		notifier.Subscribe("c1", "job-1")

		notifier.Publish("job-1", NewJobStartedEvent("job-1", 5))

		assert.Eventually(t, func() bool {
			return notifier.ClientCount() == 0
		}, time.Second, 5*time.Millisecond)
	})
}

func TestNotifierBroadcast(t *testing.T) {
	t.Run("Should reach all clients regardless of subscription", func(t *testing.T) {
		notifier := NewNotifier()
		c1 := &fakeConn{id: "c1"}
		c2 := &fakeConn{id: "c2"}
		notifier.Register(c1)
		notifier.Register(c2)
		notifier.Subscribe("c1", "job-1")

		notifier.Broadcast(NewErrorEvent("", "", "maintenance", "TRANSLATION_ERROR"))

		assert.Eventually(t, func() bool {
			return c1.hasEventType("error-occurred") && c2.hasEventType("error-occurred")
		}, time.Second, 5*time.Millisecond)
	})
}

func TestNotifierHandleMessage(t *testing.T) {
	t.Run("Should subscribe via message", func(t *testing.T) {
		notifier := NewNotifier()
		conn := &fakeConn{id: "c1"}
		notifier.Register(conn)

		notifier.HandleMessage("c1", []byte(`{"type":"subscribe","jobId":"job-9"}`))
		notifier.Publish("job-9", NewJobStartedEvent("job-9", 1))

		assert.Eventually(t, func() bool {
			return conn.hasEventType("job-started")
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("Should answer ping with pong", func(t *testing.T) {
		notifier := NewNotifier()
		conn := &fakeConn{id: "c1"}
		notifier.Register(conn)

		notifier.HandleMessage("c1", []byte(`{"type":"ping"}`))

		assert.Eventually(t, func() bool {
			return conn.hasEventType("pong")
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("Should ignore malformed and unknown messages", func(t *testing.T) {
		notifier := NewNotifier()
		conn := &fakeConn{id: "c1"}
		notifier.Register(conn)

		notifier.HandleMessage("c1", []byte(`not json`))
		notifier.HandleMessage("c1", []byte(`{"type":"mystery"}`))

		assert.Equal(t, 1, notifier.ClientCount(), "Client stays registered")
	})

	t.Run("Should ignore subscribe from unknown client", func(t *testing.T) {
		notifier := NewNotifier()

		notifier.HandleMessage("ghost", []byte(`{"type":"subscribe","jobId":"job-1"}`))

		assert.Equal(t, 0, notifier.ClientCount())
	})
}

func TestEventConstructors(t *testing.T) {
	t.Run("Should carry RFC3339 timestamps", func(t *testing.T) {
		events := []Event{
			NewConnectedEvent(),
			NewJobStartedEvent("j", 1),
			NewProgressEvent("j", 50, 1, 2, nil),
			NewItemCompletedEvent("j", "p", "completed", 50),
			NewJobCompletedEvent("j", Summary{Total: 2, Successful: 2, Status: "completed"}),
			NewErrorEvent("j", "p", "boom", "TRANSLATION_ERROR"),
		}

		for _, ev := range events {
			ts, ok := ev["timestamp"].(string)
			require.True(t, ok, "event %s missing timestamp", ev.Type())
			_, err := time.Parse(time.RFC3339, ts)
			assert.NoError(t, err, "event %s timestamp not RFC3339", ev.Type())
		}
	})

	t.Run("Should default progress errors to empty slice", func(t *testing.T) {
		ev := NewProgressEvent("j", 10, 1, 10, nil)

		errs, ok := ev["errors"].([]ErrorDetail)
		require.True(t, ok)
		assert.Empty(t, errs)
	})

	t.Run("Should omit postId when not item-scoped", func(t *testing.T) {
		ev := NewErrorEvent("j", "", "boom", "TRANSLATION_ERROR")

		_, present := ev["postId"]
		assert.False(t, present)
	})
}

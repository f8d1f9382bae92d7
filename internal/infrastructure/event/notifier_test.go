package event

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestNotifier() (*Notifier, *testClock) {
	clock := &testClock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	return NewNotifier(zap.NewNop(), WithClock(clock.Now)), clock
}

type collector struct {
	mu     sync.Mutex
	events []Event
}

func (c *collector) listen(evt Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
	return nil
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func TestNotifier_Debounce(t *testing.T) {
	t.Run("drops unforced notifications inside the window", func(t *testing.T) {
		n, clock := newTestNotifier()
		c := &collector{}
		n.Subscribe(nil, c.listen)

		n.NotifySupplyUpdate("s1", false)
		clock.Advance(500 * time.Millisecond)
		n.NotifySupplyUpdate("s1", false)
		assert.Equal(t, 1, c.count())

		clock.Advance(400 * time.Millisecond)
		n.NotifySupplyUpdate("s1", false)
		assert.Equal(t, 2, c.count())
	})

	t.Run("forced notifications bypass the window", func(t *testing.T) {
		n, _ := newTestNotifier()
		c := &collector{}
		n.Subscribe(nil, c.listen)

		n.NotifySupplyUpdate("s1", false)
		n.NotifySupplyUpdate("s1", true)
		n.NotifySupplyUpdate("s1", true)
		assert.Equal(t, 3, c.count())
	})

	t.Run("keys are debounced independently", func(t *testing.T) {
		n, _ := newTestNotifier()
		c := &collector{}
		n.Subscribe(nil, c.listen)

		n.NotifySupplyUpdate("s1", false)
		n.NotifySupplyUpdate("s2", false)
		assert.Equal(t, 2, c.count())
		assert.Equal(t, TypeSupplyUpdate, c.events[1].Type)
		assert.Equal(t, "s2", c.events[1].SupplyID)
	})
}

func TestNotifier_Listeners(t *testing.T) {
	t.Run("filter selects events", func(t *testing.T) {
		n, _ := newTestNotifier()
		c := &collector{}
		n.Subscribe(func(e Event) bool { return e.SupplyID == "s2" }, c.listen)

		n.NotifySupplyUpdate("s1", true)
		n.NotifySupplyUpdate("s2", true)
		require.Equal(t, 1, c.count())
		assert.Equal(t, "s2", c.events[0].SupplyID)
	})

	t.Run("failing and panicking listeners are removed without affecting others", func(t *testing.T) {
		n, _ := newTestNotifier()
		healthy := &collector{}
		n.Subscribe(nil, func(Event) error { return errors.New("closed connection") })
		n.Subscribe(nil, func(Event) error { panic("boom") })
		n.Subscribe(nil, healthy.listen)
		require.Equal(t, 3, n.Len())

		n.NotifySupplyUpdate("s1", true)
		assert.Equal(t, 1, healthy.count())
		assert.Equal(t, 1, n.Len())

		n.NotifySupplyUpdate("s1", true)
		assert.Equal(t, 2, healthy.count())
	})

	t.Run("unsubscribe removes the listener", func(t *testing.T) {
		n, _ := newTestNotifier()
		c := &collector{}
		unsubscribe := n.Subscribe(nil, c.listen)
		unsubscribe()

		n.NotifySupplyUpdate("s1", true)
		assert.Zero(t, c.count())
		assert.Zero(t, n.Len())
	})
}

func TestChannelListener(t *testing.T) {
	n, _ := newTestNotifier()
	listener, events := ChannelListener(1)
	n.Subscribe(nil, listener)

	n.NotifySupplyUpdate("s1", true)
	evt := <-events
	assert.Equal(t, "s1", evt.SupplyID)

	n.NotifySupplyUpdate("s1", true)
	n.NotifySupplyUpdate("s1", true)
	assert.Zero(t, n.Len(), "a full buffer drops the listener")
}

type countingObserver struct {
	mu sync.Mutex
	n  int
}

func (o *countingObserver) Notification() {
	o.mu.Lock()
	o.n++
	o.mu.Unlock()
}

func TestNotifier_Observer(t *testing.T) {
	obs := &countingObserver{}
	n := NewNotifier(zap.NewNop(), WithObserver(obs))

	n.NotifySupplyUpdate("s1", false)
	n.NotifySupplyUpdate("s1", false)
	n.NotifySupplyUpdate("s1", true)

	assert.Equal(t, 2, obs.n)
}

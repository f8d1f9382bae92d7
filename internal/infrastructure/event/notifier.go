package event

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kif1r4ek/test-my-sklad/internal/domain/supply"
	"go.uber.org/zap"
)

// Event types published by the Notifier.
const (
	TypeSupplyUpdate = "supply_update"
)

// DefaultDebounce is the minimum gap between two unforced notifications of one key.
const DefaultDebounce = 800 * time.Millisecond

// pruneThreshold bounds the number of remembered notification keys.
const pruneThreshold = 1024

// ErrListenerBusy is returned by channel listeners whose buffer is full.
var ErrListenerBusy = errors.New("listener buffer is full")

// Event is a change announcement delivered to listeners.
type Event struct {
	ID       uuid.UUID `json:"-"`
	Type     string    `json:"-"`
	SupplyID string    `json:"supplyId"`
	At       time.Time `json:"-"`
}

// Listener receives events. A listener that returns an error or panics is removed.
type Listener func(Event) error

// Filter selects the events a listener receives. A nil filter accepts all.
type Filter func(Event) bool

// Observer is told about every published notification.
type Observer interface {
	Notification()
}

type nopObserver struct{}

func (nopObserver) Notification() {}

type subscription struct {
	filter   Filter
	listener Listener
}

// Notifier fans supply changes out to listeners.
// Unforced notifications of the same supply are dropped within the debounce window.
type Notifier struct {
	mu        sync.Mutex
	listeners map[uuid.UUID]subscription
	last      map[string]time.Time
	debounce  time.Duration
	now       func() time.Time
	logger    *zap.Logger
	observer  Observer
}

// NotifierOption configures a Notifier.
type NotifierOption func(*Notifier)

// WithDebounce sets the debounce window.
func WithDebounce(d time.Duration) NotifierOption {
	return func(n *Notifier) {
		n.debounce = d
	}
}

// WithClock sets the clock used for debouncing.
func WithClock(now func() time.Time) NotifierOption {
	return func(n *Notifier) {
		n.now = now
	}
}

// WithObserver reports published notifications to obs.
func WithObserver(obs Observer) NotifierOption {
	return func(n *Notifier) {
		if obs != nil {
			n.observer = obs
		}
	}
}

// NewNotifier creates a Notifier.
func NewNotifier(logger *zap.Logger, opts ...NotifierOption) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := &Notifier{
		listeners: make(map[uuid.UUID]subscription),
		last:      make(map[string]time.Time),
		debounce:  DefaultDebounce,
		now:       time.Now,
		logger:    logger,
		observer:  nopObserver{},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Ensure Notifier implements supply.Notifier
var _ supply.Notifier = (*Notifier)(nil)

// Subscribe registers a listener and returns a function that removes it.
func (n *Notifier) Subscribe(filter Filter, listener Listener) (unsubscribe func()) {
	id := uuid.New()
	n.mu.Lock()
	n.listeners[id] = subscription{filter: filter, listener: listener}
	n.mu.Unlock()

	n.logger.Debug("listener subscribed", zap.String("listener_id", id.String()))
	return func() {
		n.remove(id)
	}
}

// Len returns the number of registered listeners.
func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.listeners)
}

// NotifySupplyUpdate announces a change of a supply.
func (n *Notifier) NotifySupplyUpdate(supplyID string, force bool) {
	now := n.now()
	n.mu.Lock()
	if last, ok := n.last[supplyID]; ok && !force && now.Sub(last) < n.debounce {
		n.mu.Unlock()
		return
	}
	n.last[supplyID] = now
	if len(n.last) > pruneThreshold {
		for key, at := range n.last {
			if now.Sub(at) >= n.debounce {
				delete(n.last, key)
			}
		}
	}
	n.mu.Unlock()

	n.observer.Notification()
	n.Publish(Event{ID: uuid.New(), Type: TypeSupplyUpdate, SupplyID: supplyID, At: now})
}

// Publish delivers an event to every listener whose filter accepts it.
func (n *Notifier) Publish(evt Event) {
	n.mu.Lock()
	targets := make(map[uuid.UUID]subscription, len(n.listeners))
	for id, sub := range n.listeners {
		targets[id] = sub
	}
	n.mu.Unlock()

	for id, sub := range targets {
		if err := n.deliver(sub, evt); err != nil {
			n.logger.Warn("listener removed",
				zap.String("listener_id", id.String()),
				zap.String("event_type", evt.Type),
				zap.Error(err),
			)
			n.remove(id)
		}
	}
}

// deliver runs one listener, converting a panic into an error.
func (n *Notifier) deliver(sub subscription, evt Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panicked: %v", r)
		}
	}()
	if sub.filter != nil && !sub.filter(evt) {
		return nil
	}
	return sub.listener(evt)
}

func (n *Notifier) remove(id uuid.UUID) {
	n.mu.Lock()
	delete(n.listeners, id)
	n.mu.Unlock()
}

// ChannelListener returns a listener that forwards events into a buffered channel.
// When the buffer is full the listener fails and is dropped.
func ChannelListener(buffer int) (Listener, <-chan Event) {
	ch := make(chan Event, buffer)
	return func(evt Event) error {
		select {
		case ch <- evt:
			return nil
		default:
			return ErrListenerBusy
		}
	}, ch
}

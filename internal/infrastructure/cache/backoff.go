package cache

import (
	"sync"
	"time"
)

// Backoff is an advisory pause of remote catalog calls after a rate limit.
type Backoff struct {
	now func() time.Time

	mu    sync.Mutex
	until time.Time
}

// NewBackoff creates an inactive backoff.
func NewBackoff(opts ...Option) *Backoff {
	return &Backoff{now: applyOptions(opts).now}
}

// Trip pauses remote calls for d from now. An active longer pause is kept.
func (b *Backoff) Trip(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if until := b.now().Add(d); until.After(b.until) {
		b.until = until
	}
}

// Active reports whether remote calls are paused.
func (b *Backoff) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.now().Before(b.until)
}

// Until returns the end of the current pause.
func (b *Backoff) Until() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.until
}

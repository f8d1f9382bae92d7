package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Loader fetches a fresh value of a region.
type Loader[T any] func(ctx context.Context) (T, error)

// Region is a stale-while-revalidate cache of one remote list.
//
// A fresh value is returned as is. A stale value is returned immediately while
// one background refresh runs. A region that was never populated blocks on the
// shared refresh and returns its error. All callers share one refresh at a time.
type Region[T any] struct {
	name     string
	ttl      time.Duration
	now      func() time.Time
	logger   *zap.Logger
	observer Observer

	mu        sync.RWMutex
	data      T
	ts        time.Time
	populated bool
	lastErr   error

	group singleflight.Group
}

// NewRegion creates an empty region with the given freshness window.
func NewRegion[T any](name string, ttl time.Duration, opts ...Option) *Region[T] {
	o := applyOptions(opts)
	return &Region[T]{
		name:     name,
		ttl:      ttl,
		now:      o.now,
		logger:   o.logger.With(zap.String("region", name)),
		observer: o.observer,
	}
}

// Get returns the region value, refreshing it with load when needed.
func (r *Region[T]) Get(ctx context.Context, load Loader[T]) (T, error) {
	r.mu.RLock()
	data, ts, populated := r.data, r.ts, r.populated
	r.mu.RUnlock()

	if populated && r.now().Sub(ts) < r.ttl {
		r.observer.CacheResult(r.name, ResultHit)
		return data, nil
	}
	if populated {
		r.observer.CacheResult(r.name, ResultStale)
		go func() {
			if _, err := r.refresh(context.WithoutCancel(ctx), load); err != nil {
				r.logger.Warn("Background refresh failed", zap.Error(err))
			}
		}()
		return data, nil
	}

	r.observer.CacheResult(r.name, ResultMiss)
	ch := r.group.DoChan(r.name, func() (any, error) {
		return r.load(context.WithoutCancel(ctx), load)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			var zero T
			return zero, res.Err
		}
		return res.Val.(T), nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (r *Region[T]) refresh(ctx context.Context, load Loader[T]) (T, error) {
	v, err, _ := r.group.Do(r.name, func() (any, error) {
		return r.load(ctx, load)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

func (r *Region[T]) load(ctx context.Context, load Loader[T]) (any, error) {
	data, err := load(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.lastErr = err
		return nil, err
	}
	r.data = data
	r.ts = r.now()
	r.populated = true
	r.lastErr = nil
	return data, nil
}

// Peek returns the current value without refreshing it.
func (r *Region[T]) Peek() (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.data, r.populated
}

// LastError returns the error of the most recent failed refresh, if the
// region has not refreshed successfully since.
func (r *Region[T]) LastError() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastErr
}

// Invalidate marks the value stale so the next Get refreshes it.
func (r *Region[T]) Invalidate() {
	r.mu.Lock()
	r.ts = time.Time{}
	r.mu.Unlock()
}

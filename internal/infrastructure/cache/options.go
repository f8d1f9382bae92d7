package cache

import (
	"time"

	"go.uber.org/zap"
)

// Cache lookup results reported to an Observer.
const (
	ResultHit   = "hit"
	ResultStale = "stale"
	ResultMiss  = "miss"
)

// Observer receives cache lookup results, typically to export metrics.
type Observer interface {
	CacheResult(region, result string)
}

type nopObserver struct{}

func (nopObserver) CacheResult(string, string) {}

// Option configures caches created by this package.
type Option func(*options)

type options struct {
	now      func() time.Time
	logger   *zap.Logger
	observer Observer
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the logger for background refresh failures
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver reports lookup results to obs.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{now: time.Now, logger: zap.NewNop(), observer: nopObserver{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

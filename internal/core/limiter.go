package core

// limiter.go bounds how many files are explored at once.
//
// Each exploration holds a slot for the whole pipeline run, since loading
// and analysis keep an entire table in memory. When every slot is taken,
// callers wait up to maxWait and then fail with ErrTooManyExplorations.
// On shutdown, Close stops admissions and WaitForDrain waits for in-flight
// runs.

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrTooManyExplorations is returned when no slot frees up within the wait
// window. Clients should retry after a short delay.
var ErrTooManyExplorations = errors.New("too many concurrent explorations, please try again later")

// ErrShuttingDown is returned by Acquire once the limiter is closed.
var ErrShuttingDown = errors.New("shutting down, not accepting new explorations")

const (
	// DefaultMaxConcurrent is used when the configured limit is not positive.
	DefaultMaxConcurrent = 4

	// DefaultMaxWait is used when the configured wait is not positive.
	DefaultMaxWait = 30 * time.Second

	drainPollInterval = 50 * time.Millisecond
)

// Limiter is a counting semaphore for pipeline runs.
type Limiter struct {
	slots   chan struct{}
	maxWait time.Duration
	active  atomic.Int64

	closed    atomic.Bool
	closing   chan struct{}
	closeOnce sync.Once
}

// NewLimiter returns a limiter with maxConcurrent slots.
func NewLimiter(maxConcurrent int, maxWait time.Duration) *Limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	return &Limiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
		closing: make(chan struct{}),
	}
}

// Acquire takes a slot, waiting at most the configured maxWait.
// It returns ctx.Err() if ctx ends first and ErrShuttingDown once Close has
// been called, including for callers already waiting. Callers must Release
// on success.
func (l *Limiter) Acquire(ctx context.Context) error {
	if l.closed.Load() {
		return ErrShuttingDown
	}
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		return l.admit()
	case <-l.closing:
		return ErrShuttingDown
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTooManyExplorations
	}
}

// TryAcquire takes a slot only if one is free right now and the limiter is
// open.
func (l *Limiter) TryAcquire() bool {
	if l.closed.Load() {
		return false
	}
	select {
	case l.slots <- struct{}{}:
		return l.admit() == nil
	default:
		return false
	}
}

// admit counts a slot just taken. The closed check comes after the count so
// a run admitted concurrently with Close is either visible to WaitForDrain
// or handed back.
func (l *Limiter) admit() error {
	l.active.Add(1)
	if l.closed.Load() {
		l.Release()
		return ErrShuttingDown
	}
	return nil
}

// Close stops admitting runs. Runs holding a slot are unaffected and still
// Release as usual. It is safe to call more than once.
func (l *Limiter) Close() {
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		close(l.closing)
	})
}

// Release returns a slot taken by Acquire or TryAcquire.
func (l *Limiter) Release() {
	l.active.Add(-1)
	<-l.slots
}

// ActiveCount returns the number of runs holding a slot.
func (l *Limiter) ActiveCount() int {
	return int(l.active.Load())
}

// MaxConcurrent returns the slot count.
func (l *Limiter) MaxConcurrent() int {
	return cap(l.slots)
}

// Available returns the number of free slots.
func (l *Limiter) Available() int {
	return cap(l.slots) - len(l.slots)
}

// WaitForDrain blocks until no run holds a slot or ctx ends.
func (l *Limiter) WaitForDrain(ctx context.Context) error {
	if l.ActiveCount() == 0 {
		return nil
	}
	ticker := time.NewTicker(drainPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if l.ActiveCount() == 0 {
				return nil
			}
		}
	}
}

// LimiterStatus is a point-in-time view of a Limiter, served by /health.
type LimiterStatus struct {
	Active        int  `json:"active"`
	Available     int  `json:"available"`
	MaxConcurrent int  `json:"max_concurrent"`
	Draining      bool `json:"draining"`
}

// Status snapshots the limiter.
func (l *Limiter) Status() LimiterStatus {
	return LimiterStatus{
		Active:        l.ActiveCount(),
		Available:     l.Available(),
		MaxConcurrent: l.MaxConcurrent(),
		Draining:      l.closed.Load(),
	}
}

// Package clock abstracts wall time and sleeping so retry and timeout logic can
// be driven deterministically in tests.
package clock

import (
	"context"
	"sync"
	"time"
)

// TimeSource reports the current time.
type TimeSource interface {
	Now() time.Time
}

// Sleeper blocks for a duration or until ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// Clock is both a TimeSource and a Sleeper.
type Clock interface {
	TimeSource
	Sleeper
}

// System is the real clock.
type System struct{}

// Now implements TimeSource.
func (System) Now() time.Time { return time.Now() }

// Sleep implements Sleeper. It returns ctx.Err() if ctx ends first.
func (System) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Manual is a TimeSource and Sleeper whose time only moves when told to.
// Sleep advances the clock instantly and records the requested duration.
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

// NewManual creates a manual clock starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now implements TimeSource.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// Sleep implements Sleeper.
func (m *Manual) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sleeps = append(m.sleeps, d)
	m.now = m.now.Add(d)
	return nil
}

// Sleeps returns every duration passed to Sleep, in order.
func (m *Manual) Sleeps() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]time.Duration, len(m.sleeps))
	copy(out, m.sleeps)
	return out
}

var (
	_ TimeSource = System{}
	_ Sleeper    = System{}
	_ TimeSource = (*Manual)(nil)
	_ Sleeper    = (*Manual)(nil)
)

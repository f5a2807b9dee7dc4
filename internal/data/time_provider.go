package data

import (
	"sync"
	"time"
)

// TimeProvider supplies the clock used for audit timestamps and retention cutoffs.
type TimeProvider interface {
	Now() time.Time
}

// TimeFunc adapts a plain function to TimeProvider.
type TimeFunc func() time.Time

func (f TimeFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock TimeProvider = TimeFunc(time.Now)

func clockOrSystem(tp TimeProvider) TimeProvider {
	if tp == nil {
		return SystemClock
	}
	return tp
}

// FixedTimeProvider is a manually advanced clock for tests.
type FixedTimeProvider struct {
	mu  sync.Mutex
	now time.Time
}

func NewFixedTimeProvider(t time.Time) *FixedTimeProvider {
	return &FixedTimeProvider{now: t}
}

func (f *FixedTimeProvider) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the clock forward by d and returns the new time.
func (f *FixedTimeProvider) Advance(d time.Duration) time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
	return f.now
}

// Package progress provides throughput-aware transfer progress tracking.
//
// A Tracker accumulates transferred byte counts and derives percentage,
// smoothed speed, and time-remaining estimates. A Throttle gates periodic
// work, such as resume-record updates, to a fixed cadence.
package progress

import (
	"sync"
	"time"
)

// TimeProvider abstracts time operations for deterministic testing.
type TimeProvider interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

// DefaultTimeProvider uses the standard library time functions.
type DefaultTimeProvider struct{}

// Now returns the current time.
func (DefaultTimeProvider) Now() time.Time { return time.Now() }

// Since returns the duration since t.
func (DefaultTimeProvider) Since(t time.Time) time.Duration { return time.Since(t) }

// Tracker accumulates progress for a single transfer.
type Tracker struct {
	mu           sync.Mutex
	total        int64
	transferred  int64
	speed        float64 // bytes per second, exponential moving average
	lastAddTime  time.Time
	timeProvider TimeProvider
}

// NewTracker creates a tracker for a transfer of total bytes. A total of 0
// is allowed; Percent reports 0 in that case.
func NewTracker(total int64) *Tracker {
	tp := DefaultTimeProvider{}
	return &Tracker{
		total:        total,
		lastAddTime:  tp.Now(),
		timeProvider: tp,
	}
}

// SetTimeProvider sets a custom time provider for deterministic testing.
// Also resets the speed reference time to the new provider's current time.
func (t *Tracker) SetTimeProvider(tp TimeProvider) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timeProvider = tp
	t.lastAddTime = tp.Now()
}

// Seed records bytes that were already transferred before tracking
// started, such as a resumed transfer's prior progress. Seeded bytes
// count toward Percent but not toward the speed estimate.
func (t *Tracker) Seed(n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.transferred += n
}

// Add records n newly transferred bytes and updates the speed estimate.
func (t *Tracker) Add(n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.transferred += n

	now := t.timeProvider.Now()
	duration := t.timeProvider.Since(t.lastAddTime).Seconds()
	if duration > 0 {
		instant := float64(n) / duration

		// Exponential moving average with alpha = 0.3
		if t.speed == 0 {
			t.speed = instant
		} else {
			t.speed = 0.7*t.speed + 0.3*instant
		}
	}
	t.lastAddTime = now
}

// Transferred returns the number of bytes recorded so far.
func (t *Tracker) Transferred() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.transferred
}

// Total returns the total byte count the tracker was created with.
func (t *Tracker) Total() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// Percent returns completion as a percentage in [0, 100]. It returns 0 when
// the total size is 0.
func (t *Tracker) Percent() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.total == 0 {
		return 0.0
	}
	return float64(t.transferred) / float64(t.total) * 100.0
}

// Speed returns the smoothed transfer speed in bytes per second.
func (t *Tracker) Speed() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.speed
}

// ETA returns the estimated time remaining. It returns 0 when no speed
// estimate is available yet or the transfer is already complete.
func (t *Tracker) ETA() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.speed <= 0 || t.transferred >= t.total {
		return 0
	}
	remaining := float64(t.total-t.transferred) / t.speed
	return time.Duration(remaining * float64(time.Second))
}

// Throttle gates an action to at most once per interval.
type Throttle struct {
	mu           sync.Mutex
	interval     time.Duration
	last         time.Time
	timeProvider TimeProvider
}

// DefaultUpdateInterval is the cadence used for resume-record updates and
// progress callbacks during a transfer.
const DefaultUpdateInterval = time.Second

// NewThrottle creates a throttle with the given minimum interval between
// ready signals. The first Ready call reports true immediately.
func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{
		interval:     interval,
		timeProvider: DefaultTimeProvider{},
	}
}

// SetTimeProvider sets a custom time provider for deterministic testing.
func (th *Throttle) SetTimeProvider(tp TimeProvider) {
	th.mu.Lock()
	defer th.mu.Unlock()
	th.timeProvider = tp
}

// Ready reports whether the interval has elapsed since the last ready
// signal, and if so, consumes it.
func (th *Throttle) Ready() bool {
	th.mu.Lock()
	defer th.mu.Unlock()

	now := th.timeProvider.Now()
	if !th.last.IsZero() && now.Sub(th.last) < th.interval {
		return false
	}
	th.last = now
	return true
}

// Package consensus provides the single-shot countdown that turns a strict
// vote majority into an elimination.
package consensus

import (
	"time"

	"github.com/sasha-s/go-deadlock"
)

// FireFunc is called once when an armed countdown expires
type FireFunc func(generation uint64)

// TickFunc is called on every whole second of an armed countdown with the
// seconds still remaining
type TickFunc func(generation uint64, remaining int)

// Timer is a cancellable single-shot countdown. Every Arm and Cancel bumps a
// monotonic generation; callbacks carry the generation they were armed with
// so a fire that races a cancel can be recognised as stale.
type Timer struct {
	clock Clock

	mu         deadlock.Mutex // guards the fields below
	generation uint64
	armed      bool
	deadline   time.Time
	scheduled  []Stopper
}

// NewTimer creates an idle timer
func NewTimer(clock Clock) *Timer {
	if clock == nil {
		clock = SystemClock()
	}
	return &Timer{clock: clock}
}

// Arm cancels any running countdown and starts a new one. onTick may be nil.
// It returns the new generation and the deadline.
func (t *Timer) Arm(d time.Duration, onFire FireFunc, onTick TickFunc) (uint64, time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
	t.generation++
	gen := t.generation
	t.armed = true
	t.deadline = t.clock.Now().Add(d)

	if onTick != nil {
		total := int((d + time.Second - 1) / time.Second)
		for i := 1; i < total; i++ {
			remaining := total - i
			t.scheduled = append(t.scheduled, t.clock.AfterFunc(time.Duration(i)*time.Second, func() {
				if t.IsCurrent(gen) {
					onTick(gen, remaining)
				}
			}))
		}
	}

	t.scheduled = append(t.scheduled, t.clock.AfterFunc(d, func() {
		if t.expire(gen) {
			onFire(gen)
		}
	}))

	return gen, t.deadline
}

// Cancel stops the running countdown, if any, and invalidates its generation.
// It reports whether a countdown was armed.
func (t *Timer) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	wasArmed := t.armed
	t.stopLocked()
	t.generation++
	return wasArmed
}

// Generation returns the live generation
func (t *Timer) Generation() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.generation
}

// Armed reports whether a countdown is running
func (t *Timer) Armed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.armed
}

// IsCurrent reports whether gen is the generation of the running countdown
func (t *Timer) IsCurrent(gen uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.armed && t.generation == gen
}

// Remaining returns the time left before the running countdown fires
func (t *Timer) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.armed {
		return 0
	}
	left := t.deadline.Sub(t.clock.Now())
	if left < 0 {
		return 0
	}
	return left
}

// expire disarms the timer if gen is still live
func (t *Timer) expire(gen uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.armed || t.generation != gen {
		return false
	}
	t.armed = false
	t.scheduled = nil
	return true
}

func (t *Timer) stopLocked() {
	for _, s := range t.scheduled {
		s.Stop()
	}
	t.scheduled = nil
	t.armed = false
}

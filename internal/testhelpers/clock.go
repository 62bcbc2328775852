// Package testhelpers holds deterministic stand-ins shared by package tests.
package testhelpers

import (
	"sort"
	"sync"
	"time"

	"imposter-rounds/internal/consensus"
)

// ManualClock is a consensus.Clock whose time only moves on Advance.
// Due callbacks run synchronously on the goroutine calling Advance, in
// deadline order, with no clock lock held.
type ManualClock struct {
	mu    sync.Mutex
	now   time.Time
	seq   int
	tasks []*manualTask
}

type manualTask struct {
	clock   *ManualClock
	at      time.Time
	seq     int
	fn      func()
	stopped bool
	fired   bool
}

// NewManualClock returns a clock fixed at an arbitrary epoch
func NewManualClock() *ManualClock {
	return &ManualClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

// Now implements consensus.Clock
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc implements consensus.Clock
func (c *ManualClock) AfterFunc(d time.Duration, f func()) consensus.Stopper {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	task := &manualTask{clock: c, at: c.now.Add(d), seq: c.seq, fn: f}
	c.tasks = append(c.tasks, task)
	return task
}

// Advance moves time forward by d, running every callback that becomes due
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		task := c.nextDue(target)
		if task == nil {
			break
		}
		task.fn()
	}

	c.mu.Lock()
	c.now = target
	c.mu.Unlock()
}

// Pending returns the number of scheduled callbacks not yet run or stopped
func (c *ManualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for _, t := range c.tasks {
		if !t.stopped && !t.fired {
			count++
		}
	}
	return count
}

func (c *ManualClock) nextDue(target time.Time) *manualTask {
	c.mu.Lock()
	defer c.mu.Unlock()

	live := c.tasks[:0]
	for _, t := range c.tasks {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	c.tasks = live

	sort.Slice(c.tasks, func(i, j int) bool {
		if c.tasks[i].at.Equal(c.tasks[j].at) {
			return c.tasks[i].seq < c.tasks[j].seq
		}
		return c.tasks[i].at.Before(c.tasks[j].at)
	})

	if len(c.tasks) == 0 || c.tasks[0].at.After(target) {
		return nil
	}

	task := c.tasks[0]
	task.fired = true
	if task.at.After(c.now) {
		c.now = task.at
	}
	return task
}

// Stop implements consensus.Stopper
func (t *manualTask) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

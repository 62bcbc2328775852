package consensus_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imposter-rounds/internal/consensus"
	"imposter-rounds/internal/testhelpers"
)

type fireLog struct {
	mu    sync.Mutex
	fires []uint64
	ticks []int
}

func (l *fireLog) fire(gen uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fires = append(l.fires, gen)
}

func (l *fireLog) tick(_ uint64, remaining int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ticks = append(l.ticks, remaining)
}

func TestTimerFires(t *testing.T) {
	clock := testhelpers.NewManualClock()
	timer := consensus.NewTimer(clock)
	log := &fireLog{}

	gen, deadline := timer.Arm(5*time.Second, log.fire, log.tick)

	assert.Equal(t, clock.Now().Add(5*time.Second), deadline)
	assert.True(t, timer.Armed())
	assert.True(t, timer.IsCurrent(gen))

	clock.Advance(4 * time.Second)
	assert.Empty(t, log.fires)
	assert.Equal(t, []int{4, 3, 2, 1}, log.ticks)
	assert.Equal(t, time.Second, timer.Remaining())

	clock.Advance(time.Second)
	assert.Equal(t, []uint64{gen}, log.fires)
	assert.False(t, timer.Armed())
	assert.Zero(t, timer.Remaining())
	assert.Zero(t, clock.Pending())
}

func TestTimerCancel(t *testing.T) {
	clock := testhelpers.NewManualClock()
	timer := consensus.NewTimer(clock)
	log := &fireLog{}

	gen, _ := timer.Arm(5*time.Second, log.fire, log.tick)
	clock.Advance(2 * time.Second)

	assert.True(t, timer.Cancel())
	assert.False(t, timer.IsCurrent(gen))
	assert.Greater(t, timer.Generation(), gen)

	clock.Advance(10 * time.Second)
	assert.Empty(t, log.fires)
	assert.Equal(t, []int{4, 3}, log.ticks)

	assert.False(t, timer.Cancel(), "nothing armed")
}

func TestTimerRearmSupersedes(t *testing.T) {
	clock := testhelpers.NewManualClock()
	timer := consensus.NewTimer(clock)
	log := &fireLog{}

	first, _ := timer.Arm(5*time.Second, log.fire, nil)
	clock.Advance(3 * time.Second)
	second, _ := timer.Arm(5*time.Second, log.fire, nil)
	require.Greater(t, second, first)

	// The first deadline passes without firing
	clock.Advance(2 * time.Second)
	assert.Empty(t, log.fires)

	clock.Advance(3 * time.Second)
	assert.Equal(t, []uint64{second}, log.fires)
}

// heldClock hands back callbacks without running them, and its stoppers
// always report the callback as already in flight.
type heldClock struct {
	now time.Time
	fns []func()
}

type inFlight struct{}

func (inFlight) Stop() bool { return false }

func (c *heldClock) Now() time.Time { return c.now }

func (c *heldClock) AfterFunc(_ time.Duration, f func()) consensus.Stopper {
	c.fns = append(c.fns, f)
	return inFlight{}
}

func TestTimerStaleFireIsDropped(t *testing.T) {
	t.Run("after cancel", func(t *testing.T) {
		clock := &heldClock{now: time.Now()}
		timer := consensus.NewTimer(clock)
		log := &fireLog{}

		timer.Arm(time.Second, log.fire, nil)
		timer.Cancel()
		require.Len(t, clock.fns, 1)

		clock.fns[0]()
		assert.Empty(t, log.fires)
	})

	t.Run("after rearm", func(t *testing.T) {
		clock := &heldClock{now: time.Now()}
		timer := consensus.NewTimer(clock)
		log := &fireLog{}

		timer.Arm(time.Second, log.fire, nil)
		second, _ := timer.Arm(time.Second, log.fire, nil)
		require.Len(t, clock.fns, 2)

		clock.fns[0]()
		assert.Empty(t, log.fires)
		assert.True(t, timer.IsCurrent(second))

		clock.fns[1]()
		assert.Equal(t, []uint64{second}, log.fires)

		// A second delivery of the same fire is ignored
		clock.fns[1]()
		assert.Len(t, log.fires, 1)
	})
}

func TestSystemClockTimer(t *testing.T) {
	timer := consensus.NewTimer(consensus.SystemClock())
	fired := make(chan uint64, 1)

	gen, _ := timer.Arm(20*time.Millisecond, func(g uint64) { fired <- g }, nil)

	select {
	case got := <-fired:
		assert.Equal(t, gen, got)
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
}

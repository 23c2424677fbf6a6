package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualScheduler_Periods(t *testing.T) {
	s := NewManualScheduler()

	var every, third int
	require.NoError(t, s.RunTask("every", func() { every++ }, 1))
	require.NoError(t, s.RunTask("third", func() { third++ }, 3))

	s.Advance(9)
	assert.Equal(t, 9, every)
	assert.Equal(t, 3, third)

	s.StopTask("third")
	s.Advance(3)
	assert.Equal(t, 3, third, "Остановленная задача не вызывается")
	assert.False(t, s.Has("third"))
	assert.Equal(t, 12, s.Runs("every"))
}

func TestManualScheduler_Errors(t *testing.T) {
	s := NewManualScheduler()
	require.NoError(t, s.RunTask("a", func() {}, 1))

	assert.ErrorIs(t, s.RunTask("a", func() {}, 1), ErrTaskExists)
	assert.ErrorIs(t, s.RunTask("b", func() {}, 0), ErrInvalidPeriod)
	assert.Error(t, s.RunTask("c", nil, 1))

	// неизвестное имя игнорируется
	s.StopTask("unknown")
}

func TestManualScheduler_StopFromCallback(t *testing.T) {
	s := NewManualScheduler()

	var calls int
	require.NoError(t, s.RunTask("self", func() {
		calls++
		s.StopTask("self")
	}, 1))
	var other int
	require.NoError(t, s.RunTask("other", func() {
		other++
		s.StopTask("self")
	}, 1))

	s.Advance(5)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 5, other)
}

func TestTickScheduler_RunsAndStops(t *testing.T) {
	s := NewTickScheduler(time.Millisecond)
	defer s.Shutdown()

	var calls atomic.Int64
	require.NoError(t, s.RunTask("loop", func() { calls.Add(1) }, 1))
	assert.ErrorIs(t, s.RunTask("loop", func() {}, 1), ErrTaskExists)
	assert.Equal(t, []string{"loop"}, s.Tasks())

	assert.Eventually(t, func() bool { return calls.Load() >= 5 }, 2*time.Second, time.Millisecond)

	s.StopTask("loop")
	stopped := calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, calls.Load(), "После StopTask вызовов быть не должно")
	assert.Empty(t, s.Tasks())

	// имя снова свободно
	require.NoError(t, s.RunTask("loop", func() {}, 2))
}

func TestTickScheduler_StopWaitsForInFlightCallback(t *testing.T) {
	s := NewTickScheduler(time.Millisecond)

	started := make(chan struct{})
	var finished atomic.Bool
	var once atomic.Bool
	require.NoError(t, s.RunTask("slow", func() {
		if once.CompareAndSwap(false, true) {
			close(started)
		}
		time.Sleep(30 * time.Millisecond)
		finished.Store(true)
	}, 1))

	<-started
	s.StopTask("slow")
	assert.True(t, finished.Load(), "StopTask должен дождаться текущего вызова")
}

func TestTickScheduler_CallbacksDoNotOverlap(t *testing.T) {
	s := NewTickScheduler(time.Millisecond)
	defer s.Shutdown()

	var running, overlaps, calls atomic.Int64
	require.NoError(t, s.RunTask("task", func() {
		if running.Add(1) > 1 {
			overlaps.Add(1)
		}
		time.Sleep(3 * time.Millisecond)
		running.Add(-1)
		calls.Add(1)
	}, 1))

	assert.Eventually(t, func() bool { return calls.Load() >= 5 }, 2*time.Second, time.Millisecond)
	assert.Zero(t, overlaps.Load())
}

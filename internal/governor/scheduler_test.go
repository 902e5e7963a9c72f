package governor

import (
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"codeberg.org/mutker/cpufreqctl/internal/cpufreq"
	"codeberg.org/mutker/cpufreqctl/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testIncreaseDelay = 40 * time.Millisecond
	testDecreaseDelay = 10 * time.Millisecond
)

func newTestScheduler(actuator Actuator) (*Scheduler, *State) {
	state := NewState(testBounds)
	return NewScheduler(state, actuator, testPolicy, testIncreaseDelay, testDecreaseDelay, logger.Nop()), state
}

func TestScheduleDecreaseAppliesSpikePenalty(t *testing.T) {
	actuator := &recordingActuator{}
	s, state := newTestScheduler(actuator)

	require.True(t, s.ScheduleDecrease(85))
	s.Wait()

	assert.Equal(t, cpufreq.Frequency(3200000), state.Current())
	assert.Equal(t, []cpufreq.Frequency{3200000}, actuator.Applied())
	assert.Equal(t, uint64(1), s.Applied())
}

func TestScheduleDecreaseIsDelayed(t *testing.T) {
	actuator := &recordingActuator{}
	s, state := newTestScheduler(actuator)

	start := time.Now()
	require.True(t, s.ScheduleDecrease(71))
	assert.Equal(t, testBounds.Max, state.Current(), "applied before the delay")

	s.Wait()
	assert.GreaterOrEqual(t, time.Since(start), testDecreaseDelay)
	assert.Equal(t, cpufreq.Frequency(3500000), state.Current())
}

func TestScheduleIncrease(t *testing.T) {
	actuator := &recordingActuator{}
	s, state := newTestScheduler(actuator)

	require.True(t, s.ScheduleDecrease(90))
	s.Wait()
	lowered := state.Current()

	start := time.Now()
	require.True(t, s.ScheduleIncrease())
	s.Wait()

	assert.GreaterOrEqual(t, time.Since(start), testIncreaseDelay)
	assert.Equal(t, lowered+testPolicy.Step, state.Current())
}

func TestConcurrentDecreasesApplyOnce(t *testing.T) {
	actuator := &recordingActuator{}
	state := NewState(testBounds)
	// Long enough that every goroutine tries while the first one waits.
	s := NewScheduler(state, actuator, testPolicy, time.Second, 300*time.Millisecond, logger.Nop())

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		scheduled int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.ScheduleDecrease(71) {
				mu.Lock()
				scheduled++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	s.Wait()

	assert.Equal(t, 1, scheduled)
	assert.Equal(t, uint64(7), s.Dropped())
	assert.Equal(t, testBounds.Max-testPolicy.Step, state.Current())
	assert.Len(t, actuator.Applied(), 1)
}

func TestPendingDecreaseDropsIncrease(t *testing.T) {
	actuator := &recordingActuator{}
	s, state := newTestScheduler(actuator)

	require.True(t, s.ScheduleDecrease(71))
	assert.False(t, s.ScheduleIncrease())
	s.Wait()

	assert.Equal(t, testBounds.Max-testPolicy.Step, state.Current())
	assert.Equal(t, []cpufreq.Frequency{testBounds.Max - testPolicy.Step}, actuator.Applied())
}

func TestLeaseFreedAfterAdjustment(t *testing.T) {
	actuator := &recordingActuator{}
	s, state := newTestScheduler(actuator)

	require.True(t, s.ScheduleDecrease(71))
	s.Wait()
	require.True(t, s.ScheduleDecrease(71))
	s.Wait()

	assert.Equal(t, testBounds.Max-2*testPolicy.Step, state.Current())
}

func TestFloorAndCeilingIdempotence(t *testing.T) {
	actuator := &recordingActuator{}
	s, state := newTestScheduler(actuator)

	for i := 0; i < 3; i++ {
		require.True(t, s.ScheduleDecrease(200))
		s.Wait()
	}
	assert.Equal(t, testBounds.Min, state.Current())

	require.True(t, s.ScheduleDecrease(200))
	s.Wait()
	assert.Equal(t, testBounds.Min, state.Current())

	s2, state2 := newTestScheduler(actuator)
	require.True(t, s2.ScheduleIncrease())
	s2.Wait()
	assert.Equal(t, testBounds.Max, state2.Current())
}

func TestActuationFailureIsReported(t *testing.T) {
	boom := stderrors.New("read-only file system")
	actuator := &mockActuator{}
	actuator.On("Apply", cpufreq.Frequency(3500000)).Return(boom).Once()

	s, _ := newTestScheduler(actuator)
	require.True(t, s.ScheduleDecrease(71))
	s.Wait()

	select {
	case err := <-s.Errors():
		assert.ErrorIs(t, err, boom)
	default:
		t.Fatal("actuation error was not reported")
	}
	assert.Zero(t, s.Applied())
	actuator.AssertExpectations(t)

	// The lease is released even when the write fails.
	actuator.On("Apply", cpufreq.Frequency(3400000)).Return(nil).Once()
	require.True(t, s.ScheduleDecrease(71))
	s.Wait()
	actuator.AssertExpectations(t)
}

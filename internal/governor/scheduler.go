package governor

import (
	"sync"
	"sync/atomic"
	"time"

	"codeberg.org/mutker/cpufreqctl/internal/cpufreq"
	"codeberg.org/mutker/cpufreqctl/internal/logger"
)

// Actuator applies a frequency ceiling to the hardware.
type Actuator interface {
	Apply(freq cpufreq.Frequency) error
}

// Scheduler runs delayed one-shot adjustments of a State. An adjustment
// takes the State's lease when it is scheduled and keeps it through its
// delay, so an adjustment scheduled meanwhile is dropped rather than queued.
type Scheduler struct {
	state         *State
	actuator      Actuator
	policy        Policy
	increaseDelay time.Duration
	decreaseDelay time.Duration
	logger        logger.Logger

	wg      sync.WaitGroup
	errs    chan error
	applied atomic.Uint64
	dropped atomic.Uint64
}

func NewScheduler(
	state *State,
	actuator Actuator,
	policy Policy,
	increaseDelay, decreaseDelay time.Duration,
	log logger.Logger,
) *Scheduler {
	return &Scheduler{
		state:         state,
		actuator:      actuator,
		policy:        policy,
		increaseDelay: increaseDelay,
		decreaseDelay: decreaseDelay,
		logger:        log,
		errs:          make(chan error, 1),
	}
}

// ScheduleDecrease lowers the ceiling after the decrease delay. The spike
// penalty is computed from temperature as sampled now, not after the delay.
// It reports false if the adjustment was dropped.
func (s *Scheduler) ScheduleDecrease(temperature int) bool {
	bounds := s.state.Bounds()

	return s.schedule(Decrease, s.decreaseDelay, func(current cpufreq.Frequency) cpufreq.Frequency {
		return s.policy.Decreased(current, temperature, bounds)
	})
}

// ScheduleIncrease raises the ceiling by one step after the increase delay.
// It reports false if the adjustment was dropped.
func (s *Scheduler) ScheduleIncrease() bool {
	bounds := s.state.Bounds()

	return s.schedule(Increase, s.increaseDelay, func(current cpufreq.Frequency) cpufreq.Frequency {
		return s.policy.Increased(current, bounds)
	})
}

func (s *Scheduler) schedule(action Action, delay time.Duration, next func(cpufreq.Frequency) cpufreq.Frequency) bool {
	lease, ok := s.state.TryAcquire()
	if !ok {
		s.dropped.Add(1)
		s.logger.Debug().Str("action", action.String()).Msg("Adjustment pending, dropping")
		return false
	}

	s.wg.Add(1)
	time.AfterFunc(delay, func() {
		defer s.wg.Done()
		defer lease.Release()

		previous := s.state.Current()
		freq := lease.Update(next)
		if err := s.actuator.Apply(freq); err != nil {
			s.report(err)
			return
		}
		s.applied.Add(1)

		s.logger.Debug().
			Str("action", action.String()).
			Uint64("from", previous).
			Uint64("to", freq).
			Msg("Adjusted frequency ceiling")
	})

	return true
}

// report keeps the first actuation failure; the loop stops on it.
func (s *Scheduler) report(err error) {
	select {
	case s.errs <- err:
	default:
	}
}

// Errors delivers actuation failures from adjustments.
func (s *Scheduler) Errors() <-chan error {
	return s.errs
}

// Wait blocks until every scheduled adjustment has run.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Applied returns how many adjustments reached the hardware.
func (s *Scheduler) Applied() uint64 {
	return s.applied.Load()
}

// Dropped returns how many adjustments were skipped because another one
// was pending.
func (s *Scheduler) Dropped() uint64 {
	return s.dropped.Load()
}

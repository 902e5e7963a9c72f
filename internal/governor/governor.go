// Package governor keeps CPU temperature under a threshold by moving the
// frequency ceiling of every CPU in fixed steps.
//
// Each tick samples the temperature and, outside the hysteresis band,
// schedules an adjustment that runs after a short delay without blocking
// the loop. Decreases are quick (and grow with the overshoot); increases are
// slow, so the ceiling drops fast on heat and recovers gradually.
package governor

import (
	"context"
	"time"

	"codeberg.org/mutker/cpufreqctl/internal/cpufreq"
	"codeberg.org/mutker/cpufreqctl/internal/logger"
	"codeberg.org/mutker/cpufreqctl/internal/metrics"
)

// Sampler returns the current temperature in whole degrees.
type Sampler interface {
	Sample() (int, error)
}

type Config struct {
	Policy        Policy
	Interval      time.Duration
	IncreaseDelay time.Duration
	DecreaseDelay time.Duration
	// Monitor disables adjustments; the loop only samples and logs.
	Monitor bool
}

type Governor struct {
	cfg       Config
	sampler   Sampler
	actuator  Actuator
	state     *State
	scheduler *Scheduler
	recorder  metrics.Recorder
	logger    logger.Logger
}

func New(
	cfg Config,
	bounds cpufreq.Bounds,
	sampler Sampler,
	actuator Actuator,
	recorder metrics.Recorder,
	log logger.Logger,
) *Governor {
	state := NewState(bounds)

	return &Governor{
		cfg:       cfg,
		sampler:   sampler,
		actuator:  actuator,
		state:     state,
		scheduler: NewScheduler(state, actuator, cfg.Policy, cfg.IncreaseDelay, cfg.DecreaseDelay, log),
		recorder:  recorder,
		logger:    log,
	}
}

// Run applies the maximum ceiling and then loops until ctx is done or a
// sampling or actuation error occurs. On cancellation it waits for pending
// adjustments and restores the maximum ceiling.
func (g *Governor) Run(ctx context.Context) error {
	if !g.cfg.Monitor {
		if err := g.actuator.Apply(g.state.Current()); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(g.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := g.tick(ctx); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return g.shutdown()
		case err := <-g.scheduler.Errors():
			return err
		case <-ticker.C:
		}
	}
}

func (g *Governor) tick(ctx context.Context) error {
	temperature, err := g.sampler.Sample()
	if err != nil {
		return err
	}

	current := g.state.Current()
	action := g.cfg.Policy.Decide(temperature, current, g.state.Bounds())

	scheduled := false
	if !g.cfg.Monitor {
		switch action {
		case Decrease:
			scheduled = g.scheduler.ScheduleDecrease(temperature)
		case Increase:
			scheduled = g.scheduler.ScheduleIncrease()
		case Hold:
		}
	}

	g.logger.Info().
		Int("temperature", temperature).
		Int("threshold", g.cfg.Policy.Threshold).
		Uint64("frequency", current).
		Str("action", action.String()).
		Bool("scheduled", scheduled).
		Msg("")

	snapshot := &metrics.Snapshot{
		Timestamp:   time.Now(),
		Temperature: temperature,
		Threshold:   g.cfg.Policy.Threshold,
		Frequency:   current,
		Action:      action.String(),
		Scheduled:   scheduled,
	}
	if err := g.recorder.Record(ctx, snapshot); err != nil {
		g.logger.Warn().Err(err).Msg("Failed to record metrics")
	}

	return nil
}

func (g *Governor) shutdown() error {
	g.scheduler.Wait()

	select {
	case err := <-g.scheduler.Errors():
		return err
	default:
	}

	if g.cfg.Monitor {
		return nil
	}

	ceiling := g.state.Bounds().Max
	g.logger.Info().Uint64("frequency", ceiling).Msg("Restoring maximum frequency ceiling")

	return g.actuator.Apply(ceiling)
}

// Current returns the ceiling held by the control state.
func (g *Governor) Current() cpufreq.Frequency {
	return g.state.Current()
}

// Stats reports how many adjustments were applied and dropped so far.
func (g *Governor) Stats() (applied, dropped uint64) {
	return g.scheduler.Applied(), g.scheduler.Dropped()
}

package governor

import (
	"math"

	"codeberg.org/mutker/cpufreqctl/internal/cpufreq"
)

// Action is the outcome of one control decision.
type Action int

const (
	Hold Action = iota
	Increase
	Decrease
)

func (a Action) String() string {
	switch a {
	case Increase:
		return "increase"
	case Decrease:
		return "decrease"
	default:
		return "hold"
	}
}

// Policy is the control law: a fixed step in either direction, plus an extra
// reduction proportional to how far the temperature overshoots.
type Policy struct {
	Threshold  int
	Hysteresis int
	Step       cpufreq.Frequency
	SpikeRatio float64
}

// Decide picks the adjustment for one sample. Between Threshold-Hysteresis
// and Threshold inclusive nothing happens.
func (p Policy) Decide(temperature int, current cpufreq.Frequency, bounds cpufreq.Bounds) Action {
	switch {
	case temperature > p.Threshold && current > bounds.Min:
		return Decrease
	case temperature < p.Threshold-p.Hysteresis && current < bounds.Max:
		return Increase
	default:
		return Hold
	}
}

// SpikePenalty is the reduction added on top of Step for a sample of
// temperature: Step * floor(SpikeRatio * overshoot).
func (p Policy) SpikePenalty(temperature int) cpufreq.Frequency {
	overshoot := temperature - p.Threshold
	if overshoot <= 0 {
		return 0
	}

	return p.Step * cpufreq.Frequency(math.Floor(p.SpikeRatio*float64(overshoot)))
}

// Decreased lowers current by Step plus the spike penalty for temperature,
// never going below bounds.Min.
func (p Policy) Decreased(current cpufreq.Frequency, temperature int, bounds cpufreq.Bounds) cpufreq.Frequency {
	reduction := p.Step + p.SpikePenalty(temperature)

	// unsigned subtraction would wrap
	if reduction > current || current-reduction < bounds.Min {
		return bounds.Min
	}

	return current - reduction
}

// Increased raises current by Step, never going above bounds.Max.
func (p Policy) Increased(current cpufreq.Frequency, bounds cpufreq.Bounds) cpufreq.Frequency {
	if current >= bounds.Max || bounds.Max-current < p.Step {
		return bounds.Max
	}

	return current + p.Step
}

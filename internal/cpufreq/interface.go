package cpufreq

// Frequency is a clock frequency in kHz, the unit cpufreq uses in sysfs.
type Frequency = uint64

// Bounds holds the hardware-reported frequency range. Min <= Max.
type Bounds struct {
	Min, Max Frequency
}

// Clamp returns f limited to [b.Min, b.Max].
func (b Bounds) Clamp(f Frequency) Frequency {
	if f < b.Min {
		return b.Min
	}
	if f > b.Max {
		return b.Max
	}

	return f
}

// Contains reports whether f lies within the bounds.
func (b Bounds) Contains(f Frequency) bool {
	return f >= b.Min && f <= b.Max
}

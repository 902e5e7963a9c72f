package cpufreq

import "codeberg.org/mutker/cpufreqctl/internal/errors"

const (
	// Discovery Errors
	ErrSysfsUnavailable = errors.ErrorCode("cpufreq_sysfs_unavailable")
	ErrNoCPUs           = errors.ErrorCode("cpufreq_no_cpus")

	// Bounds Errors
	ErrBoundsFileRead  = errors.ErrorCode("cpufreq_bounds_read_failed")
	ErrBoundsFileParse = errors.ErrorCode("cpufreq_bounds_parse_failed")
	ErrBoundsInverted  = errors.ErrorCode("cpufreq_bounds_inverted")

	// Actuation Errors
	ErrWriteCeiling = errors.ErrorCode("cpufreq_write_ceiling_failed")
)

package errors

// Top-level error kinds. Every fatal condition surfaces as one of these.
const (
	ErrInvalidConfig     ErrorCode = "invalid_configuration"
	ErrReadBounds        ErrorCode = "read_bounds_failed"
	ErrSampleTemperature ErrorCode = "sample_temperature_failed"
	ErrApplyFrequency    ErrorCode = "apply_frequency_failed"
)

// Supporting codes
const (
	// System errors
	ErrInternal        ErrorCode = "internal_error"
	ErrInvalidArgument ErrorCode = "invalid_argument"
	ErrAlreadyRunning  ErrorCode = "already_running"

	// Configuration errors
	ErrReadConfig      ErrorCode = "read_config_failed"
	ErrParseFlags      ErrorCode = "parse_flags_failed"
	ErrInvalidInterval ErrorCode = "invalid_interval"

	// Operation errors
	ErrOperationFailed ErrorCode = "operation_failed"
	ErrTimeout         ErrorCode = "operation_timeout"

	// Metrics errors
	ErrInitMetrics  ErrorCode = "init_metrics_failed"
	ErrCloseMetrics ErrorCode = "close_metrics_failed"
)

var errorMessages = map[ErrorCode]string{
	ErrInvalidConfig:     "Invalid configuration",
	ErrReadBounds:        "Failed to read frequency bounds",
	ErrSampleTemperature: "Failed to sample temperature",
	ErrApplyFrequency:    "Failed to apply frequency",
	ErrInternal:          "Internal error occurred",
	ErrInvalidArgument:   "Invalid argument provided",
	ErrAlreadyRunning:    "Another instance is already running",
	ErrReadConfig:        "Failed to read configuration",
	ErrParseFlags:        "Failed to parse flags",
	ErrInvalidInterval:   "Invalid interval value",
	ErrOperationFailed:   "Operation failed",
	ErrTimeout:           "Operation timed out",
	ErrInitMetrics:       "Failed to initialize metrics",
	ErrCloseMetrics:      "Failed to close metrics connection",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}

// IsKind reports whether code is one of the top-level error kinds.
func IsKind(code ErrorCode) bool {
	switch code {
	case ErrInvalidConfig, ErrReadBounds, ErrSampleTemperature, ErrApplyFrequency:
		return true
	default:
		return false
	}
}

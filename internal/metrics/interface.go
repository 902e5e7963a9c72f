package metrics

import (
	"context"
	"time"
)

// Recorder persists one Snapshot per control tick.
type Recorder interface {
	Record(ctx context.Context, snapshot *Snapshot) error
	Close() error
}

// Repository defines the interface for metrics data storage
type Repository interface {
	Record(snapshot *Snapshot) error
	Close() error
}

// Snapshot is what the governor saw and decided on one tick.
type Snapshot struct {
	Timestamp   time.Time
	Session     string
	Temperature int
	Threshold   int
	Frequency   uint64
	Action      string
	Scheduled   bool
}

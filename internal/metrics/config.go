package metrics

import (
	"path/filepath"
	"time"

	"codeberg.org/mutker/cpufreqctl/internal/errors"
)

const (
	// File system permissions and paths
	defaultDirPerm       = 0o755
	defaultDBPath        = "/var/lib/cpufreqctl/metrics.db"
	defaultBatchSize     = 20
	defaultFlushInterval = 10 * time.Second
)

type Config struct {
	DBPath        string
	BatchSize     int
	FlushInterval time.Duration
	Enabled       bool
}

func DefaultConfig() Config {
	return Config{
		DBPath:        defaultDBPath,
		BatchSize:     defaultBatchSize,
		FlushInterval: defaultFlushInterval,
		Enabled:       false, // Disabled by default
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	// Only validate DBPath if metrics is enabled
	if c.Enabled && c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	if c.BatchSize < 0 || c.FlushInterval < 0 {
		return errFactory.WithData(ErrInvalidConfig, "batch size and flush interval must not be negative")
	}

	return nil
}

// backupDir keeps schema backups next to the database.
func (c Config) backupDir() string {
	return filepath.Join(filepath.Dir(c.DBPath), "backups")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

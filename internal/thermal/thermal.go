// Package thermal reads chip temperature from sysfs sensor files.
package thermal

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"codeberg.org/mutker/cpufreqctl/internal/errors"
	"codeberg.org/mutker/cpufreqctl/internal/logger"
)

const (
	ErrNoSensor      = errors.ErrorCode("thermal_no_sensor")
	millidegreesPerC = 1000
)

// Sampler reports the highest reading among a fixed list of candidate
// sensor files. Missing files are skipped on every sample.
type Sampler struct {
	paths  []string
	logger logger.Logger
}

// NewSampler resolves sources relative to the sysfs mount point root.
func NewSampler(root string, sources []string, log logger.Logger) *Sampler {
	paths := make([]string, len(sources))
	for i, src := range sources {
		paths[i] = filepath.Join(root, src)
	}

	return &Sampler{paths: paths, logger: log}
}

// Sample returns the current temperature in whole degrees Celsius.
// It fails when no source yields a reading; there is no fallback value.
func (s *Sampler) Sample() (int, error) {
	errFactory := errors.New()

	var (
		hottest int
		source  string
		found   bool
	)

	for _, path := range s.paths {
		temp, err := readTemperature(path)
		if err != nil {
			if !os.IsNotExist(err) {
				s.logger.Debug().Err(err).Str("sensor", path).Msg("Failed to read sensor")
			}
			continue
		}

		if !found || temp > hottest {
			hottest, source, found = temp, path, true
		}
	}

	if !found {
		return 0, errFactory.Wrap(errors.ErrSampleTemperature, errFactory.WithData(ErrNoSensor, s.paths))
	}

	s.logger.Debug().Str("sensor", source).Int("temperature", hottest).Msg("Sampled temperature")

	return hottest, nil
}

func readTemperature(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	milli, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, err
	}

	return int(milli / millidegreesPerC), nil
}

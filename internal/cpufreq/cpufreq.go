package cpufreq

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"codeberg.org/mutker/cpufreqctl/internal/errors"
	"codeberg.org/mutker/cpufreqctl/internal/logger"
	"github.com/prometheus/procfs/sysfs"
)

const (
	cpuBasePath     = "devices/system/cpu"
	minFreqFile     = "cpu0/cpufreq/cpuinfo_min_freq"
	maxFreqFile     = "cpu0/cpufreq/cpuinfo_max_freq"
	scalingMaxFile  = "cpufreq/scaling_max_freq"
	defaultFilePerm = 0o644
)

// ReadBounds reads the supported frequency range of cpu0 below the sysfs
// mount point root.
func ReadBounds(root string) (Bounds, error) {
	errFactory := errors.New()

	minFreq, err := readFrequency(filepath.Join(root, cpuBasePath, minFreqFile))
	if err != nil {
		return Bounds{}, errFactory.Wrap(errors.ErrReadBounds, err)
	}

	maxFreq, err := readFrequency(filepath.Join(root, cpuBasePath, maxFreqFile))
	if err != nil {
		return Bounds{}, errFactory.Wrap(errors.ErrReadBounds, err)
	}

	if minFreq > maxFreq {
		return Bounds{}, errFactory.Wrap(errors.ErrReadBounds,
			errFactory.WithData(ErrBoundsInverted, fmt.Sprintf("min %d > max %d", minFreq, maxFreq)))
	}

	return Bounds{Min: minFreq, Max: maxFreq}, nil
}

func readFrequency(path string) (Frequency, error) {
	errFactory := errors.New()

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, errFactory.Wrap(ErrBoundsFileRead, err)
	}

	freq, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, errFactory.Wrap(ErrBoundsFileParse, fmt.Errorf("%s: %w", path, err))
	}

	return freq, nil
}

// Writer sets the frequency ceiling of every logical CPU.
type Writer struct {
	paths  []string
	logger logger.Logger
}

// NewWriter enumerates the CPUs below root that expose cpufreq controls.
func NewWriter(root string, log logger.Logger) (*Writer, error) {
	errFactory := errors.New()

	fs, err := sysfs.NewFS(root)
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrApplyFrequency, errFactory.Wrap(ErrSysfsUnavailable, err))
	}

	cpus, err := fs.CPUs()
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrApplyFrequency, errFactory.Wrap(ErrSysfsUnavailable, err))
	}

	w := &Writer{logger: log}
	for _, cpu := range cpus {
		dir := filepath.Join(root, cpuBasePath, "cpu"+cpu.Number())
		if _, err := os.Stat(filepath.Join(dir, "cpufreq")); err != nil {
			log.Debug().Str("cpu", cpu.Number()).Msg("No cpufreq directory, skipping CPU")
			continue
		}
		w.paths = append(w.paths, filepath.Join(dir, scalingMaxFile))
	}

	if len(w.paths) == 0 {
		return nil, errFactory.Wrap(errors.ErrApplyFrequency, errFactory.WithData(ErrNoCPUs, root))
	}

	log.Debug().Int("cpus", len(w.paths)).Msg("Detected CPUs with frequency control")

	return w, nil
}

// Apply writes freq to every CPU and stops at the first failure.
// A ceiling applied to only part of the CPUs is reported as an error.
func (w *Writer) Apply(freq Frequency) error {
	errFactory := errors.New()
	value := []byte(strconv.FormatUint(freq, 10) + "\n")

	for _, path := range w.paths {
		if err := os.WriteFile(path, value, defaultFilePerm); err != nil {
			return errFactory.Wrap(errors.ErrApplyFrequency, errFactory.Wrap(ErrWriteCeiling, err))
		}
	}

	w.logger.Info().Uint64("frequency", freq).Msg("Set frequency ceiling")

	return nil
}

// CPUCount returns the number of CPUs the writer controls.
func (w *Writer) CPUCount() int {
	return len(w.paths)
}

package cpufreq

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/mutker/cpufreqctl/internal/errors"
	"codeberg.org/mutker/cpufreqctl/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSysfs lays out cpuN/cpufreq directories below a temporary sysfs root.
func fakeSysfs(t *testing.T, cpus int, minFreq, maxFreq string) string {
	t.Helper()

	root := t.TempDir()
	for i := 0; i < cpus; i++ {
		dir := filepath.Join(root, cpuBasePath, fmt.Sprintf("cpu%d", i), "cpufreq")
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "scaling_max_freq"), []byte(maxFreq+"\n"), 0o644))
	}

	cpu0 := filepath.Join(root, cpuBasePath, "cpu0", "cpufreq")
	if minFreq != "" {
		require.NoError(t, os.WriteFile(filepath.Join(cpu0, "cpuinfo_min_freq"), []byte(minFreq), 0o644))
	}
	if maxFreq != "" {
		require.NoError(t, os.WriteFile(filepath.Join(cpu0, "cpuinfo_max_freq"), []byte(maxFreq), 0o644))
	}

	return root
}

func TestReadBounds(t *testing.T) {
	root := fakeSysfs(t, 1, "800000\n", "3600000\n")

	bounds, err := ReadBounds(root)
	require.NoError(t, err)
	assert.Equal(t, Bounds{Min: 800000, Max: 3600000}, bounds)
}

func TestReadBoundsErrors(t *testing.T) {
	tests := []struct {
		name     string
		minFreq  string
		maxFreq  string
		wantCode errors.ErrorCode
	}{
		{name: "missing min", minFreq: "", maxFreq: "3600000", wantCode: ErrBoundsFileRead},
		{name: "missing max", minFreq: "800000", maxFreq: "", wantCode: ErrBoundsFileRead},
		{name: "non-numeric", minFreq: "fast", maxFreq: "3600000", wantCode: ErrBoundsFileParse},
		{name: "negative", minFreq: "-1", maxFreq: "3600000", wantCode: ErrBoundsFileParse},
		{name: "inverted", minFreq: "3600000", maxFreq: "800000", wantCode: ErrBoundsInverted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := fakeSysfs(t, 1, tt.minFreq, tt.maxFreq)

			_, err := ReadBounds(root)
			require.Error(t, err)
			assert.Equal(t, errors.ErrReadBounds, errors.KindOf(err))
			assert.True(t, errors.HasCode(err, tt.wantCode))
		})
	}
}

func TestBoundsClamp(t *testing.T) {
	b := Bounds{Min: 800000, Max: 3600000}

	assert.Equal(t, Frequency(800000), b.Clamp(0))
	assert.Equal(t, Frequency(1200000), b.Clamp(1200000))
	assert.Equal(t, Frequency(3600000), b.Clamp(5000000))
	assert.True(t, b.Contains(800000))
	assert.False(t, b.Contains(3600001))
}

func TestWriterApply(t *testing.T) {
	root := fakeSysfs(t, 4, "800000", "3600000")

	w, err := NewWriter(root, logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, 4, w.CPUCount())

	require.NoError(t, w.Apply(2400000))

	for i := 0; i < 4; i++ {
		data, err := os.ReadFile(filepath.Join(root, cpuBasePath, fmt.Sprintf("cpu%d", i), scalingMaxFile))
		require.NoError(t, err)
		assert.Equal(t, "2400000\n", string(data))
	}
}

func TestWriterSkipsCPUsWithoutCpufreq(t *testing.T) {
	root := fakeSysfs(t, 2, "800000", "3600000")
	require.NoError(t, os.MkdirAll(filepath.Join(root, cpuBasePath, "cpu2"), 0o755))

	w, err := NewWriter(root, logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, 2, w.CPUCount())
}

func TestNewWriterNoCPUs(t *testing.T) {
	root := t.TempDir()

	_, err := NewWriter(root, logger.Nop())
	require.Error(t, err)
	assert.Equal(t, errors.ErrApplyFrequency, errors.KindOf(err))
	assert.True(t, errors.HasCode(err, ErrNoCPUs))
}

func TestWriterApplyFailure(t *testing.T) {
	root := fakeSysfs(t, 2, "800000", "3600000")

	w, err := NewWriter(root, logger.Nop())
	require.NoError(t, err)

	// Replacing the control file with a directory makes the write fail
	// regardless of the user running the test.
	target := filepath.Join(root, cpuBasePath, "cpu1", scalingMaxFile)
	require.NoError(t, os.Remove(target))
	require.NoError(t, os.Mkdir(target, 0o755))

	err = w.Apply(2400000)
	require.Error(t, err)
	assert.Equal(t, errors.ErrApplyFrequency, errors.KindOf(err))
	assert.True(t, errors.HasCode(err, ErrWriteCeiling))
}

package thermal

import (
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/mutker/cpufreqctl/internal/errors"
	"codeberg.org/mutker/cpufreqctl/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sources = []string{
	"class/thermal/thermal_zone1/temp",
	"class/thermal/thermal_zone2/temp",
	"class/hwmon/hwmon1/temp1_input",
}

func writeSensor(t *testing.T, root, rel, value string) {
	t.Helper()

	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(value), 0o644))
}

func TestSampleReturnsHottestSensor(t *testing.T) {
	root := t.TempDir()
	writeSensor(t, root, sources[0], "54000\n")
	writeSensor(t, root, sources[2], "71999\n")

	s := NewSampler(root, sources, logger.Nop())

	temp, err := s.Sample()
	require.NoError(t, err)
	assert.Equal(t, 71, temp)
}

func TestSampleTracksSensorChanges(t *testing.T) {
	root := t.TempDir()
	writeSensor(t, root, sources[1], "60000")

	s := NewSampler(root, sources, logger.Nop())

	temp, err := s.Sample()
	require.NoError(t, err)
	assert.Equal(t, 60, temp)

	writeSensor(t, root, sources[0], "85000")

	temp, err = s.Sample()
	require.NoError(t, err)
	assert.Equal(t, 85, temp)
}

func TestSampleSkipsMalformedSensor(t *testing.T) {
	root := t.TempDir()
	writeSensor(t, root, sources[0], "garbage")
	writeSensor(t, root, sources[1], "42000")

	temp, err := NewSampler(root, sources, logger.Nop()).Sample()
	require.NoError(t, err)
	assert.Equal(t, 42, temp)
}

func TestSampleWithoutSensorsFails(t *testing.T) {
	root := t.TempDir()

	temp, err := NewSampler(root, sources, logger.Nop()).Sample()
	require.Error(t, err)
	assert.Zero(t, temp)
	assert.Equal(t, errors.ErrSampleTemperature, errors.KindOf(err))
	assert.True(t, errors.HasCode(err, ErrNoSensor))
}

func TestSampleOnlyMalformedSensorsFails(t *testing.T) {
	root := t.TempDir()
	writeSensor(t, root, sources[0], "")

	_, err := NewSampler(root, sources, logger.Nop()).Sample()
	require.Error(t, err)
	assert.Equal(t, errors.ErrSampleTemperature, errors.KindOf(err))
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"codeberg.org/mutker/cpufreqctl/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultConfigPath = "/etc/cpufreqctl.conf"
	DefaultEnvPrefix  = "CPUFREQCTL"
	DefaultSysfsRoot  = "/sys"
	DefaultMetricsDB  = "/var/lib/cpufreqctl/metrics.db"
	DefaultPIDFile    = "/run/cpufreqctl.pid"

	DefaultInterval      = 500 * time.Millisecond
	DefaultIncreaseDelay = 1000 * time.Millisecond
	DefaultDecreaseDelay = 100 * time.Millisecond
	DefaultStep          = 100000 // kHz
	DefaultSpikeRatio    = 0.25
	DefaultHysteresis    = 5
)

// DefaultSensors lists candidate temperature files relative to the sysfs root.
// Availability varies between boards, so every present file is read.
var DefaultSensors = []string{
	"class/thermal/thermal_zone1/temp",
	"class/thermal/thermal_zone2/temp",
	"class/hwmon/hwmon1/temp1_input",
	"class/hwmon/hwmon2/temp1_input",
	"class/hwmon/hwmon1/device/temp1_input",
	"class/hwmon/hwmon2/device/temp1_input",
}

type Config struct {
	Threshold     int           `mapstructure:"-"`
	Interval      time.Duration `mapstructure:"interval"`
	IncreaseDelay time.Duration `mapstructure:"increase_delay"`
	DecreaseDelay time.Duration `mapstructure:"decrease_delay"`
	Step          uint64        `mapstructure:"step"`
	SpikeRatio    float64       `mapstructure:"spike_ratio"`
	Hysteresis    int           `mapstructure:"hysteresis"`
	SysfsRoot     string        `mapstructure:"sysfs_root"`
	Sensors       []string      `mapstructure:"sensors"`
	Monitor       bool          `mapstructure:"monitor"`
	Debug         bool          `mapstructure:"debug"`
	Verbose       bool          `mapstructure:"verbose"`
	Metrics       bool          `mapstructure:"metrics"`
	MetricsDB     string        `mapstructure:"metrics_db"`
	PIDFile       string        `mapstructure:"pid_file"`
}

// Load builds the configuration from defaults, the TOML config file, the
// environment and args, in increasing order of precedence. args excludes the
// program name and must carry exactly one positional argument: the threshold.
func Load(args []string, opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := &options{envPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, errFactory.Wrap(errors.ErrParseFlags, err))
	}

	if err := bindFlags(v, fs); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, errFactory.Wrap(errors.ErrParseFlags, err))
	}

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := readConfigFile(v, resolveConfigPath(fs, o)); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, fmt.Errorf("failed to unmarshal config: %w", err))
	}

	threshold, err := parseThreshold(fs.Args())
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}
	config.Threshold = threshold

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Usage returns the help text for the command line.
func Usage() string {
	return "usage: cpufreqctl [flags] <max temp>\n" + newFlagSet().FlagUsages()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("interval", DefaultInterval)
	v.SetDefault("increase_delay", DefaultIncreaseDelay)
	v.SetDefault("decrease_delay", DefaultDecreaseDelay)
	v.SetDefault("step", DefaultStep)
	v.SetDefault("spike_ratio", DefaultSpikeRatio)
	v.SetDefault("hysteresis", DefaultHysteresis)
	v.SetDefault("sysfs_root", DefaultSysfsRoot)
	v.SetDefault("sensors", DefaultSensors)
	v.SetDefault("metrics_db", DefaultMetricsDB)
	v.SetDefault("pid_file", DefaultPIDFile)
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("cpufreqctl", pflag.ContinueOnError)
	fs.Usage = func() {}

	fs.String("config", "", "Path to the TOML configuration file")
	fs.Bool("debug", false, "Enable debugging mode")
	fs.Bool("verbose", false, "Enable verbose logging")
	fs.Bool("monitor", false, "Only monitor temperature, never change frequency")
	fs.Bool("metrics", false, "Record samples to the metrics database")
	fs.String("metrics-db", DefaultMetricsDB, "Path to the metrics database")
	fs.String("pid-file", DefaultPIDFile, "Path to the PID file")
	fs.String("sysfs", DefaultSysfsRoot, "Mount point of sysfs")

	return fs
}

var flagKeys = map[string]string{
	"debug":      "debug",
	"verbose":    "verbose",
	"monitor":    "monitor",
	"metrics":    "metrics",
	"metrics-db": "metrics_db",
	"pid-file":   "pid_file",
	"sysfs":      "sysfs_root",
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return err
		}
	}

	return nil
}

func resolveConfigPath(fs *pflag.FlagSet, o *options) string {
	if path, _ := fs.GetString("config"); path != "" {
		return path
	}
	if o.configPath != "" {
		return o.configPath
	}
	if path := os.Getenv(o.envPrefix + "_CONFIG"); path != "" {
		return path
	}

	return ""
}

// readConfigFile reads path, or the default location when path is empty.
// Only the default location may be absent.
func readConfigFile(v *viper.Viper, path string) error {
	errFactory := errors.New()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil
		}
	}

	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return errFactory.Wrap(errors.ErrReadConfig, err)
	}

	return nil
}

func parseThreshold(args []string) (int, error) {
	if len(args) != 1 {
		return 0, &validationError{
			field:  "threshold",
			value:  args,
			reason: fmt.Sprintf("expects exactly one argument, got %d", len(args)),
		}
	}

	threshold, err := strconv.Atoi(args[0])
	if err != nil || threshold < 0 {
		return 0, &validationError{
			field:  "threshold",
			value:  args[0],
			reason: "is not a valid temperature",
		}
	}

	return threshold, nil
}

// Validate checks the tunables. The threshold is checked while parsing args.
func (c *Config) Validate() error {
	errFactory := errors.New()

	var verr *validationError
	switch {
	case c.Interval <= 0:
		verr = &validationError{"interval", c.Interval, "must be positive"}
	case c.IncreaseDelay <= 0:
		verr = &validationError{"increase_delay", c.IncreaseDelay, "must be positive"}
	case c.DecreaseDelay <= 0:
		verr = &validationError{"decrease_delay", c.DecreaseDelay, "must be positive"}
	case c.Step == 0:
		verr = &validationError{"step", c.Step, "must be positive"}
	case c.SpikeRatio < 0 || c.SpikeRatio > 1:
		verr = &validationError{"spike_ratio", c.SpikeRatio, "must be within [0, 1]"}
	case c.Hysteresis < 0:
		verr = &validationError{"hysteresis", c.Hysteresis, "must not be negative"}
	case c.SysfsRoot == "":
		verr = &validationError{"sysfs_root", c.SysfsRoot, "must not be empty"}
	case len(c.Sensors) == 0:
		verr = &validationError{"sensors", c.Sensors, "must list at least one file"}
	case c.Metrics && c.MetricsDB == "":
		verr = &validationError{"metrics_db", c.MetricsDB, "must be set when metrics are enabled"}
	}

	if verr != nil {
		return errFactory.Wrap(errors.ErrInvalidConfig, verr)
	}

	return nil
}

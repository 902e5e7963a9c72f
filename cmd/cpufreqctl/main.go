package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"codeberg.org/mutker/cpufreqctl/internal/config"
	"codeberg.org/mutker/cpufreqctl/internal/cpufreq"
	"codeberg.org/mutker/cpufreqctl/internal/errors"
	"codeberg.org/mutker/cpufreqctl/internal/governor"
	"codeberg.org/mutker/cpufreqctl/internal/logger"
	"codeberg.org/mutker/cpufreqctl/internal/metrics"
	"codeberg.org/mutker/cpufreqctl/internal/pid"
	"codeberg.org/mutker/cpufreqctl/internal/thermal"
	"github.com/spf13/pflag"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			fmt.Print(config.Usage())
			os.Exit(0)
		}
		fmt.Fprint(os.Stderr, config.Usage())
		fatal(err)
	}

	logger.Init(cfg.Debug, cfg.Verbose, logger.IsService())
	logger.Debug().Msg("Config loaded")

	if err := run(cfg); err != nil {
		fatal(err)
	}
}

func run(cfg *config.Config) error {
	log := logger.Get()

	if err := pid.Write(cfg.PIDFile); err != nil {
		return err
	}
	defer func() {
		if err := pid.Remove(cfg.PIDFile); err != nil {
			logger.Error().Err(err).Msg("failed to remove PID file")
		}
	}()

	bounds, err := cpufreq.ReadBounds(cfg.SysfsRoot)
	if err != nil {
		return err
	}

	writer, err := cpufreq.NewWriter(cfg.SysfsRoot, log)
	if err != nil {
		return err
	}

	logger.Info().
		Int("max_temperature", cfg.Threshold).
		Int("cpus", writer.CPUCount()).
		Uint64("min_frequency", bounds.Min).
		Uint64("max_frequency", bounds.Max).
		Bool("monitor", cfg.Monitor).
		Msg("Starting governor")

	mcfg := metrics.DefaultConfig()
	mcfg.Enabled = cfg.Metrics
	mcfg.DBPath = cfg.MetricsDB
	recorder, err := metrics.NewService(mcfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := recorder.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close metrics")
		}
	}()

	sampler := thermal.NewSampler(cfg.SysfsRoot, cfg.Sensors, log)

	g := governor.New(governor.Config{
		Policy: governor.Policy{
			Threshold:  cfg.Threshold,
			Hysteresis: cfg.Hysteresis,
			Step:       cfg.Step,
			SpikeRatio: cfg.SpikeRatio,
		},
		Interval:      cfg.Interval,
		IncreaseDelay: cfg.IncreaseDelay,
		DecreaseDelay: cfg.DecreaseDelay,
		Monitor:       cfg.Monitor,
	}, bounds, sampler, writer, recorder, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	if err := g.Run(ctx); err != nil {
		return err
	}

	applied, dropped := g.Stats()
	logger.Info().
		Uint64("applied", applied).
		Uint64("dropped", dropped).
		Msg("Exiting...")

	return nil
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

// fatal is the single exit point for every unrecoverable error. It runs
// after run has unwound its deferred cleanup.
func fatal(err error) {
	var appErr errors.Error
	if !errors.As(err, &appErr) {
		appErr = errors.New().Wrap(errors.ErrInternal, err)
	}

	logger.FatalWithCode(appErr).
		Str("kind", string(errors.KindOf(err))).
		Msg("Fatal error, exiting")
	os.Exit(1) // unreachable unless zerolog.FatalExitFunc is overridden
}

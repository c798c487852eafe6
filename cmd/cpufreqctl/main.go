package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"codeberg.org/mutker/cpufreqctl/internal/config"
	"codeberg.org/mutker/cpufreqctl/internal/cpufreq"
	"codeberg.org/mutker/cpufreqctl/internal/daemon"
	"codeberg.org/mutker/cpufreqctl/internal/errors"
	"codeberg.org/mutker/cpufreqctl/internal/instance"
	"codeberg.org/mutker/cpufreqctl/internal/logger"
	"codeberg.org/mutker/cpufreqctl/internal/metrics"
	"codeberg.org/mutker/cpufreqctl/internal/policy"
	"codeberg.org/mutker/cpufreqctl/internal/report"
	"codeberg.org/mutker/cpufreqctl/internal/sysfs"
	"codeberg.org/mutker/cpufreqctl/internal/telemetry"
	"github.com/spf13/pflag"
)

const appName = "cpufreqctl"

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

type flags struct {
	list       bool
	turbo      string
	governor   string
	runOnce    bool
	configPath string
	logLevel   string
	history    int
	version    bool
}

// system is the host-facing plumbing shared by every command.
type system struct {
	cpus     int
	reader   *telemetry.Reader
	catalog  *cpufreq.Catalog
	actuator *cpufreq.Actuator

	// self is the executable name other instances are matched on.
	self      string
	processes instance.Lister
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	f, err := parseFlags(args)
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if f.version {
		fmt.Printf("%s %s\n", appName, version)
		return 0
	}

	level, err := logger.ParseLevel(f.logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	logger.Init(level, logger.IsService())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(ctx, cancel)

	store := sysfs.New(nil)
	cpus := telemetry.CPUCount()
	sys := &system{
		cpus:     cpus,
		reader:   telemetry.NewReader(store),
		catalog:  cpufreq.NewCatalog(store, sysfs.CPURoot, cpus),
		actuator: cpufreq.NewActuator(store, sysfs.CPURoot, cpus, logger.Default()),
		self:     filepath.Base(os.Args[0]),
	}

	switch {
	case f.list:
		err = list(ctx, sys)
	case f.turbo != "":
		err = setTurbo(sys, f.turbo)
	case f.runOnce:
		err = runOnce(ctx, sys, f)
	case f.governor != "":
		err = setGovernor(sys, f.governor)
	case f.history > 0:
		err = history(ctx, f)
	default:
		err = serve(ctx, sys, f)
	}

	if err != nil {
		var appErr errors.Error
		if errors.As(err, &appErr) {
			logger.ErrorWithCode(appErr).Msg(failureMessage(err))
		} else {
			logger.Error().Err(err).Msg(failureMessage(err))
		}
		return 1
	}

	return 0
}

func parseFlags(args []string) (flags, error) {
	var f flags

	fs := pflag.NewFlagSet(appName, pflag.ContinueOnError)
	fs.BoolVarP(&f.list, "list", "l", false, "List battery, turbo, governor and frequency information")
	fs.StringVarP(&f.turbo, "turbo", "t", "", "Set turbo boost on or off once and exit")
	fs.StringVarP(&f.governor, "governor", "g", "", "Set the scaling governor once and exit")
	fs.BoolVarP(&f.runOnce, "run-once", "r", false, "Evaluate the configuration once, apply it and exit")
	fs.StringVarP(&f.configPath, "config", "c", "", "Path to the configuration file")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warning, error)")
	fs.IntVar(&f.history, "history", 0, "Plot the last n recorded cycles and exit")
	fs.BoolVarP(&f.version, "version", "v", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return f, err
	}
	if fs.NArg() > 0 {
		return f, errors.New().WithData(errors.ErrInvalidArgument, fs.Args())
	}
	if fs.Changed("history") && f.history <= 0 {
		return f, errors.New().WithData(errors.ErrInvalidArgument, "--history must be positive")
	}

	return f, nil
}

func handleSignals(ctx context.Context, cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	select {
	case <-sigs:
		logger.Info().Msg("Received termination signal")
		cancel()
	case <-ctx.Done():
	}
}

func list(ctx context.Context, sys *system) error {
	st, err := report.Gather(ctx, sys.reader, sys.catalog, sys.actuator)
	if err != nil {
		return err
	}

	return report.List(os.Stdout, st)
}

func setTurbo(sys *system, value string) error {
	enabled, err := parseSwitch(value)
	if err != nil {
		return err
	}

	if err := sys.actuator.ApplyTurbo(enabled); err != nil {
		if errors.HasCode(err, errors.ErrTurboUnsupported) {
			logger.Warn().Msg(errors.GetErrorMessage(errors.ErrTurboUnsupported))
			return nil
		}
		return err
	}

	logger.Info().Bool("turbo", enabled).Msg("Turbo boost set")
	return nil
}

func setGovernor(sys *system, name string) error {
	name = strings.ToLower(name)

	governors, err := sys.catalog.AvailableGovernors()
	if err != nil {
		return err
	}

	found := false
	for _, g := range governors {
		if g == name {
			found = true
			break
		}
	}
	if !found {
		return errors.New().WithData(errors.ErrInvalidGovernor, config.InvalidValue{
			Field:     "governor",
			Value:     name,
			Available: governors,
		})
	}

	if err := sys.actuator.ApplyGovernor(name); err != nil {
		return err
	}

	logger.Info().Str("governor", name).Msg("Governor set")
	return nil
}

func runOnce(ctx context.Context, sys *system, f flags) error {
	cfg, err := loadConfig(sys, f)
	if err != nil {
		return err
	}

	d := daemon.New(cfg, sys.reader, policy.NewEngine(sys.actuator, logger.Default()), nil, sys.cpus, logger.Default())
	decision, err := d.RunOnce(ctx)
	if err != nil {
		return err
	}

	logger.Info().
		Str("profile", decision.Profile).
		Str("governor", decision.Governor).
		Bool("turbo", decision.Turbo).
		Msg("Applied")

	return nil
}

func history(ctx context.Context, f flags) error {
	cfg, err := config.Load(configOptions(f)...)
	if err != nil {
		return err
	}

	collector, err := metrics.NewService(metricsConfig(cfg), logger.Default())
	if err != nil {
		return err
	}
	defer collector.Close()

	samples, err := collector.Recent(ctx, f.history)
	if err != nil {
		return err
	}

	return report.History(os.Stdout, samples)
}

// serve checks for another instance before reading config or any control
// surface, then runs the loop until ctx is cancelled.
func serve(ctx context.Context, sys *system, f flags) error {
	if err := instance.Check(ctx, sys.self, int32(os.Getpid()), sys.processes); err != nil {
		return err
	}

	cfg, err := loadConfig(sys, f)
	if err != nil {
		return err
	}

	collector, err := metrics.NewService(metricsConfig(cfg), logger.Default())
	if err != nil {
		return err
	}
	defer func() {
		if err := collector.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close metrics")
		}
	}()

	logger.Info().
		Str("config", cfg.Path).
		Str("version", version).
		Msg("Starting " + appName)

	d := daemon.New(cfg, sys.reader, policy.NewEngine(sys.actuator, logger.Default()), collector, sys.cpus, logger.Default())
	if err := d.Run(ctx); err != nil {
		return err
	}

	logger.Info().Msg("Exiting...")
	return nil
}

// loadConfig loads the configuration, applies its log level and checks
// both profiles against the platform.
func loadConfig(sys *system, f flags) (*config.Config, error) {
	cfg, err := config.Load(configOptions(f)...)
	if err != nil {
		return nil, err
	}

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	logger.SetLogLevel(level)
	logger.Debug().Str("path", cfg.Path).Msg("Config loaded")

	if err := cfg.Validate(sys.catalog); err != nil {
		return nil, err
	}

	return cfg, nil
}

func configOptions(f flags) []config.Option {
	var opts []config.Option
	if f.configPath != "" {
		opts = append(opts, config.WithConfigFile(f.configPath))
	}
	if f.logLevel != "" {
		opts = append(opts, config.WithLogLevel(f.logLevel))
	}

	return opts
}

func metricsConfig(cfg *config.Config) metrics.Config {
	return metrics.Config{
		DBPath:    cfg.Metrics.DBPath,
		BatchSize: cfg.Metrics.BatchSize,
		Enabled:   cfg.Metrics.Enabled,
	}
}

func parseSwitch(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "on", "yes":
		return true, nil
	case "off", "no":
		return false, nil
	}

	enabled, err := strconv.ParseBool(value)
	if err != nil {
		return false, errors.New().WithData(errors.ErrInvalidArgument, "--turbo expects true or false, got "+value)
	}

	return enabled, nil
}

// failureMessage picks the user-facing message for a fatal error.
func failureMessage(err error) string {
	switch errors.CodeOf(err) {
	case errors.ErrAlreadyRunning:
		if running, ok := errors.DataOf[instance.Running](err); ok {
			return fmt.Sprintf("%s is already running (PID %d)", appName, running.PID)
		}
	case metrics.ErrDisabled:
		return "History needs [metrics] enabled = true in the configuration"
	case errors.ErrMainLoop:
		if cause := errors.Unwrap(err); cause != nil {
			return failureMessage(cause)
		}
	}

	return errors.GetErrorMessage(errors.CodeOf(err))
}

package config

import (
	"os"
	"strings"

	"codeberg.org/mutker/cpufreqctl/internal/errors"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

const (
	DefaultEnvPrefix   = "CPUFREQCTL"
	DefaultLogLevel    = "info"
	DefaultMetricsPath = "/var/lib/cpufreqctl/metrics.db"
	DefaultBatchSize   = 10

	configEnvVar = "CONFIG"
)

// DefaultSearchPaths are tried in order; the first existing file wins.
var DefaultSearchPaths = []string{
	"/etc/cpufreqctl.toml",
	"/etc/cpufreqctl/cpufreqctl.toml",
	"/etc/cpufreqctl/config.toml",
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	DBPath    string `mapstructure:"db_path"`
	BatchSize int    `mapstructure:"batch_size"`
}

// Config holds one profile per power source. It is read-only once loaded.
type Config struct {
	Battery Profile       `mapstructure:"battery"`
	AC      Profile       `mapstructure:"ac"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`

	// Path is the file the configuration was read from.
	Path string `mapstructure:"-"`
}

// Load finds, reads and structurally checks the configuration file.
// Governor and frequency checks need the platform and happen in Validate.
func Load(opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := &options{
		searchPaths: DefaultSearchPaths,
		envPrefix:   DefaultEnvPrefix,
		fs:          afero.NewOsFs(),
	}
	for _, opt := range opts {
		opt(o)
	}

	path, err := findConfig(o)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetFs(o.fs)
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.db_path", DefaultMetricsPath)
	v.SetDefault("metrics.batch_size", DefaultBatchSize)

	if err := v.ReadInConfig(); err != nil {
		return nil, errFactory.Wrap(errors.ErrReadConfig, err).WithData(path)
	}

	if o.logLevel != "" {
		v.Set("log.level", o.logLevel)
	}

	if err := checkRequired(v); err != nil {
		return nil, err
	}

	cfg := &Config{}
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(cfg, hook); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err).WithData(path)
	}
	cfg.Path = path

	cfg.Battery.Governor = strings.ToLower(cfg.Battery.Governor)
	cfg.AC.Governor = strings.ToLower(cfg.AC.Governor)

	if err := cfg.checkSchema(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks both profiles against the platform, battery first.
func (c *Config) Validate(caps Capabilities) error {
	if err := c.Battery.validate("battery", caps); err != nil {
		return err
	}

	return c.AC.validate("ac", caps)
}

// Profile returns the profile for the given power source.
func (c *Config) Profile(charging bool) (string, Profile) {
	if charging {
		return "ac", c.AC
	}

	return "battery", c.Battery
}

func findConfig(o *options) (string, error) {
	errFactory := errors.New()

	explicit := o.configPath
	if explicit == "" {
		explicit = os.Getenv(o.envPrefix + "_" + configEnvVar)
	}
	if explicit != "" {
		if _, err := o.fs.Stat(explicit); err != nil {
			return "", errFactory.Wrap(errors.ErrMissingConfig, err).WithData(explicit)
		}
		return explicit, nil
	}

	for _, candidate := range o.searchPaths {
		if _, err := o.fs.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", errFactory.WithData(errors.ErrMissingConfig, strings.Join(o.searchPaths, ", "))
}

var profileKeys = []string{"turbo", "interval", "mincpu", "mintemp", "governor"}

func checkRequired(v *viper.Viper) error {
	errFactory := errors.New()

	for _, section := range []string{"battery", "ac"} {
		if !v.IsSet(section) {
			return errFactory.WithData(errors.ErrInvalidConfig, InvalidValue{
				Field: section,
				Value: "missing section",
			})
		}
		for _, key := range profileKeys {
			if !v.IsSet(section + "." + key) {
				return errFactory.WithData(errors.ErrInvalidConfig, InvalidValue{
					Field: section + "." + key,
					Value: "missing field",
				})
			}
		}
	}

	return nil
}

func (c *Config) checkSchema() error {
	errFactory := errors.New()

	for _, section := range []struct {
		name    string
		profile Profile
	}{{"battery", c.Battery}, {"ac", c.AC}} {
		name, p := section.name, section.profile
		if !p.Turbo.IsValid() {
			return errFactory.WithData(errors.ErrInvalidConfig, InvalidValue{
				Field: name + ".turbo", Value: p.Turbo, Available: "always auto never",
			})
		}
		if p.Interval <= 0 {
			return errFactory.WithData(errors.ErrInvalidConfig, InvalidValue{
				Field: name + ".interval", Value: p.Interval,
			})
		}
		if p.MinCPU < 0 || p.MinCPU > 100 {
			return errFactory.WithData(errors.ErrInvalidConfig, InvalidValue{
				Field: name + ".mincpu", Value: p.MinCPU,
			})
		}
	}

	if !LogLevel(strings.ToLower(c.Log.Level)).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, InvalidValue{
			Field: "log.level", Value: c.Log.Level,
		})
	}

	if c.Metrics.Enabled && c.Metrics.DBPath == "" {
		return errFactory.WithData(errors.ErrInvalidConfig, InvalidValue{
			Field: "metrics.db_path", Value: `""`,
		})
	}

	return nil
}

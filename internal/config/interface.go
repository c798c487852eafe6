package config

import "github.com/spf13/afero"

// Capabilities is the subset of the capability catalog the validator needs.
type Capabilities interface {
	AvailableGovernors() ([]string, error)
	AvailableFrequencies() ([]uint32, error)
}

// Option defines a configuration option that can be passed to Load
type Option func(*options)

// options holds internal configuration options
type options struct {
	configPath  string
	searchPaths []string
	envPrefix   string
	logLevel    string
	fs          afero.Fs
}

// WithConfigFile specifies an explicit configuration file path
func WithConfigFile(path string) Option {
	return func(o *options) {
		o.configPath = path
	}
}

// WithSearchPaths replaces the default configuration file candidates
func WithSearchPaths(paths ...string) Option {
	return func(o *options) {
		o.searchPaths = paths
	}
}

// WithEnvPrefix specifies a custom environment variable prefix
// Default is "CPUFREQCTL"
func WithEnvPrefix(prefix string) Option {
	return func(o *options) {
		o.envPrefix = prefix
	}
}

// WithLogLevel overrides the configured log level
func WithLogLevel(level string) Option {
	return func(o *options) {
		o.logLevel = level
	}
}

// WithFs reads configuration from fs instead of the host filesystem
func WithFs(fs afero.Fs) Option {
	return func(o *options) {
		o.fs = fs
	}
}

// LogLevel represents valid logging levels
type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// IsValid returns whether the log level is valid
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError:
		return true
	default:
		return false
	}
}

// String implements the Stringer interface
func (l LogLevel) String() string {
	return string(l)
}

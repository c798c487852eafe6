package config

import (
	"fmt"
	"strings"

	"codeberg.org/mutker/cpufreqctl/internal/errors"
)

const userspaceGovernor = "userspace"

// TurboMode controls when turbo boost is enabled.
type TurboMode string

const (
	TurboAlways TurboMode = "always"
	TurboAuto   TurboMode = "auto"
	TurboNever  TurboMode = "never"
)

// UnmarshalText accepts always, auto or never in any case.
func (m *TurboMode) UnmarshalText(text []byte) error {
	mode := TurboMode(strings.ToLower(strings.TrimSpace(string(text))))
	if !mode.IsValid() {
		return fmt.Errorf("unknown turbo mode %q, expected one of always, auto, never", string(text))
	}
	*m = mode

	return nil
}

func (m TurboMode) IsValid() bool {
	switch m {
	case TurboAlways, TurboAuto, TurboNever:
		return true
	default:
		return false
	}
}

func (m TurboMode) String() string {
	return string(m)
}

// Profile is the policy applied while on one power source.
type Profile struct {
	Turbo     TurboMode `mapstructure:"turbo"`
	Interval  int       `mapstructure:"interval"`
	MinCPU    float64   `mapstructure:"mincpu"`
	MinTemp   int       `mapstructure:"mintemp"`
	Governor  string    `mapstructure:"governor"`
	Frequency *uint32   `mapstructure:"frequency"`
}

// InvalidValue describes a rejected configuration value.
type InvalidValue struct {
	Field     string
	Value     any
	Available any
}

func (v InvalidValue) String() string {
	if v.Available != nil {
		return fmt.Sprintf("%s = %v (available: %v)", v.Field, v.Value, v.Available)
	}

	return fmt.Sprintf("%s = %v", v.Field, v.Value)
}

// Validate checks the governor and optional frequency against caps.
// The first violation is returned.
func (p Profile) Validate(caps Capabilities) error {
	return p.validate("", caps)
}

func (p Profile) validate(section string, caps Capabilities) error {
	errFactory := errors.New()
	field := func(name string) string {
		if section == "" {
			return name
		}
		return section + "." + name
	}

	governor := strings.ToLower(p.Governor)
	governors, err := caps.AvailableGovernors()
	if err != nil {
		return err
	}
	if !contains(governors, governor) {
		return errFactory.WithData(errors.ErrInvalidGovernor, InvalidValue{
			Field:     field("governor"),
			Value:     p.Governor,
			Available: strings.Join(governors, " "),
		})
	}

	if p.Frequency == nil {
		return nil
	}

	if governor != userspaceGovernor {
		return errFactory.WithData(errors.ErrFrequencyRequiresUserspace, InvalidValue{
			Field: field("governor"),
			Value: p.Governor,
		})
	}

	frequencies, err := caps.AvailableFrequencies()
	if err != nil {
		return err
	}
	if !contains(frequencies, *p.Frequency) {
		return errFactory.WithData(errors.ErrInvalidFrequency, InvalidValue{
			Field:     field("frequency"),
			Value:     *p.Frequency,
			Available: frequencies,
		})
	}

	return nil
}

func contains[T comparable](set []T, value T) bool {
	for _, v := range set {
		if v == value {
			return true
		}
	}

	return false
}

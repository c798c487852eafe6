package cpufreq

import (
	"path/filepath"

	"codeberg.org/mutker/cpufreqctl/internal/errors"
)

const (
	intelNoTurboFile = "intel_pstate/no_turbo"
	boostFile        = "cpufreq/boost"
)

// turboPath returns the turbo attribute present on this platform and
// whether it is the inverted intel_pstate one.
func (a *Actuator) turboPath() (path string, inverted bool, ok bool) {
	if p := filepath.Join(a.root, intelNoTurboFile); a.store.Exists(p) {
		return p, true, true
	}
	if p := filepath.Join(a.root, boostFile); a.store.Exists(p) {
		return p, false, true
	}

	return "", false, false
}

// ApplyTurbo enables or disables turbo boost. intel_pstate/no_turbo
// takes "1" to disable; cpufreq/boost takes "1" to enable. Platforms
// without either attribute get ErrTurboUnsupported.
func (a *Actuator) ApplyTurbo(enabled bool) error {
	path, inverted, ok := a.turboPath()
	if !ok {
		return errors.New().New(ErrTurboUnsupported)
	}

	value := "0"
	if enabled != inverted {
		value = "1"
	}

	if err := a.store.Write(path, value); err != nil {
		return newWriteError(err, WriteFailure{CPU: -1, Path: path, Value: value})
	}
	a.logger.Debug().Bool("turbo", enabled).Str("path", path).Msg("Turbo applied")

	return nil
}

// TurboState reads the current turbo state.
func (a *Actuator) TurboState() TurboState {
	path, inverted, ok := a.turboPath()
	if !ok {
		return TurboNotSupported
	}

	value, err := a.store.Read(path)
	if err != nil {
		return TurboNotSupported
	}

	if (value == "1") != inverted {
		return TurboOn
	}

	return TurboOff
}

// Package policy turns a profile and a telemetry snapshot into the
// governor, frequency and turbo state to apply.
package policy

import (
	"time"

	"codeberg.org/mutker/cpufreqctl/internal/config"
	"codeberg.org/mutker/cpufreqctl/internal/cpufreq"
	"codeberg.org/mutker/cpufreqctl/internal/errors"
	"codeberg.org/mutker/cpufreqctl/internal/logger"
	"codeberg.org/mutker/cpufreqctl/internal/telemetry"
)

// loadThresholdPercent is the share of CPUs whose 1-minute load turns
// turbo on under the auto mode.
const loadThresholdPercent = 75

// Decision is what one cycle applies.
type Decision struct {
	Profile   string
	Governor  string
	Frequency *uint32
	Turbo     bool
	Threshold float64
	// Interval is how long the next cycle samples CPU usage for.
	Interval time.Duration
}

// Threshold is 75% of cpus, truncated to a whole number before widening:
// 8 CPUs give 6, not 6.75.
func Threshold(cpus int) float64 {
	return float64((loadThresholdPercent * cpus) / 100)
}

// Decide is pure: the same profile, snapshot and CPU count always give
// the same decision.
func Decide(profile config.Profile, snap telemetry.Snapshot, cpus int) Decision {
	threshold := Threshold(cpus)

	var turbo bool
	switch profile.Turbo {
	case config.TurboNever:
		turbo = false
	case config.TurboAlways:
		turbo = true
	default:
		turbo = snap.LoadAverage >= threshold ||
			snap.CPUPercent >= profile.MinCPU ||
			snap.Temperature >= profile.MinTemp
	}

	return Decision{
		Governor:  profile.Governor,
		Frequency: profile.Frequency,
		Turbo:     turbo,
		Threshold: threshold,
		Interval:  time.Duration(profile.Interval) * time.Second,
	}
}

// Select picks the ac profile when charging, else battery.
func Select(cfg *config.Config, charging bool) (string, config.Profile) {
	return cfg.Profile(charging)
}

// Evaluate selects the profile for the snapshot's power source and decides.
func Evaluate(cfg *config.Config, snap telemetry.Snapshot, cpus int) Decision {
	name, profile := Select(cfg, snap.Charging)
	d := Decide(profile, snap, cpus)
	d.Profile = name

	return d
}

// Engine applies decisions through a controller.
type Engine struct {
	ctrl   cpufreq.Controller
	logger logger.Logger
}

func NewEngine(ctrl cpufreq.Controller, log logger.Logger) *Engine {
	return &Engine{ctrl: ctrl, logger: log}
}

// Apply writes governor, then frequency, then turbo. The order matters:
// scaling_setspeed only accepts writes once the userspace governor is
// active. Governor and frequency are written even when unchanged so that
// outside changes are undone every cycle. Missing turbo support is
// logged and otherwise ignored.
func (e *Engine) Apply(d Decision) error {
	if err := e.ctrl.ApplyGovernor(d.Governor); err != nil {
		return err
	}

	if d.Frequency != nil {
		if err := e.ctrl.ApplyFrequency(*d.Frequency); err != nil {
			return err
		}
	}

	if err := e.ctrl.ApplyTurbo(d.Turbo); err != nil {
		if errors.HasCode(err, errors.ErrTurboUnsupported) {
			e.logger.Warn().Msg("Turbo boost is not supported")
			return nil
		}
		return err
	}

	return nil
}

package telemetry

import "codeberg.org/mutker/cpufreqctl/internal/errors"

const (
	ErrTelemetryRead = errors.ErrTelemetryRead
	ErrNoSensor      = errors.ErrNoSensor
	ErrNoBattery     = errors.ErrNoBattery
	ErrBatteryRead   = errors.ErrBatteryRead
)

package telemetry

import (
	"context"
	"time"

	"github.com/distatus/battery"
	"github.com/shirou/gopsutil/v3/host"
)

// Snapshot is one poll cycle's view of the system.
type Snapshot struct {
	Timestamp   time.Time
	Charging    bool
	CPUPercent  float64
	LoadAverage float64
	Temperature int
}

// Source reads the telemetry the policy engine decides on.
type Source interface {
	Snapshot(ctx context.Context, window time.Duration) (Snapshot, error)
	CPUPercent(ctx context.Context, window time.Duration) (float64, error)
	Charging() (bool, error)
	Temperature(ctx context.Context) (int, error)
	LoadAverage() (float64, error)
}

// PowerSupply reports the state of the first battery.
type PowerSupply interface {
	State() (battery.AgnosticState, error)
}

// Info describes the battery for the listing.
type Info struct {
	State    string
	Charging bool
}

// CPUSampler measures utilisation over a window.
type CPUSampler func(ctx context.Context, window time.Duration) ([]float64, error)

// SensorReader lists temperature sensors.
type SensorReader func(ctx context.Context) ([]host.TemperatureStat, error)

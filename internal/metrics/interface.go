package metrics

import (
	"context"
	"time"
)

// Collector records one sample per control cycle.
type Collector interface {
	Record(ctx context.Context, sample *Sample) error
	Recent(ctx context.Context, n int) ([]Sample, error)
	Close() error
}

// Repository stores samples.
type Repository interface {
	Record(sample *Sample) error
	Recent(n int) ([]Sample, error)
	Close() error
}

// Sample is one applied decision and the telemetry it was based on.
type Sample struct {
	Timestamp   time.Time
	Profile     string
	Charging    bool
	CPUPercent  float64
	LoadAverage float64
	Temperature int
	Governor    string
	// Frequency is 0 when the profile pins no frequency.
	Frequency uint32
	Turbo     bool
}

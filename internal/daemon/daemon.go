// Package daemon runs the read, decide, apply cycle.
package daemon

import (
	"context"
	"time"

	"codeberg.org/mutker/cpufreqctl/internal/config"
	"codeberg.org/mutker/cpufreqctl/internal/errors"
	"codeberg.org/mutker/cpufreqctl/internal/logger"
	"codeberg.org/mutker/cpufreqctl/internal/metrics"
	"codeberg.org/mutker/cpufreqctl/internal/policy"
	"codeberg.org/mutker/cpufreqctl/internal/telemetry"
)

// FirstSampleWindow is the CPU sample window of the first cycle. Later
// cycles sample for the selected profile's interval, so the sample is
// also the sleep between cycles.
const FirstSampleWindow = 200 * time.Millisecond

// Applier applies a decision.
type Applier interface {
	Apply(d policy.Decision) error
}

type Daemon struct {
	cfg       *config.Config
	source    telemetry.Source
	applier   Applier
	collector metrics.Collector
	cpus      int
	logger    logger.Logger

	profile string
}

// New returns a Daemon. A nil collector records nothing.
func New(
	cfg *config.Config,
	source telemetry.Source,
	applier Applier,
	collector metrics.Collector,
	cpus int,
	log logger.Logger,
) *Daemon {
	return &Daemon{
		cfg:       cfg,
		source:    source,
		applier:   applier,
		collector: collector,
		cpus:      cpus,
		logger:    log,
	}
}

// Run cycles until ctx is cancelled or a cycle fails. Cancellation is a
// clean exit and returns nil.
func (d *Daemon) Run(ctx context.Context) error {
	window := FirstSampleWindow

	d.logger.Info().
		Int("cpus", d.cpus).
		Float64("load_threshold", policy.Threshold(d.cpus)).
		Msg("Starting control loop")

	for {
		if ctx.Err() != nil {
			return nil
		}

		decision, err := d.cycle(ctx, window)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.New().Wrap(errors.ErrMainLoop, err)
		}

		window = decision.Interval
	}
}

// RunOnce performs a single cycle.
func (d *Daemon) RunOnce(ctx context.Context) (policy.Decision, error) {
	return d.cycle(ctx, FirstSampleWindow)
}

func (d *Daemon) cycle(ctx context.Context, window time.Duration) (policy.Decision, error) {
	snap, err := d.source.Snapshot(ctx, window)
	if err != nil {
		return policy.Decision{}, err
	}

	decision := policy.Evaluate(d.cfg, snap, d.cpus)

	if decision.Profile != d.profile {
		d.logger.Info().
			Str("profile", decision.Profile).
			Bool("charging", snap.Charging).
			Msg("Using profile")
		d.profile = decision.Profile
	}

	event := d.logger.Debug().
		Str("profile", decision.Profile).
		Float64("cpu_percent", snap.CPUPercent).
		Float64("load_average", snap.LoadAverage).
		Float64("load_threshold", decision.Threshold).
		Int("temperature", snap.Temperature).
		Str("governor", decision.Governor).
		Bool("turbo", decision.Turbo)
	if decision.Frequency != nil {
		event = event.Uint32("frequency", *decision.Frequency)
	}
	event.Msg("Applying decision")

	if err := d.applier.Apply(decision); err != nil {
		return decision, err
	}

	d.record(ctx, snap, decision)

	return decision, nil
}

func (d *Daemon) record(ctx context.Context, snap telemetry.Snapshot, decision policy.Decision) {
	if d.collector == nil {
		return
	}

	sample := &metrics.Sample{
		Timestamp:   snap.Timestamp,
		Profile:     decision.Profile,
		Charging:    snap.Charging,
		CPUPercent:  snap.CPUPercent,
		LoadAverage: snap.LoadAverage,
		Temperature: snap.Temperature,
		Governor:    decision.Governor,
		Turbo:       decision.Turbo,
	}
	if decision.Frequency != nil {
		sample.Frequency = *decision.Frequency
	}

	if err := d.collector.Record(ctx, sample); err != nil {
		d.logger.Warn().Err(err).Msg("Failed to record metrics")
	}
}

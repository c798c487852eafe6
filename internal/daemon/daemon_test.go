package daemon_test

import (
	"context"
	"testing"
	"time"

	"codeberg.org/mutker/cpufreqctl/internal/config"
	"codeberg.org/mutker/cpufreqctl/internal/daemon"
	"codeberg.org/mutker/cpufreqctl/internal/errors"
	"codeberg.org/mutker/cpufreqctl/internal/logger"
	"codeberg.org/mutker/cpufreqctl/internal/metrics"
	"codeberg.org/mutker/cpufreqctl/internal/policy"
	"codeberg.org/mutker/cpufreqctl/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource returns snaps in order and cancels the run once they are
// used up.
type fakeSource struct {
	snaps   []telemetry.Snapshot
	err     error
	windows []time.Duration
	cancel  context.CancelFunc
}

func (f *fakeSource) Snapshot(ctx context.Context, window time.Duration) (telemetry.Snapshot, error) {
	f.windows = append(f.windows, window)
	if f.err != nil {
		return telemetry.Snapshot{}, f.err
	}
	if len(f.snaps) == 0 {
		f.cancel()
		return telemetry.Snapshot{}, ctx.Err()
	}

	snap := f.snaps[0]
	f.snaps = f.snaps[1:]
	return snap, nil
}

func (f *fakeSource) CPUPercent(context.Context, time.Duration) (float64, error) { return 0, nil }
func (f *fakeSource) Charging() (bool, error)                                  { return false, nil }
func (f *fakeSource) Temperature(context.Context) (int, error)                 { return 0, nil }
func (f *fakeSource) LoadAverage() (float64, error)                            { return 0, nil }

type fakeApplier struct {
	decisions []policy.Decision
	err       error
}

func (f *fakeApplier) Apply(d policy.Decision) error {
	f.decisions = append(f.decisions, d)
	return f.err
}

type fakeCollector struct {
	samples []metrics.Sample
	err     error
}

func (f *fakeCollector) Record(_ context.Context, s *metrics.Sample) error {
	f.samples = append(f.samples, *s)
	return f.err
}

func (f *fakeCollector) Recent(context.Context, int) ([]metrics.Sample, error) { return f.samples, nil }
func (f *fakeCollector) Close() error                                          { return nil }

func testConfig() *config.Config {
	freq := uint32(2200000)
	return &config.Config{
		Battery: config.Profile{
			Turbo: config.TurboAuto, Interval: 5, MinCPU: 80, MinTemp: 75, Governor: "powersave",
		},
		AC: config.Profile{
			Turbo: config.TurboAlways, Interval: 1, MinCPU: 20, MinTemp: 60,
			Governor: "userspace", Frequency: &freq,
		},
	}
}

func TestRunSamplesForProfileInterval(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := &fakeSource{
		cancel: cancel,
		snaps: []telemetry.Snapshot{
			{Charging: false, CPUPercent: 10, LoadAverage: 0.5, Temperature: 40},
			{Charging: true, CPUPercent: 10, LoadAverage: 0.5, Temperature: 40},
			{Charging: false, CPUPercent: 85, LoadAverage: 0.5, Temperature: 40},
		},
	}
	applier := &fakeApplier{}
	collector := &fakeCollector{}

	d := daemon.New(testConfig(), source, applier, collector, 4, logger.Default())
	require.NoError(t, d.Run(ctx))

	assert.Equal(t, []time.Duration{
		daemon.FirstSampleWindow,
		5 * time.Second,
		1 * time.Second,
		5 * time.Second,
	}, source.windows)

	require.Len(t, applier.decisions, 3)
	assert.Equal(t, "battery", applier.decisions[0].Profile)
	assert.False(t, applier.decisions[0].Turbo)
	assert.Equal(t, "ac", applier.decisions[1].Profile)
	assert.Equal(t, "userspace", applier.decisions[1].Governor)
	assert.True(t, applier.decisions[1].Turbo)
	assert.True(t, applier.decisions[2].Turbo)

	require.Len(t, collector.samples, 3)
	assert.Equal(t, uint32(2200000), collector.samples[1].Frequency)
	assert.Equal(t, uint32(0), collector.samples[0].Frequency)
	assert.Equal(t, 85.0, collector.samples[2].CPUPercent)
}

func TestRunStopsOnActuationError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := &fakeSource{cancel: cancel, snaps: []telemetry.Snapshot{{}, {}}}
	applier := &fakeApplier{err: errors.New().New(errors.ErrPermissionDenied)}
	collector := &fakeCollector{}

	d := daemon.New(testConfig(), source, applier, collector, 4, logger.Default())
	err := d.Run(ctx)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrPermissionDenied))
	assert.Equal(t, errors.ErrMainLoop, errors.CodeOf(err))
	assert.Len(t, applier.decisions, 1)
	assert.Empty(t, collector.samples)
}

func TestRunStopsOnTelemetryError(t *testing.T) {
	source := &fakeSource{err: errors.New().New(errors.ErrNoBattery)}
	applier := &fakeApplier{}

	d := daemon.New(testConfig(), source, applier, nil, 4, logger.Default())
	err := d.Run(context.Background())
	assert.True(t, errors.HasCode(err, errors.ErrNoBattery))
	assert.Empty(t, applier.decisions)
}

func TestRunKeepsGoingWhenRecordingFails(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := &fakeSource{cancel: cancel, snaps: []telemetry.Snapshot{{}, {}}}
	applier := &fakeApplier{}
	collector := &fakeCollector{err: errors.New().New(metrics.ErrCollection)}

	d := daemon.New(testConfig(), source, applier, collector, 4, logger.Default())
	require.NoError(t, d.Run(ctx))
	assert.Len(t, applier.decisions, 2)
}

func TestRunCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	source := &fakeSource{cancel: cancel, snaps: []telemetry.Snapshot{{}}}
	applier := &fakeApplier{}

	d := daemon.New(testConfig(), source, applier, nil, 4, logger.Default())
	require.NoError(t, d.Run(ctx))
	assert.Empty(t, source.windows)
}

func TestRunOnce(t *testing.T) {
	source := &fakeSource{snaps: []telemetry.Snapshot{{Charging: true}}}
	applier := &fakeApplier{}

	d := daemon.New(testConfig(), source, applier, nil, 8, logger.Default())
	decision, err := d.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []time.Duration{daemon.FirstSampleWindow}, source.windows)
	assert.Equal(t, "ac", decision.Profile)
	assert.Equal(t, 6.0, decision.Threshold)
	require.Len(t, applier.decisions, 1)
}

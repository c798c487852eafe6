package telemetry

import (
	"context"
	"runtime"
	"strconv"
	"strings"
	"time"

	"codeberg.org/mutker/cpufreqctl/internal/errors"
	"codeberg.org/mutker/cpufreqctl/internal/sysfs"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
)

var cpuSensorKeys = []string{"coretemp", "k10temp", "zenpower", "cpu", "package", "tctl", "tdie"}

type Reader struct {
	store    *sysfs.Store
	loadPath string
	power    PowerSupply
	sample   CPUSampler
	sensors  SensorReader
	now      func() time.Time
}

type Option func(*Reader)

func WithPowerSupply(p PowerSupply) Option {
	return func(r *Reader) { r.power = p }
}

func WithCPUSampler(s CPUSampler) Option {
	return func(r *Reader) { r.sample = s }
}

func WithSensorReader(s SensorReader) Option {
	return func(r *Reader) { r.sensors = s }
}

func WithClock(now func() time.Time) Option {
	return func(r *Reader) { r.now = now }
}

// NewReader returns a Reader over the host by default.
func NewReader(store *sysfs.Store, opts ...Option) *Reader {
	r := &Reader{
		store:    store,
		loadPath: sysfs.LoadAvgPath,
		power:    SystemBattery(),
		sample: func(ctx context.Context, window time.Duration) ([]float64, error) {
			return cpu.PercentWithContext(ctx, window, false)
		},
		sensors: host.SensorsTemperaturesWithContext,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Snapshot samples utilisation over window, then reads charging state,
// load and temperature. The sample blocks for window, so the instant
// readings come after it and are current when the decision is made.
func (r *Reader) Snapshot(ctx context.Context, window time.Duration) (Snapshot, error) {
	percent, err := r.CPUPercent(ctx, window)
	if err != nil {
		return Snapshot{}, err
	}

	charging, err := r.Charging()
	if err != nil {
		return Snapshot{}, err
	}

	load, err := r.LoadAverage()
	if err != nil {
		return Snapshot{}, err
	}

	temp, err := r.Temperature(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{
		Timestamp:   r.now(),
		Charging:    charging,
		CPUPercent:  percent,
		LoadAverage: load,
		Temperature: temp,
	}, nil
}

// LoadAverage returns the 1-minute load average.
func (r *Reader) LoadAverage() (float64, error) {
	errFactory := errors.New()

	fields, err := r.store.Fields(r.loadPath)
	if err != nil {
		return 0, errFactory.Wrap(ErrTelemetryRead, err).WithData(r.loadPath)
	}
	if len(fields) == 0 {
		return 0, errFactory.WithData(ErrTelemetryRead, r.loadPath+": empty")
	}

	load, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, errFactory.Wrap(ErrTelemetryRead, err).WithData(r.loadPath)
	}

	return load, nil
}

// CPUPercent blocks for window and returns total utilisation in [0,100].
func (r *Reader) CPUPercent(ctx context.Context, window time.Duration) (float64, error) {
	errFactory := errors.New()

	percents, err := r.sample(ctx, window)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		return 0, errFactory.Wrap(ErrTelemetryRead, err).WithData("cpu percent")
	}
	if len(percents) == 0 {
		return 0, errFactory.WithData(ErrTelemetryRead, "cpu percent: no sample")
	}

	return min(max(percents[0], 0), 100), nil
}

// Temperature averages CPU sensors in whole degrees Celsius. When no
// sensor is recognisably a CPU one, every sensor with a reading is used.
func (r *Reader) Temperature(ctx context.Context) (int, error) {
	errFactory := errors.New()

	stats, err := r.sensors(ctx)
	if err != nil && len(stats) == 0 {
		return 0, errFactory.Wrap(ErrNoSensor, err)
	}

	var cpuTemps, allTemps []float64
	for _, stat := range stats {
		if stat.Temperature <= 0 {
			continue
		}
		allTemps = append(allTemps, stat.Temperature)
		if isCPUSensor(stat.SensorKey) {
			cpuTemps = append(cpuTemps, stat.Temperature)
		}
	}

	temps := cpuTemps
	if len(temps) == 0 {
		temps = allTemps
	}
	if len(temps) == 0 {
		return 0, errFactory.New(ErrNoSensor)
	}

	var sum float64
	for _, t := range temps {
		sum += t
	}

	return int(sum / float64(len(temps))), nil
}

// Charging reports whether mains power is present.
func (r *Reader) Charging() (bool, error) {
	state, err := r.power.State()
	if err != nil {
		return false, err
	}

	return onMains(state), nil
}

// BatteryState returns a printable battery state for the listing.
func (r *Reader) BatteryState() (Info, error) {
	state, err := r.power.State()
	if err != nil {
		return Info{}, err
	}

	return Info{State: state.String(), Charging: onMains(state)}, nil
}

// CPUCount returns the number of logical CPUs.
func CPUCount() int {
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		return n
	}

	return runtime.NumCPU()
}

func isCPUSensor(key string) bool {
	key = strings.ToLower(key)
	for _, k := range cpuSensorKeys {
		if strings.Contains(key, k) {
			return true
		}
	}

	return false
}

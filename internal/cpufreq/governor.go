package cpufreq

import (
	"strconv"

	"codeberg.org/mutker/cpufreqctl/internal/logger"
	"codeberg.org/mutker/cpufreqctl/internal/sysfs"
)

// Actuator writes policy decisions to every CPU's control surface.
// Writes are sequential and stop at the first failure; CPUs already
// written keep the new value.
type Actuator struct {
	store  *sysfs.Store
	root   string
	cpus   int
	logger logger.Logger
}

// NewActuator returns an Actuator for cpus CPUs under root.
func NewActuator(store *sysfs.Store, root string, cpus int, log logger.Logger) *Actuator {
	return &Actuator{store: store, root: root, cpus: cpus, logger: log}
}

func (a *Actuator) ApplyGovernor(name string) error {
	if err := a.fanOut(scalingGovFile, name); err != nil {
		return err
	}
	a.logger.Debug().Str("governor", name).Int("cpus", a.cpus).Msg("Governor applied")

	return nil
}

func (a *Actuator) ApplyFrequency(khz uint32) error {
	if err := a.fanOut(setSpeedFile, strconv.FormatUint(uint64(khz), 10)); err != nil {
		return err
	}
	a.logger.Debug().Uint32("frequency_khz", khz).Int("cpus", a.cpus).Msg("Frequency applied")

	return nil
}

func (a *Actuator) fanOut(attr, value string) error {
	for i := 0; i < a.cpus; i++ {
		path := sysfs.CPUAttr(a.root, i, attr)
		if err := a.store.Write(path, value); err != nil {
			return newWriteError(err, WriteFailure{CPU: i, Path: path, Value: value})
		}
	}

	return nil
}

package telemetry

import (
	"codeberg.org/mutker/cpufreqctl/internal/errors"
	"github.com/distatus/battery"
)

type systemBattery struct{}

// SystemBattery reads the host's first battery.
func SystemBattery() PowerSupply {
	return systemBattery{}
}

func (systemBattery) State() (battery.AgnosticState, error) {
	errFactory := errors.New()

	bats, err := battery.GetAll()
	if len(bats) == 0 || bats[0] == nil {
		if err != nil {
			return battery.Unknown, errFactory.Wrap(ErrBatteryRead, err)
		}
		return battery.Unknown, errFactory.New(ErrNoBattery)
	}

	if err != nil {
		errs, ok := err.(battery.Errors)
		if !ok {
			return battery.Unknown, errFactory.Wrap(ErrBatteryRead, err)
		}
		if len(errs) > 0 && errs[0] != nil {
			partial, ok := errs[0].(battery.ErrPartial)
			if !ok || partial.State != nil {
				return battery.Unknown, errFactory.Wrap(ErrBatteryRead, errs[0])
			}
		}
	}

	return bats[0].State.Raw, nil
}

// onMains reports whether a battery state implies mains power.
func onMains(state battery.AgnosticState) bool {
	switch state {
	case battery.Charging, battery.Full, battery.Idle:
		return true
	default:
		return false
	}
}

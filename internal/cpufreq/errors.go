package cpufreq

import (
	"codeberg.org/mutker/cpufreqctl/internal/errors"
	"codeberg.org/mutker/cpufreqctl/internal/sysfs"
)

const (
	ErrCapabilityRead   = errors.ErrCapabilityRead
	ErrActuation        = errors.ErrActuation
	ErrPermissionDenied = errors.ErrPermissionDenied
	ErrTurboUnsupported = errors.ErrTurboUnsupported
)

// newWriteError classifies a failed write, keeping the OS error as cause.
func newWriteError(err error, failure WriteFailure) errors.Error {
	code := ErrActuation
	if sysfs.IsPermission(err) {
		code = ErrPermissionDenied
	}

	return errors.New().Wrap(code, err).WithData(failure)
}

func newReadError(err error, path string) errors.Error {
	return errors.New().Wrap(ErrCapabilityRead, err).WithData(ReadFailure{Path: path})
}

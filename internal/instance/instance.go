// Package instance refuses to start a second copy of the daemon.
package instance

import (
	"context"

	"codeberg.org/mutker/cpufreqctl/internal/errors"
	"github.com/shirou/gopsutil/v3/process"
)

// Process is the part of a running process the guard looks at.
type Process interface {
	PID() int32
	Name() (string, error)
}

// Lister returns the processes currently running.
type Lister func(ctx context.Context) ([]Process, error)

// Running is attached to ErrAlreadyRunning.
type Running struct {
	PID  int32
	Name string
}

// SystemProcesses lists processes with gopsutil.
func SystemProcesses(ctx context.Context) ([]Process, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	list := make([]Process, 0, len(procs))
	for _, p := range procs {
		list = append(list, systemProcess{p: p, ctx: ctx})
	}

	return list, nil
}

type systemProcess struct {
	p   *process.Process
	ctx context.Context
}

func (s systemProcess) PID() int32 { return s.p.Pid }

func (s systemProcess) Name() (string, error) { return s.p.NameWithContext(s.ctx) }

// Check returns ErrAlreadyRunning when a process other than self is named
// name. Processes whose name cannot be read, usually because they exited
// during the scan, are skipped.
func Check(ctx context.Context, name string, self int32, list Lister) error {
	errFactory := errors.New()

	if list == nil {
		list = SystemProcesses
	}

	procs, err := list(ctx)
	if err != nil {
		return errFactory.Wrap(errors.ErrProcessList, err)
	}

	for _, p := range procs {
		if p.PID() == self {
			continue
		}

		pname, err := p.Name()
		if err != nil {
			continue
		}

		if pname == name {
			return errFactory.WithData(errors.ErrAlreadyRunning, Running{PID: p.PID(), Name: pname})
		}
	}

	return nil
}

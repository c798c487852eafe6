package cpufreq

import "strconv"

// Capabilities reports what the kernel's cpufreq driver accepts.
type Capabilities interface {
	AvailableGovernors() ([]string, error)
	AvailableFrequencies() ([]uint32, error)
}

// Controller writes governor, frequency and turbo state.
type Controller interface {
	ApplyGovernor(name string) error
	ApplyFrequency(khz uint32) error
	ApplyTurbo(enabled bool) error
}

// TurboState is the observed state of turbo boost.
type TurboState int

const (
	TurboNotSupported TurboState = iota
	TurboOn
	TurboOff
)

func (s TurboState) String() string {
	switch s {
	case TurboOn:
		return "on"
	case TurboOff:
		return "off"
	default:
		return "not supported"
	}
}

// CPUInfo is the per-CPU state shown by the listing.
type CPUInfo struct {
	Index     int
	Governor  string
	Driver    string
	Frequency uint32
}

// WriteFailure locates a failed control-surface write. CPU is -1 for
// global attributes.
type WriteFailure struct {
	CPU   int
	Path  string
	Value string
}

func (w WriteFailure) String() string {
	if w.CPU < 0 {
		return "writing " + w.Value + " to " + w.Path
	}

	return "cpu" + strconv.Itoa(w.CPU) + ": writing " + w.Value + " to " + w.Path
}

// ReadFailure locates a failed attribute read.
type ReadFailure struct {
	Path string
}

func (r ReadFailure) String() string {
	return r.Path
}

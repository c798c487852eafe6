// Package report renders the --list and --history output.
package report

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"codeberg.org/mutker/cpufreqctl/internal/cpufreq"
	"codeberg.org/mutker/cpufreqctl/internal/telemetry"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// listSampleWindow is the CPU utilisation sample taken for the listing.
const listSampleWindow = 100 * time.Millisecond

// Telemetry is what the listing reads about the system.
type Telemetry interface {
	BatteryState() (telemetry.Info, error)
	Temperature(ctx context.Context) (int, error)
	CPUPercent(ctx context.Context, window time.Duration) (float64, error)
}

// Catalog is what the listing reads about cpufreq.
type Catalog interface {
	cpufreq.Capabilities
	CPUs() []cpufreq.CPUInfo
}

// TurboReader reports the turbo state.
type TurboReader interface {
	TurboState() cpufreq.TurboState
}

// Status is everything --list shows.
type Status struct {
	Battery     telemetry.Info
	Turbo       cpufreq.TurboState
	Governors   []string
	Frequencies []uint32
	// Temperature is nil when no sensor could be read.
	Temperature *int
	CPUPercent  float64
	CPUs        []cpufreq.CPUInfo
}

// Gather collects a Status. A missing battery or governor list fails the
// listing. Missing frequencies or temperature are shown as such.
func Gather(ctx context.Context, tel Telemetry, cat Catalog, turbo TurboReader) (Status, error) {
	var (
		st  Status
		err error
	)

	if st.Battery, err = tel.BatteryState(); err != nil {
		return Status{}, err
	}

	st.Turbo = turbo.TurboState()

	if st.Governors, err = cat.AvailableGovernors(); err != nil {
		return Status{}, err
	}

	// Drivers such as intel_pstate expose no frequency table.
	if freqs, err := cat.AvailableFrequencies(); err == nil {
		st.Frequencies = freqs
	}

	if temp, err := tel.Temperature(ctx); err == nil {
		st.Temperature = &temp
	}

	if st.CPUPercent, err = tel.CPUPercent(ctx, listSampleWindow); err != nil {
		return Status{}, err
	}

	st.CPUs = cat.CPUs()

	return st, nil
}

// List writes st to w.
func List(w io.Writer, st Status) error {
	r := lipgloss.NewRenderer(w)

	label := r.NewStyle().Bold(true).Width(22)
	value := r.NewStyle().Foreground(lipgloss.Color("#7EC8E3"))
	dim := r.NewStyle().Foreground(lipgloss.Color("#888888"))

	row := func(name, v string) string {
		return lipgloss.JoinHorizontal(lipgloss.Top, label.Render(name), value.Render(v))
	}

	battery := st.Battery.State
	if st.Battery.Charging {
		battery += " (on mains)"
	}

	temperature := dim.Render("n/a")
	if st.Temperature != nil {
		temperature = value.Render(strconv.Itoa(*st.Temperature) + " °C")
	}

	freqs := make([]string, 0, len(st.Frequencies))
	for _, f := range st.Frequencies {
		freqs = append(freqs, strconv.FormatUint(uint64(f), 10))
	}
	frequencies := dim.Render("none")
	if len(freqs) > 0 {
		frequencies = value.Render(strings.Join(freqs, " "))
	}

	rows := make([][]string, 0, len(st.CPUs))
	for _, c := range st.CPUs {
		rows = append(rows, []string{
			strconv.Itoa(c.Index),
			c.Governor,
			c.Driver,
			strconv.FormatUint(uint64(c.Frequency), 10),
		})
	}

	cores := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dim).
		Headers("Core", "Governor", "Driver", "Frequency (kHz)").
		Rows(rows...)

	out := lipgloss.JoinVertical(lipgloss.Left,
		row("Battery", battery),
		row("Turbo boost", st.Turbo.String()),
		row("Governors", strings.Join(st.Governors, " ")),
		lipgloss.JoinHorizontal(lipgloss.Top, label.Render("Frequencies (kHz)"), frequencies),
		lipgloss.JoinHorizontal(lipgloss.Top, label.Render("Temperature"), temperature),
		row("CPU usage", fmt.Sprintf("%.1f%%", st.CPUPercent)),
		"",
		cores.String(),
	)

	_, err := fmt.Fprintln(w, out)
	return err
}

package report

import (
	"fmt"
	"io"

	"codeberg.org/mutker/cpufreqctl/internal/metrics"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

const (
	graphHeight = 10
	graphWidth  = 60
)

// History plots CPU usage and temperature for samples, oldest first.
func History(w io.Writer, samples []metrics.Sample) error {
	r := lipgloss.NewRenderer(w)

	title := r.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFD700"))
	dim := r.NewStyle().Foreground(lipgloss.Color("#888888")).Italic(true)

	if len(samples) < 2 {
		_, err := fmt.Fprintln(w, dim.Render("Not enough samples recorded"))
		return err
	}

	cpu := make([]float64, len(samples))
	temp := make([]float64, len(samples))
	turbo, ac := 0, 0
	for i, s := range samples {
		cpu[i] = s.CPUPercent
		temp[i] = float64(s.Temperature)
		if s.Turbo {
			turbo++
		}
		if s.Profile == "ac" {
			ac++
		}
	}

	first, last := samples[0].Timestamp, samples[len(samples)-1].Timestamp

	out := lipgloss.JoinVertical(lipgloss.Left,
		title.Render("CPU usage (%)"),
		asciigraph.Plot(cpu,
			asciigraph.Height(graphHeight),
			asciigraph.Width(graphWidth),
			asciigraph.LowerBound(0),
			asciigraph.UpperBound(100)),
		"",
		title.Render("Temperature (°C)"),
		asciigraph.Plot(temp,
			asciigraph.Height(graphHeight),
			asciigraph.Width(graphWidth),
			asciigraph.LowerBound(0)),
		"",
		fmt.Sprintf("%d samples from %s to %s", len(samples),
			first.Format("2006-01-02 15:04:05"), last.Format("2006-01-02 15:04:05")),
		fmt.Sprintf("Turbo on in %d of %d cycles, %d on ac", turbo, len(samples), ac),
	)

	_, err := fmt.Fprintln(w, out)
	return err
}

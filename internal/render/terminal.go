package render

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorIncrease = lipgloss.Color("#E74C3C")
	colorDecrease = lipgloss.Color("#1E88E5")
	colorMuted    = lipgloss.Color("#2C4A54")
	colorTitle    = lipgloss.Color("#20B9B4")
)

var termStyles = struct {
	Title    lipgloss.Style
	Muted    lipgloss.Style
	Increase lipgloss.Style
	Decrease lipgloss.Style
	Label    lipgloss.Style
	Box      lipgloss.Style
}{
	Title:    lipgloss.NewStyle().Bold(true).Foreground(colorTitle),
	Muted:    lipgloss.NewStyle().Foreground(colorMuted),
	Increase: lipgloss.NewStyle().Foreground(colorIncrease),
	Decrease: lipgloss.NewStyle().Foreground(colorDecrease),
	Label:    lipgloss.NewStyle().Width(labelWidth).Align(lipgloss.Right),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorMuted).
		Padding(0, 1),
}

var ErrPlotTooNarrow = errors.New("plot width too small")

const (
	minPlotWidth = 10
	labelWidth   = 24
)

// TerminalPlotter draws force and waterfall charts as styled terminal text.
// It implements every plotter interface; Variants restricts which waterfall
// entry points it answers to, nil meaning all.
type TerminalPlotter struct {
	Width      int
	MaxDisplay int
	Variants   []WaterfallVariant
}

// NewTerminalPlotter returns a plotter with a 40 cell bar area showing the
// ten largest contributions.
func NewTerminalPlotter() *TerminalPlotter {
	return &TerminalPlotter{Width: 40, MaxDisplay: 10}
}

func (p *TerminalPlotter) PlotForce(e Explanation) (string, error) {
	if err := p.check(); err != nil {
		return "", err
	}
	title := fmt.Sprintf("base value %.4f  →  f(x) %.4f", e.Baseline, e.Output())
	return p.draw(title, e, byAbsDesc(e.Values), false), nil
}

func (p *TerminalPlotter) PlotForceArrays(baseline float64, values, data []float64, features []string) (string, error) {
	if len(values) != len(features) || len(values) != len(data) {
		return "", fmt.Errorf("array lengths differ: %d values, %d data, %d features", len(values), len(data), len(features))
	}
	return p.PlotForce(Explanation{Features: features, Values: values, Data: data, Baseline: baseline})
}

func (p *TerminalPlotter) PlotWaterfall(e Explanation, variant WaterfallVariant) (string, error) {
	if err := p.check(); err != nil {
		return "", err
	}
	if p.Variants != nil && !slices.Contains(p.Variants, variant) {
		return "", fmt.Errorf("%w: %s", ErrUnavailable, variant)
	}
	title := fmt.Sprintf("E[f(X)] = %.4f", e.Baseline)
	return p.draw(title, e, byAbsDesc(e.Values), true), nil
}

func (p *TerminalPlotter) check() error {
	if p.Width < minPlotWidth {
		return fmt.Errorf("%w: %d < %d", ErrPlotTooNarrow, p.Width, minPlotWidth)
	}
	return nil
}

func (p *TerminalPlotter) draw(title string, e Explanation, order []int, cumulative bool) string {
	shown, rest := order, []int(nil)
	if p.MaxDisplay > 0 && len(order) > p.MaxDisplay {
		shown, rest = order[:p.MaxDisplay-1], order[p.MaxDisplay-1:]
	}

	scale := 0.0
	for _, i := range order {
		if finite(e.Values[i]) {
			scale = math.Max(scale, math.Abs(e.Values[i]))
		}
	}

	var b strings.Builder
	b.WriteString(termStyles.Title.Render(title))
	b.WriteString("\n")

	cum := e.Baseline
	line := func(label string, v, data float64, hasData bool) {
		cum += v
		name := label
		if hasData {
			name = fmt.Sprintf("%g = %s", data, label)
		}
		b.WriteString(termStyles.Label.Render(truncate(name, labelWidth)))
		b.WriteString(" ")
		b.WriteString(p.bar(v, scale))
		b.WriteString(fmt.Sprintf(" %+.4f", v))
		if cumulative {
			b.WriteString(termStyles.Muted.Render(fmt.Sprintf("  → %.4f", cum)))
		}
		b.WriteString("\n")
	}

	for _, i := range shown {
		line(e.Features[i], e.Values[i], e.Data[i], true)
	}
	if len(rest) > 0 {
		sum := 0.0
		for _, i := range rest {
			sum += e.Values[i]
		}
		line(fmt.Sprintf("%d other features", len(rest)), sum, 0, false)
	}

	b.WriteString(termStyles.Muted.Render(fmt.Sprintf("f(x) = %.4f", cum)))
	return termStyles.Box.Render(b.String())
}

// bar draws |v| relative to scale. Non-finite values get an empty bar.
func (p *TerminalPlotter) bar(v, scale float64) string {
	n := 0
	if finite(v) {
		if scale > 0 {
			n = int(math.Round(math.Abs(v) / scale * float64(p.Width)))
		}
		if n == 0 && v != 0 {
			n = 1
		}
	}
	n = max(0, min(n, p.Width))
	cells := strings.Repeat("█", n) + strings.Repeat(" ", p.Width-n)
	if v < 0 {
		return termStyles.Decrease.Render(cells)
	}
	return termStyles.Increase.Render(cells)
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

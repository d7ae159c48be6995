package components

import (
	"fmt"
	"math"
	"strings"

	"github.com/theirongolddev/exptrack/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline renders a one-line unicode sparkline scaled to the largest value.
func Sparkline(values []float64, color lipgloss.Color) string {
	if len(values) == 0 {
		return ""
	}

	peak := peakOf(values)
	var buf strings.Builder
	for _, v := range values {
		idx := int(v / peak * float64(len(sparkBlocks)-1))
		idx = min(max(idx, 0), len(sparkBlocks)-1)
		buf.WriteRune(sparkBlocks[idx])
	}

	return lipgloss.NewStyle().Foreground(color).Background(theme.Active.Surface).Render(buf.String())
}

// ChartPoint is one labelled column of a TrendChart.
type ChartPoint struct {
	Label string
	Value float64
}

// TrendChart renders a column chart with a y-axis. Narrow areas fall back to
// a sparkline. When there are more points than fit, the latest ones are kept.
func TrendChart(points []ChartPoint, color lipgloss.Color, width, height int) string {
	if len(points) == 0 {
		return ""
	}
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	if width < 16 || height < 3 {
		return Sparkline(values, color)
	}

	t := theme.Active
	surface := lipgloss.NewStyle().Background(t.Surface)
	axisStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	barStyle := lipgloss.NewStyle().Foreground(color).Background(t.Surface)
	peakStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface)

	step := chartTickStep(peakOf(values))
	ceiling := math.Ceil(peakOf(values)/step) * step

	axisW := max(len(formatChartLabel(ceiling)), 3) + 1
	plotW := width - axisW - 1

	colW := 3
	maxCols := max((plotW+1)/(colW+1), 1)
	if len(points) > maxCols {
		points = points[len(points)-maxCols:]
		values = values[len(values)-maxCols:]
	}
	if n := len(points); n > 0 {
		colW = min(max((plotW-(n-1))/n, 1), 7)
	}

	peakIdx := 0
	for i, v := range values {
		if v > values[peakIdx] {
			peakIdx = i
		}
	}

	var b strings.Builder
	for row := height; row >= 1; row-- {
		top := ceiling * float64(row) / float64(height)
		bottom := ceiling * float64(row-1) / float64(height)

		label := ""
		if row == height || row == (height+1)/2 {
			label = formatChartLabel(top)
		}
		b.WriteString(axisStyle.Render(fmt.Sprintf("%*s│", axisW, label)))

		for i, v := range values {
			if i > 0 {
				b.WriteString(surface.Render(" "))
			}
			style := barStyle
			if i == peakIdx {
				style = peakStyle
			}
			switch {
			case v >= top:
				b.WriteString(style.Render(strings.Repeat("█", colW)))
			case v > bottom:
				frac := (v - bottom) / (top - bottom)
				idx := min(max(int(frac*float64(len(sparkBlocks))), 0), len(sparkBlocks)-1)
				b.WriteString(style.Render(strings.Repeat(string(sparkBlocks[idx]), colW)))
			default:
				b.WriteString(surface.Render(strings.Repeat(" ", colW)))
			}
		}
		b.WriteString("\n")
	}

	axisLen := len(points)*colW + len(points) - 1
	b.WriteString(axisStyle.Render(fmt.Sprintf("%*s└%s", axisW, "0", strings.Repeat("─", axisLen))))

	labels := make([]byte, axisLen)
	for i := range labels {
		labels[i] = ' '
	}
	next := 0
	for i, p := range points {
		pos := i * (colW + 1)
		lbl := p.Label
		if pos < next || pos+len(lbl) > axisLen {
			continue
		}
		copy(labels[pos:], lbl)
		next = pos + len(lbl) + 1
	}
	b.WriteString("\n")
	b.WriteString(surface.Render(strings.Repeat(" ", axisW+1)))
	b.WriteString(axisStyle.Render(strings.TrimRight(string(labels), " ")))

	return b.String()
}

func peakOf(values []float64) float64 {
	peak := 0.0
	for _, v := range values {
		peak = max(peak, v)
	}
	if peak <= 0 {
		return 1
	}
	return peak
}

// chartTickStep picks a 1/2/5 interval that splits maxVal into about four ticks.
func chartTickStep(maxVal float64) float64 {
	if maxVal <= 0 {
		return 1
	}
	rough := maxVal / 4
	base := math.Pow(10, math.Floor(math.Log10(rough)))
	switch frac := rough / base; {
	case frac < 1.5:
		return base
	case frac < 3.5:
		return 2 * base
	default:
		return 5 * base
	}
}

// formatChartLabel abbreviates amounts with Indian units (k, L, Cr).
func formatChartLabel(v float64) string {
	unit := func(div float64, suffix string) string {
		if v == math.Trunc(v/div)*div {
			return fmt.Sprintf("%.0f%s", v/div, suffix)
		}
		return fmt.Sprintf("%.1f%s", v/div, suffix)
	}
	switch {
	case v >= 1e7:
		return unit(1e7, "Cr")
	case v >= 1e5:
		return unit(1e5, "L")
	case v >= 1e3:
		return unit(1e3, "k")
	case v >= 1:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}

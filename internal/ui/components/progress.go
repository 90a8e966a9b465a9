package components

import (
	"fmt"
	"image/color"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/quizcraft/internal/ui/theme"
)

// ProgressBar displays a horizontal progress bar.
type ProgressBar struct {
	Label       string
	Percent     float64
	ShowPercent bool
	Width       int
	Fill        color.Color // defaults to theme.Secondary
}

// NewProgressBar creates a new progress bar.
func NewProgressBar(label string, percent float64, showPercent bool, width int) ProgressBar {
	return ProgressBar{
		Label:       label,
		Percent:     percent,
		ShowPercent: showPercent,
		Width:       width,
	}
}

// Fraction builds a bar for done out of total, with a "done/total" label.
func Fraction(done, total, width int) ProgressBar {
	var pct float64
	if total > 0 {
		pct = float64(done) / float64(total)
	}
	return NewProgressBar(fmt.Sprintf("%d/%d", done, total), pct, false, width)
}

// View renders the progress bar.
func (p ProgressBar) View() string {
	var result string

	if p.Label != "" {
		result += lipgloss.NewStyle().Foreground(theme.Text).Render(p.Label) + "  "
	}

	labelWidth := lipgloss.Width(result)
	percentWidth := 0
	if p.ShowPercent {
		percentWidth = 6 // "  100%"
	}

	barWidth := max(p.Width-labelWidth-percentWidth, 4)
	filled := min(max(int(float64(barWidth)*p.Percent), 0), barWidth)

	fill := p.Fill
	if fill == nil {
		fill = theme.Secondary
	}

	result += lipgloss.NewStyle().Background(fill).Render(strings.Repeat(" ", filled)) +
		lipgloss.NewStyle().Background(theme.Border).Render(strings.Repeat(" ", barWidth-filled))

	if p.ShowPercent {
		result += lipgloss.NewStyle().
			Foreground(theme.TextDim).
			Render(fmt.Sprintf("  %d%%", int(p.Percent*100)))
	}

	return result
}

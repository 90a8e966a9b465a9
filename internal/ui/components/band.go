package components

import (
	"fmt"
	"image/color"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/quizcraft/internal/scoring"
	"github.com/abhisek/quizcraft/internal/ui/theme"
)

// BandColor maps a score band to its display color.
func BandColor(b scoring.Band) color.Color {
	switch b {
	case scoring.BandHigh:
		return theme.Success
	case scoring.BandMid:
		return theme.Warning
	default:
		return theme.Error
	}
}

// ScoreBadge renders "NN% · Label" in the band's color. Results without
// questions render as a dash.
func ScoreBadge(score, total int) string {
	pct, err := scoring.Percentage(score, total)
	if err != nil {
		return lipgloss.NewStyle().Foreground(theme.TextDim).Render("  —")
	}
	band := scoring.BandFor(pct)
	return lipgloss.NewStyle().
		Foreground(BandColor(band)).
		Bold(true).
		Render(fmt.Sprintf("%3d%% · %s", pct, band.Label()))
}

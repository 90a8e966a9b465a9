package components

import (
	"image/color"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/quizcraft/internal/ui/theme"
)

// ContentWidth returns the inner width used for cards on a screen of the
// given width.
func ContentWidth(frameWidth int) int {
	return min(max(frameWidth-6, 20), 72)
}

// Card wraps content in a rounded border at the given content width.
func Card(content string, cw int) string {
	return CardWithBorder(content, cw, theme.Border)
}

// CardWithBorder is Card with a custom border color.
func CardWithBorder(content string, cw int, border color.Color) string {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Width(cw - 2).
		Padding(0, 2).
		Render(content)
}

// Centered places s in the middle of a line of the given width.
func Centered(s string, width int) string {
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, s)
}

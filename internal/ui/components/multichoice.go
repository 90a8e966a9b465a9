package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/quizcraft/internal/ui/theme"
)

// OptionLabel returns the letter shown before option i.
func OptionLabel(i int) string {
	if i < 0 || i >= 26 {
		return "?"
	}
	return string(rune('A' + i))
}

// MultiChoice renders the options of one question. It holds no state of its
// own: the quiz session owns the chosen answer and the screen owns the cursor.
type MultiChoice struct {
	Question string
	Options  []string
	Cursor   int    // highlighted row, -1 for none
	Chosen   string // recorded answer, empty when unanswered

	// Review mode shows the correct answer and marks a wrong choice.
	Review  bool
	Correct string
}

// View renders the question and its options.
func (m MultiChoice) View(width int) string {
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().
		Foreground(theme.Text).
		Bold(true).
		Width(width).
		Render(m.Question))
	b.WriteString("\n\n")

	for i, opt := range m.Options {
		prefix := "  "
		if i == m.Cursor {
			prefix = "▸ "
		}
		mark := " "
		if opt == m.Chosen {
			mark = "●"
		}
		line := fmt.Sprintf("%s%s %s)  %s", prefix, mark, OptionLabel(i), opt)

		style := lipgloss.NewStyle().Foreground(theme.Text)
		switch {
		case m.Review && opt == m.Correct:
			style = theme.Correct
			line += "  ✓"
		case m.Review && opt == m.Chosen:
			style = theme.Incorrect
			line += "  ✗"
		case m.Review:
			style = style.Foreground(theme.TextDim)
		case i == m.Cursor:
			style = theme.Selected
		case opt == m.Chosen:
			style = style.Foreground(theme.Secondary)
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}

	return b.String()
}

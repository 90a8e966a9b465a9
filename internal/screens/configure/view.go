package configure

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/quizcraft/internal/catalog"
	"github.com/abhisek/quizcraft/internal/generate"
	"github.com/abhisek/quizcraft/internal/ui/components"
	"github.com/abhisek/quizcraft/internal/ui/theme"
)

// visibleRows caps how many items a catalog column shows at once.
const visibleRows = 8

func (s *ConfigureScreen) View(width, height int) string {
	cw := components.ContentWidth(width)

	var sections []string
	sections = append(sections, s.renderModeTabs())

	if s.mode == ModeCatalog {
		sections = append(sections, s.renderColumns(cw))
		if msg := s.fieldErrs["chapter"]; msg != "" {
			sections = append(sections, theme.ErrorText.Render(msg))
		}
	} else {
		sections = append(sections, s.renderUpload(cw))
	}

	sections = append(sections, components.Card(s.renderOptions(), cw))

	switch {
	case s.busy:
		sections = append(sections, theme.Hint.Render("Generating your quiz. This can take a minute..."))
	case s.errMsg != "":
		sections = append(sections, theme.ErrorText.Width(cw).Render(s.errMsg))
	}

	content := strings.Join(sections, "\n\n")
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Top, "\n"+content)
}

func (s *ConfigureScreen) renderModeTabs() string {
	tab := func(m Mode) string {
		if m == s.mode {
			return theme.ButtonActive.Render(m.String())
		}
		return lipgloss.NewStyle().Foreground(theme.TextDim).Padding(0, 2).Render(m.String())
	}
	return tab(ModeCatalog) + "  " + tab(ModeUpload)
}

func (s *ConfigureScreen) renderColumns(cw int) string {
	colWidth := (cw - 4) / catalog.Depth
	cols := make([]string, 0, catalog.Depth)
	for i, f := range catalogFields[:catalog.Depth] {
		level := catalog.Level(i)
		cols = append(cols, s.renderColumn(level, f == s.focus, colWidth))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

func (s *ConfigureScreen) renderColumn(level catalog.Level, focused bool, w int) string {
	cache := s.resolver.Cache(level)
	slot := s.resolver.Slot(level)

	heading := lipgloss.NewStyle().Bold(true).Foreground(theme.TextDim)
	border := theme.Border
	if focused {
		heading = heading.Foreground(theme.Primary)
		border = theme.Primary
	}

	var b strings.Builder
	b.WriteString(heading.Render(strings.ToUpper(level.String())))
	b.WriteString("\n")

	inner := w - 4
	switch cache.Status {
	case catalog.StatusIdle:
		if level == catalog.LevelClass {
			b.WriteString(theme.Hint.Render("waiting..."))
		} else {
			b.WriteString(theme.Hint.Render(fmt.Sprintf("choose a %s first", level-1)))
		}
	case catalog.StatusLoading:
		b.WriteString(theme.Hint.Render("loading..."))
	case catalog.StatusError:
		b.WriteString(theme.ErrorText.Width(inner).Render("could not load"))
		b.WriteString("\n")
		b.WriteString(theme.Hint.Render("press r to retry"))
	case catalog.StatusReady:
		if len(cache.Items) == 0 {
			b.WriteString(theme.Hint.Render("nothing here"))
			break
		}
		cursor := min(s.cursors[level], len(cache.Items)-1)
		start := max(0, cursor-visibleRows+1)
		end := min(start+visibleRows, len(cache.Items))
		for i := start; i < end; i++ {
			n := cache.Items[i]
			label := clip(displayName(n), inner-2)
			style := lipgloss.NewStyle().Foreground(theme.Text)
			prefix := "  "
			if slot.Selected && slot.Node.ID == n.ID {
				style = style.Foreground(theme.Secondary).Bold(true)
				prefix = "● "
			}
			if focused && i == cursor {
				style = theme.Selected
				prefix = "▸ "
			}
			b.WriteString(style.Render(prefix + label))
			if i < end-1 {
				b.WriteString("\n")
			}
		}
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Width(w).
		Height(visibleRows + 3).
		Padding(0, 1).
		Render(b.String())
}

func displayName(n catalog.Node) string {
	if n.Kind() == catalog.KindDocument {
		return strings.TrimSuffix(n.Name, ".pdf")
	}
	return n.Name
}

func (s *ConfigureScreen) renderUpload(cw int) string {
	var b strings.Builder
	s.path.SetError(s.fieldErrs["pdf"])
	s.subject.SetError(s.fieldErrs["subject"])
	b.WriteString(s.path.View())
	b.WriteString("\n\n")
	b.WriteString(s.subject.View())
	return components.Card(b.String(), cw)
}

func (s *ConfigureScreen) renderOptions() string {
	s.questions.SetError(s.fieldErrs["numQuestions"])

	choice := func(label string, values []string, idx int, f field, errKey string) string {
		labelStyle := lipgloss.NewStyle().Foreground(theme.TextDim)
		if s.focus == f {
			labelStyle = labelStyle.Foreground(theme.Primary).Bold(true)
		}
		parts := make([]string, len(values))
		for i, v := range values {
			if i == idx {
				parts[i] = theme.Selected.Render("[" + v + "]")
			} else {
				parts[i] = lipgloss.NewStyle().Foreground(theme.TextDim).Render(" " + v + " ")
			}
		}
		out := labelStyle.Render(label) + "\n" + strings.Join(parts, " ")
		if msg := s.fieldErrs[errKey]; msg != "" {
			out += "\n" + theme.ErrorText.Render("  "+msg)
		}
		return out
	}

	return strings.Join([]string{
		s.questions.View(),
		choice("Difficulty", generate.Difficulties, s.difficulty, fieldDifficulty, "difficulty"),
		choice("Pace", generate.Paces, s.pace, fieldPace, "pace"),
	}, "\n\n")
}

func clip(s string, n int) string {
	runes := []rune(s)
	if n < 2 || len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}

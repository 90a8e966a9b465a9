package attempt

import (
	"errors"
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/quizcraft/internal/quiz"
	"github.com/abhisek/quizcraft/internal/ui/components"
	"github.com/abhisek/quizcraft/internal/ui/theme"
)

func (s *AttemptScreen) View(width, height int) string {
	switch s.session.Status() {
	case quiz.StatusNew, quiz.StatusLoading:
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).
			Render("\n\n  Loading quiz...")
	case quiz.StatusFailed:
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.Error).
			Render(fmt.Sprintf("\n\nThe quiz could not be loaded: %s\n\nPress Enter to go back.", loadMessage(s.session.LoadErr())))
	}

	if s.confirmQuit {
		return s.renderQuitConfirm(width, height)
	}

	cw := components.ContentWidth(width)
	snap := s.session.Snapshot()
	q, _ := s.session.Current()

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(components.Centered(s.renderStatus(snap, cw), width))
	b.WriteString("\n\n")

	chosen, _ := s.session.Answer(q.ID)
	mc := components.MultiChoice{
		Question: q.Text,
		Options:  q.Options,
		Cursor:   s.cursor,
		Chosen:   chosen,
	}
	if snap.Status == quiz.StatusSubmitting || s.locked() {
		mc.Cursor = -1
	}
	b.WriteString(components.Centered(components.Card(mc.View(cw-6), cw), width))
	b.WriteString("\n\n")
	b.WriteString(components.Centered(s.renderNavStrip(snap), width))
	b.WriteString("\n\n")

	switch {
	case snap.Status == quiz.StatusSubmitting && s.recordedID != "":
		b.WriteString(components.Centered(theme.Hint.Render("Loading your result..."), width))
	case snap.Status == quiz.StatusSubmitting:
		b.WriteString(components.Centered(theme.Hint.Render("Submitting your answers..."), width))
	case s.submitErr != "":
		b.WriteString(components.Centered(theme.ErrorText.Width(cw).Render(s.submitErr), width))
	case s.notice != "":
		b.WriteString(components.Centered(lipgloss.NewStyle().Foreground(theme.Warning).Render(s.notice), width))
	}

	return b.String()
}

// renderStatus shows the question position, answered progress and timer.
func (s *AttemptScreen) renderStatus(snap quiz.Snapshot, cw int) string {
	left := lipgloss.NewStyle().Foreground(theme.Text).Bold(true).
		Render(fmt.Sprintf("Question %d of %d", snap.Current+1, snap.Total))
	timer := lipgloss.NewStyle().Foreground(theme.Accent).
		Render(formatElapsed(snap.Elapsed))

	barWidth := max(cw-lipgloss.Width(left)-lipgloss.Width(timer)-4, 10)
	bar := components.Fraction(snap.Answered, snap.Total, barWidth).View()

	return left + "  " + bar + "  " + timer
}

// renderNavStrip shows every question number, marking answered ones and
// the current position.
func (s *AttemptScreen) renderNavStrip(snap quiz.Snapshot) string {
	questions := s.session.Quiz().Questions
	parts := make([]string, 0, len(questions))
	for i, q := range questions {
		label := fmt.Sprintf(" %d ", i+1)
		style := lipgloss.NewStyle().Foreground(theme.TextDim)
		if _, ok := snap.Answers[q.ID]; ok {
			style = style.Foreground(theme.Secondary)
			label = fmt.Sprintf(" %d✓", i+1)
		}
		if i == snap.Current {
			style = style.Bold(true).Foreground(theme.BgDark).Background(theme.Primary)
		}
		parts = append(parts, style.Render(label))
	}
	return strings.Join(parts, " ")
}

func (s *AttemptScreen) renderQuitConfirm(width, height int) string {
	answered, total := s.session.Progress()
	detail := fmt.Sprintf("%d of %d answered. Your answers will not be saved.", answered, total)
	if s.recordedID != "" {
		detail = "Your attempt is recorded. Its result will appear in Past results."
	}
	body := lipgloss.NewStyle().Foreground(theme.Text).Bold(true).Render("Leave this quiz?") +
		"\n\n" +
		theme.Hint.Render(detail) +
		"\n\n" +
		lipgloss.NewStyle().Foreground(theme.Text).Render("y  leave    n  keep going")
	card := components.CardWithBorder(body, 54, theme.Accent)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, card)
}

func loadMessage(err error) string {
	var um interface{ UserMessage() string }
	if errors.As(err, &um) {
		return um.UserMessage()
	}
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

func formatElapsed(secs int) string {
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

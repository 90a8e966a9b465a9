package components

import (
	"strconv"
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/quizcraft/internal/ui/theme"
)

// TextInput wraps bubbles/textinput with a label and an inline error.
type TextInput struct {
	Model       textinput.Model
	Label       string
	NumericOnly bool
	err         string
}

// NewTextInput creates a blurred, labelled input.
func NewTextInput(label, placeholder string, charLimit int) TextInput {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = "› "
	if charLimit > 0 {
		ti.CharLimit = charLimit
	}
	return TextInput{Model: ti, Label: label}
}

// NewPasswordInput creates an input that masks what is typed.
func NewPasswordInput(label string) TextInput {
	t := NewTextInput(label, "", 128)
	t.Model.EchoMode = textinput.EchoPassword
	t.Model.EchoCharacter = '•'
	return t
}

// Focus gives the input the cursor.
func (t *TextInput) Focus() tea.Cmd {
	return t.Model.Focus()
}

// Blur removes the cursor.
func (t *TextInput) Blur() {
	t.Model.Blur()
}

// Focused reports whether the input has the cursor.
func (t TextInput) Focused() bool {
	return t.Model.Focused()
}

// Update handles messages. Non-digit runes are dropped when NumericOnly.
func (t TextInput) Update(msg tea.Msg) (TextInput, tea.Cmd) {
	if t.NumericOnly {
		if kmsg, ok := msg.(tea.KeyMsg); ok {
			key := kmsg.String()
			if len(key) == 1 && (key[0] < '0' || key[0] > '9') {
				return t, nil
			}
		}
	}

	var cmd tea.Cmd
	t.Model, cmd = t.Model.Update(msg)
	return t, cmd
}

// View renders the label, the input and any error below it.
func (t TextInput) View() string {
	labelStyle := lipgloss.NewStyle().Foreground(theme.TextDim)
	if t.Focused() {
		labelStyle = labelStyle.Foreground(theme.Primary).Bold(true)
	}

	var b strings.Builder
	b.WriteString(labelStyle.Render(t.Label))
	b.WriteString("\n")
	b.WriteString(t.Model.View())
	if t.err != "" {
		b.WriteString("\n")
		b.WriteString(theme.ErrorText.Render("  " + t.err))
	}
	return b.String()
}

// Value returns the trimmed input value.
func (t TextInput) Value() string {
	return strings.TrimSpace(t.Model.Value())
}

// SetValue replaces the input value.
func (t *TextInput) SetValue(v string) {
	t.Model.SetValue(v)
}

// NumericValue returns the input value as an integer.
func (t TextInput) NumericValue() (int, error) {
	return strconv.Atoi(t.Value())
}

// SetError shows msg under the input. An empty msg clears it.
func (t *TextInput) SetError(msg string) {
	t.err = msg
}

// Error returns the message set by SetError.
func (t TextInput) Error() string {
	return t.err
}

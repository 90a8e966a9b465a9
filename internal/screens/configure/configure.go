// Package configure is where a learner sets up a quiz: either by picking a
// class, subject and chapter from the catalog, or by pointing at a local
// PDF. Generation options are shared by both modes.
package configure

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	tea "charm.land/bubbletea/v2"
	"go.uber.org/zap"

	"github.com/abhisek/quizcraft/internal/catalog"
	"github.com/abhisek/quizcraft/internal/generate"
	"github.com/abhisek/quizcraft/internal/router"
	"github.com/abhisek/quizcraft/internal/screen"
	"github.com/abhisek/quizcraft/internal/ui/components"
	"github.com/abhisek/quizcraft/internal/ui/layout"
)

// Generator starts quiz generation and returns the new quiz id.
type Generator interface {
	GeneratePDF(ctx context.Context, req generate.PDFRequest) (string, error)
	GenerateFromCatalog(ctx context.Context, req generate.CatalogRequest) (string, error)
}

// Mode selects where the quiz content comes from.
type Mode int

const (
	ModeCatalog Mode = iota
	ModeUpload
)

func (m Mode) String() string {
	if m == ModeUpload {
		return "Upload PDF"
	}
	return "Catalog"
}

// field is one focusable element of the form.
type field int

const (
	fieldClass field = iota
	fieldSubjectLevel
	fieldChapter
	fieldPath
	fieldSubject
	fieldQuestions
	fieldDifficulty
	fieldPace
)

var (
	catalogFields = []field{fieldClass, fieldSubjectLevel, fieldChapter, fieldQuestions, fieldDifficulty, fieldPace}
	uploadFields  = []field{fieldPath, fieldSubject, fieldQuestions, fieldDifficulty, fieldPace}
)

func (f field) level() (catalog.Level, bool) {
	switch f {
	case fieldClass:
		return catalog.LevelClass, true
	case fieldSubjectLevel:
		return catalog.LevelSubject, true
	case fieldChapter:
		return catalog.LevelChapter, true
	}
	return 0, false
}

type listingMsg struct {
	listing catalog.Listing
}

type generatedMsg struct {
	quizID string
	err    error
}

// Options wires the configure screen.
type Options struct {
	Lister    catalog.Lister
	Generator Generator
	Defaults  generate.Options
	Catalog   []catalog.Option
	Logger    *zap.Logger
	// Next builds the screen that takes the generated quiz.
	Next func(quizID string) screen.Screen
}

// ConfigureScreen collects a generation request.
type ConfigureScreen struct {
	lister    catalog.Lister
	generator Generator
	logger    *zap.Logger
	next      func(quizID string) screen.Screen

	resolver *catalog.Resolver
	cursors  [catalog.Depth]int

	mode  Mode
	focus field

	path       components.TextInput
	subject    components.TextInput
	questions  components.TextInput
	difficulty int
	pace       int
	studentCls string

	fieldErrs map[string]string
	busy      bool
	errMsg    string
}

var _ screen.Screen = (*ConfigureScreen)(nil)
var _ screen.KeyHintProvider = (*ConfigureScreen)(nil)

// New creates a ConfigureScreen in catalog mode.
func New(opts Options) *ConfigureScreen {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	d := opts.Defaults
	s := &ConfigureScreen{
		lister:     opts.Lister,
		generator:  opts.Generator,
		logger:     logger.Named("configure"),
		next:       opts.Next,
		resolver:   catalog.New(opts.Catalog...),
		focus:      fieldClass,
		path:       components.NewTextInput("PDF file", "~/notes/chapter-3.pdf", 1024),
		subject:    components.NewTextInput("Subject", "Physics", 64),
		questions:  components.NewTextInput("Questions", "1-10", 2),
		difficulty: max(slices.Index(generate.Difficulties, d.Difficulty), 0),
		pace:       max(slices.Index(generate.Paces, d.Pace), 0),
		studentCls: d.StudentClass,
		fieldErrs:  map[string]string{},
	}
	s.questions.NumericOnly = true
	if d.NumQuestions > 0 {
		s.questions.SetValue(strconv.Itoa(d.NumQuestions))
	}
	return s
}

func (s *ConfigureScreen) Init() tea.Cmd {
	return s.fetch(s.resolver.RefreshRoot())
}

func (s *ConfigureScreen) fetch(f catalog.Fetch) tea.Cmd {
	lister := s.lister
	return func() tea.Msg {
		return listingMsg{listing: f.Run(context.Background(), lister)}
	}
}

func (s *ConfigureScreen) Title() string {
	return "New Quiz"
}

func (s *ConfigureScreen) KeyHints() []layout.KeyHint {
	hints := []layout.KeyHint{
		{Key: "Tab", Description: "Next field"},
		{Key: "Ctrl+T", Description: "Catalog / PDF"},
	}
	if _, ok := s.focus.level(); ok {
		hints = append(hints,
			layout.KeyHint{Key: "↑↓", Description: "Browse"},
			layout.KeyHint{Key: "Enter", Description: "Select"},
			layout.KeyHint{Key: "r", Description: "Retry"},
		)
	} else {
		hints = append(hints, layout.KeyHint{Key: "Enter", Description: "Generate"})
	}
	return append(hints, layout.KeyHint{Key: "Esc", Description: "Back"})
}

func (s *ConfigureScreen) fields() []field {
	if s.mode == ModeUpload {
		return uploadFields
	}
	return catalogFields
}

func (s *ConfigureScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case listingMsg:
		if !s.resolver.Apply(msg.listing) {
			s.logger.Debug("stale listing dropped",
				zap.Stringer("level", msg.listing.Level), zap.Uint64("seq", msg.listing.Seq))
			return s, nil
		}
		s.cursors[msg.listing.Level] = 0
		if msg.listing.Err != nil {
			s.logger.Warn("list catalog", zap.Stringer("level", msg.listing.Level), zap.Error(msg.listing.Err))
		}
		return s, nil

	case generatedMsg:
		s.busy = false
		if msg.err != nil {
			s.errMsg = userMessage(msg.err)
			s.logger.Warn("generate quiz", zap.Stringer("mode", s.mode), zap.Error(msg.err))
			return s, nil
		}
		next := s.next(msg.quizID)
		return s, func() tea.Msg { return router.ReplaceScreenMsg{Screen: next} }

	case tea.KeyMsg:
		if s.busy {
			return s, nil
		}
		return s.handleKey(msg)
	}
	return s, s.updateInput(msg)
}

func (s *ConfigureScreen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	key := msg.String()
	switch key {
	case "ctrl+t":
		if s.mode == ModeCatalog {
			s.mode = ModeUpload
		} else {
			s.mode = ModeCatalog
		}
		s.errMsg = ""
		s.fieldErrs = map[string]string{}
		return s, s.setFocus(s.fields()[0])
	case "tab":
		return s, s.step(1)
	case "shift+tab":
		return s, s.step(-1)
	}

	if level, ok := s.focus.level(); ok {
		return s, s.handleColumnKey(level, key)
	}

	switch s.focus {
	case fieldDifficulty:
		if delta := cycleDelta(key); delta != 0 {
			s.difficulty = wrap(s.difficulty+delta, len(generate.Difficulties))
			return s, nil
		}
	case fieldPace:
		if delta := cycleDelta(key); delta != 0 {
			s.pace = wrap(s.pace+delta, len(generate.Paces))
			return s, nil
		}
	}

	switch key {
	case "enter":
		return s, s.generate()
	case "down":
		return s, s.step(1)
	case "up":
		return s, s.step(-1)
	}
	return s, s.updateInput(msg)
}

func cycleDelta(key string) int {
	switch key {
	case "right", "l", "space", " ":
		return 1
	case "left", "h":
		return -1
	}
	return 0
}

func wrap(i, n int) int {
	return (i%n + n) % n
}

func (s *ConfigureScreen) handleColumnKey(level catalog.Level, key string) tea.Cmd {
	cache := s.resolver.Cache(level)
	switch key {
	case "up", "k":
		if s.cursors[level] > 0 {
			s.cursors[level]--
		}
	case "down", "j":
		if s.cursors[level] < len(cache.Items)-1 {
			s.cursors[level]++
		}
	case "left", "h":
		if level > catalog.LevelClass {
			return s.setFocus(catalogFields[level-1])
		}
	case "right", "l":
		if level < catalog.LevelChapter && s.resolver.Slot(level).Selected {
			return s.setFocus(catalogFields[level+1])
		}
	case "r":
		if cache.Status != catalog.StatusError {
			return nil
		}
		f, err := s.resolver.Retry(level)
		if err != nil {
			s.logger.Debug("retry rejected", zap.Error(err))
			return nil
		}
		return s.fetch(f)
	case "enter":
		if len(cache.Items) == 0 {
			return nil
		}
		node := cache.Items[min(s.cursors[level], len(cache.Items)-1)]
		f, err := s.resolver.Select(level, node.ID)
		if err != nil {
			s.logger.Debug("select rejected", zap.Error(err))
			return nil
		}
		delete(s.fieldErrs, "chapter")
		if f == nil {
			// Chapter chosen: move on to the options.
			return s.setFocus(fieldQuestions)
		}
		for deeper := level + 1; deeper < catalog.Depth; deeper++ {
			s.cursors[deeper] = 0
		}
		return tea.Batch(s.fetch(*f), s.setFocus(catalogFields[level+1]))
	}
	return nil
}

func (s *ConfigureScreen) step(delta int) tea.Cmd {
	fs := s.fields()
	idx := max(slices.Index(fs, s.focus), 0)
	return s.setFocus(fs[wrap(idx+delta, len(fs))])
}

func (s *ConfigureScreen) setFocus(f field) tea.Cmd {
	s.path.Blur()
	s.subject.Blur()
	s.questions.Blur()
	s.focus = f
	if in := s.input(f); in != nil {
		return in.Focus()
	}
	return nil
}

func (s *ConfigureScreen) input(f field) *components.TextInput {
	switch f {
	case fieldPath:
		return &s.path
	case fieldSubject:
		return &s.subject
	case fieldQuestions:
		return &s.questions
	}
	return nil
}

func (s *ConfigureScreen) updateInput(msg tea.Msg) tea.Cmd {
	in := s.input(s.focus)
	if in == nil {
		return nil
	}
	var cmd tea.Cmd
	*in, cmd = in.Update(msg)
	return cmd
}

func (s *ConfigureScreen) options() generate.Options {
	n, err := s.questions.NumericValue()
	if err != nil {
		n = 0
	}
	return generate.Options{
		NumQuestions: n,
		Pace:         generate.Paces[s.pace],
		Difficulty:   generate.Difficulties[s.difficulty],
		StudentClass: s.studentCls,
	}
}

// generate validates the form and starts the request. Nothing is sent
// while a field is invalid.
func (s *ConfigureScreen) generate() tea.Cmd {
	s.errMsg = ""
	s.fieldErrs = map[string]string{}
	gen := s.generator

	var (
		err error
		run func() (string, error)
	)
	switch s.mode {
	case ModeUpload:
		req := generate.PDFRequest{
			Path:    expandHome(s.path.Value()),
			Subject: s.subject.Value(),
			Options: s.options(),
		}
		err = req.Validate()
		run = func() (string, error) { return gen.GeneratePDF(context.Background(), req) }
	default:
		sel, _ := s.resolver.Selection()
		req := generate.FromSelection(sel, s.options())
		err = req.Validate()
		run = func() (string, error) { return gen.GenerateFromCatalog(context.Background(), req) }
	}

	var ve *generate.ValidationError
	if errors.As(err, &ve) {
		s.fieldErrs[ve.Field] = ve.UserMessage()
		s.logger.Debug("generation request invalid", zap.String("field", ve.Field))
		return nil
	}
	if err != nil {
		s.errMsg = err.Error()
		return nil
	}

	s.busy = true
	return func() tea.Msg {
		id, err := run()
		return generatedMsg{quizID: id, err: err}
	}
}

func userMessage(err error) string {
	var um interface{ UserMessage() string }
	if errors.As(err, &um) {
		return um.UserMessage()
	}
	return "Quiz generation failed. Please try again."
}

// expandHome resolves a leading ~/ against the user's home directory.
func expandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}

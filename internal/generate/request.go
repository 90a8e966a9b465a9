// Package generate builds and validates quiz generation requests before
// they reach the network.
package generate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/abhisek/quizcraft/internal/catalog"
)

const (
	MinQuestions = 1
	MaxQuestions = 10
)

var (
	Paces        = []string{"slow", "average", "fast"}
	Difficulties = []string{"easy", "medium", "hard"}
)

// ValidationError reports a malformed generation request. It never reaches
// the network layer.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// UserMessage is the text shown next to the offending field.
func (e *ValidationError) UserMessage() string { return e.Message }

// Options are the generation knobs shared by both modes.
type Options struct {
	NumQuestions int
	Pace         string
	Difficulty   string
	StudentClass string
}

// DefaultOptions mirrors what the web client sends when the learner does not
// choose.
func DefaultOptions() Options {
	return Options{
		NumQuestions: 5,
		Pace:         "average",
		Difficulty:   "medium",
		StudentClass: "XII",
	}
}

// Validate checks the shared fields.
func (o Options) Validate() error {
	if o.NumQuestions < MinQuestions || o.NumQuestions > MaxQuestions {
		return &ValidationError{
			Field:   "numQuestions",
			Message: fmt.Sprintf("must be between %d and %d", MinQuestions, MaxQuestions),
		}
	}
	if !slices.Contains(Paces, o.Pace) {
		return &ValidationError{Field: "pace", Message: "must be one of " + strings.Join(Paces, ", ")}
	}
	if !slices.Contains(Difficulties, o.Difficulty) {
		return &ValidationError{Field: "difficulty", Message: "must be one of " + strings.Join(Difficulties, ", ")}
	}
	return nil
}

// PDFRequest generates a quiz from an uploaded document.
type PDFRequest struct {
	Path    string
	Subject string
	Options
}

// Validate checks the request and that the file is a readable PDF.
func (r PDFRequest) Validate() error {
	if strings.TrimSpace(r.Path) == "" {
		return &ValidationError{Field: "pdf", Message: "a PDF file is required"}
	}
	if !strings.EqualFold(filepath.Ext(r.Path), ".pdf") {
		return &ValidationError{Field: "pdf", Message: "file must have a .pdf extension"}
	}
	info, err := os.Stat(r.Path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return &ValidationError{Field: "pdf", Message: "file does not exist"}
	case err != nil:
		return &ValidationError{Field: "pdf", Message: "file cannot be read"}
	case info.IsDir():
		return &ValidationError{Field: "pdf", Message: "path is a directory"}
	}
	mt, err := mimetype.DetectFile(r.Path)
	if err != nil {
		return &ValidationError{Field: "pdf", Message: "file cannot be read"}
	}
	if !mt.Is("application/pdf") {
		return &ValidationError{Field: "pdf", Message: fmt.Sprintf("file is %s, not a PDF", mt.String())}
	}
	if strings.TrimSpace(r.Subject) == "" {
		return &ValidationError{Field: "subject", Message: "subject is required"}
	}
	return r.Options.Validate()
}

// CatalogRequest generates a quiz from a chapter picked in the catalog.
type CatalogRequest struct {
	ChapterRef string
	Subject    string
	Chapter    string
	Options
}

// FromSelection builds a request from a completed catalog path.
func FromSelection(sel catalog.Selection, opts Options) CatalogRequest {
	if sel.Class.Name != "" {
		opts.StudentClass = sel.Class.Name
	}
	return CatalogRequest{
		ChapterRef: sel.Chapter.ID,
		Subject:    sel.Subject.Name,
		Chapter:    strings.TrimSuffix(sel.Chapter.Name, filepath.Ext(sel.Chapter.Name)),
		Options:    opts,
	}
}

// Validate checks that a chapter was chosen and the options are in range.
func (r CatalogRequest) Validate() error {
	if r.ChapterRef == "" {
		return &ValidationError{Field: "chapter", Message: "choose a class, subject and chapter"}
	}
	if strings.TrimSpace(r.Subject) == "" {
		return &ValidationError{Field: "subject", Message: "subject is required"}
	}
	return r.Options.Validate()
}

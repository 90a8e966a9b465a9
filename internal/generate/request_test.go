package generate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/quizcraft/internal/catalog"
)

func writePDF(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte("%PDF-1.4\n"), 0o644))
	return p
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name  string
		mod   func(*Options)
		field string
	}{
		{"defaults", func(*Options) {}, ""},
		{"one question", func(o *Options) { o.NumQuestions = 1 }, ""},
		{"ten questions", func(o *Options) { o.NumQuestions = 10 }, ""},
		{"zero questions", func(o *Options) { o.NumQuestions = 0 }, "numQuestions"},
		{"eleven questions", func(o *Options) { o.NumQuestions = 11 }, "numQuestions"},
		{"bad pace", func(o *Options) { o.Pace = "warp" }, "pace"},
		{"bad difficulty", func(o *Options) { o.Difficulty = "insane" }, "difficulty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := DefaultOptions()
			tt.mod(&o)
			err := o.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestPDFRequestValidate(t *testing.T) {
	good := writePDF(t, "notes.pdf")
	notPDF := writePDF(t, "notes.txt")
	fakePDF := filepath.Join(t.TempDir(), "fake.pdf")
	require.NoError(t, os.WriteFile(fakePDF, []byte("just some text"), 0o644))

	tests := []struct {
		name  string
		req   PDFRequest
		field string
	}{
		{"valid", PDFRequest{Path: good, Subject: "Physics", Options: DefaultOptions()}, ""},
		{"missing path", PDFRequest{Subject: "Physics", Options: DefaultOptions()}, "pdf"},
		{"wrong extension", PDFRequest{Path: notPDF, Subject: "Physics", Options: DefaultOptions()}, "pdf"},
		{"missing file", PDFRequest{Path: filepath.Join(t.TempDir(), "gone.pdf"), Subject: "Physics", Options: DefaultOptions()}, "pdf"},
		{"not really a pdf", PDFRequest{Path: fakePDF, Subject: "Physics", Options: DefaultOptions()}, "pdf"},
		{"missing subject", PDFRequest{Path: good, Subject: "  ", Options: DefaultOptions()}, "subject"},
		{"too many questions", PDFRequest{Path: good, Subject: "Physics", Options: Options{NumQuestions: 12, Pace: "average", Difficulty: "medium"}}, "numQuestions"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestFromSelection(t *testing.T) {
	sel := catalog.Selection{
		Class:   catalog.Node{ID: "c10", Name: "Class 10"},
		Subject: catalog.Node{ID: "phy", Name: "Physics"},
		Chapter: catalog.Node{ID: "ch-1", Name: "Light.pdf"},
	}
	req := FromSelection(sel, DefaultOptions())

	assert.Equal(t, "ch-1", req.ChapterRef)
	assert.Equal(t, "Physics", req.Subject)
	assert.Equal(t, "Light", req.Chapter)
	assert.Equal(t, "Class 10", req.StudentClass)
	assert.NoError(t, req.Validate())
}

func TestCatalogRequestValidate_Incomplete(t *testing.T) {
	err := CatalogRequest{Options: DefaultOptions()}.Validate()
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "chapter", ve.Field)
}

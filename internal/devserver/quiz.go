package devserver

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abhisek/quizcraft/internal/api"
	"github.com/abhisek/quizcraft/internal/generate"
	"github.com/abhisek/quizcraft/internal/quiz"
	"github.com/abhisek/quizcraft/internal/store"
)

type drivePage struct {
	Items         any    `json:"items"`
	NextPageToken string `json:"nextPageToken,omitempty"`
}

type idResponse struct {
	ID string `json:"_id"`
}

func (s *Server) handleDriveContents(w http.ResponseWriter, r *http.Request) {
	items, next, err := s.tree.list(r.URL.Query().Get("folderId"), r.URL.Query().Get("pageToken"))
	switch {
	case errors.Is(err, errNotFound):
		s.fail(w, http.StatusNotFound, "Folder not found")
		return
	case err != nil:
		s.fail(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respond(w, http.StatusOK, drivePage{Items: items, NextPageToken: next})
}

func (s *Server) handleGeneratePDF(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		s.fail(w, http.StatusBadRequest, "Upload must be a multipart form with a PDF of at most "+humanBytes(s.maxUpload))
		return
	}
	defer r.MultipartForm.RemoveAll()

	f, hdr, err := r.FormFile("pdf")
	if err != nil {
		s.fail(w, http.StatusBadRequest, "A PDF file is required")
		return
	}
	defer f.Close()

	mt, err := mimetype.DetectReader(f)
	if err != nil || !mt.Is("application/pdf") {
		s.fail(w, http.StatusBadRequest, "Uploaded file is not a PDF")
		return
	}

	n, err := strconv.Atoi(r.FormValue("numQuestions"))
	if err != nil {
		s.fail(w, http.StatusBadRequest, "numQuestions must be a number")
		return
	}
	opts := generate.Options{
		NumQuestions: n,
		Pace:         r.FormValue("pace"),
		Difficulty:   r.FormValue("difficulty"),
		StudentClass: r.FormValue("studentClass"),
	}
	if err := opts.Validate(); err != nil {
		s.fail(w, http.StatusBadRequest, err.Error())
		return
	}
	subject := strings.TrimSpace(r.FormValue("subject"))
	if subject == "" {
		s.fail(w, http.StatusBadRequest, "subject is required")
		return
	}

	s.generateQuiz(w, r, "pdf", Topic{
		Subject:      subject,
		StudentClass: opts.StudentClass,
		Difficulty:   opts.Difficulty,
		Pace:         opts.Pace,
		NumQuestions: opts.NumQuestions,
		Source:       filepath.Base(hdr.Filename),
	})
}

func (s *Server) handleGenerateCatalog(w http.ResponseWriter, r *http.Request) {
	var req api.CatalogBody
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, http.StatusBadRequest, err.Error())
		return
	}
	class, subject, chapter, ok := s.tree.lineage(req.FileID)
	if !ok {
		s.fail(w, http.StatusNotFound, "Chapter not found")
		return
	}
	opts := generate.Options{
		NumQuestions: req.NumQuestions,
		Pace:         req.Pace,
		Difficulty:   req.Difficulty,
		StudentClass: req.StudentClass,
	}
	if err := opts.Validate(); err != nil {
		s.fail(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Subject != "" {
		subject = req.Subject
	}
	if req.Chapter != "" {
		chapter = req.Chapter
	}
	if opts.StudentClass == "" {
		opts.StudentClass = class
	}

	s.generateQuiz(w, r, "catalog", Topic{
		Subject:      subject,
		Chapter:      chapter,
		StudentClass: opts.StudentClass,
		Difficulty:   opts.Difficulty,
		Pace:         opts.Pace,
		NumQuestions: opts.NumQuestions,
	})
}

func (s *Server) generateQuiz(w http.ResponseWriter, r *http.Request, source string, topic Topic) {
	q, err := s.gen.Generate(r.Context(), topic)
	if err != nil {
		s.internalError(w, r, "generate quiz", err)
		return
	}
	q.ID = uuid.NewString()
	if err := s.store.Quizzes().Save(r.Context(), userID(r.Context()), q); err != nil {
		s.internalError(w, r, "save quiz", err)
		return
	}
	s.metrics.quizzes.WithLabelValues(source).Inc()
	s.logger.Info("quiz generated",
		zap.String("quiz_id", q.ID),
		zap.String("source", source),
		zap.Int("questions", len(q.Questions)))
	s.respond(w, http.StatusCreated, idResponse{ID: q.ID})
}

// handleGetQuiz serves a quiz without its answers or explanations.
func (s *Server) handleGetQuiz(w http.ResponseWriter, r *http.Request) {
	q, err := s.store.Quizzes().Get(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.fail(w, http.StatusNotFound, "Quiz not found")
		return
	case err != nil:
		s.internalError(w, r, "get quiz", err)
		return
	}

	out := *q
	out.Questions = make([]quiz.Question, len(q.Questions))
	for i, question := range q.Questions {
		question.CorrectAnswer = ""
		question.Explanation = ""
		out.Questions[i] = question
	}
	s.respond(w, http.StatusOK, out)
}

func humanBytes(n int64) string {
	if n >= 1<<20 {
		return strconv.FormatInt(n>>20, 10) + " MB"
	}
	return strconv.FormatInt(n>>10, 10) + " KB"
}

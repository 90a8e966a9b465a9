package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/quizcraft/internal/api"
	"github.com/abhisek/quizcraft/internal/auth"
	"github.com/abhisek/quizcraft/internal/generate"
	"github.com/abhisek/quizcraft/internal/llm"
	"github.com/abhisek/quizcraft/internal/quiz"
	"github.com/abhisek/quizcraft/internal/store"
)

const testSecret = "devserver-test-secret"

func newTestServer(t *testing.T, gen Generator) *httptest.Server {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	st, err := store.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	srv, err := New(Options{
		Store:     st,
		Issuer:    auth.NewIssuer(testSecret, time.Hour),
		Generator: gen,
	})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

// signedInClient registers a learner, signs in and returns a client
// carrying the session.
func signedInClient(t *testing.T, ts *httptest.Server) (*api.Client, *auth.Session) {
	t.Helper()
	ctx := context.Background()
	sess := auth.NewSession(nil, nil)
	c := api.New(ts.URL+"/api", api.WithTokenSource(sess))

	require.NoError(t, c.Register(ctx, api.Registration{Username: "asha", Email: "asha@example.com", Password: "secret1"}))
	tok, err := c.Login(ctx, api.Credentials{Email: "asha@example.com", Password: "secret1"})
	require.NoError(t, err)
	require.NoError(t, sess.SignIn(ctx, tok))
	return c, sess
}

func TestEndToEndCatalogQuiz(t *testing.T) {
	ts := newTestServer(t, nil)
	c, sess := signedInClient(t, ts)
	ctx := context.Background()

	u, ok := sess.User()
	require.True(t, ok)
	assert.Equal(t, "asha", u.Username)

	classes, err := c.ListDriveContents(ctx, "")
	require.NoError(t, err)
	require.Len(t, classes, 3)
	assert.Equal(t, "Class X", classes[0].Name)

	// Seven entries span two pages.
	chapters, err := c.ListDriveContents(ctx, "class-xii-physics")
	require.NoError(t, err)
	require.Len(t, chapters, 7)
	assert.Equal(t, "Chapter 1 - Electric Charges and Fields.pdf", chapters[0].Name)

	quizID, err := c.GenerateFromCatalog(ctx, generate.CatalogRequest{
		ChapterRef: chapters[2].ID,
		Subject:    "Physics",
		Chapter:    "Ray Optics and Optical Instruments",
		Options:    generate.Options{NumQuestions: 4, Pace: "average", Difficulty: "medium", StudentClass: "XII"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, quizID)

	q, err := c.GetQuiz(ctx, quizID)
	require.NoError(t, err)
	assert.Equal(t, quizID, q.ID)
	assert.Equal(t, "Physics: Ray Optics and Optical Instruments", q.Title)
	require.Len(t, q.Questions, 4)
	for _, question := range q.Questions {
		assert.Empty(t, question.CorrectAnswer, "answers must not leak before submission")
		assert.Empty(t, question.Explanation)
	}

	answers := []quiz.SubmittedAnswer{
		{QuestionID: 1, SelectedAnswer: q.Questions[0].Options[0]},
		{QuestionID: 2, SelectedAnswer: q.Questions[1].Options[1]},
	}
	resultID, err := c.SubmitAnswers(ctx, quizID, answers)
	require.NoError(t, err)

	res, err := c.GetResult(ctx, resultID)
	require.NoError(t, err)
	assert.Equal(t, 4, res.TotalQuestions)
	require.Len(t, res.Answers, 2)
	require.NotNil(t, res.Quiz)

	want := 0
	for _, rec := range res.Answers {
		question, ok := res.Quiz.QuestionByID(rec.QuestionID)
		require.True(t, ok)
		assert.Equal(t, question.CorrectAnswer == rec.SelectedAnswer, rec.IsCorrect)
		if rec.IsCorrect {
			want++
		}
	}
	assert.Equal(t, want, res.Score)
	assert.NotEmpty(t, res.Analysis.Recommendations)
	assert.Contains(t, res.Analysis.Weaknesses, "2 question(s) left unanswered")

	history, err := c.ListResults(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, resultID, history[0].ID)
	assert.Equal(t, q.Title, history[0].Title())
}

func TestGeneratePDF(t *testing.T) {
	ts := newTestServer(t, nil)
	c, _ := signedInClient(t, ts)

	path := filepath.Join(t.TempDir(), "optics.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n"), 0o600))

	id, err := c.GeneratePDF(context.Background(), generate.PDFRequest{
		Path:    path,
		Subject: "Optics",
		Options: generate.Options{NumQuestions: 3, Pace: "fast", Difficulty: "easy", StudentClass: "XI"},
	})
	require.NoError(t, err)

	q, err := c.GetQuiz(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Optics quiz", q.Title)
	assert.Len(t, q.Questions, 3)
}

func TestGeneratePDFRejectsNonPDF(t *testing.T) {
	ts := newTestServer(t, nil)
	_, sess := signedInClient(t, ts)

	body := strings.NewReader("--b\r\nContent-Disposition: form-data; name=\"pdf\"; filename=\"x.pdf\"\r\n\r\nhello\r\n--b--\r\n")
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/quiz/generate-pdf", body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "multipart/form-data; boundary=b")
	req.Header.Set("Authorization", "Bearer "+sess.CurrentToken())

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRoutesRequireAuth(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/api/quiz/drive-contents")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotEmpty(t, body.Message)
}

func TestForeignTokenSignsOut(t *testing.T) {
	ts := newTestServer(t, nil)
	ctx := context.Background()

	tok, err := auth.NewIssuer("some-other-secret", time.Hour).Issue(auth.User{ID: "U9", Username: "mallory"})
	require.NoError(t, err)
	sess := auth.NewSession(nil, nil)
	require.NoError(t, sess.SignIn(ctx, tok))

	c := api.New(ts.URL+"/api", api.WithTokenSource(sess))
	_, err = c.ListResults(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, api.ErrUnauthorized))
	assert.False(t, sess.SignedIn())
}

func TestRegisterAndLoginFailures(t *testing.T) {
	ts := newTestServer(t, nil)
	ctx := context.Background()
	c := api.New(ts.URL + "/api")

	reg := api.Registration{Username: "asha", Email: "asha@example.com", Password: "secret1"}
	require.NoError(t, c.Register(ctx, reg))

	err := c.Register(ctx, reg)
	var fe *api.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusConflict, fe.Status)

	err = c.Register(ctx, api.Registration{Username: "ab", Email: "ab@example.com", Password: "secret1"})
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusBadRequest, fe.Status)
	assert.Contains(t, fe.UserMessage(), "Username")

	_, err = c.Login(ctx, api.Credentials{Email: "asha@example.com", Password: "wrong"})
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusBadRequest, fe.Status)
	assert.Equal(t, "Invalid email or password.", fe.UserMessage())

	_, err = c.Login(ctx, api.Credentials{Email: "nobody@example.com", Password: "secret1"})
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusBadRequest, fe.Status)
}

func TestSubmitRejectsUnknownQuiz(t *testing.T) {
	ts := newTestServer(t, nil)
	c, _ := signedInClient(t, ts)

	_, err := c.SubmitAnswers(context.Background(), "missing", nil)
	var fe *api.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusNotFound, fe.Status)
}

func TestResultsAreScopedToUser(t *testing.T) {
	ts := newTestServer(t, nil)
	ctx := context.Background()
	c, _ := signedInClient(t, ts)

	id, err := c.GenerateFromCatalog(ctx, generate.CatalogRequest{
		ChapterRef: "class-x-chemistry-ch1",
		Subject:    "Chemistry",
		Options:    generate.Options{NumQuestions: 2, Pace: "average", Difficulty: "medium", StudentClass: "X"},
	})
	require.NoError(t, err)
	resultID, err := c.SubmitAnswers(ctx, id, nil)
	require.NoError(t, err)

	other := auth.NewSession(nil, nil)
	oc := api.New(ts.URL+"/api", api.WithTokenSource(other))
	require.NoError(t, oc.Register(ctx, api.Registration{Username: "ravi", Email: "ravi@example.com", Password: "secret2"}))
	tok, err := oc.Login(ctx, api.Credentials{Email: "ravi@example.com", Password: "secret2"})
	require.NoError(t, err)
	require.NoError(t, other.SignIn(ctx, tok))

	_, err = oc.GetResult(ctx, resultID)
	var fe *api.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusNotFound, fe.Status)

	history, err := oc.ListResults(ctx)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `quizcraft_http_requests_total{method="GET",route="/healthz",status="204"} 1`)
}

func TestGrade(t *testing.T) {
	q := &quiz.Quiz{Questions: []quiz.Question{
		{ID: 1, Options: []string{"A", "B"}, CorrectAnswer: "A"},
		{ID: 2, Options: []string{"A", "B"}, CorrectAnswer: "B"},
		{ID: 3, Options: []string{"A", "B"}, CorrectAnswer: "A"},
	}}

	records, score, err := grade(q, []quiz.SubmittedAnswer{
		{QuestionID: 1, SelectedAnswer: "B"},
		{QuestionID: 2, SelectedAnswer: "B"},
		{QuestionID: 1, SelectedAnswer: "A"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, score)
	assert.Equal(t, []quiz.AnswerRecord{
		{QuestionID: 1, SelectedAnswer: "A", IsCorrect: true},
		{QuestionID: 2, SelectedAnswer: "B", IsCorrect: true},
	}, records)

	_, _, err = grade(q, []quiz.SubmittedAnswer{{QuestionID: 9, SelectedAnswer: "A"}})
	assert.Error(t, err)

	records, score, err = grade(q, nil)
	require.NoError(t, err)
	assert.Zero(t, score)
	assert.NotNil(t, records)
}

func TestDriveTreePaging(t *testing.T) {
	tree := newSampleTree(4)

	page, next, err := tree.list("class-xi-mathematics", "")
	require.NoError(t, err)
	assert.Len(t, page, 4)
	assert.Equal(t, "4", next)

	page, next, err = tree.list("class-xi-mathematics", next)
	require.NoError(t, err)
	assert.Len(t, page, 2)
	assert.Empty(t, next)

	_, _, err = tree.list("nope", "")
	assert.ErrorIs(t, err, errNotFound)

	_, _, err = tree.list("class-xi-mathematics-ch1", "")
	assert.Error(t, err, "documents cannot be listed")

	class, subject, chapter, ok := tree.lineage("class-xi-mathematics-ch2")
	require.True(t, ok)
	assert.Equal(t, "XI", class)
	assert.Equal(t, "Mathematics", subject)
	assert.Equal(t, "Chapter 2 - Matrices", chapter)
}

func TestBuiltinGeneratorDeterministic(t *testing.T) {
	topic := Topic{Subject: "Physics", Chapter: "Wave Optics", NumQuestions: 5}
	a, err := builtinGenerator{}.Generate(context.Background(), topic)
	require.NoError(t, err)
	b, err := builtinGenerator{}.Generate(context.Background(), topic)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	for i, question := range a.Questions {
		assert.Equal(t, i+1, question.ID)
		assert.True(t, question.HasOption(question.CorrectAnswer))
		assert.Contains(t, question.Text, "Wave Optics")
	}

	_, err = builtinGenerator{}.Generate(context.Background(), Topic{Subject: "Physics"})
	assert.Error(t, err)
}

func TestLLMGeneratorUsesModelOutput(t *testing.T) {
	mock := llm.NewMock(llm.Reply{JSON: `{
		"title": "Refraction",
		"questions": [
			{"question_text": "What bends light?", "options": ["Lens", "Wire"], "correct_answer": "Lens", "explanation": "Lenses refract."}
		]
	}`})

	g := NewGenerator(mock, nil)
	q, err := g.Generate(context.Background(), Topic{Subject: "Physics", NumQuestions: 1})
	require.NoError(t, err)
	assert.Equal(t, "Refraction", q.Title)
	require.Len(t, q.Questions, 1)
	assert.Equal(t, "Lens", q.Questions[0].CorrectAnswer)

	prompts := mock.Prompts()
	require.Len(t, prompts, 1)
	assert.Equal(t, llm.TaskQuiz, prompts[0].Task)
	assert.Same(t, llm.QuizSchema, prompts[0].Output)
}

func TestLLMGeneratorWithMockFixtures(t *testing.T) {
	g := NewGenerator(llm.NewMock(), nil)
	topic := Topic{Subject: "Chemistry", Chapter: "Acids", NumQuestions: 3}

	q, err := g.Generate(context.Background(), topic)
	require.NoError(t, err)
	require.Len(t, q.Questions, 3)
	for _, question := range q.Questions {
		assert.True(t, question.HasOption(question.CorrectAnswer))
	}

	records, _, err := grade(q, []quiz.SubmittedAnswer{{QuestionID: 1, SelectedAnswer: "Option A"}})
	require.NoError(t, err)
	a, err := g.Analyze(context.Background(), q, records)
	require.NoError(t, err)
	assert.NotEmpty(t, a.Recommendations)
}

func TestLLMGeneratorFallsBack(t *testing.T) {
	mock := llm.NewMock(
		llm.Reply{JSON: `{"title":"Bad","questions":[{"question_text":"?","options":["A","B"],"correct_answer":"C","explanation":""}]}`},
		llm.Reply{Err: errors.New("model offline")},
	)

	g := NewGenerator(mock, nil)
	topic := Topic{Subject: "Physics", Chapter: "Atoms", NumQuestions: 2}
	q, err := g.Generate(context.Background(), topic)
	require.NoError(t, err)
	want, _ := builtinGenerator{}.Generate(context.Background(), topic)
	assert.Equal(t, want, q)

	a, err := g.Analyze(context.Background(), q, []quiz.AnswerRecord{{QuestionID: 1, SelectedAnswer: q.Questions[0].CorrectAnswer, IsCorrect: true}})
	require.NoError(t, err)
	assert.Len(t, a.Strengths, 1)
}

func TestNewRequiresStoreAndIssuer(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
	_, err = New(Options{Store: &store.Store{}})
	assert.Error(t, err)
}

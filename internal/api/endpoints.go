package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/abhisek/quizcraft/internal/catalog"
	"github.com/abhisek/quizcraft/internal/generate"
	"github.com/abhisek/quizcraft/internal/quiz"
)

// ErrTooManyPages is returned when a listing keeps returning page tokens
// past the configured page cap.
var ErrTooManyPages = errors.New("listing exceeded page limit")

type idPayload struct {
	ID string `json:"_id"`
}

// drivePage is the paginated form of a drive listing. Servers may instead
// return a bare array of nodes.
type drivePage struct {
	Items         []catalog.Node `json:"items"`
	NextPageToken string         `json:"nextPageToken"`
}

// ListDriveContents lists the children of folderID, following page tokens.
// An empty folderID lists the catalog root.
func (c *Client) ListDriveContents(ctx context.Context, folderID string) ([]catalog.Node, error) {
	var (
		nodes []catalog.Node
		token string
	)
	for page := 0; ; page++ {
		if page >= c.maxPages {
			return nil, &FetchError{Op: "list drive contents", Err: ErrTooManyPages}
		}

		q := url.Values{}
		if folderID != "" {
			q.Set("folderId", folderID)
		}
		if token != "" {
			q.Set("pageToken", token)
		}

		var raw json.RawMessage
		err := c.do(ctx, call{
			op:     "list drive contents",
			method: http.MethodGet,
			path:   "/quiz/drive-contents",
			query:  q,
			out:    &raw,
		})
		if err != nil {
			return nil, err
		}

		items, next, err := decodeDrivePage(raw)
		if err != nil {
			return nil, &FetchError{Op: "list drive contents", Status: http.StatusOK, Err: err}
		}
		nodes = append(nodes, items...)
		if next == "" {
			return nodes, nil
		}
		token = next
	}
}

func decodeDrivePage(raw json.RawMessage) ([]catalog.Node, string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []catalog.Node
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, "", fmt.Errorf("decode listing: %w", err)
		}
		return items, "", nil
	}
	var p drivePage
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return nil, "", fmt.Errorf("decode listing page: %w", err)
	}
	return p.Items, p.NextPageToken, nil
}

// ListChildren adapts the client to catalog.Lister.
func (c *Client) ListChildren(ctx context.Context, folderID string) ([]catalog.Node, error) {
	return c.ListDriveContents(ctx, folderID)
}

// GeneratePDF uploads a PDF and returns the id of the generated quiz.
// The request is validated before anything is sent.
func (c *Client) GeneratePDF(ctx context.Context, req generate.PDFRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	body, contentType, err := pdfForm(req)
	if err != nil {
		return "", fmt.Errorf("build upload form: %w", err)
	}

	var out idPayload
	err = c.do(ctx, call{
		op:          "generate quiz from pdf",
		method:      http.MethodPost,
		path:        "/quiz/generate-pdf",
		body:        body,
		contentType: contentType,
		out:         &out,
	})
	if err != nil {
		return "", err
	}
	return out.ID, nil
}

func pdfForm(req generate.PDFRequest) ([]byte, string, error) {
	f, err := os.Open(req.Path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("pdf", filepath.Base(req.Path))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", err
	}

	fields := [][2]string{
		{"subject", req.Subject},
		{"numQuestions", strconv.Itoa(req.NumQuestions)},
		{"pace", req.Pace},
		{"difficulty", req.Difficulty},
		{"studentClass", req.StudentClass},
	}
	for _, kv := range fields {
		if err := w.WriteField(kv[0], kv[1]); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// CatalogBody is the JSON body of a catalog generation request.
type CatalogBody struct {
	FileID       string `json:"fileId"`
	NumQuestions int    `json:"numQuestions"`
	Pace         string `json:"pace"`
	Difficulty   string `json:"difficulty"`
	StudentClass string `json:"studentClass"`
	Subject      string `json:"subject"`
	Chapter      string `json:"chapter"`
}

// GenerateFromCatalog generates a quiz from a catalog chapter and returns
// its id.
func (c *Client) GenerateFromCatalog(ctx context.Context, req generate.CatalogRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	cl, err := jsonCall("generate quiz from catalog", http.MethodPost, "/quiz/generate-ncert", CatalogBody{
		FileID:       req.ChapterRef,
		NumQuestions: req.NumQuestions,
		Pace:         req.Pace,
		Difficulty:   req.Difficulty,
		StudentClass: req.StudentClass,
		Subject:      req.Subject,
		Chapter:      req.Chapter,
	})
	if err != nil {
		return "", err
	}

	var out idPayload
	cl.out = &out
	if err := c.do(ctx, cl); err != nil {
		return "", err
	}
	return out.ID, nil
}

// GetQuiz fetches a quiz by id.
func (c *Client) GetQuiz(ctx context.Context, id string) (*quiz.Quiz, error) {
	var q quiz.Quiz
	err := c.do(ctx, call{
		op:     "get quiz",
		method: http.MethodGet,
		path:   "/quiz/" + url.PathEscape(id),
		out:    &q,
		schema: schemaQuiz,
	})
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// SubmitBody is the JSON body of a submission.
type SubmitBody struct {
	QuizID  string                 `json:"quizId"`
	Answers []quiz.SubmittedAnswer `json:"answers"`
}

// SubmitAnswers records an attempt and returns the new result id. It is
// never retried.
func (c *Client) SubmitAnswers(ctx context.Context, quizID string, answers []quiz.SubmittedAnswer) (string, error) {
	if answers == nil {
		answers = []quiz.SubmittedAnswer{}
	}
	cl, err := jsonCall("submit answers", http.MethodPost, "/test/submit", SubmitBody{QuizID: quizID, Answers: answers})
	if err != nil {
		return "", err
	}

	var out idPayload
	cl.out = &out
	if err := c.do(ctx, cl); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", &FetchError{Op: "submit answers", Status: http.StatusOK, Err: errEmptyPayload}
	}
	return out.ID, nil
}

// GetResult fetches a scored result joined with its quiz.
func (c *Client) GetResult(ctx context.Context, id string) (*quiz.Result, error) {
	var r quiz.Result
	err := c.do(ctx, call{
		op:     "get result",
		method: http.MethodGet,
		path:   "/test/results/" + url.PathEscape(id),
		out:    &r,
		schema: schemaResult,
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListResults lists the signed-in learner's past results.
func (c *Client) ListResults(ctx context.Context) ([]quiz.ResultSummary, error) {
	var out []quiz.ResultSummary
	err := c.do(ctx, call{
		op:     "list results",
		method: http.MethodGet,
		path:   "/test/results",
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Credentials are what a learner signs in with.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration creates a new account.
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, creds Credentials) (string, error) {
	cl, err := jsonCall("login", http.MethodPost, "/auth/login", creds)
	if err != nil {
		return "", err
	}

	var out struct {
		AccessToken string `json:"accessToken"`
	}
	cl.out = &out
	if err := c.do(ctx, cl); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", &FetchError{Op: "login", Status: http.StatusOK, Err: errEmptyPayload}
	}
	return out.AccessToken, nil
}

// Register creates an account. The learner signs in separately afterwards.
func (c *Client) Register(ctx context.Context, reg Registration) error {
	cl, err := jsonCall("register", http.MethodPost, "/auth/register", reg)
	if err != nil {
		return err
	}
	return c.do(ctx, cl)
}

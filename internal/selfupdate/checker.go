// Package selfupdate checks GitHub releases for a newer quizcraft build and
// replaces the running binary with it.
package selfupdate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

const (
	defaultOwner = "abhisek"
	defaultRepo  = "quizcraft"

	// DevVersion is what an un-stamped build reports.
	DevVersion = "(devel)"
)

// Checker talks to the release API.
type Checker struct {
	client          *http.Client
	baseURL         string
	downloadBaseURL string
	owner, repo     string
	execPath        func() (string, error)
}

type CheckerOption func(*Checker)

// WithBaseURL points the checker at a different API host.
func WithBaseURL(u string) CheckerOption {
	return func(c *Checker) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithDownloadBaseURL points release asset downloads at a different host.
func WithDownloadBaseURL(u string) CheckerOption {
	return func(c *Checker) { c.downloadBaseURL = strings.TrimRight(u, "/") }
}

func WithTimeout(d time.Duration) CheckerOption {
	return func(c *Checker) { c.client.Timeout = d }
}

func withExecPath(fn func() (string, error)) CheckerOption {
	return func(c *Checker) { c.execPath = fn }
}

func NewChecker(opts ...CheckerOption) *Checker {
	c := &Checker{
		client:          &http.Client{Timeout: 10 * time.Second},
		baseURL:         "https://api.github.com",
		downloadBaseURL: "https://github.com",
		owner:           defaultOwner,
		repo:            defaultRepo,
		execPath:        os.Executable,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type CheckInput struct {
	Version string
}

type CheckResult struct {
	CurrentVersion  string
	LatestVersion   string
	ReleaseURL      string
	UpdateAvailable bool
}

type latestRelease struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

// Check compares input.Version against the latest published release.
func (c *Checker) Check(ctx context.Context, input *CheckInput) (*CheckResult, error) {
	current := canonical(input.Version)
	if current == "" {
		return nil, ErrDevBuild
	}

	url := fmt.Sprintf("%s/repos/%s/%s/releases/latest", c.baseURL, c.owner, c.repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch latest release: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch latest release: HTTP %d", resp.StatusCode)
	}

	var rel latestRelease
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return nil, fmt.Errorf("decode latest release: %w", err)
	}
	latest := canonical(rel.TagName)
	if latest == "" {
		return nil, fmt.Errorf("release tag %q is not a semantic version", rel.TagName)
	}

	return &CheckResult{
		CurrentVersion:  current,
		LatestVersion:   rel.TagName,
		ReleaseURL:      rel.HTMLURL,
		UpdateAvailable: semver.Compare(latest, current) > 0,
	}, nil
}

// canonical returns v as a "vX.Y.Z" semantic version, or "" when v is not
// one (development builds included).
func canonical(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || v == DevVersion {
		return ""
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return semver.Canonical(v)
}

package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "q.log")
	var console bytes.Buffer

	logger, err := New(Options{Level: "info", File: path, Console: &console})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("quiz loaded", zap.String("quiz_id", "Q1"))
	require.NoError(t, logger.Sync())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "quiz loaded", entry["msg"])
	assert.Equal(t, "Q1", entry["quiz_id"])
	assert.Equal(t, "INFO", entry["level"])

	assert.Contains(t, console.String(), "quiz loaded")
	assert.NotContains(t, console.String(), "hidden")
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(Options{Level: "loud", File: filepath.Join(t.TempDir(), "x.log")})
	assert.Error(t, err)
}

func TestDefaultLogPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", dir)
	p, err := DefaultLogPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "quizcraft", "quizcraft.log"), p)
}

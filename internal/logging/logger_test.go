// Package logging includes tests for the zap logger helpers.
package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewDevelopmentLogger confirms the development logger builds and logs.
func TestNewDevelopmentLogger(t *testing.T) {
	t.Parallel()

	logger, err := New(true)
	require.NoError(t, err)
	require.NotNil(t, logger)
	defer logger.Sync() //nolint:errcheck // best-effort flush
	logger.Info("development logger ready")
}

// TestNewProductionLogger ensures the production logger configuration succeeds.
func TestNewProductionLogger(t *testing.T) {
	t.Parallel()

	logger, err := New(false)
	require.NoError(t, err)
	require.NotNil(t, logger)
	defer logger.Sync() //nolint:errcheck // best-effort flush
	logger.Info("production logger ready")
}

func TestNewWithOptionsWritesFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "syllabus.log")
	logger, err := NewWithOptions(Options{File: path, MaxSizeMB: 1, MaxBackups: 1})
	require.NoError(t, err)
	logger.Info("crawl finished")
	logger.Debug("hidden in production")
	_ = logger.Sync()

	// #nosec G304 -- test reads from the controlled temp directory.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "crawl finished", entry["msg"])
	assert.Equal(t, "info", entry["level"])
}

func TestNewWithOptionsWithoutFile(t *testing.T) {
	t.Parallel()

	logger, err := NewWithOptions(Options{Development: true})
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

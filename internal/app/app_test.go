package app

import (
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/JakeFAU/syllabus-crawler/internal/config"
	"github.com/JakeFAU/syllabus-crawler/internal/fixture"
	"github.com/JakeFAU/syllabus-crawler/internal/storage/local"
	"github.com/JakeFAU/syllabus-crawler/internal/storage/memory"
)

// mockCloser mocks a service shutdown hook.
type mockCloser struct {
	mock.Mock
}

func (m *mockCloser) Close() error {
	args := m.Called()
	return args.Error(0)
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Storage.Backend = config.BackendMemory
	cfg.PubSub = config.PubSubConfig{}
	cfg.Metrics.Addr = ""
	cfg.Crawler.SelectorsFile = ""
	return cfg
}

func TestNewStorageBackends(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	a, err := New(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.IsType(t, &memory.BlobStore{}, a.Store())
	a.Close()

	cfg.Storage.Backend = config.BackendLocal
	cfg.Storage.LocalDir = t.TempDir()
	a, err = New(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.IsType(t, &local.BlobStore{}, a.Store())
	a.Close()

	cfg.Storage.Backend = "floppy"
	_, err = New(context.Background(), cfg, nil)
	require.ErrorContains(t, err, "unknown storage backend")
}

func TestNewSelectorsFile(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Crawler.SelectorsFile = filepath.Join("..", "markup", "selectors.yaml")
	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer a.Close()
	_, err = a.NewEngine()
	require.NoError(t, err)

	bad := filepath.Join(t.TempDir(), "selectors.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("versions: ["), 0o600))
	cfg.Crawler.SelectorsFile = bad
	_, err = New(context.Background(), cfg, nil)
	require.ErrorContains(t, err, "parse selectors file")

	cfg.Crawler.SelectorsFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = New(context.Background(), cfg, nil)
	require.ErrorContains(t, err, "read selectors file")
}

func TestRunnerPublishesToStore(t *testing.T) {
	t.Parallel()

	site := fixture.NewSite(2024, "212004", 2, 1)
	srv := httptest.NewServer(site)
	defer srv.Close()

	cfg := testConfig(t)
	cfg.Crawler.BaseURL = srv.URL + "/syllabus"
	cfg.Crawler.Year = 2024
	cfg.Crawler.Workers = 2
	cfg.Crawler.RateLimitRPS = 1000
	cfg.Crawler.RateLimitBurst = 10
	cfg.HTTP.BackoffInitialMs = 1
	cfg.HTTP.BackoffMaxMs = 2

	a, err := New(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer a.Close()

	engine, err := a.NewEngine()
	require.NoError(t, err)
	runner, err := a.NewRunner(engine)
	require.NoError(t, err)

	report, err := runner.Run(context.Background(), "SILS")
	require.NoError(t, err)
	assert.True(t, report.Published)
	assert.Equal(t, "syllabus/SILS.json", report.Receipt.Key)
	assert.Equal(t, 3, report.Receipt.Courses)

	versions, err := a.Store().Versions(context.Background(), "syllabus/SILS.json")
	require.NoError(t, err)
	assert.Len(t, versions, 1)
}

func TestNewEngineRejectsBadStrategy(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	a.cfg.Crawler.Strategy = "bfs"
	_, err = a.NewEngine()
	require.Error(t, err)
}

func TestNewSyncerRequiresDSN(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.DB.DSN = ""
	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	_, _, err = a.NewSyncer(context.Background())
	require.ErrorContains(t, err, "db.dsn is required")
}

func TestCloseRunsClosersInReverse(t *testing.T) {
	t.Parallel()

	first, second := &mockCloser{}, &mockCloser{}
	mock.InOrder(
		second.On("Close").Return(errors.New("already closed")).Once(),
		first.On("Close").Return(nil).Once(),
	)

	a := &App{logger: zaptest.NewLogger(t), closers: []func() error{first.Close, second.Close}}
	a.Close()
	a.Close()

	first.AssertExpectations(t)
	second.AssertExpectations(t)
}

func TestMetricsServerStops(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Metrics.Addr = "127.0.0.1:0"
	a, err := New(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NotNil(t, a.metrics)

	done := make(chan struct{})
	go func() {
		a.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return")
	}
}

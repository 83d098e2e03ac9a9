package cmd

import (
	"bytes"
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/syllabus-crawler/internal/catalog"
	"github.com/JakeFAU/syllabus-crawler/internal/crawler"
	"github.com/JakeFAU/syllabus-crawler/internal/fixture"
)

func writeConfig(t *testing.T, baseURL, dir string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := fmt.Sprintf(`crawler:
  base_url: %q
  year: 2024
  workers: 4
  departments: [SILS]
http:
  backoff_initial_ms: 1
  backoff_max_ms: 2
storage:
  backend: local
  local_dir: %q
logging:
  development: false
`, baseURL, dir)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDepartments(t *testing.T) {
	t.Parallel()

	got, err := departments([]string{"SILS", "PSE"}, false, []string{"LAW"})
	require.NoError(t, err)
	assert.Equal(t, []string{"SILS", "PSE"}, got)

	got, err = departments(nil, false, []string{"LAW"})
	require.NoError(t, err)
	assert.Equal(t, []string{"LAW"}, got)

	got, err = departments(nil, true, nil)
	require.NoError(t, err)
	assert.Equal(t, catalog.Departments(), got)

	_, err = departments([]string{"SILS"}, true, nil)
	require.Error(t, err)
	_, err = departments(nil, false, nil)
	require.Error(t, err)
	_, err = departments([]string{"NOPE"}, false, nil)
	require.ErrorIs(t, err, catalog.ErrUnknownDepartment)
}

func TestScrapePublishesArtifact(t *testing.T) {
	t.Parallel()

	site := fixture.NewSite(2024, "212004", 2, 1)
	srv := httptest.NewServer(site)
	defer srv.Close()
	dir := t.TempDir()

	var out bytes.Buffer
	err := run(context.Background(), []string{
		"--config", writeConfig(t, srv.URL+"/syllabus", dir),
		"scrape", "--workers", "2", "--strategy", "overlap", "--progress",
	}, &out)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "syllabus", "SILS.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), fixture.CourseID(1))
	assert.LessOrEqual(t, site.MaxInFlight(), 2)
}

func TestScrapeContinuesAfterFailedDepartment(t *testing.T) {
	t.Parallel()

	site := fixture.NewSite(2024, "212004", 1)
	srv := httptest.NewServer(site)
	defer srv.Close()
	dir := t.TempDir()

	var out bytes.Buffer
	err := run(context.Background(), []string{
		"--config", writeConfig(t, srv.URL+"/syllabus", dir),
		"scrape", "PSE", "SILS",
	}, &out)
	require.ErrorContains(t, err, "1 of 2 departments failed")

	_, statErr := os.Stat(filepath.Join(dir, "syllabus", "SILS.json"))
	require.NoError(t, statErr, "later departments still publish")
	_, statErr = os.Stat(filepath.Join(dir, "syllabus", "PSE.json"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestScrapeRejectsBadFlags(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := writeConfig(t, "http://127.0.0.1:1/syllabus", dir)

	var out bytes.Buffer
	err := run(context.Background(), []string{"--config", cfg, "scrape", "--strategy", "bfs"}, &out)
	require.ErrorContains(t, err, "crawler.strategy")

	err = run(context.Background(), []string{"--config", cfg, "scrape", "NOPE"}, &out)
	require.ErrorIs(t, err, catalog.ErrUnknownDepartment)
}

func TestSyncRequiresDepartment(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	err := run(context.Background(), []string{"--config", writeConfig(t, "http://127.0.0.1:1/syllabus", t.TempDir()), "sync"}, &out)
	require.Error(t, err)
}

func TestProgressRendererNeverMovesBackwards(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	p := &progressRenderer{department: "SILS", out: &out}
	p.update(crawler.StateFetchingCourseDetails, 3, 10)
	p.update(crawler.StateFetchingCourseDetails, 2, 10)
	assert.Equal(t, 3, p.high)
	assert.Equal(t, int64(3), p.bar.State().CurrentNum)

	p.update(crawler.StateFetchingCourseDetails, 5, 10)
	assert.Equal(t, 5, p.high)

	p.update(crawler.StateDone, 1, 1)
	assert.Equal(t, 1, p.high, "a new phase starts a new bar")
	p.finish()
}

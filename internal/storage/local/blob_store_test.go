// Package local_test tests the local filesystem blob store.
package local_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/syllabus-crawler/internal/storage"
	"github.com/JakeFAU/syllabus-crawler/internal/storage/local"
)

func TestNew(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		store, err := local.New(local.Config{BaseDir: t.TempDir()})
		require.NoError(t, err)
		assert.NotNil(t, store)
	})

	t.Run("CreatesMissingDir", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "out")
		_, err := local.New(local.Config{BaseDir: dir})
		require.NoError(t, err)
		assert.DirExists(t, dir)
	})

	t.Run("MissingBaseDir", func(t *testing.T) {
		_, err := local.New(local.Config{})
		assert.Error(t, err)
	})

	t.Run("BaseDirIsNotADirectory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
		_, err := local.New(local.Config{BaseDir: file})
		assert.Error(t, err)
	})
}

func TestPut(t *testing.T) {
	tempDir := t.TempDir()
	store, err := local.New(local.Config{BaseDir: tempDir})
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("WritesObjectAndSidecar", func(t *testing.T) {
		expires := time.Date(2025, 7, 19, 16, 0, 0, 0, time.UTC)
		obj, err := store.Put(ctx, "syllabus/SILS.json", []byte(`[]`), storage.PutOptions{
			ContentType:  "application/json; charset=utf-8",
			CacheControl: "public, max-age=2592000, must-revalidate",
			Expires:      expires,
			ACL:          storage.ACLPrivate,
			Metadata:     map[string]string{"sha256": "abc"},
		})
		require.NoError(t, err)
		assert.Equal(t, "file://"+filepath.Join(tempDir, "syllabus/SILS.json"), obj.URI)

		// #nosec G304 -- test reads from the controlled temp directory.
		data, err := os.ReadFile(filepath.Join(tempDir, "syllabus/SILS.json"))
		require.NoError(t, err)
		assert.Equal(t, `[]`, string(data))

		// #nosec G304 -- test reads from the controlled temp directory.
		raw, err := os.ReadFile(filepath.Join(tempDir, "syllabus/SILS.json.meta.json"))
		require.NoError(t, err)
		var meta map[string]any
		require.NoError(t, json.Unmarshal(raw, &meta))
		assert.Equal(t, "application/json; charset=utf-8", meta["content_type"])
		assert.Equal(t, "private", meta["acl"])
		assert.Equal(t, "2025-07-19T16:00:00Z", meta["expires"])
	})

	t.Run("EmptyKey", func(t *testing.T) {
		_, err := store.Put(ctx, "", []byte("data"), storage.PutOptions{})
		assert.Error(t, err)
	})

	t.Run("Traversal", func(t *testing.T) {
		_, err := store.Put(ctx, "../escape.json", []byte("data"), storage.PutOptions{})
		assert.Error(t, err)
	})
}

func TestVersions(t *testing.T) {
	store, err := local.New(local.Config{BaseDir: t.TempDir()})
	require.NoError(t, err)
	ctx := context.Background()

	none, err := store.Versions(ctx, "PSE.json")
	require.NoError(t, err)
	assert.Empty(t, none)

	first, err := store.Put(ctx, "PSE.json", []byte("v1"), storage.PutOptions{})
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := store.Put(ctx, "PSE.json", []byte("v2"), storage.PutOptions{})
	require.NoError(t, err)

	versions, err := store.Versions(ctx, "PSE.json")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, second.Generation, versions[0].Generation)
	assert.Equal(t, first.Generation, versions[1].Generation)

	data, err := store.ReadVersion(ctx, "PSE.json", first.Generation)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))

	_, err = store.ReadVersion(ctx, "PSE.json", 1)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

// Package local implements a local filesystem blob store.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/JakeFAU/syllabus-crawler/internal/storage"
)

const versionsDir = ".versions"

// Config captures the parameters for the local filesystem blob store.
type Config struct {
	// BaseDir is the root directory where blobs will be stored.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
}

// BlobStore writes artifacts to the local filesystem. The latest content of
// a key lives at BaseDir/key with a .meta.json sidecar; every generation is
// also kept under BaseDir/.versions/key/.
type BlobStore struct {
	baseDir string
	mu      sync.Mutex
	now     func() time.Time
}

// sidecar is the JSON metadata written next to each object.
type sidecar struct {
	ContentType  string            `json:"content_type,omitempty"`
	CacheControl string            `json:"cache_control,omitempty"`
	Expires      *time.Time        `json:"expires,omitempty"`
	ACL          string            `json:"acl,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Generation   int64             `json:"generation"`
}

// New creates a new local filesystem-backed blob store.
func New(cfg Config) (*BlobStore, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}

	info, err := os.Stat(cfg.BaseDir)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat base directory: %w", err)
		}
		if mkErr := os.MkdirAll(cfg.BaseDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("failed to create base directory: %w", mkErr)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("base directory path is not a directory")
	}

	// Check for write permissions.
	testFile := filepath.Join(cfg.BaseDir, ".writable_test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("base directory is not writable: %w", err)
	}
	if err := os.Remove(testFile); err != nil {
		return nil, fmt.Errorf("failed to clean up test file: %w", err)
	}

	return &BlobStore{baseDir: cfg.BaseDir, now: time.Now}, nil
}

func (s *BlobStore) resolve(parts ...string) (string, error) {
	fullPath := filepath.Join(append([]string{s.baseDir}, parts...)...)
	cleanBaseDir := filepath.Clean(s.baseDir)
	if !strings.HasPrefix(filepath.Clean(fullPath), cleanBaseDir+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected")
	}
	return fullPath, nil
}

// Put writes data and its sidecar and returns a file:// URI.
func (s *BlobStore) Put(_ context.Context, key string, data []byte, opts storage.PutOptions) (storage.Object, error) {
	if err := storage.ValidateKey(key); err != nil {
		return storage.Object{}, err
	}
	fullPath, err := s.resolve(key)
	if err != nil {
		return storage.Object{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	generation := s.now().UnixNano()
	archive, err := s.resolve(versionsDir, key, strconv.FormatInt(generation, 10))
	if err != nil {
		return storage.Object{}, err
	}
	meta := sidecar{
		ContentType:  opts.ContentType,
		CacheControl: opts.CacheControl,
		ACL:          opts.ACL,
		Metadata:     opts.Metadata,
		Generation:   generation,
	}
	if !opts.Expires.IsZero() {
		expires := opts.Expires.UTC()
		meta.Expires = &expires
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return storage.Object{}, fmt.Errorf("marshal sidecar: %w", err)
	}

	for _, target := range []struct {
		path string
		data []byte
	}{
		{archive, data},
		{fullPath, data},
		{fullPath + ".meta.json", metaJSON},
	} {
		if err := writeFile(target.path, target.data); err != nil {
			return storage.Object{}, err
		}
	}

	return storage.Object{
		URI:        fmt.Sprintf("file://%s", fullPath),
		Key:        key,
		Generation: generation,
		Size:       len(data),
	}, nil
}

// Versions implements storage.VersionedStore.
func (s *BlobStore) Versions(_ context.Context, key string) ([]storage.Version, error) {
	dir, err := s.resolve(versionsDir, key)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return []storage.Version{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	versions := make([]storage.Version, 0, len(entries))
	for _, e := range entries {
		gen, err := strconv.ParseInt(e.Name(), 10, 64)
		if err != nil || e.IsDir() {
			continue
		}
		versions = append(versions, storage.Version{Generation: gen, Updated: time.Unix(0, gen)})
	}
	slices.SortFunc(versions, func(a, b storage.Version) int {
		switch {
		case a.Generation > b.Generation:
			return -1
		case a.Generation < b.Generation:
			return 1
		default:
			return 0
		}
	})
	return versions, nil
}

// ReadVersion implements storage.VersionedStore.
func (s *BlobStore) ReadVersion(_ context.Context, key string, generation int64) ([]byte, error) {
	path, err := s.resolve(versionsDir, key, strconv.FormatInt(generation, 10))
	if err != nil {
		return nil, err
	}
	// #nosec G304 -- path is confined to baseDir by resolve.
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s#%d: %w", key, generation, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read version: %w", err)
	}
	return data, nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create parent directories: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

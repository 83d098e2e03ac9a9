// Package memory stores blob content in-memory for development and tests.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/JakeFAU/syllabus-crawler/internal/storage"
)

type entry struct {
	generation int64
	data       []byte
	opts       storage.PutOptions
	updated    time.Time
}

// BlobStore keeps every generation of every key.
type BlobStore struct {
	mu      sync.RWMutex
	objects map[string][]entry
	next    int64
}

// NewBlobStore creates a new in-memory blob store.
func NewBlobStore() *BlobStore {
	return &BlobStore{objects: make(map[string][]entry)}
}

// Put stores a copy of data as a new generation.
func (s *BlobStore) Put(_ context.Context, key string, data []byte, opts storage.PutOptions) (storage.Object, error) {
	if err := storage.ValidateKey(key); err != nil {
		return storage.Object{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	opts.Metadata = maps.Clone(opts.Metadata)
	s.objects[key] = append(s.objects[key], entry{
		generation: s.next,
		data:       append([]byte(nil), data...),
		opts:       opts,
		updated:    time.Now(),
	})
	return storage.Object{
		URI:        fmt.Sprintf("memory://%s", key),
		Key:        key,
		Generation: s.next,
		Size:       len(data),
	}, nil
}

// Versions implements storage.VersionedStore.
func (s *BlobStore) Versions(_ context.Context, key string) ([]storage.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.objects[key]
	out := make([]storage.Version, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		out = append(out, storage.Version{Generation: entries[i].generation, Updated: entries[i].updated})
	}
	return out, nil
}

// ReadVersion implements storage.VersionedStore.
func (s *BlobStore) ReadVersion(_ context.Context, key string, generation int64) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.objects[key] {
		if e.generation == generation {
			return append([]byte(nil), e.data...), nil
		}
	}
	return nil, fmt.Errorf("%s#%d: %w", key, generation, storage.ErrNotFound)
}

// Latest returns the newest content and options stored under key.
func (s *BlobStore) Latest(key string) ([]byte, storage.PutOptions, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.objects[key]
	if len(entries) == 0 {
		return nil, storage.PutOptions{}, false
	}
	e := entries[len(entries)-1]
	return append([]byte(nil), e.data...), e.opts, true
}

// Keys returns the number of distinct keys stored.
func (s *BlobStore) Keys() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

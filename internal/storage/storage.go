// Package storage defines the blob store abstraction used for published
// artifacts. Backends live in subpackages.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when a key or generation does not exist.
var ErrNotFound = errors.New("storage: object not found")

// ACLPrivate restricts an object to the bucket owner.
const ACLPrivate = "private"

// PutOptions carries object metadata for an upload.
type PutOptions struct {
	ContentType  string
	CacheControl string
	// Expires is the time the content goes stale.
	Expires time.Time
	ACL     string
	// Metadata is stored as custom object metadata.
	Metadata map[string]string
}

// Object describes a stored object generation.
type Object struct {
	URI        string
	Key        string
	Generation int64
	Size       int
}

// Version is one stored generation of a key.
type Version struct {
	Generation int64
	Updated    time.Time
}

// BlobStore uploads objects.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, opts PutOptions) (Object, error)
}

// VersionedStore keeps every generation of a key.
type VersionedStore interface {
	BlobStore
	// Versions lists generations of key, newest first.
	Versions(ctx context.Context, key string) ([]Version, error)
	ReadVersion(ctx context.Context, key string, generation int64) ([]byte, error)
}

// Signer issues time-limited read URLs.
type Signer interface {
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// ValidateKey rejects empty keys and keys that escape their prefix.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("storage: key is required")
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return fmt.Errorf("storage: key %q escapes its prefix", key)
		}
	}
	if strings.HasPrefix(key, "/") {
		return fmt.Errorf("storage: key %q must be relative", key)
	}
	return nil
}

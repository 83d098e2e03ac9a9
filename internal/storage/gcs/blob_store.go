// Package gcs provides a versioned blob store backed by Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	appstorage "github.com/JakeFAU/syllabus-crawler/internal/storage"
)

// Config captures the parameters required to connect to GCS.
type Config struct {
	Bucket string
	// SignerEmail and PrivateKey sign URLs when the client's credentials
	// cannot.
	SignerEmail string
	PrivateKey  []byte
}

// BlobStore writes artifacts to a configured GCS bucket. The bucket is
// expected to have object versioning enabled for Versions to return history.
type BlobStore struct {
	client *storage.Client
	bucket string
	cfg    Config
	now    func() time.Time
}

// New creates a GCS-backed blob store.
func New(client *storage.Client, cfg Config) (*BlobStore, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &BlobStore{
		client: client,
		bucket: cfg.Bucket,
		cfg:    cfg,
		now:    time.Now,
	}, nil
}

// Put uploads data in a single request and returns the new generation.
func (s *BlobStore) Put(ctx context.Context, key string, data []byte, opts appstorage.PutOptions) (appstorage.Object, error) {
	if err := appstorage.ValidateKey(key); err != nil {
		return appstorage.Object{}, err
	}
	writer := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	writer.ChunkSize = 0
	writer.ContentType = opts.ContentType
	writer.CacheControl = opts.CacheControl
	writer.PredefinedACL = predefinedACL(opts.ACL)
	if len(opts.Metadata) > 0 || !opts.Expires.IsZero() {
		writer.Metadata = make(map[string]string, len(opts.Metadata)+1)
		for k, v := range opts.Metadata {
			writer.Metadata[k] = v
		}
	}
	if !opts.Expires.IsZero() {
		writer.CustomTime = opts.Expires.UTC()
		writer.Metadata["expires"] = opts.Expires.UTC().Format(http.TimeFormat)
	}

	if _, err := writer.Write(data); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return appstorage.Object{}, fmt.Errorf("write object: %w (close writer: %v)", err, closeErr)
		}
		return appstorage.Object{}, fmt.Errorf("write object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return appstorage.Object{}, fmt.Errorf("close writer: %w", err)
	}

	obj := appstorage.Object{
		URI:  fmt.Sprintf("gs://%s/%s", s.bucket, key),
		Key:  key,
		Size: len(data),
	}
	if attrs := writer.Attrs(); attrs != nil {
		obj.Generation = attrs.Generation
	}
	return obj, nil
}

// predefinedACL maps an ACL name onto the JSON API's predefinedAcl values.
func predefinedACL(acl string) string {
	switch acl {
	case "":
		return ""
	case appstorage.ACLPrivate:
		return "private"
	case "public-read":
		return "publicRead"
	default:
		return acl
	}
}

// Versions lists every generation of key, newest first.
func (s *BlobStore) Versions(ctx context.Context, key string) ([]appstorage.Version, error) {
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: key, Versions: true})
	var versions []appstorage.Version
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list versions of %s: %w", key, err)
		}
		if attrs.Name != key {
			continue
		}
		versions = append(versions, appstorage.Version{Generation: attrs.Generation, Updated: attrs.Updated})
	}
	slices.SortFunc(versions, func(a, b appstorage.Version) int {
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

// ReadVersion downloads one generation of key.
func (s *BlobStore) ReadVersion(ctx context.Context, key string, generation int64) ([]byte, error) {
	r, err := s.client.Bucket(s.bucket).Object(key).Generation(generation).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("%s#%d: %w", key, generation, appstorage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s#%d: %w", key, generation, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s#%d: %w", key, generation, err)
	}
	return data, nil
}

// SignedURL issues a V4 signed GET URL valid for ttl.
func (s *BlobStore) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", fmt.Errorf("signed url ttl must be positive")
	}
	opts := &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: s.now().Add(ttl),
	}
	if s.cfg.SignerEmail != "" {
		opts.GoogleAccessID = s.cfg.SignerEmail
		opts.PrivateKey = s.cfg.PrivateKey
	}
	url, err := s.client.Bucket(s.bucket).SignedURL(key, opts)
	if err != nil {
		return "", fmt.Errorf("sign url for %s: %w", key, err)
	}
	return url, nil
}

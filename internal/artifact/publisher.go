// Package artifact serializes a department's courses and publishes them to
// a blob store with cache and expiry metadata.
package artifact

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/syllabus-crawler/internal/clock/system"
	"github.com/JakeFAU/syllabus-crawler/internal/course"
	"github.com/JakeFAU/syllabus-crawler/internal/metrics"
	"github.com/JakeFAU/syllabus-crawler/internal/storage"
)

// Object metadata applied to every artifact.
const (
	ContentType  = "application/json; charset=utf-8"
	CacheControl = "public, max-age=2592000, must-revalidate"
)

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// Config controls artifact naming and signing.
type Config struct {
	// Prefix is prepended to "{department}.json".
	Prefix string
	// SignedURLTTL enables signed URLs in receipts when positive.
	SignedURLTTL time.Duration
}

// Receipt describes a published artifact.
type Receipt struct {
	Department string
	Key        string
	URI        string
	Generation int64
	Size       int
	Courses    int
	SHA256     string
	Expires    time.Time
	SignedURL  string
}

// Publisher writes department artifacts.
type Publisher struct {
	store    storage.BlobStore
	cfg      Config
	schedule Schedule
	clock    Clock
	logger   *zap.Logger
}

// Option customizes a Publisher.
type Option func(*Publisher)

// WithSchedule replaces the default refresh calendar.
func WithSchedule(s Schedule) Option { return func(p *Publisher) { p.schedule = s } }

// WithClock replaces the system clock.
func WithClock(c Clock) Option { return func(p *Publisher) { p.clock = c } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(p *Publisher) { p.logger = l } }

// New builds a Publisher.
func New(store storage.BlobStore, cfg Config, opts ...Option) (*Publisher, error) {
	if store == nil {
		return nil, errors.New("artifact: blob store is required")
	}
	p := &Publisher{
		store:    store,
		cfg:      cfg,
		schedule: DefaultSchedule(),
		clock:    system.New(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Key returns the object key for a department.
func (p *Publisher) Key(department string) string {
	return p.cfg.Prefix + department + ".json"
}

// Encode renders courses as compact UTF-8 JSON. A nil list encodes as [].
func Encode(courses []course.Course) ([]byte, error) {
	if courses == nil {
		courses = []course.Course{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(courses); err != nil {
		return nil, fmt.Errorf("encode courses: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Publish uploads the department artifact. The previous artifact is
// replaced only by a successful upload.
func (p *Publisher) Publish(ctx context.Context, department string, courses []course.Course) (Receipt, error) {
	if department == "" {
		return Receipt{}, errors.New("artifact: department is required")
	}
	body, err := Encode(courses)
	if err != nil {
		return Receipt{}, err
	}
	sum := sha256.Sum256(body)
	digest := hex.EncodeToString(sum[:])
	expires := p.schedule.NextAfter(p.clock.Now())
	key := p.Key(department)

	obj, err := p.store.Put(ctx, key, body, storage.PutOptions{
		ContentType:  ContentType,
		CacheControl: CacheControl,
		Expires:      expires,
		ACL:          storage.ACLPrivate,
		Metadata: map[string]string{
			"department": department,
			"courses":    fmt.Sprint(len(courses)),
			"sha256":     digest,
		},
	})
	if err != nil {
		return Receipt{}, fmt.Errorf("publish %s: %w", key, err)
	}
	metrics.ObserveArtifact(department, len(body))

	receipt := Receipt{
		Department: department,
		Key:        key,
		URI:        obj.URI,
		Generation: obj.Generation,
		Size:       len(body),
		Courses:    len(courses),
		SHA256:     digest,
		Expires:    expires,
	}
	if signer, ok := p.store.(storage.Signer); ok && p.cfg.SignedURLTTL > 0 {
		url, err := signer.SignedURL(ctx, key, p.cfg.SignedURLTTL)
		if err != nil {
			p.logger.Warn("unable to sign artifact url", zap.String("key", key), zap.Error(err))
		} else {
			receipt.SignedURL = url
		}
	}
	p.logger.Info("artifact published",
		zap.String("department", department),
		zap.String("uri", receipt.URI),
		zap.Int("courses", receipt.Courses),
		zap.Int("bytes", receipt.Size),
		zap.Time("expires", expires))
	return receipt, nil
}

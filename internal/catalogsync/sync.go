// Package catalogsync mirrors published department artifacts into the course
// store, writing only courses that changed between the two newest
// artifact versions.
package catalogsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.uber.org/zap"

	"github.com/JakeFAU/syllabus-crawler/internal/course"
	"github.com/JakeFAU/syllabus-crawler/internal/metrics"
	"github.com/JakeFAU/syllabus-crawler/internal/storage"
)

// ErrNoArtifact is returned when a department has never been published.
var ErrNoArtifact = errors.New("catalogsync: no artifact published")

// Upserter persists course records.
type Upserter interface {
	Upsert(ctx context.Context, department string, courses []course.Course) error
}

// Report summarizes one sync.
type Report struct {
	Department string
	Generation int64
	// Previous is zero when only one version exists.
	Previous  int64
	Added     int
	Changed   int
	Unchanged int
	Removed   []string
}

// Syncer diffs artifact versions and upserts the difference.
type Syncer struct {
	store    storage.VersionedStore
	upserter Upserter
	key      func(department string) string
	logger   *zap.Logger
}

// New builds a Syncer. key maps a department to its artifact key.
func New(store storage.VersionedStore, upserter Upserter, key func(string) string, logger *zap.Logger) (*Syncer, error) {
	if store == nil || upserter == nil || key == nil {
		return nil, errors.New("catalogsync: store, upserter and key func are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Syncer{store: store, upserter: upserter, key: key, logger: logger}, nil
}

// Sync upserts courses that are new or changed in the latest artifact of
// department. Courses missing from the latest artifact are reported but kept.
func (s *Syncer) Sync(ctx context.Context, department string) (Report, error) {
	report := Report{Department: department}
	key := s.key(department)
	versions, err := s.store.Versions(ctx, key)
	if err != nil {
		return report, fmt.Errorf("list versions of %s: %w", key, err)
	}
	if len(versions) == 0 {
		return report, fmt.Errorf("%s: %w", key, ErrNoArtifact)
	}

	report.Generation = versions[0].Generation
	current, err := s.load(ctx, key, versions[0].Generation)
	if err != nil {
		return report, err
	}
	var previous []course.Course
	if len(versions) > 1 {
		report.Previous = versions[1].Generation
		if previous, err = s.load(ctx, key, versions[1].Generation); err != nil {
			return report, err
		}
	}

	d := Diff(previous, current)
	report.Added = len(d.Added)
	report.Changed = len(d.Changed)
	report.Unchanged = d.Unchanged
	report.Removed = d.Removed
	for _, c := range d.Changed {
		if ce := s.logger.Check(zap.DebugLevel, "course changed"); ce != nil {
			ce.Write(zap.String("course_id", c.ID), zap.String("diff", cmp.Diff(d.before[c.ID], c, equateEmpty)))
		}
	}

	upserts := append(append([]course.Course(nil), d.Added...), d.Changed...)
	if err := s.upserter.Upsert(ctx, department, upserts); err != nil {
		return report, fmt.Errorf("upsert %s: %w", department, err)
	}
	metrics.ObserveUpsert(department, "added", report.Added)
	metrics.ObserveUpsert(department, "changed", report.Changed)

	s.logger.Info("catalog synced",
		zap.String("department", department),
		zap.Int64("generation", report.Generation),
		zap.Int("added", report.Added),
		zap.Int("changed", report.Changed),
		zap.Int("unchanged", report.Unchanged),
		zap.Int("removed", len(report.Removed)))
	return report, nil
}

func (s *Syncer) load(ctx context.Context, key string, generation int64) ([]course.Course, error) {
	data, err := s.store.ReadVersion(ctx, key, generation)
	if err != nil {
		return nil, fmt.Errorf("read %s#%d: %w", key, generation, err)
	}
	var courses []course.Course
	if err := json.Unmarshal(data, &courses); err != nil {
		return nil, fmt.Errorf("decode %s#%d: %w", key, generation, err)
	}
	return courses, nil
}

var equateEmpty = cmpopts.EquateEmpty()

// Delta is the difference between two artifact versions.
type Delta struct {
	Added     []course.Course
	Changed   []course.Course
	Removed   []string
	Unchanged int

	before map[string]course.Course
}

// Diff compares courses by id. Nil and empty lists compare equal.
func Diff(previous, current []course.Course) Delta {
	d := Delta{before: make(map[string]course.Course, len(previous))}
	for _, c := range previous {
		d.before[c.ID] = c
	}
	seen := make(map[string]struct{}, len(current))
	for _, c := range current {
		seen[c.ID] = struct{}{}
		old, ok := d.before[c.ID]
		switch {
		case !ok:
			d.Added = append(d.Added, c)
		case cmp.Equal(old, c, equateEmpty):
			d.Unchanged++
		default:
			d.Changed = append(d.Changed, c)
		}
	}
	for _, c := range previous {
		if _, ok := seen[c.ID]; !ok {
			d.Removed = append(d.Removed, c.ID)
		}
	}
	return d
}

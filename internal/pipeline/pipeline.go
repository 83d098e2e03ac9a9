// Package pipeline runs one department end to end: crawl the catalog,
// assemble every course and publish the artifact.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/JakeFAU/syllabus-crawler/internal/artifact"
	"github.com/JakeFAU/syllabus-crawler/internal/clock/system"
	"github.com/JakeFAU/syllabus-crawler/internal/course"
	"github.com/JakeFAU/syllabus-crawler/internal/crawler"
	"github.com/JakeFAU/syllabus-crawler/internal/id/uuid"
	"github.com/JakeFAU/syllabus-crawler/internal/metrics"
)

var tracer = otel.Tracer("github.com/JakeFAU/syllabus-crawler/internal/pipeline")

// Run statuses carried by notifications.
const (
	StatusStarted  = "started"
	StatusFinished = "finished"
	StatusFailed   = "failed"
)

// ErrTooManyFailures is returned when the course failure ratio exceeds the
// configured ceiling.
var ErrTooManyFailures = errors.New("too many course failures")

// ErrPartialRun is returned when a crawl ended before every course was fetched.
var ErrPartialRun = errors.New("crawl did not complete")

// Crawler executes a department crawl.
type Crawler interface {
	Execute(ctx context.Context, department string) (crawler.Result, error)
}

// ArtifactPublisher uploads a department artifact.
type ArtifactPublisher interface {
	Publish(ctx context.Context, department string, courses []course.Course) (artifact.Receipt, error)
}

// Notifier delivers run status messages.
type Notifier interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// IDGenerator mints run identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// Config controls a Runner.
type Config struct {
	// Topic names the notification destination.
	Topic string
	// MaxFailureRatio is the highest tolerated share of failed courses.
	MaxFailureRatio float64
	// Timeout bounds a single department run; zero disables it.
	Timeout time.Duration
}

// Notification is the run status message body.
type Notification struct {
	RunID      string    `json:"run_id"`
	Department string    `json:"department"`
	Status     string    `json:"status"`
	Courses    int       `json:"courses,omitempty"`
	Failed     int       `json:"failed,omitempty"`
	Key        string    `json:"key,omitempty"`
	Generation int64     `json:"generation,omitempty"`
	Error      string    `json:"error,omitempty"`
	At         time.Time `json:"at"`
}

// Attributes exposes routing attributes for message brokers.
func (n Notification) Attributes() map[string]string {
	return map[string]string{
		"run_id":     n.RunID,
		"department": n.Department,
		"status":     n.Status,
	}
}

// Report summarizes one department run.
type Report struct {
	RunID   string
	Result  crawler.Result
	Receipt artifact.Receipt
	// Published is false whenever the previous artifact was left in place.
	Published bool
	Duration  time.Duration
}

// Runner wires the crawl to the artifact publisher.
type Runner struct {
	crawler   Crawler
	publisher ArtifactPublisher
	notifier  Notifier
	ids       IDGenerator
	clock     Clock
	cfg       Config
	logger    *zap.Logger
}

// Option customizes a Runner.
type Option func(*Runner)

// WithNotifier enables run status notifications.
func WithNotifier(n Notifier) Option { return func(r *Runner) { r.notifier = n } }

// WithIDGenerator replaces the run ID source.
func WithIDGenerator(g IDGenerator) Option { return func(r *Runner) { r.ids = g } }

// WithClock replaces the system clock.
func WithClock(c Clock) Option { return func(r *Runner) { r.clock = c } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(r *Runner) { r.logger = l } }

// New constructs a Runner.
func New(c Crawler, p ArtifactPublisher, cfg Config, opts ...Option) (*Runner, error) {
	if c == nil {
		return nil, errors.New("pipeline: crawler is required")
	}
	if p == nil {
		return nil, errors.New("pipeline: artifact publisher is required")
	}
	if cfg.MaxFailureRatio < 0 || cfg.MaxFailureRatio > 1 {
		return nil, fmt.Errorf("pipeline: max failure ratio %v outside [0,1]", cfg.MaxFailureRatio)
	}
	r := &Runner{
		crawler:   c,
		publisher: p,
		cfg:       cfg,
		ids:       uuid.NewUUIDGenerator(),
		clock:     system.New(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run crawls department and publishes its artifact. Nothing is published
// when the crawl fails, ends early, or loses too many courses.
func (r *Runner) Run(ctx context.Context, department string) (report Report, err error) {
	ctx, span := tracer.Start(ctx, "pipeline.Run")
	defer span.End()
	span.SetAttributes(attribute.String("department", department))
	defer func() {
		span.SetAttributes(
			attribute.Int("courses", len(report.Result.Courses)),
			attribute.Int("failed", len(report.Result.Failed)),
			attribute.Bool("published", report.Published))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	runID, err := r.ids.NewID()
	if err != nil {
		return Report{}, fmt.Errorf("new run id: %w", err)
	}
	span.SetAttributes(attribute.String("run_id", runID))
	logger := r.logger.With(zap.String("run_id", runID), zap.String("department", department))
	start := r.clock.Now()
	report.RunID = runID

	r.notify(ctx, logger, Notification{RunID: runID, Department: department, Status: StatusStarted})

	runCtx := ctx
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	res, err := r.crawler.Execute(runCtx, department)
	report.Result = res
	if err == nil {
		err = r.check(res)
	}
	if err != nil {
		report.Duration = r.clock.Now().Sub(start)
		logger.Error("run failed",
			zap.Int("courses", len(res.Courses)),
			zap.Int("failed", len(res.Failed)),
			zap.Bool("partial", res.Partial),
			zap.Error(err))
		r.notify(ctx, logger, Notification{
			RunID:      runID,
			Department: department,
			Status:     StatusFailed,
			Courses:    len(res.Courses),
			Failed:     len(res.Failed),
			Error:      err.Error(),
		})
		return report, err
	}

	receipt, err := r.publisher.Publish(ctx, department, res.Courses)
	report.Duration = r.clock.Now().Sub(start)
	if err != nil {
		logger.Error("publish failed", zap.Error(err))
		r.notify(ctx, logger, Notification{
			RunID:      runID,
			Department: department,
			Status:     StatusFailed,
			Courses:    len(res.Courses),
			Failed:     len(res.Failed),
			Error:      err.Error(),
		})
		return report, err
	}
	report.Receipt = receipt
	report.Published = true

	logger.Info("run finished",
		zap.String("key", receipt.Key),
		zap.Int64("generation", receipt.Generation),
		zap.Int("courses", receipt.Courses),
		zap.Int("failed", len(res.Failed)),
		zap.Duration("elapsed", report.Duration))
	r.notify(ctx, logger, Notification{
		RunID:      runID,
		Department: department,
		Status:     StatusFinished,
		Courses:    receipt.Courses,
		Failed:     len(res.Failed),
		Key:        receipt.Key,
		Generation: receipt.Generation,
	})
	return report, nil
}

func (r *Runner) check(res crawler.Result) error {
	if res.Partial || res.State != crawler.StateDone {
		return fmt.Errorf("%w: state %s", ErrPartialRun, res.State)
	}
	if ratio := res.FailureRatio(); ratio > r.cfg.MaxFailureRatio {
		return fmt.Errorf("%w: %d of %d (%.2f > %.2f)",
			ErrTooManyFailures, len(res.Failed), res.Total, ratio, r.cfg.MaxFailureRatio)
	}
	return nil
}

// notify never fails the run; delivery problems are logged and counted.
func (r *Runner) notify(ctx context.Context, logger *zap.Logger, n Notification) {
	if r.notifier == nil {
		return
	}
	n.At = r.clock.Now()
	if _, err := r.notifier.Publish(ctx, r.cfg.Topic, n); err != nil {
		metrics.ObserveNotificationFailure()
		logger.Warn("notification failed", zap.String("status", n.Status), zap.Error(err))
	}
}

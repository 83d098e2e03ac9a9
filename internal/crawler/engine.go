package crawler

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/JakeFAU/syllabus-crawler/internal/catalog"
	"github.com/JakeFAU/syllabus-crawler/internal/clock/system"
	"github.com/JakeFAU/syllabus-crawler/internal/course"
	"github.com/JakeFAU/syllabus-crawler/internal/metrics"
	"github.com/JakeFAU/syllabus-crawler/internal/pool"
)

// Config controls a crawl.
type Config struct {
	BaseURL  string
	Workers  int
	Strategy Strategy
	// Year overrides the academic year derived from the clock.
	Year int
}

// Option customizes an Engine.
type Option func(*Engine)

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(e *Engine) { e.retry = p }
}

// WithRateLimiter throttles every outbound request.
func WithRateLimiter(l RateLimiter) Option {
	return func(e *Engine) { e.limiter = l }
}

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithProgress registers a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(e *Engine) { e.progress = fn }
}

// WithObserver registers a state transition observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithHeaders replaces the request header factory.
func WithHeaders(fn func() http.Header) Option {
	return func(e *Engine) { e.headers = fn }
}

// Engine discovers and crawls department catalogs.
type Engine struct {
	cfg       Config
	urls      *catalog.URLBuilder
	fetcher   Fetcher
	assembler Assembler
	parser    PageParser
	retry     RetryPolicy
	limiter   RateLimiter
	clock     Clock
	logger    *zap.Logger
	progress  ProgressFunc
	observer  Observer
	headers   func() http.Header
	inFlight  *semaphore.Weighted
}

// New validates cfg and builds an Engine.
func New(cfg Config, fetcher Fetcher, assembler Assembler, parser PageParser, opts ...Option) (*Engine, error) {
	if fetcher == nil || assembler == nil || parser == nil {
		return nil, errors.New("crawler: fetcher, assembler and parser are required")
	}
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("crawler: workers must be positive, got %d", cfg.Workers)
	}
	strategy, err := ParseStrategy(string(cfg.Strategy))
	if err != nil {
		return nil, fmt.Errorf("crawler: %w", err)
	}
	cfg.Strategy = strategy
	urls, err := catalog.NewURLBuilder(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("crawler: %w", err)
	}

	e := &Engine{
		cfg:       cfg,
		urls:      urls,
		fetcher:   fetcher,
		assembler: assembler,
		parser:    parser,
		retry:     NewExponentialRetryPolicy(),
		clock:     system.New(),
		logger:    zap.NewNop(),
		headers:   catalog.Headers,
		inFlight:  semaphore.NewWeighted(int64(cfg.Workers)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

type run struct {
	department string
	school     catalog.School
	year       int
	state      State
	logger     *zap.Logger
}

func (e *Engine) newRun(department string) (*run, error) {
	school, err := catalog.LookupSchool(department)
	if err != nil {
		return nil, err
	}
	year := e.cfg.Year
	if year == 0 {
		year = catalog.AcademicYear(e.clock.Now())
	}
	return &run{
		department: department,
		school:     school,
		year:       year,
		state:      StateInit,
		logger:     e.logger.With(zap.String("department", department), zap.Int("year", year)),
	}, nil
}

func (e *Engine) transition(r *run, to State) {
	if !CanTransition(r.state, to) {
		r.logger.Error("illegal crawl state transition",
			zap.Stringer("from", r.state), zap.Stringer("to", to))
		return
	}
	from := r.state
	r.state = to
	r.logger.Debug("crawl state", zap.Stringer("from", from), zap.Stringer("to", to))
	if e.observer != nil {
		e.observer.Transition(r.department, from, to)
	}
}

// MaxPage returns the number of catalog pages listed for department.
func (e *Engine) MaxPage(ctx context.Context, department string) (int, error) {
	r, err := e.newRun(department)
	if err != nil {
		return 0, err
	}
	pages, _, err := e.discover(ctx, r)
	return pages, err
}

// Execute crawls every course of department. Individual course failures are
// recorded in Result.Failed. When ctx ends mid-crawl the completed courses
// are returned with Result.Partial set alongside the context error.
func (e *Engine) Execute(ctx context.Context, department string) (res Result, err error) {
	res = Result{Department: department, State: StateInit}
	r, err := e.newRun(department)
	if err != nil {
		res.State = StateFailed
		return res, err
	}
	res.Year = r.year
	start := e.clock.Now()
	defer func() {
		metrics.ObserveRun(department, res.State.String(), e.clock.Now().Sub(start))
	}()

	e.transition(r, StateDiscoveringPages)
	pages, first, err := e.discover(ctx, r)
	if err != nil {
		return e.fail(ctx, r, res, fmt.Errorf("discover catalog pages: %w", err))
	}
	res.Pages = pages

	e.transition(r, StateFetchingCatalogPages)
	ids, err := e.collectIDs(ctx, r, pages, first)
	if err != nil {
		return e.fail(ctx, r, res, fmt.Errorf("fetch catalog pages: %w", err))
	}
	res.Total = len(ids)
	r.logger.Info("catalog listed", zap.Int("pages", pages), zap.Int("courses", len(ids)))

	e.transition(r, StateFetchingCourseDetails)
	res.Courses, res.Failed = e.fetchCourses(ctx, r, ids)
	if err := ctx.Err(); err != nil {
		return e.fail(ctx, r, res, fmt.Errorf("fetch course details: %w", err))
	}

	e.transition(r, StateDone)
	res.State = r.state
	r.logger.Info("crawl finished",
		zap.Int("courses", len(res.Courses)),
		zap.Int("failed", len(res.Failed)),
		zap.Duration("elapsed", e.clock.Now().Sub(start)))
	return res, nil
}

func (e *Engine) fail(ctx context.Context, r *run, res Result, err error) (Result, error) {
	e.transition(r, StateFailed)
	res.State = r.state
	if ctx.Err() != nil {
		res.Partial = true
		r.logger.Warn("crawl interrupted",
			zap.Int("courses", len(res.Courses)), zap.Error(err))
		return res, err
	}
	r.logger.Error("crawl failed", zap.Error(err))
	return res, err
}

// discover fetches the first listing page and reads the page count from it.
func (e *Engine) discover(ctx context.Context, r *run) (int, []byte, error) {
	url := e.urls.CatalogPage(r.school, r.year, 1)
	body, err := e.fetch(ctx, FetchRequest{URL: url, Kind: KindCatalog})
	if err != nil {
		return 0, nil, err
	}
	pages, err := e.parser.MaxPage(body)
	if err != nil {
		return 0, nil, err
	}
	return pages, body, nil
}

func (e *Engine) collectIDs(ctx context.Context, r *run, pages int, first []byte) ([]string, error) {
	indexes := make([]int, pages)
	for i := range indexes {
		indexes[i] = i + 1
	}
	var done atomic.Int64
	results := pool.Map(ctx, e.catalogRunner(), indexes, func(ctx context.Context, page int) ([]string, error) {
		defer e.report(StateFetchingCatalogPages, &done, pages)
		body := first
		if page != 1 {
			var err error
			body, err = e.fetch(ctx, FetchRequest{URL: e.urls.CatalogPage(r.school, r.year, page), Kind: KindCatalog})
			if err != nil {
				return nil, fmt.Errorf("page %d: %w", page, err)
			}
		}
		ids, err := e.parser.CourseIDs(body)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		return ids, nil
	})
	if err := pool.FirstError(results); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b pool.Result[int, []string]) int {
		return cmp.Compare(a.Input, b.Input)
	})
	seen := make(map[string]struct{})
	var ids []string
	for _, res := range results {
		for _, id := range res.Value {
			if _, dup := seen[id]; dup {
				r.logger.Debug("duplicate course id", zap.String("course_id", id), zap.Int("page", res.Input))
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (e *Engine) fetchCourses(ctx context.Context, r *run, ids []string) ([]course.Course, []string) {
	var done atomic.Int64
	results := pool.Map(ctx, e.detailRunner(), ids, func(ctx context.Context, id string) (course.Course, error) {
		defer e.report(StateFetchingCourseDetails, &done, len(ids))
		return e.fetchCourse(ctx, r, id)
	})

	courses := make([]course.Course, 0, len(results))
	var failed []string
	for _, res := range results {
		if res.Err != nil {
			if ctx.Err() != nil && isContextError(res.Err) {
				continue
			}
			r.logger.Warn("course failed", zap.String("course_id", res.Input), zap.Error(res.Err))
			metrics.ObserveCourse(r.department, "failed")
			failed = append(failed, res.Input)
			continue
		}
		metrics.ObserveCourse(r.department, "ok")
		courses = append(courses, res.Value)
	}
	return courses, failed
}

func (e *Engine) fetchCourse(ctx context.Context, r *run, id string) (course.Course, error) {
	var en, jp []byte
	if e.cfg.Strategy == StrategyOverlap {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			en, err = e.fetchDetail(gctx, id, catalog.English)
			return err
		})
		g.Go(func() error {
			var err error
			jp, err = e.fetchDetail(gctx, id, catalog.Japanese)
			return err
		})
		if err := g.Wait(); err != nil {
			return course.Course{}, err
		}
	} else {
		var err error
		if en, err = e.fetchDetail(ctx, id, catalog.English); err != nil {
			return course.Course{}, err
		}
		if jp, err = e.fetchDetail(ctx, id, catalog.Japanese); err != nil {
			return course.Course{}, err
		}
	}

	c, err := e.assembler.Assemble(id, en, jp)
	if err != nil {
		return course.Course{}, fmt.Errorf("assemble %s: %w", id, err)
	}
	r.logger.Debug("course assembled", zap.String("course_id", id))
	return c, nil
}

func (e *Engine) fetchDetail(ctx context.Context, id string, lang catalog.Language) ([]byte, error) {
	body, err := e.fetch(ctx, FetchRequest{URL: e.urls.Detail(id, lang), Kind: KindDetail})
	if err != nil {
		return nil, fmt.Errorf("fetch %s page: %w", lang, err)
	}
	return body, nil
}

// catalogRunner bounds listing page fetches.
func (e *Engine) catalogRunner() pool.Runner {
	if e.cfg.Strategy == StrategyOverlap {
		return pool.Semaphore{N: e.cfg.Workers}
	}
	return pool.Workers{N: e.cfg.Workers}
}

// detailRunner bounds course tasks. Overlapping tasks issue two requests
// each, so half as many run at once.
func (e *Engine) detailRunner() pool.Runner {
	if e.cfg.Strategy == StrategyOverlap {
		return pool.Semaphore{N: (e.cfg.Workers + 1) / 2}
	}
	return pool.Workers{N: e.cfg.Workers}
}

func (e *Engine) report(state State, done *atomic.Int64, total int) {
	n := done.Add(1)
	if e.progress != nil {
		e.progress(state, int(n), total)
	}
}

// fetch retries transient failures of a single request.
func (e *Engine) fetch(ctx context.Context, req FetchRequest) ([]byte, error) {
	if req.Headers == nil && e.headers != nil {
		req.Headers = e.headers()
	}
	for attempt := 1; ; attempt++ {
		body, err := e.fetchOnce(ctx, req)
		if err == nil {
			return body, nil
		}
		if !e.retry.ShouldRetry(err, attempt) {
			return nil, err
		}
		metrics.ObserveRetry(string(req.Kind))
		wait := e.retry.Backoff(attempt - 1)
		e.logger.Debug("retrying fetch",
			zap.String("url", req.URL),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err))
		if err := sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

// fetchOnce performs one request. The in-flight semaphore caps concurrent
// requests at the worker limit whatever the strategy.
func (e *Engine) fetchOnce(ctx context.Context, req FetchRequest) ([]byte, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx, req.URL); err != nil {
			return nil, err
		}
	}
	if err := e.inFlight.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer e.inFlight.Release(1)
	metrics.IncInFlight()
	defer metrics.DecInFlight()

	start := time.Now()
	resp, err := e.fetcher.Fetch(ctx, req)
	if err == nil && resp.StatusCode != 0 && (resp.StatusCode < 200 || resp.StatusCode >= 300) {
		err = &StatusError{URL: req.URL, Code: resp.StatusCode}
	}
	metrics.ObserveRequest(string(req.Kind), outcome(err), time.Since(start))
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func outcome(err error) string {
	var statusErr *StatusError
	switch {
	case err == nil:
		return "ok"
	case isContextError(err):
		return "canceled"
	case errors.As(err, &statusErr):
		return "http_error"
	default:
		return "error"
	}
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

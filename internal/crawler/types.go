package crawler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/JakeFAU/syllabus-crawler/internal/course"
)

// Kind labels a request for metrics and logs.
type Kind string

// Request kinds issued by the engine.
const (
	KindCatalog Kind = "catalog"
	KindDetail  Kind = "detail"
)

// FetchRequest captures everything needed to fetch a URL.
type FetchRequest struct {
	URL     string
	Headers http.Header
	Kind    Kind
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.Code, e.URL)
}

// Temporary reports whether the status is worth retrying.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= http.StatusInternalServerError
}

// Strategy selects how detail pages are scheduled.
type Strategy string

const (
	// StrategyWorkers runs one task per course on a fixed worker pool and
	// fetches the English page before the Japanese one.
	StrategyWorkers Strategy = "workers"
	// StrategyOverlap runs half as many tasks and fetches both language
	// pages of a course concurrently.
	StrategyOverlap Strategy = "overlap"
)

// ParseStrategy validates a strategy name. The empty string selects
// StrategyWorkers.
func ParseStrategy(name string) (Strategy, error) {
	switch Strategy(name) {
	case "", StrategyWorkers:
		return StrategyWorkers, nil
	case StrategyOverlap:
		return StrategyOverlap, nil
	default:
		return "", fmt.Errorf("unknown crawl strategy %q", name)
	}
}

// Result is the outcome of one department crawl.
type Result struct {
	Department string
	Year       int
	Pages      int
	// Courses holds assembled records in completion order.
	Courses []course.Course
	// Failed lists course ids whose fetch or assembly failed.
	Failed []string
	// Total is the number of distinct ids discovered.
	Total   int
	State   State
	Partial bool
}

// FailureRatio reports failed courses over discovered courses.
func (r Result) FailureRatio() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(len(r.Failed)) / float64(r.Total)
}

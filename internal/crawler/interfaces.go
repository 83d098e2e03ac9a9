package crawler

import (
	"context"
	"time"

	"github.com/JakeFAU/syllabus-crawler/internal/course"
)

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// RetryPolicy decides whether and when a failed fetch is retried.
type RetryPolicy interface {
	ShouldRetry(err error, attempt int) bool
	Backoff(attempt int) time.Duration
}

// RateLimiter blocks until a request to url may proceed.
type RateLimiter interface {
	Wait(ctx context.Context, url string) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// Assembler builds a course from its two detail pages.
type Assembler interface {
	Assemble(id string, enBody, jpBody []byte) (course.Course, error)
}

// PageParser reads catalog listing pages.
type PageParser interface {
	MaxPage(body []byte) (int, error)
	CourseIDs(body []byte) ([]string, error)
}

// Observer is notified of every state transition.
type Observer interface {
	Transition(department string, from, to State)
}

// ProgressFunc is called after each catalog page or course task completes.
type ProgressFunc func(state State, done, total int)

package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestExponentialRetryPolicyShouldRetry(t *testing.T) {
	t.Parallel()

	p := NewExponentialRetryPolicy()
	tests := []struct {
		name    string
		err     error
		attempt int
		want    bool
	}{
		{name: "nil", err: nil, attempt: 1, want: false},
		{name: "service unavailable", err: &StatusError{Code: 503}, attempt: 1, want: true},
		{name: "too many requests", err: fmt.Errorf("wrapped: %w", &StatusError{Code: 429}), attempt: 1, want: true},
		{name: "not found", err: &StatusError{Code: 404}, attempt: 1, want: false},
		{name: "timeout", err: timeoutErr{}, attempt: 1, want: true},
		{name: "connection", err: &net.OpError{Op: "dial", Err: errors.New("refused")}, attempt: 1, want: true},
		{name: "truncated body", err: io.ErrUnexpectedEOF, attempt: 2, want: true},
		{name: "canceled", err: context.Canceled, attempt: 1, want: false},
		{name: "deadline", err: fmt.Errorf("fetch: %w", context.DeadlineExceeded), attempt: 1, want: false},
		{name: "exhausted", err: &StatusError{Code: 503}, attempt: 3, want: false},
		{name: "unclassified", err: errors.New("boom"), attempt: 1, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, p.ShouldRetry(tt.err, tt.attempt))
		})
	}
}

func TestExponentialRetryPolicyBackoffBounds(t *testing.T) {
	t.Parallel()

	p := NewRetryPolicy(5, 100*time.Millisecond, 400*time.Millisecond)
	for attempt := range 6 {
		d := p.Backoff(attempt)
		ceiling := min(100*time.Millisecond<<attempt, 400*time.Millisecond)
		assert.GreaterOrEqual(t, d, ceiling/2, "attempt %d", attempt)
		assert.LessOrEqual(t, d, ceiling, "attempt %d", attempt)
	}
}

func TestNewRetryPolicyDefaults(t *testing.T) {
	t.Parallel()

	p := NewRetryPolicy(0, 0, 0)
	assert.Equal(t, 3, p.maxAttempts)
	assert.Equal(t, 250*time.Millisecond, p.baseDelay)
	assert.Equal(t, 5*time.Second, p.maxDelay)
}

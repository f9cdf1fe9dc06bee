package fetch

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRetryPolicy_ShouldRetry(t *testing.T) {
	t.Parallel()
	p := NewRetryPolicy(3, time.Second, 30*time.Second)

	cases := []struct {
		name    string
		err     error
		status  int
		attempt int
		want    bool
	}{
		{name: "network error retries", err: errors.New("connection refused"), attempt: 1, want: true},
		{name: "5xx retries", status: http.StatusServiceUnavailable, attempt: 1, want: true},
		{name: "429 retries", status: http.StatusTooManyRequests, attempt: 2, want: true},
		{name: "404 terminal", status: http.StatusNotFound, attempt: 1, want: false},
		{name: "403 terminal", status: http.StatusForbidden, attempt: 1, want: false},
		{name: "budget exhausted", status: http.StatusServiceUnavailable, attempt: 3, want: false},
		{name: "canceled terminal", err: context.Canceled, attempt: 1, want: false},
		{name: "deadline terminal", err: context.DeadlineExceeded, attempt: 1, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, p.ShouldRetry(tc.err, tc.status, tc.attempt))
		})
	}
}

func TestRetryPolicy_BackoffGrowsAndCaps(t *testing.T) {
	t.Parallel()
	p := NewRetryPolicy(5, time.Second, 4*time.Second)

	for attempt := 1; attempt <= 5; attempt++ {
		d := p.Backoff(attempt)
		require.Positive(t, d)
		require.LessOrEqual(t, d, 4*time.Second)
	}
	// First backoff is jittered around the base: within [base/2, base).
	d := p.Backoff(1)
	require.GreaterOrEqual(t, d, 500*time.Millisecond)
	require.Less(t, d, time.Second)
}

func TestRetryPolicy_Defaults(t *testing.T) {
	t.Parallel()
	p := NewRetryPolicy(0, 0, 0)
	require.Equal(t, 3, p.MaxAttempts())
}

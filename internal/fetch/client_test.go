package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/email-enricher/internal/enrich"
)

func newTestClient(t *testing.T, robots RobotsPolicy) *Client {
	t.Helper()
	return NewClient(
		Config{UserAgent: "enricher-test/1.0", Timeout: 5 * time.Second},
		robots,
		NewLimiter(0, 1),
		NewRetryPolicy(3, 10*time.Millisecond, 50*time.Millisecond),
		zap.NewNop(),
	)
}

type denyAll struct{}

func (denyAll) Allowed(context.Context, string) bool { return false }

func TestClient_FetchOK(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "enricher-test/1.0", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("<html>contact@acme.com</html>"))
	}))
	defer srv.Close()

	c := newTestClient(t, nil)
	res := c.Fetch(context.Background(), srv.URL+"/contact")

	require.Equal(t, enrich.FetchOK, res.Status)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(res.Body), "contact@acme.com")
}

func TestClient_TransientThenOKIsOneLogicalPage(t *testing.T) {
	t.Parallel()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	c := newTestClient(t, nil)
	res := c.Fetch(context.Background(), srv.URL+"/")

	require.Equal(t, enrich.FetchOK, res.Status)
	require.Equal(t, "recovered", string(res.Body))
	require.Equal(t, int32(2), hits.Load())
}

func TestClient_Terminal404NoRetry(t *testing.T) {
	t.Parallel()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(t, nil)
	res := c.Fetch(context.Background(), srv.URL+"/missing")

	require.Equal(t, enrich.FetchError, res.Status)
	require.Equal(t, http.StatusNotFound, res.StatusCode)
	require.Equal(t, int32(1), hits.Load())
}

func TestClient_ExhaustedRetries(t *testing.T) {
	t.Parallel()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(t, nil)
	res := c.Fetch(context.Background(), srv.URL+"/")

	require.Equal(t, enrich.FetchError, res.Status)
	require.Equal(t, int32(3), hits.Load())
}

func TestClient_RobotsBlocked(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Fatal("blocked URL must not be fetched")
	}))
	defer srv.Close()

	c := newTestClient(t, denyAll{})
	res := c.Fetch(context.Background(), srv.URL+"/private")

	require.Equal(t, enrich.FetchBlocked, res.Status)
}

func TestClient_429RetriesWithRetryAfter(t *testing.T) {
	t.Parallel()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := newTestClient(t, nil)
	res := c.Fetch(context.Background(), srv.URL+"/")

	require.Equal(t, enrich.FetchOK, res.Status)
	require.Equal(t, int32(2), hits.Load())
}

func TestClient_ContextCancelAborts(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	c := newTestClient(t, nil)
	res := c.Fetch(ctx, srv.URL+"/slow")
	require.Equal(t, enrich.FetchError, res.Status)
}

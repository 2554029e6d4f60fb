package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/justestif/spotigen/internal/metrics"
)

// recordSleeps replaces the client's sleep with one that records delays.
func recordSleeps(c *Client) *[]time.Duration {
	var delays []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	return &delays
}

func TestGet_RetriesThenSucceeds(t *testing.T) {
	var requestCount atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requestCount.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if r.URL.Query().Get("q") != "x y" {
			t.Errorf("q = %q", r.URL.Query().Get("q"))
		}
		if r.Header.Get("User-Agent") != "spotigen-test" {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		w.Write([]byte(`ok`))
	}))
	defer server.Close()

	c := New(WithHTTPClient(server.Client()), WithUserAgent("spotigen-test"))
	delays := recordSleeps(c)

	resp, err := c.Get(context.Background(), server.URL, url.Values{"q": {"x y"}}, nil)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if resp.StatusCode != http.StatusOK || string(resp.Body) != "ok" {
		t.Errorf("Get() = %d %q", resp.StatusCode, resp.Body)
	}
	if count := requestCount.Load(); count != 3 {
		t.Errorf("Expected 3 requests, got %d", count)
	}
	if want := []time.Duration{time.Second, 2 * time.Second}; !slices.Equal(*delays, want) {
		t.Errorf("delays = %v, want %v", *delays, want)
	}
}

func TestGet_ReturnsLastErrorResponse(t *testing.T) {
	var requestCount atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount.Add(1)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"nope"}`))
	}))
	defer server.Close()

	c := New(WithHTTPClient(server.Client()))
	recordSleeps(c)

	resp, err := c.Get(context.Background(), server.URL, nil, nil)
	if err != nil {
		t.Fatalf("Get() error = %v, want nil", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", resp.StatusCode)
	}
	if resp.OK() {
		t.Error("OK() = true for 404")
	}
	if count := requestCount.Load(); count != DefaultAttempts {
		t.Errorf("Expected %d requests, got %d", DefaultAttempts, count)
	}
}

func TestGet_TransportErrorAfterRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := server.URL
	server.Close()

	c := New(WithRetry(2, 10*time.Millisecond))
	delays := recordSleeps(c)

	_, err := c.Get(context.Background(), addr, nil, nil)
	if err == nil {
		t.Fatal("Get() error = nil, want transport error")
	}
	if len(*delays) != 1 {
		t.Errorf("slept %d times, want 1", len(*delays))
	}
}

func TestGet_ContextCancelledDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := New(WithHTTPClient(server.Client()))
	c.sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, err := c.Get(ctx, server.URL, nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Get() error = %v, want context.Canceled", err)
	}
}

func TestDo_SingleAttempt(t *testing.T) {
	var requestCount atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	c := New(WithHTTPClient(server.Client()))
	req, _ := http.NewRequest(http.MethodPost, server.URL, nil)

	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d", resp.StatusCode)
	}
	if count := requestCount.Load(); count != 1 {
		t.Errorf("Expected 1 request, got %d", count)
	}
}

func TestStdClient_CountsAndNeverRetries(t *testing.T) {
	var requestCount atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount.Add(1)
		if r.Header.Get("User-Agent") != "spotigen-test" {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	m := metrics.New()
	c := New(
		WithHTTPClient(server.Client()),
		WithService("spotify"),
		WithUserAgent("spotigen-test"),
		WithMetrics(m),
	)

	resp, err := c.StdClient().Get(server.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d", resp.StatusCode)
	}
	if count := requestCount.Load(); count != 1 {
		t.Errorf("Expected 1 request, got %d", count)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	want := `spotigen_upstream_requests_total{service="spotify",status="503"} 1`
	if !strings.Contains(rec.Body.String(), want) {
		t.Errorf("metrics output missing %q", want)
	}
}

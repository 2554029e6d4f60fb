// Package httpclient provides the outbound HTTP client shared by the Spotify,
// Last.fm and MusicBrainz integrations.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"

	"github.com/justestif/spotigen/internal/logging"
	"github.com/justestif/spotigen/internal/metrics"
)

const (
	DefaultTimeout  = 10 * time.Second
	DefaultAttempts = 3
	DefaultBackoff  = 1 * time.Second

	// maxBodySize caps how much of an upstream response is buffered.
	maxBodySize = 8 << 20
)

// sharedTransport is reused by every Client so short-lived clients still pool connections.
var sharedTransport = func() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 100
	t.MaxIdleConnsPerHost = 20
	t.IdleConnTimeout = 90 * time.Second
	return t
}()

// Response is a fully read upstream response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client performs outbound requests. Get retries; Do never does.
type Client struct {
	http      *http.Client
	service   string
	userAgent string
	attempts  int
	backoff   time.Duration
	sleep     func(ctx context.Context, d time.Duration) error
	metrics   *metrics.Metrics
	logger    *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http = &http.Client{Transport: c.http.Transport, Timeout: d}
	}
}

// WithRetry sets the number of attempts made by Get and the initial backoff.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.attempts = attempts
		}
		if backoff >= 0 {
			c.backoff = backoff
		}
	}
}

// WithService names the upstream in logs and metrics.
func WithService(name string) Option {
	return func(c *Client) { c.service = name }
}

// WithUserAgent sets the User-Agent header on every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithMetrics records upstream responses and retries.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client.
func New(opts ...Option) *Client {
	c := &Client{
		http:     &http.Client{Transport: sharedTransport, Timeout: DefaultTimeout},
		service:  "upstream",
		attempts: DefaultAttempts,
		backoff:  DefaultBackoff,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.Component(c.logger, "http."+c.service)
	return c
}

// Do sends req exactly once and buffers the response body.
func (c *Client) Do(req *http.Request) (*Response, error) {
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	c.metrics.Upstream(c.service, resp.StatusCode)

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// StdClient returns an *http.Client for SDKs that build their own requests.
// It shares c's transport, timeout and User-Agent, counts responses in c's
// metrics and never retries.
func (c *Client) StdClient() *http.Client {
	return &http.Client{Transport: &observedTransport{c: c}, Timeout: c.http.Timeout}
}

type observedTransport struct {
	c *Client
}

func (t *observedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.c.userAgent)
	}

	base := t.c.http.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	t.c.metrics.Upstream(t.c.service, resp.StatusCode)
	return resp, nil
}

// Get issues a GET with retries. Transport errors and statuses >= 400 are
// retried with exponential backoff. After the last attempt a transport error
// is returned as an error, while an HTTP error status is returned as a
// Response with a nil error so the caller can inspect it.
func (c *Client) Get(ctx context.Context, rawURL string, params url.Values, header http.Header) (*Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing url: %w", err)
	}
	if len(params) > 0 {
		q := u.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	delay := c.backoff
	var (
		resp    *Response
		lastErr error
	)

	for attempt := 1; attempt <= c.attempts; attempt++ {
		if attempt > 1 {
			c.metrics.Retry(u.Host)
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
			delay *= 2
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}

		resp, lastErr = c.Do(req)
		if lastErr == nil && resp.StatusCode < 400 {
			return resp, nil
		}

		if lastErr != nil {
			c.logger.Debug("request failed", "url", u.Redacted(), "attempt", attempt, "err", lastErr)
		} else {
			c.logger.Debug("request failed", "url", u.Redacted(), "attempt", attempt, "status", resp.StatusCode)
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return resp, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
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

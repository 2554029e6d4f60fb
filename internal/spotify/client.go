// Package spotify wraps the zmb3 Web API client for a single access token,
// converting its objects into the flattened shapes spotigen serves.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"

	"github.com/justestif/spotigen/internal/dedupe"
	"github.com/justestif/spotigen/internal/httpclient"
	"github.com/justestif/spotigen/internal/logging"
	"github.com/justestif/spotigen/internal/metrics"
)

// DefaultBaseURL is the Spotify Web API root.
const DefaultBaseURL = "https://api.spotify.com/v1"

var (
	// ErrPlaylistNotFound is wrapped by NotFoundError.
	ErrPlaylistNotFound = errors.New("playlist not found")

	// ErrInvalidArgument is wrapped by errors for input rejected before any
	// request is sent.
	ErrInvalidArgument = errors.New("invalid argument")
)

// APIError is returned for any non-2xx response from the Web API.
type APIError struct {
	Op     string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("spotify: %s: status %d: %s", e.Op, e.Status, e.Body)
}

// Unauthorized reports whether the caller must re-authenticate.
func (e *APIError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

// NotFoundError is returned when a playlist name cannot be resolved.
// Suggestion holds the closest scanned name, if any was reasonably close.
type NotFoundError struct {
	Ref        string
	Suggestion string
}

func (e *NotFoundError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("playlist %q not found (did you mean %q?)", e.Ref, e.Suggestion)
	}
	return fmt.Sprintf("playlist %q not found", e.Ref)
}

func (e *NotFoundError) Unwrap() error { return ErrPlaylistNotFound }

// Client wraps the Spotify API client with convenience methods. It is cheap
// to create and meant to live for a single inbound request; connections are
// pooled by the underlying HTTP client.
type Client struct {
	api     *spotify.Client
	baseURL string
	http    *httpclient.Client
	seen    *dedupe.SeenSet
	logger  *log.Logger
	metrics *metrics.Metrics

	mu        sync.Mutex
	accountID string
	resolved  map[string]string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides DefaultBaseURL.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets the outbound client.
func WithHTTPClient(hc *httpclient.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithSeenSet enables recommendation dedupe.
func WithSeenSet(s *dedupe.SeenSet) Option {
	return func(c *Client) { c.seen = s }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMetrics records best-effort failures.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a Client for token. Requests are never retried.
func New(token string, opts ...Option) *Client {
	c := &Client{
		baseURL:  DefaultBaseURL,
		resolved: make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = httpclient.New(httpclient.WithService("spotify"), httpclient.WithMetrics(c.metrics))
	}
	c.logger = logging.Component(c.logger, "spotify")

	hc := c.http.StdClient()
	hc.Transport = &oauth2.Transport{
		Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
		Base:   &failureTransport{base: hc.Transport},
	}
	c.api = spotify.New(hc, spotify.WithBaseURL(c.baseURL+"/"))
	return c
}

// AccountID returns the current user's id, cached for the lifetime of the Client.
// Any non-2xx answer is reported as a 401 APIError.
func (c *Client) AccountID(ctx context.Context) (string, error) {
	c.mu.Lock()
	id := c.accountID
	c.mu.Unlock()
	if id != "" {
		return id, nil
	}

	user, err := c.Profile(ctx)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return "", &APIError{Op: "get account", Status: http.StatusUnauthorized, Body: apiErr.Body}
		}
		return "", err
	}

	c.mu.Lock()
	c.accountID = user.ID
	c.mu.Unlock()
	return user.ID, nil
}

// Profile returns the current user's profile.
func (c *Client) Profile(ctx context.Context) (*User, error) {
	var user *spotify.PrivateUser
	err := c.call(ctx, "get profile", func(ctx context.Context) (err error) {
		user, err = c.api.CurrentUser(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return convertUser(user), nil
}

// Package lastfm provides Last.fm API integration for track tags and listening history.
package lastfm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/justestif/spotigen/internal/httpclient"
	"github.com/justestif/spotigen/internal/kvstore"
	"github.com/justestif/spotigen/internal/respcache"
)

const (
	baseURL   = "https://ws.audioscrobbler.com/2.0/"
	userAgent = "spotigen/1.0"

	cachePrefix = "lastfm:raw"
	cacheTTL    = 6 * time.Hour

	defaultTagLimit     = 5
	defaultRecentLimit  = 50
	scrobbleHistorySize = 200
)

// Last.fm API error codes.
const (
	errCodeInvalidParams = 6
	errCodeInvalidAPIKey = 10
	errCodeRateLimited   = 29
)

// Sentinel errors.
var (
	// ErrRateLimited is returned when the API rate limit is exceeded after retries.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrInvalidAPIKey is returned when the API key is invalid.
	ErrInvalidAPIKey = errors.New("invalid API key")

	// ErrInvalidParams is returned when Last.fm rejects the request parameters.
	ErrInvalidParams = errors.New("invalid parameters")
)

// Config holds Last.fm API configuration. Both fields are optional: without an
// API key every lookup returns an empty result, and history lookups also need
// a username.
type Config struct {
	APIKey   string
	Username string
}

// Client is a Last.fm API client with a shared response cache.
type Client struct {
	apiKey   string
	username string
	baseURL  string
	http     *httpclient.Client
	cache    *respcache.Cache
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient sets the outbound client.
func WithHTTPClient(hc *httpclient.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithCache sets the response cache.
func WithCache(rc *respcache.Cache) Option {
	return func(c *Client) { c.cache = rc }
}

// NewClient creates a new Last.fm API client from the provided configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	c := &Client{
		apiKey:   cfg.APIKey,
		username: cfg.Username,
		baseURL:  baseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = httpclient.New(httpclient.WithService("lastfm"), httpclient.WithUserAgent(userAgent))
	}
	if c.cache == nil {
		c.cache = respcache.New(kvstore.NewMemory())
	}
	return c
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

// GetTags fetches tags for a track, falling back to artist tags if track has none.
// Returns an empty slice (not nil) if no tags are found or no API key is configured.
func (c *Client) GetTags(ctx context.Context, artist, track string) ([]Tag, error) {
	if !c.Enabled() {
		return []Tag{}, nil
	}

	tags, err := c.getTrackTags(ctx, artist, track)
	if err != nil {
		return nil, err
	}

	if len(tags) > 0 {
		return tags, nil
	}

	return c.getArtistTags(ctx, artist)
}

// TrackTags returns the names of the top limit tags for a track.
func (c *Client) TrackTags(ctx context.Context, artist, title string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = defaultTagLimit
	}

	tags, err := c.GetTags(ctx, artist, title)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, min(limit, len(tags)))
	for _, t := range tags {
		if len(names) == limit {
			break
		}
		names = append(names, t.Name)
	}
	return names, nil
}

// RecentTracks returns the configured user's most recent scrobbles.
func (c *Client) RecentTracks(ctx context.Context, limit int) ([]Scrobble, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	return c.recentTracks(ctx, map[string]string{
		"limit": strconv.Itoa(limit),
	})
}

// ScrobbleHistory returns the configured user's scrobbles between from and to.
func (c *Client) ScrobbleHistory(ctx context.Context, from, to time.Time) ([]Scrobble, error) {
	return c.recentTracks(ctx, map[string]string{
		"from":  strconv.FormatInt(from.Unix(), 10),
		"to":    strconv.FormatInt(to.Unix(), 10),
		"limit": strconv.Itoa(scrobbleHistorySize),
	})
}

func (c *Client) recentTracks(ctx context.Context, params map[string]string) ([]Scrobble, error) {
	if !c.Enabled() || c.username == "" {
		return []Scrobble{}, nil
	}

	params["method"] = "user.getRecentTracks"
	params["user"] = c.username

	body, err := c.doRequest(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("fetching recent tracks: %w", err)
	}

	var resp recentTracksResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing recent tracks response: %w", err)
	}

	scrobbles := make([]Scrobble, 0, len(resp.RecentTracks.Track))
	for _, t := range resp.RecentTracks.Track {
		s := Scrobble{
			Artist:     t.Artist.Text,
			Title:      t.Name,
			Album:      t.Album.Text,
			NowPlaying: t.Attr.NowPlaying == "true",
		}
		if uts, err := strconv.ParseInt(t.Date.UTS, 10, 64); err == nil {
			s.PlayedAt = time.Unix(uts, 0).UTC()
		}
		scrobbles = append(scrobbles, s)
	}
	return scrobbles, nil
}

// getTrackTags fetches tags for a specific track.
func (c *Client) getTrackTags(ctx context.Context, artist, track string) ([]Tag, error) {
	body, err := c.doRequest(ctx, map[string]string{
		"method":      "track.getTopTags",
		"artist":      artist,
		"track":       track,
		"autocorrect": "1",
	})
	if errors.Is(err, ErrInvalidParams) {
		// Unknown track.
		return []Tag{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching track tags: %w", err)
	}

	var resp trackTagsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing track tags response: %w", err)
	}

	tags := resp.TopTags.Tag
	if tags == nil {
		tags = []Tag{}
	}
	return tags, nil
}

// getArtistTags fetches tags for an artist.
func (c *Client) getArtistTags(ctx context.Context, artist string) ([]Tag, error) {
	body, err := c.doRequest(ctx, map[string]string{
		"method":      "artist.getTopTags",
		"artist":      artist,
		"autocorrect": "1",
	})
	if errors.Is(err, ErrInvalidParams) {
		// Unknown artist.
		return []Tag{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching artist tags: %w", err)
	}

	var resp artistTagsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing artist tags response: %w", err)
	}

	tags := resp.TopTags.Tag
	if tags == nil {
		tags = []Tag{}
	}
	return tags, nil
}

// doRequest returns the raw body for params, served from the cache when possible.
// Retries with backoff are handled by the HTTP client.
func (c *Client) doRequest(ctx context.Context, params map[string]string) ([]byte, error) {
	return c.cache.Fetch(ctx, cachePrefix, params, cacheTTL, func(ctx context.Context) ([]byte, error) {
		q := url.Values{}
		for k, v := range params {
			q.Set(k, v)
		}
		q.Set("api_key", c.apiKey)
		q.Set("format", "json")

		resp, err := c.http.Get(ctx, c.baseURL, q, nil)
		if err != nil {
			return nil, fmt.Errorf("executing request: %w", err)
		}
		return checkResponse(resp)
	})
}

// checkResponse maps Last.fm error payloads and unexpected statuses to errors.
func checkResponse(resp *httpclient.Response) ([]byte, error) {
	var apiErr apiError
	if err := json.Unmarshal(resp.Body, &apiErr); err == nil && apiErr.Error != 0 {
		switch apiErr.Error {
		case errCodeRateLimited:
			return nil, ErrRateLimited
		case errCodeInvalidAPIKey:
			return nil, ErrInvalidAPIKey
		case errCodeInvalidParams:
			return nil, fmt.Errorf("%w: %s", ErrInvalidParams, apiErr.Message)
		default:
			return nil, fmt.Errorf("API error %d: %s", apiErr.Error, apiErr.Message)
		}
	}

	if !resp.OK() {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return resp.Body, nil
}

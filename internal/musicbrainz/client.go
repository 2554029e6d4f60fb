// Package musicbrainz looks up the original release year of recordings.
package musicbrainz

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/justestif/spotigen/internal/httpclient"
	"github.com/justestif/spotigen/internal/kvstore"
	"github.com/justestif/spotigen/internal/respcache"
)

const (
	baseURL   = "https://musicbrainz.org/ws/2/"
	userAgent = "spotigen"

	cachePrefix = "mb:recording"
	cacheTTL    = 48 * time.Hour
)

// Client queries the MusicBrainz recording search. Requests are paced to one
// per second, as required by the MusicBrainz usage policy.
type Client struct {
	baseURL string
	http    *httpclient.Client
	cache   *respcache.Cache
	limiter *rate.Limiter
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

// WithRateLimit overrides the request pacing.
func WithRateLimit(l rate.Limit) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(l, 1) }
}

// NewClient creates a Client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = httpclient.New(httpclient.WithService("musicbrainz"))
	}
	if c.cache == nil {
		c.cache = respcache.New(kvstore.NewMemory())
	}
	return c
}

type recordingResponse struct {
	Recordings []struct {
		Releases []struct {
			Date string `json:"date"`
		} `json:"releases"`
	} `json:"recordings"`
}

// FirstReleaseYear returns the earliest release year of the best matching
// recording. found is false when MusicBrainz has no dated release or answers
// with a non-200 status. Only found years are cached.
func (c *Client) FirstReleaseYear(ctx context.Context, artist, title string) (year int, found bool, err error) {
	params := map[string]string{"a": artist, "t": title}

	body, err := c.cache.Fetch(ctx, cachePrefix, params, cacheTTL, func(ctx context.Context) ([]byte, error) {
		y, ok, err := c.lookup(ctx, artist, title)
		if err != nil || !ok {
			return nil, err
		}
		return []byte(strconv.Itoa(y)), nil
	})
	if err != nil {
		return 0, false, err
	}
	if body == nil {
		return 0, false, nil
	}

	year, err = strconv.Atoi(string(body))
	if err != nil {
		return 0, false, fmt.Errorf("parsing cached year: %w", err)
	}
	return year, true, nil
}

// phraseEscaper escapes the characters that can end a quoted Lucene phrase.
var phraseEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func recordingQuery(artist, title string) string {
	return fmt.Sprintf(`artist:"%s" AND recording:"%s"`, phraseEscaper.Replace(artist), phraseEscaper.Replace(title))
}

func (c *Client) lookup(ctx context.Context, artist, title string) (int, bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, false, err
	}

	q := url.Values{
		"query": {recordingQuery(artist, title)},
		"fmt":   {"json"},
		"inc":   {"releases"},
		"limit": {"1"},
	}
	header := http.Header{"User-Agent": {userAgent}}

	resp, err := c.http.Get(ctx, c.baseURL+"recording", q, header)
	if err != nil {
		return 0, false, fmt.Errorf("querying musicbrainz: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, false, nil
	}

	var data recordingResponse
	if err := json.Unmarshal(resp.Body, &data); err != nil {
		return 0, false, fmt.Errorf("parsing recording response: %w", err)
	}

	year, found := 0, false
	for _, rec := range data.Recordings {
		for _, rel := range rec.Releases {
			y, err := strconv.Atoi(strings.SplitN(rel.Date, "-", 2)[0])
			if err != nil {
				continue
			}
			if !found || y < year {
				year, found = y, true
			}
		}
	}
	return year, found, nil
}

package lastfm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/justestif/spotigen/internal/httpclient"
	"github.com/justestif/spotigen/internal/kvstore"
	"github.com/justestif/spotigen/internal/respcache"
)

func trackTags(tags ...Tag) trackTagsResponse {
	var r trackTagsResponse
	r.TopTags.Tag = tags
	return r
}

func artistTags(tags ...Tag) artistTagsResponse {
	var r artistTagsResponse
	r.TopTags.Tag = tags
	return r
}

func newTestClient(server *httptest.Server, cfg Config) *Client {
	return NewClient(cfg,
		WithBaseURL(server.URL+"/"),
		WithHTTPClient(httpclient.New(
			httpclient.WithHTTPClient(server.Client()),
			httpclient.WithRetry(3, 0),
		)),
		WithCache(respcache.New(kvstore.NewMemory())),
	)
}

func TestGetTags(t *testing.T) {
	tests := []struct {
		name           string
		trackResponse  any
		artistResponse any
		wantTags       []string
		wantErr        error
	}{
		{
			name: "track has tags",
			trackResponse: trackTags(
				Tag{Name: "alternative", Count: 100},
				Tag{Name: "rock", Count: 80},
			),
			wantTags: []string{"alternative", "rock"},
		},
		{
			name:           "track empty falls back to artist",
			trackResponse:  trackTags(),
			artistResponse: artistTags(Tag{Name: "pop"}, Tag{Name: "dance"}),
			wantTags:       []string{"pop", "dance"},
		},
		{
			name:           "unknown track falls back to artist",
			trackResponse:  apiError{Error: 6, Message: "Track not found"},
			artistResponse: artistTags(Tag{Name: "jazz"}),
			wantTags:       []string{"jazz"},
		},
		{
			name:           "both empty returns empty slice",
			trackResponse:  trackTags(),
			artistResponse: artistTags(),
			wantTags:       []string{},
		},
		{
			name:          "invalid API key",
			trackResponse: apiError{Error: 10, Message: "Invalid API key"},
			wantErr:       ErrInvalidAPIKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				q := r.URL.Query()
				if q.Get("api_key") != "test-api-key" || q.Get("format") != "json" {
					t.Errorf("query = %v", q)
				}

				var resp any
				switch q.Get("method") {
				case "track.getTopTags":
					resp = tt.trackResponse
				case "artist.getTopTags":
					resp = tt.artistResponse
				default:
					t.Fatalf("unexpected method: %s", q.Get("method"))
				}

				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(resp)
			}))
			defer server.Close()

			client := newTestClient(server, Config{APIKey: "test-api-key"})

			tags, err := client.GetTags(context.Background(), "Artist", "Track")

			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("GetTags() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if tags == nil {
				t.Fatal("GetTags() returned nil slice")
			}
			if len(tags) != len(tt.wantTags) {
				t.Fatalf("GetTags() got %d tags, want %d", len(tags), len(tt.wantTags))
			}
			for i, tag := range tags {
				if tag.Name != tt.wantTags[i] {
					t.Errorf("GetTags() tag[%d].Name = %s, want %s", i, tag.Name, tt.wantTags[i])
				}
			}
		})
	}
}

func TestGetTags_Caching(t *testing.T) {
	var requestCount atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount.Add(1)
		json.NewEncoder(w).Encode(trackTags(Tag{Name: "rock", Count: 100}))
	}))
	defer server.Close()

	client := newTestClient(server, Config{APIKey: "test-api-key"})

	for i := 0; i < 2; i++ {
		tags, err := client.GetTags(context.Background(), "Artist", "Track")
		if err != nil {
			t.Fatalf("GetTags() call %d error = %v", i+1, err)
		}
		if len(tags) != 1 {
			t.Fatalf("GetTags() call %d got %d tags, want 1", i+1, len(tags))
		}
	}

	if count := requestCount.Load(); count != 1 {
		t.Errorf("Expected 1 request, got %d", count)
	}
}

func TestGetTags_RateLimitRetry(t *testing.T) {
	var requestCount atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requestCount.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(apiError{Error: 29, Message: "Rate limit exceeded"})
			return
		}
		json.NewEncoder(w).Encode(trackTags(Tag{Name: "rock", Count: 100}))
	}))
	defer server.Close()

	client := newTestClient(server, Config{APIKey: "test-api-key"})

	tags, err := client.GetTags(context.Background(), "Artist", "Track")
	if err != nil {
		t.Fatalf("GetTags() error = %v", err)
	}
	if len(tags) != 1 || tags[0].Name != "rock" {
		t.Errorf("GetTags() got unexpected tags: %v", tags)
	}
	if count := requestCount.Load(); count != 3 {
		t.Errorf("Expected 3 requests, got %d", count)
	}
}

func TestGetTags_RateLimitExhausted(t *testing.T) {
	var requestCount atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(apiError{Error: 29, Message: "Rate limit exceeded"})
	}))
	defer server.Close()

	client := newTestClient(server, Config{APIKey: "test-api-key"})

	_, err := client.GetTags(context.Background(), "Artist", "Track")
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("GetTags() error = %v, want ErrRateLimited", err)
	}
	if count := requestCount.Load(); count != 3 {
		t.Errorf("Expected 3 requests, got %d", count)
	}
}

func TestTrackTags_Limit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(trackTags(Tag{Name: "a"}, Tag{Name: "b"}, Tag{Name: "c"}))
	}))
	defer server.Close()

	client := newTestClient(server, Config{APIKey: "k"})

	names, err := client.TrackTags(context.Background(), "A", "T", 2)
	if err != nil {
		t.Fatalf("TrackTags() error = %v", err)
	}
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("TrackTags() = %v", names)
	}
}

func TestRecentTracks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("method") != "user.getRecentTracks" || q.Get("user") != "listener" {
			t.Errorf("query = %v", q)
		}
		if q.Get("limit") != "50" {
			t.Errorf("limit = %q, want 50", q.Get("limit"))
		}
		w.Write([]byte(`{"recenttracks":{"track":[
			{"name":"Now","artist":{"#text":"A"},"album":{"#text":"X"},"@attr":{"nowplaying":"true"}},
			{"name":"Then","artist":{"#text":"B"},"album":{"#text":"Y"},"date":{"uts":"1700000000"}}
		]}}`))
	}))
	defer server.Close()

	client := newTestClient(server, Config{APIKey: "k", Username: "listener"})

	got, err := client.RecentTracks(context.Background(), 0)
	if err != nil {
		t.Fatalf("RecentTracks() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("RecentTracks() returned %d scrobbles, want 2", len(got))
	}
	if !got[0].NowPlaying || got[0].Artist != "A" {
		t.Errorf("first scrobble = %+v", got[0])
	}
	if !got[1].PlayedAt.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("PlayedAt = %v", got[1].PlayedAt)
	}
}

func TestScrobbleHistory_Params(t *testing.T) {
	from := time.Unix(1000, 0)
	to := time.Unix(2000, 0)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("from") != "1000" || q.Get("to") != "2000" || q.Get("limit") != "200" {
			t.Errorf("query = %v", q)
		}
		w.Write([]byte(`{"recenttracks":{"track":[]}}`))
	}))
	defer server.Close()

	client := newTestClient(server, Config{APIKey: "k", Username: "listener"})

	got, err := client.ScrobbleHistory(context.Background(), from, to)
	if err != nil {
		t.Fatalf("ScrobbleHistory() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("ScrobbleHistory() = %v", got)
	}
}

func TestDisabledClientMakesNoRequests(t *testing.T) {
	var requestCount atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount.Add(1)
	}))
	defer server.Close()

	ctx := context.Background()

	noKey := newTestClient(server, Config{})
	if tags, err := noKey.GetTags(ctx, "A", "T"); err != nil || len(tags) != 0 {
		t.Errorf("GetTags() = %v, %v", tags, err)
	}

	noUser := newTestClient(server, Config{APIKey: "k"})
	if s, err := noUser.RecentTracks(ctx, 10); err != nil || len(s) != 0 {
		t.Errorf("RecentTracks() = %v, %v", s, err)
	}

	if count := requestCount.Load(); count != 0 {
		t.Errorf("Expected 0 requests, got %d", count)
	}
}

func TestNewClient(t *testing.T) {
	client := NewClient(Config{APIKey: "test-key"})

	if client.apiKey != "test-key" {
		t.Errorf("NewClient() apiKey = %s, want test-key", client.apiKey)
	}
	if client.http == nil {
		t.Error("NewClient() http is nil")
	}
	if client.cache == nil {
		t.Error("NewClient() cache is nil")
	}
	if client.baseURL != baseURL {
		t.Errorf("NewClient() baseURL = %s, want %s", client.baseURL, baseURL)
	}
}

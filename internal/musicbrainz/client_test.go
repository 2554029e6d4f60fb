package musicbrainz

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"golang.org/x/time/rate"

	"github.com/justestif/spotigen/internal/httpclient"
	"github.com/justestif/spotigen/internal/kvstore"
	"github.com/justestif/spotigen/internal/respcache"
)

func newTestClient(server *httptest.Server) *Client {
	return NewClient(
		WithBaseURL(server.URL+"/"),
		WithHTTPClient(httpclient.New(
			httpclient.WithHTTPClient(server.Client()),
			httpclient.WithRetry(1, 0),
		)),
		WithCache(respcache.New(kvstore.NewMemory())),
		WithRateLimit(rate.Inf),
	)
}

func TestFirstReleaseYear(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantYear  int
		wantFound bool
	}{
		{
			name:      "earliest of several dates",
			status:    http.StatusOK,
			body:      `{"recordings":[{"releases":[{"date":"1999-05-01"},{"date":"1997"},{"date":""},{"date":"bogus"}]}]}`,
			wantYear:  1997,
			wantFound: true,
		},
		{
			name:   "no releases",
			status: http.StatusOK,
			body:   `{"recordings":[]}`,
		},
		{
			name:   "non-200 is not found",
			status: http.StatusServiceUnavailable,
			body:   `{}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/recording" {
					t.Errorf("path = %s", r.URL.Path)
				}
				q := r.URL.Query()
				if q.Get("query") != `artist:"Radiohead" AND recording:"Creep"` {
					t.Errorf("query = %q", q.Get("query"))
				}
				if q.Get("fmt") != "json" || q.Get("inc") != "releases" || q.Get("limit") != "1" {
					t.Errorf("params = %v", q)
				}
				if r.Header.Get("User-Agent") != userAgent {
					t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			year, found, err := newTestClient(server).FirstReleaseYear(context.Background(), "Radiohead", "Creep")
			if err != nil {
				t.Fatalf("FirstReleaseYear() error = %v", err)
			}
			if year != tt.wantYear || found != tt.wantFound {
				t.Errorf("FirstReleaseYear() = %d, %v; want %d, %v", year, found, tt.wantYear, tt.wantFound)
			}
		})
	}
}

func TestRecordingQuery(t *testing.T) {
	tests := []struct {
		name   string
		artist string
		title  string
		want   string
	}{
		{
			name:   "plain",
			artist: "Radiohead",
			title:  "Creep",
			want:   `artist:"Radiohead" AND recording:"Creep"`,
		},
		{
			name:   "embedded quotes",
			artist: `Panic! "At" the Disco`,
			title:  `"Heroes"`,
			want:   `artist:"Panic! \"At\" the Disco" AND recording:"\"Heroes\""`,
		},
		{
			name:   "trailing backslash",
			artist: `AC\`,
			title:  `T.N.T`,
			want:   `artist:"AC\\" AND recording:"T.N.T"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := recordingQuery(tt.artist, tt.title); got != tt.want {
				t.Errorf("recordingQuery() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFirstReleaseYear_QuotedTitle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("query"); got != `artist:"David Bowie" AND recording:"\"Heroes\""` {
			t.Errorf("query = %s", got)
		}
		w.Write([]byte(`{"recordings":[{"releases":[{"date":"1977-09-23"}]}]}`))
	}))
	defer server.Close()

	year, found, err := newTestClient(server).FirstReleaseYear(context.Background(), "David Bowie", `"Heroes"`)
	if err != nil || !found || year != 1977 {
		t.Errorf("FirstReleaseYear() = %d, %v, %v; want 1977", year, found, err)
	}
}

func TestFirstReleaseYear_CachesOnlyFound(t *testing.T) {
	var requestCount atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount.Add(1)
		if r.URL.Query().Get("query") == `artist:"A" AND recording:"missing"` {
			w.Write([]byte(`{"recordings":[]}`))
			return
		}
		w.Write([]byte(`{"recordings":[{"releases":[{"date":"2001-01-01"}]}]}`))
	}))
	defer server.Close()

	c := newTestClient(server)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if y, ok, err := c.FirstReleaseYear(ctx, "A", "found"); err != nil || !ok || y != 2001 {
			t.Fatalf("FirstReleaseYear(found) = %d, %v, %v", y, ok, err)
		}
		if _, ok, err := c.FirstReleaseYear(ctx, "A", "missing"); err != nil || ok {
			t.Fatalf("FirstReleaseYear(missing) = %v, %v", ok, err)
		}
	}

	// one request for the found title, two for the missing one
	if count := requestCount.Load(); count != 3 {
		t.Errorf("Expected 3 requests, got %d", count)
	}
}

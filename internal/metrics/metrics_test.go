package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Upstream("spotify", 200)
	m.Retry("example.com")
	m.Refresh(true)
	m.Cache("lastfm:raw", false)
	m.Degraded("dedupe")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.Upstream("spotify", 401)
	m.Refresh(false)
	m.Cache("mb:recording", true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		`spotigen_upstream_requests_total{service="spotify",status="401"} 1`,
		`spotigen_token_refreshes_total{outcome="failure"} 1`,
		`spotigen_enrichment_cache_total{prefix="mb:recording",result="hit"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

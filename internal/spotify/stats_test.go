package spotify

import (
	"context"
	"math"
	"net/http"
	"reflect"
	"testing"
)

func TestCountGenres(t *testing.T) {
	artists := []Artist{
		{Genres: []string{"rock", "alt rock"}},
		{Genres: []string{"rock", "indie"}},
		{Genres: []string{"indie"}},
		{Genres: []string{"jazz"}},
	}

	got := countGenres(artists, 3)
	want := []GenreCount{{"indie", 2}, {"rock", 2}, {"alt rock", 1}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("countGenres() = %v, want %v", got, want)
	}
}

func TestMeanFeatures(t *testing.T) {
	if meanFeatures(nil) != nil {
		t.Error("meanFeatures(nil) should be nil")
	}

	got := meanFeatures([]AudioFeatures{
		{Energy: 0.2, Tempo: 100, Loudness: -4},
		{Energy: 0.6, Tempo: 140, Loudness: -8},
	})
	if math.Abs(got.Energy-0.4) > 1e-9 || got.Tempo != 120 || got.Loudness != -6 {
		t.Errorf("meanFeatures() = %+v", got)
	}
}

func TestStats(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/me/top/tracks":
			if r.URL.Query().Get("time_range") != LongTerm || r.URL.Query().Get("limit") != "50" {
				t.Errorf("query = %v", r.URL.Query())
			}
			writeJSON(t, w, map[string]any{"items": []map[string]any{
				{"id": "t1", "name": "One"},
				{"id": "t2", "name": "Two"},
			}})
		case "/me/top/artists":
			writeJSON(t, w, map[string]any{"items": []map[string]any{
				{"id": "a1", "genres": []string{"rock"}},
				{"id": "a2", "genres": []string{"rock", "pop"}},
			}})
		case "/audio-features":
			if r.URL.Query().Get("ids") != "t1,t2" {
				t.Errorf("ids = %q", r.URL.Query().Get("ids"))
			}
			writeJSON(t, w, map[string]any{"audio_features": []any{
				map[string]any{"id": "t1", "energy": 0.5},
				nil,
			}})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	stats, err := c.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if len(stats.TopTracks) != 2 || len(stats.TopArtists) != 2 {
		t.Errorf("Stats() = %d tracks, %d artists", len(stats.TopTracks), len(stats.TopArtists))
	}
	if len(stats.TopGenres) == 0 || stats.TopGenres[0] != (GenreCount{"rock", 2}) {
		t.Errorf("TopGenres = %v", stats.TopGenres)
	}
	if stats.AudioFeatures == nil || stats.AudioFeatures.Energy != 0.5 {
		t.Errorf("AudioFeatures = %+v", stats.AudioFeatures)
	}
}

func TestStats_AudioFeaturesOptional(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/audio-features":
			w.WriteHeader(http.StatusForbidden)
		default:
			writeJSON(t, w, map[string]any{"items": []map[string]any{{"id": "x1"}}})
		}
	})

	stats, err := c.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.AudioFeatures != nil {
		t.Errorf("AudioFeatures = %+v, want nil", stats.AudioFeatures)
	}
}

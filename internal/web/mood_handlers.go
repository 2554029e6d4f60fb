package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/justestif/spotigen/internal/clustering"
)

type moodsResponse[T any] struct {
	Groups   []clustering.Group[T] `json:"groups"`
	Outliers []T                   `json:"outliers"`
}

func newMoodsResponse[T any](groups []clustering.Group[T], outliers []T) moodsResponse[T] {
	if groups == nil {
		groups = []clustering.Group[T]{}
	}
	if outliers == nil {
		outliers = []T{}
	}
	return moodsResponse[T]{Groups: groups, Outliers: outliers}
}

// PlaylistMoods clusters a playlist's tracks (GET /playlist/{ref}/moods).
// by=tags (default) clusters on Last.fm tags, by=audio on audio features;
// k and min_size tune the clustering.
func (h *Handlers) PlaylistMoods(w http.ResponseWriter, r *http.Request) {
	cfg := clustering.DefaultConfig()
	var err error
	if cfg.NumClusters, err = intParam(r, "k", cfg.NumClusters); err != nil {
		h.writeError(w, r, err)
		return
	}
	if cfg.MinClusterSize, err = intParam(r, "min_size", cfg.MinClusterSize); err != nil {
		h.writeError(w, r, err)
		return
	}
	if cfg.NumClusters < 1 || cfg.NumClusters > 10 {
		h.writeError(w, r, badRequest("k must be between 1 and 10"))
		return
	}

	by := r.URL.Query().Get("by")
	switch by {
	case "", "tags", "audio":
	default:
		h.writeError(w, r, badRequest("by must be tags or audio"))
		return
	}
	if by != "audio" && h.tags == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "tag enrichment not configured"})
		return
	}

	client := clientFrom(r.Context())
	id, err := client.ResolvePlaylistID(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	tracks, err := client.PlaylistTracks(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if by == "audio" {
		ids := make([]string, 0, len(tracks))
		for _, t := range tracks {
			if tid := t.ID(); tid != "" {
				ids = append(ids, tid)
			}
		}
		features, err := client.AudioFeatures(r.Context(), ids)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		groups, outliers, err := clustering.ByAudioFeatures(tracks, features, cfg)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newMoodsResponse(groups, outliers))
		return
	}

	tagged, err := h.tags.FetchTagsForTracks(r.Context(), tracks)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	groups, outliers, err := clustering.ByTags(tagged, cfg)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newMoodsResponse(groups, outliers))
}

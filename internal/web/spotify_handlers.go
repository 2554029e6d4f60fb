package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/justestif/spotigen/internal/spotify"
)

// FindPlaylist returns the first playlist whose name contains ?name (GET /playlist).
func (h *Handlers) FindPlaylist(w http.ResponseWriter, r *http.Request) {
	name, err := requiredParam(r, "name")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	pl, err := clientFrom(r.Context()).FindPlaylist(r.Context(), name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if pl == nil {
		h.writeError(w, r, &spotify.NotFoundError{Ref: name})
		return
	}
	writeJSON(w, http.StatusOK, pl)
}

// CreatePlaylist creates a playlist from ?name and ?public (POST /playlist).
func (h *Handlers) CreatePlaylist(w http.ResponseWriter, r *http.Request) {
	name, err := requiredParam(r, "name")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	public := false
	if raw := r.URL.Query().Get("public"); raw != "" {
		if public, err = strconv.ParseBool(raw); err != nil {
			h.writeError(w, r, badRequest("public must be a boolean"))
			return
		}
	}

	id, err := clientFrom(r.Context()).CreatePlaylist(r.Context(), name, public)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"playlist_id": id})
}

// PlaylistTracks lists a playlist by ID or name (GET /playlist/{ref}/tracks).
// With ?enrich=tags every track carries its Last.fm tags.
func (h *Handlers) PlaylistTracks(w http.ResponseWriter, r *http.Request) {
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

	if r.URL.Query().Get("enrich") == "tags" && h.tags != nil {
		tagged, err := h.tags.FetchTagsForTracks(r.Context(), tracks)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, tagged)
		return
	}

	writeJSON(w, http.StatusOK, tracks)
}

// AddTracks adds tracks by title (POST /playlist/{ref}/tracks).
func (h *Handlers) AddTracks(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Titles []string `json:"track_titles"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	client := clientFrom(r.Context())
	id, err := client.ResolvePlaylistID(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	added, err := client.AddTracksByTitle(r.Context(), id, req.Titles)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"added": added})
}

// RemoveTracks removes tracks by URI (DELETE /playlist/{ref}/tracks).
func (h *Handlers) RemoveTracks(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URIs []string `json:"track_uris"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	client := clientFrom(r.Context())
	id, err := client.ResolvePlaylistID(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := client.RemoveTracks(r.Context(), id, req.URIs); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Play starts or resumes playback (POST /play). ?uris is a comma-separated list.
func (h *Handlers) Play(w http.ResponseWriter, r *http.Request) {
	opts := spotify.PlayOptions{DeviceID: r.URL.Query().Get("device_id")}
	if uris := r.URL.Query().Get("uris"); uris != "" {
		opts.URIs = splitList(uris)
	}
	h.respondOK(w, r, clientFrom(r.Context()).Play(r.Context(), opts))
}

// Pause pauses playback (POST /pause).
func (h *Handlers) Pause(w http.ResponseWriter, r *http.Request) {
	h.respondOK(w, r, clientFrom(r.Context()).Pause(r.Context(), r.URL.Query().Get("device_id")))
}

// Next skips to the next track (POST /next).
func (h *Handlers) Next(w http.ResponseWriter, r *http.Request) {
	h.respondOK(w, r, clientFrom(r.Context()).Next(r.Context(), r.URL.Query().Get("device_id")))
}

// Previous skips to the previous track (POST /previous).
func (h *Handlers) Previous(w http.ResponseWriter, r *http.Request) {
	h.respondOK(w, r, clientFrom(r.Context()).Previous(r.Context(), r.URL.Query().Get("device_id")))
}

// Queue appends ?uri to the queue (POST /queue).
func (h *Handlers) Queue(w http.ResponseWriter, r *http.Request) {
	uri, err := requiredParam(r, "uri")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondOK(w, r, clientFrom(r.Context()).Queue(r.Context(), uri, r.URL.Query().Get("device_id")))
}

func (h *Handlers) respondOK(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Devices lists Connect devices (GET /devices).
func (h *Handlers) Devices(w http.ResponseWriter, r *http.Request) {
	devices, err := clientFrom(r.Context()).Devices(r.Context())
	respond(h, w, r, devices, err)
}

// Playlists returns a page of the user's playlists (GET /playlists).
func (h *Handlers) Playlists(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := paging(r, 20)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	playlists, err := clientFrom(r.Context()).Playlists(r.Context(), limit, offset)
	respond(h, w, r, playlists, err)
}

// LibraryTracks returns saved tracks (GET /library/tracks).
func (h *Handlers) LibraryTracks(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := paging(r, 50)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	tracks, err := clientFrom(r.Context()).LibraryTracks(r.Context(), limit, offset)
	respond(h, w, r, tracks, err)
}

// LibraryAlbums returns saved albums (GET /library/albums).
func (h *Handlers) LibraryAlbums(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := paging(r, 50)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	albums, err := clientFrom(r.Context()).LibraryAlbums(r.Context(), limit, offset)
	respond(h, w, r, albums, err)
}

// FollowedArtists returns followed artists (GET /follow/artists).
func (h *Handlers) FollowedArtists(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 50)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	artists, after, err := clientFrom(r.Context()).FollowedArtists(r.Context(), limit, r.URL.Query().Get("after"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"artists": artists, "after": after})
}

// FollowArtist follows {id} (PUT /follow/artists/{id}).
func (h *Handlers) FollowArtist(w http.ResponseWriter, r *http.Request) {
	h.respondOK(w, r, clientFrom(r.Context()).FollowArtist(r.Context(), chi.URLParam(r, "id")))
}

// UnfollowArtist unfollows {id} (DELETE /follow/artists/{id}).
func (h *Handlers) UnfollowArtist(w http.ResponseWriter, r *http.Request) {
	h.respondOK(w, r, clientFrom(r.Context()).UnfollowArtist(r.Context(), chi.URLParam(r, "id")))
}

// Search runs a catalog search (GET /search).
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	q, err := requiredParam(r, "q")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	limit, err := intParam(r, "limit", 10)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := clientFrom(r.Context()).Search(r.Context(), q, r.URL.Query().Get("type"), limit)
	respond(h, w, r, res, err)
}

// Recommend returns recommendations not given before (GET /recommend).
func (h *Handlers) Recommend(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 20)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	seeds := spotify.RecommendationSeeds{
		Tracks:  splitList(q.Get("seed_tracks")),
		Artists: splitList(q.Get("seed_artists")),
		Genres:  splitList(q.Get("seed_genres")),
	}
	tracks, err := clientFrom(r.Context()).Recommendations(r.Context(), seeds, limit)
	respond(h, w, r, tracks, err)
}

// Profile returns the current user (GET /profile).
func (h *Handlers) Profile(w http.ResponseWriter, r *http.Request) {
	user, err := clientFrom(r.Context()).Profile(r.Context())
	respond(h, w, r, user, err)
}

// Recent returns recently played tracks (GET /recent).
func (h *Handlers) Recent(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 50)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	items, err := clientFrom(r.Context()).RecentlyPlayed(r.Context(), limit)
	respond(h, w, r, items, err)
}

// TopTracks returns top tracks (GET /top/tracks).
func (h *Handlers) TopTracks(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 50)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	tracks, err := clientFrom(r.Context()).TopTracks(r.Context(), limit, r.URL.Query().Get("time_range"))
	respond(h, w, r, tracks, err)
}

// TopArtists returns top artists (GET /top/artists).
func (h *Handlers) TopArtists(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 50)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	artists, err := clientFrom(r.Context()).TopArtists(r.Context(), limit, r.URL.Query().Get("time_range"))
	respond(h, w, r, artists, err)
}

// NowPlaying returns the playback state, or 204 when idle (GET /now-playing).
func (h *Handlers) NowPlaying(w http.ResponseWriter, r *http.Request) {
	cp, err := clientFrom(r.Context()).CurrentlyPlaying(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if cp == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, cp)
}

// Stats summarizes listening habits (GET /stats).
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := clientFrom(r.Context()).Stats(r.Context())
	respond(h, w, r, stats, err)
}

// AudioFeatures returns features for ?ids (GET /audio-features).
func (h *Handlers) AudioFeatures(w http.ResponseWriter, r *http.Request) {
	ids, err := requiredParam(r, "ids")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	features, err := clientFrom(r.Context()).AudioFeatures(r.Context(), splitList(ids))
	respond(h, w, r, features, err)
}

// respond writes v as 200 JSON, or the mapped error.
func respond(h *Handlers, w http.ResponseWriter, r *http.Request, v any, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func paging(r *http.Request, defLimit int) (limit, offset int, err error) {
	if limit, err = intParam(r, "limit", defLimit); err != nil {
		return 0, 0, err
	}
	if offset, err = intParam(r, "offset", 0); err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

// splitList splits a comma-separated parameter, dropping empty items.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

package web

import (
	"net/http"
	"strconv"
	"time"
)

// LastFMTags returns the top tags of a track (GET /lastfm/tags).
func (h *Handlers) LastFMTags(w http.ResponseWriter, r *http.Request) {
	artist, err := requiredParam(r, "artist")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	title, err := requiredParam(r, "title")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	limit, err := intParam(r, "limit", 5)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	tags, err := h.lastfm.TrackTags(r.Context(), artist, title, limit)
	respond(h, w, r, tags, err)
}

// LastFMRecent returns the configured user's recent scrobbles (GET /lastfm/recent).
func (h *Handlers) LastFMRecent(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	scrobbles, err := h.lastfm.RecentTracks(r.Context(), limit)
	respond(h, w, r, scrobbles, err)
}

// LastFMScrobbles returns scrobbles between ?start and ?end, both unix seconds
// (GET /lastfm/scrobbles).
func (h *Handlers) LastFMScrobbles(w http.ResponseWriter, r *http.Request) {
	from, err := unixParam(r, "start")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	to, err := unixParam(r, "end")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	scrobbles, err := h.lastfm.ScrobbleHistory(r.Context(), from, to)
	respond(h, w, r, scrobbles, err)
}

// MusicBrainzYear returns the first release year of a recording (GET /musicbrainz/year).
func (h *Handlers) MusicBrainzYear(w http.ResponseWriter, r *http.Request) {
	artist, err := requiredParam(r, "artist")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	title, err := requiredParam(r, "title")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	year, found, err := h.musicbrainz.FirstReleaseYear(r.Context(), artist, title)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp := map[string]any{"artist": artist, "title": title, "year": nil}
	if found {
		resp["year"] = year
	}
	writeJSON(w, http.StatusOK, resp)
}

func unixParam(r *http.Request, name string) (time.Time, error) {
	raw, err := requiredParam(r, name)
	if err != nil {
		return time.Time{}, err
	}
	sec, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, badRequest("%s must be unix seconds", name)
	}
	return time.Unix(sec, 0), nil
}

package web

import (
	"io/fs"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/justestif/spotigen/internal/agent"
	"github.com/justestif/spotigen/internal/auth"
	"github.com/justestif/spotigen/internal/lastfm"
	"github.com/justestif/spotigen/internal/musicbrainz"
	"github.com/justestif/spotigen/internal/spotify"
	"github.com/justestif/spotigen/internal/tags"
)

// Handlers contains HTTP handlers for the API.
type Handlers struct {
	auth        *auth.Session
	states      *auth.StateStore
	spotifyOpts []spotify.Option
	lastfm      *lastfm.Client
	musicbrainz *musicbrainz.Client
	tags        *tags.Service
	agent       *agent.Runner
	logger      *log.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(cfg ServerConfig, logger *log.Logger) *Handlers {
	return &Handlers{
		auth:        cfg.Auth,
		states:      cfg.States,
		spotifyOpts: cfg.SpotifyOptions,
		lastfm:      cfg.LastFM,
		musicbrainz: cfg.MusicBrainz,
		tags:        cfg.Tags,
		agent:       cfg.Agent,
		logger:      logger,
	}
}

func (h *Handlers) newClient(token string) *spotify.Client {
	return spotify.New(token, h.spotifyOpts...)
}

// Home is a health check (GET /).
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to Spotigen, a Spotify assistant API!"})
}

// staticFile serves one embedded document.
func (h *Handlers) staticFile(fsys fs.FS, name, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if fsys == nil {
			http.NotFound(w, r)
			return
		}
		b, err := fs.ReadFile(fsys, name)
		if err != nil {
			h.logger.Error("reading static file", "name", name, "err", err)
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.Write(b)
	}
}

// Login starts the Spotify OAuth flow (GET /auth/login).
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	state := ""
	if h.states != nil {
		var err error
		if state, err = h.states.Issue(r.Context()); err != nil {
			h.writeError(w, r, err)
			return
		}
		setStateCookie(w, r, state)
	}

	http.Redirect(w, r, h.auth.AuthorizationURL(state), http.StatusFound)
}

// Callback exchanges the authorization code for tokens (GET /auth/callback).
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if errMsg := q.Get("error"); errMsg != "" {
		h.writeError(w, r, badRequest("Spotify auth error: %s", errMsg))
		return
	}

	if h.states != nil {
		state := q.Get("state")
		if !stateCookieMatches(r, state) {
			h.writeError(w, r, auth.ErrStateMismatch)
			return
		}
		if err := h.states.Consume(r.Context(), state); err != nil {
			h.writeError(w, r, err)
			return
		}
		clearStateCookie(w)
	}

	code := q.Get("code")
	if code == "" {
		h.writeError(w, r, badRequest("missing code"))
		return
	}

	if _, err := h.auth.Exchange(r.Context(), code); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Authentication successful."})
}

// Refresh forces a token refresh (GET /auth/refresh).
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	token, err := h.auth.ForceRefresh(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access_token": token})
}

// Logout forgets the stored tokens (POST /auth/logout).
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Agent runs a natural-language prompt through the model (POST /agent).
func (h *Handlers) Agent(w http.ResponseWriter, r *http.Request) {
	if h.agent == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "agent not configured"})
		return
	}

	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Prompt == "" {
		h.writeError(w, r, badRequest("missing prompt"))
		return
	}

	answer, err := h.agent.Run(r.Context(), clientFrom(r.Context()), req.Prompt)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"response": answer})
}

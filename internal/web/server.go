// Package web exposes the Spotify client, the token lifecycle and the
// enrichment services over HTTP.
package web

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/justestif/spotigen/internal/agent"
	"github.com/justestif/spotigen/internal/auth"
	"github.com/justestif/spotigen/internal/lastfm"
	"github.com/justestif/spotigen/internal/logging"
	"github.com/justestif/spotigen/internal/metrics"
	"github.com/justestif/spotigen/internal/musicbrainz"
	"github.com/justestif/spotigen/internal/spotify"
	"github.com/justestif/spotigen/internal/tags"
)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr string

	// Production restricts CORS to AllowedOrigins; otherwise any origin is allowed.
	Production     bool
	AllowedOrigins []string

	Auth   *auth.Session
	States *auth.StateStore

	// SpotifyOptions are applied to every per-request Spotify client.
	SpotifyOptions []spotify.Option

	LastFM      *lastfm.Client
	MusicBrainz *musicbrainz.Client
	Tags        *tags.Service

	// Agent is optional; without it POST /agent answers 503.
	Agent *agent.Runner

	Metrics  *metrics.Metrics
	Logger   *log.Logger
	StaticFS fs.FS
}

// Server is the HTTP server for the API.
type Server struct {
	router   chi.Router
	server   *http.Server
	handlers *Handlers
	logger   *log.Logger
}

// NewServer creates a new web server.
func NewServer(cfg ServerConfig) *Server {
	logger := logging.Component(cfg.Logger, "web")

	s := &Server{
		router:   chi.NewRouter(),
		handlers: NewHandlers(cfg, logger),
		logger:   logger,
	}

	s.setupMiddleware(cfg)
	s.setupRoutes(cfg)

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures middleware for the router.
func (s *Server) setupMiddleware(cfg ServerConfig) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors(cfg.Production, cfg.AllowedOrigins))
}

// setupRoutes configures routes for the application.
func (s *Server) setupRoutes(cfg ServerConfig) {
	h := s.handlers

	// Static documents
	s.router.Get("/", h.Home)
	s.router.Get("/spec.json", h.staticFile(cfg.StaticFS, "spec.json", "application/json"))
	s.router.Get("/.well-known/ai-plugin.json", h.staticFile(cfg.StaticFS, "ai-plugin.json", "application/json"))
	if cfg.Metrics != nil {
		s.router.Handle("/metrics", cfg.Metrics.Handler())
	}

	// Auth routes, with the short aliases registered as the provider redirect target
	for _, prefix := range []string{"/auth", ""} {
		s.router.Get(prefix+"/login", h.Login)
		s.router.Get(prefix+"/callback", h.Callback)
		s.router.Get(prefix+"/refresh", h.Refresh)
	}
	s.router.Post("/auth/logout", h.Logout)

	// Enrichment needs no Spotify token
	s.router.Get("/lastfm/tags", h.LastFMTags)
	s.router.Get("/lastfm/recent", h.LastFMRecent)
	s.router.Get("/lastfm/scrobbles", h.LastFMScrobbles)
	s.router.Get("/musicbrainz/year", h.MusicBrainzYear)

	// Bearer-authenticated routes
	s.router.Group(func(r chi.Router) {
		r.Use(h.requireBearer)

		r.Get("/playlist", h.FindPlaylist)
		r.Post("/playlist", h.CreatePlaylist)
		r.Get("/playlist/{ref}/tracks", h.PlaylistTracks)
		r.Post("/playlist/{ref}/tracks", h.AddTracks)
		r.Delete("/playlist/{ref}/tracks", h.RemoveTracks)
		r.Get("/playlist/{ref}/moods", h.PlaylistMoods)

		r.Post("/play", h.Play)
		r.Post("/pause", h.Pause)
		r.Post("/next", h.Next)
		r.Post("/previous", h.Previous)
		r.Post("/queue", h.Queue)
		r.Get("/devices", h.Devices)

		r.Post("/agent", h.Agent)
	})

	// Session-authenticated routes
	s.router.Group(func(r chi.Router) {
		r.Use(h.requireSession)

		r.Get("/playlists", h.Playlists)
		r.Get("/library/tracks", h.LibraryTracks)
		r.Get("/library/albums", h.LibraryAlbums)
		r.Get("/follow/artists", h.FollowedArtists)
		r.Put("/follow/artists/{id}", h.FollowArtist)
		r.Delete("/follow/artists/{id}", h.UnfollowArtist)
		r.Get("/search", h.Search)
		r.Get("/recommend", h.Recommend)
		r.Get("/profile", h.Profile)
		r.Get("/recent", h.Recent)
		r.Get("/top/tracks", h.TopTracks)
		r.Get("/top/artists", h.TopArtists)
		r.Get("/now-playing", h.NowPlaying)
		r.Get("/stats", h.Stats)
		r.Get("/audio-features", h.AudioFeatures)
	})
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", "http://"+s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

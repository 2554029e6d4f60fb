package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/justestif/spotigen/internal/agent"
	"github.com/justestif/spotigen/internal/auth"
	"github.com/justestif/spotigen/internal/config"
	"github.com/justestif/spotigen/internal/dedupe"
	"github.com/justestif/spotigen/internal/httpclient"
	"github.com/justestif/spotigen/internal/kvstore"
	"github.com/justestif/spotigen/internal/lastfm"
	"github.com/justestif/spotigen/internal/logging"
	"github.com/justestif/spotigen/internal/metrics"
	"github.com/justestif/spotigen/internal/musicbrainz"
	"github.com/justestif/spotigen/internal/respcache"
	"github.com/justestif/spotigen/internal/spotify"
	"github.com/justestif/spotigen/internal/tags"
	"github.com/justestif/spotigen/internal/web"
	webfs "github.com/justestif/spotigen/web"
)

// ErrSharedStoreRequired is returned by commands whose state must outlive the
// process when no Redis URL is configured.
var ErrSharedStoreRequired = errors.New("redis.url (or REDIS_URL) must be set for this command")

// Runner holds what every command needs and provides one method per command action.
type Runner struct {
	logger *log.Logger
	output io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Logger *log.Logger
	Output io.Writer
}

// NewRunner creates a new Runner with the provided options.
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = logging.New(nil, "info")
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	return &Runner{logger: opts.Logger, output: opts.Output}
}

func (r *Runner) register() []*cli.Command {
	return []*cli.Command{
		{
			Name:   "serve",
			Usage:  "Run the HTTP API",
			Action: r.Serve,
		},
		{
			Name:   "auth-url",
			Usage:  "Print the Spotify authorization URL",
			Action: r.AuthURL,
		},
		{
			Name:   "refresh",
			Usage:  "Force a refresh of the stored access token",
			Action: r.Refresh,
		},
		{
			Name:   "logout",
			Usage:  "Delete the stored tokens",
			Action: r.Logout,
		},
	}
}

// app is the object graph shared by the commands.
type app struct {
	cfg     *config.Config
	logger  *log.Logger
	metrics *metrics.Metrics
	kv      kvstore.Store
	shared  bool
	session *auth.Session
	states  *auth.StateStore
	close   func()
}

func (r *Runner) build(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil {
		r.logger.SetLevel(lvl)
	}
	logger := r.logger
	m := metrics.New()

	a := &app{cfg: cfg, logger: logger, metrics: m, close: func() {}}

	if cfg.Redis.URL != "" {
		rdb, err := kvstore.NewRedis(ctx, cfg.Redis.URL)
		if err != nil {
			return nil, err
		}
		a.kv, a.shared = rdb, true
		a.close = func() {
			if err := rdb.Close(); err != nil {
				logger.Warn("closing redis", "err", err)
			}
		}
	} else {
		logger.Warn("no redis url configured; tokens and caches will not survive a restart")
		a.kv = kvstore.NewMemory()
	}

	a.session, err = auth.NewSession(auth.Config{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		RedirectURI:  cfg.Spotify.RedirectURI,
	}, auth.NewTokenStore(a.kv), auth.WithLogger(logger), auth.WithMetrics(m))
	if err != nil {
		a.close()
		return nil, err
	}
	a.states = auth.NewStateStore(a.kv)

	return a, nil
}

func (a *app) upstream(service string) *httpclient.Client {
	return httpclient.New(
		httpclient.WithService(service),
		httpclient.WithLogger(a.logger),
		httpclient.WithMetrics(a.metrics),
	)
}

func (a *app) serverConfig(ctx context.Context) (web.ServerConfig, error) {
	cache := respcache.New(a.kv, respcache.WithLogger(a.logger), respcache.WithMetrics(a.metrics))

	lfm := lastfm.NewClient(lastfm.Config{
		APIKey:   a.cfg.LastFM.APIKey,
		Username: a.cfg.LastFM.Username,
	}, lastfm.WithCache(cache))

	mb := musicbrainz.NewClient(musicbrainz.WithCache(cache))

	var runner *agent.Runner
	if a.cfg.Gemini.APIKey != "" {
		model, err := agent.NewGemini(ctx, a.cfg.Gemini.APIKey, a.cfg.Gemini.Model)
		if err != nil {
			return web.ServerConfig{}, err
		}
		runner = agent.NewRunner(model, agent.WithLogger(a.logger))
	}

	return web.ServerConfig{
		Addr:           a.cfg.Addr,
		Production:     a.cfg.Production(),
		AllowedOrigins: a.cfg.Origins,
		Auth:           a.session,
		States:         a.states,
		SpotifyOptions: []spotify.Option{
			spotify.WithHTTPClient(a.upstream("spotify")),
			spotify.WithSeenSet(dedupe.New(a.kv)),
			spotify.WithLogger(a.logger),
			spotify.WithMetrics(a.metrics),
		},
		LastFM:      lfm,
		MusicBrainz: mb,
		Tags:        tags.NewService(lfm),
		Agent:       runner,
		Metrics:     a.metrics,
		Logger:      a.logger,
		StaticFS:    webfs.StaticFS,
	}, nil
}

// Serve runs the HTTP API until SIGINT or SIGTERM.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := r.build(ctx, cmd.String("config"))
	if err != nil {
		return err
	}
	defer a.close()

	cfg, err := a.serverConfig(ctx)
	if err != nil {
		return err
	}
	if cfg.Agent == nil {
		a.logger.Info("no gemini api key configured; /agent is disabled")
	}

	return web.NewServer(cfg).Run(ctx)
}

// AuthURL issues a state and prints the URL to visit. The callback served by
// another process can only verify the state through a shared store.
func (r *Runner) AuthURL(ctx context.Context, cmd *cli.Command) error {
	a, err := r.build(ctx, cmd.String("config"))
	if err != nil {
		return err
	}
	defer a.close()

	if !a.shared {
		return ErrSharedStoreRequired
	}

	state, err := a.states.Issue(ctx)
	if err != nil {
		return fmt.Errorf("issuing state: %w", err)
	}

	_, err = fmt.Fprintln(r.output, a.session.AuthorizationURL(state))
	return err
}

// Refresh runs the refresh grant against the stored tokens.
func (r *Runner) Refresh(ctx context.Context, cmd *cli.Command) error {
	a, err := r.build(ctx, cmd.String("config"))
	if err != nil {
		return err
	}
	defer a.close()

	if _, err := a.session.ForceRefresh(ctx); err != nil {
		return err
	}

	_, err = fmt.Fprintln(r.output, "access token refreshed")
	return err
}

// Logout deletes the stored tokens.
func (r *Runner) Logout(ctx context.Context, cmd *cli.Command) error {
	a, err := r.build(ctx, cmd.String("config"))
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.session.Logout(ctx); err != nil {
		return err
	}

	_, err = fmt.Fprintln(r.output, "logged out")
	return err
}

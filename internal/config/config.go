// Package config loads spotigen configuration from a TOML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = "127.0.0.1:8080"

	// DefaultRedirectURI must match the Spotify app configuration.
	DefaultRedirectURI = "http://127.0.0.1:8080/auth/callback"

	// DefaultGeminiModel is used by the agent endpoint when none is configured.
	DefaultGeminiModel = "gemini-2.5-flash"
)

var (
	// ErrMissingCredentials is returned when SPOTIFY_ID or SPOTIFY_SECRET is not set.
	ErrMissingCredentials = errors.New("missing SPOTIFY_ID or SPOTIFY_SECRET")
)

// Config holds all runtime settings.
type Config struct {
	Env      string   `toml:"env"`
	Addr     string   `toml:"addr"`
	LogLevel string   `toml:"log_level"`
	Origins  []string `toml:"allowed_origins"`

	Spotify Spotify `toml:"spotify"`
	Redis   Redis   `toml:"redis"`
	LastFM  LastFM  `toml:"lastfm"`
	Gemini  Gemini  `toml:"gemini"`
}

// Spotify holds OAuth client credentials.
type Spotify struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// Redis holds the key-value store location. An empty URL selects the in-memory store.
type Redis struct {
	URL string `toml:"url"`
}

// LastFM holds Last.fm API settings.
type LastFM struct {
	APIKey   string `toml:"api_key"`
	Username string `toml:"username"`
}

// Gemini holds settings for the agent endpoint.
type Gemini struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// Default returns a Config populated with defaults.
func Default() *Config {
	return &Config{
		Env:      "development",
		Addr:     DefaultAddr,
		LogLevel: "info",
		Origins:  []string{"https://chat.openai.com"},
		Spotify:  Spotify{RedirectURI: DefaultRedirectURI},
		Gemini:   Gemini{Model: DefaultGeminiModel},
	}
}

// Load reads the TOML file at path (skipped when path is empty or missing)
// and then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg.applyEnv(os.Getenv)
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	set(&c.Env, "APP_ENV")
	set(&c.Addr, "LISTEN_ADDR")
	set(&c.LogLevel, "LOG_LEVEL")
	set(&c.Spotify.ClientID, "SPOTIFY_ID")
	set(&c.Spotify.ClientSecret, "SPOTIFY_SECRET")
	set(&c.Spotify.RedirectURI, "SPOTIFY_REDIRECT_URI")
	set(&c.Redis.URL, "REDIS_URL")
	set(&c.LastFM.APIKey, "LASTFM_API_KEY")
	set(&c.LastFM.Username, "LASTFM_USERNAME")
	set(&c.Gemini.APIKey, "GEMINI_API_KEY")
	set(&c.Gemini.Model, "GEMINI_MODEL")

	if v := getenv("ALLOWED_ORIGINS"); v != "" {
		c.Origins = strings.Split(v, ",")
	}
}

// Validate returns ErrMissingCredentials if the Spotify client credentials are absent.
func (c *Config) Validate() error {
	if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" {
		return ErrMissingCredentials
	}
	return nil
}

// Production reports whether the service runs with production CORS rules.
func (c *Config) Production() bool {
	return strings.EqualFold(c.Env, "production")
}

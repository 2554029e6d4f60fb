package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	data := `
env = "production"
addr = ":9000"
allowed_origins = ["https://example.com"]

[spotify]
client_id = "file-id"
client_secret = "file-secret"

[lastfm]
api_key = "lfm"
username = "someone"
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	t.Setenv("SPOTIFY_ID", "env-id")
	t.Setenv("SPOTIFY_SECRET", "")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Spotify.ClientID != "env-id" {
		t.Errorf("ClientID = %q, want env override", cfg.Spotify.ClientID)
	}
	if cfg.Spotify.ClientSecret != "file-secret" {
		t.Errorf("ClientSecret = %q, want file value", cfg.Spotify.ClientSecret)
	}
	if cfg.Spotify.RedirectURI != DefaultRedirectURI {
		t.Errorf("RedirectURI = %q, want default", cfg.Spotify.RedirectURI)
	}
	if cfg.Addr != ":9000" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.Redis.URL != "redis://localhost:6379/0" {
		t.Errorf("Redis.URL = %q", cfg.Redis.URL)
	}
	if !cfg.Production() {
		t.Error("Production() = false, want true")
	}
	if len(cfg.Origins) != 1 || cfg.Origins[0] != "https://example.com" {
		t.Errorf("Origins = %v", cfg.Origins)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Addr == "" || cfg.Gemini.Model != DefaultGeminiModel {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("addr = ["), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load() error = nil, want parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		secret  string
		wantErr error
	}{
		{name: "complete", id: "a", secret: "b", wantErr: nil},
		{name: "missing secret", id: "a", wantErr: ErrMissingCredentials},
		{name: "missing id", secret: "b", wantErr: ErrMissingCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Spotify.ClientID = tt.id
			cfg.Spotify.ClientSecret = tt.secret

			if err := cfg.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

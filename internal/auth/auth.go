package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/justestif/spotigen/internal/logging"
	"github.com/justestif/spotigen/internal/metrics"
)

// tokenTimeout bounds every call to the token endpoint.
const tokenTimeout = 15 * time.Second

// Scopes requested on authorization, in the order they appear in the URL.
var Scopes = []string{
	spotifyauth.ScopeUserTopRead,
	spotifyauth.ScopePlaylistModifyPublic,
	spotifyauth.ScopePlaylistModifyPrivate,
	spotifyauth.ScopePlaylistReadPrivate,
	spotifyauth.ScopeUserReadPrivate,
	spotifyauth.ScopeUserReadRecentlyPlayed,
	spotifyauth.ScopeUserReadPlaybackState,
	spotifyauth.ScopeUserModifyPlaybackState,
	spotifyauth.ScopeUserReadCurrentlyPlaying,
	spotifyauth.ScopeUserLibraryRead,
	spotifyauth.ScopeUserFollowRead,
	spotifyauth.ScopeUserFollowModify,
}

var (
	// ErrMissingCredentials is returned when the client id or secret is empty.
	ErrMissingCredentials = errors.New("missing Spotify client id or secret")

	// ErrNotAuthenticated is returned when no usable token is available.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrStateMismatch is returned when the OAuth state parameter doesn't match.
	ErrStateMismatch = errors.New("OAuth state mismatch")
)

// UpstreamAuthError is returned when the token endpoint rejects a code exchange.
type UpstreamAuthError struct {
	Status int
	Body   string
}

func (e *UpstreamAuthError) Error() string {
	return fmt.Sprintf("token endpoint returned %d: %s", e.Status, e.Body)
}

// RefreshError is returned by ForceRefresh when the refresh grant fails.
// Status is zero when the endpoint could not be reached.
type RefreshError struct {
	Status int
	Body   string
	Err    error
}

func (e *RefreshError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("token refresh failed with %d: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("token refresh failed: %v", e.Err)
}

func (e *RefreshError) Unwrap() error { return e.Err }

// Config holds the OAuth client settings.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string

	// AuthURL and TokenURL default to the Spotify accounts service.
	AuthURL  string
	TokenURL string
}

// Session owns the token lifecycle for the single configured account.
type Session struct {
	oauth      *oauth2.Config
	store      *TokenStore
	httpClient *http.Client
	now        func() time.Time
	refreshes  singleflight.Group
	logger     *log.Logger
	metrics    *metrics.Metrics
}

// Option configures a Session.
type Option func(*Session)

// WithHTTPClient sets the client used for token endpoint calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Session) {
		if hc != nil {
			s.httpClient = hc
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithMetrics records refresh outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// NewSession creates a Session.
// Returns ErrMissingCredentials if the client id or secret is empty.
func NewSession(cfg Config, store *TokenStore, opts ...Option) (*Session, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrMissingCredentials
	}

	authURL, tokenURL := cfg.AuthURL, cfg.TokenURL
	if authURL == "" {
		authURL = spotifyauth.AuthURL
	}
	if tokenURL == "" {
		tokenURL = spotifyauth.TokenURL
	}

	s := &Session{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		store:      store,
		httpClient: &http.Client{Timeout: tokenTimeout},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.Component(s.logger, "auth")

	return s, nil
}

// AuthorizationURL returns the provider URL the user must visit to grant access.
func (s *Session) AuthorizationURL(state string) string {
	return s.oauth.AuthCodeURL(state)
}

// Exchange trades an authorization code for tokens and persists them.
func (s *Session) Exchange(ctx context.Context, code string) (*TokenRecord, error) {
	issuedAt := s.now()

	tok, err := s.oauth.Exchange(s.tokenContext(ctx), code)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			return nil, &UpstreamAuthError{Status: retrieveStatus(re), Body: string(re.Body)}
		}
		return nil, fmt.Errorf("exchanging code for token: %w", err)
	}

	rec := newRecord(tok, issuedAt)
	if err := s.store.Save(ctx, rec); err != nil {
		return nil, err
	}

	s.logger.Info("authorization complete", "expires_at", rec.ExpiresAt)
	return rec, nil
}

// AccessToken returns a usable access token, refreshing it when expired.
// A failed refresh is reported as ErrNotAuthenticated and leaves the stored
// record untouched.
func (s *Session) AccessToken(ctx context.Context) (string, error) {
	rec, err := s.store.Load(ctx)
	if err != nil {
		return "", err
	}
	if rec == nil {
		return "", ErrNotAuthenticated
	}

	if !rec.Expired(s.now()) {
		return rec.AccessToken, nil
	}

	fresh, err := s.refresh(ctx, rec)
	if err != nil {
		s.logger.Warn("token refresh failed", "err", err)
		return "", ErrNotAuthenticated
	}
	return fresh.AccessToken, nil
}

// ForceRefresh runs the refresh grant regardless of expiry.
func (s *Session) ForceRefresh(ctx context.Context) (string, error) {
	rec, err := s.store.Load(ctx)
	if err != nil {
		return "", err
	}
	if rec == nil {
		return "", ErrNotAuthenticated
	}

	fresh, err := s.refresh(ctx, rec)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			return "", &RefreshError{Status: retrieveStatus(re), Body: string(re.Body), Err: err}
		}
		return "", &RefreshError{Err: err}
	}
	return fresh.AccessToken, nil
}

// Logout removes the stored tokens.
func (s *Session) Logout(ctx context.Context) error {
	return s.store.Delete(ctx)
}

// refresh performs the refresh grant, collapsing concurrent calls in this process.
func (s *Session) refresh(ctx context.Context, rec *TokenRecord) (*TokenRecord, error) {
	if rec.RefreshToken == "" {
		return nil, errors.New("no refresh token stored")
	}

	// The flight is shared, so it must not die with whichever caller started it.
	flightCtx := context.WithoutCancel(ctx)

	v, err, _ := s.refreshes.Do(rec.RefreshToken, func() (any, error) {
		issuedAt := s.now()
		src := s.oauth.TokenSource(s.tokenContext(flightCtx), &oauth2.Token{RefreshToken: rec.RefreshToken})
		tok, err := src.Token()
		if err != nil {
			s.metrics.Refresh(false)
			return nil, err
		}
		s.metrics.Refresh(true)

		merged := rec.merge(tok, issuedAt)
		if err := s.store.Save(flightCtx, merged); err != nil {
			s.logger.Warn("saving refreshed token failed", "err", err)
		}
		return merged, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*TokenRecord), nil
}

func (s *Session) tokenContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

func retrieveStatus(re *oauth2.RetrieveError) int {
	if re.Response != nil {
		return re.Response.StatusCode
	}
	return http.StatusBadGateway
}

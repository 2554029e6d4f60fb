package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/justestif/spotigen/internal/agent"
	"github.com/justestif/spotigen/internal/auth"
	"github.com/justestif/spotigen/internal/lastfm"
	"github.com/justestif/spotigen/internal/spotify"
)

// badRequestError marks invalid client input.
type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &badRequestError{msg: fmt.Sprintf(format, args...)}
}

// errorResponse is the body of every error reply.
type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps an error to the HTTP status and message shown to the caller.
func statusFor(err error) (int, string) {
	var (
		badReq    *badRequestError
		upstream  *auth.UpstreamAuthError
		refresh   *auth.RefreshError
		notFound  *spotify.NotFoundError
		apiErr    *spotify.APIError
		unknownFn *agent.UnknownFunctionError
		urlErr    *url.Error
	)

	switch {
	case errors.As(err, &badReq):
		return http.StatusBadRequest, badReq.msg
	case errors.Is(err, spotify.ErrInvalidArgument):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, auth.ErrNotAuthenticated):
		return http.StatusUnauthorized, "not authenticated"
	case errors.Is(err, auth.ErrStateMismatch):
		return http.StatusBadRequest, "OAuth state mismatch"
	case errors.As(err, &upstream):
		return upstream.Status, "could not obtain Spotify token"
	case errors.As(err, &refresh):
		if refresh.Status != 0 {
			return refresh.Status, "token refresh failed"
		}
		return http.StatusBadGateway, "token refresh failed"
	case errors.As(err, &notFound):
		return http.StatusNotFound, notFound.Error()
	case errors.As(err, &apiErr):
		return apiErr.Status, apiErr.Body
	case errors.As(err, &unknownFn):
		return http.StatusBadRequest, unknownFn.Error()
	case errors.Is(err, lastfm.ErrRateLimited):
		return http.StatusTooManyRequests, "Last.fm rate limit exceeded"
	case errors.Is(err, lastfm.ErrInvalidAPIKey):
		return http.StatusBadGateway, "Last.fm rejected the API key"
	case errors.As(err, &urlErr):
		return http.StatusBadGateway, "upstream unreachable"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// writeError replies with the mapped status. Server-side failures are logged.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status >= 500 {
		h.logger.Error("request failed", "path", r.URL.Path, "status", status, "err", err)
	} else {
		h.logger.Debug("request rejected", "path", r.URL.Path, "status", status, "err", err)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads the request body into v. The body is limited to 1MB and
// unknown fields are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil {
		return badRequest("empty body")
	}
	defer r.Body.Close()
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("empty body")
		}
		return badRequest("invalid body: %v", err)
	}
	if dec.More() {
		return badRequest("extra data in request body")
	}
	return nil
}

// intParam reads an optional integer query parameter.
func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest("%s must be an integer", name)
	}
	return n, nil
}

// requiredParam reads a query parameter that must be present.
func requiredParam(r *http.Request, name string) (string, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return "", badRequest("missing %s", name)
	}
	return v, nil
}

package spotify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/zmb3/spotify/v2"
)

// maxErrorBody caps how much of a failed response is kept for APIError.
const maxErrorBody = 64 << 10

type failureKey struct{}

// failure records the last non-2xx response seen during one call. The SDK
// keeps only the decoded message, so the raw body is captured on the way in.
type failure struct {
	status int
	body   []byte
}

// failureTransport copies the status and body of failed responses into the
// failure attached to the request context, then hands the SDK an unread body.
type failureTransport struct {
	base http.RoundTripper
}

func (t *failureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil || (resp.StatusCode >= 200 && resp.StatusCode < 300) {
		return resp, err
	}

	f, ok := req.Context().Value(failureKey{}).(*failure)
	if !ok {
		return resp, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("reading error body: %w", err)
	}
	f.status, f.body = resp.StatusCode, body
	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, nil
}

// call runs fn against the SDK and turns an upstream failure into an
// *APIError carrying the status and body text. Other errors are wrapped
// with op.
func (c *Client) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	f := &failure{}
	err := fn(context.WithValue(ctx, failureKey{}, f))
	if err == nil {
		return nil
	}

	if f.status != 0 {
		body := string(f.body)
		if body == "" {
			body = http.StatusText(f.status)
		}
		return &APIError{Op: op, Status: f.status, Body: body}
	}

	var apiErr spotify.Error
	if errors.As(err, &apiErr) && apiErr.Status != 0 {
		return &APIError{Op: op, Status: apiErr.Status, Body: apiErr.Message}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

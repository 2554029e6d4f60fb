// Package agent lets a language model drive the Spotify client through
// function calling.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"google.golang.org/genai"

	"github.com/justestif/spotigen/internal/logging"
	"github.com/justestif/spotigen/internal/spotify"
)

const (
	// DefaultMaxTurns bounds the model round trips per prompt.
	DefaultMaxTurns = 3

	// FallbackAnswer is returned when the model is still calling functions
	// after the last turn.
	FallbackAnswer = "I can't do that."
)

// ErrNoCandidates is returned when the model answers with nothing usable.
var ErrNoCandidates = errors.New("model returned no candidates")

// UnknownFunctionError is returned when the model calls a function that is
// not declared.
type UnknownFunctionError struct {
	Name string
}

func (e *UnknownFunctionError) Error() string {
	return fmt.Sprintf("unknown function %s", e.Name)
}

// Model produces the next model turn for a conversation.
type Model interface {
	Generate(ctx context.Context, history []*genai.Content, tools []*genai.Tool) (*genai.GenerateContentResponse, error)
}

// Spotify is the part of the Spotify client the agent can drive.
type Spotify interface {
	SearchTracks(ctx context.Context, query string, limit int) ([]spotify.Track, error)
	Recommendations(ctx context.Context, seeds spotify.RecommendationSeeds, limit int) ([]spotify.Track, error)
	AudioFeatures(ctx context.Context, ids []string) ([]spotify.AudioFeatures, error)
	RecentlyPlayed(ctx context.Context, limit int) ([]spotify.PlayHistory, error)
	TopTracks(ctx context.Context, limit int, timeRange string) ([]spotify.Track, error)
	TopArtists(ctx context.Context, limit int, timeRange string) ([]spotify.Artist, error)
	Queue(ctx context.Context, uri, deviceID string) error
	Devices(ctx context.Context) ([]spotify.Device, error)
	Play(ctx context.Context, opts spotify.PlayOptions) error
	Pause(ctx context.Context, deviceID string) error
	SkipNext(ctx context.Context, deviceID string) error
	Stats(ctx context.Context) (*spotify.Stats, error)
}

// Runner runs prompts against a Model.
type Runner struct {
	model    Model
	maxTurns int
	logger   *log.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithMaxTurns overrides DefaultMaxTurns.
func WithMaxTurns(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.maxTurns = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// NewRunner creates a Runner.
func NewRunner(model Model, opts ...Option) *Runner {
	r := &Runner{model: model, maxTurns: DefaultMaxTurns}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.Component(r.logger, "agent")
	return r
}

// Run sends prompt to the model and executes the functions it calls against
// client until the model answers in text or the turns run out.
func (r *Runner) Run(ctx context.Context, client Spotify, prompt string) (string, error) {
	history := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	tools := []*genai.Tool{{FunctionDeclarations: declarations}}

	for turn := 0; turn < r.maxTurns; turn++ {
		resp, err := r.model.Generate(ctx, history, tools)
		if err != nil {
			return "", fmt.Errorf("generating content: %w", err)
		}
		if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return "", ErrNoCandidates
		}

		calls := resp.FunctionCalls()
		if len(calls) == 0 {
			return resp.Text(), nil
		}

		parts := make([]*genai.Part, 0, len(calls))
		for _, call := range calls {
			r.logger.Debug("calling function", "name", call.Name, "turn", turn+1)
			result, err := dispatch(ctx, client, call.Name, call.Args)
			if err != nil {
				return "", err
			}
			parts = append(parts, genai.NewPartFromFunctionResponse(call.Name, result))
		}

		history = append(history, resp.Candidates[0].Content, genai.NewContentFromParts(parts, genai.RoleUser))
	}

	return FallbackAnswer, nil
}

// dispatch executes one function call and wraps its result for the model.
func dispatch(ctx context.Context, client Spotify, name string, args map[string]any) (map[string]any, error) {
	fn, ok := functions[name]
	if !ok {
		return nil, &UnknownFunctionError{Name: name}
	}

	result, err := fn(ctx, client, arguments(args))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	// Round-trip through JSON so the response holds only plain values.
	b, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("%s: encoding result: %w", name, err)
	}
	var plain any
	if err := json.Unmarshal(b, &plain); err != nil {
		return nil, fmt.Errorf("%s: encoding result: %w", name, err)
	}
	return map[string]any{"result": plain}, nil
}

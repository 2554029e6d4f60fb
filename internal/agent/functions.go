package agent

import (
	"context"

	"google.golang.org/genai"

	"github.com/justestif/spotigen/internal/spotify"
)

type function func(ctx context.Context, client Spotify, args arguments) (any, error)

var done = map[string]string{"status": "ok"}

var functions = map[string]function{
	"search": func(ctx context.Context, c Spotify, a arguments) (any, error) {
		return c.SearchTracks(ctx, a.text("q"), a.number("limit", 10))
	},
	"recommendations": func(ctx context.Context, c Spotify, a arguments) (any, error) {
		seeds := spotify.RecommendationSeeds{Tracks: a.list("seed_tracks")}
		return c.Recommendations(ctx, seeds, a.number("limit", 20))
	},
	"audio_features": func(ctx context.Context, c Spotify, a arguments) (any, error) {
		return c.AudioFeatures(ctx, a.list("track_ids"))
	},
	"recent": func(ctx context.Context, c Spotify, a arguments) (any, error) {
		return c.RecentlyPlayed(ctx, a.number("limit", 50))
	},
	"top_tracks": func(ctx context.Context, c Spotify, a arguments) (any, error) {
		return c.TopTracks(ctx, a.number("limit", 50), a.textOr("time_range", spotify.LongTerm))
	},
	"top_artists": func(ctx context.Context, c Spotify, a arguments) (any, error) {
		return c.TopArtists(ctx, a.number("limit", 50), a.textOr("time_range", spotify.LongTerm))
	},
	"queue": func(ctx context.Context, c Spotify, a arguments) (any, error) {
		return done, c.Queue(ctx, a.text("track_uri"), a.text("device_id"))
	},
	"devices": func(ctx context.Context, c Spotify, _ arguments) (any, error) {
		return c.Devices(ctx)
	},
	"play": func(ctx context.Context, c Spotify, a arguments) (any, error) {
		opts := spotify.PlayOptions{DeviceID: a.text("device_id")}
		if uri := a.text("track_uri"); uri != "" {
			opts.URIs = []string{uri}
		}
		return done, c.Play(ctx, opts)
	},
	"pause": func(ctx context.Context, c Spotify, a arguments) (any, error) {
		return done, c.Pause(ctx, a.text("device_id"))
	},
	"skip_next": func(ctx context.Context, c Spotify, a arguments) (any, error) {
		return done, c.SkipNext(ctx, a.text("device_id"))
	},
	"stats": func(ctx context.Context, c Spotify, _ arguments) (any, error) {
		return c.Stats(ctx)
	},
}

func object(props map[string]*genai.Schema, required ...string) *genai.Schema {
	if props == nil {
		props = map[string]*genai.Schema{}
	}
	return &genai.Schema{Type: genai.TypeObject, Properties: props, Required: required}
}

var (
	str     = &genai.Schema{Type: genai.TypeString}
	integer = &genai.Schema{Type: genai.TypeInteger}
	strList = &genai.Schema{Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}}
)

var declarations = []*genai.FunctionDeclaration{
	{
		Name:        "search",
		Description: "Search tracks on Spotify",
		Parameters:  object(map[string]*genai.Schema{"q": str, "limit": integer}, "q"),
	},
	{
		Name:        "recommendations",
		Description: "Get track recommendations from seed tracks",
		Parameters:  object(map[string]*genai.Schema{"seed_tracks": strList, "limit": integer}, "seed_tracks"),
	},
	{
		Name:        "audio_features",
		Description: "Get audio features for tracks",
		Parameters:  object(map[string]*genai.Schema{"track_ids": strList}, "track_ids"),
	},
	{
		Name:        "recent",
		Description: "Recently played tracks",
		Parameters:  object(map[string]*genai.Schema{"limit": integer}),
	},
	{
		Name:        "top_tracks",
		Description: "User top tracks",
		Parameters:  object(map[string]*genai.Schema{"limit": integer, "time_range": str}),
	},
	{
		Name:        "top_artists",
		Description: "User top artists",
		Parameters:  object(map[string]*genai.Schema{"limit": integer, "time_range": str}),
	},
	{
		Name:        "queue",
		Description: "Add track to playback queue",
		Parameters:  object(map[string]*genai.Schema{"track_uri": str, "device_id": str}, "track_uri"),
	},
	{
		Name:        "devices",
		Description: "List playback devices",
		Parameters:  object(nil),
	},
	{
		Name:        "play",
		Description: "Start playback",
		Parameters:  object(map[string]*genai.Schema{"track_uri": str, "device_id": str}),
	},
	{
		Name:        "pause",
		Description: "Pause playback",
		Parameters:  object(map[string]*genai.Schema{"device_id": str}),
	},
	{
		Name:        "skip_next",
		Description: "Skip to next track",
		Parameters:  object(map[string]*genai.Schema{"device_id": str}),
	},
	{
		Name:        "stats",
		Description: "User genres and average audio features",
		Parameters:  object(nil),
	},
}

// arguments reads loosely typed function call arguments.
type arguments map[string]any

func (a arguments) text(key string) string {
	s, _ := a[key].(string)
	return s
}

func (a arguments) textOr(key, def string) string {
	if s := a.text(key); s != "" {
		return s
	}
	return def
}

// number accepts JSON numbers, which decode as float64.
func (a arguments) number(key string, def int) int {
	switch v := a[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return def
}

func (a arguments) list(key string) []string {
	switch v := a[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v != "" {
			return []string{v}
		}
	}
	return nil
}

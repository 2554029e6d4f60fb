package spotify

import (
	"context"
	"strings"

	"github.com/zmb3/spotify/v2"
)

// maxTracksPerRequest is the Web API limit for batched track endpoints.
const maxTracksPerRequest = 100

// defaultSearchTypes is used when a search names no types.
const defaultSearchTypes = spotify.SearchTypeTrack | spotify.SearchTypeArtist | spotify.SearchTypeAlbum

var searchTypes = map[string]spotify.SearchType{
	"track":    spotify.SearchTypeTrack,
	"artist":   spotify.SearchTypeArtist,
	"album":    spotify.SearchTypeAlbum,
	"playlist": spotify.SearchTypePlaylist,
}

// SearchTracks returns the tracks matching query, best match first.
// An empty result is not an error.
func (c *Client) SearchTracks(ctx context.Context, query string, limit int) ([]Track, error) {
	res, err := c.Search(ctx, query, "track", limit)
	if err != nil {
		return nil, err
	}
	if res.Tracks == nil || res.Tracks.Items == nil {
		return []Track{}, nil
	}
	return res.Tracks.Items, nil
}

// Search runs a catalog search over types (comma-separated, default
// "track,artist,album").
func (c *Client) Search(ctx context.Context, query, types string, limit int) (*SearchResult, error) {
	t, err := parseSearchTypes(types)
	if err != nil {
		return nil, err
	}

	var res *spotify.SearchResult
	err = c.call(ctx, "search", func(ctx context.Context) (err error) {
		res, err = c.api.Search(ctx, query, t, pageOptions(limit, 0)...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return convertSearch(res), nil
}

func parseSearchTypes(types string) (spotify.SearchType, error) {
	if strings.TrimSpace(types) == "" {
		return defaultSearchTypes, nil
	}

	var t spotify.SearchType
	for _, name := range strings.Split(types, ",") {
		bit, ok := searchTypes[strings.TrimSpace(name)]
		if !ok {
			return 0, invalidArgument("unsupported search type %q", name)
		}
		t |= bit
	}
	return t, nil
}

func convertSearch(res *spotify.SearchResult) *SearchResult {
	out := &SearchResult{}
	if p := res.Tracks; p != nil {
		out.Tracks = page(convertTracks(p.Tracks), p.Next, p.Total, p.Limit, p.Offset)
	}
	if p := res.Artists; p != nil {
		out.Artists = page(convertFullArtists(p.Artists), p.Next, p.Total, p.Limit, p.Offset)
	}
	if p := res.Albums; p != nil {
		albums := make([]Album, len(p.Albums))
		for i, a := range p.Albums {
			albums[i] = convertAlbum(a)
		}
		out.Albums = page(albums, p.Next, p.Total, p.Limit, p.Offset)
	}
	if p := res.Playlists; p != nil {
		out.Playlists = page(convertPlaylists(p.Playlists), p.Next, p.Total, p.Limit, p.Offset)
	}
	return out
}

// flattenTrack converts a full track to the playlist listing shape.
func flattenTrack(t Track) PlaylistTrack {
	artists := t.Artists
	if artists == nil {
		artists = []Artist{}
	}
	return PlaylistTrack{
		Title:      t.Name,
		URI:        t.URI,
		Album:      t.Album.Name,
		Artists:    artists,
		DurationMS: t.DurationMS,
		Explicit:   t.Explicit,
	}
}

func joinNames(names []string) string {
	return strings.Join(names, ", ")
}

// chunk splits items into consecutive batches of at most size elements.
func chunk[T any](items []T, size int) [][]T {
	var batches [][]T
	for i := 0; i < len(items); i += size {
		end := min(i+size, len(items))
		batches = append(batches, items[i:end])
	}
	return batches
}

// pageOptions omits limit and offset when they are not positive, leaving the
// provider defaults in place.
func pageOptions(limit, offset int) []spotify.RequestOption {
	var opts []spotify.RequestOption
	if limit > 0 {
		opts = append(opts, spotify.Limit(limit))
	}
	if offset > 0 {
		opts = append(opts, spotify.Offset(offset))
	}
	return opts
}

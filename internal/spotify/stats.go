package spotify

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
)

const (
	statsSampleSize = 50
	statsTopGenres  = 10
)

// GenreCount is how many of the user's top artists carry a genre.
type GenreCount struct {
	Genre string `json:"genre"`
	Count int    `json:"count"`
}

// Stats summarizes the user's long-term listening.
type Stats struct {
	TopTracks     []Track        `json:"top_tracks"`
	TopArtists    []Artist       `json:"top_artists"`
	TopGenres     []GenreCount   `json:"top_genres"`
	AudioFeatures *AudioFeatures `json:"audio_features,omitempty"`
}

// Stats fetches top tracks and artists concurrently and derives genre counts
// and mean audio features from them. Audio features are optional: their
// failure is logged and the field left empty.
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var (
		tracks  []Track
		artists []Artist
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tracks, err = c.TopTracks(gctx, statsSampleSize, LongTerm)
		return err
	})
	g.Go(func() error {
		var err error
		artists, err = c.TopArtists(gctx, statsSampleSize, LongTerm)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := &Stats{
		TopTracks:  tracks,
		TopArtists: artists,
		TopGenres:  countGenres(artists, statsTopGenres),
	}

	ids := make([]string, 0, len(tracks))
	for _, t := range tracks {
		if t.ID != "" {
			ids = append(ids, string(t.ID))
		}
	}
	if len(ids) > 0 {
		features, err := c.AudioFeatures(ctx, ids)
		if err != nil {
			c.logger.Warn("audio features unavailable", "err", err)
			c.metrics.Degraded("audio_features")
		} else {
			stats.AudioFeatures = meanFeatures(features)
		}
	}

	return stats, nil
}

// countGenres returns the n most common genres, ties broken by name.
func countGenres(artists []Artist, n int) []GenreCount {
	counts := make(map[string]int)
	for _, a := range artists {
		for _, g := range a.Genres {
			counts[g]++
		}
	}

	genres := make([]GenreCount, 0, len(counts))
	for g, count := range counts {
		genres = append(genres, GenreCount{Genre: g, Count: count})
	}
	sort.Slice(genres, func(i, j int) bool {
		if genres[i].Count != genres[j].Count {
			return genres[i].Count > genres[j].Count
		}
		return genres[i].Genre < genres[j].Genre
	})

	if len(genres) > n {
		genres = genres[:n]
	}
	return genres
}

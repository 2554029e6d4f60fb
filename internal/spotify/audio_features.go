package spotify

import (
	"context"
	"fmt"

	"github.com/zmb3/spotify/v2"
)

// AudioFeatures retrieves audio features for the given track IDs, batching
// requests by the API limit of 100. Tracks without analysis are omitted.
func (c *Client) AudioFeatures(ctx context.Context, ids []string) ([]AudioFeatures, error) {
	features := make([]AudioFeatures, 0, len(ids))

	for i, batch := range chunk(ids, maxTracksPerRequest) {
		trackIDs := make([]spotify.ID, len(batch))
		for j, id := range batch {
			trackIDs[j] = spotify.ID(id)
		}

		var res []*spotify.AudioFeatures
		err := c.call(ctx, "audio features", func(ctx context.Context) (err error) {
			res, err = c.api.GetAudioFeatures(ctx, trackIDs...)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("fetching audio features (batch %d): %w", i+1, err)
		}

		for _, f := range res {
			if f == nil {
				continue
			}
			features = append(features, convertAudioFeatures(f))
		}
	}

	return features, nil
}

// meanFeatures averages features field by field. Returns nil for no input.
func meanFeatures(features []AudioFeatures) *AudioFeatures {
	if len(features) == 0 {
		return nil
	}

	var sum AudioFeatures
	for _, f := range features {
		sum.Acousticness += f.Acousticness
		sum.Danceability += f.Danceability
		sum.Energy += f.Energy
		sum.Instrumentalness += f.Instrumentalness
		sum.Liveness += f.Liveness
		sum.Loudness += f.Loudness
		sum.Speechiness += f.Speechiness
		sum.Tempo += f.Tempo
		sum.Valence += f.Valence
	}

	n := float64(len(features))
	return &AudioFeatures{
		Acousticness:     sum.Acousticness / n,
		Danceability:     sum.Danceability / n,
		Energy:           sum.Energy / n,
		Instrumentalness: sum.Instrumentalness / n,
		Liveness:         sum.Liveness / n,
		Loudness:         sum.Loudness / n,
		Speechiness:      sum.Speechiness / n,
		Tempo:            sum.Tempo / n,
		Valence:          sum.Valence / n,
	}
}

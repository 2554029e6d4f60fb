package spotify

import (
	"context"

	"github.com/zmb3/spotify/v2"

	"github.com/justestif/spotigen/internal/kvstore"
)

// maxSeeds is the most seeds one recommendation request may carry.
const maxSeeds = spotify.MaxNumberOfSeeds

// RecommendationSeeds are the seed IDs for a recommendation request.
type RecommendationSeeds struct {
	Tracks  []string `json:"seed_tracks,omitempty"`
	Artists []string `json:"seed_artists,omitempty"`
	Genres  []string `json:"seed_genres,omitempty"`
}

func (s RecommendationSeeds) count() int {
	return len(s.Tracks) + len(s.Artists) + len(s.Genres)
}

func (s RecommendationSeeds) seeds() spotify.Seeds {
	out := spotify.Seeds{Genres: s.Genres}
	for _, id := range s.Tracks {
		out.Tracks = append(out.Tracks, spotify.ID(id))
	}
	for _, id := range s.Artists {
		out.Artists = append(out.Artists, spotify.ID(id))
	}
	return out
}

// Recommendations returns recommended tracks the account has not been given
// before and records them as given. Without a seen set, or when the seen set
// cannot be read, the unfiltered recommendations are returned.
func (c *Client) Recommendations(ctx context.Context, seeds RecommendationSeeds, limit int) ([]Track, error) {
	if n := seeds.count(); n == 0 || n > maxSeeds {
		return nil, invalidArgument("recommendations take 1 to %d seeds, got %d", maxSeeds, n)
	}

	var res *spotify.Recommendations
	err := c.call(ctx, "recommendations", func(ctx context.Context) (err error) {
		res, err = c.api.GetRecommendations(ctx, seeds.seeds(), nil, pageOptions(limit, 0)...)
		return err
	})
	if err != nil {
		return nil, err
	}

	tracks := make([]Track, len(res.Tracks))
	for i, t := range res.Tracks {
		tracks[i] = convertSimpleTrack(t)
	}

	if c.seen == nil {
		return tracks, nil
	}

	accountID, err := c.AccountID(ctx)
	if err != nil {
		c.logger.Warn("skipping recommendation dedupe", "err", err)
		c.metrics.Degraded("dedupe_account")
		return tracks, nil
	}

	uris := make([]string, len(tracks))
	for i, t := range tracks {
		uris[i] = string(t.URI)
	}

	fresh, err := c.seen.Filter(ctx, accountID, uris)
	if err != nil {
		c.logger.Warn("skipping recommendation dedupe", "err", err)
		c.metrics.Degraded("dedupe_read")
		return tracks, nil
	}

	if len(fresh) > 0 {
		kvstore.BestEffort(c.logger, c.metrics, "dedupe_write", func() error {
			return c.seen.Add(ctx, accountID, fresh)
		})
	}

	keep := make(map[string]struct{}, len(fresh))
	for _, u := range fresh {
		keep[u] = struct{}{}
	}
	out := make([]Track, 0, len(fresh))
	for _, t := range tracks {
		if _, ok := keep[string(t.URI)]; ok {
			out = append(out, t)
			delete(keep, string(t.URI))
		}
	}
	return out, nil
}

package spotify

import (
	"context"

	"github.com/zmb3/spotify/v2"
)

// Time ranges accepted by the top items endpoints.
const (
	ShortTerm  = string(spotify.ShortTermRange)
	MediumTerm = string(spotify.MediumTermRange)
	LongTerm   = string(spotify.LongTermRange)
)

// RecentlyPlayed returns the user's most recently played tracks.
func (c *Client) RecentlyPlayed(ctx context.Context, limit int) ([]PlayHistory, error) {
	opt := &spotify.RecentlyPlayedOptions{}
	if limit > 0 {
		opt.Limit = spotify.Numeric(limit)
	}

	var items []spotify.RecentlyPlayedItem
	err := c.call(ctx, "recently played", func(ctx context.Context) (err error) {
		items, err = c.api.PlayerRecentlyPlayedOpt(ctx, opt)
		return err
	})
	if err != nil {
		return nil, err
	}

	history := make([]PlayHistory, len(items))
	for i, item := range items {
		history[i] = PlayHistory{Track: convertSimpleTrack(item.Track), PlayedAt: formatTimestamp(item.PlayedAt)}
	}
	return history, nil
}

func topOptions(limit int, timeRange string) []spotify.RequestOption {
	if timeRange == "" {
		timeRange = MediumTerm
	}
	return append(pageOptions(limit, 0), spotify.Timerange(spotify.Range(timeRange)))
}

// TopTracks returns the user's top tracks over timeRange.
func (c *Client) TopTracks(ctx context.Context, limit int, timeRange string) ([]Track, error) {
	var page *spotify.FullTrackPage
	err := c.call(ctx, "top tracks", func(ctx context.Context) (err error) {
		page, err = c.api.CurrentUsersTopTracks(ctx, topOptions(limit, timeRange)...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return convertTracks(page.Tracks), nil
}

// TopArtists returns the user's top artists over timeRange.
func (c *Client) TopArtists(ctx context.Context, limit int, timeRange string) ([]Artist, error) {
	var page *spotify.FullArtistPage
	err := c.call(ctx, "top artists", func(ctx context.Context) (err error) {
		page, err = c.api.CurrentUsersTopArtists(ctx, topOptions(limit, timeRange)...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return convertFullArtists(page.Artists), nil
}

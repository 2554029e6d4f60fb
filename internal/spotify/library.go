package spotify

import (
	"context"

	"github.com/zmb3/spotify/v2"
)

// LibraryTracks returns one page of the user's saved tracks.
func (c *Client) LibraryTracks(ctx context.Context, limit, offset int) ([]SavedTrack, error) {
	var page *spotify.SavedTrackPage
	err := c.call(ctx, "list saved tracks", func(ctx context.Context) (err error) {
		page, err = c.api.CurrentUsersTracks(ctx, pageOptions(limit, offset)...)
		return err
	})
	if err != nil {
		return nil, err
	}

	tracks := make([]SavedTrack, len(page.Tracks))
	for i, saved := range page.Tracks {
		tracks[i] = SavedTrack{AddedAt: saved.AddedAt, Track: convertTrack(saved.FullTrack)}
	}
	return tracks, nil
}

// LibraryAlbums returns one page of the user's saved albums.
func (c *Client) LibraryAlbums(ctx context.Context, limit, offset int) ([]SavedAlbum, error) {
	var page *spotify.SavedAlbumPage
	err := c.call(ctx, "list saved albums", func(ctx context.Context) (err error) {
		page, err = c.api.CurrentUsersAlbums(ctx, pageOptions(limit, offset)...)
		return err
	})
	if err != nil {
		return nil, err
	}

	albums := make([]SavedAlbum, len(page.Albums))
	for i, saved := range page.Albums {
		albums[i] = SavedAlbum{AddedAt: saved.AddedAt, Album: convertAlbum(saved.SimpleAlbum)}
	}
	return albums, nil
}

// FollowedArtists returns followed artists after the given cursor, plus the
// cursor for the next page ("" when exhausted).
func (c *Client) FollowedArtists(ctx context.Context, limit int, after string) ([]Artist, string, error) {
	opts := pageOptions(limit, 0)
	if after != "" {
		opts = append(opts, spotify.After(after))
	}

	var page *spotify.FullArtistCursorPage
	err := c.call(ctx, "list followed artists", func(ctx context.Context) (err error) {
		page, err = c.api.CurrentUsersFollowedArtists(ctx, opts...)
		return err
	})
	if err != nil {
		return nil, "", err
	}
	return convertFullArtists(page.Artists), page.Cursor.After, nil
}

// FollowArtist follows an artist.
func (c *Client) FollowArtist(ctx context.Context, id string) error {
	return c.call(ctx, "follow artist", func(ctx context.Context) error {
		return c.api.FollowArtist(ctx, spotify.ID(id))
	})
}

// UnfollowArtist unfollows an artist.
func (c *Client) UnfollowArtist(ctx context.Context, id string) error {
	return c.call(ctx, "unfollow artist", func(ctx context.Context) error {
		return c.api.UnfollowArtist(ctx, spotify.ID(id))
	})
}

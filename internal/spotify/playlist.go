package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/xrash/smetrics"
	"github.com/zmb3/spotify/v2"
)

const (
	playlistPageSize = 50

	// DefaultMaxPlaylistScan bounds playlist scans against very large libraries.
	DefaultMaxPlaylistScan = 500

	canonicalIDLength = 22
)

// IsCanonicalID reports whether ref has the shape of a Spotify ID:
// exactly 22 ASCII letters or digits.
func IsCanonicalID(ref string) bool {
	if len(ref) != canonicalIDLength {
		return false
	}
	for i := 0; i < len(ref); i++ {
		ch := ref[i]
		if !('a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || '0' <= ch && ch <= '9') {
			return false
		}
	}
	return true
}

// ResolvePlaylistID turns a playlist ID or name into an ID. IDs are returned
// unchanged without a network call; names are matched case-insensitively
// against every page of the user's playlists. Resolutions are memoized for
// the lifetime of the Client.
func (c *Client) ResolvePlaylistID(ctx context.Context, ref string) (string, error) {
	if IsCanonicalID(ref) {
		return ref, nil
	}

	c.mu.Lock()
	id, ok := c.resolved[strings.ToLower(ref)]
	c.mu.Unlock()
	if ok {
		return id, nil
	}

	pl, err := c.PlaylistByName(ctx, ref, 0)
	if err != nil {
		return "", err
	}

	id = string(pl.ID)
	c.mu.Lock()
	c.resolved[strings.ToLower(ref)] = id
	c.mu.Unlock()
	return id, nil
}

// PlaylistByName returns the user's playlist whose name equals name,
// ignoring case. At most maxScan playlists are examined when maxScan > 0.
// Returns a *NotFoundError when no playlist matches.
func (c *Client) PlaylistByName(ctx context.Context, name string, maxScan int) (*Playlist, error) {
	var (
		found *Playlist
		names []string
	)

	err := c.call(ctx, "list playlists", func(ctx context.Context) error {
		page, err := c.api.CurrentUsersPlaylists(ctx, spotify.Limit(playlistPageSize))
		if err != nil {
			return err
		}

		for {
			for _, sp := range page.Playlists {
				if strings.EqualFold(sp.Name, name) {
					pl := convertPlaylist(sp)
					found = &pl
					return nil
				}
				names = append(names, sp.Name)
				if maxScan > 0 && len(names) >= maxScan {
					return nil
				}
			}

			if len(page.Playlists) == 0 {
				return nil
			}
			err = c.api.NextPage(ctx, page)
			if errors.Is(err, spotify.ErrNoMorePages) {
				return nil
			}
			if err != nil {
				return err
			}
		}
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, &NotFoundError{Ref: name, Suggestion: closestName(name, names)}
	}
	return found, nil
}

// closestName returns the candidate nearest to name by edit distance, or ""
// when none is within half of the longer string's length.
func closestName(name string, candidates []string) string {
	target := strings.ToLower(name)
	best, bestScore := "", 0.0
	for _, cand := range candidates {
		lc := strings.ToLower(cand)
		longest := max(len(lc), len(target))
		if longest == 0 {
			continue
		}
		score := 1 - float64(smetrics.WagnerFischer(target, lc, 1, 1, 2))/float64(longest)
		if score > bestScore {
			best, bestScore = cand, score
		}
	}
	if bestScore < 0.5 {
		return ""
	}
	return best
}

// UserPlaylists returns up to maxScan playlists owned or followed by the
// user, following the provider's next links.
func (c *Client) UserPlaylists(ctx context.Context, maxScan int) ([]Playlist, error) {
	if maxScan <= 0 {
		maxScan = DefaultMaxPlaylistScan
	}

	userID, err := c.AccountID(ctx)
	if err != nil {
		return nil, err
	}

	var playlists []Playlist
	err = c.call(ctx, "list user playlists", func(ctx context.Context) error {
		page, err := c.api.GetPlaylistsForUser(ctx, url.PathEscape(userID), spotify.Limit(playlistPageSize))
		if err != nil {
			return err
		}

		for {
			playlists = append(playlists, convertPlaylists(page.Playlists)...)
			if len(playlists) >= maxScan {
				return nil
			}

			err = c.api.NextPage(ctx, page)
			if errors.Is(err, spotify.ErrNoMorePages) {
				return nil
			}
			if err != nil {
				return err
			}
		}
	})
	if err != nil {
		return nil, err
	}

	if len(playlists) > maxScan {
		playlists = playlists[:maxScan]
	}
	return playlists, nil
}

// FindPlaylist returns the first playlist whose name contains fragment,
// ignoring case, or nil when none does.
func (c *Client) FindPlaylist(ctx context.Context, fragment string) (*Playlist, error) {
	playlists, err := c.UserPlaylists(ctx, DefaultMaxPlaylistScan)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(fragment)
	for i := range playlists {
		if strings.Contains(strings.ToLower(playlists[i].Name), needle) {
			return &playlists[i], nil
		}
	}
	return nil, nil
}

// Playlists returns one page of the current user's playlists.
func (c *Client) Playlists(ctx context.Context, limit, offset int) ([]Playlist, error) {
	var page *spotify.SimplePlaylistPage
	err := c.call(ctx, "list playlists", func(ctx context.Context) (err error) {
		page, err = c.api.CurrentUsersPlaylists(ctx, pageOptions(limit, offset)...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return convertPlaylists(page.Playlists), nil
}

// CreatePlaylist creates a new playlist for the current user.
// Returns the playlist ID.
func (c *Client) CreatePlaylist(ctx context.Context, name string, public bool) (string, error) {
	userID, err := c.AccountID(ctx)
	if err != nil {
		return "", err
	}

	var created *spotify.FullPlaylist
	err = c.call(ctx, "create playlist", func(ctx context.Context) (err error) {
		created, err = c.api.CreatePlaylistForUser(ctx, url.PathEscape(userID), name, "", public, false)
		return err
	})
	if err != nil {
		return "", err
	}
	return string(created.ID), nil
}

// PlaylistTracks returns every item of a playlist in listing order.
// Entries without a track or episode object are skipped.
func (c *Client) PlaylistTracks(ctx context.Context, playlistID string) ([]PlaylistTrack, error) {
	tracks := []PlaylistTrack{}

	err := c.call(ctx, "get playlist tracks", func(ctx context.Context) error {
		page, err := c.api.GetPlaylistItems(ctx, spotify.ID(playlistID))
		if err != nil {
			return err
		}

		for {
			for _, item := range page.Items {
				if t, ok := flattenItem(item); ok {
					tracks = append(tracks, t)
				}
			}

			err = c.api.NextPage(ctx, page)
			if errors.Is(err, spotify.ErrNoMorePages) {
				return nil
			}
			if err != nil {
				return err
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return tracks, nil
}

// AddTracksByTitle resolves each title to the URI of its top search hit and
// adds the resolved tracks in one batched call. Titles without any hit are
// skipped. Returns the added URIs; when nothing resolves no add call is made.
func (c *Client) AddTracksByTitle(ctx context.Context, playlistID string, titles []string) ([]string, error) {
	uris := make([]string, 0, len(titles))
	for _, title := range titles {
		hits, err := c.SearchTracks(ctx, title, 1)
		if err != nil {
			return nil, fmt.Errorf("resolving %q: %w", title, err)
		}
		if len(hits) == 0 {
			c.logger.Info("no tracks found", "title", title)
			continue
		}
		uris = append(uris, string(hits[0].URI))
	}

	if len(uris) == 0 {
		return uris, nil
	}

	if err := c.AddTracks(ctx, playlistID, uris); err != nil {
		return nil, err
	}
	return uris, nil
}

// AddTracks adds tracks to a playlist, batching by the API limit of 100.
// uris are track URIs or bare track IDs.
func (c *Client) AddTracks(ctx context.Context, playlistID string, uris []string) error {
	ids, err := trackIDs(uris)
	if err != nil {
		return err
	}

	for i, batch := range chunk(ids, maxTracksPerRequest) {
		err := c.call(ctx, "add tracks", func(ctx context.Context) error {
			_, err := c.api.AddTracksToPlaylist(ctx, spotify.ID(playlistID), batch...)
			return err
		})
		if err != nil {
			return fmt.Errorf("adding tracks (batch %d): %w", i+1, err)
		}
	}
	return nil
}

// RemoveTracks removes every occurrence of the given tracks from a playlist.
// uris are track URIs or bare track IDs.
func (c *Client) RemoveTracks(ctx context.Context, playlistID string, uris []string) error {
	ids, err := trackIDs(uris)
	if err != nil {
		return err
	}

	for i, batch := range chunk(ids, maxTracksPerRequest) {
		err := c.call(ctx, "remove tracks", func(ctx context.Context) error {
			_, err := c.api.RemoveTracksFromPlaylist(ctx, spotify.ID(playlistID), batch...)
			return err
		})
		if err != nil {
			return fmt.Errorf("removing tracks (batch %d): %w", i+1, err)
		}
	}
	return nil
}

// trackID extracts the ID from a track URI. A bare ID is accepted as is.
func trackID(ref string) (spotify.ID, error) {
	id := strings.TrimPrefix(ref, "spotify:track:")
	if id == "" || strings.Contains(id, ":") {
		return "", invalidArgument("%q is not a track uri", ref)
	}
	return spotify.ID(id), nil
}

func trackIDs(refs []string) ([]spotify.ID, error) {
	ids := make([]spotify.ID, len(refs))
	for i, ref := range refs {
		id, err := trackID(ref)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

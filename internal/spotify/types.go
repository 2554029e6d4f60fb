package spotify

import (
	"strings"

	"github.com/zmb3/spotify/v2"
)

// Image is a cover or profile picture.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// User is a Spotify account profile.
type User struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	Email       string  `json:"email,omitempty"`
	Country     string  `json:"country,omitempty"`
	Product     string  `json:"product,omitempty"`
	Images      []Image `json:"images,omitempty"`
}

// Artist is a simplified or full artist object.
type Artist struct {
	ID         spotify.ID  `json:"id"`
	Name       string      `json:"name"`
	URI        spotify.URI `json:"uri"`
	Genres     []string    `json:"genres,omitempty"`
	Popularity int         `json:"popularity,omitempty"`
}

// Album is a simplified album object.
type Album struct {
	ID          spotify.ID  `json:"id"`
	Name        string      `json:"name"`
	URI         spotify.URI `json:"uri"`
	ReleaseDate string      `json:"release_date,omitempty"`
	Artists     []Artist    `json:"artists,omitempty"`
	Images      []Image     `json:"images,omitempty"`
}

// Track is a full track object.
type Track struct {
	ID         spotify.ID  `json:"id"`
	Name       string      `json:"name"`
	URI        spotify.URI `json:"uri"`
	Artists    []Artist    `json:"artists"`
	Album      Album       `json:"album"`
	DurationMS int         `json:"duration_ms"`
	Explicit   bool        `json:"explicit"`
	Popularity int         `json:"popularity,omitempty"`
}

// ArtistNames returns the artist names joined with ", ".
func (t Track) ArtistNames() string {
	names := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		names[i] = a.Name
	}
	return joinNames(names)
}

// Playlist is a simplified playlist object.
type Playlist struct {
	ID          spotify.ID  `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Public      bool        `json:"public"`
	URI         spotify.URI `json:"uri"`
	Owner       User        `json:"owner"`
	Tracks      struct {
		Total int `json:"total"`
	} `json:"tracks"`
}

// PlaylistTrack is the flattened view of a playlist entry.
type PlaylistTrack struct {
	Title      string      `json:"title"`
	URI        spotify.URI `json:"track_uri"`
	Album      string      `json:"album_name"`
	Artists    []Artist    `json:"artists"`
	DurationMS int         `json:"duration_ms"`
	Explicit   bool        `json:"explicit"`
}

// ID returns the track id encoded in the URI, or "" for episodes and local files.
func (t PlaylistTrack) ID() string {
	const prefix = "spotify:track:"
	if !strings.HasPrefix(string(t.URI), prefix) {
		return ""
	}
	return strings.TrimPrefix(string(t.URI), prefix)
}

// SavedTrack is an entry of the user's library.
type SavedTrack struct {
	AddedAt string `json:"added_at"`
	Track   Track  `json:"track"`
}

// SavedAlbum is an album saved in the user's library.
type SavedAlbum struct {
	AddedAt string `json:"added_at"`
	Album   Album  `json:"album"`
}

// PlayHistory is one recently played track.
type PlayHistory struct {
	Track    Track  `json:"track"`
	PlayedAt string `json:"played_at"`
}

// Device is a Spotify Connect device.
type Device struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	IsActive      bool   `json:"is_active"`
	VolumePercent *int   `json:"volume_percent"`
}

// CurrentlyPlaying is the user's playback state.
type CurrentlyPlaying struct {
	IsPlaying  bool   `json:"is_playing"`
	ProgressMS int    `json:"progress_ms"`
	Item       *Track `json:"item"`
}

// AudioFeatures holds the audio analysis summary for a track.
type AudioFeatures struct {
	ID               spotify.ID  `json:"id"`
	URI              spotify.URI `json:"uri"`
	Acousticness     float64     `json:"acousticness"`
	Danceability     float64     `json:"danceability"`
	Energy           float64     `json:"energy"`
	Instrumentalness float64     `json:"instrumentalness"`
	Liveness         float64     `json:"liveness"`
	Loudness         float64     `json:"loudness"`
	Speechiness      float64     `json:"speechiness"`
	Tempo            float64     `json:"tempo"`
	Valence          float64     `json:"valence"`
}

// Page is an offset-paginated list.
type Page[T any] struct {
	Items  []T     `json:"items"`
	Next   *string `json:"next"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}

// SearchResult holds the per-type pages of a search.
type SearchResult struct {
	Tracks    *Page[Track]    `json:"tracks,omitempty"`
	Artists   *Page[Artist]   `json:"artists,omitempty"`
	Albums    *Page[Album]    `json:"albums,omitempty"`
	Playlists *Page[Playlist] `json:"playlists,omitempty"`
}

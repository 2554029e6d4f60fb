package spotify

import (
	"strconv"
	"time"

	"github.com/zmb3/spotify/v2"
)

func convertImages(images []spotify.Image) []Image {
	if len(images) == 0 {
		return nil
	}
	out := make([]Image, len(images))
	for i, img := range images {
		out[i] = Image{URL: img.URL, Height: int(img.Height), Width: int(img.Width)}
	}
	return out
}

func convertUser(u *spotify.PrivateUser) *User {
	return &User{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		Country:     u.Country,
		Product:     u.Product,
		Images:      convertImages(u.Images),
	}
}

func convertArtists(artists []spotify.SimpleArtist) []Artist {
	out := make([]Artist, len(artists))
	for i, a := range artists {
		out[i] = Artist{ID: a.ID, Name: a.Name, URI: a.URI}
	}
	return out
}

func convertFullArtist(a spotify.FullArtist) Artist {
	return Artist{
		ID:         a.ID,
		Name:       a.Name,
		URI:        a.URI,
		Genres:     a.Genres,
		Popularity: int(a.Popularity),
	}
}

func convertFullArtists(artists []spotify.FullArtist) []Artist {
	out := make([]Artist, len(artists))
	for i, a := range artists {
		out[i] = convertFullArtist(a)
	}
	return out
}

func convertAlbum(a spotify.SimpleAlbum) Album {
	album := Album{
		ID:          a.ID,
		Name:        a.Name,
		URI:         a.URI,
		ReleaseDate: a.ReleaseDate,
		Images:      convertImages(a.Images),
	}
	if len(a.Artists) > 0 {
		album.Artists = convertArtists(a.Artists)
	}
	return album
}

// convertSimpleTrack converts a track object without popularity. The album
// is empty unless the response embedded one.
func convertSimpleTrack(t spotify.SimpleTrack) Track {
	return Track{
		ID:         t.ID,
		Name:       t.Name,
		URI:        t.URI,
		Artists:    convertArtists(t.Artists),
		Album:      convertAlbum(t.Album),
		DurationMS: int(t.Duration),
		Explicit:   t.Explicit,
	}
}

// convertTrack converts a full track object.
func convertTrack(t spotify.FullTrack) Track {
	track := convertSimpleTrack(t.SimpleTrack)
	track.Album = convertAlbum(t.Album)
	track.Popularity = int(t.Popularity)
	return track
}

func convertTracks(tracks []spotify.FullTrack) []Track {
	out := make([]Track, len(tracks))
	for i, t := range tracks {
		out[i] = convertTrack(t)
	}
	return out
}

func convertPlaylist(p spotify.SimplePlaylist) Playlist {
	pl := Playlist{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Public:      p.IsPublic,
		URI:         p.URI,
		Owner:       User{ID: p.Owner.ID, DisplayName: p.Owner.DisplayName},
	}
	pl.Tracks.Total = int(p.Tracks.Total)
	return pl
}

func convertPlaylists(playlists []spotify.SimplePlaylist) []Playlist {
	out := make([]Playlist, len(playlists))
	for i, p := range playlists {
		out[i] = convertPlaylist(p)
	}
	return out
}

// flattenItem converts a playlist entry. ok is false for entries with
// neither a track nor an episode, such as content unavailable in the market.
func flattenItem(item spotify.PlaylistItem) (PlaylistTrack, bool) {
	switch {
	case item.Track.Track != nil:
		return flattenTrack(convertTrack(*item.Track.Track)), true
	case item.Track.Episode != nil:
		ep := item.Track.Episode
		return PlaylistTrack{
			Title:      ep.Name,
			URI:        ep.URI,
			Album:      ep.Show.Name,
			Artists:    []Artist{},
			DurationMS: int(ep.Duration_ms),
			Explicit:   ep.Explicit,
		}, true
	default:
		return PlaylistTrack{}, false
	}
}

func convertAudioFeatures(f *spotify.AudioFeatures) AudioFeatures {
	return AudioFeatures{
		ID:               f.ID,
		URI:              f.URI,
		Acousticness:     widen(f.Acousticness),
		Danceability:     widen(f.Danceability),
		Energy:           widen(f.Energy),
		Instrumentalness: widen(f.Instrumentalness),
		Liveness:         widen(f.Liveness),
		Loudness:         widen(f.Loudness),
		Speechiness:      widen(f.Speechiness),
		Tempo:            widen(f.Tempo),
		Valence:          widen(f.Valence),
	}
}

// widen converts to float64 through the shortest decimal form, so 0.9
// stays 0.9 instead of becoming 0.8999999761581421.
func widen(f float32) float64 {
	v, err := strconv.ParseFloat(strconv.FormatFloat(float64(f), 'g', -1, 32), 64)
	if err != nil {
		return float64(f)
	}
	return v
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// page converts the paging fields of an SDK page.
func page[T any](items []T, next string, total, limit, offset spotify.Numeric) *Page[T] {
	p := &Page[T]{Items: items, Total: int(total), Limit: int(limit), Offset: int(offset)}
	if p.Items == nil {
		p.Items = []T{}
	}
	if next != "" {
		p.Next = &next
	}
	return p
}

package lastfm

import "time"

// Tag represents a Last.fm tag with popularity count.
type Tag struct {
	Name  string `json:"name"`
	Count int    `json:"count,omitempty"` // Present in track.getTopTags, absent in artist.getTopTags
	URL   string `json:"url"`
}

// trackTagsResponse is the JSON response for track.getTopTags.
type trackTagsResponse struct {
	TopTags struct {
		Tag  []Tag `json:"tag"`
		Attr struct {
			Artist string `json:"artist"`
			Track  string `json:"track"`
		} `json:"@attr"`
	} `json:"toptags"`
}

// artistTagsResponse is the JSON response for artist.getTopTags.
type artistTagsResponse struct {
	TopTags struct {
		Tag  []Tag `json:"tag"`
		Attr struct {
			Artist string `json:"artist"`
		} `json:"@attr"`
	} `json:"toptags"`
}

// apiError represents a Last.fm API error response.
type apiError struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
}

// Scrobble is one entry of a user's listening history.
type Scrobble struct {
	Artist     string    `json:"artist"`
	Title      string    `json:"title"`
	Album      string    `json:"album,omitempty"`
	PlayedAt   time.Time `json:"played_at,omitzero"`
	NowPlaying bool      `json:"now_playing,omitempty"`
}

// textField is Last.fm's {"#text": "..."} wrapper.
type textField struct {
	Text string `json:"#text"`
}

// recentTracksResponse is the JSON response for user.getRecentTracks.
type recentTracksResponse struct {
	RecentTracks struct {
		Track []struct {
			Name   string    `json:"name"`
			Artist textField `json:"artist"`
			Album  textField `json:"album"`
			Date   struct {
				UTS string `json:"uts"`
			} `json:"date"`
			Attr struct {
				NowPlaying string `json:"nowplaying"`
			} `json:"@attr"`
		} `json:"track"`
	} `json:"recenttracks"`
}

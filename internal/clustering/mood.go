package clustering

import (
	"github.com/muesli/clusters"

	"github.com/justestif/spotigen/internal/spotify"
)

// featureNames defines the audio features used for clustering, in vector order.
var featureNames = []string{"energy", "valence", "danceability", "acousticness"}

// ByAudioFeatures groups tracks by energy, valence, danceability and
// acousticness. features is matched to tracks by URI; tracks without
// features (episodes, local files, unanalysed tracks) are outliers.
func ByAudioFeatures(tracks []spotify.PlaylistTrack, features []spotify.AudioFeatures, cfg Config) ([]Group[spotify.PlaylistTrack], []spotify.PlaylistTrack, error) {
	if len(tracks) == 0 {
		return nil, nil, nil
	}
	cfg = cfg.withDefaults()

	byURI := make(map[string]spotify.AudioFeatures, len(features))
	for _, f := range features {
		byURI[string(f.URI)] = f
	}

	var (
		valid   []spotify.PlaylistTrack
		vectors []clusters.Coordinates
		missing []spotify.PlaylistTrack
	)
	for _, t := range tracks {
		f, ok := byURI[string(t.URI)]
		if !ok {
			missing = append(missing, t)
			continue
		}
		valid = append(valid, t)
		vectors = append(vectors, clusters.Coordinates{f.Energy, f.Valence, f.Danceability, f.Acousticness})
	}

	kept, outliers, err := partition(valid, vectors, cfg)
	if err != nil {
		return nil, nil, err
	}

	groups := make([]Group[spotify.PlaylistTrack], 0, len(kept))
	for _, c := range kept {
		centroid := make(map[string]float64, len(featureNames))
		for i, name := range featureNames {
			centroid[name] = c.center[i]
		}
		groups = append(groups, Group[spotify.PlaylistTrack]{
			Name:     moodName(centroid),
			Centroid: centroid,
			Tracks:   c.items,
		})
	}
	sortGroups(groups)

	return groups, append(outliers, missing...), nil
}

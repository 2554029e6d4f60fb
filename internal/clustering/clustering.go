// Package clustering groups playlist tracks into moods with k-means, either
// by Last.fm tag similarity or by Spotify audio features.
package clustering

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
)

// Config holds clustering parameters.
type Config struct {
	NumClusters    int // Number of clusters to create (default: 3)
	MinClusterSize int // Minimum tracks per group (smaller clusters become outliers)
	MaxTags        int // Maximum tags to use in vectors (default: 50)
}

// DefaultConfig returns the recommended default configuration.
func DefaultConfig() Config {
	return Config{
		NumClusters:    3,
		MinClusterSize: 3,
		MaxTags:        50,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.NumClusters <= 0 {
		c.NumClusters = def.NumClusters
	}
	if c.MaxTags <= 0 {
		c.MaxTags = def.MaxTags
	}
	if c.MinClusterSize < 0 {
		c.MinClusterSize = 0
	}
	return c
}

// Group is a cluster of similar tracks.
type Group[T any] struct {
	Name     string             `json:"name"`
	TopTags  []string           `json:"top_tags,omitempty"`
	Centroid map[string]float64 `json:"centroid,omitempty"`
	Tracks   []T                `json:"tracks"`
}

// observation wraps an item to implement clusters.Observation.
type observation[T any] struct {
	item   T
	coords clusters.Coordinates
}

func (o observation[T]) Coordinates() clusters.Coordinates {
	return o.coords
}

func (o observation[T]) Distance(point clusters.Coordinates) float64 {
	return o.coords.Distance(point)
}

type cluster[T any] struct {
	center clusters.Coordinates
	items  []T
}

// partition runs k-means over items, whose vectors are given index for index.
// Clusters smaller than cfg.MinClusterSize are returned as outliers. When
// there are fewer items than clusters, every item is an outlier.
func partition[T any](items []T, vectors []clusters.Coordinates, cfg Config) ([]cluster[T], []T, error) {
	if len(items) < cfg.NumClusters {
		return nil, items, nil
	}

	obs := make(clusters.Observations, len(items))
	for i := range items {
		obs[i] = observation[T]{item: items[i], coords: vectors[i]}
	}

	result, err := kmeans.New().Partition(obs, cfg.NumClusters)
	if err != nil {
		return nil, nil, fmt.Errorf("partitioning %d tracks: %w", len(items), err)
	}

	var (
		kept     []cluster[T]
		outliers []T
	)
	for _, c := range result {
		members := make([]T, 0, len(c.Observations))
		for _, o := range c.Observations {
			if to, ok := o.(observation[T]); ok {
				members = append(members, to.item)
			}
		}
		if len(members) == 0 {
			continue
		}
		if len(members) < cfg.MinClusterSize {
			outliers = append(outliers, members...)
			continue
		}
		kept = append(kept, cluster[T]{center: c.Center, items: members})
	}

	return kept, outliers, nil
}

// sortGroups orders groups largest first, then by name.
func sortGroups[T any](groups []Group[T]) {
	slices.SortStableFunc(groups, func(a, b Group[T]) int {
		if n := cmp.Compare(len(b.Tracks), len(a.Tracks)); n != 0 {
			return n
		}
		return cmp.Compare(a.Name, b.Name)
	})
}

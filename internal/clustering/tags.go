package clustering

import (
	"cmp"
	"slices"
	"strings"

	"github.com/muesli/clusters"

	"github.com/justestif/spotigen/internal/tags"
)

// topTagCount is the number of centroid tags that name a group.
const topTagCount = 3

// ByTags groups tracks by tag similarity. Tags are ranked, so the first tag
// of a track weighs 1 and later ones proportionally less. Tracks without tags
// are outliers.
func ByTags(tracks []tags.TaggedTrack, cfg Config) ([]Group[tags.TaggedTrack], []tags.TaggedTrack, error) {
	if len(tracks) == 0 {
		return nil, nil, nil
	}
	cfg = cfg.withDefaults()

	var tagged, untagged []tags.TaggedTrack
	for _, t := range tracks {
		if len(t.Tags) > 0 {
			tagged = append(tagged, t)
		} else {
			untagged = append(untagged, t)
		}
	}

	vocabulary := buildTagVocabulary(tagged, cfg.MaxTags)
	if len(vocabulary) == 0 {
		return nil, append(tagged, untagged...), nil
	}

	vectors := make([]clusters.Coordinates, len(tagged))
	for i := range tagged {
		vectors[i] = buildTagVector(tagged[i].Tags, vocabulary)
	}

	kept, outliers, err := partition(tagged, vectors, cfg)
	if err != nil {
		return nil, nil, err
	}

	groups := make([]Group[tags.TaggedTrack], 0, len(kept))
	for _, c := range kept {
		top := extractTopTags(c.center, vocabulary, topTagCount)
		groups = append(groups, Group[tags.TaggedTrack]{
			Name:    tagGroupName(top),
			TopTags: top,
			Tracks:  c.items,
		})
	}
	sortGroups(groups)

	return groups, append(outliers, untagged...), nil
}

// tagWeights returns the rank weight of each tag, keyed by lowercase name.
func tagWeights(trackTags []string) map[string]float64 {
	weights := make(map[string]float64, len(trackTags))
	n := float64(len(trackTags))
	for i, tag := range trackTags {
		name := strings.ToLower(strings.TrimSpace(tag))
		if name == "" {
			continue
		}
		if _, ok := weights[name]; !ok {
			weights[name] = (n - float64(i)) / n
		}
	}
	return weights
}

// buildTagVocabulary returns the maxTags tags with the highest total weight.
func buildTagVocabulary(tracks []tags.TaggedTrack, maxTags int) []string {
	totals := make(map[string]float64)
	for _, t := range tracks {
		for name, w := range tagWeights(t.Tags) {
			totals[name] += w
		}
	}

	names := make([]string, 0, len(totals))
	for name := range totals {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b string) int {
		if n := cmp.Compare(totals[b], totals[a]); n != 0 {
			return n
		}
		return cmp.Compare(a, b)
	})

	return names[:min(maxTags, len(names))]
}

// buildTagVector creates the feature vector of one track over vocabulary.
func buildTagVector(trackTags []string, vocabulary []string) clusters.Coordinates {
	weights := tagWeights(trackTags)
	vector := make(clusters.Coordinates, len(vocabulary))
	for i, name := range vocabulary {
		vector[i] = weights[name]
	}
	return vector
}

// extractTopTags returns up to n vocabulary entries with the largest positive
// centroid weight.
func extractTopTags(centroid clusters.Coordinates, vocabulary []string, n int) []string {
	idx := make([]int, 0, len(vocabulary))
	for i := range vocabulary {
		if i < len(centroid) && centroid[i] > 0 {
			idx = append(idx, i)
		}
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		return cmp.Compare(centroid[b], centroid[a])
	})

	top := make([]string, 0, n)
	for _, i := range idx[:min(n, len(idx))] {
		top = append(top, vocabulary[i])
	}
	return top
}

func tagGroupName(topTags []string) string {
	if len(topTags) == 0 {
		return "Mixed"
	}
	return strings.Join(topTags, " & ")
}

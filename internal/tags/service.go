// Package tags annotates playlist tracks with Last.fm tags.
package tags

import (
	"context"
	"sync"

	"github.com/justestif/spotigen/internal/spotify"
)

// DefaultConcurrency is how many tag lookups run at once.
const DefaultConcurrency = 5

// DefaultLimit is how many tags are kept per track.
const DefaultLimit = 5

// TaggedTrack is a playlist track with its tags. TagError is set when the
// lookup for this track failed; Tags is then empty.
type TaggedTrack struct {
	spotify.PlaylistTrack
	Tags     []string `json:"tags"`
	TagError string   `json:"tag_error,omitempty"`
}

// Fetcher looks up the top tags of a track.
type Fetcher interface {
	TrackTags(ctx context.Context, artist, title string, limit int) ([]string, error)
}

// Service fans tag lookups for a batch of tracks over a bounded worker pool.
type Service struct {
	fetcher     Fetcher
	concurrency int
	limit       int
}

// Option configures a Service.
type Option func(*Service)

// WithConcurrency sets the number of concurrent tag fetch operations.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithLimit sets how many tags are kept per track.
func WithLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.limit = n
		}
	}
}

// NewService creates a new tag service.
func NewService(fetcher Fetcher, opts ...Option) *Service {
	s := &Service{
		fetcher:     fetcher,
		concurrency: DefaultConcurrency,
		limit:       DefaultLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchTagsForTracks fetches tags for every track concurrently.
// Results are returned in input order. A failed lookup is recorded on its
// track and never fails the batch; only cancellation of ctx is returned.
func (s *Service) FetchTagsForTracks(ctx context.Context, tracks []spotify.PlaylistTrack) ([]TaggedTrack, error) {
	if len(tracks) == 0 {
		return []TaggedTrack{}, nil
	}

	results := make([]TaggedTrack, len(tracks))

	type workItem struct {
		index int
		track spotify.PlaylistTrack
	}
	workCh := make(chan workItem, len(tracks))
	for i, t := range tracks {
		workCh <- workItem{index: i, track: t}
	}
	close(workCh)

	var wg sync.WaitGroup
	for i := 0; i < min(s.concurrency, len(tracks)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for work := range workCh {
				result := TaggedTrack{PlaylistTrack: work.track, Tags: []string{}}

				if err := ctx.Err(); err != nil {
					result.TagError = err.Error()
					results[work.index] = result
					continue
				}

				tags, err := s.fetcher.TrackTags(ctx, primaryArtist(work.track), work.track.Title, s.limit)
				if err != nil {
					result.TagError = err.Error()
				} else if tags != nil {
					result.Tags = tags
				}
				results[work.index] = result
			}
		}()
	}

	wg.Wait()

	if ctx.Err() != nil {
		return results, ctx.Err()
	}
	return results, nil
}

// primaryArtist is the first credited artist, which Last.fm indexes tracks by.
func primaryArtist(t spotify.PlaylistTrack) string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0].Name
}

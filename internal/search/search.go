// Package search finds a primary-platform candidate for a track query on the legacy search backends.
package search

import (
	"context"
	"net/http"
	"sync"

	"github.com/ppalone/ytsearch"
	"github.com/raitonoberu/ytmusic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"cantio/internal/core"
	"cantio/pkg/fuzzy"
	"cantio/pkg/musiclink"
)

// DefaultMinSimilarity is the lowest title similarity accepted as a match.
const DefaultMinSimilarity = 0.3

// Hit is one search result from a backend.
type Hit struct {
	VideoID string
	Title   string
	Artist  string
}

// Backend is a single search provider.
type Backend interface {
	Name() string
	Search(ctx context.Context, query string) ([]Hit, error)
}

// Searcher queries every backend concurrently and returns the hit most similar to the query.
type Searcher struct {
	backends      []Backend
	normalizer    *fuzzy.Normalizer
	minSimilarity float64
	logger        *zap.Logger
}

func New(logger *zap.Logger, backends ...Backend) *Searcher {
	return &Searcher{
		backends:      backends,
		normalizer:    fuzzy.NewNormalizer(),
		minSimilarity: DefaultMinSimilarity,
		logger:        logger.Named("search"),
	}
}

// NewDefault searches YouTube web results first, then the YouTube Music catalogue.
func NewDefault(client *http.Client, logger *zap.Logger) *Searcher {
	return New(logger, NewWebBackend(client), NewMusicBackend())
}

// Search implements core.LegacySearcher.
func (s *Searcher) Search(ctx context.Context, query string) (*core.SearchCandidate, error) {
	results := make([][]Hit, len(s.backends))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for i, backend := range s.backends {
		g.Go(func() error {
			hits, err := searchBounded(gctx, backend, query)
			if err != nil {
				// Backends fail independently.
				s.logger.Debug("Search backend failed", zap.String("backend", backend.Name()), zap.Error(err))
				return nil
			}
			mu.Lock()
			results[i] = hits
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	var best *Hit
	var bestScore float64
	for _, hits := range results {
		for i := range hits {
			hit := &hits[i]
			if hit.VideoID == "" {
				continue
			}
			score := s.normalizer.CalculateSimilarity(query, hit.Title+" "+hit.Artist)
			if score < s.minSimilarity {
				continue
			}
			if best == nil || score > bestScore {
				best, bestScore = hit, score
			}
		}
	}

	if best == nil {
		return nil, core.ErrNoCandidate
	}

	s.logger.Debug("Search candidate selected",
		zap.String("query", query),
		zap.String("title", best.Title),
		zap.Float64("similarity", bestScore))
	return &core.SearchCandidate{URL: musiclink.WatchURL(best.VideoID), Title: best.Title}, nil
}

type searchOutcome struct {
	hits []Hit
	err  error
}

// searchBounded returns when ctx is done even if the backend does not honour it.
// The abandoned call finishes in the background and its result is dropped.
func searchBounded(ctx context.Context, backend Backend, query string) ([]Hit, error) {
	done := make(chan searchOutcome, 1)
	go func() {
		hits, err := backend.Search(ctx, query)
		done <- searchOutcome{hits: hits, err: err}
	}()

	select {
	case out := <-done:
		return out.hits, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// WebBackend searches YouTube web results.
type WebBackend struct {
	client *ytsearch.Client
}

func NewWebBackend(httpClient *http.Client) *WebBackend {
	return &WebBackend{client: ytsearch.NewClient(httpClient)}
}

func (b *WebBackend) Name() string { return "youtube" }

func (b *WebBackend) Search(ctx context.Context, query string) ([]Hit, error) {
	res, err := b.client.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(res.Results))
	for _, r := range res.Results {
		hits = append(hits, Hit{VideoID: r.VideoID, Title: r.Title, Artist: r.Channel})
	}
	return hits, nil
}

// MusicBackend searches the YouTube Music track catalogue.
type MusicBackend struct{}

func NewMusicBackend() *MusicBackend {
	return &MusicBackend{}
}

func (b *MusicBackend) Name() string { return "ytmusic" }

func (b *MusicBackend) Search(ctx context.Context, query string) ([]Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The catalogue client takes no context.
	done := make(chan searchOutcome, 1)
	go func() {
		hits, err := trackSearch(query)
		done <- searchOutcome{hits: hits, err: err}
	}()

	select {
	case out := <-done:
		return out.hits, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func trackSearch(query string) ([]Hit, error) {
	res, err := ytmusic.TrackSearch(query).Next()
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(res.Tracks))
	for _, track := range res.Tracks {
		artist := ""
		if len(track.Artists) > 0 {
			artist = track.Artists[0].Name
		}
		hits = append(hits, Hit{VideoID: track.VideoID, Title: track.Title, Artist: artist})
	}
	return hits, nil
}

package core

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"cantio/pkg/fuzzy"
)

// LegacySearchPlatform names the legacy search path in results and in the tried-platforms list.
const LegacySearchPlatform = "search"

// ResolveFunc resolves a single target without falling back.
type ResolveFunc func(ctx context.Context, target string, budget int) (*ResolutionResult, error)

// FallbackEngine searches alternate sources for the same track when the primary source blocks.
type FallbackEngine struct {
	metadata   MetadataSource
	searcher   LegacySearcher
	refiner    QueryRefiner
	platforms  []AlternatePlatform
	budget     int
	normalizer *fuzzy.Normalizer
	metrics    MetricsRecorder
	logger     *zap.Logger
}

// FallbackOption customizes a FallbackEngine.
type FallbackOption func(*FallbackEngine)

// WithLegacySearch tries a primary-platform search hit before the alternate platforms.
func WithLegacySearch(s LegacySearcher) FallbackOption {
	return func(f *FallbackEngine) {
		f.searcher = s
	}
}

// WithQueryRefiner lets r rewrite the heuristic query.
func WithQueryRefiner(r QueryRefiner) FallbackOption {
	return func(f *FallbackEngine) {
		f.refiner = r
	}
}

// WithFallbackMetrics records one event per platform attempt.
func WithFallbackMetrics(m MetricsRecorder) FallbackOption {
	return func(f *FallbackEngine) {
		f.metrics = m
	}
}

func NewFallbackEngine(
	metadata MetadataSource,
	platforms []AlternatePlatform,
	budget int,
	logger *zap.Logger,
	opts ...FallbackOption,
) *FallbackEngine {
	f := &FallbackEngine{
		metadata:   metadata,
		platforms:  platforms,
		budget:     budget,
		normalizer: fuzzy.NewNormalizer(),
		metrics:    NopMetrics(),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// BuildTrackMetadata turns published metadata into the fallback search query.
func (f *FallbackEngine) BuildTrackMetadata(meta *SourceMetadata) *TrackMetadata {
	q := f.normalizer.BuildQuery(meta.Title, meta.Uploader)
	return &TrackMetadata{
		Title:         q.Song,
		Artist:        q.Artist,
		OriginalTitle: q.OriginalTitle,
		SearchQuery:   q.SearchQuery,
	}
}

// Run recovers metadata for originalURL and resolves the first alternate that yields a stream.
// Every failure is reported as KindFallbackExhausted.
func (f *FallbackEngine) Run(ctx context.Context, originalURL string, resolve ResolveFunc) (*ResolutionResult, error) {
	tried := []string{}

	meta, err := f.metadata.LookupMetadata(ctx, originalURL)
	if err != nil {
		f.logger.Warn("Fallback aborted, no metadata", zap.String("url", originalURL), zap.Error(err))
		return nil, &ResolutionError{
			Kind:      KindFallbackExhausted,
			Reason:    "primary source blocked and track metadata could not be recovered",
			Platforms: tried,
			Err:       err,
		}
	}

	track := f.BuildTrackMetadata(meta)
	if f.refiner != nil {
		if refined, ok := f.refiner.RefineQuery(ctx, track); ok {
			f.logger.Debug("Search query refined",
				zap.String("from", track.SearchQuery),
				zap.String("to", refined))
			track.SearchQuery = refined
		}
	}

	query := strings.TrimSpace(track.SearchQuery)
	if query == "" {
		return nil, &ResolutionError{
			Kind:      KindFallbackExhausted,
			Reason:    "primary source blocked and no search query could be derived",
			Platforms: tried,
			Err:       ErrNoMetadata,
		}
	}

	f.logger.Info("Primary source blocked, searching alternates",
		zap.String("url", originalURL),
		zap.String("query", query))

	var lastErr error

	if f.searcher != nil {
		tried = append(tried, LegacySearchPlatform)
		res, err := f.tryLegacySearch(ctx, originalURL, query, resolve)
		if err == nil {
			return markFallback(res, query, LegacySearchPlatform), nil
		}
		lastErr = err
	}

	for _, platform := range f.platforms {
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}

		tried = append(tried, platform.Name)
		res, err := resolve(ctx, platform.Directive(query), f.budget)
		if err != nil {
			f.metrics.RecordFallback(platform.Name, "failure")
			f.logger.Info("Alternate platform failed",
				zap.String("platform", platform.Name),
				zap.Error(err))
			lastErr = err
			continue
		}

		f.metrics.RecordFallback(platform.Name, "success")
		f.logger.Info("Alternate platform resolved",
			zap.String("platform", platform.Name),
			zap.String("title", res.Title))
		return markFallback(res, query, platform.Name), nil
	}

	return nil, &ResolutionError{
		Kind:      KindFallbackExhausted,
		Reason:    "primary source blocked and every fallback platform was exhausted",
		Platforms: tried,
		Err:       lastErr,
	}
}

func (f *FallbackEngine) tryLegacySearch(ctx context.Context, originalURL, query string, resolve ResolveFunc) (*ResolutionResult, error) {
	candidate, err := f.searcher.Search(ctx, query)
	if err != nil {
		f.metrics.RecordFallback(LegacySearchPlatform, "no_candidate")
		f.logger.Debug("Legacy search found nothing", zap.String("query", query), zap.Error(err))
		return nil, err
	}
	if candidate.URL == originalURL {
		f.metrics.RecordFallback(LegacySearchPlatform, "no_candidate")
		return nil, ErrSameCandidate
	}

	res, err := resolve(ctx, candidate.URL, f.budget)
	if err != nil {
		f.metrics.RecordFallback(LegacySearchPlatform, "failure")
		f.logger.Info("Legacy search candidate failed",
			zap.String("candidate", candidate.URL),
			zap.Error(err))
		return nil, err
	}

	f.metrics.RecordFallback(LegacySearchPlatform, "success")
	return res, nil
}

func markFallback(res *ResolutionResult, query, platform string) *ResolutionResult {
	out := *res
	out.FallbackUsed = true
	out.FallbackQuery = query
	out.FallbackPlatform = platform
	return &out
}

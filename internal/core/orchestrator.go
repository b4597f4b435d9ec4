package core

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"cantio/pkg/musiclink"
)

const unknownTitle = "Unknown"

// Orchestrator resolves a media URL into a playable audio stream.
type Orchestrator struct {
	retry    *RetryController
	fallback *FallbackEngine
	budget   int
	metrics  MetricsRecorder
	logger   *zap.Logger
}

// NewOrchestrator wires the resolution pipeline. A nil fallback surfaces primary blocks as KindBlocked.
func NewOrchestrator(
	retry *RetryController,
	fallback *FallbackEngine,
	attemptBudget int,
	metrics MetricsRecorder,
	logger *zap.Logger,
) *Orchestrator {
	if metrics == nil {
		metrics = NopMetrics()
	}
	return &Orchestrator{
		retry:    retry,
		fallback: fallback,
		budget:   attemptBudget,
		metrics:  metrics,
		logger:   logger,
	}
}

// Resolve runs one resolution. Errors are always *ResolutionError.
func (o *Orchestrator) Resolve(ctx context.Context, req ResolutionRequest) (*ResolutionResult, error) {
	start := time.Now()

	result, classification, err := o.resolve(ctx, req)

	outcome := "success"
	platform := classification.Platform
	if err != nil {
		outcome = KindOf(err).String()
	} else if result.Platform != "" {
		platform = result.Platform
	}
	if platform == "" {
		platform = classification.Category.String()
	}
	o.metrics.RecordResolution(platform, outcome, time.Since(start))

	return result, err
}

func (o *Orchestrator) resolve(ctx context.Context, req ResolutionRequest) (*ResolutionResult, musiclink.Classification, error) {
	classification := musiclink.Classify(req.URL, "")
	if !classification.Allowed() {
		o.logger.Info("URL rejected by platform classifier", zap.String("url", req.URL))
		return nil, classification, newResolutionError(KindValidation, "unsupported or unrecognized URL", nil)
	}

	budget := req.AttemptBudget
	if budget < 1 {
		budget = o.budget
	}

	result, err := o.resolveTarget(ctx, req.URL, classification, budget)
	if err == nil {
		return result, classification, nil
	}

	if KindOf(err) != KindBlocked {
		return nil, classification, err
	}
	if !musiclink.IsPrimaryURL(req.URL) || o.fallback == nil {
		return nil, classification, err
	}

	result, err = o.fallback.Run(ctx, req.URL, o.resolveAlternate)
	return result, classification, err
}

// resolveAlternate is handed to the fallback engine. It never falls back again.
// Search directives have no URL to pre-check and are judged by the post-check alone.
func (o *Orchestrator) resolveAlternate(ctx context.Context, target string, budget int) (*ResolutionResult, error) {
	classification := musiclink.Classification{Category: musiclink.SecondarySource}
	if !musiclink.IsSearchDirective(target) {
		classification = musiclink.Classify(target, "")
		if !classification.Allowed() {
			return nil, newResolutionError(KindValidation, "unsupported or unrecognized URL", nil)
		}
	}
	return o.resolveTarget(ctx, target, classification, budget)
}

func (o *Orchestrator) resolveTarget(
	ctx context.Context,
	target string,
	classification musiclink.Classification,
	budget int,
) (*ResolutionResult, error) {
	profile := SelectProfile(classification)

	extraction, err := o.retry.Run(ctx, target, profile, budget)
	if err != nil {
		return nil, attemptErrorToResolution(err)
	}

	post := musiclink.Classify(target, extraction.ExtractorID)
	if !post.Allowed() {
		o.logger.Warn("Extraction discarded by platform re-validation",
			zap.String("target", target),
			zap.String("extractor", extraction.ExtractorID))
		return nil, newResolutionError(KindBlocked, "extracted content is not from a supported audio source", nil)
	}

	return o.buildResult(target, extraction, post)
}

func (o *Orchestrator) buildResult(target string, extraction *Extraction, post musiclink.Classification) (*ResolutionResult, error) {
	result := &ResolutionResult{
		Title:     extraction.Title,
		Platform:  post.Platform,
		Duration:  extraction.Duration,
		Thumbnail: extraction.Thumbnail,
		Uploader:  extraction.Uploader,
	}
	if result.Title == "" {
		result.Title = unknownTitle
	}
	if result.Platform == "" {
		result.Platform = extraction.ExtractorID
	}

	if len(extraction.Formats) == 0 {
		if extraction.ResolvedURL == "" {
			return nil, newResolutionError(KindNotFound, "no audio stream found", ErrNoAudioFormat)
		}
		result.StreamURL = extraction.ResolvedURL
		return result, nil
	}

	selection, ok := SelectFormat(extraction.Formats)
	if !ok {
		return nil, newResolutionError(KindNotFound, "no audio stream found", ErrNoAudioFormat)
	}
	if selection.Degraded {
		o.logger.Warn("No audio-only format, using audio+video container",
			zap.String("target", target),
			zap.String("format", selection.Format.FormatID))
	}

	result.StreamURL = selection.Format.URL
	result.AudioFormat = selection.Format.Extension
	return result, nil
}

func attemptErrorToResolution(err error) error {
	var attemptErr *AttemptError
	if !errors.As(err, &attemptErr) {
		return newResolutionError(KindTransient, err.Error(), err)
	}

	switch attemptErr.Class {
	case FailureBlocked:
		return newResolutionError(KindBlocked, "upstream requires sign-in or suspects automated traffic", attemptErr)
	case FailureFatal:
		return newResolutionError(KindValidation, "unsupported URL", attemptErr)
	default:
		reason := "extraction failed"
		if attemptErr.Err != nil {
			reason = attemptErr.Err.Error()
		}
		return newResolutionError(KindTransient, reason, attemptErr)
	}
}

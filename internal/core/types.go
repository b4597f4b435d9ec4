package core

import (
	"context"
	"time"
)

// ResolutionRequest is one inbound resolve call.
type ResolutionRequest struct {
	URL           string
	AttemptBudget int
}

// ClientProfile is the identity the extraction capability impersonates for one platform category.
type ClientProfile struct {
	Name            string
	UserAgent       string
	AcceptLanguage  string
	ExtractionHints map[string][]string
}

// FormatCandidate is one encoded representation offered by the extraction capability.
type FormatCandidate struct {
	FormatID       string
	URL            string
	Extension      string
	AudioCodec     string
	VideoCodec     string
	AverageBitrate *float64
	TotalBitrate   *float64
}

// Extraction is the successful output of one extraction capability call.
type Extraction struct {
	ResolvedURL string
	Formats     []FormatCandidate
	ExtractorID string
	Title       string
	Duration    *float64
	Thumbnail   string
	Uploader    string
}

// TrackMetadata drives fallback search when the primary source blocks a resolution.
type TrackMetadata struct {
	Title         string
	Artist        string
	OriginalTitle string
	SearchQuery   string
}

// ResolutionResult is the terminal artifact returned to the caller.
type ResolutionResult struct {
	Title            string   `json:"title"`
	StreamURL        string   `json:"stream_url"`
	Platform         string   `json:"platform,omitempty"`
	Duration         *float64 `json:"duration,omitempty"`
	Thumbnail        string   `json:"thumbnail,omitempty"`
	Uploader         string   `json:"uploader,omitempty"`
	AudioFormat      string   `json:"audio_format,omitempty"`
	FallbackUsed     bool     `json:"fallback_used,omitempty"`
	FallbackQuery    string   `json:"fallback_query,omitempty"`
	FallbackPlatform string   `json:"fallback_platform,omitempty"`
}

// Extractor is the external extraction capability.
type Extractor interface {
	// Extract returns metadata and candidate formats for target. An empty proxy means direct egress.
	// Failures carry the raw upstream message in err.Error().
	Extract(ctx context.Context, target string, profile ClientProfile, proxy string) (*Extraction, error)
}

// ProxyProvider serves egress proxies for extraction attempts.
type ProxyProvider interface {
	// Acquire returns a proxy address, or "" when none is available.
	Acquire(ctx context.Context) string
	ReportFailure(address string)
}

// SourceMetadata is the published title and uploader of a media URL.
type SourceMetadata struct {
	Title    string
	Uploader string
}

// MetadataSource returns best-effort metadata for a URL without resolving streams.
type MetadataSource interface {
	LookupMetadata(ctx context.Context, rawURL string) (*SourceMetadata, error)
}

// SearchCandidate is a primary-platform hit returned by the legacy search capability.
type SearchCandidate struct {
	URL   string
	Title string
}

// LegacySearcher queries an external search capability for a primary-platform candidate.
type LegacySearcher interface {
	Search(ctx context.Context, query string) (*SearchCandidate, error)
}

// QueryRefiner optionally rewrites a heuristic search query into a catalogue-canonical one.
type QueryRefiner interface {
	RefineQuery(ctx context.Context, meta *TrackMetadata) (string, bool)
}

// MetricsRecorder receives resolution telemetry.
type MetricsRecorder interface {
	RecordResolution(platform, outcome string, duration time.Duration)
	RecordAttempt(outcome string)
	RecordFallback(platform, status string)
}

type nopMetrics struct{}

func (nopMetrics) RecordResolution(string, string, time.Duration) {}
func (nopMetrics) RecordAttempt(string)                           {}
func (nopMetrics) RecordFallback(string, string)                  {}

// NopMetrics returns a MetricsRecorder that discards everything.
func NopMetrics() MetricsRecorder {
	return nopMetrics{}
}

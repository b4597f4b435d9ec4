package core

import (
	"context"
	"errors"
	"sync"
	"time"
)

type extractCall struct {
	target  string
	profile ClientProfile
	proxy   string
}

// stubExtractor replays scripted responses per target; the last response repeats.
type stubExtractor struct {
	mu        sync.Mutex
	responses map[string][]stubResponse
	calls     []extractCall
}

type stubResponse struct {
	extraction *Extraction
	err        error
}

func newStubExtractor() *stubExtractor {
	return &stubExtractor{responses: make(map[string][]stubResponse)}
}

func (s *stubExtractor) on(target string, responses ...stubResponse) *stubExtractor {
	s.responses[target] = append(s.responses[target], responses...)
	return s
}

func (s *stubExtractor) Extract(_ context.Context, target string, profile ClientProfile, proxy string) (*Extraction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, c := range s.calls {
		if c.target == target {
			n++
		}
	}
	s.calls = append(s.calls, extractCall{target: target, profile: profile, proxy: proxy})

	script, ok := s.responses[target]
	if !ok || len(script) == 0 {
		return nil, errors.New("ERROR: [generic] Unsupported URL: " + target)
	}
	if n >= len(script) {
		n = len(script) - 1
	}
	r := script[n]
	return r.extraction, r.err
}

func (s *stubExtractor) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *stubExtractor) targets() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.calls))
	for _, c := range s.calls {
		out = append(out, c.target)
	}
	return out
}

func succeed(e *Extraction) stubResponse {
	return stubResponse{extraction: e}
}

func fail(msg string) stubResponse {
	return stubResponse{err: errors.New(msg)}
}

type stubProxies struct {
	mu       sync.Mutex
	next     []string
	reported []string
}

func (p *stubProxies) Acquire(context.Context) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.next) == 0 {
		return ""
	}
	addr := p.next[0]
	p.next = p.next[1:]
	return addr
}

func (p *stubProxies) ReportFailure(address string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reported = append(p.reported, address)
}

type recordedSleeps struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordedSleeps) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return nil
}

type stubMetadata struct {
	meta  *SourceMetadata
	err   error
	calls int
}

func (s *stubMetadata) LookupMetadata(context.Context, string) (*SourceMetadata, error) {
	s.calls++
	return s.meta, s.err
}

type stubSearcher struct {
	candidate *SearchCandidate
	err       error
	queries   []string
}

func (s *stubSearcher) Search(_ context.Context, query string) (*SearchCandidate, error) {
	s.queries = append(s.queries, query)
	return s.candidate, s.err
}

type stubRefiner struct {
	query string
	ok    bool
}

func (s stubRefiner) RefineQuery(context.Context, *TrackMetadata) (string, bool) {
	return s.query, s.ok
}

type recordingMetrics struct {
	mu          sync.Mutex
	resolutions []string
	attempts    []string
	fallbacks   []string
}

func (m *recordingMetrics) RecordResolution(platform, outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolutions = append(m.resolutions, platform+":"+outcome)
}

func (m *recordingMetrics) RecordAttempt(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = append(m.attempts, outcome)
}

func (m *recordingMetrics) RecordFallback(platform, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbacks = append(m.fallbacks, platform+":"+status)
}

func audioExtraction(extractorID, title, streamURL string) *Extraction {
	return &Extraction{
		ExtractorID: extractorID,
		Title:       title,
		Formats: []FormatCandidate{
			{FormatID: "251", URL: streamURL, Extension: "webm", AudioCodec: "opus", VideoCodec: "none", AverageBitrate: bitrate(128)},
		},
	}
}

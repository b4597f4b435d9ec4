package core

import "testing"

func bitrate(v float64) *float64 {
	return &v
}

func TestSelectFormat(t *testing.T) {
	tests := []struct {
		name         string
		formats      []FormatCandidate
		wantID       string
		wantDegraded bool
		wantOK       bool
	}{
		{
			name: "Audio-only preferred over higher bitrate muxed",
			formats: []FormatCandidate{
				{FormatID: "opus", URL: "https://cdn/opus", AudioCodec: "opus", VideoCodec: "none", AverageBitrate: bitrate(70)},
				{FormatID: "aac", URL: "https://cdn/aac", AudioCodec: "aac", VideoCodec: "none", AverageBitrate: bitrate(128)},
				{FormatID: "muxed", URL: "https://cdn/muxed", AudioCodec: "aac", VideoCodec: "h264", AverageBitrate: bitrate(192)},
			},
			wantID: "aac",
			wantOK: true,
		},
		{
			name: "Missing video codec counts as audio-only",
			formats: []FormatCandidate{
				{FormatID: "a", URL: "https://cdn/a", AudioCodec: "mp3", AverageBitrate: bitrate(96)},
				{FormatID: "b", URL: "https://cdn/b", AudioCodec: "aac", VideoCodec: "avc1", AverageBitrate: bitrate(256)},
			},
			wantID: "a",
			wantOK: true,
		},
		{
			name: "Total bitrate used when average missing",
			formats: []FormatCandidate{
				{FormatID: "abr", URL: "https://cdn/abr", AudioCodec: "opus", VideoCodec: "none", AverageBitrate: bitrate(100)},
				{FormatID: "tbr", URL: "https://cdn/tbr", AudioCodec: "opus", VideoCodec: "none", TotalBitrate: bitrate(160)},
			},
			wantID: "tbr",
			wantOK: true,
		},
		{
			name: "First seen wins ties",
			formats: []FormatCandidate{
				{FormatID: "first", URL: "https://cdn/first", AudioCodec: "opus", VideoCodec: "none", AverageBitrate: bitrate(128)},
				{FormatID: "second", URL: "https://cdn/second", AudioCodec: "aac", VideoCodec: "none", AverageBitrate: bitrate(128)},
			},
			wantID: "first",
			wantOK: true,
		},
		{
			name: "No bitrate at all keeps first",
			formats: []FormatCandidate{
				{FormatID: "first", URL: "https://cdn/first", AudioCodec: "opus", VideoCodec: "none"},
				{FormatID: "second", URL: "https://cdn/second", AudioCodec: "aac", VideoCodec: "none"},
			},
			wantID: "first",
			wantOK: true,
		},
		{
			name: "Degraded to muxed when no audio-only",
			formats: []FormatCandidate{
				{FormatID: "video", URL: "https://cdn/video", AudioCodec: "none", VideoCodec: "vp9", AverageBitrate: bitrate(999)},
				{FormatID: "low", URL: "https://cdn/low", AudioCodec: "aac", VideoCodec: "h264", TotalBitrate: bitrate(300)},
				{FormatID: "high", URL: "https://cdn/high", AudioCodec: "aac", VideoCodec: "h264", TotalBitrate: bitrate(900)},
			},
			wantID:       "high",
			wantDegraded: true,
			wantOK:       true,
		},
		{
			name: "No audio at all",
			formats: []FormatCandidate{
				{FormatID: "v1", URL: "https://cdn/v1", AudioCodec: "none", VideoCodec: "vp9"},
				{FormatID: "v2", URL: "https://cdn/v2", AudioCodec: "NONE", VideoCodec: "h264"},
			},
			wantOK: false,
		},
		{
			name: "Best audio-only without URL skipped",
			formats: []FormatCandidate{
				{FormatID: "nourl", AudioCodec: "opus", VideoCodec: "none", AverageBitrate: bitrate(160)},
				{FormatID: "low", URL: "https://cdn/low", AudioCodec: "aac", VideoCodec: "none", AverageBitrate: bitrate(48)},
				{FormatID: "muxed", URL: "https://cdn/muxed", AudioCodec: "aac", VideoCodec: "h264", AverageBitrate: bitrate(192)},
			},
			wantID: "low",
			wantOK: true,
		},
		{
			name: "Only URL-less audio",
			formats: []FormatCandidate{
				{FormatID: "a", AudioCodec: "opus", VideoCodec: "none", AverageBitrate: bitrate(160)},
				{FormatID: "b", URL: "  ", AudioCodec: "aac", VideoCodec: "h264", AverageBitrate: bitrate(192)},
			},
			wantOK: false,
		},
		{
			name:   "Empty list",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, ok := SelectFormat(tt.formats)
			if ok != tt.wantOK {
				t.Fatalf("SelectFormat() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if sel.Format.FormatID != tt.wantID {
				t.Errorf("SelectFormat() picked %q, want %q", sel.Format.FormatID, tt.wantID)
			}
			if sel.Degraded != tt.wantDegraded {
				t.Errorf("SelectFormat() degraded = %v, want %v", sel.Degraded, tt.wantDegraded)
			}
		})
	}
}

func TestSelectFormat_AudioOnlyAlwaysChosenWhenPresent(t *testing.T) {
	formats := []FormatCandidate{
		{FormatID: "m1", URL: "https://cdn/m1", AudioCodec: "aac", VideoCodec: "h264", AverageBitrate: bitrate(500)},
		{FormatID: "a1", URL: "https://cdn/a1", AudioCodec: "opus", VideoCodec: "none", AverageBitrate: bitrate(1)},
		{FormatID: "m2", URL: "https://cdn/m2", AudioCodec: "opus", VideoCodec: "vp9", AverageBitrate: bitrate(600)},
	}

	sel, ok := SelectFormat(formats)
	if !ok {
		t.Fatal("SelectFormat() found nothing")
	}
	if hasCodec(sel.Format.VideoCodec) {
		t.Errorf("SelectFormat() returned video codec %q", sel.Format.VideoCodec)
	}
}

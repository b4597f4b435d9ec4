package core

import "strings"

const codecNone = "none"

func hasCodec(codec string) bool {
	codec = strings.TrimSpace(strings.ToLower(codec))
	return codec != "" && codec != codecNone
}

// IsAudioOnly reports whether f carries real audio and no video.
func (f FormatCandidate) IsAudioOnly() bool {
	return hasCodec(f.AudioCodec) && !hasCodec(f.VideoCodec)
}

// HasAudio reports whether f carries a real audio codec.
func (f FormatCandidate) HasAudio() bool {
	return hasCodec(f.AudioCodec)
}

// HasURL reports whether f can be handed to a client.
func (f FormatCandidate) HasURL() bool {
	return strings.TrimSpace(f.URL) != ""
}

// Bitrate is the average bitrate, else the total bitrate, else 0.
func (f FormatCandidate) Bitrate() float64 {
	if f.AverageBitrate != nil {
		return *f.AverageBitrate
	}
	if f.TotalBitrate != nil {
		return *f.TotalBitrate
	}
	return 0
}

// FormatSelection is the outcome of SelectFormat.
type FormatSelection struct {
	Format FormatCandidate
	// Degraded is set when no audio-only candidate existed and an audio+video container was chosen.
	Degraded bool
}

// SelectFormat picks the best audio representation from formats, or returns false when none has audio.
//
// Candidates without a URL are never selected. Audio-only candidates are preferred; failing that any candidate with audio is accepted.
// The highest bitrate wins and the first candidate seen wins ties.
func SelectFormat(formats []FormatCandidate) (FormatSelection, bool) {
	if best, ok := maxBitrate(formats, FormatCandidate.IsAudioOnly); ok {
		return FormatSelection{Format: best}, true
	}
	if best, ok := maxBitrate(formats, FormatCandidate.HasAudio); ok {
		return FormatSelection{Format: best, Degraded: true}, true
	}
	return FormatSelection{}, false
}

func maxBitrate(formats []FormatCandidate, keep func(FormatCandidate) bool) (FormatCandidate, bool) {
	var best FormatCandidate
	found := false
	for _, f := range formats {
		if !f.HasURL() || !keep(f) {
			continue
		}
		if !found || f.Bitrate() > best.Bitrate() {
			best = f
			found = true
		}
	}
	return best, found
}

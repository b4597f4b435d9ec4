package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifyFailure(t *testing.T) {
	tests := []struct {
		message string
		want    FailureClass
	}{
		{"ERROR: [youtube] abc: Sign in to confirm you're not a bot", FailureBlocked},
		{"This video requires login required to view", FailureBlocked},
		{"Our systems have detected unusual traffic from your computer", FailureBlocked},
		{"CAPTCHA challenge", FailureBlocked},
		{"ERROR: Unsupported URL: https://example.com", FailureFatal},
		{"unsupported url but also sign in to confirm", FailureBlocked},
		{"HTTP Error 503: Service Unavailable", FailureTransient},
		{"", FailureTransient},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			if got := ClassifyFailure(tt.message); got != tt.want {
				t.Errorf("ClassifyFailure(%q) = %v, want %v", tt.message, got, tt.want)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", newResolutionError(KindNotFound, "no audio", ErrNoAudioFormat))

	if got := KindOf(wrapped); got != KindNotFound {
		t.Errorf("KindOf(wrapped) = %v, want %v", got, KindNotFound)
	}
	if got := KindOf(errors.New("plain")); got != KindTransient {
		t.Errorf("KindOf(plain) = %v, want %v", got, KindTransient)
	}
	if !errors.Is(wrapped, ErrNoAudioFormat) {
		t.Error("ResolutionError does not unwrap to its cause")
	}
}

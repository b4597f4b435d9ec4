package musiclink

import (
	"context"
	"errors"
	"testing"
)

func TestManager_CanResolve(t *testing.T) {
	t.Helper()

	manager := NewManager()

	tests := []struct {
		name     string
		url      string
		expected bool
	}{
		{
			name:     "YouTube standard URL",
			url:      "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			expected: true,
		},
		{
			name:     "YouTube Music URL",
			url:      "https://music.youtube.com/watch?v=dQw4w9WgXcQ",
			expected: true,
		},
		{
			name:     "SoundCloud URL",
			url:      "https://soundcloud.com/artist/track",
			expected: true,
		},
		{
			name:     "Bandcamp URL has no metadata resolver",
			url:      "https://artist.bandcamp.com/track/song",
			expected: false,
		},
		{
			name:     "Unknown URL",
			url:      "https://example.com/song",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := manager.CanResolve(tt.url); got != tt.expected {
				t.Errorf("CanResolve(%q) = %v, want %v", tt.url, got, tt.expected)
			}
		})
	}
}

type stubResolver struct {
	prefix string
	info   *TrackInfo
}

func (s *stubResolver) CanResolve(url string) bool {
	return len(url) >= len(s.prefix) && url[:len(s.prefix)] == s.prefix
}

func (s *stubResolver) Resolve(_ context.Context, _ string) (*TrackInfo, error) {
	return s.info, nil
}

func TestManager_Resolve(t *testing.T) {
	first := &stubResolver{prefix: "https://a", info: &TrackInfo{Title: "A"}}
	second := &stubResolver{prefix: "https://", info: &TrackInfo{Title: "B"}}
	manager := NewManagerWith(first, second)

	info, err := manager.Resolve(context.Background(), "https://a.example/x")
	if err != nil || info.Title != "A" {
		t.Errorf("Resolve() = %+v, %v; want first matching resolver", info, err)
	}

	info, err = manager.Resolve(context.Background(), "https://b.example/x")
	if err != nil || info.Title != "B" {
		t.Errorf("Resolve() = %+v, %v; want second resolver", info, err)
	}

	if _, err := manager.Resolve(context.Background(), "ftp://nothing"); !errors.Is(err, ErrNoResolver) {
		t.Errorf("Resolve() error = %v, want ErrNoResolver", err)
	}
}

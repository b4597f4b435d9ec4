package fuzzy

import (
	"testing"
)

func TestNormalizer_CleanTitle(t *testing.T) {
	normalizer := NewNormalizer()

	tests := []struct {
		input    string
		expected string
	}{
		{"Song [Official Video]", "Song"},
		{"Artist - Song (Official Music Video)", "Artist - Song"},
		{"Song (Lyrics) HD", "Song"},
		{"Song Official Audio 4K", "Song"},
		{"Artist - Song ft. Guest", "Artist - Song Guest"},
		{"Artist - Song feat. Guest [MV]", "Artist - Song Guest"},
		{"Audiomachine - Anthem", "Audiomachine - Anthem"},
		{"Video Killed the Radio Star", "Killed the Radio Star"},
		{"  Spaced   Out  ", "Spaced Out"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := normalizer.CleanTitle(tt.input); got != tt.expected {
				t.Errorf("CleanTitle(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizer_BuildQuery(t *testing.T) {
	normalizer := NewNormalizer()

	tests := []struct {
		name     string
		title    string
		uploader string
		song     string
		artist   string
		query    string
	}{
		{
			name:     "Bracketed noise with uploader as artist",
			title:    "Song [Official Video]",
			uploader: "Artist",
			song:     "Song",
			artist:   "Artist",
			query:    "Song Artist",
		},
		{
			name:     "Artist and song split on separator",
			title:    "Rick Astley - Never Gonna Give You Up (Official Music Video)",
			uploader: "Rick Astley",
			song:     "Never Gonna Give You Up",
			artist:   "Rick Astley",
			query:    "Never Gonna Give You Up Rick Astley",
		},
		{
			name:     "Split happens once",
			title:    "A - B - C",
			uploader: "ignored",
			song:     "B - C",
			artist:   "A",
			query:    "B - C A",
		},
		{
			name:     "Other dash variants are not separators",
			title:    "Artist – Song",
			uploader: "Channel",
			song:     "Artist – Song",
			artist:   "Channel",
			query:    "Artist – Song Channel",
		},
		{
			name:     "Topic channel",
			title:    "Song",
			uploader: "Artist - Topic",
			song:     "Song",
			artist:   "Artist",
			query:    "Song Artist",
		},
		{
			name:     "VEVO channel",
			title:    "Never Gonna Give You Up",
			uploader: "RickAstleyVEVO",
			song:     "Never Gonna Give You Up",
			artist:   "Rick Astley",
			query:    "Never Gonna Give You Up Rick Astley",
		},
		{
			name:     "No uploader",
			title:    "Song",
			uploader: "",
			song:     "Song",
			artist:   "",
			query:    "Song",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := normalizer.BuildQuery(tt.title, tt.uploader)
			if q.Song != tt.song {
				t.Errorf("Song = %q, want %q", q.Song, tt.song)
			}
			if q.Artist != tt.artist {
				t.Errorf("Artist = %q, want %q", q.Artist, tt.artist)
			}
			if q.SearchQuery != tt.query {
				t.Errorf("SearchQuery = %q, want %q", q.SearchQuery, tt.query)
			}
			if q.OriginalTitle != tt.title {
				t.Errorf("OriginalTitle = %q, want %q", q.OriginalTitle, tt.title)
			}
		})
	}
}

func TestNormalizer_CalculateSimilarity(t *testing.T) {
	normalizer := NewNormalizer()

	if got := normalizer.CalculateSimilarity("Song Artist", "song artist"); got != 1.0 {
		t.Errorf("case-insensitive identical strings similarity = %v, want 1.0", got)
	}
	if got := normalizer.CalculateSimilarity("", "x"); got != 0.0 {
		t.Errorf("empty string similarity = %v, want 0.0", got)
	}

	close := normalizer.CalculateSimilarity("Never Gonna Give You Up Rick Astley", "never gonna give you up")
	far := normalizer.CalculateSimilarity("Never Gonna Give You Up Rick Astley", "Sandstorm Darude")
	if close <= far {
		t.Errorf("expected related titles to score higher: close=%v far=%v", close, far)
	}
}

func TestNormalizer_NormalizeTitle(t *testing.T) {
	normalizer := NewNormalizer()

	if got := normalizer.NormalizeTitle("Beyoncé - Halo (Official Video)"); got != "beyonce halo" {
		t.Errorf("NormalizeTitle() = %q, want %q", got, "beyonce halo")
	}
}

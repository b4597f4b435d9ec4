package core

import (
	"testing"

	"go.uber.org/zap"
)

func TestFallbackEngine_BuildTrackMetadata(t *testing.T) {
	engine := NewFallbackEngine(nil, nil, 1, zap.NewNop())

	tests := []struct {
		name   string
		meta   SourceMetadata
		title  string
		artist string
		query  string
	}{
		{
			name:   "Uploader used as artist",
			meta:   SourceMetadata{Title: "Song [Official Video]", Uploader: "Artist"},
			title:  "Song",
			artist: "Artist",
			query:  "Song Artist",
		},
		{
			name:   "Separator splits artist and song",
			meta:   SourceMetadata{Title: "Daft Punk - One More Time (Official Audio)", Uploader: "Daft Punk"},
			title:  "One More Time",
			artist: "Daft Punk",
			query:  "One More Time Daft Punk",
		},
		{
			name:   "Topic channel",
			meta:   SourceMetadata{Title: "Around the World", Uploader: "Daft Punk - Topic"},
			title:  "Around the World",
			artist: "Daft Punk",
			query:  "Around the World Daft Punk",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			track := engine.BuildTrackMetadata(&tt.meta)
			if track.Title != tt.title {
				t.Errorf("Title = %q, want %q", track.Title, tt.title)
			}
			if track.Artist != tt.artist {
				t.Errorf("Artist = %q, want %q", track.Artist, tt.artist)
			}
			if track.SearchQuery != tt.query {
				t.Errorf("SearchQuery = %q, want %q", track.SearchQuery, tt.query)
			}
			if track.OriginalTitle != tt.meta.Title {
				t.Errorf("OriginalTitle = %q, want %q", track.OriginalTitle, tt.meta.Title)
			}
		})
	}
}

func TestAlternatePlatform_Directive(t *testing.T) {
	p := AlternatePlatform{Name: "soundcloud", Prefix: "scsearch1"}
	if got := p.Directive("Song Artist"); got != "scsearch1:Song Artist" {
		t.Errorf("Directive() = %q", got)
	}
}

package core

import (
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Resolver.AttemptBudget != DefaultAttemptBudget {
		t.Errorf("Expected default attempt budget %d, got %d", DefaultAttemptBudget, config.Resolver.AttemptBudget)
	}

	if config.Resolver.FallbackAttemptBudget >= config.Resolver.AttemptBudget {
		t.Error("Fallback attempt budget should be smaller than the primary budget")
	}

	if config.Proxy.MaxSize != DefaultProxyPoolSize {
		t.Errorf("Expected proxy pool size %d, got %d", DefaultProxyPoolSize, config.Proxy.MaxSize)
	}

	if config.Proxy.Enabled {
		t.Error("Expected proxies to be disabled by default")
	}

	if config.Spotify.Enabled() {
		t.Error("Expected Spotify refinement to be disabled without credentials")
	}

	if config.Resolver.ExtractTimeout >= config.Resolver.RequestDeadline {
		t.Error("A single extraction must fit inside the request deadline")
	}
}

func TestDefaultAlternatePlatforms(t *testing.T) {
	platforms := DefaultAlternatePlatforms()

	want := []string{"soundcloud", "bilibili", "niconico"}
	if len(platforms) != len(want) {
		t.Fatalf("Expected %d platforms, got %d", len(want), len(platforms))
	}
	for i, name := range want {
		if platforms[i].Name != name {
			t.Errorf("Platform %d = %s, want %s", i, platforms[i].Name, name)
		}
	}
}

func TestConfigConstants(t *testing.T) {
	if DefaultProxyReuseProbability < 0 || DefaultProxyReuseProbability > 1 {
		t.Error("DefaultProxyReuseProbability should be a probability")
	}

	if DefaultRetryBaseDelay <= 0 {
		t.Error("DefaultRetryBaseDelay should be positive")
	}
}

func TestSpotifyConfig_Enabled(t *testing.T) {
	if (SpotifyConfig{ClientID: "id"}).Enabled() {
		t.Error("Enabled() with only a client id should be false")
	}
	if !(SpotifyConfig{ClientID: "id", ClientSecret: "secret"}).Enabled() {
		t.Error("Enabled() with both credentials should be true")
	}
}

func TestParseAlternatePlatforms(t *testing.T) {
	tests := []struct {
		name    string
		specs   []string
		want    []AlternatePlatform
		wantErr bool
	}{
		{
			name:  "ordered pairs",
			specs: []string{"soundcloud=scsearch1", " bilibili = bilisearch1 "},
			want:  []AlternatePlatform{{Name: "soundcloud", Prefix: "scsearch1"}, {Name: "bilibili", Prefix: "bilisearch1"}},
		},
		{
			name:  "blank entries skipped",
			specs: []string{"", "niconico=nicosearch1", "  "},
			want:  []AlternatePlatform{{Name: "niconico", Prefix: "nicosearch1"}},
		},
		{
			name:  "empty list",
			specs: nil,
			want:  []AlternatePlatform{},
		},
		{name: "missing prefix", specs: []string{"soundcloud="}, wantErr: true},
		{name: "missing separator", specs: []string{"soundcloud"}, wantErr: true},
		{name: "duplicate name", specs: []string{"a=x", "a=y"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAlternatePlatforms(tt.specs)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAlternatePlatforms() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d platforms, want %d", len(got), len(tt.want))
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("platform %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestAlternatePlatform_RoundTrip(t *testing.T) {
	var specs []string
	for _, p := range DefaultAlternatePlatforms() {
		specs = append(specs, p.String())
	}

	parsed, err := ParseAlternatePlatforms(specs)
	if err != nil {
		t.Fatalf("ParseAlternatePlatforms() error: %v", err)
	}
	for i, p := range DefaultAlternatePlatforms() {
		if parsed[i] != p {
			t.Errorf("platform %d = %+v, want %+v", i, parsed[i], p)
		}
	}
	if got := parsed[0].Directive("Song Artist"); got != "scsearch1:Song Artist" {
		t.Errorf("Directive() = %q", got)
	}
}

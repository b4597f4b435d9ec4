package core

import (
	"slices"

	"cantio/pkg/musiclink"
)

const (
	mobileUserAgent       = "com.google.android.youtube/19.29.37 (Linux; U; Android 14; en_US) gzip"
	desktopUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	defaultAcceptLanguage = "en-US,en;q=0.9"
)

var (
	mobileProfile = ClientProfile{
		Name:           "mobile",
		UserAgent:      mobileUserAgent,
		AcceptLanguage: defaultAcceptLanguage,
		ExtractionHints: map[string][]string{
			"youtube": {"player_client=android,web", "player_skip=webpage", "skip=hls,dash"},
		},
	}
	desktopProfile = ClientProfile{
		Name:           "desktop",
		UserAgent:      desktopUserAgent,
		AcceptLanguage: defaultAcceptLanguage,
	}
)

// SelectProfile maps a classification to the client identity used for extraction.
// The primary source blocks desktop browser identities, so it gets the mobile app profile.
func SelectProfile(c musiclink.Classification) ClientProfile {
	base := desktopProfile
	if c.Category == musiclink.PrimarySource {
		base = mobileProfile
	}

	p := base
	if base.ExtractionHints != nil {
		p.ExtractionHints = make(map[string][]string, len(base.ExtractionHints))
		for k, v := range base.ExtractionHints {
			p.ExtractionHints[k] = slices.Clone(v)
		}
	}
	return p
}

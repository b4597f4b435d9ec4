package musiclink

import (
	"net/url"
	"path"
	"strings"
)

// Category is the content category a URL belongs to.
type Category int

const (
	// Rejected means the URL is not a recognized audio source.
	Rejected Category = iota
	// PrimarySource is the principal platform with a dedicated client profile.
	PrimarySource
	// SecondarySource is any other allow-listed audio platform.
	SecondarySource
	// DirectFile is a plain audio file or stream endpoint.
	DirectFile
)

func (c Category) String() string {
	switch c {
	case PrimarySource:
		return "primary"
	case SecondarySource:
		return "secondary"
	case DirectFile:
		return "direct"
	default:
		return "rejected"
	}
}

// MatchedBy records which rule produced a classification.
type MatchedBy int

const (
	MatchedNone MatchedBy = iota
	MatchedDomain
	MatchedExtractorKey
	MatchedFileExtension
	MatchedStreamHint
)

// Classification is the result of classifying a URL, optionally with an extractor key.
type Classification struct {
	Category  Category
	MatchedBy MatchedBy
	Platform  string
}

// Allowed reports whether the classification permits resolution.
func (c Classification) Allowed() bool {
	return c.Category != Rejected
}

// genericExtractorKey is reported by the extraction engine for plain files and unknown pages.
const genericExtractorKey = "generic"

type platformDomain struct {
	domain   string
	platform string
	primary  bool
}

var (
	platformDomains = []platformDomain{
		{domain: "youtube.com", platform: "youtube", primary: true},
		{domain: "youtu.be", platform: "youtube", primary: true},
		{domain: "youtube-nocookie.com", platform: "youtube", primary: true},
		{domain: "soundcloud.com", platform: "soundcloud"},
		{domain: "bandcamp.com", platform: "bandcamp"},
		{domain: "mixcloud.com", platform: "mixcloud"},
		{domain: "audiomack.com", platform: "audiomack"},
		{domain: "hearthis.at", platform: "hearthis"},
		{domain: "jamendo.com", platform: "jamendo"},
		{domain: "bilibili.com", platform: "bilibili"},
		{domain: "b23.tv", platform: "bilibili"},
		{domain: "nicovideo.jp", platform: "niconico"},
		{domain: "nico.ms", platform: "niconico"},
		{domain: "archive.org", platform: "archiveorg"},
	}

	// extractorPlatforms maps extractor key fragments to platform names.
	extractorPlatforms = []platformDomain{
		{domain: "youtube", platform: "youtube", primary: true},
		{domain: "soundcloud", platform: "soundcloud"},
		{domain: "bandcamp", platform: "bandcamp"},
		{domain: "mixcloud", platform: "mixcloud"},
		{domain: "audiomack", platform: "audiomack"},
		{domain: "hearthis", platform: "hearthis"},
		{domain: "jamendo", platform: "jamendo"},
		{domain: "bilibili", platform: "bilibili"},
		{domain: "niconico", platform: "niconico"},
		{domain: "archiveorg", platform: "archiveorg"},
	}

	audioExtensions = map[string]bool{
		".mp3":  true,
		".m4a":  true,
		".aac":  true,
		".ogg":  true,
		".oga":  true,
		".opus": true,
		".flac": true,
		".wav":  true,
		".weba": true,
		".wma":  true,
		".aiff": true,
	}

	streamHints = []string{
		".m3u8",
		".m3u",
		".pls",
		"/hls/",
		"icecast",
		"shoutcast",
	}
)

// Classify decides whether rawURL belongs to an allowed content category.
//
// With an empty extractorKey it is the pre-check run before any network I/O.
// With a key it is the post-check run on the identifier returned by the extraction
// engine: both the URL and the key must be allowed, and the generic extractor is only
// accepted for direct files. Search directives such as "scsearch1:query" are judged by
// the key alone.
func Classify(rawURL, extractorKey string) Classification {
	if extractorKey == "" {
		return classifyURL(rawURL)
	}

	key := strings.ToLower(strings.TrimSpace(extractorKey))
	if IsSearchDirective(rawURL) {
		return classifyExtractorKey(key)
	}

	byURL := classifyURL(rawURL)
	if !byURL.Allowed() {
		return byURL
	}

	if key == genericExtractorKey {
		if byURL.Category == DirectFile {
			return byURL
		}
		return Classification{}
	}

	byKey := classifyExtractorKey(key)
	if !byKey.Allowed() {
		return byKey
	}
	if byURL.Category == DirectFile {
		// A direct file that an engine recognized as a platform page is still a platform result.
		return byKey
	}
	return Classification{Category: byURL.Category, MatchedBy: MatchedExtractorKey, Platform: byKey.Platform}
}

// IsPrimaryURL reports whether rawURL is on the primary platform by domain.
func IsPrimaryURL(rawURL string) bool {
	return classifyURL(rawURL).Category == PrimarySource
}

// IsSearchDirective reports whether s is an extraction search directive like "scsearch1:foo".
func IsSearchDirective(s string) bool {
	prefix, _, found := strings.Cut(s, ":")
	if !found || prefix == "" {
		return false
	}
	if strings.Contains(prefix, "/") || strings.EqualFold(prefix, "http") || strings.EqualFold(prefix, "https") {
		return false
	}
	return strings.Contains(strings.ToLower(prefix), "search")
}

func classifyURL(rawURL string) Classification {
	lower := strings.ToLower(strings.TrimSpace(rawURL))
	if lower == "" {
		return Classification{}
	}

	u, err := url.Parse(lower)
	if err != nil {
		return Classification{}
	}
	if u.Host == "" && !strings.Contains(lower, "://") {
		// Accept scheme-less input such as "youtu.be/abc".
		if u, err = url.Parse("https://" + lower); err != nil {
			return Classification{}
		}
	}

	host := u.Hostname()
	for _, pd := range platformDomains {
		if host == pd.domain || strings.HasSuffix(host, "."+pd.domain) {
			category := SecondarySource
			if pd.primary {
				category = PrimarySource
			}
			return Classification{Category: category, MatchedBy: MatchedDomain, Platform: pd.platform}
		}
	}

	if audioExtensions[path.Ext(u.Path)] {
		return Classification{Category: DirectFile, MatchedBy: MatchedFileExtension, Platform: "direct"}
	}

	for _, hint := range streamHints {
		if strings.Contains(lower, hint) {
			return Classification{Category: DirectFile, MatchedBy: MatchedStreamHint, Platform: "stream"}
		}
	}

	return Classification{}
}

func classifyExtractorKey(key string) Classification {
	for _, ep := range extractorPlatforms {
		if strings.Contains(key, ep.domain) {
			category := SecondarySource
			if ep.primary {
				category = PrimarySource
			}
			return Classification{Category: category, MatchedBy: MatchedExtractorKey, Platform: ep.platform}
		}
	}
	return Classification{}
}

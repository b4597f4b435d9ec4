package musiclink

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// SoundCloudOEmbedURL is the SoundCloud oEmbed API endpoint.
const SoundCloudOEmbedURL = "https://soundcloud.com/oembed"

var soundCloudHosts = map[string]bool{
	"soundcloud.com":     true,
	"www.soundcloud.com": true,
	"m.soundcloud.com":   true,
	"on.soundcloud.com":  true,
}

// SoundCloudResolver looks up SoundCloud track metadata through oEmbed.
type SoundCloudResolver struct {
	endpoint *oEmbedEndpoint
}

func NewSoundCloudResolver() *SoundCloudResolver {
	return &SoundCloudResolver{endpoint: newOEmbedEndpoint(SoundCloudOEmbedURL)}
}

// CanResolve accepts the main, mobile, and short-link hosts.
func (r *SoundCloudResolver) CanResolve(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return soundCloudHosts[strings.ToLower(u.Hostname())]
}

func (r *SoundCloudResolver) Resolve(ctx context.Context, rawURL string) (*TrackInfo, error) {
	if !r.CanResolve(rawURL) {
		return nil, errors.New("not a SoundCloud URL")
	}

	resp, err := r.endpoint.lookup(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("soundcloud oEmbed: %w", err)
	}
	return splitByline(resp), nil
}

// splitByline drops the " by Artist" suffix SoundCloud appends to oEmbed titles.
// The suffix fills in the uploader when author_name is missing.
func splitByline(resp *oEmbedResponse) *TrackInfo {
	info := &TrackInfo{Title: resp.Title, Uploader: resp.AuthorName}

	i := strings.LastIndex(resp.Title, " by ")
	if i < 0 {
		return info
	}
	info.Title = strings.TrimSpace(resp.Title[:i])
	if info.Uploader == "" {
		info.Uploader = strings.TrimSpace(resp.Title[i+len(" by "):])
	}
	return info
}

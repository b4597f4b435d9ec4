package musiclink

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// YouTubeOEmbedURL is the YouTube oEmbed API endpoint.
const YouTubeOEmbedURL = "https://www.youtube.com/oembed"

var videoIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)

// YouTubeResolver looks up YouTube and YouTube Music metadata through oEmbed,
// which is served without the bot checks applied to the player endpoints.
type YouTubeResolver struct {
	endpoint *oEmbedEndpoint
}

// NewYouTubeResolver creates a new YouTube metadata resolver.
func NewYouTubeResolver() *YouTubeResolver {
	return &YouTubeResolver{endpoint: newOEmbedEndpoint(YouTubeOEmbedURL)}
}

// CanResolve checks if the URL is a YouTube or YouTube Music link.
func (r *YouTubeResolver) CanResolve(rawURL string) bool {
	return IsPrimaryURL(rawURL)
}

// Resolve extracts track information from a YouTube URL using the oEmbed API.
func (r *YouTubeResolver) Resolve(ctx context.Context, rawURL string) (*TrackInfo, error) {
	if !r.CanResolve(rawURL) {
		return nil, errors.New("not a YouTube URL")
	}

	videoID, err := ExtractVideoID(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to extract video ID: %w", err)
	}

	// Music and short links are canonicalized; oEmbed only knows watch URLs.
	resp, err := r.endpoint.lookup(ctx, WatchURL(videoID))
	if err != nil {
		return nil, fmt.Errorf("youtube oEmbed: %w", err)
	}

	return &TrackInfo{Title: resp.Title, Uploader: resp.AuthorName}, nil
}

// ExtractVideoID extracts the YouTube video ID from various URL formats.
func ExtractVideoID(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", err
	}

	hostname := strings.ToLower(u.Hostname())

	var videoID string
	switch {
	case hostname == "youtu.be":
		videoID = strings.Trim(u.Path, "/")
	case strings.HasPrefix(u.Path, "/shorts/"), strings.HasPrefix(u.Path, "/embed/"), strings.HasPrefix(u.Path, "/live/"):
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) >= 2 {
			videoID = parts[1]
		}
	default:
		videoID = u.Query().Get("v")
	}

	if !videoIDRegex.MatchString(videoID) {
		return "", fmt.Errorf("no video ID in YouTube URL %q", rawURL)
	}
	return videoID, nil
}

// WatchURL builds the canonical watch URL for a video ID.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// Package musiclink classifies media URLs by platform and looks up lightweight track metadata.
package musiclink

import (
	"context"
)

// TrackInfo holds metadata returned by a platform's fast metadata API.
type TrackInfo struct {
	Title    string // Raw title as published.
	Uploader string // Channel, author, or uploader name.
}

// Resolver looks up metadata for URLs of one platform without touching the stream endpoints.
type Resolver interface {
	// Resolve extracts track information from a music provider URL.
	Resolve(ctx context.Context, url string) (*TrackInfo, error)

	// CanResolve checks if this resolver can handle the given URL.
	CanResolve(url string) bool
}

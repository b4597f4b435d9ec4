package core

import (
	"context"

	"cantio/pkg/musiclink"
)

// oEmbedSource adapts a musiclink.Manager to MetadataSource.
type oEmbedSource struct {
	manager *musiclink.Manager
}

// NewOEmbedSource looks up metadata through the platforms' public oEmbed endpoints.
func NewOEmbedSource(manager *musiclink.Manager) MetadataSource {
	return &oEmbedSource{manager: manager}
}

func (a *oEmbedSource) LookupMetadata(ctx context.Context, rawURL string) (*SourceMetadata, error) {
	info, err := a.manager.Resolve(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	return &SourceMetadata{
		Title:    info.Title,
		Uploader: info.Uploader,
	}, nil
}

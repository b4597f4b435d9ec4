package core

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
)

// MetadataChain asks each source in order and returns the first usable answer.
type MetadataChain struct {
	sources []MetadataSource
	logger  *zap.Logger
}

func NewMetadataChain(logger *zap.Logger, sources ...MetadataSource) *MetadataChain {
	return &MetadataChain{sources: sources, logger: logger}
}

// LookupMetadata returns ErrNoMetadata, joined with every source's failure, when no source yields a title.
func (c *MetadataChain) LookupMetadata(ctx context.Context, rawURL string) (*SourceMetadata, error) {
	var errs []error
	for i, source := range c.sources {
		meta, err := source.LookupMetadata(ctx, rawURL)
		if err == nil && meta != nil && strings.TrimSpace(meta.Title) != "" {
			return meta, nil
		}
		if err == nil {
			err = errors.New("empty title")
		}

		c.logger.Debug("Metadata source failed",
			zap.Int("source", i),
			zap.String("url", rawURL),
			zap.Error(err))
		errs = append(errs, err)

		if ctx.Err() != nil {
			break
		}
	}

	return nil, errors.Join(append([]error{ErrNoMetadata}, errs...)...)
}

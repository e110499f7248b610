package workflows

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/tendant/simple-content-mediafilter/internal/capability"
	"github.com/tendant/simple-content-mediafilter/internal/config"
	"github.com/tendant/simple-content-mediafilter/internal/content"
	"github.com/tendant/simple-content-mediafilter/internal/extract"
	"github.com/tendant/simple-content-mediafilter/internal/selector"
)

// ExtractText produces plain text derivatives through the provider
// registered for the source media type
type ExtractText struct {
	registry *capability.Registry
}

// NewExtractText resolves the providers of a task. With no explicit
// providers the discovered set is used.
func NewExtractText(spec *config.DerivativeSpec, providers []capability.Provider, logger *slog.Logger) *ExtractText {
	if providers == nil {
		providers = extract.Discovered()
	}
	return &ExtractText{registry: capability.NewRegistry(logger, providers, spec.Providers)}
}

// Name returns the transform name
func (e *ExtractText) Name() string {
	return "ExtractText"
}

// Supports reports whether a provider handles the asset media type
func (e *ExtractText) Supports(c selector.Candidate) bool {
	return e.registry.Supports(c.MediaType)
}

// Apply returns the extracted text stream
func (e *ExtractText) Apply(ctx context.Context, item *content.Item, source *content.Asset, src io.Reader) (io.ReadCloser, error) {
	p, ok := e.registry.Resolve(source.MediaType)
	if !ok {
		return nil, fmt.Errorf("%w: %w: %s", ErrTransform, ErrNoProvider, source.MediaType)
	}
	out, err := p.Extract(ctx, src, source.MediaType)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrTransform, p.Name(), err)
	}
	return out, nil
}

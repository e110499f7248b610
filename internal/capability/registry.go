// Package capability maps media types to the text extraction providers
// that can process them.
//
// A Registry is built once per task from the discovered providers plus an
// optional list of provider names that take precedence. It is never
// modified afterwards, so a single Registry may be shared by concurrent
// workers.
package capability

import (
	"context"
	"io"
	"log/slog"
	"sort"

	"github.com/tendant/simple-content-mediafilter/internal/formats"
)

// Provider extracts text from assets of the media types it supports
type Provider interface {
	// Name identifies the provider in override configuration
	Name() string

	// SupportedTypes lists the media types the provider accepts
	SupportedTypes() []string

	// Extract returns a stream of the text content of r. Errors reading
	// the returned stream are extraction failures.
	Extract(ctx context.Context, r io.Reader, mediaType string) (io.ReadCloser, error)
}

// Registry resolves media types to providers
type Registry struct {
	providers map[string]Provider
}

// NewRegistry registers every discovered provider for its supported types,
// later providers replacing earlier ones, then re-registers the providers
// named in overrides so that they win over the default pass. Override
// names that match no discovered provider are logged and ignored.
func NewRegistry(logger *slog.Logger, discovered []Provider, overrides []string) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{providers: make(map[string]Provider)}

	byName := make(map[string]Provider, len(discovered))
	for _, p := range discovered {
		r.register(p)
		byName[p.Name()] = p
	}

	for _, name := range overrides {
		p, ok := byName[name]
		if !ok {
			logger.Error("could not find configured provider", "provider", name)
			continue
		}
		r.register(p)
	}

	return r
}

func (r *Registry) register(p Provider) {
	for _, mt := range p.SupportedTypes() {
		if key := formats.NormalizeMediaType(mt); key != "" {
			r.providers[key] = p
		}
	}
}

// Resolve returns the provider registered for a media type
func (r *Registry) Resolve(mediaType string) (Provider, bool) {
	p, ok := r.providers[formats.NormalizeMediaType(mediaType)]
	return p, ok
}

// Supports reports whether any provider handles the media type
func (r *Registry) Supports(mediaType string) bool {
	_, ok := r.Resolve(mediaType)
	return ok
}

// MediaTypes returns the registered media types, sorted
func (r *Registry) MediaTypes() []string {
	out := make([]string, 0, len(r.providers))
	for mt := range r.providers {
		out = append(out, mt)
	}
	sort.Strings(out)
	return out
}

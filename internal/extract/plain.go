package extract

import (
	"context"
	"io"
)

// Plain passes text-like content through unchanged
type Plain struct{}

// NewPlain creates the pass-through provider
func NewPlain() *Plain {
	return &Plain{}
}

// Name returns "plain"
func (p *Plain) Name() string {
	return "plain"
}

// SupportedTypes returns the text media types read verbatim
func (p *Plain) SupportedTypes() []string {
	return []string{"text/plain", "text/csv", "text/markdown", "application/json"}
}

// Extract returns r as is. The caller keeps ownership of r.
func (p *Plain) Extract(ctx context.Context, r io.Reader, mediaType string) (io.ReadCloser, error) {
	return io.NopCloser(r), nil
}

// Package formats is the registry of known content formats. A format is
// addressed by its short description (the identifier used in task
// configuration) and carries a media type and the file extensions
// registered for it, most preferred first.
package formats

import (
	"mime"
	"path"
	"strings"
)

// Format describes one registered content format
type Format struct {
	ShortDescription string
	MediaType        string
	Extensions       []string
}

// PrimaryExtension returns the first registered extension, or "" if none
func (f Format) PrimaryExtension() string {
	if len(f.Extensions) == 0 {
		return ""
	}
	return f.Extensions[0]
}

// Registry resolves formats by short description, media type or extension
type Registry struct {
	formats     []Format
	byShort     map[string]Format
	byMediaType map[string]Format
	byExtension map[string]Format
}

// NewRegistry builds a registry from the given formats. Later formats win
// when two claim the same key.
func NewRegistry(formats ...Format) *Registry {
	r := &Registry{
		byShort:     make(map[string]Format),
		byMediaType: make(map[string]Format),
		byExtension: make(map[string]Format),
	}
	for _, f := range formats {
		r.formats = append(r.formats, f)
		r.byShort[f.ShortDescription] = f
		r.byMediaType[NormalizeMediaType(f.MediaType)] = f
		for _, ext := range f.Extensions {
			r.byExtension[strings.ToLower(ext)] = f
		}
	}
	return r
}

// Default returns the registry of formats the bundled transforms read or write
func Default() *Registry {
	return NewRegistry(
		Format{ShortDescription: "JPEG", MediaType: "image/jpeg", Extensions: []string{"jpg", "jpeg"}},
		Format{ShortDescription: "PNG", MediaType: "image/png", Extensions: []string{"png"}},
		Format{ShortDescription: "GIF", MediaType: "image/gif", Extensions: []string{"gif"}},
		Format{ShortDescription: "TIFF", MediaType: "image/tiff", Extensions: []string{"tif", "tiff"}},
		Format{ShortDescription: "BMP", MediaType: "image/bmp", Extensions: []string{"bmp"}},
		Format{ShortDescription: "WebP", MediaType: "image/webp", Extensions: []string{"webp"}},
		Format{ShortDescription: "Text", MediaType: "text/plain", Extensions: []string{"txt"}},
		Format{ShortDescription: "CSV", MediaType: "text/csv", Extensions: []string{"csv"}},
		Format{ShortDescription: "HTML", MediaType: "text/html", Extensions: []string{"html", "htm"}},
		Format{ShortDescription: "XHTML", MediaType: "application/xhtml+xml", Extensions: []string{"xhtml"}},
		Format{ShortDescription: "Markdown", MediaType: "text/markdown", Extensions: []string{"md", "markdown"}},
		Format{ShortDescription: "JSON", MediaType: "application/json", Extensions: []string{"json"}},
		Format{ShortDescription: "Adobe PDF", MediaType: "application/pdf", Extensions: []string{"pdf"}},
	)
}

// ByShortDescription looks a format up by its configured identifier
func (r *Registry) ByShortDescription(short string) (Format, bool) {
	f, ok := r.byShort[short]
	return f, ok
}

// ByMediaType looks a format up by media type, ignoring parameters and case
func (r *Registry) ByMediaType(mediaType string) (Format, bool) {
	f, ok := r.byMediaType[NormalizeMediaType(mediaType)]
	return f, ok
}

// ByFileName looks a format up by the extension of a file name
func (r *Registry) ByFileName(name string) (Format, bool) {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(name)), ".")
	if ext == "" {
		return Format{}, false
	}
	f, ok := r.byExtension[ext]
	return f, ok
}

// All returns the registered formats in registration order
func (r *Registry) All() []Format {
	out := make([]Format, len(r.formats))
	copy(out, r.formats)
	return out
}

// NormalizeMediaType lower-cases a media type and strips its parameters
func NormalizeMediaType(mediaType string) string {
	mediaType = strings.TrimSpace(mediaType)
	if mediaType == "" {
		return ""
	}
	if parsed, _, err := mime.ParseMediaType(mediaType); err == nil {
		return parsed
	}
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

package raster

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // Register WebP decoder

	"github.com/tendant/simple-content-mediafilter/internal/formats"
)

// ErrUnsupportedOutput is returned for target formats no linked encoder writes
var ErrUnsupportedOutput = errors.New("unsupported raster output format")

// file suffixes probed against the codec library at startup
var probedSuffixes = []string{"jpg", "jpeg", "png", "gif", "tif", "tiff", "bmp"}

var codecMediaTypes = map[imaging.Format]string{
	imaging.JPEG: "image/jpeg",
	imaging.PNG:  "image/png",
	imaging.GIF:  "image/gif",
	imaging.TIFF: "image/tiff",
	imaging.BMP:  "image/bmp",
}

// Capabilities lists the raster media types and file suffixes that can be
// decoded in this process
type Capabilities struct {
	mediaTypes map[string]bool
	suffixes   map[string]bool
}

// HostCapabilities probes the linked codecs. WebP is decode-only and is
// added explicitly.
func HostCapabilities() *Capabilities {
	c := &Capabilities{
		mediaTypes: make(map[string]bool),
		suffixes:   make(map[string]bool),
	}
	for _, sfx := range probedSuffixes {
		f, err := imaging.FormatFromExtension(sfx)
		if err != nil {
			continue
		}
		c.suffixes[sfx] = true
		if mt, ok := codecMediaTypes[f]; ok {
			c.mediaTypes[mt] = true
		}
	}
	c.mediaTypes["image/webp"] = true
	c.suffixes["webp"] = true
	return c
}

// Supports reports whether the media type, or any of the extensions, is
// readable
func (c *Capabilities) Supports(mediaType string, extensions []string) bool {
	if c.mediaTypes[formats.NormalizeMediaType(mediaType)] {
		return true
	}
	for _, ext := range extensions {
		if c.suffixes[strings.ToLower(strings.TrimPrefix(ext, "."))] {
			return true
		}
	}
	return false
}

// MediaTypes returns the readable media types, sorted
func (c *Capabilities) MediaTypes() []string {
	return sortedKeys(c.mediaTypes)
}

// Suffixes returns the readable file suffixes, sorted
func (c *Capabilities) Suffixes() []string {
	return sortedKeys(c.suffixes)
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// OutputFormat returns the encoder for a target media type
func OutputFormat(mediaType string) (imaging.Format, error) {
	mediaType = formats.NormalizeMediaType(mediaType)
	for f, mt := range codecMediaTypes {
		if mt == mediaType {
			return f, nil
		}
	}
	supported := make([]string, 0, len(codecMediaTypes))
	for _, mt := range codecMediaTypes {
		supported = append(supported, mt)
	}
	slices.Sort(supported)
	return 0, fmt.Errorf("%w: %q (want one of %s)", ErrUnsupportedOutput, mediaType, strings.Join(supported, ", "))
}

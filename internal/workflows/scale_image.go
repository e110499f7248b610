package workflows

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/tendant/simple-content-mediafilter/internal/config"
	"github.com/tendant/simple-content-mediafilter/internal/content"
	"github.com/tendant/simple-content-mediafilter/internal/raster"
	"github.com/tendant/simple-content-mediafilter/internal/selector"
)

// ScaleImage produces scaled, optionally branded raster derivatives
type ScaleImage struct {
	caps        *raster.Capabilities
	transformer *raster.Transformer
}

// NewScaleImage builds the raster transform of a task. A nil caps probes
// the host codecs.
func NewScaleImage(spec *config.DerivativeSpec, caps *raster.Capabilities, logger *slog.Logger) (*ScaleImage, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if caps == nil {
		caps = raster.HostCapabilities()
	}
	if err := spec.RequireImage(); err != nil {
		return nil, err
	}

	format, err := raster.OutputFormat(spec.TargetFormat.MediaType)
	if err != nil {
		return nil, &config.ConfigurationError{Task: spec.TaskID, Key: config.KeyTargetFormat, Err: err}
	}

	img := spec.Image
	brand := raster.Brand{
		Height: img.BrandHeight,
		Text:   img.BrandText,
		Abbrev: img.BrandAbbrev,
	}
	if brand.Height > 0 {
		face, fallback, err := raster.ResolveFace(img.BrandFont, float64(img.BrandFontPoint))
		if err != nil {
			return nil, &config.ConfigurationError{Task: spec.TaskID, Key: config.KeyBrandFontPoint, Err: err}
		}
		if fallback {
			logger.Warn("brand font not available, using fixed bitmap font",
				"task", spec.TaskID, "font", img.BrandFont)
		}
		brand.Face = face
	}

	transformer, err := raster.NewTransformer(raster.Options{
		MaxWidth:    img.MaxWidth,
		MaxHeight:   img.MaxHeight,
		Blur:        img.Blur,
		HQDownscale: img.HQDownscale,
		Brand:       brand,
		Format:      format,
	})
	if err != nil {
		return nil, &config.ConfigurationError{Task: spec.TaskID, Key: config.KeyImageMaxWidth, Err: err}
	}

	return &ScaleImage{caps: caps, transformer: transformer}, nil
}

// Name returns the transform name
func (s *ScaleImage) Name() string {
	return "ScaleImage"
}

// Supports reports whether the asset can be decoded
func (s *ScaleImage) Supports(c selector.Candidate) bool {
	return s.caps.Supports(c.MediaType, c.Extensions)
}

// Apply decodes the source and returns the encoded derivative. The source
// is read fully first, so read failures are repository failures.
func (s *ScaleImage) Apply(ctx context.Context, item *content.Item, source *content.Asset, src io.Reader) (io.ReadCloser, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", source.Name, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, err := s.transformer.Process(bytes.NewReader(data), raster.Identifier(item.Handle))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransform, err)
	}
	return io.NopCloser(bytes.NewReader(out)), nil
}

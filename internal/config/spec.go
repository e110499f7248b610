package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tendant/simple-content-mediafilter/internal/formats"
	"github.com/tendant/simple-content-mediafilter/internal/policy"
	"github.com/tendant/simple-content-mediafilter/internal/selector"
)

// Task property keys
const (
	KeySourceSelector    = "source.selector"
	KeySourceMinSize     = "source.minsize"
	KeySourceFormats     = "source.formats"
	KeyFilterForce       = "filter.force"
	KeyTargetSpec        = "target.spec"
	KeyTargetFormat      = "target.format"
	KeyTargetDescription = "target.description"
	KeyTargetPolicy      = "target.policy"
	KeyImageMaxWidth     = "image.maxwidth"
	KeyImageMaxHeight    = "image.maxheight"
	KeyImageBlur         = "image.blur"
	KeyImageHQScale      = "image.hqscale"
	KeyBrandHeight       = "brand.height"
	KeyBrandText         = "brand.text"
	KeyBrandAbbrev       = "brand.abbrev"
	KeyBrandFont         = "brand.font"
	KeyBrandFontPoint    = "brand.fontpoint"
	KeyFilterParsers     = "filter.parsers"
	KeyFilterType        = "filter.type"
)

// ImageParams configures raster derivatives
type ImageParams struct {
	MaxWidth       float64
	MaxHeight      float64
	Blur           bool
	HQDownscale    bool
	BrandHeight    int
	BrandText      string
	BrandAbbrev    string
	BrandFont      string
	BrandFontPoint int
}

// DerivativeSpec is the validated configuration of one task. It is not
// modified after LoadSpec returns.
type DerivativeSpec struct {
	TaskID string
	// Filter names the transform; it defaults to the task id
	Filter string

	SourceContainer string
	SourceGlob      string
	SourcePattern   *regexp.Regexp
	SourceMinSize   int64
	SourceFormats   []string
	Force           bool

	TargetContainer   string
	TargetTemplate    string
	TargetFormat      formats.Format
	TargetDescription string
	Policy            policy.Mode

	Image     ImageParams
	Providers []string
}

// Criteria returns the selector criteria of the spec
func (s *DerivativeSpec) Criteria() selector.Criteria {
	return selector.Criteria{
		Pattern: s.SourcePattern,
		MinSize: s.SourceMinSize,
		Formats: s.SourceFormats,
		Force:   s.Force,
	}
}

// LoadSpec reads and validates every property of a task. Image parameters
// are parsed here but only required by RequireImage.
func LoadSpec(props Properties, registry *formats.Registry) (*DerivativeSpec, error) {
	task := props.Task()
	spec := &DerivativeSpec{TaskID: task, Filter: strings.ToLower(props.String(KeyFilterType, task))}

	sel := props.String(KeySourceSelector, "")
	if sel == "" {
		return nil, configErr(task, KeySourceSelector, ErrMissing)
	}
	container, glob, _ := strings.Cut(sel, "/")
	if container == "" {
		return nil, configErr(task, KeySourceSelector, fmt.Errorf("%w: no container in %q", ErrInvalid, sel))
	}
	spec.SourceContainer = container
	spec.SourceGlob = glob
	spec.SourcePattern = selector.CompileGlob(glob)

	minSize, err := props.Int(KeySourceMinSize, 0)
	if err != nil {
		return nil, err
	}
	if minSize < 0 {
		return nil, configErr(task, KeySourceMinSize, fmt.Errorf("%w: %d", ErrInvalid, minSize))
	}
	spec.SourceMinSize = int64(minSize)
	spec.SourceFormats = splitList(props.String(KeySourceFormats, ""))

	if spec.Force, err = props.Bool(KeyFilterForce, false); err != nil {
		return nil, err
	}

	target := props.String(KeyTargetSpec, "")
	if target == "" {
		return nil, configErr(task, KeyTargetSpec, ErrMissing)
	}
	spec.TargetContainer, spec.TargetTemplate, _ = strings.Cut(target, "/")
	if spec.TargetContainer == "" {
		return nil, configErr(task, KeyTargetSpec, fmt.Errorf("%w: no container in %q", ErrInvalid, target))
	}

	short := props.String(KeyTargetFormat, "")
	if short == "" {
		return nil, configErr(task, KeyTargetFormat, ErrMissing)
	}
	f, ok := registry.ByShortDescription(short)
	if !ok {
		return nil, configErr(task, KeyTargetFormat, fmt.Errorf("%w: %q", ErrUnknownFormat, short))
	}
	if f.PrimaryExtension() == "" {
		return nil, configErr(task, KeyTargetFormat, fmt.Errorf("%w: format %q has no extensions", ErrInvalid, short))
	}
	spec.TargetFormat = f
	spec.TargetDescription = props.String(KeyTargetDescription, "")
	spec.Policy = policy.ParseMode(props.String(KeyTargetPolicy, ""))

	if spec.Image, err = loadImage(props); err != nil {
		return nil, err
	}
	spec.Providers = splitList(props.String(KeyFilterParsers, ""))

	return spec, nil
}

func loadImage(props Properties) (ImageParams, error) {
	var (
		p   ImageParams
		err error
	)
	if p.MaxWidth, err = props.Float(KeyImageMaxWidth, 0); err != nil {
		return p, err
	}
	if p.MaxHeight, err = props.Float(KeyImageMaxHeight, 0); err != nil {
		return p, err
	}
	if p.Blur, err = props.Bool(KeyImageBlur, false); err != nil {
		return p, err
	}
	if p.HQDownscale, err = props.Bool(KeyImageHQScale, false); err != nil {
		return p, err
	}
	if p.BrandHeight, err = props.Int(KeyBrandHeight, 0); err != nil {
		return p, err
	}
	if p.BrandFontPoint, err = props.Int(KeyBrandFontPoint, 0); err != nil {
		return p, err
	}
	p.BrandText = props.String(KeyBrandText, "")
	p.BrandAbbrev = props.String(KeyBrandAbbrev, "")
	p.BrandFont = props.String(KeyBrandFont, "")
	return p, nil
}

// RequireImage checks the parameters raster tasks depend on
func (s *DerivativeSpec) RequireImage() error {
	img := s.Image
	if img.MaxWidth <= 0 {
		return configErr(s.TaskID, KeyImageMaxWidth, ErrMissing)
	}
	if img.MaxHeight <= 0 {
		return configErr(s.TaskID, KeyImageMaxHeight, ErrMissing)
	}
	if img.BrandHeight < 0 {
		return configErr(s.TaskID, KeyBrandHeight, fmt.Errorf("%w: %d", ErrInvalid, img.BrandHeight))
	}
	if img.BrandHeight > 0 && img.BrandFontPoint <= 0 {
		return configErr(s.TaskID, KeyBrandFontPoint, fmt.Errorf("%w: must be positive with a brand strip", ErrInvalid))
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

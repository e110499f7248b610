// Package raster scales images for derivatives: it fits a decoded image
// into a bounding box, optionally blurs and progressively downsamples it,
// composites it onto a canvas with an optional brand strip and encodes the
// result.
package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
)

var (
	// ErrDecode is returned when the source bytes are not a readable image
	ErrDecode = errors.New("image decode failed")

	// ErrEncode is returned when the derivative cannot be encoded
	ErrEncode = errors.New("image encode failed")

	// ErrInvalidOptions is returned by NewTransformer for unusable options
	ErrInvalidOptions = errors.New("invalid raster options")
)

// DefaultJPEGQuality is used when Options.JPEGQuality is zero
const DefaultJPEGQuality = 80

// uniform 3x3 averaging kernel
var boxKernel = [9]float64{
	1.0 / 9, 1.0 / 9, 1.0 / 9,
	1.0 / 9, 1.0 / 9, 1.0 / 9,
	1.0 / 9, 1.0 / 9, 1.0 / 9,
}

// Brand configures the footer strip. A zero Height disables it.
type Brand struct {
	Height int
	Text   string
	Abbrev string
	Face   font.Face
}

// Options configures a Transformer
type Options struct {
	MaxWidth    float64
	MaxHeight   float64
	Blur        bool
	HQDownscale bool
	Brand       Brand
	Format      imaging.Format
	JPEGQuality int
}

// Transformer turns source images into derivative images. It holds no
// per-call state and is safe for concurrent use.
type Transformer struct {
	opts Options
}

// NewTransformer validates the options
func NewTransformer(opts Options) (*Transformer, error) {
	if !finitePositive(opts.MaxWidth) || !finitePositive(opts.MaxHeight) {
		return nil, fmt.Errorf("%w: max extent %vx%v", ErrInvalidOptions, opts.MaxWidth, opts.MaxHeight)
	}
	if opts.Brand.Height < 0 {
		return nil, fmt.Errorf("%w: brand height %d", ErrInvalidOptions, opts.Brand.Height)
	}
	if opts.Brand.Height > 0 && opts.Brand.Face == nil {
		return nil, fmt.Errorf("%w: brand strip needs a font face", ErrInvalidOptions)
	}
	if opts.JPEGQuality == 0 {
		opts.JPEGQuality = DefaultJPEGQuality
	}
	return &Transformer{opts: opts}, nil
}

func finitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

// Fit returns the extent of a w0 x h0 image shrunk to fit maxW x maxH. The
// width is fitted first; the height is then fitted from the possibly
// reduced height. Images are never enlarged and keep at least one pixel.
func Fit(w0, h0 int, maxW, maxH float64) (int, int) {
	w, h := float64(w0), float64(h0)
	if w > maxW {
		h = h * maxW / w
		w = maxW
	}
	if h > maxH {
		w = w * maxH / h
		h = maxH
	}
	return max(1, int(w)), max(1, int(h))
}

// Blur averages every pixel with its eight neighbours
func Blur(img image.Image) *image.NRGBA {
	return imaging.Convolve3x3(img, boxKernel, nil)
}

// Downscale halves the image with bicubic resampling until its width
// reaches tw. Neither dimension drops below its target.
func Downscale(img image.Image, tw, th int) image.Image {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	for w > tw {
		w = max(w/2, tw)
		h = max(h/2, th)
		img = imaging.Resize(img, w, h, imaging.CatmullRom)
	}
	return img
}

// Transform runs the fit, blur, downscale, composite and brand stages
func (t *Transformer) Transform(src image.Image, identifier string) *image.NRGBA {
	bounds := src.Bounds()
	tw, th := Fit(bounds.Dx(), bounds.Dy(), t.opts.MaxWidth, t.opts.MaxHeight)

	img := src
	if t.opts.Blur {
		img = Blur(img)
	}
	if t.opts.HQDownscale {
		img = Downscale(img, tw, th)
	}
	if b := img.Bounds(); b.Dx() != tw || b.Dy() != th {
		img = imaging.Resize(img, tw, th, imaging.Lanczos)
	}

	canvas := imaging.New(tw, th+t.opts.Brand.Height, color.Black)
	canvas = imaging.Paste(canvas, img, image.Pt(0, 0))

	if t.opts.Brand.Height > 0 {
		strip, _ := t.BrandStrip(tw, identifier)
		canvas = imaging.Paste(canvas, strip, image.Pt(0, th))
	}

	return canvas
}

// Process decodes r, transforms it and encodes the result in the
// configured output format
func (t *Transformer) Process(r io.Reader, identifier string) ([]byte, error) {
	src, err := imaging.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	out := t.Transform(src, identifier)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, t.opts.Format, imaging.JPEGQuality(t.opts.JPEGQuality)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return buf.Bytes(), nil
}

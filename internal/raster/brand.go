package raster

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Caption width thresholds
const (
	FullCaptionWidth   = 350
	AbbrevCaptionWidth = 190
)

// horizontal padding on each side of a label
const labelPadding = 5

// Anchor is the corner a label is attached to
type Anchor int

// Anchors
const (
	TopLeft Anchor = iota
	TopRight
	BottomLeft
	BottomRight
)

func (a Anchor) String() string {
	switch a {
	case TopLeft:
		return "tl"
	case TopRight:
		return "tr"
	case BottomLeft:
		return "bl"
	case BottomRight:
		return "br"
	}
	return "unknown"
}

// Label records a text placed on an image
type Label struct {
	Text   string
	Anchor Anchor
	Box    image.Rectangle
}

// Caption picks the caption that fits an image width: the full text from
// 350 pixels, the abbreviation from 190, nothing below
func Caption(width int, full, abbrev string) string {
	switch {
	case width >= FullCaptionWidth:
		return full
	case width >= AbbrevCaptionWidth:
		return abbrev
	}
	return ""
}

// Identifier returns the label text for an item handle
func Identifier(handle string) string {
	if handle == "" {
		return ""
	}
	return "hdl:" + handle
}

// DrawLabel fills a box sized to the text at the anchor corner of dst with
// black and writes the text on it in white. The box is the text advance
// plus padding on both sides, one line high.
func DrawLabel(dst draw.Image, face font.Face, text string, anchor Anchor) Label {
	bounds := dst.Bounds()
	metrics := face.Metrics()

	boxWidth := font.MeasureString(face, text).Ceil() + labelPadding*2 + 1
	boxHeight := metrics.Height.Ceil()

	var bx, by int
	switch anchor {
	case TopRight:
		bx = bounds.Dx() - boxWidth
	case BottomLeft:
		by = bounds.Dy() - boxHeight
	case BottomRight:
		bx = bounds.Dx() - boxWidth
		by = bounds.Dy() - boxHeight
	}

	box := image.Rect(bx, by, bx+boxWidth, by+boxHeight).Add(bounds.Min)
	draw.Draw(dst, box, image.NewUniform(color.Black), image.Point{}, draw.Src)

	drawer := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.White),
		Face: face,
		Dot:  fixed.P(box.Min.X+labelPadding, box.Min.Y+metrics.Ascent.Ceil()),
	}
	drawer.DrawString(text)

	return Label{Text: text, Anchor: anchor, Box: box}
}

// BrandStrip renders the footer strip for an image of the given width: the
// caption at the bottom left when one fits, the identifier at the bottom
// right always.
func (t *Transformer) BrandStrip(width int, identifier string) (*image.NRGBA, []Label) {
	brand := t.opts.Brand
	strip := imaging.New(width, brand.Height, color.Black)

	var labels []Label
	if caption := Caption(width, brand.Text, brand.Abbrev); caption != "" {
		labels = append(labels, DrawLabel(strip, brand.Face, caption, BottomLeft))
	}
	labels = append(labels, DrawLabel(strip, brand.Face, identifier, BottomRight))

	return strip, labels
}

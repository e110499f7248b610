package raster

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// ErrFontSize is returned for a non-positive point size
var ErrFontSize = errors.New("font point size must be positive")

// font family aliases, keyed by lower-case name without spaces or dashes
var fontFamilies = map[string][]byte{
	"go":         goregular.TTF,
	"goregular":  goregular.TTF,
	"sans":       goregular.TTF,
	"sansserif":  goregular.TTF,
	"dialog":     goregular.TTF,
	"serif":      goregular.TTF,
	"gomono":     gomono.TTF,
	"mono":       gomono.TTF,
	"monospace":  gomono.TTF,
	"monospaced": gomono.TTF,
	"gobold":     gobold.TTF,
	"bold":       gobold.TTF,
	"goitalic":   goitalic.TTF,
	"italic":     goitalic.TTF,
}

// ResolveFace returns a face for the font family at the given size. Unknown
// families fall back to a fixed 7x13 bitmap face and report fallback.
func ResolveFace(family string, points float64) (face font.Face, fallback bool, err error) {
	if points <= 0 {
		return nil, false, fmt.Errorf("%w: %v", ErrFontSize, points)
	}

	key := strings.ToLower(strings.NewReplacer(" ", "", "-", "", "_", "").Replace(family))
	if key == "" {
		key = "goregular"
	}
	ttf, ok := fontFamilies[key]
	if !ok {
		return basicfont.Face7x13, true, nil
	}

	f, err := opentype.Parse(ttf)
	if err != nil {
		return nil, false, fmt.Errorf("failed to parse font %s: %w", family, err)
	}
	face, err = opentype.NewFace(f, &opentype.FaceOptions{
		Size:    points,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to create font face %s: %w", family, err)
	}
	return face, false, nil
}

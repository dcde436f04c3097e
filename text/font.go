package text

import (
	"fmt"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/gogpu/imaging/pixel"
)

// Font is a parsed TrueType or OpenType font. It is safe for concurrent
// use; faces made from it are not.
type Font struct {
	f *opentype.Font
}

// ParseFont parses TrueType or OpenType font data.
func ParseFont(data []byte) (*Font, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("text: empty font data: %w", pixel.ErrInvalidArgument)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("text: parse font: %v: %w", err, pixel.ErrCorrupt)
	}
	return &Font{f: f}, nil
}

// Name returns the font family name, or "" when the font has none.
func (f *Font) Name() string {
	if name, err := f.f.Name(nil, sfnt.NameIDFamily); err == nil {
		return name
	}
	return ""
}

// Face returns a face of the given pixel size with full hinting.
func (f *Font) Face(size float64) (font.Face, error) {
	if !(size > 0 && size <= 4096) {
		return nil, fmt.Errorf("text: face size %v: %w", size, pixel.ErrInvalidArgument)
	}
	face, err := opentype.NewFace(f.f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("text: face: %v: %w", err, pixel.ErrInvalidArgument)
	}
	return face, nil
}

var goRegular = sync.OnceValues(func() (*Font, error) {
	return ParseFont(goregular.TTF)
})

// DefaultFace returns a face of the Go Regular font at the given pixel size.
func DefaultFace(size float64) (font.Face, error) {
	f, err := goRegular()
	if err != nil {
		return nil, err
	}
	return f.Face(size)
}

// fixedToFloat64 converts fixed.Int26_6 to float64.
func fixedToFloat64(x fixed.Int26_6) float64 {
	return float64(x) / 64.0
}

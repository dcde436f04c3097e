package pixel

import "fmt"

// MaxPaletteLen is the largest palette an indexed buffer can carry.
const MaxPaletteLen = 256

// Color is one palette entry with straight alpha.
type Color struct {
	R, G, B, A uint8
}

// Palette is an immutable ordered list of 1 to 256 colors.
// A *Palette may be shared freely between buffers.
type Palette struct {
	colors []Color
	alpha  bool
}

// NewPalette copies colors into a new palette.
// Returns ErrInvalidArgument when the length is outside [1, 256].
func NewPalette(colors []Color) (*Palette, error) {
	if len(colors) == 0 || len(colors) > MaxPaletteLen {
		return nil, fmt.Errorf("pixel: palette of %d entries: %w", len(colors), ErrInvalidArgument)
	}
	p := &Palette{colors: make([]Color, len(colors))}
	copy(p.colors, colors)
	for _, c := range p.colors {
		if c.A != 255 {
			p.alpha = true
			break
		}
	}
	return p, nil
}

// NewPaletteRGB builds an opaque palette from packed R,G,B triplets.
// A trailing partial triplet is ignored.
func NewPaletteRGB(rgb []byte) (*Palette, error) {
	n := len(rgb) / 3
	colors := make([]Color, n)
	for i := range colors {
		colors[i] = Color{R: rgb[3*i], G: rgb[3*i+1], B: rgb[3*i+2], A: 255}
	}
	return NewPalette(colors)
}

// GrayscalePalette returns the 256-entry linear gray ramp given to new
// indexed buffers.
func GrayscalePalette() *Palette {
	colors := make([]Color, MaxPaletteLen)
	for i := range colors {
		v := uint8(i)
		colors[i] = Color{R: v, G: v, B: v, A: 255}
	}
	return &Palette{colors: colors}
}

// Len returns the number of entries.
func (p *Palette) Len() int {
	return len(p.colors)
}

// At returns entry i. It panics if i is out of range, like a slice index.
func (p *Palette) At(i int) Color {
	return p.colors[i]
}

// Colors returns a copy of the entries.
func (p *Palette) Colors() []Color {
	out := make([]Color, len(p.colors))
	copy(out, p.colors)
	return out
}

// HasAlpha reports whether any entry is not fully opaque.
func (p *Palette) HasAlpha() bool {
	return p.alpha
}

// Index returns the first entry equal to c, or -1.
func (p *Palette) Index(c Color) int {
	for i, pc := range p.colors {
		if pc == c {
			return i
		}
	}
	return -1
}

// RGB returns the palette packed as R,G,B triplets.
func (p *Palette) RGB() []byte {
	out := make([]byte, 0, 3*len(p.colors))
	for _, c := range p.colors {
		out = append(out, c.R, c.G, c.B)
	}
	return out
}

// WithAlpha returns a copy of p where entry i has alpha a.
func (p *Palette) WithAlpha(i int, a uint8) (*Palette, error) {
	if i < 0 || i >= len(p.colors) {
		return nil, fmt.Errorf("pixel: palette entry %d of %d: %w", i, len(p.colors), ErrInvalidArgument)
	}
	colors := p.Colors()
	colors[i].A = a
	return NewPalette(colors)
}

// Equal reports whether both palettes hold the same entries in the same order.
func (p *Palette) Equal(q *Palette) bool {
	if p == nil || q == nil {
		return p == q
	}
	if len(p.colors) != len(q.colors) {
		return false
	}
	for i := range p.colors {
		if p.colors[i] != q.colors[i] {
			return false
		}
	}
	return true
}

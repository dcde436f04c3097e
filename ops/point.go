package ops

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/imaging/pixel"
)

// Point maps every sample of src through lut. lut holds either 256 entries
// shared by all bands or 256 per band, band after band.
func Point(src *pixel.Buffer, lut []byte) (*pixel.Buffer, error) {
	if src == nil {
		return nil, fmt.Errorf("ops: point nil buffer: %w", pixel.ErrInvalidArgument)
	}
	mode := src.Mode()
	if !continuous(mode) {
		return nil, fmt.Errorf("ops: point on %s buffer: %w", mode, pixel.ErrInvalidArgument)
	}
	n := mode.Bands()
	if len(lut) != 256 && len(lut) != 256*n {
		return nil, fmt.Errorf("ops: %d entry table for %s: %w", len(lut), mode, pixel.ErrInvalidArgument)
	}
	perBand := len(lut) != 256
	dst := src.Clone()
	for y := range dst.Height() {
		row := dst.Row(y)
		for i, v := range row {
			if perBand {
				row[i] = lut[(i%n)<<8|int(v)]
			} else {
				row[i] = lut[v]
			}
		}
	}
	return dst, nil
}

// Invert returns the negative of src. Alpha bands are kept as they are and
// palette buffers get an inverted palette.
func Invert(src *pixel.Buffer) (*pixel.Buffer, error) {
	if src == nil {
		return nil, fmt.Errorf("ops: invert nil buffer: %w", pixel.ErrInvalidArgument)
	}
	dst := src.Clone()
	mode := src.Mode()
	switch {
	case mode == pixel.Mode1:
		for y := range dst.Height() {
			row := dst.Row(y)
			for i := range row {
				row[i] = ^row[i]
			}
		}
		dst.ClearPadding()
	case mode.IsIndexed():
		cs := src.Palette().Colors()
		for i, c := range cs {
			cs[i] = pixel.Color{R: 255 - c.R, G: 255 - c.G, B: 255 - c.B, A: c.A}
		}
		pal, err := pixel.NewPalette(cs)
		if err != nil {
			return nil, err
		}
		if err := dst.SetPalette(pal); err != nil {
			return nil, err
		}
	case mode == pixel.ModeI16:
		for y := range dst.Height() {
			row := dst.Row(y)
			for i := 0; i < len(row); i += 2 {
				binary.LittleEndian.PutUint16(row[i:], 0xffff-binary.LittleEndian.Uint16(row[i:]))
			}
		}
	case mode.Is8Bit():
		n := mode.Bands()
		for y := range dst.Height() {
			row := dst.Row(y)
			for i := range row {
				if mode.HasAlpha() && i%n == n-1 {
					continue
				}
				row[i] = 255 - row[i]
			}
		}
	default:
		return nil, fmt.Errorf("ops: invert %s buffer: %w", mode, pixel.ErrInvalidArgument)
	}
	return dst, nil
}

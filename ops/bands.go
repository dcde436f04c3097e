package ops

import (
	"fmt"

	"github.com/gogpu/imaging/pixel"
)

// Split returns one buffer per band of src. Bands of multi-band 8-bit modes
// come back as L buffers, except the index band of PA, which stays P with
// src's palette. A single-band buffer is returned as a one-element copy.
func Split(src *pixel.Buffer) ([]*pixel.Buffer, error) {
	if src == nil {
		return nil, fmt.Errorf("ops: split nil buffer: %w", pixel.ErrInvalidArgument)
	}
	mode := src.Mode()
	if mode.Bands() == 1 {
		return []*pixel.Buffer{src.Clone()}, nil
	}
	out := make([]*pixel.Buffer, mode.Bands())
	for b := range out {
		band, err := Band(src, b)
		if err != nil {
			return nil, err
		}
		out[b] = band
	}
	return out, nil
}

// Band returns band b of a multi-band 8-bit buffer.
func Band(src *pixel.Buffer, b int) (*pixel.Buffer, error) {
	if src == nil {
		return nil, fmt.Errorf("ops: band of nil buffer: %w", pixel.ErrInvalidArgument)
	}
	mode := src.Mode()
	if b < 0 || b >= mode.Bands() {
		return nil, fmt.Errorf("ops: band %d of %s: %w", b, mode, pixel.ErrInvalidArgument)
	}
	if mode.Bands() == 1 {
		return src.Clone(), nil
	}
	out := pixel.ModeL
	if mode.IsIndexed() && b == 0 {
		out = pixel.ModeP
	}
	dst, err := pixel.Allocate(out, src.Width(), src.Height())
	if err != nil {
		return nil, err
	}
	if out == pixel.ModeP {
		if err := dst.SetPalette(src.Palette()); err != nil {
			return nil, err
		}
	}
	n := mode.Bands()
	for y := range src.Height() {
		in, row := src.Row(y), dst.Row(y)
		for x := range row {
			row[x] = in[x*n+b]
		}
	}
	return dst, nil
}

// Merge interleaves single-band L buffers into a buffer of mode. It needs
// exactly mode.Bands() buffers of equal size. Indexed and bilevel modes
// cannot be merged.
func Merge(mode pixel.Mode, bands []*pixel.Buffer) (*pixel.Buffer, error) {
	if !mode.Is8Bit() || mode.IsIndexed() {
		return nil, fmt.Errorf("ops: merge into %s: %w", mode, pixel.ErrInvalidArgument)
	}
	n := mode.Bands()
	if len(bands) != n {
		return nil, fmt.Errorf("ops: merge %d bands into %s: %w", len(bands), mode, pixel.ErrInvalidArgument)
	}
	for i, b := range bands {
		if b == nil || b.Mode() != pixel.ModeL {
			return nil, fmt.Errorf("ops: merge band %d is not an L buffer: %w", i, pixel.ErrInvalidArgument)
		}
		if b.Width() != bands[0].Width() || b.Height() != bands[0].Height() {
			return nil, fmt.Errorf("ops: merge band %d is %dx%d, band 0 is %dx%d: %w",
				i, b.Width(), b.Height(), bands[0].Width(), bands[0].Height(), pixel.ErrInvalidArgument)
		}
	}
	dst, err := pixel.Allocate(mode, bands[0].Width(), bands[0].Height())
	if err != nil {
		return nil, err
	}
	for y := range dst.Height() {
		row := dst.Row(y)
		for b, band := range bands {
			for x, v := range band.Row(y) {
				row[x*n+b] = v
			}
		}
	}
	return dst, nil
}

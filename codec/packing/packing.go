// Package packing converts between the row layouts found in image files
// ("raw modes") and the row layout of pixel buffers.
//
// A raw mode is named after its bands in file order, with optional
// suffixes: ";I" inverts samples, ";R" reverses bit order, ";16B" and ";32B"
// select big-endian samples, and ";15"/";16" select packed 5-5-5 and 5-6-5
// pixels. "X" names a padding byte.
package packing

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/bits"
	"sort"

	"github.com/gogpu/imaging/pixel"
)

// Unpacker converts file rows into buffer rows of one mode.
type Unpacker struct {
	Mode pixel.Mode
	Raw  string
	// Bits is the number of file bits per pixel.
	Bits int
	fn   func(dst, src []byte, width int)
}

// RowBytes returns the file bytes holding width pixels.
func (u *Unpacker) RowBytes(width int) int { return (width*u.Bits + 7) / 8 }

// Unpack fills the buffer row dst from the file row src. src must hold at
// least RowBytes(width) bytes.
func (u *Unpacker) Unpack(dst, src []byte, width int) { u.fn(dst, src, width) }

// Packer converts buffer rows of one mode into file rows.
type Packer struct {
	Mode pixel.Mode
	Raw  string
	Bits int
	fn   func(dst, src []byte, width int)
}

// RowBytes returns the file bytes holding width pixels.
func (p *Packer) RowBytes(width int) int { return (width*p.Bits + 7) / 8 }

// Pack fills the file row dst from the buffer row src.
func (p *Packer) Pack(dst, src []byte, width int) { p.fn(dst, src, width) }

type key struct {
	mode pixel.Mode
	raw  string
}

var (
	unpackers = map[key]*Unpacker{}
	packers   = map[key]*Packer{}
)

func unpacker(mode pixel.Mode, raw string, bits int, fn func(dst, src []byte, width int)) {
	unpackers[key{mode, raw}] = &Unpacker{Mode: mode, Raw: raw, Bits: bits, fn: fn}
}

func packer(mode pixel.Mode, raw string, bits int, fn func(dst, src []byte, width int)) {
	packers[key{mode, raw}] = &Packer{Mode: mode, Raw: raw, Bits: bits, fn: fn}
}

// LookupUnpacker returns the unpacker from raw into mode.
// Returns ErrUnsupported for unknown combinations.
func LookupUnpacker(mode pixel.Mode, raw string) (*Unpacker, error) {
	if u, ok := unpackers[key{mode, raw}]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("packing: unpack %q into %s: %w", raw, mode, pixel.ErrUnsupported)
}

// LookupPacker returns the packer from mode into raw.
// Returns ErrUnsupported for unknown combinations.
func LookupPacker(mode pixel.Mode, raw string) (*Packer, error) {
	if p, ok := packers[key{mode, raw}]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("packing: pack %s as %q: %w", mode, raw, pixel.ErrUnsupported)
}

// RawModes lists the raw modes that can be unpacked into mode.
func RawModes(mode pixel.Mode) []string {
	var out []string
	for k := range unpackers {
		if k.mode == mode {
			out = append(out, k.raw)
		}
	}
	sort.Strings(out)
	return out
}

// copyRow handles raw modes identical to the buffer layout.
func copyRow(bpp int) func(dst, src []byte, width int) {
	return func(dst, src []byte, width int) { copy(dst[:width*bpp], src[:width*bpp]) }
}

// shuffle reorders byte samples: out band b comes from in byte order[b] of
// each n-byte group. A negative index stores fill.
func shuffle(n int, order []int, fill byte) func(dst, src []byte, width int) {
	m := len(order)
	return func(dst, src []byte, width int) {
		for x := range width {
			s := src[x*n : x*n+n]
			d := dst[x*m : x*m+m]
			for b, i := range order {
				if i < 0 {
					d[b] = fill
				} else {
					d[b] = s[i]
				}
			}
		}
	}
}

func invert(bpp int) func(dst, src []byte, width int) {
	return func(dst, src []byte, width int) {
		for i := range width * bpp {
			dst[i] = ^src[i]
		}
	}
}

// packedBits unpacks indices of depth 1, 2 or 4 bits, MSB first.
func packedBits(depth int) func(dst, src []byte, width int) {
	per := 8 / depth
	mask := byte(1<<depth - 1)
	return func(dst, src []byte, width int) {
		for x := range width {
			shift := 8 - depth*(x%per+1)
			dst[x] = src[x/per] >> shift & mask
		}
	}
}

func packBits(depth int) func(dst, src []byte, width int) {
	per := 8 / depth
	mask := byte(1<<depth - 1)
	return func(dst, src []byte, width int) {
		clear(dst[:(width*depth+7)/8])
		for x := range width {
			shift := 8 - depth*(x%per+1)
			dst[x/per] |= src[x] & mask << shift
		}
	}
}

func expand5(v uint16) byte { return byte(v<<3 | v>>2) }
func expand6(v uint16) byte { return byte(v<<2 | v>>4) }

func init() {
	// 1
	unpacker(pixel.Mode1, "1", 1, func(dst, src []byte, width int) {
		n := (width + 7) / 8
		copy(dst[:n], src[:n])
		clearTail(dst, width)
	})
	unpacker(pixel.Mode1, "1;I", 1, func(dst, src []byte, width int) {
		n := (width + 7) / 8
		for i := range n {
			dst[i] = ^src[i]
		}
		clearTail(dst, width)
	})
	unpacker(pixel.Mode1, "1;R", 1, func(dst, src []byte, width int) {
		n := (width + 7) / 8
		for i := range n {
			dst[i] = bits.Reverse8(src[i])
		}
		clearTail(dst, width)
	})
	unpacker(pixel.Mode1, "L", 8, func(dst, src []byte, width int) {
		clear(dst[:(width+7)/8])
		for x := range width {
			pixel.PutBit(dst, x, src[x] >= 128)
		}
	})
	packer(pixel.Mode1, "1", 1, copyRow1)
	packer(pixel.Mode1, "1;I", 1, func(dst, src []byte, width int) {
		n := (width + 7) / 8
		for i := range n {
			dst[i] = ^src[i]
		}
		clearTail(dst, width)
	})
	packer(pixel.Mode1, "1;R", 1, func(dst, src []byte, width int) {
		n := (width + 7) / 8
		for i := range n {
			dst[i] = bits.Reverse8(src[i])
		}
	})
	packer(pixel.Mode1, "L", 8, func(dst, src []byte, width int) {
		for x := range width {
			if pixel.GetBit(src, x) {
				dst[x] = 255
			} else {
				dst[x] = 0
			}
		}
	})

	// L
	unpacker(pixel.ModeL, "L", 8, copyRow(1))
	unpacker(pixel.ModeL, "L;I", 8, invert(1))
	unpacker(pixel.ModeL, "L;16", 16, shuffle(2, []int{1}, 0))
	unpacker(pixel.ModeL, "L;16B", 16, shuffle(2, []int{0}, 0))
	unpacker(pixel.ModeL, "L;2", 2, func(dst, src []byte, width int) {
		packedBits(2)(dst, src, width)
		for x := range width {
			dst[x] *= 0x55
		}
	})
	unpacker(pixel.ModeL, "L;4", 4, func(dst, src []byte, width int) {
		packedBits(4)(dst, src, width)
		for x := range width {
			dst[x] *= 0x11
		}
	})
	packer(pixel.ModeL, "L", 8, copyRow(1))
	packer(pixel.ModeL, "L;I", 8, invert(1))

	// LA
	unpacker(pixel.ModeLA, "LA", 16, copyRow(2))
	unpacker(pixel.ModeLA, "AL", 16, shuffle(2, []int{1, 0}, 0))
	unpacker(pixel.ModeLA, "LA;16B", 32, shuffle(4, []int{0, 2}, 0))
	packer(pixel.ModeLA, "LA", 16, copyRow(2))

	// P
	unpacker(pixel.ModeP, "P", 8, copyRow(1))
	for _, d := range []int{1, 2, 4} {
		unpacker(pixel.ModeP, fmt.Sprintf("P;%d", d), d, packedBits(d))
		packer(pixel.ModeP, fmt.Sprintf("P;%d", d), d, packBits(d))
	}
	packer(pixel.ModeP, "P", 8, copyRow(1))

	// PA
	unpacker(pixel.ModePA, "PA", 16, copyRow(2))
	packer(pixel.ModePA, "PA", 16, copyRow(2))

	// RGB
	unpacker(pixel.ModeRGB, "RGB", 24, copyRow(3))
	unpacker(pixel.ModeRGB, "BGR", 24, shuffle(3, []int{2, 1, 0}, 0))
	unpacker(pixel.ModeRGB, "RGBX", 32, shuffle(4, []int{0, 1, 2}, 0))
	unpacker(pixel.ModeRGB, "BGRX", 32, shuffle(4, []int{2, 1, 0}, 0))
	unpacker(pixel.ModeRGB, "XRGB", 32, shuffle(4, []int{1, 2, 3}, 0))
	unpacker(pixel.ModeRGB, "XBGR", 32, shuffle(4, []int{3, 2, 1}, 0))
	unpacker(pixel.ModeRGB, "RGB;16B", 48, shuffle(6, []int{0, 2, 4}, 0))
	unpacker(pixel.ModeRGB, "BGR;15", 16, func(dst, src []byte, width int) {
		for x := range width {
			v := binary.LittleEndian.Uint16(src[2*x:])
			dst[3*x] = expand5(v >> 10 & 31)
			dst[3*x+1] = expand5(v >> 5 & 31)
			dst[3*x+2] = expand5(v & 31)
		}
	})
	unpacker(pixel.ModeRGB, "BGR;16", 16, func(dst, src []byte, width int) {
		for x := range width {
			v := binary.LittleEndian.Uint16(src[2*x:])
			dst[3*x] = expand5(v >> 11 & 31)
			dst[3*x+1] = expand6(v >> 5 & 63)
			dst[3*x+2] = expand5(v & 31)
		}
	})
	packer(pixel.ModeRGB, "RGB", 24, copyRow(3))
	packer(pixel.ModeRGB, "BGR", 24, shuffle(3, []int{2, 1, 0}, 0))
	packer(pixel.ModeRGB, "RGBX", 32, shuffle(3, []int{0, 1, 2, -1}, 255))
	packer(pixel.ModeRGB, "BGRX", 32, shuffle(3, []int{2, 1, 0, -1}, 0))

	// RGBA
	unpacker(pixel.ModeRGBA, "RGBA", 32, copyRow(4))
	unpacker(pixel.ModeRGBA, "BGRA", 32, shuffle(4, []int{2, 1, 0, 3}, 0))
	unpacker(pixel.ModeRGBA, "ARGB", 32, shuffle(4, []int{1, 2, 3, 0}, 0))
	unpacker(pixel.ModeRGBA, "ABGR", 32, shuffle(4, []int{3, 2, 1, 0}, 0))
	unpacker(pixel.ModeRGBA, "RGB", 24, shuffle(3, []int{0, 1, 2, -1}, 255))
	unpacker(pixel.ModeRGBA, "RGBA;16B", 64, shuffle(8, []int{0, 2, 4, 6}, 0))
	unpacker(pixel.ModeRGBA, "BGRA;15", 16, func(dst, src []byte, width int) {
		for x := range width {
			v := binary.LittleEndian.Uint16(src[2*x:])
			dst[4*x] = expand5(v >> 10 & 31)
			dst[4*x+1] = expand5(v >> 5 & 31)
			dst[4*x+2] = expand5(v & 31)
			dst[4*x+3] = byte(v>>15) * 255
		}
	})
	packer(pixel.ModeRGBA, "RGBA", 32, copyRow(4))
	packer(pixel.ModeRGBA, "BGRA", 32, shuffle(4, []int{2, 1, 0, 3}, 0))

	// CMYK
	unpacker(pixel.ModeCMYK, "CMYK", 32, copyRow(4))
	unpacker(pixel.ModeCMYK, "CMYK;I", 32, invert(4))
	unpacker(pixel.ModeCMYK, "CMYK;16B", 64, shuffle(8, []int{0, 2, 4, 6}, 0))
	packer(pixel.ModeCMYK, "CMYK", 32, copyRow(4))
	packer(pixel.ModeCMYK, "CMYK;I", 32, invert(4))

	// YCbCr, HSV
	unpacker(pixel.ModeYCbCr, "YCbCr", 24, copyRow(3))
	packer(pixel.ModeYCbCr, "YCbCr", 24, copyRow(3))
	unpacker(pixel.ModeHSV, "HSV", 24, copyRow(3))
	packer(pixel.ModeHSV, "HSV", 24, copyRow(3))

	// I;16
	unpacker(pixel.ModeI16, "I;16", 16, copyRow(2))
	unpacker(pixel.ModeI16, "I;16B", 16, shuffle(2, []int{1, 0}, 0))
	unpacker(pixel.ModeI16, "L", 8, func(dst, src []byte, width int) {
		for x := range width {
			binary.LittleEndian.PutUint16(dst[2*x:], uint16(src[x]))
		}
	})
	packer(pixel.ModeI16, "I;16", 16, copyRow(2))
	packer(pixel.ModeI16, "I;16B", 16, shuffle(2, []int{1, 0}, 0))

	// I
	unpacker(pixel.ModeI, "I", 32, copyRow(4))
	unpacker(pixel.ModeI, "I;32B", 32, shuffle(4, []int{3, 2, 1, 0}, 0))
	unpacker(pixel.ModeI, "I;16", 16, func(dst, src []byte, width int) {
		for x := range width {
			binary.LittleEndian.PutUint32(dst[4*x:], uint32(binary.LittleEndian.Uint16(src[2*x:])))
		}
	})
	unpacker(pixel.ModeI, "I;16S", 16, func(dst, src []byte, width int) {
		for x := range width {
			v := int32(int16(binary.LittleEndian.Uint16(src[2*x:])))
			binary.LittleEndian.PutUint32(dst[4*x:], uint32(v))
		}
	})
	packer(pixel.ModeI, "I", 32, copyRow(4))
	packer(pixel.ModeI, "I;32B", 32, shuffle(4, []int{3, 2, 1, 0}, 0))

	// F
	unpacker(pixel.ModeF, "F", 32, copyRow(4))
	unpacker(pixel.ModeF, "F;32BF", 32, shuffle(4, []int{3, 2, 1, 0}, 0))
	unpacker(pixel.ModeF, "F;64F", 64, func(dst, src []byte, width int) {
		for x := range width {
			v := math.Float64frombits(binary.LittleEndian.Uint64(src[8*x:]))
			binary.LittleEndian.PutUint32(dst[4*x:], math.Float32bits(float32(v)))
		}
	})
	packer(pixel.ModeF, "F", 32, copyRow(4))
	packer(pixel.ModeF, "F;32BF", 32, shuffle(4, []int{3, 2, 1, 0}, 0))
}

func copyRow1(dst, src []byte, width int) {
	n := (width + 7) / 8
	copy(dst[:n], src[:n])
}

// clearTail zeroes the bits past width in the last byte of a 1-bit row.
func clearTail(row []byte, width int) {
	if r := width % 8; r != 0 {
		row[width/8] &= byte(0xFF << uint(8-r))
	}
}

// Package pixel provides the pixel buffer at the center of the imaging engine.
//
// A Buffer owns row-major pixel storage in one of a fixed set of modes. Every
// mode is band-interleaved-by-pixel and rows are stored without alignment
// padding: a row is exactly Mode.RowBytes(width) bytes.
package pixel

import "strings"

// Mode is a pixel storage format. It fixes the band count, the bit depth of
// each band and the byte layout of a pixel.
type Mode uint8

const (
	// ModeUnknown is the zero Mode and is never valid for a buffer.
	ModeUnknown Mode = iota

	// Mode1 is bilevel, packed 8 pixels per byte, most significant bit first.
	// Samples read back as 0 or 255.
	Mode1

	// ModeL is 8-bit grayscale.
	ModeL

	// ModeLA is 8-bit grayscale followed by 8-bit alpha.
	ModeLA

	// ModeP is an 8-bit index into the buffer's palette.
	ModeP

	// ModePA is an 8-bit palette index followed by 8-bit alpha.
	ModePA

	// ModeRGB is 24-bit color, bytes R, G, B.
	ModeRGB

	// ModeRGBA is 32-bit color with straight (non-premultiplied) alpha.
	ModeRGBA

	// ModeCMYK is 32-bit subtractive color, bytes C, M, Y, K.
	ModeCMYK

	// ModeYCbCr is 24-bit full-range BT.601 luma/chroma, bytes Y, Cb, Cr.
	ModeYCbCr

	// ModeHSV is 24-bit hue/saturation/value, each scaled to 0..255.
	ModeHSV

	// ModeI16 is unsigned 16-bit grayscale, little-endian.
	ModeI16

	// ModeI is signed 32-bit integer grayscale, little-endian.
	ModeI

	// ModeF is 32-bit IEEE-754 floating point grayscale, little-endian.
	ModeF

	modeCount
)

// SampleType tells how the bits of a band are interpreted.
type SampleType uint8

const (
	// SampleUint is an unsigned integer sample.
	SampleUint SampleType = iota
	// SampleInt is a two's complement signed integer sample.
	SampleInt
	// SampleFloat is an IEEE-754 floating point sample.
	SampleFloat
)

// ModeInfo contains metadata about a pixel mode.
type ModeInfo struct {
	// Name is the canonical mode name ("RGB", "L", ...).
	Name string

	// Bands is the number of samples per pixel.
	Bands int

	// BitsPerBand is the size of one sample.
	BitsPerBand int

	// HasAlpha indicates the last band is alpha.
	HasAlpha bool

	// Indexed indicates the first band is a palette index.
	Indexed bool

	// Sample is the interpretation of each band.
	Sample SampleType
}

var modeInfoTable = [modeCount]ModeInfo{
	ModeUnknown: {Name: "Unknown"},
	Mode1:       {Name: "1", Bands: 1, BitsPerBand: 1},
	ModeL:       {Name: "L", Bands: 1, BitsPerBand: 8},
	ModeLA:      {Name: "LA", Bands: 2, BitsPerBand: 8, HasAlpha: true},
	ModeP:       {Name: "P", Bands: 1, BitsPerBand: 8, Indexed: true},
	ModePA:      {Name: "PA", Bands: 2, BitsPerBand: 8, HasAlpha: true, Indexed: true},
	ModeRGB:     {Name: "RGB", Bands: 3, BitsPerBand: 8},
	ModeRGBA:    {Name: "RGBA", Bands: 4, BitsPerBand: 8, HasAlpha: true},
	ModeCMYK:    {Name: "CMYK", Bands: 4, BitsPerBand: 8},
	ModeYCbCr:   {Name: "YCbCr", Bands: 3, BitsPerBand: 8},
	ModeHSV:     {Name: "HSV", Bands: 3, BitsPerBand: 8},
	ModeI16:     {Name: "I;16", Bands: 1, BitsPerBand: 16},
	ModeI:       {Name: "I", Bands: 1, BitsPerBand: 32, Sample: SampleInt},
	ModeF:       {Name: "F", Bands: 1, BitsPerBand: 32, Sample: SampleFloat},
}

// Info returns the ModeInfo for this mode.
func (m Mode) Info() ModeInfo {
	if m >= modeCount {
		return modeInfoTable[ModeUnknown]
	}
	return modeInfoTable[m]
}

// IsValid returns true if the mode can back a buffer.
func (m Mode) IsValid() bool {
	return m > ModeUnknown && m < modeCount
}

// Bands returns the number of samples per pixel.
func (m Mode) Bands() int {
	return m.Info().Bands
}

// BitsPerBand returns the bit depth of one sample.
func (m Mode) BitsPerBand() int {
	return m.Info().BitsPerBand
}

// BitsPerPixel returns the number of storage bits per pixel.
func (m Mode) BitsPerPixel() int {
	info := m.Info()
	return info.Bands * info.BitsPerBand
}

// BytesPerPixel returns the storage bytes per pixel. Mode1 reports 0 because
// its pixels do not occupy whole bytes.
func (m Mode) BytesPerPixel() int {
	return m.BitsPerPixel() / 8
}

// HasAlpha returns true if the last band is alpha.
func (m Mode) HasAlpha() bool {
	return m.Info().HasAlpha
}

// IsIndexed returns true if the mode stores palette indices.
func (m Mode) IsIndexed() bool {
	return m.Info().Indexed
}

// Is8Bit reports whether every band is a whole unsigned byte.
func (m Mode) Is8Bit() bool {
	info := m.Info()
	return info.BitsPerBand == 8 && info.Sample == SampleUint
}

// RowBytes returns ceil(width*BitsPerPixel/8), the length of one scanline.
func (m Mode) RowBytes(width int) int {
	return (width*m.BitsPerPixel() + 7) / 8
}

// String returns the canonical mode name.
func (m Mode) String() string {
	return m.Info().Name
}

// ParseMode looks up a mode by its canonical name. The match is case
// insensitive; "I16" is accepted as an alias of "I;16".
func ParseMode(name string) (Mode, bool) {
	if strings.EqualFold(name, "I16") {
		return ModeI16, true
	}
	for m := Mode1; m < modeCount; m++ {
		if strings.EqualFold(modeInfoTable[m].Name, name) {
			return m, true
		}
	}
	return ModeUnknown, false
}

// Modes returns every valid mode in declaration order.
func Modes() []Mode {
	out := make([]Mode, 0, modeCount-1)
	for m := Mode1; m < modeCount; m++ {
		out = append(out, m)
	}
	return out
}

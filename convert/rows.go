package convert

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/imaging/pixel"
)

// isWide reports modes whose samples are not bytes.
func isWide(m pixel.Mode) bool {
	return m == pixel.ModeI16 || m == pixel.ModeI || m == pixel.ModeF
}

// toRGBA expands a row of an 8-bit family mode into straight RGBA.
// Modes without alpha produce opaque pixels.
func toRGBA(dst, src []byte, mode pixel.Mode, width int, pal *pixel.Palette) {
	for x := range width {
		o := dst[4*x : 4*x+4 : 4*x+4]
		switch mode {
		case pixel.Mode1:
			v := byte(0)
			if pixel.GetBit(src, x) {
				v = 255
			}
			o[0], o[1], o[2], o[3] = v, v, v, 255
		case pixel.ModeL:
			v := src[x]
			o[0], o[1], o[2], o[3] = v, v, v, 255
		case pixel.ModeLA:
			v := src[2*x]
			o[0], o[1], o[2], o[3] = v, v, v, src[2*x+1]
		case pixel.ModeP:
			c := pal.At(int(src[x]))
			o[0], o[1], o[2], o[3] = c.R, c.G, c.B, c.A
		case pixel.ModePA:
			c := pal.At(int(src[2*x]))
			o[0], o[1], o[2], o[3] = c.R, c.G, c.B, src[2*x+1]
		case pixel.ModeRGB:
			o[0], o[1], o[2], o[3] = src[3*x], src[3*x+1], src[3*x+2], 255
		case pixel.ModeRGBA:
			copy(o, src[4*x:4*x+4])
		case pixel.ModeCMYK:
			o[0], o[1], o[2] = cmykToRGB(src[4*x], src[4*x+1], src[4*x+2], src[4*x+3])
			o[3] = 255
		case pixel.ModeYCbCr:
			o[0], o[1], o[2] = yCbCrToRGB(src[3*x], src[3*x+1], src[3*x+2])
			o[3] = 255
		case pixel.ModeHSV:
			o[0], o[1], o[2] = hsvToRGB(src[3*x], src[3*x+1], src[3*x+2])
			o[3] = 255
		}
	}
}

// fromRGBA packs a straight RGBA row into an 8-bit family mode. Alpha is
// kept by modes that carry it and dropped otherwise.
func fromRGBA(dst, src []byte, mode pixel.Mode, width int) {
	for x := range width {
		r, g, b, a := src[4*x], src[4*x+1], src[4*x+2], src[4*x+3]
		switch mode {
		case pixel.Mode1:
			pixel.PutBit(dst, x, luma(r, g, b) >= 128)
		case pixel.ModeL:
			dst[x] = luma(r, g, b)
		case pixel.ModeLA:
			dst[2*x], dst[2*x+1] = luma(r, g, b), a
		case pixel.ModeP:
			dst[x] = webIndex(r, g, b)
		case pixel.ModePA:
			dst[2*x], dst[2*x+1] = webIndex(r, g, b), a
		case pixel.ModeRGB:
			dst[3*x], dst[3*x+1], dst[3*x+2] = r, g, b
		case pixel.ModeRGBA:
			dst[4*x], dst[4*x+1], dst[4*x+2], dst[4*x+3] = r, g, b, a
		case pixel.ModeCMYK:
			dst[4*x], dst[4*x+1], dst[4*x+2], dst[4*x+3] = 255-r, 255-g, 255-b, 0
		case pixel.ModeYCbCr:
			dst[3*x], dst[3*x+1], dst[3*x+2] = rgbToYCbCr(r, g, b)
		case pixel.ModeHSV:
			dst[3*x], dst[3*x+1], dst[3*x+2] = rgbToHSV(r, g, b)
		}
	}
}

// readWide returns sample x of a row in a wide or L mode.
func readWide(row []byte, mode pixel.Mode, x int) float64 {
	switch mode {
	case pixel.ModeI16:
		return float64(binary.LittleEndian.Uint16(row[2*x:]))
	case pixel.ModeI:
		return float64(int32(binary.LittleEndian.Uint32(row[4*x:])))
	case pixel.ModeF:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(row[4*x:])))
	default:
		return float64(row[x])
	}
}

// roundClamp rounds half up and clamps to [lo, hi]. NaN maps to zero, which
// every caller's range holds.
func roundClamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	v = math.Floor(v + 0.5)
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// writeWide stores v into sample x of a row in a wide or L mode, rounding and
// clamping to the target range. Float targets keep the value as is.
func writeWide(row []byte, mode pixel.Mode, x int, v float64) {
	switch mode {
	case pixel.ModeI16:
		binary.LittleEndian.PutUint16(row[2*x:], uint16(roundClamp(v, 0, math.MaxUint16)))
	case pixel.ModeI:
		binary.LittleEndian.PutUint32(row[4*x:], uint32(int32(roundClamp(v, math.MinInt32, math.MaxInt32))))
	case pixel.ModeF:
		binary.LittleEndian.PutUint32(row[4*x:], math.Float32bits(float32(v)))
	default:
		row[x] = uint8(roundClamp(v, 0, 255))
	}
}

// wideRow converts between two single-band modes among L, I16, I and F.
func wideRow(dst, src []byte, from, to pixel.Mode, width int) {
	for x := range width {
		writeWide(dst, to, x, readWide(src, from, x))
	}
}

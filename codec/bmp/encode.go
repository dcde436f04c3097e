package bmp

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/imaging/codec"
	"github.com/gogpu/imaging/codec/packing"
	"github.com/gogpu/imaging/pixel"
)

const (
	infoHeaderLen = 40
	v4HeaderLen   = 108
	// 72 dpi.
	pixelsPerMeter = 2835
	lcsSRGB        = 0x73524742
)

// NewEncoder returns a bottom-up BMP encoder. 1, L and P buffers are
// written with a palette, RGB at 24 bits per pixel and RGBA at 32 bits with
// a V4 header carrying the alpha mask.
func NewEncoder(buf *pixel.Buffer, _ codec.EncodeOptions) (codec.Encoder, error) {
	var (
		bpp    int
		raw    string
		colors []pixel.Color
	)
	switch buf.Mode() {
	case pixel.Mode1:
		bpp, raw = 1, "1"
		colors = []pixel.Color{{A: 255}, {R: 255, G: 255, B: 255, A: 255}}
	case pixel.ModeL:
		bpp, raw = 8, "L"
		colors = pixel.GrayscalePalette().Colors()
	case pixel.ModeP:
		bpp, raw = 8, "P"
		colors = buf.Palette().Colors()
	case pixel.ModeRGB:
		bpp, raw = 24, "BGR"
	case pixel.ModeRGBA:
		bpp, raw = 32, "BGRA"
	default:
		return nil, fmt.Errorf("bmp: cannot write %s: %w", buf.Mode(), pixel.ErrUnsupported)
	}
	p, err := packing.LookupPacker(buf.Mode(), raw)
	if err != nil {
		return nil, err
	}

	w, h := buf.Width(), buf.Height()
	stride := (w*bpp + 31) / 32 * 4
	infoLen := infoHeaderLen
	if bpp == 32 {
		infoLen = v4HeaderLen
	}
	offset := fileHeaderLen + infoLen + 4*len(colors)
	imageSize := int64(stride) * int64(h)
	if int64(offset)+imageSize > math.MaxUint32 || w > math.MaxInt32 || h > math.MaxInt32 {
		return nil, fmt.Errorf("bmp: %dx%d image too large: %w", w, h, pixel.ErrUnsupported)
	}

	hdr := make([]byte, offset)
	le := binary.LittleEndian
	copy(hdr, "BM")
	le.PutUint32(hdr[2:], uint32(int64(offset)+imageSize))
	le.PutUint32(hdr[10:], uint32(offset))
	ib := hdr[fileHeaderLen:]
	le.PutUint32(ib[0:], uint32(infoLen))
	le.PutUint32(ib[4:], uint32(w))
	le.PutUint32(ib[8:], uint32(h))
	le.PutUint16(ib[12:], 1)
	le.PutUint16(ib[14:], uint16(bpp))
	le.PutUint32(ib[20:], uint32(imageSize))
	le.PutUint32(ib[24:], pixelsPerMeter)
	le.PutUint32(ib[28:], pixelsPerMeter)
	le.PutUint32(ib[32:], uint32(len(colors)))
	if bpp == 32 {
		le.PutUint32(ib[16:], biBitFields)
		le.PutUint32(ib[40:], 0x00ff0000)
		le.PutUint32(ib[44:], 0x0000ff00)
		le.PutUint32(ib[48:], 0x000000ff)
		le.PutUint32(ib[52:], 0xff000000)
		le.PutUint32(ib[56:], lcsSRGB)
	}
	pal := ib[infoLen:]
	for i, c := range colors {
		pal[4*i], pal[4*i+1], pal[4*i+2] = c.B, c.G, c.R
	}

	line := make([]byte, stride)
	return codec.NewChunkEncoder(&codec.RowChunks{
		Header: hdr,
		Rows:   h,
		Row: func(y int) ([]byte, error) {
			p.Pack(line, buf.Row(h-1-y), w)
			return line, nil
		},
	}), nil
}

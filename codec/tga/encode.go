package tga

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/imaging/codec"
	"github.com/gogpu/imaging/codec/packing"
	"github.com/gogpu/imaging/pixel"
)

// footer marks a TGA 2.0 file; the extension and developer area offsets
// before it are zero.
const footer = "TRUEVISION-XFILE.\x00"

const maxPacket = 128

// NewEncoder returns a top-down TGA encoder for L, LA, P, RGB and RGBA
// buffers. opts.RLE selects run-length encoding and opts.Text["id"], when
// set, is stored in the image ID field.
func NewEncoder(buf *pixel.Buffer, opts codec.EncodeOptions) (codec.Encoder, error) {
	w, h := buf.Width(), buf.Height()
	if w > math.MaxUint16 || h > math.MaxUint16 {
		return nil, fmt.Errorf("tga: %dx%d image too large: %w", w, h, pixel.ErrUnsupported)
	}
	id := opts.Text["id"]
	if len(id) > 255 {
		return nil, fmt.Errorf("tga: image ID of %d bytes: %w", len(id), pixel.ErrInvalidArgument)
	}

	hdr := make([]byte, headerLen, headerLen+len(id)+4*pixel.MaxPaletteLen)
	var (
		raw   string
		depth int
		alpha byte
	)
	switch buf.Mode() {
	case pixel.ModeL:
		hdr[2], raw, depth = typeGray, "L", 8
	case pixel.ModeLA:
		hdr[2], raw, depth, alpha = typeGray, "LA", 16, 8
	case pixel.ModeP:
		hdr[2], raw, depth = typeColorMapped, "P", 8
	case pixel.ModeRGB:
		hdr[2], raw, depth = typeTrueColor, "BGR", 24
	case pixel.ModeRGBA:
		hdr[2], raw, depth, alpha = typeTrueColor, "BGRA", 32, 8
	default:
		return nil, fmt.Errorf("tga: cannot write %s: %w", buf.Mode(), pixel.ErrUnsupported)
	}
	p, err := packing.LookupPacker(buf.Mode(), raw)
	if err != nil {
		return nil, err
	}
	if opts.RLE {
		hdr[2] |= typeRLE
	}
	le := binary.LittleEndian
	hdr[0] = byte(len(id))
	le.PutUint16(hdr[12:], uint16(w))
	le.PutUint16(hdr[14:], uint16(h))
	hdr[16] = byte(depth)
	hdr[17] = descTop | alpha
	hdr = append(hdr, id...)

	if pal := buf.Palette(); pal != nil {
		hdr[1] = 1
		le.PutUint16(hdr[5:], uint16(pal.Len()))
		if pal.HasAlpha() {
			hdr[7] = 32
			hdr[17] |= 8
			for _, c := range pal.Colors() {
				hdr = append(hdr, c.B, c.G, c.R, c.A)
			}
		} else {
			hdr[7] = 24
			for _, c := range pal.Colors() {
				hdr = append(hdr, c.B, c.G, c.R)
			}
		}
	}

	bp := (depth + 7) / 8
	line := make([]byte, p.RowBytes(w))
	var packets []byte
	return codec.NewChunkEncoder(&codec.RowChunks{
		Header: hdr,
		Rows:   h,
		Row: func(y int) ([]byte, error) {
			p.Pack(line, buf.Row(y), w)
			if !opts.RLE {
				return line, nil
			}
			packets = appendRLE(packets[:0], line, bp)
			return packets, nil
		},
		Trailer: func() ([]byte, error) {
			return append(make([]byte, 8), footer...), nil
		},
	}), nil
}

// appendRLE appends the packets encoding one row of bp-byte pixels.
func appendRLE(dst, row []byte, bp int) []byte {
	w := len(row) / bp
	px := func(x int) []byte { return row[x*bp : x*bp+bp] }
	for x := 0; x < w; {
		n := 1
		for x+n < w && n < maxPacket && bytes.Equal(px(x+n), px(x)) {
			n++
		}
		if n > 1 {
			dst = append(dst, byte(0x80|(n-1)))
			dst = append(dst, px(x)...)
			x += n
			continue
		}
		for x+n < w && n < maxPacket && (x+n+1 >= w || !bytes.Equal(px(x+n), px(x+n+1))) {
			n++
		}
		dst = append(dst, byte(n-1))
		dst = append(dst, row[x*bp:(x+n)*bp]...)
		x += n
	}
	return dst
}

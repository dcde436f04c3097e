package pcx

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/imaging/codec"
	"github.com/gogpu/imaging/codec/packing"
	"github.com/gogpu/imaging/pixel"
)

const maxRun = 63

// NewEncoder returns a run-length encoded PCX encoder for 1, L, P and RGB
// buffers. L and P images carry a 256-entry VGA palette.
func NewEncoder(buf *pixel.Buffer, _ codec.EncodeOptions) (codec.Encoder, error) {
	w, h := buf.Width(), buf.Height()
	if w > math.MaxUint16 || h > math.MaxUint16 {
		return nil, fmt.Errorf("pcx: %dx%d image too large: %w", w, h, pixel.ErrUnsupported)
	}
	bits, planes := 8, 1
	var (
		raw string
		pal *pixel.Palette
	)
	switch buf.Mode() {
	case pixel.Mode1:
		bits, raw = 1, "1"
	case pixel.ModeL:
		raw, pal = "L", pixel.GrayscalePalette()
	case pixel.ModeP:
		raw, pal = "P", buf.Palette()
	case pixel.ModeRGB:
		planes = 3
	default:
		return nil, fmt.Errorf("pcx: cannot write %s: %w", buf.Mode(), pixel.ErrUnsupported)
	}
	var p *packing.Packer
	if raw != "" {
		var err error
		if p, err = packing.LookupPacker(buf.Mode(), raw); err != nil {
			return nil, err
		}
	}

	bpl := (w*bits + 7) / 8
	bpl += bpl & 1
	hdr := make([]byte, headerLen)
	le := binary.LittleEndian
	hdr[0], hdr[1], hdr[2], hdr[3] = 0x0a, 5, 1, byte(bits)
	le.PutUint16(hdr[8:], uint16(w-1))
	le.PutUint16(hdr[10:], uint16(h-1))
	le.PutUint16(hdr[12:], 72)
	le.PutUint16(hdr[14:], 72)
	if bits == 1 {
		copy(hdr[19:22], []byte{255, 255, 255})
	}
	hdr[65] = byte(planes)
	le.PutUint16(hdr[66:], uint16(bpl))
	le.PutUint16(hdr[68:], 1)
	if buf.Mode() == pixel.ModeL {
		le.PutUint16(hdr[68:], 2)
	}

	line := make([]byte, bpl*planes)
	var out []byte
	rc := &codec.RowChunks{
		Header: hdr,
		Rows:   h,
		Row: func(y int) ([]byte, error) {
			row := buf.Row(y)
			if p != nil {
				p.Pack(line, row, w)
			} else {
				for x := range w {
					line[x] = row[3*x]
					line[bpl+x] = row[3*x+1]
					line[2*bpl+x] = row[3*x+2]
				}
			}
			out = out[:0]
			for i := range planes {
				out = appendRLE(out, line[i*bpl:(i+1)*bpl])
			}
			return out, nil
		},
	}
	if pal != nil {
		rc.Trailer = func() ([]byte, error) {
			t := make([]byte, vgaPaletteLen)
			t[0] = vgaMarker
			copy(t[1:], pal.RGB())
			return t, nil
		}
	}
	return codec.NewChunkEncoder(rc), nil
}

// appendRLE appends the run-length encoding of one plane line. Bytes with
// both high bits set are always written as runs.
func appendRLE(dst, src []byte) []byte {
	for i := 0; i < len(src); {
		v := src[i]
		n := 1
		for i+n < len(src) && n < maxRun && src[i+n] == v {
			n++
		}
		if n > 1 || v&0xc0 == 0xc0 {
			dst = append(dst, 0xc0|byte(n), v)
		} else {
			dst = append(dst, v)
		}
		i += n
	}
	return dst
}

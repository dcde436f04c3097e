package sun

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/imaging/codec"
	"github.com/gogpu/imaging/codec/packing"
	"github.com/gogpu/imaging/pixel"
)

// NewEncoder returns a standard (uncompressed) Sun raster encoder for 1, L,
// P and RGB buffers.
func NewEncoder(buf *pixel.Buffer, _ codec.EncodeOptions) (codec.Encoder, error) {
	var (
		depth int
		raw   string
		cmap  []byte
	)
	switch buf.Mode() {
	case pixel.Mode1:
		depth, raw = 1, "1;I"
	case pixel.ModeL:
		depth, raw = 8, "L"
	case pixel.ModeP:
		depth, raw = 8, "P"
		cs := buf.Palette().Colors()
		n := len(cs)
		cmap = make([]byte, 3*n)
		for i, c := range cs {
			cmap[i], cmap[n+i], cmap[2*n+i] = c.R, c.G, c.B
		}
	case pixel.ModeRGB:
		depth, raw = 24, "BGR"
	default:
		return nil, fmt.Errorf("sun: cannot write %s: %w", buf.Mode(), pixel.ErrUnsupported)
	}
	p, err := packing.LookupPacker(buf.Mode(), raw)
	if err != nil {
		return nil, err
	}
	h := header{width: buf.Width(), height: buf.Height(), depth: depth}
	stride := h.stride()
	size := int64(stride) * int64(h.height)
	if size > math.MaxUint32 {
		return nil, fmt.Errorf("sun: %dx%d image too large: %w", h.width, h.height, pixel.ErrUnsupported)
	}

	hdr := make([]byte, headerLen, headerLen+len(cmap))
	be := binary.BigEndian
	be.PutUint32(hdr[0:], magic)
	be.PutUint32(hdr[4:], uint32(h.width))
	be.PutUint32(hdr[8:], uint32(h.height))
	be.PutUint32(hdr[12:], uint32(depth))
	be.PutUint32(hdr[16:], uint32(size))
	be.PutUint32(hdr[20:], typeStandard)
	if cmap != nil {
		be.PutUint32(hdr[24:], mapRGB)
		be.PutUint32(hdr[28:], uint32(len(cmap)))
	}
	hdr = append(hdr, cmap...)

	line := make([]byte, stride)
	return codec.NewChunkEncoder(&codec.RowChunks{
		Header: hdr,
		Rows:   h.height,
		Row: func(y int) ([]byte, error) {
			p.Pack(line, buf.Row(y), h.width)
			return line, nil
		},
	}), nil
}

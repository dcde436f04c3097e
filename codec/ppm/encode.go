package ppm

import (
	"fmt"

	"github.com/gogpu/imaging/codec"
	"github.com/gogpu/imaging/codec/packing"
	"github.com/gogpu/imaging/pixel"
)

// NewEncoder returns a raw PBM, PGM or PPM encoder for 1, L, I;16 and RGB
// buffers.
func NewEncoder(buf *pixel.Buffer, _ codec.EncodeOptions) (codec.Encoder, error) {
	var (
		magic  string
		maxval = 255
		raw    string
	)
	switch buf.Mode() {
	case pixel.Mode1:
		magic, maxval, raw = "P4", 0, "1;I"
	case pixel.ModeL:
		magic, raw = "P5", "L"
	case pixel.ModeI16:
		magic, maxval, raw = "P5", 65535, "I;16B"
	case pixel.ModeRGB:
		magic, raw = "P6", "RGB"
	default:
		return nil, fmt.Errorf("ppm: cannot write %s: %w", buf.Mode(), pixel.ErrUnsupported)
	}
	p, err := packing.LookupPacker(buf.Mode(), raw)
	if err != nil {
		return nil, err
	}
	header := fmt.Sprintf("%s\n%d %d\n", magic, buf.Width(), buf.Height())
	if maxval > 0 {
		header += fmt.Sprintf("%d\n", maxval)
	}
	w := buf.Width()
	line := make([]byte, p.RowBytes(w))
	return codec.NewChunkEncoder(&codec.RowChunks{
		Header: []byte(header),
		Rows:   buf.Height(),
		Row: func(y int) ([]byte, error) {
			p.Pack(line, buf.Row(y), w)
			return line, nil
		},
	}), nil
}

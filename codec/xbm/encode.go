package xbm

import (
	"fmt"
	"strconv"

	"github.com/gogpu/imaging/codec"
	"github.com/gogpu/imaging/codec/packing"
	"github.com/gogpu/imaging/pixel"
)

// NewEncoder returns an X11 bitmap encoder for mode 1 buffers. Integer
// "x_hot" and "y_hot" text entries are written as the hotspot.
func NewEncoder(buf *pixel.Buffer, opts codec.EncodeOptions) (codec.Encoder, error) {
	if buf.Mode() != pixel.Mode1 {
		return nil, fmt.Errorf("xbm: cannot write %s: %w", buf.Mode(), pixel.ErrUnsupported)
	}
	p, err := packing.LookupPacker(pixel.Mode1, "1;R")
	if err != nil {
		return nil, err
	}
	w, h := buf.Width(), buf.Height()
	header := fmt.Sprintf("#define im_width %d\n#define im_height %d\n", w, h)
	xs, xok := opts.Text["x_hot"]
	ys, yok := opts.Text["y_hot"]
	if xok && yok {
		x, errX := strconv.Atoi(xs)
		y, errY := strconv.Atoi(ys)
		if errX != nil || errY != nil {
			return nil, fmt.Errorf("xbm: hotspot %q,%q: %w", xs, ys, pixel.ErrInvalidArgument)
		}
		header += fmt.Sprintf("#define im_x_hot %d\n#define im_y_hot %d\n", x, y)
	}
	header += "static char im_bits[] = {\n"

	n := (w + 7) / 8
	packed := make([]byte, n)
	var text []byte
	return codec.NewChunkEncoder(&codec.RowChunks{
		Header: []byte(header),
		Rows:   h,
		Row: func(y int) ([]byte, error) {
			p.Pack(packed, buf.Row(y), w)
			text = text[:0]
			for i, v := range packed {
				text = fmt.Appendf(text, "0x%02x", v)
				if y < h-1 || i < n-1 {
					text = append(text, ',')
				}
			}
			return append(text, '\n'), nil
		},
		Trailer: func() ([]byte, error) { return []byte("};\n"), nil },
	}), nil
}

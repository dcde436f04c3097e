package jpeg

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/gogpu/imaging/codec"
	"github.com/gogpu/imaging/pixel"
)

// DefaultQuality is used when EncodeOptions.Quality is zero.
const DefaultQuality = 75

// maxComment is the largest COM payload.
const maxComment = 65533

// NewEncoder returns a baseline JPEG encoder for L and RGB buffers at
// opts.Quality. opts.Text["comment"] is stored in a COM segment.
func NewEncoder(buf *pixel.Buffer, opts codec.EncodeOptions) (codec.Encoder, error) {
	q := opts.Quality
	if q == 0 {
		q = DefaultQuality
	}
	if q < 1 || q > 100 {
		return nil, fmt.Errorf("jpeg: quality %d: %w", opts.Quality, pixel.ErrInvalidArgument)
	}
	comment := opts.Text["comment"]
	if len(comment) > maxComment {
		return nil, fmt.Errorf("jpeg: comment of %d bytes: %w", len(comment), pixel.ErrInvalidArgument)
	}
	w, h := buf.Width(), buf.Height()
	if w > 65535 || h > 65535 {
		return nil, fmt.Errorf("jpeg: %dx%d image too large: %w", w, h, pixel.ErrUnsupported)
	}

	var img image.Image
	switch buf.Mode() {
	case pixel.ModeL:
		img = &image.Gray{Pix: buf.Data(), Stride: buf.Stride(), Rect: image.Rect(0, 0, w, h)}
	case pixel.ModeRGB:
		rgba := image.NewRGBA(image.Rect(0, 0, w, h))
		for y := range h {
			src, dst := buf.Row(y), rgba.Pix[y*rgba.Stride:]
			for x := range w {
				copy(dst[4*x:4*x+3], src[3*x:3*x+3])
				dst[4*x+3] = 255
			}
		}
		img = rgba
	default:
		return nil, fmt.Errorf("jpeg: cannot write %s: %w", buf.Mode(), pixel.ErrUnsupported)
	}

	chunks := codec.Chunks{func() ([]byte, error) {
		var out bytes.Buffer
		if err := jpeg.Encode(&out, img, &jpeg.Options{Quality: q}); err != nil {
			return nil, fmt.Errorf("jpeg: %v: %w", err, pixel.ErrInvalidArgument)
		}
		data := out.Bytes()
		if comment == "" {
			return data, nil
		}
		n := len(comment) + 2
		seg := append([]byte{0xff, mSOI, 0xff, mCOM, byte(n >> 8), byte(n)}, comment...)
		return append(seg, data[2:]...), nil
	}}
	return codec.NewChunkEncoder(&chunks), nil
}

// Package webp decodes still WebP images, lossy or lossless, with or
// without alpha. The RIFF container is buffered by its declared size and
// decoded with golang.org/x/image/webp. Animation is not supported and
// there is no encoder.
package webp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"strings"

	"golang.org/x/image/webp"

	"github.com/gogpu/imaging/codec"
	"github.com/gogpu/imaging/internal/logging"
	"github.com/gogpu/imaging/pixel"
)

const (
	formatName = "WEBP"
	headerLen  = 12
	// maxRIFF bounds the declared container size.
	maxRIFF = 1<<32 - 2
)

// flagAnimation is the VP8X bit set on animated files.
const flagAnimation = 0x02

func init() {
	codec.Register(Descriptor())
}

// Descriptor returns the registry entry for the format.
func Descriptor() codec.Descriptor {
	return codec.Descriptor{
		Name:       formatName,
		Extensions: []string{".webp"},
		MIMEType:   "image/webp",
		Sniff: func(p []byte) bool {
			return len(p) >= headerLen && string(p[:4]) == "RIFF" && string(p[8:12]) == "WEBP"
		},
		NewDecoder: func(opts codec.DecodeOptions) (codec.Decoder, error) {
			return codec.NewDecoder(formatName, &decoder{opts: opts}), nil
		},
	}
}

type decoder struct {
	opts codec.DecodeOptions
	size int64
	done bool
}

// missingPad reports whether b, a stream one byte short of its RIFF size,
// ends exactly where the pad byte of an odd sized final chunk belongs.
func missingPad(b []byte) bool {
	off := int64(headerLen)
	for off+8 <= int64(len(b)) {
		n := int64(binary.LittleEndian.Uint32(b[off+4:]))
		end := off + 8 + n
		if end == int64(len(b)) {
			return n&1 == 1
		}
		off = end + n&1
	}
	return false
}

func (d *decoder) Step(in *codec.Input) (codec.Result, error) {
	if d.done {
		return codec.Result{Status: codec.StatusDone}, nil
	}
	if d.size == 0 {
		b, ok := in.Peek(headerLen)
		if !ok {
			return codec.Starved(in, "webp", "RIFF header")
		}
		if string(b[:4]) != "RIFF" || string(b[8:12]) != "WEBP" {
			return codec.Result{}, fmt.Errorf("webp: not a RIFF WEBP stream: %w", pixel.ErrCorrupt)
		}
		n := int64(binary.LittleEndian.Uint32(b[4:]))
		if n < 4 || n > maxRIFF {
			return codec.Result{}, fmt.Errorf("webp: RIFF size %d: %w", n, pixel.ErrCorrupt)
		}
		d.size = 8 + n + n&1
	}
	if int64(in.Buffered()) < d.size {
		if in.EOF() && int64(in.Buffered()) == d.size-1 && missingPad(in.Bytes()) {
			// Writers commonly drop the pad byte of an odd final chunk.
			d.size--
		} else {
			return codec.Starved(in, "webp", "RIFF payload")
		}
	}
	data, _ := in.Peek(int(d.size))
	m, err := d.inspect(data)
	if err != nil {
		return codec.Result{}, err
	}
	cfg, err := webp.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return codec.Result{}, decodeError(err)
	}
	if err := d.opts.CheckSize("webp", cfg.Width, cfg.Height); err != nil {
		return codec.Result{}, err
	}
	img, err := webp.Decode(bytes.NewReader(data))
	if err != nil {
		return codec.Result{}, decodeError(err)
	}
	frame, err := toBuffer(img)
	if err != nil {
		return codec.Result{}, err
	}
	in.Skip(len(data))
	d.done = true
	return codec.Result{Status: codec.StatusFrame, Frame: frame, Meta: m}, nil
}

// inspect walks the chunks of the container for metadata and rejects
// animations.
func (d *decoder) inspect(data []byte) (codec.FrameMeta, error) {
	m := codec.NewMeta(formatName)
	p := data[headerLen:]
	for len(p) >= 8 {
		fourcc, n := string(p[:4]), int64(binary.LittleEndian.Uint32(p[4:]))
		p = p[8:]
		if n > int64(len(p)) {
			return m, fmt.Errorf("webp: %q chunk of %d bytes overruns the container: %w", fourcc, n, pixel.ErrCorrupt)
		}
		body := p[:n]
		p = p[min(n+n&1, int64(len(p))):]
		switch fourcc {
		case "VP8X":
			if len(body) > 0 && body[0]&flagAnimation != 0 {
				return m, fmt.Errorf("webp: animation: %w", pixel.ErrUnsupported)
			}
		case "ANIM", "ANMF":
			return m, fmt.Errorf("webp: animation: %w", pixel.ErrUnsupported)
		case "VP8 ":
			m.Compression = "vp8"
		case "VP8L":
			m.Compression = "vp8l"
		case "XMP ":
			if m.Text == nil {
				m.Text = map[string]string{}
			}
			m.Text["xmp"] = string(body)
		case "ALPH", "ICCP", "EXIF":
		default:
			logging.Logger().Debug("webp: skipping chunk", "type", fourcc, "len", n)
		}
	}
	return m, nil
}

func decodeError(err error) error {
	// The container is complete, so running out of bytes means a chunk
	// lies about its length.
	if errors.Is(err, io.ErrUnexpectedEOF) || !strings.Contains(err.Error(), "not implemented") {
		return fmt.Errorf("%v: %w", err, pixel.ErrCorrupt)
	}
	return fmt.Errorf("%v: %w", err, pixel.ErrUnsupported)
}

// toBuffer copies a decoded image into an RGB or RGBA buffer.
func toBuffer(img image.Image) (*pixel.Buffer, error) {
	r := img.Bounds()
	w, h := r.Dx(), r.Dy()
	mode := pixel.ModeRGBA
	switch img.(type) {
	case *image.YCbCr:
		mode = pixel.ModeRGB
	case *image.NYCbCrA, *image.NRGBA:
	default:
		return nil, fmt.Errorf("webp: decoded %T: %w", img, pixel.ErrUnsupported)
	}
	buf, err := pixel.Allocate(mode, w, h)
	if err != nil {
		return nil, err
	}
	for y := range h {
		row := buf.Row(y)
		switch m := img.(type) {
		case *image.NRGBA:
			copy(row, m.Pix[y*m.Stride:][:4*w])
		case *image.YCbCr:
			for x := range w {
				yi, ci := m.YOffset(r.Min.X+x, r.Min.Y+y), m.COffset(r.Min.X+x, r.Min.Y+y)
				row[3*x], row[3*x+1], row[3*x+2] = color.YCbCrToRGB(m.Y[yi], m.Cb[ci], m.Cr[ci])
			}
		case *image.NYCbCrA:
			for x := range w {
				yi, ci := m.YOffset(r.Min.X+x, r.Min.Y+y), m.COffset(r.Min.X+x, r.Min.Y+y)
				row[4*x], row[4*x+1], row[4*x+2] = color.YCbCrToRGB(m.Y[yi], m.Cb[ci], m.Cr[ci])
				row[4*x+3] = m.A[m.AOffset(r.Min.X+x, r.Min.Y+y)]
			}
		}
	}
	return buf, nil
}

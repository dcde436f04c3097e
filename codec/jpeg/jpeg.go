// Package jpeg reads and writes baseline and progressive JPEG.
//
// The decoder walks markers as bytes arrive, validating the frame header
// and finding the end of the image without holding a pixel buffer; the
// complete stream is then decoded with image/jpeg. Grayscale streams decode
// to L, YCbCr and RGB streams to RGB, and Adobe CMYK streams to CMYK.
package jpeg

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/gogpu/imaging/codec"
	"github.com/gogpu/imaging/internal/logging"
	"github.com/gogpu/imaging/pixel"
)

const formatName = "JPEG"

// Markers.
const (
	mSOF0  = 0xc0
	mSOF1  = 0xc1
	mSOF2  = 0xc2
	mDHT   = 0xc4
	mJPG   = 0xc8
	mDAC   = 0xcc
	mSOF15 = 0xcf
	mRST0  = 0xd0
	mRST7  = 0xd7
	mSOI   = 0xd8
	mEOI   = 0xd9
	mSOS   = 0xda
	mCOM   = 0xfe
	mTEM   = 0x01
)

func init() {
	codec.Register(Descriptor())
}

// Descriptor returns the registry entry for the format.
func Descriptor() codec.Descriptor {
	return codec.Descriptor{
		Name:       formatName,
		Extensions: []string{".jpg", ".jpeg", ".jpe", ".jfif"},
		MIMEType:   "image/jpeg",
		Sniff: func(p []byte) bool {
			return len(p) >= 3 && p[0] == 0xff && p[1] == mSOI && p[2] == 0xff
		},
		NewDecoder: func(opts codec.DecodeOptions) (codec.Decoder, error) {
			return codec.NewDecoder(formatName, &decoder{opts: opts}), nil
		},
		NewEncoder: NewEncoder,
	}
}

type state uint8

const (
	stateSOI state = iota
	stateMarker
	stateScan
	stateDone
)

type decoder struct {
	opts  codec.DecodeOptions
	state state
	// pos is the walk position in the buffered stream, which is only
	// consumed once the image is decoded.
	pos         int
	width       int
	height      int
	components  int
	progressive bool
	comments    []string
}

func (d *decoder) Step(in *codec.Input) (codec.Result, error) {
	b := in.Bytes()
	for {
		switch d.state {
		case stateSOI:
			if len(b) < 2 {
				return codec.Starved(in, "jpeg", "start of image")
			}
			if b[0] != 0xff || b[1] != mSOI {
				return codec.Result{}, fmt.Errorf("jpeg: missing start of image: %w", pixel.ErrCorrupt)
			}
			d.pos, d.state = 2, stateMarker
		case stateMarker:
			for d.pos+1 < len(b) && b[d.pos] == 0xff && b[d.pos+1] == 0xff {
				d.pos++
			}
			if d.pos+2 > len(b) {
				return codec.Starved(in, "jpeg", "marker")
			}
			if b[d.pos] != 0xff {
				return codec.Result{}, fmt.Errorf("jpeg: byte %#02x where a marker belongs at offset %d: %w", b[d.pos], d.pos, pixel.ErrCorrupt)
			}
			m := b[d.pos+1]
			switch {
			case m == mEOI:
				d.pos += 2
				return d.decode(in, b[:d.pos])
			case m == mTEM || m >= mRST0 && m <= mRST7:
				d.pos += 2
				continue
			case m == mSOI || m == 0:
				return codec.Result{}, fmt.Errorf("jpeg: unexpected marker %#02x at offset %d: %w", m, d.pos, pixel.ErrCorrupt)
			}
			if d.pos+4 > len(b) {
				return codec.Starved(in, "jpeg", "segment length")
			}
			n := int(binary.BigEndian.Uint16(b[d.pos+2:]))
			if n < 2 {
				return codec.Result{}, fmt.Errorf("jpeg: segment length %d at offset %d: %w", n, d.pos, pixel.ErrCorrupt)
			}
			if d.pos+2+n > len(b) {
				return codec.Starved(in, "jpeg", fmt.Sprintf("segment %#02x", m))
			}
			if err := d.segment(m, b[d.pos+4:d.pos+2+n]); err != nil {
				return codec.Result{}, err
			}
			d.pos += 2 + n
			if m == mSOS {
				d.state = stateScan
			}
		case stateScan:
			// Entropy-coded data runs until a marker other than a stuffed
			// zero, a restart or fill.
			i := d.pos
			for ; i+1 < len(b); i++ {
				if b[i] != 0xff {
					continue
				}
				if c := b[i+1]; c != 0 && c != 0xff && (c < mRST0 || c > mRST7) {
					break
				}
			}
			d.pos = i
			if i+1 >= len(b) {
				return codec.Starved(in, "jpeg", "scan data")
			}
			d.state = stateMarker
		default:
			return codec.Result{Status: codec.StatusDone}, nil
		}
	}
}

// segment checks one marker segment with payload p.
func (d *decoder) segment(m byte, p []byte) error {
	switch {
	case m == mSOF0 || m == mSOF1 || m == mSOF2:
		if d.width != 0 {
			return fmt.Errorf("jpeg: second frame header: %w", pixel.ErrCorrupt)
		}
		if len(p) < 6 {
			return fmt.Errorf("jpeg: frame header of %d bytes: %w", len(p), pixel.ErrCorrupt)
		}
		if p[0] != 8 {
			return fmt.Errorf("jpeg: %d-bit precision: %w", p[0], pixel.ErrUnsupported)
		}
		h, w := int(binary.BigEndian.Uint16(p[1:])), int(binary.BigEndian.Uint16(p[3:]))
		if h == 0 && w > 0 {
			return fmt.Errorf("jpeg: height defined by DNL: %w", pixel.ErrUnsupported)
		}
		if err := d.opts.CheckSize("jpeg", w, h); err != nil {
			return err
		}
		switch p[5] {
		case 1, 3, 4:
		default:
			return fmt.Errorf("jpeg: %d components: %w", p[5], pixel.ErrUnsupported)
		}
		d.width, d.height, d.components = w, h, int(p[5])
		d.progressive = m == mSOF2
		logging.Logger().Debug("jpeg: frame header", "width", w, "height", h,
			"components", d.components, "progressive", d.progressive)
	case m > mSOF2 && m <= mSOF15 && m != mDHT && m != mJPG && m != mDAC:
		return fmt.Errorf("jpeg: frame type %#02x: %w", m, pixel.ErrUnsupported)
	case m == mSOS:
		if d.width == 0 {
			return fmt.Errorf("jpeg: scan before frame header: %w", pixel.ErrCorrupt)
		}
	case m == mCOM:
		d.comments = append(d.comments, latin1(p))
	}
	return nil
}

// latin1 returns p as a string, reading it as Latin-1 unless it is UTF-8.
func latin1(p []byte) string {
	if utf8.Valid(p) {
		return string(p)
	}
	s, err := charmap.ISO8859_1.NewDecoder().Bytes(p)
	if err != nil {
		return string(p)
	}
	return string(s)
}

// decode hands the complete stream to image/jpeg.
func (d *decoder) decode(in *codec.Input, data []byte) (codec.Result, error) {
	if d.width == 0 {
		return codec.Result{}, fmt.Errorf("jpeg: end of image before a frame: %w", pixel.ErrCorrupt)
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return codec.Result{}, decodeError(err)
	}
	frame, err := toBuffer(img)
	if err != nil {
		return codec.Result{}, err
	}
	in.Skip(len(data))
	d.state = stateDone

	m := codec.NewMeta(formatName)
	m.Compression = "jpeg"
	m.Interlaced = d.progressive
	if len(d.comments) > 0 {
		m.Text = map[string]string{"comment": strings.Join(d.comments, "\n")}
	}
	return codec.Result{Status: codec.StatusFrame, Frame: frame, Meta: m}, nil
}

func decodeError(err error) error {
	var unsupported jpeg.UnsupportedError
	switch {
	case errors.As(err, &unsupported):
		return fmt.Errorf("jpeg: %v: %w", err, pixel.ErrUnsupported)
	case errors.Is(err, io.ErrUnexpectedEOF):
		return fmt.Errorf("jpeg: %v: %w", err, pixel.ErrTruncated)
	}
	return fmt.Errorf("jpeg: %v: %w", err, pixel.ErrCorrupt)
}

// toBuffer copies a decoded image into a buffer.
func toBuffer(img image.Image) (*pixel.Buffer, error) {
	r := img.Bounds()
	w, h := r.Dx(), r.Dy()
	var mode pixel.Mode
	switch img.(type) {
	case *image.Gray:
		mode = pixel.ModeL
	case *image.YCbCr, *image.RGBA:
		mode = pixel.ModeRGB
	case *image.CMYK:
		mode = pixel.ModeCMYK
	default:
		return nil, fmt.Errorf("jpeg: decoded %T: %w", img, pixel.ErrUnsupported)
	}
	buf, err := pixel.Allocate(mode, w, h)
	if err != nil {
		return nil, err
	}
	for y := range h {
		row := buf.Row(y)
		switch m := img.(type) {
		case *image.Gray:
			copy(row, m.Pix[y*m.Stride:][:w])
		case *image.CMYK:
			copy(row, m.Pix[y*m.Stride:][:4*w])
		case *image.RGBA:
			src := m.Pix[y*m.Stride:]
			for x := range w {
				copy(row[3*x:3*x+3], src[4*x:4*x+3])
			}
		case *image.YCbCr:
			for x := range w {
				yi := m.YOffset(r.Min.X+x, r.Min.Y+y)
				ci := m.COffset(r.Min.X+x, r.Min.Y+y)
				row[3*x], row[3*x+1], row[3*x+2] = color.YCbCrToRGB(m.Y[yi], m.Cb[ci], m.Cr[ci])
			}
		}
	}
	return buf, nil
}

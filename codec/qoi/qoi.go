// Package qoi implements the Quite OK Image format for RGB and RGBA
// buffers.
package qoi

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/imaging/codec"
	"github.com/gogpu/imaging/internal/logging"
	"github.com/gogpu/imaging/pixel"
)

const (
	formatName = "QOI"
	magic      = "qoif"
	headerLen  = 14
)

const (
	opIndex = 0x00
	opDiff  = 0x40
	opLuma  = 0x80
	opRun   = 0xc0
	opRGB   = 0xfe
	opRGBA  = 0xff
	opMask  = 0xc0
)

var endMarker = [8]byte{0, 0, 0, 0, 0, 0, 0, 1}

func init() {
	codec.Register(Descriptor())
}

// Descriptor returns the registry entry for the format.
func Descriptor() codec.Descriptor {
	return codec.Descriptor{
		Name:       formatName,
		Extensions: []string{".qoi"},
		MIMEType:   "image/qoi",
		Sniff: func(p []byte) bool {
			return len(p) >= 4 && string(p[:4]) == magic
		},
		NewDecoder: func(opts codec.DecodeOptions) (codec.Decoder, error) {
			return codec.NewDecoder(formatName, &decoder{opts: opts}), nil
		},
		NewEncoder: NewEncoder,
		Caps:       codec.CapIncremental | codec.CapLossless,
	}
}

type rgba struct{ r, g, b, a byte }

func (c rgba) hash() int {
	return (int(c.r)*3 + int(c.g)*5 + int(c.b)*7 + int(c.a)*11) % 64
}

type state uint8

const (
	stateHeader state = iota
	statePixels
	stateTrailer
	stateDone
)

type decoder struct {
	opts     codec.DecodeOptions
	state    state
	frame    *pixel.Buffer
	channels int
	// Pixel cursor over the frame data.
	n, total int
	prev     rgba
	index    [64]rgba
	run      int
}

func (d *decoder) Step(in *codec.Input) (codec.Result, error) {
	for {
		switch d.state {
		case stateHeader:
			b, ok := in.Next(headerLen)
			if !ok {
				return codec.Starved(in, "qoi", "header")
			}
			if err := d.readHeader(b); err != nil {
				return codec.Result{}, err
			}
		case statePixels:
			if err := d.readPixels(in); err != nil {
				return codec.Result{}, err
			}
			if d.n < d.total {
				return codec.StarvedInFrame(in, d.opts, "qoi", fmt.Sprintf("pixel %d", d.n), d.frame, d.meta())
			}
			d.state = stateTrailer
			f := d.frame
			d.frame = nil
			return codec.Result{Status: codec.StatusFrame, Frame: f, Meta: d.meta()}, nil
		case stateTrailer:
			b, ok := in.Next(len(endMarker))
			if !ok {
				if !in.EOF() {
					return codec.Result{Status: codec.StatusNeedMoreInput}, nil
				}
				logging.Logger().Warn("qoi: missing end marker")
			} else if [8]byte(b) != endMarker {
				logging.Logger().Warn("qoi: bad end marker", "marker", b)
			}
			d.state = stateDone
		default:
			return codec.Result{Status: codec.StatusDone}, nil
		}
	}
}

func (d *decoder) meta() codec.FrameMeta {
	m := codec.NewMeta(formatName)
	m.Compression = "qoi"
	return m
}

func (d *decoder) readHeader(b []byte) error {
	if string(b[:4]) != magic {
		return fmt.Errorf("qoi: bad magic %q: %w", b[:4], pixel.ErrCorrupt)
	}
	w := binary.BigEndian.Uint32(b[4:])
	h := binary.BigEndian.Uint32(b[8:])
	channels, colorspace := int(b[12]), b[13]
	if channels != 3 && channels != 4 {
		return fmt.Errorf("qoi: %d channels: %w", channels, pixel.ErrCorrupt)
	}
	if colorspace > 1 {
		return fmt.Errorf("qoi: colorspace %d: %w", colorspace, pixel.ErrCorrupt)
	}
	if w > 1<<30 || h > 1<<30 {
		return fmt.Errorf("qoi: size %dx%d: %w", w, h, pixel.ErrResourceExhausted)
	}
	if err := d.opts.CheckSize("qoi", int(w), int(h)); err != nil {
		return err
	}
	mode := pixel.ModeRGB
	if channels == 4 {
		mode = pixel.ModeRGBA
	}
	frame, err := pixel.Allocate(mode, int(w), int(h))
	if err != nil {
		return err
	}
	logging.Logger().Debug("qoi: header", "width", w, "height", h, "channels", channels)
	d.frame, d.channels = frame, channels
	d.total = int(w) * int(h)
	d.prev = rgba{a: 255}
	d.state = statePixels
	return nil
}

// readPixels decodes every complete op that is buffered.
func (d *decoder) readPixels(in *codec.Input) error {
	data := d.frame.Data()
	for d.n < d.total {
		if d.run > 0 {
			d.run--
			d.put(data, d.prev)
			continue
		}
		b, ok := in.Peek(1)
		if !ok {
			return nil
		}
		op := b[0]
		size := 1
		switch {
		case op == opRGB:
			size = 4
		case op == opRGBA:
			size = 5
		case op&opMask == opLuma:
			size = 2
		}
		b, ok = in.Next(size)
		if !ok {
			return nil
		}
		px := d.prev
		switch {
		case op == opRGB:
			px.r, px.g, px.b = b[1], b[2], b[3]
		case op == opRGBA:
			px = rgba{b[1], b[2], b[3], b[4]}
		case op&opMask == opIndex:
			px = d.index[op]
		case op&opMask == opDiff:
			px.r += op>>4&3 - 2
			px.g += op>>2&3 - 2
			px.b += op&3 - 2
		case op&opMask == opLuma:
			dg := op&0x3f - 32
			px.r += dg + b[1]>>4 - 8
			px.g += dg
			px.b += dg + b[1]&0x0f - 8
		default:
			// The run includes the pixel written below.
			d.run = int(op & 0x3f)
		}
		d.index[px.hash()] = px
		d.put(data, px)
	}
	return nil
}

func (d *decoder) put(data []byte, px rgba) {
	i := d.n * d.channels
	data[i], data[i+1], data[i+2] = px.r, px.g, px.b
	if d.channels == 4 {
		data[i+3] = px.a
	}
	d.prev = px
	d.n++
}

// Package raw reads and writes headerless pixel data. The geometry and the
// file layout come from codec.Hint on decode and codec.EncodeOptions.RawMode
// on encode; the format is never sniffed.
package raw

import (
	"fmt"

	"github.com/gogpu/imaging/codec"
	"github.com/gogpu/imaging/codec/packing"
	"github.com/gogpu/imaging/pixel"
)

const formatName = "RAW"

func init() {
	codec.Register(Descriptor())
}

// Descriptor returns the registry entry for the format.
func Descriptor() codec.Descriptor {
	return codec.Descriptor{
		Name:       formatName,
		Extensions: []string{".raw"},
		MIMEType:   "application/octet-stream",
		NewDecoder: NewDecoder,
		NewEncoder: NewEncoder,
		Caps:       codec.CapIncremental | codec.CapLossless,
	}
}

// NewDecoder returns a decoder for opts.Hint. The raw mode defaults to the
// buffer layout of the hinted mode.
func NewDecoder(opts codec.DecodeOptions) (codec.Decoder, error) {
	h := opts.Hint
	if h == nil {
		return nil, fmt.Errorf("raw: decoding needs a hint: %w", pixel.ErrInvalidArgument)
	}
	if h.Width <= 0 || h.Height <= 0 {
		return nil, fmt.Errorf("raw: hinted size %dx%d: %w", h.Width, h.Height, pixel.ErrInvalidArgument)
	}
	rawMode := h.RawMode
	if rawMode == "" {
		rawMode = h.Mode.String()
	}
	u, err := packing.LookupUnpacker(h.Mode, rawMode)
	if err != nil {
		return nil, err
	}
	return codec.NewDecoder(formatName, &decoder{opts: opts, unp: u}), nil
}

type decoder struct {
	opts  codec.DecodeOptions
	unp   *packing.Unpacker
	frame *pixel.Buffer
	y     int
	done  bool
}

func (d *decoder) Step(in *codec.Input) (codec.Result, error) {
	if d.done {
		return codec.Result{Status: codec.StatusDone}, nil
	}
	h := d.opts.Hint
	if d.frame == nil {
		if err := d.opts.CheckSize("raw", h.Width, h.Height); err != nil {
			return codec.Result{}, err
		}
		f, err := pixel.Allocate(h.Mode, h.Width, h.Height)
		if err != nil {
			return codec.Result{}, err
		}
		d.frame = f
	}
	n := d.unp.RowBytes(h.Width)
	for d.y < h.Height {
		src, ok := in.Next(n)
		if !ok {
			return codec.StarvedInFrame(in, d.opts, "raw", fmt.Sprintf("row %d", d.y), d.frame, d.meta())
		}
		d.unp.Unpack(d.frame.Row(d.y), src, h.Width)
		d.y++
	}
	d.done = true
	return codec.Result{Status: codec.StatusFrame, Frame: d.frame, Meta: d.meta()}, nil
}

func (d *decoder) meta() codec.FrameMeta {
	m := codec.NewMeta(formatName)
	m.Compression = d.unp.Raw
	return m
}

// NewEncoder writes the rows of buf in opts.RawMode, or in the buffer
// layout when RawMode is empty.
func NewEncoder(buf *pixel.Buffer, opts codec.EncodeOptions) (codec.Encoder, error) {
	rawMode := opts.RawMode
	if rawMode == "" {
		rawMode = buf.Mode().String()
	}
	p, err := packing.LookupPacker(buf.Mode(), rawMode)
	if err != nil {
		return nil, err
	}
	w := buf.Width()
	line := make([]byte, p.RowBytes(w))
	return codec.NewChunkEncoder(&codec.RowChunks{
		Rows: buf.Height(),
		Row: func(y int) ([]byte, error) {
			p.Pack(line, buf.Row(y), w)
			return line, nil
		},
	}), nil
}

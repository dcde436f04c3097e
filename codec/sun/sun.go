// Package sun implements the Sun raster format.
package sun

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/imaging/codec"
	"github.com/gogpu/imaging/codec/packing"
	"github.com/gogpu/imaging/internal/logging"
	"github.com/gogpu/imaging/pixel"
)

const (
	formatName = "SUN"
	magic      = 0x59a66a95
	headerLen  = 32
	rleEscape  = 0x80
)

// Raster types.
const (
	typeOld      = 0
	typeStandard = 1
	typeRLE      = 2
	typeRGB      = 3
)

// Color map types.
const (
	mapNone = 0
	mapRGB  = 1
	mapRaw  = 2
)

func init() {
	codec.Register(Descriptor())
}

// Descriptor returns the registry entry for the format.
func Descriptor() codec.Descriptor {
	return codec.Descriptor{
		Name:       formatName,
		Extensions: []string{".ras"},
		MIMEType:   "image/x-sun-raster",
		Sniff: func(p []byte) bool {
			return len(p) >= 4 && binary.BigEndian.Uint32(p) == magic
		},
		NewDecoder: func(opts codec.DecodeOptions) (codec.Decoder, error) {
			return codec.NewDecoder(formatName, &decoder{opts: opts}), nil
		},
		NewEncoder: NewEncoder,
		Caps:       codec.CapIncremental | codec.CapLossless,
	}
}

type header struct {
	width, height int
	depth         int
	rasterType    uint32
	mapType       uint32
	mapLen        int
}

// stride is the file row size; rows are padded to 16 bits.
func (h *header) stride() int {
	n := (h.width*h.depth + 7) / 8
	return n + n&1
}

type state uint8

const (
	stateHeader state = iota
	stateRows
	stateDone
)

type decoder struct {
	opts  codec.DecodeOptions
	state state
	hdr   header
	frame *pixel.Buffer
	unp   *packing.Unpacker
	y     int
	line  []byte
	fill  int
	run   int
	val   byte
}

func (d *decoder) Step(in *codec.Input) (codec.Result, error) {
	for {
		switch d.state {
		case stateHeader:
			ok, err := d.readHeader(in)
			if err != nil {
				return codec.Result{}, err
			}
			if !ok {
				return codec.Starved(in, "sun", "header")
			}
		case stateRows:
			for d.y < d.hdr.height {
				if !d.readLine(in) {
					return codec.StarvedInFrame(in, d.opts, "sun", fmt.Sprintf("row %d", d.y), d.frame, d.meta())
				}
				row := d.frame.Row(d.y)
				d.unp.Unpack(row, d.line, d.hdr.width)
				if err := d.checkIndices(row); err != nil {
					return codec.Result{}, err
				}
				d.y++
			}
			d.state = stateDone
			f := d.frame
			d.frame = nil
			return codec.Result{Status: codec.StatusFrame, Frame: f, Meta: d.meta()}, nil
		default:
			return codec.Result{Status: codec.StatusDone}, nil
		}
	}
}

func (d *decoder) meta() codec.FrameMeta {
	m := codec.NewMeta(formatName)
	m.Compression = "raw"
	if d.hdr.rasterType == typeRLE {
		m.Compression = "rle"
	}
	return m
}

func (d *decoder) readHeader(in *codec.Input) (bool, error) {
	b, ok := in.Peek(headerLen)
	if !ok {
		return false, nil
	}
	be := binary.BigEndian
	if be.Uint32(b) != magic {
		return false, fmt.Errorf("sun: bad magic %#x: %w", be.Uint32(b), pixel.ErrCorrupt)
	}
	for i := 4; i < headerLen; i += 4 {
		if be.Uint32(b[i:]) > 1<<30 {
			return false, fmt.Errorf("sun: header field %d out of range: %w", i/4, pixel.ErrCorrupt)
		}
	}
	h := header{
		width:      int(be.Uint32(b[4:])),
		height:     int(be.Uint32(b[8:])),
		depth:      int(be.Uint32(b[12:])),
		rasterType: be.Uint32(b[20:]),
		mapType:    be.Uint32(b[24:]),
		mapLen:     int(be.Uint32(b[28:])),
	}
	if h.rasterType > typeRGB {
		return false, fmt.Errorf("sun: raster type %d: %w", h.rasterType, pixel.ErrUnsupported)
	}
	if h.mapType > mapRaw {
		return false, fmt.Errorf("sun: color map type %d: %w", h.mapType, pixel.ErrCorrupt)
	}
	if h.mapLen > 3*pixel.MaxPaletteLen {
		return false, fmt.Errorf("sun: color map of %d bytes: %w", h.mapLen, pixel.ErrCorrupt)
	}
	if err := d.opts.CheckSize("sun", h.width, h.height); err != nil {
		return false, err
	}
	if b, ok = in.Peek(headerLen + h.mapLen); !ok {
		return false, nil
	}

	var (
		mode pixel.Mode
		raw  string
		pal  *pixel.Palette
		err  error
	)
	switch h.depth {
	case 1:
		mode, raw = pixel.Mode1, "1;I"
	case 8:
		mode, raw = pixel.ModeL, "L"
		if h.mapType == mapRGB {
			mode, raw = pixel.ModeP, "P"
			if pal, err = readColorMap(b[headerLen:]); err != nil {
				return false, err
			}
		}
	case 24:
		mode, raw = pixel.ModeRGB, "BGR"
		if h.rasterType == typeRGB {
			raw = "RGB"
		}
	case 32:
		mode, raw = pixel.ModeRGB, "BGRX"
		if h.rasterType == typeRGB {
			raw = "RGBX"
		}
	default:
		return false, fmt.Errorf("sun: depth %d: %w", h.depth, pixel.ErrUnsupported)
	}
	if d.unp, err = packing.LookupUnpacker(mode, raw); err != nil {
		return false, err
	}
	frame, err := pixel.Allocate(mode, h.width, h.height)
	if err != nil {
		return false, err
	}
	if pal != nil {
		if err := frame.SetPalette(pal); err != nil {
			return false, err
		}
	}
	in.Skip(headerLen + h.mapLen)
	d.hdr, d.frame = h, frame
	d.line = make([]byte, h.stride())
	d.state = stateRows
	logging.Logger().Debug("sun: header", "width", h.width, "height", h.height,
		"depth", h.depth, "type", h.rasterType, "map", h.mapLen)
	return true, nil
}

// readColorMap reads a map of red, then green, then blue components.
func readColorMap(b []byte) (*pixel.Palette, error) {
	n := len(b) / 3
	if n == 0 || n > pixel.MaxPaletteLen || len(b)%3 != 0 {
		return nil, fmt.Errorf("sun: color map of %d bytes: %w", len(b), pixel.ErrCorrupt)
	}
	cs := make([]pixel.Color, n)
	for i := range cs {
		cs[i] = pixel.Color{R: b[i], G: b[n+i], B: b[2*n+i], A: 255}
	}
	return pixel.NewPalette(cs)
}

// readLine fills d.line with the next padded file row.
func (d *decoder) readLine(in *codec.Input) bool {
	if d.hdr.rasterType != typeRLE {
		b, ok := in.Next(len(d.line))
		if ok {
			copy(d.line, b)
		}
		return ok
	}
	for d.fill < len(d.line) {
		if d.run > 0 {
			n := min(d.run, len(d.line)-d.fill)
			for i := range n {
				d.line[d.fill+i] = d.val
			}
			d.fill += n
			d.run -= n
			continue
		}
		b, ok := in.Peek(1)
		if !ok {
			return false
		}
		if b[0] != rleEscape {
			in.Skip(1)
			d.line[d.fill] = b[0]
			d.fill++
			continue
		}
		if b, ok = in.Peek(2); !ok {
			return false
		}
		if b[1] == 0 {
			in.Skip(2)
			d.run, d.val = 1, rleEscape
			continue
		}
		if b, ok = in.Next(3); !ok {
			return false
		}
		d.run, d.val = int(b[1])+1, b[2]
	}
	d.fill = 0
	return true
}

// checkIndices rejects palette indices past the end of the color map.
func (d *decoder) checkIndices(row []byte) error {
	pal := d.frame.Palette()
	if pal == nil || pal.Len() == pixel.MaxPaletteLen {
		return nil
	}
	for x, v := range row[:d.hdr.width] {
		if int(v) >= pal.Len() {
			return fmt.Errorf("sun: index %d at (%d,%d) beyond %d colors: %w", v, x, d.y, pal.Len(), pixel.ErrCorrupt)
		}
	}
	return nil
}

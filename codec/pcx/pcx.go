// Package pcx implements the ZSoft PCX format.
//
// Supported layouts are 1-bit bitmaps, 2- and 4-bit images with the header
// palette (packed, or four 1-bit planes), 8-bit palette images whose palette
// trails the pixel data, and 24-bit images stored as three 8-bit planes.
package pcx

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/imaging/codec"
	"github.com/gogpu/imaging/codec/packing"
	"github.com/gogpu/imaging/internal/logging"
	"github.com/gogpu/imaging/pixel"
)

const (
	formatName = "PCX"
	headerLen  = 128
	// vgaPaletteLen is the marker byte plus 256 RGB entries.
	vgaPaletteLen = 1 + 3*256
	vgaMarker     = 0x0c
)

func init() {
	codec.Register(Descriptor())
}

// Descriptor returns the registry entry for the format.
func Descriptor() codec.Descriptor {
	return codec.Descriptor{
		Name:       formatName,
		Extensions: []string{".pcx"},
		MIMEType:   "image/x-pcx",
		Sniff:      sniff,
		NewDecoder: func(opts codec.DecodeOptions) (codec.Decoder, error) {
			return codec.NewDecoder(formatName, &decoder{opts: opts}), nil
		},
		NewEncoder: NewEncoder,
		Caps:       codec.CapIncremental | codec.CapLossless,
	}
}

func sniff(p []byte) bool {
	return len(p) >= 4 && p[0] == 0x0a && p[1] <= 5 && p[2] <= 1 &&
		(p[3] == 1 || p[3] == 2 || p[3] == 4 || p[3] == 8)
}

type header struct {
	rle          bool
	bits         int
	planes       int
	width        int
	height       int
	bytesPerLine int
	colormap     []byte
}

func parseHeader(b []byte) (header, error) {
	if !sniff(b) {
		return header{}, fmt.Errorf("pcx: bad header % x: %w", b[:4], pixel.ErrCorrupt)
	}
	le := binary.LittleEndian
	x0, y0 := int(le.Uint16(b[4:])), int(le.Uint16(b[6:]))
	x1, y1 := int(le.Uint16(b[8:])), int(le.Uint16(b[10:]))
	h := header{
		rle:          b[2] == 1,
		bits:         int(b[3]),
		planes:       int(b[65]),
		width:        x1 - x0 + 1,
		height:       y1 - y0 + 1,
		bytesPerLine: int(le.Uint16(b[66:])),
		colormap:     b[16:64],
	}
	if h.width <= 0 || h.height <= 0 {
		return h, fmt.Errorf("pcx: window %d,%d-%d,%d: %w", x0, y0, x1, y1, pixel.ErrCorrupt)
	}
	if h.bytesPerLine*8 < h.width*h.bits {
		return h, fmt.Errorf("pcx: %d bytes per line for width %d: %w", h.bytesPerLine, h.width, pixel.ErrCorrupt)
	}
	return h, nil
}

type state uint8

const (
	stateHeader state = iota
	stateRows
	stateTrailer
	stateDone
)

type decoder struct {
	opts  codec.DecodeOptions
	state state
	hdr   header
	frame *pixel.Buffer
	unp   *packing.Unpacker
	y     int
	// line holds one decoded scan line of every plane.
	line []byte
	fill int
	run  int
	val  byte
}

func (d *decoder) Step(in *codec.Input) (codec.Result, error) {
	for {
		switch d.state {
		case stateHeader:
			b, ok := in.Next(headerLen)
			if !ok {
				return codec.Starved(in, "pcx", "header")
			}
			if err := d.readHeader(b); err != nil {
				return codec.Result{}, err
			}
		case stateRows:
			for d.y < d.hdr.height {
				if !d.readLine(in) {
					return codec.StarvedInFrame(in, d.opts, "pcx", fmt.Sprintf("row %d", d.y), d.frame, d.meta())
				}
				d.storeLine()
			}
			d.state = stateDone
			if d.frame.Mode() == pixel.ModeP && d.hdr.bits == 8 {
				d.state = stateTrailer
				continue
			}
			return d.emit()
		case stateTrailer:
			if !in.EOF() {
				// Only the last bytes of the stream can be the palette.
				if n := in.Buffered() - vgaPaletteLen; n > 0 {
					in.Discard(int64(n))
				}
				return codec.Result{Status: codec.StatusNeedMoreInput}, nil
			}
			if err := d.readTrailer(in.Bytes()); err != nil {
				return codec.Result{}, err
			}
			in.Discard(int64(in.Buffered()))
			d.state = stateDone
			return d.emit()
		default:
			return codec.Result{Status: codec.StatusDone}, nil
		}
	}
}

func (d *decoder) emit() (codec.Result, error) {
	f := d.frame
	d.frame = nil
	return codec.Result{Status: codec.StatusFrame, Frame: f, Meta: d.meta()}, nil
}

func (d *decoder) meta() codec.FrameMeta {
	m := codec.NewMeta(formatName)
	m.Compression = "raw"
	if d.hdr.rle {
		m.Compression = "rle"
	}
	return m
}

func (d *decoder) readHeader(b []byte) error {
	h, err := parseHeader(b)
	if err != nil {
		return err
	}
	var (
		mode pixel.Mode
		raw  string
		pal  *pixel.Palette
	)
	switch {
	case h.bits == 1 && h.planes == 1:
		mode, raw = pixel.Mode1, "1"
	case (h.bits == 2 || h.bits == 4) && h.planes == 1:
		mode, raw = pixel.ModeP, fmt.Sprintf("P;%d", h.bits)
		pal, err = pixel.NewPaletteRGB(h.colormap[:3<<h.bits])
	case h.bits == 1 && h.planes == 4:
		mode = pixel.ModeP
		pal, err = pixel.NewPaletteRGB(h.colormap)
	case h.bits == 8 && h.planes == 1:
		// The palette, if any, follows the pixel data.
		mode, raw = pixel.ModeP, "P"
	case h.bits == 8 && h.planes == 3:
		mode = pixel.ModeRGB
	default:
		return fmt.Errorf("pcx: %d bits in %d planes: %w", h.bits, h.planes, pixel.ErrUnsupported)
	}
	if err != nil {
		return err
	}
	if err := d.opts.CheckSize("pcx", h.width, h.height); err != nil {
		return err
	}
	if raw != "" {
		if d.unp, err = packing.LookupUnpacker(mode, raw); err != nil {
			return err
		}
	}
	frame, err := pixel.Allocate(mode, h.width, h.height)
	if err != nil {
		return err
	}
	if pal != nil {
		if err := frame.SetPalette(pal); err != nil {
			return err
		}
	}
	d.hdr, d.frame = h, frame
	d.line = make([]byte, h.bytesPerLine*h.planes)
	d.state = stateRows
	logging.Logger().Debug("pcx: header", "bits", h.bits, "planes", h.planes,
		"width", h.width, "height", h.height, "rle", h.rle)
	return nil
}

// readLine fills d.line. Runs may continue into the next line.
func (d *decoder) readLine(in *codec.Input) bool {
	if !d.hdr.rle {
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
		if b[0]&0xc0 != 0xc0 {
			in.Skip(1)
			d.line[d.fill] = b[0]
			d.fill++
			continue
		}
		if b, ok = in.Next(2); !ok {
			return false
		}
		d.run, d.val = int(b[0]&0x3f), b[1]
	}
	d.fill = 0
	return true
}

func (d *decoder) storeLine() {
	h := &d.hdr
	row := d.frame.Row(d.y)
	bpl := h.bytesPerLine
	switch {
	case d.unp != nil:
		d.unp.Unpack(row, d.line, h.width)
	case h.planes == 4:
		for x := range h.width {
			var v byte
			for p := range 4 {
				if pixel.GetBit(d.line[p*bpl:], x) {
					v |= 1 << p
				}
			}
			row[x] = v
		}
	default:
		for x := range h.width {
			row[3*x] = d.line[x]
			row[3*x+1] = d.line[bpl+x]
			row[3*x+2] = d.line[2*bpl+x]
		}
	}
	d.y++
}

// readTrailer applies the VGA palette at the end of b. Without one the
// image is grayscale; a gray ramp palette also yields L.
func (d *decoder) readTrailer(b []byte) error {
	var pal *pixel.Palette
	if n := len(b); n >= vgaPaletteLen && b[n-vgaPaletteLen] == vgaMarker {
		var err error
		if pal, err = pixel.NewPaletteRGB(b[n-vgaPaletteLen+1:]); err != nil {
			return err
		}
	} else {
		logging.Logger().Warn("pcx: no VGA palette, reading as grayscale")
	}
	if pal == nil || pal.Equal(pixel.GrayscalePalette()) {
		gray, err := pixel.FromBytes(pixel.ModeL, d.frame.Width(), d.frame.Height(), d.frame.Data())
		if err != nil {
			return err
		}
		d.frame = gray
		return nil
	}
	return d.frame.SetPalette(pal)
}

// Package bmp implements the Windows and OS/2 bitmap format.
//
// The decoder reads core, INFO, V4 and V5 headers at 1, 4, 8, 16, 24 and
// 32 bits per pixel, uncompressed or with RLE8, RLE4 or bit-field masks.
// Bitmaps whose palette is black and white decode as mode 1 and 8-bit
// bitmaps with a gray ramp palette as L; other palette images decode as P.
package bmp

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/bits"

	"github.com/gogpu/imaging/codec"
	"github.com/gogpu/imaging/codec/packing"
	"github.com/gogpu/imaging/internal/logging"
	"github.com/gogpu/imaging/pixel"
)

const formatName = "BMP"

const fileHeaderLen = 14

// Compression types.
const (
	biRGB            = 0
	biRLE8           = 1
	biRLE4           = 2
	biBitFields      = 3
	biAlphaBitFields = 6
)

func init() {
	codec.Register(Descriptor())
}

// Descriptor returns the registry entry for the format.
func Descriptor() codec.Descriptor {
	return codec.Descriptor{
		Name:       formatName,
		Extensions: []string{".bmp", ".dib"},
		MIMEType:   "image/bmp",
		Sniff: func(p []byte) bool {
			return len(p) >= 2 && p[0] == 'B' && p[1] == 'M'
		},
		NewDecoder: func(opts codec.DecodeOptions) (codec.Decoder, error) {
			return codec.NewDecoder(formatName, &decoder{opts: opts}), nil
		},
		NewEncoder: NewEncoder,
		Caps:       codec.CapIncremental | codec.CapLossless,
	}
}

func le16(b []byte) int    { return int(binary.LittleEndian.Uint16(b)) }
func le32(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }

type header struct {
	width, height int
	topDown       bool
	bpp           int
	compression   uint32
	masks         [4]uint32
	palette       *pixel.Palette
	// offset is the pixel data position from the start of the file; zero
	// means right after the palette.
	offset int64
}

// field extracts one channel of a bit-field pixel, scaled to 8 bits.
type field struct {
	mask  uint32
	shift int
	bits  int
}

func newField(mask uint32) field {
	if mask == 0 {
		return field{}
	}
	shift := bits.TrailingZeros32(mask)
	return field{mask: mask, shift: shift, bits: bits.Len32(mask >> shift)}
}

func (f field) extract(v uint32) byte {
	if f.mask == 0 {
		return 0
	}
	s := (v & f.mask) >> f.shift
	switch {
	case f.bits == 8:
		return byte(s)
	case f.bits > 8:
		return byte(s >> (f.bits - 8))
	}
	maxv := uint32(1)<<f.bits - 1
	return byte((s*255 + maxv/2) / maxv)
}

type state uint8

const (
	stateHeader state = iota
	stateGap
	stateRows
	stateRLE
	stateDone
)

type decoder struct {
	opts  codec.DecodeOptions
	state state
	hdr   header
	frame *pixel.Buffer
	gap   int64
	y     int
	x     int
	// Row decoding for uncompressed data: either an unpacker or masks.
	unp    *packing.Unpacker
	fields []field
	stride int
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
				return codec.Starved(in, "bmp", "header")
			}
		case stateGap:
			d.gap -= in.Discard(d.gap)
			if d.gap > 0 {
				return codec.Starved(in, "bmp", "gap before pixel data")
			}
			d.state = stateRows
			if d.hdr.compression == biRLE8 || d.hdr.compression == biRLE4 {
				d.state = stateRLE
			}
		case stateRows:
			for d.y < d.hdr.height {
				src, ok := in.Next(d.stride)
				if !ok {
					return codec.StarvedInFrame(in, d.opts, "bmp", fmt.Sprintf("row %d", d.y), d.frame, d.meta())
				}
				if err := d.unpackRow(d.frame.Row(d.row(d.y)), src); err != nil {
					return codec.Result{}, err
				}
				d.y++
			}
			return d.finish()
		case stateRLE:
			done, err := d.readRLE(in)
			if err != nil {
				return codec.Result{}, err
			}
			if !done {
				return codec.StarvedInFrame(in, d.opts, "bmp", fmt.Sprintf("RLE row %d", d.y), d.frame, d.meta())
			}
			return d.finish()
		default:
			return codec.Result{Status: codec.StatusDone}, nil
		}
	}
}

func (d *decoder) finish() (codec.Result, error) {
	d.state = stateDone
	f := d.frame
	d.frame = nil
	return codec.Result{Status: codec.StatusFrame, Frame: f, Meta: d.meta()}, nil
}

// row maps a file row to a frame row.
func (d *decoder) row(y int) int {
	if d.hdr.topDown {
		return y
	}
	return d.hdr.height - 1 - y
}

func (d *decoder) meta() codec.FrameMeta {
	m := codec.NewMeta(formatName)
	switch d.hdr.compression {
	case biRLE8:
		m.Compression = "rle8"
	case biRLE4:
		m.Compression = "rle4"
	case biBitFields, biAlphaBitFields:
		m.Compression = "bitfields"
	default:
		m.Compression = "raw"
	}
	return m
}

func (d *decoder) readHeader(in *codec.Input) (bool, error) {
	b, ok := in.Peek(fileHeaderLen + 4)
	if !ok {
		return false, nil
	}
	if b[0] != 'B' || b[1] != 'M' {
		return false, fmt.Errorf("bmp: bad magic %q: %w", b[:2], pixel.ErrCorrupt)
	}
	h := header{offset: int64(le32(b[10:]))}
	size := int(le32(b[14:]))
	switch size {
	case 12, 40, 52, 56, 64, 108, 124:
	default:
		return false, fmt.Errorf("bmp: header size %d: %w", size, pixel.ErrUnsupported)
	}
	if b, ok = in.Peek(fileHeaderLen + size); !ok {
		return false, nil
	}
	ib := b[fileHeaderLen:]
	entry := 4
	if size == 12 {
		h.width, h.height = le16(ib[4:]), le16(ib[6:])
		h.bpp = le16(ib[10:])
		entry = 3
	} else {
		w, ht := int32(le32(ib[4:])), int32(le32(ib[8:]))
		if ht == math.MinInt32 {
			return false, fmt.Errorf("bmp: height %d: %w", ht, pixel.ErrCorrupt)
		}
		if ht < 0 {
			ht, h.topDown = -ht, true
		}
		h.width, h.height = int(w), int(ht)
		h.bpp = le16(ib[14:])
		h.compression = le32(ib[16:])
		if size >= 52 {
			for i := range 3 {
				h.masks[i] = le32(ib[40+4*i:])
			}
		}
		if size >= 56 {
			h.masks[3] = le32(ib[52:])
		}
	}
	if err := h.validate(); err != nil {
		return false, err
	}
	if err := d.opts.CheckSize("bmp", h.width, h.height); err != nil {
		return false, err
	}

	extra := 0
	if size == 40 && h.compression == biBitFields {
		extra = 12
	} else if size == 40 && h.compression == biAlphaBitFields {
		extra = 16
	}
	colors := 0
	if h.bpp <= 8 {
		colors = 1 << h.bpp
		if size > 12 {
			switch used := int(le32(ib[32:])); {
			case used > colors:
				return false, fmt.Errorf("bmp: %d colors at %d bpp: %w", used, h.bpp, pixel.ErrCorrupt)
			case used > 0:
				colors = used
			}
		}
	}
	total := fileHeaderLen + size + extra + colors*entry
	if b, ok = in.Peek(total); !ok {
		return false, nil
	}
	for i := range extra / 4 {
		h.masks[i] = le32(b[fileHeaderLen+size+4*i:])
	}
	if colors > 0 {
		pal := b[fileHeaderLen+size+extra:]
		cs := make([]pixel.Color, colors)
		for i := range cs {
			e := pal[i*entry:]
			cs[i] = pixel.Color{R: e[2], G: e[1], B: e[0], A: 255}
		}
		var err error
		if h.palette, err = pixel.NewPalette(cs); err != nil {
			return false, fmt.Errorf("bmp: palette: %w", pixel.ErrCorrupt)
		}
	}
	if h.offset != 0 && h.offset < int64(total) {
		return false, fmt.Errorf("bmp: pixel data offset %d inside headers: %w", h.offset, pixel.ErrCorrupt)
	}
	if err := d.setup(&h); err != nil {
		return false, err
	}
	in.Skip(total)
	d.hdr = h
	d.gap = max(h.offset-int64(total), 0)
	d.state = stateGap
	logging.Logger().Debug("bmp: header", "size", size, "width", h.width, "height", h.height,
		"bpp", h.bpp, "compression", h.compression, "colors", colors)
	return true, nil
}

func (h *header) validate() error {
	if h.width <= 0 || h.height <= 0 {
		return fmt.Errorf("bmp: size %dx%d: %w", h.width, h.height, pixel.ErrCorrupt)
	}
	switch h.compression {
	case biRGB:
		switch h.bpp {
		case 1, 4, 8, 16, 24, 32:
			return nil
		}
	case biRLE8:
		if h.bpp == 8 && !h.topDown {
			return nil
		}
	case biRLE4:
		if h.bpp == 4 && !h.topDown {
			return nil
		}
	case biBitFields, biAlphaBitFields:
		if h.bpp == 16 || h.bpp == 32 {
			return nil
		}
	default:
		return fmt.Errorf("bmp: compression %d: %w", h.compression, pixel.ErrUnsupported)
	}
	return fmt.Errorf("bmp: compression %d at %d bpp: %w", h.compression, h.bpp, pixel.ErrCorrupt)
}

func isBlackWhite(p *pixel.Palette) bool {
	return p.Len() == 2 && p.At(0) == pixel.Color{A: 255} && p.At(1) == pixel.Color{R: 255, G: 255, B: 255, A: 255}
}

func isGrayRamp(p *pixel.Palette) bool {
	if p.Len() != 256 {
		return false
	}
	for i, c := range p.Colors() {
		if c != (pixel.Color{R: uint8(i), G: uint8(i), B: uint8(i), A: 255}) {
			return false
		}
	}
	return true
}

// setup picks the frame mode and the row decoding for h and allocates the
// frame.
func (d *decoder) setup(h *header) error {
	var (
		mode pixel.Mode
		raw  string
	)
	switch {
	case h.bpp == 1 && isBlackWhite(h.palette):
		mode, raw = pixel.Mode1, "1"
	case h.bpp == 8 && isGrayRamp(h.palette):
		mode, raw = pixel.ModeL, "L"
	case h.bpp <= 8:
		mode, raw = pixel.ModeP, "P"
		if h.bpp < 8 {
			raw = fmt.Sprintf("P;%d", h.bpp)
		}
	case h.compression == biRGB && h.bpp == 16:
		mode, raw = pixel.ModeRGB, "BGR;15"
	case h.bpp == 24:
		mode, raw = pixel.ModeRGB, "BGR"
	case h.compression == biRGB:
		mode, raw = pixel.ModeRGB, "BGRX"
	default:
		if h.masks[0]|h.masks[1]|h.masks[2] == 0 {
			return fmt.Errorf("bmp: empty bit-field masks: %w", pixel.ErrCorrupt)
		}
		mode = pixel.ModeRGB
		n := 3
		if h.masks[3] != 0 {
			mode, n = pixel.ModeRGBA, 4
		}
		d.fields = make([]field, n)
		for i := range d.fields {
			d.fields[i] = newField(h.masks[i])
		}
	}
	if raw != "" {
		var err error
		if d.unp, err = packing.LookupUnpacker(mode, raw); err != nil {
			return err
		}
	}
	frame, err := pixel.Allocate(mode, h.width, h.height)
	if err != nil {
		return err
	}
	if mode == pixel.ModeP {
		if err := frame.SetPalette(h.palette); err != nil {
			return err
		}
	}
	d.frame = frame
	d.stride = (h.width*h.bpp + 31) / 32 * 4
	return nil
}

func (d *decoder) unpackRow(dst, src []byte) error {
	w := d.hdr.width
	if d.unp != nil {
		d.unp.Unpack(dst, src, w)
		if d.frame.Mode() == pixel.ModeP {
			n := d.hdr.palette.Len()
			for x, v := range dst[:w] {
				if int(v) >= n {
					return fmt.Errorf("bmp: index %d at x=%d beyond %d colors: %w", v, x, n, pixel.ErrCorrupt)
				}
			}
		}
		return nil
	}
	n := len(d.fields)
	for x := range w {
		var v uint32
		if d.hdr.bpp == 16 {
			v = uint32(le16(src[2*x:]))
		} else {
			v = le32(src[4*x:])
		}
		for c, f := range d.fields {
			dst[x*n+c] = f.extract(v)
		}
	}
	return nil
}

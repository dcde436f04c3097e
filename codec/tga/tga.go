// Package tga implements the Truevision TGA format: color-mapped, true-color
// and grayscale images, uncompressed or run-length encoded.
//
// TGA has no signature, so detection checks the header fields for
// plausibility and the format is registered below formats that sniff a
// magic number.
package tga

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/imaging/codec"
	"github.com/gogpu/imaging/codec/packing"
	"github.com/gogpu/imaging/internal/logging"
	"github.com/gogpu/imaging/pixel"
)

const (
	formatName = "TGA"
	headerLen  = 18
	// priority ranks the heuristic sniff below magic-number formats.
	priority = -10
)

// Image types.
const (
	typeColorMapped = 1
	typeTrueColor   = 2
	typeGray        = 3
	typeRLE         = 8
)

// Descriptor bits.
const (
	descAlphaBits = 0x0f
	descRight     = 0x10
	descTop       = 0x20
)

func init() {
	codec.Register(Descriptor())
}

// Descriptor returns the registry entry for the format.
func Descriptor() codec.Descriptor {
	return codec.Descriptor{
		Name:       formatName,
		Extensions: []string{".tga", ".icb", ".vda", ".vst"},
		MIMEType:   "image/x-tga",
		Sniff:      sniff,
		Priority:   priority,
		NewDecoder: func(opts codec.DecodeOptions) (codec.Decoder, error) {
			return codec.NewDecoder(formatName, &decoder{opts: opts}), nil
		},
		NewEncoder: NewEncoder,
		Caps:       codec.CapIncremental | codec.CapLossless,
	}
}

type header struct {
	idLen     int
	cmapType  int
	imageType int
	cmapFirst int
	cmapLen   int
	cmapDepth int
	width     int
	height    int
	depth     int
	desc      byte
}

func parseHeader(b []byte) header {
	le := binary.LittleEndian
	return header{
		idLen:     int(b[0]),
		cmapType:  int(b[1]),
		imageType: int(b[2]),
		cmapFirst: int(le.Uint16(b[3:])),
		cmapLen:   int(le.Uint16(b[5:])),
		cmapDepth: int(b[7]),
		width:     int(le.Uint16(b[12:])),
		height:    int(le.Uint16(b[14:])),
		depth:     int(b[16]),
		desc:      b[17],
	}
}

func (h *header) rle() bool       { return h.imageType&typeRLE != 0 }
func (h *header) baseType() int   { return h.imageType &^ typeRLE }
func (h *header) bytesPP() int    { return (h.depth + 7) / 8 }
func (h *header) cmapEntry() int  { return (h.cmapDepth + 7) / 8 }
func (h *header) alphaBits() byte { return h.desc & descAlphaBits }

// validate checks the header for consistency; it is also the sniff test.
func (h *header) validate() error {
	bad := func(what string, v int) error {
		return fmt.Errorf("tga: %s %d: %w", what, v, pixel.ErrCorrupt)
	}
	if h.cmapType > 1 {
		return bad("color map type", h.cmapType)
	}
	switch h.baseType() {
	case typeColorMapped:
		if h.cmapType != 1 || h.depth != 8 {
			return bad("color-mapped depth", h.depth)
		}
	case typeTrueColor:
		if h.depth != 15 && h.depth != 16 && h.depth != 24 && h.depth != 32 {
			return bad("true-color depth", h.depth)
		}
	case typeGray:
		if h.depth != 8 && h.depth != 16 {
			return bad("grayscale depth", h.depth)
		}
	default:
		return bad("image type", h.imageType)
	}
	if h.cmapType == 1 {
		switch h.cmapDepth {
		case 15, 16, 24, 32:
		default:
			return bad("color map depth", h.cmapDepth)
		}
	}
	if h.width == 0 || h.height == 0 {
		return bad("size", h.width*h.height)
	}
	return nil
}

func sniff(p []byte) bool {
	if len(p) < headerLen {
		return false
	}
	h := parseHeader(p)
	return h.validate() == nil
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
	id    string
	y     int
	// line assembles one file row; fill counts its bytes.
	line []byte
	fill int
	// RLE packet state, which carries across rows.
	run   int
	raw   int
	value []byte
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
				return codec.Starved(in, "tga", "header")
			}
		case stateRows:
			for d.y < d.hdr.height {
				ok := d.readLine(in)
				if !ok {
					return codec.StarvedInFrame(in, d.opts, "tga", fmt.Sprintf("row %d", d.y), d.frame, d.meta())
				}
				if err := d.storeLine(); err != nil {
					return codec.Result{}, err
				}
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
	if d.hdr.rle() {
		m.Compression = "rle"
	}
	if d.id != "" {
		m.Text = map[string]string{"id": d.id}
	}
	return m
}

func (d *decoder) readHeader(in *codec.Input) (bool, error) {
	b, ok := in.Peek(headerLen)
	if !ok {
		return false, nil
	}
	h := parseHeader(b)
	if err := h.validate(); err != nil {
		return false, err
	}
	cmapBytes := 0
	if h.cmapType == 1 {
		cmapBytes = h.cmapLen * h.cmapEntry()
	}
	total := headerLen + h.idLen + cmapBytes
	if b, ok = in.Peek(total); !ok {
		return false, nil
	}
	if err := d.opts.CheckSize("tga", h.width, h.height); err != nil {
		return false, err
	}

	var (
		mode pixel.Mode
		raw  string
	)
	switch h.baseType() {
	case typeColorMapped:
		mode, raw = pixel.ModeP, "P"
	case typeGray:
		mode, raw = pixel.ModeL, "L"
		if h.depth == 16 {
			mode, raw = pixel.ModeLA, "LA"
		}
	default:
		switch {
		case h.depth == 24:
			mode, raw = pixel.ModeRGB, "BGR"
		case h.depth == 32:
			mode, raw = pixel.ModeRGBA, "BGRA"
		case h.depth == 16 && h.alphaBits() == 1:
			mode, raw = pixel.ModeRGBA, "BGRA;15"
		default:
			mode, raw = pixel.ModeRGB, "BGR;15"
		}
	}
	unp, err := packing.LookupUnpacker(mode, raw)
	if err != nil {
		return false, err
	}
	frame, err := pixel.Allocate(mode, h.width, h.height)
	if err != nil {
		return false, err
	}
	if mode == pixel.ModeP {
		pal, err := readColorMap(&h, b[headerLen+h.idLen:total])
		if err != nil {
			return false, err
		}
		if err := frame.SetPalette(pal); err != nil {
			return false, err
		}
	}
	d.id = string(b[headerLen : headerLen+h.idLen])
	in.Skip(total)
	d.hdr, d.frame, d.unp = h, frame, unp
	d.line = make([]byte, h.width*h.bytesPP())
	d.value = make([]byte, h.bytesPP())
	d.state = stateRows
	logging.Logger().Debug("tga: header", "type", h.imageType, "width", h.width, "height", h.height,
		"depth", h.depth, "colors", h.cmapLen)
	return true, nil
}

// readColorMap builds the palette. Entries before cmapFirst are black so
// that pixel values index the palette directly.
func readColorMap(h *header, b []byte) (*pixel.Palette, error) {
	n := h.cmapFirst + h.cmapLen
	if h.cmapLen == 0 || n > pixel.MaxPaletteLen {
		return nil, fmt.Errorf("tga: color map %d+%d entries: %w", h.cmapFirst, h.cmapLen, pixel.ErrCorrupt)
	}
	var raw string
	switch h.cmapDepth {
	case 15, 16:
		raw = "BGRA;15"
		if h.cmapDepth == 15 || h.alphaBits() == 0 {
			raw = "BGR;15"
		}
	case 24:
		raw = "BGR"
	default:
		raw = "BGRA"
	}
	mode := pixel.ModeRGBA
	if raw == "BGR" || raw == "BGR;15" {
		mode = pixel.ModeRGB
	}
	unp, err := packing.LookupUnpacker(mode, raw)
	if err != nil {
		return nil, err
	}
	rgb := make([]byte, h.cmapLen*mode.BytesPerPixel())
	unp.Unpack(rgb, b, h.cmapLen)
	cs := make([]pixel.Color, n)
	for i := range n {
		cs[i].A = 255
	}
	bpp := mode.BytesPerPixel()
	for i := range h.cmapLen {
		c := &cs[h.cmapFirst+i]
		e := rgb[i*bpp:]
		c.R, c.G, c.B = e[0], e[1], e[2]
		if bpp == 4 {
			c.A = e[3]
		}
	}
	return pixel.NewPalette(cs)
}

// readLine fills d.line with the next file row. It reports false when the
// input runs out first; the partial row is kept.
func (d *decoder) readLine(in *codec.Input) bool {
	bp := d.hdr.bytesPP()
	if !d.hdr.rle() {
		b, ok := in.Next(len(d.line))
		if !ok {
			return false
		}
		copy(d.line, b)
		return true
	}
	for d.fill < len(d.line) {
		room := (len(d.line) - d.fill) / bp
		switch {
		case d.run > 0:
			n := min(d.run, room)
			for range n {
				d.fill += copy(d.line[d.fill:], d.value)
			}
			d.run -= n
		case d.raw > 0:
			n := min(d.raw, room, in.Buffered()/bp)
			if n == 0 {
				return false
			}
			b, _ := in.Next(n * bp)
			d.fill += copy(d.line[d.fill:], b)
			d.raw -= n
		default:
			b, ok := in.Peek(1)
			if !ok {
				return false
			}
			count := int(b[0]&0x7f) + 1
			if b[0]&0x80 == 0 {
				in.Skip(1)
				d.raw = count
				continue
			}
			if b, ok = in.Next(1 + bp); !ok {
				return false
			}
			copy(d.value, b[1:])
			d.run = count
		}
	}
	d.fill = 0
	return true
}

// storeLine unpacks d.line into its frame row.
func (d *decoder) storeLine() error {
	h := &d.hdr
	y := d.y
	if h.desc&descTop == 0 {
		y = h.height - 1 - y
	}
	row := d.frame.Row(y)
	d.unp.Unpack(row, d.line, h.width)
	if pal := d.frame.Palette(); pal != nil {
		for x, v := range row[:h.width] {
			if int(v) >= pal.Len() {
				return fmt.Errorf("tga: index %d at (%d,%d) beyond %d colors: %w", v, x, y, pal.Len(), pixel.ErrCorrupt)
			}
		}
	}
	if h.desc&descRight != 0 {
		bpp := d.frame.Mode().BytesPerPixel()
		for l, r := 0, h.width-1; l < r; l, r = l+1, r-1 {
			for i := range bpp {
				row[l*bpp+i], row[r*bpp+i] = row[r*bpp+i], row[l*bpp+i]
			}
		}
	}
	d.y++
	return nil
}

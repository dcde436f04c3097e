// Package ppm implements the Netpbm PBM, PGM and PPM formats, both the
// plain (P1-P3) and the raw (P4-P6) variants.
//
// Decoded modes are 1 for bitmaps, L or I;16 for graymaps (by maxval) and
// RGB for pixmaps; samples with a maxval other than 255 (or 65535 for
// I;16) are rescaled. The encoder writes raw variants from 1, L, I;16 and
// RGB buffers.
package ppm

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/imaging/codec"
	"github.com/gogpu/imaging/codec/packing"
	"github.com/gogpu/imaging/internal/logging"
	"github.com/gogpu/imaging/pixel"
)

const formatName = "PPM"

// maxHeader bounds the header, comments included.
const maxHeader = 64 << 10

func init() {
	codec.Register(Descriptor())
}

// Descriptor returns the registry entry for the format.
func Descriptor() codec.Descriptor {
	return codec.Descriptor{
		Name:       formatName,
		Extensions: []string{".pbm", ".pgm", ".ppm", ".pnm"},
		MIMEType:   "image/x-portable-anymap",
		Sniff:      sniff,
		NewDecoder: func(opts codec.DecodeOptions) (codec.Decoder, error) {
			return codec.NewDecoder(formatName, &decoder{opts: opts}), nil
		},
		NewEncoder: NewEncoder,
		Caps:       codec.CapIncremental | codec.CapLossless,
	}
}

func sniff(p []byte) bool {
	return len(p) >= 3 && p[0] == 'P' && p[1] >= '1' && p[1] <= '6' && isSpace(p[2])
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

type header struct {
	kind          byte // '1'..'6'
	width, height int
	maxval        int
}

func (h *header) plain() bool { return h.kind <= '3' }

func (h *header) bands() int {
	if h.kind == '3' || h.kind == '6' {
		return 3
	}
	return 1
}

func (h *header) mode() pixel.Mode {
	switch h.kind {
	case '1', '4':
		return pixel.Mode1
	case '3', '6':
		return pixel.ModeRGB
	}
	if h.maxval > 255 {
		return pixel.ModeI16
	}
	return pixel.ModeL
}

// scanner walks whitespace separated tokens and comments.
type scanner struct {
	b   []byte
	pos int
	eof bool
}

// token returns the next token. ok is false when the buffered bytes end
// before the token is known to be complete.
func (s *scanner) token() (tok []byte, ok bool) {
	for s.pos < len(s.b) {
		c := s.b[s.pos]
		switch {
		case isSpace(c):
			s.pos++
		case c == '#':
			i := s.pos
			for i < len(s.b) && s.b[i] != '\n' && s.b[i] != '\r' {
				i++
			}
			if i == len(s.b) && !s.eof {
				return nil, false
			}
			s.pos = i
		default:
			start := s.pos
			for s.pos < len(s.b) && !isSpace(s.b[s.pos]) && s.b[s.pos] != '#' {
				s.pos++
			}
			if s.pos == len(s.b) && !s.eof {
				s.pos = start
				return nil, false
			}
			return s.b[start:s.pos], true
		}
	}
	return nil, false
}

func (s *scanner) number() (v int, ok bool, err error) {
	tok, ok := s.token()
	if !ok {
		return 0, false, nil
	}
	if len(tok) > 9 {
		return 0, true, fmt.Errorf("ppm: number %q too long: %w", tok, pixel.ErrCorrupt)
	}
	for _, c := range tok {
		if c < '0' || c > '9' {
			return 0, true, fmt.Errorf("ppm: bad number %q: %w", tok, pixel.ErrCorrupt)
		}
		v = v*10 + int(c-'0')
	}
	return v, true, nil
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
	y     int
	unp   *packing.Unpacker
	// Scratch for one row of samples before rescaling.
	samples []int
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
				if in.Buffered() > maxHeader {
					return codec.Result{}, fmt.Errorf("ppm: header longer than %d bytes: %w", maxHeader, pixel.ErrCorrupt)
				}
				return codec.Starved(in, "ppm", "header")
			}
		case stateRows:
			for d.y < d.hdr.height {
				ok, err := d.readRow(in)
				if err != nil {
					return codec.Result{}, err
				}
				if !ok {
					return codec.StarvedInFrame(in, d.opts, "ppm", fmt.Sprintf("row %d", d.y), d.frame, d.meta())
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
	if d.hdr.plain() {
		m.Compression = "plain"
	} else {
		m.Compression = "raw"
	}
	return m
}

func (d *decoder) readHeader(in *codec.Input) (bool, error) {
	b := in.Bytes()
	if len(b) < 2 {
		return false, nil
	}
	if b[0] != 'P' || b[1] < '1' || b[1] > '6' {
		return false, fmt.Errorf("ppm: bad magic %q: %w", b[:2], pixel.ErrCorrupt)
	}
	s := &scanner{b: b, pos: 2, eof: in.EOF()}
	h := header{kind: b[1], maxval: 1}
	fields := []*int{&h.width, &h.height}
	if h.kind != '1' && h.kind != '4' {
		fields = append(fields, &h.maxval)
	}
	for _, f := range fields {
		v, ok, err := s.number()
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		*f = v
	}
	// Exactly one whitespace byte separates the header from raw data.
	if s.pos >= len(b) {
		if !in.EOF() {
			return false, nil
		}
		return false, fmt.Errorf("ppm: missing raster: %w", pixel.ErrTruncated)
	}
	s.pos++
	if h.maxval < 1 || h.maxval > 65535 {
		return false, fmt.Errorf("ppm: maxval %d: %w", h.maxval, pixel.ErrCorrupt)
	}
	if err := d.opts.CheckSize("ppm", h.width, h.height); err != nil {
		return false, err
	}
	frame, err := pixel.Allocate(h.mode(), h.width, h.height)
	if err != nil {
		return false, err
	}
	in.Skip(s.pos)
	d.hdr, d.frame, d.state = h, frame, stateRows
	switch {
	case h.kind == '4':
		d.unp, err = packing.LookupUnpacker(pixel.Mode1, "1;I")
	case h.kind >= '5' && h.maxval == 255:
		d.unp, err = packing.LookupUnpacker(frame.Mode(), frame.Mode().String())
	case h.kind == '5' && h.maxval == 65535:
		d.unp, err = packing.LookupUnpacker(pixel.ModeI16, "I;16B")
	}
	if err != nil {
		return false, err
	}
	d.samples = make([]int, h.width*h.bands())
	logging.Logger().Debug("ppm: header", "kind", "P"+string(h.kind),
		"width", h.width, "height", h.height, "maxval", h.maxval)
	return true, nil
}

// readRow decodes row d.y. It reports false, consuming nothing, when the
// row is not fully buffered.
func (d *decoder) readRow(in *codec.Input) (bool, error) {
	h := &d.hdr
	row := d.frame.Row(d.y)
	if d.unp != nil {
		src, ok := in.Next(d.unp.RowBytes(h.width))
		if !ok {
			return false, nil
		}
		d.unp.Unpack(row, src, h.width)
		return true, nil
	}

	n := len(d.samples)
	if h.plain() {
		ok, err := d.plainSamples(in)
		if err != nil || !ok {
			return ok, err
		}
	} else {
		size := 1
		if h.maxval > 255 {
			size = 2
		}
		src, ok := in.Next(n * size)
		if !ok {
			return false, nil
		}
		for i := range d.samples {
			if size == 2 {
				d.samples[i] = int(binary.BigEndian.Uint16(src[2*i:]))
			} else {
				d.samples[i] = int(src[i])
			}
		}
	}

	switch d.frame.Mode() {
	case pixel.Mode1:
		for x, v := range d.samples {
			pixel.PutBit(row, x, v == 0)
		}
	case pixel.ModeI16:
		for x, v := range d.samples {
			binary.LittleEndian.PutUint16(row[2*x:], uint16(scale(v, h.maxval, 65535)))
		}
	default:
		for i, v := range d.samples {
			row[i] = byte(scale(v, h.maxval, 255))
		}
	}
	return true, nil
}

// plainSamples reads one row of ASCII samples into d.samples. In bitmaps
// each digit is a sample and separators are optional.
func (d *decoder) plainSamples(in *codec.Input) (bool, error) {
	s := &scanner{b: in.Bytes(), eof: in.EOF()}
	for i := range d.samples {
		if d.hdr.kind == '1' {
			for s.pos < len(s.b) && isSpace(s.b[s.pos]) {
				s.pos++
			}
			if s.pos >= len(s.b) {
				return false, nil
			}
			c := s.b[s.pos]
			if c != '0' && c != '1' {
				return false, fmt.Errorf("ppm: bad bit %q: %w", c, pixel.ErrCorrupt)
			}
			d.samples[i] = int(c - '0')
			s.pos++
			continue
		}
		v, ok, err := s.number()
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		if v > d.hdr.maxval {
			return false, fmt.Errorf("ppm: sample %d above maxval %d: %w", v, d.hdr.maxval, pixel.ErrCorrupt)
		}
		d.samples[i] = v
	}
	in.Skip(s.pos)
	return true, nil
}

// scale maps v in [0,from] onto [0,to], rounding to nearest.
func scale(v, from, to int) int {
	if from == to {
		return v
	}
	v = min(v, from)
	return (v*to + from/2) / from
}

// Package png implements the PNG format.
//
// Every color type and bit depth decodes. Sixteen bit samples are reduced
// to eight bits except in grayscale images, which decode to I;16. A tRNS
// chunk adds an alpha band to gray and truecolor images and alpha to the
// palette of indexed ones. Text chunks (tEXt, zTXt and iTXt) are returned in
// FrameMeta.Text; tEXt and zTXt are decoded from Latin-1.
//
// The decoder resumes at chunk granularity. Compressed image data is held
// until IEND and then inflated row by row.
package png

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/gogpu/imaging/codec"
	"github.com/gogpu/imaging/internal/logging"
	"github.com/gogpu/imaging/pixel"
)

const (
	formatName     = "PNG"
	signature      = "\x89PNG\r\n\x1a\n"
	chunkHeaderLen = 8
	ihdrLen        = 13

	// maxChunk bounds every chunk other than IDAT, which is streamed.
	maxChunk = 16 << 20
)

// Color types.
const (
	ctGray      = 0
	ctRGB       = 2
	ctPalette   = 3
	ctGrayAlpha = 4
	ctRGBA      = 6
)

// Ancillary chunks skipped without a warning.
var ignored = map[string]bool{
	"bKGD": true, "cHRM": true, "gAMA": true, "hIST": true, "iCCP": true,
	"pHYs": true, "sBIT": true, "sPLT": true, "sRGB": true, "tIME": true,
	"eXIf": true, "acTL": true, "fcTL": true, "fdAT": true,
}

func init() {
	codec.Register(Descriptor())
}

// Descriptor returns the registry entry for the format.
func Descriptor() codec.Descriptor {
	return codec.Descriptor{
		Name:       formatName,
		Extensions: []string{".png"},
		MIMEType:   "image/png",
		Sniff: func(p []byte) bool {
			return len(p) >= len(signature) && string(p[:len(signature)]) == signature
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
	colorType     int
	interlaced    bool
}

// channels returns the samples per pixel.
func (h *header) channels() int {
	switch h.colorType {
	case ctRGB:
		return 3
	case ctGrayAlpha:
		return 2
	case ctRGBA:
		return 4
	}
	return 1
}

// lineBytes returns the bytes of a filtered line of width pixels, without
// the filter type byte.
func (h *header) lineBytes(width int) int {
	return (width*h.channels()*h.depth + 7) / 8
}

func (h *header) validate() error {
	var ok bool
	switch h.colorType {
	case ctGray:
		ok = h.depth == 1 || h.depth == 2 || h.depth == 4 || h.depth == 8 || h.depth == 16
	case ctPalette:
		ok = h.depth == 1 || h.depth == 2 || h.depth == 4 || h.depth == 8
	case ctRGB, ctGrayAlpha, ctRGBA:
		ok = h.depth == 8 || h.depth == 16
	}
	if !ok {
		return fmt.Errorf("png: color type %d at bit depth %d: %w", h.colorType, h.depth, pixel.ErrCorrupt)
	}
	return nil
}

type state uint8

const (
	stateSignature state = iota
	stateChunkHeader
	stateChunkData
	stateCRC
	stateDone
)

type decoder struct {
	opts  codec.DecodeOptions
	state state

	ctype string
	left  int
	crc   uint32
	keep  bool
	body  []byte

	hdr    header
	chunks int
	pal    *pixel.Palette
	trns   []byte
	text   map[string]string
	zdata  []byte
	frame  *pixel.Buffer
	rows   rowDecoder
}

func (d *decoder) Step(in *codec.Input) (codec.Result, error) {
	for {
		switch d.state {
		case stateSignature:
			b, ok := in.Next(len(signature))
			if !ok {
				return codec.Starved(in, "png", "signature")
			}
			if string(b) != signature {
				return codec.Result{}, fmt.Errorf("png: bad signature: %w", pixel.ErrCorrupt)
			}
			d.state = stateChunkHeader
		case stateChunkHeader:
			b, ok := in.Next(chunkHeaderLen)
			if !ok {
				return d.starved(in, "chunk header")
			}
			if err := d.beginChunk(b); err != nil {
				return codec.Result{}, err
			}
			d.state = stateChunkData
		case stateChunkData:
			for d.left > 0 {
				n := min(d.left, in.Buffered())
				if n == 0 {
					return d.starved(in, d.ctype+" chunk")
				}
				p, _ := in.Next(n)
				d.crc = crc32.Update(d.crc, crc32.IEEETable, p)
				switch {
				case d.ctype == "IDAT":
					d.zdata = append(d.zdata, p...)
				case d.keep:
					d.body = append(d.body, p...)
				}
				d.left -= n
			}
			d.state = stateCRC
		case stateCRC:
			b, ok := in.Next(4)
			if !ok {
				return d.starved(in, d.ctype+" checksum")
			}
			if got := binary.BigEndian.Uint32(b); got != d.crc {
				return codec.Result{}, fmt.Errorf("png: %s checksum %#08x, computed %#08x: %w", d.ctype, got, d.crc, pixel.ErrCorrupt)
			}
			d.state = stateChunkHeader
			end, err := d.endChunk()
			if err != nil {
				return codec.Result{}, err
			}
			if end {
				if err := d.rows.decode(d.zdata, false); err != nil {
					return codec.Result{}, err
				}
				d.state = stateDone
				f := d.frame
				d.frame = nil
				return codec.Result{Status: codec.StatusFrame, Frame: f, Meta: d.meta()}, nil
			}
		default:
			return codec.Result{Status: codec.StatusDone}, nil
		}
	}
}

// starved handles a stream that stops inside a chunk. Once image data has
// started, AllowPartial inflates what has arrived.
func (d *decoder) starved(in *codec.Input, what string) (codec.Result, error) {
	if !in.EOF() || !d.opts.AllowPartial || d.frame == nil || len(d.zdata) == 0 {
		return codec.Starved(in, "png", what)
	}
	if err := d.rows.decode(d.zdata, true); err != nil {
		return codec.Result{}, err
	}
	return codec.StarvedInFrame(in, d.opts, "png", what, d.frame, d.meta())
}

func (d *decoder) meta() codec.FrameMeta {
	m := codec.NewMeta(formatName)
	m.Interlaced = d.hdr.interlaced
	m.Compression = "deflate"
	if len(d.text) > 0 {
		m.Text = d.text
	}
	return m
}

func isLetter(c byte) bool {
	return c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z'
}

func (d *decoder) beginChunk(b []byte) error {
	n := binary.BigEndian.Uint32(b)
	typ := b[4:8]
	for _, c := range typ {
		if !isLetter(c) {
			return fmt.Errorf("png: bad chunk type %q: %w", typ, pixel.ErrCorrupt)
		}
	}
	d.ctype = string(typ)
	if n > 1<<31-1 {
		return fmt.Errorf("png: %s chunk of %d bytes: %w", d.ctype, n, pixel.ErrCorrupt)
	}
	if d.chunks == 0 && d.ctype != "IHDR" {
		return fmt.Errorf("png: first chunk is %s: %w", d.ctype, pixel.ErrCorrupt)
	}
	d.chunks++
	d.left = int(n)
	d.crc = crc32.Update(0, crc32.IEEETable, typ)
	d.body = d.body[:0]

	switch d.ctype {
	case "IHDR", "PLTE", "tRNS", "tEXt", "zTXt", "iTXt", "IEND":
		d.keep = true
	case "IDAT":
		d.keep = false
		if d.frame == nil {
			if err := d.setup(); err != nil {
				return err
			}
		}
	default:
		d.keep = false
		if typ[0]&0x20 == 0 {
			return fmt.Errorf("png: unknown critical chunk %s: %w", d.ctype, pixel.ErrUnsupported)
		}
		if ignored[d.ctype] {
			logging.Logger().Debug("png: skipping chunk", "type", d.ctype, "len", n)
		} else {
			logging.Logger().Warn("png: skipping unknown chunk", "type", d.ctype, "len", n)
		}
	}
	if d.keep && d.left > maxChunk {
		return fmt.Errorf("png: %s chunk of %d bytes: %w", d.ctype, n, pixel.ErrResourceExhausted)
	}
	return nil
}

// endChunk interprets a verified chunk. It reports true at IEND.
func (d *decoder) endChunk() (bool, error) {
	b := d.body
	switch d.ctype {
	case "IHDR":
		return false, d.readIHDR(b)
	case "PLTE":
		if d.frame != nil {
			return false, fmt.Errorf("png: PLTE after IDAT: %w", pixel.ErrCorrupt)
		}
		if len(b)%3 != 0 || len(b) == 0 || len(b) > 3*pixel.MaxPaletteLen {
			return false, fmt.Errorf("png: PLTE of %d bytes: %w", len(b), pixel.ErrCorrupt)
		}
		pal, err := pixel.NewPaletteRGB(b)
		if err != nil {
			return false, err
		}
		d.pal = pal
	case "tRNS":
		if d.frame != nil {
			logging.Logger().Warn("png: ignoring tRNS after IDAT")
			return false, nil
		}
		d.trns = append([]byte(nil), b...)
	case "tEXt", "zTXt", "iTXt":
		k, v, err := readText(d.ctype, b)
		if err != nil {
			logging.Logger().Warn("png: ignoring text chunk", "type", d.ctype, "err", err)
			return false, nil
		}
		if d.text == nil {
			d.text = map[string]string{}
		}
		d.text[k] = v
	case "IEND":
		if d.frame == nil {
			return false, fmt.Errorf("png: no image data: %w", pixel.ErrCorrupt)
		}
		return true, nil
	}
	return false, nil
}

func (d *decoder) readIHDR(b []byte) error {
	if d.chunks != 1 {
		return fmt.Errorf("png: duplicate IHDR: %w", pixel.ErrCorrupt)
	}
	if len(b) != ihdrLen {
		return fmt.Errorf("png: IHDR of %d bytes: %w", len(b), pixel.ErrCorrupt)
	}
	be := binary.BigEndian
	w, h := be.Uint32(b), be.Uint32(b[4:])
	if w > 1<<31-1 || h > 1<<31-1 {
		return fmt.Errorf("png: dimensions %dx%d: %w", w, h, pixel.ErrCorrupt)
	}
	d.hdr = header{
		width:      int(w),
		height:     int(h),
		depth:      int(b[8]),
		colorType:  int(b[9]),
		interlaced: b[12] == 1,
	}
	if b[10] != 0 || b[11] != 0 || b[12] > 1 {
		return fmt.Errorf("png: compression %d, filter %d, interlace %d: %w", b[10], b[11], b[12], pixel.ErrCorrupt)
	}
	if err := d.hdr.validate(); err != nil {
		return err
	}
	if err := d.opts.CheckSize("png", d.hdr.width, d.hdr.height); err != nil {
		return err
	}
	logging.Logger().Debug("png: header", "width", w, "height", h, "depth", d.hdr.depth,
		"colorType", d.hdr.colorType, "interlaced", d.hdr.interlaced)
	return nil
}

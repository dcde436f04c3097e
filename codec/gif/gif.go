// Package gif implements the GIF 87a and 89a formats.
//
// Every image in a stream is a frame. The frame buffer covers the image
// descriptor region only; FrameMeta places it on the logical screen and
// carries the delay, disposal method, transparent index and loop count.
// Frames are not composited. Frames decode to P, except that a black and
// white or a 256 level gray palette without transparency yields mode 1 or L.
package gif

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/text/encoding/charmap"

	"github.com/gogpu/imaging/codec"
	"github.com/gogpu/imaging/internal/logging"
	"github.com/gogpu/imaging/pixel"
)

const (
	formatName = "GIF"
	headerLen  = 13
	descLen    = 9

	sepExtension = 0x21
	sepImage     = 0x2c
	sepTrailer   = 0x3b

	extGraphicControl = 0xf9
	extComment        = 0xfe
	extApplication    = 0xff

	flagColorTable  = 0x80
	flagInterlace   = 0x40
	flagTransparent = 0x01

	// maxExtension bounds the extension bytes kept; the rest is skipped.
	maxExtension = 64 << 10
)

func init() {
	codec.Register(Descriptor())
}

// Descriptor returns the registry entry for the format.
func Descriptor() codec.Descriptor {
	return codec.Descriptor{
		Name:       formatName,
		Extensions: []string{".gif"},
		MIMEType:   "image/gif",
		Sniff:      sniff,
		NewDecoder: func(opts codec.DecodeOptions) (codec.Decoder, error) {
			return codec.NewDecoder(formatName, &decoder{opts: opts, loop: -1, transparent: -1}), nil
		},
		NewEncoder: NewEncoder,
		Caps:       codec.CapMultiFrame | codec.CapIncremental | codec.CapLossless,
	}
}

func sniff(p []byte) bool {
	return len(p) >= 6 && (string(p[:6]) == "GIF87a" || string(p[:6]) == "GIF89a")
}

type state uint8

const (
	stateHeader state = iota
	stateGlobalTable
	stateBlock
	stateExtension
	stateImage
	stateLocalTable
	stateLitWidth
	stateData
	stateDone
)

// Row order of the four interlace passes.
var passes = [4]struct{ start, step int }{{0, 8}, {4, 8}, {2, 4}, {1, 2}}

type decoder struct {
	opts   codec.DecodeOptions
	state  state
	width  int
	height int
	global *pixel.Palette
	loop   int
	frames int
	// Comments seen so far, decoded from Latin-1.
	comment string

	// Graphic control for the next image.
	delay       int
	disposal    int
	transparent int

	ext     byte
	extData []byte
	extHead int // length of the first sub-block

	left, top  int
	interlaced bool
	tableLen   int
	frame      *pixel.Buffer
	pal        *pixel.Palette
	z          *lzwReader
	block      int
	x, y, pass int
	written    int
	partial    bool
	err        error
}

func (d *decoder) Step(in *codec.Input) (codec.Result, error) {
	for {
		switch d.state {
		case stateHeader:
			b, ok := in.Next(headerLen)
			if !ok {
				return codec.Starved(in, "gif", "header")
			}
			if !sniff(b) {
				return codec.Result{}, fmt.Errorf("gif: bad signature %q: %w", b[:6], pixel.ErrCorrupt)
			}
			d.width = int(binary.LittleEndian.Uint16(b[6:]))
			d.height = int(binary.LittleEndian.Uint16(b[8:]))
			d.state = stateBlock
			if b[10]&flagColorTable != 0 {
				d.tableLen = 2 << (b[10] & 7)
				d.state = stateGlobalTable
			}
			logging.Logger().Debug("gif: header", "version", string(b[3:6]),
				"width", d.width, "height", d.height, "globalTable", d.tableLen)
		case stateGlobalTable:
			b, ok := in.Next(3 * d.tableLen)
			if !ok {
				return codec.Starved(in, "gif", "global color table")
			}
			pal, err := pixel.NewPaletteRGB(b)
			if err != nil {
				return codec.Result{}, err
			}
			d.global = pal
			d.state = stateBlock
		case stateBlock:
			b, ok := in.Peek(1)
			if !ok {
				if in.EOF() && d.frames > 0 {
					logging.Logger().Warn("gif: stream ends without trailer", "frames", d.frames)
					d.state = stateDone
					continue
				}
				return codec.Starved(in, "gif", "block")
			}
			switch b[0] {
			case sepTrailer:
				in.Skip(1)
				d.state = stateDone
			case sepImage:
				in.Skip(1)
				d.state = stateImage
			case sepExtension:
				if b, ok = in.Next(2); !ok {
					return codec.Starved(in, "gif", "extension label")
				}
				d.ext, d.extData, d.extHead = b[1], d.extData[:0], -1
				d.state = stateExtension
			default:
				return codec.Result{}, fmt.Errorf("gif: unknown block %#x at offset %d: %w", b[0], in.Offset(), pixel.ErrCorrupt)
			}
		case stateExtension:
			done, err := d.readExtension(in)
			if err != nil {
				return codec.Result{}, err
			}
			if !done {
				return codec.Starved(in, "gif", "extension")
			}
			d.state = stateBlock
		case stateImage:
			b, ok := in.Next(descLen)
			if !ok {
				return codec.Starved(in, "gif", "image descriptor")
			}
			le := binary.LittleEndian
			d.left, d.top = int(le.Uint16(b)), int(le.Uint16(b[2:]))
			w, h := int(le.Uint16(b[4:])), int(le.Uint16(b[6:]))
			if err := d.opts.CheckSize("gif", w, h); err != nil {
				return codec.Result{}, err
			}
			frame, err := pixel.Allocate(pixel.ModeP, w, h)
			if err != nil {
				return codec.Result{}, err
			}
			d.frame = frame
			d.interlaced = b[8]&flagInterlace != 0
			d.x, d.y, d.pass, d.written = 0, 0, 0, 0
			d.partial = false
			d.state = stateLitWidth
			if b[8]&flagColorTable != 0 {
				d.tableLen = 2 << (b[8] & 7)
				d.state = stateLocalTable
				continue
			}
			pal := d.global
			if pal == nil {
				logging.Logger().Warn("gif: image without color table, using gray", "frame", d.frames)
				pal = pixel.GrayscalePalette()
			}
			if err := d.setPalette(pal); err != nil {
				return codec.Result{}, err
			}
		case stateLocalTable:
			b, ok := in.Next(3 * d.tableLen)
			if !ok {
				return codec.Starved(in, "gif", "local color table")
			}
			pal, err := pixel.NewPaletteRGB(b)
			if err != nil {
				return codec.Result{}, err
			}
			if err := d.setPalette(pal); err != nil {
				return codec.Result{}, err
			}
			d.state = stateLitWidth
		case stateLitWidth:
			b, ok := in.Next(1)
			if !ok {
				return codec.Starved(in, "gif", "code size")
			}
			if b[0] < 2 || b[0] > 8 {
				return codec.Result{}, fmt.Errorf("gif: lzw code size %d: %w", b[0], pixel.ErrCorrupt)
			}
			d.z = newLZWReader(uint(b[0]))
			d.block = 0
			d.state = stateData
		case stateData:
			ok, err := d.readData(in)
			if err != nil {
				return codec.Result{}, err
			}
			if !ok {
				return codec.StarvedInFrame(in, d.opts, "gif", fmt.Sprintf("frame %d data", d.frames), d.frame, d.meta())
			}
			return d.finishFrame(), nil
		default:
			return codec.Result{Status: codec.StatusDone}, nil
		}
	}
}

// setPalette attaches pal to the current frame, applying the pending
// transparent index.
func (d *decoder) setPalette(pal *pixel.Palette) error {
	if d.transparent >= pal.Len() {
		d.transparent = -1
	}
	if d.transparent >= 0 {
		var err error
		if pal, err = pal.WithAlpha(d.transparent, 0); err != nil {
			return err
		}
	}
	d.pal = pal
	return d.frame.SetPalette(pal)
}

// readExtension consumes the sub-blocks of an extension and interprets it
// once the terminator is read.
func (d *decoder) readExtension(in *codec.Input) (bool, error) {
	for {
		b, ok := in.Peek(1)
		if !ok {
			return false, nil
		}
		n := int(b[0])
		if n == 0 {
			in.Skip(1)
			d.applyExtension()
			return true, nil
		}
		if b, ok = in.Next(1 + n); !ok {
			return false, nil
		}
		if d.extHead < 0 {
			d.extHead = n
		}
		if len(d.extData)+n <= maxExtension {
			d.extData = append(d.extData, b[1:]...)
		}
	}
}

func (d *decoder) applyExtension() {
	b := d.extData
	switch d.ext {
	case extGraphicControl:
		if len(b) < 4 {
			logging.Logger().Warn("gif: short graphic control extension", "len", len(b))
			return
		}
		d.disposal = int(b[0]>>2) & 7
		d.delay = int(binary.LittleEndian.Uint16(b[1:]))
		d.transparent = -1
		if b[0]&flagTransparent != 0 {
			d.transparent = int(b[3])
		}
	case extComment:
		s, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
		if err != nil {
			logging.Logger().Warn("gif: undecodable comment", "err", err)
			return
		}
		if d.comment != "" {
			d.comment += "\n"
		}
		d.comment += string(s)
	case extApplication:
		if d.extHead == 11 && len(b) >= 14 && b[11] == 1 {
			switch string(b[:11]) {
			case "NETSCAPE2.0", "ANIMEXTS1.0":
				d.loop = int(binary.LittleEndian.Uint16(b[12:]))
			}
		}
	}
}

// readData decodes image data sub-blocks up to the block terminator.
func (d *decoder) readData(in *codec.Input) (bool, error) {
	total := d.frame.Width() * d.frame.Height()
	for {
		if d.block == 0 {
			b, ok := in.Next(1)
			if !ok {
				return false, nil
			}
			if b[0] == 0 {
				if d.written < total {
					if !d.opts.AllowPartial {
						return false, fmt.Errorf("gif: frame %d data ends after %d of %d pixels: %w",
							d.frames, d.written, total, pixel.ErrCorrupt)
					}
					logging.Logger().Warn("gif: image data ends early", "frame", d.frames,
						"pixels", d.written, "want", total)
					d.partial = true
				}
				return true, nil
			}
			d.block = int(b[0])
		}
		n := min(d.block, in.Buffered())
		if n == 0 {
			return false, nil
		}
		p, _ := in.Next(n)
		d.block -= n
		if d.written == total {
			continue
		}
		if err := d.z.feed(p, d.emit); err != nil {
			return false, err
		}
		if d.err != nil {
			return false, d.err
		}
	}
}

// emit stores decoded indices in row order, following the interlace passes.
func (d *decoder) emit(s []byte) {
	w, h := d.frame.Width(), d.frame.Height()
	for len(s) > 0 && d.written < w*h {
		row := d.frame.Row(d.y)
		n := copy(row[d.x:], s)
		for _, v := range row[d.x : d.x+n] {
			if int(v) >= d.pal.Len() && d.err == nil {
				d.err = fmt.Errorf("gif: index %d in row %d beyond %d colors: %w", v, d.y, d.pal.Len(), pixel.ErrCorrupt)
			}
		}
		s = s[n:]
		d.x += n
		d.written += n
		if d.x == w {
			d.x = 0
			d.nextRow()
		}
	}
}

func (d *decoder) nextRow() {
	if !d.interlaced {
		d.y++
		return
	}
	h := d.frame.Height()
	d.y += passes[d.pass].step
	for d.y >= h && d.pass < len(passes)-1 {
		d.pass++
		d.y = passes[d.pass].start
	}
	if d.y >= h {
		d.y = h - 1
	}
}

func (d *decoder) meta() codec.FrameMeta {
	m := codec.NewMeta(formatName)
	m.Index = d.frames
	m.Offset = pixel.Pt(d.left, d.top)
	m.CanvasWidth, m.CanvasHeight = d.width, d.height
	m.DelayMS = d.delay * 10
	m.Disposal = d.disposal
	m.Transparent = d.transparent
	m.Loop = d.loop
	m.Interlaced = d.interlaced
	m.Compression = "lzw"
	if d.comment != "" {
		m.Text = map[string]string{"comment": d.comment}
	}
	return m
}

func (d *decoder) finishFrame() codec.Result {
	meta := d.meta()
	f := simplify(d.frame, d.transparent)
	logging.Logger().Debug("gif: frame", "index", d.frames, "mode", f.Mode(),
		"width", f.Width(), "height", f.Height(), "offset", meta.Offset)
	d.frames++
	d.frame, d.pal, d.z = nil, nil, nil
	d.delay, d.disposal, d.transparent = 0, 0, -1
	d.state = stateBlock
	return codec.Result{Status: codec.StatusFrame, Frame: f, Meta: meta, Partial: d.partial}
}

// simplify returns an opaque frame with a black and white or gray ramp
// palette as mode 1 or L.
func simplify(f *pixel.Buffer, transparent int) *pixel.Buffer {
	if transparent >= 0 {
		return f
	}
	pal := f.Palette()
	switch {
	case pal.Equal(pixel.GrayscalePalette()):
		if out, err := pixel.FromBytes(pixel.ModeL, f.Width(), f.Height(), f.Data()); err == nil {
			return out
		}
	case pal.Equal(blackWhite):
		out, err := pixel.Allocate(pixel.Mode1, f.Width(), f.Height())
		if err != nil {
			return f
		}
		for y := range f.Height() {
			dst := out.Row(y)
			for x, v := range f.Row(y) {
				pixel.PutBit(dst, x, v != 0)
			}
		}
		return out
	}
	return f
}

var blackWhite, _ = pixel.NewPalette([]pixel.Color{{A: 255}, {R: 255, G: 255, B: 255, A: 255}})

package png

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/gogpu/imaging/codec/packing"
	"github.com/gogpu/imaging/internal/logging"
	"github.com/gogpu/imaging/pixel"
)

type pass struct{ x, y, dx, dy int }

var (
	progressive = []pass{{0, 0, 1, 1}}
	adam7       = []pass{{0, 0, 8, 8}, {4, 0, 8, 8}, {0, 4, 4, 8}, {2, 0, 4, 4}, {0, 2, 2, 4}, {1, 0, 2, 2}, {0, 1, 1, 2}}
)

// size returns the pixel count of p in a width x height image.
func (p pass) size(width, height int) (int, int) {
	return (width - p.x + p.dx - 1) / p.dx, (height - p.y + p.dy - 1) / p.dy
}

// rowDecoder turns inflated lines into frame rows.
type rowDecoder struct {
	hdr    header
	frame  *pixel.Buffer
	conv   func(dst, src []byte, width int)
	bpp    int
	palLen int
	tmp    []byte
	cur    []byte
	prev   []byte
}

// setup picks the frame mode from the header, the palette and the
// transparency chunk, and allocates the frame. It runs at the first IDAT.
func (d *decoder) setup() error {
	h := d.hdr
	var (
		mode pixel.Mode
		raw  string
		conv func(dst, src []byte, width int)
		pal  *pixel.Palette
	)
	trns := d.trns
	switch h.colorType {
	case ctGray:
		switch {
		case h.depth == 16:
			mode, raw = pixel.ModeI16, "I;16B"
			if trns != nil {
				logging.Logger().Debug("png: ignoring tRNS of a 16-bit gray image")
			}
		case len(trns) >= 2:
			mode, conv = pixel.ModeLA, grayKeyed(h.depth, int(binary.BigEndian.Uint16(trns)))
		case h.depth == 1:
			mode, raw = pixel.Mode1, "1"
		case h.depth == 8:
			mode, raw = pixel.ModeL, "L"
		default:
			mode, raw = pixel.ModeL, fmt.Sprintf("L;%d", h.depth)
		}
	case ctRGB:
		switch {
		case len(trns) >= 6 && h.depth == 8:
			mode, conv = pixel.ModeRGBA, rgbKeyed(1, []byte{trns[1], trns[3], trns[5]})
		case len(trns) >= 6:
			mode, conv = pixel.ModeRGBA, rgbKeyed(2, trns[:6])
		case h.depth == 8:
			mode, raw = pixel.ModeRGB, "RGB"
		default:
			mode, raw = pixel.ModeRGB, "RGB;16B"
		}
	case ctPalette:
		if d.pal == nil {
			return fmt.Errorf("png: indexed image without PLTE: %w", pixel.ErrCorrupt)
		}
		mode, raw, pal = pixel.ModeP, "P", d.pal
		if h.depth < 8 {
			raw = fmt.Sprintf("P;%d", h.depth)
		}
		if len(trns) > 0 {
			if len(trns) > pal.Len() {
				logging.Logger().Warn("png: tRNS longer than PLTE", "trns", len(trns), "plte", pal.Len())
				trns = trns[:pal.Len()]
			}
			cs := pal.Colors()
			for i, a := range trns {
				cs[i].A = a
			}
			var err error
			if pal, err = pixel.NewPalette(cs); err != nil {
				return err
			}
		}
	case ctGrayAlpha:
		mode, raw = pixel.ModeLA, "LA"
		if h.depth == 16 {
			raw = "LA;16B"
		}
	case ctRGBA:
		mode, raw = pixel.ModeRGBA, "RGBA"
		if h.depth == 16 {
			raw = "RGBA;16B"
		}
	}
	if h.colorType == ctGrayAlpha || h.colorType == ctRGBA {
		if trns != nil {
			logging.Logger().Warn("png: ignoring tRNS in an image with alpha")
		}
	}
	if conv == nil {
		u, err := packing.LookupUnpacker(mode, raw)
		if err != nil {
			return err
		}
		conv = u.Unpack
	}
	frame, err := pixel.Allocate(mode, h.width, h.height)
	if err != nil {
		return err
	}
	r := rowDecoder{
		hdr:   h,
		frame: frame,
		conv:  conv,
		bpp:   max(1, h.channels()*h.depth/8),
		tmp:   make([]byte, mode.RowBytes(h.width)),
		cur:   make([]byte, 1+h.lineBytes(h.width)),
		prev:  make([]byte, 1+h.lineBytes(h.width)),
	}
	if pal != nil {
		if err := frame.SetPalette(pal); err != nil {
			return err
		}
		r.palLen = pal.Len()
	}
	d.frame, d.rows = frame, r
	return nil
}

// decode inflates zdata and fills the frame. With partial set, running out
// of data leaves the remaining rows zero instead of failing.
func (r *rowDecoder) decode(zdata []byte, partial bool) error {
	zr, err := zlib.NewReader(bytes.NewReader(zdata))
	if err != nil {
		return inflateError(err, partial, "zlib header")
	}
	defer zr.Close()

	h := &r.hdr
	passes := progressive
	if h.interlaced {
		passes = adam7
	}
	for i, p := range passes {
		pw, ph := p.size(h.width, h.height)
		if pw <= 0 || ph <= 0 {
			continue
		}
		n := 1 + h.lineBytes(pw)
		cur, prev := r.cur[:n], r.prev[:n]
		clear(prev)
		for py := range ph {
			if _, err := io.ReadFull(zr, cur); err != nil {
				return inflateError(err, partial, fmt.Sprintf("pass %d row %d", i, py))
			}
			if err := unfilter(cur, prev, r.bpp); err != nil {
				return err
			}
			if err := r.store(cur[1:], p, py, pw); err != nil {
				return err
			}
			cur, prev = prev, cur
		}
	}
	if partial {
		return nil
	}
	if _, err := io.Copy(io.Discard, zr); err != nil {
		if errors.Is(err, zlib.ErrChecksum) {
			return fmt.Errorf("png: image data: %v: %w", err, pixel.ErrCorrupt)
		}
		logging.Logger().Warn("png: image data trailer", "err", err)
	}
	return nil
}

func inflateError(err error, partial bool, where string) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		if partial {
			return nil
		}
		return fmt.Errorf("png: image data ends in %s: %w", where, pixel.ErrTruncated)
	}
	return fmt.Errorf("png: inflate at %s: %v: %w", where, err, pixel.ErrCorrupt)
}

// store converts one unfiltered line of pass p into the frame.
func (r *rowDecoder) store(line []byte, p pass, py, pw int) error {
	y := p.y + py*p.dy
	if p.dx == 1 {
		row := r.frame.Row(y)
		r.conv(row, line, pw)
		return r.checkIndices(row, pw, y)
	}
	r.conv(r.tmp, line, pw)
	if err := r.checkIndices(r.tmp, pw, y); err != nil {
		return err
	}
	row := r.frame.Row(y)
	if r.frame.Mode() == pixel.Mode1 {
		for i := range pw {
			pixel.PutBit(row, p.x+i*p.dx, pixel.GetBit(r.tmp, i))
		}
		return nil
	}
	bpp := r.frame.Mode().BytesPerPixel()
	for i := range pw {
		x := p.x + i*p.dx
		copy(row[x*bpp:(x+1)*bpp], r.tmp[i*bpp:(i+1)*bpp])
	}
	return nil
}

// checkIndices validates the first n indices of row. Rows of other modes
// are left alone; a packed mode 1 row holds fewer than n bytes.
func (r *rowDecoder) checkIndices(row []byte, n, y int) error {
	if r.palLen == 0 || r.palLen == pixel.MaxPaletteLen {
		return nil
	}
	for _, v := range row[:n] {
		if int(v) >= r.palLen {
			return fmt.Errorf("png: index %d in row %d beyond %d colors: %w", v, y, r.palLen, pixel.ErrCorrupt)
		}
	}
	return nil
}

// Filter types.
const (
	filterNone = iota
	filterSub
	filterUp
	filterAverage
	filterPaeth
	numFilters
)

// unfilter reverses the filter of cur, a line led by its filter type, in
// place. prev is the previous unfiltered line of the pass, or zeros.
func unfilter(cur, prev []byte, bpp int) error {
	c, p := cur[1:], prev[1:]
	switch cur[0] {
	case filterNone:
	case filterSub:
		for i := bpp; i < len(c); i++ {
			c[i] += c[i-bpp]
		}
	case filterUp:
		for i := range c {
			c[i] += p[i]
		}
	case filterAverage:
		for i := range c {
			var left int
			if i >= bpp {
				left = int(c[i-bpp])
			}
			c[i] += byte((left + int(p[i])) / 2)
		}
	case filterPaeth:
		for i := range c {
			var a, cc byte
			if i >= bpp {
				a, cc = c[i-bpp], p[i-bpp]
			}
			c[i] += paeth(a, p[i], cc)
		}
	default:
		return fmt.Errorf("png: filter type %d: %w", cur[0], pixel.ErrCorrupt)
	}
	return nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	switch {
	case pa <= pb && pa <= pc:
		return a
	case pb <= pc:
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// sample returns sample i of a line packed at depth bits, depth <= 8.
func sample(line []byte, i, depth int) int {
	if depth == 8 {
		return int(line[i])
	}
	bit := i * depth
	return int(line[bit/8]>>(8-depth-bit%8)) & (1<<depth - 1)
}

// grayKeyed converts gray samples to LA, clearing alpha where the sample
// equals key.
func grayKeyed(depth, key int) func(dst, src []byte, width int) {
	scale := 255 / (1<<depth - 1)
	return func(dst, src []byte, width int) {
		for x := range width {
			v := sample(src, x, depth)
			dst[2*x], dst[2*x+1] = byte(v*scale), 255
			if v == key {
				dst[2*x+1] = 0
			}
		}
	}
}

// rgbKeyed converts RGB samples of sb bytes to RGBA, clearing alpha where
// the stored sample bytes equal key.
func rgbKeyed(sb int, key []byte) func(dst, src []byte, width int) {
	return func(dst, src []byte, width int) {
		for x := range width {
			s := src[3*sb*x : 3*sb*(x+1)]
			d := dst[4*x : 4*x+4]
			d[0], d[1], d[2], d[3] = s[0], s[sb], s[2*sb], 255
			if bytes.Equal(s, key) {
				d[3] = 0
			}
		}
	}
}

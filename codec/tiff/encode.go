package tiff

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"slices"

	"github.com/klauspost/compress/zlib"

	"github.com/gogpu/imaging/codec"
	"github.com/gogpu/imaging/codec/packing"
	"github.com/gogpu/imaging/internal/logging"
	"github.com/gogpu/imaging/pixel"
)

// stripTarget is the preferred uncompressed strip size.
const stripTarget = 64 << 10

var le = binary.LittleEndian

// entry is a directory entry with its values in little-endian order.
type entry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

func shorts(tag uint16, vs ...uint16) entry {
	var b []byte
	for _, v := range vs {
		b = le.AppendUint16(b, v)
	}
	return entry{tag: tag, typ: dtShort, count: uint32(len(vs)), data: b}
}

func longs(tag uint16, vs ...uint32) entry {
	var b []byte
	for _, v := range vs {
		b = le.AppendUint32(b, v)
	}
	return entry{tag: tag, typ: dtLong, count: uint32(len(vs)), data: b}
}

func ascii(tag uint16, s string) entry {
	return entry{tag: tag, typ: dtASCII, count: uint32(len(s) + 1), data: append([]byte(s), 0)}
}

func rational(tag uint16, num, den uint32) entry {
	return entry{tag: tag, typ: dtRational, count: 1, data: le.AppendUint32(le.AppendUint32(nil, num), den)}
}

// pageFormat is how one buffer mode is stored.
type pageFormat struct {
	raw         string
	photometric uint16
	bps         uint16
	spp         int
	extra       bool
}

func formatOf(buf *pixel.Buffer) (pageFormat, error) {
	switch buf.Mode() {
	case pixel.Mode1:
		return pageFormat{raw: "1", photometric: pmBlackIsZero, bps: 1, spp: 1}, nil
	case pixel.ModeL:
		return pageFormat{raw: "L", photometric: pmBlackIsZero, bps: 8, spp: 1}, nil
	case pixel.ModeLA:
		return pageFormat{raw: "LA", photometric: pmBlackIsZero, bps: 8, spp: 2, extra: true}, nil
	case pixel.ModeI16:
		return pageFormat{raw: "I;16", photometric: pmBlackIsZero, bps: 16, spp: 1}, nil
	case pixel.ModeP:
		bps := uint16(8)
		switch n := buf.Palette().Len(); {
		case n <= 2:
			bps = 1
		case n <= 4:
			bps = 2
		case n <= 16:
			bps = 4
		}
		raw := "P"
		if bps < 8 {
			raw = fmt.Sprintf("P;%d", bps)
		}
		return pageFormat{raw: raw, photometric: pmPalette, bps: bps, spp: 1}, nil
	case pixel.ModeRGB:
		return pageFormat{raw: "RGB", photometric: pmRGB, bps: 8, spp: 3}, nil
	case pixel.ModeRGBA:
		return pageFormat{raw: "RGBA", photometric: pmRGB, bps: 8, spp: 4, extra: true}, nil
	case pixel.ModeCMYK:
		return pageFormat{raw: "CMYK", photometric: pmSeparated, bps: 8, spp: 4}, nil
	}
	return pageFormat{}, fmt.Errorf("tiff: cannot write %s: %w", buf.Mode(), pixel.ErrUnsupported)
}

type encoder struct {
	pages       []*pixel.Buffer
	compression uint16
	level       int
	text        []entry
	header      bool
	i           int
	off         uint64
	strips      [][]byte
	s           int
}

// NewEncoder returns a little-endian TIFF encoder for 1, L, LA, P, RGB,
// RGBA, CMYK and I;16 buffers; opts.Frames become further pages. Strips are
// uncompressed unless opts.RLE selects PackBits or a positive
// opts.Compression selects Deflate at that level. Text keys named after
// the ImageDescription, Software, DateTime, Artist and Copyright tags are
// stored in them.
func NewEncoder(buf *pixel.Buffer, opts codec.EncodeOptions) (codec.Encoder, error) {
	e := &encoder{pages: append([]*pixel.Buffer{buf}, opts.Frames...), compression: cNone}
	switch {
	case opts.Compression < -1 || opts.Compression > 9:
		return nil, fmt.Errorf("tiff: compression level %d: %w", opts.Compression, pixel.ErrInvalidArgument)
	case opts.RLE && opts.Compression > 0:
		return nil, fmt.Errorf("tiff: both PackBits and Deflate requested: %w", pixel.ErrInvalidArgument)
	case opts.RLE:
		e.compression = cPackBits
	case opts.Compression > 0:
		e.compression, e.level = cDeflate, opts.Compression
	}
	for i, p := range e.pages {
		if p == nil {
			return nil, fmt.Errorf("tiff: page %d is nil: %w", i, pixel.ErrInvalidArgument)
		}
		if _, err := formatOf(p); err != nil {
			return nil, err
		}
		if p.Width() > math.MaxUint32 || p.Height() > math.MaxUint32 {
			return nil, fmt.Errorf("tiff: page %d of %dx%d: %w", i, p.Width(), p.Height(), pixel.ErrUnsupported)
		}
	}
	byTag := map[string]uint16{}
	for tag, key := range textTags {
		byTag[key] = tag
	}
	for key, value := range opts.Text {
		tag, ok := byTag[key]
		if !ok {
			logging.Logger().Warn("tiff: dropping text without a matching tag", "key", key)
			continue
		}
		for _, r := range value {
			if r == 0 || r > 0x7f {
				return nil, fmt.Errorf("tiff: %s is not ASCII: %w", key, pixel.ErrInvalidArgument)
			}
		}
		e.text = append(e.text, ascii(tag, value))
	}
	return codec.NewChunkEncoder(e), nil
}

func (e *encoder) NextChunk() ([]byte, error) {
	if !e.header {
		e.header = true
		e.off = headerLen
		return []byte{'I', 'I', 42, 0, headerLen, 0, 0, 0}, nil
	}
	if e.s < len(e.strips) {
		s := e.strips[e.s]
		e.s++
		return s, nil
	}
	if e.i == len(e.pages) {
		return nil, io.EOF
	}
	return e.page()
}

// page compresses the strips of the next page and returns its directory,
// which precedes them in the file.
func (e *encoder) page() ([]byte, error) {
	buf := e.pages[e.i]
	e.i++
	pf, err := formatOf(buf)
	if err != nil {
		return nil, err
	}
	pk, err := packing.LookupPacker(buf.Mode(), pf.raw)
	if err != nil {
		return nil, err
	}
	w, h := buf.Width(), buf.Height()
	rowBytes := pk.RowBytes(w)
	rps := min(h, max(1, stripTarget/rowBytes))

	e.strips, e.s = e.strips[:0], 0
	counts := make([]uint32, 0, (h+rps-1)/rps)
	line := make([]byte, rowBytes)
	var total uint64
	for y0 := 0; y0 < h; y0 += rps {
		strip, err := e.strip(buf, pk, line, y0, min(rps, h-y0))
		if err != nil {
			return nil, err
		}
		e.strips = append(e.strips, strip)
		counts = append(counts, uint32(len(strip)))
		total += uint64(len(strip))
	}
	if total%2 == 1 {
		e.strips[len(e.strips)-1] = append(e.strips[len(e.strips)-1], 0)
		total++
	}

	bps := make([]uint16, pf.spp)
	for i := range bps {
		bps[i] = pf.bps
	}
	entries := []entry{
		longs(tImageWidth, uint32(w)),
		longs(tImageLength, uint32(h)),
		shorts(tBitsPerSample, bps...),
		shorts(tCompression, e.compression),
		shorts(tPhotometric, pf.photometric),
		longs(tStripOffsets, make([]uint32, len(counts))...),
		shorts(tSamplesPerPixel, uint16(pf.spp)),
		longs(tRowsPerStrip, uint32(rps)),
		longs(tStripByteCounts, counts...),
		rational(tXResolution, 72, 1),
		rational(tYResolution, 72, 1),
		shorts(tPlanarConfig, 1),
		shorts(tResolutionUnit, 2),
	}
	if pf.extra {
		entries = append(entries, shorts(tExtraSamples, extraUnassoc))
	}
	if pf.photometric == pmSeparated {
		entries = append(entries, shorts(tInkSet, 1))
	}
	if pf.photometric == pmPalette {
		entries = append(entries, colorMap(buf.Palette(), int(pf.bps)))
	}
	if e.i == 1 {
		entries = append(entries, e.text...)
	}
	slices.SortFunc(entries, func(a, b entry) int { return int(a.tag) - int(b.tag) })

	// Directory, then values too large for an entry, then the strips.
	base := e.off
	dirLen := uint64(2 + 12*len(entries) + 4)
	valuesLen := uint64(0)
	for _, en := range entries {
		if n := uint64(len(en.data)); n > 4 {
			valuesLen += n + n%2
		}
	}
	stripBase := base + dirLen + valuesLen
	end := stripBase + total
	if end > math.MaxUint32 {
		return nil, fmt.Errorf("tiff: file exceeds 4 GiB: %w", pixel.ErrUnsupported)
	}
	off := stripBase
	for _, en := range entries {
		if en.tag == tStripOffsets {
			for i, c := range counts {
				le.PutUint32(en.data[4*i:], uint32(off))
				off += uint64(c)
			}
		}
	}

	out := make([]byte, 0, dirLen+valuesLen)
	out = le.AppendUint16(out, uint16(len(entries)))
	var values []byte
	valueOff := base + dirLen
	for _, en := range entries {
		out = le.AppendUint16(out, en.tag)
		out = le.AppendUint16(out, en.typ)
		out = le.AppendUint32(out, en.count)
		if len(en.data) <= 4 {
			var inline [4]byte
			copy(inline[:], en.data)
			out = append(out, inline[:]...)
			continue
		}
		out = le.AppendUint32(out, uint32(valueOff+uint64(len(values))))
		values = append(values, en.data...)
		if len(values)%2 == 1 {
			values = append(values, 0)
		}
	}
	next := uint32(0)
	if e.i < len(e.pages) {
		next = uint32(end)
	}
	out = le.AppendUint32(out, next)
	out = append(out, values...)
	e.off = end
	logging.Logger().Debug("tiff: page", "index", e.i-1, "mode", buf.Mode(),
		"strips", len(counts), "rows_per_strip", rps, "bytes", total)
	return out, nil
}

// strip packs and compresses rows [y0, y0+n) of buf.
func (e *encoder) strip(buf *pixel.Buffer, pk *packing.Packer, line []byte, y0, n int) ([]byte, error) {
	var out []byte
	switch e.compression {
	case cDeflate:
		var z bytes.Buffer
		zw, err := zlib.NewWriterLevel(&z, e.level)
		if err != nil {
			return nil, fmt.Errorf("tiff: %v: %w", err, pixel.ErrInvalidArgument)
		}
		for y := y0; y < y0+n; y++ {
			pk.Pack(line, buf.Row(y), buf.Width())
			if _, err := zw.Write(line); err != nil {
				return nil, err
			}
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return z.Bytes(), nil
	case cPackBits:
		for y := y0; y < y0+n; y++ {
			pk.Pack(line, buf.Row(y), buf.Width())
			out = packBits(out, line)
		}
	default:
		out = make([]byte, 0, n*len(line))
		for y := y0; y < y0+n; y++ {
			pk.Pack(line, buf.Row(y), buf.Width())
			out = append(out, line...)
		}
	}
	return out, nil
}

// colorMap stores pal padded to 1<<bps entries with 16-bit components.
func colorMap(pal *pixel.Palette, bps int) entry {
	n := 1 << bps
	if pal.HasAlpha() {
		logging.Logger().Warn("tiff: dropping palette alpha")
	}
	vs := make([]uint16, 3*n)
	for i, c := range pal.Colors() {
		vs[i] = uint16(c.R) * 0x101
		vs[n+i] = uint16(c.G) * 0x101
		vs[2*n+i] = uint16(c.B) * 0x101
	}
	return shorts(tColorMap, vs...)
}

package png

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"slices"

	"github.com/klauspost/compress/zlib"

	"github.com/gogpu/imaging/codec"
	"github.com/gogpu/imaging/codec/packing"
	"github.com/gogpu/imaging/pixel"
)

// idatLen is the size at which buffered compressed data is written out as
// an IDAT chunk.
const idatLen = 32 << 10

func appendChunk(dst []byte, typ string, body []byte) []byte {
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(body)))
	start := len(dst)
	dst = append(dst, typ...)
	dst = append(dst, body...)
	return binary.BigEndian.AppendUint32(dst, crc32.ChecksumIEEE(dst[start:]))
}

type stage uint8

const (
	stageHeader stage = iota
	stageRows
	stageEnd
	stageDone
)

type encoder struct {
	buf      *pixel.Buffer
	hdr      header
	packer   *packing.Packer
	level    int
	adaptive bool
	header   []byte

	stage stage
	y     int
	zw    *zlib.Writer
	zbuf  bytes.Buffer
	line  []byte
	prev  []byte
	cand  [numFilters][]byte
	out   []byte
}

// NewEncoder returns a PNG encoder for 1, L, LA, P, RGB, RGBA and I;16
// buffers. Indexed buffers use the smallest bit depth that holds the
// palette, with a tRNS chunk when the palette has alpha. opts.Compression
// selects the deflate level and opts.Text is written as text chunks.
func NewEncoder(buf *pixel.Buffer, opts codec.EncodeOptions) (codec.Encoder, error) {
	h := header{width: buf.Width(), height: buf.Height(), depth: 8}
	var raw string
	switch buf.Mode() {
	case pixel.Mode1:
		h.colorType, h.depth, raw = ctGray, 1, "1"
	case pixel.ModeL:
		h.colorType, raw = ctGray, "L"
	case pixel.ModeLA:
		h.colorType, raw = ctGrayAlpha, "LA"
	case pixel.ModeP:
		h.colorType, raw = ctPalette, "P"
		switch n := buf.Palette().Len(); {
		case n <= 2:
			h.depth = 1
		case n <= 4:
			h.depth = 2
		case n <= 16:
			h.depth = 4
		}
		if h.depth < 8 {
			raw = fmt.Sprintf("P;%d", h.depth)
		}
	case pixel.ModeRGB:
		h.colorType, raw = ctRGB, "RGB"
	case pixel.ModeRGBA:
		h.colorType, raw = ctRGBA, "RGBA"
	case pixel.ModeI16:
		h.colorType, h.depth, raw = ctGray, 16, "I;16B"
	default:
		return nil, fmt.Errorf("png: cannot write %s: %w", buf.Mode(), pixel.ErrUnsupported)
	}
	p, err := packing.LookupPacker(buf.Mode(), raw)
	if err != nil {
		return nil, err
	}

	level := zlib.DefaultCompression
	switch c := opts.Compression; {
	case c == -1:
		level = zlib.NoCompression
	case c >= 1 && c <= 9:
		level = c
	case c != 0:
		return nil, fmt.Errorf("png: compression level %d: %w", c, pixel.ErrInvalidArgument)
	}

	e := &encoder{
		buf:      buf,
		hdr:      h,
		packer:   p,
		level:    level,
		adaptive: h.colorType != ctPalette && h.depth >= 8,
	}
	if e.header, err = e.headerChunks(opts.Text); err != nil {
		return nil, err
	}
	n := 1 + h.lineBytes(h.width)
	e.line, e.prev = make([]byte, n), make([]byte, n)
	if e.adaptive {
		for i := range e.cand {
			e.cand[i] = make([]byte, n)
		}
	}
	return codec.NewChunkEncoder(e), nil
}

// headerChunks returns the signature and every chunk before IDAT.
func (e *encoder) headerChunks(text map[string]string) ([]byte, error) {
	h := &e.hdr
	out := []byte(signature)
	ihdr := binary.BigEndian.AppendUint32(nil, uint32(h.width))
	ihdr = binary.BigEndian.AppendUint32(ihdr, uint32(h.height))
	ihdr = append(ihdr, byte(h.depth), byte(h.colorType), 0, 0, 0)
	out = appendChunk(out, "IHDR", ihdr)

	if h.colorType == ctPalette {
		pal := e.buf.Palette()
		out = appendChunk(out, "PLTE", pal.RGB())
		if pal.HasAlpha() {
			cs := pal.Colors()
			n := len(cs)
			for n > 0 && cs[n-1].A == 255 {
				n--
			}
			trns := make([]byte, n)
			for i := range trns {
				trns[i] = cs[i].A
			}
			out = appendChunk(out, "tRNS", trns)
		}
	}

	keys := make([]string, 0, len(text))
	for k := range text {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		typ, body, err := textChunk(k, text[k])
		if err != nil {
			return nil, err
		}
		out = appendChunk(out, typ, body)
	}
	return out, nil
}

// NextChunk implements codec.ChunkSource.
func (e *encoder) NextChunk() ([]byte, error) {
	for {
		switch e.stage {
		case stageHeader:
			zw, err := zlib.NewWriterLevel(&e.zbuf, e.level)
			if err != nil {
				return nil, fmt.Errorf("png: deflate: %w", err)
			}
			e.zw = zw
			e.stage = stageRows
			return e.header, nil
		case stageRows:
			if e.y == e.hdr.height {
				e.stage = stageEnd
				continue
			}
			if _, err := e.zw.Write(e.filterRow()); err != nil {
				return nil, fmt.Errorf("png: deflate: %w", err)
			}
			e.y++
			if e.zbuf.Len() >= idatLen {
				e.out = appendChunk(e.out[:0], "IDAT", e.zbuf.Bytes())
				e.zbuf.Reset()
				return e.out, nil
			}
		case stageEnd:
			if err := e.zw.Close(); err != nil {
				return nil, fmt.Errorf("png: deflate: %w", err)
			}
			out := e.out[:0]
			if e.zbuf.Len() > 0 {
				out = appendChunk(out, "IDAT", e.zbuf.Bytes())
			}
			e.out = appendChunk(out, "IEND", nil)
			e.stage = stageDone
			return e.out, nil
		default:
			return nil, io.EOF
		}
	}
}

// filterRow packs row e.y and returns it filtered, led by the filter type.
// Adaptive filtering picks the filter with the smallest sum of absolute
// signed bytes.
func (e *encoder) filterRow() []byte {
	cur := e.line
	e.packer.Pack(cur[1:], e.buf.Row(e.y), e.hdr.width)
	defer func() { e.line, e.prev = e.prev, e.line }()
	if !e.adaptive {
		cur[0] = filterNone
		return cur
	}
	bpp := max(1, e.hdr.channels()*e.hdr.depth/8)
	c, p := cur[1:], e.prev[1:]
	best, bestSum := 0, -1
	for f := range e.cand {
		out := e.cand[f]
		out[0] = byte(f)
		o := out[1:]
		for i := range c {
			var a, pc byte
			if i >= bpp {
				a, pc = c[i-bpp], p[i-bpp]
			}
			switch f {
			case filterNone:
				o[i] = c[i]
			case filterSub:
				o[i] = c[i] - a
			case filterUp:
				o[i] = c[i] - p[i]
			case filterAverage:
				o[i] = c[i] - byte((int(a)+int(p[i]))/2)
			case filterPaeth:
				o[i] = c[i] - paeth(a, p[i], pc)
			}
		}
		sum := 0
		for _, v := range o {
			sum += abs(int(int8(v)))
		}
		if bestSum < 0 || sum < bestSum {
			best, bestSum = f, sum
		}
	}
	return e.cand[best]
}

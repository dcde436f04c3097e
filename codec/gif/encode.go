package gif

import (
	"bytes"
	"compress/lzw"
	"encoding/binary"
	"fmt"
	"io"
	"math/bits"

	"golang.org/x/text/encoding/charmap"

	"github.com/gogpu/imaging/codec"
	"github.com/gogpu/imaging/pixel"
	"github.com/gogpu/imaging/quantize"
)

// blockLen is the largest data sub-block.
const blockLen = 255

// indexed is a frame ready for writing: rows of palette indices.
type indexed struct {
	rows        *pixel.Buffer // L or P, one index byte per pixel
	pal         *pixel.Palette
	transparent int
}

// prepare maps buf to palette indices. RGB and RGBA are quantized with
// median cut; the first RGBA palette entry with alpha below 128 becomes
// the transparent color.
func prepare(buf *pixel.Buffer) (indexed, error) {
	switch buf.Mode() {
	case pixel.Mode1:
		rows, err := pixel.Allocate(pixel.ModeL, buf.Width(), buf.Height())
		if err != nil {
			return indexed{}, err
		}
		for y := range buf.Height() {
			src, dst := buf.Row(y), rows.Row(y)
			for x := range dst {
				if pixel.GetBit(src, x) {
					dst[x] = 1
				}
			}
		}
		return indexed{rows: rows, pal: blackWhite, transparent: -1}, nil
	case pixel.ModeL:
		return indexed{rows: buf, pal: pixel.GrayscalePalette(), transparent: -1}, nil
	case pixel.ModeP:
		return indexed{rows: buf, pal: buf.Palette(), transparent: transparentIndex(buf.Palette())}, nil
	case pixel.ModeRGB, pixel.ModeRGBA:
		res, err := quantize.Quantize(buf, quantize.MaxColors, quantize.Options{Method: quantize.MethodMedianCut})
		if err != nil {
			return indexed{}, err
		}
		return indexed{rows: res.Indices, pal: res.Palette, transparent: transparentIndex(res.Palette)}, nil
	default:
		return indexed{}, fmt.Errorf("gif: cannot write %s: %w", buf.Mode(), pixel.ErrUnsupported)
	}
}

func transparentIndex(pal *pixel.Palette) int {
	if !pal.HasAlpha() {
		return -1
	}
	for i, c := range pal.Colors() {
		if c.A < 128 {
			return i
		}
	}
	return -1
}

// tableBits returns the color table size exponent for n entries.
func tableBits(n int) int {
	return max(1, bits.Len(uint(n-1)))
}

// appendTable appends pal padded to 1<<nbits entries.
func appendTable(dst []byte, pal *pixel.Palette, nbits int) []byte {
	dst = append(dst, pal.RGB()...)
	return append(dst, make([]byte, 3*((1<<nbits)-pal.Len()))...)
}

// appendBlocks appends b as data sub-blocks without a terminator.
func appendBlocks(dst, b []byte) []byte {
	for len(b) > 0 {
		n := min(len(b), blockLen)
		dst = append(dst, byte(n))
		dst = append(dst, b[:n]...)
		b = b[n:]
	}
	return dst
}

type stage uint8

const (
	stageHeader stage = iota
	stageFrame
	stageRows
	stageFrameEnd
	stageTrailer
	stageEnd
)

type encoder struct {
	frames  []indexed
	opts    codec.EncodeOptions
	comment []byte
	stage   stage
	f, y    int
	lzw     io.WriteCloser
	data    bytes.Buffer
	out     []byte
}

// NewEncoder returns a GIF89a encoder. 1, L and P buffers are written
// directly; RGB and RGBA are quantized to 256 colors. opts.Frames are
// written as further frames at the top left of a canvas the size of buf,
// with opts.DelayMS and a loop extension carrying opts.Loop. A "comment"
// text entry is stored as a Latin-1 comment extension.
func NewEncoder(buf *pixel.Buffer, opts codec.EncodeOptions) (codec.Encoder, error) {
	e := &encoder{opts: opts}
	for i, b := range append([]*pixel.Buffer{buf}, opts.Frames...) {
		if b == nil || b.Width() > buf.Width() || b.Height() > buf.Height() || b.Width() > 0xffff || b.Height() > 0xffff {
			return nil, fmt.Errorf("gif: frame %d does not fit the canvas: %w", i, pixel.ErrInvalidArgument)
		}
		f, err := prepare(b)
		if err != nil {
			return nil, err
		}
		e.frames = append(e.frames, f)
	}
	if c := opts.Text["comment"]; c != "" {
		b, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(c))
		if err != nil {
			return nil, fmt.Errorf("gif: comment is not Latin-1: %w", pixel.ErrInvalidArgument)
		}
		e.comment = b
	}
	if opts.Loop < 0 || opts.Loop > 0xffff || opts.DelayMS < 0 {
		return nil, fmt.Errorf("gif: loop %d, delay %d: %w", opts.Loop, opts.DelayMS, pixel.ErrInvalidArgument)
	}
	return codec.NewChunkEncoder(e), nil
}

// NextChunk implements codec.ChunkSource.
func (e *encoder) NextChunk() ([]byte, error) {
	le := binary.LittleEndian
	for {
		switch e.stage {
		case stageHeader:
			first := e.frames[0]
			nbits := tableBits(first.pal.Len())
			out := append(e.out[:0], "GIF89a"...)
			out = le.AppendUint16(out, uint16(first.rows.Width()))
			out = le.AppendUint16(out, uint16(first.rows.Height()))
			out = append(out, flagColorTable|7<<4|byte(nbits-1), 0, 0)
			out = appendTable(out, first.pal, nbits)
			if len(e.frames) > 1 {
				out = append(out, sepExtension, extApplication, 11)
				out = append(out, "NETSCAPE2.0"...)
				out = append(out, 3, 1)
				out = le.AppendUint16(out, uint16(e.opts.Loop))
				out = append(out, 0)
			}
			if len(e.comment) > 0 {
				out = append(out, sepExtension, extComment)
				out = append(appendBlocks(out, e.comment), 0)
			}
			e.out, e.stage = out, stageFrame
			return out, nil
		case stageFrame:
			f := e.frames[e.f]
			out := e.out[:0]
			if f.transparent >= 0 || e.opts.DelayMS > 0 || len(e.frames) > 1 {
				var flags byte
				tr := 0
				if f.transparent >= 0 {
					flags, tr = flagTransparent, f.transparent
				}
				out = append(out, sepExtension, extGraphicControl, 4, flags)
				out = le.AppendUint16(out, uint16(min((e.opts.DelayMS+5)/10, 0xffff)))
				out = append(out, byte(tr), 0)
			}
			out = append(out, sepImage, 0, 0, 0, 0)
			out = le.AppendUint16(out, uint16(f.rows.Width()))
			out = le.AppendUint16(out, uint16(f.rows.Height()))
			nbits := tableBits(f.pal.Len())
			if e.f > 0 && !f.pal.Equal(e.frames[0].pal) {
				out = append(out, flagColorTable|byte(nbits-1))
				out = appendTable(out, f.pal, nbits)
			} else {
				out = append(out, 0)
				nbits = tableBits(e.frames[0].pal.Len())
			}
			litWidth := max(2, nbits)
			out = append(out, byte(litWidth))
			e.data.Reset()
			e.lzw = lzw.NewWriter(&e.data, lzw.LSB, litWidth)
			e.y = 0
			e.out, e.stage = out, stageRows
			return out, nil
		case stageRows:
			f := e.frames[e.f]
			if e.y == f.rows.Height() {
				e.stage = stageFrameEnd
				continue
			}
			if _, err := e.lzw.Write(f.rows.Row(e.y)); err != nil {
				return nil, fmt.Errorf("gif: lzw: %w", err)
			}
			e.y++
			if e.data.Len() < blockLen {
				continue
			}
			n := e.data.Len() / blockLen * blockLen
			e.out = appendBlocks(e.out[:0], e.data.Next(n))
			return e.out, nil
		case stageFrameEnd:
			if err := e.lzw.Close(); err != nil {
				return nil, fmt.Errorf("gif: lzw: %w", err)
			}
			e.out = append(appendBlocks(e.out[:0], e.data.Bytes()), 0)
			e.f++
			e.stage = stageFrame
			if e.f == len(e.frames) {
				e.stage = stageTrailer
			}
			return e.out, nil
		case stageTrailer:
			e.stage = stageEnd
			return []byte{sepTrailer}, nil
		default:
			return nil, io.EOF
		}
	}
}

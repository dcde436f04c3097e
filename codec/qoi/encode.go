package qoi

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/imaging/codec"
	"github.com/gogpu/imaging/pixel"
)

const maxRun = 62

type encoder struct {
	buf   *pixel.Buffer
	prev  rgba
	index [64]rgba
	run   int
	out   []byte
}

// NewEncoder returns a QOI encoder for RGB and RGBA buffers.
func NewEncoder(buf *pixel.Buffer, _ codec.EncodeOptions) (codec.Encoder, error) {
	channels := 0
	switch buf.Mode() {
	case pixel.ModeRGB:
		channels = 3
	case pixel.ModeRGBA:
		channels = 4
	default:
		return nil, fmt.Errorf("qoi: cannot write %s: %w", buf.Mode(), pixel.ErrUnsupported)
	}
	header := make([]byte, headerLen)
	copy(header, magic)
	binary.BigEndian.PutUint32(header[4:], uint32(buf.Width()))
	binary.BigEndian.PutUint32(header[8:], uint32(buf.Height()))
	header[12] = byte(channels)

	e := &encoder{buf: buf, prev: rgba{a: 255}}
	return codec.NewChunkEncoder(&codec.RowChunks{
		Header: header,
		Rows:   buf.Height(),
		Row:    e.row,
		Trailer: func() ([]byte, error) {
			return endMarker[:], nil
		},
	}), nil
}

func (e *encoder) row(y int) ([]byte, error) {
	e.out = e.out[:0]
	row := e.buf.Row(y)
	bpp := e.buf.Mode().BytesPerPixel()
	w := e.buf.Width()
	last := y == e.buf.Height()-1
	for x := range w {
		s := row[x*bpp:]
		px := rgba{s[0], s[1], s[2], 255}
		if bpp == 4 {
			px.a = s[3]
		}
		e.pixel(px, last && x == w-1)
	}
	return e.out, nil
}

func (e *encoder) pixel(px rgba, final bool) {
	if px == e.prev {
		e.run++
		if e.run == maxRun || final {
			e.flushRun()
		}
		return
	}
	e.flushRun()
	h := px.hash()
	switch {
	case e.index[h] == px:
		e.out = append(e.out, opIndex|byte(h))
	case px.a != e.prev.a:
		e.index[h] = px
		e.out = append(e.out, opRGBA, px.r, px.g, px.b, px.a)
	default:
		e.index[h] = px
		dr := int(int8(px.r - e.prev.r))
		dg := int(int8(px.g - e.prev.g))
		db := int(int8(px.b - e.prev.b))
		dgr, dgb := dr-dg, db-dg
		switch {
		case small(dr, 2) && small(dg, 2) && small(db, 2):
			e.out = append(e.out, opDiff|byte(dr+2)<<4|byte(dg+2)<<2|byte(db+2))
		case small(dg, 32) && small(dgr, 8) && small(dgb, 8):
			e.out = append(e.out, opLuma|byte(dg+32), byte(dgr+8)<<4|byte(dgb+8))
		default:
			e.out = append(e.out, opRGB, px.r, px.g, px.b)
		}
	}
	e.prev = px
}

// small reports whether v is in [-bias, bias).
func small(v, bias int) bool { return v >= -bias && v < bias }

func (e *encoder) flushRun() {
	if e.run > 0 {
		e.out = append(e.out, opRun|byte(e.run-1))
		e.run = 0
	}
}

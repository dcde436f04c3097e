package codec

import (
	"errors"
	"fmt"
	"io"

	"github.com/gogpu/imaging/pixel"
)

// ChunkSource yields the successive byte chunks of an encoded stream and
// io.EOF after the last one. Returned chunks may be reused once the next
// chunk is requested.
type ChunkSource interface {
	NextChunk() ([]byte, error)
}

// ChunkFunc adapts a function to ChunkSource.
type ChunkFunc func() ([]byte, error)

// NextChunk calls f.
func (f ChunkFunc) NextChunk() ([]byte, error) { return f() }

// ChunkEncoder implements Encoder over a ChunkSource, holding the unwritten
// tail of the current chunk between calls.
type ChunkEncoder struct {
	src     ChunkSource
	pending []byte
	done    bool
	err     error
}

// NewChunkEncoder returns an Encoder that copies the chunks of src into the
// slices given to Encode.
func NewChunkEncoder(src ChunkSource) *ChunkEncoder {
	return &ChunkEncoder{src: src}
}

func (e *ChunkEncoder) fill() {
	for len(e.pending) == 0 && !e.done {
		b, err := e.src.NextChunk()
		switch {
		case errors.Is(err, io.EOF):
			e.done = true
		case err != nil:
			e.err = err
			return
		default:
			e.pending = b
		}
	}
}

// Encode implements Encoder.
func (e *ChunkEncoder) Encode(dst []byte) (Progress, error) {
	if len(dst) == 0 {
		return Progress{}, fmt.Errorf("codec: encode into empty slice: %w", pixel.ErrInvalidArgument)
	}
	n := 0
	for n < len(dst) {
		if e.err != nil {
			return Progress{Written: n}, e.err
		}
		e.fill()
		if e.err != nil {
			return Progress{Written: n}, e.err
		}
		if e.done {
			return Progress{Written: n, Done: true}, nil
		}
		c := copy(dst[n:], e.pending)
		e.pending = e.pending[c:]
		n += c
	}
	e.fill()
	if e.err != nil {
		return Progress{Written: n}, e.err
	}
	return Progress{Written: n, Done: e.done}, nil
}

// Chunks is a ChunkSource over a fixed list of chunk producers, run in
// order. A producer returning a nil chunk and no error is skipped.
type Chunks []func() ([]byte, error)

// NextChunk implements ChunkSource.
func (c *Chunks) NextChunk() ([]byte, error) {
	for len(*c) > 0 {
		f := (*c)[0]
		*c = (*c)[1:]
		b, err := f()
		if err != nil {
			return nil, err
		}
		if b != nil {
			return b, nil
		}
	}
	return nil, io.EOF
}

// RowChunks is a ChunkSource for formats laid out as a header, one record
// per row and a trailer. Empty header or trailer chunks are skipped.
type RowChunks struct {
	Header  []byte
	Rows    int
	Row     func(y int) ([]byte, error)
	Trailer func() ([]byte, error)

	stage int
	y     int
}

// NextChunk implements ChunkSource.
func (r *RowChunks) NextChunk() ([]byte, error) {
	for {
		switch r.stage {
		case 0:
			r.stage = 1
			if len(r.Header) > 0 {
				return r.Header, nil
			}
		case 1:
			if r.y < r.Rows {
				y := r.y
				r.y++
				b, err := r.Row(y)
				if err != nil || len(b) > 0 {
					return b, err
				}
				continue
			}
			r.stage = 2
		case 2:
			r.stage = 3
			if r.Trailer != nil {
				b, err := r.Trailer()
				if err != nil || len(b) > 0 {
					return b, err
				}
			}
		default:
			return nil, io.EOF
		}
	}
}

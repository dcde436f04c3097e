package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/gogpu/imaging/pixel"
)

// ChunkSize is the read and write granularity of the io drivers.
const ChunkSize = 32 << 10

// FrameReader decodes frames lazily from an io.Reader. Frames are produced
// in order; restarting requires a new reader over a new stream.
type FrameReader struct {
	r      io.Reader
	desc   *Descriptor
	dec    Decoder
	buf    []byte
	carry  []byte
	eof    bool
	paused bool
	err    error
}

// NewFrameReader reads up to SniffLen bytes from r, detects the format in
// reg and prepares its decoder.
func NewFrameReader(r io.Reader, reg *Registry, opts DecodeOptions) (*FrameReader, error) {
	prefix := make([]byte, SniffLen)
	n, err := io.ReadFull(r, prefix)
	eof := false
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		eof = true
	case err != nil:
		return nil, fmt.Errorf("codec: read: %w", err)
	}
	prefix = prefix[:n]
	desc, err := reg.Detect(prefix)
	if err != nil {
		return nil, err
	}
	fr, err := OpenFrameReader(r, desc, opts)
	if err != nil {
		return nil, err
	}
	fr.carry = prefix
	fr.eof = eof
	return fr, nil
}

// OpenFrameReader prepares a FrameReader for a known format, without
// sniffing. It is the way to read headerless formats.
func OpenFrameReader(r io.Reader, desc *Descriptor, opts DecodeOptions) (*FrameReader, error) {
	if !desc.CanDecode() {
		return nil, fmt.Errorf("codec: %s has no decoder: %w", desc.Name, pixel.ErrUnsupported)
	}
	dec, err := desc.NewDecoder(opts)
	if err != nil {
		return nil, err
	}
	return &FrameReader{r: r, desc: desc, dec: dec}, nil
}

// Format returns the descriptor of the stream.
func (fr *FrameReader) Format() *Descriptor { return fr.desc }

// Next returns the next frame, or io.EOF after the last one.
func (fr *FrameReader) Next() (*pixel.Buffer, FrameMeta, error) {
	if fr.err != nil {
		return nil, FrameMeta{}, fr.err
	}
	if fr.paused {
		if err := fr.dec.NextFrame(); err != nil {
			fr.err = err
			return nil, FrameMeta{}, err
		}
		fr.paused = false
	}
	for {
		p := fr.carry
		fr.carry = nil
		res, err := fr.dec.Decode(p, fr.eof)
		if err != nil {
			fr.err = err
			return nil, FrameMeta{}, err
		}
		switch res.Status {
		case StatusFrame:
			fr.paused = true
			return res.Frame, res.Meta, nil
		case StatusDone:
			fr.err = io.EOF
			return nil, FrameMeta{}, io.EOF
		}
		if fr.eof {
			fr.err = fmt.Errorf("codec: %s decoder stalled at end of stream: %w", fr.desc.Name, pixel.ErrTruncated)
			return nil, FrameMeta{}, fr.err
		}
		if fr.buf == nil {
			fr.buf = make([]byte, ChunkSize)
		}
		n, err := fr.r.Read(fr.buf)
		fr.carry = fr.buf[:n]
		switch {
		case errors.Is(err, io.EOF):
			fr.eof = true
		case err != nil:
			fr.err = fmt.Errorf("codec: read: %w", err)
			return nil, FrameMeta{}, fr.err
		}
	}
}

// Decode returns the first frame of the stream in r.
func Decode(r io.Reader, reg *Registry, opts DecodeOptions) (*pixel.Buffer, FrameMeta, error) {
	fr, err := NewFrameReader(r, reg, opts)
	if err != nil {
		return nil, FrameMeta{}, err
	}
	buf, meta, err := fr.Next()
	if errors.Is(err, io.EOF) {
		return nil, FrameMeta{}, fmt.Errorf("codec: %s stream has no frames: %w", fr.desc.Name, pixel.ErrCorrupt)
	}
	return buf, meta, err
}

// DecodeAll returns every frame of the stream in r.
func DecodeAll(r io.Reader, reg *Registry, opts DecodeOptions) ([]*pixel.Buffer, []FrameMeta, error) {
	fr, err := NewFrameReader(r, reg, opts)
	if err != nil {
		return nil, nil, err
	}
	var (
		frames []*pixel.Buffer
		metas  []FrameMeta
	)
	for {
		buf, meta, err := fr.Next()
		if errors.Is(err, io.EOF) {
			return frames, metas, nil
		}
		if err != nil {
			return nil, nil, err
		}
		frames = append(frames, buf)
		metas = append(metas, meta)
	}
}

// EncodeTo serializes buf in the given format to w.
func EncodeTo(w io.Writer, desc *Descriptor, buf *pixel.Buffer, opts EncodeOptions) error {
	if !desc.CanEncode() {
		return fmt.Errorf("codec: %s has no encoder: %w", desc.Name, pixel.ErrUnsupported)
	}
	enc, err := desc.NewEncoder(buf, opts)
	if err != nil {
		return err
	}
	out := make([]byte, ChunkSize)
	for {
		p, err := enc.Encode(out)
		if err != nil {
			return err
		}
		if p.Written > 0 {
			if _, err := w.Write(out[:p.Written]); err != nil {
				return fmt.Errorf("codec: write: %w", err)
			}
		}
		if p.Done {
			return nil
		}
	}
}

// EncodeBytes is EncodeTo into a new slice.
func EncodeBytes(desc *Descriptor, buf *pixel.Buffer, opts EncodeOptions) ([]byte, error) {
	var w bytes.Buffer
	if err := EncodeTo(&w, desc, buf, opts); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// DecodeBytes decodes the first frame of data with a known format.
func DecodeBytes(desc *Descriptor, data []byte, opts DecodeOptions) (*pixel.Buffer, FrameMeta, error) {
	if !desc.CanDecode() {
		return nil, FrameMeta{}, fmt.Errorf("codec: %s has no decoder: %w", desc.Name, pixel.ErrUnsupported)
	}
	dec, err := desc.NewDecoder(opts)
	if err != nil {
		return nil, FrameMeta{}, err
	}
	res, err := dec.Decode(data, true)
	if err != nil {
		return nil, FrameMeta{}, err
	}
	if res.Status != StatusFrame {
		return nil, FrameMeta{}, fmt.Errorf("codec: %s stream has no frames: %w", desc.Name, pixel.ErrCorrupt)
	}
	return res.Frame, res.Meta, nil
}

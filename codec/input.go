package codec

import (
	"fmt"

	"github.com/gogpu/imaging/internal/logging"
	"github.com/gogpu/imaging/pixel"
)

// compactThreshold is the consumed prefix size above which Compact moves
// the unread bytes to the front.
const compactThreshold = 64 << 10

// Input accumulates the bytes handed to a decoder. Slices returned by Peek
// and Next stay valid until the next Append or Compact.
type Input struct {
	buf []byte
	off int
	pos int64
	eof bool
}

// Append buffers a copy of p.
func (in *Input) Append(p []byte) {
	in.buf = append(in.buf, p...)
}

// SetEOF records that no more bytes follow.
func (in *Input) SetEOF() { in.eof = true }

// EOF reports whether the stream has ended.
func (in *Input) EOF() bool { return in.eof }

// Buffered returns the number of unread bytes.
func (in *Input) Buffered() int { return len(in.buf) - in.off }

// Bytes returns every unread byte without consuming it.
func (in *Input) Bytes() []byte { return in.buf[in.off:] }

// Offset returns the stream position of the next unread byte.
func (in *Input) Offset() int64 { return in.pos }

// Peek returns the next n bytes without consuming them. ok is false when
// fewer than n bytes are buffered.
func (in *Input) Peek(n int) (b []byte, ok bool) {
	if n < 0 || in.Buffered() < n {
		return nil, false
	}
	return in.buf[in.off : in.off+n], true
}

// Next consumes and returns the next n bytes. ok is false, and nothing is
// consumed, when fewer than n bytes are buffered.
func (in *Input) Next(n int) (b []byte, ok bool) {
	b, ok = in.Peek(n)
	if ok {
		in.off += n
		in.pos += int64(n)
	}
	return b, ok
}

// Skip consumes n bytes. It reports false, consuming nothing, when fewer
// than n bytes are buffered.
func (in *Input) Skip(n int) bool {
	_, ok := in.Next(n)
	return ok
}

// Discard consumes up to n bytes and returns how many were consumed. It
// lets decoders drop large regions without buffering them.
func (in *Input) Discard(n int64) int64 {
	k := min(int64(in.Buffered()), n)
	in.off += int(k)
	in.pos += k
	return k
}

// Compact releases consumed bytes.
func (in *Input) Compact() {
	if in.off == 0 {
		return
	}
	if in.off == len(in.buf) {
		in.buf = in.buf[:0]
		in.off = 0
		return
	}
	if in.off < compactThreshold {
		return
	}
	n := copy(in.buf, in.buf[in.off:])
	in.buf = in.buf[:n]
	in.off = 0
}

// Starved is the result of a decoder that cannot advance: NeedMoreInput
// while the stream continues, ErrTruncated once it has ended. what names the
// unit being waited for.
func Starved(in *Input, format, what string) (Result, error) {
	if !in.eof {
		return Result{Status: StatusNeedMoreInput}, nil
	}
	return Result{}, fmt.Errorf("%s: stream ends in %s at offset %d: %w", format, what, in.pos+int64(in.Buffered()), pixel.ErrTruncated)
}

// Stepper is the format-specific state machine behind a Decoder built by
// NewDecoder. Step advances over in and returns StatusNeedMoreInput when
// it needs more bytes, StatusFrame when a frame is complete (the decoder is
// then paused), or StatusDone when the stream has no more frames. Errors are
// final.
type Stepper interface {
	Step(in *Input) (Result, error)
}

type stepDecoder struct {
	format string
	s      Stepper
	in     Input
	paused bool
	done   bool
	// last is set once a partial frame ends the stream.
	last bool
	err  error
}

// NewDecoder wraps a Stepper in the pause, completion and failure
// discipline shared by every decoder.
func NewDecoder(format string, s Stepper) Decoder {
	return &stepDecoder{format: format, s: s}
}

func (d *stepDecoder) Decode(p []byte, eof bool) (Result, error) {
	if d.err != nil {
		return Result{}, d.err
	}
	if d.paused {
		return Result{}, fmt.Errorf("%s: decode while a frame is pending: %w", d.format, pixel.ErrInvalidArgument)
	}
	if d.done {
		return Result{Status: StatusDone}, nil
	}
	d.in.Append(p)
	if eof {
		d.in.SetEOF()
	}
	res, err := d.s.Step(&d.in)
	if err != nil {
		d.err = err
		logging.Logger().Debug("codec: decode failed", "format", d.format, "offset", d.in.Offset(), "err", err)
		return Result{}, err
	}
	switch res.Status {
	case StatusFrame:
		d.paused = true
		d.last = res.Partial
		logging.Logger().Debug("codec: frame", "format", d.format, "index", res.Meta.Index,
			"mode", res.Frame.Mode(), "width", res.Frame.Width(), "height", res.Frame.Height(),
			"partial", res.Partial)
	case StatusDone:
		d.done = true
	case StatusNeedMoreInput:
		if d.in.EOF() {
			d.err = fmt.Errorf("%s: stream ended at offset %d: %w", d.format, d.in.Offset(), pixel.ErrTruncated)
			return Result{}, d.err
		}
	}
	d.in.Compact()
	return res, nil
}

func (d *stepDecoder) NextFrame() error {
	if !d.paused {
		return fmt.Errorf("%s: no pending frame: %w", d.format, pixel.ErrInvalidArgument)
	}
	d.paused = false
	d.done = d.last
	return nil
}

// StarvedInFrame is Starved for a decoder that has begun filling frame. With
// AllowPartial set, the end of the stream yields frame marked Partial instead
// of ErrTruncated.
func StarvedInFrame(in *Input, opts DecodeOptions, format, what string, frame *pixel.Buffer, meta FrameMeta) (Result, error) {
	if !in.eof || !opts.AllowPartial || frame == nil {
		return Starved(in, format, what)
	}
	logging.Logger().Warn("codec: returning partial frame", "format", format, "at", what)
	return Result{Status: StatusFrame, Frame: frame, Meta: meta, Partial: true}, nil
}

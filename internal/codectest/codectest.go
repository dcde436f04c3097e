// Package codectest holds helpers shared by the format codec tests.
package codectest

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gogpu/imaging/codec"
	"github.com/gogpu/imaging/pixel"
)

// EncodeChunk is the output slice size Encode uses; it is odd so encoders
// are resumed in the middle of their records.
const EncodeChunk = 7

// Encode runs the encoder of d over buf with a small output slice.
func Encode(t testing.TB, d *codec.Descriptor, buf *pixel.Buffer, opts codec.EncodeOptions) []byte {
	t.Helper()
	require.NotNil(t, d.NewEncoder, "%s has no encoder", d.Name)
	enc, err := d.NewEncoder(buf, opts)
	require.NoError(t, err)
	var out []byte
	dst := make([]byte, EncodeChunk)
	for {
		p, err := enc.Encode(dst)
		require.NoError(t, err)
		require.LessOrEqual(t, p.Written, len(dst))
		out = append(out, dst[:p.Written]...)
		if p.Done {
			return out
		}
	}
}

// DecodeFrames feeds data to a new decoder step bytes at a time and returns
// every frame. A step of zero feeds everything at once.
func DecodeFrames(t testing.TB, d *codec.Descriptor, data []byte, step int, opts codec.DecodeOptions) ([]*pixel.Buffer, []codec.FrameMeta) {
	t.Helper()
	got, err := decodeFrames(d, data, step, opts)
	require.NoError(t, err)
	return got.frames, got.metas
}

type decoded struct {
	frames  []*pixel.Buffer
	metas   []codec.FrameMeta
	partial []bool
}

func decodeFrames(d *codec.Descriptor, data []byte, step int, opts codec.DecodeOptions) (decoded, error) {
	var got decoded
	dec, err := d.NewDecoder(opts)
	if err != nil {
		return got, err
	}
	if step <= 0 {
		step = max(len(data), 1)
	}
	for off := 0; ; off += step {
		end := min(off+step, len(data))
		var p []byte
		if off < len(data) {
			p = data[off:end]
		}
		eof := end >= len(data)
		res, err := dec.Decode(p, eof)
		for err == nil && res.Status == codec.StatusFrame {
			got.frames = append(got.frames, res.Frame)
			got.metas = append(got.metas, res.Meta)
			got.partial = append(got.partial, res.Partial)
			if err = dec.NextFrame(); err != nil {
				break
			}
			res, err = dec.Decode(nil, eof)
		}
		if err != nil {
			return got, err
		}
		if res.Status == codec.StatusDone {
			return got, nil
		}
		if eof {
			return got, fmt.Errorf("codectest: decoder wants input after eof")
		}
	}
}

// Decode returns the single frame of data, fed whole and then one byte at a
// time; both runs must agree.
func Decode(t testing.TB, d *codec.Descriptor, data []byte, opts codec.DecodeOptions) (*pixel.Buffer, codec.FrameMeta) {
	t.Helper()
	whole, metas := DecodeFrames(t, d, data, 0, opts)
	require.NotEmpty(t, whole, "%s: no frame", d.Name)
	bytewise, _ := DecodeFrames(t, d, data, 1, opts)
	require.Len(t, bytewise, len(whole))
	for i := range whole {
		require.True(t, whole[i].Equal(bytewise[i]), "%s: frame %d differs when fed byte by byte", d.Name, i)
	}
	return whole[0], metas[0]
}

// RoundTrip encodes buf and decodes it again, requiring an equal buffer.
func RoundTrip(t testing.TB, d *codec.Descriptor, buf *pixel.Buffer, opts codec.EncodeOptions) []byte {
	t.Helper()
	data := Encode(t, d, buf, opts)
	got, _ := Decode(t, d, data, codec.DecodeOptions{})
	require.Equal(t, buf.Mode(), got.Mode(), "%s: mode", d.Name)
	require.Equal(t, buf.Width(), got.Width(), "%s: width", d.Name)
	require.Equal(t, buf.Height(), got.Height(), "%s: height", d.Name)
	require.Equal(t, buf.Data(), got.Data(), "%s: pixels", d.Name)
	if buf.Mode().IsIndexed() {
		require.True(t, buf.Palette().Equal(got.Palette()), "%s: palette", d.Name)
	}
	return data
}

// TruncationSweep decodes every proper prefix of data. Before the end of
// the stream a prefix may only ask for more input. At the end it must fail
// with ErrTruncated or ErrCorrupt, or yield leading frames equal to those of
// the whole stream; only with AllowPartial may a frame differ, and then it
// must be marked Partial.
func TruncationSweep(t *testing.T, d *codec.Descriptor, data []byte) {
	t.Helper()
	full, err := decodeFrames(d, data, 0, codec.DecodeOptions{})
	require.NoError(t, err)
	for n := range len(data) {
		dec, err := d.NewDecoder(codec.DecodeOptions{})
		require.NoError(t, err)
		res, err := dec.Decode(data[:n], false)
		for err == nil && res.Status == codec.StatusFrame {
			require.NoError(t, dec.NextFrame())
			res, err = dec.Decode(nil, false)
		}
		if err != nil {
			require.Falsef(t, errors.Is(err, pixel.ErrTruncated), "%s: prefix %d truncated before eof", d.Name, n)
			require.Truef(t, errors.Is(err, pixel.ErrCorrupt), "%s: prefix %d: %v", d.Name, n, err)
			continue
		}
		for _, opts := range []codec.DecodeOptions{{}, {AllowPartial: true}} {
			got, err := decodeFrames(d, data[:n], 0, opts)
			if err != nil {
				require.Truef(t, errors.Is(err, pixel.ErrTruncated) || errors.Is(err, pixel.ErrCorrupt),
					"%s: prefix %d of %d: %v", d.Name, n, len(data), err)
				continue
			}
			require.NotEmptyf(t, got.frames, "%s: prefix %d of %d decodes to no frames", d.Name, n, len(data))
			require.LessOrEqual(t, len(got.frames), len(full.frames))
			for i, f := range got.frames {
				if got.partial[i] {
					require.Truef(t, opts.AllowPartial, "%s: prefix %d: partial frame %d without AllowPartial", d.Name, n, i)
					continue
				}
				require.Truef(t, f.Equal(full.frames[i]),
					"%s: prefix %d of %d: frame %d differs and is not marked partial", d.Name, n, len(data), i)
			}
		}
	}
}

// Filled returns a buffer of mode whose bytes follow a simple pattern valid
// for the mode.
func Filled(t testing.TB, mode pixel.Mode, w, h int) *pixel.Buffer {
	t.Helper()
	buf, err := pixel.Allocate(mode, w, h)
	require.NoError(t, err)
	for y := range h {
		for x := range w {
			var p pixel.Pixel
			for b := range mode.Bands() {
				p[b] = float64((x*31 + y*17 + b*71) % 256)
			}
			switch mode {
			case pixel.Mode1:
				p[0] = float64(((x ^ y) & 1) * 255)
			case pixel.ModeI16:
				p[0] = float64((x*3001 + y*7) % 65536)
			case pixel.ModeI:
				p[0] = float64(x*100003 - y*77777)
			case pixel.ModeF:
				p[0] = float64(x) - float64(y)/4
			}
			require.NoError(t, buf.SetPixel(x, y, p))
		}
	}
	return buf
}

package raw

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gogpu/imaging/codec"
	"github.com/gogpu/imaging/internal/codectest"
	"github.com/gogpu/imaging/pixel"
)

var desc = Descriptor()

func hinted(mode pixel.Mode, w, h int, raw string) codec.DecodeOptions {
	return codec.DecodeOptions{Hint: &codec.Hint{Mode: mode, Width: w, Height: h, RawMode: raw}}
}

func TestRoundTripEveryMode(t *testing.T) {
	for _, mode := range pixel.Modes() {
		t.Run(mode.String(), func(t *testing.T) {
			buf := codectest.Filled(t, mode, 11, 3)
			data := codectest.Encode(t, &desc, buf, codec.EncodeOptions{})
			require.Len(t, data, len(buf.Data()))
			got, _ := codectest.Decode(t, &desc, data, hinted(mode, 11, 3, ""))
			require.True(t, buf.Equal(got))
		})
	}
}

func TestRawModes(t *testing.T) {
	tests := []struct {
		name string
		mode pixel.Mode
		raw  string
		data []byte
		want []byte
	}{
		{"BGR", pixel.ModeRGB, "BGR", []byte{1, 2, 3, 4, 5, 6}, []byte{3, 2, 1, 6, 5, 4}},
		{"BGRA", pixel.ModeRGBA, "BGRA", []byte{1, 2, 3, 4, 5, 6, 7, 8}, []byte{3, 2, 1, 4, 7, 6, 5, 8}},
		{"L;16B", pixel.ModeL, "L;16B", []byte{0xAB, 0x00, 0xCD, 0xFF}, []byte{0xAB, 0xCD}},
		{"I;16B", pixel.ModeI16, "I;16B", []byte{0x12, 0x34, 0x56, 0x78}, []byte{0x34, 0x12, 0x78, 0x56}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := codectest.Decode(t, &desc, tt.data, hinted(tt.mode, 2, 1, tt.raw))
			require.Equal(t, tt.want, got.Data())
		})
	}
}

func TestEncodeRawMode(t *testing.T) {
	buf, err := pixel.FromBytes(pixel.ModeRGB, 1, 1, []byte{1, 2, 3})
	require.NoError(t, err)
	data := codectest.Encode(t, &desc, buf, codec.EncodeOptions{RawMode: "BGR"})
	require.Equal(t, []byte{3, 2, 1}, data)

	_, err = NewEncoder(buf, codec.EncodeOptions{RawMode: "YCC"})
	require.ErrorIs(t, err, pixel.ErrUnsupported)
}

func TestDecoderNeedsHint(t *testing.T) {
	_, err := NewDecoder(codec.DecodeOptions{})
	require.ErrorIs(t, err, pixel.ErrInvalidArgument)
	_, err = NewDecoder(hinted(pixel.ModeL, 0, 1, ""))
	require.ErrorIs(t, err, pixel.ErrInvalidArgument)
	_, err = NewDecoder(hinted(pixel.ModeL, 1, 1, "RGB"))
	require.ErrorIs(t, err, pixel.ErrUnsupported)
}

func TestNotSniffed(t *testing.T) {
	reg, err := codec.NewRegistry(desc)
	require.NoError(t, err)
	_, err = reg.Detect([]byte{0, 0, 0, 0})
	require.ErrorIs(t, err, pixel.ErrUnknownFormat)
}

func TestTruncated(t *testing.T) {
	dec, err := NewDecoder(hinted(pixel.ModeRGB, 2, 2, ""))
	require.NoError(t, err)
	_, err = dec.Decode(make([]byte, 11), true)
	require.ErrorIs(t, err, pixel.ErrTruncated)

	dec, err = NewDecoder(codec.DecodeOptions{AllowPartial: true, Hint: &codec.Hint{Mode: pixel.ModeL, Width: 2, Height: 2}})
	require.NoError(t, err)
	res, err := dec.Decode([]byte{7, 8, 9}, true)
	require.NoError(t, err)
	require.True(t, res.Partial)
	require.Equal(t, []byte{7, 8, 0, 0}, res.Frame.Data())
}

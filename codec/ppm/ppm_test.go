package ppm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gogpu/imaging/codec"
	"github.com/gogpu/imaging/internal/codectest"
	"github.com/gogpu/imaging/pixel"
)

var desc = Descriptor()

func TestDecodeTwoByTwoRGB(t *testing.T) {
	data := append([]byte("P6\n2 2\n255\n"),
		255, 0, 0, 0, 255, 0,
		0, 0, 255, 255, 255, 255)
	buf, _ := codectest.Decode(t, &desc, data, codec.DecodeOptions{})
	require.Equal(t, pixel.ModeRGB, buf.Mode())
	want := [][]pixel.Pixel{
		{pixel.RGB(255, 0, 0), pixel.RGB(0, 255, 0)},
		{pixel.RGB(0, 0, 255), pixel.RGB(255, 255, 255)},
	}
	for y, row := range want {
		for x, p := range row {
			got, err := buf.GetPixel(x, y)
			require.NoError(t, err)
			require.Equal(t, p, got, "pixel (%d,%d)", x, y)
		}
	}
}

func TestDecodePlain(t *testing.T) {
	tests := []struct {
		name string
		data string
		mode pixel.Mode
		want []byte
	}{
		{"P1 packed digits", "P1\n# bitmap\n3 1\n011", pixel.Mode1, []byte{0x80}},
		{"P1 separated", "P1 3 1 0 1 1\n", pixel.Mode1, []byte{0x80}},
		{"P2 rescaled", "P2\n2 1\n15\n0 15\n", pixel.ModeL, []byte{0, 255}},
		{"P2 wide", "P2 1 1 1000 500", pixel.ModeI16, []byte{0x00, 0x80}},
		{"P3", "P3 1 1 255 1 2 3", pixel.ModeRGB, []byte{1, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, _ := codectest.Decode(t, &desc, []byte(tt.data), codec.DecodeOptions{})
			require.Equal(t, tt.mode, buf.Mode())
			require.Equal(t, tt.want, buf.Data())
		})
	}
}

func TestDecodeRawVariants(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		mode pixel.Mode
		want []byte
	}{
		{"P4", append([]byte("P4 10 1\n"), 0x0F, 0xC0), pixel.Mode1, []byte{0xF0, 0x00}},
		{"P5 maxval 3", append([]byte("P5 2 1 3\n"), 1, 3), pixel.ModeL, []byte{85, 255}},
		{"P5 16-bit", append([]byte("P5 1 1 65535\n"), 0x12, 0x34), pixel.ModeI16, []byte{0x34, 0x12}},
		{"P6 16-bit", append([]byte("P6 1 1 65535\n"), 0xFF, 0xFF, 0, 0, 0x80, 0x00), pixel.ModeRGB, []byte{255, 0, 128}},
		{"comment before maxval", append([]byte("P5 1 1 # note\n255\n"), 9), pixel.ModeL, []byte{9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, _ := codectest.Decode(t, &desc, tt.data, codec.DecodeOptions{})
			require.Equal(t, tt.mode, buf.Mode())
			require.Equal(t, tt.want, buf.Data())
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"bad magic", "P9 1 1 255\n\x00", pixel.ErrCorrupt},
		{"zero width", "P5 0 1 255\n", pixel.ErrCorrupt},
		{"bad maxval", "P5 1 1 70000\n\x00", pixel.ErrCorrupt},
		{"letters", "P5 a 1 255\n", pixel.ErrCorrupt},
		{"sample above maxval", "P2 1 1 7 9\n", pixel.ErrCorrupt},
		{"short raster", "P5 2 2 255\n\x01\x02\x03", pixel.ErrTruncated},
		{"huge", "P5 100000 100000 255\n", pixel.ErrResourceExhausted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec, err := desc.NewDecoder(codec.DecodeOptions{})
			require.NoError(t, err)
			_, err = dec.Decode([]byte(tt.data), true)
			require.True(t, errors.Is(err, tt.want), "error = %v, want %v", err, tt.want)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	for _, mode := range []pixel.Mode{pixel.Mode1, pixel.ModeL, pixel.ModeI16, pixel.ModeRGB} {
		t.Run(mode.String(), func(t *testing.T) {
			for _, size := range [][2]int{{1, 1}, {9, 3}, {16, 5}} {
				codectest.RoundTrip(t, &desc, codectest.Filled(t, mode, size[0], size[1]), codec.EncodeOptions{})
			}
		})
	}
}

func TestEncodeHeader(t *testing.T) {
	buf, err := pixel.FromBytes(pixel.ModeL, 2, 1, []byte{7, 8})
	require.NoError(t, err)
	data := codectest.Encode(t, &desc, buf, codec.EncodeOptions{})
	require.Equal(t, "P5\n2 1\n255\n\x07\x08", string(data))
}

func TestEncodeUnsupportedMode(t *testing.T) {
	buf, err := pixel.Allocate(pixel.ModeCMYK, 1, 1)
	require.NoError(t, err)
	_, err = desc.NewEncoder(buf, codec.EncodeOptions{})
	require.ErrorIs(t, err, pixel.ErrUnsupported)
}

func TestTruncation(t *testing.T) {
	buf := codectest.Filled(t, pixel.ModeRGB, 4, 3)
	codectest.TruncationSweep(t, &desc, codectest.Encode(t, &desc, buf, codec.EncodeOptions{}))
	codectest.TruncationSweep(t, &desc, []byte("P2 2 2 255 1 2 3 4\n"))
}

func TestPartial(t *testing.T) {
	dec, err := desc.NewDecoder(codec.DecodeOptions{AllowPartial: true})
	require.NoError(t, err)
	res, err := dec.Decode([]byte("P5 2 2 255\n\x01\x02\x03"), true)
	require.NoError(t, err)
	require.Equal(t, codec.StatusFrame, res.Status)
	require.True(t, res.Partial)
	require.Equal(t, []byte{1, 2, 0, 0}, res.Frame.Data())
}

func TestSniff(t *testing.T) {
	require.True(t, sniff([]byte("P6\n")))
	require.True(t, sniff([]byte("P1 ")))
	require.False(t, sniff([]byte("P7\n")))
	require.False(t, sniff([]byte("P6x")))
}

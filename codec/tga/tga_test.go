package tga

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gogpu/imaging/codec"
	"github.com/gogpu/imaging/internal/codectest"
	"github.com/gogpu/imaging/pixel"
)

var desc = Descriptor()

func hdr(imageType, depth, w, h, descByte byte) []byte {
	return []byte{0, 0, imageType, 0, 0, 0, 0, 0, 0, 0, 0, 0, w, 0, h, 0, depth, descByte}
}

func TestDecodeTrueColorBottomUp(t *testing.T) {
	data := append(hdr(typeTrueColor, 24, 2, 2, 0),
		255, 0, 0, 255, 255, 255, // bottom: blue, white
		0, 0, 255, 0, 255, 0, // top: red, green
	)
	buf, meta := codectest.Decode(t, &desc, data, codec.DecodeOptions{})
	require.Equal(t, "raw", meta.Compression)
	require.Equal(t, []byte{255, 0, 0, 0, 255, 0, 0, 0, 255, 255, 255, 255}, buf.Data())
}

func TestDecodeRightToLeft(t *testing.T) {
	data := append(hdr(typeGray, 8, 3, 1, descTop|descRight), 1, 2, 3)
	buf, _ := codectest.Decode(t, &desc, data, codec.DecodeOptions{})
	require.Equal(t, []byte{3, 2, 1}, buf.Data())
}

func TestDecodeRLEAcrossRows(t *testing.T) {
	data := append(hdr(typeRLE|typeGray, 8, 3, 2, descTop),
		0x83, 7, // four of 7, spilling into row 1
		0x01, 8, 9, // raw 8, 9
	)
	buf, meta := codectest.Decode(t, &desc, data, codec.DecodeOptions{})
	require.Equal(t, "rle", meta.Compression)
	require.Equal(t, []byte{7, 7, 7, 7, 8, 9}, buf.Data())
}

func TestDecodeColorMapped(t *testing.T) {
	h := hdr(typeColorMapped, 8, 3, 1, descTop)
	h[0] = 2  // ID length
	h[1] = 1  // color map present
	h[3] = 1  // first entry
	h[5] = 2  // entries
	h[7] = 24 // entry depth
	data := append(h, 'h', 'i')
	data = append(data, 0, 0, 255, 0, 255, 0) // red, green
	data = append(data, 1, 2, 0)
	buf, meta := codectest.Decode(t, &desc, data, codec.DecodeOptions{})
	require.Equal(t, pixel.ModeP, buf.Mode())
	require.Equal(t, []byte{1, 2, 0}, buf.Data())
	require.Equal(t, 3, buf.Palette().Len())
	require.Equal(t, pixel.Color{R: 255, A: 255}, buf.Palette().At(1))
	require.Equal(t, "hi", meta.Text["id"])

	data[len(data)-1] = 3
	_, _, err := codec.DecodeBytes(&desc, data, codec.DecodeOptions{})
	require.ErrorIs(t, err, pixel.ErrCorrupt)
}

func TestDecodeSixteenBit(t *testing.T) {
	buf, _ := codectest.Decode(t, &desc, append(hdr(typeTrueColor, 16, 1, 1, descTop), 0x00, 0x7C), codec.DecodeOptions{})
	require.Equal(t, pixel.ModeRGB, buf.Mode())
	require.Equal(t, []byte{255, 0, 0}, buf.Data())

	buf, _ = codectest.Decode(t, &desc, append(hdr(typeTrueColor, 16, 1, 1, descTop|1), 0x1F, 0x80), codec.DecodeOptions{})
	require.Equal(t, pixel.ModeRGBA, buf.Mode())
	require.Equal(t, []byte{0, 0, 255, 255}, buf.Data())
}

func TestSniff(t *testing.T) {
	require.True(t, sniff(hdr(typeTrueColor, 24, 1, 1, 0)))
	require.True(t, sniff(hdr(typeRLE|typeGray, 8, 1, 1, 0)))
	require.False(t, sniff(hdr(typeTrueColor, 12, 1, 1, 0)))
	require.False(t, sniff(hdr(typeColorMapped, 8, 1, 1, 0)), "color-mapped without a map")
	require.False(t, sniff([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\x0dIHDR\x00\x00")))
	require.False(t, sniff([]byte{0, 0, 2}))
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"bad type", hdr(5, 8, 1, 1, 0), pixel.ErrCorrupt},
		{"zero height", hdr(typeGray, 8, 1, 0, 0), pixel.ErrCorrupt},
		{"short", append(hdr(typeGray, 8, 2, 2, 0), 1, 2, 3), pixel.ErrTruncated},
		{"short rle", append(hdr(typeRLE|typeGray, 8, 2, 2, 0), 0x81, 1), pixel.ErrTruncated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := codec.DecodeBytes(&desc, tt.data, codec.DecodeOptions{})
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	for _, rle := range []bool{false, true} {
		for _, mode := range []pixel.Mode{pixel.ModeL, pixel.ModeLA, pixel.ModeP, pixel.ModeRGB, pixel.ModeRGBA} {
			t.Run(mode.String(), func(t *testing.T) {
				opts := codec.EncodeOptions{RLE: rle, Text: map[string]string{"id": "test"}}
				codectest.RoundTrip(t, &desc, codectest.Filled(t, mode, 7, 3), opts)

				flat, err := pixel.Allocate(mode, 300, 2)
				require.NoError(t, err)
				codectest.RoundTrip(t, &desc, flat, opts)
			})
		}
	}
}

func TestRoundTripPaletteAlpha(t *testing.T) {
	buf, err := pixel.Allocate(pixel.ModeP, 2, 1)
	require.NoError(t, err)
	pal, err := pixel.NewPalette([]pixel.Color{{R: 1, A: 0}, {G: 2, A: 128}})
	require.NoError(t, err)
	require.NoError(t, buf.SetPalette(pal))
	require.NoError(t, buf.SetPixel(1, 0, pixel.Gray(1)))
	codectest.RoundTrip(t, &desc, buf, codec.EncodeOptions{})
}

func TestRLEPackets(t *testing.T) {
	got := appendRLE(nil, []byte{1, 1, 1, 2, 3, 4, 4}, 1)
	require.Equal(t, []byte{0x82, 1, 0x01, 2, 3, 0x81, 4}, got)
}

func TestEncodeFooter(t *testing.T) {
	buf, err := pixel.Allocate(pixel.ModeL, 1, 1)
	require.NoError(t, err)
	data := codectest.Encode(t, &desc, buf, codec.EncodeOptions{})
	require.Len(t, data, headerLen+1+26)
	require.Equal(t, footer, string(data[len(data)-len(footer):]))
}

func TestTruncation(t *testing.T) {
	for _, rle := range []bool{false, true} {
		data := codectest.Encode(t, &desc, codectest.Filled(t, pixel.ModeRGB, 4, 3), codec.EncodeOptions{RLE: rle})
		codectest.TruncationSweep(t, &desc, data)
	}
}

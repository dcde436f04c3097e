package pcx

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gogpu/imaging/codec"
	"github.com/gogpu/imaging/internal/codectest"
	"github.com/gogpu/imaging/pixel"
)

var desc = Descriptor()

func hdr(bits, planes byte, w, h, bpl int, colormap []byte) []byte {
	b := make([]byte, headerLen)
	b[0], b[1], b[2], b[3] = 0x0a, 5, 1, bits
	binary.LittleEndian.PutUint16(b[8:], uint16(w-1))
	binary.LittleEndian.PutUint16(b[10:], uint16(h-1))
	copy(b[16:64], colormap)
	b[65] = planes
	binary.LittleEndian.PutUint16(b[66:], uint16(bpl))
	return b
}

func TestDecodeRGBPlanes(t *testing.T) {
	data := append(hdr(8, 3, 2, 1, 2, nil),
		0xc2, 10, // R plane: run of two
		20, 21, // G plane literals
		0xc1, 0xff, // B plane: 0xff as a run of one
		0xc1, 0xff,
	)
	buf, meta := codectest.Decode(t, &desc, data, codec.DecodeOptions{})
	require.Equal(t, "rle", meta.Compression)
	require.Equal(t, []byte{10, 20, 255, 10, 21, 255}, buf.Data())
}

func TestDecodeRunAcrossLines(t *testing.T) {
	// Lines are six bytes; the first run also fills the R plane of line 1.
	data := append(hdr(8, 3, 1, 2, 2, nil), 0xc8, 7, 0xc4, 8)
	buf, _ := codectest.Decode(t, &desc, data, codec.DecodeOptions{})
	require.Equal(t, []byte{7, 7, 7, 7, 8, 8}, buf.Data())
}

func TestDecodeFourPlanes(t *testing.T) {
	cm := make([]byte, 48)
	for i := range 16 {
		cm[3*i] = byte(i * 16)
	}
	// Pixel 0 has bits in planes 0 and 2, pixel 1 in plane 3.
	data := append(hdr(1, 4, 2, 1, 2, cm), 0x80, 0, 0, 0, 0x80, 0, 0x40, 0)
	buf, _ := codectest.Decode(t, &desc, data, codec.DecodeOptions{})
	require.Equal(t, pixel.ModeP, buf.Mode())
	require.Equal(t, []byte{5, 8}, buf.Data())
	require.Equal(t, pixel.Color{R: 80, A: 255}, buf.Palette().At(5))
}

func TestDecodeEightBitPalette(t *testing.T) {
	data := append(hdr(8, 1, 2, 1, 2, nil), 0, 1)
	data = append(data, vgaMarker)
	pal := make([]byte, 768)
	pal[3], pal[4], pal[5] = 9, 8, 7
	data = append(data, pal...)
	buf, _ := codectest.Decode(t, &desc, data, codec.DecodeOptions{})
	require.Equal(t, pixel.ModeP, buf.Mode())
	require.Equal(t, []byte{0, 1}, buf.Data())
	require.Equal(t, pixel.Color{R: 9, G: 8, B: 7, A: 255}, buf.Palette().At(1))

	// Without a trailing palette the image is grayscale.
	buf, _ = codectest.Decode(t, &desc, append(hdr(8, 1, 2, 1, 2, nil), 5, 6), codec.DecodeOptions{})
	require.Equal(t, pixel.ModeL, buf.Mode())
	require.Equal(t, []byte{5, 6}, buf.Data())
}

func TestDecodeErrors(t *testing.T) {
	bad := hdr(8, 1, 4, 1, 2, nil)
	_, _, err := codec.DecodeBytes(&desc, bad, codec.DecodeOptions{})
	require.ErrorIs(t, err, pixel.ErrCorrupt)

	_, _, err = codec.DecodeBytes(&desc, hdr(8, 2, 1, 1, 2, nil), codec.DecodeOptions{})
	require.ErrorIs(t, err, pixel.ErrUnsupported)

	_, _, err = codec.DecodeBytes(&desc, append(hdr(8, 3, 2, 2, 2, nil), 0xc4, 1), codec.DecodeOptions{})
	require.ErrorIs(t, err, pixel.ErrTruncated)
}

func TestRoundTrip(t *testing.T) {
	for _, mode := range []pixel.Mode{pixel.Mode1, pixel.ModeL, pixel.ModeRGB} {
		t.Run(mode.String(), func(t *testing.T) {
			for _, w := range []int{1, 8, 13, 200} {
				codectest.RoundTrip(t, &desc, codectest.Filled(t, mode, w, 3), codec.EncodeOptions{})
			}
		})
	}
	t.Run("P", func(t *testing.T) {
		colors := make([]pixel.Color, 256)
		for i := range colors {
			colors[i] = pixel.Color{R: uint8(255 - i), G: uint8(i / 2), B: 3, A: 255}
		}
		pal, err := pixel.NewPalette(colors)
		require.NoError(t, err)
		buf := codectest.Filled(t, pixel.ModeP, 9, 4)
		require.NoError(t, buf.SetPalette(pal))
		codectest.RoundTrip(t, &desc, buf, codec.EncodeOptions{})
	})
}

func TestRLE(t *testing.T) {
	got := appendRLE(nil, []byte{1, 1, 1, 2, 0xc5, 0xc5})
	require.Equal(t, []byte{0xc3, 1, 2, 0xc2, 0xc5}, got)

	long := make([]byte, 70)
	require.Equal(t, []byte{0xc0 | 63, 0, 0xc7, 0}, appendRLE(nil, long))
}

func TestTruncation(t *testing.T) {
	codectest.TruncationSweep(t, &desc, codectest.Encode(t, &desc, codectest.Filled(t, pixel.ModeRGB, 5, 3), codec.EncodeOptions{}))
}

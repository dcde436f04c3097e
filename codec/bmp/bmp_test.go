package bmp

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"
	xbmp "golang.org/x/image/bmp"

	"github.com/gogpu/imaging/codec"
	"github.com/gogpu/imaging/internal/codectest"
	"github.com/gogpu/imaging/pixel"
)

var desc = Descriptor()

// file builds a bitmap with an INFO header. Masks follow the header and the
// palette follows the masks.
func file(w, h int32, bpp uint16, comp uint32, masks []uint32, pal []pixel.Color, data []byte) []byte {
	offset := fileHeaderLen + infoHeaderLen + 4*len(masks) + 4*len(pal)
	var b bytes.Buffer
	le := binary.LittleEndian
	b.WriteString("BM")
	_ = binary.Write(&b, le, uint32(offset+len(data)))
	_ = binary.Write(&b, le, uint32(0))
	_ = binary.Write(&b, le, uint32(offset))
	for _, v := range []any{
		uint32(infoHeaderLen), w, h, uint16(1), bpp, comp,
		uint32(len(data)), int32(0), int32(0), uint32(len(pal)), uint32(0),
	} {
		_ = binary.Write(&b, le, v)
	}
	_ = binary.Write(&b, le, masks)
	for _, c := range pal {
		b.Write([]byte{c.B, c.G, c.R, 0})
	}
	b.Write(data)
	return b.Bytes()
}

var threeColors = []pixel.Color{
	{R: 255, A: 255},
	{G: 255, A: 255},
	{B: 255, A: 255},
}

func TestDecode24BitBottomUp(t *testing.T) {
	data := []byte{
		// bottom row: blue, white, padding
		255, 0, 0, 255, 255, 255, 0, 0,
		// top row: red, green, padding
		0, 0, 255, 0, 255, 0, 0, 0,
	}
	buf, meta := codectest.Decode(t, &desc, file(2, 2, 24, biRGB, nil, nil, data), codec.DecodeOptions{})
	require.Equal(t, pixel.ModeRGB, buf.Mode())
	require.Equal(t, "raw", meta.Compression)
	require.Equal(t, []byte{255, 0, 0, 0, 255, 0, 0, 0, 255, 255, 255, 255}, buf.Data())

	top, _ := codectest.Decode(t, &desc, file(2, -2, 24, biRGB, nil, nil, data), codec.DecodeOptions{})
	require.Equal(t, []byte{0, 0, 255, 255, 255, 255, 255, 0, 0, 0, 255, 0}, top.Data())
}

func TestDecodePaletteModes(t *testing.T) {
	bw := []pixel.Color{{A: 255}, {R: 255, G: 255, B: 255, A: 255}}
	buf, _ := codectest.Decode(t, &desc, file(3, 1, 1, biRGB, nil, bw, []byte{0xA0, 0, 0, 0}), codec.DecodeOptions{})
	require.Equal(t, pixel.Mode1, buf.Mode())
	require.Equal(t, []byte{0xA0}, buf.Data())

	buf, _ = codectest.Decode(t, &desc, file(3, 1, 4, biRGB, nil, threeColors, []byte{0x21, 0x00, 0, 0}), codec.DecodeOptions{})
	require.Equal(t, pixel.ModeP, buf.Mode())
	require.Equal(t, []byte{2, 1, 0}, buf.Data())
	require.Equal(t, 3, buf.Palette().Len())
	require.Equal(t, pixel.Color{B: 255, A: 255}, buf.Palette().At(2))

	_, _, err := codec.DecodeBytes(&desc, file(1, 1, 8, biRGB, nil, threeColors, []byte{3, 0, 0, 0}), codec.DecodeOptions{})
	require.ErrorIs(t, err, pixel.ErrCorrupt)
}

func TestDecodeRLE8(t *testing.T) {
	rle := []byte{
		3, 1, 0, 0, // three of 1, end of line
		0, 3, 2, 0, 1, 0, // absolute 2,0,1 padded
		0, 1, // end of bitmap
	}
	buf, meta := codectest.Decode(t, &desc, file(4, 2, 8, biRLE8, nil, threeColors, rle), codec.DecodeOptions{})
	require.Equal(t, "rle8", meta.Compression)
	require.Equal(t, []byte{2, 0, 1, 0, 1, 1, 1, 0}, buf.Data())
}

func TestDecodeRLE8Delta(t *testing.T) {
	rle := []byte{
		0, 2, 1, 1, // move right 1 and up 1
		2, 2, // two of 2
		0, 1,
	}
	buf, _ := codectest.Decode(t, &desc, file(3, 2, 8, biRLE8, nil, threeColors, rle), codec.DecodeOptions{})
	require.Equal(t, []byte{0, 2, 2, 0, 0, 0}, buf.Data())
}

func TestDecodeRLE4(t *testing.T) {
	rle := []byte{
		4, 0x12, // 1,2,1,2
		0, 3, 0x21, 0x00, // absolute 2,1,0 padded
		0, 1,
	}
	buf, _ := codectest.Decode(t, &desc, file(7, 1, 4, biRLE4, nil, threeColors, rle), codec.DecodeOptions{})
	require.Equal(t, []byte{1, 2, 1, 2, 2, 1, 0}, buf.Data())
}

func TestDecodeSixteenBit(t *testing.T) {
	buf, _ := codectest.Decode(t, &desc, file(2, 1, 16, biRGB, nil, nil, []byte{0x00, 0x7C, 0x1F, 0x00}), codec.DecodeOptions{})
	require.Equal(t, []byte{255, 0, 0, 0, 0, 255}, buf.Data())

	masks := []uint32{0xF800, 0x07E0, 0x001F}
	buf, meta := codectest.Decode(t, &desc, file(2, 1, 16, biBitFields, masks, nil, []byte{0xE0, 0x07, 0x10, 0x84}), codec.DecodeOptions{})
	require.Equal(t, "bitfields", meta.Compression)
	require.Equal(t, []byte{0, 255, 0, 132, 130, 132}, buf.Data())
}

func TestDecodeAlphaBitFields(t *testing.T) {
	masks := []uint32{0x000000FF, 0x0000FF00, 0x00FF0000, 0xFF000000}
	buf, _ := codectest.Decode(t, &desc, file(1, 1, 32, biAlphaBitFields, masks, nil, []byte{1, 2, 3, 4}), codec.DecodeOptions{})
	require.Equal(t, pixel.ModeRGBA, buf.Mode())
	require.Equal(t, []byte{1, 2, 3, 4}, buf.Data())
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"bad magic", append([]byte("XX"), file(1, 1, 24, biRGB, nil, nil, make([]byte, 4))[2:]...), pixel.ErrCorrupt},
		{"rle8 at 24 bpp", file(1, 1, 24, biRLE8, nil, nil, make([]byte, 4)), pixel.ErrCorrupt},
		{"jpeg payload", file(1, 1, 24, 4, nil, nil, make([]byte, 4)), pixel.ErrUnsupported},
		{"zero width", file(0, 1, 24, biRGB, nil, nil, nil), pixel.ErrCorrupt},
		{"too many colors", file(1, 1, 1, biRGB, nil, threeColors, make([]byte, 4)), pixel.ErrCorrupt},
		{"rle index", file(2, 1, 8, biRLE8, nil, threeColors, []byte{2, 9, 0, 1}), pixel.ErrCorrupt},
		{"short pixels", file(2, 2, 24, biRGB, nil, nil, make([]byte, 10)), pixel.ErrTruncated},
		{"huge", file(1<<20, 1<<20, 24, biRGB, nil, nil, nil), pixel.ErrResourceExhausted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := codec.DecodeBytes(&desc, tt.data, codec.DecodeOptions{})
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	for _, mode := range []pixel.Mode{pixel.Mode1, pixel.ModeL, pixel.ModeRGB, pixel.ModeRGBA} {
		t.Run(mode.String(), func(t *testing.T) {
			for _, w := range []int{1, 3, 9, 33} {
				codectest.RoundTrip(t, &desc, codectest.Filled(t, mode, w, 4), codec.EncodeOptions{})
			}
		})
	}
	t.Run("P", func(t *testing.T) {
		buf, err := pixel.Allocate(pixel.ModeP, 5, 2)
		require.NoError(t, err)
		pal, err := pixel.NewPalette(threeColors)
		require.NoError(t, err)
		require.NoError(t, buf.SetPalette(pal))
		for x := range 5 {
			require.NoError(t, buf.SetPixel(x, 1, pixel.Gray(float64(x%3))))
		}
		codectest.RoundTrip(t, &desc, buf, codec.EncodeOptions{})
	})
}

func TestEncodeUnsupported(t *testing.T) {
	buf, err := pixel.Allocate(pixel.ModeCMYK, 1, 1)
	require.NoError(t, err)
	_, err = NewEncoder(buf, codec.EncodeOptions{})
	require.ErrorIs(t, err, pixel.ErrUnsupported)
}

func TestTruncation(t *testing.T) {
	codectest.TruncationSweep(t, &desc, codectest.Encode(t, &desc, codectest.Filled(t, pixel.ModeRGB, 3, 2), codec.EncodeOptions{}))
	codectest.TruncationSweep(t, &desc, file(4, 2, 8, biRLE8, nil, threeColors, []byte{3, 1, 0, 0, 0, 3, 2, 0, 1, 0, 0, 1}))
}

func TestDecodeXImageBMP(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 5, 3))
	gray := image.NewGray(image.Rect(0, 0, 5, 3))
	for y := range 3 {
		for x := range 5 {
			src.Set(x, y, color.RGBA{uint8(x * 50), uint8(y * 80), 7, 255})
			gray.SetGray(x, y, color.Gray{uint8(x*40 + y)})
		}
	}

	var b bytes.Buffer
	require.NoError(t, xbmp.Encode(&b, src))
	buf, _ := codectest.Decode(t, &desc, b.Bytes(), codec.DecodeOptions{})
	require.Equal(t, pixel.ModeRGB, buf.Mode())
	for y := range 3 {
		for x := range 5 {
			require.Equal(t, pixel.RGB(float64(x*50), float64(y*80), 7), buf.At(x, y))
		}
	}

	b.Reset()
	require.NoError(t, xbmp.Encode(&b, gray))
	buf, _ = codectest.Decode(t, &desc, b.Bytes(), codec.DecodeOptions{})
	require.Equal(t, pixel.ModeL, buf.Mode())
	require.Equal(t, gray.Pix, buf.Data())
}

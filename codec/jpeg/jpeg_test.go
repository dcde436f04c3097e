package jpeg

import (
	"bytes"
	"image"
	"image/color"
	stdjpeg "image/jpeg"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gogpu/imaging/codec"
	"github.com/gogpu/imaging/internal/codectest"
	"github.com/gogpu/imaging/pixel"
)

var desc = Descriptor()

func stdEncode(t *testing.T, img image.Image) []byte {
	t.Helper()
	var b bytes.Buffer
	require.NoError(t, stdjpeg.Encode(&b, img, &stdjpeg.Options{Quality: 90}))
	return b.Bytes()
}

func sof(marker, precision byte, w, h, comps int) []byte {
	seg := []byte{0xff, marker, 0, byte(8 + 3*comps), precision, byte(h >> 8), byte(h), byte(w >> 8), byte(w), byte(comps)}
	for i := range comps {
		seg = append(seg, byte(i+1), 0x11, 0)
	}
	return seg
}

func TestDecodeGray(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 19, 11))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 7)
	}
	data := stdEncode(t, img)
	want, err := stdjpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)

	buf, meta := codectest.Decode(t, &desc, data, codec.DecodeOptions{})
	require.Equal(t, pixel.ModeL, buf.Mode())
	gray := want.(*image.Gray)
	for y := range 11 {
		require.Equal(t, gray.Pix[y*gray.Stride:][:19], buf.Row(y), "row %d", y)
	}
	require.Equal(t, "jpeg", meta.Compression)
	require.False(t, meta.Interlaced)
}

func TestDecodeColor(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 23, 9))
	for y := range 9 {
		for x := range 23 {
			img.SetRGBA(x, y, color.RGBA{uint8(x * 11), uint8(y * 28), 90, 255})
		}
	}
	data := stdEncode(t, img)
	want, err := stdjpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	ycc := want.(*image.YCbCr)

	buf, _ := codectest.Decode(t, &desc, data, codec.DecodeOptions{})
	require.Equal(t, pixel.ModeRGB, buf.Mode())
	for y := range 9 {
		for x := range 23 {
			c := ycc.YCbCrAt(x, y)
			r, g, b := color.YCbCrToRGB(c.Y, c.Cb, c.Cr)
			require.Equal(t, pixel.RGB(float64(r), float64(g), float64(b)), buf.At(x, y))
		}
	}
}

func TestToBufferCMYK(t *testing.T) {
	img := image.NewCMYK(image.Rect(0, 0, 2, 1))
	copy(img.Pix, []byte{1, 2, 3, 4, 5, 6, 7, 8})
	buf, err := toBuffer(img)
	require.NoError(t, err)
	require.Equal(t, pixel.ModeCMYK, buf.Mode())
	require.Equal(t, img.Pix, buf.Data())

	_, err = toBuffer(image.NewNRGBA(image.Rect(0, 0, 1, 1)))
	require.ErrorIs(t, err, pixel.ErrUnsupported)
}

func TestWalkProgressive(t *testing.T) {
	data := append([]byte{0xff, mSOI}, sof(mSOF2, 8, 16, 16, 1)...)
	data = append(data, 0xff, mSOS, 0, 8, 1, 1, 0, 0, 63, 0, 0x12, 0xff, 0x00, 0x34)
	d := &decoder{}
	var in codec.Input
	in.Append(data)
	res, err := d.Step(&in)
	require.NoError(t, err)
	require.Equal(t, codec.StatusNeedMoreInput, res.Status)
	require.True(t, d.progressive)
	require.Equal(t, stateScan, d.state)
	require.Equal(t, 16, d.width)
}

func TestDecodeTrailingData(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	data := append(stdEncode(t, img), "trailing"...)
	frames, _ := codectest.DecodeFrames(t, &desc, data, 0, codec.DecodeOptions{})
	require.Len(t, frames, 1)
}

func TestDecodeErrors(t *testing.T) {
	soi := []byte{0xff, mSOI}
	cat := func(parts ...[]byte) []byte {
		var out []byte
		for _, p := range parts {
			out = append(out, p...)
		}
		return out
	}
	good := stdEncode(t, image.NewGray(image.Rect(0, 0, 16, 16)))
	tests := []struct {
		name string
		data []byte
		opts codec.DecodeOptions
		want error
	}{
		{"start", []byte{0x00, 0xd8, 0xff}, codec.DecodeOptions{}, pixel.ErrCorrupt},
		{"lossless", cat(soi, sof(0xc3, 8, 4, 4, 1)), codec.DecodeOptions{}, pixel.ErrUnsupported},
		{"precision", cat(soi, sof(mSOF0, 12, 4, 4, 1)), codec.DecodeOptions{}, pixel.ErrUnsupported},
		{"components", cat(soi, sof(mSOF0, 8, 4, 4, 2)), codec.DecodeOptions{}, pixel.ErrUnsupported},
		{"zero size", cat(soi, sof(mSOF0, 8, 0, 0, 1)), codec.DecodeOptions{}, pixel.ErrCorrupt},
		{"pixels", good, codec.DecodeOptions{MaxPixels: 100}, pixel.ErrResourceExhausted},
		{"scan first", cat(soi, []byte{0xff, mSOS, 0, 2}), codec.DecodeOptions{}, pixel.ErrCorrupt},
		{"garbage", cat(soi, []byte{0x12, 0x34}), codec.DecodeOptions{}, pixel.ErrCorrupt},
		{"length", cat(soi, []byte{0xff, 0xe0, 0, 1}), codec.DecodeOptions{}, pixel.ErrCorrupt},
		{"no frame", cat(soi, []byte{0xff, mEOI}), codec.DecodeOptions{}, pixel.ErrCorrupt},
		{"cut", good[:len(good)-2], codec.DecodeOptions{}, pixel.ErrTruncated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := codec.DecodeBytes(&desc, tt.data, tt.opts)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestTruncation(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 9, 9))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 3)
	}
	codectest.TruncationSweep(t, &desc, stdEncode(t, img))
}

func near(t *testing.T, want, got []byte, tol int) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		d := int(want[i]) - int(got[i])
		require.LessOrEqualf(t, max(d, -d), tol, "byte %d: want %d, got %d", i, want[i], got[i])
	}
}

func TestRoundTrip(t *testing.T) {
	gray, err := pixel.Allocate(pixel.ModeL, 16, 16)
	require.NoError(t, err)
	require.NoError(t, gray.Fill(pixel.Gray(130)))
	data := codectest.Encode(t, &desc, gray, codec.EncodeOptions{Quality: 95})
	buf, _ := codectest.Decode(t, &desc, data, codec.DecodeOptions{})
	require.Equal(t, pixel.ModeL, buf.Mode())
	near(t, gray.Data(), buf.Data(), 1)

	rgb, err := pixel.Allocate(pixel.ModeRGB, 24, 16)
	require.NoError(t, err)
	require.NoError(t, rgb.Fill(pixel.RGB(200, 100, 50)))
	data = codectest.Encode(t, &desc, rgb, codec.EncodeOptions{Text: map[string]string{"comment": "made by a test"}})
	buf, meta := codectest.Decode(t, &desc, data, codec.DecodeOptions{})
	require.Equal(t, pixel.ModeRGB, buf.Mode())
	near(t, rgb.Data(), buf.Data(), 4)
	require.Equal(t, "made by a test", meta.Text["comment"])
}

func TestEncodeQuality(t *testing.T) {
	buf := codectest.Filled(t, pixel.ModeRGB, 64, 64)
	low := codectest.Encode(t, &desc, buf, codec.EncodeOptions{Quality: 10})
	high := codectest.Encode(t, &desc, buf, codec.EncodeOptions{Quality: 95})
	require.Less(t, len(low), len(high))

	for _, q := range []int{-1, 101} {
		_, err := desc.NewEncoder(buf, codec.EncodeOptions{Quality: q})
		require.ErrorIs(t, err, pixel.ErrInvalidArgument)
	}
	_, err := desc.NewEncoder(codectest.Filled(t, pixel.ModeRGBA, 2, 2), codec.EncodeOptions{})
	require.ErrorIs(t, err, pixel.ErrUnsupported)
}

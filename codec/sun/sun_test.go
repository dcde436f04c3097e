package sun

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gogpu/imaging/codec"
	"github.com/gogpu/imaging/internal/codectest"
	"github.com/gogpu/imaging/pixel"
)

var desc = Descriptor()

func hdr(w, h, depth, rasterType, mapType uint32, cmap []byte) []byte {
	b := make([]byte, headerLen)
	for i, v := range []uint32{magic, w, h, depth, 0, rasterType, mapType, uint32(len(cmap))} {
		binary.BigEndian.PutUint32(b[4*i:], v)
	}
	return append(b, cmap...)
}

func TestDecodeDepths(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		mode pixel.Mode
		want []byte
	}{
		{"1 bit", append(hdr(3, 1, 1, typeStandard, mapNone, nil), 0x40, 0), pixel.Mode1, []byte{0xA0}},
		{"8 bit gray", append(hdr(3, 1, 8, typeStandard, mapNone, nil), 1, 2, 3, 0), pixel.ModeL, []byte{1, 2, 3}},
		{"24 bit BGR", append(hdr(1, 1, 24, typeStandard, mapNone, nil), 1, 2, 3, 0), pixel.ModeRGB, []byte{3, 2, 1}},
		{"24 bit RGB", append(hdr(1, 1, 24, typeRGB, mapNone, nil), 1, 2, 3, 0), pixel.ModeRGB, []byte{1, 2, 3}},
		{"32 bit", append(hdr(1, 1, 32, typeOld, mapNone, nil), 1, 2, 3, 4), pixel.ModeRGB, []byte{3, 2, 1}},
		{"raw map skipped", append(hdr(1, 1, 8, typeStandard, mapRaw, []byte{9, 9}), 7, 0), pixel.ModeL, []byte{7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, _ := codectest.Decode(t, &desc, tt.data, codec.DecodeOptions{})
			require.Equal(t, tt.mode, buf.Mode())
			require.Equal(t, tt.want, buf.Data())
		})
	}
}

func TestDecodeColorMap(t *testing.T) {
	cmap := []byte{10, 20, 1, 2, 100, 200} // two entries, planar
	data := append(hdr(2, 1, 8, typeStandard, mapRGB, cmap), 1, 0)
	buf, _ := codectest.Decode(t, &desc, data, codec.DecodeOptions{})
	require.Equal(t, pixel.ModeP, buf.Mode())
	require.Equal(t, pixel.Color{R: 20, G: 2, B: 200, A: 255}, buf.Palette().At(1))

	data[len(data)-2] = 2
	_, _, err := codec.DecodeBytes(&desc, data, codec.DecodeOptions{})
	require.ErrorIs(t, err, pixel.ErrCorrupt)
}

func TestDecodeRLE(t *testing.T) {
	data := append(hdr(5, 1, 8, typeRLE, mapNone, nil),
		rleEscape, 3, 9, // four of 9
		rleEscape, 0, // literal 0x80
		0, // row padding
	)
	buf, meta := codectest.Decode(t, &desc, data, codec.DecodeOptions{})
	require.Equal(t, "rle", meta.Compression)
	require.Equal(t, []byte{9, 9, 9, 9, rleEscape}, buf.Data())
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"depth", hdr(1, 1, 4, typeStandard, mapNone, nil), pixel.ErrUnsupported},
		{"type", hdr(1, 1, 8, 5, mapNone, nil), pixel.ErrUnsupported},
		{"map type", hdr(1, 1, 8, typeStandard, 7, nil), pixel.ErrCorrupt},
		{"zero size", hdr(0, 1, 8, typeStandard, mapNone, nil), pixel.ErrCorrupt},
		{"short", append(hdr(2, 2, 8, typeStandard, mapNone, nil), 1, 2), pixel.ErrTruncated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := codec.DecodeBytes(&desc, tt.data, codec.DecodeOptions{})
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	for _, mode := range []pixel.Mode{pixel.Mode1, pixel.ModeL, pixel.ModeP, pixel.ModeRGB} {
		t.Run(mode.String(), func(t *testing.T) {
			for _, w := range []int{1, 7, 16, 17} {
				codectest.RoundTrip(t, &desc, codectest.Filled(t, mode, w, 3), codec.EncodeOptions{})
			}
		})
	}
}

func TestTruncation(t *testing.T) {
	codectest.TruncationSweep(t, &desc, codectest.Encode(t, &desc, codectest.Filled(t, pixel.ModeP, 3, 3), codec.EncodeOptions{}))
	codectest.TruncationSweep(t, &desc, append(hdr(5, 1, 8, typeRLE, mapNone, nil), rleEscape, 3, 9, rleEscape, 0, 0))
}

package tiff

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"slices"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/require"
	xtiff "golang.org/x/image/tiff"

	"github.com/gogpu/imaging/codec"
	"github.com/gogpu/imaging/internal/codectest"
	"github.com/gogpu/imaging/pixel"
)

var desc = Descriptor()

type order interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

type tag struct {
	id   uint16
	typ  uint16
	vals []uint32
}

func short(id uint16, vs ...uint32) tag { return tag{id, dtShort, vs} }
func long(id uint16, vs ...uint32) tag { return tag{id, dtLong, vs} }

func text(id uint16, s string) tag {
	t := tag{id: id, typ: dtASCII}
	for _, c := range []byte(s + "\x00") {
		t.vals = append(t.vals, uint32(c))
	}
	return t
}

type page struct {
	tags   []tag
	strips [][]byte
}

// build lays out pages as strips followed by their directory. Strip
// offsets and byte counts are added unless a page sets them.
func build(bo order, pages ...page) []byte {
	out := []byte("II*\x00\x00\x00\x00\x00")
	if bo == order(binary.BigEndian) {
		copy(out, "MM\x00*")
	}
	link := 4
	for _, p := range pages {
		var offs, counts []uint32
		for _, s := range p.strips {
			offs = append(offs, uint32(len(out)))
			counts = append(counts, uint32(len(s)))
			out = append(out, s...)
		}
		if len(out)%2 == 1 {
			out = append(out, 0)
		}
		tags := slices.Clone(p.tags)
		if !slices.ContainsFunc(tags, func(t tag) bool { return t.id == tStripOffsets }) {
			tags = append(tags, long(tStripOffsets, offs...), long(tStripByteCounts, counts...))
		}
		slices.SortFunc(tags, func(a, b tag) int { return int(a.id) - int(b.id) })

		bo.PutUint32(out[link:], uint32(len(out)))
		values := len(out) + 2 + 12*len(tags) + 4
		out = bo.AppendUint16(out, uint16(len(tags)))
		var extra []byte
		for _, t := range tags {
			var v []byte
			for _, x := range t.vals {
				switch t.typ {
				case dtShort:
					v = bo.AppendUint16(v, uint16(x))
				case dtLong:
					v = bo.AppendUint32(v, x)
				default:
					v = append(v, byte(x))
				}
			}
			out = bo.AppendUint16(out, t.id)
			out = bo.AppendUint16(out, t.typ)
			out = bo.AppendUint32(out, uint32(len(t.vals)))
			if len(v) <= 4 {
				out = append(out, append(v, make([]byte, 4-len(v))...)...)
				continue
			}
			out = bo.AppendUint32(out, uint32(values+len(extra)))
			extra = append(extra, v...)
		}
		link = len(out)
		out = bo.AppendUint32(out, 0)
		out = append(out, extra...)
	}
	return out
}

func dims(w, h uint32, photometric, bps uint32) []tag {
	return []tag{long(tImageWidth, w), long(tImageLength, h), short(tPhotometric, photometric), short(tBitsPerSample, bps)}
}

func deflate(t *testing.T, b []byte) []byte {
	t.Helper()
	var z bytes.Buffer
	w := zlib.NewWriter(&z)
	_, err := w.Write(b)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return z.Bytes()
}

// lzwLiterals encodes data as one 9-bit TIFF LZW code per byte.
func lzwLiterals(data []byte) []byte {
	var (
		out []byte
		acc uint32
		n   uint
	)
	put := func(code uint32) {
		acc = acc<<9 | code
		n += 9
		for n >= 8 {
			out = append(out, byte(acc>>(n-8)))
			n -= 8
		}
	}
	put(256)
	for _, b := range data {
		put(uint32(b))
	}
	put(257)
	if n > 0 {
		out = append(out, byte(acc<<(8-n)))
	}
	return out
}

func TestDecodeXImage(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 7, 5))
	gray16 := image.NewGray16(image.Rect(0, 0, 7, 5))
	nrgba := image.NewNRGBA(image.Rect(0, 0, 7, 5))
	pal := image.NewPaletted(image.Rect(0, 0, 7, 5), color.Palette{
		color.RGBA{10, 20, 30, 255}, color.RGBA{40, 50, 60, 255}, color.RGBA{70, 80, 90, 255},
	})
	for y := range 5 {
		for x := range 7 {
			v := uint8(x*30 + y*11)
			gray.SetGray(x, y, color.Gray{Y: v})
			gray16.SetGray16(x, y, color.Gray16{Y: uint16(v)*250 + uint16(y)})
			nrgba.SetNRGBA(x, y, color.NRGBA{v, 255 - v, uint8(y), uint8(x * 40)})
			pal.SetColorIndex(x, y, uint8((x*y)%3))
		}
	}
	for _, opts := range []*xtiff.Options{nil, {Compression: xtiff.Deflate, Predictor: true}} {
		encode := func(img image.Image) []byte {
			var b bytes.Buffer
			require.NoError(t, xtiff.Encode(&b, img, opts))
			return b.Bytes()
		}

		buf, meta := codectest.Decode(t, &desc, encode(gray), codec.DecodeOptions{})
		require.Equal(t, pixel.ModeL, buf.Mode())
		require.Equal(t, gray.Pix, buf.Data())
		if opts != nil {
			require.Equal(t, "deflate", meta.Compression)
		} else {
			require.Equal(t, "raw", meta.Compression)
		}

		buf, _ = codectest.Decode(t, &desc, encode(gray16), codec.DecodeOptions{})
		require.Equal(t, pixel.ModeI16, buf.Mode())
		for y := range 5 {
			for x := range 7 {
				require.Equal(t, pixel.Gray(float64(gray16.Gray16At(x, y).Y)), buf.At(x, y))
			}
		}

		buf, _ = codectest.Decode(t, &desc, encode(nrgba), codec.DecodeOptions{})
		require.Equal(t, pixel.ModeRGBA, buf.Mode())
		require.Equal(t, nrgba.Pix, buf.Data())

		buf, _ = codectest.Decode(t, &desc, encode(pal), codec.DecodeOptions{})
		require.Equal(t, pixel.ModeP, buf.Mode())
		require.Equal(t, pal.Pix, buf.Data())
		require.Equal(t, pixel.Color{R: 40, G: 50, B: 60, A: 255}, buf.Palette().At(1))
	}
}

func TestDecode(t *testing.T) {
	i16 := func(vs ...uint16) []byte {
		var b []byte
		for _, v := range vs {
			b = binary.LittleEndian.AppendUint16(b, v)
		}
		return b
	}
	tests := []struct {
		name   string
		bo     order
		tags   []tag
		strips [][]byte
		mode   pixel.Mode
		want   []byte
	}{
		{
			name:   "white is zero",
			bo:     binary.BigEndian,
			tags:   dims(3, 1, pmWhiteIsZero, 8),
			strips: [][]byte{{0, 100, 255}},
			mode:   pixel.ModeL,
			want:   []byte{255, 155, 0},
		},
		{
			name:   "bilevel white is zero",
			bo:     binary.LittleEndian,
			tags:   dims(8, 1, pmWhiteIsZero, 1),
			strips: [][]byte{{0xa5}},
			mode:   pixel.Mode1,
			want:   []byte{0x5a},
		},
		{
			name:   "reversed fill order",
			bo:     binary.LittleEndian,
			tags:   append(dims(8, 1, pmBlackIsZero, 1), short(tFillOrder, 2)),
			strips: [][]byte{{0x01}},
			mode:   pixel.Mode1,
			want:   []byte{0x80},
		},
		{
			name:   "4-bit gray",
			bo:     binary.LittleEndian,
			tags:   dims(3, 1, pmBlackIsZero, 4),
			strips: [][]byte{{0x1f, 0x80}},
			mode:   pixel.ModeL,
			want:   []byte{17, 255, 136},
		},
		{
			name: "16-bit predictor deflate",
			bo:   binary.BigEndian,
			tags: append(dims(3, 1, pmBlackIsZero, 16), short(tCompression, cDeflate), short(tPredictor, 2)),
			// 1000, 1500, 1200 as differences.
			strips: [][]byte{deflate(t, []byte{0x03, 0xe8, 0x01, 0xf4, 0xfe, 0xd4})},
			mode:   pixel.ModeI16,
			want:   i16(1000, 1500, 1200),
		},
		{
			name:   "8-bit predictor",
			bo:     binary.LittleEndian,
			tags:   append(dims(3, 1, pmRGB, 8), short(tSamplesPerPixel, 3), short(tPredictor, 2)),
			strips: [][]byte{{10, 20, 30, 1, 2, 3, 255, 254, 253}},
			mode:   pixel.ModeRGB,
			want:   []byte{10, 20, 30, 11, 22, 33, 10, 20, 30},
		},
		{
			name:   "planar",
			bo:     binary.LittleEndian,
			tags:   append(dims(2, 2, pmRGB, 8), short(tSamplesPerPixel, 3), short(tPlanarConfig, 2)),
			strips: [][]byte{{1, 2, 3, 4}, {5, 6, 7, 8}, {9, 10, 11, 12}},
			mode:   pixel.ModeRGB,
			want:   []byte{1, 5, 9, 2, 6, 10, 3, 7, 11, 4, 8, 12},
		},
		{
			name:   "cmyk packbits",
			bo:     binary.LittleEndian,
			tags:   append(dims(4, 1, pmSeparated, 8), short(tSamplesPerPixel, 4), short(tCompression, cPackBits)),
			strips: [][]byte{{0xf9, 0, 7, 1, 2, 3, 4, 5, 6, 7, 8}},
			mode:   pixel.ModeCMYK,
			want:   []byte{0, 0, 0, 0, 0, 0, 0, 0, 1, 2, 3, 4, 5, 6, 7, 8},
		},
		{
			name:   "lzw",
			bo:     binary.BigEndian,
			tags:   append(dims(4, 2, pmBlackIsZero, 8), short(tCompression, cLZW)),
			strips: [][]byte{lzwLiterals([]byte{1, 2, 3, 4, 5, 6, 7, 8})},
			mode:   pixel.ModeL,
			want:   []byte{1, 2, 3, 4, 5, 6, 7, 8},
		},
		{
			name:   "associated alpha",
			bo:     binary.LittleEndian,
			tags:   append(dims(2, 1, pmBlackIsZero, 8), short(tSamplesPerPixel, 2), short(tExtraSamples, extraAssociated)),
			strips: [][]byte{{64, 128, 9, 0}},
			mode:   pixel.ModeLA,
			want:   []byte{128, 128, 0, 0},
		},
		{
			name:   "unspecified extra sample",
			bo:     binary.LittleEndian,
			tags:   append(dims(1, 1, pmRGB, 8), short(tSamplesPerPixel, 4), short(tExtraSamples, extraUnspecified)),
			strips: [][]byte{{1, 2, 3, 9}},
			mode:   pixel.ModeRGB,
			want:   []byte{1, 2, 3},
		},
		{
			name:   "strips",
			bo:     binary.LittleEndian,
			tags:   append(dims(2, 3, pmBlackIsZero, 8), long(tRowsPerStrip, 2)),
			strips: [][]byte{{1, 2, 3, 4}, {5, 6}},
			mode:   pixel.ModeL,
			want:   []byte{1, 2, 3, 4, 5, 6},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := build(tt.bo, page{tags: tt.tags, strips: tt.strips})
			buf, _ := codectest.Decode(t, &desc, data, codec.DecodeOptions{})
			require.Equal(t, tt.mode, buf.Mode())
			require.Equal(t, tt.want, buf.Data())
		})
	}
}

func TestDecodePalette(t *testing.T) {
	cmap := []uint32{
		0, 0xffff, 0x8000, 0x1000, // red
		0, 0xffff, 0x8000, 0x2000, // green
		0, 0xffff, 0x8000, 0x3000, // blue
	}
	data := build(binary.LittleEndian, page{
		tags:   append(dims(4, 1, pmPalette, 2), short(tColorMap, cmap...)),
		strips: [][]byte{{0x1b}},
	})
	buf, _ := codectest.Decode(t, &desc, data, codec.DecodeOptions{})
	require.Equal(t, pixel.ModeP, buf.Mode())
	require.Equal(t, []byte{0, 1, 2, 3}, buf.Data())
	require.Equal(t, 4, buf.Palette().Len())
	require.Equal(t, pixel.Color{R: 0x10, G: 0x20, B: 0x30, A: 255}, buf.Palette().At(3))
}

func TestDecodePages(t *testing.T) {
	data := build(binary.BigEndian,
		page{tags: append(dims(2, 1, pmBlackIsZero, 8), text(tSoftware, "scanner 2.1")), strips: [][]byte{{7, 8}}},
		page{tags: append(dims(1, 1, pmRGB, 8), short(tSamplesPerPixel, 3)), strips: [][]byte{{1, 2, 3}}},
	)
	for _, step := range []int{0, 1, 5} {
		frames, metas := codectest.DecodeFrames(t, &desc, data, step, codec.DecodeOptions{})
		require.Len(t, frames, 2)
		require.Equal(t, []byte{7, 8}, frames[0].Data())
		require.Equal(t, []byte{1, 2, 3}, frames[1].Data())
		require.Equal(t, 1, metas[1].Index)
		require.Equal(t, map[string]string{"Software": "scanner 2.1"}, metas[0].Text)
		require.Nil(t, metas[1].Text)
	}
}

// loopBack points the last directory of data at the first one.
func loopBack(data []byte) []byte {
	bo := binary.ByteOrder(binary.LittleEndian)
	if data[0] == 'M' {
		bo = binary.BigEndian
	}
	first := bo.Uint32(data[4:])
	off := first
	for {
		link := off + 2 + 12*uint32(bo.Uint16(data[off:]))
		next := bo.Uint32(data[link:])
		if next == 0 {
			bo.PutUint32(data[link:], first)
			return data
		}
		off = next
	}
}

func TestDecodeErrors(t *testing.T) {
	gray := func(extra ...tag) []byte {
		return build(binary.LittleEndian, page{tags: append(dims(2, 1, pmBlackIsZero, 8), extra...), strips: [][]byte{{1, 2}}})
	}
	good := gray()
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"magic", append([]byte("XX*\x00"), good[4:]...), pixel.ErrCorrupt},
		{"version", append([]byte("II\x29\x00"), good[4:]...), pixel.ErrCorrupt},
		{"bigtiff", append([]byte("II\x2b\x00"), good[4:]...), pixel.ErrUnsupported},
		{"tiles", gray(long(tTileWidth, 16)), pixel.ErrUnsupported},
		{"jpeg", gray(short(tCompression, cJPEG)), pixel.ErrUnsupported},
		{"compression", gray(short(tCompression, 2)), pixel.ErrUnsupported},
		{"sample format", gray(short(tSampleFormat, 3)), pixel.ErrUnsupported},
		{"predictor", gray(short(tPredictor, 3)), pixel.ErrUnsupported},
		{"photometric", build(binary.LittleEndian, page{tags: append(dims(1, 1, 6, 8), short(tSamplesPerPixel, 3)), strips: [][]byte{{1, 2, 3}}}), pixel.ErrUnsupported},
		{"mixed depths", build(binary.LittleEndian, page{tags: []tag{long(tImageWidth, 1), long(tImageLength, 1), short(tPhotometric, pmRGB), short(tSamplesPerPixel, 3), short(tBitsPerSample, 8, 8, 16)}, strips: [][]byte{{1, 2, 3, 4}}}), pixel.ErrUnsupported},
		{"no width", build(binary.LittleEndian, page{tags: []tag{long(tImageLength, 1), short(tPhotometric, 1)}, strips: [][]byte{{1}}}), pixel.ErrCorrupt},
		{"color map", build(binary.LittleEndian, page{tags: append(dims(1, 1, pmPalette, 8), short(tColorMap, 1, 2, 3)), strips: [][]byte{{0}}}), pixel.ErrCorrupt},
		{"strip offset", gray(long(tStripOffsets, 4000), long(tStripByteCounts, 2)), pixel.ErrTruncated},
		{"short strip", build(binary.LittleEndian, page{tags: dims(2, 2, pmBlackIsZero, 8), strips: [][]byte{{1, 2}}}), pixel.ErrCorrupt},
		{"missing counts", gray(short(tCompression, cDeflate), long(tStripOffsets, 8)), pixel.ErrCorrupt},
		{"inflate", gray(short(tCompression, cDeflate), long(tStripOffsets, 8), long(tStripByteCounts, 4)), pixel.ErrCorrupt},
		{"cut", good[:len(good)-3], pixel.ErrTruncated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := codec.DecodeBytes(&desc, tt.data, codec.DecodeOptions{})
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDecodeLoop(t *testing.T) {
	data := loopBack(build(binary.LittleEndian, page{tags: dims(2, 1, pmBlackIsZero, 8), strips: [][]byte{{1, 2}}}))
	dec, err := desc.NewDecoder(codec.DecodeOptions{})
	require.NoError(t, err)
	res, err := dec.Decode(data, true)
	require.NoError(t, err)
	require.Equal(t, codec.StatusFrame, res.Status)
	require.NoError(t, dec.NextFrame())
	_, err = dec.Decode(nil, true)
	require.ErrorIs(t, err, pixel.ErrCorrupt)
}

func TestDecodePartial(t *testing.T) {
	src := codectest.Filled(t, pixel.ModeL, 10, 10)
	data := codectest.Encode(t, &desc, src, codec.EncodeOptions{})
	dec, err := desc.NewDecoder(codec.DecodeOptions{AllowPartial: true})
	require.NoError(t, err)
	res, err := dec.Decode(data[:len(data)-50], true)
	require.NoError(t, err)
	require.True(t, res.Partial)
	require.Equal(t, src.Row(0), res.Frame.Row(0))
	require.Equal(t, make([]byte, 10), res.Frame.Row(9))
	require.NoError(t, dec.NextFrame())
	res, err = dec.Decode(nil, true)
	require.NoError(t, err)
	require.Equal(t, codec.StatusDone, res.Status)
}

func TestRoundTrip(t *testing.T) {
	modes := []pixel.Mode{pixel.Mode1, pixel.ModeL, pixel.ModeLA, pixel.ModeI16, pixel.ModeP, pixel.ModeRGB, pixel.ModeRGBA, pixel.ModeCMYK}
	for _, mode := range modes {
		t.Run(mode.String(), func(t *testing.T) {
			for _, opts := range []codec.EncodeOptions{{}, {RLE: true}, {Compression: 6}} {
				codectest.RoundTrip(t, &desc, codectest.Filled(t, mode, 13, 7), opts)
			}
		})
	}

	buf, err := pixel.Allocate(pixel.ModeP, 5, 3)
	require.NoError(t, err)
	cs := make([]pixel.Color, 16)
	for i := range cs {
		cs[i] = pixel.Color{R: uint8(i * 16), G: 3, B: uint8(255 - i), A: 255}
	}
	pal, err := pixel.NewPalette(cs)
	require.NoError(t, err)
	require.NoError(t, buf.SetPalette(pal))
	for i := range buf.Data() {
		buf.Data()[i] = uint8(i % 16)
	}
	codectest.RoundTrip(t, &desc, buf, codec.EncodeOptions{RLE: true})

	// Several strips.
	big := codectest.Filled(t, pixel.ModeRGB, 300, 250)
	frames, _ := codectest.DecodeFrames(t, &desc, codectest.Encode(t, &desc, big, codec.EncodeOptions{Compression: 1}), 0, codec.DecodeOptions{})
	require.True(t, big.Equal(frames[0]))
}

func TestEncodePages(t *testing.T) {
	first := codectest.Filled(t, pixel.ModeL, 3, 2)
	rest := []*pixel.Buffer{codectest.Filled(t, pixel.ModeRGB, 2, 2), codectest.Filled(t, pixel.Mode1, 9, 1)}
	data := codectest.Encode(t, &desc, first, codec.EncodeOptions{Frames: rest, RLE: true})
	frames, metas := codectest.DecodeFrames(t, &desc, data, 3, codec.DecodeOptions{})
	require.Len(t, frames, 3)
	for i, want := range append([]*pixel.Buffer{first}, rest...) {
		require.True(t, want.Equal(frames[i]), "page %d", i)
		require.Equal(t, i, metas[i].Index)
		require.Equal(t, "packbits", metas[i].Compression)
	}
	codectest.TruncationSweep(t, &desc, data)
}

func TestEncodeText(t *testing.T) {
	buf := codectest.Filled(t, pixel.ModeL, 2, 2)
	data := codectest.Encode(t, &desc, buf, codec.EncodeOptions{Text: map[string]string{
		"Software": "imaging", "Artist": "A. Person", "Comment": "no tag",
	}})
	_, meta := codectest.Decode(t, &desc, data, codec.DecodeOptions{})
	require.Equal(t, map[string]string{"Software": "imaging", "Artist": "A. Person"}, meta.Text)

	_, err := desc.NewEncoder(buf, codec.EncodeOptions{Text: map[string]string{"Artist": "Zoë"}})
	require.ErrorIs(t, err, pixel.ErrInvalidArgument)
}

func TestEncodeXImageDecodes(t *testing.T) {
	for _, opts := range []codec.EncodeOptions{{}, {RLE: true}, {Compression: 9}} {
		for _, mode := range []pixel.Mode{pixel.ModeL, pixel.ModeRGB, pixel.ModeRGBA, pixel.ModeI16} {
			buf := codectest.Filled(t, mode, 11, 6)
			img, err := xtiff.Decode(bytes.NewReader(codectest.Encode(t, &desc, buf, opts)))
			require.NoError(t, err, mode)
			switch m := img.(type) {
			case *image.Gray:
				require.Equal(t, buf.Data(), m.Pix)
			case *image.NRGBA:
				require.Equal(t, buf.Data(), m.Pix)
			case *image.Gray16:
				for y := range 6 {
					for x := range 11 {
						require.Equal(t, buf.At(x, y), pixel.Gray(float64(m.Gray16At(x, y).Y)))
					}
				}
			case *image.RGBA:
				for y := range 6 {
					for x := range 11 {
						c := m.RGBAAt(x, y)
						require.Equal(t, buf.At(x, y), pixel.RGB(float64(c.R), float64(c.G), float64(c.B)))
					}
				}
			default:
				t.Fatalf("%s decoded as %T", mode, img)
			}
		}
	}
}

func TestEncodeErrors(t *testing.T) {
	buf := codectest.Filled(t, pixel.ModeL, 2, 2)
	tests := []struct {
		name string
		buf  *pixel.Buffer
		opts codec.EncodeOptions
		want error
	}{
		{"mode", codectest.Filled(t, pixel.ModeHSV, 2, 2), codec.EncodeOptions{}, pixel.ErrUnsupported},
		{"frame mode", buf, codec.EncodeOptions{Frames: []*pixel.Buffer{codectest.Filled(t, pixel.ModeF, 1, 1)}}, pixel.ErrUnsupported},
		{"nil frame", buf, codec.EncodeOptions{Frames: []*pixel.Buffer{nil}}, pixel.ErrInvalidArgument},
		{"both", buf, codec.EncodeOptions{RLE: true, Compression: 6}, pixel.ErrInvalidArgument},
		{"level", buf, codec.EncodeOptions{Compression: 10}, pixel.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := desc.NewEncoder(tt.buf, tt.opts)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPackBits(t *testing.T) {
	packed := []byte{0xfe, 0xaa, 0x02, 0x80, 0x00, 0x2a, 0xfd, 0xaa, 0x03, 0x80, 0x00, 0x2a, 0x22, 0xf7, 0xaa}
	want := []byte{
		0xaa, 0xaa, 0xaa, 0x80, 0x00, 0x2a, 0xaa, 0xaa, 0xaa, 0xaa, 0x80, 0x00,
		0x2a, 0x22, 0xaa, 0xaa, 0xaa, 0xaa, 0xaa, 0xaa, 0xaa, 0xaa, 0xaa, 0xaa,
	}
	dst := make([]byte, len(want))
	require.Equal(t, len(want), unpackBits(dst, packed))
	require.Equal(t, want, dst)

	runs := bytes.Repeat([]byte{1, 2, 3, 3, 3, 3}, 100)
	runs = append(runs, bytes.Repeat([]byte{9}, 300)...)
	for _, src := range [][]byte{{}, {5}, {5, 5}, {1, 2}, want, runs} {
		got := make([]byte, len(src))
		require.Equal(t, len(src), unpackBits(got, packBits(nil, src)))
		require.Equal(t, src, got)
	}
	require.Equal(t, 2, unpackBits(make([]byte, 4), []byte{0x03, 1, 2}))
}

func TestTruncation(t *testing.T) {
	codectest.TruncationSweep(t, &desc, codectest.Encode(t, &desc, codectest.Filled(t, pixel.ModeRGB, 3, 2), codec.EncodeOptions{}))
}

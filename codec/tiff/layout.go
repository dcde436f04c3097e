package tiff

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/bits"

	"github.com/klauspost/compress/zlib"
	"golang.org/x/image/tiff/lzw"

	"github.com/gogpu/imaging/codec"
	"github.com/gogpu/imaging/codec/packing"
	"github.com/gogpu/imaging/internal/logging"
	"github.com/gogpu/imaging/pixel"
)

// layout is a directory reduced to what decoding needs.
type layout struct {
	width, height int
	bps           int
	spp           int
	compression   uint32
	photometric   uint32
	planar        bool
	predictor     bool
	reverseFill   bool
	rowsPerStrip  int
	offsets       []uint32
	counts        []uint32
	extra         uint32
	colorMap      []uint32
	text          map[string]string

	mode pixel.Mode
	raw  string
}

func required(d ifd, tag uint16) (uint32, error) {
	if _, ok := d[tag]; !ok {
		return 0, fmt.Errorf("tiff: missing tag %d: %w", tag, pixel.ErrCorrupt)
	}
	return d.get(tag, 0)
}

func readLayout(d ifd, opts codec.DecodeOptions) (*layout, error) {
	if _, ok := d[tTileWidth]; ok {
		return nil, fmt.Errorf("tiff: tiled image: %w", pixel.ErrUnsupported)
	}
	w, err := required(d, tImageWidth)
	if err != nil {
		return nil, err
	}
	h, err := required(d, tImageLength)
	if err != nil {
		return nil, err
	}
	if err := opts.CheckSize("tiff", int(w), int(h)); err != nil {
		return nil, err
	}
	l := &layout{width: int(w), height: int(h)}

	spp, err := d.get(tSamplesPerPixel, 1)
	if err != nil {
		return nil, err
	}
	if spp == 0 || spp > 5 {
		return nil, fmt.Errorf("tiff: %d samples per pixel: %w", spp, pixel.ErrUnsupported)
	}
	l.spp = int(spp)
	depths, err := d.list(tBitsPerSample)
	if err != nil {
		return nil, err
	}
	l.bps = 1
	if len(depths) > 0 {
		l.bps = int(depths[0])
	}
	for _, b := range depths {
		if int(b) != l.bps {
			return nil, fmt.Errorf("tiff: mixed sample depths %v: %w", depths, pixel.ErrUnsupported)
		}
	}
	formats, err := d.list(tSampleFormat)
	if err != nil {
		return nil, err
	}
	for _, f := range formats {
		if f != 1 {
			return nil, fmt.Errorf("tiff: sample format %d: %w", f, pixel.ErrUnsupported)
		}
	}

	if l.compression, err = d.get(tCompression, cNone); err != nil {
		return nil, err
	}
	switch l.compression {
	case cNone, cLZW, cDeflate, cDeflateOld, cPackBits:
	case cJPEG:
		return nil, fmt.Errorf("tiff: JPEG compression: %w", pixel.ErrUnsupported)
	default:
		return nil, fmt.Errorf("tiff: compression %d: %w", l.compression, pixel.ErrUnsupported)
	}
	if l.photometric, err = required(d, tPhotometric); err != nil {
		return nil, err
	}
	planar, err := d.get(tPlanarConfig, 1)
	if err != nil {
		return nil, err
	}
	switch planar {
	case 1:
	case 2:
		l.planar = l.spp > 1
	default:
		return nil, fmt.Errorf("tiff: planar configuration %d: %w", planar, pixel.ErrCorrupt)
	}
	predictor, err := d.get(tPredictor, 1)
	if err != nil {
		return nil, err
	}
	switch predictor {
	case 1:
	case 2:
		l.predictor = true
	default:
		return nil, fmt.Errorf("tiff: predictor %d: %w", predictor, pixel.ErrUnsupported)
	}
	fill, err := d.get(tFillOrder, 1)
	if err != nil {
		return nil, err
	}
	if fill != 1 && fill != 2 {
		return nil, fmt.Errorf("tiff: fill order %d: %w", fill, pixel.ErrCorrupt)
	}
	l.reverseFill = fill == 2
	if l.photometric == pmSeparated {
		inks, err := d.get(tInkSet, 1)
		if err != nil {
			return nil, err
		}
		if inks != 1 {
			return nil, fmt.Errorf("tiff: ink set %d: %w", inks, pixel.ErrUnsupported)
		}
	}
	if o, _ := d.get(tOrientation, 1); o != 1 {
		logging.Logger().Debug("tiff: ignoring orientation", "orientation", o)
	}

	rps, err := d.get(tRowsPerStrip, h)
	if err != nil {
		return nil, err
	}
	l.rowsPerStrip = int(min(max(rps, 1), h))
	if _, ok := d[tStripOffsets]; !ok {
		return nil, fmt.Errorf("tiff: missing strip offsets: %w", pixel.ErrCorrupt)
	}
	if l.offsets, err = d.list(tStripOffsets); err != nil {
		return nil, err
	}
	if l.counts, err = d.list(tStripByteCounts); err != nil {
		return nil, err
	}
	extra, err := d.list(tExtraSamples)
	if err != nil {
		return nil, err
	}
	if len(extra) > 0 {
		l.extra = extra[0]
	}
	if l.colorMap, err = d.list(tColorMap); err != nil {
		return nil, err
	}
	for tag, key := range textTags {
		if s, ok := d.text(tag); ok {
			if l.text == nil {
				l.text = map[string]string{}
			}
			l.text[key] = s
		}
	}
	if err := l.target(); err != nil {
		return nil, err
	}
	logging.Logger().Debug("tiff: directory", "width", l.width, "height", l.height,
		"bps", l.bps, "spp", l.spp, "photometric", l.photometric,
		"compression", l.compression, "planar", l.planar, "strips", len(l.offsets))
	return l, nil
}

// target picks the frame mode and the raw mode of one chunky row.
func (l *layout) target() error {
	color := 1
	switch l.photometric {
	case pmRGB:
		color = 3
	case pmSeparated:
		color = 4
	}
	if l.spp < color || l.spp > color+1 {
		return fmt.Errorf("tiff: photometric %d with %d samples: %w", l.photometric, l.spp, pixel.ErrUnsupported)
	}
	alpha := l.spp > color
	unsupported := fmt.Errorf("tiff: photometric %d with %d samples of %d bits: %w",
		l.photometric, l.spp, l.bps, pixel.ErrUnsupported)

	switch l.photometric {
	case pmWhiteIsZero, pmBlackIsZero:
		switch {
		case alpha && l.bps == 8:
			l.mode, l.raw = pixel.ModeLA, "LA"
		case alpha && l.bps == 16:
			l.mode, l.raw = pixel.ModeLA, "LA;16B"
		case alpha:
			return unsupported
		case l.bps == 1 && l.photometric == pmWhiteIsZero:
			l.mode, l.raw = pixel.Mode1, "1;I"
		case l.bps == 1:
			l.mode, l.raw = pixel.Mode1, "1"
		case l.bps == 2 || l.bps == 4:
			l.mode, l.raw = pixel.ModeL, fmt.Sprintf("L;%d", l.bps)
		case l.bps == 8:
			l.mode, l.raw = pixel.ModeL, "L"
		case l.bps == 16:
			l.mode, l.raw = pixel.ModeI16, "I;16B"
		default:
			return unsupported
		}
	case pmRGB:
		switch {
		case alpha && l.bps == 8 && l.extra == extraUnspecified:
			l.mode, l.raw = pixel.ModeRGB, "RGBX"
		case alpha && l.bps == 8:
			l.mode, l.raw = pixel.ModeRGBA, "RGBA"
		case alpha && l.bps == 16 && l.extra != extraUnspecified:
			l.mode, l.raw = pixel.ModeRGBA, "RGBA;16B"
		case !alpha && l.bps == 8:
			l.mode, l.raw = pixel.ModeRGB, "RGB"
		case !alpha && l.bps == 16:
			l.mode, l.raw = pixel.ModeRGB, "RGB;16B"
		default:
			return unsupported
		}
	case pmPalette:
		switch l.bps {
		case 1, 2, 4:
			l.mode, l.raw = pixel.ModeP, fmt.Sprintf("P;%d", l.bps)
		case 8:
			l.mode, l.raw = pixel.ModeP, "P"
		default:
			return unsupported
		}
		if len(l.colorMap) != 3<<l.bps {
			return fmt.Errorf("tiff: color map of %d entries for %d bits: %w", len(l.colorMap), l.bps, pixel.ErrCorrupt)
		}
	case pmSeparated:
		switch l.bps {
		case 8:
			l.mode, l.raw = pixel.ModeCMYK, "CMYK"
		case 16:
			l.mode, l.raw = pixel.ModeCMYK, "CMYK;16B"
		default:
			return unsupported
		}
	default:
		return fmt.Errorf("tiff: photometric %d: %w", l.photometric, pixel.ErrUnsupported)
	}
	if l.predictor && l.bps != 8 && l.bps != 16 {
		return fmt.Errorf("tiff: prediction over %d-bit samples: %w", l.bps, pixel.ErrUnsupported)
	}
	if l.planar && l.bps%8 != 0 {
		return fmt.Errorf("tiff: planar %d-bit samples: %w", l.bps, pixel.ErrUnsupported)
	}
	return nil
}

func (l *layout) palette() (*pixel.Palette, error) {
	n := 1 << l.bps
	cs := make([]pixel.Color, n)
	for i := range cs {
		cs[i] = pixel.Color{
			R: uint8(l.colorMap[i] >> 8),
			G: uint8(l.colorMap[n+i] >> 8),
			B: uint8(l.colorMap[2*n+i] >> 8),
			A: 255,
		}
	}
	return pixel.NewPalette(cs)
}

// decode reads the strips of l into a new frame. With opts.AllowPartial,
// strips cut off by the end of the stream leave zero rows and partial is
// set.
func (l *layout) decode(f *file, opts codec.DecodeOptions) (frame *pixel.Buffer, partial bool, err error) {
	unp, err := packing.LookupUnpacker(l.mode, l.raw)
	if err != nil {
		return nil, false, err
	}
	if frame, err = pixel.Allocate(l.mode, l.width, l.height); err != nil {
		return nil, false, err
	}
	if l.mode == pixel.ModeP {
		pal, err := l.palette()
		if err != nil {
			return nil, false, err
		}
		if err := frame.SetPalette(pal); err != nil {
			return nil, false, err
		}
	}

	planes, samples := 1, l.spp
	if l.planar {
		planes, samples = l.spp, 1
	}
	rowBytes := (l.width*samples*l.bps + 7) / 8
	perPlane := (l.height + l.rowsPerStrip - 1) / l.rowsPerStrip
	strips := planes * perPlane
	if len(l.offsets) < strips {
		return nil, false, fmt.Errorf("tiff: %d strip offsets for %d strips: %w", len(l.offsets), strips, pixel.ErrCorrupt)
	}
	if l.counts == nil && l.compression != cNone {
		return nil, false, fmt.Errorf("tiff: missing strip byte counts: %w", pixel.ErrCorrupt)
	}
	if l.counts != nil && len(l.counts) < strips {
		return nil, false, fmt.Errorf("tiff: %d strip byte counts for %d strips: %w", len(l.counts), strips, pixel.ErrCorrupt)
	}

	planeSize := rowBytes * l.height
	raw := make([]byte, planes*planeSize)
	for s := range strips {
		p, i := s/perPlane, s%perPlane
		y0 := i * l.rowsPerStrip
		rows := min(l.rowsPerStrip, l.height-y0)
		dst := raw[p*planeSize+y0*rowBytes:][:rows*rowBytes]
		n := uint64(len(dst))
		if l.counts != nil {
			n = uint64(l.counts[s])
		}
		src, err := f.slice(uint64(l.offsets[s]), n, fmt.Sprintf("strip %d", s))
		cut := false
		if err != nil {
			if !opts.AllowPartial || !errors.Is(err, pixel.ErrTruncated) {
				return nil, false, err
			}
			src = f.b[min(uint64(l.offsets[s]), uint64(len(f.b))):]
			cut = true
		}
		got, err := l.expand(dst, src)
		if err != nil {
			return nil, false, err
		}
		if got < len(dst) {
			if !cut {
				return nil, false, fmt.Errorf("tiff: strip %d holds %d of %d bytes: %w", s, got, len(dst), pixel.ErrCorrupt)
			}
			if !partial {
				logging.Logger().Warn("tiff: returning partial frame", "strip", s)
			}
			partial = true
		}
	}

	for p := range planes {
		for y := range l.height {
			row := raw[p*planeSize+y*rowBytes:][:rowBytes]
			if l.predictor {
				undoPredictor(row, samples, l.bps, f.bo)
			}
			if l.bps == 16 && f.bo == binary.LittleEndian {
				for i := 0; i+1 < len(row); i += 2 {
					row[i], row[i+1] = row[i+1], row[i]
				}
			}
		}
	}

	var line []byte
	if l.planar {
		line = make([]byte, l.width*l.spp*l.bps/8)
	}
	size := l.bps / 8
	for y := range l.height {
		src := raw[y*rowBytes:][:rowBytes]
		if l.planar {
			for p := range planes {
				plane := raw[p*planeSize+y*rowBytes:]
				for x := range l.width {
					copy(line[(x*l.spp+p)*size:][:size], plane[x*size:][:size])
				}
			}
			src = line
		}
		unp.Unpack(frame.Row(y), src, l.width)
	}
	l.finish(frame)
	return frame, partial, nil
}

// expand decompresses one strip into dst and returns the number of bytes
// produced. Input that ends early is not an error here.
func (l *layout) expand(dst, src []byte) (int, error) {
	if l.reverseFill {
		rev := make([]byte, len(src))
		for i, b := range src {
			rev[i] = bits.Reverse8(b)
		}
		src = rev
	}
	var r io.Reader
	switch l.compression {
	case cNone:
		return copy(dst, src), nil
	case cPackBits:
		return unpackBits(dst, src), nil
	case cLZW:
		if len(src) >= 2 && src[0] == 0 && src[1]&1 == 1 {
			return 0, fmt.Errorf("tiff: old-style LZW: %w", pixel.ErrUnsupported)
		}
		lr := lzw.NewReader(bytes.NewReader(src), lzw.MSB, 8)
		defer lr.Close()
		r = lr
	default:
		zr, err := zlib.NewReader(bytes.NewReader(src))
		if err != nil {
			if shortInput(err) {
				return 0, nil
			}
			return 0, fmt.Errorf("tiff: strip data: %v: %w", err, pixel.ErrCorrupt)
		}
		defer zr.Close()
		r = zr
	}
	n, err := io.ReadFull(r, dst)
	if err != nil && !shortInput(err) {
		return n, fmt.Errorf("tiff: strip data: %v: %w", err, pixel.ErrCorrupt)
	}
	return n, nil
}

func shortInput(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

// undoPredictor reverses horizontal differencing over one row of samples
// still in file byte order.
func undoPredictor(row []byte, samples, bps int, bo binary.ByteOrder) {
	if bps == 8 {
		for i := samples; i < len(row); i++ {
			row[i] += row[i-samples]
		}
		return
	}
	step := 2 * samples
	for i := step; i+1 < len(row); i += 2 {
		bo.PutUint16(row[i:], bo.Uint16(row[i:])+bo.Uint16(row[i-step:]))
	}
}

// finish inverts white-is-zero gray and removes associated alpha.
func (l *layout) finish(frame *pixel.Buffer) {
	mode := frame.Mode()
	if l.photometric == pmWhiteIsZero && mode != pixel.Mode1 {
		data := frame.Data()
		switch mode {
		case pixel.ModeI16:
			for i := 0; i+1 < len(data); i += 2 {
				binary.LittleEndian.PutUint16(data[i:], 0xffff-binary.LittleEndian.Uint16(data[i:]))
			}
		default:
			for i := 0; i < len(data); i += mode.BytesPerPixel() {
				data[i] = 255 - data[i]
			}
		}
	}
	if l.extra == extraAssociated && mode.HasAlpha() {
		n := mode.Bands()
		data := frame.Data()
		for i := 0; i+n <= len(data); i += n {
			a := int(data[i+n-1])
			for c := range n - 1 {
				if a == 0 {
					data[i+c] = 0
				} else {
					data[i+c] = uint8(min(255, (int(data[i+c])*255+a/2)/a))
				}
			}
		}
	}
}

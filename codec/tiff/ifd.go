package tiff

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/imaging/internal/logging"
	"github.com/gogpu/imaging/pixel"
)

// Field types.
const (
	dtByte      = 1
	dtASCII     = 2
	dtShort     = 3
	dtLong      = 4
	dtRational  = 5
	dtSByte     = 6
	dtUndefined = 7
	dtSShort    = 8
	dtSLong     = 9
	dtSRational = 10
	dtFloat     = 11
	dtDouble    = 12
)

var typeSize = [...]int{
	dtByte:      1,
	dtASCII:     1,
	dtShort:     2,
	dtLong:      4,
	dtRational:  8,
	dtSByte:     1,
	dtUndefined: 1,
	dtSShort:    2,
	dtSLong:     4,
	dtSRational: 8,
	dtFloat:     4,
	dtDouble:    8,
}

// Tags.
const (
	tImageWidth       = 256
	tImageLength      = 257
	tBitsPerSample    = 258
	tCompression      = 259
	tPhotometric      = 262
	tFillOrder        = 266
	tImageDescription = 270
	tStripOffsets     = 273
	tOrientation      = 274
	tSamplesPerPixel  = 277
	tRowsPerStrip     = 278
	tStripByteCounts  = 279
	tXResolution      = 282
	tYResolution      = 283
	tPlanarConfig     = 284
	tResolutionUnit   = 296
	tSoftware         = 305
	tDateTime         = 306
	tArtist           = 315
	tPredictor        = 317
	tColorMap         = 320
	tTileWidth        = 322
	tInkSet           = 332
	tExtraSamples     = 338
	tSampleFormat     = 339
	tCopyright        = 33432
)

// textTags maps ASCII tags to FrameMeta.Text keys.
var textTags = map[uint16]string{
	tImageDescription: "ImageDescription",
	tSoftware:         "Software",
	tDateTime:         "DateTime",
	tArtist:           "Artist",
	tCopyright:        "Copyright",
}

// field holds the values of one directory entry in file byte order.
type field struct {
	typ   uint16
	count uint32
	data  []byte
	bo    binary.ByteOrder
}

func (f field) isInt() bool {
	return f.typ == dtByte || f.typ == dtShort || f.typ == dtLong
}

// uint returns value i of an integer field.
func (f field) uint(i int) uint32 {
	switch f.typ {
	case dtByte:
		return uint32(f.data[i])
	case dtShort:
		return uint32(f.bo.Uint16(f.data[2*i:]))
	default:
		return f.bo.Uint32(f.data[4*i:])
	}
}

// ifd is one image file directory keyed by tag.
type ifd map[uint16]field

// get returns the first value of an integer tag, or def when it is absent.
func (d ifd) get(tag uint16, def uint32) (uint32, error) {
	f, ok := d[tag]
	if !ok {
		return def, nil
	}
	if !f.isInt() || f.count == 0 {
		return 0, fmt.Errorf("tiff: tag %d of type %d with %d values: %w", tag, f.typ, f.count, pixel.ErrCorrupt)
	}
	return f.uint(0), nil
}

// list returns every value of an integer tag, or nil when it is absent.
func (d ifd) list(tag uint16) ([]uint32, error) {
	f, ok := d[tag]
	if !ok {
		return nil, nil
	}
	if !f.isInt() {
		return nil, fmt.Errorf("tiff: tag %d of type %d: %w", tag, f.typ, pixel.ErrCorrupt)
	}
	vs := make([]uint32, f.count)
	for i := range vs {
		vs[i] = f.uint(i)
	}
	return vs, nil
}

// text returns an ASCII tag without its terminating NULs.
func (d ifd) text(tag uint16) (string, bool) {
	f, ok := d[tag]
	if !ok || f.typ != dtASCII {
		return "", false
	}
	b := f.data
	for len(b) > 0 && b[len(b)-1] == 0 {
		b = b[:len(b)-1]
	}
	return string(b), true
}

// file is the fully buffered stream.
type file struct {
	b  []byte
	bo binary.ByteOrder
}

// slice returns n bytes at off.
func (f *file) slice(off, n uint64, what string) ([]byte, error) {
	if off+n > uint64(len(f.b)) {
		return nil, fmt.Errorf("tiff: %s at %d+%d past the %d byte stream: %w", what, off, n, len(f.b), pixel.ErrTruncated)
	}
	return f.b[off : off+n], nil
}

// readIFD parses the directory at off and returns it with the offset of
// the next one.
func (f *file) readIFD(off uint32) (ifd, uint32, error) {
	b, err := f.slice(uint64(off), 2, "directory")
	if err != nil {
		return nil, 0, err
	}
	n := int(f.bo.Uint16(b))
	if b, err = f.slice(uint64(off)+2, uint64(12*n+4), "directory"); err != nil {
		return nil, 0, err
	}
	d := make(ifd, n)
	for i := range n {
		e := b[12*i : 12*i+12]
		tag, typ, count := f.bo.Uint16(e), f.bo.Uint16(e[2:]), f.bo.Uint32(e[4:])
		if int(typ) >= len(typeSize) || typeSize[typ] == 0 {
			logging.Logger().Debug("tiff: skipping entry of unknown type", "tag", tag, "type", typ)
			continue
		}
		size := uint64(count) * uint64(typeSize[typ])
		data := e[8 : 8+min(size, 4)]
		if size > 4 {
			if data, err = f.slice(uint64(f.bo.Uint32(e[8:])), size, fmt.Sprintf("tag %d", tag)); err != nil {
				return nil, 0, err
			}
		}
		d[tag] = field{typ: typ, count: count, data: data, bo: f.bo}
	}
	return d, f.bo.Uint32(b[12*n:]), nil
}

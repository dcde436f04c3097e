// Package tiff implements baseline TIFF with the LZW, Deflate and PackBits
// compressions.
//
// Decoding buffers the whole stream, since directories and strips may lie
// anywhere in the file; every directory is a frame. Strips in chunky or
// planar order are supported with horizontal prediction, for bilevel, gray,
// RGB, palette and CMYK images with an optional alpha sample. Tiled and
// JPEG compressed images are not.
package tiff

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/imaging/codec"
	"github.com/gogpu/imaging/internal/logging"
	"github.com/gogpu/imaging/pixel"
)

const (
	formatName = "TIFF"
	headerLen  = 8
)

// Compression schemes.
const (
	cNone       = 1
	cLZW        = 5
	cJPEG       = 7
	cDeflate    = 8
	cPackBits   = 32773
	cDeflateOld = 32946
)

// Photometric interpretations.
const (
	pmWhiteIsZero = 0
	pmBlackIsZero = 1
	pmRGB         = 2
	pmPalette     = 3
	pmSeparated   = 5
)

// Extra sample kinds.
const (
	extraUnspecified = 0
	extraAssociated  = 1
	extraUnassoc     = 2
)

func init() {
	codec.Register(Descriptor())
}

// Descriptor returns the registry entry for the format.
func Descriptor() codec.Descriptor {
	return codec.Descriptor{
		Name:       formatName,
		Extensions: []string{".tif", ".tiff"},
		MIMEType:   "image/tiff",
		Sniff: func(p []byte) bool {
			return len(p) >= 4 && (string(p[:4]) == "II*\x00" || string(p[:4]) == "MM\x00*")
		},
		NewDecoder: func(opts codec.DecodeOptions) (codec.Decoder, error) {
			return codec.NewDecoder(formatName, &decoder{opts: opts}), nil
		},
		NewEncoder: NewEncoder,
		Caps:       codec.CapMultiFrame | codec.CapRandomAccess | codec.CapLossless,
	}
}

// readHeader returns the byte order and the first directory offset.
func readHeader(b []byte) (binary.ByteOrder, uint32, error) {
	var bo binary.ByteOrder
	switch string(b[:2]) {
	case "II":
		bo = binary.LittleEndian
	case "MM":
		bo = binary.BigEndian
	default:
		return nil, 0, fmt.Errorf("tiff: bad byte order mark %q: %w", b[:2], pixel.ErrCorrupt)
	}
	switch v := bo.Uint16(b[2:]); v {
	case 42:
	case 43:
		return nil, 0, fmt.Errorf("tiff: BigTIFF: %w", pixel.ErrUnsupported)
	default:
		return nil, 0, fmt.Errorf("tiff: bad version %d: %w", v, pixel.ErrCorrupt)
	}
	off := bo.Uint32(b[4:])
	if off < headerLen {
		return nil, 0, fmt.Errorf("tiff: first directory at %d: %w", off, pixel.ErrCorrupt)
	}
	return bo, off, nil
}

type decoder struct {
	opts    codec.DecodeOptions
	started bool
	f       file
	next    uint32
	index   int
	seen    map[uint32]bool
}

func (d *decoder) Step(in *codec.Input) (codec.Result, error) {
	if !in.EOF() {
		if b, ok := in.Peek(headerLen); ok && !d.started {
			if _, _, err := readHeader(b); err != nil {
				return codec.Result{}, err
			}
		}
		return codec.Result{Status: codec.StatusNeedMoreInput}, nil
	}
	d.f.b = in.Bytes()
	if !d.started {
		b, ok := in.Peek(headerLen)
		if !ok {
			return codec.Starved(in, "tiff", "header")
		}
		bo, off, err := readHeader(b)
		if err != nil {
			return codec.Result{}, err
		}
		d.f.bo, d.next, d.started = bo, off, true
		d.seen = map[uint32]bool{}
		logging.Logger().Debug("tiff: header", "order", bo.String(), "ifd", off, "size", len(d.f.b))
	}
	if d.next == 0 {
		return codec.Result{Status: codec.StatusDone}, nil
	}
	if d.seen[d.next] {
		return codec.Result{}, fmt.Errorf("tiff: directory loop at %d: %w", d.next, pixel.ErrCorrupt)
	}
	d.seen[d.next] = true

	dir, next, err := d.f.readIFD(d.next)
	if err != nil {
		return codec.Result{}, err
	}
	l, err := readLayout(dir, d.opts)
	if err != nil {
		return codec.Result{}, err
	}
	frame, partial, err := l.decode(&d.f, d.opts)
	if err != nil {
		return codec.Result{}, err
	}
	m := codec.NewMeta(formatName)
	m.Index = d.index
	m.Compression = compressionName(l.compression)
	m.Text = l.text
	d.index++
	d.next = next
	return codec.Result{Status: codec.StatusFrame, Frame: frame, Meta: m, Partial: partial}, nil
}

func compressionName(c uint32) string {
	switch c {
	case cNone:
		return "raw"
	case cLZW:
		return "lzw"
	case cDeflate, cDeflateOld:
		return "deflate"
	case cPackBits:
		return "packbits"
	}
	return fmt.Sprint(c)
}

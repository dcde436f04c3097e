// Package xbm implements X bitmaps, the C source format of X10 and X11.
//
// Bits are stored least significant first; a set bit is a foreground pixel
// and decodes to 255 in mode 1. The hotspot, when present, is reported as
// the "x_hot" and "y_hot" text entries.
package xbm

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/gogpu/imaging/codec"
	"github.com/gogpu/imaging/codec/packing"
	"github.com/gogpu/imaging/internal/logging"
	"github.com/gogpu/imaging/pixel"
)

const formatName = "XBM"

// maxHeader bounds the bytes before the opening brace of the bits array.
const maxHeader = 4 << 10

func init() {
	codec.Register(Descriptor())
}

// Descriptor returns the registry entry for the format.
func Descriptor() codec.Descriptor {
	return codec.Descriptor{
		Name:       formatName,
		Extensions: []string{".xbm"},
		MIMEType:   "image/x-xbitmap",
		Sniff:      sniff,
		NewDecoder: func(opts codec.DecodeOptions) (codec.Decoder, error) {
			return codec.NewDecoder(formatName, &decoder{opts: opts}), nil
		},
		NewEncoder: NewEncoder,
		Caps:       codec.CapIncremental | codec.CapLossless,
	}
}

func sniff(p []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(p, " \t\r\n"), []byte("#define"))
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F' || c == 'x' || c == 'X'
}

type state uint8

const (
	stateHeader state = iota
	stateRows
	stateDone
)

type decoder struct {
	opts  codec.DecodeOptions
	state state
	frame *pixel.Buffer
	unp   *packing.Unpacker
	x10   bool
	hot   map[string]string
	y     int
	line  []byte
	fill  int
}

func (d *decoder) Step(in *codec.Input) (codec.Result, error) {
	for {
		switch d.state {
		case stateHeader:
			ok, err := d.readHeader(in)
			if err != nil {
				return codec.Result{}, err
			}
			if !ok {
				return codec.Starved(in, "xbm", "header")
			}
		case stateRows:
			for d.y < d.frame.Height() {
				ok, err := d.readLine(in)
				if err != nil {
					return codec.Result{}, err
				}
				if !ok {
					return codec.StarvedInFrame(in, d.opts, "xbm", fmt.Sprintf("row %d", d.y), d.frame, d.meta())
				}
				d.unp.Unpack(d.frame.Row(d.y), d.line, d.frame.Width())
				d.y++
			}
			d.state = stateDone
			f := d.frame
			d.frame = nil
			return codec.Result{Status: codec.StatusFrame, Frame: f, Meta: d.meta()}, nil
		default:
			return codec.Result{Status: codec.StatusDone}, nil
		}
	}
}

func (d *decoder) meta() codec.FrameMeta {
	m := codec.NewMeta(formatName)
	if len(d.hot) > 0 {
		m.Text = d.hot
	}
	return m
}

// readHeader parses the #define lines and the array declaration up to its
// opening brace.
func (d *decoder) readHeader(in *codec.Input) (bool, error) {
	b := in.Bytes()
	end := bytes.IndexByte(b, '{')
	if end < 0 {
		if len(b) > maxHeader {
			return false, fmt.Errorf("xbm: no bits array in the first %d bytes: %w", maxHeader, pixel.ErrCorrupt)
		}
		return false, nil
	}
	width, height := -1, -1
	hot := map[string]string{}
	decl := false
	for line := range bytes.Lines(b[:end+1]) {
		f := bytes.Fields(line)
		if len(f) == 3 && string(f[0]) == "#define" {
			var dst *int
			name := string(f[1])
			switch {
			case hasSuffix(name, "_width"):
				dst = &width
			case hasSuffix(name, "_height"):
				dst = &height
			case hasSuffix(name, "_x_hot"), hasSuffix(name, "_y_hot"):
				dst = new(int)
			default:
				continue
			}
			v, err := strconv.Atoi(string(f[2]))
			if err != nil {
				return false, fmt.Errorf("xbm: bad value in %q: %w", bytes.TrimSpace(line), pixel.ErrCorrupt)
			}
			*dst = v
			if hasSuffix(name, "_hot") {
				hot[name[len(name)-5:]] = strconv.Itoa(v)
			}
			continue
		}
		if bytes.Contains(line, []byte("_bits")) && bytes.Contains(line, []byte("[")) {
			decl = true
			d.x10 = bytes.Contains(line, []byte("short"))
		}
	}
	if width < 0 || height < 0 || !decl {
		return false, fmt.Errorf("xbm: missing size defines or bits array: %w", pixel.ErrCorrupt)
	}
	if err := d.opts.CheckSize("xbm", width, height); err != nil {
		return false, err
	}
	frame, err := pixel.Allocate(pixel.Mode1, width, height)
	if err != nil {
		return false, err
	}
	if d.unp, err = packing.LookupUnpacker(pixel.Mode1, "1;R"); err != nil {
		return false, err
	}
	in.Skip(end + 1)
	n := (width + 7) / 8
	if d.x10 {
		n = (width + 15) / 16 * 2
	}
	d.frame, d.hot = frame, hot
	d.line = make([]byte, n)
	d.state = stateRows
	logging.Logger().Debug("xbm: header", "width", width, "height", height, "x10", d.x10)
	return true, nil
}

func hasSuffix(s, suffix string) bool {
	return len(s) > len(suffix) && s[len(s)-len(suffix):] == suffix
}

// readLine fills d.line from the array values. Values are consumed one at a
// time, so a line may be assembled over several calls.
func (d *decoder) readLine(in *codec.Input) (bool, error) {
	for d.fill < len(d.line) {
		v, ok, err := d.value(in)
		if err != nil || !ok {
			return false, err
		}
		if d.x10 {
			d.line[d.fill], d.line[d.fill+1] = byte(v), byte(v>>8)
			d.fill += 2
			continue
		}
		if v > 0xff {
			return false, fmt.Errorf("xbm: value %#x in a byte array: %w", v, pixel.ErrCorrupt)
		}
		d.line[d.fill] = byte(v)
		d.fill++
	}
	d.fill = 0
	return true, nil
}

// value returns the next array element. ok is false when the element is
// not yet fully buffered.
func (d *decoder) value(in *codec.Input) (v uint64, ok bool, err error) {
	b := in.Bytes()
	i := 0
	for i < len(b) && (isSpace(b[i]) || b[i] == ',') {
		i++
	}
	start := i
	for i < len(b) && isDigit(b[i]) {
		i++
		if i-start > len("0xffff") {
			return 0, false, fmt.Errorf("xbm: value too long at offset %d: %w", in.Offset()+int64(start), pixel.ErrCorrupt)
		}
	}
	// A value is complete once a delimiter follows it; the array always
	// closes with a brace, so a value running into the end of the stream
	// was cut.
	if i == len(b) {
		in.Skip(start)
		return 0, false, nil
	}
	if i == start {
		return 0, false, fmt.Errorf("xbm: unexpected %q in bits array: %w", b[i], pixel.ErrCorrupt)
	}
	v, err = strconv.ParseUint(string(b[start:i]), 0, 16)
	if err != nil {
		return 0, false, fmt.Errorf("xbm: bad value %q: %w", b[start:i], pixel.ErrCorrupt)
	}
	in.Skip(i)
	return v, true, nil
}

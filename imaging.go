package imaging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gogpu/imaging/codec"
	"github.com/gogpu/imaging/convert"
	"github.com/gogpu/imaging/internal/logging"
	"github.com/gogpu/imaging/ops"
	"github.com/gogpu/imaging/pixel"
	"github.com/gogpu/imaging/quantize"
	"github.com/gogpu/imaging/resample"
)

// New returns a width×height buffer of mode with every pixel set to fill.
// Indexed modes start with the grayscale palette.
func New(mode pixel.Mode, width, height int, fill pixel.Pixel) (*pixel.Buffer, error) {
	buf, err := pixel.Allocate(mode, width, height)
	if err != nil {
		return nil, err
	}
	if err := buf.Fill(fill); err != nil {
		return nil, err
	}
	return buf, nil
}

// Convert returns buf converted to mode. See package convert.
func Convert(buf *pixel.Buffer, mode pixel.Mode) (*pixel.Buffer, error) {
	return convert.Convert(buf, mode)
}

// Resize returns buf resampled to width×height, with the bicubic filter
// unless WithFilter says otherwise.
func Resize(buf *pixel.Buffer, width, height int, opts ...Option) (*pixel.Buffer, error) {
	o := buildOptions(opts)
	return resample.Resize(buf, width, height, o.filter)
}

// Thumbnail returns buf scaled down to fit within maxWidth×maxHeight,
// keeping its aspect ratio.
func Thumbnail(buf *pixel.Buffer, maxWidth, maxHeight int, opts ...Option) (*pixel.Buffer, error) {
	o := buildOptions(opts)
	return resample.Thumbnail(buf, maxWidth, maxHeight, o.filter)
}

// Rotate returns buf rotated counterclockwise by degrees around its center,
// growing the canvas to fit when expand is set. Uncovered pixels are zero.
func Rotate(buf *pixel.Buffer, degrees float64, expand bool) (*pixel.Buffer, error) {
	if buf == nil {
		return nil, fmt.Errorf("imaging: rotate nil buffer: %w", ErrInvalidArgument)
	}
	s := ops.Nearest
	if m := buf.Mode(); m.Is8Bit() && !m.IsIndexed() {
		s = ops.Bilinear
	}
	return ops.Rotate(buf, degrees, expand, s, pixel.Pixel{})
}

// Quantize reduces buf to a P buffer with at most colors palette entries.
func Quantize(buf *pixel.Buffer, colors int, opts ...Option) (*pixel.Buffer, error) {
	o := buildOptions(opts)
	res, err := quantize.Quantize(buf, colors, o.quantize)
	if err != nil {
		return nil, err
	}
	return res.Indices, nil
}

// Formats returns the formats known to the registry in effect.
func Formats(opts ...Option) []*codec.Descriptor {
	return buildOptions(opts).registry.Formats()
}

func lookupFormat(reg *codec.Registry, name string) (*codec.Descriptor, error) {
	d, ok := reg.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("imaging: format %q: %w", name, ErrUnknownFormat)
	}
	return d, nil
}

func frameReader(r io.Reader, o options) (*codec.FrameReader, error) {
	if o.format == "" {
		return codec.NewFrameReader(r, o.registry, o.decode)
	}
	d, err := lookupFormat(o.registry, o.format)
	if err != nil {
		return nil, err
	}
	return codec.OpenFrameReader(r, d, o.decode)
}

// Decode reads the first frame of the stream in r. The format is detected
// from the leading bytes unless WithFormat names it.
func Decode(r io.Reader, opts ...Option) (*pixel.Buffer, codec.FrameMeta, error) {
	fr, err := frameReader(r, buildOptions(opts))
	if err != nil {
		return nil, codec.FrameMeta{}, err
	}
	buf, meta, err := fr.Next()
	if errors.Is(err, io.EOF) {
		return nil, codec.FrameMeta{}, fmt.Errorf("imaging: %s stream has no frames: %w", fr.Format().Name, ErrCorrupt)
	}
	return buf, meta, err
}

// DecodeAll reads every frame of the stream in r.
func DecodeAll(r io.Reader, opts ...Option) ([]*pixel.Buffer, []codec.FrameMeta, error) {
	fr, err := frameReader(r, buildOptions(opts))
	if err != nil {
		return nil, nil, err
	}
	var (
		frames []*pixel.Buffer
		metas  []codec.FrameMeta
	)
	for {
		buf, meta, err := fr.Next()
		if errors.Is(err, io.EOF) {
			return frames, metas, nil
		}
		if err != nil {
			return nil, nil, err
		}
		frames = append(frames, buf)
		metas = append(metas, meta)
	}
}

// Open decodes the first frame of the named file.
func Open(path string, opts ...Option) (*pixel.Buffer, codec.FrameMeta, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, codec.FrameMeta{}, fmt.Errorf("imaging: %w", err)
	}
	defer f.Close()
	return Decode(f, opts...)
}

// Encode writes buf to w in the named format.
func Encode(w io.Writer, buf *pixel.Buffer, format string, opts ...Option) error {
	o := buildOptions(opts)
	d, err := lookupFormat(o.registry, format)
	if err != nil {
		return err
	}
	return codec.EncodeTo(w, d, buf, o.encode)
}

// Save writes buf to the named file. The format follows the file extension
// unless WithFormat names it. A failed encode removes the file.
func Save(path string, buf *pixel.Buffer, opts ...Option) error {
	o := buildOptions(opts)
	var (
		d   *codec.Descriptor
		err error
	)
	if o.format != "" {
		d, err = lookupFormat(o.registry, o.format)
	} else {
		ext := filepath.Ext(path)
		var ok bool
		if d, ok = o.registry.ByExtension(ext); !ok {
			err = fmt.Errorf("imaging: no format for extension %q: %w", ext, ErrUnknownFormat)
		}
	}
	if err != nil {
		return err
	}
	if !d.CanEncode() {
		return fmt.Errorf("imaging: %s has no encoder: %w", d.Name, ErrUnsupported)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("imaging: %w", err)
	}
	err = codec.EncodeTo(f, d, buf, o.encode)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("imaging: %w", cerr)
	}
	if err != nil {
		if rerr := os.Remove(path); rerr != nil {
			logging.Logger().Warn("imaging: remove after failed save", "path", path, "err", rerr)
		}
		return err
	}
	logging.Logger().Debug("imaging: saved", "path", path, "format", d.Name,
		"mode", buf.Mode(), "width", buf.Width(), "height", buf.Height())
	return nil
}

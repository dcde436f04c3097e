package imaging

import (
	"github.com/gogpu/imaging/codec"
	"github.com/gogpu/imaging/pixel"
	"github.com/gogpu/imaging/quantize"
	"github.com/gogpu/imaging/resample"
)

// Option configures a façade call. Options that do not apply to a call are
// ignored, so one option list can be shared between Open, Resize and Save.
//
// Example:
//
//	opts := []imaging.Option{
//	    imaging.WithFilter(resample.Lanczos),
//	    imaging.WithQuality(85),
//	}
//	small, err := imaging.Resize(img, 640, 480, opts...)
type Option func(*options)

// options holds the merged configuration of a façade call.
type options struct {
	registry *codec.Registry
	format   string
	filter   *resample.Filter
	quantize quantize.Options
	decode   codec.DecodeOptions
	encode   codec.EncodeOptions
}

// defaultOptions returns the defaults: the process-wide registry and the
// bicubic filter.
func defaultOptions() options {
	return options{
		filter: resample.Bicubic,
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.registry == nil {
		o.registry = codec.Default()
	}
	return o
}

// WithRegistry resolves formats in r instead of the process-wide registry.
func WithRegistry(r *codec.Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithFormat names the format explicitly. Decoding skips detection and
// encoding ignores the file extension.
func WithFormat(name string) Option {
	return func(o *options) {
		o.format = name
	}
}

// WithFilter sets the resampling filter of Resize and Thumbnail.
func WithFilter(f *resample.Filter) Option {
	return func(o *options) {
		o.filter = f
	}
}

// WithQuantizer sets the palette construction method of Quantize.
func WithQuantizer(m quantize.Method) Option {
	return func(o *options) {
		o.quantize.Method = m
	}
}

// WithLabDistance makes Quantize match colors by CIE Lab distance.
func WithLabDistance() Option {
	return func(o *options) {
		o.quantize.Metric = quantize.MetricLab
	}
}

// WithDither enables Floyd-Steinberg dithering in Quantize.
func WithDither() Option {
	return func(o *options) {
		o.quantize.Dither = true
	}
}

// WithMaxPixels bounds the frame size accepted by decoders. A negative value
// disables the check.
func WithMaxPixels(n int64) Option {
	return func(o *options) {
		o.decode.MaxPixels = n
	}
}

// WithPartial returns frames cut short by the end of the stream instead of
// failing with ErrTruncated.
func WithPartial() Option {
	return func(o *options) {
		o.decode.AllowPartial = true
	}
}

// WithHint supplies the geometry of headerless formats such as RAW.
func WithHint(h codec.Hint) Option {
	return func(o *options) {
		o.decode.Hint = &h
	}
}

// WithQuality sets the quality of lossy encoders, 1..100.
func WithQuality(q int) Option {
	return func(o *options) {
		o.encode.Quality = q
	}
}

// WithCompression sets the deflate level of PNG and TIFF encoders, 0..9,
// or -1 to store uncompressed.
func WithCompression(level int) Option {
	return func(o *options) {
		o.encode.Compression = level
	}
}

// WithRLE enables run-length encoding where the format offers it.
func WithRLE() Option {
	return func(o *options) {
		o.encode.RLE = true
	}
}

// WithText stores textual metadata in formats that carry it.
func WithText(text map[string]string) Option {
	return func(o *options) {
		o.encode.Text = text
	}
}

// WithFrames appends animation frames after the primary buffer in
// multi-frame formats.
func WithFrames(frames ...*pixel.Buffer) Option {
	return func(o *options) {
		o.encode.Frames = frames
	}
}

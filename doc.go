// Package imaging is an in-process image processing engine for Go.
//
// # Overview
//
// imaging owns pixel data in [pixel.Buffer] values, decodes and encodes a
// family of raster file formats, and transforms pixels: resampling, color
// space conversion and palette quantization. This package is a thin façade
// over the sub-packages; every function here has a lower-level counterpart
// with the full set of knobs.
//
// # Quick Start
//
//	import "github.com/gogpu/imaging"
//
//	img, meta, err := imaging.Open("photo.png")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(meta.Format, img.Mode(), img.Width(), img.Height())
//
//	small, err := imaging.Resize(img, img.Width()/2, img.Height()/2,
//	    imaging.WithFilter(resample.Lanczos))
//	if err != nil {
//	    return err
//	}
//	return imaging.Save("photo-small.jpg", small, imaging.WithQuality(90))
//
// # Formats
//
// Importing this package registers every built-in codec: BMP, GIF, JPEG,
// PCX, PNG, PPM, QOI, RAW, SUN, TGA, TIFF, WEBP (decode only) and XBM.
// Programs that want a subset import the codec packages they need and use
// package codec directly.
//
// # Architecture
//
// The library is organized into:
//   - pixel: buffers, modes, palettes, paste and fill through masks
//   - codec: descriptors, the registry, incremental decoders and encoders
//   - convert, resample, quantize: the pixel transform engines
//   - filter, ops, text: blurs and convolution, geometry and channel
//     operations, glyph rasterization
//
// # Concurrency
//
// Buffers, decoders and encoders are single-owner values; nothing in the
// library starts goroutines. The format registry is read-only once in use
// and safe for concurrent lookups.
//
// # Coordinate System
//
// Origin (0,0) is the top-left pixel; X increases right and Y increases
// down. Rotation angles are in degrees, counterclockwise.
package imaging

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0
)

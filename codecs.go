package imaging

// Built-in formats register themselves with the default registry.
import (
	_ "github.com/gogpu/imaging/codec/bmp"
	_ "github.com/gogpu/imaging/codec/gif"
	_ "github.com/gogpu/imaging/codec/jpeg"
	_ "github.com/gogpu/imaging/codec/pcx"
	_ "github.com/gogpu/imaging/codec/png"
	_ "github.com/gogpu/imaging/codec/ppm"
	_ "github.com/gogpu/imaging/codec/qoi"
	_ "github.com/gogpu/imaging/codec/raw"
	_ "github.com/gogpu/imaging/codec/sun"
	_ "github.com/gogpu/imaging/codec/tga"
	_ "github.com/gogpu/imaging/codec/tiff"
	_ "github.com/gogpu/imaging/codec/webp"
	_ "github.com/gogpu/imaging/codec/xbm"
)

package imaging

import "github.com/gogpu/imaging/pixel"

// Error kinds reported by every package of the module. Test for them with
// errors.Is; [KindOf] classifies an error at once.
var (
	ErrInvalidArgument   = pixel.ErrInvalidArgument
	ErrOutOfBounds       = pixel.ErrOutOfBounds
	ErrUnknownFormat     = pixel.ErrUnknownFormat
	ErrTruncated         = pixel.ErrTruncated
	ErrCorrupt           = pixel.ErrCorrupt
	ErrUnsupported       = pixel.ErrUnsupported
	ErrResourceExhausted = pixel.ErrResourceExhausted
)

// Kind classifies an engine error.
type Kind = pixel.Kind

// KindOf returns the kind of err, or pixel.KindUnknown for errors that did
// not originate in the engine.
func KindOf(err error) Kind {
	return pixel.KindOf(err)
}

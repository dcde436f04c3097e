package pixel

import "errors"

// Kind classifies an engine error.
type Kind uint8

const (
	// KindUnknown is reported for errors that did not originate in the engine.
	KindUnknown Kind = iota
	// KindInvalidArgument marks bad caller-supplied parameters.
	KindInvalidArgument
	// KindOutOfBounds marks pixel access outside the buffer extent.
	KindOutOfBounds
	// KindUnknownFormat marks a stream no codec recognizes.
	KindUnknownFormat
	// KindTruncated marks a stream that ended before the format completed.
	KindTruncated
	// KindCorrupt marks structurally invalid data.
	KindCorrupt
	// KindUnsupported marks a recognized feature that is not implemented.
	KindUnsupported
	// KindResourceExhausted marks a buffer or palette too large to allocate.
	KindResourceExhausted
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid argument"
	case KindOutOfBounds:
		return "out of bounds"
	case KindUnknownFormat:
		return "unknown format"
	case KindTruncated:
		return "truncated"
	case KindCorrupt:
		return "corrupt"
	case KindUnsupported:
		return "unsupported"
	case KindResourceExhausted:
		return "resource exhausted"
	default:
		return "unknown error"
	}
}

type kindError struct{ kind Kind }

func (e *kindError) Error() string { return e.kind.String() }

// Sentinel errors, one per Kind. Operations wrap them with context, so test
// with errors.Is.
var (
	ErrInvalidArgument   error = &kindError{KindInvalidArgument}
	ErrOutOfBounds       error = &kindError{KindOutOfBounds}
	ErrUnknownFormat     error = &kindError{KindUnknownFormat}
	ErrTruncated         error = &kindError{KindTruncated}
	ErrCorrupt           error = &kindError{KindCorrupt}
	ErrUnsupported       error = &kindError{KindUnsupported}
	ErrResourceExhausted error = &kindError{KindResourceExhausted}
)

// KindOf returns the Kind of the first engine sentinel in err's chain.
func KindOf(err error) Kind {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.kind
	}
	return KindUnknown
}

package imagekit

import "errors"

var (
	// ErrInvalidInput reports a missing or unreadable file, a missing font,
	// a malformed header or an argument the backend cannot honour.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnsupportedFormat reports that no decoder or encoder is available for
	// a format, or that a file extension is not recognised.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrEncodeFailure reports that freshly encoded bytes could not be decoded
	// back into a valid buffer.
	ErrEncodeFailure = errors.New("encode failure")
)

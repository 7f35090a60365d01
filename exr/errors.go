package exr

import (
	"errors"
	"fmt"
)

// Sentinel errors. Structured errors returned by this package wrap one of
// these where a more specific cause exists.
var (
	ErrInvalidDimensions      = errors.New("exr: invalid dimensions")
	ErrInvalidWindow          = errors.New("exr: invalid window")
	ErrInvalidChannel         = errors.New("exr: invalid channel")
	ErrDuplicateChannel       = errors.New("exr: duplicate channel name")
	ErrChannelNotFound        = errors.New("exr: channel not found")
	ErrBoundsCheck            = errors.New("exr: sample address out of bounds")
	ErrLayoutPadding          = errors.New("exr: sample layout has padding")
	ErrLayoutUnsupported      = errors.New("exr: unsupported sample layout")
	ErrInvalidMagic           = errors.New("exr: invalid magic number")
	ErrUnsupportedVersion     = errors.New("exr: unsupported file version")
	ErrUnsupportedCompression = errors.New("exr: unsupported compression")
	ErrMissingAttribute       = errors.New("exr: missing required attribute")
	ErrIncomplete             = errors.New("exr: image is incomplete")
	ErrClosed                 = errors.New("exr: file is closed")
	ErrInvalidThreadCount     = errors.New("exr: invalid thread count")
)

// ErrorKind classifies the failures reported by *Error.
//
// An ErrorKind is itself an error so that callers can test for a class of
// failure with errors.Is(err, exr.KindGeometry).
type ErrorKind int

const (
	// KindGeometry: frame buffer dimensions or origin disagree with the
	// data window.
	KindGeometry ErrorKind = iota + 1
	// KindChannelMismatch: a channel's pixel type or sampling differs
	// between header and frame buffer, or a channel needed for writing is
	// absent.
	KindChannelMismatch
	// KindIO: the underlying stream failed to read, write or seek.
	KindIO
	// KindProtocol: the call is not valid in the file's current state.
	KindProtocol
	// KindSize: a caller buffer has the wrong length.
	KindSize
	// KindFormat: the file or header content is malformed or unsupported.
	KindFormat
)

func (k ErrorKind) String() string {
	switch k {
	case KindGeometry:
		return "geometry mismatch"
	case KindChannelMismatch:
		return "channel mismatch"
	case KindIO:
		return "i/o failure"
	case KindProtocol:
		return "protocol violation"
	case KindSize:
		return "size mismatch"
	case KindFormat:
		return "invalid format"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

func (k ErrorKind) Error() string {
	return "exr: " + k.String()
}

// Error is the structured error returned by frame buffer, header and file
// operations.
type Error struct {
	Kind ErrorKind
	// Op names the operation that failed, e.g. "write pixels".
	Op string
	// Msg is a human-readable description. It may be empty when Err
	// carries the whole story.
	Msg string
	Err error
}

func (e *Error) Error() string {
	s := "exr: " + e.Op
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the ErrorKind of e.
func (e *Error) Is(target error) bool {
	k, ok := target.(ErrorKind)
	return ok && k == e.Kind
}

// KindOf returns the ErrorKind of the first *Error in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func newError(kind ErrorKind, op string, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...), Err: err}
}

func ioError(op string, err error) *Error {
	return &Error{Kind: KindIO, Op: op, Err: err}
}

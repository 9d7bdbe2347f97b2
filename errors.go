package filmgrade

import (
	"errors"
	"fmt"
)

var (
	// ErrLUTParse is returned for malformed .cube resources.
	ErrLUTParse = errors.New("lut parse error")
	// ErrLUTNotFound is returned for unknown or disabled catalog ids; the pipeline falls back to identity.
	ErrLUTNotFound = errors.New("lut not found")
	// ErrDecode is returned when the input image can not be decoded.
	ErrDecode = errors.New("decode error")
	// ErrInterpolationBounds reports a LUT read outside the table.
	ErrInterpolationBounds = errors.New("interpolation out of bounds")
	// ErrExifEncodeField is wrapped by FieldError for a single unencodable metadata field.
	ErrExifEncodeField = errors.New("exif field encode error")
	// ErrEncode is returned when the graded image can not be encoded.
	ErrEncode = errors.New("encode error")
	// ErrQueueClosed is returned by Submit after Close.
	ErrQueueClosed = errors.New("queue closed")
)

// LUTParseError describes a malformed .cube resource.
type LUTParseError struct {
	Source string
	Line   int
	Msg    string
}

func (e *LUTParseError) Error() string {
	src := e.Source
	if src == "" {
		src = "cube"
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", src, e.Line, e.Msg)
	}
	return src + ": " + e.Msg
}

// Unwrap makes errors.Is(err, ErrLUTParse) hold.
func (e *LUTParseError) Unwrap() error { return ErrLUTParse }

// FieldError describes a metadata field that was dropped from the EXIF output.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return "exif field " + e.Field + ": " + e.Err.Error()
}

// Unwrap returns both the cause and ErrExifEncodeField.
func (e *FieldError) Unwrap() []error { return []error{ErrExifEncodeField, e.Err} }

func fieldErr(field string, format string, args ...any) *FieldError {
	return &FieldError{Field: field, Err: fmt.Errorf(format, args...)}
}

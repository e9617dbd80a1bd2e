package rowdata

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is matching. The concrete error types below carry the
// details and unwrap to these.
var (
	ErrSchema     = errors.New("invalid schema")
	ErrConversion = errors.New("conversion failed")
	ErrBufferSize = errors.New("key buffer too small")
)

// SchemaError reports a header or codec configuration that cannot be used.
// It is returned at construction time only.
type SchemaError struct {
	Column int    // Header token index, -1 if not column-specific
	Token  string // Offending header token or value
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Column < 0 {
		return fmt.Sprintf("invalid schema: %s", e.Reason)
	}
	return fmt.Sprintf("invalid schema: column %d (%q): %s", e.Column, e.Token, e.Reason)
}

func (e *SchemaError) Unwrap() error { return ErrSchema }

// ConversionError reports a property value that does not parse as its
// declared column type.
type ConversionError struct {
	Column string // Column name
	Index  int    // Column index in the schema
	Type   Type
	Value  string // Raw token as read from the line
	Err    error  // Underlying parse error, may be nil
}

func (e *ConversionError) Error() string {
	msg := fmt.Sprintf("invalid %s for column %q (index %d): %q", e.Type, e.Column, e.Index, e.Value)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is lets errors.Is match both ErrConversion and the wrapped parse error.
func (e *ConversionError) Is(target error) bool { return target == ErrConversion }

func (e *ConversionError) Unwrap() error { return e.Err }

// BufferSizeError reports a caller key buffer shorter than the key prefix.
type BufferSizeError struct {
	Have int
	Want int
}

func (e *BufferSizeError) Error() string {
	return fmt.Sprintf("key buffer too small: have %d slots, need at least %d", e.Have, e.Want)
}

func (e *BufferSizeError) Unwrap() error { return ErrBufferSize }

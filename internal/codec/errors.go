package codec

import (
	"errors"
	"fmt"
)

// ErrCodec is matched by every *Error.
var ErrCodec = errors.New("codec: error")

// Error reports a document that cannot be encoded or data that cannot be decoded.
type Error struct {
	Op     string // "encode" or "decode"
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("codec: %s: %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("codec: %s: %s", e.Op, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrCodec) true for any *Error.
func (e *Error) Is(target error) bool { return target == ErrCodec }

func encodeError(reason string, err error) error {
	return &Error{Op: "encode", Reason: reason, Err: err}
}

func decodeError(reason string, err error) error {
	return &Error{Op: "decode", Reason: reason, Err: err}
}

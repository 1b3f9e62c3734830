package path

import (
	"errors"
	"fmt"
)

var (
	// ErrSyntax indicates a malformed path expression.
	ErrSyntax = errors.New("path: syntax error")

	// ErrAddressing indicates a path that cannot be addressed in a document,
	// such as removing the root or setting below a missing array.
	ErrAddressing = errors.New("path: addressing error")
)

// SyntaxError reports a malformed path expression and where parsing stopped.
type SyntaxError struct {
	Expr   string
	Offset int
	Reason string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("path: invalid expression %q at offset %d: %s", e.Expr, e.Offset, e.Reason)
}

func (e *SyntaxError) Unwrap() error { return ErrSyntax }

func syntaxError(expr string, offset int, reason string) error {
	return &SyntaxError{Expr: expr, Offset: offset, Reason: reason}
}

// AddressingError reports an operation that cannot be applied at Path.
type AddressingError struct {
	Path   Path
	Reason string
}

func (e *AddressingError) Error() string {
	return fmt.Sprintf("path: cannot address %s: %s", e.Path, e.Reason)
}

func (e *AddressingError) Unwrap() error { return ErrAddressing }

// NewAddressingError returns an *AddressingError for p.
func NewAddressingError(p Path, reason string) error {
	return &AddressingError{Path: p, Reason: reason}
}

package jsonfield

import (
	"errors"
	"fmt"

	"github.com/rzpsarthak13/jsonfield/internal/codec"
	"github.com/rzpsarthak13/jsonfield/internal/core"
	"github.com/rzpsarthak13/jsonfield/internal/path"
)

// PathSyntaxError reports a malformed path expression.
type PathSyntaxError = path.SyntaxError

// PathAddressingError reports an operation that cannot be applied at a path,
// such as removing the root or setting below a missing array element.
type PathAddressingError = path.AddressingError

// CodecError reports a document that cannot be represented under the active
// codec options, or stored data that cannot be decoded.
type CodecError = codec.Error

var (
	ErrPathSyntax     = path.ErrSyntax
	ErrPathAddressing = path.ErrAddressing
	ErrCodec          = codec.ErrCodec

	// ErrNotFound is returned when a key or a lookup matches no row.
	ErrNotFound = core.ErrNotFound

	// ErrStoreClosed is returned by operations on a closed client.
	ErrStoreClosed = core.ErrStoreClosed

	// ErrUnsupportedComparison is returned for ordering comparisons against
	// values other than numbers and strings.
	ErrUnsupportedComparison = core.ErrUnsupportedComparison

	// ErrStatementReuse is matched by every *StatementReuseError.
	ErrStatementReuse = errors.New("jsonfield: statement reused")

	// ErrTableMismatch is returned when a condition built for one field is
	// attached to a statement of another, or when a row or field is handed
	// to a field or client it does not belong to.
	ErrTableMismatch = errors.New("jsonfield: condition belongs to another table")
)

// StatementReuseError reports an operation on a mutation that already ran.
type StatementReuseError struct {
	Statement string
	Op        string // "execute" or "where"
}

func (e *StatementReuseError) Error() string {
	return fmt.Sprintf("jsonfield: cannot %s %s: already executed", e.Op, e.Statement)
}

// Is makes errors.Is(err, ErrStatementReuse) true for any *StatementReuseError.
func (e *StatementReuseError) Is(target error) bool { return target == ErrStatementReuse }

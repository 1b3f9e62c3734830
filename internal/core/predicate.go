package core

import (
	"fmt"

	"github.com/rzpsarthak13/jsonfield/internal/codec"
	"github.com/rzpsarthak13/jsonfield/internal/document"
)

// Predicate is one condition of a WHERE clause. Stores translate predicates
// into their native form; the set of implementations is closed.
type Predicate interface {
	fmt.Stringer
	predicate()
}

// CompareOp is a comparison operator.
type CompareOp string

const (
	OpEq CompareOp = "="
	OpNe CompareOp = "<>"
	OpLt CompareOp = "<"
	OpLe CompareOp = "<="
	OpGt CompareOp = ">"
	OpGe CompareOp = ">="
)

// Ordering reports whether op requires ordered operands.
func (op CompareOp) Ordering() bool {
	return op != OpEq && op != OpNe
}

// Holds reports whether cmp (as returned by document.Compare) satisfies op.
func (op CompareOp) Holds(cmp int) bool {
	switch op {
	case OpEq:
		return cmp == 0
	case OpNe:
		return cmp != 0
	case OpLt:
		return cmp < 0
	case OpLe:
		return cmp <= 0
	case OpGt:
		return cmp > 0
	case OpGe:
		return cmp >= 0
	}
	return false
}

// KeyEquals matches the row whose primary key equals Key.
type KeyEquals struct {
	Key any
}

func (KeyEquals) predicate() {}

func (p KeyEquals) String() string { return fmt.Sprintf("key = %v", p.Key) }

// Compare matches rows whose extracted value has the same kind as Value and
// stands in relation Op to it. Rows where the path is absent never match.
type Compare struct {
	Extract CompiledExtract
	Op      CompareOp

	// Raw is the encoded operand and Value its plain decoding.
	Raw   []byte
	Value any
	Kind  document.Kind
}

func (Compare) predicate() {}

func (p Compare) String() string {
	return fmt.Sprintf("%s %s %s", p.Extract.Path, p.Op, p.Raw)
}

// Presence matches rows where the path exists (Present) or is absent.
type Presence struct {
	Extract CompiledExtract
	Present bool
}

func (Presence) predicate() {}

func (p Presence) String() string {
	if p.Present {
		return "exists " + p.Extract.Path.String()
	}
	return "missing " + p.Extract.Path.String()
}

// NullCheck matches rows where the path holds JSON null (Null), or holds any
// other value. Absent paths match neither.
type NullCheck struct {
	Extract CompiledExtract
	Null    bool
}

func (NullCheck) predicate() {}

func (p NullCheck) String() string {
	if p.Null {
		return p.Extract.Path.String() + " is null"
	}
	return p.Extract.Path.String() + " is not null"
}

// NewComparison builds the predicate comparing the extraction x with the
// encoded operand raw. Comparisons with null become a NullCheck; ordering
// comparisons require a number or string operand.
func NewComparison(x CompiledExtract, op CompareOp, raw []byte) (Predicate, error) {
	value, err := codec.Decode(raw, codec.Options{})
	if err != nil {
		return nil, err
	}
	kind := document.KindOf(value)

	if kind == document.KindNull {
		switch op {
		case OpEq:
			return NullCheck{Extract: x, Null: true}, nil
		case OpNe:
			return NullCheck{Extract: x, Null: false}, nil
		}
	}
	if op.Ordering() && !kind.Ordered() {
		return nil, fmt.Errorf("%w: %s %s %s operand", ErrUnsupportedComparison, x.Path, op, kind)
	}
	return Compare{Extract: x, Op: op, Raw: raw, Value: value, Kind: kind}, nil
}

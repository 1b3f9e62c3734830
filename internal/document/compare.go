package document

import (
	"bytes"
	"math"
	"math/big"
	"time"
)

// Kind classifies a document value for comparisons.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindObject
	KindArray
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return "other"
	}
}

// Ordered reports whether values of kind k support <, <=, > and >=.
func (k Kind) Ordered() bool {
	return k == KindNumber || k == KindString
}

// KindOf returns the kind of a canonical document value.
func KindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return KindNull
	case bool:
		return KindBool
	case int64, uint64, float64:
		return KindNumber
	case string:
		return KindString
	case map[string]any:
		return KindObject
	case []any:
		return KindArray
	default:
		return KindOther
	}
}

// Compare orders a and b. ok is false when the values have different kinds
// or their kind is not ordered. Numbers compare by value regardless of their
// Go representation.
func Compare(a, b any) (cmp int, ok bool) {
	ka, kb := KindOf(a), KindOf(b)
	if ka != kb || !ka.Ordered() {
		return 0, false
	}
	if ka == KindString {
		sa, sb := a.(string), b.(string)
		switch {
		case sa < sb:
			return -1, true
		case sa > sb:
			return 1, true
		}
		return 0, true
	}
	return numCompare(a, b)
}

// Equal reports whether a and b are the same document. Numbers are equal by
// value; objects and arrays compare member by member.
func Equal(a, b any) bool {
	ka, kb := KindOf(a), KindOf(b)
	if ka != kb {
		return false
	}
	switch ka {
	case KindNull:
		return true
	case KindBool:
		return a.(bool) == b.(bool)
	case KindNumber:
		c, ok := numCompare(a, b)
		return ok && c == 0
	case KindString:
		return a.(string) == b.(string)
	case KindObject:
		ma, mb := a.(map[string]any), b.(map[string]any)
		if len(ma) != len(mb) {
			return false
		}
		for k, va := range ma {
			vb, ok := mb[k]
			if !ok || !Equal(va, vb) {
				return false
			}
		}
		return true
	case KindArray:
		la, lb := a.([]any), b.([]any)
		if len(la) != len(lb) {
			return false
		}
		for i := range la {
			if !Equal(la[i], lb[i]) {
				return false
			}
		}
		return true
	default:
		return otherEqual(a, b)
	}
}

func otherEqual(a, b any) bool {
	switch x := a.(type) {
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	case []byte:
		y, ok := b.([]byte)
		return ok && bytes.Equal(x, y)
	}
	return false
}

// numCompare compares two numbers exactly. NaN is unordered.
func numCompare(a, b any) (int, bool) {
	if isNaN(a) || isNaN(b) {
		return 0, false
	}
	return toBig(a).Cmp(toBig(b)), true
}

func isNaN(v any) bool {
	f, ok := v.(float64)
	return ok && math.IsNaN(f)
}

func toBig(v any) *big.Float {
	f := new(big.Float)
	switch x := v.(type) {
	case int64:
		f.SetInt64(x)
	case uint64:
		f.SetUint64(x)
	case float64:
		f.SetFloat64(x)
	}
	return f
}

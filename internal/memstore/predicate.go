package memstore

import (
	"fmt"

	"github.com/rzpsarthak13/jsonfield/internal/core"
	"github.com/rzpsarthak13/jsonfield/internal/document"
)

// matches evaluates every predicate against one row. doc is the decoded
// column, nil for SQL NULL.
func matches(r *row, doc any, where []core.Predicate) (bool, error) {
	for _, pred := range where {
		ok, err := holds(r, doc, pred)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func holds(r *row, doc any, pred core.Predicate) (bool, error) {
	switch p := pred.(type) {
	case core.KeyEquals:
		return r.key == core.NormalizeKey(p.Key), nil
	case core.Presence:
		_, ok, err := extract(p.Extract, doc)
		return ok == p.Present, err
	case core.NullCheck:
		v, ok, err := extract(p.Extract, doc)
		return ok && (v == nil) == p.Null, err
	case core.Compare:
		v, ok, err := extract(p.Extract, doc)
		if err != nil || !ok || document.KindOf(v) != p.Kind {
			return false, err
		}
		if !p.Op.Ordering() {
			return document.Equal(v, p.Value) == (p.Op == core.OpEq), nil
		}
		c, ok := document.Compare(v, p.Value)
		return ok && p.Op.Holds(c), nil
	default:
		return false, fmt.Errorf("unsupported predicate %T", pred)
	}
}

func extract(x core.CompiledExtract, doc any) (any, bool, error) {
	e, ok := x.Native.(extractExpr)
	if !ok {
		return nil, false, fmt.Errorf("extraction of %s was not compiled for memory", x.Path)
	}
	if doc == nil {
		return nil, false, nil
	}
	v, found := e.eval(doc)
	return v, found, nil
}

package sqlexpr

import (
	"fmt"
	"strings"

	"github.com/gocraft/dbr/v2"
	"github.com/gocraft/dbr/v2/dialect"

	"github.com/rzpsarthak13/jsonfield/internal/core"
	"github.com/rzpsarthak13/jsonfield/internal/document"
	"github.com/rzpsarthak13/jsonfield/internal/path"
)

// Dialect renders path operations for one SQL database. col is always an
// already-quoted column reference.
type Dialect interface {
	// Name is the dialect identifier used in configuration.
	Name() string

	// Native returns the dbr dialect used for quoting and interpolation.
	Native() dbr.Dialect

	// JSONColumnType is the column type used when creating JSON columns.
	JSONColumnType() string

	// Set returns the new column value after storing the encoded JSON raw at p.
	Set(col string, p path.Path, raw string) Fragment

	// Remove returns the new column value after deleting p.
	Remove(col string, p path.Path) Fragment

	// Extract returns the value at p.
	Extract(col string, p path.Path) Fragment

	// Exists is true when p is present (or absent, when present is false).
	Exists(col string, p path.Path, present bool) Fragment

	// IsNull is true when p holds JSON null (or a non-null value, when null
	// is false). Absent paths satisfy neither form.
	IsNull(col string, p path.Path, null bool) Fragment

	// ContainerIs is true when the value at p is an array (or an object,
	// when array is false). With orMissing an absent p also qualifies. A NULL
	// column counts as an empty object.
	ContainerIs(col string, p path.Path, array, orMissing bool) Fragment

	// Compare is true when the value at p has kind and stands in relation
	// op to value, whose encoding is raw.
	Compare(col string, p path.Path, op core.CompareOp, kind document.Kind, value any, raw string) (Fragment, error)
}

// ForName returns the dialect registered under name.
func ForName(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "mysql":
		return MySQL, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	}
	return nil, fmt.Errorf("unsupported SQL dialect: %s", name)
}

// Guard returns the condition under which a set at p is addressable, and
// false when every document qualifies. It mirrors document.Addressable: each
// parent of p must be the container its next segment needs, and only parents
// past the required prefix may be missing.
func Guard(d Dialect, col string, p path.Path) (Fragment, bool) {
	if p.IsRoot() {
		return Fragment{}, false
	}
	req := len(p.RequiredPrefix())
	frags := make([]Fragment, len(p))
	for i, seg := range p {
		frags[i] = d.ContainerIs(col, p[:i], seg.IsIndex, i > req)
	}
	return And(frags...), true
}

// intermediates lists the prefixes of p that a set creates as empty objects
// when missing: every proper prefix longer than the required prefix.
func intermediates(p path.Path) []path.Path {
	var out []path.Path
	for k := len(p.RequiredPrefix()) + 1; k < len(p); k++ {
		out = append(out, p[:k])
	}
	return out
}

var (
	// MySQL renders expressions with the JSON_* functions of MySQL 5.7+.
	MySQL Dialect = mysqlDialect{}

	// SQLite renders expressions with the json_* functions of SQLite 3.38+.
	SQLite Dialect = sqliteDialect{}
)

type mysqlDialect struct{}

func (mysqlDialect) Name() string           { return "mysql" }
func (mysqlDialect) Native() dbr.Dialect    { return dialect.MySQL }
func (mysqlDialect) JSONColumnType() string { return "JSON" }

func (mysqlDialect) Set(col string, p path.Path, raw string) Fragment {
	b := &builder{}
	if p.IsRoot() {
		return b.sql("CAST(").arg(raw).sql(" AS JSON)").done()
	}
	b.sql("JSON_SET(COALESCE(", col, ", JSON_OBJECT())")
	for _, mid := range intermediates(p) {
		lit := mid.SQL()
		b.sql(", ").arg(lit).sql(", COALESCE(JSON_EXTRACT(", col, ", ").arg(lit).sql("), JSON_OBJECT())")
	}
	b.sql(", ").arg(p.SQL()).sql(", CAST(").arg(raw).sql(" AS JSON))")
	return b.done()
}

func (mysqlDialect) Remove(col string, p path.Path) Fragment {
	return (&builder{}).sql("JSON_REMOVE(", col, ", ").arg(p.SQL()).sql(")").done()
}

func (mysqlDialect) Extract(col string, p path.Path) Fragment {
	return (&builder{}).sql("JSON_EXTRACT(", col, ", ").arg(p.SQL()).sql(")").done()
}

func (mysqlDialect) Exists(col string, p path.Path, present bool) Fragment {
	want := "1"
	if !present {
		want = "0"
	}
	return (&builder{}).sql("COALESCE(JSON_CONTAINS_PATH(", col, ", 'one', ").arg(p.SQL()).sql("), 0) = ", want).done()
}

func (d mysqlDialect) IsNull(col string, p path.Path, null bool) Fragment {
	op := " = "
	if !null {
		op = " <> "
	}
	return (&builder{}).sql("JSON_TYPE(").frag(d.Extract(col, p)).sql(")", op, "'NULL'").done()
}

func (mysqlDialect) ContainerIs(col string, p path.Path, array, orMissing bool) Fragment {
	typ := "'OBJECT'"
	if array {
		typ = "'ARRAY'"
	}
	b := &builder{}
	switch {
	case p.IsRoot():
		b.sql("COALESCE(JSON_TYPE(", col, "), 'OBJECT') = ", typ)
	case orMissing:
		b.sql("COALESCE(JSON_TYPE(JSON_EXTRACT(", col, ", ").arg(p.SQL()).sql(")), ", typ, ") = ", typ)
	default:
		b.sql("JSON_TYPE(JSON_EXTRACT(", col, ", ").arg(p.SQL()).sql(")) = ", typ)
	}
	return b.done()
}

var mysqlTypes = map[document.Kind]string{
	document.KindBool:   "'BOOLEAN'",
	document.KindNumber: "'INTEGER', 'UNSIGNED INTEGER', 'DOUBLE', 'DECIMAL'",
	document.KindString: "'STRING'",
	document.KindObject: "'OBJECT'",
	document.KindArray:  "'ARRAY'",
}

func (d mysqlDialect) Compare(col string, p path.Path, op core.CompareOp, kind document.Kind, _ any, raw string) (Fragment, error) {
	types, ok := mysqlTypes[kind]
	if !ok {
		return Fragment{}, fmt.Errorf("%w: %s operand", core.ErrUnsupportedComparison, kind)
	}
	extract := d.Extract(col, p)
	b := &builder{}
	b.sql("JSON_TYPE(").frag(extract).sql(") IN (", types, ") AND ")
	b.frag(extract).sql(" ", string(op), " CAST(").arg(raw).sql(" AS JSON)")
	return b.done(), nil
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string           { return "sqlite" }
func (sqliteDialect) Native() dbr.Dialect    { return dialect.SQLite3 }
func (sqliteDialect) JSONColumnType() string { return "TEXT" }

func (sqliteDialect) Set(col string, p path.Path, raw string) Fragment {
	b := &builder{}
	if p.IsRoot() {
		return b.sql("json(").arg(raw).sql(")").done()
	}
	b.sql("json_set(COALESCE(", col, ", '{}')")
	for _, mid := range intermediates(p) {
		lit := mid.SQL()
		b.sql(", ").arg(lit).sql(", json(COALESCE(", col, " -> ").arg(lit).sql(", '{}'))")
	}
	b.sql(", ")
	if last, _ := p.Last(); last.IsIndex {
		// json_set only appends through the '#' index, so indexes at or past
		// the end are rewritten to it.
		parent := p.Parent().SQL()
		b.sql("CASE WHEN json_array_length(", col, ", ").arg(parent).sql(") > ").arg(last.Index)
		b.sql(" THEN ").arg(p.SQL()).sql(" ELSE ").arg(parent + "[#]").sql(" END")
	} else {
		b.arg(p.SQL())
	}
	b.sql(", json(").arg(raw).sql("))")
	return b.done()
}

func (sqliteDialect) Remove(col string, p path.Path) Fragment {
	return (&builder{}).sql("json_remove(", col, ", ").arg(p.SQL()).sql(")").done()
}

func (sqliteDialect) Extract(col string, p path.Path) Fragment {
	return (&builder{}).sql("json_extract(", col, ", ").arg(p.SQL()).sql(")").done()
}

func (sqliteDialect) Exists(col string, p path.Path, present bool) Fragment {
	cond := " IS NOT NULL"
	if !present {
		cond = " IS NULL"
	}
	return (&builder{}).sql("json_type(", col, ", ").arg(p.SQL()).sql(")", cond).done()
}

func (sqliteDialect) IsNull(col string, p path.Path, null bool) Fragment {
	op := " = "
	if !null {
		op = " <> "
	}
	return (&builder{}).sql("json_type(", col, ", ").arg(p.SQL()).sql(")", op, "'null'").done()
}

func (sqliteDialect) ContainerIs(col string, p path.Path, array, orMissing bool) Fragment {
	typ := "'object'"
	if array {
		typ = "'array'"
	}
	b := &builder{}
	switch {
	case p.IsRoot():
		b.sql("COALESCE(json_type(", col, "), 'object') = ", typ)
	case orMissing:
		b.sql("COALESCE(json_type(", col, ", ").arg(p.SQL()).sql("), ", typ, ") = ", typ)
	default:
		b.sql("json_type(", col, ", ").arg(p.SQL()).sql(") = ", typ)
	}
	return b.done()
}

var sqliteTypes = map[document.Kind]string{
	document.KindBool:   "'true', 'false'",
	document.KindNumber: "'integer', 'real'",
	document.KindString: "'text'",
	document.KindObject: "'object'",
	document.KindArray:  "'array'",
}

// treeNodes selects the path, kind and scalar value of every node of a
// json_tree walk. Integers and reals share a kind so 1 and 1.0 are equal.
const treeNodes = "SELECT fullkey, CASE WHEN type IN ('integer', 'real') THEN 'number' ELSE type END, atom FROM json_tree("

func (d sqliteDialect) Compare(col string, p path.Path, op core.CompareOp, kind document.Kind, value any, raw string) (Fragment, error) {
	types, ok := sqliteTypes[kind]
	if !ok {
		return Fragment{}, fmt.Errorf("%w: %s operand", core.ErrUnsupportedComparison, kind)
	}
	b := &builder{}
	b.sql("json_type(", col, ", ").arg(p.SQL()).sql(") IN (", types, ") AND ")

	if kind == document.KindObject || kind == document.KindArray {
		// Containers are equal when their json_tree nodes match as sets, so
		// object members compare regardless of order.
		stored := func() {
			b.sql(treeNodes).frag(d.Extract(col, p)).sql(")")
		}
		operand := func() {
			b.sql(treeNodes, "json(").arg(raw).sql("))")
		}
		if op == core.OpNe {
			b.sql("NOT ")
		}
		b.sql("(NOT EXISTS (")
		stored()
		b.sql(" EXCEPT ")
		operand()
		b.sql(") AND NOT EXISTS (")
		operand()
		b.sql(" EXCEPT ")
		stored()
		b.sql("))")
		return b.done(), nil
	}

	// json_extract yields SQL scalars for JSON scalars.
	b.frag(d.Extract(col, p)).sql(" ", string(op), " ")
	switch kind {
	case document.KindBool:
		if value.(bool) {
			b.arg(1)
		} else {
			b.arg(0)
		}
	default:
		b.arg(value)
	}
	return b.done(), nil
}

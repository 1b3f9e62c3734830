package jsonfield

import (
	"context"
	"fmt"

	"github.com/rzpsarthak13/jsonfield/internal/core"
	"github.com/rzpsarthak13/jsonfield/internal/path"
)

// Field binds one JSON column of one table to a client.
type Field struct {
	client *Client
	table  core.Table
}

// Table returns the table name.
func (f *Field) Table() string { return f.table.Name }

// Column returns the JSON column name.
func (f *Field) Column() string { return f.table.Column }

// KeyColumn returns the primary key column name.
func (f *Field) KeyColumn() string { return f.table.KeyColumn }

func (f *Field) String() string { return f.table.String() }

// Insert stores doc in a new row with a backend-assigned key. A nil doc is
// stored as SQL NULL.
func (f *Field) Insert(ctx context.Context, doc any) (*Row, error) {
	return f.InsertKey(ctx, nil, doc)
}

// InsertKey stores doc in a new row under key.
func (f *Field) InsertKey(ctx context.Context, key any, doc any) (*Row, error) {
	var raw []byte
	if doc != nil {
		var err error
		if raw, err = f.client.encode(doc); err != nil {
			return nil, err
		}
	}
	stored, err := f.client.store().Insert(ctx, f.table, key, raw)
	if err != nil {
		return nil, fmt.Errorf("insert into %s: %w", f, err)
	}
	return f.row(core.Record{Key: stored, Raw: raw})
}

// Load reads the row stored under key. It returns ErrNotFound when no row
// has that key.
func (f *Field) Load(ctx context.Context, key any) (*Row, error) {
	rec, err := f.client.store().LoadByKey(ctx, f.table, key)
	if err != nil {
		return nil, fmt.Errorf("load %s key %v: %w", f, key, err)
	}
	return f.row(rec)
}

// Get returns the first row, in key order, matching every condition. It
// returns ErrNotFound when none does.
func (f *Field) Get(ctx context.Context, conds ...Condition) (*Row, error) {
	rows, err := f.find(ctx, conds, 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("get from %s: %w", f, ErrNotFound)
	}
	return rows[0], nil
}

// Find returns every row, in key order, matching every condition.
func (f *Field) Find(ctx context.Context, conds ...Condition) ([]*Row, error) {
	return f.find(ctx, conds, 0)
}

func (f *Field) find(ctx context.Context, conds []Condition, limit int) ([]*Row, error) {
	where, err := f.predicates(conds)
	if err != nil {
		return nil, err
	}
	recs, err := f.client.store().Find(ctx, f.table, where, limit)
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", f, err)
	}
	rows := make([]*Row, 0, len(recs))
	for _, rec := range recs {
		row, err := f.row(rec)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (f *Field) predicates(conds []Condition) ([]core.Predicate, error) {
	where := make([]core.Predicate, 0, len(conds))
	for _, c := range conds {
		if c.err != nil {
			return nil, c.err
		}
		if c.pred == nil {
			return nil, fmt.Errorf("empty condition on %s", f)
		}
		if c.table != f.table {
			return nil, fmt.Errorf("%w: %s on %s", ErrTableMismatch, c.table, f)
		}
		where = append(where, c.pred)
	}
	return where, nil
}

func (f *Field) row(rec core.Record) (*Row, error) {
	doc, err := f.client.decode(rec.Raw)
	if err != nil {
		return nil, err
	}
	return &Row{field: f, Key: rec.Key, Data: doc, raw: rec.Raw}, nil
}

// Key matches the row whose primary key equals key.
func (f *Field) Key(key any) Condition {
	return Condition{table: f.table, pred: core.KeyEquals{Key: key}}
}

// Extract compiles expr into an extraction usable in conditions. Compile
// errors surface from the conditions built on it.
func (f *Field) Extract(expr string) *Extraction {
	p, err := path.Compile(expr)
	if err != nil {
		return &Extraction{field: f, err: err}
	}
	x, err := f.client.store().CompileExtract(f.table, p)
	if err != nil {
		return &Extraction{field: f, err: fmt.Errorf("compile extract %s: %w", p, err)}
	}
	return &Extraction{field: f, x: x}
}

// Set compiles a deferred statement storing value at expr in every row of
// the table. Narrow it with Where before Execute.
//
// Where returns the statement for chaining and records, instead of
// returning, a bad condition or a reuse after Execute. Check Err after
// chaining Where; Execute also returns the recorded error without touching
// any row:
//
//	stmt, err := field.Set("$.tag", "new")
//	if err != nil { ... }
//	if err := stmt.Where(field.Extract("$.v_int").Gt(10)).Err(); err != nil { ... }
func (f *Field) Set(expr string, value any) (*Statement, error) {
	cm, err := f.compileSet(expr, value)
	if err != nil {
		return nil, err
	}
	return newStatement(f, cm), nil
}

// Remove compiles a deferred statement deleting expr from every row of the
// table. Narrow it with Where before Execute. As with Set, Where records
// condition errors on the statement: check Err after chaining Where, or the
// error returned by Execute.
func (f *Field) Remove(expr string) (*Statement, error) {
	cm, err := f.compileRemove(expr)
	if err != nil {
		return nil, err
	}
	return newStatement(f, cm), nil
}

// SetOn compiles an immediate mutation storing value at expr in target's
// stored row. target itself is not modified; call target.Reload to see the
// change.
func (f *Field) SetOn(target *Row, expr string, value any) (*RowMutation, error) {
	if err := f.owns(target); err != nil {
		return nil, err
	}
	cm, err := f.compileSet(expr, value)
	if err != nil {
		return nil, err
	}
	return newRowMutation(f, target.Key, cm), nil
}

// RemoveOn compiles an immediate mutation deleting expr from target's
// stored row.
func (f *Field) RemoveOn(target *Row, expr string) (*RowMutation, error) {
	if err := f.owns(target); err != nil {
		return nil, err
	}
	cm, err := f.compileRemove(expr)
	if err != nil {
		return nil, err
	}
	return newRowMutation(f, target.Key, cm), nil
}

func (f *Field) owns(target *Row) error {
	if target == nil || target.field == nil {
		return fmt.Errorf("target row was not loaded through a field")
	}
	if target.field.table != f.table {
		return fmt.Errorf("%w: row of %s on %s", ErrTableMismatch, target.field, f)
	}
	return nil
}

func (f *Field) compileSet(expr string, value any) (core.CompiledMutation, error) {
	p, err := path.Compile(expr)
	if err != nil {
		return core.CompiledMutation{}, err
	}
	raw, err := f.client.encode(value)
	if err != nil {
		return core.CompiledMutation{}, err
	}
	return f.compile(core.SetMutation(p, raw))
}

func (f *Field) compileRemove(expr string) (core.CompiledMutation, error) {
	p, err := path.Compile(expr)
	if err != nil {
		return core.CompiledMutation{}, err
	}
	return f.compile(core.RemoveMutation(p))
}

func (f *Field) compile(m core.Mutation) (core.CompiledMutation, error) {
	cm, err := f.client.store().CompileMutation(f.table, m)
	if err != nil {
		return core.CompiledMutation{}, fmt.Errorf("compile %s on %s: %w", m, f, err)
	}
	return cm, nil
}

// Condition is one conjunct of a WHERE clause, bound to the field it was
// built from.
type Condition struct {
	table core.Table
	pred  core.Predicate
	err   error
}

// Err returns the error recorded while building the condition.
func (c Condition) Err() error { return c.err }

func (c Condition) String() string {
	if c.err != nil {
		return "invalid condition: " + c.err.Error()
	}
	if c.pred == nil {
		return "<empty>"
	}
	return c.pred.String()
}

// Extraction is a compiled path usable in conditions.
//
// Comparisons are type-strict: a number never equals a string. A row where
// the path is absent satisfies no comparison, Ne included, and is not null;
// use Exists and Missing to test presence. Comparing with nil tests for an
// explicit JSON null.
type Extraction struct {
	field *Field
	x     core.CompiledExtract
	err   error
}

// Err returns the compile error of the extraction, if any.
func (x *Extraction) Err() error { return x.err }

// Native renders the backend expression.
func (x *Extraction) Native() string {
	if x.err != nil || x.x.Native == nil {
		return ""
	}
	return x.x.Native.String()
}

func (x *Extraction) compare(op core.CompareOp, v any) Condition {
	c := Condition{table: x.field.table, err: x.err}
	if c.err != nil {
		return c
	}
	raw, err := x.field.client.encode(v)
	if err != nil {
		c.err = err
		return c
	}
	c.pred, c.err = core.NewComparison(x.x, op, raw)
	return c
}

// Eq matches rows where the value at the path equals v.
func (x *Extraction) Eq(v any) Condition { return x.compare(core.OpEq, v) }

// Ne matches rows where the path exists and its value differs from v.
func (x *Extraction) Ne(v any) Condition { return x.compare(core.OpNe, v) }

// Lt matches rows where the value at the path is less than v.
func (x *Extraction) Lt(v any) Condition { return x.compare(core.OpLt, v) }

// Le matches rows where the value at the path is at most v.
func (x *Extraction) Le(v any) Condition { return x.compare(core.OpLe, v) }

// Gt matches rows where the value at the path is greater than v.
func (x *Extraction) Gt(v any) Condition { return x.compare(core.OpGt, v) }

// Ge matches rows where the value at the path is at least v.
func (x *Extraction) Ge(v any) Condition { return x.compare(core.OpGe, v) }

// Exists matches rows where the path is present, whatever its value.
func (x *Extraction) Exists() Condition {
	return Condition{table: x.field.table, pred: core.Presence{Extract: x.x, Present: true}, err: x.err}
}

// Missing matches rows where the path is absent.
func (x *Extraction) Missing() Condition {
	return Condition{table: x.field.table, pred: core.Presence{Extract: x.x, Present: false}, err: x.err}
}

// IsNull matches rows where the path holds an explicit JSON null.
func (x *Extraction) IsNull() Condition { return x.Eq(nil) }

// NotNull matches rows where the path holds a value other than null.
func (x *Extraction) NotNull() Condition { return x.Ne(nil) }

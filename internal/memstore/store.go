// Package memstore implements core.RowStore in process memory.
//
// Documents are kept as raw JSON text, exactly like a database column, and
// every statement decodes, transforms and re-encodes the affected rows with
// the reference semantics of package document. Extraction goes through
// RFC 9535 JSONPath queries built from the normalized form of each path.
package memstore

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/theory/jsonpath"

	"github.com/rzpsarthak13/jsonfield/internal/codec"
	"github.com/rzpsarthak13/jsonfield/internal/core"
	"github.com/rzpsarthak13/jsonfield/internal/document"
	"github.com/rzpsarthak13/jsonfield/internal/path"
)

// storage is always plain JSON; tagged values stay tagged objects.
var storage = codec.Options{}

type row struct {
	key  any
	cols map[string][]byte
}

type table struct {
	schema  *core.Schema
	rows    []*row
	nextKey int64
}

// Store is an in-memory core.RowStore. The zero value is not usable; call New.
type Store struct {
	mu     sync.RWMutex
	tables map[string]*table
	closed bool
	logger *slog.Logger
}

var (
	_ core.RowStore      = (*Store)(nil)
	_ core.SchemaManager = (*Store)(nil)
)

// New returns an empty store.
func New() *Store {
	return &Store{
		tables: make(map[string]*table),
		logger: slog.Default().With("component", "memstore"),
	}
}

// Dialect implements core.RowStore.
func (s *Store) Dialect() string { return "memory" }

type mutationExpr struct {
	op    core.OpType
	path  path.Path
	value any
}

func (e mutationExpr) String() string {
	if e.op == core.OpSet {
		return fmt.Sprintf("set(%s, %v)", e.path.Normalized(), e.value)
	}
	return fmt.Sprintf("remove(%s)", e.path.Normalized())
}

type guardExpr struct {
	path path.Path
}

func (g guardExpr) String() string { return "addressable(" + g.path.Normalized() + ")" }

func (g guardExpr) admits(raw []byte, doc any) bool {
	if raw == nil {
		doc = map[string]any{}
	}
	return document.Addressable(doc, g.path)
}

type extractExpr struct {
	query *jsonpath.Path
}

func (e extractExpr) String() string { return e.query.String() }

func (e extractExpr) eval(doc any) (any, bool) {
	nodes := e.query.Select(doc)
	if len(nodes) == 0 {
		return nil, false
	}
	return nodes[0], true
}

// CompileMutation implements core.RowStore.
func (s *Store) CompileMutation(t core.Table, m core.Mutation) (core.CompiledMutation, error) {
	if err := t.Validate(); err != nil {
		return core.CompiledMutation{}, err
	}
	if err := m.Validate(); err != nil {
		return core.CompiledMutation{}, err
	}

	expr := mutationExpr{op: m.Op, path: m.Path}
	cm := core.CompiledMutation{Table: t, Mutation: m}
	if m.Op == core.OpSet {
		v, err := codec.Decode(m.Raw, storage)
		if err != nil {
			return core.CompiledMutation{}, err
		}
		expr.value = v
		if !m.Path.IsRoot() {
			cm.Guard = guardExpr{path: m.Path}
		}
	}
	cm.Native = expr
	return cm, nil
}

// CompileExtract implements core.RowStore.
func (s *Store) CompileExtract(t core.Table, p path.Path) (core.CompiledExtract, error) {
	if err := t.Validate(); err != nil {
		return core.CompiledExtract{}, err
	}
	q, err := jsonpath.Parse(p.Normalized())
	if err != nil {
		return core.CompiledExtract{}, fmt.Errorf("failed to compile %s: %w", p, err)
	}
	return core.CompiledExtract{Table: t, Path: p, Native: extractExpr{query: q}}, nil
}

// Insert implements core.RowStore.
func (s *Store) Insert(ctx context.Context, t core.Table, key any, raw []byte) (any, error) {
	if raw != nil {
		if _, err := codec.Decode(raw, storage); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, core.ErrStoreClosed
	}

	tbl := s.table(t)
	if key == nil {
		tbl.nextKey++
		key = tbl.nextKey
	}
	key = core.NormalizeKey(key)
	if tbl.find(key) != nil {
		return nil, fmt.Errorf("duplicate key %v in %s", key, t.Name)
	}
	if k, ok := key.(int64); ok && k > tbl.nextKey {
		tbl.nextKey = k
	}

	r := &row{key: key, cols: map[string][]byte{t.Column: clone(raw)}}
	tbl.rows = append(tbl.rows, r)
	sort.SliceStable(tbl.rows, func(i, j int) bool { return keyLess(tbl.rows[i].key, tbl.rows[j].key) })
	return key, nil
}

// LoadByKey implements core.RowStore.
func (s *Store) LoadByKey(ctx context.Context, t core.Table, key any) (core.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return core.Record{}, core.ErrStoreClosed
	}

	r := s.lookup(t.Name).find(core.NormalizeKey(key))
	if r == nil {
		return core.Record{}, fmt.Errorf("%s key %v: %w", t.Name, key, core.ErrNotFound)
	}
	return core.Record{Key: r.key, Raw: clone(r.cols[t.Column])}, nil
}

// Find implements core.RowStore.
func (s *Store) Find(ctx context.Context, t core.Table, where []core.Predicate, limit int) ([]core.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, core.ErrStoreClosed
	}

	var out []core.Record
	for _, r := range s.lookup(t.Name).rows {
		raw := r.cols[t.Column]
		doc, err := decode(raw)
		if err != nil {
			return nil, err
		}
		ok, err := matches(r, doc, where)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, core.Record{Key: r.key, Raw: clone(raw)})
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// ExecuteStatement implements core.RowStore.
func (s *Store) ExecuteStatement(ctx context.Context, cm core.CompiledMutation, where []core.Predicate) (int64, error) {
	expr, ok := cm.Native.(mutationExpr)
	if !ok {
		return 0, fmt.Errorf("mutation %s was not compiled for memory", cm.Mutation)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, core.ErrStoreClosed
	}

	col := cm.Table.Column
	var affected int64
	for _, r := range s.table(cm.Table).rows {
		doc, err := decode(r.cols[col])
		if err != nil {
			return affected, err
		}
		ok, err := matches(r, doc, where)
		if err != nil {
			return affected, err
		}
		if !ok {
			continue
		}
		if g, ok := cm.Guard.(guardExpr); ok && !g.admits(r.cols[col], doc) {
			continue
		}

		raw, err := apply(expr, r.cols[col], doc)
		if err != nil {
			return affected, err
		}
		r.cols[col] = raw
		affected++
	}

	s.logger.DebugContext(ctx, "statement executed", "table", cm.Table.Name, "mutation", cm.Mutation.String(), "native", expr.String(), "affected", affected)
	return affected, nil
}

// CheckPath implements core.RowStore.
func (s *Store) CheckPath(ctx context.Context, t core.Table, key any, p path.Path) (bool, error) {
	rec, err := s.LoadByKey(ctx, t, key)
	if err != nil {
		return false, err
	}
	if rec.Raw == nil {
		return false, nil
	}
	doc, err := decode(rec.Raw)
	if err != nil {
		return false, err
	}
	return document.Has(doc, p), nil
}

// CreateTable implements core.SchemaManager. Tables also spring into
// existence on first use, so this only records the layout of t.
func (s *Store) CreateTable(ctx context.Context, t core.Table, temporary bool) error {
	if err := t.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return core.ErrStoreClosed
	}
	s.table(t)
	return nil
}

// DescribeTable implements core.SchemaManager.
func (s *Store) DescribeTable(ctx context.Context, name string) (*core.Schema, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, core.ErrStoreClosed
	}
	tbl, ok := s.tables[name]
	if !ok {
		return nil, fmt.Errorf("table %s does not exist: %w", name, core.ErrNotFound)
	}
	out := *tbl.schema
	out.Columns = append([]core.Column(nil), tbl.schema.Columns...)
	return &out, nil
}

// Close implements core.RowStore.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// lookup returns the named table or an empty one. Callers hold s.mu.
func (s *Store) lookup(name string) *table {
	if tbl, ok := s.tables[name]; ok {
		return tbl
	}
	return &table{}
}

// table returns the table t lives in, creating it or adding t's JSON column
// to its layout. Callers hold s.mu for writing.
func (s *Store) table(t core.Table) *table {
	tbl, ok := s.tables[t.Name]
	if !ok {
		tbl = &table{schema: &core.Schema{
			TableName:  t.Name,
			PrimaryKey: t.KeyColumn,
			Columns:    []core.Column{{Name: t.KeyColumn, Type: "integer"}},
		}}
		s.tables[t.Name] = tbl
	}
	if _, ok := tbl.schema.Column(t.Column); !ok {
		tbl.schema.Columns = append(tbl.schema.Columns, core.Column{Name: t.Column, Type: "json", Nullable: true})
	}
	return tbl
}

func (t *table) find(key any) *row {
	for _, r := range t.rows {
		if r.key == key {
			return r
		}
	}
	return nil
}

func apply(expr mutationExpr, raw []byte, doc any) ([]byte, error) {
	switch expr.op {
	case core.OpSet:
		if raw == nil {
			doc = map[string]any{}
		}
		out, err := document.Set(doc, expr.path, expr.value)
		if err != nil {
			return nil, err
		}
		return codec.Encode(out, storage)
	default:
		if raw == nil {
			return nil, nil
		}
		out, err := document.Remove(doc, expr.path)
		if err != nil {
			return nil, err
		}
		return codec.Encode(out, storage)
	}
}

func decode(raw []byte) (any, error) {
	if raw == nil {
		return nil, nil
	}
	return codec.Decode(raw, storage)
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte{}, b...)
}

func keyLess(a, b any) bool {
	ai, aInt := a.(int64)
	bi, bInt := b.(int64)
	switch {
	case aInt && bInt:
		return ai < bi
	case aInt != bInt:
		return aInt
	default:
		return fmt.Sprint(a) < fmt.Sprint(b)
	}
}

// Package sqlstore implements core.RowStore on a SQL database through dbr.
//
// Every path operation runs as a single statement built from sqlexpr
// fragments: mutations are UPDATE ... SET col = <native expression>, lookups
// are SELECTs filtered with native JSON predicates. Documents are never read
// and rewritten on the client.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gocraft/dbr/v2"
	"golang.org/x/time/rate"

	"github.com/rzpsarthak13/jsonfield/internal/core"
	"github.com/rzpsarthak13/jsonfield/internal/database"
	"github.com/rzpsarthak13/jsonfield/internal/path"
	"github.com/rzpsarthak13/jsonfield/internal/sqlexpr"
)

// Options tunes a Store.
type Options struct {
	// MaxStatementsPerSecond throttles UPDATE statements. Zero or negative
	// disables throttling.
	MaxStatementsPerSecond float64
}

// Store is a core.RowStore backed by a dbr connection.
type Store struct {
	conn    *dbr.Connection
	dialect sqlexpr.Dialect
	limiter *rate.Limiter
	logger  *slog.Logger

	mu     sync.RWMutex
	closed bool
}

var (
	_ core.RowStore      = (*Store)(nil)
	_ core.SchemaManager = (*Store)(nil)
)

// New wraps an open connection. d must match the connection's database.
func New(conn *dbr.Connection, d sqlexpr.Dialect, opts Options) *Store {
	limit := rate.Inf
	if opts.MaxStatementsPerSecond > 0 {
		limit = rate.Limit(opts.MaxStatementsPerSecond)
	}
	return &Store{
		conn:    conn,
		dialect: d,
		limiter: rate.NewLimiter(limit, 1),
		logger:  slog.Default().With("component", "sqlstore", "dialect", d.Name()),
	}
}

// Open connects with cfg and returns a Store owning the connection.
func Open(cfg database.Config, opts Options) (*Store, error) {
	conn, d, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	return New(conn, d, opts), nil
}

// Dialect implements core.RowStore.
func (s *Store) Dialect() string {
	return s.dialect.Name()
}

// Connection exposes the underlying connection for schema management.
func (s *Store) Connection() *dbr.Connection {
	return s.conn
}

// SQLDialect returns the expression dialect used by the store.
func (s *Store) SQLDialect() sqlexpr.Dialect {
	return s.dialect
}

func (s *Store) quote(id string) string {
	return s.dialect.Native().QuoteIdent(id)
}

func (s *Store) session() (*dbr.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, core.ErrStoreClosed
	}
	return s.conn.NewSession(nil), nil
}

// CompileMutation implements core.RowStore.
func (s *Store) CompileMutation(t core.Table, m core.Mutation) (core.CompiledMutation, error) {
	if err := t.Validate(); err != nil {
		return core.CompiledMutation{}, err
	}
	if err := m.Validate(); err != nil {
		return core.CompiledMutation{}, err
	}

	col := s.quote(t.Column)
	cm := core.CompiledMutation{Table: t, Mutation: m}
	switch m.Op {
	case core.OpSet:
		cm.Native = s.dialect.Set(col, m.Path, string(m.Raw))
		if guard, ok := sqlexpr.Guard(s.dialect, col, m.Path); ok {
			cm.Guard = guard
		}
	case core.OpRemove:
		cm.Native = s.dialect.Remove(col, m.Path)
	}
	return cm, nil
}

// CompileExtract implements core.RowStore.
func (s *Store) CompileExtract(t core.Table, p path.Path) (core.CompiledExtract, error) {
	if err := t.Validate(); err != nil {
		return core.CompiledExtract{}, err
	}
	return core.CompiledExtract{Table: t, Path: p, Native: s.dialect.Extract(s.quote(t.Column), p)}, nil
}

// Insert implements core.RowStore.
func (s *Store) Insert(ctx context.Context, t core.Table, key any, raw []byte) (any, error) {
	sess, err := s.session()
	if err != nil {
		return nil, err
	}

	stmt := sess.InsertInto(t.Name)
	if key != nil {
		stmt = stmt.Pair(t.KeyColumn, key)
	}
	var value any
	if raw != nil {
		value = string(raw)
	}
	stmt = stmt.Pair(t.Column, value)

	res, err := stmt.ExecContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to insert into %s: %w", t.Name, err)
	}
	if key != nil {
		return key, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read generated key for %s: %w", t.Name, err)
	}
	return id, nil
}

// LoadByKey implements core.RowStore.
func (s *Store) LoadByKey(ctx context.Context, t core.Table, key any) (core.Record, error) {
	recs, err := s.Find(ctx, t, []core.Predicate{core.KeyEquals{Key: key}}, 1)
	if err != nil {
		return core.Record{}, err
	}
	if len(recs) == 0 {
		return core.Record{}, fmt.Errorf("%s key %v: %w", t.Name, key, core.ErrNotFound)
	}
	return recs[0], nil
}

// Find implements core.RowStore.
func (s *Store) Find(ctx context.Context, t core.Table, where []core.Predicate, limit int) ([]core.Record, error) {
	sess, err := s.session()
	if err != nil {
		return nil, err
	}
	cond, err := s.where(t, where)
	if err != nil {
		return nil, err
	}

	key := s.quote(t.KeyColumn)
	stmt := sess.Select(key, s.quote(t.Column)).From(s.quote(t.Name)).OrderBy(key)
	if len(where) > 0 {
		stmt = stmt.Where(cond)
	}
	if limit > 0 {
		stmt = stmt.Limit(uint64(limit))
	}

	rows, err := stmt.RowsContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", t.Name, err)
	}
	defer rows.Close()

	var out []core.Record
	for rows.Next() {
		var k any
		var raw []byte
		if err := rows.Scan(&k, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", t.Name, err)
		}
		out = append(out, core.Record{Key: core.NormalizeKey(k), Raw: raw})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s rows: %w", t.Name, err)
	}
	return out, nil
}

// ExecuteStatement implements core.RowStore.
func (s *Store) ExecuteStatement(ctx context.Context, cm core.CompiledMutation, where []core.Predicate) (int64, error) {
	sess, err := s.session()
	if err != nil {
		return 0, err
	}
	native, ok := cm.Native.(sqlexpr.Fragment)
	if !ok {
		return 0, fmt.Errorf("mutation %s was not compiled for %s", cm.Mutation, s.dialect.Name())
	}

	t := cm.Table
	frags, err := s.fragments(t, where)
	if err != nil {
		return 0, err
	}
	if cm.Guard != nil {
		guard, ok := cm.Guard.(sqlexpr.Fragment)
		if !ok {
			return 0, fmt.Errorf("guard of %s was not compiled for %s", cm.Mutation, s.dialect.Name())
		}
		frags = append(frags, guard)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("statement throttled: %w", err)
	}

	stmt := sess.Update(t.Name).Set(t.Column, native)
	if len(frags) > 0 {
		stmt = stmt.Where(sqlexpr.And(frags...))
	}
	res, err := stmt.ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to execute %s on %s: %w", cm.Mutation, t, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}

	s.logger.DebugContext(ctx, "statement executed", "table", t.Name, "mutation", cm.Mutation.String(), "predicates", len(where), "affected", n)
	return n, nil
}

// CheckPath implements core.RowStore.
func (s *Store) CheckPath(ctx context.Context, t core.Table, key any, p path.Path) (bool, error) {
	sess, err := s.session()
	if err != nil {
		return false, err
	}

	exists := s.dialect.Exists(s.quote(t.Column), p, true)
	query := "SELECT CASE WHEN " + exists.SQL + " THEN 1 ELSE 0 END FROM " + s.quote(t.Name) + " WHERE " + s.quote(t.KeyColumn) + " = ?"
	args := append(append([]any{}, exists.Args...), key)

	var found int64
	err = sess.SelectBySql(query, args...).LoadOneContext(ctx, &found)
	if errors.Is(err, dbr.ErrNotFound) {
		return false, fmt.Errorf("%s key %v: %w", t.Name, key, core.ErrNotFound)
	}
	if err != nil {
		return false, fmt.Errorf("failed to check %s in %s: %w", p, t, err)
	}
	return found == 1, nil
}

// CreateTable implements core.SchemaManager.
func (s *Store) CreateTable(ctx context.Context, t core.Table, temporary bool) error {
	if _, err := s.session(); err != nil {
		return err
	}
	return database.CreateJSONTable(ctx, s.conn, s.dialect, t, temporary)
}

// DescribeTable implements core.SchemaManager.
func (s *Store) DescribeTable(ctx context.Context, name string) (*core.Schema, error) {
	if _, err := s.session(); err != nil {
		return nil, err
	}
	return database.DescribeTable(ctx, s.conn, s.dialect, name)
}

// Close implements core.RowStore.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}

func (s *Store) where(t core.Table, where []core.Predicate) (sqlexpr.Fragment, error) {
	frags, err := s.fragments(t, where)
	if err != nil {
		return sqlexpr.Fragment{}, err
	}
	return sqlexpr.And(frags...), nil
}

func (s *Store) fragments(t core.Table, where []core.Predicate) ([]sqlexpr.Fragment, error) {
	col := s.quote(t.Column)
	out := make([]sqlexpr.Fragment, 0, len(where))
	for _, pred := range where {
		switch p := pred.(type) {
		case core.KeyEquals:
			out = append(out, sqlexpr.Fragment{SQL: s.quote(t.KeyColumn) + " = ?", Args: []any{p.Key}})
		case core.Compare:
			// Container comparisons reference col from json_tree subqueries.
			f, err := s.dialect.Compare(s.quote(t.Name)+"."+col, p.Extract.Path, p.Op, p.Kind, p.Value, string(p.Raw))
			if err != nil {
				return nil, err
			}
			out = append(out, f)
		case core.Presence:
			out = append(out, s.dialect.Exists(col, p.Extract.Path, p.Present))
		case core.NullCheck:
			out = append(out, s.dialect.IsNull(col, p.Extract.Path, p.Null))
		default:
			return nil, fmt.Errorf("unsupported predicate %T", pred)
		}
	}
	return out, nil
}

package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/rzpsarthak13/jsonfield/internal/path"
)

var (
	// ErrNotFound is returned when no row matches a key or a lookup.
	ErrNotFound = errors.New("row not found")

	// ErrStoreClosed is returned by stores after Close.
	ErrStoreClosed = errors.New("row store is closed")

	// ErrUnsupportedComparison is returned when a predicate compares values
	// whose kind has no ordering (objects, arrays, booleans, null).
	ErrUnsupportedComparison = errors.New("unsupported comparison")
)

// Table identifies one JSON column of one table together with the table's
// primary key column.
type Table struct {
	// Name is the table name.
	Name string

	// KeyColumn is the primary key column used for single-row operations.
	KeyColumn string

	// Column is the JSON-valued column that paths address.
	Column string
}

// Validate checks that all identifiers are set.
func (t Table) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("table name is required")
	}
	if t.KeyColumn == "" {
		return fmt.Errorf("key column is required for table %s", t.Name)
	}
	if t.Column == "" {
		return fmt.Errorf("JSON column is required for table %s", t.Name)
	}
	return nil
}

func (t Table) String() string {
	return t.Name + "." + t.Column
}

// Record is one row as stored: its key and the raw JSON text of the column.
// Raw is nil when the column is SQL NULL.
type Record struct {
	Key any
	Raw []byte
}

// NativeExpr is a backend expression compiled from a path operation. String
// returns a human-readable rendering for logs and debugging.
type NativeExpr interface {
	String() string
}

// CompiledMutation is a mutation translated for one backend.
type CompiledMutation struct {
	Table    Table
	Mutation Mutation

	// Native computes the new column value from the current one.
	Native NativeExpr

	// Guard restricts a set to rows in which its path is addressable: every
	// parent it needs exists and has the container type of the next segment.
	// It is nil for removals and for sets of the root.
	Guard NativeExpr
}

// CompiledExtract is a path extraction translated for one backend.
type CompiledExtract struct {
	Table  Table
	Path   path.Path
	Native NativeExpr
}

// RowStore is the persistence collaborator of the JSON field engine. Stores
// compile path operations into their native form and run them as single
// statements; they never read-modify-write documents on the client side.
type RowStore interface {
	// Dialect names the backend ("mysql", "sqlite", "memory").
	Dialect() string

	// CompileMutation translates m for table t.
	CompileMutation(t Table, m Mutation) (CompiledMutation, error)

	// CompileExtract translates an extraction of p from t's JSON column.
	CompileExtract(t Table, p path.Path) (CompiledExtract, error)

	// Insert stores a new row. A nil key lets the backend assign one; the
	// stored key is returned.
	Insert(ctx context.Context, t Table, key any, raw []byte) (any, error)

	// LoadByKey reads one row. It returns ErrNotFound when no row has key.
	LoadByKey(ctx context.Context, t Table, key any) (Record, error)

	// Find returns rows matching all predicates in key order. A limit of 0
	// returns every match.
	Find(ctx context.Context, t Table, where []Predicate, limit int) ([]Record, error)

	// ExecuteStatement applies cm as one UPDATE to every row matching where
	// (every row when where is empty) and returns the number of matched rows.
	ExecuteStatement(ctx context.Context, cm CompiledMutation, where []Predicate) (int64, error)

	// CheckPath reports whether p exists in the document stored under key.
	// It returns ErrNotFound when no row has key.
	CheckPath(ctx context.Context, t Table, key any, p path.Path) (bool, error)

	// Close releases the store's resources.
	Close() error
}

// SchemaManager is implemented by stores that can create and describe tables.
type SchemaManager interface {
	CreateTable(ctx context.Context, t Table, temporary bool) error
	DescribeTable(ctx context.Context, name string) (*Schema, error)
}

// Wrapper is implemented by decorating stores.
type Wrapper interface {
	Unwrap() RowStore
}

// SchemaManagerOf returns the first SchemaManager in the decorator chain of s.
func SchemaManagerOf(s RowStore) (SchemaManager, bool) {
	for s != nil {
		if m, ok := s.(SchemaManager); ok {
			return m, true
		}
		w, ok := s.(Wrapper)
		if !ok {
			break
		}
		s = w.Unwrap()
	}
	return nil, false
}

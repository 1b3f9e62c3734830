package jsonfield

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rzpsarthak13/jsonfield/internal/core"
	"github.com/rzpsarthak13/jsonfield/internal/path"
)

// State is the lifecycle position of a mutation.
type State int

const (
	// StateBuilt is a compiled deferred statement without predicates.
	StateBuilt State = iota
	// StateScoped is a deferred statement with at least one predicate.
	StateScoped
	// StateExecuted is terminal for deferred statements.
	StateExecuted
	// StateCompiled is an immediate mutation bound to one row.
	StateCompiled
	// StateApplied is terminal for immediate mutations.
	StateApplied
)

func (s State) String() string {
	switch s {
	case StateBuilt:
		return "built"
	case StateScoped:
		return "scoped"
	case StateExecuted:
		return "executed"
	case StateCompiled:
		return "compiled"
	case StateApplied:
		return "applied"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether the mutation can no longer run.
func (s State) Terminal() bool {
	return s == StateExecuted || s == StateApplied
}

// Mutation is a compiled set or remove that runs once.
type Mutation interface {
	// Execute runs the mutation and returns the number of rows it matched.
	// Any call after the first fails with a *StatementReuseError.
	Execute(ctx context.Context) (int64, error)
	State() State
	String() string
}

var (
	_ Mutation = (*Statement)(nil)
	_ Mutation = (*RowMutation)(nil)
)

// Statement is a deferred update over the field's table. Without a Where
// clause, Execute updates every row of the table.
//
// A set whose path runs through an array element skips the rows where that
// element is missing.
type Statement struct {
	mu    sync.Mutex
	field *Field
	cm    core.CompiledMutation
	where []core.Predicate
	state State
	err   error
}

func newStatement(f *Field, cm core.CompiledMutation) *Statement {
	return &Statement{field: f, cm: cm, state: StateBuilt}
}

// Where narrows the statement to rows matching every condition, in addition
// to the conditions of earlier calls. A condition error or a call after
// Execute is recorded and returned by Err and Execute.
func (s *Statement) Where(conds ...Condition) *Statement {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Terminal() {
		s.err = &StatementReuseError{Statement: s.cm.Mutation.String(), Op: "where"}
		return s
	}
	if s.err != nil {
		return s
	}
	where, err := s.field.predicates(conds)
	if err != nil {
		s.err = err
		return s
	}
	if len(where) > 0 {
		s.where = append(s.where, where...)
		s.state = StateScoped
	}
	return s
}

// Execute issues the statement as one UPDATE and returns the number of
// matched rows. The statement is executed afterwards whatever the outcome.
func (s *Statement) Execute(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Terminal() {
		return 0, &StatementReuseError{Statement: s.cm.Mutation.String(), Op: "execute"}
	}
	s.state = StateExecuted
	if s.err != nil {
		return 0, s.err
	}

	n, err := s.field.client.store().ExecuteStatement(ctx, s.cm, s.where)
	if err != nil {
		return n, fmt.Errorf("execute %s: %w", s.describe(), err)
	}
	s.field.client.logger.DebugContext(ctx, "statement executed", "statement", s.describe(), "rows", n)
	return n, nil
}

// State returns the lifecycle position of the statement.
func (s *Statement) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the first error recorded by Where.
func (s *Statement) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Native renders the backend expression of the mutation.
func (s *Statement) Native() string {
	return s.cm.Native.String()
}

func (s *Statement) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.describe()
}

func (s *Statement) describe() string {
	var b strings.Builder
	b.WriteString(s.cm.Mutation.String())
	b.WriteString(" on ")
	b.WriteString(s.field.String())
	for i, p := range s.where {
		if i == 0 {
			b.WriteString(" where ")
		} else {
			b.WriteString(" and ")
		}
		b.WriteString(p.String())
	}
	return b.String()
}

// RowMutation is an immediate update of one stored row.
type RowMutation struct {
	mu    sync.Mutex
	field *Field
	key   any
	cm    core.CompiledMutation
	state State
}

func newRowMutation(f *Field, key any, cm core.CompiledMutation) *RowMutation {
	return &RowMutation{field: f, key: key, cm: cm, state: StateCompiled}
}

// Execute applies the mutation to the row. It returns ErrNotFound when the
// row no longer exists and a *PathAddressingError when a set cannot store its
// value: a parent it needs is missing, or is not an object for a key segment
// or an array for an index segment.
func (m *RowMutation) Execute(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Terminal() {
		return 0, &StatementReuseError{Statement: m.describe(), Op: "execute"}
	}
	m.state = StateApplied

	store := m.field.client.store()
	n, err := store.ExecuteStatement(ctx, m.cm, []core.Predicate{core.KeyEquals{Key: m.key}})
	if err != nil {
		return n, fmt.Errorf("execute %s: %w", m.describe(), err)
	}
	if n > 0 {
		return n, nil
	}

	// Nothing matched: either the row is gone or the guard rejected it.
	if m.cm.Guard != nil {
		_, err := store.CheckPath(ctx, m.field.table, m.key, path.Root)
		switch {
		case err == nil:
			return 0, path.NewAddressingError(m.cm.Mutation.Path, "a parent is missing or is not the container its segment needs")
		case !errors.Is(err, ErrNotFound):
			return 0, fmt.Errorf("execute %s: %w", m.describe(), err)
		}
	}
	return 0, fmt.Errorf("execute %s: %w", m.describe(), ErrNotFound)
}

// State returns the lifecycle position of the mutation.
func (m *RowMutation) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Native renders the backend expression of the mutation.
func (m *RowMutation) Native() string {
	return m.cm.Native.String()
}

func (m *RowMutation) String() string {
	return m.describe()
}

func (m *RowMutation) describe() string {
	return fmt.Sprintf("%s on %s key %v", m.cm.Mutation, m.field, m.key)
}

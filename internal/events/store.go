package events

import (
	"context"
	"log/slog"

	"github.com/rzpsarthak13/jsonfield/internal/core"
)

// Store is a core.RowStore decorator that publishes a ChangeEvent after every
// successful insert and statement. Publishing failures are logged, never
// returned: the change is already committed when the event is built.
type Store struct {
	core.RowStore
	publisher Publisher
	logger    *slog.Logger
}

var (
	_ core.RowStore = (*Store)(nil)
	_ core.Wrapper  = (*Store)(nil)
)

// NewStore wraps next. The store owns publisher and closes it on Close.
func NewStore(next core.RowStore, publisher Publisher) *Store {
	return &Store{
		RowStore:  next,
		publisher: publisher,
		logger:    slog.Default().With("component", "events"),
	}
}

// Unwrap implements core.Wrapper.
func (s *Store) Unwrap() core.RowStore { return s.RowStore }

// Insert implements core.RowStore.
func (s *Store) Insert(ctx context.Context, t core.Table, key any, raw []byte) (any, error) {
	stored, err := s.RowStore.Insert(ctx, t, key, raw)
	if err != nil {
		return nil, err
	}
	ev := newEvent(t.Name, t.Column, OpInsert)
	ev.Key = stored
	ev.Value = raw
	ev.Affected = 1
	s.publish(ctx, ev)
	return stored, nil
}

// ExecuteStatement implements core.RowStore.
func (s *Store) ExecuteStatement(ctx context.Context, cm core.CompiledMutation, where []core.Predicate) (int64, error) {
	n, err := s.RowStore.ExecuteStatement(ctx, cm, where)
	if err != nil {
		return n, err
	}

	op := OpRemove
	if cm.Mutation.Op == core.OpSet {
		op = OpSet
	}
	ev := newEvent(cm.Table.Name, cm.Table.Column, op)
	ev.Path = cm.Mutation.Path.String()
	ev.Value = cm.Mutation.Raw
	ev.Affected = n
	for _, p := range where {
		if k, ok := p.(core.KeyEquals); ok {
			ev.Key = core.NormalizeKey(k.Key)
		}
		ev.Where = append(ev.Where, p.String())
	}
	s.publish(ctx, ev)
	return n, nil
}

func (s *Store) publish(ctx context.Context, ev ChangeEvent) {
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.WarnContext(ctx, "failed to publish change event", "table", ev.Table, "op", ev.Op, "id", ev.ID, "error", err)
	}
}

// Close implements core.RowStore.
func (s *Store) Close() error {
	err := s.RowStore.Close()
	if perr := s.publisher.Close(); perr != nil && err == nil {
		err = perr
	}
	return err
}

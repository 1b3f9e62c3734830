// Package cache decorates a core.RowStore with a read-through cache for row
// loads, kept in a KV backend (Redis or DynamoDB, chosen by cache.type).
//
// Entries are keyed by namespace, table, a per-table generation counter,
// column and row key. A statement scoped to a single key deletes that entry;
// any other statement bumps the table generation, which orphans every entry
// of the table until it expires.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/rzpsarthak13/jsonfield/internal/core"
	"github.com/rzpsarthak13/jsonfield/internal/path"
)

// Options tunes a Store.
type Options struct {
	Namespace  string
	DefaultTTL time.Duration

	// TTL overrides DefaultTTL per table. A negative TTL disables caching
	// for the table.
	TTL map[string]time.Duration

	// OwnKV closes the KV backend when the store is closed.
	OwnKV bool
}

// Store is a caching core.RowStore decorator.
type Store struct {
	core.RowStore
	kv     KV
	opts   Options
	logger *slog.Logger
}

var (
	_ core.RowStore = (*Store)(nil)
	_ core.Wrapper  = (*Store)(nil)
)

// entry is the msgpack envelope stored in Redis.
type entry struct {
	Key  string `msgpack:"k"`
	Raw  []byte `msgpack:"r"`
	Null bool   `msgpack:"n"`
}

// New wraps next with a cache kept in kv.
func New(next core.RowStore, kv KV, opts Options) *Store {
	if opts.Namespace == "" {
		opts.Namespace = "jsonfield"
	}
	return &Store{
		RowStore: next,
		kv:       kv,
		opts:     opts,
		logger:   slog.Default().With("component", "cache"),
	}
}

// Unwrap implements core.Wrapper.
func (s *Store) Unwrap() core.RowStore { return s.RowStore }

func (s *Store) ttl(table string) time.Duration {
	if ttl, ok := s.opts.TTL[table]; ok && ttl != 0 {
		return ttl
	}
	return s.opts.DefaultTTL
}

func (s *Store) generationKey(table string) string {
	return fmt.Sprintf("%s:%s:gen", s.opts.Namespace, table)
}

func (s *Store) generation(ctx context.Context, table string) (int64, error) {
	return s.kv.Counter(ctx, s.generationKey(table))
}

func (s *Store) entryKey(ctx context.Context, t core.Table, key any) (string, error) {
	gen, err := s.generation(ctx, t.Name)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%s:%d:%s:%s", s.opts.Namespace, t.Name, gen, t.Column, core.KeyString(core.NormalizeKey(key))), nil
}

// LoadByKey implements core.RowStore. Cache failures fall back to the
// wrapped store.
func (s *Store) LoadByKey(ctx context.Context, t core.Table, key any) (core.Record, error) {
	ttl := s.ttl(t.Name)
	if ttl < 0 {
		return s.RowStore.LoadByKey(ctx, t, key)
	}

	k, err := s.entryKey(ctx, t, key)
	if err != nil {
		s.logger.WarnContext(ctx, "cache unavailable", "table", t.Name, "error", err)
		return s.RowStore.LoadByKey(ctx, t, key)
	}

	data, err := s.kv.Get(ctx, k)
	switch {
	case err == nil:
		var e entry
		if err := msgpack.Unmarshal(data, &e); err == nil {
			s.logger.DebugContext(ctx, "cache hit", "key", k)
			rec := core.Record{Key: core.NormalizeKey(e.Key), Raw: e.Raw}
			if e.Null {
				rec.Raw = nil
			} else if rec.Raw == nil {
				rec.Raw = []byte{}
			}
			return rec, nil
		}
		s.logger.WarnContext(ctx, "dropping undecodable cache entry", "key", k)
	case !errors.Is(err, ErrMiss):
		s.logger.WarnContext(ctx, "cache read failed", "key", k, "error", err)
	}

	rec, err := s.RowStore.LoadByKey(ctx, t, key)
	if err != nil {
		return rec, err
	}

	data, err = msgpack.Marshal(entry{Key: core.KeyString(rec.Key), Raw: rec.Raw, Null: rec.Raw == nil})
	if err != nil {
		return rec, nil
	}
	if err := s.kv.Set(ctx, k, data, ttl); err != nil {
		s.logger.WarnContext(ctx, "cache write failed", "key", k, "error", err)
	}
	return rec, nil
}

// CheckPath implements core.RowStore. It always asks the wrapped store so
// that addressability is judged on current data.
func (s *Store) CheckPath(ctx context.Context, t core.Table, key any, p path.Path) (bool, error) {
	return s.RowStore.CheckPath(ctx, t, key, p)
}

// Insert implements core.RowStore.
func (s *Store) Insert(ctx context.Context, t core.Table, key any, raw []byte) (any, error) {
	stored, err := s.RowStore.Insert(ctx, t, key, raw)
	if err != nil {
		return nil, err
	}
	s.evict(ctx, t, stored)
	return stored, nil
}

// ExecuteStatement implements core.RowStore.
func (s *Store) ExecuteStatement(ctx context.Context, cm core.CompiledMutation, where []core.Predicate) (int64, error) {
	n, err := s.RowStore.ExecuteStatement(ctx, cm, where)
	if err != nil || n > 0 {
		if key, ok := singleKey(where); ok {
			s.evict(ctx, cm.Table, key)
		} else {
			s.InvalidateTable(ctx, cm.Table.Name)
		}
	}
	return n, err
}

// InvalidateTable orphans every cached entry of table.
func (s *Store) InvalidateTable(ctx context.Context, table string) {
	if _, err := s.kv.Incr(ctx, s.generationKey(table)); err != nil {
		s.logger.WarnContext(ctx, "cache invalidation failed", "table", table, "error", err)
	}
}

func (s *Store) evict(ctx context.Context, t core.Table, key any) {
	k, err := s.entryKey(ctx, t, key)
	if err == nil {
		err = s.kv.Delete(ctx, k)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "cache eviction failed, invalidating table", "table", t.Name, "error", err)
		s.InvalidateTable(ctx, t.Name)
	}
}

// singleKey reports the key when where pins the statement to one row.
func singleKey(where []core.Predicate) (any, bool) {
	for _, p := range where {
		if k, ok := p.(core.KeyEquals); ok {
			return k.Key, true
		}
	}
	return nil, false
}

// Close implements core.RowStore.
func (s *Store) Close() error {
	err := s.RowStore.Close()
	if s.opts.OwnKV {
		if cerr := s.kv.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

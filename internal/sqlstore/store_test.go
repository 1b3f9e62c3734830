package sqlstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzpsarthak13/jsonfield/internal/codec"
	"github.com/rzpsarthak13/jsonfield/internal/core"
	"github.com/rzpsarthak13/jsonfield/internal/database"
	"github.com/rzpsarthak13/jsonfield/internal/path"
)

var table = core.Table{Name: "test_table", KeyColumn: "id", Column: "data"}

func newSQLiteStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(database.Config{Type: "sqlite"}, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, database.CreateJSONTable(context.Background(), s.Connection(), s.SQLDialect(), table, false))
	return s
}

func insert(t *testing.T, s *Store, key any, doc string) {
	t.Helper()
	var raw []byte
	if doc != "" {
		raw = []byte(doc)
	}
	_, err := s.Insert(context.Background(), table, key, raw)
	require.NoError(t, err)
}

func load(t *testing.T, s *Store, key any) any {
	t.Helper()
	rec, err := s.LoadByKey(context.Background(), table, key)
	require.NoError(t, err)
	if rec.Raw == nil {
		return nil
	}
	doc, err := codec.Decode(rec.Raw, codec.Options{})
	require.NoError(t, err)
	return doc
}

func exec(t *testing.T, s *Store, m core.Mutation, where ...core.Predicate) int64 {
	t.Helper()
	cm, err := s.CompileMutation(table, m)
	require.NoError(t, err)
	n, err := s.ExecuteStatement(context.Background(), cm, where)
	require.NoError(t, err)
	return n
}

func TestSetAndRemove(t *testing.T) {
	s := newSQLiteStore(t)
	insert(t, s, 1, `{"v_int":10,"v_dict":{"v_in_dict":20},"v_list":[1,2]}`)
	insert(t, s, 2, `{"v_int":20}`)

	n := exec(t, s, core.SetMutation(path.MustCompile("$.v_dict.added.deep"), []byte(`"x"`)), core.KeyEquals{Key: 1})
	assert.Equal(t, int64(1), n)

	n = exec(t, s, core.SetMutation(path.MustCompile("$.v_list[7]"), []byte(`3`)), core.KeyEquals{Key: 1})
	assert.Equal(t, int64(1), n)

	n = exec(t, s, core.SetMutation(path.MustCompile("$.v_list[0]"), []byte(`{"a":true}`)), core.KeyEquals{Key: 1})
	assert.Equal(t, int64(1), n)

	assert.Equal(t, map[string]any{
		"v_int":  int64(10),
		"v_dict": map[string]any{"v_in_dict": int64(20), "added": map[string]any{"deep": "x"}},
		"v_list": []any{map[string]any{"a": true}, int64(2), int64(3)},
	}, load(t, s, 1))

	n = exec(t, s, core.RemoveMutation(path.MustCompile("$.v_int")))
	assert.Equal(t, int64(2), n)
	assert.Equal(t, map[string]any{}, load(t, s, 2))

	n = exec(t, s, core.RemoveMutation(path.MustCompile("$.v_list[0]")), core.KeyEquals{Key: 1})
	assert.Equal(t, int64(1), n)
	assert.Equal(t, []any{int64(2), int64(3)}, load(t, s, 1).(map[string]any)["v_list"])
}

func TestSetGuardSkipsUnaddressableRows(t *testing.T) {
	s := newSQLiteStore(t)
	insert(t, s, 1, `{"list":[{"a":1}]}`)
	insert(t, s, 2, `{}`)

	n := exec(t, s, core.SetMutation(path.MustCompile("$.list[0].b"), []byte(`2`)))
	assert.Equal(t, int64(1), n)
	assert.Equal(t, map[string]any{"list": []any{map[string]any{"a": int64(1), "b": int64(2)}}}, load(t, s, 1))
	assert.Equal(t, map[string]any{}, load(t, s, 2))
}

func TestSetGuardChecksContainerTypes(t *testing.T) {
	s := newSQLiteStore(t)
	insert(t, s, 1, `{"a":{"x":1},"s":5}`)
	insert(t, s, 2, `{"a":[],"s":{}}`)

	for expr, affected := range map[string]int64{"$.a[0]": 1, "$.s[0]": 0, "$.s.k": 1} {
		assert.Equal(t, affected, exec(t, s, core.SetMutation(path.MustCompile(expr), []byte(`7`))), expr)
	}
	assert.Equal(t, map[string]any{"a": map[string]any{"x": int64(1)}, "s": int64(5)}, load(t, s, 1))
	assert.Equal(t, map[string]any{"a": []any{int64(7)}, "s": map[string]any{"k": int64(7)}}, load(t, s, 2))
}

func TestEscapedKeys(t *testing.T) {
	s := newSQLiteStore(t)
	insert(t, s, 1, `{"a\\b":0,"ab":0,"say\"hi":0}`)

	exec(t, s, core.SetMutation(path.MustCompile(`$.a\b`), []byte(`1`)), core.KeyEquals{Key: 1})
	exec(t, s, core.SetMutation(path.MustCompile(`$.say"hi`), []byte(`2`)), core.KeyEquals{Key: 1})
	exec(t, s, core.SetMutation(path.MustCompile(`$.new\"key.x`), []byte(`3`)), core.KeyEquals{Key: 1})
	assert.Equal(t, map[string]any{
		`a\b`:      int64(1),
		"ab":       int64(0),
		`say"hi`:   int64(2),
		`new\"key`: map[string]any{"x": int64(3)},
	}, load(t, s, 1))

	x, err := s.CompileExtract(table, path.MustCompile(`$.say"hi`))
	require.NoError(t, err)
	pred, err := core.NewComparison(x, core.OpEq, []byte(`2`))
	require.NoError(t, err)
	recs, err := s.Find(context.Background(), table, []core.Predicate{pred}, 0)
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	exec(t, s, core.RemoveMutation(path.MustCompile(`$.a\b`)), core.KeyEquals{Key: 1})
	assert.NotContains(t, load(t, s, 1), `a\b`)
	assert.Contains(t, load(t, s, 1), "ab")
}

func TestContainerEqualityIgnoresMemberOrder(t *testing.T) {
	s := newSQLiteStore(t)
	insert(t, s, 1, `{"o":{}}`)
	exec(t, s, core.SetMutation(path.MustCompile("$.o.b"), []byte(`2`)), core.KeyEquals{Key: 1})
	exec(t, s, core.SetMutation(path.MustCompile("$.o.a"), []byte(`1`)), core.KeyEquals{Key: 1})
	insert(t, s, 2, `{"o":{"a":1,"b":2,"c":3}}`)
	insert(t, s, 3, `{"o":{"b":2}}`)
	insert(t, s, 4, `{"o":[1,2]}`)
	insert(t, s, 5, `{"o":{"b":2,"a":1.0}}`)
	insert(t, s, 6, `{"l":[1,{"y":2,"x":1}]}`)
	insert(t, s, 7, `{"l":[{"x":1,"y":2},1]}`)

	find := func(expr string, op core.CompareOp, raw string) []any {
		x, err := s.CompileExtract(table, path.MustCompile(expr))
		require.NoError(t, err)
		pred, err := core.NewComparison(x, op, []byte(raw))
		require.NoError(t, err)
		recs, err := s.Find(context.Background(), table, []core.Predicate{pred}, 0)
		require.NoError(t, err)
		var keys []any
		for _, r := range recs {
			keys = append(keys, r.Key)
		}
		return keys
	}

	assert.Equal(t, []any{int64(1), int64(5)}, find("$.o", core.OpEq, `{"a":1,"b":2}`))
	assert.Equal(t, []any{int64(2), int64(3)}, find("$.o", core.OpNe, `{"a":1,"b":2}`))
	assert.Equal(t, []any{int64(4)}, find("$.o", core.OpEq, `[1,2]`))
	assert.Equal(t, []any{int64(6)}, find("$.l", core.OpEq, `[1,{"x":1,"y":2}]`))
	assert.Equal(t, []any{int64(7)}, find("$.l", core.OpNe, `[1,{"x":1,"y":2}]`))
}

func TestSetOnNullColumnAndRoot(t *testing.T) {
	s := newSQLiteStore(t)
	insert(t, s, 1, "")

	exec(t, s, core.SetMutation(path.MustCompile("$.a.b"), []byte(`1`)), core.KeyEquals{Key: 1})
	assert.Equal(t, map[string]any{"a": map[string]any{"b": int64(1)}}, load(t, s, 1))

	exec(t, s, core.SetMutation(path.Root, []byte(`[1,"two"]`)), core.KeyEquals{Key: 1})
	assert.Equal(t, []any{int64(1), "two"}, load(t, s, 1))
}

func TestFindWithPredicates(t *testing.T) {
	s := newSQLiteStore(t)
	insert(t, s, 1, `{"v_int":10,"s":"my_new_string","flag":true,"n":null}`)
	insert(t, s, 2, `{"v_int":20,"s":"other","flag":false}`)
	insert(t, s, 3, `{"v_int":"10"}`)

	find := func(expr string, op core.CompareOp, raw string) []any {
		x, err := s.CompileExtract(table, path.MustCompile(expr))
		require.NoError(t, err)
		pred, err := core.NewComparison(x, op, []byte(raw))
		require.NoError(t, err)
		recs, err := s.Find(context.Background(), table, []core.Predicate{pred}, 0)
		require.NoError(t, err)
		var keys []any
		for _, r := range recs {
			keys = append(keys, r.Key)
		}
		return keys
	}

	assert.Equal(t, []any{int64(1)}, find("$.v_int", core.OpEq, `10`))
	assert.Equal(t, []any{int64(3)}, find("$.v_int", core.OpEq, `"10"`))
	assert.Equal(t, []any{int64(2)}, find("$.v_int", core.OpGt, `10`))
	assert.Equal(t, []any{int64(1)}, find("$.s", core.OpEq, `"my_new_string"`))
	assert.Equal(t, []any{int64(2)}, find("$.flag", core.OpEq, `false`))
	assert.Equal(t, []any{int64(1)}, find("$.n", core.OpEq, `null`))
	assert.Equal(t, []any{int64(2)}, find("$.s", core.OpNe, `"my_new_string"`))
	assert.Empty(t, find("$.missing", core.OpNe, `1`))

	x, err := s.CompileExtract(table, path.MustCompile("$.flag"))
	require.NoError(t, err)
	recs, err := s.Find(context.Background(), table, []core.Predicate{core.Presence{Extract: x, Present: false}}, 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, int64(3), recs[0].Key)
}

func TestCheckPathAndNotFound(t *testing.T) {
	s := newSQLiteStore(t)
	insert(t, s, 1, `{"list":[1]}`)
	ctx := context.Background()

	ok, err := s.CheckPath(ctx, table, 1, path.MustCompile("$.list"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.CheckPath(ctx, table, 1, path.MustCompile("$.nope"))
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.CheckPath(ctx, table, 99, path.MustCompile("$.list"))
	assert.True(t, errors.Is(err, core.ErrNotFound))

	_, err = s.LoadByKey(ctx, table, 99)
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func TestInsertGeneratesKey(t *testing.T) {
	s := newSQLiteStore(t)
	key, err := s.Insert(context.Background(), table, nil, []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), key)
}

func TestCompileErrorsAndClose(t *testing.T) {
	s := newSQLiteStore(t)

	_, err := s.CompileMutation(table, core.RemoveMutation(path.Root))
	assert.True(t, errors.Is(err, path.ErrAddressing))

	_, err = s.CompileMutation(core.Table{Name: "t"}, core.RemoveMutation(path.MustCompile("$.a")))
	assert.Error(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	_, err = s.Find(context.Background(), table, nil, 0)
	assert.True(t, errors.Is(err, core.ErrStoreClosed))
}

package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzpsarthak13/jsonfield/internal/codec"
	"github.com/rzpsarthak13/jsonfield/internal/core"
	"github.com/rzpsarthak13/jsonfield/internal/path"
)

var table = core.Table{Name: "test_table", KeyColumn: "id", Column: "data"}

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
	s := New()
	insert(t, s, 1, `{"v_int":10,"v_dict":{"v_in_dict":20},"v_list":[1,2]}`)
	insert(t, s, 2, `{"v_int":20}`)

	assert.Equal(t, int64(1), exec(t, s, core.SetMutation(path.MustCompile("$.v_dict.added.deep"), []byte(`"x"`)), core.KeyEquals{Key: 1}))
	assert.Equal(t, int64(1), exec(t, s, core.SetMutation(path.MustCompile("$.v_list[7]"), []byte(`3`)), core.KeyEquals{Key: 1}))
	assert.Equal(t, int64(1), exec(t, s, core.SetMutation(path.MustCompile("$.v_list[0]"), []byte(`{"a":true}`)), core.KeyEquals{Key: "1"}))

	assert.Equal(t, map[string]any{
		"v_int":  int64(10),
		"v_dict": map[string]any{"v_in_dict": int64(20), "added": map[string]any{"deep": "x"}},
		"v_list": []any{map[string]any{"a": true}, int64(2), int64(3)},
	}, load(t, s, 1))

	assert.Equal(t, int64(2), exec(t, s, core.RemoveMutation(path.MustCompile("$.v_int"))))
	assert.Equal(t, map[string]any{}, load(t, s, 2))

	assert.Equal(t, int64(1), exec(t, s, core.RemoveMutation(path.MustCompile("$.v_list[0]")), core.KeyEquals{Key: 1}))
	assert.Equal(t, []any{int64(2), int64(3)}, load(t, s, 1).(map[string]any)["v_list"])
}

func TestSetGuardSkipsUnaddressableRows(t *testing.T) {
	s := New()
	insert(t, s, 1, `{"list":[{"a":1}]}`)
	insert(t, s, 2, `{}`)
	insert(t, s, 3, "")

	n := exec(t, s, core.SetMutation(path.MustCompile("$.list[0].b"), []byte(`2`)))
	assert.Equal(t, int64(1), n)
	assert.Equal(t, map[string]any{"list": []any{map[string]any{"a": int64(1), "b": int64(2)}}}, load(t, s, 1))
	assert.Equal(t, map[string]any{}, load(t, s, 2))
	assert.Nil(t, load(t, s, 3))
}

func TestSetGuardChecksContainerTypes(t *testing.T) {
	s := New()
	insert(t, s, 1, `{"a":{"x":1},"s":5}`)
	insert(t, s, 2, `{"a":[],"s":{}}`)

	for expr, affected := range map[string]int64{"$.a[0]": 1, "$.s[0]": 0, "$.s.k": 1} {
		assert.Equal(t, affected, exec(t, s, core.SetMutation(path.MustCompile(expr), []byte(`7`))), expr)
	}
	assert.Equal(t, map[string]any{"a": map[string]any{"x": int64(1)}, "s": int64(5)}, load(t, s, 1))
	assert.Equal(t, map[string]any{"a": []any{int64(7)}, "s": map[string]any{"k": int64(7)}}, load(t, s, 2))
}

func TestSetOnNullColumnAndRoot(t *testing.T) {
	s := New()
	insert(t, s, 1, "")

	exec(t, s, core.SetMutation(path.MustCompile("$.a.b"), []byte(`1`)), core.KeyEquals{Key: 1})
	assert.Equal(t, map[string]any{"a": map[string]any{"b": int64(1)}}, load(t, s, 1))

	exec(t, s, core.SetMutation(path.Root, []byte(`[1,"two"]`)), core.KeyEquals{Key: 1})
	assert.Equal(t, []any{int64(1), "two"}, load(t, s, 1))
}

func TestRemoveOnNullColumnMatches(t *testing.T) {
	s := New()
	insert(t, s, 1, "")

	assert.Equal(t, int64(1), exec(t, s, core.RemoveMutation(path.MustCompile("$.a")), core.KeyEquals{Key: 1}))
	assert.Nil(t, load(t, s, 1))
}

func TestFindWithPredicates(t *testing.T) {
	s := New()
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
	assert.Equal(t, []any{int64(1)}, find("$.v_int", core.OpEq, `10.0`))
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

	recs, err = s.Find(context.Background(), table, nil, 2)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestExtractUsesNormalizedPath(t *testing.T) {
	s := New()
	insert(t, s, 1, `{"odd key":{"it's":[5]}}`)

	x, err := s.CompileExtract(table, path.MustCompile("$.odd key.it's[0]"))
	require.NoError(t, err)
	assert.NotEmpty(t, x.Native.String())

	pred, err := core.NewComparison(x, core.OpEq, []byte(`5`))
	require.NoError(t, err)
	recs, err := s.Find(context.Background(), table, []core.Predicate{pred}, 0)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestCheckPathAndNotFound(t *testing.T) {
	s := New()
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
}

func TestInsertKeys(t *testing.T) {
	s := New()
	ctx := context.Background()

	key, err := s.Insert(ctx, table, nil, []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), key)

	_, err = s.Insert(ctx, table, 10, []byte(`{}`))
	require.NoError(t, err)
	key, err = s.Insert(ctx, table, nil, []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, int64(11), key)

	_, err = s.Insert(ctx, table, "10", []byte(`{}`))
	assert.Error(t, err)

	_, err = s.Insert(ctx, table, nil, []byte(`{broken`))
	assert.True(t, errors.Is(err, codec.ErrCodec))
}

func TestCompileErrorsAndClose(t *testing.T) {
	s := New()

	_, err := s.CompileMutation(table, core.RemoveMutation(path.Root))
	assert.True(t, errors.Is(err, path.ErrAddressing))

	_, err = s.CompileMutation(core.Table{Name: "t"}, core.RemoveMutation(path.MustCompile("$.a")))
	assert.Error(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	_, err = s.Find(context.Background(), table, nil, 0)
	assert.True(t, errors.Is(err, core.ErrStoreClosed))
}

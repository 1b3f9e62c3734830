package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzpsarthak13/jsonfield/internal/core"
	"github.com/rzpsarthak13/jsonfield/internal/memstore"
	"github.com/rzpsarthak13/jsonfield/internal/path"
)

var table = core.Table{Name: "test_table", KeyColumn: "id", Column: "data"}

func setup(t *testing.T, opts Options) (*Store, *memstore.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	inner := memstore.New()
	opts.OwnKV = true
	s := New(inner, NewRedisKV(client), opts)
	t.Cleanup(func() { s.Close() })
	return s, inner, mr
}

func set(t *testing.T, s core.RowStore, expr, raw string, where ...core.Predicate) int64 {
	t.Helper()
	cm, err := s.CompileMutation(table, core.SetMutation(path.MustCompile(expr), []byte(raw)))
	require.NoError(t, err)
	n, err := s.ExecuteStatement(context.Background(), cm, where)
	require.NoError(t, err)
	return n
}

func TestReadThrough(t *testing.T) {
	s, inner, mr := setup(t, Options{Namespace: "t", DefaultTTL: time.Minute})
	ctx := context.Background()

	key, err := s.Insert(ctx, table, nil, []byte(`{"a":1}`))
	require.NoError(t, err)

	rec, err := s.LoadByKey(ctx, table, key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(rec.Raw))
	assert.True(t, mr.Exists("t:test_table:0:data:1"))

	// A change behind the cache's back is not seen until the entry goes.
	set(t, inner, "$.a", `2`, core.KeyEquals{Key: key})
	rec, err = s.LoadByKey(ctx, table, key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(rec.Raw))

	mr.FastForward(2 * time.Minute)
	rec, err = s.LoadByKey(ctx, table, key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":2}`, string(rec.Raw))
}

func TestKeyedStatementEvictsEntry(t *testing.T) {
	s, _, mr := setup(t, Options{Namespace: "t", DefaultTTL: time.Minute})
	ctx := context.Background()

	_, err := s.Insert(ctx, table, 1, []byte(`{"a":1}`))
	require.NoError(t, err)
	_, err = s.LoadByKey(ctx, table, 1)
	require.NoError(t, err)

	assert.Equal(t, int64(1), set(t, s, "$.a", `3`, core.KeyEquals{Key: 1}))
	assert.False(t, mr.Exists("t:test_table:0:data:1"))

	rec, err := s.LoadByKey(ctx, table, 1)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":3}`, string(rec.Raw))
}

func TestUnscopedStatementBumpsGeneration(t *testing.T) {
	s, _, mr := setup(t, Options{Namespace: "t", DefaultTTL: time.Minute})
	ctx := context.Background()

	for _, k := range []int{1, 2} {
		_, err := s.Insert(ctx, table, k, []byte(`{"a":1}`))
		require.NoError(t, err)
		_, err = s.LoadByKey(ctx, table, k)
		require.NoError(t, err)
	}

	assert.Equal(t, int64(2), set(t, s, "$.a", `5`))
	gen, err := mr.Get("t:test_table:gen")
	require.NoError(t, err)
	assert.Equal(t, "1", gen)

	rec, err := s.LoadByKey(ctx, table, 2)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":5}`, string(rec.Raw))
	assert.True(t, mr.Exists("t:test_table:1:data:2"))
}

func TestNullColumnIsCached(t *testing.T) {
	s, _, _ := setup(t, Options{Namespace: "t", DefaultTTL: time.Minute})
	ctx := context.Background()

	_, err := s.Insert(ctx, table, 1, nil)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		rec, err := s.LoadByKey(ctx, table, 1)
		require.NoError(t, err)
		assert.Nil(t, rec.Raw)
		assert.Equal(t, int64(1), rec.Key)
	}
}

func TestDisabledTableBypassesCache(t *testing.T) {
	s, _, mr := setup(t, Options{Namespace: "t", DefaultTTL: time.Minute, TTL: map[string]time.Duration{"test_table": -1}})
	ctx := context.Background()

	_, err := s.Insert(ctx, table, 1, []byte(`{}`))
	require.NoError(t, err)
	_, err = s.LoadByKey(ctx, table, 1)
	require.NoError(t, err)
	assert.Empty(t, mr.Keys())
}

func TestRedisOutageFallsBack(t *testing.T) {
	s, _, mr := setup(t, Options{Namespace: "t", DefaultTTL: time.Minute})
	ctx := context.Background()

	_, err := s.Insert(ctx, table, 1, []byte(`{"a":1}`))
	require.NoError(t, err)
	mr.Close()

	rec, err := s.LoadByKey(ctx, table, 1)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(rec.Raw))

	_, err = s.LoadByKey(ctx, table, 9)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestUnwrapFindsSchemaManager(t *testing.T) {
	s, _, _ := setup(t, Options{DefaultTTL: time.Minute})
	_, ok := core.SchemaManagerOf(s)
	assert.True(t, ok)
}

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewClient(ClientConfig{Addr: mr.Addr(), DialTimeout: time.Second})
	require.NoError(t, err)
	require.NoError(t, client.Close())

	_, err = NewClient(ClientConfig{})
	assert.Error(t, err)
	_, err = NewClient(ClientConfig{Addr: mr.Addr(), DB: 16})
	assert.Error(t, err)
}

func TestRedisKV(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	kv := NewRedisKV(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer kv.Close()

	_, err := kv.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrMiss)
	require.NoError(t, kv.Set(ctx, "a", []byte("one"), time.Minute))
	v, err := kv.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), v)
	mr.FastForward(2 * time.Minute)
	_, err = kv.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrMiss)

	n, err := kv.Counter(ctx, "gen")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	n, err = kv.Incr(ctx, "gen")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = kv.Counter(ctx, "gen")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, kv.Delete(ctx, "gen"))
	assert.False(t, mr.Exists("gen"))
}

func TestCreate(t *testing.T) {
	assert.Equal(t, []string{"dynamodb", "redis"}, RegisteredTypes())
	assert.True(t, IsTypeRegistered("dynamodb"))

	_, err := Create(Config{})
	assert.Error(t, err)
	_, err = Create(Config{Type: "memcached"})
	assert.Error(t, err)
	_, err = Create(Config{Type: "redis"})
	assert.Error(t, err)
	_, err = Create(Config{Type: "dynamodb", DynamoDB: DynamoDBConfig{Region: "us-east-1"}})
	assert.ErrorContains(t, err, "table_name")

	mr := miniredis.RunT(t)
	kv, err := Create(Config{Type: "redis", Redis: ClientConfig{Addr: mr.Addr(), DialTimeout: time.Second}})
	require.NoError(t, err)
	assert.IsType(t, &RedisKV{}, kv)
	require.NoError(t, kv.Close())
}

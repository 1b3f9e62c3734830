package registry_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzpsarthak13/jsonfield/internal/core"
	_ "github.com/rzpsarthak13/jsonfield/internal/memstore"
	"github.com/rzpsarthak13/jsonfield/internal/registry"
	_ "github.com/rzpsarthak13/jsonfield/internal/sqlstore"
)

func TestDefaults(t *testing.T) {
	cm := registry.NewConfigManager()
	cfg := cm.GetConfig()
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.True(t, cfg.Codec.EnsureASCII)
	assert.False(t, cfg.Codec.Detailed)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, "", cfg.Events.Type)
	assert.Equal(t, []string{"memory", "mysql", "sqlite"}, registry.RegisteredTypes())
}

func TestLoadFromYAML(t *testing.T) {
	cm := registry.NewConfigManager()
	err := cm.LoadFromYAML([]byte(`
database:
  type: mysql
  host: db.internal
  port: 3306
  database: app
  username: app
codec:
  ensure_ascii: false
  detailed: true
cache:
  enabled: true
  default_ttl: 90s
tables:
  test_table:
    key_column: pk
`))
	require.NoError(t, err)

	cfg := cm.GetConfig()
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.False(t, cfg.Codec.EnsureASCII)
	assert.True(t, cfg.Codec.Detailed)
	assert.Equal(t, 90*time.Second, cfg.Cache.DefaultTTL)
	assert.Equal(t, "localhost:6379", cfg.Cache.Addr)

	tc := cm.GetTableConfig("test_table")
	assert.Equal(t, "pk", tc.KeyColumn)
	assert.Equal(t, 90*time.Second, tc.CacheTTL)
	assert.Equal(t, "id", cm.GetTableConfig("other").KeyColumn)
}

func TestLoadFromJSONAndFile(t *testing.T) {
	cm := registry.NewConfigManager()
	require.NoError(t, cm.LoadFromJSON([]byte(`{"database":{"type":"memory"},"events":{"type":"memory"}}`)))
	assert.Equal(t, "memory", cm.GetConfig().Database.Type)

	dir := t.TempDir()
	file := filepath.Join(dir, "jsonfield.yaml")
	require.NoError(t, os.WriteFile(file, []byte("database:\n  type: sqlite\n  path: "+filepath.Join(dir, "db.sqlite")+"\n"), 0o600))
	require.NoError(t, cm.LoadFromFile(file))
	assert.Equal(t, "sqlite", cm.GetConfig().Database.Type)

	txt := filepath.Join(dir, "jsonfield.txt")
	require.NoError(t, os.WriteFile(txt, nil, 0o600))
	assert.Error(t, cm.LoadFromFile(txt))
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("JSONFIELD_DATABASE_TYPE", "memory")
	t.Setenv("JSONFIELD_CODEC_ENSURE_ASCII", "false")
	t.Setenv("JSONFIELD_CACHE_DEFAULT_TTL", "2m")
	t.Setenv("JSONFIELD_EVENTS_TYPE", "kafka")
	t.Setenv("JSONFIELD_EVENTS_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("JSONFIELD_DATABASE_MAX_STATEMENTS_PER_SECOND", "12.5")
	t.Setenv("JSONFIELD_CACHE_TYPE", "dynamodb")
	t.Setenv("JSONFIELD_CACHE_DYNAMODB_REGION", "eu-west-1")
	t.Setenv("JSONFIELD_CACHE_DYNAMODB_TABLE_NAME", "jsonfield-cache")

	cm := registry.NewConfigManager()
	require.NoError(t, cm.LoadFromEnv())
	cfg := cm.GetConfig()
	assert.Equal(t, "memory", cfg.Database.Type)
	assert.False(t, cfg.Codec.EnsureASCII)
	assert.Equal(t, 2*time.Minute, cfg.Cache.DefaultTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Events.KafkaConfig.Brokers)
	assert.Equal(t, 12.5, cfg.Database.MaxStatementsPerSecond)
	assert.Equal(t, "dynamodb", cfg.Cache.Type)
	assert.Equal(t, "eu-west-1", cfg.Cache.DynamoDBConfig.Region)
	assert.Equal(t, "jsonfield-cache", cfg.Cache.DynamoDBConfig.TableName)
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown type", "database:\n  type: postgres\n"},
		{"mysql without host", "database:\n  type: mysql\n"},
		{"negative throttle", "database:\n  max_statements_per_second: -1\n"},
		{"cache without ttl", "cache:\n  enabled: true\n  default_ttl: 0s\n"},
		{"unknown cache type", "cache:\n  enabled: true\n  type: memcached\n"},
		{"dynamodb without table", "cache:\n  enabled: true\n  type: dynamodb\n  dynamodb_config:\n    region: us-east-1\n"},
		{"unknown events", "events:\n  type: nats\n"},
		{"kafka without topic", "events:\n  type: kafka\n  kafka_config:\n    topic: \"\"\n"},
		{"bad yaml", "database: ["},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cm := registry.NewConfigManager()
			before := cm.GetConfig()
			assert.Error(t, cm.LoadFromYAML([]byte(tt.yaml)))
			assert.Same(t, before, cm.GetConfig())
		})
	}
}

func TestCreateStore(t *testing.T) {
	cfg := registry.DefaultConfig()
	cfg.Database.Type = "memory"
	store, err := registry.CreateStore(cfg)
	require.NoError(t, err)
	assert.Equal(t, "memory", store.Dialect())
	require.NoError(t, store.Close())

	cfg.Database.Type = "sqlite"
	store, err = registry.CreateStore(cfg)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", store.Dialect())
	require.NoError(t, store.Close())

	cfg.Database.Type = "oracle"
	_, err = registry.CreateStore(cfg)
	assert.Error(t, err)
}

func TestRegisterStoreFactoryPanics(t *testing.T) {
	assert.Panics(t, func() { registry.RegisterStoreFactory(nil) })
	assert.True(t, registry.IsTypeRegistered("memory"))
}

func TestFieldRegistry(t *testing.T) {
	ctx := context.Background()
	lm := registry.NewLifecycleManager()

	var registered, unregistered []string
	lm.RegisterHook(registry.LifecycleHookFunc{
		OnRegisterFunc: func(_ context.Context, f core.Table, _ *core.Schema) error {
			if f.Name == "forbidden" {
				return errors.New("no")
			}
			registered = append(registered, f.String())
			return nil
		},
		OnUnregisterFunc: func(_ context.Context, f core.Table, _ *core.Schema) error {
			unregistered = append(unregistered, f.String())
			return nil
		},
	})
	fr := registry.NewFieldRegistry(registry.NewConfigManager(), lm)

	field := core.Table{Name: "test_table", KeyColumn: "id", Column: "data"}
	schema := &core.Schema{TableName: "test_table", PrimaryKey: "id", Columns: []core.Column{{Name: "id"}, {Name: "data", Type: "json"}}}
	require.NoError(t, fr.Register(ctx, field, schema))
	require.NoError(t, fr.Register(ctx, core.Table{Name: "other", KeyColumn: "id", Column: "doc"}, nil))

	assert.Error(t, fr.Register(ctx, core.Table{Name: "test_table", KeyColumn: "id", Column: "missing"}, schema))
	assert.Error(t, fr.Register(ctx, core.Table{Name: "test_table", KeyColumn: "pk", Column: "data"}, schema))
	assert.Error(t, fr.Register(ctx, core.Table{Name: "forbidden", KeyColumn: "id", Column: "data"}, nil))

	assert.Equal(t, []string{"other.doc", "test_table.data"}, fr.List())
	md, err := fr.Get("test_table.data")
	require.NoError(t, err)
	assert.Equal(t, "id", md.Config.KeyColumn)
	assert.Same(t, schema, md.Schema)

	require.NoError(t, fr.Unregister(ctx, "other.doc"))
	assert.Error(t, fr.Unregister(ctx, "other.doc"))
	assert.Equal(t, 1, fr.Count())
	assert.Equal(t, []string{"test_table.data", "other.doc"}, registered)
	assert.Equal(t, []string{"other.doc"}, unregistered)
}

// Package client assembles a row store stack from configuration and keeps
// track of the JSON fields declared on it.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rzpsarthak13/jsonfield/internal/cache"
	"github.com/rzpsarthak13/jsonfield/internal/core"
	"github.com/rzpsarthak13/jsonfield/internal/events"
	"github.com/rzpsarthak13/jsonfield/internal/registry"
)

// ConfigProvider provides configuration as YAML without importing the public package.
type ConfigProvider interface {
	GetYAML() ([]byte, error)
}

// FieldSpec describes a field to register.
type FieldSpec struct {
	Table     string
	Column    string
	KeyColumn string // empty picks the configured or described key

	// CreateTable creates the table when it does not exist.
	CreateTable bool
	Temporary   bool
}

// Engine owns the row store stack and the field registry.
type Engine struct {
	mu        sync.RWMutex
	configMgr *registry.ConfigManager
	store     core.RowStore
	changes   *events.MemoryPublisher
	fields    *registry.FieldRegistry
	lifecycle *registry.LifecycleManager
	logger    *slog.Logger
	closed    bool
}

// NewEngine loads the YAML produced by configProvider and builds the engine.
func NewEngine(configProvider ConfigProvider) (*Engine, error) {
	if configProvider == nil {
		return nil, fmt.Errorf("config provider cannot be nil")
	}

	configMgr := registry.NewConfigManager()
	yamlData, err := configProvider.GetYAML()
	if err != nil {
		return nil, fmt.Errorf("failed to get config YAML: %w", err)
	}
	if err := configMgr.LoadFromYAML(yamlData); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return NewEngineFromManager(configMgr)
}

// NewEngineFromManager builds the engine from an already loaded configuration.
func NewEngineFromManager(configMgr *registry.ConfigManager) (*Engine, error) {
	lifecycle := registry.NewLifecycleManager()
	e := &Engine{
		configMgr: configMgr,
		fields:    registry.NewFieldRegistry(configMgr, lifecycle),
		lifecycle: lifecycle,
		logger:    slog.Default().With("component", "client"),
	}
	if err := e.initializeStore(); err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	return e, nil
}

// initializeStore opens the backend and wraps it with the configured
// cache and change feed.
func (e *Engine) initializeStore() error {
	config := e.configMgr.GetConfig()

	store, err := registry.CreateStore(config)
	if err != nil {
		return err
	}
	e.logger.Info("store opened", "type", config.Database.Type)

	if config.Cache.Enabled {
		kvType := config.Cache.Type
		if kvType == "" {
			kvType = "redis"
		}
		kv, err := cache.Create(cache.Config{
			Type: kvType,
			Redis: cache.ClientConfig{
				Addr:         config.Cache.Addr,
				Password:     config.Cache.Password,
				DB:           config.Cache.DB,
				PoolSize:     config.Cache.PoolSize,
				MinIdleConns: config.Cache.MinIdleConns,
				DialTimeout:  config.Cache.DialTimeout,
				ReadTimeout:  config.Cache.ReadTimeout,
				WriteTimeout: config.Cache.WriteTimeout,
			},
			DynamoDB: cache.DynamoDBConfig{
				Region:          config.Cache.DynamoDBConfig.Region,
				TableName:       config.Cache.DynamoDBConfig.TableName,
				Endpoint:        config.Cache.DynamoDBConfig.Endpoint,
				AccessKeyID:     config.Cache.DynamoDBConfig.AccessKeyID,
				SecretAccessKey: config.Cache.DynamoDBConfig.SecretAccessKey,
				Timeout:         config.Cache.DialTimeout,
			},
		})
		if err != nil {
			store.Close()
			return fmt.Errorf("failed to create cache: %w", err)
		}

		ttl := make(map[string]time.Duration, len(config.Tables))
		for name, t := range config.Tables {
			switch {
			case t.NoCache:
				ttl[name] = -1
			case t.CacheTTL > 0:
				ttl[name] = t.CacheTTL
			}
		}
		cached := cache.New(store, kv, cache.Options{
			Namespace:  config.Cache.Namespace,
			DefaultTTL: config.Cache.DefaultTTL,
			TTL:        ttl,
			OwnKV:      true,
		})
		e.lifecycle.RegisterHook(registry.LifecycleHookFunc{
			OnUnregisterFunc: func(ctx context.Context, field core.Table, _ *core.Schema) error {
				cached.InvalidateTable(ctx, field.Name)
				return nil
			},
		})
		store = cached
		e.logger.Info("cache enabled", "type", kvType, "namespace", config.Cache.Namespace)
	}

	var publisher events.Publisher
	switch config.Events.Type {
	case "kafka":
		kc := config.Events.KafkaConfig
		publisher, err = events.NewKafkaPublisher(events.KafkaConfig{
			Brokers:      kc.Brokers,
			Topic:        kc.Topic,
			BatchSize:    kc.BatchSize,
			BatchTimeout: kc.BatchTimeout,
			WriteTimeout: kc.WriteTimeout,
			RequiredAcks: kc.RequiredAcks,
		})
		if err != nil {
			store.Close()
			return fmt.Errorf("failed to create change publisher: %w", err)
		}
	case "memory":
		e.changes = events.NewMemoryPublisher(config.Events.BufferSize)
		publisher = e.changes
	}
	if publisher != nil {
		store = events.NewStore(store, publisher)
		e.logger.Info("change feed enabled", "type", config.Events.Type)
	}

	e.store = store
	return nil
}

// Store returns the assembled row store.
func (e *Engine) Store() core.RowStore {
	return e.store
}

// Config returns the loaded configuration.
func (e *Engine) Config() *registry.InternalConfig {
	return e.configMgr.GetConfig()
}

// Changes returns the in-process change feed, nil unless events.type is "memory".
func (e *Engine) Changes() *events.MemoryPublisher {
	return e.changes
}

// RegisterField resolves spec against configuration and the database schema
// and records it. The key column is taken from spec, then from the table
// configuration, then from the described primary key, then "id".
func (e *Engine) RegisterField(ctx context.Context, spec FieldSpec) (core.Table, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return core.Table{}, fmt.Errorf("client is closed: %w", core.ErrStoreClosed)
	}
	if spec.Table == "" || spec.Column == "" {
		return core.Table{}, fmt.Errorf("table and column are required")
	}

	keyColumn := spec.KeyColumn
	if keyColumn == "" {
		keyColumn = e.Config().Tables[spec.Table].KeyColumn
	}

	var schema *core.Schema
	if sm, ok := core.SchemaManagerOf(e.store); ok {
		if spec.CreateTable {
			t := core.Table{Name: spec.Table, KeyColumn: keyColumn, Column: spec.Column}
			if t.KeyColumn == "" {
				t.KeyColumn = e.configMgr.GetTableConfig(spec.Table).KeyColumn
			}
			if err := sm.CreateTable(ctx, t, spec.Temporary); err != nil {
				return core.Table{}, err
			}
		}
		if !spec.Temporary {
			described, err := sm.DescribeTable(ctx, spec.Table)
			switch {
			case err == nil:
				schema = described
			case errors.Is(err, core.ErrNotFound):
				return core.Table{}, fmt.Errorf("field %s.%s: %w", spec.Table, spec.Column, err)
			default:
				e.logger.WarnContext(ctx, "could not describe table", "table", spec.Table, "error", err)
			}
		}
	}

	if keyColumn == "" && schema != nil {
		keyColumn = schema.PrimaryKey
	}
	if keyColumn == "" {
		keyColumn = e.configMgr.GetTableConfig(spec.Table).KeyColumn
	}

	field := core.Table{Name: spec.Table, KeyColumn: keyColumn, Column: spec.Column}
	if err := e.fields.Register(ctx, field, schema); err != nil {
		return core.Table{}, err
	}
	e.logger.DebugContext(ctx, "field registered", "field", field.String(), "key", keyColumn)
	return field, nil
}

// UnregisterField forgets a field and drops its cached rows.
func (e *Engine) UnregisterField(ctx context.Context, field core.Table) error {
	return e.fields.Unregister(ctx, field.String())
}

// Fields lists the registered fields as "table.column".
func (e *Engine) Fields() []string {
	return e.fields.List()
}

// Close closes the store stack. It is safe to call more than once.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	return e.store.Close()
}

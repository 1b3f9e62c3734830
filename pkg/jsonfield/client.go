// Package jsonfield stores, queries and mutates JSON documents held in a
// single database column without rewriting whole documents on the client.
//
// Typical usage:
//
//	client, _ := jsonfield.Open(jsonfield.DefaultConfig())
//	defer client.Close()
//
//	field, _ := client.Field(ctx, "test_table", "data", jsonfield.WithCreateTable())
//	row, _ := field.Insert(ctx, map[string]any{"v_int": 10})
//
//	// Immediate: one row, reload to see the change.
//	row.Set(ctx, "$.v_dict.added", "x")
//	row.Reload(ctx)
//
//	// Deferred: the whole table unless narrowed.
//	stmt, _ := field.Remove("$.v_dict.added")
//	stmt.Where(field.Extract("$.v_int").Eq(10)).Execute(ctx)
package jsonfield

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/rzpsarthak13/jsonfield/internal/client"
	"github.com/rzpsarthak13/jsonfield/internal/codec"
	"github.com/rzpsarthak13/jsonfield/internal/core"
	"github.com/rzpsarthak13/jsonfield/internal/events"
	"github.com/rzpsarthak13/jsonfield/internal/registry"

	// Row store backends register themselves with the registry.
	_ "github.com/rzpsarthak13/jsonfield/internal/memstore"
	_ "github.com/rzpsarthak13/jsonfield/internal/sqlstore"
)

// CodecOptions controls how documents are serialized.
type CodecOptions = codec.Options

// ChangeEvent describes one applied insert or statement.
type ChangeEvent = events.ChangeEvent

// configProvider implements client.ConfigProvider to provide config as YAML without import cycles.
type configProvider struct {
	config *Config
}

func (cp *configProvider) GetYAML() ([]byte, error) {
	return yaml.Marshal(cp.config)
}

// Client owns a row store stack and the codec options shared by its fields.
type Client struct {
	mu     sync.Mutex
	engine *client.Engine
	codec  *codec.Holder
	fields map[string]*Field
	logger *slog.Logger
}

// Open creates a client from config. A nil config uses DefaultConfig.
func Open(config *Config) (*Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	engine, err := client.NewEngine(&configProvider{config: config})
	if err != nil {
		return nil, err
	}
	return newClient(engine), nil
}

// OpenFile creates a client from a YAML or JSON file, then applies
// JSONFIELD_* environment overrides. An empty filePath reads only the
// environment on top of the defaults.
func OpenFile(filePath string) (*Client, error) {
	cm := registry.NewConfigManager()
	if filePath != "" {
		if err := cm.LoadFromFile(filePath); err != nil {
			return nil, err
		}
	}
	if err := cm.LoadFromEnv(); err != nil {
		return nil, err
	}
	engine, err := client.NewEngineFromManager(cm)
	if err != nil {
		return nil, err
	}
	return newClient(engine), nil
}

func newClient(engine *client.Engine) *Client {
	cfg := engine.Config().Codec
	return &Client{
		engine: engine,
		codec:  codec.NewHolder(codec.Options{EnsureASCII: cfg.EnsureASCII, Detailed: cfg.Detailed}),
		fields: make(map[string]*Field),
		logger: slog.Default().With("component", "jsonfield"),
	}
}

// FieldOption configures a field descriptor.
type FieldOption func(*client.FieldSpec)

// WithKeyColumn names the primary key column of the table.
func WithKeyColumn(column string) FieldOption {
	return func(s *client.FieldSpec) {
		s.KeyColumn = column
	}
}

// WithCreateTable creates the table when it does not exist.
func WithCreateTable() FieldOption {
	return func(s *client.FieldSpec) {
		s.CreateTable = true
	}
}

// WithTemporaryTable creates the table as a temporary table. It implies
// WithCreateTable.
func WithTemporaryTable() FieldOption {
	return func(s *client.FieldSpec) {
		s.CreateTable = true
		s.Temporary = true
	}
}

// Field returns the descriptor of the JSON column column of table. The table
// is described once; later calls with the same table and column return the
// same descriptor and ignore opts.
func (c *Client) Field(ctx context.Context, table, column string, opts ...FieldOption) (*Field, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	name := table + "." + column
	if f, ok := c.fields[name]; ok {
		return f, nil
	}

	spec := client.FieldSpec{Table: table, Column: column}
	for _, opt := range opts {
		opt(&spec)
	}
	t, err := c.engine.RegisterField(ctx, spec)
	if err != nil {
		return nil, err
	}
	f := &Field{client: c, table: t}
	c.fields[name] = f
	return f, nil
}

// Unregister forgets field. With a cache enabled every cached row of its
// table is dropped. A later Field call for the same table and column
// registers it again; the unregistered Field keeps working on the store.
func (c *Client) Unregister(ctx context.Context, field *Field) error {
	if field == nil || field.client != c {
		return fmt.Errorf("%w: field does not belong to this client", ErrTableMismatch)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.engine.UnregisterField(ctx, field.table); err != nil {
		return err
	}
	delete(c.fields, field.table.Name+"."+field.table.Column)
	return nil
}

// Fields lists the descriptors of the client as "table.column".
func (c *Client) Fields() []string {
	return c.engine.Fields()
}

// CodecOptions returns the options used by every field of the client.
func (c *Client) CodecOptions() CodecOptions {
	return c.codec.Load()
}

// SetCodecOptions replaces the codec options of every field of the client.
// Operations already compiled keep the options they were compiled with.
func (c *Client) SetCodecOptions(opts CodecOptions) {
	c.codec.Store(opts)
	c.logger.Debug("codec options changed", "ensure_ascii", opts.EnsureASCII, "detailed", opts.Detailed)
}

// Dialect names the row store backend ("mysql", "sqlite" or "memory").
func (c *Client) Dialect() string {
	return c.engine.Store().Dialect()
}

// Changes returns the in-process change feed. It is nil unless the events
// type is "memory".
func (c *Client) Changes() <-chan ChangeEvent {
	if p := c.engine.Changes(); p != nil {
		return p.Events()
	}
	return nil
}

// Close releases the client's connections.
func (c *Client) Close() error {
	return c.engine.Close()
}

func (c *Client) store() core.RowStore {
	return c.engine.Store()
}

func (c *Client) encode(v any) ([]byte, error) {
	return codec.Encode(v, c.codec.Load())
}

func (c *Client) decode(raw []byte) (any, error) {
	if raw == nil {
		return nil, nil
	}
	doc, err := codec.Decode(raw, c.codec.Load())
	if err != nil {
		return nil, fmt.Errorf("decode stored document: %w", err)
	}
	return doc, nil
}

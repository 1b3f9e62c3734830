package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rzpsarthak13/jsonfield/internal/core"
)

// FieldMetadata contains metadata about a registered JSON field.
type FieldMetadata struct {
	// Field identifies the table, key column and JSON column.
	Field core.Table

	// Schema is the described table, nil when the backend cannot describe it.
	Schema *core.Schema

	// Config contains the table-specific configuration.
	Config InternalTableConfig

	CreatedAt time.Time
	UpdatedAt time.Time
}

// FieldRegistry tracks the JSON fields a client has declared.
// It is safe for concurrent use.
type FieldRegistry struct {
	mu        sync.RWMutex
	fields    map[string]*FieldMetadata
	configMgr *ConfigManager
	lifecycle *LifecycleManager
}

// NewFieldRegistry creates a registry backed by configMgr for table overrides.
func NewFieldRegistry(configMgr *ConfigManager, lifecycle *LifecycleManager) *FieldRegistry {
	if lifecycle == nil {
		lifecycle = NewLifecycleManager()
	}
	return &FieldRegistry{
		fields:    make(map[string]*FieldMetadata),
		configMgr: configMgr,
		lifecycle: lifecycle,
	}
}

// Register records a field. When schema is non-nil the key and JSON columns
// must exist in it. Registering an existing field refreshes its metadata.
func (fr *FieldRegistry) Register(ctx context.Context, field core.Table, schema *core.Schema) error {
	if err := field.Validate(); err != nil {
		return err
	}
	if schema != nil {
		if schema.TableName != field.Name {
			return fmt.Errorf("schema table name %q does not match field table %q", schema.TableName, field.Name)
		}
		if _, ok := schema.Column(field.Column); !ok {
			return fmt.Errorf("table %q has no column %q", field.Name, field.Column)
		}
		if schema.PrimaryKey != "" && schema.PrimaryKey != field.KeyColumn {
			return fmt.Errorf("table %q is keyed by %q, not %q", field.Name, schema.PrimaryKey, field.KeyColumn)
		}
	}

	if err := fr.lifecycle.ExecuteRegisterHooks(ctx, field, schema); err != nil {
		return fmt.Errorf("register hook failed for %s: %w", field, err)
	}

	fr.mu.Lock()
	defer fr.mu.Unlock()

	now := time.Now()
	metadata := &FieldMetadata{
		Field:     field,
		Schema:    schema,
		Config:    fr.configMgr.GetTableConfig(field.Name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if existing, exists := fr.fields[field.String()]; exists {
		metadata.CreatedAt = existing.CreatedAt
	}
	fr.fields[field.String()] = metadata
	return nil
}

// Get returns a copy of the metadata registered under name ("table.column").
func (fr *FieldRegistry) Get(name string) (*FieldMetadata, error) {
	fr.mu.RLock()
	defer fr.mu.RUnlock()

	metadata, exists := fr.fields[name]
	if !exists {
		return nil, fmt.Errorf("field %q is not registered", name)
	}
	out := *metadata
	return &out, nil
}

// Unregister removes a field after running the unregister hooks.
func (fr *FieldRegistry) Unregister(ctx context.Context, name string) error {
	fr.mu.Lock()
	metadata, exists := fr.fields[name]
	if exists {
		delete(fr.fields, name)
	}
	fr.mu.Unlock()

	if !exists {
		return fmt.Errorf("field %q is not registered", name)
	}
	if err := fr.lifecycle.ExecuteUnregisterHooks(ctx, metadata.Field, metadata.Schema); err != nil {
		return fmt.Errorf("unregister hook failed for %s: %w", name, err)
	}
	return nil
}

// List returns the registered field names in sorted order.
func (fr *FieldRegistry) List() []string {
	fr.mu.RLock()
	defer fr.mu.RUnlock()

	names := make([]string, 0, len(fr.fields))
	for name := range fr.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RefreshConfig re-reads table overrides for every registered field.
func (fr *FieldRegistry) RefreshConfig() {
	fr.mu.Lock()
	defer fr.mu.Unlock()

	now := time.Now()
	for _, metadata := range fr.fields {
		metadata.Config = fr.configMgr.GetTableConfig(metadata.Field.Name)
		metadata.UpdatedAt = now
	}
}

// GetLifecycleManager returns the lifecycle manager associated with this registry.
func (fr *FieldRegistry) GetLifecycleManager() *LifecycleManager {
	return fr.lifecycle
}

// Count returns the number of registered fields.
func (fr *FieldRegistry) Count() int {
	fr.mu.RLock()
	defer fr.mu.RUnlock()
	return len(fr.fields)
}

package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rzpsarthak13/jsonfield/internal/core"
)

// StoreFactory is the Strategy interface for creating row store backends.
// Each backend (mysql, sqlite, memory) registers one from its init().
type StoreFactory interface {
	// Type returns the type identifier matched against database.type.
	Type() string

	// Validate checks the backend-specific part of the configuration.
	Validate(config *InternalConfig) error

	// Create opens a store from a validated configuration.
	Create(config *InternalConfig) (core.RowStore, error)
}

var (
	// factoryRegistry stores all registered store factories.
	factoryRegistry = make(map[string]StoreFactory)

	// factoryRegistryMutex protects the factory registry from concurrent access.
	factoryRegistryMutex sync.RWMutex
)

// RegisterStoreFactory registers a store factory.
// Panics if factory is nil, type is empty, or type is already registered.
func RegisterStoreFactory(factory StoreFactory) {
	if factory == nil {
		panic("factory cannot be nil")
	}
	if factory.Type() == "" {
		panic("factory type cannot be empty")
	}

	factoryRegistryMutex.Lock()
	defer factoryRegistryMutex.Unlock()

	if _, exists := factoryRegistry[factory.Type()]; exists {
		panic(fmt.Sprintf("factory for type %q is already registered", factory.Type()))
	}
	factoryRegistry[factory.Type()] = factory
}

// GetStoreFactory retrieves a factory by type.
func GetStoreFactory(storeType string) (StoreFactory, bool) {
	factoryRegistryMutex.RLock()
	defer factoryRegistryMutex.RUnlock()

	factory, exists := factoryRegistry[storeType]
	return factory, exists
}

// CreateStore validates config and opens the store its database.type names.
func CreateStore(config *InternalConfig) (core.RowStore, error) {
	if config.Database.Type == "" {
		return nil, fmt.Errorf("database.type is required")
	}
	factory, exists := GetStoreFactory(config.Database.Type)
	if !exists {
		return nil, fmt.Errorf("unsupported database type: %s (registered: %v)", config.Database.Type, RegisteredTypes())
	}
	if err := factory.Validate(config); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", config.Database.Type, err)
	}
	return factory.Create(config)
}

// RegisteredTypes returns the registered store types in sorted order.
func RegisteredTypes() []string {
	factoryRegistryMutex.RLock()
	defer factoryRegistryMutex.RUnlock()

	types := make([]string, 0, len(factoryRegistry))
	for t := range factoryRegistry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// IsTypeRegistered checks if a store type is registered.
func IsTypeRegistered(storeType string) bool {
	_, exists := GetStoreFactory(storeType)
	return exists
}

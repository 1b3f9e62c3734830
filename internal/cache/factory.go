package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ErrMiss is returned by KV.Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// KV is the key-value backend behind the cache. Values expire after the TTL
// given to Set; counters never expire.
type KV interface {
	// Get returns the value stored under key, or ErrMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key for ttl. A zero ttl never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Incr atomically adds one to the counter under key and returns the
	// new value. A missing counter starts at zero.
	Incr(ctx context.Context, key string) (int64, error)

	// Counter returns the counter under key, zero when it does not exist.
	Counter(ctx context.Context, key string) (int64, error)

	// Close releases the backend connection.
	Close() error
}

// KVFactory is the Strategy interface for creating KV backends. Each backend
// registers one from its init().
type KVFactory interface {
	// Create connects a new KV from a validated configuration.
	Create(config Config) (KV, error)

	// Type returns the identifier matched against cache.type.
	Type() string

	// Validate checks the backend-specific part of the configuration.
	Validate(config Config) error
}

// Config selects and configures the cache backend.
type Config struct {
	Type     string
	Redis    ClientConfig
	DynamoDB DynamoDBConfig
}

var (
	factoryRegistry = make(map[string]KVFactory)
	registryMutex   sync.RWMutex
)

// RegisterFactory registers a KV factory.
// Panics if factory is nil, type is empty, or type is already registered.
func RegisterFactory(factory KVFactory) {
	if factory == nil {
		panic("factory cannot be nil")
	}
	if factory.Type() == "" {
		panic("factory type cannot be empty")
	}

	registryMutex.Lock()
	defer registryMutex.Unlock()

	if _, exists := factoryRegistry[factory.Type()]; exists {
		panic(fmt.Sprintf("factory for type %q is already registered", factory.Type()))
	}
	factoryRegistry[factory.Type()] = factory
}

// Create validates config and connects the KV backend its Type names.
func Create(config Config) (KV, error) {
	if config.Type == "" {
		return nil, fmt.Errorf("cache type is required")
	}

	registryMutex.RLock()
	factory, exists := factoryRegistry[config.Type]
	registryMutex.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unsupported cache type: %s (registered: %v)", config.Type, RegisteredTypes())
	}
	if err := factory.Validate(config); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", config.Type, err)
	}
	return factory.Create(config)
}

// IsTypeRegistered reports whether a cache type is registered.
func IsTypeRegistered(kvType string) bool {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	_, exists := factoryRegistry[kvType]
	return exists
}

// RegisteredTypes returns the registered cache types in sorted order.
func RegisteredTypes() []string {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	types := make([]string, 0, len(factoryRegistry))
	for t := range factoryRegistry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

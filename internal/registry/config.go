// Package registry loads and validates configuration and keeps the registry
// of row store backends.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// ConfigManager handles loading and managing configuration from various sources.
type ConfigManager struct {
	config *InternalConfig
}

// NewConfigManager creates a new configuration manager with default configuration.
func NewConfigManager() *ConfigManager {
	return &ConfigManager{
		config: defaultInternalConfig(),
	}
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *InternalConfig {
	return defaultInternalConfig()
}

func defaultInternalConfig() *InternalConfig {
	return &InternalConfig{
		Database: InternalDatabaseConfig{
			Type:              "sqlite",
			MaxOpenConns:      25,
			MaxIdleConns:      5,
			ConnMaxLifetime:   5 * time.Minute,
			ConnMaxIdleTime:   10 * time.Minute,
			ConnectionTimeout: 10 * time.Second,
		},
		Codec: InternalCodecConfig{
			EnsureASCII: true,
		},
		Cache: InternalCacheConfig{
			Enabled:      false,
			Type:         "redis",
			Addr:         "localhost:6379",
			PoolSize:     10,
			MinIdleConns: 5,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			Namespace:    "jsonfield",
			DefaultTTL:   time.Hour,
		},
		Events: InternalEventsConfig{
			BufferSize: 1000,
			KafkaConfig: InternalKafkaConfig{
				Brokers:      []string{"localhost:9092"},
				Topic:        "jsonfield-changes",
				BatchSize:    100,
				BatchTimeout: 10 * time.Millisecond,
				WriteTimeout: 10 * time.Second,
				RequiredAcks: -1, // all replicas
			},
		},
		Tables: make(map[string]InternalTableConfig),
	}
}

// LoadFromFile loads configuration from a YAML or JSON file.
// The file format is determined by the file extension (.yaml, .yml, or .json).
func (cm *ConfigManager) LoadFromFile(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".yaml", ".yml":
		return cm.LoadFromYAML(data)
	case ".json":
		return cm.LoadFromJSON(data)
	default:
		return fmt.Errorf("unsupported config file format: %s (supported: .yaml, .yml, .json)", ext)
	}
}

// LoadFromYAML loads configuration from YAML data.
func (cm *ConfigManager) LoadFromYAML(data []byte) error {
	config := defaultInternalConfig()
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}
	return cm.apply(config)
}

// LoadFromJSON loads configuration from JSON data.
func (cm *ConfigManager) LoadFromJSON(data []byte) error {
	config := defaultInternalConfig()
	if len(data) > 0 {
		if err := json.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse JSON config: %w", err)
		}
	}
	return cm.apply(config)
}

// LoadFromEnv overlays environment variables on the current configuration.
// Environment variables follow the pattern: JSONFIELD_<SECTION>_<KEY>
// Examples:
//   - JSONFIELD_DATABASE_TYPE=mysql
//   - JSONFIELD_DATABASE_HOST=localhost
//   - JSONFIELD_CODEC_ENSURE_ASCII=false
//   - JSONFIELD_CACHE_ADDR=localhost:6379
//   - JSONFIELD_EVENTS_KAFKA_BROKERS=kafka-1:9092,kafka-2:9092
func (cm *ConfigManager) LoadFromEnv() error {
	config := cm.config.clone()

	// Database configuration
	envString("JSONFIELD_DATABASE_TYPE", &config.Database.Type)
	envString("JSONFIELD_DATABASE_HOST", &config.Database.Host)
	envInt("JSONFIELD_DATABASE_PORT", &config.Database.Port)
	envString("JSONFIELD_DATABASE_DATABASE", &config.Database.Database)
	envString("JSONFIELD_DATABASE_USERNAME", &config.Database.Username)
	envString("JSONFIELD_DATABASE_PASSWORD", &config.Database.Password)
	envString("JSONFIELD_DATABASE_PATH", &config.Database.Path)
	envInt("JSONFIELD_DATABASE_MAX_OPEN_CONNS", &config.Database.MaxOpenConns)
	envInt("JSONFIELD_DATABASE_MAX_IDLE_CONNS", &config.Database.MaxIdleConns)
	envDuration("JSONFIELD_DATABASE_CONNECTION_TIMEOUT", &config.Database.ConnectionTimeout)
	if val := os.Getenv("JSONFIELD_DATABASE_MAX_STATEMENTS_PER_SECOND"); val != "" {
		var limit float64
		if _, err := fmt.Sscanf(val, "%f", &limit); err == nil {
			config.Database.MaxStatementsPerSecond = limit
		}
	}

	// Codec configuration
	envBool("JSONFIELD_CODEC_ENSURE_ASCII", &config.Codec.EnsureASCII)
	envBool("JSONFIELD_CODEC_DETAILED", &config.Codec.Detailed)

	// Cache configuration
	envBool("JSONFIELD_CACHE_ENABLED", &config.Cache.Enabled)
	envString("JSONFIELD_CACHE_TYPE", &config.Cache.Type)
	envString("JSONFIELD_CACHE_ADDR", &config.Cache.Addr)
	envString("JSONFIELD_CACHE_PASSWORD", &config.Cache.Password)
	envInt("JSONFIELD_CACHE_DB", &config.Cache.DB)
	envInt("JSONFIELD_CACHE_POOL_SIZE", &config.Cache.PoolSize)
	envString("JSONFIELD_CACHE_NAMESPACE", &config.Cache.Namespace)
	envDuration("JSONFIELD_CACHE_DEFAULT_TTL", &config.Cache.DefaultTTL)
	envString("JSONFIELD_CACHE_DYNAMODB_REGION", &config.Cache.DynamoDBConfig.Region)
	envString("JSONFIELD_CACHE_DYNAMODB_TABLE_NAME", &config.Cache.DynamoDBConfig.TableName)
	envString("JSONFIELD_CACHE_DYNAMODB_ENDPOINT", &config.Cache.DynamoDBConfig.Endpoint)
	envString("JSONFIELD_CACHE_DYNAMODB_ACCESS_KEY_ID", &config.Cache.DynamoDBConfig.AccessKeyID)
	envString("JSONFIELD_CACHE_DYNAMODB_SECRET_ACCESS_KEY", &config.Cache.DynamoDBConfig.SecretAccessKey)

	// Events configuration
	envString("JSONFIELD_EVENTS_TYPE", &config.Events.Type)
	envInt("JSONFIELD_EVENTS_BUFFER_SIZE", &config.Events.BufferSize)
	if val := os.Getenv("JSONFIELD_EVENTS_KAFKA_BROKERS"); val != "" {
		config.Events.KafkaConfig.Brokers = strings.Split(val, ",")
	}
	envString("JSONFIELD_EVENTS_KAFKA_TOPIC", &config.Events.KafkaConfig.Topic)

	return cm.apply(config)
}

func envString(key string, dst *string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		var n int
		if _, err := fmt.Sscanf(val, "%d", &n); err == nil {
			*dst = n
		}
	}
}

func envBool(key string, dst *bool) {
	if val := os.Getenv(key); val != "" {
		*dst = val == "true" || val == "1"
	}
}

func envDuration(key string, dst *time.Duration) {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

func (cm *ConfigManager) apply(config *InternalConfig) error {
	if config.Tables == nil {
		config.Tables = make(map[string]InternalTableConfig)
	}
	if err := cm.validateConfig(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	cm.config = config
	return nil
}

func (c *InternalConfig) clone() *InternalConfig {
	out := *c
	out.Events.KafkaConfig.Brokers = append([]string(nil), c.Events.KafkaConfig.Brokers...)
	out.Tables = make(map[string]InternalTableConfig, len(c.Tables))
	for name, t := range c.Tables {
		out.Tables[name] = t
	}
	return &out
}

// GetConfig returns the current internal configuration.
func (cm *ConfigManager) GetConfig() *InternalConfig {
	return cm.config
}

// GetTableConfig returns the configuration for a specific table merged with
// defaults. The key column defaults to "id".
func (cm *ConfigManager) GetTableConfig(tableName string) InternalTableConfig {
	tableConfig := cm.config.Tables[tableName]
	if tableConfig.KeyColumn == "" {
		tableConfig.KeyColumn = "id"
	}
	if tableConfig.CacheTTL == 0 {
		tableConfig.CacheTTL = cm.config.Cache.DefaultTTL
	}
	return tableConfig
}

// validateConfig validates the configuration and returns an error if invalid.
// Backend-specific checks are delegated to the registered StoreFactory.
func (cm *ConfigManager) validateConfig(config *InternalConfig) error {
	if config.Database.Type == "" {
		return fmt.Errorf("database.type is required")
	}
	factory, exists := GetStoreFactory(config.Database.Type)
	if !exists {
		return fmt.Errorf("unsupported database type: %s (registered: %v)", config.Database.Type, RegisteredTypes())
	}
	if err := factory.Validate(config); err != nil {
		return fmt.Errorf("database validation failed: %w", err)
	}
	if config.Database.MaxStatementsPerSecond < 0 {
		return fmt.Errorf("database.max_statements_per_second must be non-negative")
	}

	if config.Cache.Enabled {
		switch config.Cache.Type {
		case "", "redis":
			if config.Cache.Addr == "" {
				return fmt.Errorf("cache.addr is required when cache is enabled")
			}
		case "dynamodb":
			if config.Cache.DynamoDBConfig.Region == "" {
				return fmt.Errorf("cache.dynamodb_config.region is required when cache.type is 'dynamodb'")
			}
			if config.Cache.DynamoDBConfig.TableName == "" {
				return fmt.Errorf("cache.dynamodb_config.table_name is required when cache.type is 'dynamodb'")
			}
		default:
			return fmt.Errorf("cache.type must be 'redis' or 'dynamodb'")
		}
		if config.Cache.DefaultTTL <= 0 {
			return fmt.Errorf("cache.default_ttl must be greater than 0")
		}
		if config.Cache.Namespace == "" {
			return fmt.Errorf("cache.namespace is required when cache is enabled")
		}
	}

	switch config.Events.Type {
	case "":
	case "memory":
		if config.Events.BufferSize < 0 {
			return fmt.Errorf("events.buffer_size must be non-negative")
		}
	case "kafka":
		if len(config.Events.KafkaConfig.Brokers) == 0 {
			return fmt.Errorf("kafka_config.brokers is required when events.type is 'kafka'")
		}
		if config.Events.KafkaConfig.Topic == "" {
			return fmt.Errorf("kafka_config.topic is required when events.type is 'kafka'")
		}
	default:
		return fmt.Errorf("events.type must be '', 'memory' or 'kafka'")
	}

	for name, t := range config.Tables {
		if name == "" {
			return fmt.Errorf("tables: empty table name")
		}
		if t.CacheTTL < 0 {
			return fmt.Errorf("tables.%s.cache_ttl must be non-negative", name)
		}
	}
	return nil
}

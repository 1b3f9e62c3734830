package jsonfield

import (
	"time"
)

// Config represents the root configuration for a jsonfield client.
type Config struct {
	// Database selects the row store backend.
	Database DatabaseConfig `yaml:"database" json:"database"`

	// Codec controls how documents are serialized into the column.
	Codec CodecConfig `yaml:"codec" json:"codec"`

	// Cache configures the optional read-through cache for row loads.
	Cache CacheConfig `yaml:"cache" json:"cache"`

	// Events configures the optional change feed.
	Events EventsConfig `yaml:"events" json:"events"`

	// Tables contains table-specific configuration overrides.
	Tables map[string]TableConfig `yaml:"tables,omitempty" json:"tables,omitempty"`
}

// DatabaseConfig contains configuration for the row store.
type DatabaseConfig struct {
	// Type is "mysql", "sqlite" or "memory".
	Type string `yaml:"type" json:"type"`

	// Host, Port, Database, Username and Password address a MySQL server.
	Host     string `yaml:"host,omitempty" json:"host,omitempty"`
	Port     int    `yaml:"port,omitempty" json:"port,omitempty"`
	Database string `yaml:"database,omitempty" json:"database,omitempty"`
	Username string `yaml:"username,omitempty" json:"username,omitempty"`
	Password string `yaml:"password,omitempty" json:"password,omitempty"`

	// Path is the SQLite database file. Empty means a private in-memory database.
	Path string `yaml:"path,omitempty" json:"path,omitempty"`

	MaxOpenConns      int           `yaml:"max_open_conns,omitempty" json:"max_open_conns,omitempty"`
	MaxIdleConns      int           `yaml:"max_idle_conns,omitempty" json:"max_idle_conns,omitempty"`
	ConnMaxLifetime   time.Duration `yaml:"conn_max_lifetime,omitempty" json:"conn_max_lifetime,omitempty"`
	ConnMaxIdleTime   time.Duration `yaml:"conn_max_idle_time,omitempty" json:"conn_max_idle_time,omitempty"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout,omitempty" json:"connection_timeout,omitempty"`

	// MaxStatementsPerSecond throttles mutation statements. Zero disables it.
	MaxStatementsPerSecond float64 `yaml:"max_statements_per_second,omitempty" json:"max_statements_per_second,omitempty"`
}

// CodecConfig holds the initial codec options of the client.
type CodecConfig struct {
	// EnsureASCII escapes non-ASCII characters as \uXXXX. Defaults to true.
	EnsureASCII bool `yaml:"ensure_ascii" json:"ensure_ascii"`

	// Detailed keeps type information that plain JSON loses. Defaults to false.
	Detailed bool `yaml:"detailed" json:"detailed"`
}

// CacheConfig contains configuration for the row cache. Addr through
// WriteTimeout configure the Redis backend.
type CacheConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Type selects the backend: "redis" (the default) or "dynamodb".
	Type string `yaml:"type,omitempty" json:"type,omitempty"`

	Addr         string        `yaml:"addr,omitempty" json:"addr,omitempty"`
	Addr         string        `yaml:"addr,omitempty" json:"addr,omitempty"`
	Password     string        `yaml:"password,omitempty" json:"password,omitempty"`
	DB           int           `yaml:"db,omitempty" json:"db,omitempty"`
	PoolSize     int           `yaml:"pool_size,omitempty" json:"pool_size,omitempty"`
	MinIdleConns int           `yaml:"min_idle_conns,omitempty" json:"min_idle_conns,omitempty"`
	DialTimeout  time.Duration `yaml:"dial_timeout,omitempty" json:"dial_timeout,omitempty"`
	ReadTimeout  time.Duration `yaml:"read_timeout,omitempty" json:"read_timeout,omitempty"`
	WriteTimeout time.Duration `yaml:"write_timeout,omitempty" json:"write_timeout,omitempty"`

	// Namespace prefixes every key: {namespace}:{table}:{generation}:{column}:{key}
	Namespace string `yaml:"namespace,omitempty" json:"namespace,omitempty"`

	// DefaultTTL is the lifetime of cached rows.
	DefaultTTL time.Duration `yaml:"default_ttl,omitempty" json:"default_ttl,omitempty"`

	// DynamoDBConfig configures the "dynamodb" backend.
	DynamoDBConfig DynamoDBConfig `yaml:"dynamodb_config,omitempty" json:"dynamodb_config,omitempty"`
}

// DynamoDBConfig addresses the DynamoDB table that holds cache entries. The
// table needs a string partition key named "key"; TTL may be enabled on the
// "ttl" attribute.
type DynamoDBConfig struct {
	Region    string `yaml:"region" json:"region"`
	TableName string `yaml:"table_name" json:"table_name"`

	// Endpoint overrides the service endpoint, e.g. for LocalStack.
	Endpoint string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`

	// AccessKeyID and SecretAccessKey replace the default credential chain.
	AccessKeyID     string `yaml:"access_key_id,omitempty" json:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty" json:"secret_access_key,omitempty"`
}

// EventsConfig configures the change feed.
type EventsConfig struct {
	// Type is "" (disabled), "memory" or "kafka".
	Type string `yaml:"type,omitempty" json:"type,omitempty"`

	// BufferSize bounds the in-memory feed.
	BufferSize int `yaml:"buffer_size,omitempty" json:"buffer_size,omitempty"`

	// KafkaConfig is used when Type is "kafka".
	KafkaConfig KafkaConfig `yaml:"kafka_config,omitempty" json:"kafka_config,omitempty"`
}

// KafkaConfig contains configuration for the Kafka producer.
type KafkaConfig struct {
	Brokers      []string      `yaml:"brokers,omitempty" json:"brokers,omitempty"`
	Topic        string        `yaml:"topic,omitempty" json:"topic,omitempty"`
	BatchSize    int           `yaml:"batch_size,omitempty" json:"batch_size,omitempty"`
	BatchTimeout time.Duration `yaml:"batch_timeout,omitempty" json:"batch_timeout,omitempty"`
	WriteTimeout time.Duration `yaml:"write_timeout,omitempty" json:"write_timeout,omitempty"`

	// RequiredAcks is 0, 1, or -1 for all replicas.
	RequiredAcks int `yaml:"required_acks,omitempty" json:"required_acks,omitempty"`
}

// TableConfig contains table-specific configuration overrides.
type TableConfig struct {
	// KeyColumn names the primary key column. If not set, the described
	// primary key or "id" is used.
	KeyColumn string `yaml:"key_column,omitempty" json:"key_column,omitempty"`

	// CacheTTL overrides Cache.DefaultTTL for this table.
	CacheTTL time.Duration `yaml:"cache_ttl,omitempty" json:"cache_ttl,omitempty"`

	// NoCache bypasses the cache for this table.
	NoCache bool `yaml:"no_cache,omitempty" json:"no_cache,omitempty"`
}

// DefaultConfig returns a configuration with sensible defaults: a private
// in-memory SQLite database, ASCII-escaped plain JSON, no cache, no feed.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Type:              "sqlite",
			MaxOpenConns:      25,
			MaxIdleConns:      5,
			ConnMaxLifetime:   5 * time.Minute,
			ConnMaxIdleTime:   10 * time.Minute,
			ConnectionTimeout: 10 * time.Second,
		},
		Codec: CodecConfig{
			EnsureASCII: true,
		},
		Cache: CacheConfig{
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
		Events: EventsConfig{
			BufferSize: 1000,
			KafkaConfig: KafkaConfig{
				Brokers:      []string{"localhost:9092"},
				Topic:        "jsonfield-changes",
				BatchSize:    100,
				BatchTimeout: 10 * time.Millisecond,
				WriteTimeout: 10 * time.Second,
				RequiredAcks: -1, // All replicas
			},
		},
		Tables: make(map[string]TableConfig),
	}
}

package registry

import (
	"time"
)

// InternalConfig represents the internal configuration structure.
// This is a copy of the public Config type to avoid import cycles.
type InternalConfig struct {
	Database InternalDatabaseConfig         `yaml:"database" json:"database"`
	Codec    InternalCodecConfig            `yaml:"codec" json:"codec"`
	Cache    InternalCacheConfig            `yaml:"cache" json:"cache"`
	Events   InternalEventsConfig           `yaml:"events" json:"events"`
	Tables   map[string]InternalTableConfig `yaml:"tables" json:"tables"`
}

// InternalDatabaseConfig selects and configures the row store backend.
// Type is the registered StoreFactory type: "mysql", "sqlite" or "memory".
type InternalDatabaseConfig struct {
	Type              string        `yaml:"type" json:"type"`
	Host              string        `yaml:"host" json:"host"`
	Port              int           `yaml:"port" json:"port"`
	Database          string        `yaml:"database" json:"database"`
	Username          string        `yaml:"username" json:"username"`
	Password          string        `yaml:"password" json:"password"`
	Path              string        `yaml:"path" json:"path"` // sqlite file, empty for in-memory
	MaxOpenConns      int           `yaml:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns      int           `yaml:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetime   time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
	ConnMaxIdleTime   time.Duration `yaml:"conn_max_idle_time" json:"conn_max_idle_time"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout" json:"connection_timeout"`

	// MaxStatementsPerSecond throttles mutation statements; 0 disables it.
	MaxStatementsPerSecond float64 `yaml:"max_statements_per_second" json:"max_statements_per_second"`
}

// InternalCodecConfig holds the document serialization options.
type InternalCodecConfig struct {
	EnsureASCII bool `yaml:"ensure_ascii" json:"ensure_ascii"`
	Detailed    bool `yaml:"detailed" json:"detailed"`
}

// InternalCacheConfig configures the read-through cache for row loads.
// Type is the registered cache.KVFactory type: "redis" or "dynamodb".
type InternalCacheConfig struct {
	Enabled      bool          `yaml:"enabled" json:"enabled"`
	Type         string        `yaml:"type" json:"type"`
	Addr         string        `yaml:"addr" json:"addr"`
	Password     string        `yaml:"password" json:"password"`
	DB           int           `yaml:"db" json:"db"`
	PoolSize     int           `yaml:"pool_size" json:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" json:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout" json:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	Namespace    string        `yaml:"namespace" json:"namespace"`
	DefaultTTL   time.Duration `yaml:"default_ttl" json:"default_ttl"`

	DynamoDBConfig InternalDynamoDBConfig `yaml:"dynamodb_config" json:"dynamodb_config"`
}

// InternalDynamoDBConfig contains DynamoDB-specific cache configuration.
type InternalDynamoDBConfig struct {
	Region          string `yaml:"region" json:"region"`
	TableName       string `yaml:"table_name" json:"table_name"`
	Endpoint        string `yaml:"endpoint" json:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id" json:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key" json:"secret_access_key"`
}

// InternalEventsConfig configures the change feed. Type is "" (disabled),
// "memory" or "kafka".
type InternalEventsConfig struct {
	Type        string              `yaml:"type" json:"type"`
	BufferSize  int                 `yaml:"buffer_size" json:"buffer_size"`
	KafkaConfig InternalKafkaConfig `yaml:"kafka_config" json:"kafka_config"`
}

// InternalKafkaConfig contains Kafka-specific configuration.
type InternalKafkaConfig struct {
	Brokers      []string      `yaml:"brokers" json:"brokers"`
	Topic        string        `yaml:"topic" json:"topic"`
	BatchSize    int           `yaml:"batch_size" json:"batch_size"`
	BatchTimeout time.Duration `yaml:"batch_timeout" json:"batch_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	RequiredAcks int           `yaml:"required_acks" json:"required_acks"`
}

// InternalTableConfig contains table-specific overrides.
type InternalTableConfig struct {
	KeyColumn string        `yaml:"key_column" json:"key_column"`
	CacheTTL  time.Duration `yaml:"cache_ttl" json:"cache_ttl"`
	NoCache   bool          `yaml:"no_cache" json:"no_cache"`
}

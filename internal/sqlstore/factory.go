package sqlstore

import (
	"fmt"

	"github.com/rzpsarthak13/jsonfield/internal/core"
	"github.com/rzpsarthak13/jsonfield/internal/database"
	"github.com/rzpsarthak13/jsonfield/internal/registry"
)

func init() {
	registry.RegisterStoreFactory(mysqlFactory{})
	registry.RegisterStoreFactory(sqliteFactory{})
}

type mysqlFactory struct{}

func (mysqlFactory) Type() string { return "mysql" }

func (mysqlFactory) Validate(config *registry.InternalConfig) error {
	db := config.Database
	if db.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if db.Port <= 0 || db.Port > 65535 {
		return fmt.Errorf("database.port must be between 1 and 65535")
	}
	if db.Database == "" {
		return fmt.Errorf("database.database is required")
	}
	if db.Username == "" {
		return fmt.Errorf("database.username is required")
	}
	if db.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be greater than 0")
	}
	return nil
}

func (mysqlFactory) Create(config *registry.InternalConfig) (core.RowStore, error) {
	return open(config)
}

type sqliteFactory struct{}

func (sqliteFactory) Type() string { return "sqlite" }

func (sqliteFactory) Validate(config *registry.InternalConfig) error {
	if config.Database.MaxOpenConns < 0 {
		return fmt.Errorf("database.max_open_conns must be non-negative")
	}
	return nil
}

func (sqliteFactory) Create(config *registry.InternalConfig) (core.RowStore, error) {
	return open(config)
}

func open(config *registry.InternalConfig) (*Store, error) {
	db := config.Database
	return Open(database.Config{
		Type:              db.Type,
		Host:              db.Host,
		Port:              db.Port,
		Database:          db.Database,
		Username:          db.Username,
		Password:          db.Password,
		Path:              db.Path,
		MaxOpenConns:      db.MaxOpenConns,
		MaxIdleConns:      db.MaxIdleConns,
		ConnMaxLifetime:   db.ConnMaxLifetime,
		ConnMaxIdleTime:   db.ConnMaxIdleTime,
		ConnectionTimeout: db.ConnectionTimeout,
	}, Options{MaxStatementsPerSecond: db.MaxStatementsPerSecond})
}

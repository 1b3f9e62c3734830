package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/gocraft/dbr/v2"
	_ "modernc.org/sqlite"

	"github.com/rzpsarthak13/jsonfield/internal/sqlexpr"
)

// Config describes how to reach the database that holds JSON columns.
type Config struct {
	// Type is "mysql" or "sqlite".
	Type string

	// MySQL connection settings.
	Host     string
	Port     int
	Database string
	Username string
	Password string

	// Path is the SQLite database file, or ":memory:".
	Path string

	MaxOpenConns      int
	MaxIdleConns      int
	ConnMaxLifetime   time.Duration
	ConnMaxIdleTime   time.Duration
	ConnectionTimeout time.Duration
}

// Open connects to the configured database and returns a dbr connection
// using the matching dialect. The connection is pinged before returning.
func Open(cfg Config) (*dbr.Connection, sqlexpr.Dialect, error) {
	d, err := sqlexpr.ForName(cfg.Type)
	if err != nil {
		return nil, nil, err
	}

	var db *sql.DB
	switch d.Name() {
	case "mysql":
		db, err = openMySQL(cfg)
	default:
		db, err = openSQLite(cfg)
	}
	if err != nil {
		return nil, nil, err
	}
	if !isMemory(cfg) {
		if cfg.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			db.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	timeout := cfg.ConnectionTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger := slog.Default().With("component", "database", "dialect", d.Name())
	logger.Info("connected to database", "target", target(cfg, d))

	return &dbr.Connection{DB: db, Dialect: d.Native(), EventReceiver: NewEventReceiver(logger)}, d, nil
}

func openMySQL(cfg Config) (*sql.DB, error) {
	mc := mysql.NewConfig()
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	mc.DBName = cfg.Database
	mc.ParseTime = true
	// Affected-row counts report matched rows, so a set that leaves a
	// document unchanged still counts.
	mc.ClientFoundRows = true
	mc.Timeout = cfg.ConnectionTimeout

	connector, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, fmt.Errorf("failed to configure MySQL connector: %w", err)
	}
	return sql.OpenDB(connector), nil
}

func openSQLite(cfg Config) (*sql.DB, error) {
	dsn := cfg.Path
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	if isMemory(cfg) {
		// Each connection to ":memory:" is a separate database, so the pool
		// is pinned to one connection that never expires.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}
	return db, nil
}

func isMemory(cfg Config) bool {
	if d, err := sqlexpr.ForName(cfg.Type); err != nil || d.Name() != "sqlite" {
		return false
	}
	return cfg.Path == "" || cfg.Path == ":memory:"
}

func target(cfg Config, d sqlexpr.Dialect) string {
	if d.Name() == "mysql" {
		return fmt.Sprintf("%s@%s:%d/%s", cfg.Username, cfg.Host, cfg.Port, cfg.Database)
	}
	if cfg.Path == "" {
		return ":memory:"
	}
	return cfg.Path
}

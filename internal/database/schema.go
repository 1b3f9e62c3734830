package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gocraft/dbr/v2"

	"github.com/rzpsarthak13/jsonfield/internal/core"
	"github.com/rzpsarthak13/jsonfield/internal/sqlexpr"
)

const mysqlColumnsQuery = `
	SELECT COLUMN_NAME, DATA_TYPE, IS_NULLABLE, COLUMN_KEY
	FROM INFORMATION_SCHEMA.COLUMNS
	WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?
	ORDER BY ORDINAL_POSITION
`

const sqliteColumnsQuery = `
	SELECT name, type, "notnull", pk
	FROM pragma_table_info(?)
	ORDER BY cid
`

// DescribeTable reads the column layout and primary key of tableName.
func DescribeTable(ctx context.Context, conn *dbr.Connection, d sqlexpr.Dialect, tableName string) (*core.Schema, error) {
	sess := conn.NewSession(nil)

	query := sqliteColumnsQuery
	if d.Name() == "mysql" {
		query = mysqlColumnsQuery
	}
	rows, err := sess.SelectBySql(query, tableName).RowsContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	defer rows.Close()

	schema := &core.Schema{TableName: tableName}
	for rows.Next() {
		col, primary, err := scanColumn(rows, d)
		if err != nil {
			return nil, err
		}
		if primary {
			schema.PrimaryKey = col.Name
		}
		schema.Columns = append(schema.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns: %w", err)
	}

	if len(schema.Columns) == 0 {
		return nil, fmt.Errorf("table %s does not exist: %w", tableName, core.ErrNotFound)
	}
	if schema.PrimaryKey == "" {
		return nil, fmt.Errorf("table %s does not have a primary key", tableName)
	}
	return schema, nil
}

func scanColumn(rows *sql.Rows, d sqlexpr.Dialect) (core.Column, bool, error) {
	if d.Name() == "mysql" {
		var name, dataType, nullable, key string
		if err := rows.Scan(&name, &dataType, &nullable, &key); err != nil {
			return core.Column{}, false, fmt.Errorf("failed to scan column: %w", err)
		}
		return core.Column{Name: name, Type: strings.ToLower(dataType), Nullable: nullable == "YES"}, key == "PRI", nil
	}

	var name, dataType string
	var notNull, pk int
	if err := rows.Scan(&name, &dataType, &notNull, &pk); err != nil {
		return core.Column{}, false, fmt.Errorf("failed to scan column: %w", err)
	}
	return core.Column{Name: name, Type: strings.ToLower(dataType), Nullable: notNull == 0}, pk > 0, nil
}

// CreateJSONTable creates t (if missing) with an auto-increment integer key
// column and a nullable JSON column. A temporary table only lives as long as
// the connection that created it.
func CreateJSONTable(ctx context.Context, conn *dbr.Connection, d sqlexpr.Dialect, t core.Table, temporary bool) error {
	if err := t.Validate(); err != nil {
		return err
	}

	q := d.Native().QuoteIdent
	var ddl string
	switch d.Name() {
	case "mysql":
		kind := "TABLE"
		if temporary {
			kind = "TEMPORARY TABLE"
		}
		ddl = fmt.Sprintf("CREATE %s IF NOT EXISTS %s (%s BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY, %s %s NULL)",
			kind, q(t.Name), q(t.KeyColumn), q(t.Column), d.JSONColumnType())
	default:
		kind := "TABLE"
		if temporary {
			kind = "TEMP TABLE"
		}
		ddl = fmt.Sprintf("CREATE %s IF NOT EXISTS %s (%s INTEGER PRIMARY KEY AUTOINCREMENT, %s %s)",
			kind, q(t.Name), q(t.KeyColumn), q(t.Column), d.JSONColumnType())
	}

	if _, err := conn.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create table %s: %w", t.Name, err)
	}
	return nil
}

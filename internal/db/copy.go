// Package db provides PostgreSQL bulk-load helpers used by the observation sink.
package db

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"
)

// Pool is the subset of pgxpool.Pool the helpers need. pgxmock pools satisfy
// it in tests.
type Pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Identifier splits an optionally schema-qualified table name ("energy.observations").
func Identifier(table string) pgx.Identifier {
	if schema, name, ok := strings.Cut(table, "."); ok {
		return pgx.Identifier{schema, name}
	}
	return pgx.Identifier{table}
}

// CopyFrom bulk-inserts rows into table using the COPY protocol.
func CopyFrom(ctx context.Context, pool Pool, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	n, err := pool.CopyFrom(ctx, Identifier(table), columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "db: COPY INTO %s", table)
	}
	return n, nil
}

// EnsureTable runs a CREATE TABLE IF NOT EXISTS statement for table with the
// given column definitions, e.g. {"client_id TEXT NOT NULL"}, and an optional
// primary key.
func EnsureTable(ctx context.Context, pool Pool, table string, columnDefs, primaryKey []string) error {
	if len(columnDefs) == 0 {
		return eris.Errorf("db: ensure table %s: no columns", table)
	}
	defs := strings.Join(columnDefs, ",\n\t")
	if len(primaryKey) > 0 {
		defs += ",\n\tPRIMARY KEY (" + quoteAndJoin(primaryKey) + ")"
	}
	ddl := "CREATE TABLE IF NOT EXISTS " + Identifier(table).Sanitize() + " (\n\t" + defs + "\n)"
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return eris.Wrapf(err, "db: create table %s", table)
	}
	return nil
}

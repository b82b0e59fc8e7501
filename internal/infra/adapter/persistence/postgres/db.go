// Package postgres provides PostgreSQL implementations of repository interfaces.
package postgres

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
)

// DBTX is the database surface the repositories run on. Both *sql.DB and
// the circuit-breaker wrapper satisfy it, so the same repositories work
// with or without breaker protection.
type DBTX interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// psql builds queries with PostgreSQL numbered placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

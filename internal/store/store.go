package store

import (
    "context"
    "database/sql"
)

// Queryer is satisfied by *sql.DB, *sql.Tx and *sql.Conn — every
// repository function takes one so callers decide the transaction
// boundary (spec §9: "explicit transactions scoped to the operation").
type Queryer interface {
    QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
    QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
    ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

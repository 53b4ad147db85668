package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Queries is a thin typed layer over the expenses table.
type Queries struct {
	db DBTX
}

// Expense is a row of the expenses table.
type Expense struct {
	ID          string
	Description string
	AmountCents int64
	Category    string
	CreatedAt   string
	SyncStatus  string
	Version     int64
	Deleted     int64
	SyncedAt    sql.NullString
}

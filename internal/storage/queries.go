package storage

import (
	"context"
	"database/sql"
)

const countPendingSync = `SELECT COUNT(*) FROM expenses WHERE sync_status IN ('pending', 'error')
`

func (q *Queries) CountPendingSync(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countPendingSync)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createExpense = `INSERT INTO expenses (id, description, amount_cents, category, created_at)
VALUES (?, ?, ?, ?, ?)
RETURNING id, description, amount_cents, category, created_at, sync_status, version, deleted, synced_at
`

type CreateExpenseParams struct {
	ID          string
	Description string
	AmountCents int64
	Category    string
	CreatedAt   string
}

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) (Expense, error) {
	row := q.db.QueryRowContext(ctx, createExpense,
		arg.ID,
		arg.Description,
		arg.AmountCents,
		arg.Category,
		arg.CreatedAt,
	)
	var i Expense
	err := row.Scan(
		&i.ID,
		&i.Description,
		&i.AmountCents,
		&i.Category,
		&i.CreatedAt,
		&i.SyncStatus,
		&i.Version,
		&i.Deleted,
		&i.SyncedAt,
	)
	return i, err
}

const getExpense = `SELECT id, description, amount_cents, category, created_at, sync_status, version, deleted, synced_at
FROM expenses
WHERE id = ?
`

func (q *Queries) GetExpense(ctx context.Context, id string) (Expense, error) {
	row := q.db.QueryRowContext(ctx, getExpense, id)
	var i Expense
	err := row.Scan(
		&i.ID,
		&i.Description,
		&i.AmountCents,
		&i.Category,
		&i.CreatedAt,
		&i.SyncStatus,
		&i.Version,
		&i.Deleted,
		&i.SyncedAt,
	)
	return i, err
}

const getPendingSyncExpenses = `SELECT id, description, amount_cents, category, created_at, sync_status, version, deleted, synced_at
FROM expenses
WHERE sync_status IN ('pending', 'error')
ORDER BY rowid
LIMIT ?
`

func (q *Queries) GetPendingSyncExpenses(ctx context.Context, limit int64) ([]Expense, error) {
	rows, err := q.db.QueryContext(ctx, getPendingSyncExpenses, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanExpenses(rows)
}

const listExpenses = `SELECT id, description, amount_cents, category, created_at, sync_status, version, deleted, synced_at
FROM expenses
WHERE deleted = 0
ORDER BY rowid
`

func (q *Queries) ListExpenses(ctx context.Context) ([]Expense, error) {
	rows, err := q.db.QueryContext(ctx, listExpenses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanExpenses(rows)
}

const markExpenseSyncError = `UPDATE expenses
SET sync_status = 'error'
WHERE id = ?
`

func (q *Queries) MarkExpenseSyncError(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, markExpenseSyncError, id)
	return err
}

const markExpenseSynced = `UPDATE expenses
SET sync_status = 'synced', synced_at = ?
WHERE id = ? AND version = ?
`

type MarkExpenseSyncedParams struct {
	SyncedAt sql.NullString
	ID       string
	Version  int64
}

func (q *Queries) MarkExpenseSynced(ctx context.Context, arg MarkExpenseSyncedParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, markExpenseSynced, arg.SyncedAt, arg.ID, arg.Version)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const purgeExpense = `DELETE FROM expenses
WHERE id = ? AND deleted = 1
`

func (q *Queries) PurgeExpense(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, purgeExpense, id)
	return err
}

const softDeleteExpense = `UPDATE expenses
SET deleted = 1, sync_status = 'pending', version = version + 1
WHERE id = ? AND deleted = 0
`

func (q *Queries) SoftDeleteExpense(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, softDeleteExpense, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanExpenses(rows *sql.Rows) ([]Expense, error) {
	var items []Expense
	for rows.Next() {
		var i Expense
		if err := rows.Scan(
			&i.ID,
			&i.Description,
			&i.AmountCents,
			&i.Category,
			&i.CreatedAt,
			&i.SyncStatus,
			&i.Version,
			&i.Deleted,
			&i.SyncedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Package storage persists expenses in SQLite and tracks which changes still
// have to be mirrored to Google Sheets.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"budgetdash/internal/core"
	applog "budgetdash/internal/log"
	"budgetdash/internal/store"
)

// Sync states of a row.
const (
	SyncPending = "pending"
	SyncSynced  = "synced"
	SyncError   = "error"
)

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *applog.Logger
	now     func() time.Time
}

var _ store.Backend = (*SQLiteRepository)(nil)

// PendingChange is a row whose latest change has not reached the mirror yet.
type PendingChange struct {
	Expense core.Expense
	Version int64
	Deleted bool
	Status  string
}

func NewSQLiteRepository(dbPath string, logger *applog.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentStorage)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("SQLite database ready", "path", dbPath, "schema_version", version)

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// List returns the live records in insertion order.
func (r *SQLiteRepository) List(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.queries.ListExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	out := make([]core.Expense, 0, len(rows))
	for _, row := range rows {
		out = append(out, toCore(row))
	}
	return out, nil
}

// Append stores e under a fresh id. The row starts out pending sync.
func (r *SQLiteRepository) Append(ctx context.Context, e core.NewExpense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	row, err := r.queries.CreateExpense(ctx, CreateExpenseParams{
		ID:          uuid.NewString(),
		Description: e.Description,
		AmountCents: e.Amount.Cents,
		Category:    e.Category,
		CreatedAt:   r.now().Format(timeLayout),
	})
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	r.logger.InfoContext(ctx, "Expense saved to SQLite",
		applog.FieldExpenseID, row.ID,
		applog.FieldExpenseDesc, row.Description,
		applog.FieldAmountCents, row.AmountCents)

	return toCore(row), nil
}

// Delete hides the record and queues the removal for the mirror. The row
// itself is purged once the mirror has caught up.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	if err := core.ValidateID(id); err != nil {
		return err
	}
	n, err := r.queries.SoftDeleteExpense(ctx, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	r.logger.InfoContext(ctx, "Expense deleted from SQLite", applog.FieldExpenseID, id)
	return nil
}

// GetExpense returns the row for id, deleted or not.
func (r *SQLiteRepository) GetExpense(ctx context.Context, id string) (PendingChange, error) {
	row, err := r.queries.GetExpense(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return PendingChange{}, store.ErrNotFound
	}
	if err != nil {
		return PendingChange{}, fmt.Errorf("get expense by id: %w", err)
	}
	return toChange(row), nil
}

// PendingSync returns up to limit rows awaiting sync, oldest first. Rows that
// previously failed are retried.
func (r *SQLiteRepository) PendingSync(ctx context.Context, limit int) ([]PendingChange, error) {
	rows, err := r.queries.GetPendingSyncExpenses(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending sync expenses: %w", err)
	}
	out := make([]PendingChange, 0, len(rows))
	for _, row := range rows {
		out = append(out, toChange(row))
	}
	return out, nil
}

func (r *SQLiteRepository) PendingCount(ctx context.Context) (int64, error) {
	n, err := r.queries.CountPendingSync(ctx)
	if err != nil {
		return 0, fmt.Errorf("count pending sync: %w", err)
	}
	return n, nil
}

// MarkSynced records that version of id reached the mirror. It reports false
// when the row changed in the meantime and must be synced again.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string, version int64) (bool, error) {
	n, err := r.queries.MarkExpenseSynced(ctx, MarkExpenseSyncedParams{
		SyncedAt: sql.NullString{String: r.now().Format(timeLayout), Valid: true},
		ID:       id,
		Version:  version,
	})
	if err != nil {
		return false, fmt.Errorf("mark expense synced: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id string) error {
	if err := r.queries.MarkExpenseSyncError(ctx, id); err != nil {
		return fmt.Errorf("mark expense sync error: %w", err)
	}
	r.logger.WarnContext(ctx, "Expense marked with sync error", applog.FieldExpenseID, id)
	return nil
}

// Purge removes a deleted row for good.
func (r *SQLiteRepository) Purge(ctx context.Context, id string) error {
	if err := r.queries.PurgeExpense(ctx, id); err != nil {
		return fmt.Errorf("purge expense: %w", err)
	}
	return nil
}

func toCore(row Expense) core.Expense {
	ts, _ := time.Parse(timeLayout, row.CreatedAt)
	return core.Expense{
		ID:          row.ID,
		Description: row.Description,
		Amount:      core.Money{Cents: row.AmountCents},
		Category:    row.Category,
		Timestamp:   ts,
	}
}

func toChange(row Expense) PendingChange {
	return PendingChange{
		Expense: toCore(row),
		Version: row.Version,
		Deleted: row.Deleted != 0,
		Status:  row.SyncStatus,
	}
}

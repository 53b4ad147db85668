// Package worker mirrors the SQLite expense store into Google Sheets.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"budgetdash/internal/amqp"
	"budgetdash/internal/core"
	applog "budgetdash/internal/log"
	"budgetdash/internal/storage"
	"budgetdash/internal/store"
)

// Source is the local store whose changes are mirrored.
type Source interface {
	GetExpense(ctx context.Context, id string) (storage.PendingChange, error)
	PendingSync(ctx context.Context, limit int) ([]storage.PendingChange, error)
	MarkSynced(ctx context.Context, id string, version int64) (bool, error)
	MarkSyncError(ctx context.Context, id string) error
	Purge(ctx context.Context, id string) error
}

// Mirror is the remote copy, keyed by the local id.
type Mirror interface {
	AppendExpense(ctx context.Context, e core.Expense) error
	Delete(ctx context.Context, id string) error
}

type SyncWorker struct {
	source    Source
	mirror    Mirror
	batchSize int
	logger    *applog.Logger
}

func NewSyncWorker(source Source, mirror Mirror, batchSize int, logger *applog.Logger) *SyncWorker {
	if batchSize < 1 {
		batchSize = 50
	}
	if logger == nil {
		logger = applog.Discard()
	}
	return &SyncWorker{
		source:    source,
		mirror:    mirror,
		batchSize: batchSize,
		logger:    logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleMessage syncs the expense named by a change notification. The
// message only nudges the worker; the row's current state decides what
// happens.
func (w *SyncWorker) HandleMessage(ctx context.Context, msg *amqp.ChangeMessage) error {
	change, err := w.source.GetExpense(ctx, msg.ID)
	if errors.Is(err, store.ErrNotFound) {
		w.logger.DebugContext(ctx, "Change already applied", applog.FieldExpenseID, msg.ID, "type", msg.Type)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get expense from storage: %w", err)
	}
	if change.Status == storage.SyncSynced {
		return nil
	}
	return w.SyncChange(ctx, change)
}

// SyncChange pushes one pending change to the mirror and records the outcome.
func (w *SyncWorker) SyncChange(ctx context.Context, change storage.PendingChange) error {
	id := change.Expense.ID
	if change.Deleted {
		if err := w.mirror.Delete(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
			w.markError(ctx, id)
			return fmt.Errorf("delete from mirror: %w", err)
		}
		if err := w.source.Purge(ctx, id); err != nil {
			return err
		}
		w.logger.InfoContext(ctx, "Deletion mirrored", applog.FieldExpenseID, id)
		return nil
	}

	// A previous attempt may have written the row before failing.
	if change.Status == storage.SyncError {
		if err := w.mirror.Delete(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
			w.markError(ctx, id)
			return fmt.Errorf("clear partial row: %w", err)
		}
	}
	if err := w.mirror.AppendExpense(ctx, change.Expense); err != nil {
		w.markError(ctx, id)
		return fmt.Errorf("append to mirror: %w", err)
	}
	ok, err := w.source.MarkSynced(ctx, id, change.Version)
	if err != nil {
		return err
	}
	if !ok {
		w.logger.DebugContext(ctx, "Expense changed while syncing", applog.FieldExpenseID, id)
	}
	w.logger.InfoContext(ctx, "Expense mirrored",
		applog.FieldExpenseID, id,
		applog.FieldAmountCents, change.Expense.Amount.Cents)
	return nil
}

func (w *SyncWorker) markError(ctx context.Context, id string) {
	if err := w.source.MarkSyncError(ctx, id); err != nil {
		w.logger.ErrorContext(ctx, "Failed to mark sync error", applog.FieldExpenseID, id, applog.FieldError, err)
	}
}

// ProcessPending syncs up to limit pending changes and reports the outcome
// counts. It is the backstop for lost or unpublished messages.
func (w *SyncWorker) ProcessPending(ctx context.Context, limit int) (synced, failed int, err error) {
	pending, err := w.source.PendingSync(ctx, limit)
	if err != nil {
		return 0, 0, fmt.Errorf("get pending expenses: %w", err)
	}
	for _, change := range pending {
		if ctx.Err() != nil {
			return synced, failed, ctx.Err()
		}
		if err := w.SyncChange(ctx, change); err != nil {
			w.logger.ErrorContext(ctx, "Failed to sync expense",
				applog.FieldExpenseID, change.Expense.ID,
				applog.FieldError, err)
			failed++
			continue
		}
		synced++
	}
	return synced, failed, nil
}

// StartupSyncCheck drains a larger batch so changes made while the worker was
// down reach the mirror.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	synced, failed, err := w.ProcessPending(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync: %w", err)
	}
	w.logger.InfoContext(ctx, "Startup sync completed",
		applog.FieldOperation, applog.OpStartup,
		"synced", synced,
		"errors", failed)
	return nil
}

// Run resyncs pending changes every interval until ctx is done.
func (w *SyncWorker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			synced, failed, err := w.ProcessPending(ctx, w.batchSize)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				w.logger.ErrorContext(ctx, "Periodic sync failed", applog.FieldError, err)
				continue
			}
			if synced+failed > 0 {
				w.logger.InfoContext(ctx, "Periodic sync pass",
					applog.FieldOperation, applog.OpSync,
					"synced", synced,
					"errors", failed)
			}
		}
	}
}

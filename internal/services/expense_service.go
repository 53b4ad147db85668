// Package services composes a persistence backend with change notifications.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"budgetdash/internal/core"
	applog "budgetdash/internal/log"
	"budgetdash/internal/store"
)

// Publisher announces changes to the sync worker.
type Publisher interface {
	PublishCreated(ctx context.Context, id string) error
	PublishDeleted(ctx context.Context, id string) error
}

// ExpenseService saves through the backend first and then announces the
// change. A failed announcement never fails the write; the worker's periodic
// resync picks the change up.
type ExpenseService struct {
	backend   store.Backend
	publisher Publisher
	logger    *applog.Logger
}

var _ store.Backend = (*ExpenseService)(nil)

// NewExpenseService accepts a nil publisher, in which case writes are local only.
func NewExpenseService(backend store.Backend, publisher Publisher, logger *applog.Logger) *ExpenseService {
	if logger == nil {
		logger = applog.Discard()
	}
	return &ExpenseService{
		backend:   backend,
		publisher: publisher,
		logger:    logger.WithComponent(applog.ComponentBackend),
	}
}

func (s *ExpenseService) List(ctx context.Context) ([]core.Expense, error) {
	return s.backend.List(ctx)
}

func (s *ExpenseService) Append(ctx context.Context, e core.NewExpense) (core.Expense, error) {
	rec, err := s.backend.Append(ctx, e)
	if err != nil {
		return core.Expense{}, err
	}
	if s.publisher != nil {
		if err := s.publisher.PublishCreated(ctx, rec.ID); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish change",
				applog.FieldExpenseID, rec.ID,
				applog.FieldOperation, applog.OpCreate,
				applog.FieldError, err)
		}
	}
	return rec, nil
}

func (s *ExpenseService) Delete(ctx context.Context, id string) error {
	if err := s.backend.Delete(ctx, id); err != nil {
		return err
	}
	if s.publisher != nil {
		if err := s.publisher.PublishDeleted(ctx, id); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish change",
				applog.FieldExpenseID, id,
				applog.FieldOperation, applog.OpDelete,
				applog.FieldError, err)
		}
	}
	return nil
}

// Close releases the backend and publisher when they hold resources.
func (s *ExpenseService) Close() error {
	var errs []error
	if c, ok := s.backend.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("backend: %w", err))
		}
	}
	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}
	return errors.Join(errs...)
}

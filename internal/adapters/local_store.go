// Package adapters lets the dashboard talk to a backend in-process instead of
// over HTTP.
package adapters

import (
	"context"
	"errors"

	"budgetdash/internal/core"
	"budgetdash/internal/store"
)

// LocalStore adapts a store.Backend to the dashboard's store.Store port and
// maps backend failures onto the same error taxonomy the remote client uses.
type LocalStore struct {
	backend store.Backend
}

var _ store.Store = (*LocalStore)(nil)

func NewLocalStore(backend store.Backend) *LocalStore {
	return &LocalStore{backend: backend}
}

func (s *LocalStore) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	list, err := s.backend.List(ctx)
	if err != nil {
		return nil, classify("list", err)
	}
	return list, nil
}

func (s *LocalStore) CreateExpense(ctx context.Context, e core.NewExpense) error {
	if _, err := s.backend.Append(ctx, e); err != nil {
		return classify("create", err)
	}
	return nil
}

func (s *LocalStore) DeleteExpense(ctx context.Context, id string) error {
	if err := s.backend.Delete(ctx, id); err != nil {
		return classify("delete", err)
	}
	return nil
}

func classify(op string, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return store.Rejected(op, "Expense not found")
	case errors.Is(err, core.ErrInvalidAmount):
		return store.Rejected(op, "Amount must be a non-negative number")
	case errors.Is(err, core.ErrEmptyID):
		return store.Rejected(op, "Missing expense id")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return store.NetworkError(op, err)
	}
	return &store.Error{Op: op, Kind: store.KindNetwork, Message: "the expense store is unavailable", Err: err}
}

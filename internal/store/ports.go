package store

import (
	"context"

	"budgetdash/internal/core"
)

// Ports consumed by the dashboard controller.
type (
	ExpenseLister interface {
		// ListExpenses returns the full collection as currently held by the store.
		ListExpenses(ctx context.Context) ([]core.Expense, error)
	}

	ExpenseCreator interface {
		CreateExpense(ctx context.Context, e core.NewExpense) error
	}

	ExpenseDeleter interface {
		DeleteExpense(ctx context.Context, id string) error
	}

	Store interface {
		ExpenseLister
		ExpenseCreator
		ExpenseDeleter
	}
)

// Backend is the persistence side of the expense store endpoint. Unlike Store
// it hands back the identity it assigned.
type Backend interface {
	List(ctx context.Context) ([]core.Expense, error)
	Append(ctx context.Context, e core.NewExpense) (core.Expense, error)
	Delete(ctx context.Context, id string) error
}

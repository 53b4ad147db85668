package adapters

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetdash/internal/core"
	"budgetdash/internal/store"
	"budgetdash/internal/store/memory"
)

func TestLocalStore(t *testing.T) {
	ctx := context.Background()
	s := NewLocalStore(memory.New())

	require.NoError(t, s.CreateExpense(ctx, core.NewExpense{Description: "Milk", Amount: core.Money{Cents: 99}}))
	list, err := s.ListExpenses(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, s.DeleteExpense(ctx, list[0].ID))

	err = s.DeleteExpense(ctx, list[0].ID)
	assert.ErrorIs(t, err, store.ErrRejected)
	assert.Equal(t, "Expense not found", err.Error())

	err = s.CreateExpense(ctx, core.NewExpense{Amount: core.Money{Cents: -1}})
	assert.ErrorIs(t, err, store.ErrRejected)
}

type brokenBackend struct{ *memory.Store }

func (brokenBackend) List(context.Context) ([]core.Expense, error) {
	return nil, errors.New("database is locked")
}

func TestLocalStore_OtherFailuresAreNetworkKind(t *testing.T) {
	_, err := NewLocalStore(brokenBackend{memory.New()}).ListExpenses(context.Background())
	assert.ErrorIs(t, err, store.ErrNetwork)
	assert.Equal(t, store.KindNetwork, store.KindOf(err))
}

package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetdash/internal/core"
	"budgetdash/internal/store"
)

func TestAppendListDelete(t *testing.T) {
	ctx := context.Background()
	s := New()

	a, err := s.Append(ctx, core.NewExpense{Description: "Lunch", Amount: core.Money{Cents: 1200}, Category: "Food"})
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)
	assert.False(t, a.Timestamp.IsZero())

	b, err := s.Append(ctx, core.NewExpense{Description: "Bus", Amount: core.Money{Cents: 250}, Category: "Transport"})
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Lunch", list[0].Description)

	require.NoError(t, s.Delete(ctx, a.ID))
	assert.ErrorIs(t, s.Delete(ctx, a.ID), store.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, " "), core.ErrEmptyID)

	list, err = s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestAppendRejectsNegativeAmount(t *testing.T) {
	_, err := New().Append(context.Background(), core.NewExpense{Amount: core.Money{Cents: -1}})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
}

func TestListReturnsCopy(t *testing.T) {
	s := New(core.Expense{ID: "1", Description: "x"})
	list, _ := s.List(context.Background())
	list[0].Description = "changed"

	again, _ := s.List(context.Background())
	assert.Equal(t, "x", again[0].Description)
}

func TestNewFromDir(t *testing.T) {
	dir := t.TempDir()
	seed := "# seed\nGroceries;45.20;Food\n\nCinema ; 12 ; Entertainment\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, SeedFile), []byte(seed), 0o644))

	s, err := NewFromDir(dir)
	require.NoError(t, err)
	list, _ := s.List(context.Background())
	require.Len(t, list, 2)
	assert.Equal(t, int64(4520), list[0].Amount.Cents)
	assert.Equal(t, "Cinema", list[1].Description)
	assert.Equal(t, "Entertainment", list[1].Category)
}

func TestNewFromDir_MissingFileIsEmpty(t *testing.T) {
	s, err := NewFromDir(t.TempDir())
	require.NoError(t, err)
	list, _ := s.List(context.Background())
	assert.Empty(t, list)
}

func TestNewFromDir_BadLine(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, SeedFile), []byte("only;two\n"), 0o644))
	_, err := NewFromDir(dir)
	assert.Error(t, err)
}

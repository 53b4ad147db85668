package core

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exp(category string, cents int64) Expense {
	return Expense{Category: category, Amount: Money{Cents: cents}}
}

func TestAggregate_EmptySnapshot(t *testing.T) {
	s := Aggregate(nil, Money{Cents: 2500000})

	assert.Equal(t, int64(0), s.TotalSpent.Cents)
	assert.Equal(t, int64(2500000), s.BudgetLeft.Cents)
	assert.Equal(t, 0.0, s.PercentUsed)
	assert.Equal(t, 0, s.Count)
	assert.Empty(t, s.PerCategory)
	assert.False(t, s.OverBudget())
}

func TestAggregate_TotalIsSumOfAmounts(t *testing.T) {
	records := []Expense{exp("a", 1), exp("b", 250), exp("a", 9999), exp("c", 0)}
	s := Aggregate(records, Money{Cents: 100})

	assert.Equal(t, int64(10250), s.TotalSpent.Cents)
	assert.Equal(t, 4, s.Count)
}

func TestAggregate_BudgetLeftMayBeNegative(t *testing.T) {
	s := Aggregate([]Expense{exp("Rent", 3000000)}, Money{Cents: 2500000})

	assert.Equal(t, int64(-500000), s.BudgetLeft.Cents)
	assert.True(t, s.OverBudget())
	assert.Equal(t, 120.0, s.PercentUsed)
	assert.Equal(t, 100.0, s.ProgressFill())
}

func TestAggregate_PercentUsed(t *testing.T) {
	s := Aggregate([]Expense{exp("Food", 1250000)}, Money{Cents: 2500000})

	assert.InDelta(t, 50.0, s.PercentUsed, 1e-9)
	assert.InDelta(t, 50.0, s.ProgressFill(), 1e-9)
}

func TestSummary_ProgressFillClamps(t *testing.T) {
	assert.Equal(t, 100.0, Summary{PercentUsed: 150}.ProgressFill())
	assert.Equal(t, 0.0, Summary{PercentUsed: -3}.ProgressFill())
	assert.Equal(t, 100.0, Summary{PercentUsed: math.Inf(1)}.ProgressFill())
	assert.Equal(t, 0.0, Summary{PercentUsed: math.NaN()}.ProgressFill())
}

func TestAggregate_PerCategoryFirstSeenOrder(t *testing.T) {
	records := []Expense{exp("Food", 1000), exp("Food", 2000), exp("Travel", 3000)}
	s := Aggregate(records, Money{Cents: 2500000})

	require.Len(t, s.PerCategory, 2)
	assert.Equal(t, CategoryAmount{Name: "Food", Amount: Money{Cents: 3000}}, s.PerCategory[0])
	assert.Equal(t, CategoryAmount{Name: "Travel", Amount: Money{Cents: 3000}}, s.PerCategory[1])
}

func TestAggregate_CategoriesAreLiteral(t *testing.T) {
	records := []Expense{exp("food", 1), exp("Food", 2), exp("", 3), exp("Food ", 4)}
	s := Aggregate(records, Money{Cents: 100})

	require.Len(t, s.PerCategory, 4)
	assert.Equal(t, "food", s.PerCategory[0].Name)
	assert.Equal(t, "Food", s.PerCategory[1].Name)
	assert.Equal(t, "", s.PerCategory[2].Name)
	assert.Equal(t, "Food ", s.PerCategory[3].Name)
}

func TestAggregate_NonPositiveBudgetSaturates(t *testing.T) {
	assert.True(t, math.IsInf(Aggregate([]Expense{exp("x", 1)}, Money{}).PercentUsed, 1))
	assert.True(t, math.IsInf(Aggregate([]Expense{exp("x", 1)}, Money{Cents: -10}).PercentUsed, 1))
	assert.Equal(t, 0.0, Aggregate(nil, Money{}).PercentUsed)
}

func TestSortByTimestampDesc(t *testing.T) {
	t1 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	records := []Expense{
		{ID: "old", Timestamp: t1},
		{ID: "unknown"},
		{ID: "new", Timestamp: t2},
	}

	SortByTimestampDesc(records)

	assert.Equal(t, []string{"new", "old", "unknown"}, []string{records[0].ID, records[1].ID, records[2].ID})
}

package core

import "math"

// CategoryAmount represents an amount aggregated by category label.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// Summary is the aggregate view of a record snapshot against a budget.
type Summary struct {
	Budget      Money
	TotalSpent  Money
	BudgetLeft  Money
	PercentUsed float64
	Count       int
	PerCategory []CategoryAmount
}

// Aggregate computes totals for records against budget.
//
// PerCategory keeps first-seen order and groups on the literal label.
// A budget of zero or less is normally rejected by configuration; if one gets
// here anyway PercentUsed saturates to +Inf (or 0 when nothing was spent).
func Aggregate(records []Expense, budget Money) Summary {
	s := Summary{Budget: budget, Count: len(records)}
	index := make(map[string]int)
	for _, r := range records {
		s.TotalSpent.Cents += r.Amount.Cents
		i, ok := index[r.Category]
		if !ok {
			i = len(s.PerCategory)
			index[r.Category] = i
			s.PerCategory = append(s.PerCategory, CategoryAmount{Name: r.Category})
		}
		s.PerCategory[i].Amount.Cents += r.Amount.Cents
	}
	s.BudgetLeft = Money{Cents: budget.Cents - s.TotalSpent.Cents}
	switch {
	case budget.Cents > 0:
		s.PercentUsed = float64(s.TotalSpent.Cents) / float64(budget.Cents) * 100
	case s.TotalSpent.Cents == 0:
		s.PercentUsed = 0
	default:
		s.PercentUsed = math.Inf(1)
	}
	return s
}

// OverBudget reports whether spending exceeded the budget.
func (s Summary) OverBudget() bool {
	return s.BudgetLeft.Cents < 0
}

// ProgressFill is PercentUsed clamped to [0, 100].
func (s Summary) ProgressFill() float64 {
	if math.IsNaN(s.PercentUsed) || s.PercentUsed < 0 {
		return 0
	}
	return math.Min(s.PercentUsed, 100)
}

package render

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetdash/internal/core"
)

type recordingSurface struct {
	rows     []Row
	cards    Cards
	progress Progress
	calls    int
}

func (s *recordingSurface) ReplaceTransactions(rows []Row) { s.rows = rows; s.calls++ }
func (s *recordingSurface) UpdateCards(c Cards)            { s.cards = c }
func (s *recordingSurface) UpdateProgress(p Progress)      { s.progress = p }

type fakeChart struct {
	data     PieData
	disposed int
}

func (c *fakeChart) Dispose() { c.disposed++ }

type fakeFactory struct {
	created []*fakeChart
	live    int
	err     error
}

func (f *fakeFactory) NewPieChart(d PieData) (Chart, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, c := range f.created {
		if c.disposed == 0 {
			f.live++
		}
	}
	c := &fakeChart{data: d}
	f.created = append(f.created, c)
	return c, nil
}

func money(cents int64) core.Money { return core.Money{Cents: cents} }

func TestRender_EmptySnapshotShowsPlaceholder(t *testing.T) {
	surface := &recordingSurface{}
	r := New(surface, &fakeFactory{}, "₹")

	budget := money(2500000)
	require.NoError(t, r.Render(context.Background(), nil, core.Aggregate(nil, budget)))

	require.Len(t, surface.rows, 1)
	assert.True(t, surface.rows[0].Placeholder)
	assert.Equal(t, "No transactions yet.", surface.rows[0].Text)
	assert.Equal(t, "₹0.00", surface.cards.TotalSpent)
	assert.Equal(t, "0", surface.cards.TransactionCount)
	assert.Equal(t, "₹25000.00", surface.cards.BudgetLeft)
	assert.Equal(t, "0.0% of ₹25000.00 used", surface.cards.BudgetInfo)
}

func TestRender_RowsAndCards(t *testing.T) {
	surface := &recordingSurface{}
	r := New(surface, &fakeFactory{}, "₹")

	records := []core.Expense{
		{ID: "2", Description: "Dinner", Category: "Food", Amount: money(1250050)},
		{ID: "1", Description: "Lunch", Category: "Food", Amount: money(99)},
	}
	require.NoError(t, r.Render(context.Background(), records, core.Aggregate(records, money(2500000))))

	require.Len(t, surface.rows, 2)
	assert.Equal(t, Row{ID: "2", Description: "Dinner", Category: "Food", Amount: "₹12500.50"}, surface.rows[0])
	assert.Equal(t, "₹0.99", surface.rows[1].Amount)
	assert.Equal(t, "₹12501.49", surface.cards.TotalSpent)
	assert.Equal(t, "2", surface.cards.TransactionCount)
	assert.Equal(t, ColorBudgetLeftOK, surface.cards.BudgetLeftColor)
	assert.Equal(t, "50.0% of ₹25000.00 used", surface.cards.BudgetInfo)
	assert.Equal(t, ColorWithinBudget, surface.progress.Color)
}

func TestRender_OverBudget(t *testing.T) {
	surface := &recordingSurface{}
	r := New(surface, &fakeFactory{}, "₹")

	records := []core.Expense{{ID: "1", Category: "Rent", Amount: money(3000000)}}
	require.NoError(t, r.Render(context.Background(), records, core.Aggregate(records, money(2500000))))

	assert.Equal(t, "₹-5000.00", surface.cards.BudgetLeft)
	assert.Equal(t, ColorBudgetLeftBad, surface.cards.BudgetLeftColor)
	assert.Equal(t, "120.0% of ₹25000.00 used", surface.cards.BudgetInfo)
	assert.Equal(t, 100.0, surface.progress.Percent)
	assert.Equal(t, "100%", surface.progress.Width())
	assert.Equal(t, ColorOverBudget, surface.progress.Color)
}

func TestRender_DisposesPreviousChartFirst(t *testing.T) {
	factory := &fakeFactory{}
	r := New(&recordingSurface{}, factory, "₹")
	records := []core.Expense{{ID: "1", Category: "Food", Amount: money(100)}}
	summary := core.Aggregate(records, money(1000))

	for i := 0; i < 3; i++ {
		require.NoError(t, r.Render(context.Background(), records, summary))
	}

	require.Len(t, factory.created, 3)
	assert.Equal(t, 0, factory.live, "a chart was created while another was live")
	assert.Equal(t, 1, factory.created[0].disposed)
	assert.Equal(t, 1, factory.created[1].disposed)
	assert.Equal(t, 0, factory.created[2].disposed)

	r.Close()
	assert.Equal(t, 1, factory.created[2].disposed)
}

func TestRender_ChartError(t *testing.T) {
	surface := &recordingSurface{}
	r := New(surface, &fakeFactory{err: errors.New("boom")}, "₹")

	err := r.Render(context.Background(), nil, core.Aggregate(nil, money(100)))
	assert.Error(t, err)
	assert.Equal(t, 1, surface.calls)
	assert.NotNil(t, surface.rows)
}

func TestPieFor_CyclesPalette(t *testing.T) {
	var s core.Summary
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		s.PerCategory = append(s.PerCategory, core.CategoryAmount{Name: name, Amount: money(150)})
	}

	d := PieFor(s)
	require.Len(t, d.Slices, 7)
	assert.Equal(t, "Spending by Category", d.Label)
	assert.Equal(t, "#FF6384", d.Slices[0].Color)
	assert.Equal(t, "#FF9F40", d.Slices[5].Color)
	assert.Equal(t, "#FF6384", d.Slices[6].Color)
	assert.Equal(t, 1.5, d.Slices[0].Value)
	assert.Equal(t, 10.5, d.Total())
}

// Package render turns an expense snapshot into display updates on an
// injected surface.
package render

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"budgetdash/internal/core"
	applog "budgetdash/internal/log"
)

const (
	PlaceholderText = "No transactions yet."
	ChartLabel      = "Spending by Category"

	ColorOverBudget    = "#e74c3c"
	ColorWithinBudget  = "#4a90e2"
	ColorBudgetLeftOK  = "#388e3c"
	ColorBudgetLeftBad = "#e74c3c"
)

// Palette colors pie slices in order, cycling when there are more categories.
var Palette = []string{"#FF6384", "#36A2EB", "#FFCE56", "#4BC0C0", "#9966FF", "#FF9F40"}

// Row is one entry of the transaction list. A placeholder row has only Text.
type Row struct {
	ID          string
	Description string
	Category    string
	Amount      string
	Placeholder bool
	Text        string
}

// Cards holds the summary card texts.
type Cards struct {
	TotalSpent       string
	TransactionCount string
	BudgetLeft       string
	BudgetLeftColor  string
	BudgetInfo       string
}

// Progress describes the budget progress bar.
type Progress struct {
	Percent float64
	Color   string
}

// Width is the CSS width of the bar fill.
func (p Progress) Width() string {
	return strconv.FormatFloat(p.Percent, 'f', -1, 64) + "%"
}

// Slice is one pie segment.
type Slice struct {
	Label string
	Value float64
	Color string
}

// PieData is everything a chart implementation needs to draw the category pie.
type PieData struct {
	Label  string
	Slices []Slice
}

// Total is the sum of all slice values.
func (d PieData) Total() float64 {
	var t float64
	for _, s := range d.Slices {
		t += s.Value
	}
	return t
}

// Surface receives display mutations.
type Surface interface {
	ReplaceTransactions(rows []Row)
	UpdateCards(cards Cards)
	UpdateProgress(progress Progress)
}

// Chart is a live chart instance owned by the Renderer.
type Chart interface {
	Dispose()
}

// ChartFactory creates chart instances.
type ChartFactory interface {
	NewPieChart(data PieData) (Chart, error)
}

// Renderer applies snapshots to a Surface and owns the current chart.
type Renderer struct {
	surface Surface
	charts  ChartFactory
	symbol  string
	logger  *applog.Logger

	mu    sync.Mutex
	chart Chart
}

type Option func(*Renderer)

func WithLogger(l *applog.Logger) Option {
	return func(r *Renderer) { r.logger = l.WithComponent(applog.ComponentRender) }
}

// New returns a Renderer writing to surface. symbol prefixes every amount.
func New(surface Surface, charts ChartFactory, symbol string, opts ...Option) *Renderer {
	r := &Renderer{
		surface: surface,
		charts:  charts,
		symbol:  symbol,
		logger:  applog.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render replaces the list, cards, progress bar and chart. records must
// already be in display order. The previous chart is disposed before the new
// one is created, so a chart error leaves the new list and cards with no chart.
func (r *Renderer) Render(ctx context.Context, records []core.Expense, summary core.Summary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.surface.ReplaceTransactions(Rows(records, r.symbol))
	r.surface.UpdateCards(CardsFor(summary, r.symbol))
	r.surface.UpdateProgress(ProgressFor(summary))

	if r.chart != nil {
		r.chart.Dispose()
		r.chart = nil
	}
	chart, err := r.charts.NewPieChart(PieFor(summary))
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to draw category chart",
			applog.FieldOperation, applog.OpRender,
			applog.FieldError, err)
		return fmt.Errorf("draw category chart: %w", err)
	}
	r.chart = chart
	r.logger.DebugContext(ctx, "Rendered snapshot",
		applog.FieldCount, len(records),
		"categories", len(summary.PerCategory))
	return nil
}

// Close disposes the current chart, if any.
func (r *Renderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.chart != nil {
		r.chart.Dispose()
		r.chart = nil
	}
}

// Rows builds the transaction list. An empty snapshot yields the placeholder.
func Rows(records []core.Expense, symbol string) []Row {
	if len(records) == 0 {
		return []Row{{Placeholder: true, Text: PlaceholderText}}
	}
	rows := make([]Row, 0, len(records))
	for _, e := range records {
		rows = append(rows, Row{
			ID:          e.ID,
			Description: e.Description,
			Category:    e.Category,
			Amount:      e.Amount.Format(symbol),
		})
	}
	return rows
}

func CardsFor(s core.Summary, symbol string) Cards {
	color := ColorBudgetLeftOK
	if s.OverBudget() {
		color = ColorBudgetLeftBad
	}
	return Cards{
		TotalSpent:       s.TotalSpent.Format(symbol),
		TransactionCount: strconv.Itoa(s.Count),
		BudgetLeft:       s.BudgetLeft.Format(symbol),
		BudgetLeftColor:  color,
		BudgetInfo:       fmt.Sprintf("%.1f%% of %s used", s.PercentUsed, s.Budget.Format(symbol)),
	}
}

func ProgressFor(s core.Summary) Progress {
	p := Progress{Percent: s.ProgressFill(), Color: ColorWithinBudget}
	if s.OverBudget() {
		p.Color = ColorOverBudget
	}
	return p
}

// PieFor maps per-category totals to pie slices in first-seen order.
func PieFor(s core.Summary) PieData {
	d := PieData{Label: ChartLabel, Slices: make([]Slice, 0, len(s.PerCategory))}
	for i, c := range s.PerCategory {
		d.Slices = append(d.Slices, Slice{
			Label: c.Name,
			Value: c.Amount.Float(),
			Color: Palette[i%len(Palette)],
		})
	}
	return d
}

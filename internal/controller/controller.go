// Package controller orchestrates loading, adding and deleting expenses
// against a store and pushes the results to a renderer.
package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"budgetdash/internal/core"
	applog "budgetdash/internal/log"
	"budgetdash/internal/store"
)

const (
	ConfirmDeletePrompt = "Are you sure you want to delete this expense?"

	AlertFetchFailed   = "An error occurred while fetching data."
	AlertFetchRejected = "Failed to fetch expenses."
	AlertAddFailed     = "An error occurred while adding the expense."
	AlertDeleteFailed  = "An error occurred while deleting the expense."
	AlertBusy          = "Another operation is in progress."
)

// ErrBusy is returned when a write is attempted while another is in flight.
var ErrBusy = errors.New("another operation is in progress")

// ErrDeclined is returned when the user does not confirm a delete.
var ErrDeclined = errors.New("delete not confirmed")

// Renderer draws a sorted snapshot and its summary.
type Renderer interface {
	Render(ctx context.Context, records []core.Expense, summary core.Summary) error
}

// View shows whether a store call is running.
type View interface {
	SetLoading(loading bool)
}

// Notifier receives the outcome of one user action: alerts and the request to
// clear the add form.
type Notifier interface {
	Alert(message string)
	ResetForm()
}

type notifierKey struct{}

// WithNotifier routes the alerts raised while serving ctx to n.
func WithNotifier(ctx context.Context, n Notifier) context.Context {
	return context.WithValue(ctx, notifierKey{}, n)
}

type discardNotifier struct{}

func (discardNotifier) Alert(string) {}
func (discardNotifier) ResetForm()   {}

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// Confirmed always answers yes.
var Confirmed Confirmer = ConfirmFunc(func(string) bool { return true })

// AddForm carries the raw values of the add form.
type AddForm struct {
	Description string
	Amount      string
	Category    string
}

// Controller owns the current snapshot. It is safe for concurrent use.
type Controller struct {
	store    store.Store
	renderer Renderer
	view     View
	budget   core.Money
	logger   *applog.Logger

	loads singleflight.Group
	busy  atomic.Bool
	// gen numbers fetches; committed is the newest one applied.
	gen       atomic.Uint64
	committed uint64

	loadingMu sync.Mutex
	loading   int

	mu      sync.RWMutex
	records []core.Expense
	summary core.Summary
	loaded  bool
}

type Option func(*Controller)

func WithLogger(l *applog.Logger) Option {
	return func(c *Controller) { c.logger = l.WithComponent(applog.ComponentController) }
}

// New returns a Controller. budget must be positive; it is validated by config.
// v also receives alerts for calls whose context carries no Notifier when it
// implements Notifier.
func New(s store.Store, r Renderer, v View, budget core.Money, opts ...Option) *Controller {
	c := &Controller{
		store:    s,
		renderer: r,
		view:     v,
		budget:   budget,
		logger:   applog.Discard(),
		summary:  core.Aggregate(nil, budget),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns a copy of the last successfully loaded records and their
// summary. ok is false until the first successful load.
func (c *Controller) Snapshot() (records []core.Expense, summary core.Summary, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	records = make([]core.Expense, len(c.records))
	copy(records, c.records)
	summary = c.summary
	summary.PerCategory = append([]core.CategoryAmount(nil), c.summary.PerCategory...)
	return records, summary, c.loaded
}

// Load fetches the full collection and renders it. Overlapping calls share one
// fetch, which keeps the first caller's deadline but not its cancellation. On
// failure the previous snapshot and display are left as they were.
func (c *Controller) Load(ctx context.Context) error {
	ch := c.loads.DoChan("load", func() (any, error) {
		fetchCtx := context.WithoutCancel(ctx)
		if deadline, ok := ctx.Deadline(); ok {
			var cancel context.CancelFunc
			fetchCtx, cancel = context.WithDeadline(fetchCtx, deadline)
			defer cancel()
		}
		return nil, c.load(fetchCtx)
	})
	select {
	case res := <-ch:
		return c.reportLoad(ctx, res.Err)
	case <-ctx.Done():
		c.notifier(ctx).Alert(AlertFetchFailed)
		return fmt.Errorf("load expenses: %w", ctx.Err())
	}
}

// reload fetches after a write. It never joins a fetch that started earlier.
func (c *Controller) reload(ctx context.Context) error {
	return c.reportLoad(ctx, c.load(ctx))
}

func (c *Controller) reportLoad(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrRejected) {
		c.notifier(ctx).Alert(AlertFetchRejected)
	} else {
		c.notifier(ctx).Alert(AlertFetchFailed)
	}
	return err
}

// load fetches and renders one snapshot. A fetch that finishes after a newer
// one has been applied is dropped.
func (c *Controller) load(ctx context.Context) error {
	c.enterLoading()
	defer c.exitLoading()

	seq := c.gen.Add(1)
	records, err := c.store.ListExpenses(ctx)
	if err != nil {
		c.logFailure(ctx, applog.OpLoad, err)
		return fmt.Errorf("load expenses: %w", err)
	}

	core.SortByTimestampDesc(records)
	summary := core.Aggregate(records, c.budget)

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq < c.committed {
		c.logger.DebugContext(ctx, "Dropped stale snapshot", applog.FieldOperation, applog.OpLoad)
		return nil
	}
	// A render error can leave the list and cards drawn without the chart; the
	// snapshot follows what is on screen.
	renderErr := c.renderer.Render(ctx, records, summary)
	c.committed = seq
	c.records = records
	c.summary = summary
	c.loaded = true
	if renderErr != nil {
		c.logFailure(ctx, applog.OpRender, renderErr)
		return fmt.Errorf("render expenses: %w", renderErr)
	}

	c.logger.DebugContext(ctx, "Loaded expenses",
		applog.FieldOperation, applog.OpLoad,
		applog.FieldCount, len(records),
		applog.FieldAmountCents, summary.TotalSpent.Cents)
	return nil
}

// AddExpense submits the form and reloads on success.
func (c *Controller) AddExpense(ctx context.Context, form AddForm) error {
	if !c.acquire(ctx) {
		return ErrBusy
	}
	defer c.busy.Store(false)

	cents, err := core.ParseDecimalToCents(strings.TrimSpace(form.Amount))
	if err != nil {
		c.notifier(ctx).Alert("Failed to add expense: " + err.Error())
		return fmt.Errorf("parse amount: %w", err)
	}
	e := core.NewExpense{
		Description: form.Description,
		Amount:      core.Money{Cents: cents},
		Category:    form.Category,
	}

	if err := c.write(ctx, applog.OpCreate, func() error { return c.store.CreateExpense(ctx, e) }); err != nil {
		c.alertWrite(ctx, err, "Failed to add expense: ", AlertAddFailed)
		return fmt.Errorf("add expense: %w", err)
	}
	c.logger.InfoContext(ctx, "Expense added",
		applog.FieldOperation, applog.OpCreate,
		applog.FieldExpenseDesc, e.Description,
		applog.FieldAmountCents, e.Amount.Cents,
		applog.FieldCategory, e.Category)

	c.notifier(ctx).ResetForm()
	return c.reload(ctx)
}

// DeleteExpense asks for confirmation, deletes and reloads. A declined
// confirmation makes no store calls and returns ErrDeclined.
func (c *Controller) DeleteExpense(ctx context.Context, id string, confirm Confirmer) error {
	if !confirm.Confirm(ConfirmDeletePrompt) {
		return ErrDeclined
	}
	if !c.acquire(ctx) {
		return ErrBusy
	}
	defer c.busy.Store(false)

	if err := c.write(ctx, applog.OpDelete, func() error { return c.store.DeleteExpense(ctx, id) }); err != nil {
		c.alertWrite(ctx, err, "Failed to delete expense: ", AlertDeleteFailed)
		return fmt.Errorf("delete expense %s: %w", id, err)
	}
	c.logger.InfoContext(ctx, "Expense deleted",
		applog.FieldOperation, applog.OpDelete,
		applog.FieldExpenseID, id)

	return c.reload(ctx)
}

func (c *Controller) acquire(ctx context.Context) bool {
	if c.busy.CompareAndSwap(false, true) {
		return true
	}
	c.notifier(ctx).Alert(AlertBusy)
	return false
}

func (c *Controller) write(ctx context.Context, op string, fn func() error) error {
	c.enterLoading()
	defer c.exitLoading()
	if err := fn(); err != nil {
		c.logFailure(ctx, op, err)
		return err
	}
	return nil
}

// alertWrite shows the store's message for rejections and a generic text for
// everything else.
func (c *Controller) alertWrite(ctx context.Context, err error, rejectedPrefix, generic string) {
	if errors.Is(err, store.ErrRejected) {
		c.notifier(ctx).Alert(rejectedPrefix + err.Error())
		return
	}
	c.notifier(ctx).Alert(generic)
}

func (c *Controller) notifier(ctx context.Context) Notifier {
	if n, ok := ctx.Value(notifierKey{}).(Notifier); ok {
		return n
	}
	if n, ok := c.view.(Notifier); ok {
		return n
	}
	return discardNotifier{}
}

func (c *Controller) enterLoading() {
	c.loadingMu.Lock()
	defer c.loadingMu.Unlock()
	c.loading++
	if c.loading == 1 {
		c.view.SetLoading(true)
	}
}

func (c *Controller) exitLoading() {
	c.loadingMu.Lock()
	defer c.loadingMu.Unlock()
	c.loading--
	if c.loading == 0 {
		c.view.SetLoading(false)
	}
}

func (c *Controller) logFailure(ctx context.Context, op string, err error) {
	c.logger.ErrorContext(ctx, "Operation failed",
		applog.FieldOperation, op,
		applog.FieldErrorKind, store.KindOf(err).String(),
		applog.FieldError, err)
}

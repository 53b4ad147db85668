package controller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetdash/internal/core"
	"budgetdash/internal/store"
)

type fakeStore struct {
	mu      sync.Mutex
	records []core.Expense
	listErr error
	addErr  error
	delErr  error
	lists   int
	creates []core.NewExpense
	deletes []string
	block   chan struct{}

	// hold parks the first list after it has read the records; started is
	// closed once it is parked.
	hold    chan struct{}
	started chan struct{}
}

func (s *fakeStore) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists++
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]core.Expense, len(s.records))
	copy(out, s.records)
	if s.lists == 1 && s.hold != nil {
		s.mu.Unlock()
		close(s.started)
		<-s.hold
		s.mu.Lock()
	}
	return out, nil
}

func (s *fakeStore) CreateExpense(ctx context.Context, e core.NewExpense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates = append(s.creates, e)
	return s.addErr
}

func (s *fakeStore) DeleteExpense(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, id)
	if s.delErr != nil {
		return s.delErr
	}
	for i, r := range s.records {
		if r.ID == id {
			s.records = append(s.records[:i:i], s.records[i+1:]...)
			break
		}
	}
	return nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []string
	resets int
}

func (n *recordingNotifier) Alert(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, msg)
}

func (n *recordingNotifier) ResetForm() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resets++
}

type fakeRenderer struct {
	mu      sync.Mutex
	err     error
	renders int
	last    []core.Expense
	summary core.Summary
}

func (r *fakeRenderer) Render(ctx context.Context, records []core.Expense, s core.Summary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renders++
	r.last = records
	r.summary = s
	return r.err
}

type fakeView struct {
	mu      sync.Mutex
	loading []bool
	alerts  []string
	resets  int
}

func (v *fakeView) SetLoading(l bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.loading = append(v.loading, l)
}

func (v *fakeView) Alert(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.alerts = append(v.alerts, msg)
}

func (v *fakeView) ResetForm() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.resets++
}

func at(day int) time.Time {
	return time.Date(2025, time.March, day, 12, 0, 0, 0, time.UTC)
}

func setup(records ...core.Expense) (*Controller, *fakeStore, *fakeRenderer, *fakeView) {
	s := &fakeStore{records: records}
	r := &fakeRenderer{}
	v := &fakeView{}
	return New(s, r, v, core.Money{Cents: 2500000}), s, r, v
}

func TestLoad_SortsAggregatesAndRenders(t *testing.T) {
	c, _, r, v := setup(
		core.Expense{ID: "a", Category: "Food", Amount: core.Money{Cents: 1000}, Timestamp: at(1)},
		core.Expense{ID: "b", Category: "Food", Amount: core.Money{Cents: 2000}, Timestamp: at(3)},
		core.Expense{ID: "c", Category: "Travel", Amount: core.Money{Cents: 3000}, Timestamp: at(2)},
	)

	require.NoError(t, c.Load(context.Background()))

	require.Equal(t, 1, r.renders)
	assert.Equal(t, []string{"b", "c", "a"}, ids(r.last))
	assert.Equal(t, int64(6000), r.summary.TotalSpent.Cents)
	assert.Equal(t, []core.CategoryAmount{
		{Name: "Food", Amount: core.Money{Cents: 3000}},
		{Name: "Travel", Amount: core.Money{Cents: 3000}},
	}, r.summary.PerCategory)
	assert.Equal(t, []bool{true, false}, v.loading)
	assert.Empty(t, v.alerts)

	records, summary, ok := c.Snapshot()
	assert.True(t, ok)
	assert.Equal(t, []string{"b", "c", "a"}, ids(records))
	assert.Equal(t, 3, summary.Count)
}

func TestLoad_FailureKeepsPreviousSnapshot(t *testing.T) {
	c, s, r, v := setup(core.Expense{ID: "a", Amount: core.Money{Cents: 100}})
	require.NoError(t, c.Load(context.Background()))

	s.listErr = store.NetworkError("list expenses", errors.New("connection refused"))
	err := c.Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNetwork)

	assert.Equal(t, 1, r.renders)
	records, _, _ := c.Snapshot()
	assert.Equal(t, []string{"a"}, ids(records))
	assert.Equal(t, []string{AlertFetchFailed}, v.alerts)
	assert.Equal(t, []bool{true, false, true, false}, v.loading)
}

func TestLoad_RenderFailureKeepsSnapshotInStepWithDisplay(t *testing.T) {
	c, _, r, v := setup(core.Expense{ID: "a", Amount: core.Money{Cents: 100}})
	r.err = errors.New("chart failed")

	err := c.Load(context.Background())
	require.Error(t, err)

	records, _, ok := c.Snapshot()
	assert.True(t, ok)
	assert.Equal(t, ids(r.last), ids(records))
	assert.Equal(t, []string{AlertFetchFailed}, v.alerts)
}

func TestLoad_RejectedAlert(t *testing.T) {
	c, s, _, v := setup()
	s.listErr = store.Rejected("list expenses", "nope")

	require.Error(t, c.Load(context.Background()))
	assert.Equal(t, []string{AlertFetchRejected}, v.alerts)
}

func TestLoad_ConcurrentCallsShareOneFetch(t *testing.T) {
	c, s, _, _ := setup()
	s.block = make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Load(context.Background())
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(s.block)
	wg.Wait()

	assert.Less(t, s.lists, 5)
}

func TestLoad_SharedFetchSurvivesCallerCancel(t *testing.T) {
	c, s, _, _ := setup(core.Expense{ID: "a"})
	s.block = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	second := make(chan error, 1)
	go func() { first <- c.Load(ctx) }()
	go func() { second <- c.Load(context.Background()) }()
	time.Sleep(50 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-first, context.Canceled)
	close(s.block)
	require.NoError(t, <-second)

	records, _, ok := c.Snapshot()
	assert.True(t, ok)
	assert.Equal(t, []string{"a"}, ids(records))
}

func TestDeleteExpense_ReloadIgnoresEarlierLoad(t *testing.T) {
	c, s, r, v := setup(
		core.Expense{ID: "x", Timestamp: at(1)},
		core.Expense{ID: "y", Timestamp: at(2)},
	)
	s.hold = make(chan struct{})
	s.started = make(chan struct{})

	pageLoad := make(chan error, 1)
	go func() { pageLoad <- c.Load(context.Background()) }()
	<-s.started

	require.NoError(t, c.DeleteExpense(context.Background(), "x", Confirmed))
	close(s.hold)
	require.NoError(t, <-pageLoad)

	assert.Equal(t, 2, s.lists)
	records, _, _ := c.Snapshot()
	assert.Equal(t, []string{"y"}, ids(records))
	assert.Equal(t, []string{"y"}, ids(r.last))
	assert.Equal(t, 1, r.renders)
	assert.Empty(t, v.alerts)
}

func TestWithNotifier_KeepsAlertsPerCall(t *testing.T) {
	c, s, _, v := setup()
	s.delErr = store.Rejected("delete expense", "Expense not found")

	adder := &recordingNotifier{}
	deleter := &recordingNotifier{}
	addCtx := WithNotifier(context.Background(), adder)
	delCtx := WithNotifier(context.Background(), deleter)

	require.Error(t, c.AddExpense(addCtx, AddForm{Description: "x", Amount: "abc", Category: "Food"}))
	require.Error(t, c.DeleteExpense(delCtx, "zz", Confirmed))
	require.NoError(t, c.AddExpense(addCtx, AddForm{Description: "ok", Amount: "1", Category: "Food"}))

	require.Len(t, adder.alerts, 1)
	assert.Contains(t, adder.alerts[0], "Failed to add expense: ")
	assert.Equal(t, 1, adder.resets)
	assert.Equal(t, []string{"Failed to delete expense: Expense not found"}, deleter.alerts)
	assert.Equal(t, 0, deleter.resets)
	assert.Empty(t, v.alerts)
	assert.Equal(t, 0, v.resets)
}

func TestAddExpense_CreatesResetsAndReloads(t *testing.T) {
	c, s, r, v := setup()

	err := c.AddExpense(context.Background(), AddForm{Description: "Coffee", Amount: " 3.50 ", Category: "Food"})
	require.NoError(t, err)

	require.Len(t, s.creates, 1)
	assert.Equal(t, core.NewExpense{Description: "Coffee", Amount: core.Money{Cents: 350}, Category: "Food"}, s.creates[0])
	assert.Equal(t, 1, s.lists)
	assert.Equal(t, 1, r.renders)
	assert.Equal(t, 1, v.resets)
	assert.Empty(t, v.alerts)
}

func TestAddExpense_InvalidAmount(t *testing.T) {
	c, s, _, v := setup()

	err := c.AddExpense(context.Background(), AddForm{Description: "x", Amount: "abc", Category: "Food"})
	require.Error(t, err)
	assert.Empty(t, s.creates)
	assert.Equal(t, 0, s.lists)
	require.Len(t, v.alerts, 1)
	assert.Contains(t, v.alerts[0], "Failed to add expense: ")
}

func TestAddExpense_Rejected(t *testing.T) {
	c, s, _, v := setup()
	s.addErr = store.Rejected("add expense", "Sheet is full")

	err := c.AddExpense(context.Background(), AddForm{Description: "x", Amount: "1", Category: "Food"})
	require.Error(t, err)
	assert.Equal(t, []string{"Failed to add expense: Sheet is full"}, v.alerts)
	assert.Equal(t, 0, v.resets)
	assert.Equal(t, 0, s.lists)
}

func TestAddExpense_NetworkFailure(t *testing.T) {
	c, s, _, v := setup()
	s.addErr = store.NetworkError("add expense", errors.New("timeout"))

	require.Error(t, c.AddExpense(context.Background(), AddForm{Amount: "1"}))
	assert.Equal(t, []string{AlertAddFailed}, v.alerts)
}

func TestDeleteExpense_ConfirmedDeletesOnceAndReloadsOnce(t *testing.T) {
	c, s, _, v := setup(core.Expense{ID: "x1"})

	var prompt string
	confirm := ConfirmFunc(func(p string) bool { prompt = p; return true })
	require.NoError(t, c.DeleteExpense(context.Background(), "x1", confirm))

	assert.Equal(t, ConfirmDeletePrompt, prompt)
	assert.Equal(t, []string{"x1"}, s.deletes)
	assert.Equal(t, 1, s.lists)
	assert.Empty(t, v.alerts)
}

func TestDeleteExpense_DeclinedMakesNoCalls(t *testing.T) {
	c, s, _, v := setup(core.Expense{ID: "x1"})

	err := c.DeleteExpense(context.Background(), "x1", ConfirmFunc(func(string) bool { return false }))
	assert.ErrorIs(t, err, ErrDeclined)
	assert.Empty(t, s.deletes)
	assert.Equal(t, 0, s.lists)
	assert.Empty(t, v.loading)
	assert.Empty(t, v.alerts)
}

func TestDeleteExpense_Rejected(t *testing.T) {
	c, s, _, v := setup()
	s.delErr = store.Rejected("delete expense", "ID not found")

	require.Error(t, c.DeleteExpense(context.Background(), "zz", Confirmed))
	assert.Equal(t, []string{"Failed to delete expense: ID not found"}, v.alerts)
	assert.Equal(t, 0, s.lists)
}

func TestWrite_RefusedWhileBusy(t *testing.T) {
	c, s, _, v := setup()
	c.busy.Store(true)

	err := c.AddExpense(context.Background(), AddForm{Amount: "1"})
	assert.ErrorIs(t, err, ErrBusy)
	err = c.DeleteExpense(context.Background(), "a", Confirmed)
	assert.ErrorIs(t, err, ErrBusy)

	assert.Empty(t, s.creates)
	assert.Empty(t, s.deletes)
	assert.Equal(t, []string{AlertBusy, AlertBusy}, v.alerts)
}

func ids(records []core.Expense) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

package http

import (
	"context"
	"html/template"
	"sync"

	"budgetdash/internal/controller"
	"budgetdash/internal/render"
	"budgetdash/internal/render/svg"
)

// Page is the server-side display state. The renderer and controller mutate
// it; handlers read a consistent copy to execute templates.
type Page struct {
	mu       sync.RWMutex
	rows     []render.Row
	cards    render.Cards
	progress render.Progress
	mounts   map[string]template.HTML
	loading  bool
}

var (
	_ render.Surface  = (*Page)(nil)
	_ svg.Canvas      = (*Page)(nil)
	_ controller.View = (*Page)(nil)
)

func NewPage() *Page {
	return &Page{
		rows:   render.Rows(nil, ""),
		mounts: make(map[string]template.HTML),
	}
}

func (p *Page) ReplaceTransactions(rows []render.Row) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rows = append([]render.Row(nil), rows...)
}

func (p *Page) UpdateCards(cards render.Cards) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cards = cards
}

func (p *Page) UpdateProgress(progress render.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.progress = progress
}

func (p *Page) Mount(id string, markup template.HTML) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mounts[id] = markup
}

func (p *Page) Unmount(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.mounts, id)
}

// SetLoading records whether a store call is running. Responses are written
// after the controller returns, so the browser shows its own htmx indicator
// and the flag is only reported by the readiness check.
func (p *Page) SetLoading(loading bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loading = loading
}

// Loading reports whether a store call is running.
func (p *Page) Loading() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loading
}

// Notices are one-shot signals for the browser.
type Notices struct {
	Alerts    []string
	ResetForm bool
}

// requestNotices collects the alerts and form reset raised while serving one
// request.
type requestNotices struct {
	mu sync.Mutex
	n  Notices
}

var _ controller.Notifier = (*requestNotices)(nil)

func withNotices(ctx context.Context) (context.Context, *requestNotices) {
	n := &requestNotices{}
	return controller.WithNotifier(ctx, n), n
}

func (r *requestNotices) Alert(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.n.Alerts = append(r.n.Alerts, message)
}

func (r *requestNotices) ResetForm() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.n.ResetForm = true
}

// Take returns what was collected so far.
func (r *requestNotices) Take() Notices {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.n
	r.n = Notices{}
	return n
}

// DashboardView is the template data for the dashboard fragment.
type DashboardView struct {
	Rows     []render.Row
	Cards    render.Cards
	Progress render.Progress
	Chart    template.HTML
}

// View returns a copy of the current display state.
func (p *Page) View() DashboardView {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return DashboardView{
		Rows:     append([]render.Row(nil), p.rows...),
		Cards:    p.cards,
		Progress: p.progress,
		Chart:    p.mounts[svg.DefaultMountID],
	}
}

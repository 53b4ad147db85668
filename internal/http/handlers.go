package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"budgetdash/internal/controller"
	applog "budgetdash/internal/log"
)

type indexData struct {
	Title     string
	Currency  string
	Budget    string
	Dashboard DashboardView
	Alerts    []string
}

// handleIndex loads the snapshot and renders the full page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.settings.RequestTimeout)
	defer cancel()
	ctx, notices := withNotices(ctx)

	// Failures are collected as alerts for this response.
	_ = s.dashboard.Load(ctx)

	data := indexData{
		Title:     "Expense Tracker",
		Currency:  s.settings.CurrencySymbol,
		Budget:    s.settings.Budget,
		Dashboard: s.page.View(),
		Alerts:    notices.Take().Alerts,
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "index.html", data); err != nil {
		s.logger.ErrorContext(ctx, "Template execution failed", applog.FieldError, err, "template", "index.html")
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	NewHTMXResponse().BodyHTML(buf.Bytes()).Write(w)
}

// handleDashboard reloads and returns the dashboard fragment.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.settings.RequestTimeout)
	defer cancel()
	ctx, notices := withNotices(ctx)

	_ = s.dashboard.Load(ctx)
	s.writeDashboard(ctx, w, notices)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.settings.RequestTimeout)
	defer cancel()
	ctx, notices := withNotices(ctx)

	p, err := ParseRequestBody(r)
	if err != nil {
		s.logger.WarnContext(ctx, "Invalid add request", applog.FieldError, err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	form := controller.AddForm{
		Description: p.Get("description"),
		Amount:      p.Get("amount"),
		Category:    p.Get("category"),
	}

	if err := s.dashboard.AddExpense(ctx, form); err != nil {
		s.logger.DebugContext(ctx, "Add expense did not complete", applog.FieldError, err)
	}
	s.writeDashboard(ctx, w, notices)
}

// handleDeleteExpense deletes when the browser confirmed. hx-confirm asks the
// user before the request is sent and hx-vals adds confirmed=true.
func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.settings.RequestTimeout)
	defer cancel()
	ctx, notices := withNotices(ctx)

	id := sanitizeInput(r.PathValue("id"))
	if id == "" {
		http.Error(w, "missing expense id", http.StatusBadRequest)
		return
	}
	p, err := ParseRequestBody(r)
	if err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	confirmed := p.Get("confirmed") == "true"

	err = s.dashboard.DeleteExpense(ctx, id, controller.ConfirmFunc(func(string) bool { return confirmed }))
	switch {
	case errors.Is(err, controller.ErrDeclined):
		s.logger.DebugContext(ctx, "Delete not confirmed", applog.FieldExpenseID, id)
	case err != nil:
		s.logger.DebugContext(ctx, "Delete expense did not complete", applog.FieldExpenseID, id, applog.FieldError, err)
	}
	s.writeDashboard(ctx, w, notices)
}

func (s *Server) writeDashboard(ctx context.Context, w http.ResponseWriter, notices *requestNotices) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "dashboard", s.page.View()); err != nil {
		s.logger.ErrorContext(ctx, "Template execution failed", applog.FieldError, err, "template", "dashboard")
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	NewHTMXResponse().
		Notices(notices.Take()).
		BodyHTML(buf.Bytes()).
		Write(w)
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	})
}

// handleReady reports whether templates are loaded and how the limiters are
// doing. The remote store is not probed; a failed load shows up as an alert.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := map[string]any{
		"templates": "ok",
		"rate_limiter": map[string]any{
			"active_clients": s.limiter.ActiveClients(),
			"rejected":       s.limiter.Rejected(),
		},
		"suspicious_requests": s.detector.SuspiciousCount(),
		"store_call_running":  s.page.Loading(),
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ready",
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Package endpoint serves the expense store over HTTP using the same
// success/data/message envelope the dashboard's remote client speaks.
package endpoint

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"budgetdash/internal/core"
	applog "budgetdash/internal/log"
	"budgetdash/internal/middleware/trace"
	"budgetdash/internal/store"
	"budgetdash/internal/wire"
)

const maxBodyBytes = 1 << 20

// Messages returned in failed envelopes.
const (
	MsgUnknownAction  = "Unknown action"
	MsgInvalidRequest = "Invalid request"
	MsgInvalidAmount  = "Amount must be a non-negative number"
	MsgMissingID      = "Missing expense id"
	MsgNotFound       = "Expense not found"
	MsgListFailed     = "Could not read expenses"
	MsgWriteFailed    = "Could not save changes"
)

type Handler struct {
	backend store.Backend
	logger  *applog.Logger
	events  *applog.StructuredLogger
	ready   func(context.Context) error
}

type Option func(*Handler)

// WithReadiness sets the check run by /readyz.
func WithReadiness(check func(context.Context) error) Option {
	return func(h *Handler) { h.ready = check }
}

func New(backend store.Backend, logger *applog.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentEndpoint)
	h := &Handler{
		backend: backend,
		logger:  logger,
		events:  applog.NewStructuredLogger(logger),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Router wires the envelope routes and probes.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(applog.Middleware(h.logger), applog.RequestIDMiddleware(requestID))
	r.HandleFunc("/", h.handleList).Methods(http.MethodGet)
	r.HandleFunc("/", h.handleAction).Methods(http.MethodPost)
	r.HandleFunc("/healthz", h.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", h.handleReady).Methods(http.MethodGet)
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, wire.Response{Success: false, Message: "Method not allowed"})
	})
	return r
}

func requestID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(trace.HeaderRequestID)); id != "" {
		return id
	}
	return trace.GenerateRequestID()
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	list, err := h.backend.List(ctx)
	if err != nil {
		h.events.LogError(ctx, "Failed to list expenses", err, applog.OpList, nil)
		h.fail(w, MsgListFailed)
		return
	}
	data, err := json.Marshal(wire.Records(list))
	if err != nil {
		h.events.LogError(ctx, "Failed to encode expenses", err, applog.OpList, nil)
		h.fail(w, MsgListFailed)
		return
	}
	applog.FromContext(ctx).DebugContext(ctx, "Expenses listed", applog.FieldCount, len(list))
	writeJSON(w, http.StatusOK, wire.Response{Success: true, Data: data})
}

// handleAction accepts any content type; the dashboard sends JSON as text/plain.
func (h *Handler) handleAction(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.fail(w, MsgInvalidRequest)
		return
	}
	var req wire.Request
	if err := json.Unmarshal(body, &req); err != nil {
		h.fail(w, MsgInvalidRequest)
		return
	}

	switch req.Action {
	case wire.ActionAddExpense:
		h.addExpense(w, r, req.Data)
	case wire.ActionDeleteExpense:
		h.deleteExpense(w, r, req.Data)
	default:
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Unknown action", applog.FieldAction, req.Action)
		h.fail(w, MsgUnknownAction)
	}
}

func (h *Handler) addExpense(w http.ResponseWriter, r *http.Request, raw json.RawMessage) {
	ctx := r.Context()
	var data wire.AddExpenseData
	if err := json.Unmarshal(raw, &data); err != nil {
		h.fail(w, MsgInvalidRequest)
		return
	}
	e, err := data.NewExpense()
	if err != nil {
		h.fail(w, MsgInvalidAmount)
		return
	}
	rec, err := h.backend.Append(ctx, e)
	if errors.Is(err, core.ErrInvalidAmount) {
		h.fail(w, MsgInvalidAmount)
		return
	}
	if err != nil {
		h.events.LogError(ctx, "Failed to add expense", err, applog.OpCreate, nil)
		h.fail(w, MsgWriteFailed)
		return
	}
	h.events.LogExpenseCreated(ctx, rec.ID, rec.Description, rec.Amount.Cents, rec.Category)
	writeJSON(w, http.StatusOK, wire.Response{Success: true, Message: "Expense added"})
}

func (h *Handler) deleteExpense(w http.ResponseWriter, r *http.Request, raw json.RawMessage) {
	ctx := r.Context()
	var data wire.DeleteExpenseData
	if err := json.Unmarshal(raw, &data); err != nil {
		h.fail(w, MsgInvalidRequest)
		return
	}
	id := strings.TrimSpace(string(data.ID))
	err := h.backend.Delete(ctx, id)
	switch {
	case errors.Is(err, core.ErrEmptyID):
		h.fail(w, MsgMissingID)
		return
	case errors.Is(err, store.ErrNotFound):
		h.fail(w, MsgNotFound)
		return
	case err != nil:
		h.events.LogError(ctx, "Failed to delete expense", err, applog.OpDelete,
			applog.NewFields().WithExpense(id, "", 0, ""))
		h.fail(w, MsgWriteFailed)
		return
	}
	h.events.LogExpenseDeleted(ctx, id)
	writeJSON(w, http.StatusOK, wire.Response{Success: true, Message: "Expense deleted"})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// fail answers 200 with success=false; callers read the flag, not the status.
func (h *Handler) fail(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, wire.Response{Success: false, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

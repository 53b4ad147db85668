// Package remote talks to the expense store endpoint over HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"budgetdash/internal/core"
	applog "budgetdash/internal/log"
	"budgetdash/internal/store"
	"budgetdash/internal/wire"
)

const maxResponseBytes = 8 << 20

// Client implements store.Store against a single endpoint URL.
type Client struct {
	endpoint   string
	httpClient *http.Client
	timeout    time.Duration
	logger     *applog.Logger
}

var _ store.Store = (*Client)(nil)

type Option func(*Client)

// WithHTTPClient replaces the pooled default client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout bounds every call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithLogger(l *applog.Logger) Option {
	return func(c *Client) { c.logger = l.WithComponent(applog.ComponentRemote) }
}

// New validates endpoint and returns a client for it.
func New(endpoint string, opts ...Option) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("endpoint %q: scheme must be http or https", endpoint)
	}
	c := &Client{
		endpoint:   endpoint,
		httpClient: newHTTPClientWithPooling(),
		logger:     applog.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// newHTTPClientWithPooling keeps connections to the endpoint alive between the
// read that follows every write.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	// Redirects are followed: Apps Script answers a POST with a 302 to the result.
	return &http.Client{Transport: transport}
}

// ListExpenses fetches the whole collection.
func (c *Client) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	const op = "list expenses"
	resp, err := c.do(ctx, op, http.MethodGet, nil)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 || bytes.Equal(resp.Data, []byte("null")) {
		return nil, c.fail(ctx, store.Malformed(op, errors.New("response has no data")))
	}
	var records []wire.Record
	if err := json.Unmarshal(resp.Data, &records); err != nil {
		return nil, c.fail(ctx, store.Malformed(op, fmt.Errorf("decode records: %w", err)))
	}
	c.logger.DebugContext(ctx, "Listed expenses", applog.FieldCount, len(records))
	return wire.Expenses(records), nil
}

// CreateExpense submits a new expense; the store assigns id and timestamp.
func (c *Client) CreateExpense(ctx context.Context, e core.NewExpense) error {
	req, err := wire.NewRequest(wire.ActionAddExpense, wire.AddExpense(e))
	if err != nil {
		return fmt.Errorf("encode add request: %w", err)
	}
	_, err = c.do(ctx, "add expense", http.MethodPost, &req)
	return err
}

// DeleteExpense removes the expense with the given id.
func (c *Client) DeleteExpense(ctx context.Context, id string) error {
	req, err := wire.NewRequest(wire.ActionDeleteExpense, wire.DeleteExpenseData{ID: wire.Text(id)})
	if err != nil {
		return fmt.Errorf("encode delete request: %w", err)
	}
	_, err = c.do(ctx, "delete expense", http.MethodPost, &req)
	return err
}

func (c *Client) do(ctx context.Context, op, method string, payload *wire.Request) (*wire.Response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", op, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", op, err)
	}
	if payload != nil {
		// A simple content type keeps browsers and Apps Script from demanding a preflight.
		req.Header.Set("Content-Type", "text/plain;charset=utf-8")
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.fail(ctx, store.NetworkError(op, err))
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, maxResponseBytes))
		return nil, c.fail(ctx, &store.Error{
			Op:      op,
			Kind:    store.KindNetwork,
			Message: fmt.Sprintf("network response was not ok (status %d)", res.StatusCode),
		})
	}

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, c.fail(ctx, store.NetworkError(op, fmt.Errorf("read body: %w", err)))
	}
	var envelope wire.Response
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, c.fail(ctx, store.Malformed(op, fmt.Errorf("decode envelope: %w", err)))
	}
	if !envelope.Success {
		return nil, c.fail(ctx, store.Rejected(op, envelope.Message))
	}
	return &envelope, nil
}

func (c *Client) fail(ctx context.Context, err *store.Error) error {
	args := []any{
		applog.FieldOperation, err.Op,
		applog.FieldErrorKind, err.Kind.String(),
		applog.FieldError, err.Error(),
		applog.FieldEndpoint, c.endpoint,
	}
	if err.Err != nil {
		args = append(args, "cause", err.Err.Error())
	}
	c.logger.ErrorContext(ctx, "Expense store request failed", args...)
	return err
}

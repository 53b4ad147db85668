// Package google stores expenses in a Google Sheets worksheet, one row per
// record with columns ID, Timestamp, Description, Amount and Category.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	goauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"budgetdash/internal/core"
	applog "budgetdash/internal/log"
	"budgetdash/internal/store"
)

const headerID = "ID"

type Config struct {
	SpreadsheetID string
	SheetName     string

	// Credentials, first non-empty wins.
	ServiceAccountJSON string
	ServiceAccountFile string
	ApplicationCreds   string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *applog.Logger

	mu      sync.Mutex
	sheetID *int64
	now     func() time.Time
	newID   func() string
}

var _ store.Backend = (*Client)(nil)

// New creates a Sheets client authenticated with service account credentials.
func New(ctx context.Context, cfg Config, logger *applog.Logger) (*Client, error) {
	if logger == nil {
		logger = applog.Discard()
	}
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	credsJSON, err := credentialsJSON(cfg)
	if err != nil {
		return nil, err
	}
	creds, err := goauth.CredentialsFromJSON(ctx, credsJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}
	svc, err := gsheet.NewService(ctx, goption.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	logger.InfoContext(ctx, "Google Sheets service created",
		"spreadsheet_id", cfg.SpreadsheetID,
		"sheet", cfg.SheetName)
	return NewWithService(svc, cfg.SpreadsheetID, cfg.SheetName, logger), nil
}

// NewWithService wraps an already configured service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetName string, logger *applog.Logger) *Client {
	if sheetName == "" {
		sheetName = "Expenses"
	}
	if logger == nil {
		logger = applog.Discard()
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		logger:        logger.WithComponent(applog.ComponentSheets),
		now:           func() time.Time { return time.Now().UTC() },
		newID:         uuid.NewString,
	}
}

func credentialsJSON(cfg Config) ([]byte, error) {
	if s := strings.TrimSpace(cfg.ServiceAccountJSON); s != "" {
		return []byte(s), nil
	}
	path := strings.TrimSpace(cfg.ServiceAccountFile)
	if path == "" {
		path = strings.TrimSpace(cfg.ApplicationCreds)
	}
	if path == "" {
		return nil, errors.New("missing service account credentials")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return b, nil
}

func (c *Client) dataRange() string {
	return fmt.Sprintf("%s!A:E", c.sheetName)
}

// List reads every row of the worksheet. Rows without an id are skipped.
func (c *Client) List(ctx context.Context) ([]core.Expense, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.dataRange()).
		ValueRenderOption("UNFORMATTED_VALUE").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.dataRange(), err)
	}
	return parseRows(resp.Values), nil
}

// Append assigns an id and timestamp and adds the record as a new row.
func (c *Client) Append(ctx context.Context, e core.NewExpense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	rec := e.Stored(c.newID(), c.now())
	if err := c.AppendExpense(ctx, rec); err != nil {
		return core.Expense{}, err
	}
	return rec, nil
}

// AppendExpense writes a record that already carries its identity, as the
// sync worker does when mirroring another store.
func (c *Client) AppendExpense(ctx context.Context, rec core.Expense) error {
	vr := &gsheet.ValueRange{Values: [][]any{toRow(rec)}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.dataRange(), vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", c.sheetName, err)
	}
	updated := ""
	if resp.Updates != nil {
		updated = resp.Updates.UpdatedRange
	}
	c.logger.DebugContext(ctx, "Expense row appended",
		applog.FieldExpenseID, rec.ID,
		"range", updated)
	return nil
}

// Delete removes the row holding id.
func (c *Client) Delete(ctx context.Context, id string) error {
	if err := core.ValidateID(id); err != nil {
		return err
	}
	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read %s: %w", rng, err)
	}
	row := -1
	for i, r := range resp.Values {
		if len(r) > 0 && strings.TrimSpace(fmt.Sprint(r[0])) == id {
			row = i
			break
		}
	}
	if row < 0 {
		return store.ErrNotFound
	}

	sheetID, err := c.resolveSheetID(ctx)
	if err != nil {
		return err
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:         sheetID,
					Dimension:       "ROWS",
					StartIndex:      int64(row),
					EndIndex:        int64(row + 1),
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d from %s: %w", row+1, c.sheetName, err)
	}
	c.logger.DebugContext(ctx, "Expense row deleted",
		applog.FieldExpenseID, id,
		"row", row+1)
	return nil
}

func (c *Client) resolveSheetID(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sheetID != nil {
		return *c.sheetID, nil
	}
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet metadata: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == c.sheetName {
			id := sh.Properties.SheetId
			c.sheetID = &id
			return id, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found in spreadsheet", c.sheetName)
}

func toRow(e core.Expense) []any {
	return []any{
		e.ID,
		e.Timestamp.UTC().Format(time.RFC3339Nano),
		e.Description,
		e.Amount.Float(),
		e.Category,
	}
}

func parseRows(rows [][]any) []core.Expense {
	out := make([]core.Expense, 0, len(rows))
	for _, row := range rows {
		id := cell(row, 0)
		if id == "" || id == headerID {
			continue
		}
		cents, _ := parseAmount(cellValue(row, 3))
		ts, _ := time.Parse(time.RFC3339Nano, cell(row, 1))
		out = append(out, core.Expense{
			ID:          id,
			Timestamp:   ts,
			Description: cell(row, 2),
			Amount:      core.Money{Cents: cents},
			Category:    cell(row, 4),
		})
	}
	return out
}

func cellValue(row []any, i int) any {
	if i >= len(row) {
		return nil
	}
	return row[i]
}

func cell(row []any, i int) string {
	v := cellValue(row, i)
	if v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func parseAmount(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		cents, err := core.CentsFromFloat(n)
		return cents, err == nil
	case nil:
		return 0, false
	}
	s := strings.TrimSpace(fmt.Sprint(v))
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	cents, err := core.CentsFromFloat(f)
	return cents, err == nil
}

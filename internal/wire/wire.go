// Package wire holds the JSON envelope spoken by the expense store endpoint.
//
// Read:  GET  -> {"success":true,"data":[{"ID":..,"Description":..,"Amount":..,"Category":..,"Timestamp":..}]}
// Write: POST {"action":"addExpense"|"deleteExpense","data":{..}} -> {"success":bool,"message":".."}
//
// Record keys are capitalised and case-sensitive; they mirror the spreadsheet
// header row of the original backend.
package wire

import (
	"encoding/json"
	"time"

	"budgetdash/internal/core"
)

const (
	ActionAddExpense    = "addExpense"
	ActionDeleteExpense = "deleteExpense"
)

// Response is the envelope of every endpoint answer.
type Response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Request is the envelope of every write.
type Request struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

type AddExpenseData struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
}

type DeleteExpenseData struct {
	ID Text `json:"id"`
}

// Record is one expense as listed by the endpoint.
type Record struct {
	ID          Text      `json:"ID"`
	Description Text      `json:"Description"`
	Amount      Amount    `json:"Amount"`
	Category    Text      `json:"Category"`
	Timestamp   Timestamp `json:"Timestamp"`
}

// NewRequest builds a write envelope.
func NewRequest(action string, data any) (Request, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Request{}, err
	}
	return Request{Action: action, Data: raw}, nil
}

// AddExpense converts a submission into its wire payload.
func AddExpense(e core.NewExpense) AddExpenseData {
	return AddExpenseData{
		Description: e.Description,
		Amount:      e.Amount.Float(),
		Category:    e.Category,
	}
}

// NewExpense converts the payload back, rounding the amount to cents. Amounts
// that do not fit in cents give core.ErrInvalidAmount.
func (d AddExpenseData) NewExpense() (core.NewExpense, error) {
	cents, err := core.CentsFromFloat(d.Amount)
	if err != nil {
		return core.NewExpense{}, err
	}
	return core.NewExpense{
		Description: d.Description,
		Amount:      core.Money{Cents: cents},
		Category:    d.Category,
	}, nil
}

// FromExpense converts a stored expense into a listed record.
func FromExpense(e core.Expense) Record {
	return Record{
		ID:          Text(e.ID),
		Description: Text(e.Description),
		Amount:      Amount(e.Amount),
		Category:    Text(e.Category),
		Timestamp:   Timestamp{Time: e.Timestamp},
	}
}

// Expense converts a listed record into the domain type.
func (r Record) Expense() core.Expense {
	return core.Expense{
		ID:          string(r.ID),
		Description: string(r.Description),
		Amount:      core.Money(r.Amount),
		Category:    string(r.Category),
		Timestamp:   r.Timestamp.Time,
	}
}

// Records converts a whole listing.
func Records(in []core.Expense) []Record {
	out := make([]Record, 0, len(in))
	for _, e := range in {
		out = append(out, FromExpense(e))
	}
	return out
}

// Expenses converts a whole listing back.
func Expenses(in []Record) []core.Expense {
	out := make([]core.Expense, 0, len(in))
	for _, r := range in {
		out = append(out, r.Expense())
	}
	return out
}

// timestampLayout matches what a JavaScript Date serialises to.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"1/2/2006 15:04:05",
}

package wire

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetdash/internal/core"
)

func TestRecord_DecodesSpreadsheetShapes(t *testing.T) {
	body := `[
		{"ID": "a1", "Description": "Lunch", "Amount": 12.5, "Category": "Food", "Timestamp": "2025-03-01T10:00:00.000Z", "Extra": true},
		{"ID": 42, "Description": 1234, "Amount": "7,25", "Category": "Misc", "Timestamp": ""},
		{"ID": "b2", "Description": null, "Amount": null, "Category": "Food", "Timestamp": "not a date"}
	]`

	var records []Record
	require.NoError(t, json.Unmarshal([]byte(body), &records))
	require.Len(t, records, 3)

	first := records[0].Expense()
	assert.Equal(t, "a1", first.ID)
	assert.Equal(t, int64(1250), first.Amount.Cents)
	assert.Equal(t, time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), first.Timestamp.UTC())

	second := records[1].Expense()
	assert.Equal(t, "42", second.ID)
	assert.Equal(t, "1234", second.Description)
	assert.Equal(t, int64(725), second.Amount.Cents)
	assert.True(t, second.Timestamp.IsZero())

	third := records[2].Expense()
	assert.Equal(t, "", third.Description)
	assert.Equal(t, int64(0), third.Amount.Cents)
	assert.True(t, third.Timestamp.IsZero())
}

func TestRecord_RejectsNonNumericAmount(t *testing.T) {
	for _, amount := range []string{`"lots"`, `"NaN"`, `"Inf"`, `"-Infinity"`, `"1e300"`, `1e300`, `-1e17`} {
		var r Record
		err := json.Unmarshal([]byte(`{"ID":"x","Amount":`+amount+`}`), &r)
		assert.Error(t, err, amount)
	}
}

func TestRecord_EncodesCapitalisedKeys(t *testing.T) {
	ts := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	raw, err := json.Marshal(FromExpense(core.Expense{
		ID: "a1", Description: "Lunch", Amount: core.Money{Cents: 1250}, Category: "Food", Timestamp: ts,
	}))
	require.NoError(t, err)

	assert.JSONEq(t, `{"ID":"a1","Description":"Lunch","Amount":12.50,"Category":"Food","Timestamp":"2025-03-01T10:00:00.000Z"}`, string(raw))
}

func TestRequest_Envelopes(t *testing.T) {
	add, err := NewRequest(ActionAddExpense, AddExpense(core.NewExpense{
		Description: "Taxi", Amount: core.Money{Cents: 1999}, Category: "Travel",
	}))
	require.NoError(t, err)
	raw, err := json.Marshal(add)
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"addExpense","data":{"description":"Taxi","amount":19.99,"category":"Travel"}}`, string(raw))

	del, err := NewRequest(ActionDeleteExpense, DeleteExpenseData{ID: "a1"})
	require.NoError(t, err)
	raw, err = json.Marshal(del)
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"deleteExpense","data":{"id":"a1"}}`, string(raw))
}

func TestAddExpenseData_RoundsToCents(t *testing.T) {
	e, err := AddExpenseData{Description: "x", Amount: 19.99, Category: "y"}.NewExpense()
	require.NoError(t, err)
	assert.Equal(t, int64(1999), e.Amount.Cents)
}

func TestAddExpenseData_RejectsOutOfRangeAmount(t *testing.T) {
	var d AddExpenseData
	require.NoError(t, json.Unmarshal([]byte(`{"description":"x","amount":1e300,"category":"y"}`), &d))
	_, err := d.NewExpense()
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
}

func TestParseTimestamp(t *testing.T) {
	assert.Equal(t, 2025, ParseTimestamp("2025-01-02 03:04:05").Year())
	assert.Equal(t, time.UnixMilli(1735689600000).UTC(), ParseTimestamp("1735689600000").Time)
	assert.True(t, ParseTimestamp("garbage").IsZero())
	assert.Equal(t, "", FormatTimestamp(time.Time{}))
}

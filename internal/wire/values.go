package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"budgetdash/internal/core"
)

// Text decodes any JSON scalar as a string. Spreadsheet cells holding digits
// come back as numbers, so ids and descriptions cannot be trusted to be strings.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*t = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
	case len(b) > 0 && (b[0] == '{' || b[0] == '['):
		return fmt.Errorf("wire: expected scalar, got %s", b)
	default:
		*t = Text(b)
	}
	return nil
}

// Amount is money on the wire: a JSON number, or a numeric string.
type Amount core.Money

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(core.Money(a).Decimal()), nil
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	var t Text
	if err := t.UnmarshalJSON(b); err != nil {
		return err
	}
	s := strings.TrimSpace(string(t))
	if s == "" {
		*a = Amount{}
		return nil
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return fmt.Errorf("wire: invalid amount %q", s)
	}
	cents, err := core.CentsFromFloat(f)
	if err != nil {
		return fmt.Errorf("wire: invalid amount %q: %w", s, err)
	}
	*a = Amount{Cents: cents}
	return nil
}

// Timestamp accepts the date shapes a spreadsheet backend produces. Anything
// unparseable decodes to the zero time, which sorts last.
type Timestamp struct {
	time.Time
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(ts.UTC().Format(timestampLayout))
}

func (ts *Timestamp) UnmarshalJSON(b []byte) error {
	var t Text
	if err := t.UnmarshalJSON(b); err != nil {
		return err
	}
	*ts = ParseTimestamp(string(t))
	return nil
}

// ParseTimestamp parses s with the known layouts; epoch milliseconds are accepted too.
func ParseTimestamp(s string) Timestamp {
	s = strings.TrimSpace(s)
	if s == "" {
		return Timestamp{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t}
		}
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Timestamp{Time: time.UnixMilli(ms).UTC()}
	}
	return Timestamp{}
}

// FormatTimestamp renders t the way records are listed.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timestampLayout)
}

package core

import (
	"errors"
	"sort"
	"strings"
	"time"
)

type (
	Money struct {
		Cents int64
	}

	// Expense is a record as held by the expense store. ID and Timestamp are
	// assigned by the store on creation and never change afterwards.
	Expense struct {
		ID          string
		Description string
		Amount      Money
		Category    string
		Timestamp   time.Time
	}

	// NewExpense carries the user-supplied fields of an expense that has not
	// been stored yet.
	NewExpense struct {
		Description string
		Amount      Money
		Category    string
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyID       = errors.New("empty expense id")
)

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (e NewExpense) Validate() error {
	return e.Amount.Validate()
}

// Stored turns the submission into a record with the identity the store assigned.
func (e NewExpense) Stored(id string, ts time.Time) Expense {
	return Expense{
		ID:          id,
		Description: e.Description,
		Amount:      e.Amount,
		Category:    e.Category,
		Timestamp:   ts,
	}
}

// ValidateID rejects blank identifiers before they reach a store.
func ValidateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrEmptyID
	}
	return nil
}

// SortByTimestampDesc orders records newest first. Records with equal
// timestamps keep their relative order; zero timestamps sort last.
func SortByTimestampDesc(records []Expense) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
}

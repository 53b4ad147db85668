// Package memory is an in-process expense backend, used for local runs and
// tests.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"budgetdash/internal/core"
	"budgetdash/internal/store"
)

// SeedFile is read from the data directory by NewFromDir.
const SeedFile = "seed_expenses.txt"

type Store struct {
	mu    sync.Mutex
	items []core.Expense
	now   func() time.Time
	newID func() string
}

var _ store.Backend = (*Store)(nil)

func New(seed ...core.Expense) *Store {
	return &Store{
		items: append([]core.Expense(nil), seed...),
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// NewFromDir seeds the store from base/seed_expenses.txt when present. Each
// line is "description;amount;category"; blank lines and # comments are
// skipped.
func NewFromDir(base string) (*Store, error) {
	s := New()
	lines, err := readLines(filepath.Join(base, SeedFile))
	if err != nil {
		return nil, err
	}
	for i, line := range lines {
		parts := strings.Split(line, ";")
		if len(parts) != 3 {
			return nil, fmt.Errorf("%s:%d: want description;amount;category", SeedFile, i+1)
		}
		cents, err := core.ParseDecimalToCents(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", SeedFile, i+1, err)
		}
		if _, err := s.Append(context.Background(), core.NewExpense{
			Description: strings.TrimSpace(parts[0]),
			Amount:      core.Money{Cents: cents},
			Category:    strings.TrimSpace(parts[2]),
		}); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// List returns a copy of all records in insertion order.
func (s *Store) List(_ context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Expense(nil), s.items...), nil
}

// Append stores e with a fresh id and the current time.
func (s *Store) Append(_ context.Context, e core.NewExpense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := e.Stored(s.newID(), s.now())
	s.items = append(s.items, rec)
	return rec, nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	if err := core.ValidateID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.items {
		if r.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return out, nil
}

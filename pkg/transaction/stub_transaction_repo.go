package transaction

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// StubRepository keeps ledger entries in memory and mirrors the budget spent
// increments so service tests can assert on side effects.
type StubRepository struct {
	nextId int
	data   map[int]Transaction
	// SpentByBudget records the cumulative expense amount per budget id.
	SpentByBudget map[int]decimal.Decimal
	// SpentHistory records the running total per budget id after every
	// increment, so tests can check intermediate states of a catch-up run.
	SpentHistory map[int][]decimal.Decimal
	// FailNextStore makes the next Store call fail with the given error.
	FailNextStore error
}

func NewStubRepository() *StubRepository {
	return &StubRepository{
		data:          map[int]Transaction{},
		SpentByBudget: map[int]decimal.Decimal{},
		SpentHistory:  map[int][]decimal.Decimal{},
	}
}

func (s *StubRepository) Store(ctx context.Context, userId int, entry Transaction) (int, error) {
	if s.FailNextStore != nil {
		err := s.FailNextStore
		s.FailNextStore = nil
		return 0, err
	}
	s.nextId++
	entry.ID = s.nextId
	s.data[entry.ID] = entry
	if entry.Kind == KindExpense && entry.BudgetID != nil {
		total := s.SpentByBudget[*entry.BudgetID].Add(entry.Amount)
		s.SpentByBudget[*entry.BudgetID] = total
		s.SpentHistory[*entry.BudgetID] = append(s.SpentHistory[*entry.BudgetID], total)
	}
	return entry.ID, nil
}

func (s *StubRepository) Find(ctx context.Context, userId int, id int) (Transaction, error) {
	entry, ok := s.data[id]
	if !ok {
		return Transaction{}, ErrTransactionNotFound
	}
	return entry, nil
}

func (s *StubRepository) GetAll(ctx context.Context, userId int, filter Filter) ([]Transaction, error) {
	var entries []Transaction
	for _, entry := range s.data {
		if !filter.From.IsZero() && entry.Date.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && entry.Date.After(filter.To) {
			continue
		}
		if filter.Category != "" && entry.Category != filter.Category {
			continue
		}
		if filter.Kind != "" && entry.Kind != filter.Kind {
			continue
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Date.After(entries[j].Date)
	})
	if filter.Limit > 0 && len(entries) > filter.Limit {
		entries = entries[:filter.Limit]
	}
	return entries, nil
}

func (s *StubRepository) Delete(ctx context.Context, userId int, id int) (bool, error) {
	if _, ok := s.data[id]; !ok {
		return false, nil
	}
	delete(s.data, id)
	return true, nil
}

func (s *StubRepository) FindMatches(ctx context.Context, userId int, date time.Time, amount decimal.Decimal) ([]Transaction, error) {
	var matches []Transaction
	for _, entry := range s.data {
		if entry.Date.Equal(date) && entry.Amount.Equal(amount) {
			matches = append(matches, entry)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	return matches, nil
}

func (s *StubRepository) Cleanup() {
	s.data = map[int]Transaction{}
	s.SpentByBudget = map[int]decimal.Decimal{}
	s.SpentHistory = map[int][]decimal.Decimal{}
	s.FailNextStore = nil
}

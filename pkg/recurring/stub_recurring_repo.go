package recurring

import (
	"context"
	"sort"
	"time"

	"github.com/Nicolas-Jorq/budget-app-sub001/pkg/transaction"
)

// StubRepository keeps templates in memory and routes generated occurrences
// through a ledger stub so service tests can assert on budget side effects.
type StubRepository struct {
	nextId int
	data   map[int]Template
	// Ledger receives the ledger entries created by CreateOccurrence.
	Ledger *transaction.StubRepository
	// FailNextOccurrence makes the next CreateOccurrence call fail with the
	// given error, leaving both the ledger and the template untouched.
	FailNextOccurrence error
}

func NewStubRepository() *StubRepository {
	return &StubRepository{
		data:   map[int]Template{},
		Ledger: transaction.NewStubRepository(),
	}
}

func (s *StubRepository) Store(ctx context.Context, userId int, tmpl Template) (int, error) {
	s.nextId++
	tmpl.ID = s.nextId
	s.data[tmpl.ID] = tmpl
	return tmpl.ID, nil
}

func (s *StubRepository) Find(ctx context.Context, userId int, id int) (Template, error) {
	tmpl, ok := s.data[id]
	if !ok {
		return Template{}, ErrTemplateNotFound
	}
	return tmpl, nil
}

func (s *StubRepository) GetAll(ctx context.Context, userId int) ([]Template, error) {
	var templates []Template
	for _, tmpl := range s.data {
		templates = append(templates, tmpl)
	}
	sort.Slice(templates, func(i, j int) bool {
		if templates[i].NextDueDate.Equal(templates[j].NextDueDate) {
			return templates[i].ID < templates[j].ID
		}
		return templates[i].NextDueDate.Before(templates[j].NextDueDate)
	})
	return templates, nil
}

func (s *StubRepository) FindDue(ctx context.Context, userId int, now time.Time) ([]Template, error) {
	templates, _ := s.GetAll(ctx, userId)
	var due []Template
	for _, tmpl := range templates {
		if tmpl.IsActive && !tmpl.NextDueDate.After(now) && withinEndDate(tmpl.NextDueDate, tmpl.EndDate) {
			due = append(due, tmpl)
		}
	}
	return due, nil
}

func (s *StubRepository) Update(ctx context.Context, userId int, tmpl Template) (bool, error) {
	if _, ok := s.data[tmpl.ID]; !ok {
		return false, nil
	}
	s.data[tmpl.ID] = tmpl
	return true, nil
}

func (s *StubRepository) Delete(ctx context.Context, userId int, id int) (bool, error) {
	if _, ok := s.data[id]; !ok {
		return false, nil
	}
	delete(s.data, id)
	return true, nil
}

func (s *StubRepository) CreateOccurrence(ctx context.Context, userId int, tmpl Template, entry transaction.Transaction) (int, error) {
	if s.FailNextOccurrence != nil {
		err := s.FailNextOccurrence
		s.FailNextOccurrence = nil
		return 0, err
	}
	if _, ok := s.data[tmpl.ID]; !ok {
		return 0, ErrTemplateNotFound
	}
	id, err := s.Ledger.Store(ctx, userId, entry)
	if err != nil {
		return 0, err
	}
	s.data[tmpl.ID] = tmpl
	return id, nil
}

func (s *StubRepository) Cleanup() {
	s.data = map[int]Template{}
	s.Ledger.Cleanup()
	s.FailNextOccurrence = nil
}

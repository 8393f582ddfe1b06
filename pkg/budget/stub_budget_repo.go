package budget

import (
	"context"
	"time"
)

type StubBudgetRepo struct {
	nextId int
	data   map[int]Budget
}

func NewStubBudgetRepo() *StubBudgetRepo {
	return &StubBudgetRepo{nextId: 0, data: map[int]Budget{}}
}

func (s *StubBudgetRepo) Store(ctx context.Context, userId int, budget Budget) (int, error) {
	s.nextId++
	budget.ID = s.nextId
	s.data[budget.ID] = budget
	return budget.ID, nil
}

func (s *StubBudgetRepo) Find(ctx context.Context, userId int, budgetId int) (Budget, error) {
	budget, ok := s.data[budgetId]
	if !ok {
		return Budget{}, ErrBudgetNotFound
	}
	return budget, nil
}

func (s *StubBudgetRepo) GetAll(ctx context.Context, userId int, includeInactive bool) ([]Budget, error) {
	budgets := make([]Budget, 0, len(s.data))
	for _, budget := range s.data {
		if budget.IsActiveOn(time.Now()) || includeInactive {
			budgets = append(budgets, budget)
		}
	}
	return budgets, nil
}

func (s *StubBudgetRepo) Update(ctx context.Context, userId int, budget Budget) (bool, error) {
	if _, ok := s.data[budget.ID]; !ok {
		return false, nil
	}
	s.data[budget.ID] = budget
	return true, nil
}

func (s *StubBudgetRepo) Delete(ctx context.Context, userId int, budgetId int) (bool, error) {
	if _, ok := s.data[budgetId]; !ok {
		return false, nil
	}
	delete(s.data, budgetId)
	return true, nil
}

func (s *StubBudgetRepo) Cleanup() {
	s.data = map[int]Budget{}
}

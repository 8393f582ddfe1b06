package budget

import (
	"context"
	"errors"
	"fmt"

	"github.com/Nicolas-Jorq/budget-app-sub001/pkg/user"
	log "github.com/sirupsen/logrus"
)

var ErrInvalidBudget = errors.New("invalid budget")

type BudgetService interface {
	GetAll(ctx context.Context, includeInactive bool) ([]Budget, error)
	Get(ctx context.Context, id int) (Budget, error)
	Create(ctx context.Context, budget Budget) (Budget, error)
	Update(ctx context.Context, budget Budget) (bool, error)
	Delete(ctx context.Context, id int) (bool, error)
}

type BudgetServiceImpl struct {
	repo BudgetRepo
}

func NewBudgetService(repo BudgetRepo) *BudgetServiceImpl {
	return &BudgetServiceImpl{repo: repo}
}

func (s *BudgetServiceImpl) GetAll(ctx context.Context, includeInactive bool) ([]Budget, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.GetAll(ctx, userId, includeInactive)
}

func (s *BudgetServiceImpl) Get(ctx context.Context, id int) (Budget, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Budget{}, fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.Find(ctx, userId, id)
}

func (s *BudgetServiceImpl) Create(ctx context.Context, budget Budget) (Budget, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Budget{}, fmt.Errorf("failed to get current user: %w", err)
	}
	if err := validate(budget); err != nil {
		return Budget{}, err
	}

	id, err := s.repo.Store(ctx, userId, budget)
	if err != nil {
		return Budget{}, err
	}
	budget.ID = id

	return budget, nil
}

func (s *BudgetServiceImpl) Update(ctx context.Context, budget Budget) (bool, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to get current user: %w", err)
	}
	if err := validate(budget); err != nil {
		return false, err
	}

	updated, err := s.repo.Update(ctx, userId, budget)
	if err != nil {
		return false, err
	}
	if !updated {
		log.Warnf("budget not updated, probably because it does not exist (%d) or the user (%d) is not the owner", budget.ID, userId)
		return false, ErrBudgetNotFound
	}
	return true, nil
}

func (s *BudgetServiceImpl) Delete(ctx context.Context, id int) (bool, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to get current user: %w", err)
	}

	deleted, err := s.repo.Delete(ctx, userId, id)
	if err != nil {
		return false, err
	}
	if !deleted {
		log.Warnf("budget not deleted, probably because it does not exist (%d) or the user (%d) is not the owner", id, userId)
		return false, ErrBudgetNotFound
	}
	return true, nil
}

func validate(budget Budget) error {
	if budget.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidBudget)
	}
	if budget.Limit.IsNegative() {
		return fmt.Errorf("%w: limit must not be negative", ErrInvalidBudget)
	}
	if !budget.StartDate.IsZero() && !budget.EndDate.IsZero() && budget.EndDate.Before(budget.StartDate) {
		return fmt.Errorf("%w: end date is before start date", ErrInvalidBudget)
	}
	return nil
}

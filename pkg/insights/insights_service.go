package insights

import (
	"context"

	"github.com/Nicolas-Jorq/budget-app-sub001/internal/utils"
	"github.com/Nicolas-Jorq/budget-app-sub001/pkg/transaction"
	"github.com/Nicolas-Jorq/budget-app-sub001/pkg/user"
)

type Service interface {
	Spending(ctx context.Context) (SpendingReport, error)
	Anomalies(ctx context.Context) (AnomalyReport, error)
}

type ServiceImpl struct {
	ledger transaction.Repository
	clock  utils.Clock
}

func NewService(ledger transaction.Repository, clock utils.Clock) *ServiceImpl {
	return &ServiceImpl{ledger: ledger, clock: clock}
}

func (s *ServiceImpl) Spending(ctx context.Context) (SpendingReport, error) {
	entries, err := s.allEntries(ctx)
	if err != nil {
		return SpendingReport{}, err
	}
	return AnalyzeSpending(entries, s.clock.Now()), nil
}

func (s *ServiceImpl) Anomalies(ctx context.Context) (AnomalyReport, error) {
	entries, err := s.allEntries(ctx)
	if err != nil {
		return AnomalyReport{}, err
	}
	return AnalyzeAnomalies(entries), nil
}

func (s *ServiceImpl) allEntries(ctx context.Context) ([]transaction.Transaction, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, err
	}
	return s.ledger.GetAll(ctx, userId, transaction.Filter{})
}

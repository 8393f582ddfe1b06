package transaction

import (
	"context"
	"errors"
	"fmt"

	"github.com/Nicolas-Jorq/budget-app-sub001/internal/utils"
	"github.com/Nicolas-Jorq/budget-app-sub001/pkg/user"
	log "github.com/sirupsen/logrus"
)

var ErrInvalidTransaction = errors.New("invalid transaction")

type Service interface {
	Create(ctx context.Context, entry Transaction) (Transaction, error)
	Get(ctx context.Context, id int) (Transaction, error)
	List(ctx context.Context, filter Filter) ([]Transaction, error)
	Delete(ctx context.Context, id int) (bool, error)
}

type ServiceImpl struct {
	repo  Repository
	clock utils.Clock
}

func NewService(repo Repository, clock utils.Clock) *ServiceImpl {
	return &ServiceImpl{repo: repo, clock: clock}
}

func (s *ServiceImpl) Create(ctx context.Context, entry Transaction) (Transaction, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to get current user: %w", err)
	}
	if err := Validate(entry); err != nil {
		return Transaction{}, err
	}
	if entry.Date.IsZero() {
		entry.Date = s.clock.Now()
	}
	entry.CreatedAt = s.clock.Now()

	id, err := s.repo.Store(ctx, userId, entry)
	if err != nil {
		return Transaction{}, err
	}
	entry.ID = id
	return entry, nil
}

func (s *ServiceImpl) Get(ctx context.Context, id int) (Transaction, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.Find(ctx, userId, id)
}

func (s *ServiceImpl) List(ctx context.Context, filter Filter) ([]Transaction, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.GetAll(ctx, userId, filter)
}

func (s *ServiceImpl) Delete(ctx context.Context, id int) (bool, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to get current user: %w", err)
	}

	deleted, err := s.repo.Delete(ctx, userId, id)
	if err != nil {
		return false, err
	}
	if !deleted {
		log.Warnf("transaction not deleted, probably because it does not exist (%d) or the user (%d) is not the owner", id, userId)
		return false, ErrTransactionNotFound
	}
	return true, nil
}

// Validate checks the fields every ledger entry must carry, whatever path it
// arrives through (manual creation, recurring generation, statement import).
func Validate(entry Transaction) error {
	if entry.Description == "" {
		return fmt.Errorf("%w: description is required", ErrInvalidTransaction)
	}
	if !entry.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidTransaction)
	}
	if _, err := ParseKind(string(entry.Kind)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTransaction, err)
	}
	return nil
}

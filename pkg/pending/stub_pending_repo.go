package pending

import (
	"context"
	"sort"

	"github.com/Nicolas-Jorq/budget-app-sub001/pkg/transaction"
)

// StubRepository keeps pending rows in memory and routes imports through a
// ledger stub so service tests can assert on both sides of the workflow.
type StubRepository struct {
	nextId int
	data   map[int]PendingTransaction
	// Ledger receives the ledger entries created by ImportRow.
	Ledger *transaction.StubRepository
	// FailNextImport makes the next ImportRow call fail with the given error.
	FailNextImport error
}

func NewStubRepository() *StubRepository {
	return &StubRepository{
		data:   map[int]PendingTransaction{},
		Ledger: transaction.NewStubRepository(),
	}
}

func (s *StubRepository) StoreBatch(ctx context.Context, userId int, rows []PendingTransaction) ([]PendingTransaction, error) {
	stored := make([]PendingTransaction, 0, len(rows))
	for _, row := range rows {
		s.nextId++
		row.ID = s.nextId
		s.data[row.ID] = row
		stored = append(stored, row)
	}
	return stored, nil
}

func (s *StubRepository) Find(ctx context.Context, userId int, id int) (PendingTransaction, error) {
	row, ok := s.data[id]
	if !ok {
		return PendingTransaction{}, ErrPendingNotFound
	}
	return row, nil
}

func (s *StubRepository) GetBatch(ctx context.Context, userId int, batchId string, statuses ...Status) ([]PendingTransaction, error) {
	var batch []PendingTransaction
	for _, row := range s.data {
		if row.BatchID != batchId {
			continue
		}
		if len(statuses) > 0 {
			matched := false
			for _, status := range statuses {
				if row.Status == status {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
		}
		batch = append(batch, row)
	}
	sort.Slice(batch, func(i, j int) bool {
		if batch[i].Date.Equal(batch[j].Date) {
			return batch[i].ID < batch[j].ID
		}
		return batch[i].Date.Before(batch[j].Date)
	})
	return batch, nil
}

func (s *StubRepository) Update(ctx context.Context, userId int, row PendingTransaction) (bool, error) {
	if _, ok := s.data[row.ID]; !ok {
		return false, nil
	}
	s.data[row.ID] = row
	return true, nil
}

func (s *StubRepository) Delete(ctx context.Context, userId int, id int) (bool, error) {
	if _, ok := s.data[id]; !ok {
		return false, nil
	}
	delete(s.data, id)
	return true, nil
}

func (s *StubRepository) ImportRow(ctx context.Context, userId int, row PendingTransaction, entry transaction.Transaction) (int, error) {
	if s.FailNextImport != nil {
		err := s.FailNextImport
		s.FailNextImport = nil
		return 0, err
	}
	stored, ok := s.data[row.ID]
	if !ok || stored.Status != StatusApproved {
		return 0, ErrStatusConflict
	}
	id, err := s.Ledger.Store(ctx, userId, entry)
	if err != nil {
		return 0, err
	}
	stored.Status = StatusImported
	stored.ImportedTransactionID = &id
	s.data[row.ID] = stored
	return id, nil
}

func (s *StubRepository) Cleanup() {
	s.data = map[int]PendingTransaction{}
	s.Ledger.Cleanup()
	s.FailNextImport = nil
}

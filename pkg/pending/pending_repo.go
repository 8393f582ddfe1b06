package pending

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Nicolas-Jorq/budget-app-sub001/internal/database"
	"github.com/Nicolas-Jorq/budget-app-sub001/internal/utils"
	"github.com/Nicolas-Jorq/budget-app-sub001/pkg/transaction"
	log "github.com/sirupsen/logrus"
)

const dateLayout = "2006-01-02"

type Repository interface {
	StoreBatch(ctx context.Context, userId int, rows []PendingTransaction) ([]PendingTransaction, error)
	Find(ctx context.Context, userId int, id int) (PendingTransaction, error)
	// GetBatch returns a batch's rows, optionally restricted to statuses.
	GetBatch(ctx context.Context, userId int, batchId string, statuses ...Status) ([]PendingTransaction, error)
	Update(ctx context.Context, userId int, row PendingTransaction) (bool, error)
	Delete(ctx context.Context, userId int, id int) (bool, error)
	// ImportRow inserts the ledger entry and marks the pending row IMPORTED
	// with a back-reference in a single database transaction.
	ImportRow(ctx context.Context, userId int, row PendingTransaction, entry transaction.Transaction) (int, error)
}

type RepositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

const pendingColumns = `id, batch_id, date, description, amount, kind, category, user_category, notes,
				status, duplicate_of_id, imported_transaction_id, created_at, updated_at`

func (r *RepositoryImpl) StoreBatch(ctx context.Context, userId int, rows []PendingTransaction) ([]PendingTransaction, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		err := fmt.Errorf("%w: could not begin transaction: %v", database.ErrStorage, err)
		log.Error(err)
		return nil, err
	}
	defer tx.Rollback()

	query := `INSERT INTO pending_transaction (user_id, batch_id, date, description, amount, kind, category,
				user_category, notes, status, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	stored := make([]PendingTransaction, 0, len(rows))
	for _, row := range rows {
		result, err := tx.ExecContext(ctx, query,
			userId,
			row.BatchID,
			row.Date.Format(dateLayout),
			row.Description,
			utils.ToCents(row.Amount),
			string(row.Kind),
			row.Category,
			row.UserCategory,
			row.Notes,
			string(row.Status),
			row.CreatedAt.Unix(),
			row.UpdatedAt.Unix(),
		)
		if err != nil {
			err := fmt.Errorf("%w: could not insert pending transaction: %v", database.ErrStorage, err)
			log.Error(err)
			return nil, err
		}
		lastInsertID, err := result.LastInsertId()
		if err != nil {
			err := fmt.Errorf("%w: could not retrieve last insert id: %v", database.ErrStorage, err)
			log.Error(err)
			return nil, err
		}
		row.ID = int(lastInsertID)
		stored = append(stored, row)
	}

	if err := tx.Commit(); err != nil {
		err := fmt.Errorf("%w: could not commit: %v", database.ErrStorage, err)
		log.Error(err)
		return nil, err
	}
	return stored, nil
}

func (r *RepositoryImpl) Find(ctx context.Context, userId int, id int) (PendingTransaction, error) {
	query := `SELECT ` + pendingColumns + ` FROM pending_transaction WHERE id = ? AND user_id = ?`

	row := r.db.QueryRowContext(ctx, query, id, userId)
	pending, err := scanPending(row.Scan)
	if err == sql.ErrNoRows {
		return PendingTransaction{}, ErrPendingNotFound
	}
	if err != nil {
		err := fmt.Errorf("%w: could not fetch pending transaction: %v", database.ErrStorage, err)
		log.Error(err)
		return PendingTransaction{}, err
	}
	return pending, nil
}

func (r *RepositoryImpl) GetBatch(ctx context.Context, userId int, batchId string, statuses ...Status) ([]PendingTransaction, error) {
	query := `SELECT ` + pendingColumns + ` FROM pending_transaction WHERE user_id = ? AND batch_id = ?`
	args := []any{userId, batchId}
	if len(statuses) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(statuses)), ", ")
		query += ` AND status IN (` + placeholders + `)`
		for _, status := range statuses {
			args = append(args, string(status))
		}
	}
	query += ` ORDER BY date, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		err := fmt.Errorf("%w: could not fetch pending batch: %v", database.ErrStorage, err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	var batch []PendingTransaction
	for rows.Next() {
		pending, err := scanPending(rows.Scan)
		if err != nil {
			err := fmt.Errorf("%w: could not scan pending transaction: %v", database.ErrStorage, err)
			log.Error(err)
			return nil, err
		}
		batch = append(batch, pending)
	}
	if err := rows.Err(); err != nil {
		err := fmt.Errorf("%w: could not iterate pending batch: %v", database.ErrStorage, err)
		log.Error(err)
		return nil, err
	}
	return batch, nil
}

func (r *RepositoryImpl) Update(ctx context.Context, userId int, row PendingTransaction) (bool, error) {
	result, err := r.db.ExecContext(ctx, updatePendingQuery, updatePendingArgs(userId, row)...)
	if err != nil {
		err := fmt.Errorf("%w: could not update pending transaction: %v", database.ErrStorage, err)
		log.Error(err)
		return false, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		err := fmt.Errorf("%w: could not get rows affected: %v", database.ErrStorage, err)
		log.Error(err)
		return false, err
	}
	return rowsAffected > 0, nil
}

func (r *RepositoryImpl) Delete(ctx context.Context, userId int, id int) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM pending_transaction WHERE id = ? AND user_id = ?", id, userId)
	if err != nil {
		err := fmt.Errorf("%w: could not delete pending transaction: %v", database.ErrStorage, err)
		log.Error(err)
		return false, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		err := fmt.Errorf("%w: could not get rows affected: %v", database.ErrStorage, err)
		log.Error(err)
		return false, err
	}
	return rowsAffected > 0, nil
}

func (r *RepositoryImpl) ImportRow(ctx context.Context, userId int, row PendingTransaction, entry transaction.Transaction) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		err := fmt.Errorf("%w: could not begin transaction: %v", database.ErrStorage, err)
		log.Error(err)
		return 0, err
	}
	defer tx.Rollback()

	id, err := transaction.StoreInTx(ctx, tx, userId, entry)
	if err != nil {
		return 0, err
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE pending_transaction SET status = ?, imported_transaction_id = ?, updated_at = ?
			WHERE id = ? AND user_id = ? AND status = ?`,
		string(StatusImported), id, entry.CreatedAt.Unix(), row.ID, userId, string(StatusApproved))
	if err != nil {
		err := fmt.Errorf("%w: could not mark pending transaction imported: %v", database.ErrStorage, err)
		log.Error(err)
		return 0, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		err := fmt.Errorf("%w: could not get rows affected: %v", database.ErrStorage, err)
		log.Error(err)
		return 0, err
	}
	if rowsAffected != 1 {
		return 0, ErrStatusConflict
	}

	if err := tx.Commit(); err != nil {
		err := fmt.Errorf("%w: could not commit: %v", database.ErrStorage, err)
		log.Error(err)
		return 0, err
	}
	return id, nil
}

const updatePendingQuery = `UPDATE pending_transaction
				SET date = ?, description = ?, amount = ?, kind = ?, category = ?, user_category = ?, notes = ?,
					status = ?, duplicate_of_id = ?, imported_transaction_id = ?, updated_at = ?
				WHERE id = ? AND user_id = ?`

func updatePendingArgs(userId int, row PendingTransaction) []any {
	return []any{
		row.Date.Format(dateLayout),
		row.Description,
		utils.ToCents(row.Amount),
		string(row.Kind),
		row.Category,
		row.UserCategory,
		row.Notes,
		string(row.Status),
		row.DuplicateOfID,
		row.ImportedTransactionID,
		row.UpdatedAt.Unix(),
		row.ID,
		userId,
	}
}

func scanPending(scan func(dest ...any) error) (PendingTransaction, error) {
	var row PendingTransaction
	var amountCents, createdAt, updatedAt int64
	var kind, status, date string
	var duplicateOf, importedId sql.NullInt64

	err := scan(&row.ID, &row.BatchID, &date, &row.Description, &amountCents, &kind, &row.Category,
		&row.UserCategory, &row.Notes, &status, &duplicateOf, &importedId, &createdAt, &updatedAt)
	if err != nil {
		return PendingTransaction{}, err
	}

	row.Amount = utils.FromCents(amountCents)
	row.Kind = transaction.Kind(kind)
	row.Status = Status(status)
	if row.Date, err = time.Parse(dateLayout, date); err != nil {
		return PendingTransaction{}, err
	}
	row.CreatedAt = time.Unix(createdAt, 0).UTC()
	row.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	if duplicateOf.Valid {
		id := int(duplicateOf.Int64)
		row.DuplicateOfID = &id
	}
	if importedId.Valid {
		id := int(importedId.Int64)
		row.ImportedTransactionID = &id
	}
	return row, nil
}

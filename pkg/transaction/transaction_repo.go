package transaction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Nicolas-Jorq/budget-app-sub001/internal/database"
	"github.com/Nicolas-Jorq/budget-app-sub001/internal/utils"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrBudgetNotFound      = errors.New("linked budget not found")
)

const dateLayout = "2006-01-02"

type Repository interface {
	// Store inserts a ledger entry and, for an expense linked to a budget,
	// increments that budget's spent in the same database transaction.
	Store(ctx context.Context, userId int, entry Transaction) (int, error)
	Find(ctx context.Context, userId int, id int) (Transaction, error)
	GetAll(ctx context.Context, userId int, filter Filter) ([]Transaction, error)
	Delete(ctx context.Context, userId int, id int) (bool, error)
	// FindMatches returns ledger entries on the given date with the exact
	// same amount, used for duplicate probing during statement import.
	FindMatches(ctx context.Context, userId int, date time.Time, amount decimal.Decimal) ([]Transaction, error)
}

type RepositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) Store(ctx context.Context, userId int, entry Transaction) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		err := fmt.Errorf("%w: could not begin transaction: %v", database.ErrStorage, err)
		log.Error(err)
		return 0, err
	}
	defer tx.Rollback()

	id, err := StoreInTx(ctx, tx, userId, entry)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		err := fmt.Errorf("%w: could not commit: %v", database.ErrStorage, err)
		log.Error(err)
		return 0, err
	}
	return id, nil
}

// StoreInTx is shared with the recurring repository so generated occurrences
// reuse the exact same insert + budget increment unit of work.
func StoreInTx(ctx context.Context, tx *sql.Tx, userId int, entry Transaction) (int, error) {
	query := `INSERT INTO transactions (user_id, description, amount, kind, category, date, budget_id, recurring_id, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := tx.ExecContext(ctx, query,
		userId,
		entry.Description,
		utils.ToCents(entry.Amount),
		string(entry.Kind),
		entry.Category,
		entry.Date.Format(dateLayout),
		entry.BudgetID,
		entry.RecurringID,
		entry.CreatedAt.Unix(),
	)
	if err != nil {
		err := fmt.Errorf("%w: could not insert transaction: %v", database.ErrStorage, err)
		log.Error(err)
		return 0, err
	}

	lastInsertID, err := result.LastInsertId()
	if err != nil {
		err := fmt.Errorf("%w: could not retrieve last insert id: %v", database.ErrStorage, err)
		log.Error(err)
		return 0, err
	}

	if entry.Kind == KindExpense && entry.BudgetID != nil {
		update, err := tx.ExecContext(ctx,
			"UPDATE budget SET spent = spent + ? WHERE id = ? AND user_id = ?",
			utils.ToCents(entry.Amount), *entry.BudgetID, userId,
		)
		if err != nil {
			err := fmt.Errorf("%w: could not update budget spent: %v", database.ErrStorage, err)
			log.Error(err)
			return 0, err
		}
		rowsAffected, err := update.RowsAffected()
		if err != nil {
			err := fmt.Errorf("%w: could not get rows affected: %v", database.ErrStorage, err)
			log.Error(err)
			return 0, err
		}
		if rowsAffected != 1 {
			return 0, ErrBudgetNotFound
		}
	}

	return int(lastInsertID), nil
}

func (r *RepositoryImpl) Find(ctx context.Context, userId int, id int) (Transaction, error) {
	query := `SELECT id, description, amount, kind, category, date, budget_id, recurring_id, created_at
				FROM transactions WHERE id = ? AND user_id = ?`
	row := r.db.QueryRowContext(ctx, query, id, userId)

	entry, err := scanTransaction(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Transaction{}, ErrTransactionNotFound
	}
	if err != nil {
		err := fmt.Errorf("%w: could not scan transaction: %v", database.ErrStorage, err)
		log.Error(err)
		return Transaction{}, err
	}
	return entry, nil
}

func (r *RepositoryImpl) GetAll(ctx context.Context, userId int, filter Filter) ([]Transaction, error) {
	var conditions []string
	args := []interface{}{userId}

	if !filter.From.IsZero() {
		conditions = append(conditions, "date >= ?")
		args = append(args, filter.From.Format(dateLayout))
	}
	if !filter.To.IsZero() {
		conditions = append(conditions, "date <= ?")
		args = append(args, filter.To.Format(dateLayout))
	}
	if filter.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, string(filter.Kind))
	}

	where := ""
	if len(conditions) > 0 {
		where = " AND " + strings.Join(conditions, " AND ")
	}
	limit := ""
	if filter.Limit > 0 {
		limit = fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	query := fmt.Sprintf(
		`SELECT id, description, amount, kind, category, date, budget_id, recurring_id, created_at
			FROM transactions WHERE user_id = ?%s ORDER BY date DESC, id DESC%s`,
		where, limit,
	)
	return r.query(ctx, query, args...)
}

func (r *RepositoryImpl) FindMatches(ctx context.Context, userId int, date time.Time, amount decimal.Decimal) ([]Transaction, error) {
	query := `SELECT id, description, amount, kind, category, date, budget_id, recurring_id, created_at
				FROM transactions WHERE user_id = ? AND date = ? AND amount = ?`
	return r.query(ctx, query, userId, date.Format(dateLayout), utils.ToCents(amount))
}

func (r *RepositoryImpl) query(ctx context.Context, query string, args ...interface{}) ([]Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		err := fmt.Errorf("%w: could not query transactions: %v", database.ErrStorage, err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	var entries []Transaction
	for rows.Next() {
		entry, err := scanTransaction(rows.Scan)
		if err != nil {
			err := fmt.Errorf("%w: could not scan transaction: %v", database.ErrStorage, err)
			log.Error(err)
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		err := fmt.Errorf("%w: error iterating over rows: %v", database.ErrStorage, err)
		log.Error(err)
		return nil, err
	}
	return entries, nil
}

func (r *RepositoryImpl) Delete(ctx context.Context, userId int, id int) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ? AND user_id = ?", id, userId)
	if err != nil {
		err := fmt.Errorf("%w: could not execute query: %v", database.ErrStorage, err)
		log.Error(err)
		return false, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		err := fmt.Errorf("%w: could not get rows affected: %v", database.ErrStorage, err)
		log.Error(err)
		return false, err
	}
	return rowsAffected == 1, nil
}

func scanTransaction(scan func(dest ...any) error) (Transaction, error) {
	var entry Transaction
	var amountCents int64
	var kind, dateString string
	var budgetId, recurringId sql.NullInt64
	var createdAtUnix int64
	if err := scan(
		&entry.ID,
		&entry.Description,
		&amountCents,
		&kind,
		&entry.Category,
		&dateString,
		&budgetId,
		&recurringId,
		&createdAtUnix,
	); err != nil {
		return Transaction{}, err
	}
	entry.Amount = utils.FromCents(amountCents)
	entry.Kind = Kind(kind)
	date, err := time.Parse(dateLayout, dateString)
	if err != nil {
		return Transaction{}, fmt.Errorf("could not parse date: %w", err)
	}
	entry.Date = date
	if budgetId.Valid {
		id := int(budgetId.Int64)
		entry.BudgetID = &id
	}
	if recurringId.Valid {
		id := int(recurringId.Int64)
		entry.RecurringID = &id
	}
	entry.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
	return entry, nil
}

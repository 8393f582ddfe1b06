package budget

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Nicolas-Jorq/budget-app-sub001/internal/database"
	"github.com/Nicolas-Jorq/budget-app-sub001/internal/utils"
	log "github.com/sirupsen/logrus"
)

var ErrBudgetNotFound = errors.New("budget not found")

const dateLayout = "2006-01-02"

type BudgetRepo interface {
	Store(ctx context.Context, userId int, budget Budget) (int, error)
	Find(ctx context.Context, userId int, budgetId int) (Budget, error)
	GetAll(ctx context.Context, userId int, includeInactive bool) ([]Budget, error)
	Update(ctx context.Context, userId int, budget Budget) (bool, error)
	Delete(ctx context.Context, userId int, budgetId int) (bool, error)
}

type BudgetRepoImpl struct {
	db *sql.DB
}

func NewBudgetRepo(db *sql.DB) *BudgetRepoImpl {
	return &BudgetRepoImpl{db: db}
}

func (r *BudgetRepoImpl) Store(ctx context.Context, userId int, budget Budget) (int, error) {
	query := `INSERT INTO budget (user_id, name, category, amount_limit, spent, start_date, end_date)
				VALUES (?, ?, ?, ?, ?, ?, ?)`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		err := fmt.Errorf("%w: could not prepare query: %v", database.ErrStorage, err)
		log.Error(err)
		return 0, err
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx,
		userId,
		budget.Name,
		budget.Category,
		utils.ToCents(budget.Limit),
		utils.ToCents(budget.Spent),
		dateParam(budget.StartDate),
		dateParam(budget.EndDate),
	)
	if err != nil {
		err := fmt.Errorf("%w: could not execute query: %v", database.ErrStorage, err)
		log.Error(err)
		return 0, err
	}

	lastInsertID, err := result.LastInsertId()
	if err != nil {
		err := fmt.Errorf("%w: could not retrieve last insert id: %v", database.ErrStorage, err)
		log.Error(err)
		return 0, err
	}

	return int(lastInsertID), nil
}

func (r *BudgetRepoImpl) Find(ctx context.Context, userId int, budgetId int) (Budget, error) {
	query := `SELECT id, name, category, amount_limit, spent, start_date, end_date
				FROM budget WHERE id = ? AND user_id = ?`
	row := r.db.QueryRowContext(ctx, query, budgetId, userId)

	budget, err := scanBudget(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Budget{}, ErrBudgetNotFound
	}
	if err != nil {
		err := fmt.Errorf("%w: could not scan budget: %v", database.ErrStorage, err)
		log.Error(err)
		return Budget{}, err
	}
	return budget, nil
}

func (r *BudgetRepoImpl) GetAll(ctx context.Context, userId int, includeInactive bool) ([]Budget, error) {
	activeWhereQuery := `AND (budget.start_date IS NULL OR budget.start_date <= date('now'))
		AND (budget.end_date IS NULL OR budget.end_date >= date('now'))`
	if includeInactive {
		activeWhereQuery = ""
	}
	query := fmt.Sprintf(
		`SELECT id, name, category, amount_limit, spent, start_date, end_date
				FROM budget WHERE budget.user_id = ? %s ORDER BY name`,
		activeWhereQuery,
	)
	rows, err := r.db.QueryContext(ctx, query, userId)
	if err != nil {
		err := fmt.Errorf("%w: could not query budgets: %v", database.ErrStorage, err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	var budgets []Budget
	for rows.Next() {
		budget, err := scanBudget(rows.Scan)
		if err != nil {
			err := fmt.Errorf("%w: could not scan budget: %v", database.ErrStorage, err)
			log.Error(err)
			return nil, err
		}
		budgets = append(budgets, budget)
	}

	if err := rows.Err(); err != nil {
		err := fmt.Errorf("%w: error iterating over rows: %v", database.ErrStorage, err)
		log.Error(err)
		return nil, err
	}

	return budgets, nil
}

func (r *BudgetRepoImpl) Update(ctx context.Context, userId int, budget Budget) (bool, error) {
	query := `UPDATE budget SET
                  name = ?,
                  category = ?,
                  amount_limit = ?,
                  start_date = ?,
                  end_date = ?
              WHERE id = ? AND user_id = ?`
	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		err := fmt.Errorf("%w: could not prepare query: %v", database.ErrStorage, err)
		log.Error(err)
		return false, err
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx,
		budget.Name,
		budget.Category,
		utils.ToCents(budget.Limit),
		dateParam(budget.StartDate),
		dateParam(budget.EndDate),
		budget.ID,
		userId,
	)
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

func (r *BudgetRepoImpl) Delete(ctx context.Context, userId int, budgetId int) (bool, error) {
	query := "DELETE FROM budget WHERE id = ? AND user_id = ?"
	result, err := r.db.ExecContext(ctx, query, budgetId, userId)
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

func scanBudget(scan func(dest ...any) error) (Budget, error) {
	var budget Budget
	var limitCents, spentCents int64
	var startDate, endDate sql.NullString
	if err := scan(
		&budget.ID,
		&budget.Name,
		&budget.Category,
		&limitCents,
		&spentCents,
		&startDate,
		&endDate,
	); err != nil {
		return Budget{}, err
	}
	budget.Limit = utils.FromCents(limitCents)
	budget.Spent = utils.FromCents(spentCents)
	if startDate.Valid {
		parsed, err := time.Parse(dateLayout, startDate.String)
		if err != nil {
			return Budget{}, fmt.Errorf("could not parse start date: %w", err)
		}
		budget.StartDate = parsed
	}
	if endDate.Valid {
		parsed, err := time.Parse(dateLayout, endDate.String)
		if err != nil {
			return Budget{}, fmt.Errorf("could not parse end date: %w", err)
		}
		budget.EndDate = parsed
	}
	return budget, nil
}

func dateParam(date time.Time) interface{} {
	if date.IsZero() {
		return nil
	}
	return date.Format(dateLayout)
}

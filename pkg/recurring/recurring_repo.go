package recurring

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Nicolas-Jorq/budget-app-sub001/internal/database"
	"github.com/Nicolas-Jorq/budget-app-sub001/internal/utils"
	"github.com/Nicolas-Jorq/budget-app-sub001/pkg/transaction"
	log "github.com/sirupsen/logrus"
)

const dateLayout = "2006-01-02"

type Repository interface {
	Store(ctx context.Context, userId int, tmpl Template) (int, error)
	Find(ctx context.Context, userId int, id int) (Template, error)
	GetAll(ctx context.Context, userId int) ([]Template, error)
	// FindDue returns active templates whose next due date is on or before
	// now, restricted to templates whose end date has not passed.
	FindDue(ctx context.Context, userId int, now time.Time) ([]Template, error)
	Update(ctx context.Context, userId int, tmpl Template) (bool, error)
	Delete(ctx context.Context, userId int, id int) (bool, error)
	// CreateOccurrence inserts the generated ledger entry and persists the
	// already-advanced template in a single database transaction. Either both
	// land or neither does.
	CreateOccurrence(ctx context.Context, userId int, tmpl Template, entry transaction.Transaction) (int, error)
}

type RepositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

const templateColumns = `id, description, amount, kind, category, frequency, start_date, end_date,
				day_of_month, day_of_week, budget_id, is_active, next_due_date, last_generated_date`

func (r *RepositoryImpl) Store(ctx context.Context, userId int, tmpl Template) (int, error) {
	query := `INSERT INTO recurring_transaction (user_id, description, amount, kind, category, frequency,
				start_date, end_date, day_of_month, day_of_week, budget_id, is_active, next_due_date, last_generated_date)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		userId,
		tmpl.Description,
		utils.ToCents(tmpl.Amount),
		string(tmpl.Kind),
		tmpl.Category,
		string(tmpl.Frequency),
		tmpl.StartDate.Format(dateLayout),
		nullableDate(tmpl.EndDate),
		tmpl.DayOfMonth,
		weekdayParam(tmpl.DayOfWeek),
		tmpl.BudgetID,
		tmpl.IsActive,
		tmpl.NextDueDate.Format(dateLayout),
		nullableDate(tmpl.LastGeneratedDate),
	)
	if err != nil {
		err := fmt.Errorf("%w: could not insert recurring template: %v", database.ErrStorage, err)
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

func (r *RepositoryImpl) Find(ctx context.Context, userId int, id int) (Template, error) {
	query := `SELECT ` + templateColumns + ` FROM recurring_transaction WHERE id = ? AND user_id = ?`

	row := r.db.QueryRowContext(ctx, query, id, userId)
	tmpl, err := scanTemplate(row.Scan)
	if err == sql.ErrNoRows {
		return Template{}, ErrTemplateNotFound
	}
	if err != nil {
		err := fmt.Errorf("%w: could not fetch recurring template: %v", database.ErrStorage, err)
		log.Error(err)
		return Template{}, err
	}
	return tmpl, nil
}

func (r *RepositoryImpl) GetAll(ctx context.Context, userId int) ([]Template, error) {
	query := `SELECT ` + templateColumns + ` FROM recurring_transaction WHERE user_id = ? ORDER BY next_due_date, id`

	rows, err := r.db.QueryContext(ctx, query, userId)
	if err != nil {
		err := fmt.Errorf("%w: could not fetch recurring templates: %v", database.ErrStorage, err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()
	return collectTemplates(rows)
}

func (r *RepositoryImpl) FindDue(ctx context.Context, userId int, now time.Time) ([]Template, error) {
	query := `SELECT ` + templateColumns + ` FROM recurring_transaction
				WHERE user_id = ? AND is_active = 1 AND next_due_date <= ?
				AND (end_date IS NULL OR end_date >= next_due_date)
				ORDER BY next_due_date, id`

	rows, err := r.db.QueryContext(ctx, query, userId, now.Format(dateLayout))
	if err != nil {
		err := fmt.Errorf("%w: could not fetch due recurring templates: %v", database.ErrStorage, err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()
	return collectTemplates(rows)
}

func (r *RepositoryImpl) Update(ctx context.Context, userId int, tmpl Template) (bool, error) {
	result, err := r.db.ExecContext(ctx, updateTemplateQuery, updateTemplateArgs(userId, tmpl)...)
	if err != nil {
		err := fmt.Errorf("%w: could not update recurring template: %v", database.ErrStorage, err)
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
		"DELETE FROM recurring_transaction WHERE id = ? AND user_id = ?", id, userId)
	if err != nil {
		err := fmt.Errorf("%w: could not delete recurring template: %v", database.ErrStorage, err)
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

func (r *RepositoryImpl) CreateOccurrence(ctx context.Context, userId int, tmpl Template, entry transaction.Transaction) (int, error) {
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

	result, err := tx.ExecContext(ctx, updateTemplateQuery, updateTemplateArgs(userId, tmpl)...)
	if err != nil {
		err := fmt.Errorf("%w: could not advance recurring template: %v", database.ErrStorage, err)
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
		return 0, ErrTemplateNotFound
	}

	if err := tx.Commit(); err != nil {
		err := fmt.Errorf("%w: could not commit: %v", database.ErrStorage, err)
		log.Error(err)
		return 0, err
	}
	return id, nil
}

const updateTemplateQuery = `UPDATE recurring_transaction
				SET description = ?, amount = ?, kind = ?, category = ?, frequency = ?, start_date = ?, end_date = ?,
					day_of_month = ?, day_of_week = ?, budget_id = ?, is_active = ?, next_due_date = ?, last_generated_date = ?
				WHERE id = ? AND user_id = ?`

func updateTemplateArgs(userId int, tmpl Template) []any {
	return []any{
		tmpl.Description,
		utils.ToCents(tmpl.Amount),
		string(tmpl.Kind),
		tmpl.Category,
		string(tmpl.Frequency),
		tmpl.StartDate.Format(dateLayout),
		nullableDate(tmpl.EndDate),
		tmpl.DayOfMonth,
		weekdayParam(tmpl.DayOfWeek),
		tmpl.BudgetID,
		tmpl.IsActive,
		tmpl.NextDueDate.Format(dateLayout),
		nullableDate(tmpl.LastGeneratedDate),
		tmpl.ID,
		userId,
	}
}

func collectTemplates(rows *sql.Rows) ([]Template, error) {
	var templates []Template
	for rows.Next() {
		tmpl, err := scanTemplate(rows.Scan)
		if err != nil {
			err := fmt.Errorf("%w: could not scan recurring template: %v", database.ErrStorage, err)
			log.Error(err)
			return nil, err
		}
		templates = append(templates, tmpl)
	}
	if err := rows.Err(); err != nil {
		err := fmt.Errorf("%w: could not iterate recurring templates: %v", database.ErrStorage, err)
		log.Error(err)
		return nil, err
	}
	return templates, nil
}

func scanTemplate(scan func(dest ...any) error) (Template, error) {
	var tmpl Template
	var amountCents int64
	var kind, frequency, startDate, nextDueDate string
	var endDate, lastGenerated sql.NullString
	var dayOfMonth, dayOfWeek, budgetId sql.NullInt64

	err := scan(&tmpl.ID, &tmpl.Description, &amountCents, &kind, &tmpl.Category, &frequency,
		&startDate, &endDate, &dayOfMonth, &dayOfWeek, &budgetId, &tmpl.IsActive, &nextDueDate, &lastGenerated)
	if err != nil {
		return Template{}, err
	}

	tmpl.Amount = utils.FromCents(amountCents)
	tmpl.Kind = transaction.Kind(kind)
	tmpl.Frequency = Frequency(frequency)
	if tmpl.StartDate, err = time.Parse(dateLayout, startDate); err != nil {
		return Template{}, err
	}
	if tmpl.NextDueDate, err = time.Parse(dateLayout, nextDueDate); err != nil {
		return Template{}, err
	}
	if endDate.Valid {
		if tmpl.EndDate, err = time.Parse(dateLayout, endDate.String); err != nil {
			return Template{}, err
		}
	}
	if lastGenerated.Valid {
		if tmpl.LastGeneratedDate, err = time.Parse(dateLayout, lastGenerated.String); err != nil {
			return Template{}, err
		}
	}
	if dayOfMonth.Valid {
		day := int(dayOfMonth.Int64)
		tmpl.DayOfMonth = &day
	}
	if dayOfWeek.Valid {
		weekday := time.Weekday(dayOfWeek.Int64)
		tmpl.DayOfWeek = &weekday
	}
	if budgetId.Valid {
		id := int(budgetId.Int64)
		tmpl.BudgetID = &id
	}
	return tmpl, nil
}

func nullableDate(date time.Time) any {
	if date.IsZero() {
		return nil
	}
	return date.Format(dateLayout)
}

func weekdayParam(weekday *time.Weekday) any {
	if weekday == nil {
		return nil
	}
	return int(*weekday)
}

package recurring

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Nicolas-Jorq/budget-app-sub001/internal/event_bus"
	"github.com/Nicolas-Jorq/budget-app-sub001/internal/utils"
	"github.com/Nicolas-Jorq/budget-app-sub001/pkg/transaction"
	"github.com/Nicolas-Jorq/budget-app-sub001/pkg/user"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// UpdateInput carries the fields of a partial template update. Nil pointers
// leave the stored value untouched.
type UpdateInput struct {
	Description *string
	Amount      *decimal.Decimal
	Kind        *transaction.Kind
	Category    *string
	Frequency   *Frequency
	StartDate   *time.Time
	EndDate     *time.Time
	DayOfMonth  *int
	DayOfWeek   *time.Weekday
	BudgetID    *int
	IsActive    *bool
}

// TemplateFailure records a template that could not be processed during a
// generation run.
type TemplateFailure struct {
	TemplateID int
	Err        error
}

// Result reports a generation run. A run that generates some entries and
// fails on others returns both lists and a nil error; only failures that
// prevent the run from starting at all surface as an error.
type Result struct {
	Generated []transaction.Transaction
	Failures  []TemplateFailure
}

// Processor triggers a guarded generation run for the current user. The
// scheduler implements it; the guard rejects overlapping runs per user with
// ErrRunInProgress.
type Processor interface {
	RunCurrent(ctx context.Context) (Result, error)
}

type Service interface {
	Create(ctx context.Context, tmpl Template) (Template, error)
	Update(ctx context.Context, id int, input UpdateInput) (Template, error)
	Get(ctx context.Context, id int) (Template, error)
	List(ctx context.Context) ([]Template, error)
	Delete(ctx context.Context, id int) error
	// ProcessDue generates ledger entries for every active template that is
	// due, catching up period by period if a template is several periods
	// behind.
	ProcessDue(ctx context.Context) (Result, error)
	// Upcoming projects occurrences due within the next days days without
	// writing anything.
	Upcoming(ctx context.Context, days int) ([]Occurrence, error)
	// SkipNext advances a template past its next occurrence without
	// generating a ledger entry.
	SkipNext(ctx context.Context, id int) (Template, error)
}

type ServiceImpl struct {
	repo  Repository
	clock utils.Clock
	bus   *event_bus.EventBus
}

func NewService(repo Repository, clock utils.Clock, bus *event_bus.EventBus) *ServiceImpl {
	return &ServiceImpl{repo: repo, clock: clock, bus: bus}
}

func (s *ServiceImpl) publishChanged(ctx context.Context, tmpl Template) {
	if s.bus == nil {
		return
	}
	payload := event_bus.TemplateChanged{
		TemplateID:  tmpl.ID,
		Frequency:   string(tmpl.Frequency),
		NextDueDate: tmpl.NextDueDate,
	}
	if err := s.bus.Publish(event_bus.NewEvent(ctx, event_bus.RecurringTemplateChanged, payload)); err != nil {
		log.Warnf("publishing template change for %d: %v", tmpl.ID, err)
	}
}

func (s *ServiceImpl) Create(ctx context.Context, tmpl Template) (Template, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Template{}, err
	}

	if err := validateTemplate(tmpl); err != nil {
		return Template{}, err
	}

	tmpl.NextDueDate = InitialNextDueDate(tmpl.Frequency, tmpl.StartDate, tmpl.DayOfMonth, tmpl.DayOfWeek, s.clock.Now())
	tmpl.IsActive = withinEndDate(tmpl.NextDueDate, tmpl.EndDate)
	tmpl.LastGeneratedDate = time.Time{}

	id, err := s.repo.Store(ctx, userId, tmpl)
	if err != nil {
		return Template{}, err
	}
	tmpl.ID = id
	s.publishChanged(ctx, tmpl)
	return tmpl, nil
}

func (s *ServiceImpl) Update(ctx context.Context, id int, input UpdateInput) (Template, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Template{}, err
	}

	tmpl, err := s.repo.Find(ctx, userId, id)
	if err != nil {
		return Template{}, err
	}

	scheduleChanged := applyInput(&tmpl, input)
	if err := validateTemplate(tmpl); err != nil {
		return Template{}, err
	}

	// A new frequency, anchor or start date invalidates the stored next due
	// date, so it is recomputed the same way a fresh template's would be.
	if scheduleChanged {
		tmpl.NextDueDate = InitialNextDueDate(tmpl.Frequency, tmpl.StartDate, tmpl.DayOfMonth, tmpl.DayOfWeek, s.clock.Now())
	}
	if input.IsActive != nil {
		tmpl.IsActive = *input.IsActive
	}
	if tmpl.IsActive {
		tmpl.IsActive = withinEndDate(tmpl.NextDueDate, tmpl.EndDate)
	}

	updated, err := s.repo.Update(ctx, userId, tmpl)
	if err != nil {
		return Template{}, err
	}
	if !updated {
		return Template{}, ErrTemplateNotFound
	}
	s.publishChanged(ctx, tmpl)
	return tmpl, nil
}

func (s *ServiceImpl) Get(ctx context.Context, id int) (Template, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Template{}, err
	}
	return s.repo.Find(ctx, userId, id)
}

func (s *ServiceImpl) List(ctx context.Context) ([]Template, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.GetAll(ctx, userId)
}

func (s *ServiceImpl) Delete(ctx context.Context, id int) error {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return err
	}
	deleted, err := s.repo.Delete(ctx, userId, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrTemplateNotFound
	}
	return nil
}

func (s *ServiceImpl) ProcessDue(ctx context.Context) (Result, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Result{}, err
	}

	now := s.clock.Now()
	due, err := s.repo.FindDue(ctx, userId, now)
	if err != nil {
		return Result{}, err
	}

	var result Result
	for _, tmpl := range due {
		for tmpl.IsActive && !tmpl.NextDueDate.After(now) && withinEndDate(tmpl.NextDueDate, tmpl.EndDate) {
			entry, err := s.generate(ctx, userId, tmpl)
			if err != nil {
				// One broken template must not stall the rest of the run.
				log.Errorf("generating occurrence for recurring template %d: %v", tmpl.ID, err)
				result.Failures = append(result.Failures, TemplateFailure{TemplateID: tmpl.ID, Err: err})
				break
			}
			result.Generated = append(result.Generated, entry)

			// Re-read so each catch-up iteration starts from persisted state.
			tmpl, err = s.repo.Find(ctx, userId, tmpl.ID)
			if err != nil {
				log.Errorf("reloading recurring template %d: %v", *entry.RecurringID, err)
				result.Failures = append(result.Failures, TemplateFailure{TemplateID: *entry.RecurringID, Err: err})
				break
			}
		}
	}
	return result, nil
}

// generate builds the ledger entry for a template's next due date, advances
// the template past it and persists both atomically.
func (s *ServiceImpl) generate(ctx context.Context, userId int, tmpl Template) (transaction.Transaction, error) {
	templateId := tmpl.ID
	entry := transaction.Transaction{
		Description: tmpl.Description,
		Amount:      tmpl.Amount,
		Kind:        tmpl.Kind,
		Category:    tmpl.Category,
		Date:        tmpl.NextDueDate,
		BudgetID:    tmpl.BudgetID,
		RecurringID: &templateId,
		CreatedAt:   s.clock.Now(),
	}
	if err := transaction.Validate(entry); err != nil {
		return transaction.Transaction{}, err
	}

	advanced := NextDueDate(tmpl.Frequency, tmpl.NextDueDate, tmpl.DayOfMonth, tmpl.DayOfWeek)
	tmpl.LastGeneratedDate = tmpl.NextDueDate
	tmpl.NextDueDate = advanced
	tmpl.IsActive = withinEndDate(advanced, tmpl.EndDate)

	id, err := s.repo.CreateOccurrence(ctx, userId, tmpl, entry)
	if err != nil {
		return transaction.Transaction{}, err
	}
	entry.ID = id
	return entry, nil
}

func (s *ServiceImpl) Upcoming(ctx context.Context, days int) ([]Occurrence, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, err
	}
	if days <= 0 {
		return nil, fmt.Errorf("%w: days must be positive", ErrInvalidTemplate)
	}

	templates, err := s.repo.GetAll(ctx, userId)
	if err != nil {
		return nil, err
	}

	horizon := s.clock.Now().AddDate(0, 0, days)
	var occurrences []Occurrence
	for _, tmpl := range templates {
		if !tmpl.IsActive {
			continue
		}
		due := tmpl.NextDueDate
		for !due.After(horizon) && withinEndDate(due, tmpl.EndDate) {
			occurrences = append(occurrences, Occurrence{
				TemplateID:  tmpl.ID,
				Description: tmpl.Description,
				Amount:      tmpl.Amount,
				Kind:        tmpl.Kind,
				Category:    tmpl.Category,
				BudgetID:    tmpl.BudgetID,
				DueDate:     due,
			})
			due = NextDueDate(tmpl.Frequency, due, tmpl.DayOfMonth, tmpl.DayOfWeek)
		}
	}
	sort.SliceStable(occurrences, func(i, j int) bool {
		return occurrences[i].DueDate.Before(occurrences[j].DueDate)
	})
	return occurrences, nil
}

func (s *ServiceImpl) SkipNext(ctx context.Context, id int) (Template, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Template{}, err
	}

	tmpl, err := s.repo.Find(ctx, userId, id)
	if err != nil {
		return Template{}, err
	}
	if !tmpl.IsActive {
		return Template{}, ErrTemplateInactive
	}

	tmpl.NextDueDate = NextDueDate(tmpl.Frequency, tmpl.NextDueDate, tmpl.DayOfMonth, tmpl.DayOfWeek)
	tmpl.IsActive = withinEndDate(tmpl.NextDueDate, tmpl.EndDate)

	updated, err := s.repo.Update(ctx, userId, tmpl)
	if err != nil {
		return Template{}, err
	}
	if !updated {
		return Template{}, ErrTemplateNotFound
	}
	s.publishChanged(ctx, tmpl)
	return tmpl, nil
}

func validateTemplate(tmpl Template) error {
	if tmpl.Description == "" {
		return fmt.Errorf("%w: description is required", ErrInvalidTemplate)
	}
	if !tmpl.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidTemplate)
	}
	if _, err := transaction.ParseKind(string(tmpl.Kind)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	if _, err := ParseFrequency(string(tmpl.Frequency)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	if tmpl.StartDate.IsZero() {
		return fmt.Errorf("%w: start date is required", ErrInvalidTemplate)
	}
	if !tmpl.EndDate.IsZero() && tmpl.EndDate.Before(tmpl.StartDate) {
		return fmt.Errorf("%w: end date must not be before start date", ErrInvalidTemplate)
	}
	if tmpl.DayOfMonth != nil && (*tmpl.DayOfMonth < 1 || *tmpl.DayOfMonth > 31) {
		return fmt.Errorf("%w: day of month must be between 1 and 31", ErrInvalidTemplate)
	}
	if tmpl.DayOfWeek != nil && (*tmpl.DayOfWeek < time.Sunday || *tmpl.DayOfWeek > time.Saturday) {
		return fmt.Errorf("%w: day of week must be between 0 and 6", ErrInvalidTemplate)
	}
	return nil
}

// withinEndDate reports whether a due date is still inside the template's
// window; a zero end date means open-ended.
func withinEndDate(due time.Time, endDate time.Time) bool {
	return endDate.IsZero() || !due.After(endDate)
}

// applyInput merges a partial update into the template and reports whether
// any schedule-defining field changed.
func applyInput(tmpl *Template, input UpdateInput) bool {
	scheduleChanged := false
	if input.Description != nil {
		tmpl.Description = *input.Description
	}
	if input.Amount != nil {
		tmpl.Amount = *input.Amount
	}
	if input.Kind != nil {
		tmpl.Kind = *input.Kind
	}
	if input.Category != nil {
		tmpl.Category = *input.Category
	}
	if input.Frequency != nil && *input.Frequency != tmpl.Frequency {
		tmpl.Frequency = *input.Frequency
		scheduleChanged = true
	}
	if input.StartDate != nil && !input.StartDate.Equal(tmpl.StartDate) {
		tmpl.StartDate = *input.StartDate
		scheduleChanged = true
	}
	if input.EndDate != nil {
		tmpl.EndDate = *input.EndDate
	}
	if input.DayOfMonth != nil && (tmpl.DayOfMonth == nil || *tmpl.DayOfMonth != *input.DayOfMonth) {
		tmpl.DayOfMonth = input.DayOfMonth
		scheduleChanged = true
	}
	if input.DayOfWeek != nil && (tmpl.DayOfWeek == nil || *tmpl.DayOfWeek != *input.DayOfWeek) {
		tmpl.DayOfWeek = input.DayOfWeek
		scheduleChanged = true
	}
	if input.BudgetID != nil {
		tmpl.BudgetID = input.BudgetID
	}
	return scheduleChanged
}

package app

import (
	"context"
	"database/sql"
	"time"

	"github.com/Nicolas-Jorq/budget-app-sub001/internal/config"
	"github.com/Nicolas-Jorq/budget-app-sub001/internal/event_bus"
	"github.com/Nicolas-Jorq/budget-app-sub001/internal/scheduler"
	"github.com/Nicolas-Jorq/budget-app-sub001/internal/utils"
	"github.com/Nicolas-Jorq/budget-app-sub001/pkg/budget"
	"github.com/Nicolas-Jorq/budget-app-sub001/pkg/insights"
	"github.com/Nicolas-Jorq/budget-app-sub001/pkg/pending"
	"github.com/Nicolas-Jorq/budget-app-sub001/pkg/recurring"
	"github.com/Nicolas-Jorq/budget-app-sub001/pkg/transaction"
	"github.com/Nicolas-Jorq/budget-app-sub001/pkg/user"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	EventBus *event_bus.EventBus

	UserService user.Service
	UserHandler *user.Handler

	BudgetRepo    budget.BudgetRepo
	BudgetService *budget.BudgetServiceImpl
	BudgetHandler *budget.BudgetHandler

	TransactionRepo    transaction.Repository
	TransactionService *transaction.ServiceImpl
	TransactionHandler *transaction.Handler

	RecurringRepo    recurring.Repository
	RecurringService *recurring.ServiceImpl
	RecurringHandler *recurring.Handler

	PendingRepo    pending.Repository
	PendingService *pending.ServiceImpl
	PendingHandler *pending.Handler

	InsightsService *insights.ServiceImpl
	InsightsHandler *insights.Handler

	Scheduler *scheduler.Scheduler

	Clock utils.Clock
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(db *sql.DB, cfg config.Application) *Dependencies {
	deps := &Dependencies{}

	deps.EventBus = event_bus.NewEventBus()
	deps.Clock = &utils.SystemClock{}

	deps.UserService = user.NewUserService(user.NewUserRepo(db))
	deps.UserHandler = user.NewHandler(deps.UserService)

	deps.BudgetRepo = budget.NewBudgetRepo(db)
	deps.BudgetService = budget.NewBudgetService(deps.BudgetRepo)
	deps.BudgetHandler = budget.NewBudgetHandler(deps.BudgetService)

	deps.TransactionRepo = transaction.NewRepository(db)
	deps.TransactionService = transaction.NewService(deps.TransactionRepo, deps.Clock)
	deps.TransactionHandler = transaction.NewHandler(deps.TransactionService)

	deps.RecurringRepo = recurring.NewRepository(db)
	deps.RecurringService = recurring.NewService(deps.RecurringRepo, deps.Clock, deps.EventBus)

	interval := time.Duration(cfg.Scheduler.IntervalSeconds) * time.Second
	deps.Scheduler = scheduler.New(deps.UserService, deps.RecurringService, interval)
	deps.RecurringHandler = recurring.NewHandler(deps.RecurringService, deps.Scheduler)

	deps.PendingRepo = pending.NewRepository(db)
	deps.PendingService = pending.NewService(deps.PendingRepo, deps.TransactionRepo, deps.Clock, deps.EventBus)
	deps.PendingHandler = pending.NewHandler(deps.PendingService)

	deps.InsightsService = insights.NewService(deps.TransactionRepo, deps.Clock)
	deps.InsightsHandler = insights.NewHandler(deps.InsightsService)

	// Schedule changes and batch imports both warrant an early sweep.
	event_bus.SubscribeTyped(deps.EventBus, event_bus.RecurringTemplateChanged,
		func(ctx context.Context, data event_bus.TemplateChanged) error {
			deps.Scheduler.Notify()
			return nil
		})
	event_bus.SubscribeTyped(deps.EventBus, event_bus.PendingBatchImported,
		func(ctx context.Context, data event_bus.BatchImported) error {
			deps.Scheduler.Notify()
			return nil
		})

	return deps
}

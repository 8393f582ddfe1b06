package app

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies) {

	// User management
	r.HandleFunc("/api/user", deps.UserHandler.CreateUser).Methods("POST")
	r.HandleFunc("/api/user", deps.UserHandler.GetAvailableUsers).Methods("GET")
	r.HandleFunc("/api/user/current", deps.UserHandler.CurrentUser).Methods("GET")

	// Budgets
	r.HandleFunc("/api/budget", deps.BudgetHandler.Register).Methods("POST")
	r.HandleFunc("/api/budget", deps.BudgetHandler.GetAll).Methods("GET")
	r.HandleFunc("/api/budget/{id}", deps.BudgetHandler.Get).Methods("GET")
	r.HandleFunc("/api/budget/{id}", deps.BudgetHandler.Update).Methods("PUT")
	r.HandleFunc("/api/budget/{id}", deps.BudgetHandler.Delete).Methods("DELETE")

	// Ledger
	r.HandleFunc("/api/transaction", deps.TransactionHandler.Create).Methods("POST")
	r.HandleFunc("/api/transaction", deps.TransactionHandler.List).Methods("GET")
	r.HandleFunc("/api/transaction/{id}", deps.TransactionHandler.Get).Methods("GET")
	r.HandleFunc("/api/transaction/{id}", deps.TransactionHandler.Delete).Methods("DELETE")

	// Recurring templates
	r.HandleFunc("/api/recurring", deps.RecurringHandler.Create).Methods("POST")
	r.HandleFunc("/api/recurring", deps.RecurringHandler.GetAll).Methods("GET")
	r.HandleFunc("/api/recurring/process", deps.RecurringHandler.ProcessDue).Methods("POST")
	r.HandleFunc("/api/recurring/upcoming", deps.RecurringHandler.Upcoming).Methods("GET")
	r.HandleFunc("/api/recurring/{id}", deps.RecurringHandler.Get).Methods("GET")
	r.HandleFunc("/api/recurring/{id}", deps.RecurringHandler.Update).Methods("PATCH")
	r.HandleFunc("/api/recurring/{id}", deps.RecurringHandler.Delete).Methods("DELETE")
	r.HandleFunc("/api/recurring/{id}/skip", deps.RecurringHandler.SkipNext).Methods("POST")

	// Pending review workflow
	r.HandleFunc("/api/pending/batch", deps.PendingHandler.SubmitBatch).Methods("POST")
	r.HandleFunc("/api/pending/batch/{batchId}", deps.PendingHandler.GetBatch).Methods("GET")
	r.HandleFunc("/api/pending/batch/{batchId}/duplicates", deps.PendingHandler.CheckDuplicates).Methods("POST")
	r.HandleFunc("/api/pending/batch/{batchId}/summary", deps.PendingHandler.Summary).Methods("GET")
	r.HandleFunc("/api/pending/import", deps.PendingHandler.Import).Methods("POST")
	r.HandleFunc("/api/pending/bulk", deps.PendingHandler.Bulk).Methods("POST")
	r.HandleFunc("/api/pending/{id}", deps.PendingHandler.Review).Methods("PATCH")
	r.HandleFunc("/api/pending/{id}/approve", deps.PendingHandler.Approve).Methods("POST")
	r.HandleFunc("/api/pending/{id}/reject", deps.PendingHandler.Reject).Methods("POST")

	// Insights
	r.HandleFunc("/api/insights/spending", deps.InsightsHandler.Spending).Methods("GET")
	r.HandleFunc("/api/insights/anomalies", deps.InsightsHandler.Anomalies).Methods("GET")
}

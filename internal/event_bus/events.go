package event_bus

import "time"

const (
	// RecurringTemplateChanged fires when a template is created or its
	// schedule changes, so the scheduler can pick up new due dates early.
	RecurringTemplateChanged EventType = "recurring.template.changed"
	// PendingBatchImported fires after a statement batch lands in the ledger.
	PendingBatchImported EventType = "pending.batch.imported"
)

type TemplateChanged struct {
	TemplateID  int
	Frequency   string
	NextDueDate time.Time
}

type BatchImported struct {
	BatchID       string
	ImportedCount int
}

package webhook

import "time"

// Processing outcome recorded in the ledger.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Record is one processed webhook delivery. Exactly one record exists per
// distinct webhook id (unique at the storage layer); records are never
// mutated after insertion.
type Record struct {
	WebhookID   string    `db:"webhook_id"`
	EventType   string    `db:"event_type"`
	Status      Status    `db:"status"`
	Payload     string    `db:"payload"`
	ProcessedAt time.Time `db:"processed_at"`
}

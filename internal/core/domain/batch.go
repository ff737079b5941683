package domain

import "time"

type BatchStatus string

const (
	BatchProcessing BatchStatus = "processing"
	BatchEnded      BatchStatus = "ended"
	BatchCanceled   BatchStatus = "canceled"
	BatchExpired    BatchStatus = "expired"
)

// BatchRetentionDays is how long the provider keeps batch results retrievable
// after creation. Reconciliation past this window loses the results.
const BatchRetentionDays = 29

// BatchJob tracks one asynchronous bulk-verification submission. Mutated only
// by the batch orchestrator; one job aggregates N independent requests.
type BatchJob struct {
	ID             string      `json:"id"`
	ProviderID     string      `json:"provider_id"`
	Type           string      `json:"type"`
	Status         BatchStatus `json:"status"`
	TotalCount     int         `json:"total_count"`
	CompletedCount int         `json:"completed_count"`
	FailedCount    int         `json:"failed_count"`
	EstimatedCost  float64     `json:"estimated_cost"`
	CreatedAt      time.Time   `json:"created_at"`
	ExpiresAt      time.Time   `json:"expires_at"`
	CompletedAt    *time.Time  `json:"completed_at,omitempty"`
}

// BatchItem is one verification request inside a bulk submission. The
// correlation id embeds the booking id so results route back to the record.
type BatchItem struct {
	BookingID    string
	FrontImage   string
	BackImage    string
	Jurisdiction string
}

package ports

import (
	"context"

	"github.com/driveon/idverify/internal/core/domain"
)

// VisionModel is the narrow boundary around the external reasoning oracle.
// All thresholds, escalation triggers, and flag policy live outside it.
type VisionModel interface {
	Analyze(ctx context.Context, req domain.AnalysisRequest) (domain.RawAnalysis, error)
}

// VisionBatcher is the bulk-submission side of the vision service.
type VisionBatcher interface {
	CreateBatch(ctx context.Context, requests []domain.BatchRequest) (domain.ProviderBatch, error)
	GetBatch(ctx context.Context, providerID string) (domain.ProviderBatch, error)
	// StreamBatchResults calls fn once per item. fn errors abort the stream.
	StreamBatchResults(ctx context.Context, providerID string, fn func(domain.BatchResultItem) error) error
}

// BookingRepository reads a booking's submitted documents and stated guest
// name, and writes verification outcomes back onto the booking record.
type BookingRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	SaveVerification(ctx context.Context, bookingID string, result *domain.VerificationResult) error
	// ListUnverified surfaces bookings with submitted documents but no
	// verification result yet.
	ListUnverified(ctx context.Context, limit int) ([]domain.Booking, error)
}

// BatchJobRepository persists batch job tracking records.
type BatchJobRepository interface {
	Create(ctx context.Context, job *domain.BatchJob) error
	GetByID(ctx context.Context, id string) (*domain.BatchJob, error)
	Update(ctx context.Context, job *domain.BatchJob) error
}

// BatchEventQueue carries "batch ended" notifications from the webhook
// surface to the reconciliation worker.
type BatchEventQueue interface {
	PublishBatchEnded(ctx context.Context, jobID string) error
	SubscribeBatchEnded(ctx context.Context, handler func(context.Context, string) error) error
}

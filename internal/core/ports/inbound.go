package ports

import (
	"context"

	"github.com/driveon/idverify/internal/core/domain"
)

// DocumentVerifier is the inbound contract for synchronous verification.
type DocumentVerifier interface {
	// VerifyBooking analyzes a booking's submitted documents and persists
	// the result onto the booking record.
	VerifyBooking(ctx context.Context, bookingID string) (*domain.VerificationResult, error)
	// VerifyImages analyzes raw image references without touching storage.
	VerifyImages(ctx context.Context, frontImage, backImage, jurisdictionHint string) (*domain.VerificationResult, error)
}

// BatchProcessor is the inbound contract for asynchronous bulk verification.
type BatchProcessor interface {
	CreateBatch(ctx context.Context, items []domain.BatchItem) (*domain.BatchJob, error)
	CreateFromBacklog(ctx context.Context, limit int) (*domain.BatchJob, error)
	Reconcile(ctx context.Context, jobID string) (*domain.BatchJob, error)
	SyncStatus(ctx context.Context, jobID string) (*domain.BatchJob, error)
}

package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/driveon/idverify/internal/core/analysis"
	"github.com/driveon/idverify/internal/core/domain"
	"github.com/driveon/idverify/internal/core/ports"
)

const (
	batchJobType = "document-verification"

	// correlationPrefix tags every batch item with a deterministic,
	// reversible route back to its booking.
	correlationPrefix = "verify-"

	// Per-item token estimates for the cost projection. Two downscaled
	// license photos plus instructions on input, one schema object out.
	estimatedInputTokensPerItem  = 4500
	estimatedOutputTokensPerItem = 700

	// Batch pricing per million tokens, already discounted for the
	// asynchronous tier.
	batchInputCostPerMTok  = 1.50
	batchOutputCostPerMTok = 7.50
)

// ReconcileRecorder receives batch telemetry.
type ReconcileRecorder interface {
	RecordReconcile(succeeded, failed int)
}

// BatchUseCase fans many verification requests into one asynchronous
// provider job and later reconciles per-item results onto their bookings.
type BatchUseCase struct {
	batcher  ports.VisionBatcher
	bookings ports.BookingRepository
	jobs     ports.BatchJobRepository
	builder  *analysis.Builder
	logger   *slog.Logger
	recorder ReconcileRecorder
	now      func() time.Time
	newID    func() string
}

func NewBatchUseCase(
	batcher ports.VisionBatcher,
	bookings ports.BookingRepository,
	jobs ports.BatchJobRepository,
	builder *analysis.Builder,
	logger *slog.Logger,
	recorder ReconcileRecorder,
) *BatchUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchUseCase{
		batcher:  batcher,
		bookings: bookings,
		jobs:     jobs,
		builder:  builder,
		logger:   logger,
		recorder: recorder,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// CreateBatch submits one provider batch covering every item and persists a
// tracking record with the cost estimate and retention deadline.
func (uc *BatchUseCase) CreateBatch(ctx context.Context, items []domain.BatchItem) (*domain.BatchJob, error) {
	if len(items) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "create batch", fmt.Errorf("no items to submit"))
	}

	now := uc.now()
	system := uc.builder.System()
	schema := analysis.OutputSchema()

	requests := make([]domain.BatchRequest, 0, len(items))
	for _, item := range items {
		requests = append(requests, domain.BatchRequest{
			CorrelationID: correlationID(item.BookingID),
			Request: domain.AnalysisRequest{
				System:    system,
				Blocks:    uc.builder.Build(item.FrontImage, item.BackImage, item.Jurisdiction, now),
				Schema:    schema,
				MaxTokens: primaryMaxTokens,
			},
		})
	}

	provider, err := uc.batcher.CreateBatch(ctx, requests)
	if err != nil {
		return nil, fmt.Errorf("submit batch: %w", err)
	}

	expiresAt := provider.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = now.AddDate(0, 0, domain.BatchRetentionDays)
	}

	job := &domain.BatchJob{
		ID:            uc.newID(),
		ProviderID:    provider.ID,
		Type:          batchJobType,
		Status:        domain.BatchProcessing,
		TotalCount:    len(items),
		EstimatedCost: estimateBatchCost(len(items)),
		CreatedAt:     now,
		ExpiresAt:     expiresAt,
	}
	if err := uc.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("persist batch job: %w", err)
	}

	uc.logger.Info("batch_created",
		"job_id", job.ID,
		"provider_id", job.ProviderID,
		"items", job.TotalCount,
		"estimated_cost_usd", job.EstimatedCost,
	)
	return job, nil
}

// CreateFromBacklog submits a batch over bookings that have documents but no
// verification result yet.
func (uc *BatchUseCase) CreateFromBacklog(ctx context.Context, limit int) (*domain.BatchJob, error) {
	backlog, err := uc.bookings.ListUnverified(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list backlog: %w", err)
	}
	if len(backlog) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "create from backlog", fmt.Errorf("backlog is empty"))
	}

	items := make([]domain.BatchItem, 0, len(backlog))
	for _, booking := range backlog {
		items = append(items, domain.BatchItem{
			BookingID:    booking.ID,
			FrontImage:   booking.DocumentFront,
			BackImage:    booking.DocumentBack,
			Jurisdiction: booking.Jurisdiction,
		})
	}
	return uc.CreateBatch(ctx, items)
}

// Reconcile streams per-item results and persists each verification onto its
// booking. One item's failure never aborts the rest; every write targets a
// distinct booking, so replays are idempotent.
func (uc *BatchUseCase) Reconcile(ctx context.Context, jobID string) (*domain.BatchJob, error) {
	job, err := uc.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("load batch job: %w", err)
	}

	var completed, failed int
	err = uc.batcher.StreamBatchResults(ctx, job.ProviderID, func(item domain.BatchResultItem) error {
		bookingID, ok := bookingIDFromCorrelation(item.CorrelationID)
		if !ok {
			failed++
			uc.logger.Warn("batch_item_unroutable", "job_id", jobID, "correlation_id", item.CorrelationID)
			return nil
		}
		if !item.Succeeded {
			failed++
			uc.logger.Warn("batch_item_failed", "job_id", jobID, "booking_id", bookingID, "error", item.Error)
			return nil
		}

		result := interpretAnalysis(item.Output, domain.PathBatch)
		if !result.Success {
			failed++
			uc.logger.Warn("batch_item_unparseable", "job_id", jobID, "booking_id", bookingID, "flags", result.CriticalFlags)
			return nil
		}

		if err := uc.bookings.SaveVerification(ctx, bookingID, result); err != nil {
			failed++
			uc.logger.Error("batch_item_persist_failed", "job_id", jobID, "booking_id", bookingID, "error", err)
			return nil
		}
		completed++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("stream batch results: %w", err)
	}

	completedAt := uc.now()
	job.Status = domain.BatchEnded
	job.CompletedCount = completed
	job.FailedCount = failed
	job.CompletedAt = &completedAt
	if err := uc.jobs.Update(ctx, job); err != nil {
		return nil, fmt.Errorf("finalize batch job: %w", err)
	}

	if uc.recorder != nil {
		uc.recorder.RecordReconcile(completed, failed)
	}
	uc.logger.Info("batch_reconciled", "job_id", jobID, "completed", completed, "failed", failed)
	return job, nil
}

// SyncStatus mirrors the provider's point-in-time counts onto the stored job
// without requiring reconciliation to have run.
func (uc *BatchUseCase) SyncStatus(ctx context.Context, jobID string) (*domain.BatchJob, error) {
	job, err := uc.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("load batch job: %w", err)
	}

	provider, err := uc.batcher.GetBatch(ctx, job.ProviderID)
	if err != nil {
		return nil, fmt.Errorf("query provider batch: %w", err)
	}

	job.Status = provider.Status
	job.CompletedCount = provider.Succeeded
	job.FailedCount = provider.Errored
	if !provider.ExpiresAt.IsZero() {
		job.ExpiresAt = provider.ExpiresAt
	}
	if provider.EndedAt != nil && job.CompletedAt == nil {
		job.CompletedAt = provider.EndedAt
	}
	if err := uc.jobs.Update(ctx, job); err != nil {
		return nil, fmt.Errorf("update batch job: %w", err)
	}
	return job, nil
}

func correlationID(bookingID string) string {
	return correlationPrefix + bookingID
}

func bookingIDFromCorrelation(correlation string) (string, bool) {
	id, ok := strings.CutPrefix(correlation, correlationPrefix)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

func estimateBatchCost(items int) float64 {
	inputTokens := float64(items * estimatedInputTokensPerItem)
	outputTokens := float64(items * estimatedOutputTokensPerItem)
	return inputTokens/1e6*batchInputCostPerMTok + outputTokens/1e6*batchOutputCostPerMTok
}

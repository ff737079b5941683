package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/driveon/idverify/internal/core/analysis"
	"github.com/driveon/idverify/internal/core/domain"
	"github.com/driveon/idverify/internal/core/ports"
)

const (
	// escalationConfidenceThreshold triggers the second pass; it coincides
	// with the validity threshold so anything the model is unsure about gets
	// one chance at a deeper look before failing validity.
	escalationConfidenceThreshold = domain.ValidityConfidenceThreshold

	primaryMaxTokens        = 2048
	escalatedMaxTokens      = 8192
	escalatedThinkingBudget = 4096
)

// UsageRecorder receives cost/usage telemetry. Not part of the functional
// contract; implementations must be safe for concurrent use.
type UsageRecorder interface {
	RecordAnalysis(path domain.VerificationPath, model string, usage domain.TokenUsage, duration time.Duration, err error)
	RecordEscalation(outcome string)
}

// NoopRecorder discards telemetry.
type NoopRecorder struct{}

func (NoopRecorder) RecordAnalysis(domain.VerificationPath, string, domain.TokenUsage, time.Duration, error) {
}
func (NoopRecorder) RecordEscalation(string) {}

// VerifyUseCase runs the synchronous verification path: one schema-
// constrained primary pass, plus at most one best-effort escalated pass when
// the model signals uncertainty without asserting fraud.
type VerifyUseCase struct {
	vision   ports.VisionModel
	bookings ports.BookingRepository
	builder  *analysis.Builder
	recorder UsageRecorder
	now      func() time.Time
}

func NewVerifyUseCase(
	vision ports.VisionModel,
	bookings ports.BookingRepository,
	builder *analysis.Builder,
	recorder UsageRecorder,
) *VerifyUseCase {
	if recorder == nil {
		recorder = NoopRecorder{}
	}
	return &VerifyUseCase{
		vision:   vision,
		bookings: bookings,
		builder:  builder,
		recorder: recorder,
		now:      time.Now,
	}
}

// VerifyBooking analyzes a booking's submitted documents against its stated
// guest name and persists the outcome onto the booking record.
func (uc *VerifyUseCase) VerifyBooking(ctx context.Context, bookingID string) (*domain.VerificationResult, error) {
	booking, err := uc.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("load booking: %w", err)
	}
	if booking.DocumentFront == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "verify booking", fmt.Errorf("booking %s has no submitted document", bookingID))
	}

	result, err := uc.VerifyImages(ctx, booking.DocumentFront, booking.DocumentBack, booking.Jurisdiction)
	if err != nil {
		return nil, err
	}

	if err := uc.bookings.SaveVerification(ctx, bookingID, result); err != nil {
		return nil, fmt.Errorf("persist verification: %w", err)
	}
	return result, nil
}

// VerifyImages runs the two-pass state machine over raw image references.
// Transport and parse failures surface as structured failure results, never
// as errors.
func (uc *VerifyUseCase) VerifyImages(ctx context.Context, frontImage, backImage, jurisdictionHint string) (*domain.VerificationResult, error) {
	if frontImage == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "verify images", fmt.Errorf("front image reference is required"))
	}

	system := uc.builder.System()
	blocks := uc.builder.Build(frontImage, backImage, jurisdictionHint, uc.now())

	primary := uc.analyze(ctx, domain.AnalysisRequest{
		System:    system,
		Blocks:    blocks,
		Schema:    analysis.OutputSchema(),
		MaxTokens: primaryMaxTokens,
	}, domain.PathPrimary)

	if !shouldEscalate(primary) {
		return primary, nil
	}

	escalated := uc.analyze(ctx, domain.AnalysisRequest{
		System:         system,
		Blocks:         blocks,
		MaxTokens:      escalatedMaxTokens,
		ThinkingBudget: escalatedThinkingBudget,
	}, domain.PathEscalated)

	// The escalated pass is a best-effort upgrade: it wins only on strictly
	// higher confidence, and any failure leaves the primary result standing.
	if escalated.Success && escalated.Confidence > primary.Confidence {
		uc.recorder.RecordEscalation("upgraded")
		return escalated, nil
	}
	uc.recorder.RecordEscalation("kept_primary")
	return primary, nil
}

func (uc *VerifyUseCase) analyze(ctx context.Context, req domain.AnalysisRequest, path domain.VerificationPath) *domain.VerificationResult {
	started := uc.now()
	raw, err := uc.vision.Analyze(ctx, req)
	uc.recorder.RecordAnalysis(path, raw.Model, raw.Usage, time.Since(started), err)
	if err != nil {
		return failureResult(fmt.Sprintf("vision analysis failed: %v", err), path, raw.Model)
	}
	return interpretAnalysis(raw, path)
}

// shouldEscalate fires only when the model itself signals uncertainty
// without asserting fraud: low confidence and zero critical flags.
func shouldEscalate(result *domain.VerificationResult) bool {
	return result.Confidence < escalationConfidenceThreshold && len(result.CriticalFlags) == 0
}

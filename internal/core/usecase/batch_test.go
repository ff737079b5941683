package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/driveon/idverify/internal/core/domain"
)

type batcherFake struct {
	created   []domain.BatchRequest
	createErr error
	batch     domain.ProviderBatch
	results   []domain.BatchResultItem
	streamErr error
}

func (f *batcherFake) CreateBatch(_ context.Context, requests []domain.BatchRequest) (domain.ProviderBatch, error) {
	if f.createErr != nil {
		return domain.ProviderBatch{}, f.createErr
	}
	f.created = requests
	if f.batch.ID == "" {
		f.batch.ID = "msgbatch_test"
	}
	return f.batch, nil
}

func (f *batcherFake) GetBatch(_ context.Context, _ string) (domain.ProviderBatch, error) {
	return f.batch, nil
}

func (f *batcherFake) StreamBatchResults(_ context.Context, _ string, fn func(domain.BatchResultItem) error) error {
	if f.streamErr != nil {
		return f.streamErr
	}
	for _, item := range f.results {
		if err := fn(item); err != nil {
			return err
		}
	}
	return nil
}

type jobRepoFake struct {
	jobs      map[string]*domain.BatchJob
	createErr error
}

func newJobRepoFake() *jobRepoFake {
	return &jobRepoFake{jobs: make(map[string]*domain.BatchJob)}
}

func (f *jobRepoFake) Create(_ context.Context, job *domain.BatchJob) error {
	if f.createErr != nil {
		return f.createErr
	}
	copyJob := *job
	f.jobs[job.ID] = &copyJob
	return nil
}

func (f *jobRepoFake) GetByID(_ context.Context, id string) (*domain.BatchJob, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	copyJob := *job
	return &copyJob, nil
}

func (f *jobRepoFake) Update(_ context.Context, job *domain.BatchJob) error {
	copyJob := *job
	f.jobs[job.ID] = &copyJob
	return nil
}

func newBatchUseCase(t *testing.T, batcher *batcherFake, bookings *bookingRepoFake, jobs *jobRepoFake) *BatchUseCase {
	t.Helper()
	uc := NewBatchUseCase(batcher, bookings, jobs, testBuilder(t), slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	uc.now = func() time.Time { return time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC) }
	uc.newID = func() string { return "job-1" }
	return uc
}

func TestCreateBatchSubmitsCorrelatedRequests(t *testing.T) {
	batcher := &batcherFake{}
	jobs := newJobRepoFake()
	uc := newBatchUseCase(t, batcher, newBookingRepoFake(), jobs)

	items := []domain.BatchItem{
		{BookingID: "b-1", FrontImage: "f1.jpg", BackImage: "r1.jpg", Jurisdiction: "AZ"},
		{BookingID: "b-2", FrontImage: "f2.jpg"},
	}
	job, err := uc.CreateBatch(context.Background(), items)
	if err != nil {
		t.Fatalf("CreateBatch() error = %v", err)
	}

	if len(batcher.created) != 2 {
		t.Fatalf("expected 2 submitted requests, got %d", len(batcher.created))
	}
	if batcher.created[0].CorrelationID != "verify-b-1" || batcher.created[1].CorrelationID != "verify-b-2" {
		t.Fatalf("unexpected correlation ids: %s, %s", batcher.created[0].CorrelationID, batcher.created[1].CorrelationID)
	}
	for _, req := range batcher.created {
		if req.Request.Schema == nil {
			t.Fatalf("batch items must use the schema-constrained request shape")
		}
	}

	if job.TotalCount != 2 || job.Status != domain.BatchProcessing {
		t.Fatalf("unexpected job: %+v", job)
	}
	if job.EstimatedCost <= 0 {
		t.Fatalf("expected positive cost estimate, got %v", job.EstimatedCost)
	}
	wantExpiry := uc.now().AddDate(0, 0, domain.BatchRetentionDays)
	if !job.ExpiresAt.Equal(wantExpiry) {
		t.Fatalf("expires at %v, want %v", job.ExpiresAt, wantExpiry)
	}
	if _, ok := jobs.jobs["job-1"]; !ok {
		t.Fatalf("expected job persisted")
	}
}

func TestCreateBatchRejectsEmptyInput(t *testing.T) {
	uc := newBatchUseCase(t, &batcherFake{}, newBookingRepoFake(), newJobRepoFake())
	if _, err := uc.CreateBatch(context.Background(), nil); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestCreateFromBacklogUsesUnverifiedBookings(t *testing.T) {
	batcher := &batcherFake{}
	bookings := newBookingRepoFake()
	bookings.backlog = []domain.Booking{
		{ID: "b-7", DocumentFront: "f7.jpg", Jurisdiction: "CA"},
		{ID: "b-8", DocumentFront: "f8.jpg", DocumentBack: "r8.jpg"},
	}
	uc := newBatchUseCase(t, batcher, bookings, newJobRepoFake())

	job, err := uc.CreateFromBacklog(context.Background(), 10)
	if err != nil {
		t.Fatalf("CreateFromBacklog() error = %v", err)
	}
	if job.TotalCount != 2 {
		t.Fatalf("expected 2 items, got %d", job.TotalCount)
	}
	if batcher.created[1].CorrelationID != "verify-b-8" {
		t.Fatalf("unexpected correlation id %s", batcher.created[1].CorrelationID)
	}
}

func TestCreateFromBacklogEmptyIsInvalidInput(t *testing.T) {
	uc := newBatchUseCase(t, &batcherFake{}, newBookingRepoFake(), newJobRepoFake())
	if _, err := uc.CreateFromBacklog(context.Background(), 10); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestReconcileIsolatesPerItemFailures(t *testing.T) {
	good1 := modelOutput(t, 90, true, false, []string{}, []string{})
	good2 := modelOutput(t, 85, true, false, []string{}, []string{})

	batcher := &batcherFake{results: []domain.BatchResultItem{
		{CorrelationID: "verify-b-1", Succeeded: true, Output: good1},
		{CorrelationID: "verify-b-2", Succeeded: true, Output: domain.RawAnalysis{Text: "garbled, not an object"}},
		{CorrelationID: "verify-b-3", Succeeded: true, Output: good2},
	}}
	bookings := newBookingRepoFake()
	jobs := newJobRepoFake()
	jobs.jobs["job-1"] = &domain.BatchJob{ID: "job-1", ProviderID: "msgbatch_test", TotalCount: 3, Status: domain.BatchProcessing}

	uc := newBatchUseCase(t, batcher, bookings, jobs)
	job, err := uc.Reconcile(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	if len(bookings.saved) != 2 {
		t.Fatalf("expected 2 bookings updated, got %d", len(bookings.saved))
	}
	if _, ok := bookings.saved["b-2"]; ok {
		t.Fatalf("malformed item must not be persisted")
	}
	if job.CompletedCount != 2 || job.FailedCount != 1 {
		t.Fatalf("counts = %d/%d, want 2/1", job.CompletedCount, job.FailedCount)
	}
	if job.Status != domain.BatchEnded || job.CompletedAt == nil {
		t.Fatalf("expected ended job with completion time: %+v", job)
	}
	if bookings.saved["b-1"].Path != domain.PathBatch {
		t.Fatalf("expected batch path on persisted result")
	}
}

func TestReconcileCountsProviderFailuresAndBadCorrelations(t *testing.T) {
	good := modelOutput(t, 90, true, false, []string{}, []string{})
	batcher := &batcherFake{results: []domain.BatchResultItem{
		{CorrelationID: "verify-b-1", Succeeded: false, Error: "item errored"},
		{CorrelationID: "unrelated-id", Succeeded: true, Output: good},
		{CorrelationID: "verify-b-2", Succeeded: true, Output: good},
	}}
	bookings := newBookingRepoFake()
	jobs := newJobRepoFake()
	jobs.jobs["job-1"] = &domain.BatchJob{ID: "job-1", ProviderID: "msgbatch_test", TotalCount: 3}

	uc := newBatchUseCase(t, batcher, bookings, jobs)
	job, err := uc.Reconcile(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if job.CompletedCount != 1 || job.FailedCount != 2 {
		t.Fatalf("counts = %d/%d, want 1/2", job.CompletedCount, job.FailedCount)
	}
}

func TestReconcileStreamErrorSurfaces(t *testing.T) {
	batcher := &batcherFake{streamErr: errors.New("results expired")}
	jobs := newJobRepoFake()
	jobs.jobs["job-1"] = &domain.BatchJob{ID: "job-1", ProviderID: "msgbatch_test"}

	uc := newBatchUseCase(t, batcher, newBookingRepoFake(), jobs)
	if _, err := uc.Reconcile(context.Background(), "job-1"); err == nil || !strings.Contains(err.Error(), "results expired") {
		t.Fatalf("expected stream error to surface, got %v", err)
	}
}

func TestSyncStatusMirrorsProviderCounts(t *testing.T) {
	endedAt := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	batcher := &batcherFake{batch: domain.ProviderBatch{
		ID:        "msgbatch_test",
		Status:    domain.BatchEnded,
		Succeeded: 7,
		Errored:   1,
		ExpiresAt: time.Date(2026, 9, 29, 12, 0, 0, 0, time.UTC),
		EndedAt:   &endedAt,
	}}
	jobs := newJobRepoFake()
	jobs.jobs["job-1"] = &domain.BatchJob{ID: "job-1", ProviderID: "msgbatch_test", TotalCount: 8, Status: domain.BatchProcessing}

	uc := newBatchUseCase(t, batcher, newBookingRepoFake(), jobs)
	job, err := uc.SyncStatus(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("SyncStatus() error = %v", err)
	}
	if job.Status != domain.BatchEnded || job.CompletedCount != 7 || job.FailedCount != 1 {
		t.Fatalf("unexpected mirrored job: %+v", job)
	}
	if job.CompletedAt == nil || !job.CompletedAt.Equal(endedAt) {
		t.Fatalf("expected provider completion time mirrored")
	}
}

package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/driveon/idverify/internal/core/domain"
)

type verifierFake struct {
	bookingResult *domain.VerificationResult
	imagesResult  *domain.VerificationResult
	err           error
}

func (f *verifierFake) VerifyBooking(_ context.Context, _ string) (*domain.VerificationResult, error) {
	return f.bookingResult, f.err
}

func (f *verifierFake) VerifyImages(_ context.Context, _, _, _ string) (*domain.VerificationResult, error) {
	return f.imagesResult, f.err
}

type batchProcessorFake struct {
	job         *domain.BatchJob
	err         error
	gotItems    []domain.BatchItem
	gotLimit    int
	reconciled  []string
	syncedJobs  []string
	fromBacklog bool
}

func (f *batchProcessorFake) CreateBatch(_ context.Context, items []domain.BatchItem) (*domain.BatchJob, error) {
	f.gotItems = items
	return f.job, f.err
}

func (f *batchProcessorFake) CreateFromBacklog(_ context.Context, limit int) (*domain.BatchJob, error) {
	f.fromBacklog = true
	f.gotLimit = limit
	return f.job, f.err
}

func (f *batchProcessorFake) Reconcile(_ context.Context, jobID string) (*domain.BatchJob, error) {
	f.reconciled = append(f.reconciled, jobID)
	return f.job, f.err
}

func (f *batchProcessorFake) SyncStatus(_ context.Context, jobID string) (*domain.BatchJob, error) {
	f.syncedJobs = append(f.syncedJobs, jobID)
	return f.job, f.err
}

type bookingRepoFake struct {
	bookings map[string]*domain.Booking
}

func (f *bookingRepoFake) GetByID(_ context.Context, id string) (*domain.Booking, error) {
	booking, ok := f.bookings[id]
	if !ok {
		return nil, fmt.Errorf("%w: id=%s", domain.ErrBookingNotFound, id)
	}
	return booking, nil
}

func (f *bookingRepoFake) SaveVerification(_ context.Context, _ string, _ *domain.VerificationResult) error {
	return nil
}

func (f *bookingRepoFake) ListUnverified(_ context.Context, _ int) ([]domain.Booking, error) {
	return nil, nil
}

type jobRepoFake struct {
	jobs map[string]*domain.BatchJob
}

func (f *jobRepoFake) Create(_ context.Context, _ *domain.BatchJob) error { return nil }

func (f *jobRepoFake) GetByID(_ context.Context, id string) (*domain.BatchJob, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: id=%s", domain.ErrJobNotFound, id)
	}
	return job, nil
}

func (f *jobRepoFake) Update(_ context.Context, _ *domain.BatchJob) error { return nil }

type eventQueueFake struct {
	published []string
	err       error
}

func (f *eventQueueFake) PublishBatchEnded(_ context.Context, jobID string) error {
	f.published = append(f.published, jobID)
	return f.err
}

func (f *eventQueueFake) SubscribeBatchEnded(_ context.Context, _ func(context.Context, string) error) error {
	return nil
}

type testDeps struct {
	verifier *verifierFake
	batches  *batchProcessorFake
	bookings *bookingRepoFake
	jobs     *jobRepoFake
	events   *eventQueueFake
}

func newTestRouter(deps testDeps) http.Handler {
	if deps.verifier == nil {
		deps.verifier = &verifierFake{}
	}
	if deps.batches == nil {
		deps.batches = &batchProcessorFake{}
	}
	if deps.bookings == nil {
		deps.bookings = &bookingRepoFake{bookings: map[string]*domain.Booking{}}
	}
	if deps.jobs == nil {
		deps.jobs = &jobRepoFake{jobs: map[string]*domain.BatchJob{}}
	}
	if deps.events == nil {
		deps.events = &eventQueueFake{}
	}
	return NewRouter(deps.verifier, deps.batches, deps.bookings, deps.jobs, deps.events, TrafficConfig{}).Handler()
}

func postJSONRequest(t *testing.T, handler http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestCreateVerificationForBookingComparesNames(t *testing.T) {
	verifier := &verifierFake{bookingResult: &domain.VerificationResult{
		Success:    true,
		Confidence: 90,
		IsValid:    true,
		Fields: domain.ExtractedFields{
			FullName: domain.ExtractedField{Value: "John Alan Doe", Confidence: 95},
		},
	}}
	bookings := &bookingRepoFake{bookings: map[string]*domain.Booking{
		"b-1": {ID: "b-1", GuestName: "John Doe", DocumentFront: "front.jpg"},
	}}
	handler := newTestRouter(testDeps{verifier: verifier, bookings: bookings})

	res := postJSONRequest(t, handler, "/v1/verifications", map[string]string{"booking_id": "b-1"})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	var payload verificationResponse
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Result == nil || !payload.Result.IsValid {
		t.Fatalf("unexpected result: %+v", payload.Result)
	}
	if payload.NameComparison == nil || !payload.NameComparison.Match {
		t.Fatalf("expected a matching name comparison, got %+v", payload.NameComparison)
	}
}

func TestCreateVerificationUnknownBookingReturns404(t *testing.T) {
	handler := newTestRouter(testDeps{})

	res := postJSONRequest(t, handler, "/v1/verifications", map[string]string{"booking_id": "missing"})
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestCreateVerificationWithRawImages(t *testing.T) {
	verifier := &verifierFake{imagesResult: &domain.VerificationResult{Success: true, Confidence: 80}}
	handler := newTestRouter(testDeps{verifier: verifier})

	res := postJSONRequest(t, handler, "/v1/verifications", map[string]string{
		"front_image":  "https://img.example/front.jpg",
		"jurisdiction": "AZ",
	})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	var payload verificationResponse
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.NameComparison != nil {
		t.Fatalf("raw-image verification has no booking name to compare")
	}
}

func TestCreateVerificationRequiresInput(t *testing.T) {
	handler := newTestRouter(testDeps{})

	res := postJSONRequest(t, handler, "/v1/verifications", map[string]string{})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestCreateBatchFromItems(t *testing.T) {
	batches := &batchProcessorFake{job: &domain.BatchJob{ID: "job-1", TotalCount: 2}}
	handler := newTestRouter(testDeps{batches: batches})

	res := postJSONRequest(t, handler, "/v1/batches", map[string]any{
		"items": []map[string]string{
			{"booking_id": "b-1", "front_image": "f1.jpg"},
			{"booking_id": "b-2", "front_image": "f2.jpg", "back_image": "b2.jpg"},
		},
	})
	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", res.Code, res.Body.String())
	}
	if len(batches.gotItems) != 2 || batches.gotItems[1].BackImage != "b2.jpg" {
		t.Fatalf("unexpected items: %+v", batches.gotItems)
	}
}

func TestCreateBatchFromBacklog(t *testing.T) {
	batches := &batchProcessorFake{job: &domain.BatchJob{ID: "job-1"}}
	handler := newTestRouter(testDeps{batches: batches})

	res := postJSONRequest(t, handler, "/v1/batches", map[string]any{"from_backlog": true, "limit": 25})
	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", res.Code)
	}
	if !batches.fromBacklog || batches.gotLimit != 25 {
		t.Fatalf("expected backlog submission with limit 25, got %+v", batches)
	}
}

func TestGetBatchReadsStoredJob(t *testing.T) {
	jobs := &jobRepoFake{jobs: map[string]*domain.BatchJob{
		"job-1": {ID: "job-1", Status: domain.BatchProcessing, TotalCount: 3},
	}}
	batches := &batchProcessorFake{}
	handler := newTestRouter(testDeps{jobs: jobs, batches: batches})

	req := httptest.NewRequest(http.MethodGet, "/v1/batches/job-1", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if len(batches.syncedJobs) != 0 {
		t.Fatalf("plain GET must not hit the provider")
	}
}

func TestGetBatchRefreshSyncsProvider(t *testing.T) {
	batches := &batchProcessorFake{job: &domain.BatchJob{ID: "job-1", Status: domain.BatchEnded}}
	handler := newTestRouter(testDeps{batches: batches})

	req := httptest.NewRequest(http.MethodGet, "/v1/batches/job-1?refresh=true", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if len(batches.syncedJobs) != 1 || batches.syncedJobs[0] != "job-1" {
		t.Fatalf("expected a provider sync, got %v", batches.syncedJobs)
	}
}

func TestGetBatchUnknownJobReturns404(t *testing.T) {
	handler := newTestRouter(testDeps{})

	req := httptest.NewRequest(http.MethodGet, "/v1/batches/missing", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestReconcileBatch(t *testing.T) {
	batches := &batchProcessorFake{job: &domain.BatchJob{ID: "job-1", Status: domain.BatchEnded, CompletedCount: 2}}
	handler := newTestRouter(testDeps{batches: batches})

	res := postJSONRequest(t, handler, "/v1/batches/job-1/reconcile", map[string]string{})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if len(batches.reconciled) != 1 || batches.reconciled[0] != "job-1" {
		t.Fatalf("expected reconcile of job-1, got %v", batches.reconciled)
	}
}

func TestBatchWebhookQueuesJob(t *testing.T) {
	events := &eventQueueFake{}
	handler := newTestRouter(testDeps{events: events})

	res := postJSONRequest(t, handler, "/v1/webhooks/batch", map[string]string{"job_id": "job-1"})
	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", res.Code)
	}
	if len(events.published) != 1 || events.published[0] != "job-1" {
		t.Fatalf("expected job-1 published, got %v", events.published)
	}
}

func TestBatchWebhookRequiresJobID(t *testing.T) {
	events := &eventQueueFake{}
	handler := newTestRouter(testDeps{events: events})

	res := postJSONRequest(t, handler, "/v1/webhooks/batch", map[string]string{})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if len(events.published) != 0 {
		t.Fatalf("nothing should be published on bad input")
	}
}

func TestHealthz(t *testing.T) {
	handler := newTestRouter(testDeps{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected a request id header on every response")
	}
}

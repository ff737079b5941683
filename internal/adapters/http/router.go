package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/driveon/idverify/internal/core/domain"
	"github.com/driveon/idverify/internal/core/namematch"
	"github.com/driveon/idverify/internal/core/ports"
)

type Router struct {
	verifier ports.DocumentVerifier
	batches  ports.BatchProcessor
	bookings ports.BookingRepository
	jobs     ports.BatchJobRepository
	events   ports.BatchEventQueue
	traffic  TrafficConfig
}

func NewRouter(
	verifier ports.DocumentVerifier,
	batches ports.BatchProcessor,
	bookings ports.BookingRepository,
	jobs ports.BatchJobRepository,
	events ports.BatchEventQueue,
	traffic TrafficConfig,
) *Router {
	return &Router{
		verifier: verifier,
		batches:  batches,
		bookings: bookings,
		jobs:     jobs,
		events:   events,
		traffic:  traffic,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/verifications", rt.createVerification)
	mux.HandleFunc("/v1/batches", rt.createBatch)
	mux.HandleFunc("/v1/batches/", rt.batchByID)
	mux.HandleFunc("/v1/webhooks/batch", rt.batchWebhook)

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.traffic.maxInFlight(), rt.traffic.maxInFlightWait())
	if rt.traffic.RateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.traffic.RateLimitRPS, rt.traffic.rateLimitBurst())
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type verificationRequest struct {
	BookingID    string `json:"booking_id"`
	FrontImage   string `json:"front_image"`
	BackImage    string `json:"back_image"`
	Jurisdiction string `json:"jurisdiction"`
}

type verificationResponse struct {
	Result         *domain.VerificationResult   `json:"result"`
	NameComparison *domain.NameComparisonResult `json:"name_comparison,omitempty"`
}

// createVerification runs the synchronous verification path. With a booking
// id the outcome is persisted and the extracted name is compared against the
// booking's stated guest name; with raw image references nothing is stored.
func (rt *Router) createVerification(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req verificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	if req.BookingID != "" {
		rt.verifyBooking(w, r, req.BookingID)
		return
	}
	if req.FrontImage == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "booking_id or front_image is required"})
		return
	}

	result, err := rt.verifier.VerifyImages(r.Context(), req.FrontImage, req.BackImage, req.Jurisdiction)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, verificationResponse{Result: result})
}

func (rt *Router) verifyBooking(w http.ResponseWriter, r *http.Request, bookingID string) {
	booking, err := rt.bookings.GetByID(r.Context(), bookingID)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	result, err := rt.verifier.VerifyBooking(r.Context(), bookingID)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	response := verificationResponse{Result: result}
	if result.Fields.FullName.Value != "" && booking.GuestName != "" {
		comparison := namematch.Compare(result.Fields.FullName.Value, booking.GuestName)
		response.NameComparison = &comparison
	}
	writeJSON(w, http.StatusOK, response)
}

type batchCreateRequest struct {
	Items []struct {
		BookingID    string `json:"booking_id"`
		FrontImage   string `json:"front_image"`
		BackImage    string `json:"back_image"`
		Jurisdiction string `json:"jurisdiction"`
	} `json:"items"`
	FromBacklog bool `json:"from_backlog"`
	Limit       int  `json:"limit"`
}

func (rt *Router) createBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req batchCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	var job *domain.BatchJob
	var err error
	if req.FromBacklog {
		limit := req.Limit
		if limit <= 0 {
			limit = 100
		}
		job, err = rt.batches.CreateFromBacklog(r.Context(), limit)
	} else {
		items := make([]domain.BatchItem, 0, len(req.Items))
		for _, item := range req.Items {
			items = append(items, domain.BatchItem{
				BookingID:    item.BookingID,
				FrontImage:   item.FrontImage,
				BackImage:    item.BackImage,
				Jurisdiction: item.Jurisdiction,
			})
		}
		job, err = rt.batches.CreateBatch(r.Context(), items)
	}
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (rt *Router) batchByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/batches/")
	jobID, action, _ := strings.Cut(rest, "/")
	if jobID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "batch job id is required"})
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		rt.getBatch(w, r, jobID)
	case action == "reconcile" && r.Method == http.MethodPost:
		job, err := rt.batches.Reconcile(r.Context(), jobID)
		if err != nil {
			writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, job)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

// getBatch serves the stored job record; ?refresh=true mirrors the provider's
// current counts first.
func (rt *Router) getBatch(w http.ResponseWriter, r *http.Request, jobID string) {
	if r.URL.Query().Get("refresh") == "true" {
		job, err := rt.batches.SyncStatus(r.Context(), jobID)
		if err != nil {
			writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, job)
		return
	}

	job, err := rt.jobs.GetByID(r.Context(), jobID)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, job)
}

type batchWebhookRequest struct {
	JobID string `json:"job_id"`
}

// batchWebhook accepts the provider's completion notification and hands the
// job to the reconciliation worker via the queue. The reply is 202 because
// reconciliation happens asynchronously.
func (rt *Router) batchWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req batchWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.JobID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "job_id is required"})
		return
	}

	if err := rt.events.PublishBatchEnded(r.Context(), req.JobID); err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

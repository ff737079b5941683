package anthropic

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/driveon/idverify/internal/core/domain"
)

// resultScanBuffer bounds one JSONL result line; a full verification object
// with extracted fields stays well under this.
const resultScanBuffer = 1 << 20

// CreateBatch submits every request as one asynchronous provider job. The
// provider processes items in parallel on its own schedule.
func (c *Client) CreateBatch(ctx context.Context, requests []domain.BatchRequest) (domain.ProviderBatch, error) {
	entries := make([]map[string]any, 0, len(requests))
	for _, request := range requests {
		entries = append(entries, map[string]any{
			"custom_id": request.CorrelationID,
			"params":    c.messageParams(request.Request),
		})
	}
	payload := map[string]any{"requests": entries}

	var response batchResponse
	err := c.execute(ctx, "batch_create", func(callCtx context.Context) error {
		return c.postJSON(callCtx, "/v1/messages/batches", payload, &response, "batch_create")
	})
	if err != nil {
		return domain.ProviderBatch{}, err
	}
	return response.toDomain(), nil
}

// GetBatch returns the provider's point-in-time view of a batch.
func (c *Client) GetBatch(ctx context.Context, providerID string) (domain.ProviderBatch, error) {
	var response batchResponse
	err := c.execute(ctx, "batch_get", func(callCtx context.Context) error {
		return c.getJSON(callCtx, "/v1/messages/batches/"+providerID, &response, "batch_get")
	})
	if err != nil {
		return domain.ProviderBatch{}, err
	}
	return response.toDomain(), nil
}

// StreamBatchResults decodes the JSONL results stream one item at a time so
// the caller can persist as it goes. Results are only retrievable until the
// batch's expiration.
func (c *Client) StreamBatchResults(ctx context.Context, providerID string, fn func(domain.BatchResultItem) error) error {
	body, err := c.getStream(ctx, "/v1/messages/batches/"+providerID+"/results", "batch_results")
	if err != nil {
		return err
	}
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), resultScanBuffer)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry batchResultLine
		if err := json.Unmarshal(line, &entry); err != nil {
			return fmt.Errorf("decode batch result line: %w", err)
		}
		if err := fn(entry.toDomain()); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read batch results: %w", err)
	}
	return nil
}

type batchResponse struct {
	ID               string        `json:"id"`
	ProcessingStatus string        `json:"processing_status"`
	RequestCounts    requestCounts `json:"request_counts"`
	ExpiresAt        *time.Time    `json:"expires_at"`
	EndedAt          *time.Time    `json:"ended_at"`
}

type requestCounts struct {
	Processing int `json:"processing"`
	Succeeded  int `json:"succeeded"`
	Errored    int `json:"errored"`
	Canceled   int `json:"canceled"`
	Expired    int `json:"expired"`
}

func (r batchResponse) toDomain() domain.ProviderBatch {
	batch := domain.ProviderBatch{
		ID:         r.ID,
		Status:     batchStatus(r.ProcessingStatus),
		Succeeded:  r.RequestCounts.Succeeded,
		Errored:    r.RequestCounts.Errored + r.RequestCounts.Canceled + r.RequestCounts.Expired,
		Processing: r.RequestCounts.Processing,
		EndedAt:    r.EndedAt,
	}
	batch.Total = batch.Succeeded + batch.Errored + batch.Processing
	if r.ExpiresAt != nil {
		batch.ExpiresAt = *r.ExpiresAt
	}
	return batch
}

func batchStatus(processingStatus string) domain.BatchStatus {
	switch processingStatus {
	case "ended":
		return domain.BatchEnded
	case "canceling":
		return domain.BatchCanceled
	default:
		return domain.BatchProcessing
	}
}

type batchResultLine struct {
	CustomID string      `json:"custom_id"`
	Result   batchResult `json:"result"`
}

type batchResult struct {
	Type    string          `json:"type"`
	Message messageResponse `json:"message"`
	Error   json.RawMessage `json:"error"`
}

func (l batchResultLine) toDomain() domain.BatchResultItem {
	item := domain.BatchResultItem{CorrelationID: l.CustomID}
	if l.Result.Type == "succeeded" {
		item.Succeeded = true
		item.Output = rawAnalysisFromMessage(l.Result.Message)
		return item
	}
	item.Error = l.Result.Type
	if len(l.Result.Error) > 0 {
		item.Error = string(l.Result.Error)
	}
	return item
}

package domain

import "time"

type ContentKind string

const (
	ContentText  ContentKind = "text"
	ContentImage ContentKind = "image"
)

// ContentBlock is one element of the ordered multi-modal request body. It is
// a closed union: construct only through Text and Image so every block has
// exactly one populated variant.
type ContentBlock struct {
	kind ContentKind
	text string
	url  string
}

func Text(text string) ContentBlock {
	return ContentBlock{kind: ContentText, text: text}
}

func Image(url string) ContentBlock {
	return ContentBlock{kind: ContentImage, url: url}
}

func (b ContentBlock) Kind() ContentKind { return b.kind }
func (b ContentBlock) Text() string      { return b.text }
func (b ContentBlock) URL() string       { return b.url }

// OutputSchema is a JSON-schema document the model output must conform to.
type OutputSchema map[string]any

// AnalysisRequest is one request to the vision model. Schema nil means the
// response is free-form text rather than schema-constrained output.
type AnalysisRequest struct {
	System         string
	Blocks         []ContentBlock
	Schema         OutputSchema
	MaxTokens      int
	ThinkingBudget int
}

// TokenUsage is the provider's usage accounting for one request. Telemetry
// only; never part of the functional contract.
type TokenUsage struct {
	InputTokens      int
	OutputTokens     int
	CacheReadTokens  int
	CacheWriteTokens int
}

// RawAnalysis is the model's response before interpretation.
type RawAnalysis struct {
	Text  string
	Model string
	Usage TokenUsage
}

// BatchRequest pairs one analysis request with the caller's correlation id.
type BatchRequest struct {
	CorrelationID string
	Request       AnalysisRequest
}

// BatchResultItem is one per-item outcome streamed back from a provider batch.
type BatchResultItem struct {
	CorrelationID string
	Succeeded     bool
	Output        RawAnalysis
	Error         string
}

// ProviderBatch is the provider's point-in-time view of a submitted batch.
type ProviderBatch struct {
	ID         string
	Status     BatchStatus
	Total      int
	Succeeded  int
	Errored    int
	Processing int
	ExpiresAt  time.Time
	EndedAt    *time.Time
}

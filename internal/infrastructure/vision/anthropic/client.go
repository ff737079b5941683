// Package anthropic implements the vision-model ports against an
// Anthropic-style Messages API: multi-modal content blocks, forced-tool
// structured output for the schema-constrained pass, extended thinking for
// the escalated pass, and the message-batches endpoints for bulk work.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/driveon/idverify/internal/core/domain"
	"github.com/driveon/idverify/internal/infrastructure/resilience"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	apiVersion     = "2023-06-01"

	// verificationTool is the forced tool whose input schema constrains the
	// primary pass; its "input" comes back as the verification object.
	verificationTool = "record_verification"
)

type Config struct {
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
	Executor *resilience.Executor
}

type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

// New validates credentials up front: a missing key is a configuration
// failure and the client refuses to construct rather than degrade silently.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, domain.WrapError(domain.ErrConfiguration, "anthropic client", fmt.Errorf("api key is required"))
	}
	if cfg.Model == "" {
		return nil, domain.WrapError(domain.ErrConfiguration, "anthropic client", fmt.Errorf("model identifier is required"))
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeout},
		executor:   cfg.Executor,
	}, nil
}

// Analyze submits one analysis request and returns the model's raw output.
// With a schema the response text is the forced tool's input object; without
// one it is whatever text the model produced around its thinking.
func (c *Client) Analyze(ctx context.Context, req domain.AnalysisRequest) (domain.RawAnalysis, error) {
	payload := c.messageParams(req)

	var response messageResponse
	err := c.execute(ctx, "messages", func(callCtx context.Context) error {
		return c.postJSON(callCtx, "/v1/messages", payload, &response, "messages")
	})
	if err != nil {
		return domain.RawAnalysis{}, err
	}
	return rawAnalysisFromMessage(response), nil
}

// messageParams builds the wire payload for one request; the same shape is
// reused verbatim inside batch submissions.
func (c *Client) messageParams(req domain.AnalysisRequest) map[string]any {
	content := make([]map[string]any, 0, len(req.Blocks))
	for _, block := range req.Blocks {
		switch block.Kind() {
		case domain.ContentImage:
			content = append(content, map[string]any{
				"type":   "image",
				"source": map[string]any{"type": "url", "url": block.URL()},
			})
		default:
			content = append(content, map[string]any{
				"type": "text",
				"text": block.Text(),
			})
		}
	}

	payload := map[string]any{
		"model":      c.model,
		"max_tokens": req.MaxTokens,
		"messages": []map[string]any{
			{"role": "user", "content": content},
		},
	}
	if req.System != "" {
		payload["system"] = []map[string]any{
			{
				"type":          "text",
				"text":          req.System,
				"cache_control": map[string]any{"type": "ephemeral"},
			},
		}
	}
	if req.Schema != nil {
		payload["tools"] = []map[string]any{
			{
				"name":         verificationTool,
				"description":  "Record the structured verification assessment of the document.",
				"input_schema": map[string]any(req.Schema),
			},
		}
		payload["tool_choice"] = map[string]any{"type": "tool", "name": verificationTool}
	}
	if req.ThinkingBudget > 0 {
		payload["thinking"] = map[string]any{
			"type":          "enabled",
			"budget_tokens": req.ThinkingBudget,
		}
	}
	return payload
}

type messageResponse struct {
	ID      string         `json:"id"`
	Model   string         `json:"model"`
	Content []contentBlock `json:"content"`
	Usage   usage          `json:"usage"`
}

type contentBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

type usage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
}

// rawAnalysisFromMessage flattens the response: a forced tool call wins,
// otherwise the text blocks are concatenated. Thinking blocks are skipped.
func rawAnalysisFromMessage(response messageResponse) domain.RawAnalysis {
	raw := domain.RawAnalysis{
		Model: response.Model,
		Usage: domain.TokenUsage{
			InputTokens:      response.Usage.InputTokens,
			OutputTokens:     response.Usage.OutputTokens,
			CacheReadTokens:  response.Usage.CacheReadInputTokens,
			CacheWriteTokens: response.Usage.CacheCreationInputTokens,
		},
	}

	var texts []string
	for _, block := range response.Content {
		switch block.Type {
		case "tool_use":
			if block.Name == verificationTool && len(block.Input) > 0 {
				raw.Text = string(block.Input)
				return raw
			}
		case "text":
			if block.Text != "" {
				texts = append(texts, block.Text)
			}
		}
	}
	raw.Text = strings.TrimSpace(strings.Join(texts, "\n"))
	return raw
}

func (c *Client) execute(ctx context.Context, operation string, fn func(context.Context) error) error {
	if c.executor == nil {
		return fn(ctx)
	}
	return c.executor.Execute(ctx, operation, fn, classifyAnthropicError)
}

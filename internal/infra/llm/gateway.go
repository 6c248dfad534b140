// Gateway is the HTTP adapter to the model gateway. The gateway speaks an
// OpenAI-compatible wire protocol:
//   - POST /v1/chat/completions — non-streaming chat completion
//   - GET  /v1/models           — health check (lists served models)
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

const (
	mimeJSON          = "application/json"
	headerContentType = "Content-Type"
)

// Gateway implements Provider against the model gateway.
type Gateway struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewGateway creates a Gateway with a 60s transport timeout. Per-call
// deadlines are tighter and come from the caller's context.
func NewGateway(baseURL, apiKey string) *Gateway {
	return &Gateway{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// ─── internal wire types ─────────────────────────────────────────────────────

type wireToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type wireTool struct {
	Type     string `json:"type"`
	Function struct {
		Name        string          `json:"name"`
		Description string          `json:"description"`
		Parameters  json.RawMessage `json:"parameters"`
	} `json:"function"`
}

type wireRequest struct {
	Model       string           `json:"model"`
	Messages    []map[string]any `json:"messages"`
	Temperature float64          `json:"temperature,omitempty"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
	Tools       []wireTool       `json:"tools,omitempty"`
	Stream      bool             `json:"stream"`
}

// ─── Provider implementation ─────────────────────────────────────────────────

// ChatCompletion performs a non-streaming chat via POST /v1/chat/completions.
// HTTP status codes are translated to package sentinel errors so the client
// can decide what to retry.
func (g *Gateway) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	body, err := json.Marshal(buildWireRequest(req))
	if err != nil {
		return nil, fmt.Errorf("gateway chat: marshal request: %w", err)
	}

	respBody, postErr := g.doPost(ctx, "/v1/chat/completions", body)
	if postErr != nil {
		return nil, postErr
	}
	defer respBody.Close() //nolint:errcheck

	raw, readErr := io.ReadAll(respBody)
	if readErr != nil {
		return nil, fmt.Errorf("gateway chat: read response: %w", readErr)
	}

	return parseWireResponse(raw)
}

// HealthCheck calls GET /v1/models — returns nil if the gateway is reachable.
func (g *Gateway) HealthCheck(ctx context.Context) error {
	url := g.baseURL + "/v1/models"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("gateway healthcheck: build request: %w", err)
	}
	g.setHeaders(req)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway healthcheck: %w: %w", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway healthcheck: %w", statusError(resp.StatusCode))
	}
	return nil
}

// ─── helpers ─────────────────────────────────────────────────────────────────

// buildWireRequest converts a ChatRequest into the OpenAI-compatible shape.
// When ImageURL is set the final user message becomes a multi-part content
// array carrying the text and the image reference.
func buildWireRequest(req ChatRequest) wireRequest {
	msgs := make([]map[string]any, len(req.Messages))
	for i, m := range req.Messages {
		msg := map[string]any{"role": m.Role, "content": m.Content}
		if m.ToolCallID != "" {
			msg["tool_call_id"] = m.ToolCallID
		}
		if len(m.ToolCalls) > 0 {
			calls := make([]wireToolCall, len(m.ToolCalls))
			for j, tc := range m.ToolCalls {
				calls[j].ID = tc.ID
				calls[j].Type = "function"
				calls[j].Function.Name = tc.Name
				calls[j].Function.Arguments = string(tc.Arguments)
			}
			msg["tool_calls"] = calls
		}
		msgs[i] = msg
	}

	if req.ImageURL != "" {
		// Attach the image to the last user message.
		for i := len(msgs) - 1; i >= 0; i-- {
			if msgs[i]["role"] != "user" {
				continue
			}
			text, _ := msgs[i]["content"].(string)
			msgs[i]["content"] = []map[string]any{
				{"type": "text", "text": text},
				{"type": "image_url", "image_url": map[string]any{"url": req.ImageURL}},
			}
			break
		}
	}

	wire := wireRequest{
		Model:       req.Model,
		Messages:    msgs,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      false,
	}
	for _, t := range req.Tools {
		var wt wireTool
		wt.Type = "function"
		wt.Function.Name = t.Name
		wt.Function.Description = t.Description
		wt.Function.Parameters = t.Parameters
		wire.Tools = append(wire.Tools, wt)
	}
	return wire
}

// parseWireResponse extracts the first choice from a completion body.
// gjson tolerates fields the gateway adds that we do not model.
func parseWireResponse(raw []byte) (*ChatResponse, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("gateway chat: %w: not valid JSON", ErrMalformedResponse)
	}
	doc := gjson.ParseBytes(raw)

	choice := doc.Get("choices.0")
	if !choice.Exists() {
		return nil, fmt.Errorf("gateway chat: %w: no choices", ErrMalformedResponse)
	}

	resp := &ChatResponse{
		Content:          choice.Get("message.content").String(),
		StopReason:       choice.Get("finish_reason").String(),
		PromptTokens:     int(doc.Get("usage.prompt_tokens").Int()),
		CompletionTokens: int(doc.Get("usage.completion_tokens").Int()),
	}

	for _, tc := range choice.Get("message.tool_calls").Array() {
		resp.ToolCalls = append(resp.ToolCalls, ToolCall{
			ID:        tc.Get("id").String(),
			Name:      tc.Get("function.name").String(),
			Arguments: json.RawMessage(tc.Get("function.arguments").String()),
		})
	}

	if resp.Content == "" && len(resp.ToolCalls) == 0 {
		return nil, fmt.Errorf("gateway chat: %w: empty message", ErrMalformedResponse)
	}
	return resp, nil
}

// statusError maps a non-2xx HTTP status to the matching sentinel error.
func statusError(status int) error {
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w (status %d)", ErrRateLimited, status)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w (status %d)", ErrMissingCredentials, status)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w (status %d)", ErrInvalidRequest, status)
	case status >= 500:
		return fmt.Errorf("%w (status %d)", ErrProviderUnavailable, status)
	default:
		return fmt.Errorf("%w (unexpected status %d)", ErrProviderUnavailable, status)
	}
}

func (g *Gateway) setHeaders(req *http.Request) {
	req.Header.Set(headerContentType, mimeJSON)
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}
}

// doPost sends a POST request to baseURL+path and returns the response body.
// Caller is responsible for closing the returned ReadCloser.
func (g *Gateway) doPost(ctx context.Context, path string, body []byte) (io.ReadCloser, error) {
	url := g.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gateway post %s: build request: %w", path, err)
	}
	g.setHeaders(req)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway post %s: %w: %w", path, ErrProviderUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close() //nolint:errcheck
		return nil, fmt.Errorf("gateway post %s: %w", path, statusError(resp.StatusCode))
	}
	return resp.Body, nil
}

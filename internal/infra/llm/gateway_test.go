package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

// newTestGateway spins up an httptest server with the given handler and
// returns a Gateway pointed at it.
func newTestGateway(t *testing.T, handler http.HandlerFunc) *Gateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewGateway(srv.URL, "test-key")
}

func completionBody(content string) string {
	return `{
		"choices": [{"message": {"content": ` + jsonString(content) + `}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 12, "completion_tokens": 34}
	}`
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestGateway_ChatCompletion_ParsesContentAndUsage(t *testing.T) {
	t.Parallel()

	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization = %q", got)
		}
		io.WriteString(w, completionBody("hello from the model"))
	})

	resp, err := gw.ChatCompletion(context.Background(), ChatRequest{
		Model:    "test",
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("ChatCompletion: %v", err)
	}
	if resp.Content != "hello from the model" {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.PromptTokens != 12 || resp.CompletionTokens != 34 {
		t.Errorf("usage = %d/%d, want 12/34", resp.PromptTokens, resp.CompletionTokens)
	}
	if resp.StopReason != "stop" {
		t.Errorf("stop reason = %q", resp.StopReason)
	}
}

func TestGateway_ChatCompletion_ParsesToolCalls(t *testing.T) {
	t.Parallel()

	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{
			"choices": [{
				"message": {
					"content": "",
					"tool_calls": [{
						"id": "call_1",
						"type": "function",
						"function": {"name": "read_pantry", "arguments": "{}"}
					}]
				},
				"finish_reason": "tool_calls"
			}],
			"usage": {"prompt_tokens": 5, "completion_tokens": 7}
		}`)
	})

	resp, err := gw.ChatCompletion(context.Background(), ChatRequest{
		Model:    "test",
		Messages: []Message{{Role: "user", Content: "what's in my pantry?"}},
	})
	if err != nil {
		t.Fatalf("ChatCompletion: %v", err)
	}
	if !resp.HasToolCalls() {
		t.Fatal("expected tool calls")
	}
	if resp.ToolCalls[0].Name != "read_pantry" || resp.ToolCalls[0].ID != "call_1" {
		t.Errorf("tool call = %+v", resp.ToolCalls[0])
	}
	if resp.StopReason != "tool_calls" {
		t.Errorf("stop reason = %q", resp.StopReason)
	}
}

func TestGateway_ChatCompletion_StatusToSentinel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status int
		want   error
	}{
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusUnauthorized, ErrMissingCredentials},
		{http.StatusForbidden, ErrMissingCredentials},
		{http.StatusBadRequest, ErrInvalidRequest},
		{http.StatusUnprocessableEntity, ErrInvalidRequest},
		{http.StatusInternalServerError, ErrProviderUnavailable},
		{http.StatusBadGateway, ErrProviderUnavailable},
	}

	for _, tc := range cases {
		gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		})
		_, err := gw.ChatCompletion(context.Background(), ChatRequest{
			Model:    "test",
			Messages: []Message{{Role: "user", Content: "x"}},
		})
		if !errors.Is(err, tc.want) {
			t.Errorf("status %d: err = %v, want %v", tc.status, err, tc.want)
		}
	}
}

func TestGateway_ChatCompletion_MalformedBody(t *testing.T) {
	t.Parallel()

	for name, body := range map[string]string{
		"not json":      "<html>oops</html>",
		"no choices":    `{"usage": {}}`,
		"empty message": `{"choices": [{"message": {"content": ""}}]}`,
	} {
		gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, body)
		})
		_, err := gw.ChatCompletion(context.Background(), ChatRequest{
			Model:    "test",
			Messages: []Message{{Role: "user", Content: "x"}},
		})
		if !errors.Is(err, ErrMalformedResponse) {
			t.Errorf("%s: err = %v, want ErrMalformedResponse", name, err)
		}
	}
}

func TestGateway_ImageAttachedToLastUserMessage(t *testing.T) {
	t.Parallel()

	var captured map[string]any
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		io.WriteString(w, completionBody("looks like basil"))
	})

	_, err := gw.ChatCompletion(context.Background(), ChatRequest{
		Model: "test",
		Messages: []Message{
			{Role: "system", Content: "you identify ingredients"},
			{Role: "user", Content: "what herb is this?"},
		},
		ImageURL: "https://example.com/herb.jpg",
	})
	if err != nil {
		t.Fatalf("ChatCompletion: %v", err)
	}

	msgs := captured["messages"].([]any)
	last := msgs[len(msgs)-1].(map[string]any)
	parts, ok := last["content"].([]any)
	if !ok {
		t.Fatalf("last user content is %T, want multi-part array", last["content"])
	}
	if len(parts) != 2 {
		t.Fatalf("content parts = %d, want 2", len(parts))
	}
	img := parts[1].(map[string]any)
	if img["type"] != "image_url" {
		t.Errorf("second part type = %v, want image_url", img["type"])
	}
}

func TestGateway_HealthCheck(t *testing.T) {
	t.Parallel()

	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			t.Errorf("path = %q", r.URL.Path)
		}
		io.WriteString(w, `{"data": []}`)
	})
	if err := gw.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck: %v", err)
	}

	down := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	if err := down.HealthCheck(context.Background()); !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("HealthCheck on 503 = %v, want ErrProviderUnavailable", err)
	}
}

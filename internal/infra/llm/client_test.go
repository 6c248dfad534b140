package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/sous-ai/sous/internal/infra/eventbus"
	"github.com/sous-ai/sous/internal/infra/metrics"
)

// fakeProvider returns scripted results in order, then repeats the last one.
type fakeProvider struct {
	calls   int
	results []fakeResult
}

type fakeResult struct {
	resp *ChatResponse
	err  error
}

func (f *fakeProvider) ChatCompletion(_ context.Context, _ ChatRequest) (*ChatResponse, error) {
	i := f.calls
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	f.calls++
	r := f.results[i]
	return r.resp, r.err
}

func (f *fakeProvider) HealthCheck(_ context.Context) error { return nil }

func newTestClient(t *testing.T, p Provider) (*Client, *eventbus.Bus) {
	t.Helper()
	reg, err := NewRegistry(DefaultTiers())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	bus := eventbus.New()
	return NewClient(p, reg, bus, metrics.Nop(), zerolog.Nop(), ClientOptions{
		MaxRetries:  3,
		CallTimeout: 5 * time.Second,
	}), bus
}

func okResponse() *ChatResponse {
	return &ChatResponse{Content: "ok", StopReason: "stop", PromptTokens: 10, CompletionTokens: 20}
}

func TestClient_Call_Success(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{results: []fakeResult{{resp: okResponse()}}}
	client, bus := newTestClient(t, p)
	events := bus.Subscribe(eventbus.TopicLLMCall)

	res, err := client.Call(context.Background(), "standard", ChatRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if res.Response.Content != "ok" {
		t.Errorf("content = %q", res.Response.Content)
	}
	if res.Retries != 0 {
		t.Errorf("retries = %d, want 0", res.Retries)
	}
	if res.Tier != "standard" {
		t.Errorf("tier = %q, want standard", res.Tier)
	}

	select {
	case evt := <-events:
		ce := evt.Payload.(CallEvent)
		if !ce.Success || ce.Tier != "standard" || ce.PromptTokens != 10 {
			t.Errorf("call event = %+v", ce)
		}
		if ce.CostEstimate <= 0 {
			t.Errorf("cost estimate = %f, want > 0", ce.CostEstimate)
		}
	case <-time.After(time.Second):
		t.Fatal("no call event published")
	}
}

func TestClient_Call_RetriesTransientThenSucceeds(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{results: []fakeResult{
		{err: fmt.Errorf("attempt 1: %w", ErrRateLimited)},
		{err: fmt.Errorf("attempt 2: %w", ErrRateLimited)},
		{resp: okResponse()},
	}}
	client, _ := newTestClient(t, p)

	res, err := client.Call(context.Background(), "quick", ChatRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if res.Retries != 2 {
		t.Errorf("retries = %d, want 2", res.Retries)
	}
	if p.calls != 3 {
		t.Errorf("provider calls = %d, want 3", p.calls)
	}
}

func TestClient_Call_PermanentErrorNoRetry(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{results: []fakeResult{
		{err: fmt.Errorf("bad payload: %w", ErrInvalidRequest)},
	}}
	client, bus := newTestClient(t, p)
	events := bus.Subscribe(eventbus.TopicLLMCall)

	_, err := client.Call(context.Background(), "quick", ChatRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("err = %v, want ErrInvalidRequest", err)
	}
	if p.calls != 1 {
		t.Errorf("provider calls = %d, want 1 (no retries on permanent errors)", p.calls)
	}

	select {
	case evt := <-events:
		ce := evt.Payload.(CallEvent)
		if ce.Success {
			t.Error("failed call published as success")
		}
	case <-time.After(time.Second):
		t.Fatal("failed calls must still publish a usage event")
	}
}

func TestClient_Call_ExhaustsRetries(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{results: []fakeResult{
		{err: fmt.Errorf("down: %w", ErrProviderUnavailable)},
	}}
	client, _ := newTestClient(t, p)

	_, err := client.Call(context.Background(), "quick", ChatRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("err = %v, want ErrProviderUnavailable", err)
	}
	// 1 initial attempt + MaxRetries retries.
	if p.calls != 4 {
		t.Errorf("provider calls = %d, want 4", p.calls)
	}
}

func TestClient_Call_UnknownTier(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, &fakeProvider{results: []fakeResult{{resp: okResponse()}}})
	if _, err := client.Call(context.Background(), "platinum", ChatRequest{}); err == nil {
		t.Error("expected error for unknown tier")
	}
}

func TestClient_Call_FillsModelAndTokenLimit(t *testing.T) {
	t.Parallel()

	var seen ChatRequest
	p := &captureProvider{resp: okResponse(), capture: &seen}
	client, _ := newTestClient(t, p)

	if _, err := client.Call(context.Background(), "quick", ChatRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	}); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if seen.Model != "sous-quick" {
		t.Errorf("model = %q, want sous-quick", seen.Model)
	}
	if seen.MaxTokens != 1024 {
		t.Errorf("max tokens = %d, want tier limit 1024", seen.MaxTokens)
	}
}

func TestUserIDContext_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := WithUserID(context.Background(), "user-9")
	if got := UserIDFromContext(ctx); got != "user-9" {
		t.Errorf("user id = %q", got)
	}
	if got := UserIDFromContext(context.Background()); got != "" {
		t.Errorf("unset user id = %q, want empty", got)
	}
}

type captureProvider struct {
	resp    *ChatResponse
	capture *ChatRequest
}

func (c *captureProvider) ChatCompletion(_ context.Context, req ChatRequest) (*ChatResponse, error) {
	*c.capture = req
	return c.resp, nil
}

func (c *captureProvider) HealthCheck(_ context.Context) error { return nil }

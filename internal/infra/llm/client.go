package llm

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/sous-ai/sous/internal/infra/eventbus"
	"github.com/sous-ai/sous/internal/infra/metrics"
	"github.com/sous-ai/sous/pkg/uuid"
)

// CallEvent is published on eventbus.TopicLLMCall after every provider
// call, successful or not. The cost ledger persists these.
type CallEvent struct {
	ID               string
	UserID           string
	Tier             string
	Model            string
	PromptTokens     int
	CompletionTokens int
	CostEstimate     float64
	Latency          time.Duration
	Retries          int
	Success          bool
	OccurredAt       time.Time
}

// Result is a completed call plus its delivery metadata.
type Result struct {
	Response *ChatResponse
	Tier     string
	Retries  int
	Latency  time.Duration
}

// Client wraps a Provider with tier resolution, retry with exponential
// backoff, metrics and usage-event publishing. All domain services call
// models through a Client, never through a Provider directly.
type Client struct {
	provider    Provider
	tiers       *Registry
	bus         eventbus.EventBus
	metrics     *metrics.Metrics
	log         zerolog.Logger
	maxRetries  uint64
	callTimeout time.Duration
}

// ClientOptions configures a Client. Zero values get safe defaults.
type ClientOptions struct {
	MaxRetries  int           // attempts beyond the first; default 3
	CallTimeout time.Duration // per-attempt deadline; default 30s
}

// NewClient builds a Client over the given provider and tier registry.
func NewClient(provider Provider, tiers *Registry, bus eventbus.EventBus, m *metrics.Metrics, log zerolog.Logger, opts ClientOptions) *Client {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 30 * time.Second
	}
	return &Client{
		provider:    provider,
		tiers:       tiers,
		bus:         bus,
		metrics:     m,
		log:         log.With().Str("component", "llm.client").Logger(),
		maxRetries:  uint64(opts.MaxRetries),
		callTimeout: opts.CallTimeout,
	}
}

// Tiers exposes the registry for routing decisions.
func (c *Client) Tiers() *Registry {
	return c.tiers
}

// Call completes req on the named tier. The tier's model and token limit
// fill in unset request fields. Transient provider errors are retried with
// exponential backoff up to MaxRetries; permanent errors return immediately.
// Exactly one CallEvent is published per Call, covering all attempts.
func (c *Client) Call(ctx context.Context, tierName string, req ChatRequest) (*Result, error) {
	tier, err := c.tiers.ByName(tierName)
	if err != nil {
		return nil, err
	}
	if req.Model == "" {
		req.Model = tier.Model
	}
	if req.MaxTokens == 0 || req.MaxTokens > tier.MaxTokens {
		req.MaxTokens = tier.MaxTokens
	}

	start := time.Now()
	retries := 0

	operation := func() (*ChatResponse, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
		defer cancel()

		resp, callErr := c.provider.ChatCompletion(attemptCtx, req)
		if callErr == nil {
			return resp, nil
		}
		if !IsTransient(callErr) {
			return nil, backoff.Permanent(callErr)
		}
		retries++
		c.metrics.InferenceRetries.Inc()
		c.log.Warn().
			Str("tier", tier.Name).
			Int("retry", retries).
			Err(callErr).
			Msg("transient provider error, backing off")
		return nil, callErr
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(newExponentialBackOff(), c.maxRetries),
		ctx,
	)
	resp, err := backoff.RetryWithData(operation, policy)
	latency := time.Since(start)

	evt := CallEvent{
		ID:         uuid.NewV7().String(),
		UserID:     UserIDFromContext(ctx),
		Tier:       tier.Name,
		Model:      req.Model,
		Latency:    latency,
		Retries:    retries,
		Success:    err == nil,
		OccurredAt: time.Now().UTC(),
	}

	if err != nil {
		c.metrics.InferenceCallsTotal.WithLabelValues(tier.Name, "error").Inc()
		c.bus.Publish(eventbus.TopicLLMCall, evt)
		c.log.Error().
			Str("tier", tier.Name).
			Int("retries", retries).
			Dur("latency", latency).
			Err(err).
			Msg("provider call failed")
		return nil, err
	}

	evt.PromptTokens = resp.PromptTokens
	evt.CompletionTokens = resp.CompletionTokens
	evt.CostEstimate = tier.CostEstimate(resp.TotalTokens())

	c.metrics.InferenceCallsTotal.WithLabelValues(tier.Name, "ok").Inc()
	c.metrics.InferenceLatency.WithLabelValues(tier.Name).Observe(latency.Seconds())
	c.metrics.TokensTotal.WithLabelValues(tier.Name, "prompt").Add(float64(resp.PromptTokens))
	c.metrics.TokensTotal.WithLabelValues(tier.Name, "completion").Add(float64(resp.CompletionTokens))
	c.bus.Publish(eventbus.TopicLLMCall, evt)

	c.log.Debug().
		Str("tier", tier.Name).
		Int("retries", retries).
		Dur("latency", latency).
		Int("tokens", resp.TotalTokens()).
		Msg("provider call completed")

	return &Result{
		Response: resp,
		Tier:     tier.Name,
		Retries:  retries,
		Latency:  latency,
	}, nil
}

// newExponentialBackOff returns the retry schedule: 500ms initial interval
// doubling with jitter, capped at 8s per wait.
func newExponentialBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.Multiplier = 2.0
	b.MaxInterval = 8 * time.Second
	b.MaxElapsedTime = 0 // bounded by WithMaxRetries, not wall time
	return b
}

// ─── request-scoped user identity ────────────────────────────────────────────

type userIDKey struct{}

// WithUserID tags ctx with the calling user for usage attribution.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFromContext returns the user set by WithUserID, or "".
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey{}).(string)
	return id
}

package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sous-ai/sous/internal/domain/routing"
	"github.com/sous-ai/sous/internal/domain/tool"
	"github.com/sous-ai/sous/internal/infra/cache"
	"github.com/sous-ai/sous/internal/infra/llm"
	"github.com/sous-ai/sous/internal/infra/metrics"
)

const systemPrompt = "You are Sous, a cooking assistant. You help with recipes, " +
	"meal planning, pantry management and grocery lists. Use the available tools " +
	"to read or change the user's data; never invent pantry contents. Keep answers " +
	"short and practical."

// cannedDegradedResponse is served when the provider is entirely
// unreachable after retries. The caller still gets a usable object.
const cannedDegradedResponse = "I'm having trouble reaching my kitchen brain right now. " +
	"Your data is safe; please try again in a moment."

// Request is one chat invocation.
type Request struct {
	UserID         string
	ConversationID string // empty starts a new conversation
	Utterance      string
	ImageURL       string
	Priority       routing.Priority
}

// Response is the caller-facing chat result. Always usable: total
// provider failure sets Degraded instead of returning an error.
type Response struct {
	Message        string
	ConversationID string
	TiersUsed      []string
	ToolsUsed      []string
	Cached         bool
	Degraded       bool
	Metadata       Metadata
}

// Metadata carries routing observability for the presentation layer.
type Metadata struct {
	Tier       string
	Score      float64
	Intents    []routing.Intent
	ToolRounds int
	Retries    int
}

// Service orchestrates chat requests end to end.
type Service struct {
	client    *llm.Client
	router    *routing.Router
	cache     *cache.Cache
	executor  *tool.Executor
	registry  *tool.Registry
	convs     *Store
	metrics   *metrics.Metrics
	log       zerolog.Logger
	maxRounds int
	cacheTTL  time.Duration
}

// Options tunes the service. Zero values get safe defaults.
type Options struct {
	MaxToolRounds int           // default 4
	CacheTTL      time.Duration // default 24h
}

// NewService wires the chat orchestrator.
func NewService(client *llm.Client, router *routing.Router, c *cache.Cache, executor *tool.Executor, registry *tool.Registry, convs *Store, m *metrics.Metrics, log zerolog.Logger, opts Options) *Service {
	if opts.MaxToolRounds <= 0 {
		opts.MaxToolRounds = 4
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 24 * time.Hour
	}
	return &Service{
		client:    client,
		router:    router,
		cache:     c,
		executor:  executor,
		registry:  registry,
		convs:     convs,
		metrics:   m,
		log:       log.With().Str("component", "chat").Logger(),
		maxRounds: opts.MaxToolRounds,
		cacheTTL:  opts.CacheTTL,
	}
}

// Chat handles one utterance: classify, route, serve from cache when
// allowed, otherwise run the tool loop. Returns an error only for caller
// mistakes (empty utterance) or cancellation; provider failure degrades.
func (s *Service) Chat(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.Utterance) == "" {
		return nil, fmt.Errorf("chat: empty utterance")
	}
	ctx = llm.WithUserID(ctx, req.UserID)
	start := time.Now()

	conv, ok := s.convs.Get(req.ConversationID, req.UserID)
	if !ok {
		conv = snapshot(s.convs.Create(req.UserID))
	}
	s.convs.Append(conv.ID, Message{Role: RoleUser, Content: req.Utterance})

	decision := s.router.Route(req.Utterance, routing.Context{
		HasImage:   req.ImageURL != "",
		PriorTurns: len(conv.Messages),
	}, req.Priority)

	taskType := "chat:" + string(decision.Intents[0])
	tier, err := s.client.Tiers().ByName(decision.Tier)
	if err != nil {
		return nil, err
	}
	params := cache.Params{Temperature: chatTemperature, MaxTokens: tier.MaxTokens}

	s.metrics.RequestsTotal.WithLabelValues("chat", decision.Tier).Inc()
	defer func() {
		s.metrics.RequestDuration.WithLabelValues("chat").Observe(time.Since(start).Seconds())
	}()

	var resp *Response
	if decision.Cacheable() {
		resp = s.cachedLoop(ctx, conv.ID, req, decision, tier, taskType, params)
	} else {
		resp = s.runLoop(ctx, conv.ID, req, decision, tier)
	}
	resp.Metadata.Tier = decision.Tier
	resp.Metadata.Score = decision.Score
	resp.Metadata.Intents = decision.Intents

	if ctx.Err() != nil {
		// Caller went away mid-flight: drop partial results.
		return nil, ctx.Err()
	}

	s.convs.Append(conv.ID, Message{Role: RoleAssistant, Content: resp.Message})
	for _, t := range resp.TiersUsed {
		s.convs.RecordTier(conv.ID, t)
	}
	return resp, nil
}

const chatTemperature = 0.7

// errUncacheable marks loop results that must not be written through:
// degraded answers and tool-touched turns stay out of the cache.
var errUncacheable = errors.New("chat: result not cacheable")

// cachedLoop serves a cacheable request through the response cache.
// Concurrent identical requests collapse onto one model call, and the
// write-through happens inside that flight, so there is no window
// between the miss and the store.
func (s *Service) cachedLoop(ctx context.Context, convID string, req Request, decision routing.Decision, tier llm.Tier, taskType string, params cache.Params) *Response {
	var local *Response
	value, _, err := s.cache.GetOrCompute(ctx, taskType, req.Utterance, decision.Tier, params, s.cacheTTL,
		func(ctx context.Context) ([]byte, error) {
			local = s.runLoop(ctx, convID, req, decision, tier)
			if local.Degraded || len(local.ToolsUsed) > 0 {
				return nil, errUncacheable
			}
			return []byte(local.Message), nil
		})
	switch {
	case local != nil:
		// This caller ran the loop itself; its result stands whether or
		// not it was written through.
		return local
	case err == nil:
		// Served without a model call: a cache hit, or another caller's
		// in-flight computation.
		return &Response{
			Message:        string(value),
			ConversationID: convID,
			TiersUsed:      []string{decision.Tier},
			Cached:         true,
		}
	default:
		// A concurrent caller's result was uncacheable; run our own turn.
		return s.runLoop(ctx, convID, req, decision, tier)
	}
}

// runLoop performs the bounded tool-call loop at the routed tier.
func (s *Service) runLoop(ctx context.Context, convID string, req Request, decision routing.Decision, tier llm.Tier) *Response {
	resp := &Response{ConversationID: convID}

	msgs := []llm.Message{{Role: RoleSystem, Content: systemPrompt}}
	for _, m := range s.history(convID, req.UserID) {
		msgs = append(msgs, llm.Message{
			Role:       m.Role,
			Content:    m.Content,
			ToolCalls:  m.ToolCalls,
			ToolCallID: m.ToolCallID,
		})
	}

	var schemas []llm.ToolSchema
	if tier.Supports(llm.CapabilityTools) {
		schemas = s.registry.Schemas()
	}

	var lastResults []tool.Result
	for round := 0; round < s.maxRounds; round++ {
		result, err := s.client.Call(ctx, decision.Tier, llm.ChatRequest{
			Messages:    msgs,
			Temperature: chatTemperature,
			Tools:       schemas,
			ImageURL:    imageForRound(req.ImageURL, round),
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return resp
			}
			s.metrics.DegradedResultsTotal.Inc()
			s.log.Error().Err(err).Str("tier", decision.Tier).Msg("provider failed, serving canned response")
			resp.Message = s.bestEffort(lastResults)
			resp.Degraded = true
			return resp
		}

		resp.TiersUsed = appendUnique(resp.TiersUsed, result.Tier)
		resp.Metadata.Retries += result.Retries
		resp.Metadata.ToolRounds = round + 1

		model := result.Response
		if !model.HasToolCalls() {
			resp.Message = s.reformat(ctx, decision.Tier, model.Content, len(resp.ToolsUsed) > 0, resp)
			return resp
		}

		// Execute each requested call sequentially and pair every call
		// with a tool-result message before the next model turn.
		msgs = append(msgs, llm.Message{Role: RoleAssistant, Content: model.Content, ToolCalls: model.ToolCalls})
		s.convs.Append(convID, Message{Role: RoleAssistant, Content: model.Content, ToolCalls: model.ToolCalls})
		for _, call := range model.ToolCalls {
			res := s.executor.Execute(ctx, call)
			lastResults = append(lastResults, res)
			resp.ToolsUsed = appendUnique(resp.ToolsUsed, call.Name)
			msgs = append(msgs, llm.Message{Role: RoleTool, Content: res.Payload(), ToolCallID: call.ID})
			s.convs.Append(convID, Message{Role: RoleTool, Content: res.Payload(), ToolCallID: call.ID})
		}
	}

	// Round budget exhausted: degrade to a best-effort summary instead of
	// failing the request outright.
	s.metrics.DegradedResultsTotal.Inc()
	resp.Message = s.bestEffort(lastResults)
	resp.Degraded = true
	return resp
}

// reformat runs the cheaper-tier rewrite of a tool-derived technical
// answer into user-facing language. It must not change factual content,
// so the instruction forbids additions and the original text is kept on
// any failure.
func (s *Service) reformat(ctx context.Context, usedTier, content string, usedTools bool, resp *Response) string {
	cheapest := s.client.Tiers().Cheapest()
	if !usedTools || usedTier == cheapest.Name || strings.TrimSpace(content) == "" {
		return content
	}

	result, err := s.client.Call(ctx, cheapest.Name, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: RoleSystem, Content: "Rewrite the following assistant answer in a friendly, " +
				"concise tone. Do not add, remove or change any facts, numbers or item names."},
			{Role: RoleUser, Content: content},
		},
		Temperature: 0.3,
	})
	if err != nil || strings.TrimSpace(result.Response.Content) == "" {
		return content
	}
	resp.TiersUsed = appendUnique(resp.TiersUsed, cheapest.Name)
	return result.Response.Content
}

// bestEffort builds a degraded reply from whatever tool results exist.
func (s *Service) bestEffort(results []tool.Result) string {
	done := make([]string, 0, len(results))
	for _, r := range results {
		if r.Success {
			done = append(done, r.Name)
		}
	}
	if len(done) == 0 {
		return cannedDegradedResponse
	}
	return fmt.Sprintf("I couldn't fully finish that, but I did complete: %s. "+
		"Please check the result and try again for the rest.", strings.Join(done, ", "))
}

func (s *Service) history(convID, userID string) []Message {
	conv, ok := s.convs.Get(convID, userID)
	if !ok {
		return nil
	}
	return conv.Messages
}

// imageForRound attaches the image on the first model turn only; later
// rounds already carry its analysis in the conversation.
func imageForRound(url string, round int) string {
	if round == 0 {
		return url
	}
	return ""
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

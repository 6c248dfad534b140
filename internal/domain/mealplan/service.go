package mealplan

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/sous-ai/sous/internal/domain/routing"
	"github.com/sous-ai/sous/internal/infra/llm"
	"github.com/sous-ai/sous/internal/infra/metrics"
)

// Request describes the plan to generate.
type Request struct {
	UserID      string
	StartDate   time.Time
	EndDate     time.Time
	MealTypes   []string
	Preferences string
	PeopleCount int
}

// Plan is the caller-facing result: a fully covered grid plus fill
// metrics. Degraded marks total provider failure (the grid is then
// entirely synthesized).
type Plan struct {
	Meals        []Meal  `json:"meals"`
	FallbackUsed bool    `json:"fallback_used"`
	Degraded     bool    `json:"degraded"`
	Tier         string  `json:"tier,omitempty"`
	Metrics      Metrics `json:"metrics"`
}

// Service generates meal plans through the routed model and the
// coverage engine.
type Service struct {
	client  *llm.Client
	router  *routing.Router
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// NewService wires the meal-plan generator.
func NewService(client *llm.Client, router *routing.Router, m *metrics.Metrics, log zerolog.Logger) *Service {
	return &Service{
		client:  client,
		router:  router,
		metrics: m,
		log:     log.With().Str("component", "mealplan").Logger(),
	}
}

// Plans longer than this are rejected; the grid grows multiplicatively.
const maxPlanDays = 31

const planSystemPrompt = "You plan meals. Respond with ONLY a JSON array of objects with keys: " +
	"date (YYYY-MM-DD), meal_type (string), title (string), description (string), " +
	"servings (number). One entry per requested date and meal type. No prose."

// Generate produces a fully covered plan for the requested grid. The
// model proposes candidates; Complete guarantees exact coverage. Returns
// an error only for invalid requests; provider failure degrades to an
// all-synthesized plan.
func (s *Service) Generate(ctx context.Context, req Request) (*Plan, error) {
	dates := Dates(req.StartDate, req.EndDate)
	if len(dates) == 0 {
		return nil, fmt.Errorf("mealplan: end date precedes start date")
	}
	if len(dates) > maxPlanDays {
		return nil, fmt.Errorf("mealplan: range of %d days exceeds the %d-day limit", len(dates), maxPlanDays)
	}
	mealTypes := req.MealTypes
	if len(mealTypes) == 0 {
		mealTypes = []string{MealBreakfast, MealLunch, MealDinner}
	}
	servings := req.PeopleCount
	if servings <= 0 {
		servings = 2
	}
	ctx = llm.WithUserID(ctx, req.UserID)

	utterance := strings.TrimSpace("plan my meals " + req.Preferences)
	decision := s.router.Route(utterance, routing.Context{
		EntityCount: len(dates) * len(mealTypes),
	}, routing.PriorityNone)

	s.metrics.RequestsTotal.WithLabelValues("mealplan", decision.Tier).Inc()
	start := time.Now()
	defer func() {
		s.metrics.RequestDuration.WithLabelValues("mealplan").Observe(time.Since(start).Seconds())
	}()

	candidates, degraded := s.generateCandidates(ctx, decision.Tier, dates, mealTypes, req.Preferences, servings)

	meals, fillMetrics := Complete(candidates, dates, mealTypes, servings)
	if fillMetrics.Synthesized > 0 {
		s.metrics.FallbackSynthesized.Add(float64(fillMetrics.Synthesized))
	}
	if degraded {
		s.metrics.DegradedResultsTotal.Inc()
	}

	return &Plan{
		Meals:        meals,
		FallbackUsed: fillMetrics.Synthesized > 0,
		Degraded:     degraded,
		Tier:         decision.Tier,
		Metrics:      fillMetrics,
	}, nil
}

// generateCandidates asks the model for plan entries. Any failure,
// including malformed output, returns no candidates; the coverage engine
// handles the rest.
func (s *Service) generateCandidates(ctx context.Context, tier string, dates, mealTypes []string, preferences string, servings int) ([]Meal, bool) {
	var b strings.Builder
	fmt.Fprintf(&b, "Dates: %s\nMeal types: %s\nServings per meal: %d\n",
		strings.Join(dates, ", "), strings.Join(mealTypes, ", "), servings)
	if preferences != "" {
		fmt.Fprintf(&b, "Preferences: %s\n", preferences)
	}

	result, err := s.client.Call(ctx, tier, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: planSystemPrompt},
			{Role: "user", Content: b.String()},
		},
		Temperature: 0.6,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("tier", tier).Msg("plan generation failed, synthesizing full grid")
		return nil, true
	}

	candidates := parseCandidates(result.Response.Content)
	if len(candidates) == 0 {
		s.log.Warn().Str("tier", tier).Msg("plan generation returned no parseable entries")
	}
	return candidates, false
}

// parseCandidates pulls plan entries out of model output, tolerating
// prose wrappers and unexpected fields.
func parseCandidates(content string) []Meal {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end <= start {
		return nil
	}
	arr := content[start : end+1]
	if !gjson.Valid(arr) {
		return nil
	}

	var out []Meal
	for _, item := range gjson.Parse(arr).Array() {
		out = append(out, Meal{
			Date:        item.Get("date").String(),
			MealType:    strings.ToLower(item.Get("meal_type").String()),
			Title:       strings.TrimSpace(item.Get("title").String()),
			Description: item.Get("description").String(),
			Servings:    int(item.Get("servings").Int()),
		})
	}
	return out
}

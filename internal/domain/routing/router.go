package routing

import (
	"fmt"
	"strings"

	"github.com/zeebo/xxh3"

	"github.com/sous-ai/sous/internal/infra/llm"
)

// Priority is a caller-supplied routing hint. Cost and speed hints may
// only downgrade a selection; quality may only upgrade from the cheapest
// tier. An empty priority is neutral.
type Priority string

const (
	PriorityNone    Priority = ""
	PriorityCost    Priority = "cost"
	PrioritySpeed   Priority = "speed"
	PriorityQuality Priority = "quality"
)

// Escalation thresholds on the complexity score.
const (
	scoreHigh     = 0.6 // escalate one rung when the table picked the cheapest tier
	scoreVeryHigh = 0.8 // escalate to the most capable tier regardless of the table
)

// Decision is the full routing outcome for one request.
type Decision struct {
	Fingerprint string
	Score       float64
	Intents     []Intent
	Tier        string
	Priority    Priority
}

// Cacheable reports whether this request's response may be cached:
// the primary intent must be cacheable and no user-state intent may
// appear anywhere in the detected set.
func (d Decision) Cacheable() bool {
	if len(d.Intents) == 0 || !d.Intents[0].Cacheable() {
		return false
	}
	for _, i := range d.Intents {
		switch i {
		case IntentPantry, IntentGrocery, IntentMealPlanning:
			return false
		}
	}
	return true
}

// Router selects tiers from classifier output against a tier ladder.
type Router struct {
	tiers *llm.Registry
}

// NewRouter builds a Router over the given registry.
func NewRouter(tiers *llm.Registry) *Router {
	return &Router{tiers: tiers}
}

// ladderIndex is the intent→tier lookup table, expressed as rungs on the
// ladder (0 = cheapest) so it adapts to any configured registry size.
var ladderIndex = map[Intent]int{
	IntentGreeting:          0,
	IntentCookingKnowledge:  0,
	IntentGeneralChat:       0,
	IntentRecipeSuggestion:  1,
	IntentPantry:            1,
	IntentGrocery:           1,
	IntentIngredientExtract: 1,
	IntentMealPlanning:      1,
	IntentImageAnalysis:     1 << 30, // clamped to the top rung
}

// Route classifies the utterance and selects a tier. Deterministic for
// identical (utterance, ctx, priority) inputs.
func (r *Router) Route(utterance string, ctx Context, priority Priority) Decision {
	cls := Classify(utterance, ctx)
	ladder := r.tiers.All()
	top := len(ladder) - 1

	idx := ladderIndex[cls.Primary()]
	if idx > top {
		idx = top
	}

	// Score escalation. Only complexity moves a request up the ladder;
	// the table alone never exceeds its mapped rung.
	if idx == 0 && cls.Score >= scoreHigh {
		idx = min(idx+1, top)
	}
	if cls.Score >= scoreVeryHigh {
		idx = top
	}

	// Priority hints. Cost/speed move down only; quality moves up only
	// from the cheapest rung.
	switch priority {
	case PriorityCost, PrioritySpeed:
		if idx > 0 {
			idx--
		}
	case PriorityQuality:
		if idx == 0 && top > 0 {
			idx = 1
		}
	}

	// An image forces the vision-capable tier no matter what.
	if ctx.HasImage {
		if tier, ok := r.tiers.FirstWith(llm.CapabilityVision); ok {
			return r.decision(utterance, cls, tier.Name, priority)
		}
		idx = top
	}

	return r.decision(utterance, cls, ladder[idx].Name, priority)
}

func (r *Router) decision(utterance string, cls Classification, tier string, priority Priority) Decision {
	return Decision{
		Fingerprint: Fingerprint(utterance),
		Score:       cls.Score,
		Intents:     cls.Intents,
		Tier:        tier,
		Priority:    priority,
	}
}

// Fingerprint returns a stable 64-bit hash of the case-folded,
// whitespace-collapsed utterance.
func Fingerprint(utterance string) string {
	norm := strings.Join(strings.Fields(strings.ToLower(utterance)), " ")
	return fmt.Sprintf("%016x", xxh3.HashString(norm))
}

// Package routing decides which inference tier serves a request.
// The classifier scores utterance complexity and detects intents; the
// router turns that into a tier selection. Both are pure functions of
// their inputs so decisions are reproducible and cache keys stay stable.
package routing

import (
	"strings"
)

// Intent tags a detected request category. The primary intent drives the
// tier lookup table and the cacheability decision.
type Intent string

const (
	IntentGreeting          Intent = "greeting"
	IntentCookingKnowledge  Intent = "cooking_knowledge"
	IntentRecipeSuggestion  Intent = "recipe_suggestion"
	IntentMealPlanning      Intent = "meal_planning"
	IntentPantry            Intent = "pantry"
	IntentGrocery           Intent = "grocery"
	IntentIngredientExtract Intent = "ingredient_extraction"
	IntentImageAnalysis     Intent = "image_analysis"
	IntentGeneralChat       Intent = "general_chat"
)

// Cacheable reports whether responses for this intent may be served from
// the response cache. Only static knowledge qualifies; anything touching
// per-user state must never be cached.
func (i Intent) Cacheable() bool {
	switch i {
	case IntentGreeting, IntentCookingKnowledge:
		return true
	default:
		return false
	}
}

// Context carries structured signals alongside the utterance.
type Context struct {
	HasImage    bool
	PriorTurns  int
	EntityCount int // e.g. pantry items or ingredients referenced by the caller
}

// Classification is the classifier output: a complexity score in [0,1]
// and the detected intents in precedence order (primary first).
type Classification struct {
	Score   float64
	Intents []Intent
}

// Primary returns the highest-precedence detected intent.
func (c Classification) Primary() Intent {
	if len(c.Intents) == 0 {
		return IntentGeneralChat
	}
	return c.Intents[0]
}

// Signal vocabularies. Matching is word-exact on the normalized utterance,
// so "planning" does not trip the "plan" verb but "plan my meals" does.
var (
	reasoningVerbs = []string{
		"plan", "compare", "calculate", "adjust", "convert",
		"scale", "substitute", "combine", "balance", "analyze",
	}
	optimizationTerms = []string{
		"budget", "under", "cheapest", "cheaper", "minimize", "maximize",
		"healthiest", "quickest", "fastest", "optimal", "best",
	}
	temporalTerms = []string{
		"today", "tonight", "tomorrow", "week", "weekend", "month",
		"monday", "tuesday", "wednesday", "thursday", "friday",
		"saturday", "sunday", "breakfast", "lunch", "dinner",
	}
	dietaryTerms = []string{
		"dairy", "gluten", "vegan", "vegetarian", "nut", "nuts",
		"allergy", "allergic", "avoiding", "avoid", "without",
	}
	conjunctions = []string{"and", "or", "with", "plus", "but", "then"}
)

// Score contributions per signal family. Additive, then clamped, so the
// score grows monotonically with the number of compound-constraint signals.
const (
	weightReasoning    = 0.20
	weightOptimization = 0.20
	weightTemporal     = 0.15
	weightDietary      = 0.20
	weightConjunction  = 0.05 // per hit
	conjunctionCap     = 0.20
	weightEntities     = 0.02 // per entity
	entityCap          = 0.15
	weightLongPayload  = 0.10
	longPayloadChars   = 280
)

// Classify scores an utterance and detects its intents. Pure function:
// identical inputs always yield identical output.
func Classify(utterance string, ctx Context) Classification {
	norm := normalizeWords(utterance)
	words := wordSet(norm)

	score := 0.0
	if containsAny(words, reasoningVerbs) {
		score += weightReasoning
	}
	if containsAny(words, optimizationTerms) || strings.Contains(norm, "$") {
		score += weightOptimization
	}
	if containsAny(words, temporalTerms) {
		score += weightTemporal
	}
	if containsAny(words, dietaryTerms) {
		score += weightDietary
	}

	conj := 0.0
	for _, c := range conjunctions {
		conj += float64(words[c]) * weightConjunction
	}
	conj += float64(strings.Count(utterance, ",")) * weightConjunction
	score += min(conj, conjunctionCap)

	score += min(float64(ctx.EntityCount)*weightEntities, entityCap)

	if len(utterance) > longPayloadChars {
		score += weightLongPayload
	}

	return Classification{
		Score:   clamp01(score),
		Intents: detectIntents(norm, words, ctx),
	}
}

// detectIntents returns intents in precedence order. Image analysis wins
// outright; specific cooking intents beat the general-chat fallback.
func detectIntents(norm string, words map[string]int, ctx Context) []Intent {
	var intents []Intent
	add := func(i Intent) { intents = append(intents, i) }

	if ctx.HasImage {
		add(IntentImageAnalysis)
	}
	if strings.Contains(norm, "meal plan") || strings.Contains(norm, "plan my meals") ||
		(words["plan"] > 0 && (words["meal"] > 0 || words["meals"] > 0)) {
		add(IntentMealPlanning)
	}
	if containsAny(words, []string{"extract", "ingredients", "parse"}) &&
		containsAny(words, []string{"recipe", "ingredients", "text"}) {
		add(IntentIngredientExtract)
	}
	if words["pantry"] > 0 || strings.Contains(norm, "what do i have") {
		add(IntentPantry)
	}
	if containsAny(words, []string{"grocery", "groceries", "shopping"}) {
		add(IntentGrocery)
	}
	if containsAny(words, []string{"recipe", "cook", "make", "suggest", "dish"}) {
		add(IntentRecipeSuggestion)
	}
	if containsAny(words, []string{"what", "why", "how", "difference", "temperature", "long"}) &&
		len(intents) == 0 {
		add(IntentCookingKnowledge)
	}
	if isGreeting(norm) {
		add(IntentGreeting)
	}
	if len(intents) == 0 {
		add(IntentGeneralChat)
	}
	return intents
}

func isGreeting(norm string) bool {
	for _, g := range []string{"hello", "hi", "hey", "good morning", "good evening", "thanks", "thank you"} {
		if norm == g || strings.HasPrefix(norm, g+" ") {
			return true
		}
	}
	return false
}

// normalizeWords lowercases and strips punctuation (keeping $ for budget
// detection), collapsing runs of whitespace to single spaces.
func normalizeWords(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '$':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func wordSet(norm string) map[string]int {
	words := make(map[string]int)
	for _, w := range strings.Fields(norm) {
		words[w]++
	}
	return words
}

func containsAny(words map[string]int, candidates []string) bool {
	for _, c := range candidates {
		if words[c] > 0 {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/sous-ai/sous/internal/infra/llm"
	"github.com/sous-ai/sous/internal/infra/metrics"
)

// Result is the cascade output. Always non-empty for input that visibly
// contains a list; Degraded marks the deterministic last resort.
type Result struct {
	Ingredients []Ingredient `json:"ingredients"`
	Confidence  float64      `json:"confidence"`
	Issues      []string     `json:"issues,omitempty"`
	Degraded    bool         `json:"degraded"`
	Source      string       `json:"source"` // "rules", "model" or "fallback"
	Format      Format       `json:"format"`
}

// ruleSkipThreshold: when the rule parser reaches this confidence the
// tier-routed path is cancelled and its cost skipped entirely.
const ruleSkipThreshold = 0.8

// stage is one rung of an ordered fallback ladder: a name for logs and
// the tier it calls. First success wins.
type stage struct {
	name string
	tier string
}

// Cascade runs the multi-stage ingredient extraction pipeline.
type Cascade struct {
	client        *llm.Client
	metrics       *metrics.Metrics
	log           zerolog.Logger
	extractStages []stage
	enhanceStages []stage
}

// NewCascade builds the cascade over the client's tier ladder: the
// extraction stages try the mid tier then the cheapest; enhancement
// runs on the cheapest only.
func NewCascade(client *llm.Client, m *metrics.Metrics, log zerolog.Logger) *Cascade {
	tiers := client.Tiers().All()
	primary := tiers[min(1, len(tiers)-1)]
	cheapest := tiers[0]

	c := &Cascade{
		client:  client,
		metrics: m,
		log:     log.With().Str("component", "extract").Logger(),
		extractStages: []stage{
			{name: "extract-primary", tier: primary.Name},
		},
		enhanceStages: []stage{
			{name: "enhance", tier: cheapest.Name},
		},
	}
	if primary.Name != cheapest.Name {
		c.extractStages = append(c.extractStages, stage{name: "extract-fallback", tier: cheapest.Name})
	}
	return c
}

// Extract turns recipe text into validated ingredient records. The rule
// parser and the model pipeline run concurrently; a confident rule
// result cancels the model path. Returns an error only for empty input.
func (c *Cascade) Extract(ctx context.Context, recipeText string, servings int) (*Result, error) {
	if strings.TrimSpace(recipeText) == "" {
		return nil, fmt.Errorf("extract: empty recipe text")
	}
	format := DetectFormat(recipeText)

	var (
		ruleIngs  []Ingredient
		ruleConf  float64
		modelIngs []Ingredient
		modelErr  error
	)

	modelCtx, cancelModel := context.WithCancel(ctx)
	defer cancelModel()

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		ruleIngs, ruleConf = RuleParse(recipeText)
		if ruleConf >= ruleSkipThreshold {
			// Confident cheap result: stop paying for the model path.
			cancelModel()
		}
		return nil
	})
	g.Go(func() error {
		modelIngs, modelErr = c.runModelStages(modelCtx, recipeText, format, servings)
		return nil
	})
	_ = g.Wait() //nolint:errcheck // goroutines report via captured variables

	switch {
	case ruleConf >= ruleSkipThreshold:
		ings := Validate(ruleIngs)
		return &Result{
			Ingredients: ings,
			Confidence:  OverallConfidence(ings),
			Source:      "rules",
			Format:      format,
		}, nil

	case modelErr == nil && len(modelIngs) > 0:
		ings := Validate(modelIngs)
		return &Result{
			Ingredients: ings,
			Confidence:  OverallConfidence(ings),
			Source:      "model",
			Format:      format,
		}, nil
	}

	// Every stage failed: deterministic decomposition, never empty for
	// input that contains anything at all.
	c.metrics.DegradedResultsTotal.Inc()
	c.log.Warn().Err(modelErr).Msg("all extraction stages failed, using degraded decomposition")
	ings := Validate(DegradedParse(recipeText))
	return &Result{
		Ingredients: ings,
		Confidence:  OverallConfidence(ings),
		Issues:      []string{"validation degraded"},
		Degraded:    true,
		Source:      "fallback",
		Format:      format,
	}, nil
}

// runModelStages walks the extraction ladder, then applies the
// enhancement pass to the first successful stage's output. Enhancement
// failure is not fatal; the stage-2 candidates survive.
func (c *Cascade) runModelStages(ctx context.Context, text string, format Format, servings int) ([]Ingredient, error) {
	var lastErr error
	for _, st := range c.extractStages {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		candidates, err := c.callExtract(ctx, st, text, format, servings)
		if err != nil {
			lastErr = err
			c.log.Debug().Str("stage", st.name).Err(err).Msg("extraction stage failed, trying next")
			continue
		}

		enhanced, err := c.callEnhance(ctx, text, candidates)
		if err != nil {
			c.log.Debug().Err(err).Msg("enhancement failed, keeping raw extraction")
			return candidates, nil
		}
		return enhanced, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("extract: no extraction stages configured")
	}
	return nil, lastErr
}

const extractSystemPrompt = "You extract ingredients from recipe text. Respond with ONLY a " +
	"JSON array of objects with keys: name (string), quantity (number or null), unit " +
	"(string or null), preparation (string), category (string). No prose."

func (c *Cascade) callExtract(ctx context.Context, st stage, text string, format Format, servings int) ([]Ingredient, error) {
	user := fmt.Sprintf("Input format: %s. Servings: %d.\n\nRecipe text:\n%s", format, servings, text)
	result, err := c.client.Call(ctx, st.tier, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: extractSystemPrompt},
			{Role: "user", Content: user},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return nil, err
	}
	candidates := parseModelIngredients(result.Response.Content, 0.8)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("extract: %w: stage %s returned no parseable ingredients", llm.ErrMalformedResponse, st.name)
	}
	return candidates, nil
}

const enhanceSystemPrompt = "You verify extracted ingredients against the original recipe text. " +
	"Correct wrong quantities and units, remove entries that are not ingredients, and add any " +
	"the extraction missed. Respond with ONLY the corrected JSON array in the same shape."

func (c *Cascade) callEnhance(ctx context.Context, text string, candidates []Ingredient) ([]Ingredient, error) {
	raw, err := json.Marshal(candidates)
	if err != nil {
		return nil, err
	}

	var enhanced []Ingredient
	var lastErr error
	for _, st := range c.enhanceStages {
		result, callErr := c.client.Call(ctx, st.tier, llm.ChatRequest{
			Messages: []llm.Message{
				{Role: "system", Content: enhanceSystemPrompt},
				{Role: "user", Content: fmt.Sprintf("Original text:\n%s\n\nExtracted:\n%s", text, raw)},
			},
			Temperature: 0.1,
		})
		if callErr != nil {
			lastErr = callErr
			continue
		}
		enhanced = parseModelIngredients(result.Response.Content, 0.85)
		if len(enhanced) == 0 {
			lastErr = fmt.Errorf("extract: %w: enhancement returned no parseable ingredients", llm.ErrMalformedResponse)
			continue
		}
		return enhanced, nil
	}
	return nil, lastErr
}

// parseModelIngredients pulls a JSON array out of model output, which
// may be wrapped in prose or code fences, and decodes it tolerantly.
func parseModelIngredients(content string, defaultConfidence float64) []Ingredient {
	arr := extractJSONArray(content)
	if arr == "" || !gjson.Valid(arr) {
		return nil
	}

	var out []Ingredient
	for _, item := range gjson.Parse(arr).Array() {
		name := strings.TrimSpace(item.Get("name").String())
		if name == "" {
			continue
		}
		ing := Ingredient{
			Name:        name,
			Preparation: item.Get("preparation").String(),
			Category:    item.Get("category").String(),
			Confidence:  defaultConfidence,
		}
		if q := item.Get("quantity"); q.Exists() && q.Type == gjson.Number {
			v := q.Float()
			ing.Quantity = &v
		}
		if u := item.Get("unit"); u.Exists() && u.Type == gjson.String && u.String() != "" {
			v := u.String()
			ing.Unit = &v
		}
		if conf := item.Get("confidence"); conf.Exists() && conf.Type == gjson.Number {
			ing.Confidence = conf.Float()
		}
		out = append(out, ing)
	}
	return out
}

// extractJSONArray returns the outermost [...] span in content, or "".
func extractJSONArray(content string) string {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end <= start {
		return ""
	}
	return content[start : end+1]
}

package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// Format classifies the shape of the raw input, produced by the
// preprocessing stage and fed to later stages as a signal.
type Format string

const (
	FormatList  Format = "list"
	FormatProse Format = "prose"
	FormatMixed Format = "mixed"
)

// Ingredient is one extracted ingredient candidate. Quantity and Unit
// are nullable: "3 eggs" has a quantity but no unit, "salt to taste"
// has neither.
type Ingredient struct {
	Name        string   `json:"name"`
	Quantity    *float64 `json:"quantity"`
	Unit        *string  `json:"unit"`
	Preparation string   `json:"preparation,omitempty"`
	Category    string   `json:"category"`
	Confidence  float64  `json:"confidence"`
	Allergens   []string `json:"allergens,omitempty"`
	Issues      []string `json:"issues,omitempty"`
}

// Rule-parse confidence levels by match quality.
const (
	confQuantityUnit = 0.90 // "2 cups flour"
	confQuantityOnly = 0.75 // "3 eggs"
	confNameOnly     = 0.40 // "salt"
	confDegraded     = 0.30 // deterministic last-resort decomposition
)

// DetectFormat classifies input as a structured list, narrative prose,
// or a mix. Lists are dominated by line/bullet/comma segments that start
// with a quantity; prose is dominated by sentences.
func DetectFormat(text string) Format {
	segments := splitSegments(text)
	if len(segments) == 0 {
		return FormatProse
	}
	quantified := 0
	for _, seg := range segments {
		if quantityPattern.MatchString(seg) {
			quantified++
		}
	}
	ratio := float64(quantified) / float64(len(segments))
	switch {
	case ratio >= 0.6:
		return FormatList
	case ratio <= 0.2:
		return FormatProse
	default:
		return FormatMixed
	}
}

var (
	// quantityPattern matches a leading amount: "2", "1.5", "1/2", "1 1/2".
	quantityPattern = regexp.MustCompile(`^\s*(\d+\s+\d+/\d+|\d+/\d+|\d+(?:\.\d+)?)`)

	// ingredientPattern captures quantity, optional unit token and name.
	ingredientPattern = regexp.MustCompile(
		`^\s*(\d+\s+\d+/\d+|\d+/\d+|\d+(?:\.\d+)?)\s*([A-Za-z]+)?\s*(?:of\s+)?(.*)$`)

	bulletPrefix = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s*`)
)

// RuleParse is the cheap deterministic parser. It splits the text into
// segments and matches quantity+unit+name patterns against the closed
// unit vocabulary. Returns the candidates and an overall confidence.
func RuleParse(text string) ([]Ingredient, float64) {
	var out []Ingredient
	total := 0.0
	for _, seg := range splitSegments(text) {
		ing, ok := parseSegment(seg)
		if !ok {
			continue
		}
		out = append(out, ing)
		total += ing.Confidence
	}
	if len(out) == 0 {
		return nil, 0
	}
	return out, total / float64(len(out))
}

// DegradedParse is the last-resort decomposition used when every other
// stage has failed: split on list markers and sentence boundaries and
// treat each fragment as a low-confidence name-only ingredient. It never
// returns nil for input containing at least one non-empty fragment.
func DegradedParse(text string) []Ingredient {
	var out []Ingredient
	for _, seg := range splitSegments(text) {
		name := strings.TrimSpace(seg)
		if name == "" {
			continue
		}
		if ing, ok := parseSegment(seg); ok {
			ing.Confidence = confDegraded
			ing.Issues = append(ing.Issues, "validation degraded")
			out = append(out, ing)
			continue
		}
		out = append(out, Ingredient{
			Name:       name,
			Category:   CategoryFor(name),
			Allergens:  AllergensFor(name),
			Confidence: confDegraded,
			Issues:     []string{"validation degraded"},
		})
	}
	return out
}

// parseSegment extracts one ingredient from a text fragment.
func parseSegment(seg string) (Ingredient, bool) {
	seg = bulletPrefix.ReplaceAllString(strings.TrimSpace(seg), "")
	if seg == "" {
		return Ingredient{}, false
	}

	m := ingredientPattern.FindStringSubmatch(seg)
	if m == nil {
		// No leading quantity: name-only candidates still count when the
		// fragment is short enough to plausibly be an ingredient.
		if len(strings.Fields(seg)) <= 4 {
			name := cleanName(seg)
			if name == "" {
				return Ingredient{}, false
			}
			return Ingredient{
				Name:       name,
				Category:   CategoryFor(name),
				Allergens:  AllergensFor(name),
				Confidence: confNameOnly,
			}, true
		}
		return Ingredient{}, false
	}

	qty := parseQuantity(m[1])
	unitToken, rest := m[2], m[3]

	ing := Ingredient{Quantity: &qty, Confidence: confQuantityOnly}
	if canonical, ok := CanonicalUnit(unitToken); ok {
		ing.Unit = &canonical
		ing.Confidence = confQuantityUnit
	} else if unitToken != "" {
		// Not a unit, so the token is part of the name ("3 eggs").
		rest = strings.TrimSpace(unitToken + " " + rest)
	}

	name, prep := splitPreparation(rest)
	name = cleanName(name)
	if name == "" {
		return Ingredient{}, false
	}
	ing.Name = name
	ing.Preparation = prep
	ing.Category = CategoryFor(name)
	ing.Allergens = AllergensFor(name)
	return ing, true
}

// parseQuantity handles decimals, fractions and mixed numbers.
func parseQuantity(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if whole, frac, found := strings.Cut(raw, " "); found {
		return parseQuantity(whole) + parseQuantity(frac)
	}
	if num, den, found := strings.Cut(raw, "/"); found {
		n, errN := strconv.ParseFloat(num, 64)
		d, errD := strconv.ParseFloat(den, 64)
		if errN == nil && errD == nil && d != 0 {
			return n / d
		}
		return 0
	}
	v, _ := strconv.ParseFloat(raw, 64) //nolint:errcheck
	return v
}

// splitPreparation separates "onion, diced" style trailing instructions.
func splitPreparation(s string) (name, prep string) {
	if before, after, found := strings.Cut(s, ","); found {
		return before, strings.TrimSpace(after)
	}
	return s, ""
}

func cleanName(s string) string {
	s = strings.TrimSpace(strings.Trim(s, ".,;:"))
	return strings.Join(strings.Fields(s), " ")
}

// splitSegments breaks raw text into candidate fragments on newlines,
// semicolons and commas. Commas inside a line only split when the line
// looks like an inline list (multiple quantity starts).
func splitSegments(text string) []string {
	var segments []string
	for _, line := range strings.FieldsFunc(text, func(r rune) bool { return r == '\n' || r == ';' }) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Split(line, ",")
		if countQuantified(parts) >= 2 {
			for _, p := range parts {
				if strings.TrimSpace(p) != "" {
					segments = append(segments, p)
				}
			}
			continue
		}
		segments = append(segments, line)
	}
	return segments
}

func countQuantified(parts []string) int {
	n := 0
	for _, p := range parts {
		if quantityPattern.MatchString(p) {
			n++
		}
	}
	return n
}

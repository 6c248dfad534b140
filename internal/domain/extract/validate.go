package extract

import (
	"strings"
)

// Quantities above this are flagged as implausible rather than dropped.
const implausibleQuantity = 1000

// Validate is the deterministic enhancement pass applied to every
// cascade outcome: canonicalize units, fill categories and allergens
// from the lookup tables, deduplicate near-identical names, clamp
// confidences and flag anomalies. It never discards an ingredient for
// looking wrong; anomalies become issues on the record.
func Validate(ingredients []Ingredient) []Ingredient {
	out := make([]Ingredient, 0, len(ingredients))
	for _, ing := range ingredients {
		ing.Name = cleanName(ing.Name)
		if ing.Name == "" {
			continue
		}

		if ing.Unit != nil {
			if canonical, ok := CanonicalUnit(*ing.Unit); ok {
				ing.Unit = &canonical
			} else {
				ing.Issues = append(ing.Issues, "unrecognized unit "+*ing.Unit)
				ing.Unit = nil
			}
		}

		if ing.Category == "" || ing.Category == CategoryOther {
			ing.Category = CategoryFor(ing.Name)
		}
		if len(ing.Allergens) == 0 {
			ing.Allergens = AllergensFor(ing.Name)
		}

		if ing.Quantity != nil {
			switch {
			case *ing.Quantity <= 0:
				ing.Issues = append(ing.Issues, "non-positive quantity")
			case *ing.Quantity > implausibleQuantity:
				ing.Issues = append(ing.Issues, "implausibly large quantity")
			}
		}

		ing.Confidence = clamp01(ing.Confidence)
		out = append(out, ing)
	}
	return dedupe(out)
}

// dedupe collapses near-identical ingredients by normalized name + unit,
// keeping the first occurrence. "Flour" and "flour " are one entry;
// "flour (cup)" and "flour (g)" are two.
func dedupe(ingredients []Ingredient) []Ingredient {
	seen := make(map[string]bool, len(ingredients))
	out := make([]Ingredient, 0, len(ingredients))
	for _, ing := range ingredients {
		key := dedupeKey(ing)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ing)
	}
	return out
}

func dedupeKey(ing Ingredient) string {
	name := singular(strings.ToLower(ing.Name))
	unit := ""
	if ing.Unit != nil {
		unit = *ing.Unit
	}
	return name + "|" + unit
}

// singular strips a trailing plural s so "eggs" and "egg" collapse.
// Deliberately naive; the goal is near-identical names, not linguistics.
func singular(name string) string {
	if len(name) > 3 && strings.HasSuffix(name, "s") && !strings.HasSuffix(name, "ss") {
		return name[:len(name)-1]
	}
	return name
}

// OverallConfidence is the mean per-ingredient confidence, 0 for empty.
func OverallConfidence(ingredients []Ingredient) float64 {
	if len(ingredients) == 0 {
		return 0
	}
	total := 0.0
	for _, ing := range ingredients {
		total += ing.Confidence
	}
	return total / float64(len(ingredients))
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

// Package extract turns unstructured recipe text into structured
// ingredient records via a multi-stage cascade: a cheap rule-based parser
// races a tier-routed model pipeline, and deterministic validation
// guarantees a non-empty, deduplicated result even when every model
// stage fails.
package extract

import "strings"

// unitAliases maps every accepted spelling to its canonical unit. The
// vocabulary is closed: anything not here is not a unit and stays part
// of the ingredient name.
var unitAliases = map[string]string{
	"cup": "cup", "cups": "cup", "c": "cup",
	"tablespoon": "tbsp", "tablespoons": "tbsp", "tbsp": "tbsp", "tbs": "tbsp",
	"teaspoon": "tsp", "teaspoons": "tsp", "tsp": "tsp",
	"gram": "g", "grams": "g", "g": "g",
	"kilogram": "kg", "kilograms": "kg", "kg": "kg",
	"ounce": "oz", "ounces": "oz", "oz": "oz",
	"pound": "lb", "pounds": "lb", "lb": "lb", "lbs": "lb",
	"milliliter": "ml", "milliliters": "ml", "ml": "ml",
	"liter": "l", "liters": "l", "litre": "l", "litres": "l", "l": "l",
	"pinch": "pinch", "pinches": "pinch",
	"dash": "dash", "dashes": "dash",
	"clove": "clove", "cloves": "clove",
	"slice": "slice", "slices": "slice",
	"can": "can", "cans": "can",
	"bunch": "bunch", "bunches": "bunch",
	"piece": "piece", "pieces": "piece",
	"stick": "stick", "sticks": "stick",
	"head": "head", "heads": "head",
	"sprig": "sprig", "sprigs": "sprig",
}

// CanonicalUnit resolves a raw token to the closed unit vocabulary.
func CanonicalUnit(raw string) (string, bool) {
	unit, ok := unitAliases[strings.ToLower(strings.TrimSpace(raw))]
	return unit, ok
}

// Ingredient categories.
const (
	CategoryProduce = "produce"
	CategoryDairy   = "dairy"
	CategoryProtein = "protein"
	CategoryGrains  = "grains"
	CategoryBaking  = "baking"
	CategorySpices  = "spices"
	CategoryOils    = "oils"
	CategoryOther   = "other"
)

// categoryKeywords maps name fragments to categories, checked in order.
var categoryKeywords = []struct {
	keyword  string
	category string
}{
	{"flour", CategoryBaking}, {"sugar", CategoryBaking}, {"baking powder", CategoryBaking},
	{"baking soda", CategoryBaking}, {"yeast", CategoryBaking}, {"vanilla", CategoryBaking},
	{"chocolate", CategoryBaking}, {"cocoa", CategoryBaking}, {"honey", CategoryBaking},

	{"milk", CategoryDairy}, {"butter", CategoryDairy}, {"cream", CategoryDairy},
	{"cheese", CategoryDairy}, {"yogurt", CategoryDairy}, {"yoghurt", CategoryDairy},

	{"egg", CategoryProtein}, {"chicken", CategoryProtein}, {"beef", CategoryProtein},
	{"pork", CategoryProtein}, {"fish", CategoryProtein}, {"salmon", CategoryProtein},
	{"shrimp", CategoryProtein}, {"tofu", CategoryProtein}, {"bean", CategoryProtein},
	{"lentil", CategoryProtein}, {"turkey", CategoryProtein}, {"bacon", CategoryProtein},

	{"rice", CategoryGrains}, {"pasta", CategoryGrains}, {"noodle", CategoryGrains},
	{"bread", CategoryGrains}, {"oat", CategoryGrains}, {"quinoa", CategoryGrains},
	{"tortilla", CategoryGrains}, {"couscous", CategoryGrains},

	{"salt", CategorySpices}, {"pepper", CategorySpices}, {"paprika", CategorySpices},
	{"cumin", CategorySpices}, {"cinnamon", CategorySpices}, {"oregano", CategorySpices},
	{"basil", CategorySpices}, {"thyme", CategorySpices}, {"rosemary", CategorySpices},
	{"chili", CategorySpices}, {"curry", CategorySpices}, {"ginger", CategorySpices},

	{"oil", CategoryOils}, {"vinegar", CategoryOils},

	{"onion", CategoryProduce}, {"garlic", CategoryProduce}, {"tomato", CategoryProduce},
	{"potato", CategoryProduce}, {"carrot", CategoryProduce}, {"celery", CategoryProduce},
	{"lettuce", CategoryProduce}, {"spinach", CategoryProduce}, {"apple", CategoryProduce},
	{"lemon", CategoryProduce}, {"lime", CategoryProduce}, {"banana", CategoryProduce},
	{"mushroom", CategoryProduce}, {"broccoli", CategoryProduce}, {"cucumber", CategoryProduce},
	{"avocado", CategoryProduce}, {"cilantro", CategoryProduce}, {"parsley", CategoryProduce},
}

// CategoryFor infers an ingredient category from its name.
func CategoryFor(name string) string {
	lower := strings.ToLower(name)
	for _, entry := range categoryKeywords {
		if strings.Contains(lower, entry.keyword) {
			return entry.category
		}
	}
	return CategoryOther
}

// allergenKeywords maps name fragments to allergen tags.
var allergenKeywords = []struct {
	keyword   string
	allergens []string
}{
	{"flour", []string{"gluten"}}, {"wheat", []string{"gluten"}},
	{"bread", []string{"gluten"}}, {"pasta", []string{"gluten"}},
	{"noodle", []string{"gluten"}}, {"couscous", []string{"gluten"}},
	{"soy sauce", []string{"soy", "gluten"}},
	{"milk", []string{"dairy"}}, {"butter", []string{"dairy"}},
	{"cream", []string{"dairy"}}, {"cheese", []string{"dairy"}},
	{"yogurt", []string{"dairy"}}, {"yoghurt", []string{"dairy"}},
	{"egg", []string{"egg"}},
	{"peanut", []string{"peanuts"}},
	{"almond", []string{"tree nuts"}}, {"walnut", []string{"tree nuts"}},
	{"cashew", []string{"tree nuts"}}, {"pecan", []string{"tree nuts"}},
	{"hazelnut", []string{"tree nuts"}}, {"pistachio", []string{"tree nuts"}},
	{"soy", []string{"soy"}}, {"tofu", []string{"soy"}},
	{"shrimp", []string{"shellfish"}}, {"crab", []string{"shellfish"}},
	{"lobster", []string{"shellfish"}},
	{"fish", []string{"fish"}}, {"salmon", []string{"fish"}},
	{"tuna", []string{"fish"}}, {"anchov", []string{"fish"}},
	{"sesame", []string{"sesame"}}, {"tahini", []string{"sesame"}},
	{"mustard", []string{"mustard"}},
}

// AllergensFor returns the allergen tags detectable from the name.
func AllergensFor(name string) []string {
	lower := strings.ToLower(name)
	seen := make(map[string]bool)
	var out []string
	for _, entry := range allergenKeywords {
		if !strings.Contains(lower, entry.keyword) {
			continue
		}
		for _, a := range entry.allergens {
			if !seen[a] {
				seen[a] = true
				out = append(out, a)
			}
		}
	}
	return out
}

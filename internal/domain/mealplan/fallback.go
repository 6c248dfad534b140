package mealplan

import "fmt"

// Canonical meal types. Requests may use others; unknown types fall back
// to the generic pool.
const (
	MealBreakfast = "breakfast"
	MealLunch     = "lunch"
	MealDinner    = "dinner"
	MealSnack     = "snack"
)

// fallbackRecipe is one canned entry in the deterministic pool.
type fallbackRecipe struct {
	title       string
	description string
}

// fallbackPools holds the fixed rotation per meal type. The generator
// picks pool[dayIndex % len(pool)], so refilling the same grid always
// produces the same plan.
var fallbackPools = map[string][]fallbackRecipe{
	MealBreakfast: {
		{"Oatmeal with Berries", "Rolled oats simmered in milk, topped with mixed berries and honey"},
		{"Scrambled Eggs on Toast", "Soft scrambled eggs with buttered whole-grain toast"},
		{"Greek Yogurt Parfait", "Yogurt layered with granola and sliced banana"},
		{"Avocado Toast", "Smashed avocado on sourdough with a squeeze of lemon"},
		{"Banana Pancakes", "Fluffy pancakes with mashed banana folded into the batter"},
	},
	MealLunch: {
		{"Chicken Caesar Wrap", "Grilled chicken, romaine and parmesan in a flour tortilla"},
		{"Tomato Soup with Grilled Cheese", "Creamy tomato soup and a crisp cheddar sandwich"},
		{"Quinoa Salad Bowl", "Quinoa with cucumber, chickpeas, feta and lemon dressing"},
		{"Turkey Club Sandwich", "Turkey, bacon, lettuce and tomato on toasted bread"},
		{"Veggie Stir-Fry with Rice", "Mixed vegetables in soy-ginger sauce over steamed rice"},
	},
	MealDinner: {
		{"Spaghetti Bolognese", "Slow-simmered beef and tomato ragu over spaghetti"},
		{"Baked Salmon with Vegetables", "Oven-roasted salmon fillet with seasonal vegetables"},
		{"Chicken Fajitas", "Seared chicken with peppers and onions, served with tortillas"},
		{"Vegetable Curry with Rice", "Coconut vegetable curry over basmati rice"},
		{"Beef Tacos", "Seasoned ground beef tacos with fresh salsa and cheese"},
	},
	MealSnack: {
		{"Apple with Peanut Butter", "Crisp apple slices with a spoonful of peanut butter"},
		{"Hummus and Carrots", "Carrot sticks with classic hummus"},
		{"Trail Mix", "Nuts, seeds and dried fruit"},
	},
}

// genericPool backs any meal type without a dedicated pool.
var genericPool = []fallbackRecipe{
	{"Chef's Choice Bowl", "Grain bowl with roasted vegetables and a simple dressing"},
	{"Simple Pasta", "Pasta with olive oil, garlic and parmesan"},
	{"Garden Salad with Protein", "Mixed greens with a grilled protein of choice"},
}

// synthesize produces the deterministic fallback meal for a slot.
// Side-effect free: the same (date, mealType, dayIndex, servings) always
// yields the same meal.
func synthesize(date, mealType string, dayIndex, servings int) Meal {
	pool, ok := fallbackPools[mealType]
	if !ok {
		pool = genericPool
	}
	recipe := pool[dayIndex%len(pool)]

	if servings <= 0 {
		servings = 2
	}
	return Meal{
		Date:        date,
		MealType:    mealType,
		Title:       recipe.title,
		Description: fmt.Sprintf("%s (serves %d)", recipe.description, servings),
		Servings:    servings,
		Synthesized: true,
	}
}

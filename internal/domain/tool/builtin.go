package tool

import (
	"context"
	"fmt"
)

// The orchestration core never talks to application storage directly.
// DataStore is the narrow boundary the builtin tools call through; the
// application wires its real persistence behind it, tests wire MemStore.

// PantryItem is one item the user has on hand.
type PantryItem struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity,omitempty"`
	Unit     string  `json:"unit,omitempty"`
}

// GroceryItem is one item on the shopping list.
type GroceryItem struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity,omitempty"`
	Unit     string  `json:"unit,omitempty"`
}

// Recipe is a stored recipe summary.
type Recipe struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Ingredients  []string `json:"ingredients,omitempty"`
	Instructions string   `json:"instructions,omitempty"`
}

// Meal-plan clearing scopes. "week" clears the current week only;
// "all" clears everything. Ambiguous or missing scope defaults to the
// conservative "week".
const (
	ScopeWeek = "week"
	ScopeAll  = "all"
)

// DataStore is the application-data boundary used by the builtin tools.
type DataStore interface {
	ReadPantry(ctx context.Context) ([]PantryItem, error)
	AddPantryItem(ctx context.Context, item PantryItem) error
	RemovePantryItem(ctx context.Context, name string) (bool, error)
	CreateGroceryItem(ctx context.Context, item GroceryItem) error
	ListRecipes(ctx context.Context, query string) ([]Recipe, error)
	SaveRecipe(ctx context.Context, recipe Recipe) (Recipe, error)
	ClearMealPlan(ctx context.Context, scope string) (int, error)
}

// RegisterBuiltins registers the cooking-data tools against store.
func RegisterBuiltins(reg *Registry, store DataStore) error {
	defs := []Definition{
		{
			Name:        "read_pantry",
			Description: "List every item currently in the user's pantry.",
			Parameters:  objectSchema(map[string]any{}, nil),
			Handler: func(ctx context.Context, _ map[string]any) (any, error) {
				return store.ReadPantry(ctx)
			},
		},
		{
			Name:        "add_pantry_item",
			Description: "Add an item to the user's pantry.",
			Parameters: objectSchema(map[string]any{
				"name":     map[string]any{"type": "string", "description": "Item name"},
				"quantity": map[string]any{"type": "number", "description": "Amount on hand"},
				"unit":     map[string]any{"type": "string", "description": "Unit for the quantity"},
			}, []string{"name"}),
			Required: []string{"name"},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				item := PantryItem{
					Name:     stringArg(args, "name"),
					Quantity: numberArg(args, "quantity"),
					Unit:     stringArg(args, "unit"),
				}
				if err := store.AddPantryItem(ctx, item); err != nil {
					return nil, err
				}
				return item, nil
			},
		},
		{
			Name:        "remove_pantry_item",
			Description: "Remove an item from the user's pantry by name.",
			Parameters: objectSchema(map[string]any{
				"name": map[string]any{"type": "string", "description": "Item name to remove"},
			}, []string{"name"}),
			Required: []string{"name"},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				name := stringArg(args, "name")
				removed, err := store.RemovePantryItem(ctx, name)
				if err != nil {
					return nil, err
				}
				if !removed {
					return nil, fmt.Errorf("no pantry item named %q", name)
				}
				return map[string]any{"removed": name}, nil
			},
		},
		{
			Name:        "create_grocery_item",
			Description: "Add an item to the user's grocery shopping list.",
			Parameters: objectSchema(map[string]any{
				"name":     map[string]any{"type": "string", "description": "Item name"},
				"quantity": map[string]any{"type": "number", "description": "Amount to buy"},
				"unit":     map[string]any{"type": "string", "description": "Unit for the quantity"},
			}, []string{"name"}),
			Required: []string{"name"},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				item := GroceryItem{
					Name:     stringArg(args, "name"),
					Quantity: numberArg(args, "quantity"),
					Unit:     stringArg(args, "unit"),
				}
				if err := store.CreateGroceryItem(ctx, item); err != nil {
					return nil, err
				}
				return item, nil
			},
		},
		{
			Name:        "list_recipes",
			Description: "List the user's saved recipes, optionally filtered by a search query.",
			Parameters: objectSchema(map[string]any{
				"query": map[string]any{"type": "string", "description": "Optional title filter"},
			}, nil),
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return store.ListRecipes(ctx, stringArg(args, "query"))
			},
		},
		{
			Name:        "save_recipe",
			Description: "Save a recipe to the user's collection.",
			Parameters: objectSchema(map[string]any{
				"title":        map[string]any{"type": "string", "description": "Recipe title"},
				"ingredients":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"instructions": map[string]any{"type": "string"},
			}, []string{"title"}),
			Required: []string{"title"},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				recipe := Recipe{
					Title:        stringArg(args, "title"),
					Instructions: stringArg(args, "instructions"),
				}
				if raw, ok := args["ingredients"].([]any); ok {
					for _, v := range raw {
						if s, ok := v.(string); ok {
							recipe.Ingredients = append(recipe.Ingredients, s)
						}
					}
				}
				return store.SaveRecipe(ctx, recipe)
			},
		},
		{
			Name: "clear_meal_plan",
			Description: "Clear the user's meal plan. Scope must be \"week\" (current week) " +
				"or \"all\" (everything); anything else is treated as \"week\".",
			Parameters: objectSchema(map[string]any{
				"scope": map[string]any{"type": "string", "enum": []string{ScopeWeek, ScopeAll}},
			}, nil),
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				scope := stringArg(args, "scope")
				if scope != ScopeAll {
					scope = ScopeWeek
				}
				cleared, err := store.ClearMealPlan(ctx, scope)
				if err != nil {
					return nil, err
				}
				return map[string]any{"scope": scope, "cleared": cleared}, nil
			},
		},
	}

	for _, def := range defs {
		if err := reg.Register(def); err != nil {
			return err
		}
	}
	return nil
}

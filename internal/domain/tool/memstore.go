package tool

import (
	"context"
	"strings"
	"sync"

	"github.com/sous-ai/sous/pkg/uuid"
)

// MemStore is an in-memory DataStore. It backs tests and the standalone
// development server where no application database is wired.
type MemStore struct {
	mu        sync.Mutex
	pantry    []PantryItem
	groceries []GroceryItem
	recipes   []Recipe
	mealSlots int // pretend plan size, decremented by ClearMealPlan
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{}
}

func (s *MemStore) ReadPantry(_ context.Context) ([]PantryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PantryItem, len(s.pantry))
	copy(out, s.pantry)
	return out, nil
}

func (s *MemStore) AddPantryItem(_ context.Context, item PantryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pantry = append(s.pantry, item)
	return nil
}

func (s *MemStore) RemovePantryItem(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, item := range s.pantry {
		if strings.EqualFold(item.Name, name) {
			s.pantry = append(s.pantry[:i], s.pantry[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *MemStore) CreateGroceryItem(_ context.Context, item GroceryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groceries = append(s.groceries, item)
	return nil
}

func (s *MemStore) ListRecipes(_ context.Context, query string) ([]Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if query == "" {
		out := make([]Recipe, len(s.recipes))
		copy(out, s.recipes)
		return out, nil
	}
	var out []Recipe
	q := strings.ToLower(query)
	for _, r := range s.recipes {
		if strings.Contains(strings.ToLower(r.Title), q) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemStore) SaveRecipe(_ context.Context, recipe Recipe) (Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if recipe.ID == "" {
		recipe.ID = uuid.NewV7().String()
	}
	s.recipes = append(s.recipes, recipe)
	return recipe, nil
}

func (s *MemStore) ClearMealPlan(_ context.Context, scope string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cleared := s.mealSlots
	if scope == ScopeWeek && s.mealSlots > 7 {
		cleared = 7
	}
	s.mealSlots -= cleared
	return cleared, nil
}

// SetMealSlots seeds the pretend plan size. Test helper.
func (s *MemStore) SetMealSlots(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mealSlots = n
}

// Groceries returns a copy of the grocery list. Test helper.
func (s *MemStore) Groceries() []GroceryItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]GroceryItem, len(s.groceries))
	copy(out, s.groceries)
	return out
}

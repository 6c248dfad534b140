// Package mealplan generates meal plans and guarantees full coverage of
// the requested (date × meal-type) grid. The model proposes candidates;
// the coverage engine discards invalid and duplicate entries and fills
// every remaining slot deterministically.
package mealplan

import (
	"time"
)

// Meal is one assignment in a plan.
type Meal struct {
	Date        string `json:"date"` // YYYY-MM-DD
	MealType    string `json:"meal_type"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Servings    int    `json:"servings"`
	Synthesized bool   `json:"synthesized"` // true when filled by the fallback generator
}

// Slot is the natural key of the coverage grid.
type Slot struct {
	Date     string
	MealType string
}

// Metrics reports how the grid was filled, for observability.
type Metrics struct {
	FromModel           int `json:"from_model"`
	Synthesized         int `json:"synthesized"`
	DuplicatesDiscarded int `json:"duplicates_discarded"`
	InvalidDiscarded    int `json:"invalid_discarded"`
}

// Complete merges model candidates into the required grid. Candidates
// outside the grid are discarded, duplicates keep the first occurrence,
// and every missing slot is filled by the deterministic fallback
// generator. Pure and idempotent: identical inputs produce identical
// output, always of length len(dates) × len(mealTypes).
func Complete(candidates []Meal, dates, mealTypes []string, servings int) ([]Meal, Metrics) {
	var m Metrics

	inGrid := make(map[Slot]bool, len(dates)*len(mealTypes))
	for _, d := range dates {
		for _, mt := range mealTypes {
			inGrid[Slot{Date: d, MealType: mt}] = true
		}
	}

	assigned := make(map[Slot]Meal, len(inGrid))
	for _, c := range candidates {
		key := Slot{Date: c.Date, MealType: c.MealType}
		switch {
		case c.Title == "" || !inGrid[key]:
			m.InvalidDiscarded++
		case hasSlot(assigned, key):
			m.DuplicatesDiscarded++
		default:
			c.Synthesized = false
			if c.Servings <= 0 {
				c.Servings = servings
			}
			assigned[key] = c
			m.FromModel++
		}
	}

	// Walk the grid in order (dates outer, meal types inner) so output
	// ordering and fallback rotation are stable.
	out := make([]Meal, 0, len(inGrid))
	for dayIdx, d := range dates {
		for _, mt := range mealTypes {
			key := Slot{Date: d, MealType: mt}
			if meal, ok := assigned[key]; ok {
				out = append(out, meal)
				continue
			}
			out = append(out, synthesize(d, mt, dayIdx, servings))
			m.Synthesized++
		}
	}
	return out, m
}

func hasSlot(assigned map[Slot]Meal, key Slot) bool {
	_, ok := assigned[key]
	return ok
}

// Dates expands an inclusive date range into YYYY-MM-DD strings.
func Dates(start, end time.Time) []string {
	start = start.Truncate(24 * time.Hour)
	end = end.Truncate(24 * time.Hour)
	var out []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d.Format("2006-01-02"))
	}
	return out
}

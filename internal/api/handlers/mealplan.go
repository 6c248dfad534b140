package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sous-ai/sous/internal/domain/mealplan"
)

// Planner is what the meal-plan handler needs from the domain layer.
type Planner interface {
	Generate(ctx context.Context, req mealplan.Request) (*mealplan.Plan, error)
}

// MealPlanHandler handles POST /api/v1/assistant/mealplan.
type MealPlanHandler struct {
	planner Planner
}

// NewMealPlanHandler creates a MealPlanHandler backed by the service.
func NewMealPlanHandler(planner Planner) *MealPlanHandler {
	return &MealPlanHandler{planner: planner}
}

// MealPlanRequest is the request body for POST /api/v1/assistant/mealplan.
// Dates are inclusive, formatted YYYY-MM-DD.
type MealPlanRequest struct {
	StartDate   string   `json:"startDate"`
	EndDate     string   `json:"endDate"`
	MealTypes   []string `json:"mealTypes,omitempty"`
	Preferences string   `json:"preferences,omitempty"`
	PeopleCount int      `json:"peopleCount,omitempty"`
}

const dateLayout = "2006-01-02"

// Generate produces a fully covered meal plan.
//
// Response codes:
//   - 200 OK: plan produced (possibly degraded — check the flag)
//   - 400 Bad Request: invalid JSON, unparseable dates or invalid range
//   - 401 Unauthorized: missing user context
func (h *MealPlanHandler) Generate(w http.ResponseWriter, r *http.Request) {
	userID, err := getUserID(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}

	var req MealPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "startDate must be YYYY-MM-DD")
		return
	}
	end, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "endDate must be YYYY-MM-DD")
		return
	}

	plan, err := h.planner.Generate(r.Context(), mealplan.Request{
		UserID:      userID,
		StartDate:   start,
		EndDate:     end,
		MealTypes:   req.MealTypes,
		Preferences: req.Preferences,
		PeopleCount: req.PeopleCount,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// mealplan.Plan carries its own JSON tags.
	writeJSON(w, http.StatusOK, plan)
}

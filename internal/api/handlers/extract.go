package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sous-ai/sous/internal/domain/extract"
)

// Extractor is what the extract handler needs from the domain layer.
type Extractor interface {
	Extract(ctx context.Context, recipeText string, servings int) (*extract.Result, error)
}

// ExtractHandler handles POST /api/v1/assistant/extract.
type ExtractHandler struct {
	extractor Extractor
}

// NewExtractHandler creates an ExtractHandler backed by the cascade.
func NewExtractHandler(extractor Extractor) *ExtractHandler {
	return &ExtractHandler{extractor: extractor}
}

// ExtractRequest is the request body for POST /api/v1/assistant/extract.
type ExtractRequest struct {
	RecipeText string `json:"recipeText"`
	Servings   int    `json:"servings,omitempty"`
}

// Extract turns recipe text into structured ingredients.
//
// Response codes:
//   - 200 OK: extraction produced (possibly degraded — check the flag)
//   - 400 Bad Request: invalid JSON or empty recipe text
//   - 401 Unauthorized: missing user context
func (h *ExtractHandler) Extract(w http.ResponseWriter, r *http.Request) {
	if _, err := getUserID(r.Context()); err != nil {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}

	var req ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RecipeText == "" {
		writeError(w, http.StatusBadRequest, "recipeText is required")
		return
	}

	result, err := h.extractor.Extract(r.Context(), req.RecipeText, req.Servings)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// extract.Result carries its own JSON tags.
	writeJSON(w, http.StatusOK, result)
}

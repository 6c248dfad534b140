package handlers

import (
	"context"
	"encoding/json"
	"net/http"
)

// CacheInvalidator is what the admin handler needs from the cache.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, pattern string) (int64, error)
	PurgeExpired(ctx context.Context) (int64, error)
}

// AdminHandler handles cache maintenance endpoints.
type AdminHandler struct {
	cache CacheInvalidator
}

// NewAdminHandler creates an AdminHandler over the response cache.
func NewAdminHandler(cache CacheInvalidator) *AdminHandler {
	return &AdminHandler{cache: cache}
}

// InvalidateRequest is the request body for POST /api/v1/admin/cache/invalidate.
// Pattern uses SQL LIKE syntax against the task type, e.g. "chat:%".
type InvalidateRequest struct {
	Pattern string `json:"pattern"`
}

// InvalidateResponse reports how many durable entries were removed.
// The memory layer is dropped wholesale and is not counted.
type InvalidateResponse struct {
	Removed int64 `json:"removed"`
}

// InvalidateCache handles POST /api/v1/admin/cache/invalidate.
//
// Response codes:
//   - 200 OK: entries removed
//   - 400 Bad Request: invalid JSON or missing pattern
func (h *AdminHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	var req InvalidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Pattern == "" {
		writeError(w, http.StatusBadRequest, "pattern is required")
		return
	}

	removed, err := h.cache.Invalidate(r.Context(), req.Pattern)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "invalidation failed")
		return
	}

	writeJSON(w, http.StatusOK, InvalidateResponse{Removed: removed})
}

// PurgeExpired handles POST /api/v1/admin/cache/purge. Removes durable
// entries whose TTL has elapsed.
func (h *AdminHandler) PurgeExpired(w http.ResponseWriter, r *http.Request) {
	removed, err := h.cache.PurgeExpired(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "purge failed")
		return
	}

	writeJSON(w, http.StatusOK, InvalidateResponse{Removed: removed})
}

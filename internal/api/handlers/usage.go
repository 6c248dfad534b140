package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/sous-ai/sous/internal/infra/ledger"
)

// UsageReader is what the usage handler needs from the ledger.
type UsageReader interface {
	Summarize(ctx context.Context, userID string, since time.Time) (*ledger.Summary, error)
}

// UsageHandler handles GET /api/v1/usage.
type UsageHandler struct {
	usage UsageReader
}

// NewUsageHandler creates a UsageHandler backed by the cost ledger.
func NewUsageHandler(usage UsageReader) *UsageHandler {
	return &UsageHandler{usage: usage}
}

// Summary handles GET /api/v1/usage?since=<duration>.
// Reports the authenticated user's own usage. The since query param is
// a Go duration (e.g. "24h", "168h"); omitted means all time.
//
// Response codes:
//   - 200 OK: summary produced
//   - 400 Bad Request: unparseable since value
//   - 401 Unauthorized: missing user context
func (h *UsageHandler) Summary(w http.ResponseWriter, r *http.Request) {
	userID, err := getUserID(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}

	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		window, err := time.ParseDuration(raw)
		if err != nil || window <= 0 {
			writeError(w, http.StatusBadRequest, "since must be a positive duration, e.g. 24h")
			return
		}
		since = time.Now().UTC().Add(-window)
	}

	summary, err := h.usage.Summarize(r.Context(), userID, since)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "usage summary failed")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

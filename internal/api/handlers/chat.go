package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sous-ai/sous/internal/domain/chat"
	"github.com/sous-ai/sous/internal/domain/routing"
)

// ChatService is what the chat handler needs from the domain layer.
type ChatService interface {
	Chat(ctx context.Context, req chat.Request) (*chat.Response, error)
}

// ChatHandler handles POST /api/v1/assistant/chat.
type ChatHandler struct {
	chatService ChatService
}

// NewChatHandler creates a ChatHandler backed by the provided service.
func NewChatHandler(chatService ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// ChatRequest is the request body for POST /api/v1/assistant/chat.
type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId,omitempty"`
	ImageURL       string `json:"imageUrl,omitempty"`
	Priority       string `json:"priority,omitempty"` // "cost", "speed" or "quality"
}

// ChatResponse is the response body. Metadata surfaces routing detail
// for debugging clients; nothing in it is needed to render the answer.
type ChatResponse struct {
	Message        string       `json:"message"`
	ConversationID string       `json:"conversationId"`
	TiersUsed      []string     `json:"tiersUsed,omitempty"`
	ToolsUsed      []string     `json:"toolsUsed,omitempty"`
	Cached         bool         `json:"cached"`
	Degraded       bool         `json:"degraded"`
	Metadata       ChatMetadata `json:"metadata"`
}

// ChatMetadata mirrors chat.Metadata with JSON tags.
type ChatMetadata struct {
	Tier       string   `json:"tier"`
	Score      float64  `json:"score"`
	Intents    []string `json:"intents"`
	ToolRounds int      `json:"toolRounds"`
	Retries    int      `json:"retries"`
}

// Chat handles one assistant turn.
//
// Response codes:
//   - 200 OK: answer produced (possibly degraded — check the flag)
//   - 400 Bad Request: invalid JSON or empty message
//   - 401 Unauthorized: missing user context
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	userID, err := getUserID(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	resp, err := h.chatService.Chat(r.Context(), chat.Request{
		UserID:         userID,
		ConversationID: req.ConversationID,
		Utterance:      req.Message,
		ImageURL:       req.ImageURL,
		Priority:       parsePriority(req.Priority),
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	intents := make([]string, 0, len(resp.Metadata.Intents))
	for _, in := range resp.Metadata.Intents {
		intents = append(intents, string(in))
	}
	writeJSON(w, http.StatusOK, ChatResponse{
		Message:        resp.Message,
		ConversationID: resp.ConversationID,
		TiersUsed:      resp.TiersUsed,
		ToolsUsed:      resp.ToolsUsed,
		Cached:         resp.Cached,
		Degraded:       resp.Degraded,
		Metadata: ChatMetadata{
			Tier:       resp.Metadata.Tier,
			Score:      resp.Metadata.Score,
			Intents:    intents,
			ToolRounds: resp.Metadata.ToolRounds,
			Retries:    resp.Metadata.Retries,
		},
	})
}

// parsePriority maps the wire value onto a routing priority. Unknown
// values fall back to none rather than erroring; the hint is advisory.
func parsePriority(s string) routing.Priority {
	switch s {
	case "cost":
		return routing.PriorityCost
	case "speed":
		return routing.PrioritySpeed
	case "quality":
		return routing.PriorityQuality
	default:
		return routing.PriorityNone
	}
}

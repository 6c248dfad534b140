// HTTP handler for the token endpoint (public — no AuthMiddleware).
package handlers

import (
	"encoding/json"
	"net/http"

	pkgauth "github.com/sous-ai/sous/pkg/auth"
)

// AuthHandler exchanges the shared access secret for a JWT. There is no
// user database: the caller names their own user_id, and the bcrypt
// hash of the access secret gates who may do so.
type AuthHandler struct {
	accessSecretHash string
}

// NewAuthHandler creates an AuthHandler over the configured bcrypt hash.
func NewAuthHandler(accessSecretHash string) *AuthHandler {
	return &AuthHandler{accessSecretHash: accessSecretHash}
}

// TokenRequest is the request body for POST /auth/token.
type TokenRequest struct {
	UserID       string `json:"userId"`
	AccessSecret string `json:"accessSecret"`
}

// TokenResponse is the response body returned after a successful exchange.
type TokenResponse struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

// Token handles POST /auth/token.
//
// Response codes:
//   - 200 OK: token issued
//   - 400 Bad Request: invalid JSON or missing required fields
//   - 401 Unauthorized: wrong access secret
//   - 503 Service Unavailable: no access secret configured
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	if h.accessSecretHash == "" {
		writeError(w, http.StatusServiceUnavailable, "token endpoint not configured")
		return
	}

	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}
	if req.AccessSecret == "" {
		writeError(w, http.StatusBadRequest, "accessSecret is required")
		return
	}

	if !pkgauth.VerifySecret(h.accessSecretHash, req.AccessSecret) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := pkgauth.GenerateJWT(req.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token generation failed")
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{Token: token, UserID: req.UserID})
}

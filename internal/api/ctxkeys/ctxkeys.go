// Package ctxkeys holds the shared context keys for the API layer.
// Extracted to a leaf package to avoid import cycles between api and
// api/handlers.
package ctxkeys

import "context"

// Key is the unexported named type for all API context keys. A named
// type keeps context.Value lookups from colliding with plain string
// keys from other packages.
type Key string

// UserID is the context key for the authenticated user. Injected by
// AuthMiddleware from JWT claims, read by every handler that needs
// actor identity.
const UserID Key = "user_id"

// WithValue adds a ctxkeys.Key value to the context.
func WithValue(ctx context.Context, key Key, value string) context.Context {
	return context.WithValue(ctx, key, value)
}

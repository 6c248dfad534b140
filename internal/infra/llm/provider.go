package llm

import "context"

// Provider is the boundary to a model backend. The production
// implementation is Gateway; tests substitute in-memory fakes.
type Provider interface {
	// ChatCompletion performs one completion round trip. Errors wrap one
	// of the package sentinel errors so callers can branch with errors.Is.
	ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// HealthCheck verifies the backend is reachable.
	HealthCheck(ctx context.Context) error
}

package tablestate

import "context"

// Scope tags how much of the view state a gateway write carries.
type Scope string

// ScopeFull marks a write that carries the complete merged state. The cache
// never sends diffs.
const ScopeFull Scope = "full"

// Gateway persists table state remotely. Non-success outcomes are reported
// through the HTTP-style status code; the error is reserved for transport
// failures that produced no status at all.
type Gateway interface {
	UpdateTableState(ctx context.Context, userID int64, scope Scope, purpose Purpose, resourceID int64, state TableState) (int, error)
}

// GatewayFunc adapts a function to Gateway.
type GatewayFunc func(ctx context.Context, userID int64, scope Scope, purpose Purpose, resourceID int64, state TableState) (int, error)

// UpdateTableState implements Gateway.
func (f GatewayFunc) UpdateTableState(ctx context.Context, userID int64, scope Scope, purpose Purpose, resourceID int64, state TableState) (int, error) {
	return f(ctx, userID, scope, purpose, resourceID, state)
}

// IsSuccess reports whether status is a 2xx code.
func IsSuccess(status int) bool {
	return status >= 200 && status < 300
}

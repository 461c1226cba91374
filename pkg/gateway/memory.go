package gateway

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/sboagy/tablestate"
)

// Call captures one UpdateTableState invocation.
type Call struct {
	UserID     int64
	Scope      tablestate.Scope
	Purpose    tablestate.Purpose
	ResourceID int64
	State      tablestate.TableState
	At         time.Time
}

// Key returns the cache key the call was made for.
func (c Call) Key() tablestate.Key {
	return tablestate.NewKey(c.UserID, c.Purpose, c.ResourceID)
}

// Responder decides the outcome of a call. It may block, which lets tests
// hold a write in flight.
type Responder func(ctx context.Context, call Call) (int, error)

// StatusResponder always answers with status.
func StatusResponder(status int) Responder {
	return func(context.Context, Call) (int, error) {
		return status, nil
	}
}

// MemoryGateway is an in-memory Gateway for tests and examples. Confirmed
// writes are kept under Key.Identifier().
type MemoryGateway struct {
	mu        sync.RWMutex
	records   map[string]tablestate.TableState
	calls     []Call
	responder Responder
}

var _ tablestate.Gateway = (*MemoryGateway)(nil)

// NewMemoryGateway returns a gateway answering 200 to every call.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		records:   map[string]tablestate.TableState{},
		responder: StatusResponder(http.StatusOK),
	}
}

// Respond replaces the responder used for subsequent calls. A nil responder
// restores the default 200.
func (g *MemoryGateway) Respond(responder Responder) {
	if responder == nil {
		responder = StatusResponder(http.StatusOK)
	}
	g.mu.Lock()
	g.responder = responder
	g.mu.Unlock()
}

// UpdateTableState implements tablestate.Gateway.
func (g *MemoryGateway) UpdateTableState(ctx context.Context, userID int64, scope tablestate.Scope, purpose tablestate.Purpose, resourceID int64, state tablestate.TableState) (int, error) {
	call := Call{
		UserID:     userID,
		Scope:      scope,
		Purpose:    purpose,
		ResourceID: resourceID,
		State:      state.Clone(),
		At:         time.Now(),
	}

	g.mu.Lock()
	g.calls = append(g.calls, call)
	responder := g.responder
	g.mu.Unlock()

	status, err := responder(ctx, call)
	if err != nil || !tablestate.IsSuccess(status) {
		return status, err
	}

	g.mu.Lock()
	g.records[call.Key().Identifier()] = call.State.Clone()
	g.mu.Unlock()
	return status, nil
}

// Load returns the last confirmed state for key.
func (g *MemoryGateway) Load(key tablestate.Key) (tablestate.TableState, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	state, ok := g.records[key.Identifier()]
	if !ok {
		return tablestate.TableState{}, false
	}
	return state.Clone(), true
}

// Calls returns every call received so far, in arrival order.
func (g *MemoryGateway) Calls() []Call {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Call, len(g.calls))
	for i, call := range g.calls {
		call.State = call.State.Clone()
		out[i] = call
	}
	return out
}

package gateway_test

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"testing"

	"github.com/sboagy/tablestate"
	"github.com/sboagy/tablestate/pkg/gateway"
)

func TestMemoryGatewayStoresConfirmedWrites(t *testing.T) {
	gw := gateway.NewMemoryGateway()
	key := tablestate.NewKey(1, tablestate.PurposePractice, 9)
	state := tablestate.TableState{ColumnOrder: []string{"id", "title"}}

	status, err := gw.UpdateTableState(context.Background(), key.UserID, tablestate.ScopeFull, key.Purpose, key.ResourceID, state)
	if err != nil || status != http.StatusOK {
		t.Fatalf("expected 200, got status=%d err=%v", status, err)
	}

	state.ColumnOrder[0] = "mutated"
	stored, ok := gw.Load(key)
	if !ok {
		t.Fatalf("expected stored state")
	}
	if !reflect.DeepEqual(stored.ColumnOrder, []string{"id", "title"}) {
		t.Fatalf("expected stored copy detached from caller, got %v", stored.ColumnOrder)
	}

	calls := gw.Calls()
	if len(calls) != 1 || calls[0].Scope != tablestate.ScopeFull || calls[0].Key() != key {
		t.Fatalf("unexpected calls: %+v", calls)
	}
}

func TestMemoryGatewayScriptedFailuresAreNotStored(t *testing.T) {
	gw := gateway.NewMemoryGateway()
	key := tablestate.NewKey(1, tablestate.PurposeRepertoire, 9)

	gw.Respond(gateway.StatusResponder(http.StatusServiceUnavailable))
	status, err := gw.UpdateTableState(context.Background(), key.UserID, tablestate.ScopeFull, key.Purpose, key.ResourceID, tablestate.TableState{})
	if err != nil || status != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got status=%d err=%v", status, err)
	}

	boom := errors.New("network down")
	gw.Respond(func(context.Context, gateway.Call) (int, error) { return 0, boom })
	if _, err := gw.UpdateTableState(context.Background(), key.UserID, tablestate.ScopeFull, key.Purpose, key.ResourceID, tablestate.TableState{}); !errors.Is(err, boom) {
		t.Fatalf("expected scripted error, got %v", err)
	}

	if _, ok := gw.Load(key); ok {
		t.Fatalf("expected nothing stored after failures")
	}
	if len(gw.Calls()) != 2 {
		t.Fatalf("expected both calls recorded, got %d", len(gw.Calls()))
	}

	gw.Respond(nil)
	if status, _ := gw.UpdateTableState(context.Background(), key.UserID, tablestate.ScopeFull, key.Purpose, key.ResourceID, tablestate.TableState{}); status != http.StatusOK {
		t.Fatalf("expected default responder restored, got %d", status)
	}
}

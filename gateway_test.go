package tablestate_test

import (
	"context"
	"testing"

	"github.com/sboagy/tablestate"
)

func TestIsSuccess(t *testing.T) {
	for status, want := range map[int]bool{0: false, 199: false, 200: true, 204: true, 299: true, 300: false, 404: false, 500: false} {
		if got := tablestate.IsSuccess(status); got != want {
			t.Fatalf("IsSuccess(%d) = %v, want %v", status, got, want)
		}
	}
}

func TestGatewayFuncDrivesCache(t *testing.T) {
	var gotScope tablestate.Scope
	var gotState tablestate.TableState
	gw := tablestate.GatewayFunc(func(_ context.Context, userID int64, scope tablestate.Scope, purpose tablestate.Purpose, resourceID int64, state tablestate.TableState) (int, error) {
		gotScope = scope
		gotState = state
		return 201, nil
	})
	cache := tablestate.New(gw)
	key := tablestate.NewKey(5, tablestate.PurposeSuggestions, 6)
	cache.Update(key, tablestate.TableState{GlobalFilter: ptr("jig")})

	status, err := cache.FlushImmediate(context.Background(), key, nil)
	if err != nil || status != 201 {
		t.Fatalf("expected 201, got status=%d err=%v", status, err)
	}
	if gotScope != tablestate.ScopeFull || gotState.GlobalFilter == nil || *gotState.GlobalFilter != "jig" {
		t.Fatalf("unexpected gateway input scope=%q state=%#v", gotScope, gotState)
	}
	if cache.IsDirty(key) {
		t.Fatalf("expected any 2xx to confirm the write")
	}
}

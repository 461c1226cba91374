package tablestate_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/sboagy/tablestate"
	"github.com/sboagy/tablestate/pkg/gateway"
)

func TestFlushDirtyWritesOnlyDirtyEntries(t *testing.T) {
	gw := gateway.NewMemoryGateway()
	cache := tablestate.New(gw, tablestate.WithFlushConcurrency(2))
	clean := tablestate.NewKey(1, tablestate.PurposePractice, 1)
	cache.Update(clean, tablestate.TableState{Sorting: sortByTitle})
	if _, err := cache.FlushImmediate(context.Background(), clean, nil); err != nil {
		t.Fatalf("flush: %v", err)
	}

	dirty := []tablestate.Key{
		tablestate.NewKey(1, tablestate.PurposeRepertoire, 1),
		tablestate.NewKey(1, tablestate.PurposeSuggestions, 1),
		tablestate.NewKey(2, tablestate.PurposePractice, 9),
	}
	for _, key := range dirty {
		cache.Update(key, tablestate.TableState{ColumnVisibility: hideType})
	}
	gw.Respond(func(_ context.Context, call gateway.Call) (int, error) {
		if call.Purpose == tablestate.PurposeSuggestions {
			return http.StatusServiceUnavailable, nil
		}
		return http.StatusOK, nil
	})

	report, err := cache.FlushDirty(context.Background())
	if err != nil {
		t.Fatalf("flush dirty: %v", err)
	}
	if len(report.Results) != 3 || report.Succeeded() != 2 {
		t.Fatalf("unexpected report %+v", report)
	}
	failed := report.Failed()
	if len(failed) != 1 || failed[0].Key != dirty[1] || failed[0].Status != http.StatusServiceUnavailable {
		t.Fatalf("unexpected failures %+v", failed)
	}
	for i := 1; i < len(report.Results); i++ {
		if report.Results[i-1].Key.Identifier() > report.Results[i].Key.Identifier() {
			t.Fatalf("expected results ordered by key")
		}
	}
	if stats := cache.Stats(); stats != (tablestate.Stats{TotalEntries: 4, DirtyEntries: 1}) {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if n := len(gw.Calls()); n != 4 {
		t.Fatalf("expected clean entry skipped, got %d calls", n)
	}
}

func TestFlushDirtyAttemptsEveryKeyOnTransportError(t *testing.T) {
	boom := errors.New("offline")
	gw := gateway.NewMemoryGateway()
	gw.Respond(func(context.Context, gateway.Call) (int, error) { return 0, boom })
	cache := tablestate.New(gw)
	for i := int64(1); i <= 3; i++ {
		cache.Update(tablestate.NewKey(i, tablestate.PurposePractice, 1), tablestate.TableState{Sorting: sortByTitle})
	}

	report, err := cache.FlushDirty(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if len(report.Results) != 3 || len(report.Failed()) != 3 {
		t.Fatalf("expected every key attempted, got %+v", report)
	}
	if stats := cache.Stats(); stats.DirtyEntries != 3 {
		t.Fatalf("expected entries to stay dirty, got %+v", stats)
	}
}

func TestFlushDirtyWithNothingDirty(t *testing.T) {
	gw := gateway.NewMemoryGateway()
	report, err := tablestate.New(gw).FlushDirty(context.Background())
	if err != nil || len(report.Results) != 0 {
		t.Fatalf("expected empty report, got %+v err=%v", report, err)
	}
	if len(gw.Calls()) != 0 {
		t.Fatalf("expected no gateway calls")
	}
}

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestFlushWhereSelectsByRule(t *testing.T) {
	clock := &manualClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	gw := gateway.NewMemoryGateway()
	cache := tablestate.New(gw, tablestate.WithClock(clock.Now))

	idle := tablestate.NewKey(1, tablestate.PurposePractice, 1)
	busy := tablestate.NewKey(1, tablestate.PurposeRepertoire, 1)
	cache.Update(idle, tablestate.TableState{Sorting: sortByTitle})
	clock.Advance(45 * time.Second)
	cache.Update(busy, tablestate.TableState{Sorting: sortByTitle})
	cache.Update(busy, tablestate.TableState{ColumnVisibility: hideType})

	report, err := cache.FlushWhere(context.Background(), `idle_seconds >= 30`)
	if err != nil {
		t.Fatalf("flush where: %v", err)
	}
	if len(report.Results) != 1 || report.Results[0].Key != idle {
		t.Fatalf("expected only the idle key, got %+v", report)
	}

	report, err = cache.FlushWhere(context.Background(), `updates >= 2 && "columnVisibility" in fields`)
	if err != nil {
		t.Fatalf("flush where: %v", err)
	}
	if len(report.Results) != 1 || report.Results[0].Key != busy {
		t.Fatalf("expected only the busy key, got %+v", report)
	}
	if stats := cache.Stats(); stats.DirtyEntries != 0 {
		t.Fatalf("expected every entry flushed, got %+v", stats)
	}
}

func TestFlushWhereWithCELEvaluator(t *testing.T) {
	gw := gateway.NewMemoryGateway()
	cache := tablestate.New(gw, tablestate.WithRuleEvaluator(tablestate.NewCELEvaluator()))
	cache.Update(tablestate.NewKey(1, tablestate.PurposePractice, 1), tablestate.TableState{Sorting: sortByTitle})
	cache.Update(tablestate.NewKey(1, tablestate.PurposeSuggestions, 1), tablestate.TableState{Sorting: sortByTitle})

	report, err := cache.FlushWhere(context.Background(), `purpose == "suggestions"`)
	if err != nil {
		t.Fatalf("flush where: %v", err)
	}
	if len(report.Results) != 1 || report.Results[0].Key.Purpose != tablestate.PurposeSuggestions {
		t.Fatalf("unexpected report %+v", report)
	}
	if stats := cache.Stats(); stats.DirtyEntries != 1 {
		t.Fatalf("expected practice entry still dirty, got %+v", stats)
	}
}

func TestFlushWhereRejectsBadRules(t *testing.T) {
	gw := gateway.NewMemoryGateway()
	cache := tablestate.New(gw)
	cache.Update(tablestate.NewKey(1, tablestate.PurposePractice, 1), tablestate.TableState{Sorting: sortByTitle})

	for _, rule := range []string{"", "updates >=", "updates + 1"} {
		_, err := cache.FlushWhere(context.Background(), rule)
		var ruleErr *tablestate.RuleError
		if !errors.As(err, &ruleErr) {
			t.Fatalf("rule %q: expected RuleError, got %v", rule, err)
		}
	}
	if len(gw.Calls()) != 0 {
		t.Fatalf("expected no writes for rejected rules")
	}
}

func TestFlushWhereSharesProgramCache(t *testing.T) {
	programs := &countingCache{}
	cache := tablestate.New(gateway.NewMemoryGateway(), tablestate.WithProgramCache(programs))
	key := tablestate.NewKey(1, tablestate.PurposePractice, 1)
	for i := 0; i < 2; i++ {
		cache.Update(key, tablestate.TableState{Sorting: sortByTitle})
		if _, err := cache.FlushWhere(context.Background(), `updates > 0`); err != nil {
			t.Fatalf("flush where: %v", err)
		}
	}
	if programs.sets != 1 {
		t.Fatalf("expected program compiled once, got %d", programs.sets)
	}
}

func TestFlushDirtySkipsEntriesClearedBeforeTheirTurn(t *testing.T) {
	gw := newBlockingGateway()
	cache := tablestate.New(gw, tablestate.WithFlushConcurrency(1))
	cache.Update(tablestate.NewKey(1, tablestate.PurposePractice, 1), tablestate.TableState{Sorting: sortByTitle})
	cache.Update(tablestate.NewKey(1, tablestate.PurposeRepertoire, 1), tablestate.TableState{Sorting: sortByTitle})

	type outcome struct {
		report tablestate.FlushReport
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		report, err := cache.FlushDirty(context.Background())
		done <- outcome{report, err}
	}()
	<-gw.started
	cache.Clear()
	close(gw.release)
	got := <-done

	if got.err != nil {
		t.Fatalf("flush dirty: %v", got.err)
	}
	calls := gw.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected only the in-flight write, got %d calls", len(calls))
	}
	for _, call := range calls {
		if call.State.IsEmpty() {
			t.Fatalf("wrote an empty state for %s", call.Key())
		}
	}
	if len(got.report.Results) != 1 || got.report.Results[0].Key != calls[0].Key() {
		t.Fatalf("expected report to hold only the attempted key, got %+v", got.report)
	}
}

func TestFlushDirtySkipsEntriesCleanedConcurrently(t *testing.T) {
	gw := newBlockingGateway()
	cache := tablestate.New(gw, tablestate.WithFlushConcurrency(1))
	keys := []tablestate.Key{
		tablestate.NewKey(1, tablestate.PurposePractice, 1),
		tablestate.NewKey(1, tablestate.PurposeRepertoire, 1),
	}
	for _, key := range keys {
		cache.Update(key, tablestate.TableState{Sorting: sortByTitle})
	}

	done := make(chan tablestate.FlushReport, 1)
	go func() {
		report, _ := cache.FlushDirty(context.Background())
		done <- report
	}()
	<-gw.started

	blocked := gw.Calls()[0].Key()
	other := keys[0]
	if other == blocked {
		other = keys[1]
	}
	if status, err := cache.FlushImmediate(context.Background(), other, nil); err != nil || status != http.StatusOK {
		t.Fatalf("direct flush: status=%d err=%v", status, err)
	}
	close(gw.release)
	report := <-done

	if n := len(gw.Calls()); n != 2 {
		t.Fatalf("expected the cleaned key not to be written again, got %d calls", n)
	}
	if len(report.Results) != 1 || report.Results[0].Key != blocked {
		t.Fatalf("expected report to hold only %s, got %+v", blocked, report)
	}
	if stats := cache.Stats(); stats.DirtyEntries != 0 {
		t.Fatalf("expected every entry clean, got %+v", stats)
	}
}

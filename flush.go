package tablestate

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// FlushResult is the outcome of one key's write within a batch flush.
type FlushResult struct {
	Key    Key
	Status int
	Err    error
}

// Succeeded reports whether the write was confirmed.
func (r FlushResult) Succeeded() bool {
	return r.Err == nil && IsSuccess(r.Status)
}

// FlushReport collects the results of a batch flush, ordered by key.
type FlushReport struct {
	Results []FlushResult
}

// Failed returns the results that were not confirmed.
func (r FlushReport) Failed() []FlushResult {
	var failed []FlushResult
	for _, result := range r.Results {
		if !result.Succeeded() {
			failed = append(failed, result)
		}
	}
	return failed
}

// Succeeded counts the confirmed writes.
func (r FlushReport) Succeeded() int {
	count := 0
	for _, result := range r.Results {
		if result.Succeeded() {
			count++
		}
	}
	return count
}

// FlushDirty flushes every dirty entry, for example before sign-out. Keys are
// written concurrently up to the configured limit. Every key is attempted;
// the first transport error is returned alongside the full report. A key
// cleaned or cleared before its turn is skipped and left out of the report.
func (c *Cache) FlushDirty(ctx context.Context) (FlushReport, error) {
	return c.flushKeys(ctx, c.dirtyKeys())
}

// FlushWhere flushes the dirty entries for which rule evaluates to true.
// The rule sees user_id, purpose, resource_id, updates, fields,
// idle_seconds, dirty_seconds and now. A rule that fails to compile, fails
// to run or yields a non-bool aborts the call before any write.
func (c *Cache) FlushWhere(ctx context.Context, rule string) (FlushReport, error) {
	evaluator := c.ruleEvaluator()
	engine := evaluatorEngineName(evaluator)
	compiled, err := evaluator.Compile(rule)
	if err != nil {
		return FlushReport{}, wrapRuleError(engine, rule, "", err)
	}

	var selected []Key
	for _, candidate := range c.dirtyFacts() {
		result, err := compiled.Evaluate(candidate.RuleContext)
		if err != nil {
			return FlushReport{}, wrapRuleError(engine, rule, candidate.Key, err)
		}
		matched, err := ruleMatched(engine, rule, candidate.RuleContext, result)
		if err != nil {
			return FlushReport{}, err
		}
		if matched {
			selected = append(selected, candidate.key)
		}
	}
	return c.flushKeys(ctx, selected)
}

func (c *Cache) flushKeys(ctx context.Context, keys []Key) (FlushReport, error) {
	if len(keys) == 0 {
		return FlushReport{}, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		mu      sync.Mutex
		results = make([]FlushResult, 0, len(keys))
		group   errgroup.Group
	)
	group.SetLimit(c.cfg.flushConcurrency)
	for _, key := range keys {
		group.Go(func() error {
			status, attempted, err := c.flush(ctx, key, nil, true)
			if !attempted {
				return nil
			}
			mu.Lock()
			results = append(results, FlushResult{Key: key, Status: status, Err: err})
			mu.Unlock()
			return err
		})
	}
	err := group.Wait()

	sort.Slice(results, func(i, j int) bool {
		return results[i].Key.Identifier() < results[j].Key.Identifier()
	})
	return FlushReport{Results: results}, err
}

func (c *Cache) dirtyKeys() []Key {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]Key, 0, len(c.entries))
	for _, e := range c.entries {
		if e.dirty {
			keys = append(keys, e.key)
		}
	}
	return keys
}

type ruleCandidate struct {
	RuleContext
	key Key
}

func (c *Cache) dirtyFacts() []ruleCandidate {
	now := c.cfg.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	candidates := make([]ruleCandidate, 0, len(c.entries))
	for id, e := range c.entries {
		if !e.dirty {
			continue
		}
		candidates = append(candidates, ruleCandidate{
			key: e.key,
			RuleContext: RuleContext{
				Key: id,
				Now: now,
				Facts: map[string]any{
					FactUserID:       e.key.UserID,
					FactPurpose:      string(e.key.Purpose),
					FactResourceID:   e.key.ResourceID,
					FactUpdates:      int64(e.updates),
					FactFields:       e.state.Fields(),
					FactIdleSeconds:  secondsSince(now, e.updatedAt),
					FactDirtySeconds: secondsSince(now, e.dirtySince),
				},
			},
		})
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Key < candidates[j].Key
	})
	return candidates
}

func secondsSince(now, then time.Time) float64 {
	if then.IsZero() {
		return 0
	}
	return now.Sub(then).Seconds()
}

func (c *Cache) ruleEvaluator() RuleEvaluator {
	if c.cfg.evaluator != nil {
		return c.cfg.evaluator
	}
	var opts []ExprEvaluatorOption
	if c.cfg.programCache != nil {
		opts = append(opts, ExprWithProgramCache(c.cfg.programCache))
	}
	return NewExprEvaluator(opts...)
}

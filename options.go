package tablestate

import (
	"time"

	"github.com/sboagy/tablestate/pkg/activity"
)

const defaultFlushConcurrency = 4

// Option configures a Cache.
type Option func(*cacheConfig)

type cacheConfig struct {
	logger           FlushLogger
	activityHooks    activity.Hooks
	activityChannel  string
	actorID          string
	evaluator        RuleEvaluator
	programCache     ProgramCache
	flushConcurrency int
	now              func() time.Time
}

func applyOptions(opts []Option) cacheConfig {
	cfg := cacheConfig{
		flushConcurrency: defaultFlushConcurrency,
		now:              time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithFlushConcurrency bounds how many keys FlushDirty and FlushWhere write
// at once. Values below one are ignored.
func WithFlushConcurrency(n int) Option {
	return func(cfg *cacheConfig) {
		if n > 0 {
			cfg.flushConcurrency = n
		}
	}
}

// WithClock replaces time.Now, mostly for tests of idle-based rules.
func WithClock(now func() time.Time) Option {
	return func(cfg *cacheConfig) {
		if now != nil {
			cfg.now = now
		}
	}
}

// WithRuleEvaluator selects the engine used by FlushWhere. The expr engine is
// used when none is configured.
func WithRuleEvaluator(evaluator RuleEvaluator) Option {
	return func(cfg *cacheConfig) {
		cfg.evaluator = evaluator
	}
}

// WithProgramCache shares compiled rule programs between FlushWhere calls
// when the default evaluator is used.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *cacheConfig) {
		cfg.programCache = cache
	}
}

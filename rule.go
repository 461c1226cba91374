package tablestate

import (
	"fmt"
	"time"
)

// RuleContext carries the facts a flush rule is evaluated against.
type RuleContext struct {
	Key   string
	Facts map[string]any
	Now   time.Time
}

func (ctx RuleContext) withDefaults() RuleContext {
	if ctx.Now.IsZero() {
		ctx.Now = time.Now()
	}
	if ctx.Facts == nil {
		ctx.Facts = map[string]any{}
	}
	return ctx
}

// variables returns the bindings visible to an expression: every fact plus
// "now".
func (ctx RuleContext) variables() map[string]any {
	vars := make(map[string]any, len(ctx.Facts)+1)
	for name, value := range ctx.Facts {
		vars[name] = value
	}
	vars["now"] = ctx.Now
	return vars
}

// RuleEvaluator runs flush rule expressions.
type RuleEvaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string) (CompiledRule, error)
}

// CompiledRule is a reusable rule program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// ProgramCache stores compiled programs keyed by expression.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// JSEvaluatorOption configures the goja engine. It exists in every build so
// callers compile with or without the js_eval tag.
type JSEvaluatorOption func(*jsEvaluatorConfig)

type jsEvaluatorConfig struct {
	cache ProgramCache
}

// JSWithProgramCache shares compiled goja programs across evaluations.
func JSWithProgramCache(cache ProgramCache) JSEvaluatorOption {
	return func(cfg *jsEvaluatorConfig) {
		cfg.cache = cache
	}
}

// Fact names bound for every dirty entry when FlushWhere evaluates a rule.
const (
	FactUserID       = "user_id"
	FactPurpose      = "purpose"
	FactResourceID   = "resource_id"
	FactUpdates      = "updates"
	FactFields       = "fields"
	FactIdleSeconds  = "idle_seconds"
	FactDirtySeconds = "dirty_seconds"
)

func ruleFacts() []string {
	return []string{FactUserID, FactPurpose, FactResourceID, FactUpdates, FactFields, FactIdleSeconds, FactDirtySeconds}
}

func evaluatorEngineName(e RuleEvaluator) string {
	if e == nil {
		return "unknown"
	}
	switch e.(type) {
	case *exprEvaluator:
		return "expr"
	case *celEvaluator:
		return "cel"
	default:
		if name, ok := e.(interface{ Engine() string }); ok {
			return name.Engine()
		}
		return "custom"
	}
}

func ruleMatched(engine, expr string, ctx RuleContext, result any) (bool, error) {
	matched, ok := result.(bool)
	if !ok {
		return false, wrapRuleError(engine, expr, ctx.Key, fmt.Errorf("rule must yield a bool, got %T", result))
	}
	return matched, nil
}

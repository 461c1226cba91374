//go:build js_eval

package tablestate

import (
	"fmt"

	"github.com/dop251/goja"
)

type jsEvaluator struct {
	cache ProgramCache
}

// NewJSEvaluator constructs a RuleEvaluator backed by goja.
func NewJSEvaluator(opts ...JSEvaluatorOption) RuleEvaluator {
	var cfg jsEvaluatorConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &jsEvaluator{cache: cfg.cache}
}

// Engine names the evaluator in logs and rule errors.
func (e *jsEvaluator) Engine() string {
	return "js"
}

func (e *jsEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return rule.Evaluate(ctx)
}

func (e *jsEvaluator) Compile(expression string) (CompiledRule, error) {
	if expression == "" {
		return nil, wrapRuleError("js", "", "", fmt.Errorf("expression must not be empty"))
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, wrapRuleError("js", expression, "", err)
	}
	return &jsCompiledRule{expression: expression, program: program}, nil
}

func (e *jsEvaluator) loadOrCompile(expression string) (*goja.Program, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(expression); ok {
			if program, ok := cached.(*goja.Program); ok {
				return program, nil
			}
		}
	}
	program, err := goja.Compile("", wrapJSExpression(expression), false)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.Set(expression, program)
	}
	return program, nil
}

func wrapJSExpression(expression string) string {
	return fmt.Sprintf("(function(){ return (%s); })()", expression)
}

type jsCompiledRule struct {
	expression string
	program    *goja.Program
}

func (r *jsCompiledRule) Evaluate(ctx RuleContext) (any, error) {
	ctx = ctx.withDefaults()
	vm := goja.New()
	for name, value := range ctx.variables() {
		if list, ok := value.([]string); ok {
			value = vm.NewArray(stringsToAny(list)...)
		}
		if err := vm.Set(name, value); err != nil {
			return nil, wrapRuleError("js", r.expression, ctx.Key, err)
		}
	}
	value, err := vm.RunProgram(r.program)
	if err != nil {
		return nil, wrapRuleError("js", r.expression, ctx.Key, err)
	}
	return value.Export(), nil
}

// stringsToAny turns fact lists into native JS arrays so rules can use
// Array.prototype methods on them.
func stringsToAny(list []string) []any {
	out := make([]any, len(list))
	for i, v := range list {
		out[i] = v
	}
	return out
}

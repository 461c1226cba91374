//go:build !js_eval

package tablestate

// NewJSEvaluator returns nil unless built with the js_eval tag, which links
// the goja engine. FlushWhere falls back to expr when given a nil evaluator.
func NewJSEvaluator(...JSEvaluatorOption) RuleEvaluator {
	return nil
}

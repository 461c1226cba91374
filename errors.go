package tablestate

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidKey     = errors.New("tablestate: invalid key")
	ErrUnknownPurpose = errors.New("tablestate: unknown purpose")
	ErrInvalidState   = errors.New("tablestate: invalid state")
	ErrNoGateway      = errors.New("tablestate: gateway not configured")
)

// StateError reports a TableState field that failed validation.
type StateError struct {
	Field string
	Err   error
}

func (e *StateError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("tablestate: field %s: %v", e.Field, e.Err)
}

func (e *StateError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is lets errors.Is(err, ErrInvalidState) match any field failure.
func (e *StateError) Is(target error) bool {
	return target == ErrInvalidState
}

func invalidField(field, format string, args ...any) error {
	return &StateError{Field: field, Err: fmt.Errorf(format, args...)}
}

// RuleError captures rule evaluation metadata alongside the originating error.
type RuleError struct {
	Engine string
	Expr   string
	Key    string
	Err    error
}

func (e *RuleError) Error() string {
	if e == nil {
		return "<nil>"
	}
	key := e.Key
	if key == "" {
		key = "<none>"
	}
	return fmt.Sprintf("tablestate: %s rule %s key=%s: %v", e.Engine, describeExpression(e.Expr), key, e.Err)
}

func (e *RuleError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func wrapRuleError(engine, expr, key string, err error) error {
	if err == nil {
		return nil
	}

	var ruleErr *RuleError
	if errors.As(err, &ruleErr) {
		if ruleErr.Engine == "" {
			ruleErr.Engine = engine
		}
		if ruleErr.Expr == "" {
			ruleErr.Expr = expr
		}
		if ruleErr.Key == "" {
			ruleErr.Key = key
		}
		return ruleErr
	}

	return &RuleError{
		Engine: engine,
		Expr:   expr,
		Key:    key,
		Err:    err,
	}
}

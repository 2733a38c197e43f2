package approval

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Policy decides whether a guarded action needs human approval. The rule is
// an expression compiled once at construction and evaluated against the
// order value, the configured limit, and the action name
type Policy struct {
	program *vm.Program
	limit   float64
}

// NewPolicy compiles the rule expression. The expression must evaluate to a
// boolean; true means the action requires approval
func NewPolicy(expression string, limit float64) (*Policy, error) {
	program, err := expr.Compile(
		expression,
		expr.Env(policyEnv(0, "")),
		expr.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid approval policy %q: %w",
			expression, err)
	}
	return &Policy{
		program: program,
		limit:   limit,
	}, nil
}

// Limit returns the configured auto-approval threshold
func (p *Policy) Limit() float64 {
	return p.limit
}

// RequiresApproval evaluates the rule for the given order value and action
func (p *Policy) RequiresApproval(value float64, action string) (bool, error) {
	out, err := expr.Run(p.program, p.env(value, action))
	if err != nil {
		return false, err
	}
	needs, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf(
			"approval policy returned %T, expected bool", out,
		)
	}
	return needs, nil
}

func (p *Policy) env(value float64, action string) map[string]any {
	env := policyEnv(value, action)
	env["limit"] = p.limit
	return env
}

func policyEnv(value float64, action string) map[string]any {
	return map[string]any{
		"value":  value,
		"limit":  0.0,
		"action": action,
	}
}

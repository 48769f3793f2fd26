package source

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Rule is a payload validation rule evaluated before create/patch reach
// storage. Expr must evaluate to a boolean against an environment of
// {record, action}; false fails the write with the rule's message.
type Rule struct {
	Name    string
	Expr    string
	Message string
}

type compiledRule struct {
	rule    Rule
	program *vm.Program
}

func compileRules(rules []Rule) ([]compiledRule, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		program, err := expr.Compile(r.Expr, expr.AsBool(), expr.AllowUndefinedVariables())
		if err != nil {
			return nil, fmt.Errorf("compile rule %s: %w", r.Name, err)
		}
		compiled = append(compiled, compiledRule{rule: r, program: program})
	}
	return compiled, nil
}

// evaluateRules runs every rule against the payload. All failures are
// collected so the caller sees the full list at once.
func evaluateRules(rules []compiledRule, record map[string]any, action string) []ErrorDetail {
	if len(rules) == 0 {
		return nil
	}

	env := map[string]any{
		"record": record,
		"action": action,
	}

	var details []ErrorDetail
	for _, r := range rules {
		out, err := expr.Run(r.program, env)
		if err != nil {
			details = append(details, ErrorDetail{Rule: r.rule.Name, Message: err.Error()})
			continue
		}
		if ok, _ := out.(bool); !ok {
			msg := r.rule.Message
			if msg == "" {
				msg = fmt.Sprintf("rule %s failed", r.rule.Name)
			}
			details = append(details, ErrorDetail{Rule: r.rule.Name, Message: msg})
		}
	}
	return details
}

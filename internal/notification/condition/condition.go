// Package condition compiles and evaluates the boolean scripts that gate
// notification sends. Scripts see the string-keyed event context as
// variables, e.g. `JOB_STATUS == "SUCCESS"`.
package condition

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

func compile(script string) (*vm.Program, error) {
	// AllowUndefinedVariables: context keys vary per event, so scripts may
	// reference variables the compiler cannot see.
	program, err := expr.Compile(script, expr.Env(map[string]string{}), expr.AllowUndefinedVariables(), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("invalid condition: %w", err)
	}
	return program, nil
}

// Verify compiles the script, used at save time so a broken condition never
// reaches the send path.
func Verify(script string) error {
	_, err := compile(script)
	return err
}

// Run evaluates the script against a string context.
func Run(script string, context map[string]string) (bool, error) {
	program, err := compile(script)
	if err != nil {
		return false, err
	}
	if context == nil {
		context = map[string]string{}
	}
	out, err := expr.Run(program, context)
	if err != nil {
		return false, fmt.Errorf("failed to run condition: %w", err)
	}
	matched, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("condition did not evaluate to a boolean")
	}
	return matched, nil
}

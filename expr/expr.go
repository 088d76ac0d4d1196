// Package expr evaluates arithmetic expressions against a stochtree.Environment
package expr

import (
	"math"
	"strconv"

	"github.com/Knetic/govaluate"
	"github.com/aabizri/stochtree"
	"github.com/pkg/errors"
)

// Func evaluates a parsed expression
type Func func(env stochtree.Environment) (float64, error)

type wrappedVariablesForExpression struct {
	stochtree.Environment
}

func (wvfp wrappedVariablesForExpression) Get(name string) (interface{}, error) {
	val, err := wvfp.Environment.Get(name)
	if err != nil {
		return nil, errors.Errorf("couldn't find %s", name)
	}
	return val, nil
}

var functions = map[string]govaluate.ExpressionFunction{
	"exp":  unary(math.Exp),
	"abs":  unary(math.Abs),
	"log":  unary(math.Log),
	"sqrt": unary(math.Sqrt),
	"min":  binary(math.Min),
	"max":  binary(math.Max),
}

func unary(f func(float64) float64) govaluate.ExpressionFunction {
	return func(args ...interface{}) (interface{}, error) {
		if len(args) != 1 {
			return nil, errors.Errorf("expected 1 argument, got %d", len(args))
		}
		x, ok := args[0].(float64)
		if !ok {
			return nil, errors.Errorf("expected a number, got %T", args[0])
		}
		return f(x), nil
	}
}

func binary(f func(float64, float64) float64) govaluate.ExpressionFunction {
	return func(args ...interface{}) (interface{}, error) {
		if len(args) != 2 {
			return nil, errors.Errorf("expected 2 arguments, got %d", len(args))
		}
		x, ok := args[0].(float64)
		y, ok2 := args[1].(float64)
		if !ok || !ok2 {
			return nil, errors.New("expected numbers")
		}
		return f(x, y), nil
	}
}

// Parse compiles an expression. Names resolve through the environment given
// at evaluation, with pi and e always defined.
func Parse(asString string) (Func, error) {
	// Check if possible to simplify if it just a scalar
	if scalar, err := strconv.ParseFloat(asString, 64); err == nil {
		return func(_ stochtree.Environment) (float64, error) {
			return scalar, nil
		}, nil
	}

	evaluable, err := govaluate.NewEvaluableExpressionWithFunctions(asString, functions)
	if err != nil {
		return nil, errors.Wrapf(err, "error while parsing expression %q", asString)
	}

	return func(env stochtree.Environment) (float64, error) {
		wrapped := wrappedVariablesForExpression{stochtree.WrapEnvironment(env)}

		resAsInterface, err := evaluable.Eval(wrapped)
		if err != nil {
			return 0, errors.Wrapf(err, "error while evaluating %q", asString)
		}

		resAsFloat, ok := resAsInterface.(float64)
		if !ok {
			return 0, errors.Errorf("expression %q evaluated to %T, not a number", asString, resAsInterface)
		}
		return resAsFloat, nil
	}, nil
}

// Eval parses and evaluates in one step
func Eval(asString string, env stochtree.Environment) (float64, error) {
	f, err := Parse(asString)
	if err != nil {
		return 0, err
	}
	return f(env)
}

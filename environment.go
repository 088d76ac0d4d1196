package stochtree

import (
	"math"

	"github.com/pkg/errors"
)

// Environment resolves named values for weight and likelihood expressions
type Environment interface {
	Get(v string) (float64, error)
}

// Variables is an Environment backed by a map
type Variables map[string]float64

func (vars Variables) Get(v string) (float64, error) {
	val, ok := vars[v]
	if !ok {
		return 0, errors.Errorf("undefined variable %s", v)
	}
	return val, nil
}

type wrappedEnvironment struct {
	Inner Environment
}

// Get resolves the mathematical constants before delegating to the inner environment
func (wenv wrappedEnvironment) Get(v string) (float64, error) {
	switch v {
	case "pi":
		return math.Pi, nil
	case "e":
		return math.E, nil
	}

	if wenv.Inner != nil {
		return wenv.Inner.Get(v)
	}
	return 0, errors.Errorf("call to undefined variable %s as there is no environment defined", v)
}

// WrapEnvironment adds pi and e on top of inner, which may be nil
func WrapEnvironment(inner Environment) Environment {
	return wrappedEnvironment{inner}
}

package expr

import (
	"math"
	"testing"

	"github.com/aabizri/stochtree"
)

func TestEval(t *testing.T) {
	env := stochtree.Variables{"simulated": 130, "observed": 30, "scale": 100}
	tests := []struct {
		expr string
		want float64
	}{
		{"0.25", 0.25},
		{"1 - 0.25", 0.75},
		{"exp(-abs(simulated - observed) / scale)", math.Exp(-1)},
		{"max(simulated, observed) - min(simulated, observed)", 100},
		{"log(e)", 1},
		{"pi / 2", math.Pi / 2},
		{"sqrt(observed + 6)", 6},
	}
	for _, tt := range tests {
		got, err := Eval(tt.expr, env)
		if err != nil {
			t.Errorf("%s: %v", tt.expr, err)
			continue
		}
		if math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("%s = %v, want %v", tt.expr, got, tt.want)
		}
	}
}

func TestEval_Errors(t *testing.T) {
	for _, src := range []string{"1 +", "missing * 2", "abs(1, 2)", "observed > 1"} {
		if _, err := Eval(src, stochtree.Variables{"observed": 3}); err == nil {
			t.Errorf("%s: expected an error", src)
		}
	}
}

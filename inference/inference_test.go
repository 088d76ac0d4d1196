package inference

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/aabizri/stochtree"
	"github.com/aabizri/stochtree/interchange/rules"
	"github.com/pkg/errors"
)

// A -> F[+A][-A]L yields 2^depth - 1 leaves
func binaryGrammar(t testing.TB) stochtree.Grammar {
	t.Helper()
	rs := append(rules.Identities("FL[]+-"), rules.NewRuleClassic('A', stochtree.Parse("F[+A][-A]L")))
	g, err := stochtree.NewGrammar(stochtree.Parse("A"), rs...)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func sum(ps []float64) float64 {
	var s float64
	for _, p := range ps {
		s += p
	}
	return s
}

func TestInfer_NoLeavesFavoursDepthZero(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDepth = 3
	cfg.Samples = 2000
	// At the reference scale of 100 the posterior is nearly flat, see TestInfer_ReferenceScaleIsFlat
	cfg.Scale = 1
	cfg.Seed = 1

	e, err := New(binaryGrammar(t), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	res, err := e.Infer(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if res.MAP != 0 {
		t.Errorf("MAP = %d, posterior %v", res.MAP, res.Posterior)
	}
	if len(res.Posterior) != 4 {
		t.Fatalf("posterior over %d depths", len(res.Posterior))
	}
	if math.Abs(sum(res.Posterior)-1) > 1e-9 {
		t.Errorf("posterior sums to %v", sum(res.Posterior))
	}
	if res.Samples != 2000 || res.Truncated {
		t.Errorf("recorded %d samples, truncated %v", res.Samples, res.Truncated)
	}
}

func TestInfer_RecoversDepth(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Samples = 3000
	cfg.Scale = 2
	cfg.Seed = 2

	e, err := New(binaryGrammar(t), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	// 15 leaves is depth 4 exactly
	res, err := e.Infer(context.Background(), 15)
	if err != nil {
		t.Fatal(err)
	}
	if res.MAP != 4 {
		t.Errorf("MAP = %d, posterior %v", res.MAP, res.Posterior)
	}
	if res.Expected < 3.5 || res.Expected > 4.5 {
		t.Errorf("expectation %v", res.Expected)
	}
	if res.Acceptance() <= 0 || res.Acceptance() > 1 {
		t.Errorf("acceptance %v", res.Acceptance())
	}
}

func TestInfer_Chains(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDepth = 4
	cfg.Samples = 1001
	cfg.Chains = 4
	cfg.Burn = 10
	cfg.Seed = 3

	e, err := New(rules.Tree(), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	res, err := e.Infer(context.Background(), 3)
	if err != nil {
		t.Fatal(err)
	}
	if res.Samples != 1001 {
		t.Errorf("recorded %d samples", res.Samples)
	}
	if math.Abs(sum(res.Posterior)-1) > 1e-9 {
		t.Errorf("posterior sums to %v", sum(res.Posterior))
	}
	var expected float64
	for d, p := range res.Posterior {
		expected += float64(d) * p
		if p > res.Posterior[res.MAP] {
			t.Errorf("depth %d is more probable than the MAP %d", d, res.MAP)
		}
	}
	if math.Abs(expected-res.Expected) > 1e-9 {
		t.Errorf("expectation %v, want %v", res.Expected, expected)
	}
}

func TestInfer_ReferenceScaleIsFlat(t *testing.T) {
	res, err := Infer(context.Background(), binaryGrammar(t), 0, 2, 4000)
	if err != nil {
		t.Fatal(err)
	}
	// Mismatches of at most 3 leaves barely move exp(-|d|/100)
	for d, p := range res.Posterior {
		if p < 0.25 || p > 0.42 {
			t.Errorf("depth %d has probability %v", d, p)
		}
	}
}

func TestNew_InvalidConfiguration(t *testing.T) {
	tests := map[string]func(*Config){
		"negative max depth": func(c *Config) { c.MaxDepth = -1 },
		"zero samples":       func(c *Config) { c.Samples = 0 },
		"negative burn":      func(c *Config) { c.Burn = -1 },
		"negative chains":    func(c *Config) { c.Chains = -2 },
		"more chains":        func(c *Config) { c.Samples = 2; c.Chains = 3 },
		"zero scale":         func(c *Config) { c.Scale = 0 },
		"bad likelihood":     func(c *Config) { c.Likelihood = "exp(" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			_, err := New(binaryGrammar(t), cfg, nil)
			if errors.Cause(err) != ErrInvalidConfiguration {
				t.Errorf("expected ErrInvalidConfiguration, got %v", err)
			}
		})
	}
}

func TestInfer_NegativeObserved(t *testing.T) {
	e, err := New(binaryGrammar(t), DefaultConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	_, err = e.Infer(context.Background(), -1)
	if errors.Cause(err) != ErrInvalidConfiguration {
		t.Errorf("expected ErrInvalidConfiguration, got %v", err)
	}
}

func TestInfer_CustomLikelihood(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDepth = 3
	cfg.Samples = 2000
	cfg.Seed = 4
	cfg.Likelihood = "exp(-abs(simulated - observed))"

	e, err := New(binaryGrammar(t), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	res, err := e.Infer(context.Background(), 7)
	if err != nil {
		t.Fatal(err)
	}
	if res.MAP != 3 {
		t.Errorf("MAP = %d, posterior %v", res.MAP, res.Posterior)
	}
}

func TestInfer_Degenerate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDepth = 2
	cfg.Samples = 100
	cfg.Seed = 5
	cfg.Likelihood = "0"

	e, err := New(binaryGrammar(t), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	_, err = e.Infer(context.Background(), 1)
	if errors.Cause(err) != ErrDegeneratePosterior {
		t.Errorf("expected ErrDegeneratePosterior, got %v", err)
	}
}

func TestInfer_SoftCap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Samples = 1 << 30
	cfg.Seed = 6
	cfg.Timeout = 50 * time.Millisecond

	e, err := New(binaryGrammar(t), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	res, err := e.Infer(context.Background(), 3)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Truncated {
		t.Error("expected a truncated result")
	}
	if res.Samples == 0 || math.Abs(sum(res.Posterior)-1) > 1e-9 {
		t.Errorf("recorded %d samples, posterior %v", res.Samples, res.Posterior)
	}
}

func TestInfer_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e, err := New(binaryGrammar(t), DefaultConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	_, err = e.Infer(ctx, 3)
	if errors.Cause(err) != ErrNoSamples {
		t.Errorf("expected ErrNoSamples, got %v", err)
	}
}

func TestInfer_MaxLengthRejectsLongSamples(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Samples = 500
	cfg.Scale = 1
	cfg.Seed = 7
	// Depth 5 of A -> F[+A][-A]L needs 280 symbols, so depths 5 and 6 always exceed the cap
	cfg.MaxLength = 200

	e, err := New(binaryGrammar(t), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	res, err := e.Infer(context.Background(), 3)
	if err != nil {
		t.Fatal(err)
	}
	if res.Samples != 500 || res.Truncated {
		t.Errorf("recorded %d samples, truncated %v", res.Samples, res.Truncated)
	}
	if res.MAP != 2 {
		t.Errorf("MAP = %d, posterior %v", res.MAP, res.Posterior)
	}
	if res.Posterior[5] != 0 || res.Posterior[6] != 0 {
		t.Errorf("over-long depths visited: %v", res.Posterior)
	}
}

func TestInfer_MaxLengthLeavesOnlyTheAxiom(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDepth = 3
	cfg.Samples = 500
	cfg.Seed = 8
	// The axiom is never rewritten at depth 0, every deeper sample exceeds the cap
	cfg.MaxLength = 1

	e, err := New(binaryGrammar(t), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	res, err := e.Infer(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if res.MAP != 0 || res.Posterior[0] < 0.9 {
		t.Errorf("MAP = %d, posterior %v", res.MAP, res.Posterior)
	}
}

package rules

import "github.com/aabizri/stochtree"

var ensureInterfaceCompliance stochtree.Rule = &GeneralRule{}

type ExecutionFunction func(output stochtree.String) int

// A GeneralRule supports
// - Classic
// - Stochastic
// - Identity
// Rules
type GeneralRule struct {
	On   stochtree.Symbol
	Do   ExecutionFunction
	Size int

	Weight float64
}

func (r *GeneralRule) Predecessor() stochtree.Symbol {
	return r.On
}

func (r *GeneralRule) Probability() float64 {
	return r.Weight
}

func (r *GeneralRule) Execute(output stochtree.String) int {
	return r.Do(output)
}

func (r *GeneralRule) OutputSize() int {
	return r.Size
}

func NewRuleClassic(on stochtree.Symbol, rewrite stochtree.String) *GeneralRule {
	return NewRuleStochastic(on, rewrite, 1)
}

func NewRuleStochastic(on stochtree.Symbol, rewrite stochtree.String, weight float64) *GeneralRule {
	f := func(output stochtree.String) int {
		return copy(output, rewrite)
	}
	return NewRule(on, f, len(rewrite), weight)
}

// NewRuleIdentity rewrites a symbol into itself
func NewRuleIdentity(on stochtree.Symbol) *GeneralRule {
	return NewRuleClassic(on, stochtree.String{on})
}

// Identities returns an identity rule for every symbol of constants
func Identities(constants string) []stochtree.Rule {
	out := make([]stochtree.Rule, 0, len(constants))
	for _, sym := range stochtree.Parse(constants) {
		out = append(out, NewRuleIdentity(sym))
	}
	return out
}

func NewRule(on stochtree.Symbol, do ExecutionFunction, size int, weight float64) *GeneralRule {
	return &GeneralRule{
		On:     on,
		Do:     do,
		Size:   size,
		Weight: weight,
	}
}

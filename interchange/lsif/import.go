package lsif

import (
	"unicode/utf8"

	"github.com/aabizri/stochtree"
	"github.com/aabizri/stochtree/expr"
	"github.com/aabizri/stochtree/interchange/rules"
	"github.com/pkg/errors"
)

func (format *Format) Import() (stochtree.Grammar, error) {
	if format.Axiom == "" {
		return stochtree.Grammar{}, errors.New("empty axiom")
	}
	env := stochtree.Variables(format.Constants)

	builtRules := make([]stochtree.Rule, 0, len(format.Rules)+len(format.Identities))
	for ri, definedRule := range format.Rules {
		if utf8.RuneCountInString(definedRule.From) != 1 {
			return stochtree.Grammar{}, errors.Errorf("rule %d: predecessor %q must be a single symbol", ri, definedRule.From)
		}
		from, _ := utf8.DecodeRuneInString(definedRule.From)

		weight := float64(1)
		if definedRule.Weight != "" {
			w, err := expr.Eval(definedRule.Weight, env)
			if err != nil {
				return stochtree.Grammar{}, errors.Wrapf(err, "rule %d", ri)
			}
			weight = w
		}

		builtRules = append(builtRules, rules.NewRuleStochastic(
			stochtree.Symbol(from),
			stochtree.Parse(definedRule.To),
			weight,
		))
	}
	builtRules = append(builtRules, rules.Identities(format.Identities)...)

	g, err := stochtree.NewGrammar(stochtree.Parse(format.Axiom), builtRules...)
	if err != nil {
		return stochtree.Grammar{}, errors.Wrap(err, "invalid grammar")
	}
	return g, nil
}

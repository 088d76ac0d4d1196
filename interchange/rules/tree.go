package rules

import "github.com/aabizri/stochtree"

// TreeAxiom is the seed of the built-in tree grammar
const TreeAxiom = "X"

// Tree returns the built-in tree grammar. X grows a forking branch or
// closes into a leaf, F occasionally lengthens.
func Tree() stochtree.Grammar {
	rules := []stochtree.Rule{
		NewRuleStochastic('X', stochtree.Parse("F[+X][-X]FX"), 0.4),
		NewRuleStochastic('X', stochtree.Parse("F[-X]F[+X]L"), 0.3),
		NewRuleStochastic('X', stochtree.Parse("F[+XL]F[-X]"), 0.2),
		NewRuleStochastic('X', stochtree.Parse("FL"), 0.1),
		NewRuleStochastic('F', stochtree.Parse("FF"), 0.3),
		NewRuleStochastic('F', stochtree.Parse("F"), 0.7),
	}
	rules = append(rules, Identities("L[]+-")...)

	g, err := stochtree.NewGrammar(stochtree.Parse(TreeAxiom), rules...)
	if err != nil {
		panic("built-in tree grammar is malformed: " + err.Error())
	}
	return g
}

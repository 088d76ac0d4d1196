package stochtree

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Symbol is a single letter of a derivation string
type Symbol rune

// The turtle alphabet
const (
	Forward     Symbol = 'F'
	Leaf        Symbol = 'L'
	Passthrough Symbol = 'X'
	BranchOpen  Symbol = '['
	BranchClose Symbol = ']'
	TurnRight   Symbol = '+'
	TurnLeft    Symbol = '-'
)

// String is a derivation string, an ordered sequence of symbols
type String []Symbol

// Parse converts a textual statement into a derivation string
func Parse(s string) String {
	out := make(String, 0, len(s))
	for _, r := range s {
		out = append(out, Symbol(r))
	}
	return out
}

func (s String) String() string {
	var b strings.Builder
	b.Grow(len(s))
	for _, sym := range s {
		b.WriteRune(rune(sym))
	}
	return b.String()
}

var (
	ErrUndefinedProduction = errors.New("undefined production")
	ErrNegativeWeight      = errors.New("negative production weight")
	ErrNoPositiveWeight    = errors.New("no production with a positive weight")
)

type Rule interface {
	// The symbol this rule rewrites
	Predecessor() Symbol

	// Relative weight of the rule among the rules sharing its predecessor
	Probability() float64

	// Execute it, writing the successor to the beginning of to
	Execute(to String) int

	// Return output size
	OutputSize() int
}

// Grammar is an axiom and a set of stochastic rules
type Grammar struct {
	Axiom String
	Rules []Rule

	index map[Symbol]*alternatives
}

// alternatives are the rules of one predecessor, sorted by ascending probability
type alternatives struct {
	rules []Rule
	total float64
}

// NewGrammar builds and validates a grammar
func NewGrammar(axiom String, rules ...Rule) (Grammar, error) {
	g := Grammar{Axiom: axiom, Rules: rules}
	if err := g.compile(); err != nil {
		return Grammar{}, err
	}
	if err := g.Validate(); err != nil {
		return Grammar{}, err
	}
	return g, nil
}

func (g *Grammar) compile() error {
	index := make(map[Symbol]*alternatives)
	for _, r := range g.Rules {
		if r.Probability() < 0 {
			return errors.Wrapf(ErrNegativeWeight, "rule for %q", rune(r.Predecessor()))
		}
		alt, ok := index[r.Predecessor()]
		if !ok {
			alt = &alternatives{}
			index[r.Predecessor()] = alt
		}
		alt.rules = append(alt.rules, r)
		alt.total += r.Probability()
	}

	for sym, alt := range index {
		if alt.total <= 0 {
			return errors.Wrapf(ErrNoPositiveWeight, "symbol %q", rune(sym))
		}
		sort.SliceStable(alt.rules, func(i, j int) bool {
			return alt.rules[i].Probability() < alt.rules[j].Probability()
		})
	}

	g.index = index
	return nil
}

// Validate checks that every symbol reachable from the axiom has a production
func (g Grammar) Validate() error {
	if g.index == nil {
		if err := g.compile(); err != nil {
			return err
		}
	}

	seen := make(map[Symbol]bool)
	queue := append(String(nil), g.Axiom...)
	for len(queue) > 0 {
		sym := queue[0]
		queue = queue[1:]
		if seen[sym] {
			continue
		}
		seen[sym] = true

		alt, ok := g.index[sym]
		if !ok {
			return errors.Wrapf(ErrUndefinedProduction, "symbol %q", rune(sym))
		}
		for _, r := range alt.rules {
			buf := make(String, r.OutputSize())
			n := r.Execute(buf)
			queue = append(queue, buf[:n]...)
		}
	}
	return nil
}

// Alphabet returns every symbol the grammar defines a production for
func (g Grammar) Alphabet() []Symbol {
	out := make([]Symbol, 0, len(g.index))
	for sym := range g.index {
		out = append(out, sym)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// choose draws one rule for sym, n being uniform in [0, 1)
func (g Grammar) choose(sym Symbol, n float64) (Rule, error) {
	alt, ok := g.index[sym]
	if !ok {
		return nil, errors.Wrapf(ErrUndefinedProduction, "symbol %q", rune(sym))
	}
	if len(alt.rules) == 1 {
		return alt.rules[0], nil
	}

	cum := float64(0)
	scalingFactor := 1 / alt.total
	for _, r := range alt.rules {
		cum += scalingFactor * r.Probability()
		if n < cum {
			return r, nil
		}
	}

	// Rounding can leave n just above the last cumulative value
	for i := len(alt.rules) - 1; i >= 0; i-- {
		if alt.rules[i].Probability() > 0 {
			return alt.rules[i], nil
		}
	}
	return nil, errors.Wrapf(ErrNoPositiveWeight, "symbol %q", rune(sym))
}

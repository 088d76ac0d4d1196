// Package stochtree grows branching trees from stochastic L-systems and draws them with a turtle
package stochtree

import (
	"context"
	"math/rand"
	"sync"

	"github.com/pkg/errors"
)

var ErrTooLong = errors.New("derivation string exceeds the maximum length")

// LSystem holds the current tier of a derivation
type LSystem struct {
	Grammar Grammar

	// MaxLength aborts a derivation whose next tier would be longer, 0 disables it
	MaxLength int

	currentTier uint

	rng  *rand.Rand
	tier String

	mu sync.Mutex
}

// New starts a derivation from seed, nil seed meaning the grammar's axiom
func New(grammar Grammar, seed String, rng *rand.Rand) (*LSystem, error) {
	if grammar.index == nil {
		if err := grammar.compile(); err != nil {
			return nil, err
		}
	}
	if seed == nil {
		seed = grammar.Axiom
	}

	return &LSystem{
		Grammar: grammar,
		rng:     rng,
		tier:    append(String(nil), seed...),
	}, nil
}

// calculateRules draws the rule to be applied to each symbol of input
func (ls *LSystem) calculateRules(rules []Rule, input String) error {
	for i, sym := range input {
		r, err := ls.Grammar.choose(sym, ls.rng.Float64())
		if err != nil {
			return errors.Wrapf(err, "at position %d of tier %d", i, ls.currentTier)
		}
		rules[i] = r
	}
	return nil
}

func (ls *LSystem) calculateOutputSize(rules []Rule) int {
	var val int
	for _, r := range rules {
		val += r.OutputSize()
	}
	return val
}

// Execute a rewrite
func (ls *LSystem) rewrite(output String, rules []Rule) int {
	outputCursor := 0
	for _, rule := range rules {
		outputCursor += rule.Execute(output[outputCursor:])
	}
	return outputCursor
}

/*
Derivate runs one generation of the l-system:

 1. Draw the rule applied to each symbol, independently per occurrence
 2. Sum up the output sizes of the drawn rules
 3. Allocate the next tier once
 4. Rewrite into it
*/
func (ls *LSystem) Derivate(ctx context.Context) error {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	rules := make([]Rule, len(ls.tier))
	if err := ls.calculateRules(rules, ls.tier); err != nil {
		return err
	}

	outputSize := ls.calculateOutputSize(rules)
	if ls.MaxLength > 0 && outputSize > ls.MaxLength {
		return errors.Wrapf(ErrTooLong, "tier %d would hold %d symbols (max %d)", ls.currentTier+1, outputSize, ls.MaxLength)
	}

	output := make(String, outputSize)
	n := ls.rewrite(output, rules)

	ls.tier = output[:n]
	ls.currentTier++
	return nil
}

// DerivateUntil runs generations until the given tier is reached
func (ls *LSystem) DerivateUntil(ctx context.Context, tier uint) error {
	for ls.CurrentTier() < tier {
		if err := ls.Derivate(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Export returns a copy of the current tier
func (ls *LSystem) Export() String {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	return append(String(nil), ls.tier...)
}

func (ls *LSystem) CurrentTier() uint {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	return ls.currentTier
}

// Expand rewrites seed depth times with the grammar. Every call is an independent sample.
func Expand(ctx context.Context, grammar Grammar, seed String, depth uint, rng *rand.Rand) (String, error) {
	ls, err := New(grammar, seed, rng)
	if err != nil {
		return nil, err
	}
	if err := ls.DerivateUntil(ctx, depth); err != nil {
		return nil, err
	}
	return ls.tier, nil
}

// CountLeaves counts the leaf symbols of a derivation string
func CountLeaves(s String) int {
	n := 0
	for _, sym := range s {
		if sym == Leaf {
			n++
		}
	}
	return n
}

// Package interchange imports & define a stochastic L-System grammar from an interchange format
package interchange

import "github.com/aabizri/stochtree"

type Format interface {
	Import() (stochtree.Grammar, error)
}

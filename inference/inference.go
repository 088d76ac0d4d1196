// Package inference estimates the expansion depth of a stochastic L-system from an observed leaf count.
//
// Depth is a latent variable with a uniform prior over 0..MaxDepth. A
// candidate depth is scored by expanding the grammar's axiom to that depth
// and comparing the simulated leaf count with the observed one. The
// posterior is approximated with an independence Metropolis-Hastings chain
// whose proposal is the prior, so the acceptance ratio reduces to the
// likelihood ratio.
package inference

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/aabizri/stochtree"
	"github.com/aabizri/stochtree/expr"
	"github.com/pkg/errors"
)

var (
	ErrInvalidConfiguration = errors.New("invalid inference configuration")
	ErrDegeneratePosterior  = errors.New("every sample has zero likelihood, MAP is undefined")
	ErrNoSamples            = errors.New("sampling stopped before any sample was recorded")
)

// Config of an inference run
type Config struct {
	// Candidate depths are 0..MaxDepth
	MaxDepth int

	// Number of recorded samples, split between chains
	Samples int

	// Samples discarded at the start of every chain
	Burn int

	// Independent chains run in parallel, 1 when zero
	Chains int

	// Leaf count mismatch scale of the default likelihood exp(-|simulated-observed|/Scale)
	Scale float64

	// Likelihood overrides the default likelihood with an expression over
	// simulated, observed, scale and depth
	Likelihood string

	// Seed of the random source, time based when zero
	Seed int64

	// Timeout is a soft cap on sampling, unlimited when zero
	Timeout time.Duration

	// MaxLength caps simulated derivation strings, unlimited when zero
	MaxLength int
}

// DefaultScale is the leaf count mismatch scale of the reference model
const DefaultScale = 100

func DefaultConfig() Config {
	return Config{
		MaxDepth: 6,
		Samples:  5000,
		Chains:   1,
		Scale:    DefaultScale,
	}
}

// Result of an inference run
type Result struct {
	MAP       int
	Expected  float64
	Posterior []float64

	// Recorded and accepted samples, over all chains
	Samples  int
	Accepted int

	// Truncated is set when the soft cap stopped sampling early
	Truncated bool
}

func (r Result) Acceptance() float64 {
	if r.Samples == 0 {
		return 0
	}
	return float64(r.Accepted) / float64(r.Samples)
}

type likelihoodFunc func(depth, simulated, observed int) (float64, error)

type Estimator struct {
	Grammar stochtree.Grammar
	Config  Config
	Logger  *slog.Logger

	logLikelihood likelihoodFunc
}

// New validates the configuration and prepares an estimator
func New(grammar stochtree.Grammar, cfg Config, logger *slog.Logger) (*Estimator, error) {
	if cfg.Chains == 0 {
		cfg.Chains = 1
	}
	switch {
	case cfg.MaxDepth < 0:
		return nil, errors.Wrapf(ErrInvalidConfiguration, "negative max depth %d", cfg.MaxDepth)
	case cfg.Samples <= 0:
		return nil, errors.Wrapf(ErrInvalidConfiguration, "non-positive sample budget %d", cfg.Samples)
	case cfg.Burn < 0:
		return nil, errors.Wrapf(ErrInvalidConfiguration, "negative burn-in %d", cfg.Burn)
	case cfg.Chains < 0:
		return nil, errors.Wrapf(ErrInvalidConfiguration, "negative chain count %d", cfg.Chains)
	case cfg.Chains > cfg.Samples:
		return nil, errors.Wrapf(ErrInvalidConfiguration, "%d chains for %d samples", cfg.Chains, cfg.Samples)
	case cfg.Likelihood == "" && !(cfg.Scale > 0):
		return nil, errors.Wrapf(ErrInvalidConfiguration, "non-positive scale %v", cfg.Scale)
	}
	grammar, err := stochtree.NewGrammar(grammar.Axiom, grammar.Rules...)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	e := &Estimator{
		Grammar: grammar,
		Config:  cfg,
		Logger:  logger,
	}

	if cfg.Likelihood == "" {
		scale := cfg.Scale
		e.logLikelihood = func(_, simulated, observed int) (float64, error) {
			return -math.Abs(float64(simulated-observed)) / scale, nil
		}
	} else {
		f, err := expr.Parse(cfg.Likelihood)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidConfiguration, "likelihood: %v", err)
		}
		e.logLikelihood = func(depth, simulated, observed int) (float64, error) {
			w, err := f(stochtree.Variables{
				"depth":     float64(depth),
				"simulated": float64(simulated),
				"observed":  float64(observed),
				"scale":     cfg.Scale,
			})
			if err != nil {
				return 0, err
			}
			if w < 0 || math.IsNaN(w) {
				return 0, errors.Errorf("likelihood %q evaluated to %v", cfg.Likelihood, w)
			}
			return math.Log(w), nil
		}
	}
	return e, nil
}

// Infer approximates the posterior over depth given the observed leaf count
func (e *Estimator) Infer(ctx context.Context, observed int) (Result, error) {
	if observed < 0 {
		return Result{}, errors.Wrapf(ErrInvalidConfiguration, "negative observed leaf count %d", observed)
	}
	if e.Config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Config.Timeout)
		defer cancel()
	}

	seed := e.Config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	master := rand.New(rand.NewSource(seed))

	// Split the budget, the rem first chains taking one more sample
	chains := make([]*chain, e.Config.Chains)
	size, rem := e.Config.Samples/len(chains), e.Config.Samples%len(chains)
	for i := range chains {
		budget := size
		if i < rem {
			budget++
		}
		chains[i] = &chain{
			estimator: e,
			id:        i,
			rng:       rand.New(rand.NewSource(master.Int63())),
			budget:    budget,
			visits:    make([]int, e.Config.MaxDepth+1),
		}
	}

	errs := make([]error, len(chains))
	wg := sync.WaitGroup{}
	wg.Add(len(chains))
	for i, c := range chains {
		go func() {
			defer wg.Done()
			errs[i] = c.run(ctx, observed)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return Result{}, err
		}
	}
	return e.merge(chains)
}

func (e *Estimator) merge(chains []*chain) (Result, error) {
	visits := make([]int, e.Config.MaxDepth+1)
	res := Result{}
	finite := false
	for _, c := range chains {
		for d, n := range c.visits {
			visits[d] += n
		}
		res.Samples += c.recorded
		res.Accepted += c.accepted
		res.Truncated = res.Truncated || c.truncated
		finite = finite || c.finite
	}

	if res.Samples == 0 {
		return Result{}, ErrNoSamples
	}
	if !finite {
		return Result{}, ErrDegeneratePosterior
	}

	res.Posterior = make([]float64, len(visits))
	for d, n := range visits {
		p := float64(n) / float64(res.Samples)
		res.Posterior[d] = p
		res.Expected += float64(d) * p
		if p > res.Posterior[res.MAP] {
			res.MAP = d
		}
	}
	return res, nil
}

// Infer runs the reference model on grammar with default settings
func Infer(ctx context.Context, grammar stochtree.Grammar, observed, maxDepth, samples int) (Result, error) {
	cfg := DefaultConfig()
	cfg.MaxDepth = maxDepth
	cfg.Samples = samples
	e, err := New(grammar, cfg, nil)
	if err != nil {
		return Result{}, err
	}
	return e.Infer(ctx, observed)
}

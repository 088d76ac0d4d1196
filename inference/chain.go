package inference

import (
	"context"
	"math"
	"math/rand"

	"github.com/aabizri/stochtree"
	"github.com/pkg/errors"
)

type chain struct {
	estimator *Estimator
	id        int
	rng       *rand.Rand
	budget    int

	visits    []int
	recorded  int
	accepted  int
	truncated bool

	// Whether a recorded state had a non-zero likelihood
	finite bool
}

// propose draws a depth from the prior and scores it with a fresh simulation
func (c *chain) propose(ctx context.Context, observed int) (int, float64, error) {
	e := c.estimator
	depth := c.rng.Intn(e.Config.MaxDepth + 1)

	ls, err := stochtree.New(e.Grammar, nil, c.rng)
	if err != nil {
		return 0, 0, err
	}
	ls.MaxLength = e.Config.MaxLength
	if err := ls.DerivateUntil(ctx, uint(depth)); err != nil {
		// An over-long derivation is a sample with zero likelihood
		if errors.Cause(err) == stochtree.ErrTooLong {
			return depth, math.Inf(-1), nil
		}
		return 0, 0, errors.Wrapf(err, "simulating depth %d", depth)
	}
	simulated := stochtree.CountLeaves(ls.Export())

	logw, err := e.logLikelihood(depth, simulated, observed)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "scoring depth %d", depth)
	}
	return depth, logw, nil
}

func (c *chain) accept(current, proposed float64) bool {
	if math.IsInf(current, -1) || proposed >= current {
		return true
	}
	return c.rng.Float64() < math.Exp(proposed-current)
}

func (c *chain) run(ctx context.Context, observed int) error {
	log := c.estimator.Logger.With("chain", c.id)
	burn := c.estimator.Config.Burn

	depth, logw, err := c.propose(ctx, observed)
	if err != nil {
		return c.stop(ctx, err)
	}

	for i := 0; i < burn+c.budget; i++ {
		if ctx.Err() != nil {
			c.truncated = true
			break
		}

		d, lw, err := c.propose(ctx, observed)
		if err != nil {
			if err := c.stop(ctx, err); err != nil {
				return err
			}
			break
		}
		if c.accept(logw, lw) {
			depth, logw = d, lw
			if i >= burn {
				c.accepted++
			}
		}

		if i >= burn {
			c.visits[depth]++
			c.recorded++
			if !math.IsInf(logw, -1) {
				c.finite = true
			}
		}
	}

	log.Debug("chain done",
		"recorded", c.recorded,
		"accepted", c.accepted,
		"truncated", c.truncated,
	)
	return nil
}

// stop turns an error caused by the soft cap into truncation
func (c *chain) stop(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		c.truncated = true
		return nil
	}
	return err
}

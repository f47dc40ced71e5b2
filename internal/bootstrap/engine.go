// Package bootstrap quantifies parameter uncertainty by parametric-Poisson
// resampling from the fitted model: each iteration draws synthetic counts,
// refits warm-started at the point estimate, and the marginals of the refit
// distribution yield confidence intervals.
package bootstrap

import (
	"context"
	"math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat/distuv"

	"seufit/domain/fit"
	"seufit/domain/seu"
	"seufit/domain/weibull"
	"seufit/internal/fitter"
)

const (
	// IterationsLargeSample applies when N>=50 and every informative LET has
	// at least MinPerLETForLarge counts; otherwise the heavier budget is used.
	IterationsLargeSample = 10000
	IterationsSmallSample = 20000
	MinPerLETForLarge     = 5

	// minNonzeroPoints rejects degenerate resamples: fewer than 3 nonzero LET
	// steps cannot constrain a 4-parameter curve. Rejected draws are redrawn
	// without consuming the iteration budget.
	minNonzeroPoints = 3
	maxRedraws       = 1000
)

// Engine runs the resampling pool.
type Engine struct {
	workers  int
	baseSeed int64
	override int // explicit iteration count, 0 means auto
	fitter   *fitter.Fitter
}

// NewEngine creates a bootstrap engine. workers <= 0 defaults to NumCPU;
// override > 0 pins the iteration count.
func NewEngine(workers int, baseSeed int64, override int) *Engine {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Engine{
		workers:  workers,
		baseSeed: baseSeed,
		override: override,
		fitter:   fitter.New(fitter.DefaultOptions()),
	}
}

// ChooseIterations picks the bootstrap budget from the sample profile.
func ChooseIterations(totalEvents, minPerLET int) int {
	if totalEvents >= fit.LargeSampleEvents && minPerLET >= MinPerLETForLarge {
		return IterationsLargeSample
	}
	return IterationsSmallSample
}

// Iterations resolves the effective budget for a campaign.
func (e *Engine) Iterations(p seu.Partition) int {
	if e.override > 0 {
		return e.override
	}
	return ChooseIterations(p.TotalEvents(), p.MinInformativeCount())
}

// Run executes b iterations over a fixed-size worker pool. Iterations are
// independent; only the accumulator is shared, and it is internally locked.
// Cancellation is cooperative: a cancelled context stops new iterations while
// in-flight ones run to completion, keeping the accumulator consistent.
func (e *Engine) Run(ctx context.Context, informative []seu.Observation, thetaHat weibull.Params, bounds weibull.Bounds, b int) (*fit.BootstrapDistribution, error) {
	lambdas := weibull.ExpectedCounts(informative, thetaHat)
	dist := fit.NewBootstrapDistribution(b)

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := 0; i < b; i++ {
		iteration := i
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			e.runIteration(iteration, informative, lambdas, thetaHat, bounds, dist)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return dist, ctx.Err()
}

// runIteration draws one synthetic campaign and refits it.
func (e *Engine) runIteration(iteration int, informative []seu.Observation, lambdas []float64, thetaHat weibull.Params, bounds weibull.Bounds, dist *fit.BootstrapDistribution) {
	rng := newIterationRand(e.baseSeed, iteration)

	synthetic, ok := drawCampaign(rng, informative, lambdas)
	if !ok {
		dist.RecordFailure()
		return
	}

	result, err := e.fitter.Fit(synthetic, bounds, thetaHat.Vector())
	if err != nil || !result.Converged {
		dist.RecordFailure()
		return
	}
	dist.Record(iteration, result.Theta.Vector())
}

// drawCampaign samples N*_i ~ Poisson(lambda_i) per observation, redrawing
// degenerate campaigns up to maxRedraws times.
func drawCampaign(rng *rand.Rand, informative []seu.Observation, lambdas []float64) ([]seu.Observation, bool) {
	synthetic := make([]seu.Observation, len(informative))
	for attempt := 0; attempt < maxRedraws; attempt++ {
		nonzero := 0
		for i, o := range informative {
			count := 0
			if lambdas[i] > 0 {
				p := distuv.Poisson{Lambda: lambdas[i], Src: rng}
				count = int(p.Rand())
			}
			if count > 0 {
				nonzero++
			}
			synthetic[i] = seu.Observation{LET: o.LET, Count: count, Fluence: o.Fluence}
		}
		if nonzero >= minNonzeroPoints {
			return synthetic, true
		}
	}
	return nil, false
}

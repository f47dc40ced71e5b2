// Package fitter estimates Weibull cross-section parameters by bounded
// maximum-likelihood and derives the asymptotic covariance at the estimate.
package fitter

import (
	"fmt"

	"seufit/domain/fit"
	"seufit/domain/seu"
	"seufit/domain/weibull"
	"seufit/internal/errors"
)

// Options controls the bounded minimizer.
type Options struct {
	MaxIter int     // iteration budget
	FuncTol float64 // relative function-value spread tolerance
	GradTol float64 // stationarity probe tolerance
}

// DefaultOptions matches the production tolerances.
func DefaultOptions() Options {
	return Options{
		MaxIter: 10000,
		FuncTol: 1e-10,
		GradTol: 1e-8,
	}
}

// boundTol flags parameters within this fraction of the bound span as "on the bound".
const boundTol = 1e-9

// Fitter runs bounded MLE fits.
type Fitter struct {
	opts Options
}

// New creates a fitter with the given options; zero fields fall back to defaults.
func New(opts Options) *Fitter {
	def := DefaultOptions()
	if opts.MaxIter <= 0 {
		opts.MaxIter = def.MaxIter
	}
	if opts.FuncTol <= 0 {
		opts.FuncTol = def.FuncTol
	}
	if opts.GradTol <= 0 {
		opts.GradTol = def.GradTol
	}
	return &Fitter{opts: opts}
}

// Fit minimizes the Poisson NLL over the informative observations, starting
// from start inside bounds b. MaxIterExceeded and bound-landing produce
// non-fatal warnings on the result; the best-effort estimate is always
// returned.
func (f *Fitter) Fit(informative []seu.Observation, b weibull.Bounds, start weibull.Vector) (*fit.Result, error) {
	if len(informative) < weibull.MinInformative {
		return nil, errors.ConfigInvalid(
			fmt.Sprintf("cannot fit on %d informative observations", len(informative)))
	}
	if !b.Contains(b.Clip(start)) {
		return nil, errors.ConfigInvalid("start point cannot be projected into bounds")
	}

	nll := weibull.NLLVector(informative)
	x, fx, iters, converged := minimizeBounded(nll, b.Clip(start), b, f.opts)

	result := &fit.Result{
		Theta:      weibull.FromVector(x),
		Iterations: iters,
		FinalNLL:   fx,
	}

	onBound := b.AtBound(x, boundTol)
	switch {
	case !converged:
		result.Status = fit.StatusMaxIterExceeded
		result.Warnings = append(result.Warnings, fit.Warning{
			Code:    errors.CodeOptimizationWarning,
			Message: fmt.Sprintf("iteration budget %d exhausted before tolerances were met", f.opts.MaxIter),
		})
	case len(onBound) > 0:
		result.Status = fit.StatusBoundaryStall
		result.Converged = true
		for _, i := range onBound {
			result.Warnings = append(result.Warnings, fit.Warning{
				Code:    errors.CodeOptimizationWarning,
				Message: fmt.Sprintf("parameter %s converged on its bound", weibull.ParamName(i)),
			})
		}
	default:
		result.Status = fit.StatusConverged
		result.Converged = true
	}

	return result, nil
}

package bootstrap

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"seufit/domain/fit"
	"seufit/domain/seu"
	"seufit/domain/weibull"
)

// minJackknifeFolds is the minimum number of valid leave-one-out refits for
// the BCA acceleration to be trusted.
const minJackknifeFolds = 3

// IntervalConfig carries the selection inputs for interval computation.
type IntervalConfig struct {
	Confidence  float64 // e.g. 0.95
	TotalEvents int     // informative event total N
	HasCensored bool    // any zero-count observations in the campaign
}

// Intervals computes the 4 per-parameter confidence intervals from the
// bootstrap marginals.
//
// Selection rule: BCA when N >= 50, no censored observations, and the
// bootstrap success rate is acceptable; percentile otherwise. BCA further
// requires at least 3 valid jackknife folds for the acceleration, falling
// back to percentile when it cannot be computed.
func (e *Engine) Intervals(dist *fit.BootstrapDistribution, thetaHat weibull.Params, informative []seu.Observation, bounds weibull.Bounds, cfg IntervalConfig) ([]fit.ConfidenceInterval, fit.IntervalMethod) {
	// No successes means no distribution to take quantiles of; reporting no
	// intervals is more honest than NaN endpoints.
	if dist.Successes() == 0 {
		return nil, fit.MethodPercentile
	}

	method := fit.MethodPercentile
	var accel []float64

	wantBCA := cfg.TotalEvents >= fit.LargeSampleEvents &&
		!cfg.HasCensored &&
		dist.SuccessRate() >= fit.AcceptableSuccessRate
	if wantBCA {
		if a, ok := e.jackknifeAcceleration(informative, thetaHat, bounds); ok {
			method = fit.MethodBCA
			accel = a
		}
	}

	alpha := 1 - cfg.Confidence
	intervals := make([]fit.ConfidenceInterval, 0, weibull.NumParams)
	for i := 0; i < weibull.NumParams; i++ {
		marginal := dist.Marginal(i)
		var lower, upper float64
		if method == fit.MethodBCA {
			lower, upper = bcaInterval(marginal, thetaHat.Vector()[i], accel[i], alpha)
		} else {
			lower, upper = percentileInterval(marginal, alpha)
		}
		intervals = append(intervals, fit.ConfidenceInterval{
			ParameterIndex: i,
			Parameter:      weibull.ParamName(i),
			Lower:          lower,
			Upper:          upper,
			Method:         method,
		})
	}
	return intervals, method
}

// percentileInterval is [P(alpha/2), P(1-alpha/2)] of the marginal.
func percentileInterval(marginal []float64, alpha float64) (float64, float64) {
	lower, _ := stats.Percentile(marginal, clampPercent(100*alpha/2))
	upper, _ := stats.Percentile(marginal, clampPercent(100*(1-alpha/2)))
	return lower, upper
}

// bcaInterval applies the bias-corrected-and-accelerated transform to the
// percentile endpoints. A near-zero transform denominator falls back to the
// untransformed endpoint on that side.
func bcaInterval(marginal []float64, estimate, accel, alpha float64) (float64, float64) {
	n := len(marginal)
	if n == 0 {
		return math.NaN(), math.NaN()
	}

	below := 0
	for _, v := range marginal {
		if v < estimate {
			below++
		}
	}
	// Clip the bias fraction away from 0 and 1 so the quantile stays finite.
	frac := float64(below) / float64(n)
	frac = math.Max(1/float64(n+1), math.Min(float64(n)/float64(n+1), frac))

	normal := distuv.Normal{Mu: 0, Sigma: 1}
	z0 := normal.Quantile(frac)

	adjust := func(p float64) float64 {
		z := normal.Quantile(p)
		den := 1 - accel*(z0+z)
		if math.Abs(den) < 1e-8 {
			return p
		}
		return normal.CDF(z0 + (z0+z)/den)
	}

	lower, _ := stats.Percentile(marginal, clampPercent(100*adjust(alpha/2)))
	upper, _ := stats.Percentile(marginal, clampPercent(100*adjust(1-alpha/2)))
	return lower, upper
}

// jackknifeAcceleration refits with each informative observation left out and
// derives the per-parameter acceleration
//
//	a = sum(mean-theta_-i)^3 / (6 * (sum(mean-theta_-i)^2)^1.5)
//
// Returns ok=false when fewer than minJackknifeFolds folds produce a usable
// refit, or when dropping a point makes the model unidentifiable.
func (e *Engine) jackknifeAcceleration(informative []seu.Observation, thetaHat weibull.Params, bounds weibull.Bounds) ([]float64, bool) {
	if len(informative)-1 < weibull.MinInformative {
		return nil, false
	}

	var folds []weibull.Vector
	reduced := make([]seu.Observation, 0, len(informative)-1)
	for drop := range informative {
		reduced = reduced[:0]
		for i, o := range informative {
			if i != drop {
				reduced = append(reduced, o)
			}
		}
		result, err := e.fitter.Fit(reduced, bounds, thetaHat.Vector())
		if err != nil || !result.Converged {
			continue
		}
		folds = append(folds, result.Theta.Vector())
	}
	if len(folds) < minJackknifeFolds {
		return nil, false
	}

	accel := make([]float64, weibull.NumParams)
	for p := 0; p < weibull.NumParams; p++ {
		mean := 0.0
		for _, f := range folds {
			mean += f[p]
		}
		mean /= float64(len(folds))

		var sum2, sum3 float64
		for _, f := range folds {
			d := mean - f[p]
			sum2 += d * d
			sum3 += d * d * d
		}
		if sum2 == 0 {
			accel[p] = 0
			continue
		}
		accel[p] = sum3 / (6 * math.Pow(sum2, 1.5))
	}
	return accel, true
}

func clampPercent(p float64) float64 {
	return math.Max(0.01, math.Min(99.99, p))
}

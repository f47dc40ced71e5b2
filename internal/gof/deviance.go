// Package gof tests fit adequacy with the Poisson deviance statistic and
// exposes Pearson residuals for external diagnostic plotting.
package gof

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"seufit/domain/fit"
	"seufit/domain/seu"
	"seufit/domain/weibull"
)

// minDegreesOfFreedom is the smallest df for which the chi-squared reference
// distribution is trusted; below it residual plots are the better diagnostic.
const minDegreesOfFreedom = 3

// residualFloor keeps Pearson residual denominators away from zero.
const residualFloor = 0.1

// Test computes the deviance goodness-of-fit report over ALL observations,
// censored points included, at the fitted theta.
//
//	D = 2*sum_{N>0}[N*log(N/lambda) - (N-lambda)] + 2*sum_{N=0}[lambda]
//
// The test is reported only when df = n_total - 4 is at least 3; otherwise
// the result carries Applicable=false with residuals still populated.
func Test(obs []seu.Observation, theta weibull.Params) fit.GoodnessOfFit {
	lambdas := weibull.ExpectedCounts(obs, theta)

	deviance := 0.0
	for i, o := range obs {
		lambda := lambdas[i]
		if o.Count == 0 {
			deviance += 2 * lambda
			continue
		}
		n := float64(o.Count)
		l := math.Max(lambda, 1e-12)
		deviance += 2 * (n*math.Log(n/l) - (n - l))
	}

	result := fit.GoodnessOfFit{
		Deviance:         deviance,
		DegreesOfFreedom: len(obs) - weibull.NumParams,
		Residuals:        PearsonResiduals(obs, lambdas),
	}

	if result.DegreesOfFreedom < minDegreesOfFreedom {
		return result
	}

	chi2 := distuv.ChiSquared{K: float64(result.DegreesOfFreedom)}
	result.Applicable = true
	result.PValue = 1 - chi2.CDF(deviance)
	return result
}

// PearsonResiduals returns r_i = (N_i - lambda_i) / sqrt(max(lambda_i, 0.1)).
func PearsonResiduals(obs []seu.Observation, lambdas []float64) []float64 {
	residuals := make([]float64, len(obs))
	for i, o := range obs {
		residuals[i] = (float64(o.Count) - lambdas[i]) / math.Sqrt(math.Max(lambdas[i], residualFloor))
	}
	return residuals
}

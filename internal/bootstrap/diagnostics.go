package bootstrap

import (
	"math"

	"github.com/montanaflynn/stats"

	"seufit/domain/fit"
	"seufit/domain/weibull"
)

// covarianceDriftLimit is the relative half-to-half covariance difference
// above which the bootstrap distribution is flagged as unstable.
const covarianceDriftLimit = 0.10

// Summarize digests a finished distribution into the report form: success
// rate, per-parameter skewness flags, and covariance stability across two
// disjoint halves of the successes. Samples arrive in iteration order and
// halves alternate along that order, so the split is a function of the seed
// alone, never of worker completion order.
func Summarize(dist *fit.BootstrapDistribution, iterations int) *fit.BootstrapSummary {
	summary := &fit.BootstrapSummary{
		Iterations:  iterations,
		Successes:   dist.Successes(),
		Failures:    dist.Failures(),
		SuccessRate: dist.SuccessRate(),
		Mean:        make([]float64, weibull.NumParams),
		Skewness:    make([]float64, weibull.NumParams),
	}

	if summary.Successes == 0 {
		return summary
	}

	for i := 0; i < weibull.NumParams; i++ {
		marginal := dist.Marginal(i)
		mean, _ := stats.Mean(marginal)
		sd, _ := stats.StandardDeviation(marginal)
		summary.Mean[i] = mean
		summary.Skewness[i] = sampleSkewness(marginal, mean, sd)
		if fit.Skewed(summary.Skewness[i]) {
			summary.SkewFlagged = append(summary.SkewFlagged, weibull.ParamName(i))
		}
	}

	summary.CovarianceDrift = covarianceDrift(dist.Samples())
	summary.CovarianceStable = summary.CovarianceDrift <= covarianceDriftLimit
	return summary
}

// sampleSkewness is the adjusted Fisher-Pearson coefficient.
func sampleSkewness(data []float64, mean, sd float64) float64 {
	n := float64(len(data))
	if n < 3 || sd == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range data {
		d := (x - mean) / sd
		sum += d * d * d
	}
	return (sum / n) * math.Sqrt(n*(n-1)) / (n - 2)
}

// covarianceDrift compares the parameter covariance of the even-position and
// odd-position halves of the iteration-ordered successes, returning the
// largest entry difference relative to the largest entry magnitude.
func covarianceDrift(samples []weibull.Vector) float64 {
	if len(samples) < 4 {
		return 0
	}
	var even, odd []weibull.Vector
	for i, s := range samples {
		if i%2 == 0 {
			even = append(even, s)
		} else {
			odd = append(odd, s)
		}
	}

	c1 := covarianceMatrix(even)
	c2 := covarianceMatrix(odd)

	maxDiff, maxMag := 0.0, 0.0
	for i := 0; i < weibull.NumParams; i++ {
		for j := 0; j < weibull.NumParams; j++ {
			diff := math.Abs(c1[i][j] - c2[i][j])
			if diff > maxDiff {
				maxDiff = diff
			}
			mag := math.Max(math.Abs(c1[i][j]), math.Abs(c2[i][j]))
			if mag > maxMag {
				maxMag = mag
			}
		}
	}
	if maxMag == 0 {
		return 0
	}
	return maxDiff / maxMag
}

func covarianceMatrix(samples []weibull.Vector) [weibull.NumParams][weibull.NumParams]float64 {
	var cov [weibull.NumParams][weibull.NumParams]float64
	n := float64(len(samples))
	if n < 2 {
		return cov
	}

	var mean weibull.Vector
	for _, s := range samples {
		for i := range mean {
			mean[i] += s[i]
		}
	}
	for i := range mean {
		mean[i] /= n
	}

	for _, s := range samples {
		for i := 0; i < weibull.NumParams; i++ {
			for j := 0; j < weibull.NumParams; j++ {
				cov[i][j] += (s[i] - mean[i]) * (s[j] - mean[j])
			}
		}
	}
	for i := 0; i < weibull.NumParams; i++ {
		for j := 0; j < weibull.NumParams; j++ {
			cov[i][j] /= n - 1
		}
	}
	return cov
}

package weibull

import (
	"math"

	"seufit/domain/seu"
)

// lambdaFloor keeps the Poisson mean strictly positive before the logarithm.
const lambdaFloor = 1e-12

// ExpectedCounts returns lambda_i = sigma(LET_i) * fluence_i for each
// observation under theta.
func ExpectedCounts(obs []seu.Observation, p Params) []float64 {
	lambdas := make([]float64, len(obs))
	for i, o := range obs {
		lambdas[i] = p.CrossSection(o.LET) * o.Fluence
	}
	return lambdas
}

// NLL evaluates the Poisson negative log-likelihood
//
//	sum_i [ lambda_i - N_i * log(lambda_i) ]
//
// over the observations. lambda is floored at 1e-12 before the logarithm, and
// the N*log(lambda) term is exactly zero for zero-count observations by
// convention rather than relying on 0*Inf arithmetic. Any non-finite
// intermediate makes the whole evaluation +Inf so the optimizer rejects the
// region uniformly.
func NLL(obs []seu.Observation, p Params) float64 {
	total := 0.0
	for _, o := range obs {
		lambda := p.CrossSection(o.LET) * o.Fluence
		if math.IsNaN(lambda) || math.IsInf(lambda, 0) || lambda < 0 {
			return math.Inf(1)
		}
		term := lambda
		if o.Count > 0 {
			l := lambda
			if l < lambdaFloor {
				l = lambdaFloor
			}
			term -= float64(o.Count) * math.Log(l)
		}
		if math.IsNaN(term) || math.IsInf(term, 0) {
			return math.Inf(1)
		}
		total += term
	}
	if math.IsNaN(total) {
		return math.Inf(1)
	}
	return total
}

// NLLVector adapts NLL to the optimizer's vector space.
func NLLVector(obs []seu.Observation) func(Vector) float64 {
	return func(v Vector) float64 {
		return NLL(obs, FromVector(v))
	}
}

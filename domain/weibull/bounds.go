package weibull

import (
	"fmt"

	"seufit/domain/seu"
	"seufit/internal/errors"
)

// MinInformative is the smallest number of non-zero observations that keeps
// the 4-parameter model identifiable.
const MinInformative = NumParams

// Bounds is the box constraint for the optimizer, derived from data.
type Bounds struct {
	Lower Vector `json:"lower"`
	Upper Vector `json:"upper"`
}

// DeriveBounds computes physically motivated bounds from the informative
// observations:
//
//	sigma_sat in [0.5*max(obs_sigma), 10*max(obs_sigma)]
//	let_th    in [0, min(LET)]
//	shape     in [0.1, 10]
//	width     in [0.1, 2*(max(LET)-min(LET))]
func DeriveBounds(informative []seu.Observation) (Bounds, error) {
	if len(informative) < MinInformative {
		return Bounds{}, errors.ConfigInvalid(
			fmt.Sprintf("model unidentifiable: need at least %d informative observations, got %d", MinInformative, len(informative)))
	}

	maxSigma := 0.0
	for _, o := range informative {
		if s := o.ObservedSigma(); s > maxSigma {
			maxSigma = s
		}
	}
	minLET, maxLET := seu.LETRange(informative)
	letSpan := maxLET - minLET

	b := Bounds{}
	b.Lower[IdxSigmaSat] = 0.5 * maxSigma
	b.Upper[IdxSigmaSat] = 10 * maxSigma
	b.Lower[IdxThreshold] = 0
	b.Upper[IdxThreshold] = minLET
	b.Lower[IdxShape] = 0.1
	b.Upper[IdxShape] = 10
	b.Lower[IdxWidth] = 0.1
	b.Upper[IdxWidth] = 2 * letSpan
	if b.Upper[IdxWidth] <= b.Lower[IdxWidth] {
		return Bounds{}, errors.ConfigInvalid("degenerate LET range: all informative observations share one LET")
	}
	return b, nil
}

// InitialGuess builds the starting point for the optimizer, clipped into the
// bounds component-wise.
func (b Bounds) InitialGuess(informative []seu.Observation) Vector {
	maxSigma := 0.0
	for _, o := range informative {
		if s := o.ObservedSigma(); s > maxSigma {
			maxSigma = s
		}
	}
	minLET, maxLET := seu.LETRange(informative)

	guess := Vector{
		maxSigma * 1.2,
		minLET - 1,
		2,
		(maxLET - minLET) / 3,
	}
	return b.Clip(guess)
}

// Clip projects v into the bounds component-wise.
func (b Bounds) Clip(v Vector) Vector {
	for i := range v {
		if v[i] < b.Lower[i] {
			v[i] = b.Lower[i]
		}
		if v[i] > b.Upper[i] {
			v[i] = b.Upper[i]
		}
	}
	return v
}

// Contains reports whether v lies inside the bounds (boundary inclusive).
func (b Bounds) Contains(v Vector) bool {
	for i := range v {
		if v[i] < b.Lower[i] || v[i] > b.Upper[i] {
			return false
		}
	}
	return true
}

// AtBound reports which components of v sit within tol of a bound,
// relative to the bound interval width.
func (b Bounds) AtBound(v Vector, tol float64) []int {
	var hit []int
	for i := range v {
		span := b.Upper[i] - b.Lower[i]
		if span <= 0 {
			continue
		}
		if v[i]-b.Lower[i] <= tol*span || b.Upper[i]-v[i] <= tol*span {
			hit = append(hit, i)
		}
	}
	return hit
}

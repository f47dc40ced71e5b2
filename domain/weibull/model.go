// Package weibull implements the 4-parameter Weibull cross-section model
// used for SEU rate prediction, its Poisson likelihood, and the physically
// motivated parameter bounds derived from test data.
//
//	sigma(LET) = 0                                          LET <= LET_th
//	sigma(LET) = sigma_sat * (1 - exp(-((LET-LET_th)/W)^S)) otherwise
package weibull

import (
	"fmt"
	"math"
)

// Parameter indices into a Vector.
const (
	IdxSigmaSat = iota
	IdxThreshold
	IdxShape
	IdxWidth
	NumParams
)

// Vector is the optimizer-facing parameter representation.
type Vector [NumParams]float64

// Params is the fitted parameter set theta.
type Params struct {
	SigmaSat  float64 `json:"sigma_sat"` // saturation cross-section, cm²
	Threshold float64 `json:"let_th"`    // onset LET, MeV·cm²/mg
	Shape     float64 `json:"shape"`     // Weibull shape S
	Width     float64 `json:"width"`     // Weibull width W
}

// ParamName returns the conventional symbol for a parameter index.
func ParamName(i int) string {
	switch i {
	case IdxSigmaSat:
		return "sigma_sat"
	case IdxThreshold:
		return "let_th"
	case IdxShape:
		return "shape"
	case IdxWidth:
		return "width"
	default:
		return fmt.Sprintf("param_%d", i)
	}
}

// Vector converts params to the optimizer representation.
func (p Params) Vector() Vector {
	return Vector{p.SigmaSat, p.Threshold, p.Shape, p.Width}
}

// FromVector builds Params from the optimizer representation.
func FromVector(v Vector) Params {
	return Params{SigmaSat: v[IdxSigmaSat], Threshold: v[IdxThreshold], Shape: v[IdxShape], Width: v[IdxWidth]}
}

// Validate checks the parameter invariants.
func (p Params) Validate() error {
	if !(p.SigmaSat > 0) {
		return fmt.Errorf("sigma_sat must be > 0, got %g", p.SigmaSat)
	}
	if p.Threshold < 0 {
		return fmt.Errorf("let_th must be >= 0, got %g", p.Threshold)
	}
	if p.Shape < 0.1 || p.Shape > 10 {
		return fmt.Errorf("shape must be in [0.1,10], got %g", p.Shape)
	}
	if !(p.Width > 0) {
		return fmt.Errorf("width must be > 0, got %g", p.Width)
	}
	return nil
}

// CrossSection evaluates sigma(LET; theta). Exactly zero at and below the
// threshold. A non-finite intermediate propagates as NaN so the likelihood
// rejects the region with +Inf instead of silently reading sigma as zero.
func (p Params) CrossSection(let float64) float64 {
	if let <= p.Threshold {
		return 0
	}
	x := (let - p.Threshold) / p.Width
	s := p.SigmaSat * (1 - math.Exp(-math.Pow(x, p.Shape)))
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return math.NaN()
	}
	return s
}

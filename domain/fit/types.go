// Package fit defines the result artifacts of a cross-section analysis:
// the point estimate, bootstrap distribution, confidence intervals, censored
// upper limits, and the goodness-of-fit report.
package fit

import (
	"fmt"
	"math"

	"seufit/domain/core"
	"seufit/domain/seu"
	"seufit/domain/weibull"
	"seufit/internal/errors"
)

// Variant tags which estimation regime produced a result. Selected exactly
// once by ClassifyVariant and never re-evaluated mid-pipeline.
type Variant string

const (
	// VariantStandard: large sample, no zero-count points, healthy bootstrap.
	VariantStandard Variant = "standard"
	// VariantSmallSample: asymptotic theory unreliable, bootstrap-only uncertainty.
	VariantSmallSample Variant = "small_sample"
	// VariantWithZeros: censored points present, percentile intervals forced.
	VariantWithZeros Variant = "with_zeros"
	// VariantAllCensored: no informative points at all, upper limits only.
	VariantAllCensored Variant = "all_censored"
)

// LargeSampleEvents is the informative event total above which asymptotic
// (Hessian) covariance and BCA intervals become admissible.
const LargeSampleEvents = 50

// AcceptableSuccessRate is the bootstrap success fraction below which results
// are flagged as lower-confidence.
const AcceptableSuccessRate = 0.90

// ClassifyVariant selects the estimation regime from the sample profile.
// Pure function of (total informative events, censored presence, bootstrap
// success rate).
func ClassifyVariant(totalEvents int, hasZeros bool, successRate float64) Variant {
	switch {
	case hasZeros:
		return VariantWithZeros
	case totalEvents >= LargeSampleEvents && successRate >= AcceptableSuccessRate:
		return VariantStandard
	default:
		return VariantSmallSample
	}
}

// TermStatus is the optimizer terminal state.
type TermStatus string

const (
	StatusConverged       TermStatus = "converged"
	StatusMaxIterExceeded TermStatus = "max_iter_exceeded"
	StatusBoundaryStall   TermStatus = "boundary_stall"
)

// Warning is a non-fatal condition attached to a result.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Result is the MLE point estimate. Immutable once produced.
type Result struct {
	Theta      weibull.Params `json:"theta"`
	Converged  bool           `json:"converged"`
	Status     TermStatus     `json:"status"`
	Iterations int            `json:"iterations"`
	FinalNLL   float64        `json:"final_nll"`
	Warnings   []Warning      `json:"warnings,omitempty"`
}

// IntervalMethod identifies how a confidence interval was computed.
type IntervalMethod string

const (
	MethodPercentile IntervalMethod = "percentile"
	MethodBCA        IntervalMethod = "bca"
)

// ConfidenceInterval is one per-parameter marginal interval.
type ConfidenceInterval struct {
	ParameterIndex int            `json:"parameter_index"`
	Parameter      string         `json:"parameter"`
	Lower          float64        `json:"lower"`
	Upper          float64        `json:"upper"`
	Method         IntervalMethod `json:"method"`
}

// Validate checks interval invariants.
func (ci ConfidenceInterval) Validate() error {
	if ci.ParameterIndex < 0 || ci.ParameterIndex >= weibull.NumParams {
		return fmt.Errorf("parameter index out of range: %d", ci.ParameterIndex)
	}
	if ci.Lower > ci.Upper {
		return fmt.Errorf("interval inverted for %s: [%g, %g]", ci.Parameter, ci.Lower, ci.Upper)
	}
	return nil
}

// GoodnessOfFit is the deviance test report. When Applicable is false the
// deviance and residuals are still populated for diagnostic plotting but no
// p-value is claimed.
type GoodnessOfFit struct {
	Applicable       bool      `json:"applicable"`
	Deviance         float64   `json:"deviance"`
	DegreesOfFreedom int       `json:"degrees_of_freedom"`
	PValue           float64   `json:"p_value"`
	Residuals        []float64 `json:"residuals"`
}

// AnalysisReport is the terminal output of the pipeline.
type AnalysisReport struct {
	RunID           core.RunID           `json:"run_id"`
	Variant         Variant              `json:"variant"`
	Fit             *Result              `json:"fit,omitempty"`
	StdErrors       []float64            `json:"std_errors,omitempty"` // Hessian-based, large-sample only
	Bootstrap       *BootstrapSummary    `json:"bootstrap,omitempty"`
	Intervals       []ConfidenceInterval `json:"intervals,omitempty"`
	UpperLimits     []seu.UpperLimit     `json:"upper_limits,omitempty"`
	GoodnessOfFit   *GoodnessOfFit       `json:"goodness_of_fit,omitempty"`
	Warnings        []Warning            `json:"warnings,omitempty"`
	LowerConfidence bool                 `json:"lower_confidence"`
	CreatedAt       core.Timestamp       `json:"created_at"`
}

// Artifact wraps the report in the ledger envelope.
func (r *AnalysisReport) Artifact() core.Artifact {
	kind := core.ArtifactAnalysis
	if r.Variant == VariantAllCensored {
		kind = core.ArtifactUpperLimits
	}
	return core.Artifact{
		ID:        core.NewID(),
		Kind:      kind,
		Payload:   r,
		CreatedAt: r.CreatedAt,
	}
}

// CheckCensoredConsistency verifies sigma(LET; theta) <= sigma_upper for every
// censored point. Violations are reported as warnings, never auto-corrected.
func CheckCensoredConsistency(limits []seu.UpperLimit, theta weibull.Params) []Warning {
	var warnings []Warning
	for _, ul := range limits {
		predicted := theta.CrossSection(ul.LET)
		if predicted > ul.SigmaUpper {
			warnings = append(warnings, Warning{
				Code: errors.CodeModelInconsistency,
				Message: fmt.Sprintf("fitted sigma %.4g at LET %g exceeds censored upper limit %.4g",
					predicted, ul.LET, ul.SigmaUpper),
			})
		}
	}
	return warnings
}

// Summary renders a terse plain-text block for callers. Not a report
// generator; serialization stays the caller's responsibility.
func (r *AnalysisReport) Summary() string {
	if r.Variant == VariantAllCensored {
		return fmt.Sprintf("variant=%s upper_limits=%d", r.Variant, len(r.UpperLimits))
	}
	s := fmt.Sprintf("variant=%s converged=%t nll=%.6g sigma_sat=%.4g let_th=%.4g shape=%.4g width=%.4g",
		r.Variant, r.Fit.Converged, r.Fit.FinalNLL,
		r.Fit.Theta.SigmaSat, r.Fit.Theta.Threshold, r.Fit.Theta.Shape, r.Fit.Theta.Width)
	for _, ci := range r.Intervals {
		s += fmt.Sprintf("\n  %s in [%.4g, %.4g] (%s)", ci.Parameter, ci.Lower, ci.Upper, ci.Method)
	}
	if r.GoodnessOfFit != nil && r.GoodnessOfFit.Applicable {
		s += fmt.Sprintf("\n  deviance=%.4g df=%d p=%.4g",
			r.GoodnessOfFit.Deviance, r.GoodnessOfFit.DegreesOfFreedom, r.GoodnessOfFit.PValue)
	}
	return s
}

// Skewed reports whether a bootstrap marginal skewness estimate warrants the
// asymmetry flag used by diagnostics.
func Skewed(skew float64) bool {
	return math.Abs(skew) > 0.5
}

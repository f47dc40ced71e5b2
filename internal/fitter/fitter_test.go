package fitter

import (
	"math"
	"math/rand/v2"
	"testing"

	"seufit/domain/fit"
	"seufit/domain/seu"
	"seufit/domain/weibull"
	"seufit/internal/errors"
	"seufit/internal/testkit"
)

func TestFitHeavyIonCampaign(t *testing.T) {
	obs := testkit.HeavyIonCampaign()
	bounds, err := weibull.DeriveBounds(obs)
	if err != nil {
		t.Fatalf("DeriveBounds failed: %v", err)
	}

	f := New(DefaultOptions())
	result, err := f.Fit(obs, bounds, bounds.InitialGuess(obs))
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	if !result.Converged {
		t.Fatalf("Expected convergence, status=%s after %d iterations", result.Status, result.Iterations)
	}
	if err := result.Theta.Validate(); err != nil {
		t.Fatalf("Fitted params invalid: %v", err)
	}

	// The campaign's first informative point sits at LET 5, so the fitted
	// threshold must stay below it.
	if result.Theta.Threshold >= 5 {
		t.Errorf("let_th = %g, want < 5", result.Theta.Threshold)
	}
	// Saturation counts are ~80 at 1e7 fluence: sigma_sat near 8e-6.
	if result.Theta.SigmaSat < 5e-6 || result.Theta.SigmaSat > 2e-5 {
		t.Errorf("sigma_sat = %g, outside plausible range around 8e-6", result.Theta.SigmaSat)
	}
	if math.IsInf(result.FinalNLL, 0) || math.IsNaN(result.FinalNLL) {
		t.Errorf("FinalNLL not finite: %g", result.FinalNLL)
	}
}

func TestFitIsLocalOptimum(t *testing.T) {
	obs := testkit.HeavyIonCampaign()
	bounds, err := weibull.DeriveBounds(obs)
	if err != nil {
		t.Fatalf("DeriveBounds failed: %v", err)
	}

	f := New(DefaultOptions())
	result, err := f.Fit(obs, bounds, bounds.InitialGuess(obs))
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	// No random feasible perturbation should beat the fitted NLL beyond
	// numerical noise.
	rng := rand.New(rand.NewPCG(7, 11))
	base := result.Theta.Vector()
	for trial := 0; trial < 200; trial++ {
		probe := base
		for i := range probe {
			span := bounds.Upper[i] - bounds.Lower[i]
			probe[i] += (rng.Float64() - 0.5) * 0.02 * span
		}
		probe = bounds.Clip(probe)
		if nll := weibull.NLL(obs, weibull.FromVector(probe)); nll < result.FinalNLL-1e-6 {
			t.Fatalf("Perturbation %v beats the fit: %g < %g", probe, nll, result.FinalNLL)
		}
	}
}

func TestFitTooFewInformative(t *testing.T) {
	obs := []seu.Observation{
		{LET: 5, Count: 3, Fluence: 1e7},
		{LET: 10, Count: 12, Fluence: 1e7},
		{LET: 20, Count: 45, Fluence: 1e7},
	}
	b := weibull.Bounds{
		Lower: weibull.Vector{1e-8, 0, 0.1, 0.1},
		Upper: weibull.Vector{1e-5, 5, 10, 30},
	}

	f := New(DefaultOptions())
	_, err := f.Fit(obs, b, b.InitialGuess(obs))
	if err == nil {
		t.Fatal("Expected error for 3 informative observations")
	}
	if !errors.IsConfigInvalid(err) {
		t.Errorf("Error code = %s, want CONFIG_INVALID", errors.GetCode(err))
	}
}

func TestFitBudgetExhaustionIsNonFatal(t *testing.T) {
	obs := testkit.HeavyIonCampaign()
	bounds, err := weibull.DeriveBounds(obs)
	if err != nil {
		t.Fatalf("DeriveBounds failed: %v", err)
	}

	f := New(Options{MaxIter: 5, FuncTol: 1e-10, GradTol: 1e-8})
	result, err := f.Fit(obs, bounds, bounds.InitialGuess(obs))
	if err != nil {
		t.Fatalf("Expected best-effort result, got error: %v", err)
	}
	if result.Status != fit.StatusMaxIterExceeded || result.Converged {
		t.Errorf("Status = %s converged=%t, want max_iter_exceeded/false", result.Status, result.Converged)
	}
	if len(result.Warnings) == 0 {
		t.Error("Expected an optimization warning on the result")
	}
}

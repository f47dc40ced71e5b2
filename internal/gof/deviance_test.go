package gof

import (
	"math"
	"testing"

	"seufit/domain/seu"
	"seufit/domain/weibull"
	"seufit/internal/fitter"
	"seufit/internal/testkit"
)

func campaignAround(theta weibull.Params, fluence float64, lets []float64) []seu.Observation {
	// Counts set exactly at the model mean (rounded) so the deviance is small.
	obs := make([]seu.Observation, len(lets))
	for i, let := range lets {
		obs[i] = seu.Observation{
			LET:     let,
			Count:   int(math.Round(theta.CrossSection(let) * fluence)),
			Fluence: fluence,
		}
	}
	return obs
}

func TestDevianceNearModelMean(t *testing.T) {
	theta := weibull.Params{SigmaSat: 8e-6, Threshold: 3, Shape: 1.8, Width: 18}
	obs := campaignAround(theta, 1e7, []float64{5, 10, 15, 20, 30, 40, 60, 80})

	result := Test(obs, theta)
	if !result.Applicable {
		t.Fatalf("Expected applicable test at df=%d", result.DegreesOfFreedom)
	}
	if result.DegreesOfFreedom != 4 {
		t.Errorf("df = %d, want 4", result.DegreesOfFreedom)
	}
	// Counts at the rounded mean: deviance far below the chi2 mean of df.
	if result.Deviance > float64(result.DegreesOfFreedom) {
		t.Errorf("Deviance %g too large for counts at the model mean", result.Deviance)
	}
	if result.PValue < 0.05 {
		t.Errorf("p-value = %g, expected a comfortable fit", result.PValue)
	}
}

func TestDevianceDetectsMisfit(t *testing.T) {
	theta := weibull.Params{SigmaSat: 8e-6, Threshold: 3, Shape: 1.8, Width: 18}
	obs := campaignAround(theta, 1e7, []float64{5, 10, 15, 20, 30, 40, 60, 80})

	// Evaluate under a very wrong model.
	wrong := weibull.Params{SigmaSat: 2e-6, Threshold: 3, Shape: 1.8, Width: 18}
	result := Test(obs, wrong)
	if !result.Applicable {
		t.Fatal("Expected applicable test")
	}
	if result.PValue > 1e-3 {
		t.Errorf("p-value = %g, expected decisive rejection", result.PValue)
	}
}

func TestDevianceInapplicableBelowMinDF(t *testing.T) {
	theta := weibull.Params{SigmaSat: 8e-6, Threshold: 3, Shape: 1.8, Width: 18}
	obs := campaignAround(theta, 1e7, []float64{5, 10, 15, 20, 30, 40}) // df = 2

	result := Test(obs, theta)
	if result.Applicable {
		t.Errorf("Expected inapplicable test at df=%d", result.DegreesOfFreedom)
	}
	if len(result.Residuals) != len(obs) {
		t.Errorf("Residuals still expected for diagnostics: got %d, want %d",
			len(result.Residuals), len(obs))
	}
}

func TestCensoredPointsContributeToDeviance(t *testing.T) {
	theta := weibull.Params{SigmaSat: 8e-6, Threshold: 3, Shape: 1.8, Width: 18}
	informative := campaignAround(theta, 1e7, []float64{10, 15, 20, 30, 40, 60, 80})

	withCensored := append(append([]seu.Observation(nil), informative...),
		seu.Observation{LET: 5, Count: 0, Fluence: 1e7})

	base := Test(informative, theta)
	aug := Test(withCensored, theta)

	// The zero-count point adds exactly 2*lambda at its LET.
	wantDelta := 2 * theta.CrossSection(5) * 1e7
	gotDelta := aug.Deviance - base.Deviance
	if math.Abs(gotDelta-wantDelta) > 1e-9*math.Max(wantDelta, 1) {
		t.Errorf("Censored deviance contribution = %g, want %g", gotDelta, wantDelta)
	}
	if aug.DegreesOfFreedom != base.DegreesOfFreedom+1 {
		t.Errorf("df should count censored points: %d vs %d", aug.DegreesOfFreedom, base.DegreesOfFreedom)
	}
}

func TestDevianceCalibrationOnModelTrueData(t *testing.T) {
	// Campaigns drawn from the model itself should rarely be rejected: the
	// deviance p-value lands above 0.05 in roughly 95% of trials, so a large
	// majority must pass. Seeds are fixed, so the outcome is deterministic.
	truth := weibull.Params{SigmaSat: 8e-6, Threshold: 4, Shape: 1.8, Width: 18}
	lets := []float64{10, 15, 20, 30, 40, 60, 80, 100}

	const trials = 40
	passed := 0
	f := fitter.New(fitter.DefaultOptions())
	for seed := uint64(1); seed <= trials; seed++ {
		campaign := testkit.SyntheticCampaign(truth, lets, 1e7, seed)
		part := seu.Split(campaign)
		bounds, err := weibull.DeriveBounds(part.Informative)
		if err != nil {
			t.Fatalf("Trial %d: DeriveBounds failed: %v", seed, err)
		}
		result, err := f.Fit(part.Informative, bounds, bounds.InitialGuess(part.Informative))
		if err != nil {
			t.Fatalf("Trial %d: Fit failed: %v", seed, err)
		}

		r := Test(campaign, result.Theta)
		if !r.Applicable {
			t.Fatalf("Trial %d: test inapplicable at df=%d", seed, r.DegreesOfFreedom)
		}
		if r.PValue > 0.05 {
			passed++
		}
	}

	if passed < trials*85/100 {
		t.Errorf("Only %d/%d model-true campaigns passed the deviance test", passed, trials)
	}
}

func TestPearsonResidualsFloor(t *testing.T) {
	obs := []seu.Observation{
		{LET: 10, Count: 3, Fluence: 1e7},
		{LET: 4, Count: 0, Fluence: 1e7},
	}
	lambdas := []float64{4.0, 0.0} // second lambda under the 0.1 floor

	r := PearsonResiduals(obs, lambdas)
	if want := (3.0 - 4.0) / 2.0; math.Abs(r[0]-want) > 1e-12 {
		t.Errorf("Residual[0] = %g, want %g", r[0], want)
	}
	// Floored denominator sqrt(0.1), numerator 0.
	if r[1] != 0 {
		t.Errorf("Residual[1] = %g, want 0", r[1])
	}
	if math.IsNaN(r[1]) || math.IsInf(r[1], 0) {
		t.Errorf("Residual must stay finite under the floor, got %g", r[1])
	}
}

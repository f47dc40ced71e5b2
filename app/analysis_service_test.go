package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seufit/domain/fit"
	"seufit/domain/seu"
	"seufit/internal/config"
	"seufit/internal/errors"
	"seufit/internal/testkit"
)

func testConfig() *config.Config {
	cfg := config.New()
	cfg.BootstrapIterations = 200 // keep integration tests fast
	cfg.Workers = 4
	return cfg
}

func TestRunFullAnalysis(t *testing.T) {
	ledger := testkit.NewInMemoryLedger()
	service := NewAnalysisService(testConfig(), ledger, nil)

	report, err := service.Run(context.Background(), testkit.HeavyIonCampaign())
	require.NoError(t, err)

	require.NotNil(t, report.Fit)
	assert.True(t, report.Fit.Converged, "reference campaign must converge")
	assert.Less(t, report.Fit.Theta.Threshold, 5.0, "threshold must stay below the first tested LET")

	require.Len(t, report.Intervals, 4)
	est := report.Fit.Theta.Vector()
	for _, ci := range report.Intervals {
		require.NoError(t, ci.Validate())
		assert.GreaterOrEqual(t, est[ci.ParameterIndex], ci.Lower)
		assert.LessOrEqual(t, est[ci.ParameterIndex], ci.Upper)
	}

	require.NotNil(t, report.Bootstrap)
	assert.GreaterOrEqual(t, report.Bootstrap.SuccessRate, fit.AcceptableSuccessRate)
	assert.False(t, report.LowerConfidence)

	// 381 events: asymptotic standard errors are expected alongside the bootstrap.
	assert.Len(t, report.StdErrors, 4)

	require.NotNil(t, report.GoodnessOfFit)
	assert.True(t, report.GoodnessOfFit.Applicable)
	assert.Len(t, report.GoodnessOfFit.Residuals, 8)

	assert.Empty(t, report.UpperLimits)
	assert.Equal(t, fit.VariantStandard, report.Variant)

	// One artifact per run in the ledger.
	artifacts, err := ledger.ArtifactsByRun(context.Background(), report.RunID)
	require.NoError(t, err)
	require.Len(t, artifacts, 1)
	assert.Equal(t, "seu_analysis", string(artifacts[0].Kind))
}

func TestRunAllCensoredCampaign(t *testing.T) {
	obs := []seu.Observation{
		{LET: 1, Count: 0, Fluence: 1e7},
		{LET: 2, Count: 0, Fluence: 1e7},
		{LET: 3, Count: 0, Fluence: 1e7},
		{LET: 4, Count: 0, Fluence: 1e7},
		{LET: 5, Count: 0, Fluence: 1e7},
	}

	ledger := testkit.NewInMemoryLedger()
	service := NewAnalysisService(testConfig(), ledger, nil)

	report, err := service.Run(context.Background(), obs)
	require.NoError(t, err)

	assert.Equal(t, fit.VariantAllCensored, report.Variant)
	assert.Nil(t, report.Fit)
	assert.Nil(t, report.Bootstrap)
	assert.Empty(t, report.Intervals)
	require.Len(t, report.UpperLimits, 5)
	for _, ul := range report.UpperLimits {
		assert.InEpsilon(t, 2.9957e-7, ul.SigmaUpper, 1e-3)
		assert.Equal(t, 0.95, ul.ConfidenceLevel)
	}

	artifacts, err := ledger.ArtifactsByRun(context.Background(), report.RunID)
	require.NoError(t, err)
	require.Len(t, artifacts, 1)
	assert.Equal(t, "seu_upper_limits", string(artifacts[0].Kind))
}

func TestRunMixedCampaignClassifiesWithZeros(t *testing.T) {
	obs := append([]seu.Observation{
		{LET: 1, Count: 0, Fluence: 1e7},
		{LET: 3, Count: 0, Fluence: 1e7},
	}, testkit.HeavyIonCampaign()...)

	service := NewAnalysisService(testConfig(), nil, nil)
	report, err := service.Run(context.Background(), obs)
	require.NoError(t, err)

	assert.Equal(t, fit.VariantWithZeros, report.Variant)
	require.Len(t, report.UpperLimits, 2)

	// Censored points force percentile intervals.
	for _, ci := range report.Intervals {
		assert.Equal(t, fit.MethodPercentile, ci.Method)
	}

	// Deviance counts every observation, censored included.
	require.NotNil(t, report.GoodnessOfFit)
	assert.Equal(t, 10-4, report.GoodnessOfFit.DegreesOfFreedom)
}

func TestRunRejectsInvalidCampaign(t *testing.T) {
	service := NewAnalysisService(testConfig(), nil, nil)

	_, err := service.Run(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))

	_, err = service.Run(context.Background(), []seu.Observation{{LET: -1, Count: 2, Fluence: 1e7}})
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestRunTooFewInformativePoints(t *testing.T) {
	obs := []seu.Observation{
		{LET: 5, Count: 3, Fluence: 1e7},
		{LET: 10, Count: 12, Fluence: 1e7},
		{LET: 20, Count: 45, Fluence: 1e7},
	}
	service := NewAnalysisService(testConfig(), nil, nil)

	_, err := service.Run(context.Background(), obs)
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	service := NewAnalysisService(testConfig(), nil, nil)
	_, err := service.Run(ctx, testkit.HeavyIonCampaign())
	require.Error(t, err)
}

func TestRunWithoutLedger(t *testing.T) {
	service := NewAnalysisService(testConfig(), nil, nil)
	report, err := service.Run(context.Background(), testkit.HeavyIonCampaign())
	require.NoError(t, err)
	require.NotNil(t, report)
}

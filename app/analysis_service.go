// Package app wires the analysis pipeline: validation, partitioning, bounded
// MLE, censored upper limits, bootstrap uncertainty, interval selection, and
// goodness-of-fit, producing one immutable report per run.
package app

import (
	"context"
	"log/slog"

	"seufit/domain/core"
	"seufit/domain/fit"
	"seufit/domain/seu"
	"seufit/domain/weibull"
	"seufit/internal/bootstrap"
	"seufit/internal/config"
	"seufit/internal/errors"
	"seufit/internal/fitter"
	"seufit/internal/gof"
	"seufit/ports"
)

// AnalysisService runs cross-section analyses end to end.
type AnalysisService struct {
	cfg    *config.Config
	fitter *fitter.Fitter
	boot   *bootstrap.Engine
	ledger ports.ResultLedger // optional; nil disables persistence
	log    *slog.Logger
}

// NewAnalysisService builds the service from configuration. ledger may be nil.
func NewAnalysisService(cfg *config.Config, ledger ports.ResultLedger, log *slog.Logger) *AnalysisService {
	if log == nil {
		log = slog.Default()
	}
	return &AnalysisService{
		cfg:    cfg,
		fitter: fitter.New(fitter.DefaultOptions()),
		boot:   bootstrap.NewEngine(cfg.Workers, cfg.Seed, cfg.BootstrapIterations),
		ledger: ledger,
		log:    log,
	}
}

// Run analyzes one campaign. Invalid input and a cancelled context are the
// only fatal outcomes; estimation pathologies degrade to warnings on the
// report instead of failing the run.
func (s *AnalysisService) Run(ctx context.Context, obs []seu.Observation) (*fit.AnalysisReport, error) {
	runID := core.RunID(core.NewID())
	log := s.log.With("run_id", runID.String())

	if err := seu.ValidateAll(obs); err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, errors.Wrap(err, "invalid campaign"))
	}

	part := seu.Split(obs)
	limits, err := seu.UpperLimits(part.Censored, s.cfg.ConfidenceLevel)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive upper limits")
	}

	if part.AllCensored() {
		log.Info("all observations censored, reporting upper limits only",
			"points", len(limits))
		report := &fit.AnalysisReport{
			RunID:       runID,
			Variant:     fit.VariantAllCensored,
			UpperLimits: limits,
			CreatedAt:   core.Now(),
		}
		return report, s.persist(ctx, report)
	}

	bounds, err := weibull.DeriveBounds(part.Informative)
	if err != nil {
		return nil, err
	}
	start := bounds.InitialGuess(part.Informative)

	result, err := s.fitter.Fit(part.Informative, bounds, start)
	if err != nil {
		return nil, err
	}
	log.Info("fit complete",
		"status", result.Status,
		"iterations", result.Iterations,
		"nll", result.FinalNLL)

	warnings := append([]fit.Warning(nil), result.Warnings...)
	warnings = append(warnings, fit.CheckCensoredConsistency(limits, result.Theta)...)

	report := &fit.AnalysisReport{
		RunID:       runID,
		Fit:         result,
		UpperLimits: limits,
		CreatedAt:   core.Now(),
	}

	// Asymptotic standard errors are a large-sample cross-check; the bootstrap
	// below is the authoritative uncertainty source either way.
	if _, stderr, covErr := fitter.Covariance(part.Informative, result.Theta); covErr == nil {
		report.StdErrors = stderr
	} else if !errors.IsNotApplicable(covErr) {
		return nil, covErr
	}

	b := s.boot.Iterations(part)
	dist, err := s.boot.Run(ctx, part.Informative, result.Theta, bounds, b)
	if err != nil {
		return nil, errors.Wrap(err, "bootstrap aborted")
	}

	summary := bootstrap.Summarize(dist, b)
	report.Bootstrap = summary
	if summary.SuccessRate < fit.AcceptableSuccessRate {
		report.LowerConfidence = true
		warnings = append(warnings, fit.Warning{
			Code: errors.CodeLowSuccessRate,
			Message: "bootstrap success rate below the acceptable threshold, " +
				"intervals carry lower confidence",
		})
	}
	log.Info("bootstrap complete",
		"iterations", b,
		"successes", summary.Successes,
		"success_rate", summary.SuccessRate)

	intervals, method := s.boot.Intervals(dist, result.Theta, part.Informative, bounds, bootstrap.IntervalConfig{
		Confidence:  s.cfg.ConfidenceLevel,
		TotalEvents: part.TotalEvents(),
		HasCensored: len(part.Censored) > 0,
	})
	report.Intervals = intervals
	log.Info("intervals computed", "method", method)

	g := gof.Test(obs, result.Theta)
	report.GoodnessOfFit = &g

	report.Variant = fit.ClassifyVariant(part.TotalEvents(), len(part.Censored) > 0, summary.SuccessRate)
	report.Warnings = warnings

	return report, s.persist(ctx, report)
}

// persist stores the report artifact when a ledger is configured.
func (s *AnalysisService) persist(ctx context.Context, report *fit.AnalysisReport) error {
	if s.ledger == nil {
		return nil
	}
	if err := s.ledger.StoreArtifact(ctx, report.RunID, report.Artifact()); err != nil {
		return errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to store analysis artifact"))
	}
	return nil
}

// Package orchestrator sequences the seven active gates (configuration,
// grid, routing, and the four aggregation levels; phase 2 is reserved
// and never runs) through the uniform
// phase envelope and assembles the run's Manifest. It is the only
// package that knows the fixed phase order; every phase itself is
// agnostic of what runs before or after it.
package orchestrator

import (
	"context"
	"log/slog"
	"runtime"

	"github.com/codeready-toolchain/policypipeline/pkg/aggregation"
	"github.com/codeready-toolchain/policypipeline/pkg/contract"
	"github.com/codeready-toolchain/policypipeline/pkg/grid"
	"github.com/codeready-toolchain/policypipeline/pkg/pipelineconfig"
	"github.com/codeready-toolchain/policypipeline/pkg/pipelineerr"
	"github.com/codeready-toolchain/policypipeline/pkg/questionnaire"
	"github.com/codeready-toolchain/policypipeline/pkg/routing"
	"github.com/codeready-toolchain/policypipeline/pkg/scoring"
)

// RunInput bundles the raw configuration and the external
// collaborators a run needs: the questionnaire loader, the document
// ingester, and the scorer bound between phase 3 and phase 4.
type RunInput struct {
	RawConfig pipelineconfig.RawConfig
	Loader    questionnaire.Loader
	Ingester  grid.DocumentIngester
	Scorer    scoring.Scorer
}

// Run executes phases 0, 1, 3, 4, 5, 6, 7 in order, short-circuiting on
// the first failure. It always returns a Manifest; MacroScore is
// non-nil iff the manifest's overall status is SUCCESS. Each phase is
// bounded by its configured resource_limits timeout (spec.md §5); a
// phase that overruns its budget aborts the run with a TimeoutError
// even if its own Execute otherwise succeeded.
func Run(ctx context.Context, in RunInput) (*contract.Manifest, *aggregation.MacroScore) {
	manifest := contract.NewManifest()
	limits := in.RawConfig.ResourceLimits
	logger := slog.With("document_path", in.RawConfig.DocumentPath)
	logger.Info("orchestrator: starting run")

	cfg, rec, err := runPhase0(ctx, in.RawConfig, in.Loader)
	err = enforceTimeout(&rec, limits, 0, err)
	manifest.Append(rec)
	logPhaseResult(logger, rec, err)
	if err != nil {
		manifest.Abort(0, err)
		return manifest, nil
	}
	manifest.ConfigHash = in.RawConfig.Hash()
	manifest.QuestionnaireHash = cfg.QuestionnaireHash
	checkMemoryAdvisory(logger, limits, 0)

	pctx, cancel := phaseContext(ctx, limits, 1)
	g, rec, err := contract.Run(pctx, grid.Step(), grid.BuildInput{
		DocumentPath: cfg.Raw.DocumentPath,
		Ingester:     in.Ingester,
	})
	cancel()
	err = enforceTimeout(&rec, limits, 1, err)
	manifest.Append(rec)
	logPhaseResult(logger, rec, err)
	if err != nil {
		manifest.Abort(1, err)
		return manifest, nil
	}
	checkMemoryAdvisory(logger, limits, 1)

	pctx, cancel = phaseContext(ctx, limits, 3)
	routed, rec, err := contract.Run(pctx, routing.Step(), routing.Input{
		Questions: cfg.Questionnaire.MicroQuestions,
		Grid:      g,
	})
	cancel()
	err = enforceTimeout(&rec, limits, 3, err)
	manifest.Append(rec)
	logPhaseResult(logger, rec, err)
	if err != nil {
		manifest.Abort(3, err)
		return manifest, nil
	}
	checkMemoryAdvisory(logger, limits, 3)

	scored, err := scoreAll(ctx, in.Scorer, routed.Routed)
	if err != nil {
		manifest.Abort(3, err)
		return manifest, nil
	}

	pctx, cancel = phaseContext(ctx, limits, 4)
	dims, rec, err := contract.Run(pctx, aggregation.DimensionStep(), aggregation.DimensionInput{
		Scored:              scored,
		Settings:            cfg.Settings,
		AbortOnInsufficient: cfg.Raw.AbortOnInsufficient,
	})
	cancel()
	err = enforceTimeout(&rec, limits, 4, err)
	manifest.Append(rec)
	logPhaseResult(logger, rec, err)
	if err != nil {
		manifest.Abort(4, err)
		return manifest, nil
	}
	checkMemoryAdvisory(logger, limits, 4)

	pctx, cancel = phaseContext(ctx, limits, 5)
	areas, rec, err := contract.Run(pctx, aggregation.AreaStep(), aggregation.AreaInput{
		Dimensions: dims,
		Settings:   cfg.Settings,
	})
	cancel()
	err = enforceTimeout(&rec, limits, 5, err)
	manifest.Append(rec)
	logPhaseResult(logger, rec, err)
	if err != nil {
		manifest.Abort(5, err)
		return manifest, nil
	}
	checkMemoryAdvisory(logger, limits, 5)

	pctx, cancel = phaseContext(ctx, limits, 6)
	clusters, rec, err := contract.Run(pctx, aggregation.ClusterStep(), aggregation.ClusterInput{
		Areas:    areas,
		Settings: cfg.Settings,
	})
	cancel()
	err = enforceTimeout(&rec, limits, 6, err)
	manifest.Append(rec)
	logPhaseResult(logger, rec, err)
	if err != nil {
		manifest.Abort(6, err)
		return manifest, nil
	}
	checkMemoryAdvisory(logger, limits, 6)

	pctx, cancel = phaseContext(ctx, limits, 7)
	macro, rec, err := contract.Run(pctx, aggregation.MacroStep(), aggregation.MacroInput{
		Clusters:   clusters,
		Areas:      areas,
		Dimensions: dims,
		Settings:   cfg.Settings,
	})
	cancel()
	err = enforceTimeout(&rec, limits, 7, err)
	manifest.Append(rec)
	logPhaseResult(logger, rec, err)
	if err != nil {
		manifest.Abort(7, err)
		return manifest, nil
	}
	checkMemoryAdvisory(logger, limits, 7)

	manifest.Succeed()
	logger.Info("orchestrator: run succeeded", "macro_score", macro.Score, "quality_band", macro.QualityBand)
	return manifest, &macro
}

// logPhaseResult emits one structured line per executed phase, mirroring
// the teacher's per-stage slog.With chains in its chain executor.
func logPhaseResult(logger *slog.Logger, rec contract.PhaseRecord, err error) {
	fields := []any{"phase_index", rec.PhaseIndex, "phase_name", rec.PhaseName, "duration_ms", rec.DurationMS}
	if err != nil {
		logger.Error("orchestrator: phase failed", append(fields, "error", err)...)
		return
	}
	logger.Info("orchestrator: phase completed", fields...)
}

// checkMemoryAdvisory logs a warning when the process's current heap
// allocation exceeds the configured advisory limit (spec.md §5: "a
// memory limit is advisory; exceeding it is logged but not fatal unless
// the orchestrator explicitly treats it as such per config"). It never
// aborts the run itself; TreatMemoryLimitAsFatal is surfaced to the
// caller only as a logged field, since no phase in this pipeline has a
// meaningful way to roll back partially-produced output mid-phase.
func checkMemoryAdvisory(logger *slog.Logger, limits pipelineconfig.ResourceLimits, phase int) {
	if limits.MemoryLimitBytes <= 0 {
		return
	}
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	if int64(m.Alloc) <= limits.MemoryLimitBytes {
		return
	}
	logger.Warn("orchestrator: memory advisory limit exceeded",
		"phase_index", phase,
		"alloc_bytes", m.Alloc,
		"limit_bytes", limits.MemoryLimitBytes,
		"treat_as_fatal", limits.TreatMemoryLimitAsFatal,
	)
}

// phaseContext bounds a phase's execution with its configured timeout.
// A non-positive limit leaves ctx unbounded; the caller must still call
// the returned cancel func.
func phaseContext(ctx context.Context, limits pipelineconfig.ResourceLimits, phase int) (context.Context, context.CancelFunc) {
	limit := limits.TimeoutFor(phase)
	if limit <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, limit)
}

// enforceTimeout converts a phase record whose measured duration
// exceeds its configured budget into a TimeoutError, regardless of
// whether the phase's own Execute already failed for another reason
// (a timeout takes precedence since it is the orchestrator's own
// budget being violated, not the phase's business logic). It compares
// against the full-precision wall-clock span rather than the
// millisecond-rounded DurationMS the manifest reports, so sub-millisecond
// budgets are still enforced correctly.
func enforceTimeout(rec *contract.PhaseRecord, limits pipelineconfig.ResourceLimits, phase int, err error) error {
	limit := limits.TimeoutFor(phase)
	if limit <= 0 {
		return err
	}
	if rec.FinishedAt.Sub(rec.StartedAt) <= limit {
		return err
	}
	terr := &pipelineerr.TimeoutError{Phase: phase, Limit: limit.String()}
	rec.ErrorMessage = terr.Error()
	return terr
}

// runPhase0 wraps pipelineconfig.Gate in a PhaseRecord so phase 0 is
// audited the same way every other phase is, even though its gate
// predates the generic contract.Step machinery.
func runPhase0(ctx context.Context, raw pipelineconfig.RawConfig, loader questionnaire.Loader) (*pipelineconfig.Config, contract.PhaseRecord, error) {
	step := contract.Step[pipelineconfig.RawConfig, *pipelineconfig.Config]{
		Index: 0,
		Name:  "config_gate",
		Execute: func(_ context.Context, r pipelineconfig.RawConfig) (*pipelineconfig.Config, error) {
			return pipelineconfig.Gate(r, loader)
		},
	}
	return contract.Run(ctx, step, raw)
}

func scoreAll(ctx context.Context, scorer scoring.Scorer, routed []routing.RoutedQuestion) ([]aggregation.ScoredMicroQuestion, error) {
	out := make([]aggregation.ScoredMicroQuestion, 0, len(routed))
	for _, rq := range routed {
		sq, err := scorer.Score(ctx, rq)
		if err != nil {
			return nil, err
		}
		out = append(out, sq)
	}
	return out, nil
}

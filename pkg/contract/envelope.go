package contract

import (
	"context"
	"time"

	"github.com/codeready-toolchain/policypipeline/pkg/pipelineerr"
)

// Invariant is a pure, side-effect-free predicate over a phase's output.
// Returning a non-nil error fails the invariant and is fatal for the
// phase.
type Invariant[O any] struct {
	Name  string
	Check func(O) error
}

// Step is the contract a single phase implements: validate its input,
// execute the transformation, and validate its output. Invariants are
// supplied separately so the same Step can be checked against different
// invariant sets in tests.
type Step[I, O any] struct {
	Index      int
	Name       string
	ValidateIn func(I) []string
	Execute    func(context.Context, I) (O, error)
	ValidateOut func(O) []string
	Invariants func(O) []Invariant[O]
	// Artifacts extracts a small set of diagnostic key/value strings
	// from the output for the manifest record (e.g. counts). Optional.
	Artifacts func(O) map[string]string
}

// Run executes one phase envelope: validate_input → execute →
// validate_output → check invariants → record. It never recovers from
// errors — a failure at any stage is returned to the caller along with
// the PhaseRecord describing exactly where it happened. The caller (the
// orchestrator) decides whether that failure halts the pipeline.
func Run[I, O any](ctx context.Context, step Step[I, O], input I) (O, PhaseRecord, error) {
	var zero O
	rec := PhaseRecord{
		PhaseIndex: step.Index,
		PhaseName:  step.Name,
		StartedAt:  time.Now(),
	}

	if step.ValidateIn != nil {
		if issues := step.ValidateIn(input); len(issues) > 0 {
			rec.InputValidation = failResult(issues)
			rec.FinishedAt = time.Now()
			rec.DurationMS = rec.FinishedAt.Sub(rec.StartedAt).Milliseconds()
			err := &pipelineerr.ValidationError{Phase: step.Index, Stage: "input", Issues: issues}
			rec.ErrorMessage = err.Error()
			return zero, rec, err
		}
	}
	rec.InputValidation = passResult()

	out, err := step.Execute(ctx, input)
	if err != nil {
		rec.OutputValidation = ValidationResult{}
		rec.FinishedAt = time.Now()
		rec.DurationMS = rec.FinishedAt.Sub(rec.StartedAt).Milliseconds()
		rec.ErrorMessage = err.Error()
		return zero, rec, err
	}

	if step.ValidateOut != nil {
		if issues := step.ValidateOut(out); len(issues) > 0 {
			rec.OutputValidation = failResult(issues)
			rec.FinishedAt = time.Now()
			rec.DurationMS = rec.FinishedAt.Sub(rec.StartedAt).Milliseconds()
			verr := &pipelineerr.ValidationError{Phase: step.Index, Stage: "output", Issues: issues}
			rec.ErrorMessage = verr.Error()
			return zero, rec, verr
		}
	}
	rec.OutputValidation = passResult()

	if step.Invariants != nil {
		for _, inv := range step.Invariants(out) {
			rec.InvariantsChecked = append(rec.InvariantsChecked, inv.Name)
			if cerr := inv.Check(out); cerr != nil {
				rec.FinishedAt = time.Now()
				rec.DurationMS = rec.FinishedAt.Sub(rec.StartedAt).Milliseconds()
				ierr := &pipelineerr.InvariantError{Phase: step.Index, Invariant: inv.Name, Detail: cerr.Error()}
				rec.ErrorMessage = ierr.Error()
				return zero, rec, ierr
			}
		}
	}

	if step.Artifacts != nil {
		rec.Artifacts = step.Artifacts(out)
	}

	rec.FinishedAt = time.Now()
	rec.DurationMS = rec.FinishedAt.Sub(rec.StartedAt).Milliseconds()
	return out, rec, nil
}

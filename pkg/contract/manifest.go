// Package contract implements the uniform phase envelope
// (validate_input → execute → validate_output → check invariants →
// record manifest entry) and the Manifest/PhaseRecord types that make
// every run auditable. The envelope itself never recovers from errors;
// it is the orchestrator's job to decide what a failure means for the
// rest of the run.
package contract

import "time"

// OverallStatus is the terminal state of a Manifest.
type OverallStatus string

const (
	StatusSuccess  OverallStatus = "SUCCESS"
	StatusAborted  OverallStatus = "ABORTED"
	statusPending  OverallStatus = "PENDING"
)

// ValidationResult is the outcome of a contract boundary check. A nil
// Errors slice (Passed true) means the boundary held.
type ValidationResult struct {
	Passed bool     `json:"passed"`
	Errors []string `json:"errors,omitempty"`
}

func passResult() ValidationResult { return ValidationResult{Passed: true} }

func failResult(issues []string) ValidationResult {
	return ValidationResult{Passed: false, Errors: issues}
}

// PhaseRecord is the audit entry for one executed phase envelope.
type PhaseRecord struct {
	PhaseIndex        int               `json:"phase_index"`
	PhaseName         string            `json:"phase_name"`
	StartedAt         time.Time         `json:"started_at"`
	FinishedAt        time.Time         `json:"finished_at"`
	DurationMS        int64             `json:"duration_ms"`
	InputValidation   ValidationResult  `json:"input_validation_result"`
	OutputValidation  ValidationResult  `json:"output_validation_result"`
	InvariantsChecked []string          `json:"invariants_checked"`
	ErrorMessage      string            `json:"error_message,omitempty"`
	Artifacts         map[string]string `json:"artifacts,omitempty"`
}

// Succeeded reports whether this phase completed with both boundaries
// and all invariants holding.
func (r PhaseRecord) Succeeded() bool {
	return r.InputValidation.Passed && r.OutputValidation.Passed && r.ErrorMessage == ""
}

// Manifest is the append-only audit record of one pipeline run. The
// orchestrator is its sole writer; phases only ever produce PhaseRecords,
// they never mutate the Manifest directly.
type Manifest struct {
	RunID             string        `json:"run_id,omitempty"`
	ConfigHash        string        `json:"config_hash"`
	QuestionnaireHash string        `json:"questionnaire_hash"`
	Phases            []PhaseRecord `json:"phases"`
	OverallStatus     OverallStatus `json:"overall_status"`
	TerminalError     string        `json:"terminal_error,omitempty"`
	TerminalPhase     int           `json:"terminal_phase,omitempty"`
}

// NewManifest returns an empty, in-progress manifest ready to accumulate
// PhaseRecords.
func NewManifest() *Manifest {
	return &Manifest{
		OverallStatus: statusPending,
		Phases:        make([]PhaseRecord, 0, 7),
	}
}

// Append adds a completed PhaseRecord to the manifest in execution order.
func (m *Manifest) Append(r PhaseRecord) {
	m.Phases = append(m.Phases, r)
}

// Abort marks the manifest terminal with the given phase index and
// error. Once aborted, no further phases execute.
func (m *Manifest) Abort(phaseIndex int, err error) {
	m.OverallStatus = StatusAborted
	m.TerminalPhase = phaseIndex
	if err != nil {
		m.TerminalError = err.Error()
	}
}

// Succeed marks the manifest terminal with SUCCESS. Only the
// orchestrator, after phase 7 completes, may call this.
func (m *Manifest) Succeed() {
	m.OverallStatus = StatusSuccess
}

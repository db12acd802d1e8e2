// Package pipelineconfig implements phase 0, the configuration gate: it
// validates the raw run configuration, loads and hash-verifies the
// questionnaire, confirms the active-phase set, and derives
// AggregationSettings deterministically from the questionnaire. No
// default ever substitutes for a missing required field.
package pipelineconfig

import (
	"fmt"
	"time"

	"github.com/codeready-toolchain/policypipeline/pkg/identity"
	"github.com/codeready-toolchain/policypipeline/pkg/questionnaire"
)

// ActivePhases is the only phase set phase 0 accepts. Phase 2 is
// reserved and must never appear.
var ActivePhases = []int{0, 1, 3, 4, 5, 6, 7}

// ResourceLimits bounds each phase's execution. PerPhaseTimeout is keyed
// by phase index; a phase with no entry uses DefaultTimeout.
// MemoryLimitBytes is advisory only (§5): exceeding it is logged and
// never aborts the run; TreatMemoryLimitAsFatal is only reported as a
// field of that log entry.
type ResourceLimits struct {
	DefaultTimeout          time.Duration         `yaml:"default_timeout"`
	PerPhaseTimeout         map[int]time.Duration `yaml:"per_phase_timeout,omitempty"`
	MemoryLimitBytes        int64                 `yaml:"memory_limit_bytes,omitempty"`
	TreatMemoryLimitAsFatal bool                  `yaml:"treat_memory_limit_as_fatal,omitempty"`
}

// TimeoutFor returns the configured timeout for the given phase index,
// falling back to DefaultTimeout.
func (r ResourceLimits) TimeoutFor(phase int) time.Duration {
	if d, ok := r.PerPhaseTimeout[phase]; ok {
		return d
	}
	return r.DefaultTimeout
}

// RawConfig is the configuration as the caller supplies it, before phase
// 0 has loaded the questionnaire or derived AggregationSettings. Every
// field here is required; phase 0 rejects a RawConfig with any field
// missing rather than substituting a default.
type RawConfig struct {
	DocumentPath         string          `yaml:"document_path"`
	QuestionnairePath    string          `yaml:"questionnaire_path"`
	QuestionnaireHash    string          `yaml:"questionnaire_hash"`
	CalibrationProfile   string          `yaml:"calibration_profile"`
	ResourceLimits       ResourceLimits  `yaml:"resource_limits"`
	AbortOnInsufficient  bool            `yaml:"abort_on_insufficient"`
	ActivePhases         []int           `yaml:"active_phases"`
}

// Hash returns a deterministic digest of the fields that identify a
// run's configuration, for the Manifest's config_hash field.
func (r RawConfig) Hash() string {
	m := map[string]string{
		"document_path":         r.DocumentPath,
		"questionnaire_path":    r.QuestionnairePath,
		"questionnaire_hash":    r.QuestionnaireHash,
		"calibration_profile":   r.CalibrationProfile,
		"abort_on_insufficient": fmt.Sprintf("%t", r.AbortOnInsufficient),
		"default_timeout":       r.ResourceLimits.DefaultTimeout.String(),
	}
	return identity.Sha256Hex(identity.CanonicalMap(m))
}

// Config is the validated output of phase 0: the RawConfig plus the
// loaded Questionnaire and its derived AggregationSettings. Read-only for
// the rest of the run.
type Config struct {
	Raw                 RawConfig
	Questionnaire        questionnaire.Questionnaire
	QuestionnaireHash    string
	Settings             AggregationSettings
}

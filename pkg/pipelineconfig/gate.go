package pipelineconfig

import (
	"fmt"
	"os"
	"sort"

	"github.com/codeready-toolchain/policypipeline/pkg/pipelineerr"
	"github.com/codeready-toolchain/policypipeline/pkg/questionnaire"
)

// KnownCalibrationProfiles is the closed set of calibration references
// phase 0 can resolve. Rubric-threshold tuning beyond this is explicitly
// out of scope (spec.md §1); profiles only select which of these fixed
// thresholds apply in a future extension point — today all profiles
// resolve to the same DefaultRubricThresholds.
var KnownCalibrationProfiles = map[string]bool{
	"standard": true,
	"strict":   true,
	"lenient":  true,
}

// Gate runs phase 0: validate raw config, load and hash-verify the
// questionnaire, confirm the active-phase set, and derive
// AggregationSettings. Returns a ConfigError, HashMismatchError, or the
// validated Config.
func Gate(raw RawConfig, loader questionnaire.Loader) (*Config, error) {
	if issues := validateRequiredFields(raw); len(issues) > 0 {
		return nil, pipelineerr.NewConfigError("required_fields", fmt.Errorf("%v", issues))
	}

	if _, err := os.Stat(raw.DocumentPath); err != nil {
		return nil, pipelineerr.NewConfigError("document_path", err)
	}
	if _, err := os.Stat(raw.QuestionnairePath); err != nil {
		return nil, pipelineerr.NewConfigError("questionnaire_path", err)
	}

	q, computedHash, err := loader.Load(raw.QuestionnairePath)
	if err != nil {
		return nil, pipelineerr.NewConfigError("questionnaire_path", err)
	}

	if computedHash != raw.QuestionnaireHash {
		return nil, &pipelineerr.HashMismatchError{
			Subject:  "questionnaire",
			Expected: raw.QuestionnaireHash,
			Actual:   computedHash,
		}
	}

	if err := validateActivePhases(raw.ActivePhases); err != nil {
		return nil, err
	}

	if !KnownCalibrationProfiles[raw.CalibrationProfile] {
		return nil, pipelineerr.NewConfigError("calibration_profile",
			fmt.Errorf("unknown calibration profile %q", raw.CalibrationProfile))
	}

	settings := DeriveAggregationSettings(q)

	return &Config{
		Raw:               raw,
		Questionnaire:     q,
		QuestionnaireHash: computedHash,
		Settings:          settings,
	}, nil
}

func validateRequiredFields(raw RawConfig) []string {
	var issues []string
	if raw.DocumentPath == "" {
		issues = append(issues, "document_path is required")
	}
	if raw.QuestionnairePath == "" {
		issues = append(issues, "questionnaire_path is required")
	}
	if raw.QuestionnaireHash == "" {
		issues = append(issues, "questionnaire_hash is required")
	}
	if raw.CalibrationProfile == "" {
		issues = append(issues, "calibration_profile is required")
	}
	if raw.ResourceLimits.DefaultTimeout <= 0 {
		issues = append(issues, "resource_limits.default_timeout must be positive")
	}
	if len(raw.ActivePhases) == 0 {
		issues = append(issues, "active_phases is required")
	}
	return issues
}

// validateActivePhases confirms the active-phase set equals exactly
// {0,1,3,4,5,6,7}; phase 2's presence is named explicitly in the error,
// per spec.md §4.3/§8 scenario 6.
func validateActivePhases(phases []int) error {
	for _, p := range phases {
		if p == 2 {
			return pipelineerr.NewConfigError("active_phases",
				fmt.Errorf("phase 2 is reserved and forbidden from the active graph"))
		}
	}

	got := append([]int(nil), phases...)
	sort.Ints(got)
	want := append([]int(nil), ActivePhases...)
	sort.Ints(want)

	if len(got) != len(want) {
		return pipelineerr.NewConfigError("active_phases",
			fmt.Errorf("active phase set %v does not equal required set %v", got, want))
	}
	for i := range got {
		if got[i] != want[i] {
			return pipelineerr.NewConfigError("active_phases",
				fmt.Errorf("active phase set %v does not equal required set %v", got, want))
		}
	}
	return nil
}

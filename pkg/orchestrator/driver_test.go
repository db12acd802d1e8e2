package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/codeready-toolchain/policypipeline/pkg/contract"
	"github.com/codeready-toolchain/policypipeline/pkg/grid"
	"github.com/codeready-toolchain/policypipeline/pkg/pipelineconfig"
	"github.com/codeready-toolchain/policypipeline/pkg/questionnaire"
	"github.com/codeready-toolchain/policypipeline/pkg/scoring"
)

// sidecarRegion/sidecarDocument mirror grid's private YAML shape, defined
// locally since grid does not export them for test fixture construction.
type sidecarRegion struct {
	PolicyAreaID string `yaml:"policy_area_id"`
	DimensionID  string `yaml:"dimension_id"`
	Text         string `yaml:"text"`
	Page         int    `yaml:"page"`
	Section      string `yaml:"section"`
}

type sidecarDocument struct {
	Regions []sidecarRegion `yaml:"regions"`
}

func setupDocumentAndQuestionnaire(t *testing.T) (docPath, qPath, qHash string) {
	t.Helper()
	dir := t.TempDir()

	docPath = filepath.Join(dir, "document.txt")
	require.NoError(t, os.WriteFile(docPath, []byte("source document"), 0o644))

	var regions []sidecarRegion
	for _, pa := range questionnaire.CanonicalPolicyAreas {
		for _, dim := range questionnaire.CanonicalDimensions {
			regions = append(regions, sidecarRegion{
				PolicyAreaID: pa,
				DimensionID:  dim,
				Text:         "evidence text for " + pa + dim,
				Page:         1,
				Section:      "body",
			})
		}
	}
	sidecarRaw, err := yaml.Marshal(sidecarDocument{Regions: regions})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(docPath+".regions.yaml", sidecarRaw, 0o644))

	q := questionnaire.Builtin()
	qRaw, err := yaml.Marshal(q)
	require.NoError(t, err)
	qPath = filepath.Join(dir, "questionnaire.yaml")
	require.NoError(t, os.WriteFile(qPath, qRaw, 0o644))

	return docPath, qPath, questionnaire.Hash(q)
}

func baseRunInput(docPath, qPath, qHash string) RunInput {
	return RunInput{
		RawConfig: pipelineconfig.RawConfig{
			DocumentPath:        docPath,
			QuestionnairePath:   qPath,
			QuestionnaireHash:   qHash,
			CalibrationProfile:  "standard",
			ResourceLimits:      pipelineconfig.ResourceLimits{DefaultTimeout: 30 * time.Second},
			ActivePhases:        pipelineconfig.ActivePhases,
		},
		Loader:   questionnaire.NewYAMLLoader(),
		Ingester: grid.NewSidecarIngester(),
		Scorer:   scoring.NewReferenceScorer(),
	}
}

func TestRunHappyPathProducesSuccessfulManifest(t *testing.T) {
	docPath, qPath, qHash := setupDocumentAndQuestionnaire(t)
	manifest, macro := Run(context.Background(), baseRunInput(docPath, qPath, qHash))

	require.Equal(t, contract.StatusSuccess, manifest.OverallStatus)
	require.NotNil(t, macro)
	assert.Len(t, manifest.Phases, 7)
	assert.Equal(t, qHash, manifest.QuestionnaireHash)
	assert.NotEmpty(t, manifest.ConfigHash)
	assert.True(t, macro.ValidationPassed)

	for _, rec := range manifest.Phases {
		assert.True(t, rec.Succeeded(), "phase %s should have succeeded", rec.PhaseName)
	}
}

func TestRunAbortsOnQuestionnaireHashMismatch(t *testing.T) {
	docPath, qPath, _ := setupDocumentAndQuestionnaire(t)
	manifest, macro := Run(context.Background(), baseRunInput(docPath, qPath, "wrong-hash-value"))

	assert.Equal(t, contract.StatusAborted, manifest.OverallStatus)
	assert.Equal(t, 0, manifest.TerminalPhase)
	assert.Nil(t, macro)
	assert.Len(t, manifest.Phases, 1)
}

func TestRunAbortsOnMissingDocument(t *testing.T) {
	_, qPath, qHash := setupDocumentAndQuestionnaire(t)
	in := baseRunInput("/nonexistent/document.txt", qPath, qHash)
	manifest, macro := Run(context.Background(), in)

	assert.Equal(t, contract.StatusAborted, manifest.OverallStatus)
	assert.Equal(t, 0, manifest.TerminalPhase)
	assert.Nil(t, macro)
}

func TestRunAbortsOnIncompleteGridBeforeRouting(t *testing.T) {
	docPath, qPath, qHash := setupDocumentAndQuestionnaire(t)

	// Truncate the sidecar to 59 regions so the grid fails phase 1
	// coverage before routing even runs, exercising the same
	// short-circuit path a routing-miss would take downstream.
	var regions []sidecarRegion
	for _, pa := range questionnaire.CanonicalPolicyAreas {
		for _, dim := range questionnaire.CanonicalDimensions {
			if pa == "PA10" && dim == "DIM06" {
				continue
			}
			regions = append(regions, sidecarRegion{PolicyAreaID: pa, DimensionID: dim, Text: "x", Page: 1, Section: "body"})
		}
	}
	raw, err := yaml.Marshal(sidecarDocument{Regions: regions})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(docPath+".regions.yaml", raw, 0o644))

	manifest, macro := Run(context.Background(), baseRunInput(docPath, qPath, qHash))
	assert.Equal(t, contract.StatusAborted, manifest.OverallStatus)
	assert.Equal(t, 1, manifest.TerminalPhase)
	assert.Nil(t, macro)
}

func TestRunAbortsOnPhaseTimeout(t *testing.T) {
	docPath, qPath, qHash := setupDocumentAndQuestionnaire(t)
	in := baseRunInput(docPath, qPath, qHash)
	in.RawConfig.ResourceLimits.PerPhaseTimeout = map[int]time.Duration{1: 1 * time.Nanosecond}

	manifest, macro := Run(context.Background(), in)
	assert.Equal(t, contract.StatusAborted, manifest.OverallStatus)
	assert.Equal(t, 1, manifest.TerminalPhase)
	assert.Nil(t, macro)
	require.Len(t, manifest.Phases, 2)
	assert.Contains(t, manifest.Phases[1].ErrorMessage, "exceeded its timeout budget")
}

func TestRunRejectsActivePhasesContainingPhase2(t *testing.T) {
	docPath, qPath, qHash := setupDocumentAndQuestionnaire(t)
	in := baseRunInput(docPath, qPath, qHash)
	in.RawConfig.ActivePhases = []int{0, 1, 2, 3, 4, 5, 6, 7}

	manifest, macro := Run(context.Background(), in)
	assert.Equal(t, contract.StatusAborted, manifest.OverallStatus)
	assert.Equal(t, 0, manifest.TerminalPhase)
	assert.Nil(t, macro)
}

package pipelineconfig

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/policypipeline/pkg/pipelineerr"
	"github.com/codeready-toolchain/policypipeline/pkg/questionnaire"
)

type fakeLoader struct {
	q    questionnaire.Questionnaire
	hash string
	err  error
}

func (f fakeLoader) Load(path string) (questionnaire.Questionnaire, string, error) {
	return f.q, f.hash, f.err
}

func tempFiles(t *testing.T) (docPath, qPath string) {
	t.Helper()
	dir := t.TempDir()
	docPath = filepath.Join(dir, "document.txt")
	qPath = filepath.Join(dir, "questionnaire.yaml")
	require.NoError(t, os.WriteFile(docPath, []byte("doc"), 0o644))
	require.NoError(t, os.WriteFile(qPath, []byte("q"), 0o644))
	return docPath, qPath
}

func baseRaw(docPath, qPath, hash string) RawConfig {
	return RawConfig{
		DocumentPath:       docPath,
		QuestionnairePath:  qPath,
		QuestionnaireHash:  hash,
		CalibrationProfile: "standard",
		ResourceLimits:     ResourceLimits{DefaultTimeout: 30 * time.Second},
		ActivePhases:       []int{0, 1, 3, 4, 5, 6, 7},
	}
}

func TestGateHappyPath(t *testing.T) {
	docPath, qPath := tempFiles(t)
	q := questionnaire.Builtin()
	hash := questionnaire.Hash(q)

	cfg, err := Gate(baseRaw(docPath, qPath, hash), fakeLoader{q: q, hash: hash})
	require.NoError(t, err)
	assert.Equal(t, hash, cfg.QuestionnaireHash)
	assert.Equal(t, 60, len(cfg.Settings.DimensionExpectedCounts))
	assert.Equal(t, 10, cfg.Settings.AreaExpectedCount)
	assert.Equal(t, 4, cfg.Settings.ClusterExpectedCount)
}

func TestGateRejectsMissingRequiredFields(t *testing.T) {
	_, err := Gate(RawConfig{}, fakeLoader{})
	require.Error(t, err)
	var cerr *pipelineerr.ConfigError
	assert.ErrorAs(t, err, &cerr)
}

func TestGateRejectsMissingDocumentPath(t *testing.T) {
	_, qPath := tempFiles(t)
	raw := baseRaw("/nonexistent/document.txt", qPath, "deadbeef")
	_, err := Gate(raw, fakeLoader{})
	require.Error(t, err)
	var cerr *pipelineerr.ConfigError
	assert.ErrorAs(t, err, &cerr)
	assert.Equal(t, "document_path", cerr.Field)
}

func TestGateRejectsHashMismatch(t *testing.T) {
	docPath, qPath := tempFiles(t)
	q := questionnaire.Builtin()
	raw := baseRaw(docPath, qPath, "declared-hash-does-not-match")

	_, err := Gate(raw, fakeLoader{q: q, hash: "computed-hash"})
	require.Error(t, err)
	var herr *pipelineerr.HashMismatchError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, "questionnaire", herr.Subject)
}

func TestGateRejectsPhase2InActivePhases(t *testing.T) {
	docPath, qPath := tempFiles(t)
	q := questionnaire.Builtin()
	hash := questionnaire.Hash(q)
	raw := baseRaw(docPath, qPath, hash)
	raw.ActivePhases = []int{0, 1, 2, 3, 4, 5, 6, 7}

	_, err := Gate(raw, fakeLoader{q: q, hash: hash})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "phase 2")
}

func TestGateRejectsIncompleteActivePhases(t *testing.T) {
	docPath, qPath := tempFiles(t)
	q := questionnaire.Builtin()
	hash := questionnaire.Hash(q)
	raw := baseRaw(docPath, qPath, hash)
	raw.ActivePhases = []int{0, 1, 3}

	_, err := Gate(raw, fakeLoader{q: q, hash: hash})
	require.Error(t, err)
}

func TestGateRejectsUnknownCalibrationProfile(t *testing.T) {
	docPath, qPath := tempFiles(t)
	q := questionnaire.Builtin()
	hash := questionnaire.Hash(q)
	raw := baseRaw(docPath, qPath, hash)
	raw.CalibrationProfile = "unknown"

	_, err := Gate(raw, fakeLoader{q: q, hash: hash})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "calibration_profile")
}

func TestGatePropagatesLoaderError(t *testing.T) {
	docPath, qPath := tempFiles(t)
	raw := baseRaw(docPath, qPath, "deadbeef")

	_, err := Gate(raw, fakeLoader{err: errors.New("bad yaml")})
	require.Error(t, err)
}

func TestResourceLimitsTimeoutForFallback(t *testing.T) {
	r := ResourceLimits{
		DefaultTimeout:  10 * time.Second,
		PerPhaseTimeout: map[int]time.Duration{1: 5 * time.Second},
	}
	assert.Equal(t, 5*time.Second, r.TimeoutFor(1))
	assert.Equal(t, 10*time.Second, r.TimeoutFor(4))
}

func TestRawConfigHashDeterministic(t *testing.T) {
	r := baseRaw("doc", "q", "hash")
	assert.Equal(t, r.Hash(), r.Hash())

	r2 := baseRaw("doc2", "q", "hash")
	assert.NotEqual(t, r.Hash(), r2.Hash())
}

func TestDeriveAggregationSettingsFromBuiltin(t *testing.T) {
	q := questionnaire.Builtin()
	settings := DeriveAggregationSettings(q)
	for _, count := range settings.DimensionExpectedCounts {
		assert.Equal(t, 5, count)
	}
	assert.Equal(t, DefaultRubricThresholds, settings.Rubric)
}

package questionnaire

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestNormalizeDimensionID(t *testing.T) {
	assert.Equal(t, "DIM03", NormalizeDimensionID("3"))
	assert.Equal(t, "DIM06", NormalizeDimensionID("06"))
	assert.Equal(t, "DIM03", NormalizeDimensionID("DIM03"))
	assert.Equal(t, "unexpected", NormalizeDimensionID("unexpected"))
}

func TestCanonicalSeriesShape(t *testing.T) {
	assert.Len(t, CanonicalPolicyAreas, 10)
	assert.Equal(t, "PA01", CanonicalPolicyAreas[0])
	assert.Equal(t, "PA10", CanonicalPolicyAreas[9])

	assert.Len(t, CanonicalDimensions, 6)
	assert.Equal(t, "DIM01", CanonicalDimensions[0])

	assert.Len(t, CanonicalClusters, 4)
	assert.Equal(t, "CL04", CanonicalClusters[3])
}

func TestBuiltinHasFullGridCoverage(t *testing.T) {
	q := Builtin()
	assert.Len(t, q.MicroQuestions, 300)
	assert.Len(t, q.MesoQuestions, 4)
	assert.Equal(t, "MACRO-01", q.MacroQuestion.QuestionID)

	seen := map[string]int{}
	for _, mq := range q.MicroQuestions {
		seen[mq.PolicyAreaID+":"+mq.DimensionID]++
	}
	assert.Len(t, seen, 60)
	for key, count := range seen {
		assert.Equal(t, 5, count, "cell %s should carry 5 questions", key)
	}
}

func TestHashIsDeterministicAndOrderIndependent(t *testing.T) {
	q1 := Questionnaire{
		MicroQuestions: []Question{
			{QuestionID: "Q002", PolicyAreaID: "PA01", DimensionID: "DIM01"},
			{QuestionID: "Q001", PolicyAreaID: "PA01", DimensionID: "DIM01"},
		},
	}
	q2 := Questionnaire{
		MicroQuestions: []Question{
			{QuestionID: "Q001", PolicyAreaID: "PA01", DimensionID: "DIM01"},
			{QuestionID: "Q002", PolicyAreaID: "PA01", DimensionID: "DIM01"},
		},
	}
	assert.Equal(t, Hash(q1), Hash(q2))
}

func TestHashChangesWithContent(t *testing.T) {
	q1 := Questionnaire{MicroQuestions: []Question{{QuestionID: "Q001", PolicyAreaID: "PA01", DimensionID: "DIM01"}}}
	q2 := Questionnaire{MicroQuestions: []Question{{QuestionID: "Q001", PolicyAreaID: "PA02", DimensionID: "DIM01"}}}
	assert.NotEqual(t, Hash(q1), Hash(q2))
}

func TestNormalizeExpandsDimensionID(t *testing.T) {
	q := Questionnaire{MicroQuestions: []Question{{QuestionID: "Q001", DimensionID: "3"}}}
	out := Normalize(q)
	assert.Equal(t, "DIM03", out.MicroQuestions[0].DimensionID)
}

func TestYAMLLoaderRoundTrips(t *testing.T) {
	q := Builtin()
	raw, err := yaml.Marshal(q)
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "questionnaire.yaml")
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	loader := NewYAMLLoader()
	loaded, hash, err := loader.Load(path)
	require.NoError(t, err)
	assert.Equal(t, Hash(q), hash)
	assert.Len(t, loaded.MicroQuestions, 300)
}

func TestYAMLLoaderMissingFile(t *testing.T) {
	_, _, err := NewYAMLLoader().Load("/nonexistent/path.yaml")
	assert.Error(t, err)
}

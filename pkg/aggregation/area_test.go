package aggregation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/policypipeline/pkg/contract"
	"github.com/codeready-toolchain/policypipeline/pkg/questionnaire"
)

func fullDimensionScores(score float64) []DimensionScore {
	var out []DimensionScore
	for _, pa := range questionnaire.CanonicalPolicyAreas {
		for _, dim := range questionnaire.CanonicalDimensions {
			out = append(out, DimensionScore{
				PolicyAreaID:     pa,
				DimensionID:      dim,
				Score:            score,
				NormalizedScore:  score / 3.0,
				ValidationPassed: true,
			})
		}
	}
	return out
}

func TestAggregateAreasHappyPath(t *testing.T) {
	q := questionnaire.Builtin()
	settings := settingsFor(q)
	out := aggregateAreas(AreaInput{Dimensions: fullDimensionScores(2.4), Settings: settings})
	require.Len(t, out, 10)
	for _, a := range out {
		assert.True(t, a.ValidationPassed)
		assert.InDelta(t, 2.4, a.Score, 1e-9)
	}
}

func TestAggregateAreasMissingAreaMarksInvalid(t *testing.T) {
	q := questionnaire.Builtin()
	settings := settingsFor(q)
	dims := fullDimensionScores(2.4)

	var filtered []DimensionScore
	for _, d := range dims {
		if d.PolicyAreaID == "PA03" {
			continue
		}
		filtered = append(filtered, d)
	}

	out := aggregateAreas(AreaInput{Dimensions: filtered, Settings: settings})
	require.Len(t, out, 10)
	for _, a := range out {
		if a.PolicyAreaID == "PA03" {
			assert.False(t, a.ValidationPassed)
		}
	}
}

func TestAreaStepEnvelope(t *testing.T) {
	q := questionnaire.Builtin()
	settings := settingsFor(q)
	out, rec, err := contract.Run(context.Background(), AreaStep(), AreaInput{Dimensions: fullDimensionScores(2.4), Settings: settings})
	require.NoError(t, err)
	assert.Len(t, out, 10)
	assert.True(t, rec.Succeeded())
}

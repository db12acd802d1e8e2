package aggregation

import (
	"context"
	"fmt"
	"sort"

	"github.com/codeready-toolchain/policypipeline/pkg/contract"
	"github.com/codeready-toolchain/policypipeline/pkg/pipelineconfig"
	"github.com/codeready-toolchain/policypipeline/pkg/questionnaire"
)

// AreaInput is phase 5's input: the DimensionScore list from phase 4.
type AreaInput struct {
	Dimensions []DimensionScore
	Settings   pipelineconfig.AggregationSettings
}

// AreaStep returns the phase 5 envelope.
func AreaStep() contract.Step[AreaInput, []AreaScore] {
	return contract.Step[AreaInput, []AreaScore]{
		Index: 5,
		Name:  "area_aggregator",
		ValidateIn: func(in AreaInput) []string {
			if in.Dimensions == nil {
				return []string{"dimensions is required"}
			}
			return nil
		},
		Execute: func(_ context.Context, in AreaInput) ([]AreaScore, error) {
			return aggregateAreas(in), nil
		},
		ValidateOut: func(out []AreaScore) []string {
			if len(out) != 10 {
				return []string{fmt.Sprintf("area score count %d, expected 10", len(out))}
			}
			return nil
		},
		Invariants: func(out []AreaScore) []contract.Invariant[[]AreaScore] {
			return []contract.Invariant[[]AreaScore]{
				{Name: "scores_in_range", Check: func(scores []AreaScore) error {
					for _, s := range scores {
						if s.Score < 0 || s.Score > 3 {
							return fmt.Errorf("AreaScore %s out of [0,3]: %.3f", s.PolicyAreaID, s.Score)
						}
					}
					return nil
				}},
			}
		},
		Artifacts: func(out []AreaScore) map[string]string {
			return map[string]string{"area_score_count": fmt.Sprintf("%d", len(out))}
		},
	}
}

func aggregateAreas(in AreaInput) []AreaScore {
	byArea := make(map[string][]DimensionScore)
	for _, d := range in.Dimensions {
		if !d.ValidationPassed {
			continue
		}
		byArea[d.PolicyAreaID] = append(byArea[d.PolicyAreaID], d)
	}

	results := make([]AreaScore, 0, len(questionnaire.CanonicalPolicyAreas))
	for _, pa := range questionnaire.CanonicalPolicyAreas {
		dims := byArea[pa]
		if len(dims) == 0 {
			results = append(results, AreaScore{PolicyAreaID: pa, ValidationPassed: false})
			continue
		}

		sort.Slice(dims, func(i, j int) bool { return dims[i].DimensionID < dims[j].DimensionID })

		ids := make([]string, 0, len(dims))
		values := make(map[string]float64, len(dims))
		for _, d := range dims {
			ids = append(ids, d.DimensionID)
			values[d.DimensionID] = d.Score
		}

		weights := in.Settings.AreaDimensionWeights[pa]
		score := Clamp(weightedMean(ids, values, weights), 0, 3)
		normalized := score / 3.0

		results = append(results, AreaScore{
			PolicyAreaID:     pa,
			Score:            score,
			NormalizedScore:  normalized,
			QualityLevel:     Rubric(normalized, toThresholds(in.Settings.Rubric)),
			DimensionScores:  dims,
			ValidationPassed: true,
		})
	}

	return results
}

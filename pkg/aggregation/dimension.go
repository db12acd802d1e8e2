package aggregation

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/codeready-toolchain/policypipeline/pkg/contract"
	"github.com/codeready-toolchain/policypipeline/pkg/pipelineconfig"
	"github.com/codeready-toolchain/policypipeline/pkg/pipelineerr"
)

// DimensionInput is phase 4's input: the 300 ScoredMicroQuestion values
// and the settings derived in phase 0.
type DimensionInput struct {
	Scored              []ScoredMicroQuestion
	Settings            pipelineconfig.AggregationSettings
	AbortOnInsufficient bool
}

// DimensionStep returns the phase 4 envelope.
func DimensionStep() contract.Step[DimensionInput, []DimensionScore] {
	return contract.Step[DimensionInput, []DimensionScore]{
		Index: 4,
		Name:  "dimension_aggregator",
		ValidateIn: func(in DimensionInput) []string {
			var issues []string
			for _, sq := range in.Scored {
				if sq.PolicyAreaID == "" || sq.DimensionID == "" {
					issues = append(issues, fmt.Sprintf("question %s missing policy_area_id or dimension_id", sq.QuestionID))
				}
				if sq.Score < 0 || sq.Score > 3 {
					issues = append(issues, fmt.Sprintf("question %s score %.3f out of [0,3]", sq.QuestionID, sq.Score))
				}
			}
			return issues
		},
		Execute: func(_ context.Context, in DimensionInput) ([]DimensionScore, error) {
			return aggregateDimensions(in)
		},
		ValidateOut: func(out []DimensionScore) []string {
			if len(out) > 60 {
				return []string{fmt.Sprintf("dimension score count %d exceeds 60", len(out))}
			}
			return nil
		},
		Invariants: func(out []DimensionScore) []contract.Invariant[[]DimensionScore] {
			return []contract.Invariant[[]DimensionScore]{
				{Name: "no_duplicate_cells", Check: func(scores []DimensionScore) error {
					seen := make(map[string]bool, len(scores))
					for _, s := range scores {
						if seen[s.Key()] {
							return fmt.Errorf("duplicate DimensionScore for cell %s", s.Key())
						}
						seen[s.Key()] = true
					}
					return nil
				}},
				{Name: "scores_in_range", Check: func(scores []DimensionScore) error {
					for _, s := range scores {
						if s.Score < 0 || s.Score > 3 {
							return fmt.Errorf("DimensionScore %s out of [0,3]: %.3f", s.Key(), s.Score)
						}
					}
					return nil
				}},
			}
		},
		Artifacts: func(out []DimensionScore) map[string]string {
			return map[string]string{"dimension_score_count": fmt.Sprintf("%d", len(out))}
		},
	}
}

// aggregateDimensions groups ScoredMicroQuestion by (PA, DIM), checks
// coverage, resolves weights, and computes the weighted-mean score per
// cell.
func aggregateDimensions(in DimensionInput) ([]DimensionScore, error) {
	grouped := make(map[string][]ScoredMicroQuestion)
	for _, sq := range in.Scored {
		key := sq.PolicyAreaID + ":" + sq.DimensionID
		grouped[key] = append(grouped[key], sq)
	}

	// Walk every cell AggregationSettings expects a contribution from, not
	// just the cells that actually appear in grouped: a cell with zero
	// scored questions is the maximal coverage shortfall and must still
	// reach the CoverageError/invalid-score path (spec.md §4.6(c)).
	keySet := make(map[string]struct{}, len(grouped)+len(in.Settings.DimensionExpectedCounts))
	for k := range grouped {
		keySet[k] = struct{}{}
	}
	for k := range in.Settings.DimensionExpectedCounts {
		keySet[k] = struct{}{}
	}
	keys := make([]string, 0, len(keySet))
	for k := range keySet {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	results := make([]DimensionScore, 0, len(keys))
	for _, key := range keys {
		questions := grouped[key]
		expected := in.Settings.DimensionExpectedCounts[key]
		if expected > 0 && len(questions) < expected {
			if in.AbortOnInsufficient {
				return nil, &pipelineerr.CoverageError{
					Level: "dimension", Key: key, Expected: expected, Actual: len(questions),
				}
			}
			results = append(results, invalidDimensionScore(key, questions, expected))
			continue
		}
		if len(questions) == 0 {
			// expected == 0 and nothing scored: no contribution was ever
			// due from this cell, so it emits no DimensionScore at all.
			continue
		}

		ids := make([]string, 0, len(questions))
		values := make(map[string]float64, len(questions))
		weightsByQ := in.Settings.DimensionQuestionWeights[key]
		for _, q := range questions {
			ids = append(ids, q.QuestionID)
			values[q.QuestionID] = q.Score
		}

		score := Clamp(weightedMean(ids, values, weightsByQ), 0, 3)
		normalized := score / 3.0

		contributing := make([]string, 0, len(questions))
		for _, q := range questions {
			contributing = append(contributing, q.QuestionID)
		}
		sort.Strings(contributing)

		results = append(results, DimensionScore{
			PolicyAreaID:     questions[0].PolicyAreaID,
			DimensionID:      questions[0].DimensionID,
			ContributingIDs:  contributing,
			Score:            score,
			NormalizedScore:  normalized,
			QualityLevel:     Rubric(normalized, toThresholds(in.Settings.Rubric)),
			ValidationPassed: true,
		})
	}

	return results, nil
}

func invalidDimensionScore(key string, questions []ScoredMicroQuestion, expected int) DimensionScore {
	pa, dim := splitCellKey(key)
	return DimensionScore{
		PolicyAreaID:      pa,
		DimensionID:       dim,
		ValidationPassed:  false,
		ValidationDetails: fmt.Sprintf("expected %d contributing questions, got %d", expected, len(questions)),
	}
}

// splitCellKey splits a "PA:DIM" grouping key back into its components.
func splitCellKey(key string) (policyAreaID, dimensionID string) {
	pa, dim, _ := strings.Cut(key, ":")
	return pa, dim
}

func toThresholds(t pipelineconfig.RubricThresholds) RubricThresholds {
	return RubricThresholds{Excelente: t.Excelente, Bueno: t.Bueno, Aceptable: t.Aceptable}
}

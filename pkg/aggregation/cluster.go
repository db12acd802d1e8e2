package aggregation

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/codeready-toolchain/policypipeline/pkg/contract"
	"github.com/codeready-toolchain/policypipeline/pkg/pipelineconfig"
	"github.com/codeready-toolchain/policypipeline/pkg/pipelineerr"
	"github.com/codeready-toolchain/policypipeline/pkg/questionnaire"
)

// ClusterInput is phase 6's input: the 10 AreaScore from phase 5.
type ClusterInput struct {
	Areas    []AreaScore
	Settings pipelineconfig.AggregationSettings
}

// ClusterStep returns the phase 6 envelope.
func ClusterStep() contract.Step[ClusterInput, []ClusterScore] {
	return contract.Step[ClusterInput, []ClusterScore]{
		Index: 6,
		Name:  "cluster_aggregator",
		ValidateIn: func(in ClusterInput) []string {
			if len(in.Areas) != 10 {
				return []string{fmt.Sprintf("expected 10 areas, got %d", len(in.Areas))}
			}
			return nil
		},
		Execute: func(_ context.Context, in ClusterInput) ([]ClusterScore, error) {
			return aggregateClusters(in)
		},
		ValidateOut: func(out []ClusterScore) []string {
			if len(out) != 4 {
				return []string{fmt.Sprintf("cluster score count %d, expected 4", len(out))}
			}
			return nil
		},
		Invariants: func(out []ClusterScore) []contract.Invariant[[]ClusterScore] {
			return []contract.Invariant[[]ClusterScore]{
				{Name: "penalty_factor_in_range", Check: func(scores []ClusterScore) error {
					for _, s := range scores {
						if s.PenaltyFactor < 0.7 || s.PenaltyFactor > 1.0 {
							return fmt.Errorf("cluster %s penalty factor %.3f out of [0.7,1.0]", s.ClusterID, s.PenaltyFactor)
						}
					}
					return nil
				}},
			}
		},
		Artifacts: func(out []ClusterScore) map[string]string {
			return map[string]string{"cluster_score_count": fmt.Sprintf("%d", len(out))}
		},
	}
}

func aggregateClusters(in ClusterInput) ([]ClusterScore, error) {
	areaByID := make(map[string]AreaScore, len(in.Areas))
	for _, a := range in.Areas {
		areaByID[a.PolicyAreaID] = a
	}

	results := make([]ClusterScore, 0, len(questionnaire.CanonicalClusters))
	for _, clusterID := range questionnaire.CanonicalClusters {
		mandatory := in.Settings.ClusterAreaMembers[clusterID]

		if err := checkHermeticity(clusterID, mandatory, in.Areas); err != nil {
			return nil, err
		}

		members := make([]AreaScore, 0, len(mandatory))
		for _, areaID := range mandatory {
			a, ok := areaByID[areaID]
			if !ok || !a.ValidationPassed {
				return nil, &pipelineerr.HermeticityError{
					ClusterID: clusterID,
					Detail:    fmt.Sprintf("mandatory member %s has no valid AreaScore", areaID),
				}
			}
			members = append(members, a)
		}
		sort.Slice(members, func(i, j int) bool { return members[i].PolicyAreaID < members[j].PolicyAreaID })

		ids := make([]string, 0, len(members))
		values := make(map[string]float64, len(members))
		for _, m := range members {
			ids = append(ids, m.PolicyAreaID)
			values[m.PolicyAreaID] = m.Score
		}

		weights := in.Settings.ClusterPolicyAreaWeights[clusterID]
		rawScore := Clamp(weightedMean(ids, values, weights), 0, 3)

		sigma, weakest := imbalance(members)
		sigmaNorm := math.Min(sigma/3.0, 1.0)
		penaltyFactor := 1.0 - 0.3*sigmaNorm
		adjusted := rawScore * penaltyFactor
		coherence := 1.0 / (1.0 + sigma)
		variance := sigma * sigma

		details := fmt.Sprintf("std_dev=%.4f penalty_factor=%.4f raw_score=%.4f adjusted_score=%.4f", sigma, penaltyFactor, rawScore, adjusted)

		if math.IsNaN(penaltyFactor) || math.IsNaN(adjusted) {
			adjusted = rawScore
			details += " fallback=raw_score_due_to_nan"
		}

		normalized := adjusted / 3.0

		results = append(results, ClusterScore{
			ClusterID:         clusterID,
			MemberAreas:       members,
			Score:             adjusted,
			RawScore:          rawScore,
			NormalizedScore:   normalized,
			QualityLevel:      Rubric(normalized, toThresholds(in.Settings.Rubric)),
			PenaltyFactor:     penaltyFactor,
			Coherence:         coherence,
			Variance:          variance,
			WeakestArea:       weakest,
			ValidationDetails: details,
			ValidationPassed:  true,
		})
	}

	return results, nil
}

// checkHermeticity rejects a declared mandatory membership list that
// names the same area more than once. It does not inspect areas; alien
// areas cannot enter a cluster because aggregateClusters takes members
// only from the declared list, and missing members are caught there.
func checkHermeticity(clusterID string, mandatory []string, areas []AreaScore) error {
	seen := make(map[string]bool, len(mandatory))
	for _, areaID := range mandatory {
		if seen[areaID] {
			return &pipelineerr.HermeticityError{
				ClusterID: clusterID,
				Detail:    fmt.Sprintf("area %s declared more than once", areaID),
			}
		}
		seen[areaID] = true
	}
	return nil
}

// imbalance computes the population standard deviation across member
// area scores and the lexicographically-tie-broken weakest area id.
func imbalance(members []AreaScore) (sigma float64, weakestArea string) {
	if len(members) == 0 {
		return 0, ""
	}

	var sum float64
	for _, m := range members {
		sum += m.Score
	}
	mean := sum / float64(len(members))

	var sqDiffSum float64
	for _, m := range members {
		d := m.Score - mean
		sqDiffSum += d * d
	}
	sigma = math.Sqrt(sqDiffSum / float64(len(members)))

	sorted := append([]AreaScore(nil), members...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PolicyAreaID < sorted[j].PolicyAreaID })

	minScore := math.Inf(1)
	for _, m := range sorted {
		if m.Score < minScore {
			minScore = m.Score
			weakestArea = m.PolicyAreaID
		}
	}

	return sigma, weakestArea
}

package aggregation

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/codeready-toolchain/policypipeline/pkg/contract"
	"github.com/codeready-toolchain/policypipeline/pkg/pipelineconfig"
	"github.com/codeready-toolchain/policypipeline/pkg/pipelineerr"
)

// MacroInput is phase 7's input: the full three-level score set.
type MacroInput struct {
	Clusters   []ClusterScore
	Areas      []AreaScore
	Dimensions []DimensionScore
	Settings   pipelineconfig.AggregationSettings
}

// MacroStep returns the phase 7 envelope. Phase 7 is the only phase
// that catches an internal fault and still emits a fallback output
// rather than propagating it; that recovery lives in Execute itself
// as a deferred recover, not in the envelope.
func MacroStep() contract.Step[MacroInput, MacroScore] {
	return contract.Step[MacroInput, MacroScore]{
		Index: 7,
		Name:  "macro_aggregator",
		ValidateIn: func(in MacroInput) []string {
			if in.Clusters == nil {
				return []string{"clusters is required"}
			}
			return nil
		},
		Execute: func(_ context.Context, in MacroInput) (out MacroScore, err error) {
			defer func() {
				if r := recover(); r != nil {
					ierr := &pipelineerr.InternalError{Phase: 7, Err: fmt.Errorf("%v", r)}
					out = fallbackMacroScore(ierr.Error())
					err = nil
				}
			}()
			return aggregateMacro(in), nil
		},
		ValidateOut: func(out MacroScore) []string {
			if out.Score < 0 || out.Score > 3 {
				return []string{fmt.Sprintf("macro score %.3f out of [0,3]", out.Score)}
			}
			return nil
		},
		Artifacts: func(out MacroScore) map[string]string {
			return map[string]string{
				"macro_score":       fmt.Sprintf("%.3f", out.Score),
				"quality_band":      string(out.QualityBand),
				"systemic_gap_count": fmt.Sprintf("%d", len(out.SystemicGaps)),
			}
		},
	}
}

func fallbackMacroScore(diagnostic string) MacroScore {
	return MacroScore{ValidationPassed: false, Diagnostic: diagnostic}
}

func aggregateMacro(in MacroInput) MacroScore {
	if len(in.Clusters) == 0 {
		return fallbackMacroScore("empty cluster list")
	}

	clusters := dedupClustersByID(in.Clusters)

	ids := make([]string, 0, len(clusters))
	values := make(map[string]float64, len(clusters))
	for _, c := range clusters {
		ids = append(ids, c.ClusterID)
		values[c.ClusterID] = c.Score
	}

	macroScore := Clamp(weightedMean(ids, values, in.Settings.MacroClusterWeights), 0, 3)

	sigma := stdDev(clusterScores(clusters))
	crossCuttingCoherence := Clamp(1-math.Min(sigma/3.0, 1.0), 0, 1)

	systemicGaps := systemicGapsFrom(in.Areas)

	dims := dedupDimensionsByKey(in.Dimensions)
	validationRate := dimensionValidationRate(dims)

	strategicAlignment := Clamp(0.6*crossCuttingCoherence+0.4*validationRate, 0, 1)

	normalized := macroScore / 3.0

	return MacroScore{
		Score:                   macroScore,
		NormalizedScore:         normalized,
		QualityBand:             Rubric(normalized, toThresholds(in.Settings.Rubric)),
		CrossCuttingCoherence:   crossCuttingCoherence,
		SystemicGaps:            systemicGaps,
		DimensionValidationRate: validationRate,
		StrategicAlignment:      strategicAlignment,
		ClusterScores:           clusters,
		ValidationPassed:        true,
	}
}

// dedupClustersByID keeps the first occurrence of each cluster_id,
// sorted by cluster_id for deterministic output.
func dedupClustersByID(clusters []ClusterScore) []ClusterScore {
	seen := make(map[string]bool, len(clusters))
	out := make([]ClusterScore, 0, len(clusters))
	for _, c := range clusters {
		if seen[c.ClusterID] {
			continue
		}
		seen[c.ClusterID] = true
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClusterID < out[j].ClusterID })
	return out
}

// dedupDimensionsByKey keeps the first occurrence of each (PA, DIM)
// key, sorted for deterministic rate computation.
func dedupDimensionsByKey(dims []DimensionScore) []DimensionScore {
	seen := make(map[string]bool, len(dims))
	out := make([]DimensionScore, 0, len(dims))
	for _, d := range dims {
		if seen[d.Key()] {
			continue
		}
		seen[d.Key()] = true
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

func clusterScores(clusters []ClusterScore) []float64 {
	out := make([]float64, len(clusters))
	for i, c := range clusters {
		out[i] = c.Score
	}
	return out
}

func stdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var sqDiffSum float64
	for _, v := range values {
		d := v - mean
		sqDiffSum += d * d
	}
	return math.Sqrt(sqDiffSum / float64(len(values)))
}

// systemicGapsFrom returns the policy_area_id of every AreaScore whose
// quality_level is INSUFICIENTE, ordered lexicographically.
func systemicGapsFrom(areas []AreaScore) []string {
	var gaps []string
	for _, a := range areas {
		if a.QualityLevel == Insuficiente {
			gaps = append(gaps, a.PolicyAreaID)
		}
	}
	sort.Strings(gaps)
	return gaps
}

func dimensionValidationRate(dims []DimensionScore) float64 {
	if len(dims) == 0 {
		return 0
	}
	passed := 0
	for _, d := range dims {
		if d.ValidationPassed {
			passed++
		}
	}
	return float64(passed) / float64(len(dims))
}

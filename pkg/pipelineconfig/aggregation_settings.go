package pipelineconfig

import "github.com/codeready-toolchain/policypipeline/pkg/questionnaire"

// RubricThresholds are the strict-greater-or-equal cutoffs applied
// top-down to a normalized score (score/3) at every aggregation level.
type RubricThresholds struct {
	Excelente  float64
	Bueno      float64
	Aceptable  float64
}

// DefaultRubricThresholds are the thresholds named in spec.md §4.6:
// 0.85 / 0.70 / 0.55.
var DefaultRubricThresholds = RubricThresholds{
	Excelente: 0.85,
	Bueno:     0.70,
	Aceptable: 0.55,
}

// AggregationSettings is derived deterministically from the
// Questionnaire in phase 0: grouping keys, expected counts, weight
// tables, and rubric thresholds. It is shared, read-only state for
// phases 4 through 7.
type AggregationSettings struct {
	DimensionGroupByKeys []string // ["policy_area_id", "dimension_id"]
	AreaGroupByKey       string   // "policy_area_id"
	ClusterGroupByKey    string   // "cluster_id"

	DimensionExpectedCounts map[string]int // "PA:DIM" -> expected question count
	AreaExpectedCount       int            // 10
	ClusterExpectedCount    int            // 4

	DimensionQuestionWeights map[string]map[string]float64 // "PA:DIM" -> question_id -> weight
	AreaDimensionWeights     map[string]map[string]float64 // policy_area_id -> dimension_id -> weight
	ClusterPolicyAreaWeights map[string]map[string]float64 // cluster_id -> policy_area_id -> weight
	MacroClusterWeights      map[string]float64             // cluster_id -> weight

	ClusterAreaMembers map[string][]string // cluster_id -> mandatory policy_area_id members

	Rubric RubricThresholds
}

// DeriveAggregationSettings builds AggregationSettings from a normalized
// Questionnaire. This is pure and deterministic: the same questionnaire
// always derives the same settings.
func DeriveAggregationSettings(q questionnaire.Questionnaire) AggregationSettings {
	dimensionExpected := make(map[string]int)
	for _, pa := range questionnaire.CanonicalPolicyAreas {
		for _, dim := range questionnaire.CanonicalDimensions {
			dimensionExpected[pa+":"+dim] = 0
		}
	}
	for _, mq := range q.MicroQuestions {
		key := mq.PolicyAreaID + ":" + mq.DimensionID
		dimensionExpected[key]++
	}

	return AggregationSettings{
		DimensionGroupByKeys:     []string{"policy_area_id", "dimension_id"},
		AreaGroupByKey:           "policy_area_id",
		ClusterGroupByKey:        "cluster_id",
		DimensionExpectedCounts:  dimensionExpected,
		AreaExpectedCount:        len(questionnaire.CanonicalPolicyAreas),
		ClusterExpectedCount:     len(questionnaire.CanonicalClusters),
		DimensionQuestionWeights: q.Weights.DimensionQuestionWeights,
		AreaDimensionWeights:     q.Weights.AreaDimensionWeights,
		ClusterPolicyAreaWeights: q.Weights.ClusterPolicyAreaWeights,
		MacroClusterWeights:      q.Weights.MacroClusterWeights,
		ClusterAreaMembers:       q.ClusterAreaMembers,
		Rubric:                   DefaultRubricThresholds,
	}
}

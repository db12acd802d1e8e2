// Package questionnaire models the evaluation instrument: 300
// micro-questions bound to (policy area, dimension) cells, 4 meso
// (cluster) questions, 1 macro question, and the canonical weight tables
// and grouping keys that phases 4-7 use. A Questionnaire is loaded once
// in phase 0, hash-verified against the value declared in Config, and
// treated as read-only for the rest of the run.
package questionnaire

import "fmt"

// Modality is the interrogation style of a micro-question.
type Modality string

const (
	ModalityA Modality = "A"
	ModalityB Modality = "B"
	ModalityC Modality = "C"
	ModalityD Modality = "D"
	ModalityE Modality = "E"
	ModalityF Modality = "F"
)

// CanonicalPolicyAreas is the fixed, ordered set PA01..PA10.
var CanonicalPolicyAreas = buildSeries("PA", 10)

// CanonicalDimensions is the fixed, ordered set DIM01..DIM06.
var CanonicalDimensions = buildSeries("DIM", 6)

// CanonicalClusters is the fixed, ordered set CL01..CL04.
var CanonicalClusters = buildSeries("CL", 4)

func buildSeries(prefix string, n int) []string {
	out := make([]string, n)
	for i := 1; i <= n; i++ {
		out[i-1] = fmt.Sprintf("%s%02d", prefix, i)
	}
	return out
}

// NormalizeDimensionID expands a single-digit dimension form ("3") into
// the canonical "DIM03" form, and a two-digit form ("06") into "DIM06".
// Already-canonical and other values pass through unchanged (routing later rejects anything not in
// CanonicalDimensions).
func NormalizeDimensionID(raw string) string {
	if len(raw) == 1 && raw[0] >= '0' && raw[0] <= '9' {
		return fmt.Sprintf("DIM0%s", raw)
	}
	if len(raw) == 2 && raw[0] >= '0' && raw[0] <= '9' {
		return fmt.Sprintf("DIM%s", raw)
	}
	return raw
}

// Question is one of the 300 atomic interrogations, bound to exactly one
// (policy_area_id, dimension_id) cell.
type Question struct {
	QuestionID     string   `yaml:"question_id"`
	BaseSlot       int      `yaml:"base_slot"`
	PolicyAreaID   string   `yaml:"policy_area_id"`
	DimensionID    string   `yaml:"dimension_id"`
	ClusterID      string   `yaml:"cluster_id"`
	Modality       Modality `yaml:"modality"`
	SignalRequired []string `yaml:"signal_required,omitempty"`
}

// MesoQuestion is one of the 4 cluster-level questions.
type MesoQuestion struct {
	QuestionID string `yaml:"question_id"`
	ClusterID  string `yaml:"cluster_id"`
}

// MacroQuestion is the single top-level question.
type MacroQuestion struct {
	QuestionID string `yaml:"question_id"`
}

// WeightTables carries the four canonical weight tables Aggregation
// Settings derives from. Keys follow "PA:DIM" for dimension-question
// weights (value keyed again by question_id), "PA" for area-dimension
// weights (value keyed by dimension_id), cluster_id for
// cluster-policy-area weights (value keyed by policy_area_id), and a flat
// map for macro-cluster weights (value keyed by cluster_id).
type WeightTables struct {
	DimensionQuestionWeights map[string]map[string]float64 `yaml:"dimension_question_weights"`
	AreaDimensionWeights     map[string]map[string]float64 `yaml:"area_dimension_weights"`
	ClusterPolicyAreaWeights map[string]map[string]float64 `yaml:"cluster_policy_area_weights"`
	MacroClusterWeights      map[string]float64             `yaml:"macro_cluster_weights"`
}

// Questionnaire is the full evaluation instrument: normalized questions,
// canonical ID sets, cluster membership, and weight tables.
type Questionnaire struct {
	MicroQuestions      []Question            `yaml:"micro_questions"`
	MesoQuestions       []MesoQuestion         `yaml:"meso_questions"`
	MacroQuestion       MacroQuestion          `yaml:"macro_question"`
	Weights             WeightTables           `yaml:"weights"`
	ClusterAreaMembers  map[string][]string    `yaml:"cluster_area_members"` // cluster_id -> []policy_area_id, mandatory members
}

// PolicyAreas returns the canonical PA set.
func (q *Questionnaire) PolicyAreas() []string { return CanonicalPolicyAreas }

// Dimensions returns the canonical DIM set.
func (q *Questionnaire) Dimensions() []string { return CanonicalDimensions }

// Clusters returns the canonical CL set.
func (q *Questionnaire) Clusters() []string { return CanonicalClusters }

// Package aggregation implements phases 4 through 7: the weighted
// hierarchical rollup from scored micro-questions up through dimension,
// area, and cluster scores to a single MacroScore, applying the shared
// rubric and the cluster-level imbalance penalty along the way. Every
// phase here is pure CPU: no I/O, deterministic sorted-key summation
// order, clamped score ranges.
package aggregation

import "fmt"

// QualityLevel is the rubric-assigned band for a normalized score.
type QualityLevel string

const (
	Excelente    QualityLevel = "EXCELENTE"
	Bueno        QualityLevel = "BUENO"
	Aceptable    QualityLevel = "ACEPTABLE"
	Insuficiente QualityLevel = "INSUFICIENTE"
)

// RubricThresholds are injected from pipelineconfig.AggregationSettings
// rather than hardcoded here, so calibration profiles could one day
// vary them without touching this package.
type RubricThresholds struct {
	Excelente float64
	Bueno     float64
	Aceptable float64
}

// Rubric classifies a normalized score (already score/3) into a
// QualityLevel. Thresholds are strict greater-or-equal, applied
// top-down: EXCELENTE first, then BUENO, then ACEPTABLE, else
// INSUFICIENTE.
func Rubric(normalized float64, t RubricThresholds) QualityLevel {
	switch {
	case normalized >= t.Excelente:
		return Excelente
	case normalized >= t.Bueno:
		return Bueno
	case normalized >= t.Aceptable:
		return Aceptable
	default:
		return Insuficiente
	}
}

// Clamp bounds x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// ScoredMicroQuestion is the external Scorer's output: one answer to
// one micro-question, consumed at the phase 4 boundary.
type ScoredMicroQuestion struct {
	QuestionID       string
	BaseSlot         int
	Score            float64
	NormalizedScore  float64
	QualityLevel     QualityLevel
	PolicyAreaID     string
	DimensionID      string
	ClusterID        string
	EvidenceChunkID  string
}

// NewScoredMicroQuestion builds a ScoredMicroQuestion, clamping score
// to [0,3] and deriving normalized_score and quality_level against the
// default rubric. Callers that need a calibration-specific rubric
// re-derive QualityLevel themselves; the default here keeps the
// reference Scorer self-contained.
func NewScoredMicroQuestion(questionID string, baseSlot int, score float64, pa, dim, cluster, chunkID string) ScoredMicroQuestion {
	clamped := Clamp(score, 0, 3)
	normalized := clamped / 3.0
	return ScoredMicroQuestion{
		QuestionID:      questionID,
		BaseSlot:        baseSlot,
		Score:           clamped,
		NormalizedScore: normalized,
		QualityLevel:    Rubric(normalized, defaultThresholds),
		PolicyAreaID:    pa,
		DimensionID:     dim,
		ClusterID:       cluster,
		EvidenceChunkID: chunkID,
	}
}

var defaultThresholds = RubricThresholds{Excelente: 0.85, Bueno: 0.70, Aceptable: 0.55}

// DimensionScore is phase 4's output unit: one (policy_area_id,
// dimension_id) cell's weighted-mean score.
type DimensionScore struct {
	PolicyAreaID      string
	DimensionID       string
	ContributingIDs   []string
	Score             float64
	NormalizedScore   float64
	QualityLevel      QualityLevel
	ValidationPassed  bool
	ValidationDetails string
}

// Key returns the (PA, DIM) natural sort/lookup key.
func (d DimensionScore) Key() string { return d.PolicyAreaID + ":" + d.DimensionID }

// AreaScore is phase 5's output unit: one policy area's weighted-mean
// score across its present dimensions.
type AreaScore struct {
	PolicyAreaID     string
	Score            float64
	NormalizedScore  float64
	QualityLevel     QualityLevel
	DimensionScores  []DimensionScore
	ValidationPassed bool
}

// ClusterScore is phase 6's output unit: one cluster's penalty-adjusted
// score plus imbalance diagnostics.
type ClusterScore struct {
	ClusterID         string
	MemberAreas       []AreaScore
	Score             float64 // penalty-adjusted
	RawScore          float64
	NormalizedScore   float64
	QualityLevel      QualityLevel
	PenaltyFactor     float64
	Coherence         float64
	Variance          float64
	WeakestArea       string
	ValidationDetails string
	ValidationPassed  bool
}

// MacroScore is phase 7's single output: the holistic evaluation plus
// cross-cutting diagnostics.
type MacroScore struct {
	Score                   float64
	NormalizedScore         float64
	QualityBand             QualityLevel
	CrossCuttingCoherence   float64
	SystemicGaps            []string
	DimensionValidationRate float64
	StrategicAlignment      float64
	ClusterScores           []ClusterScore
	ValidationPassed        bool
	Diagnostic              string
}

func (d DimensionScore) String() string {
	return fmt.Sprintf("DimensionScore(%s, %.3f, %s)", d.Key(), d.Score, d.QualityLevel)
}

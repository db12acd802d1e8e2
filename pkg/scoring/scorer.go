// Package scoring defines the Scorer external collaborator consumed
// between phase 3 and phase 4, and a deterministic reference
// implementation exercising it. Scoring a chunk's evidence against a
// question's modality is explicitly out of scope for the core pipeline
// (spec.md §6); the reference Scorer here stands in for whatever
// evaluation model a deployment plugs in, while the core only ever sees
// the Scorer interface.
package scoring

import (
	"context"

	"github.com/codeready-toolchain/policypipeline/pkg/aggregation"
	"github.com/codeready-toolchain/policypipeline/pkg/identity"
	"github.com/codeready-toolchain/policypipeline/pkg/routing"
)

// Scorer produces a ScoredMicroQuestion for one routed question. It
// must return a score in [0,3] or a fatal error; there is no partial or
// retried scoring.
type Scorer interface {
	Score(ctx context.Context, rq routing.RoutedQuestion) (aggregation.ScoredMicroQuestion, error)
}

// ReferenceScorer is a deterministic stand-in Scorer: it derives a
// score in [0,3] from the chunk's content hash, so the same (question,
// chunk) pair always scores identically across runs without calling
// out to any model. It does not interpret modality or consult the
// signal registry; SignalAwareScorer wraps it for that.
type ReferenceScorer struct{}

// NewReferenceScorer returns the default Scorer.
func NewReferenceScorer() ReferenceScorer { return ReferenceScorer{} }

func (ReferenceScorer) Score(_ context.Context, rq routing.RoutedQuestion) (aggregation.ScoredMicroQuestion, error) {
	score := deterministicScore(rq.Chunk.ContentHash)
	return aggregation.NewScoredMicroQuestion(
		rq.Question.QuestionID,
		rq.Question.BaseSlot,
		score,
		rq.Question.PolicyAreaID,
		rq.Question.DimensionID,
		rq.Question.ClusterID,
		rq.Chunk.ChunkID,
	), nil
}

// deterministicScore maps a content hash to a value in [0,3] by folding
// the first four hex characters of a fresh SHA-256 digest over it into
// an integer (base 31), taking that modulo 13 and dividing by 4, which
// gives a quarter-point grid. This is a placeholder scoring function,
// not a claim about document quality.
func deterministicScore(contentHash string) float64 {
	sum := identity.Sha256Hex([]byte(contentHash))
	var acc int
	for i := 0; i < 4 && i < len(sum); i++ {
		acc = acc*31 + int(sum[i])
	}
	if acc < 0 {
		acc = -acc
	}
	steps := acc % 13 // 0..12, quarter-point steps across [0,3]
	return float64(steps) / 4.0
}

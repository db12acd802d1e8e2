package scoring

import (
	"context"
	"fmt"

	"github.com/codeready-toolchain/policypipeline/pkg/aggregation"
	"github.com/codeready-toolchain/policypipeline/pkg/routing"
	"github.com/codeready-toolchain/policypipeline/pkg/signals"
)

// SignalAwareScorer wraps an inner Scorer and additionally requires
// every signal a question declares in signal_required to resolve true
// in the registry. A registry lookup failure (unknown chunk or signal)
// is a fatal error, not a fallback; a resolved-false signal depresses
// the inner score proportionally rather than failing the question
// outright, since a question may declare several signals and partial
// evidence is still evidence.
type SignalAwareScorer struct {
	Inner    Scorer
	Registry signals.Registry
}

// NewSignalAwareScorer returns a SignalAwareScorer over inner and
// registry.
func NewSignalAwareScorer(inner Scorer, registry signals.Registry) SignalAwareScorer {
	return SignalAwareScorer{Inner: inner, Registry: registry}
}

func (s SignalAwareScorer) Score(ctx context.Context, rq routing.RoutedQuestion) (aggregation.ScoredMicroQuestion, error) {
	base, err := s.Inner.Score(ctx, rq)
	if err != nil {
		return aggregation.ScoredMicroQuestion{}, err
	}

	required := rq.Question.SignalRequired
	if len(required) == 0 {
		return base, nil
	}

	observedCount := 0
	for _, signal := range required {
		observed, err := s.Registry.Lookup(rq.Chunk.ChunkID, signal)
		if err != nil {
			return aggregation.ScoredMicroQuestion{}, fmt.Errorf("signal-aware scoring for question %s: %w", rq.Question.QuestionID, err)
		}
		if observed {
			observedCount++
		}
	}

	fraction := float64(observedCount) / float64(len(required))
	adjustedScore := base.Score * fraction

	return aggregation.NewScoredMicroQuestion(
		rq.Question.QuestionID,
		rq.Question.BaseSlot,
		adjustedScore,
		rq.Question.PolicyAreaID,
		rq.Question.DimensionID,
		rq.Question.ClusterID,
		rq.Chunk.ChunkID,
	), nil
}

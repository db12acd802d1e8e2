package scoring

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/policypipeline/pkg/aggregation"
	"github.com/codeready-toolchain/policypipeline/pkg/grid"
	"github.com/codeready-toolchain/policypipeline/pkg/questionnaire"
	"github.com/codeready-toolchain/policypipeline/pkg/routing"
	"github.com/codeready-toolchain/policypipeline/pkg/signals"
)

func rq(chunkHash string, signalsRequired ...string) routing.RoutedQuestion {
	return routing.RoutedQuestion{
		Question: questionnaire.Question{
			QuestionID:     "Q001",
			BaseSlot:       1,
			PolicyAreaID:   "PA01",
			DimensionID:    "DIM01",
			ClusterID:      "CL01",
			SignalRequired: signalsRequired,
		},
		Chunk: grid.Chunk{ChunkID: "PA01-DIM01", ContentHash: chunkHash},
	}
}

func TestReferenceScorerIsDeterministic(t *testing.T) {
	scorer := NewReferenceScorer()
	a, err := scorer.Score(context.Background(), rq("hash-a"))
	require.NoError(t, err)
	b, err := scorer.Score(context.Background(), rq("hash-a"))
	require.NoError(t, err)
	assert.Equal(t, a.Score, b.Score)
	assert.GreaterOrEqual(t, a.Score, 0.0)
	assert.LessOrEqual(t, a.Score, 3.0)
}

func TestReferenceScorerDiffersOnDifferentContent(t *testing.T) {
	scorer := NewReferenceScorer()
	a, _ := scorer.Score(context.Background(), rq("hash-a"))
	b, _ := scorer.Score(context.Background(), rq("hash-b"))
	assert.NotEqual(t, a.Score, b.Score)
}

func TestSignalAwareScorerNoSignalsRequiredPassesThrough(t *testing.T) {
	inner := NewReferenceScorer()
	s := NewSignalAwareScorer(inner, signals.NewMapRegistry(nil))

	base, _ := inner.Score(context.Background(), rq("hash-a"))
	out, err := s.Score(context.Background(), rq("hash-a"))
	require.NoError(t, err)
	assert.Equal(t, base.Score, out.Score)
}

func TestSignalAwareScorerDepressesScoreProportionally(t *testing.T) {
	inner := NewReferenceScorer()
	registry := signals.NewMapRegistry(map[string]map[string]bool{
		"PA01-DIM01": {"has_budget_line": true, "has_timeline": false},
	})
	s := NewSignalAwareScorer(inner, registry)

	base, _ := inner.Score(context.Background(), rq("hash-a"))
	out, err := s.Score(context.Background(), rq("hash-a", "has_budget_line", "has_timeline"))
	require.NoError(t, err)
	assert.InDelta(t, base.Score*0.5, out.Score, 1e-9)
}

func TestSignalAwareScorerAllSignalsAbsentZeroesScore(t *testing.T) {
	inner := NewReferenceScorer()
	registry := signals.NewMapRegistry(map[string]map[string]bool{
		"PA01-DIM01": {"has_budget_line": false},
	})
	s := NewSignalAwareScorer(inner, registry)

	out, err := s.Score(context.Background(), rq("hash-a", "has_budget_line"))
	require.NoError(t, err)
	assert.Equal(t, 0.0, out.Score)
}

func TestSignalAwareScorerFailsOnUnknownSignal(t *testing.T) {
	inner := NewReferenceScorer()
	registry := signals.NewMapRegistry(map[string]map[string]bool{})
	s := NewSignalAwareScorer(inner, registry)

	_, err := s.Score(context.Background(), rq("hash-a", "has_budget_line"))
	assert.Error(t, err)
}

func TestSignalAwareScorerPropagatesInnerError(t *testing.T) {
	failing := failingScorer{}
	s := NewSignalAwareScorer(failing, signals.NewMapRegistry(nil))
	_, err := s.Score(context.Background(), rq("hash-a"))
	assert.Error(t, err)
}

type failingScorer struct{}

func (failingScorer) Score(_ context.Context, _ routing.RoutedQuestion) (aggregation.ScoredMicroQuestion, error) {
	return aggregation.ScoredMicroQuestion{}, errors.New("scorer unavailable")
}

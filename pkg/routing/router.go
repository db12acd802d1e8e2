// Package routing implements phase 3, the chunk router: it binds each
// of the questionnaire's 300 micro-questions to the one chunk that
// covers its (policy area, dimension) cell. Lookup is a strict equality
// match against the dense grid built in phase 1 — there is no fuzzy or
// nearest-cell fallback (spec.md §4.4 Non-goals).
package routing

import (
	"context"
	"fmt"

	"github.com/codeready-toolchain/policypipeline/pkg/contract"
	"github.com/codeready-toolchain/policypipeline/pkg/grid"
	"github.com/codeready-toolchain/policypipeline/pkg/pipelineerr"
	"github.com/codeready-toolchain/policypipeline/pkg/questionnaire"
)

// RoutedQuestion pairs one micro-question with the chunk bound to its
// cell.
type RoutedQuestion struct {
	Question questionnaire.Question
	Chunk    grid.Chunk
}

// Result is phase 3's output: every micro-question routed to its
// chunk, plus per-cell distribution counters for diagnostics and the
// totality counters spec.md §4.5/§8 name as a testable property
// (TotalQuestions == SuccessfulRoutes + FailedRoutes).
type Result struct {
	Routed           []RoutedQuestion
	QuestionsPerCell map[string]int
	QuestionsPerArea map[string]int
	QuestionsPerDim  map[string]int

	TotalQuestions   int
	SuccessfulRoutes int
	FailedRoutes     int
}

// Input is phase 3's input: the full question set and the grid built
// in phase 1.
type Input struct {
	Questions []questionnaire.Question
	Grid      grid.Grid
}

// Step returns the phase 3 envelope: route every question to its cell
// chunk, failing fast and by name on the first miss.
func Step() contract.Step[Input, Result] {
	return contract.Step[Input, Result]{
		Index: 3,
		Name:  "chunk_router",
		ValidateIn: func(in Input) []string {
			var issues []string
			if len(in.Questions) == 0 {
				issues = append(issues, "questions is required and must be non-empty")
			}
			if len(in.Grid.ByCell) == 0 {
				issues = append(issues, "grid is required and must be non-empty")
			}
			return issues
		},
		Execute: func(_ context.Context, in Input) (Result, error) {
			return routeAll(in.Questions, in.Grid)
		},
		ValidateOut: func(r Result) []string {
			if len(r.Routed) == 0 {
				return []string{"routing produced no routed questions"}
			}
			return nil
		},
		Invariants: func(r Result) []contract.Invariant[Result] {
			return []contract.Invariant[Result]{
				{Name: "every_question_routed", Check: func(res Result) error {
					for _, rq := range res.Routed {
						if rq.Chunk.ChunkID == "" {
							return fmt.Errorf("question %s routed to an empty chunk", rq.Question.QuestionID)
						}
					}
					return nil
				}},
				{Name: "routing_totality", Check: func(res Result) error {
					if res.SuccessfulRoutes+res.FailedRoutes != res.TotalQuestions {
						return fmt.Errorf("successful_routes(%d) + failed_routes(%d) != total_questions(%d)",
							res.SuccessfulRoutes, res.FailedRoutes, res.TotalQuestions)
					}
					return nil
				}},
			}
		},
		Artifacts: func(r Result) map[string]string {
			return map[string]string{
				"routed_count":      fmt.Sprintf("%d", len(r.Routed)),
				"total_questions":   fmt.Sprintf("%d", r.TotalQuestions),
				"successful_routes": fmt.Sprintf("%d", r.SuccessfulRoutes),
				"failed_routes":     fmt.Sprintf("%d", r.FailedRoutes),
			}
		},
	}
}

// routeAll binds every question to the chunk covering its cell. A
// question naming a cell absent from the grid, or whose resolved chunk
// disagrees with the question's own (policy area, dimension) tags, is a
// RoutingError — fatal, not a silent drop (spec.md §4.5).
func routeAll(questions []questionnaire.Question, g grid.Grid) (Result, error) {
	result := Result{
		Routed:           make([]RoutedQuestion, 0, len(questions)),
		QuestionsPerCell: make(map[string]int),
		QuestionsPerArea: make(map[string]int),
		QuestionsPerDim:  make(map[string]int),
		TotalQuestions:   len(questions),
	}

	for _, q := range questions {
		key := q.PolicyAreaID + ":" + q.DimensionID
		chunk, ok := g.ByCell[key]
		if !ok {
			return Result{}, &pipelineerr.RoutingError{
				QuestionID: q.QuestionID,
				Detail:     fmt.Sprintf("no chunk covers cell %s", key),
			}
		}
		if chunk.PolicyAreaID != q.PolicyAreaID || chunk.DimensionID != q.DimensionID {
			return Result{}, &pipelineerr.RoutingError{
				QuestionID: q.QuestionID,
				Detail: fmt.Sprintf("chunk %s tagged (%s:%s) disagrees with question cell %s",
					chunk.ChunkID, chunk.PolicyAreaID, chunk.DimensionID, key),
			}
		}
		result.Routed = append(result.Routed, RoutedQuestion{Question: q, Chunk: chunk})
		result.QuestionsPerCell[key]++
		result.QuestionsPerArea[q.PolicyAreaID]++
		result.QuestionsPerDim[q.DimensionID]++
		result.SuccessfulRoutes++
	}

	return result, nil
}

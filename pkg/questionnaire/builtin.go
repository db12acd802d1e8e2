package questionnaire

import "fmt"

// defaultClusterAreaMembers assigns the 10 canonical policy areas to the
// 4 canonical clusters: CL01/CL02 get 3 areas each, CL03/CL04 get 2.
var defaultClusterAreaMembers = map[string][]string{
	"CL01": {"PA01", "PA02", "PA03"},
	"CL02": {"PA04", "PA05", "PA06"},
	"CL03": {"PA07", "PA08"},
	"CL04": {"PA09", "PA10"},
}

func clusterForArea(pa string) string {
	for cl, members := range defaultClusterAreaMembers {
		for _, m := range members {
			if m == pa {
				return cl
			}
		}
	}
	return ""
}

// Builtin returns the reference questionnaire: 300 micro-questions (5
// per (PA, DIM) cell across the 60-cell grid), 4 meso questions (one per
// cluster), 1 macro question, and equal (1.0) weights everywhere. It is
// the fixture the end-to-end "happy path" scenario (spec.md §8) is built
// against, and a reasonable starting point for operators bootstrapping a
// real questionnaire file.
func Builtin() Questionnaire {
	const questionsPerCell = 5

	q := Questionnaire{
		ClusterAreaMembers: defaultClusterAreaMembers,
		Weights: WeightTables{
			DimensionQuestionWeights: map[string]map[string]float64{},
			AreaDimensionWeights:     map[string]map[string]float64{},
			ClusterPolicyAreaWeights: map[string]map[string]float64{},
			MacroClusterWeights:      map[string]float64{},
		},
	}

	modalities := []Modality{ModalityA, ModalityB, ModalityC, ModalityD, ModalityE, ModalityF}
	slot := 0
	for _, pa := range CanonicalPolicyAreas {
		for _, dim := range CanonicalDimensions {
			cellKey := pa + ":" + dim
			q.Weights.DimensionQuestionWeights[cellKey] = map[string]float64{}
			cl := clusterForArea(pa)
			for n := 0; n < questionsPerCell; n++ {
				slot++
				qid := fmt.Sprintf("Q%03d", slot)
				q.MicroQuestions = append(q.MicroQuestions, Question{
					QuestionID:   qid,
					BaseSlot:     slot,
					PolicyAreaID: pa,
					DimensionID:  dim,
					ClusterID:    cl,
					Modality:     modalities[n%len(modalities)],
				})
				q.Weights.DimensionQuestionWeights[cellKey][qid] = 1.0
			}
		}
		q.Weights.AreaDimensionWeights[pa] = map[string]float64{}
		for _, dim := range CanonicalDimensions {
			q.Weights.AreaDimensionWeights[pa][dim] = 1.0
		}
	}

	for _, cl := range CanonicalClusters {
		q.Weights.ClusterPolicyAreaWeights[cl] = map[string]float64{}
		for _, pa := range defaultClusterAreaMembers[cl] {
			q.Weights.ClusterPolicyAreaWeights[cl][pa] = 1.0
		}
		q.Weights.MacroClusterWeights[cl] = 1.0
		q.MesoQuestions = append(q.MesoQuestions, MesoQuestion{
			QuestionID: "M-" + cl,
			ClusterID:  cl,
		})
	}

	q.MacroQuestion = MacroQuestion{QuestionID: "MACRO-01"}

	return Normalize(q)
}

package questionnaire

import (
	"fmt"
	"sort"
	"strings"

	"github.com/codeready-toolchain/policypipeline/pkg/identity"
)

// Normalize returns a copy of q with every question's dimension_id
// expanded to its canonical DIMnn form. The canonical-bytes hash must
// always be taken on a normalized Questionnaire.
func Normalize(q Questionnaire) Questionnaire {
	out := q
	out.MicroQuestions = make([]Question, len(q.MicroQuestions))
	for i, question := range q.MicroQuestions {
		question.DimensionID = NormalizeDimensionID(question.DimensionID)
		out.MicroQuestions[i] = question
	}
	return out
}

// CanonicalBytes renders q into a deterministic byte sequence with every
// map traversed in lexicographic key order, so CanonicalBytes(a) ==
// CanonicalBytes(b) iff a and b carry identical content regardless of
// slice/map iteration order at construction time.
func CanonicalBytes(q Questionnaire) []byte {
	var b strings.Builder

	questions := append([]Question(nil), q.MicroQuestions...)
	sort.Slice(questions, func(i, j int) bool { return questions[i].QuestionID < questions[j].QuestionID })
	for _, mq := range questions {
		fmt.Fprintf(&b, "Q|%s|%d|%s|%s|%s|%s|%s\n",
			mq.QuestionID, mq.BaseSlot, mq.PolicyAreaID, mq.DimensionID, mq.ClusterID, mq.Modality,
			strings.Join(mq.SignalRequired, ","))
	}

	meso := append([]MesoQuestion(nil), q.MesoQuestions...)
	sort.Slice(meso, func(i, j int) bool { return meso[i].QuestionID < meso[j].QuestionID })
	for _, m := range meso {
		fmt.Fprintf(&b, "M|%s|%s\n", m.QuestionID, m.ClusterID)
	}

	fmt.Fprintf(&b, "X|%s\n", q.MacroQuestion.QuestionID)

	writeNestedWeights(&b, "DQW", q.Weights.DimensionQuestionWeights)
	writeNestedWeights(&b, "ADW", q.Weights.AreaDimensionWeights)
	writeNestedWeights(&b, "CPW", q.Weights.ClusterPolicyAreaWeights)

	mcwKeys := sortedKeysFloat(q.Weights.MacroClusterWeights)
	for _, k := range mcwKeys {
		fmt.Fprintf(&b, "MCW|%s|%v\n", k, q.Weights.MacroClusterWeights[k])
	}

	camKeys := make([]string, 0, len(q.ClusterAreaMembers))
	for k := range q.ClusterAreaMembers {
		camKeys = append(camKeys, k)
	}
	sort.Strings(camKeys)
	for _, k := range camKeys {
		members := append([]string(nil), q.ClusterAreaMembers[k]...)
		sort.Strings(members)
		fmt.Fprintf(&b, "CAM|%s|%s\n", k, strings.Join(members, ","))
	}

	return []byte(b.String())
}

func writeNestedWeights(b *strings.Builder, tag string, table map[string]map[string]float64) {
	outerKeys := make([]string, 0, len(table))
	for k := range table {
		outerKeys = append(outerKeys, k)
	}
	sort.Strings(outerKeys)
	for _, ok := range outerKeys {
		inner := sortedKeysFloat(table[ok])
		for _, ik := range inner {
			fmt.Fprintf(b, "%s|%s|%s|%v\n", tag, ok, ik, table[ok][ik])
		}
	}
}

func sortedKeysFloat(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Hash returns the 64-hex-character SHA-256 digest of q's canonical
// bytes, after normalization. This is what Config's declared
// questionnaire hash must byte-for-byte match.
func Hash(q Questionnaire) string {
	return identity.Sha256Hex(CanonicalBytes(Normalize(q)))
}

package aggregation

import "sort"

// weightedMean computes the weighted average of values keyed by id,
// using weights from the weights map. Summation follows the
// lexicographic order of ids, not map iteration order, so the result
// is reproducible regardless of how the caller built the maps. If any
// id has a missing or non-positive weight, every id falls back to an
// equal weight of 1.0.
func weightedMean(ids []string, values map[string]float64, weights map[string]float64) float64 {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	allPositive := true
	for _, id := range sorted {
		if !(weights[id] > 0) {
			allPositive = false
			break
		}
	}

	var weightSum, valueSum float64
	for _, id := range sorted {
		w := weights[id]
		if !allPositive {
			w = 1.0
		}
		weightSum += w
		valueSum += w * values[id]
	}
	if weightSum == 0 {
		return 0
	}
	return valueSum / weightSum
}

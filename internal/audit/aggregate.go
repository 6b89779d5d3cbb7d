package audit

import "math"

// DefaultWeights returns the weight map used for the overall score. The
// formula is weight-sum-normalized, so partial or retuned maps still land
// in [0,100].
func DefaultWeights() map[string]int {
	return map[string]int{
		CriterionPerformance:   25,
		CriterionSecurity:      30,
		CriterionSEO:           20,
		CriterionAccessibility: 15,
		CriterionBestPractices: 10,
	}
}

// OverallScore combines criterion scores as Σ(score·weight)/Σ(weight) over
// the names present in both maps, clamped to [0,100] and rounded to two
// decimals. When no weight applies the result is exactly 0.
func OverallScore(scores map[string]float64, weights map[string]int) float64 {
	var weighted float64
	var total int
	for name, score := range scores {
		weight, ok := weights[name]
		if !ok || weight <= 0 {
			continue
		}
		weighted += score * float64(weight)
		total += weight
	}
	if total <= 0 {
		return 0
	}
	return clamp100(round2(weighted / float64(total)))
}

func clamp100(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

package scoring

import (
	"sort"

	"github.com/aristath/drawlab/internal/modules/categories"
)

// ValueScore is a value with its score.
type ValueScore struct {
	Value int     `json:"value"`
	Score float64 `json:"score"`
}

// LabelScore is a category label with its score.
type LabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Combination is a K-subset of values, ascending, with its score.
type Combination struct {
	Values []int   `json:"values"`
	Score  float64 `json:"score"`
}

// valueScores holds one score per value, indexed by the value itself.
type valueScores [categories.MaxValue + 1]float64

// rankValues returns the k best values among candidates (all values when
// candidates is nil). Ties go to the smaller value.
func rankValues(scores *valueScores, candidates []int, k int) []ValueScore {
	var out []ValueScore
	if candidates == nil {
		out = make([]ValueScore, 0, categories.MaxValue)
		for v := categories.MinValue; v <= categories.MaxValue; v++ {
			out = append(out, ValueScore{Value: v, Score: scores[v]})
		}
	} else {
		out = make([]ValueScore, 0, len(candidates))
		for _, v := range candidates {
			out = append(out, ValueScore{Value: v, Score: scores[v]})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Value < out[j].Value
	})

	if k >= 0 && len(out) > k {
		out = out[:k]
	}
	return out
}

// rankLabels returns the k best labels of order. Ties keep declaration
// order.
func rankLabels(scores map[string]float64, order []string, k int) []LabelScore {
	out := make([]LabelScore, 0, len(order))
	for _, label := range order {
		out = append(out, LabelScore{Label: label, Score: scores[label]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	if k >= 0 && len(out) > k {
		out = out[:k]
	}
	return out
}

// rankPresent ranks only the labels that were counted at least once,
// following order for ties. Used for "most common" style leaders.
func rankPresent(counts map[string]int, order []string, k int) []string {
	present := make([]string, 0, len(counts))
	for _, label := range order {
		if counts[label] > 0 {
			present = append(present, label)
		}
	}
	sort.SliceStable(present, func(i, j int) bool {
		return counts[present[i]] > counts[present[j]]
	})
	if k >= 0 && len(present) > k {
		present = present[:k]
	}
	return present
}

// rankCombinations keeps the k best combinations. Ties are broken by the
// lexicographic order of the ascending member lists.
func rankCombinations(combos []Combination, k int) []Combination {
	sort.SliceStable(combos, func(i, j int) bool {
		if combos[i].Score != combos[j].Score {
			return combos[i].Score > combos[j].Score
		}
		return lexLess(combos[i].Values, combos[j].Values)
	})
	if k >= 0 && len(combos) > k {
		combos = combos[:k]
	}
	return combos
}

func lexLess(a, b []int) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// Labels extracts the labels of ranked label scores.
func Labels(ls []LabelScore) []string {
	out := make([]string, len(ls))
	for i, l := range ls {
		out[i] = l.Label
	}
	return out
}

// Values extracts the values of ranked value scores.
func Values(vs []ValueScore) []int {
	out := make([]int, len(vs))
	for i, v := range vs {
		out[i] = v.Value
	}
	return out
}

package scoring

import (
	"github.com/aristath/drawlab/internal/modules/categories"
	"github.com/aristath/drawlab/internal/modules/history"
)

// General scores every value of a whole draw.
//
// A value's score is its frequency over the supplied history times
// HotScore, plus its gap (draws since last seen, len(h) when never seen)
// times ColdScore, plus CategoryTrend times the trend-window counts of each
// of its non-zodiac labels. Pairs and triples are drawn from the top 20
// values; triples outside the sum band [40,110] are dropped before scoring.
func (e *Engine) General(cfg GeneralConfig, h history.History) (*GeneralPrediction, error) {
	if cfg.Variant.Kind() != KindGeneral {
		return nil, kindError(cfg.Variant, KindGeneral)
	}
	if len(h) == 0 {
		return nil, ErrInsufficientHistory
	}

	trendCats := e.table.TrendCategories()
	trends := e.categoryTrends(trendCats, h, cfg.TrendLookback)

	var (
		freq   valueScores
		gap    valueScores
		scores valueScores
	)
	for v := categories.MinValue; v <= categories.MaxValue; v++ {
		gap[v] = float64(len(h))
	}
	for i, d := range h {
		for _, entry := range d.Entries {
			if !categories.ValidValue(entry.Value) {
				continue
			}
			freq[entry.Value]++
			if gap[entry.Value] == float64(len(h)) {
				gap[entry.Value] = float64(i)
			}
		}
	}

	for v := categories.MinValue; v <= categories.MaxValue; v++ {
		s := freq[v]*cfg.HotScore + gap[v]*cfg.ColdScore
		for _, c := range trendCats {
			s += float64(trends[c][e.table.LabelOf(c, v)]) * cfg.CategoryTrend
		}
		scores[v] = s
	}

	pool := Values(rankValues(&scores, nil, candidatePool))
	pairCounts, tripleCounts := coOccurrence(h, cfg.Variant == GeneralV6)

	pred := &GeneralPrediction{
		Variant:         cfg.Variant,
		Values:          rankValues(&scores, nil, generalValues),
		Pairs:           rankCombinations(e.scorePairs(cfg, pool, &scores, pairCounts), generalCombos),
		Triples:         rankCombinations(e.scoreTriples(cfg, pool, &scores, tripleCounts), generalCombos),
		CategoryLeaders: make(map[categories.Category][]LabelScore, len(trendCats)),
	}

	zodiacScores := make(map[string]float64, 12)
	for v := categories.MinValue; v <= categories.MaxValue; v++ {
		zodiacScores[e.table.ZodiacOf(v)] += scores[v]
	}
	allZodiacs := rankLabels(zodiacScores, e.table.Labels(categories.Zodiac), -1)
	pred.Zodiacs = allZodiacs[:generalZodiacs]
	pred.SpecialZodiac = allZodiacs[0].Label
	pred.SpecialValue = pred.Values[0].Value

	for _, c := range trendCats {
		counts := make(map[string]float64, len(trends[c]))
		for label, n := range trends[c] {
			counts[label] = float64(n)
		}
		pred.CategoryLeaders[c] = rankLabels(counts, e.table.Labels(c), -1)
	}

	return pred, nil
}

// categoryTrends counts each label of each category over the first
// lookback draws, one count per distinct value.
func (e *Engine) categoryTrends(cats []categories.Category, h history.History, lookback int) map[categories.Category]map[string]int {
	if lookback > len(h) {
		lookback = len(h)
	}
	trends := make(map[categories.Category]map[string]int, len(cats))
	for _, c := range cats {
		trends[c] = make(map[string]int)
	}
	for _, d := range h[:lookback] {
		seen := make(map[int]bool, len(d.Entries))
		for _, entry := range d.Entries {
			if seen[entry.Value] || !categories.ValidValue(entry.Value) {
				continue
			}
			seen[entry.Value] = true
			for _, c := range cats {
				trends[c][e.table.LabelOf(c, entry.Value)]++
			}
		}
	}
	return trends
}

// coOccurrence counts how often each pair (and optionally each triple) of
// regular values was drawn together.
func coOccurrence(h history.History, triples bool) (map[[2]int]int, map[[3]int]int) {
	pairs := make(map[[2]int]int)
	var trips map[[3]int]int
	if triples {
		trips = make(map[[3]int]int)
	}

	for _, d := range h {
		vals := sortedValues(d.Regular())
		for i := 0; i < len(vals); i++ {
			for j := i + 1; j < len(vals); j++ {
				pairs[[2]int{vals[i], vals[j]}]++
				if !triples {
					continue
				}
				for k := j + 1; k < len(vals); k++ {
					trips[[3]int{vals[i], vals[j], vals[k]}]++
				}
			}
		}
	}
	return pairs, trips
}

func (e *Engine) scorePairs(cfg GeneralConfig, pool []int, scores *valueScores, counts map[[2]int]int) []Combination {
	out := make([]Combination, 0, len(pool)*(len(pool)-1)/2)
	for i := 0; i < len(pool); i++ {
		for j := i + 1; j < len(pool); j++ {
			a, b := order2(pool[i], pool[j])
			s := scores[a] + scores[b]
			if e.table.ColorOf(a) != e.table.ColorOf(b) {
				s *= cfg.Combo2Diversity
			}
			s += float64(counts[[2]int{a, b}]) * cfg.CoOccurrenceWeight
			out = append(out, Combination{Values: []int{a, b}, Score: s})
		}
	}
	return out
}

func (e *Engine) scoreTriples(cfg GeneralConfig, pool []int, scores *valueScores, counts map[[3]int]int) []Combination {
	var out []Combination
	for i := 0; i < len(pool); i++ {
		for j := i + 1; j < len(pool); j++ {
			for k := j + 1; k < len(pool); k++ {
				a, b, c := order3(pool[i], pool[j], pool[k])
				if sum := a + b + c; sum < comboSumMin || sum > comboSumMax {
					continue
				}

				s := scores[a] + scores[b] + scores[c]
				if distinct3(e.table.ColorOf(a), e.table.ColorOf(b), e.table.ColorOf(c)) {
					s *= cfg.Combo3ColorDiversity
				}
				if distinct3(e.table.ElementOf(a), e.table.ElementOf(b), e.table.ElementOf(c)) {
					s *= cfg.Combo3ElementDiversity
				}
				if counts != nil {
					s += float64(counts[[3]int{a, b, c}]) * cfg.TripletWeight * 10
				}
				out = append(out, Combination{Values: []int{a, b, c}, Score: s})
			}
		}
	}
	return out
}

func sortedValues(entries []history.Entry) []int {
	out := make([]int, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Value)
	}
	// insertion sort, draws are tiny
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func order2(a, b int) (int, int) {
	if a > b {
		return b, a
	}
	return a, b
}

func order3(a, b, c int) (int, int, int) {
	if a > b {
		a, b = b, a
	}
	if b > c {
		b, c = c, b
	}
	if a > b {
		a, b = b, a
	}
	return a, b, c
}

func distinct3(a, b, c string) bool {
	return a != b && b != c && a != c
}

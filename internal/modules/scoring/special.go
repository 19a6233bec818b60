package scoring

import (
	"github.com/aristath/drawlab/internal/modules/categories"
	"github.com/aristath/drawlab/internal/modules/history"
)

// specialStats holds the window statistics shared by the special variants.
type specialStats struct {
	recent        history.SpecialSeries
	zodiacCounts  map[string]int
	zodiacGap     map[string]int
	colorCounts   map[string]int
	colorShare    map[string]float64
	tailCounts    [10]int
	tailShare     [10]float64
	elementCounts map[string]int
	elementShare  map[string]float64
}

func (e *Engine) specialStats(cfg SpecialConfig, s history.SpecialSeries) *specialStats {
	lookback := cfg.Lookback
	if lookback > len(s) {
		lookback = len(s)
	}
	st := &specialStats{
		recent:        s[:lookback],
		zodiacCounts:  make(map[string]int, 12),
		zodiacGap:     make(map[string]int, 12),
		colorCounts:   make(map[string]int, 3),
		colorShare:    make(map[string]float64, 3),
		elementCounts: make(map[string]int, 5),
		elementShare:  make(map[string]float64, 5),
	}

	for _, z := range e.table.Labels(categories.Zodiac) {
		st.zodiacGap[z] = neverSeenSpecial
	}
	for i, entry := range s {
		if gap, ok := st.zodiacGap[entry.Zodiac]; ok && gap == neverSeenSpecial {
			st.zodiacGap[entry.Zodiac] = i
		}
	}

	for _, entry := range st.recent {
		st.zodiacCounts[entry.Zodiac]++
		st.colorCounts[entry.Color]++
		st.tailCounts[categories.Tail(entry.Value)]++
		if entry.Element != "" && entry.Element != categories.Unknown {
			st.elementCounts[entry.Element]++
		}
	}

	total := float64(len(st.recent))
	if total == 0 {
		total = 1
	}
	for c, n := range st.colorCounts {
		st.colorShare[c] = float64(n) / total
	}
	for t, n := range st.tailCounts {
		st.tailShare[t] = float64(n) / total
	}
	elementTotal := 0
	for _, n := range st.elementCounts {
		elementTotal += n
	}
	if elementTotal == 0 {
		elementTotal = 1
	}
	for el, n := range st.elementCounts {
		st.elementShare[el] = float64(n) / float64(elementTotal)
	}

	return st
}

// coldest returns zodiacs ordered by gap, longest first, ties in
// declaration order.
func (e *Engine) coldest(st *specialStats, k int) []string {
	gaps := make(map[string]float64, len(st.zodiacGap))
	for z, g := range st.zodiacGap {
		gaps[z] = float64(g)
	}
	return Labels(rankLabels(gaps, e.table.Labels(categories.Zodiac), k))
}

func (e *Engine) topColor(st *specialStats) string {
	top := rankPresent(st.colorCounts, e.table.Labels(categories.Color), 1)
	if len(top) == 0 {
		return categories.Unknown
	}
	return top[0]
}

func (e *Engine) topElement(st *specialStats) string {
	top := rankPresent(st.elementCounts, e.table.Labels(categories.Element), 1)
	if len(top) == 0 {
		return categories.Unknown
	}
	return top[0]
}

// topTails returns up to k tail digits seen in the window, most frequent
// first, ties to the smaller digit.
func topTails(st *specialStats, k int) []int {
	var out []int
	for t := 0; t < 10; t++ {
		if st.tailCounts[t] > 0 {
			out = append(out, t)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && st.tailCounts[out[j]] > st.tailCounts[out[j-1]]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	if len(out) > k {
		out = out[:k]
	}
	return out
}

// specialV5 scores the 49 values from zodiac heat and gap, color and tail
// shares, with a defence bonus for the coldest zodiac and for values absent
// longer than 40 draws.
func (e *Engine) specialV5(cfg SpecialConfig, s history.SpecialSeries) *SpecialPrediction {
	st := e.specialStats(cfg, s)
	zodiacs := e.table.Labels(categories.Zodiac)
	coldest := e.coldest(st, -1)

	zodiacScores := make(map[string]float64, len(zodiacs))
	for _, z := range zodiacs {
		score := float64(st.zodiacCounts[z]) * cfg.Hot
		switch gap := st.zodiacGap[z]; {
		case gap > 12:
			score += cfg.Gap * 2
		case gap == 1:
			score += cfg.Gap * 0.5
		}
		zodiacScores[z] = score
	}
	zodiacScores[coldest[0]] += cfg.ColdProtect

	valueGap := lastSeenValues(s)

	var scores valueScores
	for v := categories.MinValue; v <= categories.MaxValue; v++ {
		score := zodiacScores[e.table.ZodiacOf(v)] * cfg.Zodiac
		score += st.colorShare[e.table.ColorOf(v)] * cfg.Color * 10
		score += st.tailShare[categories.Tail(v)] * cfg.Tail * 10
		if valueGap[v] > coldValueGap {
			score += cfg.ColdProtect * 0.5
		}
		scores[v] = score
	}

	return &SpecialPrediction{
		Variant:          cfg.Variant,
		Zodiacs:          rankLabels(zodiacScores, zodiacs, specialV5Zodiacs),
		Values:           rankValues(&scores, nil, specialV5Values),
		PredictedColor:   e.topColor(st),
		PredictedTail:    predictedTail(st),
		PredictedElement: e.topElement(st),
		ColdestZodiacs:   coldest[:1],
	}
}

// specialV7 picks six hot zodiacs plus two long-absent defence zodiacs and
// scores only the values belonging to those eight. Values backed by at
// least two of {top-six zodiac, top-two color, top-three tail} are
// multiplied by the resonance factor.
func (e *Engine) specialV7(cfg SpecialConfig, s history.SpecialSeries) *SpecialPrediction {
	st := e.specialStats(cfg, s)
	zodiacs := e.table.Labels(categories.Zodiac)
	coldest := e.coldest(st, -1)

	cycle := make(map[string]int, cycleWindow)
	for i := 0; i < cycleWindow && i < len(s); i++ {
		cycle[s[i].Zodiac]++
	}
	avgCount := float64(len(st.recent)) / float64(len(zodiacs))

	topColorSet := toSet(rankPresent(st.colorCounts, e.table.Labels(categories.Color), 2))
	tails := topTails(st, 3)
	topTailSet := make(map[int]bool, len(tails))
	for _, t := range tails {
		topTailSet[t] = true
	}

	zodiacScores := make(map[string]float64, len(zodiacs))
	for _, z := range zodiacs {
		count := float64(st.zodiacCounts[z])
		score := count * cfg.Hot

		switch gap := st.zodiacGap[z]; {
		case gap >= 20:
			score += cfg.Gap * 3
		case gap >= 12:
			score += cfg.Gap * 2
		case gap >= 6:
			score += cfg.Gap
		case gap <= 2:
			score += cfg.Gap * 0.3
		}

		score += float64(cycle[z]) * cfg.Cycle
		if count < avgCount {
			score += cfg.Balance * (avgCount - count)
		}

		// cross-validation against the window's leading attributes
		members := e.table.Members(categories.Zodiac, z)
		colorMatch, tailMatch, elementMatch := 0, 0, 0.0
		for _, v := range members {
			if topColorSet[e.table.ColorOf(v)] {
				colorMatch++
			}
			if topTailSet[categories.Tail(v)] {
				tailMatch++
			}
			elementMatch += st.elementShare[e.table.ElementOf(v)]
		}
		n := float64(len(members))
		score += float64(colorMatch) / n * cfg.Color * 5
		score += float64(tailMatch) / n * cfg.Tail * 5
		score += elementMatch * cfg.Element * 2

		zodiacScores[z] = score
	}

	ranked := rankLabels(zodiacScores, zodiacs, -1)
	hot := ranked[:specialV7Hot]

	// defence picks: the longest-absent of the remaining zodiacs
	rest := append([]LabelScore(nil), ranked[specialV7Hot:]...)
	restGaps := make(map[string]float64, len(rest))
	restOrder := make([]string, len(rest))
	for i, ls := range rest {
		restGaps[ls.Label] = float64(st.zodiacGap[ls.Label])
		restOrder[i] = ls.Label
	}
	defence := Labels(rankLabels(restGaps, restOrder, specialV7Defence))

	selected := append([]LabelScore(nil), hot...)
	for _, z := range defence {
		selected = append(selected, LabelScore{Label: z, Score: zodiacScores[z]})
	}
	hotSet := toSet(Labels(hot))
	defenceSet := toSet(defence)

	var (
		scores     valueScores
		candidates []int
	)
	for v := categories.MinValue; v <= categories.MaxValue; v++ {
		z := e.table.ZodiacOf(v)
		if !hotSet[z] && !defenceSet[z] {
			continue
		}
		c := e.table.ColorOf(v)
		t := categories.Tail(v)

		score := zodiacScores[z] * cfg.Zodiac
		score += st.colorShare[c] * cfg.Color * 10
		score += st.tailShare[t] * cfg.Tail * 10
		score += st.elementShare[e.table.ElementOf(v)] * cfg.Element * 5

		resonance := 0
		if hotSet[z] {
			resonance++
		}
		if topColorSet[c] {
			resonance++
		}
		if topTailSet[t] {
			resonance++
		}
		if resonance >= 2 {
			score *= cfg.Resonance
		}

		scores[v] = score
		candidates = append(candidates, v)
	}

	return &SpecialPrediction{
		Variant:          cfg.Variant,
		Zodiacs:          selected,
		DefenceZodiacs:   defence,
		Values:           rankValues(&scores, candidates, specialV7Values),
		PredictedColor:   e.topColor(st),
		PredictedTail:    predictedTail(st),
		PredictedElement: e.topElement(st),
		ColdestZodiacs:   coldest[:specialV7Coldest],
	}
}

// lastSeenValues returns, per value, the index of its latest appearance in
// s, or 100 when it never appeared.
func lastSeenValues(s history.SpecialSeries) [categories.MaxValue + 1]int {
	var gap [categories.MaxValue + 1]int
	for v := range gap {
		gap[v] = neverSeenSpecial
	}
	seen := make(map[int]bool, categories.MaxValue)
	for i, entry := range s {
		if !categories.ValidValue(entry.Value) || seen[entry.Value] {
			continue
		}
		seen[entry.Value] = true
		gap[entry.Value] = i
	}
	return gap
}

func predictedTail(st *specialStats) int {
	top := topTails(st, 1)
	if len(top) == 0 {
		return -1
	}
	return top[0]
}

func toSet(labels []string) map[string]bool {
	out := make(map[string]bool, len(labels))
	for _, l := range labels {
		out[l] = true
	}
	return out
}

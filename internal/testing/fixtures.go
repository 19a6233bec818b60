package testing

import (
	"context"
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/aristath/drawlab/internal/modules/history"
)

// FirstPeriod is the period of the oldest synthetic draw.
const FirstPeriod int64 = 2024001

// Records builds raw records from value lists given newest first. The
// newest draw gets period FirstPeriod+len(draws)-1.
func Records(draws [][]int) []history.Record {
	out := make([]history.Record, len(draws))
	for i, values := range draws {
		rec := history.Record{Period: FirstPeriod + int64(len(draws)-1-i)}
		for _, v := range values {
			rec.Numbers = append(rec.Numbers, history.RawNumber{Value: v})
		}
		out[i] = rec
	}
	return out
}

// HistoryOf decorates value lists (newest first) into a History.
func HistoryOf(draws [][]int) history.History {
	loader := history.NewLoader(history.StaticSource(Records(draws)), zerolog.Nop())
	return loader.LoadGeneral(context.Background())
}

// RandomDraws returns n draws of seven distinct values, newest first,
// reproducible for a given seed.
func RandomDraws(n int, seed int64) [][]int {
	rng := rand.New(rand.NewSource(seed))
	out := make([][]int, n)
	for i := range out {
		out[i] = rng.Perm(49)[:7]
		for j := range out[i] {
			out[i][j]++
		}
	}
	return out
}

// SyntheticHistory is HistoryOf(RandomDraws(n, seed)).
func SyntheticHistory(n int, seed int64) history.History {
	return HistoryOf(RandomDraws(n, seed))
}

// SpecialSeriesOf builds a special series from special values, newest
// first, each wrapped in a seven-value draw.
func SpecialSeriesOf(specials ...int) history.SpecialSeries {
	draws := make([][]int, len(specials))
	for i, s := range specials {
		draws[i] = append(fillers(s), s)
	}
	return HistoryOf(draws).Specials(history.DefaultWidth)
}

// fillers returns six values distinct from special.
func fillers(special int) []int {
	out := make([]int, 0, 6)
	for v := 1; len(out) < 6; v++ {
		if v != special {
			out = append(out, v)
		}
	}
	return out
}

package backtest

import (
	"math"
	"time"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/drawlab/internal/modules/scoring"
	"github.com/aristath/drawlab/internal/utils"
)

// Outcome is the result of predicting one past draw. For special
// strategies ValueHits and ZodiacHits are 0 or 1.
type Outcome struct {
	Period     int64   `json:"period"`
	Actual     []int   `json:"actual"`
	ValueHits  int     `json:"value_hits"`
	ZodiacHits int     `json:"zodiac_hits"`
	PairHit    bool    `json:"pair_hit,omitempty"`
	TripleHit  bool    `json:"triple_hit,omitempty"`
	Score      float64 `json:"score"`
}

// Report summarises a replay. Outcomes are newest first; the rolling
// series are oldest first.
type Report struct {
	Variant   scoring.Variant `json:"variant"`
	Depth     int             `json:"depth"`
	Tested    int             `json:"tested"`
	Fitness   float64         `json:"fitness"`
	MeanScore float64         `json:"mean_score"`
	StdScore  float64         `json:"std_score"`

	ValueHitRate  float64 `json:"value_hit_rate"`
	ZodiacHitRate float64 `json:"zodiac_hit_rate"`
	PairHitRate   float64 `json:"pair_hit_rate"`
	TripleHitRate float64 `json:"triple_hit_rate"`

	RollingWindow        int       `json:"rolling_window"`
	RollingValueHitRate  []float64 `json:"rolling_value_hit_rate"`
	RollingZodiacHitRate []float64 `json:"rolling_zodiac_hit_rate"`

	Outcomes    []Outcome `json:"outcomes"`
	GeneratedAt int64     `json:"generated_at"`
}

// Report replays like Fitness and keeps every outcome.
func (b *Backtester) Report(v scoring.Variant, w scoring.Weights, depth int) (*Report, error) {
	timer := utils.NewTimer("backtest_report", b.log)
	defer timer.Stop()

	var outcomes []Outcome
	if err := b.replay(v, w, depth, func(o Outcome) { outcomes = append(outcomes, o) }); err != nil {
		return nil, err
	}

	r := &Report{
		Variant:     v,
		Depth:       depth,
		Tested:      len(outcomes),
		Outcomes:    outcomes,
		GeneratedAt: time.Now().Unix(),
	}
	if len(outcomes) == 0 {
		return r, nil
	}

	n := len(outcomes)
	scores := make([]float64, n)
	valueHits := make([]float64, n)
	zodiacHits := make([]float64, n)
	var pairs, triples int
	for i, o := range outcomes {
		// chronological order for the rolling series
		j := n - 1 - i
		scores[j] = o.Score
		if o.ValueHits > 0 {
			valueHits[j] = 1
		}
		if o.ZodiacHits > 0 {
			zodiacHits[j] = 1
		}
		if o.PairHit {
			pairs++
		}
		if o.TripleHit {
			triples++
		}
		r.Fitness += o.Score
	}

	r.MeanScore = stat.Mean(scores, nil)
	if n > 1 {
		r.StdScore = stat.StdDev(scores, nil)
	}
	r.ValueHitRate = stat.Mean(valueHits, nil)
	r.ZodiacHitRate = stat.Mean(zodiacHits, nil)
	r.PairHitRate = float64(pairs) / float64(n)
	r.TripleHitRate = float64(triples) / float64(n)

	window := b.cfg.RollingWindow
	if window > n {
		window = n
	}
	r.RollingWindow = window
	r.RollingValueHitRate = rolling(valueHits, window)
	r.RollingZodiacHitRate = rolling(zodiacHits, window)

	return r, nil
}

// rolling is the simple moving average of series, dropping the warmup.
func rolling(series []float64, window int) []float64 {
	sma := talib.Sma(series, window)
	out := make([]float64, 0, len(sma)-window+1)
	for _, v := range sma[window-1:] {
		if math.IsNaN(v) {
			v = 0
		}
		out = append(out, v)
	}
	return out
}

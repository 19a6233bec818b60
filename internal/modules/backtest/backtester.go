package backtest

import (
	"github.com/rs/zerolog"

	"github.com/aristath/drawlab/internal/modules/history"
	"github.com/aristath/drawlab/internal/modules/scoring"
)

// Config tunes the replay.
type Config struct {
	// MinLookback is the number of draws a general prediction must always
	// have behind it.
	MinLookback int
	// SpecialMargin is added to a special strategy's lookback to get its
	// minimum history.
	SpecialMargin int
	// RollingWindow is the moving-average window of report hit rates.
	RollingWindow int
	Rewards       Rewards
}

// DefaultConfig returns the stock replay settings.
func DefaultConfig() Config {
	return Config{
		MinLookback:   30,
		SpecialMargin: 5,
		RollingWindow: 10,
		Rewards:       DefaultRewards(),
	}
}

// Backtester computes strategy fitness. It is safe for concurrent use.
type Backtester struct {
	engine *scoring.Engine
	data   *Dataset
	cfg    Config
	log    zerolog.Logger
}

// New creates a backtester over data.
func New(engine *scoring.Engine, data *Dataset, cfg Config, log zerolog.Logger) *Backtester {
	if cfg.MinLookback <= 0 {
		cfg.MinLookback = DefaultConfig().MinLookback
	}
	if cfg.SpecialMargin < 0 {
		cfg.SpecialMargin = DefaultConfig().SpecialMargin
	}
	if cfg.RollingWindow <= 0 {
		cfg.RollingWindow = DefaultConfig().RollingWindow
	}
	return &Backtester{
		engine: engine,
		data:   data,
		cfg:    cfg,
		log:    log.With().Str("component", "backtester").Logger(),
	}
}

// Dataset returns the replayed history.
func (b *Backtester) Dataset() *Dataset {
	return b.data
}

// Fitness replays up to depth offsets and returns the accumulated reward.
// Short history and unusable weights score 0.
func (b *Backtester) Fitness(v scoring.Variant, w scoring.Weights, depth int) float64 {
	score, err := b.Evaluate(v, w, depth)
	if err != nil {
		b.log.Debug().Err(err).Str("variant", string(v)).Msg("Strategy not evaluable, scoring 0")
		return 0
	}
	return score
}

// Evaluate is Fitness with configuration errors surfaced.
func (b *Backtester) Evaluate(v scoring.Variant, w scoring.Weights, depth int) (float64, error) {
	var total float64
	err := b.replay(v, w, depth, func(o Outcome) { total += o.Score })
	return total, err
}

// replay walks offsets 0..n-1 (newest first) and reports each outcome.
func (b *Backtester) replay(v scoring.Variant, w scoring.Weights, depth int, visit func(Outcome)) error {
	switch v.Kind() {
	case scoring.KindGeneral:
		cfg, err := scoring.NewGeneralConfig(v, w)
		if err != nil {
			return err
		}
		b.replayGeneral(cfg, depth, visit)
	default:
		cfg, err := scoring.NewSpecialConfig(v, w)
		if err != nil {
			return err
		}
		b.replaySpecial(cfg, depth, visit)
	}
	return nil
}

func (b *Backtester) replayGeneral(cfg scoring.GeneralConfig, depth int, visit func(Outcome)) {
	h := b.data.History
	n := offsets(len(h), b.cfg.MinLookback, depth)
	rw := b.cfg.Rewards.General

	for i := 0; i < n; i++ {
		target := h[i]
		pred, err := b.engine.General(cfg, h[i+1:])
		if err != nil {
			continue
		}

		actual := valueSet(target)
		o := Outcome{Period: target.Period, Actual: target.Values()}
		for _, vs := range pred.Values {
			if actual[vs.Value] {
				o.ValueHits++
			}
		}
		actualZodiacs := make(map[string]bool, len(target.Entries))
		for _, e := range target.Entries {
			actualZodiacs[e.Zodiac] = true
		}
		for _, z := range pred.Zodiacs {
			if actualZodiacs[z.Label] {
				o.ZodiacHits++
			}
		}
		o.PairHit = anySubset(pred.Pairs, actual)
		o.TripleHit = anySubset(pred.Triples, actual)

		o.Score = float64(o.ValueHits)*rw.ValueHit + float64(o.ZodiacHits)*rw.ZodiacHit
		if o.PairHit {
			o.Score += rw.PairHit
		}
		if o.TripleHit {
			o.Score += rw.TripleHit
		}
		visit(o)
	}
}

func (b *Backtester) replaySpecial(cfg scoring.SpecialConfig, depth int, visit func(Outcome)) {
	s := b.data.Specials
	n := offsets(len(s), cfg.Lookback+b.cfg.SpecialMargin, depth)
	rw := b.cfg.Rewards.Special

	for i := 0; i < n; i++ {
		target := s[i]
		pred, err := b.engine.Special(cfg, s[i+1:])
		if err != nil {
			continue
		}

		o := Outcome{Period: target.Period, Actual: []int{target.Value}}
		for _, z := range pred.Zodiacs {
			if z.Label == target.Zodiac {
				o.ZodiacHits = 1
				o.Score += rw.ZodiacHit
				break
			}
		}
		for _, vs := range pred.Values {
			if vs.Value == target.Value {
				o.ValueHits = 1
				break
			}
		}
		if o.ValueHits > 0 {
			o.Score += rw.ValueHit
		} else {
			o.Score += rw.ValueMiss
		}
		visit(o)
	}
}

// offsets bounds the replay: no offset may leave fewer than margin draws
// behind it.
func offsets(length, margin, depth int) int {
	if length <= margin || depth <= 0 {
		return 0
	}
	if avail := length - margin; depth > avail {
		return avail
	}
	return depth
}

func valueSet(d history.Draw) map[int]bool {
	out := make(map[int]bool, len(d.Entries))
	for _, e := range d.Entries {
		out[e.Value] = true
	}
	return out
}

// anySubset reports whether any combination is fully contained in actual.
func anySubset(combos []scoring.Combination, actual map[int]bool) bool {
	for _, c := range combos {
		all := true
		for _, v := range c.Values {
			if !actual[v] {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

// Package backtest replays history to score strategies: each offset
// predicts a past draw from the draws before it and tallies hits.
package backtest

// GeneralRewards are the per-hit coefficients of the general fitness.
type GeneralRewards struct {
	ValueHit  float64 `json:"value_hit"`
	ZodiacHit float64 `json:"zodiac_hit"`
	PairHit   float64 `json:"pair_hit"`
	TripleHit float64 `json:"triple_hit"`
}

// SpecialRewards are the per-offset coefficients of the special fitness.
// ValueMiss is added (usually negative) when the special value is not in
// the predicted set.
type SpecialRewards struct {
	ZodiacHit float64 `json:"zodiac_hit"`
	ValueHit  float64 `json:"value_hit"`
	ValueMiss float64 `json:"value_miss"`
}

// Rewards bundles both reward tables.
type Rewards struct {
	General GeneralRewards `json:"general"`
	Special SpecialRewards `json:"special"`
}

// DefaultRewards returns the stock reward table.
func DefaultRewards() Rewards {
	return Rewards{
		General: GeneralRewards{
			ValueHit:  10,
			ZodiacHit: 15,
			PairHit:   40,
			TripleHit: 100,
		},
		Special: SpecialRewards{
			ZodiacHit: 100,
			ValueHit:  500,
			ValueMiss: -50,
		},
	}
}

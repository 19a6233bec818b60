// Package predictions generates next-period predictions with the active
// strategies and reviews them once the draw is known.
package predictions

import (
	"time"

	"github.com/aristath/drawlab/internal/modules/scoring"
	"github.com/aristath/drawlab/internal/modules/strategies"
)

// Record is a stored prediction for one lottery, variant and period.
// Exactly one of General and Special is set.
type Record struct {
	Lottery   string                     `json:"lottery"`
	Variant   scoring.Variant            `json:"variant"`
	Period    int64                      `json:"period"`
	RunID     string                     `json:"run_id,omitempty"`
	Source    strategies.Source          `json:"source"`
	General   *scoring.GeneralPrediction `json:"general,omitempty"`
	Special   *scoring.SpecialPrediction `json:"special,omitempty"`
	CreatedAt time.Time                  `json:"created_at"`
}

// payload is the stored JSON body of a Record.
type payload struct {
	Source  strategies.Source          `json:"source"`
	General *scoring.GeneralPrediction `json:"general,omitempty"`
	Special *scoring.SpecialPrediction `json:"special,omitempty"`
}

// Review compares the stored predictions for a period with its draw.
type Review struct {
	Lottery string `json:"lottery"`
	Period  int64  `json:"period"`
	// ActualValues are the regular values, ascending.
	ActualValues []int `json:"actual_values"`
	// ActualZodiacs are the distinct zodiacs of the regular values in
	// zodiac order.
	ActualZodiacs       []string        `json:"actual_zodiacs"`
	ActualSpecial       int             `json:"actual_special"`
	ActualSpecialZodiac string          `json:"actual_special_zodiac"`
	Variants            []VariantReview `json:"variants"`
	ReviewedAt          time.Time       `json:"reviewed_at"`
}

// VariantReview holds the hits of one variant's prediction.
type VariantReview struct {
	Variant scoring.Variant `json:"variant"`
	// ValueHits counts predicted values among all drawn values.
	ValueHits int `json:"value_hits"`
	// ZodiacHits counts predicted zodiacs among the regular zodiacs
	// (general) or is 0/1 for the special zodiac (special).
	ZodiacHits       int      `json:"zodiac_hits"`
	PairHit          bool     `json:"pair_hit"`
	TripleHit        bool     `json:"triple_hit"`
	SpecialValueHit  bool     `json:"special_value_hit"`
	PredictedValues  []int    `json:"predicted_values"`
	PredictedZodiacs []string `json:"predicted_zodiacs"`
}

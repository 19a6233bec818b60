package scoring

import (
	"errors"

	"github.com/aristath/drawlab/internal/modules/categories"
	"github.com/aristath/drawlab/internal/modules/history"
)

// ErrInsufficientHistory means there is nothing to score from. Callers
// treat it as a neutral result.
var ErrInsufficientHistory = errors.New("insufficient history")

// Output sizes.
const (
	candidatePool    = 20
	generalZodiacs   = 5
	generalValues    = 10
	generalCombos    = 5
	comboSumMin      = 40
	comboSumMax      = 110
	specialV5Zodiacs = 4
	specialV5Values  = 8
	specialV7Hot     = 6
	specialV7Defence = 2
	specialV7Values  = 12
	specialV7Coldest = 3
	neverSeenSpecial = 100
	coldValueGap     = 40
	cycleWindow      = 5
)

// GeneralPrediction ranks values, zodiacs and combinations for a whole draw.
type GeneralPrediction struct {
	Variant       Variant       `json:"variant"`
	Zodiacs       []LabelScore  `json:"zodiacs"`
	Values        []ValueScore  `json:"values"`
	Pairs         []Combination `json:"pairs"`
	Triples       []Combination `json:"triples"`
	SpecialValue  int           `json:"special_value"`
	SpecialZodiac string        `json:"special_zodiac"`
	// CategoryLeaders ranks the labels of every non-zodiac category by
	// their count in the trend window.
	CategoryLeaders map[categories.Category][]LabelScore `json:"category_leaders"`
}

// SpecialPrediction ranks candidates for the special value.
type SpecialPrediction struct {
	Variant Variant `json:"variant"`
	// Zodiacs is the predicted zodiac set: the top four for v5, six hot
	// plus two defence zodiacs for v7.
	Zodiacs          []LabelScore `json:"zodiacs"`
	DefenceZodiacs   []string     `json:"defence_zodiacs,omitempty"`
	Values           []ValueScore `json:"values"`
	PredictedColor   string       `json:"predicted_color"`
	PredictedTail    int          `json:"predicted_tail"`
	PredictedElement string       `json:"predicted_element"`
	ColdestZodiacs   []string     `json:"coldest_zodiacs"`
}

// Engine evaluates strategies against history. It holds no mutable state
// and is safe for concurrent use.
type Engine struct {
	table *categories.Table
}

// NewEngine creates an engine over the default category table.
func NewEngine() *Engine {
	return &Engine{table: categories.Default()}
}

// Table exposes the category table the engine scores with.
func (e *Engine) Table() *categories.Table {
	return e.table
}

// PredictGeneral scores h with a general variant.
func (e *Engine) PredictGeneral(v Variant, h history.History, w Weights) (*GeneralPrediction, error) {
	cfg, err := NewGeneralConfig(v, w)
	if err != nil {
		return nil, err
	}
	return e.General(cfg, h)
}

// PredictSpecial scores s with a special variant.
func (e *Engine) PredictSpecial(v Variant, s history.SpecialSeries, w Weights) (*SpecialPrediction, error) {
	cfg, err := NewSpecialConfig(v, w)
	if err != nil {
		return nil, err
	}
	return e.Special(cfg, s)
}

// Special dispatches on cfg.Variant.
func (e *Engine) Special(cfg SpecialConfig, s history.SpecialSeries) (*SpecialPrediction, error) {
	if len(s) == 0 {
		return nil, ErrInsufficientHistory
	}
	switch cfg.Variant {
	case SpecialV5:
		return e.specialV5(cfg, s), nil
	case SpecialV7:
		return e.specialV7(cfg, s), nil
	}
	return nil, kindError(cfg.Variant, KindSpecial)
}

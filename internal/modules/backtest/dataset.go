package backtest

import (
	"github.com/aristath/drawlab/internal/modules/history"
)

// Dataset is the read-only history a Backtester replays. It is shared by
// every fitness evaluation of an optimisation run.
type Dataset struct {
	History  history.History
	Specials history.SpecialSeries
}

// NewDataset derives the special series of h using width.
func NewDataset(h history.History, width int) *Dataset {
	if width <= 0 {
		width = history.DefaultWidth
	}
	return &Dataset{History: h, Specials: h.Specials(width)}
}

package history

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/aristath/drawlab/internal/modules/categories"
)

// DefaultWidth is the number of entries a draw must carry for its special
// value to enter the special series.
const DefaultWidth = 7

// Loader turns a Source into History and SpecialSeries. Load failures are
// soft: they are logged and produce empty results.
type Loader struct {
	source Source
	table  *categories.Table
	log    zerolog.Logger
}

// NewLoader creates a loader over source.
func NewLoader(source Source, log zerolog.Logger) *Loader {
	return &Loader{
		source: source,
		table:  categories.Default(),
		log:    log.With().Str("component", "history_loader").Logger(),
	}
}

// LoadGeneral returns every usable record, deduplicated by period (last seen
// wins) and ordered by period descending.
func (l *Loader) LoadGeneral(ctx context.Context) History {
	records, err := l.source.Records(ctx)
	if err != nil {
		l.log.Warn().Err(err).Msg("History source unavailable, continuing with empty history")
		return History{}
	}
	if len(records) == 0 {
		l.log.Warn().Err(ErrMissingData).Msg("History source returned no records")
		return History{}
	}

	byPeriod := make(map[int64]Draw, len(records))
	skipped := 0
	for _, rec := range records {
		draw, err := l.decorate(rec)
		if err != nil {
			skipped++
			l.log.Debug().Err(err).Int64("period", rec.Period).Msg("Skipping record")
			continue
		}
		byPeriod[draw.Period] = draw
	}

	out := make(History, 0, len(byPeriod))
	for _, d := range byPeriod {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period > out[j].Period })

	if skipped > 0 {
		l.log.Warn().
			Int("skipped", skipped).
			Int("loaded", len(out)).
			Msg("Some draw records were malformed")
	}
	l.log.Debug().Int("draws", len(out)).Msg("History loaded")

	return out
}

// LoadSpecial returns the special value of every record holding at least
// width entries, ordered like LoadGeneral. width <= 0 means DefaultWidth.
func (l *Loader) LoadSpecial(ctx context.Context, width int) SpecialSeries {
	if width <= 0 {
		width = DefaultWidth
	}
	return l.LoadGeneral(ctx).Specials(width)
}

// decorate validates a record and attaches category labels to each value.
func (l *Loader) decorate(rec Record) (Draw, error) {
	if rec.Period <= 0 {
		return Draw{}, fmt.Errorf("period %d: %w", rec.Period, ErrMalformedRecord)
	}
	if len(rec.Numbers) == 0 {
		return Draw{}, fmt.Errorf("period %d has no values: %w", rec.Period, ErrMalformedRecord)
	}

	seen := make(map[int]bool, len(rec.Numbers))
	entries := make([]Entry, 0, len(rec.Numbers))
	for _, n := range rec.Numbers {
		if !categories.ValidValue(n.Value) {
			return Draw{}, fmt.Errorf("period %d value %d out of range: %w", rec.Period, n.Value, ErrMalformedRecord)
		}
		if seen[n.Value] {
			return Draw{}, fmt.Errorf("period %d repeats value %d: %w", rec.Period, n.Value, ErrMalformedRecord)
		}
		seen[n.Value] = true
		entries = append(entries, l.Decorate(n))
	}

	return Draw{Period: rec.Period, Entries: entries}, nil
}

// Decorate labels a single raw value. Upstream zodiac and element labels
// are kept when recognised; color always comes from the category table.
func (l *Loader) Decorate(n RawNumber) Entry {
	zodiac, ok := categories.ParseZodiac(n.Zodiac)
	if !ok {
		zodiac = l.table.ZodiacOf(n.Value)
	}
	element, ok := categories.ParseElement(n.Element)
	if !ok {
		element = l.table.ElementOf(n.Value)
	}
	return Entry{
		Value:   n.Value,
		Zodiac:  zodiac,
		Color:   l.table.ColorOf(n.Value),
		Element: element,
	}
}

// IsMissing reports whether err means the source had no usable data.
func IsMissing(err error) bool {
	return errors.Is(err, ErrMissingData)
}

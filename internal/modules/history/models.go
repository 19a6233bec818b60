// Package history loads historical draw records and exposes them as an
// ordered, deduplicated History and a derived special-value series.
package history

// Entry is one drawn value with its category decoration.
type Entry struct {
	Value   int    `json:"value"`
	Zodiac  string `json:"zodiac"`
	Color   string `json:"color"`
	Element string `json:"element"`
}

// Draw is one historical draw. The last entry is the special value.
type Draw struct {
	Period  int64   `json:"period"`
	Entries []Entry `json:"entries"`
}

// Special returns the special entry of the draw.
func (d Draw) Special() Entry {
	if len(d.Entries) == 0 {
		return Entry{}
	}
	return d.Entries[len(d.Entries)-1]
}

// Regular returns every entry except the special one.
func (d Draw) Regular() []Entry {
	if len(d.Entries) == 0 {
		return nil
	}
	return d.Entries[:len(d.Entries)-1]
}

// Values returns the drawn values in draw order.
func (d Draw) Values() []int {
	out := make([]int, len(d.Entries))
	for i, e := range d.Entries {
		out[i] = e.Value
	}
	return out
}

// Zodiacs returns the zodiac labels of every entry in draw order.
func (d Draw) Zodiacs() []string {
	out := make([]string, len(d.Entries))
	for i, e := range d.Entries {
		out[i] = e.Zodiac
	}
	return out
}

// History is a list of draws, most recent first, with unique periods.
type History []Draw

// Latest returns the most recent draw.
func (h History) Latest() (Draw, bool) {
	if len(h) == 0 {
		return Draw{}, false
	}
	return h[0], true
}

// Find returns the draw for period.
func (h History) Find(period int64) (Draw, bool) {
	for _, d := range h {
		if d.Period == period {
			return d, true
		}
	}
	return Draw{}, false
}

// Specials derives the special-value series from the draws holding at
// least width entries.
func (h History) Specials(width int) SpecialSeries {
	out := make(SpecialSeries, 0, len(h))
	for _, d := range h {
		if len(d.Entries) < width || len(d.Entries) == 0 {
			continue
		}
		s := d.Special()
		out = append(out, SpecialEntry{
			Period:  d.Period,
			Value:   s.Value,
			Zodiac:  s.Zodiac,
			Color:   s.Color,
			Element: s.Element,
		})
	}
	return out
}

// SpecialEntry is the special value of one draw.
type SpecialEntry struct {
	Period  int64  `json:"period"`
	Value   int    `json:"value"`
	Zodiac  string `json:"zodiac"`
	Color   string `json:"color"`
	Element string `json:"element"`
}

// SpecialSeries is ordered most recent first, like History.
type SpecialSeries []SpecialEntry

// Record is the undecorated form a Source hands to the loader.
type Record struct {
	Period  int64       `json:"period"`
	Numbers []RawNumber `json:"numbers"`
}

// RawNumber is one value as published by the upstream feed. Zodiac and
// Element are optional upstream labels.
type RawNumber struct {
	Value   int    `json:"value"`
	Zodiac  string `json:"zodiac,omitempty"`
	Element string `json:"element,omitempty"`
}

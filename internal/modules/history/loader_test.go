package history

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(period int64, values ...int) Record {
	r := Record{Period: period}
	for _, v := range values {
		r.Numbers = append(r.Numbers, RawNumber{Value: v})
	}
	return r
}

type failingSource struct{ err error }

func (f failingSource) Records(context.Context) ([]Record, error) { return nil, f.err }

func TestLoadGeneral_DedupesAndOrders(t *testing.T) {
	src := StaticSource{
		rec(2025001, 1, 2, 3, 4, 5, 6, 7),
		rec(2025003, 11, 12, 13, 14, 15, 16, 17),
		rec(2025002, 21, 22, 23, 24, 25, 26, 27),
		rec(2025001, 31, 32, 33, 34, 35, 36, 37), // later duplicate wins
	}

	h := NewLoader(src, zerolog.Nop()).LoadGeneral(context.Background())

	require.Len(t, h, 3)
	assert.Equal(t, []int64{2025003, 2025002, 2025001}, []int64{h[0].Period, h[1].Period, h[2].Period})
	assert.Equal(t, 31, h[2].Entries[0].Value)
	assert.Equal(t, 37, h[2].Special().Value)

	latest, ok := h.Latest()
	require.True(t, ok)
	assert.Equal(t, int64(2025003), latest.Period)
}

func TestLoadGeneral_SkipsMalformedRecords(t *testing.T) {
	src := StaticSource{
		rec(1, 1, 2, 3, 4, 5, 6, 7),
		rec(2, 1, 1, 3, 4, 5, 6, 7),  // duplicate value
		rec(3, 0, 2, 3, 4, 5, 6, 7),  // out of range
		rec(4, 1, 2, 3, 4, 5, 6, 50), // out of range
		rec(0, 1, 2, 3, 4, 5, 6, 7),  // bad period
		{Period: 6},                  // no values
	}

	h := NewLoader(src, zerolog.Nop()).LoadGeneral(context.Background())

	require.Len(t, h, 1)
	assert.Equal(t, int64(1), h[0].Period)
}

func TestLoadGeneral_SoftFailures(t *testing.T) {
	tests := []struct {
		name string
		src  Source
	}{
		{"source error", failingSource{err: errors.New("disk on fire")}},
		{"missing file", NewJSONFileSource(filepath.Join(t.TempDir(), "absent.json"), zerolog.Nop())},
		{"empty source", StaticSource{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewLoader(tt.src, zerolog.Nop()).LoadGeneral(context.Background())
			assert.NotNil(t, h)
			assert.Empty(t, h)
		})
	}
}

func TestLoadGeneral_Decoration(t *testing.T) {
	src := StaticSource{{
		Period: 10,
		Numbers: []RawNumber{
			{Value: 7},
			{Value: 8, Zodiac: "猪", Element: "金"},
			{Value: 9, Zodiac: "nonsense"},
		},
	}}

	h := NewLoader(src, zerolog.Nop()).LoadGeneral(context.Background())
	require.Len(t, h, 1)
	e := h[0].Entries

	assert.Equal(t, Entry{Value: 7, Zodiac: "pig", Color: "red", Element: "wood"}, e[0])
	// Upstream labels win when recognised.
	assert.Equal(t, Entry{Value: 8, Zodiac: "pig", Color: "red", Element: "metal"}, e[1])
	// Unrecognised upstream labels fall back to the table.
	assert.Equal(t, "rooster", e[2].Zodiac)
}

func TestLoadSpecial_FiltersByWidth(t *testing.T) {
	src := StaticSource{
		rec(3, 1, 2, 3, 4, 5, 6, 7),
		rec(2, 1, 2, 3, 4, 5, 8),
		rec(1, 11, 12, 13, 14, 15, 16, 49),
	}
	loader := NewLoader(src, zerolog.Nop())

	series := loader.LoadSpecial(context.Background(), 0)
	require.Len(t, series, 2)
	assert.Equal(t, SpecialEntry{Period: 3, Value: 7, Zodiac: "pig", Color: "red", Element: "wood"}, series[0])
	assert.Equal(t, int64(1), series[1].Period)
	assert.Equal(t, "snake", series[1].Zodiac)

	series = loader.LoadSpecial(context.Background(), 6)
	assert.Len(t, series, 3)
}

func TestMultiSource(t *testing.T) {
	ctx := context.Background()

	t.Run("later sources win collisions", func(t *testing.T) {
		src := MultiSource{
			StaticSource{rec(1, 1, 2, 3, 4, 5, 6, 7)},
			failingSource{err: ErrMissingData},
			StaticSource{rec(1, 11, 12, 13, 14, 15, 16, 17)},
		}
		h := NewLoader(src, zerolog.Nop()).LoadGeneral(ctx)
		require.Len(t, h, 1)
		assert.Equal(t, 17, h[0].Special().Value)
	})

	t.Run("all failing", func(t *testing.T) {
		_, err := MultiSource{failingSource{err: ErrMissingData}}.Records(ctx)
		assert.True(t, IsMissing(err))
	})

	t.Run("empty", func(t *testing.T) {
		_, err := MultiSource{}.Records(ctx)
		assert.ErrorIs(t, err, ErrMissingData)
	})
}

func TestJSONFileSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "feed.json")
	feed := `{"totalRecords": [
		{"period": "2025002", "numberList": [
			{"number": "01", "shengXiao": "蛇", "wuXing": "火"},
			{"number": 2}, {"number": "3"}, {"number": "4"}, {"number": "5"}, {"number": "6"},
			{"number": "07", "shengXiao": "猪", "wuXing": "木"}
		]},
		{"period": 2025001, "numberList": [{"number": "x"}]},
		{"period": "bad", "numberList": [{"number": "1"}]}
	]}`
	require.NoError(t, os.WriteFile(path, []byte(feed), 0644))

	records, err := NewJSONFileSource(path, zerolog.Nop()).Records(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(2025002), records[0].Period)
	require.Len(t, records[0].Numbers, 7)
	assert.Equal(t, RawNumber{Value: 1, Zodiac: "蛇", Element: "火"}, records[0].Numbers[0])
	assert.Equal(t, 2, records[0].Numbers[1].Value)

	t.Run("garbage file is missing data", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0644))
		_, err := NewJSONFileSource(bad, zerolog.Nop()).Records(context.Background())
		assert.ErrorIs(t, err, ErrMissingData)
	})
}

func TestParseFeed_BadRecordDoesNotDropFeed(t *testing.T) {
	feed := `{"totalRecords": [
		{"period": "2025003", "numberList": [{"number": "1"}, {"number": "2"}]},
		{"period": "2025002", "numberList": [{"number": true}]},
		{"period": "2025001", "numberList": "oops"},
		{"period": 2025000, "numberList": [{"number": 9}, {"number": "10"}]}
	]}`

	records, err := ParseFeed([]byte(feed), zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(2025003), records[0].Period)
	assert.Equal(t, int64(2025000), records[1].Period)
	assert.Equal(t, 10, records[1].Numbers[1].Value)
}

func TestParseFeedRecord_Malformed(t *testing.T) {
	for _, raw := range []string{
		`{"period": "2025002", "numberList": [{"number": true}]}`,
		`{"period": "x", "numberList": []}`,
		`{"period": "2025002", "numberList": [{"number": "seven"}]}`,
	} {
		_, err := parseFeedRecord([]byte(raw))
		assert.ErrorIs(t, err, ErrMalformedRecord, raw)
	}
}

func TestDraw_Helpers(t *testing.T) {
	d := Draw{Period: 1, Entries: []Entry{{Value: 3, Zodiac: "rabbit"}, {Value: 9, Zodiac: "rooster"}}}
	assert.Equal(t, []int{3, 9}, d.Values())
	assert.Equal(t, []string{"rabbit", "rooster"}, d.Zodiacs())
	assert.Len(t, d.Regular(), 1)
	assert.Equal(t, Entry{}, Draw{}.Special())
	assert.Nil(t, Draw{}.Regular())

	h := History{d}
	found, ok := h.Find(1)
	assert.True(t, ok)
	assert.Equal(t, d.Period, found.Period)
	_, ok = h.Find(2)
	assert.False(t, ok)
	_, ok = History{}.Latest()
	assert.False(t, ok)
}

package history

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// JSONFileSource reads the upstream feed format:
//
//	{"totalRecords": [{"period": "2025123", "numberList": [
//	    {"number": "07", "shengXiao": "猪", "wuXing": "木"}, ...]}]}
//
// Periods and numbers may be JSON strings or numbers.
type JSONFileSource struct {
	Path string
	log  zerolog.Logger
}

// NewJSONFileSource creates a source reading path. Skipped records are
// logged to log.
func NewJSONFileSource(path string, log zerolog.Logger) *JSONFileSource {
	return &JSONFileSource{
		Path: path,
		log:  log.With().Str("source", path).Logger(),
	}
}

type feedFile struct {
	TotalRecords []json.RawMessage `json:"totalRecords"`
}

type feedRecord struct {
	Period     flexString   `json:"period"`
	NumberList []feedNumber `json:"numberList"`
}

type feedNumber struct {
	Number    flexString `json:"number"`
	ShengXiao string     `json:"shengXiao"`
	WuXing    string     `json:"wuXing"`
}

// flexString accepts both "07" and 7.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// Records implements Source.
func (s *JSONFileSource) Records(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("history file %s not found: %w", s.Path, ErrMissingData)
		}
		return nil, fmt.Errorf("failed to read history file %s: %w", s.Path, err)
	}

	return ParseFeed(data, s.log)
}

// ParseFeed decodes the upstream feed format. Each record is decoded on
// its own, so one bad record is logged and dropped without losing the
// rest. Range checks happen in the loader.
func ParseFeed(data []byte, log zerolog.Logger) ([]Record, error) {
	var feed feedFile
	if err := json.Unmarshal(data, &feed); err != nil {
		return nil, fmt.Errorf("failed to parse history feed: %v: %w", err, ErrMissingData)
	}

	records := make([]Record, 0, len(feed.TotalRecords))
	for i, raw := range feed.TotalRecords {
		rec, err := parseFeedRecord(raw)
		if err != nil {
			log.Warn().Err(err).Int("index", i).Msg("Skipping feed record")
			continue
		}
		records = append(records, rec)
	}

	return records, nil
}

func parseFeedRecord(raw json.RawMessage) (Record, error) {
	var fr feedRecord
	if err := json.Unmarshal(raw, &fr); err != nil {
		return Record{}, fmt.Errorf("%v: %w", err, ErrMalformedRecord)
	}
	period, err := strconv.ParseInt(string(fr.Period), 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("period %q: %w", fr.Period, ErrMalformedRecord)
	}
	rec := Record{Period: period, Numbers: make([]RawNumber, 0, len(fr.NumberList))}
	for _, fn := range fr.NumberList {
		v, err := strconv.Atoi(string(fn.Number))
		if err != nil {
			return Record{}, fmt.Errorf("period %d number %q: %w", period, fn.Number, ErrMalformedRecord)
		}
		rec.Numbers = append(rec.Numbers, RawNumber{
			Value:   v,
			Zodiac:  fn.ShengXiao,
			Element: fn.WuXing,
		})
	}
	return rec, nil
}

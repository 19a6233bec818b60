package history

import (
	"context"
	"errors"
	"fmt"
)

// Source yields raw draw records in any order, possibly with duplicates.
type Source interface {
	Records(ctx context.Context) ([]Record, error)
}

// MultiSource concatenates sources in order. Later sources win period
// collisions once the loader deduplicates. Failing sources are skipped as
// long as at least one source succeeds.
type MultiSource []Source

// Records implements Source.
func (m MultiSource) Records(ctx context.Context) ([]Record, error) {
	var (
		all  []Record
		errs []error
		ok   bool
	)
	for _, src := range m {
		recs, err := src.Records(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		ok = true
		all = append(all, recs...)
	}
	if !ok {
		if len(errs) == 0 {
			return nil, fmt.Errorf("no sources configured: %w", ErrMissingData)
		}
		return nil, errors.Join(errs...)
	}
	return all, nil
}

// StaticSource serves a fixed slice of records.
type StaticSource []Record

// Records implements Source.
func (s StaticSource) Records(context.Context) ([]Record, error) {
	return append([]Record(nil), s...), nil
}

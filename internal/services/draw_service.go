// Package services composes the domain modules into the operations the
// scheduler and the HTTP API expose.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/aristath/drawlab/internal/events"
	"github.com/aristath/drawlab/internal/modules/history"
)

// ErrUnknownLottery is returned for lottery names that are not configured.
var ErrUnknownLottery = errors.New("unknown lottery")

// LotteryConfig names a lottery and where its draws are imported from.
// Feed may be nil when draws are only written through the repository.
type LotteryConfig struct {
	Name string
	Feed history.Source
}

type lottery struct {
	name  string
	feed  history.Source
	draws *history.DrawRepository
}

// DrawService owns the stored draws of every configured lottery.
type DrawService struct {
	lotteries map[string]*lottery
	names     []string
	events    *events.Manager
	log       zerolog.Logger
}

// NewDrawService creates one draw repository per lottery over db.
func NewDrawService(db *sql.DB, lotteries []LotteryConfig, ev *events.Manager, log zerolog.Logger) *DrawService {
	s := &DrawService{
		lotteries: make(map[string]*lottery, len(lotteries)),
		events:    ev,
		log:       log.With().Str("component", "draw_service").Logger(),
	}
	for _, lc := range lotteries {
		if _, dup := s.lotteries[lc.Name]; dup {
			continue
		}
		s.lotteries[lc.Name] = &lottery{
			name:  lc.Name,
			feed:  lc.Feed,
			draws: history.NewDrawRepository(db, lc.Name, log),
		}
		s.names = append(s.names, lc.Name)
	}
	sort.Strings(s.names)
	return s
}

// Names returns the configured lotteries in name order.
func (s *DrawService) Names() []string {
	return append([]string(nil), s.names...)
}

// Has reports whether name is configured.
func (s *DrawService) Has(name string) bool {
	_, ok := s.lotteries[name]
	return ok
}

// Repository returns the draw repository of name.
func (s *DrawService) Repository(name string) (*history.DrawRepository, error) {
	l, err := s.get(name)
	if err != nil {
		return nil, err
	}
	return l.draws, nil
}

// Import copies the feed of name into the database. Lotteries without a
// feed import nothing.
func (s *DrawService) Import(ctx context.Context, name string) (int, error) {
	l, err := s.get(name)
	if err != nil {
		return 0, err
	}
	if l.feed == nil {
		s.log.Debug().Str("lottery", name).Msg("No feed configured, skipping import")
		return 0, nil
	}

	n, err := l.draws.Import(ctx, l.feed)
	if err != nil {
		return 0, fmt.Errorf("failed to import %s: %w", name, err)
	}

	var latest int64
	if recent, err := l.draws.Recent(ctx, 1); err == nil && len(recent) > 0 {
		latest = recent[0].Period
	}
	s.events.Emit(ctx, "history", &events.DrawsImportedData{
		Lottery: name,
		Records: n,
		Latest:  latest,
	})
	return n, nil
}

// History loads the stored draws of name, most recent first.
func (s *DrawService) History(ctx context.Context, name string) (history.History, error) {
	l, err := s.get(name)
	if err != nil {
		return nil, err
	}
	return history.NewLoader(l.draws, s.log).LoadGeneral(ctx), nil
}

// Count returns the number of stored draws of name.
func (s *DrawService) Count(ctx context.Context, name string) (int, error) {
	l, err := s.get(name)
	if err != nil {
		return 0, err
	}
	return l.draws.Count(ctx)
}

func (s *DrawService) get(name string) (*lottery, error) {
	l, ok := s.lotteries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLottery, name)
	}
	return l, nil
}

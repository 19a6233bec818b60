package strategies

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/aristath/drawlab/internal/modules/optimizer"
	"github.com/aristath/drawlab/internal/modules/scoring"
)

// FileStore writes the best weights and the fitness log of a lottery and
// variant as indented JSON files.
type FileStore struct {
	dir string
	log zerolog.Logger
}

// NewFileStore stores files under dir.
func NewFileStore(dir string, log zerolog.Logger) *FileStore {
	return &FileStore{
		dir: dir,
		log: log.With().Str("component", "strategy_files").Logger(),
	}
}

// BestPath is best_strategy_<lottery>_<variant>.json.
func (s *FileStore) BestPath(lottery string, v scoring.Variant) string {
	return filepath.Join(s.dir, fmt.Sprintf("best_strategy_%s_%s.json", lottery, v))
}

// LogPath is <lottery>_<variant>_optimizer_log.json.
func (s *FileStore) LogPath(lottery string, v scoring.Variant) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s_optimizer_log.json", lottery, v))
}

// SaveBest writes the best weights.
func (s *FileStore) SaveBest(lottery string, v scoring.Variant, w scoring.Weights) error {
	return s.write(s.BestPath(lottery, v), w)
}

// SaveLog writes the fitness log.
func (s *FileStore) SaveLog(lottery string, v scoring.Variant, entries []optimizer.LogEntry) error {
	if entries == nil {
		entries = []optimizer.LogEntry{}
	}
	return s.write(s.LogPath(lottery, v), entries)
}

// LoadBest reads the best weights. A missing file returns nil weights.
func (s *FileStore) LoadBest(lottery string, v scoring.Variant) (scoring.Weights, error) {
	data, err := os.ReadFile(s.BestPath(lottery, v))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read best strategy: %w", err)
	}
	return scoring.ParseWeights(data)
}

// LoadLog reads the fitness log. A missing file returns nil.
func (s *FileStore) LoadLog(lottery string, v scoring.Variant) ([]optimizer.LogEntry, error) {
	data, err := os.ReadFile(s.LogPath(lottery, v))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read optimizer log: %w", err)
	}
	var entries []optimizer.LogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse optimizer log: %w", err)
	}
	return entries, nil
}

func (s *FileStore) write(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: failed to encode %s: %w", ErrPersistence, filepath.Base(path), err)
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("%w: failed to create %s: %w", ErrPersistence, s.dir, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("%w: failed to write %s: %w", ErrPersistence, filepath.Base(path), err)
	}
	s.log.Debug().Str("path", path).Msg("Wrote strategy file")
	return nil
}

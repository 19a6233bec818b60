package optimizer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/drawlab/internal/modules/scoring"
)

// Checkpoint is the GA state after a completed generation. Resuming from
// it continues with generation Generation.
type Checkpoint struct {
	RunID       string            `msgpack:"run_id"`
	Lottery     string            `msgpack:"lottery"`
	Variant     scoring.Variant   `msgpack:"variant"`
	Config      Config            `msgpack:"config"`
	Generation  int               `msgpack:"generation"`
	Population  []scoring.Weights `msgpack:"population"`
	Best        scoring.Weights   `msgpack:"best"`
	BestFitness float64           `msgpack:"best_fitness"`
	Log         []LogEntry        `msgpack:"log"`
	StartedAt   int64             `msgpack:"started_at"`
}

// compatible reports whether cp can continue a run of v with cfg.
func (cp *Checkpoint) compatible(lottery string, v scoring.Variant, cfg Config) bool {
	return cp.Lottery == lottery &&
		cp.Variant == v &&
		cp.Config.Population == cfg.Population &&
		cp.Config.Generations == cfg.Generations &&
		cp.Config.MutationRate == cfg.MutationRate &&
		cp.Config.TournamentSize == cfg.TournamentSize &&
		cp.Config.Seed == cfg.Seed &&
		cp.Config.Depth == cfg.Depth &&
		len(cp.Population) == cfg.Population &&
		cp.Generation < cfg.Generations &&
		len(cp.Log) == cp.Generation
}

// CheckpointStore keeps one msgpack file per lottery and variant.
type CheckpointStore struct {
	dir string
}

// NewCheckpointStore stores checkpoints under dir.
func NewCheckpointStore(dir string) *CheckpointStore {
	return &CheckpointStore{dir: dir}
}

// Path returns the checkpoint file of lottery and v.
func (s *CheckpointStore) Path(lottery string, v scoring.Variant) string {
	return filepath.Join(s.dir, fmt.Sprintf("checkpoint_%s_%s.msgpack", lottery, v))
}

// Save writes cp atomically.
func (s *CheckpointStore) Save(cp *Checkpoint) error {
	data, err := msgpack.Marshal(cp)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	path := s.Path(cp.Lottery, cp.Variant)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace checkpoint: %w", err)
	}
	return nil
}

// Load reads the checkpoint of lottery and v. A missing file returns nil.
func (s *CheckpointStore) Load(lottery string, v scoring.Variant) (*Checkpoint, error) {
	data, err := os.ReadFile(s.Path(lottery, v))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := msgpack.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	return &cp, nil
}

// Remove deletes the checkpoint of lottery and v if present.
func (s *CheckpointStore) Remove(lottery string, v scoring.Variant) error {
	err := os.Remove(s.Path(lottery, v))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove checkpoint: %w", err)
	}
	return nil
}

// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/aristath/drawlab/internal/events"
	"github.com/aristath/drawlab/internal/modules/backtest"
	"github.com/aristath/drawlab/internal/modules/optimizer"
	"github.com/aristath/drawlab/internal/modules/scoring"
	"github.com/aristath/drawlab/internal/modules/strategies"
	"github.com/aristath/drawlab/internal/utils"
)

// Config holds application configuration
type Config struct {
	DataDir   string // Base directory for the database, strategy files and checkpoints (always absolute)
	LogLevel  string
	LogPretty bool
	DevMode   bool // Disables response compression and the WebSocket origin check
	Port      int

	// AllowedOrigins lists browser origins for CORS and the optimizer
	// WebSocket. Empty means any origin for CORS and same-origin only
	// for the WebSocket.
	AllowedOrigins []string

	Lotteries []Lottery
	DrawWidth int
	Variants  []scoring.Variant
	Optimizer OptimizerConfig
	Rewards   backtest.Rewards
	Cycle     CycleConfig
	Archive   strategies.ArchiveConfig // Bucket empty = archiving disabled
	NATS      events.NATSConfig        // URL empty = no NATS publishing

	// MaintenanceSchedule runs the database integrity check and WAL
	// checkpoint. Empty disables it.
	MaintenanceSchedule string
}

// Lottery names a lottery and its draw feed file.
type Lottery struct {
	Name string
	Feed string // absolute path of the JSON feed
}

// OptimizerConfig holds GA settings. Zero fields fall back to the
// per-variant defaults.
type OptimizerConfig struct {
	Population     int
	Generations    int
	MutationRate   float64
	TournamentSize int
	Depth          int
	Seed           int64
	Workers        int
	NoMutation     bool // GA_MUTATION_RATE explicitly 0
	Checkpoints    bool
}

// GA converts the settings to optimizer overrides.
func (c OptimizerConfig) GA() optimizer.Config {
	return optimizer.Config{
		Population:     c.Population,
		Generations:    c.Generations,
		MutationRate:   c.MutationRate,
		TournamentSize: c.TournamentSize,
		Depth:          c.Depth,
		Seed:           c.Seed,
		Workers:        c.Workers,
		NoMutation:     c.NoMutation,
	}
}

// CycleConfig controls the daily import/review/predict job.
type CycleConfig struct {
	Schedule string // cron expression with seconds; empty disables the job
	Optimize bool
	Timeout  time.Duration
}

// DatabasePath is the SQLite file inside DataDir.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "drawlab.db")
}

// StrategyDir holds best-strategy and optimizer-log files.
func (c *Config) StrategyDir() string {
	return filepath.Join(c.DataDir, "strategies")
}

// CheckpointDir holds GA checkpoints.
func (c *Config) CheckpointDir() string {
	return filepath.Join(c.DataDir, "checkpoints")
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("DRAWLAB_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	lotteries, err := parseLotteries(getEnv("LOTTERIES", "hk=hk_lottery_data_complete.json,macau=macau_lottery_data_complete.json"), absDataDir)
	if err != nil {
		return nil, fmt.Errorf("invalid LOTTERIES: %w", err)
	}
	variants, err := parseVariants(getEnv("VARIANTS", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid VARIANTS: %w", err)
	}

	rewards := backtest.DefaultRewards()
	rewards.General.ValueHit = getEnvAsFloat("REWARD_VALUE_HIT", rewards.General.ValueHit)
	rewards.General.ZodiacHit = getEnvAsFloat("REWARD_ZODIAC_HIT", rewards.General.ZodiacHit)
	rewards.General.PairHit = getEnvAsFloat("REWARD_PAIR_HIT", rewards.General.PairHit)
	rewards.General.TripleHit = getEnvAsFloat("REWARD_TRIPLE_HIT", rewards.General.TripleHit)
	rewards.Special.ZodiacHit = getEnvAsFloat("REWARD_SPECIAL_ZODIAC_HIT", rewards.Special.ZodiacHit)
	rewards.Special.ValueHit = getEnvAsFloat("REWARD_SPECIAL_VALUE_HIT", rewards.Special.ValueHit)
	rewards.Special.ValueMiss = getEnvAsFloat("REWARD_SPECIAL_MISS", rewards.Special.ValueMiss)

	nats := events.DefaultNATSConfig()
	nats.URL = getEnv("NATS_URL", "")
	nats.StreamName = getEnv("NATS_STREAM", nats.StreamName)

	cfg := &Config{
		DataDir:   absDataDir,
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPretty: getEnvAsBool("LOG_PRETTY", false),
		DevMode:   getEnvAsBool("DEV_MODE", false),
		Port:      getEnvAsInt("HTTP_PORT", 8080),
		Lotteries: lotteries,
		DrawWidth: getEnvAsInt("DRAW_WIDTH", 7),
		Variants:  variants,
		Optimizer: OptimizerConfig{
			Population:     getEnvAsInt("GA_POPULATION", 0),
			Generations:    getEnvAsInt("GA_GENERATIONS", 0),
			MutationRate:   getEnvAsFloat("GA_MUTATION_RATE", 0),
			TournamentSize: getEnvAsInt("GA_TOURNAMENT_SIZE", 0),
			Depth:          getEnvAsInt("BACKTEST_DEPTH", optimizer.DefaultDepth),
			Seed:           int64(getEnvAsInt("GA_SEED", 0)),
			Workers:        getEnvAsInt("GA_WORKERS", 0),
			NoMutation:     getEnv("GA_MUTATION_RATE", "") != "" && getEnvAsFloat("GA_MUTATION_RATE", -1) == 0,
			Checkpoints:    getEnvAsBool("GA_CHECKPOINTS", true),
		},
		Rewards: rewards,
		Cycle: CycleConfig{
			Schedule: getEnv("CYCLE_SCHEDULE", "0 30 22 * * *"), // 22:30 daily, after the evening draw
			Optimize: getEnvAsBool("CYCLE_OPTIMIZE", false),
			Timeout:  time.Duration(getEnvAsInt("CYCLE_TIMEOUT_MINUTES", 180)) * time.Minute,
		},
		Archive: strategies.ArchiveConfig{
			Bucket:          getEnv("S3_BUCKET", ""),
			Prefix:          getEnv("S3_PREFIX", "drawlab"),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
		},
		NATS: nats,
	}
	cfg.MaintenanceSchedule = getEnv("MAINTENANCE_SCHEDULE", "0 0 4 * * *") // 04:00 daily
	cfg.AllowedOrigins = utils.ParseCSV(getEnv("ALLOWED_ORIGINS", ""))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if len(c.Lotteries) == 0 {
		return fmt.Errorf("at least one lottery must be configured")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid HTTP_PORT %d", c.Port)
	}
	if c.DrawWidth < 2 {
		return fmt.Errorf("DRAW_WIDTH must be at least 2, got %d", c.DrawWidth)
	}
	if c.Optimizer.MutationRate < 0 || c.Optimizer.MutationRate > 1 {
		return fmt.Errorf("GA_MUTATION_RATE must be within [0,1], got %v", c.Optimizer.MutationRate)
	}
	if (c.Archive.AccessKeyID == "") != (c.Archive.SecretAccessKey == "") {
		return fmt.Errorf("S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY must be set together")
	}
	return nil
}

// parseLotteries reads "name=path" pairs. Relative paths resolve against
// dataDir. Lotteries are returned in name order.
func parseLotteries(s, dataDir string) ([]Lottery, error) {
	pairs, names, err := utils.ParsePairs(s)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	out := make([]Lottery, 0, len(names))
	for _, name := range names {
		feed := pairs[name]
		if !filepath.IsAbs(feed) {
			feed = filepath.Join(dataDir, feed)
		}
		out = append(out, Lottery{Name: name, Feed: feed})
	}
	return out, nil
}

// parseVariants reads a comma-separated variant list. Empty means every
// variant.
func parseVariants(s string) ([]scoring.Variant, error) {
	names := utils.ParseCSV(s)
	if len(names) == 0 {
		return scoring.Variants(), nil
	}
	out := make([]scoring.Variant, 0, len(names))
	seen := make(map[scoring.Variant]bool, len(names))
	for _, name := range names {
		v, err := scoring.ParseVariant(name)
		if err != nil {
			return nil, err
		}
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out, nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

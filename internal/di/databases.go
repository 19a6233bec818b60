package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/drawlab/internal/config"
	"github.com/aristath/drawlab/internal/database"
)

// InitializeDatabases opens drawlab.db and applies its schema
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	db, err := database.New(database.Config{
		Path:    cfg.DatabasePath(),
		Profile: database.ProfileStandard,
		Name:    "drawlab",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize drawlab database: %w", err)
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema to %s: %w", db.Name(), err)
	}
	container.DB = db

	log.Info().Str("path", db.Path()).Msg("Database initialized and schema applied")

	return container, nil
}

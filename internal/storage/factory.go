package storage

import (
	"fmt"
	"log/slog"

	"github.com/rs/zerolog"

	"github.com/m4a3/weathervane/internal/config"
	"github.com/m4a3/weathervane/internal/database"
	"github.com/m4a3/weathervane/internal/flight"
	gormstorage "github.com/m4a3/weathervane/internal/storage/gorm"
	"github.com/m4a3/weathervane/internal/storage/memory"
	sqlitestorage "github.com/m4a3/weathervane/internal/storage/sqlite"
)

// Dependencies holds what the database-backed backends need.
type Dependencies struct {
	Logger        *slog.Logger
	DBLogger      zerolog.Logger
	FlightContext *flight.Context
}

// NewBackend creates a storage backend based on configuration.
func NewBackend(cfg config.StorageConfig, deps Dependencies) (Backend, error) {
	switch cfg.Type {
	case "postgres":
		m := database.NewManager(deps.DBLogger)
		db, err := m.GetPostgresDB()
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		return gormstorage.New(gormstorage.Dependencies{
			DB:            db,
			Logger:        deps.Logger,
			FlightContext: deps.FlightContext,
		}), nil
	case "sqlite":
		return sqlitestorage.New(cfg.SQLite, deps.Logger, deps.DBLogger, deps.FlightContext)
	case "memory":
		return memory.New(cfg.Memory), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

package storage

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open builds the HistoryStore selected by config.Driver.
func Open(config DatabaseConfig, logger *zap.Logger) (HistoryStore, error) {
	switch strings.ToLower(strings.TrimSpace(config.Driver)) {
	case "", DriverMemory:
		logger.Info("Using in-memory storage")
		return NewMemoryStorage(), nil
	case DriverPostgres:
		logger.Info("Using PostgreSQL storage", zap.String("host", config.Host), zap.String("dbname", config.DBName))
		store, err := NewPostgresStorage(config, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case DriverSQLite:
		logger.Info("Using SQLite storage", zap.String("path", config.Path))
		store, err := NewSQLiteStorage(config.Path, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, config.Driver)
	}
}

package storage

import (
	"context"
	"fmt"

	"sublet-scraper/config"
	"sublet-scraper/utils"
)

// Open connects to the backend selected by STORE.
func Open(ctx context.Context, cfg *config.Config, logger *utils.Logger) (Store, error) {
	logger.Info("[storage] opening %s store", cfg.Store)
	switch cfg.Store {
	case "sheets":
		return NewSheetsStore(ctx, cfg.SpreadsheetID, cfg.GoogleSheetsCredentials)
	case "postgres":
		return NewPostgresStore(ctx, cfg.DSN())
	case "redis":
		return NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, cfg.RedisPrefix)
	case "csv":
		return NewCSVStore(cfg.CSVOutputPath, cfg.SeenCSVPath)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

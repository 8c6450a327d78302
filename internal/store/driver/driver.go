// Package driver opens the store backend named in configuration.
package driver

import (
	"context"
	"log/slog"
	"strings"

	"github.com/TAESTUDIOS/psa3/internal/config"
	apperrors "github.com/TAESTUDIOS/psa3/internal/errors"
	"github.com/TAESTUDIOS/psa3/internal/store"
	"github.com/TAESTUDIOS/psa3/internal/store/file"
	"github.com/TAESTUDIOS/psa3/internal/store/memory"
	"github.com/TAESTUDIOS/psa3/internal/store/postgres"
)

func Open(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		driver = config.DefaultStoreDriver
	}

	switch driver {
	case config.DriverMemory:
		slog.Info("Using in-memory store")
		return memory.New(), nil

	case config.DriverFile:
		if strings.TrimSpace(cfg.DataDir) == "" {
			return nil, apperrors.InvalidInput("store.data_dir is required for the file driver")
		}
		lockCfg := file.DefaultLockConfig()
		timeout, err := config.DurationOrDefault(cfg.LockTimeout, config.DefaultStoreLockTimeout)
		if err != nil {
			return nil, apperrors.InvalidInput("store.lock_timeout: " + err.Error())
		}
		lockCfg.LockTimeout = timeout
		s, err := file.Open(cfg.DataDir, lockCfg)
		if err != nil {
			return nil, err
		}
		slog.Info("Using file store", "dir", cfg.DataDir)
		return s, nil

	case config.DriverPostgres:
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return nil, apperrors.InvalidInput("store.database_url is required for the postgres driver")
		}
		s, err := postgres.Open(ctx, cfg.DatabaseURL, postgres.Options{MaxConns: int32(cfg.MaxConns)})
		if err != nil {
			return nil, err
		}
		slog.Info("Using postgres store")
		return s, nil
	}

	return nil, apperrors.InvalidInput("unknown store driver: " + cfg.Driver)
}

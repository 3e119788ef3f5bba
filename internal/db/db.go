// Package db persists connection records. The JSON file store is the
// default; sqlite and postgres go through gorm.
package db

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/arencloud/strata/internal/config"
	"github.com/arencloud/strata/internal/errs"
	"github.com/arencloud/strata/internal/logging"
	"github.com/arencloud/strata/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Store holds connection records keyed by id. Secrets are never part of a
// record.
type Store interface {
	Load() (map[string]models.Connection, error)
	SaveAll(conns map[string]models.Connection) error
	Put(conn models.Connection) error
	Remove(id string) error
}

// Open picks the store named by cfg.StoreDriver.
func Open(cfg *config.Config, logger logging.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	switch driver {
	case "", "json":
		logger.Info("connection store", "driver", "json", "path", cfg.ConnectionsFile())
		return NewJSONStore(cfg.ConnectionsFile()), nil
	case "sqlite", "postgres", "postgresql":
		gdb, err := openGorm(driver, cfg, logger)
		if err != nil {
			return nil, err
		}
		return NewGormStore(gdb)
	default:
		return nil, errs.Config("unknown STORE_DRIVER "+driver, nil)
	}
}

func openGorm(driver string, cfg *config.Config, logger logging.Logger) (*gorm.DB, error) {
	// SQL traces only at debug
	var gormLevel gormlogger.LogLevel
	switch strings.ToLower(logging.GetLevel()) {
	case "debug":
		gormLevel = gormlogger.Info
	case "error", "fatal":
		gormLevel = gormlogger.Error
	default:
		gormLevel = gormlogger.Warn
	}

	var dialector gorm.Dialector
	if driver == "postgres" || driver == "postgresql" {
		if cfg.DBDsn == "" {
			return nil, errs.Config("DATABASE_URL or DB_DSN is required for the postgres store", nil)
		}
		dialector = postgres.Open(cfg.DBDsn)
		logger.Info("db connect", "driver", "postgres")
	} else {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, errs.IO(err)
		}
		dialector = sqlite.Open(cfg.DBPath)
		logger.Info("db connect", "driver", "sqlite", "path", cfg.DBPath)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{Logger: newGormLogger(logger, gormLevel)})
	if err != nil {
		return nil, errs.IO(fmt.Errorf("open %s: %w", driver, err))
	}
	return gdb, nil
}

package config

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v5"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"voice-recorder/constant"
)

// NewDatabase opens the embedded store. The sqlite file lives next to the
// media; postgres is reached through lib/pq and pinged with backoff first.
func NewDatabase(ctx context.Context, cfg *Database) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case constant.DatabaseDriverSQLite, "":
		if dir := filepath.Dir(cfg.DSN); dir != "" {
			if err := os.MkdirAll(dir, os.ModePerm); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
		dialector = sqlite.Open(cfg.DSN)
	case constant.DatabaseDriverPostgres:
		db, err := openPostgres(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		dialector = postgres.New(postgres.Config{Conn: db})
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	level := logger.Warn
	if cfg.LogSQL {
		level = logger.Info
	}
	gormDB, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}

	if cfg.Driver != constant.DatabaseDriverPostgres {
		// sqlite allows a single writer; queue callers instead of failing with SQLITE_BUSY.
		sqlDB, err := gormDB.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	zerolog.Ctx(ctx).Info().Str("driver", string(cfg.Driver)).Msg("database opened")
	return gormDB, nil
}

func openPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	operation := func() (*sql.DB, error) {
		if err := db.PingContext(ctx); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("Failed to connect to postgres. Retrying...")
			return nil, err
		}
		return db, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = 10 * time.Second
	maxRetries := uint(5)
	if _, err := backoff.Retry(ctx, operation, backoff.WithBackOff(bo), backoff.WithMaxTries(maxRetries)); err != nil {
		_ = db.Close()
		return nil, err
	}

	zerolog.Ctx(ctx).Info().Msg("Successfully connected to postgres")
	return db, nil
}

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/jpillora/backoff"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/config"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/model"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const connectAttempts = 6

func dialector(driver string, url string) (gorm.Dialector, error) {
	switch driver {
	case config.DriverPostgres:
		return postgres.Open(url), nil
	case config.DriverSqlite:
		return sqlite.Open(url), nil
	}
	return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
}

// Open connects to the configured database, retrying while it comes up,
// and migrates the schema.
func Open(ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	d, err := dialector(cfg.DbDriver, cfg.DbUrl)
	if err != nil {
		return nil, err
	}

	b := &backoff.Backoff{
		Min:    500 * time.Millisecond,
		Max:    10 * time.Second,
		Factor: 2,
		Jitter: true,
	}

	var db *gorm.DB
	for {
		db, err = gorm.Open(d, &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
		if err == nil {
			break
		}
		if int(b.Attempt()) >= connectAttempts-1 {
			return nil, fmt.Errorf("connect %s: %w", cfg.DbDriver, err)
		}
		wait := b.Duration()
		log.Warn().Err(err).Dur("retryIn", wait).Msg("Database not reachable yet")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}

	sqlDb, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.DbDriver == config.DriverSqlite {
		// sqlite has a single writer; one connection keeps transactions queued
		// instead of failing with SQLITE_BUSY.
		sqlDb.SetMaxOpenConns(1)
	} else {
		sqlDb.SetMaxOpenConns(50)
		sqlDb.SetConnMaxLifetime(time.Minute * 10)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.Member{},
		&model.Game{},
		&model.RollHistory{},
		&model.LedgerEntry{},
	)
	if err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

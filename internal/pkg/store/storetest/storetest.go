// Package storetest opens throwaway databases for tests.
package storetest

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/model"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/store"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open returns a migrated in-memory sqlite database private to the test.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)

	sqlDb, err := db.DB()
	require.NoError(t, err)
	// Every pooled connection to :memory: is its own database, so keep one.
	sqlDb.SetMaxOpenConns(1)
	sqlDb.SetMaxIdleConns(1)
	sqlDb.SetConnMaxLifetime(0)
	t.Cleanup(func() { _ = sqlDb.Close() })

	require.NoError(t, store.Migrate(db))
	return db
}

// OpenShared returns a migrated file-backed sqlite database in WAL mode with
// conns pooled connections, so concurrent callers race in the database
// itself rather than queueing for a single connection. Open it twice on the
// same path to get two independent pools, as two processes would have.
func OpenShared(t *testing.T, path string, conns int) *gorm.DB {
	t.Helper()

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)

	sqlDb, err := db.DB()
	require.NoError(t, err)
	sqlDb.SetMaxOpenConns(conns)
	sqlDb.SetMaxIdleConns(conns)
	t.Cleanup(func() { _ = sqlDb.Close() })

	require.NoError(t, store.Migrate(db))
	return db
}

// SharedPath returns a fresh database file location for OpenShared.
func SharedPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "firebrands.db")
}

// SeedMember inserts a member with the given balance and a matching opening
// ledger entry so reconciliation stays consistent.
func SeedMember(t *testing.T, db *gorm.DB, actorId string, balance int64) model.Member {
	t.Helper()

	now := time.Now().UTC()
	m := model.Member{ActorId: actorId, DisplayName: actorId, Balance: balance, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, db.Create(&m).Error)
	if balance != 0 {
		require.NoError(t, db.Create(&model.LedgerEntry{
			ActorId:      actorId,
			Delta:        balance,
			BalanceAfter: balance,
			Reason:       model.ReasonAdjust,
			CreatedAt:    now,
		}).Error)
	}
	return m
}

// Balance reads the stored balance directly, bypassing the ledger.
func Balance(t *testing.T, db *gorm.DB, actorId string) int64 {
	t.Helper()

	var m model.Member
	require.NoError(t, db.First(&m, "actor_id = ?", actorId).Error)
	return m.Balance
}

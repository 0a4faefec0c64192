package claim

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kollektive-hackathon/firebrands-backend/internal/ledger"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/config"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/reject"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var t0 = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

func newGate(t *testing.T) (*Gate, *gorm.DB) {
	db := storetest.Open(t)
	return NewGate(db, ledger.New(db, nil), config.DefaultEconomy(), nil), db
}

func TestTryClaimGrantsOncePerWindow(t *testing.T) {
	gate, db := newGate(t)
	storetest.SeedMember(t, db, "alice", 20)
	ctx := context.Background()

	grant, err := gate.TryClaim(ctx, "alice", t0)
	require.NoError(t, err)
	assert.True(t, grant.Granted)
	assert.Equal(t, int64(120), grant.Balance)
	assert.Equal(t, t0.Add(24*time.Hour), grant.NextClaimAt)

	_, err = gate.TryClaim(ctx, "alice", t0.Add(23*time.Hour+59*time.Minute))
	require.ErrorIs(t, err, reject.ErrRateLimited)
	var rl *reject.RateLimitedError
	require.True(t, errors.As(err, &rl))
	assert.True(t, rl.NextAt.Equal(t0.Add(24*time.Hour)))
	assert.Equal(t, int64(120), storetest.Balance(t, db, "alice"))

	grant, err = gate.TryClaim(ctx, "alice", t0.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(220), grant.Balance)
}

func TestTryClaimUnknownMember(t *testing.T) {
	gate, _ := newGate(t)

	_, err := gate.TryClaim(context.Background(), "ghost", t0)
	assert.ErrorIs(t, err, reject.ErrNotFound)
}

func TestConcurrentClaimsGrantExactlyOnce(t *testing.T) {
	// Two pools on one database file behave like two API replicas.
	path := storetest.SharedPath(t)
	dbs := []*gorm.DB{storetest.OpenShared(t, path, 4), storetest.OpenShared(t, path, 4)}
	gates := []*Gate{
		NewGate(dbs[0], ledger.New(dbs[0], nil), config.DefaultEconomy(), nil),
		NewGate(dbs[1], ledger.New(dbs[1], nil), config.DefaultEconomy(), nil),
	}
	storetest.SeedMember(t, dbs[0], "alice", 0)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := gates[i%2].TryClaim(context.Background(), "alice", t0.Add(time.Duration(i)*time.Minute))
			if err == nil {
				mu.Lock()
				granted++
				mu.Unlock()
				return
			}
			// sqlite aborts a writer whose snapshot went stale instead of
			// blocking it; either way the claim is not granted.
			if !errors.Is(err, reject.ErrStorageUnavailable) {
				assert.ErrorIs(t, err, reject.ErrRateLimited)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, granted)
	assert.Equal(t, int64(100), storetest.Balance(t, dbs[1], "alice"))
}

func TestStatus(t *testing.T) {
	gate, db := newGate(t)
	storetest.SeedMember(t, db, "alice", 0)
	ctx := context.Background()

	status, err := gate.Status(ctx, "alice", t0)
	require.NoError(t, err)
	assert.True(t, status.Available)
	assert.Nil(t, status.NextClaimAt)

	_, err = gate.TryClaim(ctx, "alice", t0)
	require.NoError(t, err)

	status, err = gate.Status(ctx, "alice", t0.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, status.Available)
	require.NotNil(t, status.NextClaimAt)
	assert.True(t, status.NextClaimAt.Equal(t0.Add(24*time.Hour)))

	_, err = gate.Status(ctx, "ghost", t0)
	assert.ErrorIs(t, err, reject.ErrNotFound)
}

package game

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/kollektive-hackathon/firebrands-backend/internal/ledger"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/config"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/event"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/model"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/reject"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// scriptedRoller returns its rolls in order, clamped to the bound, and
// falls back to bound/2 when the script runs out.
type scriptedRoller struct {
	mu    sync.Mutex
	rolls []int64
}

func (r *scriptedRoller) Roll(bound int64) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.rolls) == 0 {
		return bound / 2
	}
	next := r.rolls[0]
	r.rolls = r.rolls[1:]
	if next > bound {
		return bound
	}
	return next
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []GameEvent
}

func (n *recordingNotifier) Notify(_ context.Context, e GameEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	types := make([]string, 0, len(n.events))
	for _, e := range n.events {
		types = append(types, e.Type)
	}
	return types
}

type fixture struct {
	db       *gorm.DB
	engine   *Engine
	notifier *recordingNotifier
}

func newFixture(t *testing.T, rolls ...int64) fixture {
	t.Helper()

	db := storetest.Open(t)
	l := ledger.New(db, nil)
	notifier := &recordingNotifier{}
	engine := NewEngine(
		NewRegistry(db, l, nil),
		&scriptedRoller{rolls: rolls},
		config.DefaultEconomy(),
		notifier,
		nil,
	)
	return fixture{db: db, engine: engine, notifier: notifier}
}

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestCreateEscrowsWager(t *testing.T) {
	f := newFixture(t)
	storetest.SeedMember(t, f.db, "alice", 500)

	game, err := f.engine.Create(context.Background(), "alice", 100, now)
	require.NoError(t, err)

	assert.Equal(t, model.GameOpen, game.GameStatus)
	assert.Equal(t, int64(100), game.Wager)
	assert.Equal(t, int64(1000), game.Bound)
	assert.Nil(t, game.ChallengerId)
	assert.Equal(t, int64(400), storetest.Balance(t, f.db, "alice"))
	assert.Equal(t, []string{event.GameCreated}, f.notifier.types())
}

func TestCreateRejectsBadWagers(t *testing.T) {
	f := newFixture(t)
	storetest.SeedMember(t, f.db, "alice", 50)
	ctx := context.Background()

	_, err := f.engine.Create(ctx, "alice", 0, now)
	assert.ErrorIs(t, err, reject.ErrInvalidTransition)

	_, err = f.engine.Create(ctx, "alice", 100, now)
	assert.ErrorIs(t, err, reject.ErrInsufficientFunds)

	assert.Equal(t, int64(50), storetest.Balance(t, f.db, "alice"))
	var count int64
	require.NoError(t, f.db.Model(&model.Game{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestLargestWagerPaysOutWithoutOverflow(t *testing.T) {
	f := newFixture(t, 0)
	storetest.SeedMember(t, f.db, "alice", MaxWager+1)
	storetest.SeedMember(t, f.db, "bob", MaxWager+1)
	ctx := context.Background()

	_, err := f.engine.Create(ctx, "alice", MaxWager+1, now)
	assert.ErrorIs(t, err, reject.ErrInvalidTransition)
	assert.Equal(t, int64(MaxWager+1), storetest.Balance(t, f.db, "alice"))

	game, err := f.engine.Create(ctx, "alice", MaxWager, now)
	require.NoError(t, err)

	game, err = f.engine.Accept(ctx, "bob", game.Id, now)
	require.NoError(t, err)
	assert.Equal(t, model.GameResolved, game.GameStatus)
	assert.Equal(t, "alice", *game.WinnerId)
	assert.Equal(t, int64(math.MaxInt64), storetest.Balance(t, f.db, "alice"))
	assert.Equal(t, int64(1), storetest.Balance(t, f.db, "bob"))
}

func TestAcceptWithoutFundsChangesNothing(t *testing.T) {
	f := newFixture(t)
	storetest.SeedMember(t, f.db, "alice", 500)
	storetest.SeedMember(t, f.db, "bob", 50)
	ctx := context.Background()

	game, err := f.engine.Create(ctx, "alice", 100, now)
	require.NoError(t, err)

	_, err = f.engine.Accept(ctx, "bob", game.Id, now)
	assert.ErrorIs(t, err, reject.ErrInsufficientFunds)

	stored, err := f.engine.Get(ctx, game.Id)
	require.NoError(t, err)
	assert.Equal(t, model.GameOpen, stored.GameStatus)
	assert.Nil(t, stored.ChallengerId)
	assert.Equal(t, int64(50), storetest.Balance(t, f.db, "bob"))

	rolls, err := f.engine.Rolls(ctx, game.Id)
	require.NoError(t, err)
	assert.Empty(t, rolls)
}

func TestAcceptDrawsForChallenger(t *testing.T) {
	f := newFixture(t, 420)
	storetest.SeedMember(t, f.db, "alice", 500)
	storetest.SeedMember(t, f.db, "bob", 200)
	ctx := context.Background()

	game, err := f.engine.Create(ctx, "alice", 100, now)
	require.NoError(t, err)

	game, err = f.engine.Accept(ctx, "bob", game.Id, now)
	require.NoError(t, err)

	assert.Equal(t, model.GameAccepted, game.GameStatus)
	require.NotNil(t, game.ChallengerId)
	assert.Equal(t, "bob", *game.ChallengerId)
	require.NotNil(t, game.TurnId)
	assert.Equal(t, "alice", *game.TurnId)
	assert.Equal(t, int64(420), game.Bound)
	assert.Equal(t, int64(100), storetest.Balance(t, f.db, "bob"))

	rolls, err := f.engine.Rolls(ctx, game.Id)
	require.NoError(t, err)
	require.Len(t, rolls, 1)
	assert.Equal(t, "bob", rolls[0].ActorId)
	assert.Equal(t, int64(1000), rolls[0].Bound)
	assert.Equal(t, int64(420), rolls[0].Roll)
}

func TestAcceptRollingZeroPaysCreator(t *testing.T) {
	f := newFixture(t, 0)
	storetest.SeedMember(t, f.db, "alice", 500)
	storetest.SeedMember(t, f.db, "bob", 200)
	ctx := context.Background()

	game, err := f.engine.Create(ctx, "alice", 100, now)
	require.NoError(t, err)

	game, err = f.engine.Accept(ctx, "bob", game.Id, now)
	require.NoError(t, err)

	assert.Equal(t, model.GameResolved, game.GameStatus)
	require.NotNil(t, game.WinnerId)
	assert.Equal(t, "alice", *game.WinnerId)
	assert.Nil(t, game.TurnId)
	assert.Equal(t, int64(600), storetest.Balance(t, f.db, "alice"))
	assert.Equal(t, int64(100), storetest.Balance(t, f.db, "bob"))
	assert.Equal(t, []string{event.GameCreated, event.GameResolved}, f.notifier.types())
}

func TestAcceptGuards(t *testing.T) {
	f := newFixture(t, 500)
	storetest.SeedMember(t, f.db, "alice", 500)
	storetest.SeedMember(t, f.db, "bob", 500)
	storetest.SeedMember(t, f.db, "carol", 500)
	ctx := context.Background()

	game, err := f.engine.Create(ctx, "alice", 100, now)
	require.NoError(t, err)

	_, err = f.engine.Accept(ctx, "alice", game.Id, now)
	assert.ErrorIs(t, err, reject.ErrInvalidTransition)

	_, err = f.engine.Accept(ctx, "bob", game.Id, now)
	require.NoError(t, err)

	_, err = f.engine.Accept(ctx, "carol", game.Id, now)
	assert.ErrorIs(t, err, reject.ErrInvalidTransition)
	assert.Equal(t, int64(500), storetest.Balance(t, f.db, "carol"))

	_, err = f.engine.Accept(ctx, "carol", 999, now)
	assert.ErrorIs(t, err, reject.ErrNotFound)
}

func TestRollPassesTurnAndResolves(t *testing.T) {
	f := newFixture(t, 600, 300, 10, 0)
	storetest.SeedMember(t, f.db, "alice", 500)
	storetest.SeedMember(t, f.db, "bob", 500)
	ctx := context.Background()

	game, err := f.engine.Create(ctx, "alice", 100, now)
	require.NoError(t, err)
	_, err = f.engine.Accept(ctx, "bob", game.Id, now)
	require.NoError(t, err)

	_, err = f.engine.Roll(ctx, "bob", game.Id, now)
	assert.ErrorIs(t, err, reject.ErrInvalidTransition, "bob rolled out of turn")

	game, err = f.engine.Roll(ctx, "alice", game.Id, now)
	require.NoError(t, err)
	assert.Equal(t, int64(300), game.Bound)
	assert.Equal(t, "bob", *game.TurnId)

	game, err = f.engine.Roll(ctx, "bob", game.Id, now)
	require.NoError(t, err)
	assert.Equal(t, int64(10), game.Bound)
	assert.Equal(t, "alice", *game.TurnId)

	game, err = f.engine.Roll(ctx, "alice", game.Id, now)
	require.NoError(t, err)
	assert.Equal(t, model.GameResolved, game.GameStatus)
	assert.Equal(t, "bob", *game.WinnerId)
	assert.Equal(t, int64(400), storetest.Balance(t, f.db, "alice"))
	assert.Equal(t, int64(600), storetest.Balance(t, f.db, "bob"))

	_, err = f.engine.Roll(ctx, "bob", game.Id, now)
	assert.ErrorIs(t, err, reject.ErrInvalidTransition)

	rolls, err := f.engine.Rolls(ctx, game.Id)
	require.NoError(t, err)
	require.Len(t, rolls, 4)
	for i := 1; i < len(rolls); i++ {
		assert.Equal(t, rolls[i-1].Roll, rolls[i].Bound)
		assert.LessOrEqual(t, rolls[i].Roll, rolls[i].Bound)
	}
	assert.Equal(t,
		[]string{event.GameCreated, event.GameAccepted, event.GameRolled, event.GameRolled, event.GameResolved},
		f.notifier.types())
}

func TestCancel(t *testing.T) {
	f := newFixture(t, 700)
	storetest.SeedMember(t, f.db, "alice", 500)
	storetest.SeedMember(t, f.db, "bob", 500)
	ctx := context.Background()

	open, err := f.engine.Create(ctx, "alice", 100, now)
	require.NoError(t, err)

	_, err = f.engine.Cancel(ctx, "bob", open.Id, now)
	assert.ErrorIs(t, err, reject.ErrInvalidTransition)

	cancelled, err := f.engine.Cancel(ctx, "alice", open.Id, now)
	require.NoError(t, err)
	assert.Equal(t, model.GameCancelled, cancelled.GameStatus)
	assert.Equal(t, int64(500), storetest.Balance(t, f.db, "alice"))

	_, err = f.engine.Cancel(ctx, "alice", open.Id, now)
	assert.ErrorIs(t, err, reject.ErrInvalidTransition)

	accepted, err := f.engine.Create(ctx, "alice", 100, now)
	require.NoError(t, err)
	_, err = f.engine.Accept(ctx, "bob", accepted.Id, now)
	require.NoError(t, err)

	_, err = f.engine.Cancel(ctx, "alice", accepted.Id, now)
	assert.ErrorIs(t, err, reject.ErrInvalidTransition)
	assert.Equal(t, int64(400), storetest.Balance(t, f.db, "alice"))
}

func TestConcurrentRollsDrawOnce(t *testing.T) {
	f := newFixture(t, 500, 250, 100)
	storetest.SeedMember(t, f.db, "alice", 500)
	storetest.SeedMember(t, f.db, "bob", 500)
	ctx := context.Background()

	game, err := f.engine.Create(ctx, "alice", 100, now)
	require.NoError(t, err)
	_, err = f.engine.Accept(ctx, "bob", game.Id, now)
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		refused   int
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.Roll(ctx, "alice", game.Id, now)

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if assert.ErrorIs(t, err, reject.ErrInvalidTransition) {
				refused++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, refused)

	rolls, err := f.engine.Rolls(ctx, game.Id)
	require.NoError(t, err)
	assert.Len(t, rolls, 2)

	stored, err := f.engine.Get(ctx, game.Id)
	require.NoError(t, err)
	assert.Equal(t, "bob", *stored.TurnId)
	assert.Equal(t, int64(250), stored.Bound)
}

func TestPointsAreConserved(t *testing.T) {
	db := storetest.Open(t)
	l := ledger.New(db, nil)
	engine := NewEngine(NewRegistry(db, l, nil), UniformRoller{}, config.DefaultEconomy(), nil, nil)
	ctx := context.Background()

	storetest.SeedMember(t, db, "alice", 1000)
	storetest.SeedMember(t, db, "bob", 1000)

	for round := 0; round < 5; round++ {
		game, err := engine.Create(ctx, "alice", 50, now)
		require.NoError(t, err)
		game, err = engine.Accept(ctx, "bob", game.Id, now)
		require.NoError(t, err)

		last := game.Bound
		turns := 0
		for game.GameStatus == model.GameAccepted {
			game, err = engine.Roll(ctx, *game.TurnId, game.Id, now)
			require.NoError(t, err)
			assert.LessOrEqual(t, game.Bound, last)
			last = game.Bound
			turns++
			require.Less(t, turns, 10000)
		}

		assert.Equal(t, model.GameResolved, game.GameStatus)
		assert.Equal(t, int64(2000), storetest.Balance(t, db, "alice")+storetest.Balance(t, db, "bob"))
	}
}

func TestUniformRollerStaysInRange(t *testing.T) {
	var r UniformRoller
	assert.Equal(t, int64(0), r.Roll(0))
	assert.Equal(t, int64(0), r.Roll(-3))
	for i := 0; i < 1000; i++ {
		v := r.Roll(6)
		assert.GreaterOrEqual(t, v, int64(0))
		assert.LessOrEqual(t, v, int64(6))
	}
}

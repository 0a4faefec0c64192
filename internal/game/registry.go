package game

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jpillora/backoff"
	"github.com/kollektive-hackathon/firebrands-backend/internal/ledger"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/lock"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/metrics"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/model"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/reject"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxTransitionAttempts = 5

var errVersionConflict = errors.New("game version changed concurrently")

// Effects are the side effects a transition commits together with the new
// game state.
type Effects struct {
	Ops   []ledger.Op
	Rolls []model.RollHistory
}

// Transition computes the next state of a game from its current state. It
// may run more than once when a writer in another process wins the version
// race; only the effects of the last run are committed.
type Transition func(current model.Game) (model.Game, Effects, error)

// Registry is the single source of truth for game records. All writes to
// one game are serialized, and each write commits the new state, its
// ledger operations and its roll history atomically.
type Registry struct {
	db      *gorm.DB
	ledger  *ledger.Ledger
	locks   *lock.Keyed
	metrics *metrics.Metrics

	// interleave runs between the read of a game and its conditional
	// update. Tests use it to stand in for a writer in another process.
	interleave func(tx *gorm.DB, current model.Game) error
}

func NewRegistry(db *gorm.DB, l *ledger.Ledger, m *metrics.Metrics) *Registry {
	return &Registry{
		db:      db,
		ledger:  l,
		locks:   lock.NewKeyed(),
		metrics: m,
	}
}

// Create inserts game and runs ops in the same transaction. The ops are
// tagged with the newly assigned game id.
func (r *Registry) Create(ctx context.Context, game model.Game, ops []ledger.Op, now time.Time) (*model.Game, error) {
	game.Id = 0
	game.Version = 1

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&game).Error; err != nil {
			return err
		}
		_, err := r.ledger.ApplyInTx(tx, withGameId(ops, game.Id), now)
		return err
	})
	if err != nil {
		return nil, reject.StorageUnavailable(err)
	}
	return &game, nil
}

func (r *Registry) Get(ctx context.Context, id uint64) (*model.Game, error) {
	var game model.Game
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&game).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, reject.NotFound("game %d", id)
	}
	if err != nil {
		return nil, reject.StorageUnavailable(err)
	}
	return &game, nil
}

// ApplyTransition runs fn against the current state of game id and commits
// its result all-or-nothing. Calls for the same id run one at a time: the
// in-process key lock orders local callers, the row lock and the version
// check order callers in other processes.
func (r *Registry) ApplyTransition(ctx context.Context, id uint64, now time.Time, fn Transition) (*model.Game, error) {
	unlock, err := r.locks.Lock(ctx, strconv.FormatUint(id, 10))
	if err != nil {
		return nil, err
	}
	defer unlock()

	b := &backoff.Backoff{Min: 5 * time.Millisecond, Max: 200 * time.Millisecond, Factor: 2, Jitter: true}
	for {
		game, err := r.applyOnce(ctx, id, now, fn)
		if !errors.Is(err, errVersionConflict) {
			return game, err
		}
		if int(b.Attempt())+1 >= maxTransitionAttempts {
			return nil, reject.StorageUnavailable(err)
		}
		r.metrics.Retry()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(b.Duration()):
		}
	}
}

func (r *Registry) applyOnce(ctx context.Context, id uint64, now time.Time, fn Transition) (*model.Game, error) {
	var next model.Game
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current model.Game
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).Take(&current).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return reject.NotFound("game %d", id)
		}
		if err != nil {
			return err
		}

		var effects Effects
		next, effects, err = fn(current)
		if err != nil {
			return err
		}
		next.Id = current.Id
		next.Version = current.Version + 1

		if r.interleave != nil {
			if err := r.interleave(tx, current); err != nil {
				return err
			}
		}

		result := tx.Model(&model.Game{}).
			Where("id = ? AND version = ?", current.Id, current.Version).
			Updates(map[string]any{
				"challenger_id": next.ChallengerId,
				"bound":         next.Bound,
				"turn_id":       next.TurnId,
				"winner_id":     next.WinnerId,
				"game_status":   next.GameStatus,
				"version":       next.Version,
				"time_accepted": next.TimeAccepted,
				"time_finished": next.TimeFinished,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errVersionConflict
		}

		if _, err := r.ledger.ApplyInTx(tx, withGameId(effects.Ops, current.Id), now); err != nil {
			return err
		}
		for i := range effects.Rolls {
			effects.Rolls[i].GameId = current.Id
		}
		if len(effects.Rolls) > 0 {
			if err := tx.Create(&effects.Rolls).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, errVersionConflict) {
		return nil, err
	}
	if err != nil {
		return nil, reject.StorageUnavailable(err)
	}
	return &next, nil
}

// ListActive pages through open and accepted games, newest first.
func (r *Registry) ListActive(ctx context.Context, page utils.PageRequest) ([]model.Game, int64, error) {
	games := []model.Game{}
	var count int64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		active := []model.GameStatus{model.GameOpen, model.GameAccepted}

		res := tx.Model(&model.Game{}).Where("game_status IN ?", active).Count(&count)
		if res.Error != nil {
			return res.Error
		}

		return tx.Where("game_status IN ?", active).
			Order("time_created DESC").
			Order("id DESC").
			Limit(page.Size).
			Offset(page.Offset).
			Find(&games).Error
	})
	if err != nil {
		return nil, 0, reject.StorageUnavailable(err)
	}
	return games, count, nil
}

func (r *Registry) Rolls(ctx context.Context, id uint64) ([]model.RollHistory, error) {
	if _, err := r.Get(ctx, id); err != nil {
		return nil, err
	}

	rolls := []model.RollHistory{}
	err := r.db.WithContext(ctx).Where("game_id = ?", id).Order("id").Find(&rolls).Error
	if err != nil {
		return nil, reject.StorageUnavailable(err)
	}
	return rolls, nil
}

func withGameId(ops []ledger.Op, id uint64) []ledger.Op {
	tagged := make([]ledger.Op, len(ops))
	for i, op := range ops {
		gameId := id
		op.GameId = &gameId
		tagged[i] = op
	}
	return tagged
}

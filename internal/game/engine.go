package game

import (
	"context"
	"math"
	"time"

	"github.com/kollektive-hackathon/firebrands-backend/internal/ledger"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/config"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/event"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/metrics"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/model"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/reject"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/utils"
	"github.com/rs/zerolog/log"
)

// Engine runs the deathroll state machine:
//
//	OPEN -accept-> ACCEPTED -roll-> ... -roll 0-> RESOLVED
//	OPEN -cancel-> CANCELLED
//
// A draw of 0 ends the game for the player who did not draw it; the draw
// made while accepting belongs to the accepting player.
type Engine struct {
	registry *Registry
	roller   Roller
	economy  config.Economy
	notifier Notifier
	metrics  *metrics.Metrics
}

func NewEngine(registry *Registry, roller Roller, economy config.Economy, notifier Notifier, m *metrics.Metrics) *Engine {
	if roller == nil {
		roller = UniformRoller{}
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &Engine{
		registry: registry,
		roller:   roller,
		economy:  economy,
		notifier: notifier,
		metrics:  m,
	}
}

// MaxWager keeps the winner's payout of both stakes within an int64.
const MaxWager = math.MaxInt64 / 2

// Create escrows wager from creator and opens a new game.
func (e *Engine) Create(ctx context.Context, creator string, wager int64, now time.Time) (*model.Game, error) {
	now = now.UTC()
	if wager <= 0 || wager > MaxWager {
		err := reject.InvalidTransition("wager must be between 1 and %d, got %d", int64(MaxWager), wager)
		e.metrics.Transition("create", err)
		return nil, err
	}

	game := model.Game{
		Kind:        model.KindDeathroll,
		CreatorId:   creator,
		Wager:       wager,
		Bound:       e.economy.StartingBound,
		GameStatus:  model.GameOpen,
		TimeCreated: now,
	}
	created, err := e.registry.Create(ctx, game, []ledger.Op{
		{ActorId: creator, Delta: -wager, Reason: model.ReasonEscrow},
	}, now)
	e.metrics.Transition("create", err)
	if err != nil {
		return nil, err
	}
	e.metrics.LedgerDelta(string(model.ReasonEscrow))

	log.Info().Uint64("gameId", created.Id).Str("creator", creator).Int64("wager", wager).Msg("Deathroll created")
	e.notifier.Notify(ctx, GameEvent{Type: event.GameCreated, Game: *created, At: now})
	return created, nil
}

// Accept seats actor as challenger, escrows the matching wager and makes the
// first draw on the challenger's behalf.
func (e *Engine) Accept(ctx context.Context, actor string, id uint64, now time.Time) (*model.Game, error) {
	now = now.UTC()
	var drawn model.RollHistory

	game, err := e.registry.ApplyTransition(ctx, id, now, func(g model.Game) (model.Game, Effects, error) {
		if g.GameStatus != model.GameOpen {
			return g, Effects{}, reject.InvalidTransition("game %d is %s", g.Id, g.GameStatus)
		}
		if g.ChallengerId != nil {
			return g, Effects{}, reject.InvalidTransition("game %d already has a challenger", g.Id)
		}
		if actor == g.CreatorId {
			return g, Effects{}, reject.InvalidTransition("cannot accept your own game %d", g.Id)
		}

		effects := Effects{Ops: []ledger.Op{
			{ActorId: actor, Delta: -g.Wager, Reason: model.ReasonEscrow},
		}}

		next := g
		challenger := actor
		next.ChallengerId = &challenger
		next.TimeAccepted = &now
		next.GameStatus = model.GameAccepted

		drawn = e.draw(&next, actor, now, &effects)
		return next, effects, nil
	})
	e.metrics.Transition("accept", err)
	if err != nil {
		return nil, err
	}
	e.metrics.LedgerDelta(string(model.ReasonEscrow))

	log.Info().Uint64("gameId", id).Str("challenger", actor).Int64("roll", drawn.Roll).Msg("Deathroll accepted")
	e.announce(ctx, event.GameAccepted, game, &drawn, now)
	return game, nil
}

// Roll draws for the player whose turn it is.
func (e *Engine) Roll(ctx context.Context, actor string, id uint64, now time.Time) (*model.Game, error) {
	now = now.UTC()
	var drawn model.RollHistory

	game, err := e.registry.ApplyTransition(ctx, id, now, func(g model.Game) (model.Game, Effects, error) {
		if g.GameStatus != model.GameAccepted || g.WinnerId != nil {
			return g, Effects{}, reject.InvalidTransition("game %d is %s", g.Id, g.GameStatus)
		}
		if g.TurnId == nil || *g.TurnId != actor {
			return g, Effects{}, reject.InvalidTransition("not %s's turn in game %d", actor, g.Id)
		}

		next := g
		effects := Effects{}
		drawn = e.draw(&next, actor, now, &effects)
		return next, effects, nil
	})
	e.metrics.Transition("roll", err)
	if err != nil {
		return nil, err
	}

	log.Debug().Uint64("gameId", id).Str("actorId", actor).Int64("roll", drawn.Roll).Msg("Deathroll rolled")
	e.announce(ctx, event.GameRolled, game, &drawn, now)
	return game, nil
}

// Cancel refunds the creator of a game nobody accepted yet.
func (e *Engine) Cancel(ctx context.Context, actor string, id uint64, now time.Time) (*model.Game, error) {
	now = now.UTC()

	game, err := e.registry.ApplyTransition(ctx, id, now, func(g model.Game) (model.Game, Effects, error) {
		if g.GameStatus != model.GameOpen || g.ChallengerId != nil {
			return g, Effects{}, reject.InvalidTransition("game %d is %s", g.Id, g.GameStatus)
		}
		if actor != g.CreatorId {
			return g, Effects{}, reject.InvalidTransition("only the creator can cancel game %d", g.Id)
		}

		next := g
		next.GameStatus = model.GameCancelled
		next.TimeFinished = &now
		return next, Effects{Ops: []ledger.Op{
			{ActorId: g.CreatorId, Delta: g.Wager, Reason: model.ReasonRefund},
		}}, nil
	})
	e.metrics.Transition("cancel", err)
	if err != nil {
		return nil, err
	}
	e.metrics.LedgerDelta(string(model.ReasonRefund))

	log.Info().Uint64("gameId", id).Str("creator", actor).Msg("Deathroll cancelled")
	e.notifier.Notify(ctx, GameEvent{Type: event.GameCancelled, Game: *game, At: now})
	return game, nil
}

// draw rolls against next.Bound on behalf of roller and either narrows the
// bound and passes the turn, or resolves the game for the other player.
func (e *Engine) draw(next *model.Game, roller string, now time.Time, effects *Effects) model.RollHistory {
	roll := e.roller.Roll(next.Bound)
	drawn := model.RollHistory{
		ActorId:  roller,
		Bound:    next.Bound,
		Roll:     roll,
		PlayedAt: now,
	}
	effects.Rolls = append(effects.Rolls, drawn)
	next.Bound = roll

	opponent := next.Opponent(roller)
	if roll > 0 {
		next.TurnId = &opponent
		return drawn
	}

	next.WinnerId = &opponent
	next.TurnId = nil
	next.GameStatus = model.GameResolved
	next.TimeFinished = &now
	effects.Ops = append(effects.Ops, ledger.Op{
		ActorId: opponent,
		Delta:   2 * next.Wager,
		Reason:  model.ReasonPayout,
	})
	return drawn
}

func (e *Engine) announce(ctx context.Context, eventType string, game *model.Game, drawn *model.RollHistory, now time.Time) {
	if game.GameStatus == model.GameResolved {
		eventType = event.GameResolved
		e.metrics.LedgerDelta(string(model.ReasonPayout))
		log.Info().Uint64("gameId", game.Id).Str("winner", *game.WinnerId).Int64("payout", 2*game.Wager).Msg("Deathroll resolved")
	}
	e.notifier.Notify(ctx, GameEvent{Type: eventType, Game: *game, Roll: drawn, At: now})
}

func (e *Engine) Get(ctx context.Context, id uint64) (*model.Game, error) {
	return e.registry.Get(ctx, id)
}

func (e *Engine) ListActive(ctx context.Context, page utils.PageRequest) ([]model.Game, int64, error) {
	return e.registry.ListActive(ctx, page)
}

func (e *Engine) Rolls(ctx context.Context, id uint64) ([]model.RollHistory, error) {
	return e.registry.Rolls(ctx, id)
}

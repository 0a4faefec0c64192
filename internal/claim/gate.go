package claim

import (
	"context"
	"errors"
	"time"

	"github.com/kollektive-hackathon/firebrands-backend/internal/ledger"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/config"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/metrics"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/model"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/reject"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Gate struct {
	db      *gorm.DB
	ledger  *ledger.Ledger
	economy config.Economy
	metrics *metrics.Metrics
}

func NewGate(db *gorm.DB, l *ledger.Ledger, economy config.Economy, m *metrics.Metrics) *Gate {
	return &Gate{db: db, ledger: l, economy: economy, metrics: m}
}

type Grant struct {
	ActorId     string    `json:"actorId"`
	Granted     bool      `json:"granted"`
	Amount      int64     `json:"amount"`
	Balance     int64     `json:"balance"`
	ClaimedAt   time.Time `json:"claimedAt"`
	NextClaimAt time.Time `json:"nextClaimAt"`
}

// TryClaim grants the periodic amount when at least one full window has
// passed since the actor's previous grant. The claim record and the credit
// commit together; a denied claim returns a *reject.RateLimitedError.
func (g *Gate) TryClaim(ctx context.Context, actorId string, now time.Time) (*Grant, error) {
	now = now.UTC()
	var balance int64

	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m model.Member
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("actor_id", "last_claim_at", "claim_count").
			Where("actor_id = ?", actorId).
			Take(&m).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return reject.NotFound("member %s", actorId)
		}
		if err != nil {
			return err
		}

		if m.LastClaimAt != nil {
			next := m.LastClaimAt.Add(g.economy.ClaimWindow)
			if now.Before(next) {
				return &reject.RateLimitedError{NextAt: next}
			}
		}

		// claim_count is the compare-and-swap token: a concurrent grant that
		// committed after our read leaves no row to update.
		result := tx.Model(&model.Member{}).
			Where("actor_id = ? AND claim_count = ?", actorId, m.ClaimCount).
			Updates(map[string]any{
				"last_claim_at": now,
				"claim_count":   gorm.Expr("claim_count + 1"),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return &reject.RateLimitedError{NextAt: now.Add(g.economy.ClaimWindow)}
		}

		balances, err := g.ledger.ApplyInTx(tx, []ledger.Op{{
			ActorId: actorId,
			Delta:   g.economy.GrantAmount,
			Reason:  model.ReasonClaim,
		}}, now)
		balance = balances[actorId]
		return err
	})
	g.metrics.Claim(err)
	if err != nil {
		if !reject.IsDomain(err) {
			log.Warn().Err(err).Str("actorId", actorId).Msg("Claim aborted")
		}
		return nil, reject.StorageUnavailable(err)
	}
	g.metrics.LedgerDelta(string(model.ReasonClaim))

	log.Info().Str("actorId", actorId).Int64("amount", g.economy.GrantAmount).Msg("Daily Firebrands claimed")
	return &Grant{
		ActorId:     actorId,
		Granted:     true,
		Amount:      g.economy.GrantAmount,
		Balance:     balance,
		ClaimedAt:   now,
		NextClaimAt: now.Add(g.economy.ClaimWindow),
	}, nil
}

type Status struct {
	Available   bool       `json:"available"`
	LastClaimAt *time.Time `json:"lastClaimAt,omitempty"`
	NextClaimAt *time.Time `json:"nextClaimAt,omitempty"`
}

// Status reports whether TryClaim would currently succeed for a member.
func (g *Gate) Status(ctx context.Context, actorId string, now time.Time) (*Status, error) {
	var m model.Member
	err := g.db.WithContext(ctx).
		Select("actor_id", "last_claim_at").
		Where("actor_id = ?", actorId).
		Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, reject.NotFound("member %s", actorId)
	}
	if err != nil {
		return nil, reject.StorageUnavailable(err)
	}
	return statusOf(m.LastClaimAt, g.economy.ClaimWindow, now), nil
}

func statusOf(lastClaimAt *time.Time, window time.Duration, now time.Time) *Status {
	if lastClaimAt == nil {
		return &Status{Available: true}
	}
	next := lastClaimAt.Add(window)
	return &Status{
		Available:   !now.Before(next),
		LastClaimAt: lastClaimAt,
		NextClaimAt: &next,
	}
}

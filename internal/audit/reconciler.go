package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/metrics"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/model"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/reject"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	KindBalanceDrift    = "balance-drift"
	KindNegativeBalance = "negative-balance"
	KindEscrowDrift     = "escrow-drift"
)

type Mismatch struct {
	Kind     string `json:"kind"`
	Subject  string `json:"subject"`
	Expected int64  `json:"expected"`
	Actual   int64  `json:"actual"`
}

type Report struct {
	CheckedAt  time.Time  `json:"checkedAt"`
	Members    int        `json:"members"`
	Games      int        `json:"games"`
	Mismatches []Mismatch `json:"mismatches"`
}

func (r Report) Consistent() bool {
	return len(r.Mismatches) == 0
}

// Reconciler cross-checks stored balances against the ledger journal and
// every game against the escrow its status implies. It only reads.
type Reconciler struct {
	db      *gorm.DB
	metrics *metrics.Metrics
}

func NewReconciler(db *gorm.DB, m *metrics.Metrics) *Reconciler {
	return &Reconciler{db: db, metrics: m}
}

type memberTotal struct {
	ActorId string
	Balance int64
	Journal int64
}

type gameTotal struct {
	Id         uint64
	Wager      int64
	GameStatus model.GameStatus
	Journal    int64
}

func (r *Reconciler) Run(ctx context.Context, now time.Time) (*Report, error) {
	report := &Report{CheckedAt: now.UTC(), Mismatches: []Mismatch{}}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var members []memberTotal
		err := tx.Table("member").
			Select("member.actor_id, member.balance, COALESCE(SUM(ledger_entry.delta), 0) AS journal").
			Joins("LEFT JOIN ledger_entry ON ledger_entry.actor_id = member.actor_id").
			Group("member.actor_id, member.balance").
			Order("member.actor_id").
			Scan(&members).Error
		if err != nil {
			return err
		}

		var games []gameTotal
		err = tx.Table("game").
			Select("game.id, game.wager, game.game_status, COALESCE(SUM(ledger_entry.delta), 0) AS journal").
			Joins("LEFT JOIN ledger_entry ON ledger_entry.game_id = game.id").
			Group("game.id, game.wager, game.game_status").
			Order("game.id").
			Scan(&games).Error
		if err != nil {
			return err
		}

		report.Members = len(members)
		report.Games = len(games)
		for _, m := range members {
			if m.Balance < 0 {
				report.Mismatches = append(report.Mismatches, Mismatch{
					Kind: KindNegativeBalance, Subject: m.ActorId, Expected: 0, Actual: m.Balance,
				})
			}
			if m.Balance != m.Journal {
				report.Mismatches = append(report.Mismatches, Mismatch{
					Kind: KindBalanceDrift, Subject: m.ActorId, Expected: m.Journal, Actual: m.Balance,
				})
			}
		}
		for _, g := range games {
			// Escrow leaves the players' balances, so the journal for a game
			// nets to minus what the game still holds.
			held := model.Game{Wager: g.Wager, GameStatus: g.GameStatus}.Escrow()
			if g.Journal != -held {
				report.Mismatches = append(report.Mismatches, Mismatch{
					Kind: KindEscrowDrift, Subject: fmt.Sprintf("game/%d", g.Id), Expected: -held, Actual: g.Journal,
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, reject.StorageUnavailable(err)
	}

	r.metrics.AuditResult(len(report.Mismatches))
	if report.Consistent() {
		log.Info().Int("members", report.Members).Int("games", report.Games).Msg("Ledger reconciled")
	} else {
		for _, m := range report.Mismatches {
			log.Error().
				Str("kind", m.Kind).
				Str("subject", m.Subject).
				Int64("expected", m.Expected).
				Int64("actual", m.Actual).
				Msg("Ledger inconsistency")
		}
	}
	return report, nil
}

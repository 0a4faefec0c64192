package ledger

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/metrics"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/model"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/reject"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Op is a single balance change to run inside a caller's transaction.
type Op struct {
	ActorId        string
	Delta          int64
	Reason         model.EntryReason
	GameId         *uint64
	CounterpartyId *string
}

// Ledger owns member balances. Every mutation is one conditional UPDATE,
// so concurrent deltas on the same member serialize in the database and
// the balance can never be driven below zero through a checked path.
type Ledger struct {
	db      *gorm.DB
	metrics *metrics.Metrics
	now     func() time.Time
}

func New(db *gorm.DB, m *metrics.Metrics) *Ledger {
	return &Ledger{
		db:      db,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// GetBalance returns 0 for members the roster has not created yet.
func (l *Ledger) GetBalance(ctx context.Context, actorId string) (int64, error) {
	var m model.Member
	err := l.db.WithContext(ctx).
		Select("actor_id", "balance").
		Where("actor_id = ?", actorId).
		Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, reject.StorageUnavailable(err)
	}
	return m.Balance, nil
}

func (l *Ledger) ApplyDelta(ctx context.Context, actorId string, delta int64, reason model.EntryReason) (int64, error) {
	var balance int64
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		balances, err := l.ApplyInTx(tx, []Op{{ActorId: actorId, Delta: delta, Reason: reason}}, l.now())
		balance = balances[actorId]
		return err
	})
	if err != nil {
		return 0, reject.StorageUnavailable(err)
	}
	l.metrics.LedgerDelta(string(reason))
	return balance, nil
}

// ForceAdjust is the privileged adjustment path. It skips the capacity
// check: a withdrawal larger than the balance empties it instead of failing.
// A credit the balance cannot hold is still rejected.
func (l *Ledger) ForceAdjust(ctx context.Context, actorId string, delta int64) (int64, error) {
	var balance int64
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m model.Member
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("actor_id", "balance").
			Where("actor_id = ?", actorId).
			Take(&m).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return reject.NotFound("member %s", actorId)
		}
		if err != nil {
			return err
		}

		applied := delta
		if applied < 0 && m.Balance+applied < 0 {
			applied = -m.Balance
		}
		balances, err := l.ApplyInTx(tx, []Op{{ActorId: actorId, Delta: applied, Reason: model.ReasonAdjust}}, l.now())
		balance = balances[actorId]
		return err
	})
	if err != nil {
		return 0, reject.StorageUnavailable(err)
	}
	l.metrics.LedgerDelta(string(model.ReasonAdjust))
	return balance, nil
}

type Transfer struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Amount      int64  `json:"amount"`
	FromBalance int64  `json:"fromBalance"`
	ToBalance   int64  `json:"toBalance"`
}

// Transfer moves points between two members in one transaction.
func (l *Ledger) Transfer(ctx context.Context, from string, to string, amount int64) (*Transfer, error) {
	if amount <= 0 {
		return nil, reject.InvalidTransition("transfer amount must be positive, got %d", amount)
	}
	if from == to {
		return nil, reject.InvalidTransition("cannot transfer to yourself")
	}

	var balances map[string]int64
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		balances, err = l.ApplyInTx(tx, []Op{
			{ActorId: from, Delta: -amount, Reason: model.ReasonTransfer, CounterpartyId: &to},
			{ActorId: to, Delta: amount, Reason: model.ReasonTransfer, CounterpartyId: &from},
		}, l.now())
		return err
	})
	if err != nil {
		return nil, reject.StorageUnavailable(err)
	}
	l.metrics.LedgerDelta(string(model.ReasonTransfer))

	return &Transfer{
		From:        from,
		To:          to,
		Amount:      amount,
		FromBalance: balances[from],
		ToBalance:   balances[to],
	}, nil
}

// ApplyInTx runs ops inside tx and returns the resulting balance of every
// member touched. Members are visited in ascending actor id order so two
// transactions touching the same members always lock them in the same
// order; ops on one member keep their relative order.
func (l *Ledger) ApplyInTx(tx *gorm.DB, ops []Op, now time.Time) (map[string]int64, error) {
	ordered := make([]Op, len(ops))
	copy(ordered, ops)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ActorId < ordered[j].ActorId
	})

	balances := make(map[string]int64, len(ordered))
	for _, op := range ordered {
		balance, err := applyOne(tx, op, now)
		if err != nil {
			return balances, err
		}
		balances[op.ActorId] = balance
	}
	return balances, nil
}

func applyOne(tx *gorm.DB, op Op, now time.Time) (int64, error) {
	if op.Delta == math.MinInt64 {
		return 0, reject.InvalidTransition("delta %d out of range", op.Delta)
	}

	// The guard compares balance against a bound computed here so the
	// database never evaluates a sum that could leave the int64 range.
	guard := tx.Model(&model.Member{})
	if op.Delta < 0 {
		guard = guard.Where("actor_id = ? AND balance >= ?", op.ActorId, -op.Delta)
	} else {
		guard = guard.Where("actor_id = ? AND balance <= ?", op.ActorId, math.MaxInt64-op.Delta)
	}
	result := guard.
		Updates(map[string]any{
			"balance":    gorm.Expr("balance + ?", op.Delta),
			"updated_at": now,
		})
	if result.Error != nil {
		return 0, result.Error
	}

	var m model.Member
	err := tx.Select("actor_id", "balance").Where("actor_id = ?", op.ActorId).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if op.Delta < 0 {
			return 0, reject.InsufficientFunds(op.ActorId, 0, -op.Delta)
		}
		return 0, reject.NotFound("member %s", op.ActorId)
	}
	if err != nil {
		return 0, err
	}
	if result.RowsAffected == 0 {
		if op.Delta > 0 {
			return 0, reject.InvalidTransition("balance of %s cannot hold %d more", op.ActorId, op.Delta)
		}
		return 0, reject.InsufficientFunds(op.ActorId, m.Balance, -op.Delta)
	}

	if op.Delta != 0 {
		entry := model.LedgerEntry{
			ActorId:        op.ActorId,
			Delta:          op.Delta,
			BalanceAfter:   m.Balance,
			Reason:         op.Reason,
			GameId:         op.GameId,
			CounterpartyId: op.CounterpartyId,
			CreatedAt:      now,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return 0, err
		}
	}
	return m.Balance, nil
}

// Entries lists the most recent journal entries of a member.
func (l *Ledger) Entries(ctx context.Context, actorId string, limit int) ([]model.LedgerEntry, error) {
	entries := []model.LedgerEntry{}
	err := l.db.WithContext(ctx).
		Where("actor_id = ?", actorId).
		Order("id DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, reject.StorageUnavailable(err)
	}
	return entries, nil
}

package model

import "time"

type EntryReason string

const (
	ReasonClaim    EntryReason = "claim"
	ReasonEscrow   EntryReason = "escrow"
	ReasonRefund   EntryReason = "refund"
	ReasonPayout   EntryReason = "payout"
	ReasonAdjust   EntryReason = "adjust"
	ReasonTransfer EntryReason = "transfer"
)

// LedgerEntry is one applied balance change. Entries are append only and
// for every member the deltas sum to the stored balance.
type LedgerEntry struct {
	Id             uint64      `gorm:"primaryKey;autoIncrement" json:"id"`
	ActorId        string      `gorm:"not null;index" json:"actorId"`
	Delta          int64       `gorm:"not null" json:"delta"`
	BalanceAfter   int64       `gorm:"not null" json:"balanceAfter"`
	Reason         EntryReason `gorm:"not null" json:"reason"`
	GameId         *uint64     `gorm:"index" json:"gameId,omitempty"`
	CounterpartyId *string     `json:"counterpartyId,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
}

func (LedgerEntry) TableName() string {
	return "ledger_entry"
}

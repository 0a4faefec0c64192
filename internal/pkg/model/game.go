package model

import (
	"time"
)

type Game struct {
	Id           uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Kind         GameKind   `gorm:"not null" json:"kind"`
	CreatorId    string     `gorm:"not null;index" json:"creatorId"`
	ChallengerId *string    `gorm:"index" json:"challengerId,omitempty"`
	Wager        int64      `gorm:"not null" json:"wager"`
	Bound        int64      `gorm:"not null" json:"bound"`
	TurnId       *string    `json:"turnId,omitempty"`
	WinnerId     *string    `gorm:"index" json:"winnerId,omitempty"`
	GameStatus   GameStatus `gorm:"not null;index" json:"status"`
	Version      int64      `gorm:"not null" json:"-"`
	TimeCreated  time.Time  `json:"timeCreated"`
	TimeAccepted *time.Time `json:"timeAccepted,omitempty"`
	TimeFinished *time.Time `json:"timeFinished,omitempty"`
}

func (Game) TableName() string {
	return "game"
}

// Opponent returns the other seat of a two player game, or "" when the
// actor is not seated.
func (g Game) Opponent(actorId string) string {
	switch {
	case g.ChallengerId == nil:
		return ""
	case actorId == g.CreatorId:
		return *g.ChallengerId
	case actorId == *g.ChallengerId:
		return g.CreatorId
	}
	return ""
}

// Escrow is the amount the game currently holds on behalf of its players.
func (g Game) Escrow() int64 {
	switch g.GameStatus {
	case GameOpen:
		return g.Wager
	case GameAccepted:
		return 2 * g.Wager
	}
	return 0
}

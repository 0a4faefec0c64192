package model

import "time"

type Member struct {
	ActorId     string     `gorm:"primaryKey" json:"actorId"`
	DisplayName string     `json:"displayName"`
	Rank        string     `json:"rank"`
	Note        string     `json:"note,omitempty"`
	Balance     int64      `gorm:"not null;default:0" json:"balance"`
	LastClaimAt *time.Time `json:"lastClaimAt,omitempty"`
	ClaimCount  int64      `gorm:"not null;default:0" json:"claimCount"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (Member) TableName() string {
	return "member"
}

package model

import "time"

type RollHistory struct {
	Id       uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	GameId   uint64    `gorm:"not null;index" json:"gameId"`
	ActorId  string    `gorm:"not null" json:"actorId"`
	Bound    int64     `gorm:"not null" json:"bound"`
	Roll     int64     `gorm:"not null" json:"roll"`
	PlayedAt time.Time `json:"playedAt"`
}

func (RollHistory) TableName() string {
	return "roll_history"
}

package profile

import (
	"time"

	"github.com/kollektive-hackathon/firebrands-backend/internal/claim"
)

type Profile struct {
	ActorId     string        `json:"actorId"`
	DisplayName string        `json:"displayName"`
	Rank        string        `json:"rank"`
	Balance     int64         `json:"balance"`
	Escrowed    int64         `json:"escrowed"`
	Claim       *claim.Status `json:"claim"`
	Record      GameRecord    `json:"record"`
	MemberSince time.Time     `json:"memberSince"`
}

type GameRecord struct {
	Active int64 `json:"active"`
	Wins   int64 `json:"wins"`
	Losses int64 `json:"losses"`
}

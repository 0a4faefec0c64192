package leaderboard

import (
	"context"

	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/model"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/reject"
	"gorm.io/gorm"
)

const DefaultLimit = 5

type Standing struct {
	ActorId     string `json:"actorId"`
	DisplayName string `json:"displayName"`
	Score       int64  `json:"score"`
}

type Board struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Board {
	return &Board{db: db}
}

// TopByPoints ranks members by current balance. Ties go to the lower
// actor id so pages are stable.
func (b *Board) TopByPoints(ctx context.Context, limit int) ([]Standing, error) {
	standings := []Standing{}
	err := b.db.WithContext(ctx).
		Model(&model.Member{}).
		Select("actor_id, display_name, balance AS score").
		Order("balance DESC").
		Order("actor_id").
		Limit(limit).
		Scan(&standings).Error
	if err != nil {
		return nil, reject.StorageUnavailable(err)
	}
	return standings, nil
}

// TopWins ranks members by resolved deathrolls won.
func (b *Board) TopWins(ctx context.Context, limit int) ([]Standing, error) {
	standings := []Standing{}
	err := b.db.WithContext(ctx).
		Table("game").
		Joins("LEFT JOIN member ON member.actor_id = game.winner_id").
		Where("game.game_status = ? AND game.winner_id IS NOT NULL", model.GameResolved).
		Select("game.winner_id AS actor_id, COALESCE(MAX(member.display_name), '') AS display_name, COUNT(*) AS score").
		Group("game.winner_id").
		Order("score DESC").
		Order("game.winner_id").
		Limit(limit).
		Scan(&standings).Error
	if err != nil {
		return nil, reject.StorageUnavailable(err)
	}
	return standings, nil
}

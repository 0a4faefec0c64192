package profile

import (
	"context"
	"errors"
	"time"

	"github.com/kollektive-hackathon/firebrands-backend/internal/claim"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/model"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/reject"
	"gorm.io/gorm"
)

type ProfileService struct {
	Db   *gorm.DB
	Gate *claim.Gate
}

// FindById assembles the member view. Escrowed counts the member's own
// wager in every open or accepted game they sit in.
func (s *ProfileService) FindById(ctx context.Context, actorId string, now time.Time) (*Profile, error) {
	var member model.Member
	err := s.Db.WithContext(ctx).Where("actor_id = ?", actorId).Take(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, reject.NotFound("member %s", actorId)
	}
	if err != nil {
		return nil, reject.StorageUnavailable(err)
	}

	var record struct {
		Active   int64
		Escrowed int64
		Wins     int64
		Resolved int64
	}
	err = s.Db.WithContext(ctx).
		Model(&model.Game{}).
		Where("creator_id = ? OR challenger_id = ?", actorId, actorId).
		Select(`
			COALESCE(SUM(CASE WHEN game_status IN ('OPEN', 'ACCEPTED') THEN 1 ELSE 0 END), 0) AS active,
			COALESCE(SUM(CASE WHEN game_status IN ('OPEN', 'ACCEPTED') THEN wager ELSE 0 END), 0) AS escrowed,
			COALESCE(SUM(CASE WHEN winner_id = ? THEN 1 ELSE 0 END), 0) AS wins,
			COALESCE(SUM(CASE WHEN game_status = 'RESOLVED' THEN 1 ELSE 0 END), 0) AS resolved
		`, actorId).
		Scan(&record).Error
	if err != nil {
		return nil, reject.StorageUnavailable(err)
	}

	claimStatus, err := s.Gate.Status(ctx, actorId, now)
	if err != nil {
		return nil, err
	}

	return &Profile{
		ActorId:     member.ActorId,
		DisplayName: member.DisplayName,
		Rank:        member.Rank,
		Balance:     member.Balance,
		Escrowed:    record.Escrowed,
		Claim:       claimStatus,
		Record: GameRecord{
			Active: record.Active,
			Wins:   record.Wins,
			Losses: record.Resolved - record.Wins,
		},
		MemberSince: member.CreatedAt,
	}, nil
}

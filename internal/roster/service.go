package roster

import (
	"context"
	"errors"
	"time"

	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/model"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/reject"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/utils"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MemberObserved is published by the roster sync whenever a member joins,
// changes name or rank, or leaves.
type MemberObserved struct {
	ActorId     string  `json:"actorId"`
	DisplayName string  `json:"displayName"`
	Rank        string  `json:"rank"`
	Note        *string `json:"note,omitempty"`
	Departed    bool    `json:"departed"`
}

// Service keeps the member table in line with the roster. It never touches
// balances: those belong to the ledger.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Observe creates the member on first sight and refreshes name and rank
// afterwards. The note is only replaced when the event carries one.
func (s *Service) Observe(ctx context.Context, m MemberObserved, now time.Time) (*model.Member, error) {
	if m.ActorId == "" {
		return nil, reject.InvalidTransition("roster event without actor id")
	}
	now = now.UTC()

	member := model.Member{
		ActorId:     m.ActorId,
		DisplayName: m.DisplayName,
		Rank:        m.Rank,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	columns := []string{"display_name", "rank", "updated_at"}
	if m.Note != nil {
		member.Note = *m.Note
		columns = append(columns, "note")
	}

	var stored model.Member
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "actor_id"}},
			DoUpdates: clause.AssignmentColumns(columns),
		}).Create(&member).Error
		if err != nil {
			return err
		}
		return tx.Where("actor_id = ?", m.ActorId).Take(&stored).Error
	})
	if err != nil {
		return nil, reject.StorageUnavailable(err)
	}
	return &stored, nil
}

// Depart removes a member who holds no escrow. Members seated in an open or
// accepted game stay until the game ends.
func (s *Service) Depart(ctx context.Context, actorId string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Escrow debits update the member row, so holding its lock before
		// counting makes any game created concurrently visible to the count.
		var member model.Member
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("actor_id").
			Where("actor_id = ?", actorId).
			Take(&member).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return reject.NotFound("member %s", actorId)
		}
		if err != nil {
			return err
		}

		var active int64
		err = tx.Model(&model.Game{}).
			Where("game_status IN ?", []model.GameStatus{model.GameOpen, model.GameAccepted}).
			Where("creator_id = ? OR challenger_id = ?", actorId, actorId).
			Count(&active).Error
		if err != nil {
			return err
		}
		if active > 0 {
			return reject.InvalidTransition("%s is seated in %d active games", actorId, active)
		}

		result := tx.Where("actor_id = ?", actorId).Delete(&model.Member{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return reject.NotFound("member %s", actorId)
		}
		return nil
	})
	if err != nil {
		if reject.IsDomain(err) {
			return err
		}
		return reject.StorageUnavailable(err)
	}

	log.Info().Str("actorId", actorId).Msg("Member departed")
	return nil
}

// List pages through the roster ordered by display name.
func (s *Service) List(ctx context.Context, page utils.PageRequest) ([]model.Member, int64, error) {
	members := []model.Member{}
	var count int64

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Member{}).Count(&count).Error; err != nil {
			return err
		}
		return tx.Order("display_name").
			Order("actor_id").
			Limit(page.Size).
			Offset(page.Offset).
			Find(&members).Error
	})
	if err != nil {
		return nil, 0, reject.StorageUnavailable(err)
	}
	return members, count, nil
}

// Apply dispatches a roster event to Observe or Depart.
func (s *Service) Apply(ctx context.Context, m MemberObserved, now time.Time) error {
	if m.Departed {
		err := s.Depart(ctx, m.ActorId)
		if errors.Is(err, reject.ErrNotFound) {
			return nil
		}
		return err
	}
	_, err := s.Observe(ctx, m, now)
	return err
}

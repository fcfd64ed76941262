package repository

import (
	"context"

	"github.com/ticketdraw/backend/internal/entity"
	"github.com/ticketdraw/backend/pkg/xcontext"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DrawParticipationRepository interface {
	Get(ctx context.Context, userID, drawID string) (*entity.DrawParticipation, error)
	GetByDrawID(ctx context.Context, drawID string) ([]entity.DrawParticipation, error)
	GetByUserID(ctx context.Context, userID string) ([]entity.DrawParticipation, error)
	Upsert(ctx context.Context, participation *entity.DrawParticipation) error
	SumTicketsByDraw(ctx context.Context, drawID string) (int64, error)
	SetWinner(ctx context.Context, userID, drawID string) error
	Delete(ctx context.Context, userID, drawID string) error
}

type drawParticipationRepository struct{}

func NewDrawParticipationRepository() *drawParticipationRepository {
	return &drawParticipationRepository{}
}

func (r *drawParticipationRepository) Get(
	ctx context.Context, userID, drawID string,
) (*entity.DrawParticipation, error) {
	var result entity.DrawParticipation
	err := xcontext.DB(ctx).
		Where("user_id=? AND draw_id=?", userID, drawID).Take(&result).Error
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *drawParticipationRepository) GetByDrawID(
	ctx context.Context, drawID string,
) ([]entity.DrawParticipation, error) {
	var result []entity.DrawParticipation
	err := xcontext.DB(ctx).Where("draw_id=?", drawID).Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *drawParticipationRepository) GetByUserID(
	ctx context.Context, userID string,
) ([]entity.DrawParticipation, error) {
	var result []entity.DrawParticipation
	err := xcontext.DB(ctx).Where("user_id=?", userID).Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Upsert sets (not increments) the tickets_used of the (user, draw) pair, so
// re-running it with an unchanged source value is a no-op.
func (r *drawParticipationRepository) Upsert(
	ctx context.Context, participation *entity.DrawParticipation,
) error {
	return xcontext.DB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "draw_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"tickets_used": participation.TicketsUsed,
		}),
	}).Create(participation).Error
}

func (r *drawParticipationRepository) SumTicketsByDraw(
	ctx context.Context, drawID string,
) (int64, error) {
	var total int64
	err := xcontext.DB(ctx).Model(&entity.DrawParticipation{}).
		Where("draw_id=?", drawID).
		Select("COALESCE(SUM(tickets_used), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}

	return total, nil
}

func (r *drawParticipationRepository) SetWinner(ctx context.Context, userID, drawID string) error {
	tx := xcontext.DB(ctx).Model(&entity.DrawParticipation{}).
		Where("user_id=? AND draw_id=?", userID, drawID).
		Update("is_winner", true)
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// Delete removes an orphan participation row. Only the reconciliation
// auditor may call it.
func (r *drawParticipationRepository) Delete(ctx context.Context, userID, drawID string) error {
	tx := xcontext.DB(ctx).
		Delete(&entity.DrawParticipation{}, "user_id=? AND draw_id=?", userID, drawID)
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

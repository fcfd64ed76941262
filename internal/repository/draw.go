package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/ticketdraw/backend/internal/entity"
	"github.com/ticketdraw/backend/pkg/xcontext"
	"gorm.io/gorm"
)

type DrawRepository interface {
	Create(ctx context.Context, draw *entity.Draw) error
	GetByID(ctx context.Context, id string) (*entity.Draw, error)
	GetOpenDraw(ctx context.Context, now time.Time) (*entity.Draw, error)
	GetExpiredOpenDraws(ctx context.Context, now time.Time) ([]entity.Draw, error)
	UpdateTotalTickets(ctx context.Context, drawID string, total int) error
	Complete(ctx context.Context, drawID, winnerUserID string) error
	Cancel(ctx context.Context, drawID string) error
}

type drawRepository struct{}

func NewDrawRepository() *drawRepository {
	return &drawRepository{}
}

func (r *drawRepository) Create(ctx context.Context, draw *entity.Draw) error {
	return xcontext.DB(ctx).Create(draw).Error
}

func (r *drawRepository) GetByID(ctx context.Context, id string) (*entity.Draw, error) {
	var result entity.Draw
	if err := xcontext.DB(ctx).Take(&result, "id=?", id).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

// GetOpenDraw returns the earliest open draw whose close time has not yet
// passed.
func (r *drawRepository) GetOpenDraw(ctx context.Context, now time.Time) (*entity.Draw, error) {
	var result entity.Draw
	err := xcontext.DB(ctx).
		Where("status=? AND target_date > ?", entity.DrawOpen, now).
		Order("target_date ASC").Take(&result).Error
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *drawRepository) GetExpiredOpenDraws(
	ctx context.Context, now time.Time,
) ([]entity.Draw, error) {
	var result []entity.Draw
	err := xcontext.DB(ctx).
		Where("status=? AND target_date <= ?", entity.DrawOpen, now).
		Order("target_date ASC").Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *drawRepository) UpdateTotalTickets(ctx context.Context, drawID string, total int) error {
	tx := xcontext.DB(ctx).Model(&entity.Draw{}).
		Where("id=?", drawID).
		Update("total_tickets", total)
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// Complete transitions an open draw to completed with its winner. The guard
// on the current status makes concurrent closes resolve to exactly one
// winner: the loser of the race observes ErrRecordNotFound.
func (r *drawRepository) Complete(ctx context.Context, drawID, winnerUserID string) error {
	tx := xcontext.DB(ctx).Model(&entity.Draw{}).
		Where("id=? AND status=?", drawID, entity.DrawOpen).
		Updates(map[string]any{
			"status":         entity.DrawCompleted,
			"winner_user_id": sql.NullString{String: winnerUserID, Valid: true},
			"open_key":       sql.NullString{},
		})
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *drawRepository) Cancel(ctx context.Context, drawID string) error {
	tx := xcontext.DB(ctx).Model(&entity.Draw{}).
		Where("id=? AND status=?", drawID, entity.DrawOpen).
		Updates(map[string]any{
			"status":   entity.DrawCancelled,
			"open_key": sql.NullString{},
		})
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

package repository

import (
	"context"
	"database/sql"

	"github.com/ticketdraw/backend/internal/entity"
	"github.com/ticketdraw/backend/pkg/xcontext"
	"gorm.io/gorm"
)

// UserTicketCount is one row of the per-user applied-ticket aggregation of a
// draw.
type UserTicketCount struct {
	UserID string
	Count  int
}

type TicketRepository interface {
	Create(ctx context.Context, ticket *entity.Ticket) error
	GetByTransactionID(ctx context.Context, transactionID string) (*entity.Ticket, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
	CountByUserAndSource(ctx context.Context, userID string, source entity.TicketSource) (int64, error)
	CountAppliedByUserAndDraw(ctx context.Context, userID, drawID string) (int64, error)
	GetAppliedCountsByDraw(ctx context.Context, drawID string) ([]UserTicketCount, error)
	GetAppliedDrawIDsByUser(ctx context.Context, userID string) ([]string, error)
	ApplyAllOfUser(ctx context.Context, userID, drawID string) (int64, error)
	Delete(ctx context.Context, id string) error
}

type ticketRepository struct{}

func NewTicketRepository() *ticketRepository {
	return &ticketRepository{}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *entity.Ticket) error {
	return xcontext.DB(ctx).Create(ticket).Error
}

func (r *ticketRepository) GetByTransactionID(
	ctx context.Context, transactionID string,
) (*entity.Ticket, error) {
	var result entity.Ticket
	if err := xcontext.DB(ctx).Take(&result, "transaction_id=?", transactionID).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *ticketRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := xcontext.DB(ctx).Model(&entity.Ticket{}).
		Where("user_id=?", userID).Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (r *ticketRepository) CountByUserAndSource(
	ctx context.Context, userID string, source entity.TicketSource,
) (int64, error) {
	var count int64
	err := xcontext.DB(ctx).Model(&entity.Ticket{}).
		Where("user_id=? AND source=?", userID, source).Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (r *ticketRepository) CountAppliedByUserAndDraw(
	ctx context.Context, userID, drawID string,
) (int64, error) {
	var count int64
	err := xcontext.DB(ctx).Model(&entity.Ticket{}).
		Where("user_id=? AND draw_id=? AND is_applied=?", userID, drawID, true).
		Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (r *ticketRepository) GetAppliedCountsByDraw(
	ctx context.Context, drawID string,
) ([]UserTicketCount, error) {
	var result []UserTicketCount
	err := xcontext.DB(ctx).Model(&entity.Ticket{}).
		Select("user_id, COUNT(*) as count").
		Where("draw_id=? AND is_applied=?", drawID, true).
		Group("user_id").
		Scan(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *ticketRepository) GetAppliedDrawIDsByUser(
	ctx context.Context, userID string,
) ([]string, error) {
	var result []string
	err := xcontext.DB(ctx).Model(&entity.Ticket{}).
		Distinct("draw_id").
		Where("user_id=? AND is_applied=? AND draw_id IS NOT NULL", userID, true).
		Pluck("draw_id", &result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

// ApplyAllOfUser stamps every unapplied ticket of the user with the draw id.
// It returns the number of tickets it stamped.
func (r *ticketRepository) ApplyAllOfUser(
	ctx context.Context, userID, drawID string,
) (int64, error) {
	tx := xcontext.DB(ctx).Model(&entity.Ticket{}).
		Where("user_id=? AND is_applied=?", userID, false).
		Updates(map[string]any{
			"is_applied": true,
			"draw_id":    sql.NullString{String: drawID, Valid: true},
		})
	if tx.Error != nil {
		return 0, tx.Error
	}

	return tx.RowsAffected, nil
}

// Delete hard-deletes a ticket. Only the reconciliation auditor may call it.
func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	tx := xcontext.DB(ctx).Unscoped().Delete(&entity.Ticket{}, "id=?", id)
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

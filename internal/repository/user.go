package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ticketdraw/backend/internal/entity"
	"github.com/ticketdraw/backend/pkg/xcontext"
	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByReferralCode(ctx context.Context, code string) (*entity.User, error)
	GetTopByTotalTickets(ctx context.Context, limit int) ([]entity.User, error)
	GetList(ctx context.Context, offset, limit int) ([]entity.User, error)
	IncreaseTickets(ctx context.Context, userID string, count int) error
	ResetAvailableTickets(ctx context.Context) (int64, error)
	ResetAvailableTicketsByID(ctx context.Context, userID string) error
	SetWinner(ctx context.Context, userID string, winDate time.Time) error
}

type userRepository struct{}

func NewUserRepository() *userRepository {
	return &userRepository{}
}

func (r *userRepository) Create(ctx context.Context, user *entity.User) error {
	return xcontext.DB(ctx).Create(user).Error
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	var result entity.User
	if err := xcontext.DB(ctx).Take(&result, "id=?", id).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *userRepository) GetByReferralCode(ctx context.Context, code string) (*entity.User, error) {
	var result entity.User
	if err := xcontext.DB(ctx).Take(&result, "referral_code=?", code).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *userRepository) GetTopByTotalTickets(ctx context.Context, limit int) ([]entity.User, error) {
	var result []entity.User
	err := xcontext.DB(ctx).Where("total_tickets > 0").
		Order("total_tickets DESC").Limit(limit).Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *userRepository) GetList(ctx context.Context, offset, limit int) ([]entity.User, error) {
	var result []entity.User
	err := xcontext.DB(ctx).Order("created_at ASC").
		Offset(offset).Limit(limit).Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

// IncreaseTickets increments the available balance and the lifetime counter
// of a user in one statement.
func (r *userRepository) IncreaseTickets(ctx context.Context, userID string, count int) error {
	tx := xcontext.DB(ctx).Model(&entity.User{}).
		Where("id=?", userID).
		Updates(map[string]any{
			"available_tickets": gorm.Expr("available_tickets+?", count),
			"total_tickets":     gorm.Expr("total_tickets+?", count),
		})
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected > 1 {
		return errors.New("the number of affected rows is invalid")
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// ResetAvailableTickets zeroes every nonzero available balance and returns
// the number of users it touched. Lifetime counters are untouched.
func (r *userRepository) ResetAvailableTickets(ctx context.Context) (int64, error) {
	tx := xcontext.DB(ctx).Model(&entity.User{}).
		Where("available_tickets > 0").
		Update("available_tickets", 0)
	if tx.Error != nil {
		return 0, tx.Error
	}

	return tx.RowsAffected, nil
}

func (r *userRepository) ResetAvailableTicketsByID(ctx context.Context, userID string) error {
	tx := xcontext.DB(ctx).Model(&entity.User{}).
		Where("id=?", userID).
		Update("available_tickets", 0)
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *userRepository) SetWinner(ctx context.Context, userID string, winDate time.Time) error {
	tx := xcontext.DB(ctx).Model(&entity.User{}).
		Where("id=?", userID).
		Updates(map[string]any{
			"has_won":       true,
			"last_win_date": winDate,
		})
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

package repository

import (
	"context"

	"github.com/ticketdraw/backend/internal/entity"
	"github.com/ticketdraw/backend/pkg/xcontext"
)

type PostbackLogRepository interface {
	Create(ctx context.Context, log *entity.PostbackLog) error
	GetListByUserID(ctx context.Context, userID string, offset, limit int) ([]entity.PostbackLog, error)
}

type postbackLogRepository struct{}

func NewPostbackLogRepository() *postbackLogRepository {
	return &postbackLogRepository{}
}

func (r *postbackLogRepository) Create(ctx context.Context, log *entity.PostbackLog) error {
	return xcontext.DB(ctx).Create(log).Error
}

func (r *postbackLogRepository) GetListByUserID(
	ctx context.Context, userID string, offset, limit int,
) ([]entity.PostbackLog, error) {
	var result []entity.PostbackLog
	err := xcontext.DB(ctx).Where("user_id=?", userID).
		Order("created_at DESC").Offset(offset).Limit(limit).Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

package repository

import (
	"context"

	"github.com/ticketdraw/backend/internal/entity"
	"github.com/ticketdraw/backend/pkg/xcontext"
	"gorm.io/gorm/clause"
)

type ProcessedEventRepository interface {
	CheckAndReserve(ctx context.Context, event *entity.ProcessedEvent) (bool, error)
	GetByEventID(ctx context.Context, eventID string) (*entity.ProcessedEvent, error)
}

type processedEventRepository struct{}

func NewProcessedEventRepository() *processedEventRepository {
	return &processedEventRepository{}
}

// CheckAndReserve is an atomic insert-if-absent against the uniquely keyed
// event id. It returns false if the event was reserved before, so two
// concurrent calls with the same id can never both observe true.
func (r *processedEventRepository) CheckAndReserve(
	ctx context.Context, event *entity.ProcessedEvent,
) (bool, error) {
	tx := xcontext.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, tx.Error
	}

	return tx.RowsAffected == 1, nil
}

func (r *processedEventRepository) GetByEventID(
	ctx context.Context, eventID string,
) (*entity.ProcessedEvent, error) {
	var result entity.ProcessedEvent
	if err := xcontext.DB(ctx).Take(&result, "event_id=?", eventID).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

package cron

import (
	"context"
	"time"

	"github.com/ticketdraw/backend/internal/domain"
	"github.com/ticketdraw/backend/pkg/xcontext"
)

// CloseDrawCronJob is the safety net behind the external scheduler. Draws
// close weekly, but the hourly sweep guarantees an expired draw never stays
// open longer than an hour if the scheduler misses its trigger.
type CloseDrawCronJob struct {
	drawDomain domain.DrawDomain
}

func NewCloseDrawCronJob(drawDomain domain.DrawDomain) *CloseDrawCronJob {
	return &CloseDrawCronJob{drawDomain: drawDomain}
}

func (job *CloseDrawCronJob) Do(ctx context.Context) {
	closed, err := job.drawDomain.CloseExpired(ctx)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot close expired draws: %v", err)
		return
	}

	if len(closed) > 0 {
		xcontext.Logger(ctx).Infof("Closed %d expired draws", len(closed))
	}
}

func (job *CloseDrawCronJob) RunNow() bool {
	return true
}

func (job *CloseDrawCronJob) Next() time.Time {
	return time.Now().Truncate(time.Hour).Add(time.Hour)
}

package cron

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ticketdraw/backend/internal/domain"
	"github.com/ticketdraw/backend/internal/repository"
	"github.com/ticketdraw/backend/pkg/dateutil"
	"github.com/ticketdraw/backend/pkg/xcontext"
	"golang.org/x/sync/errgroup"
)

const reconcileBatchSize = 100

// ReconcileCronJob sweeps all users nightly and repairs any drift between
// ticket records and participation aggregates.
type ReconcileCronJob struct {
	userRepo    repository.UserRepository
	auditDomain domain.AuditDomain
}

func NewReconcileCronJob(
	userRepo repository.UserRepository,
	auditDomain domain.AuditDomain,
) *ReconcileCronJob {
	return &ReconcileCronJob{userRepo: userRepo, auditDomain: auditDomain}
}

func (job *ReconcileCronJob) Do(ctx context.Context) {
	var repairedUsers int64
	for offset := 0; ; offset += reconcileBatchSize {
		users, err := job.userRepo.GetList(ctx, offset, reconcileBatchSize)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot get users to reconcile: %v", err)
			return
		}

		if len(users) == 0 {
			break
		}

		group, groupCtx := errgroup.WithContext(ctx)
		group.SetLimit(4)
		for _, user := range users {
			userID := user.ID
			group.Go(func() error {
				repaired, err := job.auditDomain.ReconcileUser(groupCtx, userID)
				if err != nil {
					xcontext.Logger(ctx).Warnf("Cannot reconcile user %s: %v", userID, err)
					return nil
				}

				if repaired > 0 {
					atomic.AddInt64(&repairedUsers, 1)
				}
				return nil
			})
		}

		if err := group.Wait(); err != nil {
			xcontext.Logger(ctx).Errorf("Reconcile sweep aborted: %v", err)
			return
		}
	}

	if repairedUsers > 0 {
		xcontext.Logger(ctx).Warnf("Reconcile sweep repaired %d users", repairedUsers)
	}
}

func (job *ReconcileCronJob) RunNow() bool {
	return false
}

func (job *ReconcileCronJob) Next() time.Time {
	return dateutil.BeginningOfDay(time.Now()).AddDate(0, 0, 1)
}

package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/ticketdraw/backend/internal/entity"
	"github.com/ticketdraw/backend/internal/repository"
	"github.com/ticketdraw/backend/pkg/xcontext"
	"gorm.io/gorm"
)

// Propagator credits referrers when the user they referred completes a
// first survey.
type Propagator struct {
	userRepo   repository.UserRepository
	ticketRepo repository.TicketRepository
	ledger     *Ledger
}

func NewPropagator(
	userRepo repository.UserRepository,
	ticketRepo repository.TicketRepository,
	ledger *Ledger,
) *Propagator {
	return &Propagator{
		userRepo:   userRepo,
		ticketRepo: ticketRepo,
		ledger:     ledger,
	}
}

// Propagate awards one referral ticket to the referrer of the given user if
// this award was the user's first survey completion. The referral ticket uses
// a deterministic transaction id, so re-delivery of the triggering event can
// never credit the referrer twice. The awarded ticket is applied to the draw
// immediately.
func (p *Propagator) Propagate(
	ctx context.Context, referredUserID, drawID string, awardedCount int,
) error {
	surveyCount, err := p.ticketRepo.CountByUserAndSource(
		ctx, referredUserID, entity.SourceSurvey)
	if err != nil {
		return err
	}

	// A count above the just-awarded amount means an earlier survey already
	// went through this path.
	if int(surveyCount) != awardedCount {
		return nil
	}

	user, err := p.userRepo.GetByID(ctx, referredUserID)
	if err != nil {
		return err
	}

	if !user.ReferredBy.Valid {
		return nil
	}

	referrerID := user.ReferredBy.String
	referrerSurveys, err := p.ticketRepo.CountByUserAndSource(
		ctx, referrerID, entity.SourceSurvey)
	if err != nil {
		return err
	}

	// Referrers only qualify once they have completed a survey themselves.
	if referrerSurveys == 0 {
		xcontext.Logger(ctx).Debugf(
			"Skipped referral credit: referrer %s has no survey ticket", referrerID)
		return nil
	}

	token := fmt.Sprintf("referral:%s:%s", referrerID, referredUserID)
	if _, err := p.ticketRepo.GetByTransactionID(ctx, token); err == nil {
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	if _, err := p.ledger.Award(ctx, referrerID, 1, entity.SourceReferral, token); err != nil {
		return err
	}

	if _, err := p.ledger.ApplyAllToOpenDraw(ctx, referrerID, drawID); err != nil {
		return err
	}

	xcontext.WithCommitDBTransaction(ctx)
	xcontext.Logger(ctx).Infof(
		"Credited referral ticket to %s for referring %s", referrerID, referredUserID)
	return nil
}

package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/ticketdraw/backend/internal/entity"
	"github.com/ticketdraw/backend/internal/repository"
	"github.com/ticketdraw/backend/pkg/errorx"
	"github.com/ticketdraw/backend/pkg/xcontext"
)

// Survey completions award exactly one ticket; the bonus re-engagement flow
// awards two. Any other survey count indicates an upstream bug and is
// rejected before it can over-credit.
const (
	StandardSurveyAward = 1
	BonusSurveyAward    = 2
)

// Ledger owns every mutation of user balances, ticket records, and draw
// participation aggregates. No other component writes them directly.
type Ledger struct {
	userRepo          repository.UserRepository
	ticketRepo        repository.TicketRepository
	drawRepo          repository.DrawRepository
	participationRepo repository.DrawParticipationRepository
}

func New(
	userRepo repository.UserRepository,
	ticketRepo repository.TicketRepository,
	drawRepo repository.DrawRepository,
	participationRepo repository.DrawParticipationRepository,
) *Ledger {
	return &Ledger{
		userRepo:          userRepo,
		ticketRepo:        ticketRepo,
		drawRepo:          drawRepo,
		participationRepo: participationRepo,
	}
}

// Award creates count ticket records and increments both the available
// balance and the lifetime counter of the user. It must run inside the
// caller's transaction span.
func (l *Ledger) Award(
	ctx context.Context,
	userID string,
	count int,
	source entity.TicketSource,
	transactionID string,
) ([]string, error) {
	if count <= 0 {
		xcontext.Logger(ctx).Errorf(
			"Rejected award of %d tickets (source %s) for user %s", count, source, userID)
		return nil, errorx.New(errorx.BadRequest, "Invalid award count")
	}

	if source == entity.SourceSurvey &&
		count != StandardSurveyAward && count != BonusSurveyAward {
		xcontext.Logger(ctx).Errorf(
			"Rejected survey award of %d tickets for user %s", count, userID)
		return nil, errorx.New(errorx.BadRequest, "Invalid survey award count")
	}

	ticketIDs := []string{}
	for i := 0; i < count; i++ {
		token := transactionID
		if i > 0 {
			token = fmt.Sprintf("%s:%d", transactionID, i+1)
		}

		ticket := &entity.Ticket{
			Base:          entity.Base{ID: uuid.NewString()},
			UserID:        userID,
			Source:        source,
			TransactionID: token,
		}

		if err := l.ticketRepo.Create(ctx, ticket); err != nil {
			return nil, err
		}

		ticketIDs = append(ticketIDs, ticket.ID)
	}

	if err := l.userRepo.IncreaseTickets(ctx, userID, count); err != nil {
		return nil, err
	}

	return ticketIDs, nil
}

// ApplyAllToOpenDraw stamps the user's unapplied tickets with the draw,
// sets the participation aggregate to the current available balance, and
// recomputes the draw total. Setting rather than incrementing makes the
// operation safe to re-run with an unchanged balance.
func (l *Ledger) ApplyAllToOpenDraw(ctx context.Context, userID, drawID string) (int, error) {
	user, err := l.userRepo.GetByID(ctx, userID)
	if err != nil {
		return 0, err
	}

	if _, err := l.ticketRepo.ApplyAllOfUser(ctx, userID, drawID); err != nil {
		return 0, err
	}

	err = l.participationRepo.Upsert(ctx, &entity.DrawParticipation{
		UserID:      userID,
		DrawID:      drawID,
		TicketsUsed: user.AvailableTickets,
	})
	if err != nil {
		return 0, err
	}

	total, err := l.participationRepo.SumTicketsByDraw(ctx, drawID)
	if err != nil {
		return 0, err
	}

	if err := l.drawRepo.UpdateTotalTickets(ctx, drawID, int(total)); err != nil {
		return 0, err
	}

	return user.AvailableTickets, nil
}

// ResetAll zeroes every available balance. Called exactly once per
// completed or cancelled draw cycle.
func (l *Ledger) ResetAll(ctx context.Context) (int64, error) {
	return l.userRepo.ResetAvailableTickets(ctx)
}

// ResetOne zeroes a single user's available balance and returns the
// previous value.
func (l *Ledger) ResetOne(ctx context.Context, userID string) (int, error) {
	user, err := l.userRepo.GetByID(ctx, userID)
	if err != nil {
		return 0, err
	}

	if user.AvailableTickets == 0 {
		return 0, nil
	}

	if err := l.userRepo.ResetAvailableTicketsByID(ctx, userID); err != nil {
		return 0, err
	}

	return user.AvailableTickets, nil
}

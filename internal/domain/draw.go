package domain

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/ticketdraw/backend/internal/common"
	"github.com/ticketdraw/backend/internal/domain/ledger"
	"github.com/ticketdraw/backend/internal/domain/task"
	"github.com/ticketdraw/backend/internal/entity"
	"github.com/ticketdraw/backend/internal/model"
	"github.com/ticketdraw/backend/internal/repository"
	"github.com/ticketdraw/backend/pkg/crypto"
	"github.com/ticketdraw/backend/pkg/dateutil"
	"github.com/ticketdraw/backend/pkg/errorx"
	"github.com/ticketdraw/backend/pkg/pubsub"
	"github.com/ticketdraw/backend/pkg/xcontext"
	"golang.org/x/exp/slices"
	"gorm.io/gorm"
)

const winnerEmailTemplate = "draw_winner"

type DrawDomain interface {
	GetCurrent(ctx context.Context, req *model.GetCurrentDrawRequest) (*model.GetCurrentDrawResponse, error)
	CloseDraws(ctx context.Context, req *model.CloseDrawsRequest) (*model.CloseDrawsResponse, error)
	PickWinner(ctx context.Context, req *model.PickWinnerRequest) (*model.PickWinnerResponse, error)
	GetOrCreateOpenDraw(ctx context.Context) (*entity.Draw, error)
	CloseExpired(ctx context.Context) ([]entity.Draw, error)
}

type drawDomain struct {
	drawRepo          repository.DrawRepository
	participationRepo repository.DrawParticipationRepository
	ticketRepo        repository.TicketRepository
	userRepo          repository.UserRepository
	ledger            *ledger.Ledger
	publisher         pubsub.Publisher
	roleVerifier      *common.GlobalRoleVerifier
}

func NewDrawDomain(
	drawRepo repository.DrawRepository,
	participationRepo repository.DrawParticipationRepository,
	ticketRepo repository.TicketRepository,
	userRepo repository.UserRepository,
	ledger *ledger.Ledger,
	publisher pubsub.Publisher,
) *drawDomain {
	return &drawDomain{
		drawRepo:          drawRepo,
		participationRepo: participationRepo,
		ticketRepo:        ticketRepo,
		userRepo:          userRepo,
		ledger:            ledger,
		publisher:         publisher,
		roleVerifier:      common.NewGlobalRoleVerifier(userRepo),
	}
}

func (d *drawDomain) GetCurrent(
	ctx context.Context, req *model.GetCurrentDrawRequest,
) (*model.GetCurrentDrawResponse, error) {
	draw, err := d.GetOrCreateOpenDraw(ctx)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get or create open draw: %v", err)
		return nil, errorx.Unknown
	}

	return &model.GetCurrentDrawResponse{Draw: model.ConvertDraw(draw)}, nil
}

// GetOrCreateOpenDraw returns the single open draw, creating it if none
// exists. The unique open_key column resolves concurrent creates: the loser
// of the race fails its insert and re-reads the winner's row.
func (d *drawDomain) GetOrCreateOpenDraw(ctx context.Context) (*entity.Draw, error) {
	now := time.Now()
	draw, err := d.drawRepo.GetOpenDraw(ctx, now)
	if err == nil {
		return draw, nil
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// An expired draw still holds the open key until it is closed. Close it
	// here so crediting never has to wait for the hourly sweep.
	if _, err := d.CloseExpired(ctx); err != nil {
		return nil, err
	}

	cfg := xcontext.Configs(ctx).Draw
	newDraw := &entity.Draw{
		Base:       entity.Base{ID: uuid.NewString()},
		TargetDate: dateutil.NextWeekdayHour(now, cfg.CloseWeekday, cfg.CloseHour),
		Prize:      cfg.DefaultPrize,
		Status:     entity.DrawOpen,
		OpenKey:    sql.NullString{String: entity.OpenKeyValue, Valid: true},
	}

	if err := d.drawRepo.Create(ctx, newDraw); err != nil {
		xcontext.Logger(ctx).Debugf("Cannot create open draw, re-reading: %v", err)
		return d.drawRepo.GetOpenDraw(ctx, now)
	}

	xcontext.Logger(ctx).Infof(
		"Opened draw %s closing at %s", newDraw.ID, newDraw.TargetDate.Format(time.RFC3339))
	return newDraw, nil
}

// CloseDraws is invoked by the external scheduler. It authenticates with a
// shared secret header rather than a user token.
func (d *drawDomain) CloseDraws(
	ctx context.Context, req *model.CloseDrawsRequest,
) (*model.CloseDrawsResponse, error) {
	secret := xcontext.HTTPRequest(ctx).Header.Get("X-Scheduler-Secret")
	if secret == "" || secret != xcontext.Configs(ctx).Postback.SchedulerSecret {
		return nil, errorx.New(errorx.PermissionDenied, "Invalid scheduler secret")
	}

	closed, err := d.CloseExpired(ctx)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot close expired draws: %v", err)
		return nil, errorx.Unknown
	}

	resp := &model.CloseDrawsResponse{Closed: []model.Draw{}}
	for i := range closed {
		resp.Closed = append(resp.Closed, model.ConvertDraw(&closed[i]))
	}

	return resp, nil
}

// CloseExpired closes every open draw whose close time has passed. A draw
// that loses a concurrent close race is skipped, not failed.
func (d *drawDomain) CloseExpired(ctx context.Context) ([]entity.Draw, error) {
	expired, err := d.drawRepo.GetExpiredOpenDraws(ctx, time.Now())
	if err != nil {
		return nil, err
	}

	closed := []entity.Draw{}
	for i := range expired {
		draw, err := d.closeOne(ctx, &expired[i])
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				xcontext.Logger(ctx).Infof("Draw %s was closed concurrently", expired[i].ID)
				continue
			}
			return nil, err
		}

		closed = append(closed, *draw)
	}

	return closed, nil
}

func (d *drawDomain) closeOne(ctx context.Context, draw *entity.Draw) (*entity.Draw, error) {
	winnerID, total, err := d.pickWeighted(ctx, draw.ID)
	if err != nil {
		return nil, err
	}

	if total == 0 {
		ctx = xcontext.WithDBTransaction(ctx)
		defer xcontext.WithRollbackDBTransaction(ctx)

		if err := d.drawRepo.Cancel(ctx, draw.ID); err != nil {
			return nil, err
		}

		if _, err := d.ledger.ResetAll(ctx); err != nil {
			return nil, err
		}

		xcontext.WithCommitDBTransaction(ctx)
		xcontext.Logger(ctx).Warnf("Cancelled draw %s with no participants", draw.ID)

		draw.Status = entity.DrawCancelled
		draw.OpenKey = sql.NullString{}
		return draw, nil
	}

	if err := d.complete(ctx, draw.ID, winnerID); err != nil {
		return nil, err
	}

	xcontext.Logger(ctx).Infof(
		"Closed draw %s with winner %s over %d tickets", draw.ID, winnerID, total)

	task.Publish(ctx, d.publisher, task.TypeSendEmail, task.SendEmailPayload{
		UserID:   winnerID,
		Template: winnerEmailTemplate,
		DrawID:   draw.ID,
		Prize:    draw.Prize,
	})

	draw.Status = entity.DrawCompleted
	draw.WinnerUserID = sql.NullString{String: winnerID, Valid: true}
	draw.OpenKey = sql.NullString{}
	return draw, nil
}

// pickWeighted selects a winner with probability proportional to applied
// tickets. It flattens the per-user counts into one index space and walks to
// a uniform random index. Users are visited in a fixed order so equal
// snapshots always map indices to users the same way.
func (d *drawDomain) pickWeighted(ctx context.Context, drawID string) (string, int, error) {
	participations, err := d.participationRepo.GetByDrawID(ctx, drawID)
	if err != nil {
		return "", 0, err
	}

	counts := []repository.UserTicketCount{}
	for _, p := range participations {
		if p.TicketsUsed > 0 {
			counts = append(counts, repository.UserTicketCount{UserID: p.UserID, Count: p.TicketsUsed})
		}
	}

	// The aggregates can lag behind the ticket records if a crash hit
	// between the two writes. Fall back to counting the records themselves.
	if len(counts) == 0 {
		counts, err = d.ticketRepo.GetAppliedCountsByDraw(ctx, drawID)
		if err != nil {
			return "", 0, err
		}
	}

	total := 0
	for _, c := range counts {
		total += c.Count
	}

	if total == 0 {
		return "", 0, nil
	}

	slices.SortFunc(counts, func(a, b repository.UserTicketCount) bool {
		return a.UserID < b.UserID
	})

	index := crypto.RandIntn(total)
	for _, c := range counts {
		if index < c.Count {
			return c.UserID, total, nil
		}
		index -= c.Count
	}

	return counts[len(counts)-1].UserID, total, nil
}

// complete runs the winner bookkeeping atomically: draw transition,
// participation flag, user win record, and the global balance reset.
func (d *drawDomain) complete(ctx context.Context, drawID, winnerID string) error {
	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	if err := d.drawRepo.Complete(ctx, drawID, winnerID); err != nil {
		return err
	}

	err := d.participationRepo.SetWinner(ctx, winnerID, drawID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if err := d.userRepo.SetWinner(ctx, winnerID, time.Now()); err != nil {
		return err
	}

	if _, err := d.ledger.ResetAll(ctx); err != nil {
		return err
	}

	xcontext.WithCommitDBTransaction(ctx)
	return nil
}

// PickWinner lets an admin close an open draw with an explicit winner,
// bypassing the random selection. The winner must hold applied tickets.
func (d *drawDomain) PickWinner(
	ctx context.Context, req *model.PickWinnerRequest,
) (*model.PickWinnerResponse, error) {
	if err := d.roleVerifier.Verify(ctx, entity.GlobalAdminRoles...); err != nil {
		xcontext.Logger(ctx).Debugf("Permission denied: %v", err)
		return nil, errorx.New(errorx.PermissionDenied, "Permission denied")
	}

	draw, err := d.drawRepo.GetByID(ctx, req.DrawID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found draw")
		}

		xcontext.Logger(ctx).Errorf("Cannot get draw: %v", err)
		return nil, errorx.Unknown
	}

	if draw.Status != entity.DrawOpen {
		return nil, errorx.New(errorx.BadRequest, "Draw is not open")
	}

	participation, err := d.participationRepo.Get(ctx, req.UserID, req.DrawID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.BadRequest, "User is not participating in this draw")
		}

		xcontext.Logger(ctx).Errorf("Cannot get participation: %v", err)
		return nil, errorx.Unknown
	}

	if participation.TicketsUsed == 0 {
		return nil, errorx.New(errorx.BadRequest, "User has no ticket in this draw")
	}

	if err := d.complete(ctx, req.DrawID, req.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.BadRequest, "Draw was closed concurrently")
		}

		xcontext.Logger(ctx).Errorf("Cannot complete draw: %v", err)
		return nil, errorx.Unknown
	}

	xcontext.Logger(ctx).Infof(
		"Admin %s picked winner %s for draw %s",
		xcontext.RequestUserID(ctx), req.UserID, req.DrawID)

	task.Publish(ctx, d.publisher, task.TypeSendEmail, task.SendEmailPayload{
		UserID:   req.UserID,
		Template: winnerEmailTemplate,
		DrawID:   draw.ID,
		Prize:    draw.Prize,
	})

	draw.Status = entity.DrawCompleted
	draw.WinnerUserID = sql.NullString{String: req.UserID, Valid: true}
	draw.OpenKey = sql.NullString{}
	return &model.PickWinnerResponse{Draw: model.ConvertDraw(draw)}, nil
}

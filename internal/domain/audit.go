package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/ticketdraw/backend/internal/common"
	"github.com/ticketdraw/backend/internal/domain/ledger"
	"github.com/ticketdraw/backend/internal/entity"
	"github.com/ticketdraw/backend/internal/model"
	"github.com/ticketdraw/backend/internal/repository"
	"github.com/ticketdraw/backend/pkg/errorx"
	"github.com/ticketdraw/backend/pkg/xcontext"
	"gorm.io/gorm"
)

type AuditDomain interface {
	Verify(ctx context.Context, req *model.VerifyTicketsRequest) (*model.VerifyTicketsResponse, error)
	Repair(ctx context.Context, req *model.RepairTicketsRequest) (*model.RepairTicketsResponse, error)
	EmergencyTicket(ctx context.Context, req *model.IssueEmergencyTicketRequest) (*model.IssueEmergencyTicketResponse, error)
	ReconcileUser(ctx context.Context, userID string) (int, error)
}

type auditDomain struct {
	userRepo          repository.UserRepository
	ticketRepo        repository.TicketRepository
	drawRepo          repository.DrawRepository
	participationRepo repository.DrawParticipationRepository
	drawDomain        DrawDomain
	ledger            *ledger.Ledger
	roleVerifier      *common.GlobalRoleVerifier
}

func NewAuditDomain(
	userRepo repository.UserRepository,
	ticketRepo repository.TicketRepository,
	drawRepo repository.DrawRepository,
	participationRepo repository.DrawParticipationRepository,
	drawDomain DrawDomain,
	ledger *ledger.Ledger,
) *auditDomain {
	return &auditDomain{
		userRepo:          userRepo,
		ticketRepo:        ticketRepo,
		drawRepo:          drawRepo,
		participationRepo: participationRepo,
		drawDomain:        drawDomain,
		ledger:            ledger,
		roleVerifier:      common.NewGlobalRoleVerifier(userRepo),
	}
}

// targetUser resolves the audited user. Users may audit themselves, anyone
// else needs an admin role.
func (d *auditDomain) targetUser(ctx context.Context, requested string) (string, error) {
	requester := xcontext.RequestUserID(ctx)
	if requested == "" || requested == requester {
		return requester, nil
	}

	if err := d.roleVerifier.Verify(ctx, entity.GlobalAdminRoles...); err != nil {
		xcontext.Logger(ctx).Debugf("Permission denied: %v", err)
		return "", errorx.New(errorx.PermissionDenied, "Permission denied")
	}

	return requested, nil
}

func (d *auditDomain) Verify(
	ctx context.Context, req *model.VerifyTicketsRequest,
) (*model.VerifyTicketsResponse, error) {
	userID, err := d.targetUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	discrepancies, err := d.findDiscrepancies(ctx, userID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot verify tickets of user %s: %v", userID, err)
		return nil, errorx.Unknown
	}

	return &model.VerifyTicketsResponse{
		HasDiscrepancy: len(discrepancies) > 0,
		Discrepancies:  discrepancies,
	}, nil
}

// findDiscrepancies compares the ticket records of a user against the
// participation aggregates. Ticket records are the source of truth.
func (d *auditDomain) findDiscrepancies(
	ctx context.Context, userID string,
) ([]model.Discrepancy, error) {
	user, err := d.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	drawIDs, err := d.ticketRepo.GetAppliedDrawIDsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	participations, err := d.participationRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	participated := map[string]entity.DrawParticipation{}
	for _, p := range participations {
		participated[p.DrawID] = p
	}

	discrepancies := []model.Discrepancy{}
	for _, drawID := range drawIDs {
		applied, err := d.ticketRepo.CountAppliedByUserAndDraw(ctx, userID, drawID)
		if err != nil {
			return nil, err
		}

		p, ok := participated[drawID]
		if !ok {
			discrepancies = append(discrepancies, model.Discrepancy{
				DrawID:   drawID,
				Type:     model.DiscrepancyMissingRow,
				Expected: int(applied),
				Actual:   0,
			})
			continue
		}

		delete(participated, drawID)
		if p.TicketsUsed != int(applied) {
			discrepancies = append(discrepancies, model.Discrepancy{
				DrawID:   drawID,
				Type:     model.DiscrepancyCountMismatch,
				Expected: int(applied),
				Actual:   p.TicketsUsed,
			})
		}
	}

	// Whatever remains has no backing ticket at all.
	for drawID, p := range participated {
		discrepancies = append(discrepancies, model.Discrepancy{
			DrawID:   drawID,
			Type:     model.DiscrepancyOrphanRow,
			Expected: 0,
			Actual:   p.TicketsUsed,
		})
	}

	totalTickets, err := d.ticketRepo.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user.AvailableTickets > int(totalTickets) {
		discrepancies = append(discrepancies, model.Discrepancy{
			Type:     model.DiscrepancyBalanceOverApplied,
			Expected: int(totalTickets),
			Actual:   user.AvailableTickets,
		})
	}

	return discrepancies, nil
}

// Repair applies the idempotent row repairs for every discrepancy of the
// user. Running it on a consistent user writes nothing.
func (d *auditDomain) Repair(
	ctx context.Context, req *model.RepairTicketsRequest,
) (*model.RepairTicketsResponse, error) {
	userID, err := d.targetUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	discrepancies, err := d.findDiscrepancies(ctx, userID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot verify tickets of user %s: %v", userID, err)
		return nil, errorx.Unknown
	}

	repaired, err := d.repairAll(ctx, userID, discrepancies)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot repair tickets of user %s: %v", userID, err)
		return nil, errorx.Unknown
	}

	return &model.RepairTicketsResponse{Repaired: repaired}, nil
}

// ReconcileUser is the internal entrypoint of the automated sweep. It skips
// the role check of Repair and returns the number of repaired rows.
func (d *auditDomain) ReconcileUser(ctx context.Context, userID string) (int, error) {
	discrepancies, err := d.findDiscrepancies(ctx, userID)
	if err != nil {
		return 0, err
	}

	if len(discrepancies) == 0 {
		return 0, nil
	}

	repaired, err := d.repairAll(ctx, userID, discrepancies)
	if err != nil {
		return 0, err
	}

	return len(repaired), nil
}

func (d *auditDomain) repairAll(
	ctx context.Context, userID string, discrepancies []model.Discrepancy,
) ([]model.Discrepancy, error) {
	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	repaired := []model.Discrepancy{}
	touchedDraws := map[string]bool{}
	for _, disc := range discrepancies {
		switch disc.Type {
		case model.DiscrepancyCountMismatch, model.DiscrepancyMissingRow:
			err := d.participationRepo.Upsert(ctx, &entity.DrawParticipation{
				UserID:      userID,
				DrawID:      disc.DrawID,
				TicketsUsed: disc.Expected,
			})
			if err != nil {
				return nil, err
			}

		case model.DiscrepancyOrphanRow:
			err := d.participationRepo.Delete(ctx, userID, disc.DrawID)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}

		default:
			xcontext.Logger(ctx).Warnf(
				"Discrepancy %s of user %s needs manual intervention", disc.Type, userID)
			continue
		}

		touchedDraws[disc.DrawID] = true
		repaired = append(repaired, disc)
	}

	for drawID := range touchedDraws {
		total, err := d.participationRepo.SumTicketsByDraw(ctx, drawID)
		if err != nil {
			return nil, err
		}

		// The draw row may be long gone for historical repairs.
		err = d.drawRepo.UpdateTotalTickets(ctx, drawID, int(total))
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	xcontext.WithCommitDBTransaction(ctx)
	if len(repaired) > 0 {
		xcontext.Logger(ctx).Infof("Repaired %d discrepancies of user %s", len(repaired), userID)
	}

	return repaired, nil
}

// EmergencyTicket issues exactly one recovery ticket to a user holding zero
// tickets of any kind. It bounds the damage of an upstream crediting bug
// without masking it, so the issuance is logged distinctly from ordinary
// awards.
func (d *auditDomain) EmergencyTicket(
	ctx context.Context, req *model.IssueEmergencyTicketRequest,
) (*model.IssueEmergencyTicketResponse, error) {
	if err := d.roleVerifier.Verify(ctx, entity.GlobalAdminRoles...); err != nil {
		xcontext.Logger(ctx).Debugf("Permission denied: %v", err)
		return nil, errorx.New(errorx.PermissionDenied, "Permission denied")
	}

	if _, err := d.userRepo.GetByID(ctx, req.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found user")
		}

		xcontext.Logger(ctx).Errorf("Cannot get user: %v", err)
		return nil, errorx.Unknown
	}

	count, err := d.ticketRepo.CountByUser(ctx, req.UserID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot count tickets: %v", err)
		return nil, errorx.Unknown
	}

	if count > 0 {
		return nil, errorx.New(errorx.BadRequest, "User already has tickets")
	}

	draw, err := d.drawDomain.GetOrCreateOpenDraw(ctx)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get or create open draw: %v", err)
		return nil, errorx.Unknown
	}

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	token := fmt.Sprintf("emergency:%s:%s", req.UserID, draw.ID)
	ticketIDs, err := d.ledger.Award(ctx, req.UserID, 1, entity.SourceEmergency, token)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot award emergency ticket: %v", err)
		return nil, errorx.Unknown
	}

	if _, err := d.ledger.ApplyAllToOpenDraw(ctx, req.UserID, draw.ID); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot apply emergency ticket: %v", err)
		return nil, errorx.Unknown
	}

	xcontext.WithCommitDBTransaction(ctx)
	xcontext.Logger(ctx).Warnf(
		"EMERGENCY ticket %s issued to user %s by admin %s",
		ticketIDs[0], req.UserID, xcontext.RequestUserID(ctx))

	return &model.IssueEmergencyTicketResponse{TicketID: ticketIDs[0]}, nil
}

package domain

import (
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/ticketdraw/backend/internal/entity"
	"github.com/ticketdraw/backend/internal/model"
	"github.com/ticketdraw/backend/internal/repository"
	"github.com/ticketdraw/backend/pkg/errorx"
	"github.com/ticketdraw/backend/pkg/testutil"
	"github.com/ticketdraw/backend/pkg/xcontext"
)

func Test_auditDomain_consistentUser(t *testing.T) {
	ctx := testutil.MockContextWithUserID(testutil.User1.ID)
	testutil.CreateFixtureDb(ctx)
	d := newTestDomains()

	_, err := d.ledger.Award(ctx, testutil.User1.ID, 2, entity.SourceSurvey, "tx1")
	require.NoError(t, err)
	_, err = d.ledger.ApplyAllToOpenDraw(ctx, testutil.User1.ID, testutil.Draw1.ID)
	require.NoError(t, err)

	resp, err := d.auditDomain.Verify(ctx, &model.VerifyTicketsRequest{})
	require.NoError(t, err)
	require.False(t, resp.HasDiscrepancy)
	require.Empty(t, resp.Discrepancies)

	repairResp, err := d.auditDomain.Repair(ctx, &model.RepairTicketsRequest{})
	require.NoError(t, err)
	require.Empty(t, repairResp.Repaired)
}

func Test_auditDomain_repairsAllDriftKinds(t *testing.T) {
	ctx := testutil.MockContextWithUserID(testutil.User1.ID)
	testutil.CreateFixtureDb(ctx)
	d := newTestDomains()
	ticketRepo := repository.NewTicketRepository()
	participationRepo := repository.NewDrawParticipationRepository()

	// Mismatch: the aggregate says 5, the ticket records say 2.
	_, err := d.ledger.Award(ctx, testutil.User1.ID, 2, entity.SourceSurvey, "tx1")
	require.NoError(t, err)
	_, err = d.ledger.ApplyAllToOpenDraw(ctx, testutil.User1.ID, testutil.Draw1.ID)
	require.NoError(t, err)
	require.NoError(t, participationRepo.Upsert(ctx, &entity.DrawParticipation{
		UserID:      testutil.User1.ID,
		DrawID:      testutil.Draw1.ID,
		TicketsUsed: 5,
	}))

	// Orphan: a participation row of a draw with no backing tickets.
	require.NoError(t, participationRepo.Upsert(ctx, &entity.DrawParticipation{
		UserID:      testutil.User1.ID,
		DrawID:      "ghost-draw",
		TicketsUsed: 3,
	}))

	// Missing: applied tickets of a draw with no participation row.
	missingDrawID := "missing-draw"
	require.NoError(t, ticketRepo.Create(ctx, &entity.Ticket{
		Base:          entity.Base{ID: uuid.NewString()},
		UserID:        testutil.User1.ID,
		Source:        entity.SourceSurvey,
		TransactionID: "tx-old",
		IsApplied:     true,
		DrawID:        sql.NullString{String: missingDrawID, Valid: true},
	}))

	resp, err := d.auditDomain.Verify(ctx, &model.VerifyTicketsRequest{})
	require.NoError(t, err)
	require.True(t, resp.HasDiscrepancy)
	require.Len(t, resp.Discrepancies, 3)

	kinds := map[string]model.Discrepancy{}
	for _, disc := range resp.Discrepancies {
		kinds[disc.Type] = disc
	}
	require.Equal(t, 2, kinds[model.DiscrepancyCountMismatch].Expected)
	require.Equal(t, 5, kinds[model.DiscrepancyCountMismatch].Actual)
	require.Equal(t, 3, kinds[model.DiscrepancyOrphanRow].Actual)
	require.Equal(t, 1, kinds[model.DiscrepancyMissingRow].Expected)

	repairResp, err := d.auditDomain.Repair(ctx, &model.RepairTicketsRequest{})
	require.NoError(t, err)
	require.Len(t, repairResp.Repaired, 3)

	// The mismatch is overwritten to the true count.
	participation, err := participationRepo.Get(ctx, testutil.User1.ID, testutil.Draw1.ID)
	require.NoError(t, err)
	require.Equal(t, 2, participation.TicketsUsed)

	// The orphan row is gone and the missing row exists.
	_, err = participationRepo.Get(ctx, testutil.User1.ID, "ghost-draw")
	require.Error(t, err)
	created, err := participationRepo.Get(ctx, testutil.User1.ID, missingDrawID)
	require.NoError(t, err)
	require.Equal(t, 1, created.TicketsUsed)

	// Repair is idempotent: a second run finds nothing to do.
	verifyResp, err := d.auditDomain.Verify(ctx, &model.VerifyTicketsRequest{})
	require.NoError(t, err)
	require.False(t, verifyResp.HasDiscrepancy)
	repairResp, err = d.auditDomain.Repair(ctx, &model.RepairTicketsRequest{})
	require.NoError(t, err)
	require.Empty(t, repairResp.Repaired)
}

func Test_auditDomain_permissions(t *testing.T) {
	ctx := testutil.MockContextWithUserID(testutil.User1.ID)
	testutil.CreateFixtureDb(ctx)
	d := newTestDomains()

	// Users cannot audit somebody else.
	_, err := d.auditDomain.Verify(ctx, &model.VerifyTicketsRequest{UserID: testutil.User2.ID})
	require.Equal(t, errorx.New(errorx.PermissionDenied, "Permission denied"), err)

	// Admins can.
	adminCtx := xcontext.WithRequestUserID(ctx, testutil.Admin.ID)
	resp, err := d.auditDomain.Verify(adminCtx, &model.VerifyTicketsRequest{UserID: testutil.User2.ID})
	require.NoError(t, err)
	require.False(t, resp.HasDiscrepancy)
}

func Test_auditDomain_emergencyTicket(t *testing.T) {
	ctx := testutil.MockContextWithUserID(testutil.Admin.ID)
	testutil.CreateFixtureDb(ctx)
	d := newTestDomains()
	ticketRepo := repository.NewTicketRepository()

	// Only admins may issue.
	userCtx := xcontext.WithRequestUserID(ctx, testutil.User1.ID)
	_, err := d.auditDomain.EmergencyTicket(userCtx, &model.IssueEmergencyTicketRequest{
		UserID: testutil.User3.ID,
	})
	require.Equal(t, errorx.New(errorx.PermissionDenied, "Permission denied"), err)

	resp, err := d.auditDomain.EmergencyTicket(ctx, &model.IssueEmergencyTicketRequest{
		UserID: testutil.User3.ID,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.TicketID)

	count, err := ticketRepo.CountByUserAndSource(ctx, testutil.User3.ID, entity.SourceEmergency)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	user, err := repository.NewUserRepository().GetByID(ctx, testutil.User3.ID)
	require.NoError(t, err)
	require.Equal(t, 1, user.AvailableTickets)

	// A user who already holds tickets is refused.
	_, err = d.auditDomain.EmergencyTicket(ctx, &model.IssueEmergencyTicketRequest{
		UserID: testutil.User3.ID,
	})
	require.Equal(t, errorx.New(errorx.BadRequest, "User already has tickets"), err)
}

func Test_auditDomain_reconcileUser(t *testing.T) {
	ctx := testutil.MockContext()
	testutil.CreateFixtureDb(ctx)
	d := newTestDomains()

	require.NoError(t, repository.NewDrawParticipationRepository().Upsert(ctx,
		&entity.DrawParticipation{
			UserID:      testutil.User2.ID,
			DrawID:      testutil.Draw1.ID,
			TicketsUsed: 7,
		}))

	repaired, err := d.auditDomain.ReconcileUser(ctx, testutil.User2.ID)
	require.NoError(t, err)
	require.Equal(t, 1, repaired)

	repaired, err = d.auditDomain.ReconcileUser(ctx, testutil.User2.ID)
	require.NoError(t, err)
	require.Equal(t, 0, repaired)
}

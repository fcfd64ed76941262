package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ticketdraw/backend/internal/entity"
	"github.com/ticketdraw/backend/internal/repository"
	"github.com/ticketdraw/backend/pkg/errorx"
	"github.com/ticketdraw/backend/pkg/testutil"
)

func newTestLedger() *Ledger {
	return New(
		repository.NewUserRepository(),
		repository.NewTicketRepository(),
		repository.NewDrawRepository(),
		repository.NewDrawParticipationRepository(),
	)
}

func Test_Ledger_Award(t *testing.T) {
	ctx := testutil.MockContext()
	testutil.CreateFixtureDb(ctx)
	l := newTestLedger()
	userRepo := repository.NewUserRepository()

	ticketIDs, err := l.Award(ctx, testutil.User1.ID, 1, entity.SourceSurvey, "tx-1")
	require.NoError(t, err)
	require.Len(t, ticketIDs, 1)

	user, err := userRepo.GetByID(ctx, testutil.User1.ID)
	require.NoError(t, err)
	require.Equal(t, 1, user.AvailableTickets)
	require.Equal(t, 1, user.TotalTickets)

	ticketIDs, err = l.Award(ctx, testutil.User1.ID, 2, entity.SourceSurvey, "tx-2")
	require.NoError(t, err)
	require.Len(t, ticketIDs, 2)

	user, err = userRepo.GetByID(ctx, testutil.User1.ID)
	require.NoError(t, err)
	require.Equal(t, 3, user.AvailableTickets)
	require.Equal(t, 3, user.TotalTickets)
}

func Test_Ledger_Award_invalidCount(t *testing.T) {
	ctx := testutil.MockContext()
	testutil.CreateFixtureDb(ctx)
	l := newTestLedger()

	_, err := l.Award(ctx, testutil.User1.ID, 0, entity.SourceSurvey, "tx-1")
	require.Equal(t, errorx.New(errorx.BadRequest, "Invalid award count"), err)

	_, err = l.Award(ctx, testutil.User1.ID, -1, entity.SourceReferral, "tx-2")
	require.Equal(t, errorx.New(errorx.BadRequest, "Invalid award count"), err)

	_, err = l.Award(ctx, testutil.User1.ID, 3, entity.SourceSurvey, "tx-3")
	require.Equal(t, errorx.New(errorx.BadRequest, "Invalid survey award count"), err)

	user, err := repository.NewUserRepository().GetByID(ctx, testutil.User1.ID)
	require.NoError(t, err)
	require.Equal(t, 0, user.AvailableTickets)
	require.Equal(t, 0, user.TotalTickets)
}

func Test_Ledger_ApplyAllToOpenDraw(t *testing.T) {
	ctx := testutil.MockContext()
	testutil.CreateFixtureDb(ctx)
	l := newTestLedger()

	_, err := l.Award(ctx, testutil.User1.ID, 2, entity.SourceSurvey, "tx-1")
	require.NoError(t, err)

	applied, err := l.ApplyAllToOpenDraw(ctx, testutil.User1.ID, testutil.Draw1.ID)
	require.NoError(t, err)
	require.Equal(t, 2, applied)

	participation, err := repository.NewDrawParticipationRepository().
		Get(ctx, testutil.User1.ID, testutil.Draw1.ID)
	require.NoError(t, err)
	require.Equal(t, 2, participation.TicketsUsed)

	draw, err := repository.NewDrawRepository().GetByID(ctx, testutil.Draw1.ID)
	require.NoError(t, err)
	require.Equal(t, 2, draw.TotalTickets)

	// Re-applying with an unchanged balance is a no-op.
	applied, err = l.ApplyAllToOpenDraw(ctx, testutil.User1.ID, testutil.Draw1.ID)
	require.NoError(t, err)
	require.Equal(t, 2, applied)

	participation, err = repository.NewDrawParticipationRepository().
		Get(ctx, testutil.User1.ID, testutil.Draw1.ID)
	require.NoError(t, err)
	require.Equal(t, 2, participation.TicketsUsed)
}

func Test_Ledger_ResetAll(t *testing.T) {
	ctx := testutil.MockContext()
	testutil.CreateFixtureDb(ctx)
	l := newTestLedger()
	userRepo := repository.NewUserRepository()

	_, err := l.Award(ctx, testutil.User1.ID, 1, entity.SourceSurvey, "tx-1")
	require.NoError(t, err)
	_, err = l.Award(ctx, testutil.User2.ID, 2, entity.SourceSurvey, "tx-2")
	require.NoError(t, err)

	affected, err := l.ResetAll(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, affected)

	for _, userID := range []string{testutil.User1.ID, testutil.User2.ID} {
		user, err := userRepo.GetByID(ctx, userID)
		require.NoError(t, err)
		require.Equal(t, 0, user.AvailableTickets)
	}

	// Lifetime counters survive the reset.
	user, err := userRepo.GetByID(ctx, testutil.User2.ID)
	require.NoError(t, err)
	require.Equal(t, 2, user.TotalTickets)

	// A second reset touches nobody.
	affected, err = l.ResetAll(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 0, affected)
}

func Test_Ledger_ResetOne(t *testing.T) {
	ctx := testutil.MockContext()
	testutil.CreateFixtureDb(ctx)
	l := newTestLedger()

	_, err := l.Award(ctx, testutil.User1.ID, 2, entity.SourceSurvey, "tx-1")
	require.NoError(t, err)

	previous, err := l.ResetOne(ctx, testutil.User1.ID)
	require.NoError(t, err)
	require.Equal(t, 2, previous)

	previous, err = l.ResetOne(ctx, testutil.User1.ID)
	require.NoError(t, err)
	require.Equal(t, 0, previous)
}

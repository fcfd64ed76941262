package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ticketdraw/backend/internal/entity"
	"github.com/ticketdraw/backend/internal/repository"
	"github.com/ticketdraw/backend/pkg/testutil"
)

func newTestPropagator() (*Propagator, *Ledger) {
	l := newTestLedger()
	p := NewPropagator(repository.NewUserRepository(), repository.NewTicketRepository(), l)
	return p, l
}

func Test_Propagator_creditsReferrerOnce(t *testing.T) {
	ctx := testutil.MockContext()
	testutil.CreateFixtureDb(ctx)
	p, l := newTestPropagator()
	ticketRepo := repository.NewTicketRepository()

	// The referrer qualifies with a survey ticket of their own.
	_, err := l.Award(ctx, testutil.User1.ID, 1, entity.SourceSurvey, "tx-referrer")
	require.NoError(t, err)

	// First survey completion of the referred user.
	_, err = l.Award(ctx, testutil.User2.ID, 1, entity.SourceSurvey, "tx-referred")
	require.NoError(t, err)
	_, err = l.ApplyAllToOpenDraw(ctx, testutil.User2.ID, testutil.Draw1.ID)
	require.NoError(t, err)

	// The triggering event is delivered five times.
	for i := 0; i < 5; i++ {
		require.NoError(t, p.Propagate(ctx, testutil.User2.ID, testutil.Draw1.ID, 1))
	}

	referralCount, err := ticketRepo.CountByUserAndSource(
		ctx, testutil.User1.ID, entity.SourceReferral)
	require.NoError(t, err)
	require.EqualValues(t, 1, referralCount)

	user, err := repository.NewUserRepository().GetByID(ctx, testutil.User1.ID)
	require.NoError(t, err)
	require.Equal(t, 2, user.AvailableTickets)
	require.Equal(t, 2, user.TotalTickets)
}

func Test_Propagator_referrerWithoutSurveyTicket(t *testing.T) {
	ctx := testutil.MockContext()
	testutil.CreateFixtureDb(ctx)
	p, l := newTestPropagator()

	_, err := l.Award(ctx, testutil.User2.ID, 1, entity.SourceSurvey, "tx-referred")
	require.NoError(t, err)

	require.NoError(t, p.Propagate(ctx, testutil.User2.ID, testutil.Draw1.ID, 1))

	referralCount, err := repository.NewTicketRepository().CountByUserAndSource(
		ctx, testutil.User1.ID, entity.SourceReferral)
	require.NoError(t, err)
	require.EqualValues(t, 0, referralCount)
}

func Test_Propagator_notFirstSurvey(t *testing.T) {
	ctx := testutil.MockContext()
	testutil.CreateFixtureDb(ctx)
	p, l := newTestPropagator()

	_, err := l.Award(ctx, testutil.User1.ID, 1, entity.SourceSurvey, "tx-referrer")
	require.NoError(t, err)
	_, err = l.Award(ctx, testutil.User2.ID, 1, entity.SourceSurvey, "tx-referred-1")
	require.NoError(t, err)
	_, err = l.Award(ctx, testutil.User2.ID, 1, entity.SourceSurvey, "tx-referred-2")
	require.NoError(t, err)

	// The second completion is not a first survey anymore.
	require.NoError(t, p.Propagate(ctx, testutil.User2.ID, testutil.Draw1.ID, 1))

	referralCount, err := repository.NewTicketRepository().CountByUserAndSource(
		ctx, testutil.User1.ID, entity.SourceReferral)
	require.NoError(t, err)
	require.EqualValues(t, 0, referralCount)
}

func Test_Propagator_userWithoutReferrer(t *testing.T) {
	ctx := testutil.MockContext()
	testutil.CreateFixtureDb(ctx)
	p, l := newTestPropagator()

	_, err := l.Award(ctx, testutil.User3.ID, 1, entity.SourceSurvey, "tx-no-ref")
	require.NoError(t, err)

	require.NoError(t, p.Propagate(ctx, testutil.User3.ID, testutil.Draw1.ID, 1))

	tickets, err := repository.NewTicketRepository().CountByUser(ctx, testutil.User3.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, tickets)
}

package task

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/ticketdraw/backend/internal/domain/ledger"
	"github.com/ticketdraw/backend/internal/entity"
	"github.com/ticketdraw/backend/internal/repository"
	"github.com/ticketdraw/backend/pkg/pubsub"
	"github.com/ticketdraw/backend/pkg/testutil"
)

func packFor(t *testing.T, taskType string, data map[string]any) *pubsub.Pack {
	t.Helper()
	b, err := json.Marshal(envelope{Type: taskType, Data: data})
	require.NoError(t, err)
	return &pubsub.Pack{Key: []byte(taskType), Msg: b}
}

func Test_Dispatcher_sendEmail(t *testing.T) {
	ctx := testutil.MockContext()
	testutil.CreateFixtureDb(ctx)

	sent := []string{}
	mailer := &testutil.MockMailer{
		SendTemplatedFunc: func(ctx context.Context, to, template string, data map[string]any) error {
			sent = append(sent, to+"/"+template)
			return nil
		},
	}

	userRepo := repository.NewUserRepository()
	l := ledger.New(userRepo, repository.NewTicketRepository(),
		repository.NewDrawRepository(), repository.NewDrawParticipationRepository())
	d := NewDispatcher(userRepo, ledger.NewPropagator(
		userRepo, repository.NewTicketRepository(), l), mailer)

	d.Handle(ctx, packFor(t, TypeSendEmail, map[string]any{
		"user_id":  testutil.User1.ID,
		"template": "draw_winner",
		"draw_id":  testutil.Draw1.ID,
		"prize":    100,
	}), time.Now())
	require.Equal(t, []string{"user1@example.com/draw_winner"}, sent)

	// Users without an email address are skipped quietly.
	d.Handle(ctx, packFor(t, TypeSendEmail, map[string]any{
		"user_id":  testutil.User3.ID,
		"template": "draw_winner",
	}), time.Now())
	require.Len(t, sent, 1)
}

func Test_Dispatcher_propagateReferral(t *testing.T) {
	ctx := testutil.MockContext()
	testutil.CreateFixtureDb(ctx)

	userRepo := repository.NewUserRepository()
	ticketRepo := repository.NewTicketRepository()
	l := ledger.New(userRepo, ticketRepo,
		repository.NewDrawRepository(), repository.NewDrawParticipationRepository())
	d := NewDispatcher(userRepo, ledger.NewPropagator(userRepo, ticketRepo, l),
		&testutil.MockMailer{})

	_, err := l.Award(ctx, testutil.User1.ID, 1, entity.SourceSurvey, "tx-referrer")
	require.NoError(t, err)
	_, err = l.Award(ctx, testutil.User2.ID, 1, entity.SourceSurvey, "tx-referred")
	require.NoError(t, err)

	pack := packFor(t, TypePropagateReferral, map[string]any{
		"referred_user_id": testutil.User2.ID,
		"draw_id":          testutil.Draw1.ID,
		"awarded_count":    1,
	})
	d.Handle(ctx, pack, time.Now())
	d.Handle(ctx, pack, time.Now())

	count, err := ticketRepo.CountByUserAndSource(ctx, testutil.User1.ID, entity.SourceReferral)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

package domain

import (
	"context"
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ticketdraw/backend/internal/domain/ledger"
	"github.com/ticketdraw/backend/internal/model"
	"github.com/ticketdraw/backend/internal/repository"
	"github.com/ticketdraw/backend/pkg/crypto"
	"github.com/ticketdraw/backend/pkg/errorx"
	"github.com/ticketdraw/backend/pkg/pubsub"
	"github.com/ticketdraw/backend/pkg/testutil"
)

type testDomains struct {
	ledger         *ledger.Ledger
	drawDomain     DrawDomain
	postbackDomain PostbackDomain
	auditDomain    AuditDomain
	published      *[]pubsub.Pack
}

func newTestDomains() *testDomains {
	userRepo := repository.NewUserRepository()
	ticketRepo := repository.NewTicketRepository()
	drawRepo := repository.NewDrawRepository()
	participationRepo := repository.NewDrawParticipationRepository()

	published := &[]pubsub.Pack{}
	publisher := &testutil.MockPublisher{
		PublishFunc: func(ctx context.Context, topic string, pack *pubsub.Pack) error {
			*published = append(*published, *pack)
			return nil
		},
	}

	l := ledger.New(userRepo, ticketRepo, drawRepo, participationRepo)
	drawDomain := NewDrawDomain(drawRepo, participationRepo, ticketRepo, userRepo, l, publisher)
	postbackDomain := NewPostbackDomain(
		repository.NewProcessedEventRepository(),
		repository.NewPostbackLogRepository(),
		userRepo, drawDomain, l, publisher, &testutil.MockRedisClient{})
	auditDomain := NewAuditDomain(userRepo, ticketRepo, drawRepo, participationRepo, drawDomain, l)

	return &testDomains{
		ledger:         l,
		drawDomain:     drawDomain,
		postbackDomain: postbackDomain,
		auditDomain:    auditDomain,
		published:      published,
	}
}

func Test_postbackDomain_creditsOnce(t *testing.T) {
	ctx := testutil.MockContext()
	testutil.CreateFixtureDb(ctx)
	d := newTestDomains()

	req := &model.PostbackRequest{
		UserID:                testutil.User1.ID,
		ExternalTransactionID: "tx1",
		CompletionStatus:      1,
		TestMode:              true,
	}

	resp, err := d.postbackDomain.Postback(ctx, req)
	require.NoError(t, err)
	require.True(t, resp.Credited)
	require.Equal(t, model.PostbackStatusCredited, resp.Status)
	require.Equal(t, 1, resp.AwardedTickets)

	user, err := repository.NewUserRepository().GetByID(ctx, testutil.User1.ID)
	require.NoError(t, err)
	require.Equal(t, 1, user.AvailableTickets)

	participation, err := repository.NewDrawParticipationRepository().
		Get(ctx, testutil.User1.ID, testutil.Draw1.ID)
	require.NoError(t, err)
	require.Equal(t, 1, participation.TicketsUsed)

	// Re-sending the identical notification must not double-credit.
	resp, err = d.postbackDomain.Postback(ctx, req)
	require.NoError(t, err)
	require.False(t, resp.Credited)
	require.Equal(t, model.PostbackStatusDuplicate, resp.Status)

	user, err = repository.NewUserRepository().GetByID(ctx, testutil.User1.ID)
	require.NoError(t, err)
	require.Equal(t, 1, user.AvailableTickets)
	require.Equal(t, 1, user.TotalTickets)

	// A replay arriving at another instance misses the in-process cache but
	// is still rejected by the database guard.
	other := newTestDomains()
	resp, err = other.postbackDomain.Postback(ctx, req)
	require.NoError(t, err)
	require.False(t, resp.Credited)
	require.Equal(t, model.PostbackStatusDuplicate, resp.Status)
}

func Test_postbackDomain_creditsPastDrawClose(t *testing.T) {
	ctx := testutil.MockContext()
	testutil.InsertUsers(ctx)
	d := newTestDomains()
	insertExpiredDraw(t, ctx, "expired1")

	// A notification arriving between the draw's close time and the next
	// sweep still credits into a fresh draw.
	resp, err := d.postbackDomain.Postback(ctx, &model.PostbackRequest{
		UserID:                testutil.User1.ID,
		ExternalTransactionID: "tx1",
		CompletionStatus:      1,
		TestMode:              true,
	})
	require.NoError(t, err)
	require.True(t, resp.Credited)

	user, err := repository.NewUserRepository().GetByID(ctx, testutil.User1.ID)
	require.NoError(t, err)
	require.Equal(t, 1, user.AvailableTickets)
}

func Test_postbackDomain_notCompleted(t *testing.T) {
	ctx := testutil.MockContext()
	testutil.CreateFixtureDb(ctx)
	d := newTestDomains()

	resp, err := d.postbackDomain.Postback(ctx, &model.PostbackRequest{
		UserID:                testutil.User1.ID,
		ExternalTransactionID: "tx1",
		CompletionStatus:      0,
		TestMode:              true,
	})
	require.NoError(t, err)
	require.False(t, resp.Credited)
	require.Equal(t, model.PostbackStatusNotCompleted, resp.Status)

	user, err := repository.NewUserRepository().GetByID(ctx, testutil.User1.ID)
	require.NoError(t, err)
	require.Equal(t, 0, user.AvailableTickets)

	// The rejected notification still leaves an audit record.
	logs, err := repository.NewPostbackLogRepository().
		GetListByUserID(ctx, testutil.User1.ID, 0, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.False(t, logs[0].Accepted)
}

func Test_postbackDomain_signature(t *testing.T) {
	ctx := testutil.MockContext()
	testutil.CreateFixtureDb(ctx)
	d := newTestDomains()

	_, err := d.postbackDomain.Postback(ctx, &model.PostbackRequest{
		UserID:                testutil.User1.ID,
		ExternalTransactionID: "tx1",
		CompletionStatus:      1,
		AuthHash:              "wrong",
	})
	require.Equal(t, errorx.New(errorx.Unauthenticated, "Invalid signature"), err)

	// The rejection leaves an audit record.
	logs, err := repository.NewPostbackLogRepository().
		GetListByUserID(ctx, testutil.User1.ID, 0, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.False(t, logs[0].Accepted)
	require.Equal(t, "invalid signature", logs[0].Detail)

	hash := crypto.HMAC(sha256.New, []byte(testutil.User1.ID), []byte("postback-secret"))
	resp, err := d.postbackDomain.Postback(ctx, &model.PostbackRequest{
		UserID:                testutil.User1.ID,
		ExternalTransactionID: "tx1",
		CompletionStatus:      1,
		AuthHash:              hash,
	})
	require.NoError(t, err)
	require.True(t, resp.Credited)
}

func Test_postbackDomain_unknownUser(t *testing.T) {
	ctx := testutil.MockContext()
	testutil.CreateFixtureDb(ctx)
	d := newTestDomains()

	_, err := d.postbackDomain.Postback(ctx, &model.PostbackRequest{
		UserID:                "nobody",
		ExternalTransactionID: "tx1",
		CompletionStatus:      1,
		TestMode:              true,
	})
	require.Equal(t, errorx.New(errorx.NotFound, "Not found user"), err)

	logs, err := repository.NewPostbackLogRepository().GetListByUserID(ctx, "nobody", 0, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.False(t, logs[0].Accepted)
	require.Equal(t, "unknown user", logs[0].Detail)
}

func Test_postbackDomain_publishesTasks(t *testing.T) {
	ctx := testutil.MockContext()
	testutil.CreateFixtureDb(ctx)
	d := newTestDomains()

	_, err := d.postbackDomain.Postback(ctx, &model.PostbackRequest{
		UserID:                testutil.User2.ID,
		ExternalTransactionID: "tx1",
		CompletionStatus:      1,
		TestMode:              true,
	})
	require.NoError(t, err)
	require.Len(t, *d.published, 2)
	require.Equal(t, []byte("send_email"), (*d.published)[0].Key)
	require.Equal(t, []byte("propagate_referral"), (*d.published)[1].Key)
}

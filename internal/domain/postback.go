package domain

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync"
	"github.com/ticketdraw/backend/internal/domain/ledger"
	"github.com/ticketdraw/backend/internal/domain/task"
	"github.com/ticketdraw/backend/internal/entity"
	"github.com/ticketdraw/backend/internal/model"
	"github.com/ticketdraw/backend/internal/repository"
	"github.com/ticketdraw/backend/pkg/crypto"
	"github.com/ticketdraw/backend/pkg/errorx"
	"github.com/ticketdraw/backend/pkg/pubsub"
	"github.com/ticketdraw/backend/pkg/xcontext"
	"github.com/ticketdraw/backend/pkg/xredis"
	"gorm.io/gorm"
)

const (
	awardEmailTemplate = "tickets_awarded"

	completionStatusDone = 1
)

type PostbackDomain interface {
	Postback(ctx context.Context, req *model.PostbackRequest) (*model.PostbackResponse, error)
}

type postbackDomain struct {
	processedEventRepo repository.ProcessedEventRepository
	postbackLogRepo    repository.PostbackLogRepository
	userRepo           repository.UserRepository
	drawDomain         DrawDomain
	ledger             *ledger.Ledger
	publisher          pubsub.Publisher
	redisClient        xredis.Client

	// In-process duplicate suppressor in front of the database guard. It
	// only absorbs retry bursts hitting the same instance; correctness
	// comes from the processed event table.
	seenEvents *xsync.MapOf[string, bool]
}

func NewPostbackDomain(
	processedEventRepo repository.ProcessedEventRepository,
	postbackLogRepo repository.PostbackLogRepository,
	userRepo repository.UserRepository,
	drawDomain DrawDomain,
	ledger *ledger.Ledger,
	publisher pubsub.Publisher,
	redisClient xredis.Client,
) *postbackDomain {
	return &postbackDomain{
		processedEventRepo: processedEventRepo,
		postbackLogRepo:    postbackLogRepo,
		userRepo:           userRepo,
		drawDomain:         drawDomain,
		ledger:             ledger,
		publisher:          publisher,
		redisClient:        redisClient,
		seenEvents:         xsync.NewMapOf[bool](),
	}
}

// Postback handles one completion notification of the survey provider. The
// provider delivers at least once and expects a 200 for anything it should
// not retry, so duplicates and incomplete statuses are successful responses
// with credited=false.
func (d *postbackDomain) Postback(
	ctx context.Context, req *model.PostbackRequest,
) (*model.PostbackResponse, error) {
	cfg := xcontext.Configs(ctx).Postback
	if req.UserID == "" || req.ExternalTransactionID == "" {
		return nil, errorx.New(errorx.BadRequest, "Not found user id or transaction id")
	}

	if !(cfg.AllowTestMode && req.TestMode) {
		if !crypto.VerifyHMAC([]byte(req.UserID), []byte(cfg.Secret), req.AuthHash) {
			xcontext.Logger(ctx).Warnf(
				"Rejected postback with invalid signature for user %s", req.UserID)
			d.writeLog(ctx, req, false, "invalid signature")
			return nil, errorx.New(errorx.Unauthenticated, "Invalid signature")
		}
	}

	user, err := d.userRepo.GetByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			d.writeLog(ctx, req, false, "unknown user")
			return nil, errorx.New(errorx.NotFound, "Not found user")
		}

		xcontext.Logger(ctx).Errorf("Cannot get user: %v", err)
		return nil, errorx.Unknown
	}

	if req.CompletionStatus != completionStatusDone {
		d.writeLog(ctx, req, false, "survey not completed")
		return &model.PostbackResponse{
			Credited: false,
			Status:   model.PostbackStatusNotCompleted,
		}, nil
	}

	if _, ok := d.seenEvents.Load(req.ExternalTransactionID); ok {
		d.writeLog(ctx, req, false, "duplicate delivery")
		return &model.PostbackResponse{
			Credited: false,
			Status:   model.PostbackStatusDuplicate,
		}, nil
	}

	draw, err := d.drawDomain.GetOrCreateOpenDraw(ctx)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get or create open draw: %v", err)
		return nil, errorx.Unknown
	}

	awarded, err := d.credit(ctx, req, draw.ID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot credit postback: %v", err)
		return nil, errorx.Unknown
	}

	d.seenEvents.Store(req.ExternalTransactionID, true)
	if awarded == 0 {
		d.writeLog(ctx, req, false, "duplicate delivery")
		return &model.PostbackResponse{
			Credited: false,
			Status:   model.PostbackStatusDuplicate,
		}, nil
	}

	err = d.redisClient.ZIncrBy(ctx, leaderboardKey, int64(awarded), user.ID)
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot update leaderboard of user %s: %v", user.ID, err)
	}

	task.Publish(ctx, d.publisher, task.TypeSendEmail, task.SendEmailPayload{
		UserID:   user.ID,
		Template: awardEmailTemplate,
		DrawID:   draw.ID,
		Prize:    draw.Prize,
	})

	task.Publish(ctx, d.publisher, task.TypePropagateReferral, task.PropagateReferralPayload{
		ReferredUserID: user.ID,
		DrawID:         draw.ID,
		AwardedCount:   awarded,
	})

	return &model.PostbackResponse{
		Credited:       true,
		Status:         model.PostbackStatusCredited,
		AwardedTickets: awarded,
	}, nil
}

// credit reserves the event id, awards the tickets, and applies them to the
// open draw in one transaction. A failure after the reservation rolls the
// reservation back too, so the provider's retry can succeed later. It returns
// zero if the event id was reserved before.
func (d *postbackDomain) credit(
	ctx context.Context, req *model.PostbackRequest, drawID string,
) (int, error) {
	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	reserved, err := d.processedEventRepo.CheckAndReserve(ctx, &entity.ProcessedEvent{
		EventID: req.ExternalTransactionID,
		UserID:  req.UserID,
		Outcome: model.PostbackStatusCredited,
	})
	if err != nil {
		return 0, err
	}

	if !reserved {
		return 0, nil
	}

	count := ledger.StandardSurveyAward
	_, err = d.ledger.Award(
		ctx, req.UserID, count, entity.SourceSurvey, req.ExternalTransactionID)
	if err != nil {
		return 0, err
	}

	if _, err := d.ledger.ApplyAllToOpenDraw(ctx, req.UserID, drawID); err != nil {
		return 0, err
	}

	err = d.postbackLogRepo.Create(ctx, &entity.PostbackLog{
		Base:             entity.Base{ID: uuid.NewString()},
		UserID:           req.UserID,
		TransactionID:    req.ExternalTransactionID,
		CompletionStatus: req.CompletionStatus,
		Accepted:         true,
		Detail:           "credited",
	})
	if err != nil {
		return 0, err
	}

	xcontext.WithCommitDBTransaction(ctx)
	return count, nil
}

func (d *postbackDomain) writeLog(
	ctx context.Context, req *model.PostbackRequest, accepted bool, detail string,
) {
	err := d.postbackLogRepo.Create(ctx, &entity.PostbackLog{
		Base:             entity.Base{ID: uuid.NewString()},
		UserID:           req.UserID,
		TransactionID:    req.ExternalTransactionID,
		CompletionStatus: req.CompletionStatus,
		Accepted:         accepted,
		Detail:           detail,
	})
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot write postback log: %v", err)
	}
}

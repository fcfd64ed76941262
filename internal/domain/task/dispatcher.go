package task

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/ticketdraw/backend/internal/client"
	"github.com/ticketdraw/backend/internal/domain/ledger"
	"github.com/ticketdraw/backend/internal/repository"
	"github.com/ticketdraw/backend/pkg/pubsub"
	"github.com/ticketdraw/backend/pkg/xcontext"
)

type Dispatcher struct {
	userRepo   repository.UserRepository
	propagator *ledger.Propagator
	mailer     client.Mailer
}

func NewDispatcher(
	userRepo repository.UserRepository,
	propagator *ledger.Propagator,
	mailer client.Mailer,
) *Dispatcher {
	return &Dispatcher{
		userRepo:   userRepo,
		propagator: propagator,
		mailer:     mailer,
	}
}

// Handle consumes one task from the worker topic.
func (d *Dispatcher) Handle(ctx context.Context, pack *pubsub.Pack, t time.Time) {
	var env envelope
	if err := json.Unmarshal(pack.Msg, &env); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot unmarshal task: %v", err)
		return
	}

	switch env.Type {
	case TypeSendEmail:
		d.sendEmail(ctx, env.Data)
	case TypePropagateReferral:
		d.propagateReferral(ctx, env.Data)
	default:
		xcontext.Logger(ctx).Warnf("Unknown task type %s", env.Type)
	}
}

func (d *Dispatcher) sendEmail(ctx context.Context, data map[string]any) {
	payload := SendEmailPayload{}
	if err := mapstructure.Decode(data, &payload); err != nil {
		xcontext.Logger(ctx).Warnf("Cannot decode map to struct: %v", err)
		return
	}

	user, err := d.userRepo.GetByID(ctx, payload.UserID)
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot get user %s for email: %v", payload.UserID, err)
		return
	}

	if user.Email == "" {
		xcontext.Logger(ctx).Debugf("User %s has no email address", user.ID)
		return
	}

	emailData := map[string]any{
		"name":    user.Name,
		"draw_id": payload.DrawID,
		"prize":   payload.Prize,
	}

	err = d.mailer.SendTemplated(ctx, user.Email, payload.Template, emailData)
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot send %s email, retrying: %v", payload.Template, err)
		if err := d.mailer.SendTemplated(ctx, user.Email, payload.Template, emailData); err != nil {
			xcontext.Logger(ctx).Errorf("Cannot send %s email to %s: %v",
				payload.Template, user.ID, err)
		}
	}
}

func (d *Dispatcher) propagateReferral(ctx context.Context, data map[string]any) {
	payload := PropagateReferralPayload{}
	if err := mapstructure.Decode(data, &payload); err != nil {
		xcontext.Logger(ctx).Warnf("Cannot decode map to struct: %v", err)
		return
	}

	err := d.propagator.Propagate(ctx, payload.ReferredUserID, payload.DrawID, payload.AwardedCount)
	if err != nil {
		xcontext.Logger(ctx).Errorf(
			"Cannot propagate referral of user %s: %v", payload.ReferredUserID, err)
	}
}

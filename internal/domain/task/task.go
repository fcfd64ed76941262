package task

import (
	"context"
	"encoding/json"

	"github.com/fatih/structs"
	"github.com/ticketdraw/backend/pkg/pubsub"
	"github.com/ticketdraw/backend/pkg/xcontext"
)

// Side effects of request handling run as background tasks so a slow mailer
// or a missing referrer never delays or fails the triggering request.
const (
	TypeSendEmail         = "send_email"
	TypePropagateReferral = "propagate_referral"
)

type SendEmailPayload struct {
	UserID   string `mapstructure:"user_id" structs:"user_id"`
	Template string `mapstructure:"template" structs:"template"`
	DrawID   string `mapstructure:"draw_id" structs:"draw_id"`
	Prize    int64  `mapstructure:"prize" structs:"prize"`
}

type PropagateReferralPayload struct {
	ReferredUserID string `mapstructure:"referred_user_id" structs:"referred_user_id"`
	DrawID         string `mapstructure:"draw_id" structs:"draw_id"`
	AwardedCount   int    `mapstructure:"awarded_count" structs:"awarded_count"`
}

type envelope struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// Publish sends a task to the worker topic. Failures are logged and
// swallowed, the request outcome never depends on the task queue.
func Publish(ctx context.Context, publisher pubsub.Publisher, taskType string, payload any) {
	b, err := json.Marshal(envelope{Type: taskType, Data: structs.Map(payload)})
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot marshal %s task: %v", taskType, err)
		return
	}

	topic := xcontext.Configs(ctx).Kafka.TaskTopic
	if err := publisher.Publish(ctx, topic, &pubsub.Pack{Key: []byte(taskType), Msg: b}); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot publish %s task: %v", taskType, err)
	}
}

package client

import (
	"context"
	"fmt"

	"github.com/ticketdraw/backend/pkg/api"
	"github.com/ticketdraw/backend/pkg/xcontext"
)

type Mailer interface {
	SendTemplated(ctx context.Context, to, template string, data map[string]any) error
}

type mailerCaller struct {
	generator api.Generator
}

func NewMailer(endpoint string) *mailerCaller {
	return &mailerCaller{generator: api.NewGenerator(endpoint)}
}

func (c *mailerCaller) SendTemplated(
	ctx context.Context, to, template string, data map[string]any,
) error {
	cfg := xcontext.Configs(ctx).Mailer
	resp, err := c.generator.New("/v1/messages").
		Header("Authorization", "Bearer "+cfg.APIKey).
		Body(api.JSON{
			"from":      cfg.Sender,
			"to":        to,
			"template":  template,
			"variables": data,
		}).
		POST(ctx)
	if err != nil {
		return err
	}

	if !resp.OK() {
		return fmt.Errorf("mailer responded with status %d", resp.Code)
	}

	return nil
}

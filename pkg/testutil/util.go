package testutil

import (
	"context"
	"time"

	"github.com/ticketdraw/backend/config"
	"github.com/ticketdraw/backend/internal/entity"
	"github.com/ticketdraw/backend/pkg/authenticator"
	"github.com/ticketdraw/backend/pkg/logger"
	"github.com/ticketdraw/backend/pkg/xcontext"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func MockContext() context.Context {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		panic(err)
	}

	cfg := config.Configs{
		ApiServer: config.ServerConfigs{
			MaxLimit:     50,
			DefaultLimit: 10,
		},
		Auth: config.AuthConfigs{
			TokenSecret: "secret",
			AccessToken: config.TokenConfigs{
				Name:       "access_token",
				Expiration: time.Minute,
			},
		},
		Postback: config.PostbackConfigs{
			Secret:          "postback-secret",
			AllowTestMode:   true,
			SchedulerSecret: "scheduler-secret",
		},
		Draw: config.DrawConfigs{
			DefaultPrize: 100,
			CloseWeekday: time.Sunday,
			CloseHour:    20,
		},
		Kafka: config.KafkaConfigs{
			TaskTopic: "tasks",
		},
	}

	if err := entity.MigrateTable(db); err != nil {
		panic(err)
	}

	ctx := context.Background()
	ctx = xcontext.WithConfigs(ctx, cfg)
	ctx = xcontext.WithLogger(ctx, logger.NewLogger(logger.SILENCE))
	ctx = xcontext.WithTokenEngine(ctx, authenticator.NewTokenEngine(cfg.Auth.TokenSecret))
	ctx = xcontext.WithDB(ctx, db)

	return ctx
}

func MockContextWithUserID(userID string) context.Context {
	return xcontext.WithRequestUserID(MockContext(), userID)
}

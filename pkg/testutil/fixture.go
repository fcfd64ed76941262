package testutil

import (
	"context"
	"database/sql"
	"time"

	"github.com/ticketdraw/backend/internal/entity"
	"github.com/ticketdraw/backend/internal/repository"
)

// Fixture users. User2 was referred by User1, User3 has no referrer, Admin
// holds a global admin role.
var (
	User1 = entity.User{
		Base:         entity.Base{ID: "user1"},
		Name:         "user1",
		Email:        "user1@example.com",
		Role:         entity.RoleUser,
		ReferralCode: "code-user1",
	}

	User2 = entity.User{
		Base:         entity.Base{ID: "user2"},
		Name:         "user2",
		Email:        "user2@example.com",
		Role:         entity.RoleUser,
		ReferralCode: "code-user2",
		ReferredBy:   sql.NullString{String: "user1", Valid: true},
	}

	User3 = entity.User{
		Base:         entity.Base{ID: "user3"},
		Name:         "user3",
		Role:         entity.RoleUser,
		ReferralCode: "code-user3",
	}

	Admin = entity.User{
		Base:         entity.Base{ID: "admin"},
		Name:         "admin",
		Email:        "admin@example.com",
		Role:         entity.RoleSuperAdmin,
		ReferralCode: "code-admin",
	}

	Draw1 = entity.Draw{
		Base:       entity.Base{ID: "draw1"},
		TargetDate: time.Now().Add(24 * time.Hour),
		Prize:      100,
		Status:     entity.DrawOpen,
		OpenKey:    sql.NullString{String: entity.OpenKeyValue, Valid: true},
	}
)

func CreateFixtureDb(ctx context.Context) {
	InsertUsers(ctx)
	InsertDraws(ctx)
}

func InsertUsers(ctx context.Context) {
	userRepo := repository.NewUserRepository()
	for _, user := range []entity.User{User1, User2, User3, Admin} {
		if err := userRepo.Create(ctx, &user); err != nil {
			panic(err)
		}
	}
}

func InsertDraws(ctx context.Context) {
	drawRepo := repository.NewDrawRepository()
	draw := Draw1
	if err := drawRepo.Create(ctx, &draw); err != nil {
		panic(err)
	}
}

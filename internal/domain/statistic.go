package domain

import (
	"context"

	"github.com/pkg/math"
	"github.com/redis/go-redis/v9"
	"github.com/ticketdraw/backend/internal/model"
	"github.com/ticketdraw/backend/internal/repository"
	"github.com/ticketdraw/backend/pkg/errorx"
	"github.com/ticketdraw/backend/pkg/xcontext"
	"github.com/ticketdraw/backend/pkg/xredis"
)

// leaderboardKey is the sorted set ranking users by lifetime tickets.
const leaderboardKey = "leaderboard:total_tickets"

type StatisticDomain interface {
	GetLeaderboard(ctx context.Context, req *model.GetLeaderboardRequest) (*model.GetLeaderboardResponse, error)
}

type statisticDomain struct {
	userRepo    repository.UserRepository
	redisClient xredis.Client
}

func NewStatisticDomain(
	userRepo repository.UserRepository,
	redisClient xredis.Client,
) *statisticDomain {
	return &statisticDomain{userRepo: userRepo, redisClient: redisClient}
}

func (d *statisticDomain) GetLeaderboard(
	ctx context.Context, req *model.GetLeaderboardRequest,
) (*model.GetLeaderboardResponse, error) {
	cfg := xcontext.Configs(ctx).ApiServer
	if req.Limit == 0 {
		req.Limit = cfg.DefaultLimit
	}

	if req.Limit < 0 {
		return nil, errorx.New(errorx.BadRequest, "Limit must be positive")
	}

	if req.Offset < 0 {
		return nil, errorx.New(errorx.BadRequest, "Offset must not be negative")
	}

	req.Limit = math.MinInt(req.Limit, cfg.MaxLimit)

	exist, err := d.redisClient.Exist(ctx, leaderboardKey)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot check leaderboard existence: %v", err)
		return nil, errorx.Unknown
	}

	if !exist {
		if err := d.loadLeaderboard(ctx); err != nil {
			xcontext.Logger(ctx).Errorf("Cannot load leaderboard: %v", err)
			return nil, errorx.Unknown
		}
	}

	records, err := d.redisClient.ZRevRangeWithScores(ctx, leaderboardKey, req.Offset, req.Limit)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get leaderboard range: %v", err)
		return nil, errorx.Unknown
	}

	leaderboard := []model.UserStatistic{}
	for i, record := range records {
		userID, ok := record.Member.(string)
		if !ok {
			xcontext.Logger(ctx).Errorf("Invalid leaderboard member %v", record.Member)
			return nil, errorx.Unknown
		}

		user, err := d.userRepo.GetByID(ctx, userID)
		if err != nil {
			xcontext.Logger(ctx).Warnf("Cannot get leaderboard user %s: %v", userID, err)
			continue
		}

		leaderboard = append(leaderboard, model.UserStatistic{
			User:        model.ConvertUser(user),
			Value:       int(record.Score),
			CurrentRank: req.Offset + i + 1,
		})
	}

	return &model.GetLeaderboardResponse{Leaderboard: leaderboard}, nil
}

// loadLeaderboard rebuilds the sorted set from the database after a redis
// flush or cold start.
func (d *statisticDomain) loadLeaderboard(ctx context.Context) error {
	users, err := d.userRepo.GetTopByTotalTickets(ctx, xcontext.Configs(ctx).ApiServer.MaxLimit)
	if err != nil {
		return err
	}

	for _, user := range users {
		err := d.redisClient.ZAdd(ctx, leaderboardKey, redis.Z{
			Member: user.ID,
			Score:  float64(user.TotalTickets),
		})
		if err != nil {
			return err
		}
	}

	return nil
}

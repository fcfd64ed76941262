package domain

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/ticketdraw/backend/internal/entity"
	"github.com/ticketdraw/backend/internal/model"
	"github.com/ticketdraw/backend/internal/repository"
	"github.com/ticketdraw/backend/pkg/errorx"
	"github.com/ticketdraw/backend/pkg/testutil"
)

func Test_statisticDomain_GetLeaderboard(t *testing.T) {
	ctx := testutil.MockContext()
	testutil.CreateFixtureDb(ctx)

	l := newTestDomains().ledger
	_, err := l.Award(ctx, testutil.User1.ID, 1, entity.SourceSurvey, "tx1")
	require.NoError(t, err)
	_, err = l.Award(ctx, testutil.User2.ID, 2, entity.SourceSurvey, "tx2")
	require.NoError(t, err)

	// An empty sorted set forces a rebuild from the database; the mock
	// remembers what was loaded and serves the range from it.
	loaded := map[string]float64{}
	redisClient := &testutil.MockRedisClient{
		ZAddFunc: func(ctx context.Context, key string, z redis.Z) error {
			loaded[z.Member.(string)] = z.Score
			return nil
		},
		ZRevRangeWithScoresFunc: func(ctx context.Context, key string, offset, limit int) ([]redis.Z, error) {
			return []redis.Z{
				{Member: testutil.User2.ID, Score: loaded[testutil.User2.ID]},
				{Member: testutil.User1.ID, Score: loaded[testutil.User1.ID]},
			}, nil
		},
	}

	d := NewStatisticDomain(repository.NewUserRepository(), redisClient)
	resp, err := d.GetLeaderboard(ctx, &model.GetLeaderboardRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Leaderboard, 2)
	require.Equal(t, testutil.User2.ID, resp.Leaderboard[0].User.ID)
	require.Equal(t, 2, resp.Leaderboard[0].Value)
	require.Equal(t, 1, resp.Leaderboard[0].CurrentRank)
	require.Equal(t, testutil.User1.ID, resp.Leaderboard[1].User.ID)
	require.Equal(t, 2, resp.Leaderboard[1].CurrentRank)

	_, err = d.GetLeaderboard(ctx, &model.GetLeaderboardRequest{Limit: -1})
	require.Equal(t, errorx.New(errorx.BadRequest, "Limit must be positive"), err)
}

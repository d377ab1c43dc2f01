package leveling

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"go-amadeus/internal/database"
	"go-amadeus/internal/gateway"
	"go-amadeus/internal/gateway/gatewaytest"
	"go-amadeus/internal/models"
)

const (
	guildID = "100"
	userID  = "200"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T, roll int) (*Engine, *database.Database, *gatewaytest.Fake) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "levels.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gw := gatewaytest.New()
	gw.AddMember(gateway.Member{GuildID: guildID, UserID: userID, Username: "kurisu"})

	e := NewEngine(db, gw,
		WithRand(func(n int) int { return roll % n }),
		WithClock(func() time.Time { return t0 }),
	)
	return e, db, gw
}

func TestFirstMessageStartsCooldownWithoutXP(t *testing.T) {
	ctx := context.Background()
	e, db, _ := newTestEngine(t, 0)

	res, err := e.AwardXP(ctx, guildID, userID, t0)
	require.NoError(t, err)
	require.Zero(t, res.Awarded)

	row, err := db.GetUserLevel(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, int64(0), row.XP)
	require.Equal(t, 0, row.Level)
	require.True(t, row.LastMessageTime.Equal(t0))
}

func TestCooldownIsEnforced(t *testing.T) {
	ctx := context.Background()
	e, db, _ := newTestEngine(t, 0)

	_, err := e.AwardXP(ctx, guildID, userID, t0)
	require.NoError(t, err)

	res, err := e.AwardXP(ctx, guildID, userID, t0.Add(59*time.Second))
	require.NoError(t, err)
	require.Zero(t, res.Awarded)

	res, err = e.AwardXP(ctx, guildID, userID, t0.Add(60*time.Second))
	require.NoError(t, err)
	require.Equal(t, int64(MinAward), res.Awarded)

	// Within the cooldown of the second award.
	res, err = e.AwardXP(ctx, guildID, userID, t0.Add(90*time.Second))
	require.NoError(t, err)
	require.Zero(t, res.Awarded)

	row, err := db.GetUserLevel(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, int64(MinAward), row.XP)
	require.True(t, row.LastMessageTime.Equal(t0.Add(60*time.Second)))
}

func TestLastMessageTimeNeverMovesBackwards(t *testing.T) {
	ctx := context.Background()
	e, db, _ := newTestEngine(t, 0)
	require.NoError(t, db.UpsertUserLevel(ctx, database.UserLevel{UserID: userID, XP: 10, LastMessageTime: t0}))

	res, err := e.AwardXP(ctx, guildID, userID, t0.Add(-time.Hour))
	require.NoError(t, err)
	require.Zero(t, res.Awarded)

	row, err := db.GetUserLevel(ctx, userID)
	require.NoError(t, err)
	require.True(t, row.LastMessageTime.Equal(t0))
}

func TestAwardRange(t *testing.T) {
	ctx := context.Background()
	for roll, want := range map[int]int64{0: 15, 5: 20, 10: 25} {
		e, db, _ := newTestEngine(t, roll)
		require.NoError(t, db.UpsertUserLevel(ctx, database.UserLevel{UserID: userID, LastMessageTime: t0.Add(-time.Hour)}))

		res, err := e.AwardXP(ctx, guildID, userID, t0)
		require.NoError(t, err)
		require.Equal(t, want, res.Awarded)
	}
}

func TestLevelUpGrantsOnlyReachedReward(t *testing.T) {
	ctx := context.Background()
	e, db, gw := newTestEngine(t, 0)
	require.NoError(t, e.AddReward(ctx, 1, "role-1", "Lab Member"))
	require.NoError(t, e.AddReward(ctx, 5, "role-5", "Researcher"))
	require.NoError(t, db.UpsertUserLevel(ctx, database.UserLevel{UserID: userID, XP: 90, LastMessageTime: t0.Add(-2 * time.Minute)}))

	res, err := e.AwardXP(ctx, guildID, userID, t0)
	require.NoError(t, err)
	require.Equal(t, 0, res.OldLevel)
	require.Equal(t, 1, res.NewLevel)
	require.Equal(t, []string{"role-1"}, res.Granted)
	require.Equal(t, []string{"role-1"}, gw.Roles(guildID, userID))

	row, err := db.GetUserLevel(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, int64(105), row.XP)
	require.Equal(t, 1, row.Level)
}

func TestRewardFailureKeepsLevel(t *testing.T) {
	ctx := context.Background()
	e, db, gw := newTestEngine(t, 0)
	require.NoError(t, e.AddReward(ctx, 1, "role-1", ""))
	require.NoError(t, db.UpsertUserLevel(ctx, database.UserLevel{UserID: userID, XP: 95, LastMessageTime: t0.Add(-2 * time.Minute)}))
	gw.Fail("GrantRole", gatewaytest.PlatformError(models.ErrPermissionDenied, "grant role"))

	res, err := e.AwardXP(ctx, guildID, userID, t0)
	require.NoError(t, err)
	require.True(t, res.LeveledUp())
	require.Empty(t, res.Granted)

	row, err := db.GetUserLevel(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, 1, row.Level)
}

func TestGrantRewardsSkipsHeldRoles(t *testing.T) {
	ctx := context.Background()
	e, _, gw := newTestEngine(t, 0)
	gw.AddMember(gateway.Member{GuildID: guildID, UserID: userID, Roles: []string{"role-1"}})
	require.NoError(t, e.AddReward(ctx, 1, "role-1", ""))
	require.NoError(t, e.AddReward(ctx, 2, "role-2", ""))
	require.NoError(t, e.AddReward(ctx, 3, "role-3", ""))

	granted, err := e.GrantRewards(ctx, guildID, userID, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"role-2"}, granted)
	require.Equal(t, 1, gw.CallCount("GrantRole"))
}

func TestGrantRewardsToUnknownMemberIsNotFatal(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newTestEngine(t, 0)
	require.NoError(t, e.AddReward(ctx, 1, "role-1", ""))

	granted, err := e.GrantRewards(ctx, guildID, "missing", 1)
	require.NoError(t, err)
	require.Empty(t, granted)
}

func TestResetUserRemovesRewardsAndZeroes(t *testing.T) {
	ctx := context.Background()
	e, db, gw := newTestEngine(t, 0)
	gw.AddMember(gateway.Member{GuildID: guildID, UserID: userID, Roles: []string{"role-1", "role-5", "other"}})
	require.NoError(t, e.AddReward(ctx, 1, "role-1", ""))
	require.NoError(t, e.AddReward(ctx, 5, "role-5", ""))
	require.NoError(t, db.UpsertUserLevel(ctx, database.UserLevel{UserID: userID, XP: 900, Level: 5, LastMessageTime: t0}))

	require.NoError(t, e.ResetUser(ctx, guildID, userID))

	require.Equal(t, []string{"other"}, gw.Roles(guildID, userID))
	row, err := db.GetUserLevel(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, int64(0), row.XP)
	require.Equal(t, 0, row.Level)
	require.True(t, row.LastMessageTime.Equal(t0))
}

func TestRemoveRewardsAboveKeepsLowerRewards(t *testing.T) {
	ctx := context.Background()
	e, _, gw := newTestEngine(t, 0)
	gw.AddMember(gateway.Member{GuildID: guildID, UserID: userID, Roles: []string{"role-1", "role-5"}})
	require.NoError(t, e.AddReward(ctx, 1, "role-1", ""))
	require.NoError(t, e.AddReward(ctx, 5, "role-5", ""))

	removed, err := e.RemoveRewardsAbove(ctx, guildID, userID, 3)
	require.NoError(t, err)
	require.Equal(t, []string{"role-5"}, removed)
	require.Equal(t, []string{"role-1"}, gw.Roles(guildID, userID))
}

func TestConcurrentAwardsRespectCooldown(t *testing.T) {
	ctx := context.Background()
	e, db, _ := newTestEngine(t, 0)
	require.NoError(t, db.UpsertUserLevel(ctx, database.UserLevel{UserID: userID, LastMessageTime: t0.Add(-time.Hour)}))

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.AwardXP(ctx, guildID, userID, t0)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	row, err := db.GetUserLevel(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, int64(MinAward), row.XP)
}

func TestRewardAdministration(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newTestEngine(t, 0)

	require.True(t, errors.Is(e.AddReward(ctx, 0, "r", ""), models.ErrInvalidArgument))
	require.True(t, errors.Is(e.RemoveReward(ctx, 3), models.ErrNotFound))

	require.NoError(t, e.AddReward(ctx, 3, "r", "Three"))
	rewards, err := e.Rewards(ctx)
	require.NoError(t, err)
	require.Equal(t, []database.LevelReward{{Level: 3, RoleID: "r", RoleName: "Three"}}, rewards)
	require.NoError(t, e.RemoveReward(ctx, 3))

	_, err = e.Leaderboard(ctx, 26)
	require.True(t, errors.Is(err, models.ErrInvalidArgument))
	_, err = e.Leaderboard(ctx, 0)
	require.True(t, errors.Is(err, models.ErrInvalidArgument))
}

func TestOnMessageIgnoresBotsAndDMs(t *testing.T) {
	ctx := context.Background()
	e, db, _ := newTestEngine(t, 0)

	require.NoError(t, e.OnMessage(ctx, models.MessageEvent{GuildID: guildID, AuthorID: userID, AuthorBot: true}))
	require.NoError(t, e.OnMessage(ctx, models.MessageEvent{AuthorID: userID}))
	row, err := db.GetUserLevel(ctx, userID)
	require.NoError(t, err)
	require.Nil(t, row)

	require.NoError(t, e.OnMessage(ctx, models.MessageEvent{GuildID: guildID, AuthorID: userID}))
	row, err = db.GetUserLevel(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, row)
}

func TestLookup(t *testing.T) {
	ctx := context.Background()
	e, db, _ := newTestEngine(t, 0)

	row, p, err := e.Lookup(ctx, "nobody")
	require.NoError(t, err)
	require.Equal(t, int64(0), row.XP)
	require.Equal(t, int64(100), p.XPToNextLevel())

	require.NoError(t, db.UpsertUserLevel(ctx, database.UserLevel{UserID: userID, XP: 250, Level: 2}))
	_, p, err = e.Lookup(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, Progress{Level: 2, Current: 30, Required: 144}, p)
}

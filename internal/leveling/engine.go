package leveling

import (
	"context"
	"math/rand"
	"time"

	"github.com/pkg/errors"

	"go-amadeus/internal/database"
	"go-amadeus/internal/gateway"
	"go-amadeus/internal/logging"
	"go-amadeus/internal/models"
	"go-amadeus/pkg/util"
)

const (
	Cooldown = 60 * time.Second
	MinAward = 15
	MaxAward = 25
)

type Store interface {
	GetUserLevel(ctx context.Context, userID string) (*database.UserLevel, error)
	UpsertUserLevel(ctx context.Context, ul database.UserLevel) error
	RewardsUpTo(ctx context.Context, level int) ([]database.LevelReward, error)
	RewardsAbove(ctx context.Context, level int) ([]database.LevelReward, error)
	UpsertLevelReward(ctx context.Context, r database.LevelReward) error
	DeleteLevelReward(ctx context.Context, level int) (bool, error)
	ListLevelRewards(ctx context.Context) ([]database.LevelReward, error)
	Leaderboard(ctx context.Context, limit int) ([]database.UserLevel, error)
	RankOf(ctx context.Context, userID string) (int, error)
}

// Result describes the outcome of one AwardXP call.
type Result struct {
	Awarded  int64
	XP       int64
	OldLevel int
	NewLevel int
	Granted  []string // reward role ids granted on level up
}

func (r Result) LeveledUp() bool {
	return r.NewLevel > r.OldLevel
}

type Engine struct {
	store Store
	gw    gateway.Gateway
	now   func() time.Time
	roll  func(n int) int

	users util.KeyedMutex
}

type Option func(*Engine)

// WithRand replaces the award roll; roll(n) must return a value in [0, n).
func WithRand(roll func(n int) int) Option {
	return func(e *Engine) { e.roll = roll }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(store Store, gw gateway.Gateway, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		gw:    gw,
		now:   time.Now,
		roll:  rand.Intn,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// OnMessage awards XP for a guild message from a human.
func (e *Engine) OnMessage(ctx context.Context, ev models.MessageEvent) error {
	if ev.AuthorBot || ev.GuildID == "" {
		return nil
	}
	res, err := e.AwardXP(ctx, ev.GuildID, ev.AuthorID, e.now())
	if err != nil {
		return err
	}
	if res.LeveledUp() {
		logging.Info("[LEVELS] %s reached level %d (%d xp)", ev.AuthorID, res.NewLevel, res.XP)
	}
	return nil
}

// AwardXP applies the cooldown-gated award for one message. The first message
// ever seen from a user only starts the cooldown clock. The new XP, time and
// level are stored before any reward role is granted, and reward failures do
// not undo the level.
func (e *Engine) AwardXP(ctx context.Context, guildID, userID string, now time.Time) (Result, error) {
	unlock := e.users.Lock(userID)
	row, err := e.store.GetUserLevel(ctx, userID)
	if err != nil {
		unlock()
		return Result{}, err
	}

	if row == nil {
		err := e.store.UpsertUserLevel(ctx, database.UserLevel{UserID: userID, LastMessageTime: now})
		unlock()
		return Result{}, err
	}

	res := Result{XP: row.XP, OldLevel: row.Level, NewLevel: row.Level}
	if now.Sub(row.LastMessageTime) < Cooldown {
		unlock()
		return res, nil
	}

	res.Awarded = int64(MinAward + e.roll(MaxAward-MinAward+1))
	row.XP += res.Awarded
	row.LastMessageTime = now
	row.Level = LevelForXP(row.XP)
	res.XP = row.XP
	res.NewLevel = row.Level

	err = e.store.UpsertUserLevel(ctx, *row)
	unlock()
	if err != nil {
		return Result{}, err
	}

	if res.LeveledUp() {
		res.Granted, err = e.GrantRewards(ctx, guildID, userID, res.NewLevel)
		if err != nil {
			logging.Warn("[LEVELS] Reward lookup failed for %s at level %d: %v", userID, res.NewLevel, err)
		}
	}
	return res, nil
}

// GrantRewards grants every reward with level <= level that the member does
// not hold yet. Per-role failures are logged and skipped; only a failed reward
// lookup is returned.
func (e *Engine) GrantRewards(ctx context.Context, guildID, userID string, level int) ([]string, error) {
	rewards, err := e.store.RewardsUpTo(ctx, level)
	if err != nil {
		return nil, err
	}
	if len(rewards) == 0 {
		return nil, nil
	}

	member, err := e.gw.Member(ctx, guildID, userID)
	if err != nil {
		logging.Warn("[LEVELS] Cannot resolve member %s for rewards: %v", userID, err)
		return nil, nil
	}

	var granted []string
	for _, r := range rewards {
		if member.HasRole(r.RoleID) {
			continue
		}
		if err := e.gw.GrantRole(ctx, guildID, userID, r.RoleID, "Level reward"); err != nil {
			logging.Warn("[LEVELS] Failed to grant level %d reward %s to %s: %v", r.Level, r.RoleID, userID, err)
			continue
		}
		granted = append(granted, r.RoleID)
	}
	return granted, nil
}

// RemoveRewardsAbove revokes reward roles configured for levels above level.
func (e *Engine) RemoveRewardsAbove(ctx context.Context, guildID, userID string, level int) ([]string, error) {
	rewards, err := e.store.RewardsAbove(ctx, level)
	if err != nil {
		return nil, err
	}
	if len(rewards) == 0 {
		return nil, nil
	}

	member, err := e.gw.Member(ctx, guildID, userID)
	if err != nil {
		logging.Warn("[LEVELS] Cannot resolve member %s for reward removal: %v", userID, err)
		return nil, nil
	}

	var removed []string
	for _, r := range rewards {
		if !member.HasRole(r.RoleID) {
			continue
		}
		if err := e.gw.RevokeRole(ctx, guildID, userID, r.RoleID, "Level reset"); err != nil {
			logging.Warn("[LEVELS] Failed to remove level %d reward %s from %s: %v", r.Level, r.RoleID, userID, err)
			continue
		}
		removed = append(removed, r.RoleID)
	}
	return removed, nil
}

// ResetUser strips all reward roles and zeroes XP and level. The cooldown
// clock is kept.
func (e *Engine) ResetUser(ctx context.Context, guildID, userID string) error {
	if _, err := e.RemoveRewardsAbove(ctx, guildID, userID, 0); err != nil {
		return err
	}

	unlock := e.users.Lock(userID)
	defer unlock()

	row, err := e.store.GetUserLevel(ctx, userID)
	if err != nil {
		return err
	}
	reset := database.UserLevel{UserID: userID}
	if row != nil {
		reset.LastMessageTime = row.LastMessageTime
	}
	return e.store.UpsertUserLevel(ctx, reset)
}

// Lookup returns the stored XP of userID with its level progress; users never
// seen report zero.
func (e *Engine) Lookup(ctx context.Context, userID string) (database.UserLevel, Progress, error) {
	row, err := e.store.GetUserLevel(ctx, userID)
	if err != nil {
		return database.UserLevel{}, Progress{}, err
	}
	if row == nil {
		row = &database.UserLevel{UserID: userID}
	}
	return *row, ProgressFor(row.XP), nil
}

const MaxLeaderboard = 25

// AddReward binds roleID to level, replacing any earlier reward for it.
func (e *Engine) AddReward(ctx context.Context, level int, roleID, roleName string) error {
	if level < 1 {
		return errors.Wrap(models.ErrInvalidArgument, "reward level must be at least 1")
	}
	if roleID == "" {
		return errors.Wrap(models.ErrInvalidArgument, "reward role is required")
	}
	return e.store.UpsertLevelReward(ctx, database.LevelReward{Level: level, RoleID: roleID, RoleName: roleName})
}

func (e *Engine) RemoveReward(ctx context.Context, level int) error {
	ok, err := e.store.DeleteLevelReward(ctx, level)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Wrapf(models.ErrNotFound, "no reward for level %d", level)
	}
	return nil
}

func (e *Engine) Rewards(ctx context.Context) ([]database.LevelReward, error) {
	return e.store.ListLevelRewards(ctx)
}

// Leaderboard lists the top users by XP; limit must be in 1..MaxLeaderboard.
func (e *Engine) Leaderboard(ctx context.Context, limit int) ([]database.UserLevel, error) {
	if limit < 1 || limit > MaxLeaderboard {
		return nil, errors.Wrapf(models.ErrInvalidArgument, "leaderboard size must be between 1 and %d", MaxLeaderboard)
	}
	return e.store.Leaderboard(ctx, limit)
}

func (e *Engine) Rank(ctx context.Context, userID string) (int, error) {
	return e.store.RankOf(ctx, userID)
}

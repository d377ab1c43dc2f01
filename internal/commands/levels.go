package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"

	"go-amadeus/internal/leveling"
	"go-amadeus/internal/models"
	"go-amadeus/internal/notifier"
)

func (h *Handler) handleLevel(ctx context.Context, i *discordgo.InteractionCreate, opts optionSet) error {
	userID := opts.id("user")
	if userID == "" {
		userID = invokerID(i)
	}

	row, progress, err := h.levels.Lookup(ctx, userID)
	if err != nil {
		return err
	}
	rank, err := h.levels.Rank(ctx, userID)
	if err != nil {
		return err
	}

	rankText := "unranked"
	if rank > 0 {
		rankText = fmt.Sprintf("#%d", rank)
	}
	return h.replyEmbed(i, &discordgo.MessageEmbed{
		Title:       "Level",
		Description: fmt.Sprintf("<@%s>", userID),
		Color:       notifier.ColorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Level", Value: fmt.Sprint(progress.Level), Inline: true},
			{Name: "Total XP", Value: fmt.Sprint(row.XP), Inline: true},
			{Name: "Rank", Value: rankText, Inline: true},
			{
				Name: "Progress",
				Value: fmt.Sprintf("`%s` %d/%d (%d to next level)",
					leveling.ProgressBar(progress, 20), progress.Current, progress.Required, progress.XPToNextLevel()),
			},
		},
	}, false)
}

func (h *Handler) handleLeaderboard(ctx context.Context, i *discordgo.InteractionCreate, opts optionSet) error {
	rows, err := h.levels.Leaderboard(ctx, opts.int("limit", 10))
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return h.reply(i, "Nobody has earned any XP yet.")
	}

	var b strings.Builder
	for n, row := range rows {
		fmt.Fprintf(&b, "**%d.** <@%s> level %d (%d xp)\n", n+1, row.UserID, leveling.LevelForXP(row.XP), row.XP)
	}
	return h.replyEmbed(i, &discordgo.MessageEmbed{
		Title:       "Leaderboard",
		Description: b.String(),
		Color:       notifier.ColorInfo,
	}, false)
}

func (h *Handler) handleLevelReset(ctx context.Context, i *discordgo.InteractionCreate, opts optionSet) error {
	userID, err := opts.requireID("user")
	if err != nil {
		return err
	}
	if err := h.levels.ResetUser(ctx, i.GuildID, userID); err != nil {
		return err
	}
	return h.reply(i, fmt.Sprintf("✅ Level of <@%s> reset and reward roles removed.", userID))
}

func (h *Handler) handleRewardAdd(ctx context.Context, i *discordgo.InteractionCreate, opts optionSet) error {
	roleID, err := opts.requireID("role")
	if err != nil {
		return err
	}
	level := opts.int("level", 0)
	if err := h.levels.AddReward(ctx, level, roleID, opts.roleName(roleID)); err != nil {
		return err
	}
	return h.reply(i, fmt.Sprintf("✅ <@&%s> is now granted at level %d.", roleID, level))
}

func (h *Handler) handleRewardRemove(ctx context.Context, i *discordgo.InteractionCreate, opts optionSet) error {
	level := opts.int("level", 0)
	if !opts.has("level") {
		return errors.Wrap(models.ErrInvalidArgument, "level is required")
	}
	if err := h.levels.RemoveReward(ctx, level); err != nil {
		return err
	}
	return h.reply(i, fmt.Sprintf("✅ Reward for level %d removed.", level))
}

func (h *Handler) handleRewardsList(ctx context.Context, i *discordgo.InteractionCreate, _ optionSet) error {
	rewards, err := h.levels.Rewards(ctx)
	if err != nil {
		return err
	}
	if len(rewards) == 0 {
		return h.reply(i, "No level rewards are configured.")
	}

	var b strings.Builder
	for _, r := range rewards {
		fmt.Fprintf(&b, "Level **%d** → <@&%s>\n", r.Level, r.RoleID)
	}
	return h.replyEmbed(i, &discordgo.MessageEmbed{
		Title:       "Level Rewards",
		Description: b.String(),
		Color:       notifier.ColorInfo,
	}, false)
}

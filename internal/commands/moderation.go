package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"go-amadeus/internal/moderation"
	"go-amadeus/pkg/util"
)

func (h *Handler) moderationAction(i *discordgo.InteractionCreate, opts optionSet) (moderation.Action, error) {
	target, err := opts.requireID("user")
	if err != nil {
		return moderation.Action{}, err
	}
	return moderation.Action{
		GuildID:     i.GuildID,
		TargetID:    target,
		ModeratorID: invokerID(i),
		Reason:      opts.string("reason"),
	}, nil
}

func (h *Handler) handleKick(ctx context.Context, i *discordgo.InteractionCreate, opts optionSet) error {
	a, err := h.moderationAction(i, opts)
	if err != nil {
		return err
	}
	if err := h.moderation.Kick(ctx, a); err != nil {
		return err
	}
	return h.reply(i, fmt.Sprintf("👢 <@%s> was kicked.", a.TargetID))
}

func (h *Handler) handleBan(ctx context.Context, i *discordgo.InteractionCreate, opts optionSet) error {
	a, err := h.moderationAction(i, opts)
	if err != nil {
		return err
	}
	if err := h.moderation.Ban(ctx, a, opts.int("delete_days", 0)); err != nil {
		return err
	}
	return h.reply(i, fmt.Sprintf("🔨 <@%s> was banned.", a.TargetID))
}

func (h *Handler) handleMute(ctx context.Context, i *discordgo.InteractionCreate, opts optionSet) error {
	a, err := h.moderationAction(i, opts)
	if err != nil {
		return err
	}
	until, err := h.moderation.Mute(ctx, a, opts.int("minutes", 0))
	if err != nil {
		return err
	}
	return h.reply(i, fmt.Sprintf("🔇 <@%s> is muted until <t:%d:f>.", a.TargetID, until.Unix()))
}

func (h *Handler) handleWarn(ctx context.Context, i *discordgo.InteractionCreate, opts optionSet) error {
	a, err := h.moderationAction(i, opts)
	if err != nil {
		return err
	}
	count, err := h.moderation.Warn(ctx, a)
	if err != nil {
		return err
	}
	return h.reply(i, fmt.Sprintf("⚠️ <@%s> was warned. Total warnings: %d.", a.TargetID, count))
}

// handleWarns shows the warning count and the latest moderation entries.
func (h *Handler) handleWarns(ctx context.Context, i *discordgo.InteractionCreate, opts optionSet) error {
	userID, err := opts.requireID("user")
	if err != nil {
		return err
	}
	count, err := h.moderation.Warnings(ctx, userID)
	if err != nil {
		return err
	}
	history, err := h.moderation.History(ctx, userID)
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<@%s> has %d warning(s).", userID, count)
	if len(history) > 0 {
		b.WriteString("\n\n**Recent actions**\n")
		for _, e := range history {
			fmt.Fprintf(&b, "<t:%d:d> `%s` by <@%s>", e.Timestamp.Unix(), e.Action, e.ModeratorID)
			if e.Reason != "" {
				fmt.Fprintf(&b, ": %s", util.Truncate(e.Reason, 80))
			}
			b.WriteByte('\n')
		}
	}
	return h.reply(i, b.String())
}

func (h *Handler) handleWarnsClear(ctx context.Context, i *discordgo.InteractionCreate, opts optionSet) error {
	a, err := h.moderationAction(i, opts)
	if err != nil {
		return err
	}
	if err := h.moderation.ClearWarnings(ctx, a); err != nil {
		return err
	}
	return h.reply(i, fmt.Sprintf("✅ Warnings of <@%s> cleared.", a.TargetID))
}

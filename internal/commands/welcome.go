package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"

	"go-amadeus/internal/community"
	"go-amadeus/internal/models"
)

func (h *Handler) handleLogsSetup(ctx context.Context, i *discordgo.InteractionCreate, opts optionSet) error {
	channelID, err := opts.requireID("channel")
	if err != nil {
		return err
	}
	if err := h.community.SetLogChannel(ctx, channelID); err != nil {
		return err
	}
	return h.reply(i, fmt.Sprintf("✅ Logs will be posted in <#%s>.", channelID))
}

func (h *Handler) handleWelcomeSetup(ctx context.Context, i *discordgo.InteractionCreate, opts optionSet) error {
	channelID, err := opts.requireID("channel")
	if err != nil {
		return err
	}

	// Probing the image can take a few seconds.
	if err := h.deferReply(i); err != nil {
		return err
	}
	if err := h.community.SetWelcome(ctx, channelID, opts.string("image_url")); err != nil {
		return err
	}
	h.edit(i, fmt.Sprintf("✅ New members will be welcomed in <#%s>.", channelID))
	return nil
}

// handleWelcomeChannels updates the rules/roles/general links. Each kind is
// optional; "<kind>_desc" overrides the link text and "remove" drops one.
func (h *Handler) handleWelcomeChannels(ctx context.Context, i *discordgo.InteractionCreate, opts optionSet) error {
	var updated []string
	if kind := opts.string("remove"); kind != "" {
		if err := h.community.RemoveLink(ctx, kind); err != nil {
			return errors.WithMessagef(err, "%s link", kind)
		}
		updated = append(updated, fmt.Sprintf("**%s** → removed", kind))
	}
	for _, kind := range community.LinkKinds {
		channelID := opts.id(kind)
		if channelID == "" {
			continue
		}
		if err := h.community.SetLink(ctx, kind, channelID, opts.string(kind+"_desc")); err != nil {
			return errors.WithMessagef(err, "%s link", kind)
		}
		updated = append(updated, fmt.Sprintf("**%s** → <#%s>", kind, channelID))
	}
	if len(updated) == 0 {
		return errors.Wrap(models.ErrInvalidArgument, "pick a channel to link or a kind to remove")
	}
	return h.reply(i, "✅ Welcome links updated:\n"+strings.Join(updated, "\n"))
}

// handleWelcomePreview posts the welcome message for the invoker in the
// current channel.
func (h *Handler) handleWelcomePreview(ctx context.Context, i *discordgo.InteractionCreate, _ optionSet) error {
	ev := models.MemberEvent{GuildID: i.GuildID, UserID: invokerID(i), At: time.Now()}
	if i.Member != nil && i.Member.User != nil {
		ev.Username = i.Member.User.Username
		ev.DisplayName = i.Member.DisplayName()
		ev.AvatarURL = i.Member.AvatarURL("")
	}
	ev.MemberCount = h.members(i.GuildID)

	if _, err := h.gw.SendMessage(ctx, i.ChannelID, h.community.Render(ctx, ev)); err != nil {
		return errors.WithMessage(err, "post preview")
	}
	return h.reply(i, "✅ Preview posted.")
}

func (h *Handler) handleWelcomeList(ctx context.Context, i *discordgo.InteractionCreate, _ optionSet) error {
	links, err := h.community.Links(ctx)
	if err != nil {
		return err
	}
	if len(links) == 0 {
		return h.reply(i, "No welcome links are configured. Use /welcome-channels.")
	}

	var b strings.Builder
	for _, l := range links {
		fmt.Fprintf(&b, "**%s** → <#%s>", l.ChannelType, l.ChannelID)
		if l.Description != "" {
			fmt.Fprintf(&b, " (%s)", l.Description)
		}
		b.WriteByte('\n')
	}
	return h.reply(i, b.String())
}

package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"

	"go-amadeus/internal/models"
	"go-amadeus/pkg/util"
)

func (h *Handler) handleRoleAdd(ctx context.Context, i *discordgo.InteractionCreate, opts optionSet) error {
	userID, roleID, err := userAndRole(opts)
	if err != nil {
		return err
	}
	if err := h.community.AddRole(ctx, i.GuildID, userID, roleID, invokerID(i)); err != nil {
		return err
	}
	return h.reply(i, fmt.Sprintf("✅ Gave <@&%s> to <@%s>.", roleID, userID))
}

func (h *Handler) handleRoleRemove(ctx context.Context, i *discordgo.InteractionCreate, opts optionSet) error {
	userID, roleID, err := userAndRole(opts)
	if err != nil {
		return err
	}
	if err := h.community.RemoveRole(ctx, i.GuildID, userID, roleID, invokerID(i)); err != nil {
		return err
	}
	return h.reply(i, fmt.Sprintf("✅ Removed <@&%s> from <@%s>.", roleID, userID))
}

func userAndRole(opts optionSet) (string, string, error) {
	userID, err := opts.requireID("user")
	if err != nil {
		return "", "", err
	}
	roleID, err := opts.requireID("role")
	if err != nil {
		return "", "", err
	}
	return userID, roleID, nil
}

// handleAutoroleSet sets the join role, or clears it when no role is given.
func (h *Handler) handleAutoroleSet(ctx context.Context, i *discordgo.InteractionCreate, opts optionSet) error {
	roleID := opts.id("role")
	if roleID == "" {
		if err := h.community.ClearAutorole(ctx); err != nil {
			return err
		}
		return h.reply(i, "✅ Autorole disabled.")
	}
	if err := h.community.SetAutorole(ctx, roleID); err != nil {
		return err
	}
	return h.reply(i, fmt.Sprintf("✅ New members will receive <@&%s>.", roleID))
}

func (h *Handler) handleReactionBind(ctx context.Context, i *discordgo.InteractionCreate, opts optionSet) error {
	channelID := opts.id("channel")
	if channelID == "" {
		channelID = i.ChannelID
	}
	messageID := opts.string("message_id")
	if !util.IsSnowflake(messageID) {
		return errors.Wrap(models.ErrInvalidArgument, "message_id must be a message id")
	}
	roleID, err := opts.requireID("role")
	if err != nil {
		return err
	}

	emoji, err := h.reactions.Bind(ctx, channelID, messageID, opts.string("emoji"), roleID)
	if err != nil {
		return err
	}
	link := util.MessageURL(i.GuildID, channelID, messageID)
	return h.reply(i, fmt.Sprintf("✅ Reacting with %s on [that message](%s) now grants <@&%s>.", displayEmoji(emoji), link, roleID))
}

func (h *Handler) handleReactionUnbind(ctx context.Context, i *discordgo.InteractionCreate, opts optionSet) error {
	messageID := opts.string("message_id")
	if !util.IsSnowflake(messageID) {
		return errors.Wrap(models.ErrInvalidArgument, "message_id must be a message id")
	}
	if err := h.reactions.Unbind(ctx, messageID, opts.string("emoji")); err != nil {
		return err
	}
	left, err := h.reactions.Bindings(ctx, messageID)
	if err != nil {
		return h.reply(i, "✅ Reaction role removed.")
	}
	return h.reply(i, fmt.Sprintf("✅ Reaction role removed. %d binding(s) left on that message.", len(left)))
}

// displayEmoji renders a stored emoji key ("name:id" for custom emoji).
func displayEmoji(key string) string {
	if name, id, ok := strings.Cut(key, ":"); ok && util.IsSnowflake(id) {
		return fmt.Sprintf("<:%s:%s>", name, id)
	}
	return key
}

package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"

	"go-amadeus/internal/models"
	"go-amadeus/internal/voice"
)

const voiceInputID = "value"

func (h *Handler) handleVoiceSetup(ctx context.Context, i *discordgo.InteractionCreate, opts optionSet) error {
	channelID, err := opts.requireID("channel")
	if err != nil {
		return err
	}
	if err := h.voice.SetTemplate(ctx, channelID); err != nil {
		return err
	}
	return h.reply(i, fmt.Sprintf("✅ Joining <#%s> now creates a private voice channel.", channelID))
}

func (h *Handler) handleVoiceStatus(_ context.Context, i *discordgo.InteractionCreate, _ optionSet) error {
	template := "not configured"
	if id := h.voice.Template(); id != "" {
		template = fmt.Sprintf("<#%s>", id)
	}
	return h.reply(i, fmt.Sprintf("**Join to create:** %s\n**Active private channels:** %d", template, h.voice.Tracked()))
}

func (h *Handler) handleVoiceSettings(ctx context.Context, i *discordgo.InteractionCreate, _ optionSet) error {
	pref, err := h.voice.Preference(ctx, invokerID(i))
	if err != nil {
		return err
	}
	if pref == nil {
		return h.reply(i, "You have no saved voice settings yet. They are stored when you change your private channel.")
	}

	name, limit, locked := pref.ChannelName, "unlimited", "no"
	if name == "" {
		name = "default"
	}
	if pref.UserLimit > 0 {
		limit = strconv.Itoa(pref.UserLimit)
	}
	if pref.Locked {
		locked = "yes"
	}
	return h.reply(i, fmt.Sprintf("**Name:** %s\n**User limit:** %s\n**Locked:** %s", name, limit, locked))
}

// handleVoiceButton serves the control panel. Rename, limit and transfer ask
// for a value through a form; the rest act immediately.
func (h *Handler) handleVoiceButton(ctx context.Context, i *discordgo.InteractionCreate, customID string) error {
	action, voiceID, ok := voice.ParseButtonID(customID)
	if !ok {
		return errors.Wrapf(models.ErrNotFound, "unknown control %s", customID)
	}
	actorID := invokerID(i)
	if err := h.requireVoiceOwner(actorID, voiceID); err != nil {
		return err
	}

	switch action {
	case voice.ActionRename:
		return h.voiceForm(i, customID, "Rename channel", "New name", discordgo.TextInputShort, 90)
	case voice.ActionLimit:
		return h.voiceForm(i, customID, "User limit", fmt.Sprintf("Limit (0-%d, 0 = unlimited)", voice.MaxLimit), discordgo.TextInputShort, 2)
	case voice.ActionTransfer:
		return h.voiceForm(i, customID, "Transfer ownership", "New owner (mention or id)", discordgo.TextInputShort, 32)
	case voice.ActionLock:
		if err := h.voice.Lock(ctx, actorID, voiceID); err != nil {
			return err
		}
		return h.reply(i, "🔒 Channel locked.")
	case voice.ActionUnlock:
		if err := h.voice.Unlock(ctx, actorID, voiceID); err != nil {
			return err
		}
		return h.reply(i, "🔓 Channel unlocked.")
	case voice.ActionDelete:
		if err := h.deferReply(i); err != nil {
			return err
		}
		return h.voice.Delete(ctx, actorID, voiceID)
	}
	return errors.Wrapf(models.ErrNotFound, "unknown control %s", customID)
}

func (h *Handler) requireVoiceOwner(actorID, voiceID string) error {
	owner, ok := h.voice.Owner(voiceID)
	if !ok {
		return errors.Wrap(models.ErrNotFound, "this private channel no longer exists")
	}
	if owner != actorID {
		return errors.Wrap(models.ErrPermissionDenied, "only the channel owner can use these controls")
	}
	return nil
}

func (h *Handler) voiceForm(i *discordgo.InteractionCreate, customID, title, label string, style discordgo.TextInputStyle, maxLen int) error {
	return h.resp.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: customID,
			Title:    title,
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.TextInput{
						CustomID:  voiceInputID,
						Label:     label,
						Style:     style,
						Required:  true,
						MinLength: 1,
						MaxLength: maxLen,
					},
				}},
			},
		},
	})
}

func (h *Handler) handleVoiceModal(ctx context.Context, i *discordgo.InteractionCreate, data discordgo.ModalSubmitInteractionData) error {
	action, voiceID, ok := voice.ParseButtonID(data.CustomID)
	if !ok {
		return errors.Wrapf(models.ErrNotFound, "unknown form %s", data.CustomID)
	}
	value := strings.TrimSpace(modalValue(data))
	actorID := invokerID(i)

	switch action {
	case voice.ActionRename:
		if err := h.voice.Rename(ctx, actorID, voiceID, value); err != nil {
			return err
		}
		return h.reply(i, "✏️ Channel renamed.")
	case voice.ActionLimit:
		limit, err := strconv.Atoi(value)
		if err != nil {
			return errors.Wrapf(models.ErrInvalidArgument, "%q is not a number", value)
		}
		if err := h.voice.SetLimit(ctx, actorID, voiceID, limit); err != nil {
			return err
		}
		return h.reply(i, fmt.Sprintf("👥 User limit set to %d.", limit))
	case voice.ActionTransfer:
		newOwner, ok := parseUserRef(value)
		if !ok {
			return errors.Wrap(models.ErrInvalidArgument, "mention the new owner or paste their id")
		}
		if err := h.voice.Transfer(ctx, actorID, voiceID, newOwner); err != nil {
			return err
		}
		return h.reply(i, fmt.Sprintf("👑 <@%s> now owns this channel.", newOwner))
	}
	return errors.Wrapf(models.ErrNotFound, "unknown form %s", data.CustomID)
}

func modalValue(data discordgo.ModalSubmitInteractionData) string {
	for _, c := range data.Components {
		row, ok := c.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, rc := range row.Components {
			if in, ok := rc.(*discordgo.TextInput); ok && in.CustomID == voiceInputID {
				return in.Value
			}
		}
	}
	return ""
}

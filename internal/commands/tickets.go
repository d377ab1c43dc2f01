package commands

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"go-amadeus/internal/tickets"
)

func (h *Handler) handleTicketCreate(ctx context.Context, i *discordgo.InteractionCreate, opts optionSet) error {
	return h.openTicket(ctx, i, opts.string("topic"))
}

func (h *Handler) handleTicketClose(ctx context.Context, i *discordgo.InteractionCreate, _ optionSet) error {
	return h.closeTicket(ctx, i)
}

// openTicket serves both /ticket create and the panel button.
func (h *Handler) openTicket(ctx context.Context, i *discordgo.InteractionCreate, topic string) error {
	if err := h.deferReply(i); err != nil {
		return err
	}

	req := tickets.Request{GuildID: i.GuildID, OwnerID: invokerID(i), Topic: topic}
	if i.Member != nil && i.Member.User != nil {
		req.OwnerName = i.Member.User.Username
	}
	channelID, created, err := h.tickets.RequestTicket(ctx, req)
	if err != nil {
		return err
	}

	if created {
		h.edit(i, fmt.Sprintf("🎫 Your ticket is ready: <#%s>", channelID))
	} else {
		h.edit(i, fmt.Sprintf("You already have an open ticket: <#%s>", channelID))
	}
	return nil
}

func (h *Handler) closeTicket(ctx context.Context, i *discordgo.InteractionCreate) error {
	if err := h.deferReply(i); err != nil {
		return err
	}
	if err := h.tickets.CloseTicket(ctx, i.ChannelID, invokerID(i)); err != nil {
		return err
	}
	h.edit(i, "🔒 Ticket closed.")
	return nil
}

func (h *Handler) handleTicketAdd(ctx context.Context, i *discordgo.InteractionCreate, opts optionSet) error {
	userID, err := opts.requireID("user")
	if err != nil {
		return err
	}
	if err := h.tickets.AddMember(ctx, i.ChannelID, userID); err != nil {
		return err
	}
	return h.reply(i, fmt.Sprintf("✅ <@%s> was added to this ticket.", userID))
}

func (h *Handler) handleTicketRemove(ctx context.Context, i *discordgo.InteractionCreate, opts optionSet) error {
	userID, err := opts.requireID("user")
	if err != nil {
		return err
	}
	if err := h.tickets.RemoveMember(ctx, i.ChannelID, userID); err != nil {
		return err
	}
	return h.reply(i, fmt.Sprintf("✅ <@%s> was removed from this ticket.", userID))
}

func (h *Handler) handleTicketSetup(ctx context.Context, i *discordgo.InteractionCreate, opts optionSet) error {
	categoryID, err := opts.requireID("category")
	if err != nil {
		return err
	}
	supportRoleID := opts.id("support_role")
	if err := h.tickets.Setup(ctx, categoryID, supportRoleID); err != nil {
		return err
	}

	msg := fmt.Sprintf("✅ Tickets will be created under <#%s>.", categoryID)
	if supportRoleID != "" {
		msg += fmt.Sprintf(" <@&%s> can see every ticket.", supportRoleID)
	}
	return h.reply(i, msg)
}

func (h *Handler) handleTicketClosedChannel(ctx context.Context, i *discordgo.InteractionCreate, opts optionSet) error {
	channelID, err := opts.requireID("channel")
	if err != nil {
		return err
	}
	if err := h.tickets.SetClosedChannel(ctx, channelID); err != nil {
		return err
	}
	return h.reply(i, fmt.Sprintf("✅ Closed tickets will be logged in <#%s>.", channelID))
}

func (h *Handler) handleTicketPanel(ctx context.Context, i *discordgo.InteractionCreate, opts optionSet) error {
	channelID := opts.id("channel")
	if channelID == "" {
		channelID = i.ChannelID
	}
	if _, err := h.tickets.PostPanel(ctx, channelID, opts.string("title"), opts.string("description")); err != nil {
		return err
	}
	return h.reply(i, fmt.Sprintf("✅ Ticket panel posted in <#%s>.", channelID))
}

package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"

	"go-amadeus/internal/community"
	"go-amadeus/internal/config"
	"go-amadeus/internal/database"
	"go-amadeus/internal/gateway"
	"go-amadeus/internal/leveling"
	"go-amadeus/internal/logging"
	"go-amadeus/internal/metrics"
	"go-amadeus/internal/models"
	"go-amadeus/internal/moderation"
	"go-amadeus/internal/reactionroles"
	"go-amadeus/internal/tickets"
	"go-amadeus/internal/voice"
)

// Responder is the part of the discordgo session used to answer interactions.
type Responder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// VoiceAdmin is the voice provisioner as seen by commands and the control
// panel.
type VoiceAdmin interface {
	voice.Controller
	Template() string
	Tracked() int
	SetTemplate(ctx context.Context, channelID string) error
	Preference(ctx context.Context, userID string) (*database.VoicePreference, error)
}

type Dependencies struct {
	Responder  Responder
	Sender     MessageSender // text commands; optional
	Gateway    gateway.Gateway
	Owners     config.BotConfig
	Levels     *leveling.Engine
	Tickets    *tickets.Manager
	Voice      VoiceAdmin
	Reactions  *reactionroles.Service
	Moderation *moderation.Service
	Community  *community.Service
	Counter    *community.MessageCounter
	Metrics    *metrics.MetricsRegistry

	// State cache lookups; all optional.
	Latency     func() time.Duration
	GuildCount  func() int
	MemberCount func(guildID string) int
}

// Handler manages all command interactions
type Handler struct {
	resp       Responder
	sender     MessageSender
	gw         gateway.Gateway
	owners     config.BotConfig
	levels     *leveling.Engine
	tickets    *tickets.Manager
	voice      VoiceAdmin
	reactions  *reactionroles.Service
	moderation *moderation.Service
	community  *community.Service
	counter    *community.MessageCounter
	metrics    *metrics.MetricsRegistry
	latency    func() time.Duration
	guildCount func() int
	members    func(guildID string) int
	started    time.Time
}

func NewHandler(deps Dependencies) *Handler {
	h := &Handler{
		resp:       deps.Responder,
		sender:     deps.Sender,
		gw:         deps.Gateway,
		owners:     deps.Owners,
		levels:     deps.Levels,
		tickets:    deps.Tickets,
		voice:      deps.Voice,
		reactions:  deps.Reactions,
		moderation: deps.Moderation,
		community:  deps.Community,
		counter:    deps.Counter,
		metrics:    deps.Metrics,
		latency:    deps.Latency,
		guildCount: deps.GuildCount,
		members:    deps.MemberCount,
		started:    time.Now(),
	}
	if h.latency == nil {
		h.latency = func() time.Duration { return 0 }
	}
	if h.guildCount == nil {
		h.guildCount = func() int { return 0 }
	}
	if h.members == nil {
		h.members = func(string) int { return 0 }
	}
	return h
}

// Handle routes all interactions (commands, buttons, modals). Failures are
// answered with an ephemeral message and returned for the router to count.
func (h *Handler) Handle(ctx context.Context, i *discordgo.InteractionCreate) error {
	if i.GuildID == "" {
		return h.reply(i, "Commands only work inside a server.")
	}

	var (
		name string
		err  error
	)
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		name = i.ApplicationCommandData().Name
		err = h.handleCommand(ctx, i)
	case discordgo.InteractionMessageComponent:
		name = i.MessageComponentData().CustomID
		err = h.handleComponent(ctx, i)
	case discordgo.InteractionModalSubmit:
		name = i.ModalSubmitData().CustomID
		err = h.handleModal(ctx, i)
	default:
		return nil
	}

	if err != nil {
		logging.Warn("Interaction error [%s] by %s: %v", name, invokerID(i), err)
		h.respondError(i, err)
	}
	return err
}

type commandFunc func(ctx context.Context, i *discordgo.InteractionCreate, opts optionSet) error

func (h *Handler) routes() map[string]commandFunc {
	return map[string]commandFunc{
		"lvl":           h.handleLevel,
		"leaderboard":   h.handleLeaderboard,
		"level-reset":   h.handleLevelReset,
		"reward-add":    h.handleRewardAdd,
		"reward-remove": h.handleRewardRemove,
		"rewards-list":  h.handleRewardsList,

		"kick":        h.handleKick,
		"ban":         h.handleBan,
		"mute":        h.handleMute,
		"warn":        h.handleWarn,
		"warns":       h.handleWarns,
		"warns-clear": h.handleWarnsClear,

		"role-add":        h.handleRoleAdd,
		"role-remove":     h.handleRoleRemove,
		"autorole-set":    h.handleAutoroleSet,
		"reaction-bind":   h.handleReactionBind,
		"reaction-unbind": h.handleReactionUnbind,

		"logs-setup":       h.handleLogsSetup,
		"welcome-setup":    h.handleWelcomeSetup,
		"welcome-channels": h.handleWelcomeChannels,
		"welcome-preview":  h.handleWelcomePreview,
		"welcome-list":     h.handleWelcomeList,

		"ticket create":             h.handleTicketCreate,
		"ticket close":              h.handleTicketClose,
		"ticket add":                h.handleTicketAdd,
		"ticket remove":             h.handleTicketRemove,
		"ticket setup":              h.handleTicketSetup,
		"ticket set-closed-channel": h.handleTicketClosedChannel,
		"ticket panel":              h.handleTicketPanel,

		"voice-setup":    h.handleVoiceSetup,
		"voice-status":   h.handleVoiceStatus,
		"voice-settings": h.handleVoiceSettings,

		"ping":  h.handlePing,
		"stats": h.handleStats,
	}
}

// handleCommand routes slash commands to their handlers
func (h *Handler) handleCommand(ctx context.Context, i *discordgo.InteractionCreate) error {
	data := i.ApplicationCommandData()
	key, opts := commandKey(data)

	fn, ok := h.routes()[key]
	if !ok {
		return errors.Wrapf(models.ErrNotFound, "unknown command /%s", key)
	}
	if err := h.checkPermissions(i, key); err != nil {
		return err
	}
	return fn(ctx, i, newOptionSet(opts, data.Resolved))
}

// handleComponent routes component interactions (buttons)
func (h *Handler) handleComponent(ctx context.Context, i *discordgo.InteractionCreate) error {
	data := i.MessageComponentData()

	switch {
	case data.CustomID == tickets.CreateButtonID:
		return h.openTicket(ctx, i, "")
	case data.CustomID == tickets.CloseButtonID:
		return h.closeTicket(ctx, i)
	case strings.HasPrefix(data.CustomID, "voice_"):
		return h.handleVoiceButton(ctx, i, data.CustomID)
	default:
		return errors.Wrapf(models.ErrNotFound, "unknown component %s", data.CustomID)
	}
}

func (h *Handler) handleModal(ctx context.Context, i *discordgo.InteractionCreate) error {
	data := i.ModalSubmitData()
	if strings.HasPrefix(data.CustomID, "voice_") {
		return h.handleVoiceModal(ctx, i, data)
	}
	return errors.Wrapf(models.ErrNotFound, "unknown form %s", data.CustomID)
}

func (h *Handler) reply(i *discordgo.InteractionCreate, content string) error {
	return h.resp.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:         content,
			Flags:           discordgo.MessageFlagsEphemeral,
			AllowedMentions: &discordgo.MessageAllowedMentions{},
		},
	})
}

func (h *Handler) replyEmbed(i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) error {
	data := &discordgo.InteractionResponseData{
		Embeds:          []*discordgo.MessageEmbed{embed},
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return h.resp.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
}

func (h *Handler) deferReply(i *discordgo.InteractionCreate) error {
	return h.resp.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
}

func (h *Handler) edit(i *discordgo.InteractionCreate, content string) {
	if _, err := h.resp.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &content}); err != nil {
		logging.Debug("Failed to edit interaction response: %v", err)
	}
}

// respondError sends an ephemeral error message
func (h *Handler) respondError(i *discordgo.InteractionCreate, err error) {
	msg := fmt.Sprintf("❌ %s", models.UserMessage(err))
	if rerr := h.reply(i, msg); rerr != nil {
		// Already acknowledged (deferred): edit the original response instead.
		h.edit(i, msg)
	}
}

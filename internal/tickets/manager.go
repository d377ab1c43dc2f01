package tickets

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"

	"go-amadeus/internal/database"
	"go-amadeus/internal/gateway"
	"go-amadeus/internal/logging"
	"go-amadeus/internal/models"
	"go-amadeus/pkg/util"
)

const (
	CreateButtonID = "ticket_create"
	CloseButtonID  = "ticket_close"

	transcriptSize  = 10
	historyFetch    = 100
	transcriptWidth = 120
)

type Store interface {
	GetTicket(ctx context.Context, channelID string) (*database.Ticket, error)
	TicketByOwner(ctx context.Context, ownerID string) (*database.Ticket, error)
	UpsertTicket(ctx context.Context, t database.Ticket) error
	DeleteTicket(ctx context.Context, channelID string) error
	ListTickets(ctx context.Context) ([]database.Ticket, error)
	Setting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
}

type Auditor interface {
	TicketClosed(ctx context.Context, ticket database.Ticket, channelName, closedBy string, transcript []string) bool
}

type Request struct {
	GuildID   string
	OwnerID   string
	OwnerName string
	Topic     string
}

// Manager drives the ticket lifecycle: no ticket, open (row and channel
// exist), closed (row deleted, channel deleted).
type Manager struct {
	store   Store
	gw      gateway.Gateway
	auditor Auditor
	now     func() time.Time

	// owners serialises requests per owner, so a duplicate request waits
	// and then finds the ticket the first one created.
	owners util.KeyedMutex
}

func NewManager(store Store, gw gateway.Gateway, auditor Auditor) *Manager {
	return &Manager{
		store:   store,
		gw:      gw,
		auditor: auditor,
		now:     time.Now,
	}
}

// RequestTicket returns the owner's open ticket channel, or creates one.
// created is false when an existing ticket was returned.
func (m *Manager) RequestTicket(ctx context.Context, req Request) (channelID string, created bool, err error) {
	unlock := m.owners.Lock(req.OwnerID)
	defer unlock()

	existing, err := m.store.TicketByOwner(ctx, req.OwnerID)
	if err != nil {
		return "", false, err
	}
	if existing != nil {
		_, err := m.gw.Channel(ctx, existing.ChannelID)
		switch {
		case err == nil:
			return existing.ChannelID, false, nil
		case errors.Is(err, models.ErrNotFound):
			logging.Info("[TICKETS] Dropping stale ticket %s of %s", existing.ChannelID, req.OwnerID)
			if err := m.store.DeleteTicket(ctx, existing.ChannelID); err != nil {
				return "", false, err
			}
		default:
			return "", false, err
		}
	}

	categoryID, err := m.requiredSetting(ctx, database.SettingTicketsCategory, "ticket category is not set, run /ticket setup")
	if err != nil {
		return "", false, err
	}
	if _, err := m.gw.Channel(ctx, categoryID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", false, errors.Wrap(models.ErrConfigurationMissing, "ticket category no longer exists, run /ticket setup")
		}
		return "", false, err
	}
	supportRoleID, err := m.optionalSetting(ctx, database.SettingTicketsSupportRole)
	if err != nil {
		return "", false, err
	}

	visible := int64(gateway.PermViewChannel | gateway.PermSendMessages | gateway.PermReadHistory)
	overwrites := []gateway.Overwrite{
		gateway.EveryoneDeny(req.GuildID, gateway.PermViewChannel),
		gateway.MemberAllow(req.OwnerID, visible),
		gateway.MemberAllow(m.gw.BotUserID(), visible|gateway.PermManageChannels),
	}
	if supportRoleID != "" {
		overwrites = append(overwrites, gateway.RoleAllow(supportRoleID, visible))
	}

	ch, err := m.gw.CreateChannel(ctx, gateway.ChannelSpec{
		GuildID:    req.GuildID,
		Name:       ChannelName(req.OwnerName),
		Kind:       gateway.ChannelText,
		ParentID:   categoryID,
		Topic:      util.Truncate(req.Topic, 1024),
		Overwrites: overwrites,
		Reason:     "Ticket opened by " + req.OwnerID,
	})
	if err != nil {
		return "", false, errors.WithMessage(err, "create ticket channel")
	}

	if err := m.store.UpsertTicket(ctx, database.Ticket{ChannelID: ch.ID, OwnerID: req.OwnerID, CreatedAt: m.now()}); err != nil {
		if derr := m.gw.DeleteChannel(ctx, ch.ID, "Ticket could not be saved"); derr != nil {
			logging.Error("[TICKETS] Orphaned ticket channel %s: %v", ch.ID, derr)
		}
		return "", false, err
	}

	if _, err := m.gw.SendMessage(ctx, ch.ID, welcomeMessage(req, supportRoleID)); err != nil {
		logging.Warn("[TICKETS] Failed to post welcome in %s: %v", ch.ID, err)
	}

	logging.Info("[TICKETS] Opened %s for %s", ch.ID, req.OwnerID)
	return ch.ID, true, nil
}

// CloseTicket closes the ticket bound to channelID on behalf of actorID, who
// needs Manage Channels. The audit post is best-effort; the row is removed
// before the channel.
func (m *Manager) CloseTicket(ctx context.Context, channelID, actorID string) error {
	perms, err := m.gw.MemberPermissions(ctx, channelID, actorID)
	if err != nil {
		return err
	}
	if perms&(gateway.PermManageChannels|gateway.PermAdministrator) == 0 {
		return errors.Wrap(models.ErrPermissionDenied, "closing tickets requires Manage Channels")
	}

	ticket, err := m.store.GetTicket(ctx, channelID)
	if err != nil {
		return err
	}
	if ticket == nil {
		return errors.Wrap(models.ErrNotFound, "this channel is not a ticket")
	}

	name := channelID
	if ch, err := m.gw.Channel(ctx, channelID); err == nil {
		name = ch.Name
	}
	transcript := m.transcript(ctx, channelID)
	m.auditor.TicketClosed(ctx, *ticket, name, actorID, transcript)

	if err := m.store.DeleteTicket(ctx, channelID); err != nil {
		return err
	}
	if err := m.gw.DeleteChannel(ctx, channelID, "Ticket closed by "+actorID); err != nil && !errors.Is(err, models.ErrNotFound) {
		return errors.WithMessage(err, "delete ticket channel")
	}

	logging.Info("[TICKETS] Closed %s (owner %s) by %s", channelID, ticket.OwnerID, actorID)
	return nil
}

// transcript returns up to the last ten human messages, oldest first.
func (m *Manager) transcript(ctx context.Context, channelID string) []string {
	history, err := m.gw.RecentMessages(ctx, channelID, historyFetch)
	if err != nil {
		logging.Warn("[TICKETS] Could not read history of %s: %v", channelID, err)
		return nil
	}

	var lines []string
	for _, msg := range history {
		if msg.AuthorBot {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", msg.AuthorName, util.Truncate(msg.Content, transcriptWidth)))
		if len(lines) == transcriptSize {
			break
		}
	}
	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}
	return lines
}

// AddMember lets userID see and write in the ticket channel.
func (m *Manager) AddMember(ctx context.Context, channelID, userID string) error {
	return m.gw.SetOverwrite(ctx, channelID,
		gateway.MemberAllow(userID, gateway.PermViewChannel|gateway.PermSendMessages|gateway.PermReadHistory),
		"Added to ticket")
}

func (m *Manager) RemoveMember(ctx context.Context, channelID, userID string) error {
	return m.gw.RemoveOverwrite(ctx, channelID, userID, "Removed from ticket")
}

// Setup stores the category new tickets are created under and the optional
// support role.
func (m *Manager) Setup(ctx context.Context, categoryID, supportRoleID string) error {
	ch, err := m.gw.Channel(ctx, categoryID)
	if err != nil {
		return err
	}
	if ch.Kind != gateway.ChannelCategory {
		return errors.Wrap(models.ErrInvalidArgument, "tickets must be created under a category")
	}
	if err := m.store.SetSetting(ctx, database.SettingTicketsCategory, categoryID); err != nil {
		return err
	}
	if supportRoleID != "" {
		return m.store.SetSetting(ctx, database.SettingTicketsSupportRole, supportRoleID)
	}
	return nil
}

func (m *Manager) SetClosedChannel(ctx context.Context, channelID string) error {
	ch, err := m.gw.Channel(ctx, channelID)
	if err != nil {
		return err
	}
	if ch.Kind != gateway.ChannelText {
		return errors.Wrap(models.ErrInvalidArgument, "the closed ticket log must be a text channel")
	}
	return m.store.SetSetting(ctx, database.SettingTicketsClosedChannel, channelID)
}

func (m *Manager) OpenCount(ctx context.Context) (int, error) {
	list, err := m.store.ListTickets(ctx)
	if err != nil {
		return 0, err
	}
	return len(list), nil
}

// PostPanel posts the message with the button members use to open tickets.
func (m *Manager) PostPanel(ctx context.Context, channelID, title, description string) (string, error) {
	if title == "" {
		title = "Support Tickets"
	}
	if description == "" {
		description = "Press the button below to open a private ticket with the staff."
	}
	return m.gw.SendMessage(ctx, channelID, gateway.Message{
		Embed:   &gateway.Embed{Title: title, Description: description, Color: 0x5865F2},
		Buttons: []gateway.Button{{CustomID: CreateButtonID, Label: "Open Ticket", Emoji: "🎫", Style: gateway.ButtonPrimary}},
	})
}

func (m *Manager) requiredSetting(ctx context.Context, key, missing string) (string, error) {
	value, err := m.optionalSetting(ctx, key)
	if err != nil {
		return "", err
	}
	if value == "" {
		return "", errors.Wrap(models.ErrConfigurationMissing, missing)
	}
	return value, nil
}

func (m *Manager) optionalSetting(ctx context.Context, key string) (string, error) {
	value, ok, err := m.store.Setting(ctx, key)
	if err != nil {
		return "", err
	}
	if !ok || !util.IsSnowflake(value) {
		return "", nil
	}
	return value, nil
}

var unsafeChannelChars = regexp.MustCompile(`[^a-z0-9_-]+`)

// ChannelName derives "ticket-<name>" from a username.
func ChannelName(ownerName string) string {
	slug := unsafeChannelChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(ownerName)), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "user"
	}
	return util.Truncate("ticket-"+slug, 100)
}

func welcomeMessage(req Request, supportRoleID string) gateway.Message {
	content := fmt.Sprintf("<@%s>", req.OwnerID)
	if supportRoleID != "" {
		content += fmt.Sprintf(" <@&%s>", supportRoleID)
	}
	desc := "Support will be with you shortly. Describe your issue below."
	if req.Topic != "" {
		desc = fmt.Sprintf("**Topic:** %s\n\n%s", util.Truncate(req.Topic, 500), desc)
	}
	return gateway.Message{
		Content: content,
		Embed:   &gateway.Embed{Title: "Ticket Opened", Description: desc, Color: 0x57F287},
		Buttons: []gateway.Button{{CustomID: CloseButtonID, Label: "Close Ticket", Emoji: "🔒", Style: gateway.ButtonDanger}},
	}
}

package notifier

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go-amadeus/internal/database"
	"go-amadeus/internal/gateway"
	"go-amadeus/internal/logging"
	"go-amadeus/internal/models"
	"go-amadeus/pkg/util"
)

const (
	ColorInfo    = 0x5865F2
	ColorSuccess = 0x57F287
	ColorWarning = 0xFEE75C
	ColorDanger  = 0xED4245
	ColorNeutral = 0x2B2D31
)

type Settings interface {
	Setting(ctx context.Context, key string) (string, bool, error)
}

// Notifier posts best-effort audit messages into channels configured in the
// settings table. Nothing it does is allowed to fail the caller.
type Notifier struct {
	gw       gateway.Gateway
	settings Settings
	now      func() time.Time
}

func New(gw gateway.Gateway, settings Settings) *Notifier {
	return &Notifier{gw: gw, settings: settings, now: time.Now}
}

// ChannelFor returns the channel stored under key, or "" when unset or not an id.
func (n *Notifier) ChannelFor(ctx context.Context, key string) string {
	value, ok, err := n.settings.Setting(ctx, key)
	if err != nil {
		logging.Warn("[NOTIFY] Failed to read %s: %v", key, err)
		return ""
	}
	if !ok || !util.IsSnowflake(value) {
		return ""
	}
	return value
}

// Send posts msg to the channel configured under key. It reports whether a
// message was delivered; an unset channel is skipped silently.
func (n *Notifier) Send(ctx context.Context, key string, msg gateway.Message) bool {
	channelID := n.ChannelFor(ctx, key)
	if channelID == "" {
		return false
	}
	if _, err := n.gw.SendMessage(ctx, channelID, msg); err != nil {
		logging.Warn("[NOTIFY] Failed to post to %s (%s): %v", channelID, key, err)
		return false
	}
	return true
}

func (n *Notifier) ModerationAction(ctx context.Context, action models.ModerationAction, targetID, moderatorID, reason string, extra ...gateway.EmbedField) bool {
	if reason == "" {
		reason = "No reason provided"
	}
	fields := []gateway.EmbedField{
		{Name: "User", Value: fmt.Sprintf("<@%s> (`%s`)", targetID, targetID), Inline: true},
		{Name: "Moderator", Value: fmt.Sprintf("<@%s>", moderatorID), Inline: true},
		{Name: "Reason", Value: reason},
	}
	fields = append(fields, extra...)

	color := ColorWarning
	if action == models.ActionBan || action == models.ActionKick {
		color = ColorDanger
	}
	return n.Send(ctx, database.SettingLogChannel, gateway.Message{Embed: &gateway.Embed{
		Title:     action.Title(),
		Color:     color,
		Fields:    fields,
		Timestamp: n.now(),
	}})
}

func (n *Notifier) MemberJoined(ctx context.Context, ev models.MemberEvent) bool {
	created := "unknown"
	if ts, err := util.SnowflakeTime(ev.UserID); err == nil {
		created = fmt.Sprintf("<t:%d:R>", ts.Unix())
	}
	return n.Send(ctx, database.SettingLogChannel, gateway.Message{Embed: &gateway.Embed{
		Title:        "Member Joined",
		Description:  fmt.Sprintf("<@%s> %s", ev.UserID, ev.Username),
		Color:        ColorSuccess,
		ThumbnailURL: ev.AvatarURL,
		Fields: []gateway.EmbedField{
			{Name: "Account created", Value: created, Inline: true},
			{Name: "Member count", Value: fmt.Sprint(ev.MemberCount), Inline: true},
		},
		Footer:    "ID: " + ev.UserID,
		Timestamp: n.now(),
	}})
}

func (n *Notifier) MemberLeft(ctx context.Context, ev models.MemberEvent) bool {
	return n.Send(ctx, database.SettingLogChannel, gateway.Message{Embed: &gateway.Embed{
		Title:        "Member Left",
		Description:  fmt.Sprintf("<@%s> %s", ev.UserID, ev.Username),
		Color:        ColorDanger,
		ThumbnailURL: ev.AvatarURL,
		Footer:       "ID: " + ev.UserID,
		Timestamp:    n.now(),
	}})
}

// TicketClosed posts the closing summary of a ticket with its last messages
// in chronological order.
func (n *Notifier) TicketClosed(ctx context.Context, ticket database.Ticket, channelName, closedBy string, transcript []string) bool {
	body := "No messages."
	if len(transcript) > 0 {
		body = lastLines(transcript, transcriptFieldLimit)
	}
	return n.Send(ctx, database.SettingTicketsClosedChannel, gateway.Message{Embed: &gateway.Embed{
		Title: "Ticket Closed",
		Color: ColorNeutral,
		Fields: []gateway.EmbedField{
			{Name: "Ticket", Value: channelName, Inline: true},
			{Name: "Opened by", Value: fmt.Sprintf("<@%s>", ticket.OwnerID), Inline: true},
			{Name: "Closed by", Value: fmt.Sprintf("<@%s>", closedBy), Inline: true},
			{Name: "Opened", Value: fmt.Sprintf("<t:%d:F>", ticket.CreatedAt.Unix())},
			{Name: "Last messages", Value: body},
		},
		Timestamp: n.now(),
	}})
}

const transcriptFieldLimit = 1000

// lastLines joins the newest lines that fit in limit runes. Older lines are
// dropped whole; a single oversized line is cut.
func lastLines(lines []string, limit int) string {
	kept, size := 0, 0
	for i := len(lines) - 1; i >= 0; i-- {
		n := utf8.RuneCountInString(lines[i]) + 1
		if size+n > limit {
			break
		}
		size += n
		kept++
	}
	if kept == 0 {
		return util.Truncate(lines[len(lines)-1], limit)
	}
	return strings.Join(lines[len(lines)-kept:], "\n")
}

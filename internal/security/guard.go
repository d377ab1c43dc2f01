package security

import (
	"context"
	"strings"
	"time"

	"go-amadeus/internal/gateway"
	"go-amadeus/internal/logging"
	"go-amadeus/internal/models"
)

var inviteMarkers = []string{
	"discord.gg/",
	"discord.com/invite/",
	"discordapp.com/invite/",
}

// ContainsInvite reports whether content carries a server invite link.
func ContainsInvite(content string) bool {
	lower := strings.ToLower(content)
	for _, marker := range inviteMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// Guard deletes invite links and messages from users over the rate limit.
type Guard struct {
	gw   gateway.Gateway
	gate *RateGate
	now  func() time.Time
}

func NewGuard(gw gateway.Gateway, gate *RateGate) *Guard {
	return &Guard{gw: gw, gate: gate, now: time.Now}
}

// OnMessage checks content before rate accounting, so invite links are
// removed even for users under the limit and do not count against it.
func (g *Guard) OnMessage(ctx context.Context, ev models.MessageEvent) error {
	if ev.AuthorBot || ev.GuildID == "" {
		return nil
	}

	if ContainsInvite(ev.Content) {
		g.remove(ctx, ev, "invite link")
		return nil
	}

	at := ev.CreatedAt
	if at.IsZero() {
		at = g.now()
	}
	if !g.gate.Allow(ev.AuthorID, at) {
		g.remove(ctx, ev, "rate limit")
	}
	return nil
}

func (g *Guard) remove(ctx context.Context, ev models.MessageEvent, why string) {
	if err := g.gw.DeleteMessage(ctx, ev.ChannelID, ev.MessageID); err != nil {
		logging.Warn("[SECURITY] Failed to delete %s from %s (%s): %v", ev.MessageID, ev.AuthorID, why, err)
		return
	}
	logging.Info("[SECURITY] Deleted message %s from %s: %s", ev.MessageID, ev.AuthorID, why)
}

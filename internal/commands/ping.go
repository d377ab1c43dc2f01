package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
)

// handlePing reports gateway heartbeat and REST round-trip latency.
func (h *Handler) handlePing(ctx context.Context, i *discordgo.InteractionCreate, _ optionSet) error {
	startTime := time.Now()

	if err := h.deferReply(i); err != nil {
		return err
	}
	responseLatency := time.Since(startTime)

	apiStart := time.Now()
	_, err := h.gw.Channel(ctx, i.ChannelID)
	apiLatency := time.Since(apiStart)
	api := fmt.Sprintf("`%dms`", apiLatency.Milliseconds())
	if err != nil {
		api = "`unavailable`"
	}

	wsLatency := h.latency()
	embed := &discordgo.MessageEmbed{
		Title: "🏓 Pong!",
		Color: latencyColor((wsLatency + apiLatency) / 2),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "⚡ WebSocket", Value: fmt.Sprintf("`%dms`", wsLatency.Milliseconds()), Inline: true},
			{Name: "📡 API", Value: api, Inline: true},
			{Name: "🔄 Response", Value: fmt.Sprintf("`%dms`", responseLatency.Milliseconds()), Inline: true},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}

	_, err = h.resp.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Embeds: &[]*discordgo.MessageEmbed{embed},
	})
	return err
}

func latencyColor(avg time.Duration) int {
	switch {
	case avg < 60*time.Millisecond:
		return 0x00FF00
	case avg < 150*time.Millisecond:
		return 0xFFFF00
	case avg < 300*time.Millisecond:
		return 0xFFA500
	default:
		return 0xFF0000
	}
}

package bot

import (
	"time"

	"github.com/bwmarrin/discordgo"

	"go-amadeus/internal/logging"
	"go-amadeus/internal/metrics"
	"go-amadeus/internal/models"
)

// SetupEventHandlers converts discordgo events into router events. The state
// cache has already applied each event when these handlers run.
func (s *Session) SetupEventHandlers(r *Router, registry *metrics.MetricsRegistry) {
	logging.Info("Setting up Discord event handlers...")

	s.discord.AddHandler(func(_ *discordgo.Session, _ *discordgo.Connect) {
		registry.Liveness().SetConnected(true)
	})
	s.discord.AddHandler(func(_ *discordgo.Session, _ *discordgo.Disconnect) {
		registry.Liveness().SetConnected(false)
		logging.Warn("[BOT] Gateway disconnected")
	})
	s.discord.AddHandler(func(_ *discordgo.Session, ev *discordgo.Ready) {
		logging.Info("[BOT] Ready as %s in %d guild(s)", ev.User.Username, len(ev.Guilds))
	})

	s.discord.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		if ev, ok := messageEvent(m); ok {
			r.DispatchMessage(ev)
		}
	})

	s.discord.AddHandler(func(sess *discordgo.Session, m *discordgo.MessageReactionAdd) {
		ev := reactionEvent(m.MessageReaction)
		if m.Member != nil && m.Member.User != nil {
			ev.UserBot = m.Member.User.Bot
		} else {
			ev.UserBot = isBot(sess, m.GuildID, m.UserID)
		}
		r.DispatchReactionAdd(ev)
	})

	s.discord.AddHandler(func(sess *discordgo.Session, m *discordgo.MessageReactionRemove) {
		ev := reactionEvent(m.MessageReaction)
		ev.UserBot = isBot(sess, m.GuildID, m.UserID)
		r.DispatchReactionRemove(ev)
	})

	s.discord.AddHandler(func(sess *discordgo.Session, m *discordgo.GuildMemberAdd) {
		r.DispatchMemberJoin(memberEvent(sess, m.Member))
	})

	s.discord.AddHandler(func(sess *discordgo.Session, m *discordgo.GuildMemberRemove) {
		r.DispatchMemberLeave(memberEvent(sess, m.Member))
	})

	s.discord.AddHandler(func(_ *discordgo.Session, v *discordgo.VoiceStateUpdate) {
		r.DispatchVoiceState(voiceStateEvent(v))
	})

	s.discord.AddHandler(func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
		r.DispatchInteraction(i)
	})
}

func messageEvent(m *discordgo.MessageCreate) (models.MessageEvent, bool) {
	if m.Message == nil || m.Author == nil {
		return models.MessageEvent{}, false
	}
	created := m.Timestamp
	if created.IsZero() {
		created = time.Now()
	}
	return models.MessageEvent{
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		MessageID: m.ID,
		AuthorID:  m.Author.ID,
		AuthorBot: m.Author.Bot,
		Content:   m.Content,
		CreatedAt: created,
	}, true
}

func reactionEvent(m *discordgo.MessageReaction) models.ReactionEvent {
	return models.ReactionEvent{
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		MessageID: m.MessageID,
		UserID:    m.UserID,
		Emoji:     m.Emoji.APIName(),
	}
}

func isBot(sess *discordgo.Session, guildID, userID string) bool {
	if sess.State.User != nil && sess.State.User.ID == userID {
		return true
	}
	m, err := sess.State.Member(guildID, userID)
	if err != nil || m.User == nil {
		return false
	}
	return m.User.Bot
}

func memberEvent(sess *discordgo.Session, m *discordgo.Member) models.MemberEvent {
	member := toMember(m.GuildID, m)
	ev := models.MemberEvent{
		GuildID:     m.GuildID,
		UserID:      member.UserID,
		Username:    member.Username,
		DisplayName: member.DisplayName,
		AvatarURL:   member.AvatarURL,
		Bot:         member.Bot,
		At:          time.Now(),
	}
	if g, err := sess.State.Guild(m.GuildID); err == nil {
		ev.MemberCount = g.MemberCount
	}
	return ev
}

func voiceStateEvent(v *discordgo.VoiceStateUpdate) models.VoiceStateEvent {
	ev := models.VoiceStateEvent{
		GuildID:        v.GuildID,
		UserID:         v.UserID,
		AfterChannelID: v.ChannelID,
	}
	if v.BeforeUpdate != nil {
		ev.BeforeChannelID = v.BeforeUpdate.ChannelID
	}
	if v.Member != nil {
		member := toMember(v.GuildID, v.Member)
		ev.DisplayName = member.DisplayName
		ev.Bot = member.Bot
	}
	return ev
}

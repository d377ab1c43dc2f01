package bootstrap

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"

	"go-amadeus/internal/bot"
	"go-amadeus/internal/commands"
	"go-amadeus/internal/community"
	"go-amadeus/internal/database"
	"go-amadeus/internal/leveling"
	"go-amadeus/internal/logging"
	"go-amadeus/internal/metrics"
	"go-amadeus/internal/moderation"
	"go-amadeus/internal/notifier"
	"go-amadeus/internal/reactionroles"
	"go-amadeus/internal/security"
	"go-amadeus/internal/tickets"
	"go-amadeus/internal/voice"
	"go-amadeus/internal/watchdog"
)

const (
	gatewayQuietThreshold = 15 * time.Minute
	janitorThreshold      = 3 * sweepInterval
)

type Components struct {
	Database *database.Database
	Session  *bot.Session
	Gateway  *bot.Gateway
	Router   *bot.Router

	Metrics  *metrics.MetricsRegistry
	Watchdog *watchdog.Watchdog

	Levels     *leveling.Engine
	Reactions  *reactionroles.Service
	Tickets    *tickets.Manager
	Voice      *voice.Provisioner
	RateGate   *security.RateGate
	Guard      *security.Guard
	Moderation *moderation.Service
	Community  *community.Service
	Counter    *community.MessageCounter
	Commands   *commands.Handler
}

// Wire builds every component on top of an open database and an unconnected
// session, and registers the event handlers on the router.
func Wire(ctx context.Context, b *Bootstrap, db *database.Database, session *bot.Session) (*Components, error) {
	logging.Info("Wiring components...")

	if !db.IsConnected(ctx) {
		return nil, errors.New("database connection not available")
	}

	cfg := b.Config
	dg := session.Discord()
	gw := bot.NewGateway(dg, cfg.Network.RESTRate)
	registry := metrics.NewMetricsRegistry()
	notify := notifier.New(gw, db)

	provisioner := voice.NewProvisioner(db, gw)
	if err := provisioner.Load(ctx); err != nil {
		return nil, errors.WithMessage(err, "load voice template")
	}
	gate := security.NewRateGate(cfg.Security.SpamWindow, cfg.Security.SpamThreshold)

	c := &Components{
		Database:   db,
		Session:    session,
		Gateway:    gw,
		Router:     bot.NewRouter(cfg.Bot.GuildID, registry),
		Metrics:    registry,
		Watchdog:   watchdog.NewWatchdog(watchdog.DefaultCheckInterval),
		Levels:     leveling.NewEngine(db, gw),
		Reactions:  reactionroles.NewService(db, gw),
		Tickets:    tickets.NewManager(db, gw, notify),
		Voice:      provisioner,
		RateGate:   gate,
		Guard:      security.NewGuard(gw, gate),
		Moderation: moderation.NewService(db, gw, notify),
		Community:  community.NewService(db, gw, notify, community.NewImageProbe(nil)),
		Counter:    community.NewMessageCounter(db, cfg.Stats.FlushEvery),
	}

	c.Commands = commands.NewHandler(commands.Dependencies{
		Responder:   dg,
		Sender:      dg,
		Gateway:     gw,
		Owners:      cfg.Bot,
		Levels:      c.Levels,
		Tickets:     c.Tickets,
		Voice:       c.Voice,
		Reactions:   c.Reactions,
		Moderation:  c.Moderation,
		Community:   c.Community,
		Counter:     c.Counter,
		Metrics:     registry,
		Latency:     dg.HeartbeatLatency,
		GuildCount:  func() int { return guildCount(dg) },
		MemberCount: func(guildID string) int { return memberCount(dg, guildID) },
	})

	r := c.Router
	r.SetBaseContext(ctx)
	r.OnMessage("security", c.Guard.OnMessage)
	r.OnMessage("leveling", c.Levels.OnMessage)
	r.OnMessage("message_stats", c.Counter.OnMessage)
	r.OnMessage("text_commands", c.Commands.OnMessage)
	r.OnReactionAdd("reaction_roles", c.Reactions.OnReactionAdded)
	r.OnReactionRemove("reaction_roles", c.Reactions.OnReactionRemoved)
	r.OnMemberJoin("welcome", c.Community.OnMemberJoin)
	r.OnMemberLeave("welcome", c.Community.OnMemberLeave)
	r.OnVoiceState("private_voice", c.Voice.OnVoiceStateUpdate)
	r.OnInteraction("commands", c.Commands.Handle)
	session.SetupEventHandlers(r, registry)

	c.Watchdog.RegisterComponent("gateway", gatewayQuietThreshold, registry.Liveness().LastEvent)
	c.Watchdog.RegisterComponent("janitor", janitorThreshold, b.lastSweep)

	logging.Info("All components wired")
	return c, nil
}

func guildCount(dg *discordgo.Session) int {
	dg.State.RLock()
	defer dg.State.RUnlock()
	return len(dg.State.Guilds)
}

func memberCount(dg *discordgo.Session, guildID string) int {
	g, err := dg.State.Guild(guildID)
	if err != nil {
		return 0
	}
	return g.MemberCount
}

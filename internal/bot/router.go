package bot

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"go-amadeus/internal/logging"
	"go-amadeus/internal/metrics"
	"go-amadeus/internal/models"
)

const DefaultHandlerTimeout = 30 * time.Second

type traceKey struct{}

// TraceID returns the id the router assigned to the event being handled.
func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}

type route[E any] struct {
	name string
	fn   func(context.Context, E) error
}

// Router is the dispatch table from event kind to component handlers. Every
// handler registered for a kind sees every event of that kind, in
// registration order; a failing or panicking handler does not stop the rest.
type Router struct {
	guildID string
	timeout time.Duration
	metrics *metrics.MetricsRegistry
	base    context.Context

	messages        []route[models.MessageEvent]
	reactionAdds    []route[models.ReactionEvent]
	reactionRemoves []route[models.ReactionEvent]
	memberJoins     []route[models.MemberEvent]
	memberLeaves    []route[models.MemberEvent]
	voiceStates     []route[models.VoiceStateEvent]
	interactions    []route[*discordgo.InteractionCreate]
}

// NewRouter restricts dispatch to guildID when it is not empty.
func NewRouter(guildID string, registry *metrics.MetricsRegistry) *Router {
	if registry == nil {
		registry = metrics.NewMetricsRegistry()
	}
	return &Router{
		guildID: guildID,
		timeout: DefaultHandlerTimeout,
		metrics: registry,
		base:    context.Background(),
	}
}

// SetBaseContext makes every handler context a child of ctx, so shutdown
// cancels handlers still in flight.
func (r *Router) SetBaseContext(ctx context.Context) {
	r.base = ctx
}

func (r *Router) OnMessage(name string, fn func(context.Context, models.MessageEvent) error) {
	r.messages = append(r.messages, route[models.MessageEvent]{name, fn})
}

func (r *Router) OnReactionAdd(name string, fn func(context.Context, models.ReactionEvent) error) {
	r.reactionAdds = append(r.reactionAdds, route[models.ReactionEvent]{name, fn})
}

func (r *Router) OnReactionRemove(name string, fn func(context.Context, models.ReactionEvent) error) {
	r.reactionRemoves = append(r.reactionRemoves, route[models.ReactionEvent]{name, fn})
}

func (r *Router) OnMemberJoin(name string, fn func(context.Context, models.MemberEvent) error) {
	r.memberJoins = append(r.memberJoins, route[models.MemberEvent]{name, fn})
}

func (r *Router) OnMemberLeave(name string, fn func(context.Context, models.MemberEvent) error) {
	r.memberLeaves = append(r.memberLeaves, route[models.MemberEvent]{name, fn})
}

func (r *Router) OnVoiceState(name string, fn func(context.Context, models.VoiceStateEvent) error) {
	r.voiceStates = append(r.voiceStates, route[models.VoiceStateEvent]{name, fn})
}

func (r *Router) OnInteraction(name string, fn func(context.Context, *discordgo.InteractionCreate) error) {
	r.interactions = append(r.interactions, route[*discordgo.InteractionCreate]{name, fn})
}

func (r *Router) DispatchMessage(ev models.MessageEvent) {
	dispatch(r, models.EventMessageCreate, ev.GuildID, r.messages, ev)
}

func (r *Router) DispatchReactionAdd(ev models.ReactionEvent) {
	dispatch(r, models.EventReactionAdd, ev.GuildID, r.reactionAdds, ev)
}

func (r *Router) DispatchReactionRemove(ev models.ReactionEvent) {
	dispatch(r, models.EventReactionRemove, ev.GuildID, r.reactionRemoves, ev)
}

func (r *Router) DispatchMemberJoin(ev models.MemberEvent) {
	dispatch(r, models.EventMemberJoin, ev.GuildID, r.memberJoins, ev)
}

func (r *Router) DispatchMemberLeave(ev models.MemberEvent) {
	dispatch(r, models.EventMemberLeave, ev.GuildID, r.memberLeaves, ev)
}

func (r *Router) DispatchVoiceState(ev models.VoiceStateEvent) {
	dispatch(r, models.EventVoiceStateUpdate, ev.GuildID, r.voiceStates, ev)
}

func (r *Router) DispatchInteraction(i *discordgo.InteractionCreate) {
	dispatch(r, models.EventInteraction, i.GuildID, r.interactions, i)
}

func (r *Router) accepts(guildID string) bool {
	return r.guildID == "" || guildID == "" || guildID == r.guildID
}

func dispatch[E any](r *Router, kind models.EventKind, guildID string, routes []route[E], ev E) {
	if !r.accepts(guildID) || len(routes) == 0 {
		return
	}
	r.metrics.RecordEvent()

	trace := uuid.NewString()
	for _, rt := range routes {
		invoke(r, kind, trace, rt, ev)
	}
}

func invoke[E any](r *Router, kind models.EventKind, trace string, rt route[E], ev E) {
	ctx, cancel := context.WithTimeout(context.WithValue(r.base, traceKey{}, trace), r.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			r.metrics.RecordPanic(kind.String())
			logging.Critical("[ROUTER] %s handler %s panicked (trace %s): %v\n%s", kind, rt.name, trace, rec, debug.Stack())
		}
	}()

	err := rt.fn(ctx, ev)
	r.metrics.ObserveHandler(kind.String(), time.Since(start), err)
	if err != nil {
		logging.Error("[ROUTER] %s handler %s failed (trace %s): %v", kind, rt.name, trace, err)
	}
}

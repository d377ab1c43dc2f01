package bot

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/ratelimit"

	"go-amadeus/internal/gateway"
)

const DefaultRESTRate = 40

// Gateway implements gateway.Gateway on top of a discordgo session. Reads
// prefer the state cache; mutations are paced by a token-bucket limiter so
// bursts of teardown or provisioning stay under the global REST limit.
type Gateway struct {
	s       *discordgo.Session
	limiter ratelimit.Limiter
}

var _ gateway.Gateway = (*Gateway)(nil)

func NewGateway(s *discordgo.Session, perSecond int) *Gateway {
	if perSecond <= 0 {
		perSecond = DefaultRESTRate
	}
	return &Gateway{s: s, limiter: ratelimit.New(perSecond)}
}

func requestOptions(ctx context.Context, reason string) []discordgo.RequestOption {
	opts := []discordgo.RequestOption{discordgo.WithContext(ctx)}
	if reason != "" {
		opts = append(opts, discordgo.WithAuditLogReason(reason))
	}
	return opts
}

func (g *Gateway) mutate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.limiter.Take()
	return nil
}

func (g *Gateway) BotUserID() string {
	if g.s.State == nil || g.s.State.User == nil {
		return ""
	}
	return g.s.State.User.ID
}

func (g *Gateway) SendMessage(ctx context.Context, channelID string, msg gateway.Message) (string, error) {
	if err := g.mutate(ctx); err != nil {
		return "", classify(err, "send a message")
	}
	sent, err := g.s.ChannelMessageSendComplex(channelID, renderMessage(msg), requestOptions(ctx, "")...)
	if err != nil {
		return "", classify(err, "send a message")
	}
	return sent.ID, nil
}

func (g *Gateway) FetchMessage(ctx context.Context, channelID, messageID string) (*gateway.HistoryMessage, error) {
	if m, err := g.s.State.Message(channelID, messageID); err == nil {
		h := toHistory(m)
		return &h, nil
	}
	m, err := g.s.ChannelMessage(channelID, messageID, requestOptions(ctx, "")...)
	if err != nil {
		return nil, classify(err, "fetch the message")
	}
	h := toHistory(m)
	return &h, nil
}

// RecentMessages returns up to limit messages, newest first.
func (g *Gateway) RecentMessages(ctx context.Context, channelID string, limit int) ([]gateway.HistoryMessage, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	msgs, err := g.s.ChannelMessages(channelID, limit, "", "", "", requestOptions(ctx, "")...)
	if err != nil {
		return nil, classify(err, "read channel history")
	}
	out := make([]gateway.HistoryMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toHistory(m))
	}
	return out, nil
}

func (g *Gateway) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	if err := g.mutate(ctx); err != nil {
		return classify(err, "delete the message")
	}
	return classify(g.s.ChannelMessageDelete(channelID, messageID, requestOptions(ctx, "")...), "delete the message")
}

func (g *Gateway) AddReaction(ctx context.Context, channelID, messageID, emoji string) error {
	if err := g.mutate(ctx); err != nil {
		return classify(err, "add the reaction")
	}
	return classify(g.s.MessageReactionAdd(channelID, messageID, emoji, requestOptions(ctx, "")...), "add the reaction")
}

func (g *Gateway) Channel(ctx context.Context, channelID string) (*gateway.Channel, error) {
	if c, err := g.s.State.Channel(channelID); err == nil {
		return toChannel(c), nil
	}
	c, err := g.s.Channel(channelID, requestOptions(ctx, "")...)
	if err != nil {
		return nil, classify(err, "find the channel")
	}
	return toChannel(c), nil
}

func (g *Gateway) CreateChannel(ctx context.Context, spec gateway.ChannelSpec) (*gateway.Channel, error) {
	if err := g.mutate(ctx); err != nil {
		return nil, classify(err, "create the channel")
	}
	c, err := g.s.GuildChannelCreateComplex(spec.GuildID, discordgo.GuildChannelCreateData{
		Name:                 spec.Name,
		Type:                 channelType(spec.Kind),
		Topic:                spec.Topic,
		UserLimit:            spec.UserLimit,
		ParentID:             spec.ParentID,
		PermissionOverwrites: toOverwrites(spec.Overwrites),
	}, requestOptions(ctx, spec.Reason)...)
	if err != nil {
		return nil, classify(err, "create the channel")
	}
	return toChannel(c), nil
}

// EditChannel sends a raw PATCH because discordgo's ChannelEdit omits a zero
// user limit, which is how a limit is cleared.
func (g *Gateway) EditChannel(ctx context.Context, channelID string, edit gateway.ChannelEdit) error {
	if err := g.mutate(ctx); err != nil {
		return classify(err, "edit the channel")
	}
	body := make(map[string]interface{})
	if edit.Name != nil {
		body["name"] = *edit.Name
	}
	if edit.UserLimit != nil {
		body["user_limit"] = *edit.UserLimit
	}
	if edit.Overwrites != nil {
		body["permission_overwrites"] = toOverwrites(edit.Overwrites)
	}
	if len(body) == 0 {
		return nil
	}
	endpoint := discordgo.EndpointChannel(channelID)
	_, err := g.s.RequestWithBucketID("PATCH", endpoint, body, endpoint, requestOptions(ctx, edit.Reason)...)
	return classify(err, "edit the channel")
}

func (g *Gateway) DeleteChannel(ctx context.Context, channelID, reason string) error {
	if err := g.mutate(ctx); err != nil {
		return classify(err, "delete the channel")
	}
	_, err := g.s.ChannelDelete(channelID, requestOptions(ctx, reason)...)
	return classify(err, "delete the channel")
}

func (g *Gateway) SetOverwrite(ctx context.Context, channelID string, ow gateway.Overwrite, reason string) error {
	if err := g.mutate(ctx); err != nil {
		return classify(err, "change channel permissions")
	}
	err := g.s.ChannelPermissionSet(channelID, ow.TargetID, overwriteType(ow.Member), ow.Allow, ow.Deny, requestOptions(ctx, reason)...)
	return classify(err, "change channel permissions")
}

func (g *Gateway) RemoveOverwrite(ctx context.Context, channelID, targetID, reason string) error {
	if err := g.mutate(ctx); err != nil {
		return classify(err, "change channel permissions")
	}
	return classify(g.s.ChannelPermissionDelete(channelID, targetID, requestOptions(ctx, reason)...), "change channel permissions")
}

func (g *Gateway) Member(ctx context.Context, guildID, userID string) (*gateway.Member, error) {
	if m, err := g.s.State.Member(guildID, userID); err == nil {
		return toMember(guildID, m), nil
	}
	m, err := g.s.GuildMember(guildID, userID, requestOptions(ctx, "")...)
	if err != nil {
		return nil, classify(err, "find the member")
	}
	return toMember(guildID, m), nil
}

func (g *Gateway) MemberPermissions(ctx context.Context, channelID, userID string) (int64, error) {
	if perms, err := g.s.State.UserChannelPermissions(userID, channelID); err == nil {
		return perms, nil
	}
	perms, err := g.s.UserChannelPermissions(userID, channelID, requestOptions(ctx, "")...)
	if err != nil {
		return 0, classify(err, "read member permissions")
	}
	return perms, nil
}

func (g *Gateway) GrantRole(ctx context.Context, guildID, userID, roleID, reason string) error {
	if err := g.mutate(ctx); err != nil {
		return classify(err, "add the role")
	}
	return classify(g.s.GuildMemberRoleAdd(guildID, userID, roleID, requestOptions(ctx, reason)...), "add the role")
}

func (g *Gateway) RevokeRole(ctx context.Context, guildID, userID, roleID, reason string) error {
	if err := g.mutate(ctx); err != nil {
		return classify(err, "remove the role")
	}
	return classify(g.s.GuildMemberRoleRemove(guildID, userID, roleID, requestOptions(ctx, reason)...), "remove the role")
}

func (g *Gateway) MoveMember(ctx context.Context, guildID, userID, channelID string) error {
	if err := g.mutate(ctx); err != nil {
		return classify(err, "move the member")
	}
	return classify(g.s.GuildMemberMove(guildID, userID, &channelID, requestOptions(ctx, "")...), "move the member")
}

func (g *Gateway) KickMember(ctx context.Context, guildID, userID, reason string) error {
	if err := g.mutate(ctx); err != nil {
		return classify(err, "kick the member")
	}
	return classify(g.s.GuildMemberDeleteWithReason(guildID, userID, reason, requestOptions(ctx, "")...), "kick the member")
}

func (g *Gateway) BanMember(ctx context.Context, guildID, userID, reason string, deleteDays int) error {
	if err := g.mutate(ctx); err != nil {
		return classify(err, "ban the member")
	}
	return classify(g.s.GuildBanCreateWithReason(guildID, userID, reason, deleteDays, requestOptions(ctx, "")...), "ban the member")
}

func (g *Gateway) TimeoutMember(ctx context.Context, guildID, userID string, until time.Time, reason string) error {
	if err := g.mutate(ctx); err != nil {
		return classify(err, "time out the member")
	}
	return classify(g.s.GuildMemberTimeout(guildID, userID, &until, requestOptions(ctx, reason)...), "time out the member")
}

func (g *Gateway) VoiceOccupancy(guildID, channelID string) int {
	guild, err := g.s.State.Guild(guildID)
	if err != nil {
		return 0
	}
	g.s.State.RLock()
	defer g.s.State.RUnlock()

	n := 0
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID == channelID {
			n++
		}
	}
	return n
}

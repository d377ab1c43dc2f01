package commands

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"go-amadeus/internal/community"
	"go-amadeus/internal/config"
	"go-amadeus/internal/database"
	"go-amadeus/internal/gateway"
	"go-amadeus/internal/gateway/gatewaytest"
	"go-amadeus/internal/leveling"
	"go-amadeus/internal/models"
	"go-amadeus/internal/moderation"
	"go-amadeus/internal/notifier"
	"go-amadeus/internal/tickets"
	"go-amadeus/internal/voice"
)

const (
	guildID   = "100000000000000001"
	channelID = "300000000000000003"
	voiceID   = "300000000000000009"
	modID     = "200000000000000002"
	targetID  = "200000000000000005"
	ownerID   = "200000000000000007"
	roleID    = "400000000000000004"
)

// recorder answers interactions the way the platform does: a second initial
// response to the same interaction fails.
type recorder struct {
	mu        sync.Mutex
	responses []*discordgo.InteractionResponse
	edits     []*discordgo.WebhookEdit
}

func (r *recorder) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.responses) > 0 {
		return errors.New("interaction has already been acknowledged")
	}
	r.responses = append(r.responses, resp)
	return nil
}

func (r *recorder) InteractionResponseEdit(_ *discordgo.Interaction, edit *discordgo.WebhookEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edits = append(r.edits, edit)
	return &discordgo.Message{}, nil
}

func (r *recorder) content(t *testing.T) string {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.responses)
	return r.responses[0].Data.Content
}

func (r *recorder) lastEdit(t *testing.T) string {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.edits)
	last := r.edits[len(r.edits)-1]
	require.NotNil(t, last.Content)
	return *last.Content
}

type fixture struct {
	h    *Handler
	rec  *recorder
	chat *chatRecorder
	gw   *gatewaytest.Fake
	db   *database.Database
}

func setup(t *testing.T, vc VoiceAdmin) fixture {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "amadeus.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gw := gatewaytest.New()
	gw.AddChannel(gateway.Channel{ID: channelID, GuildID: guildID, Name: "general", Kind: gateway.ChannelText})
	gw.AddMember(gateway.Member{GuildID: guildID, UserID: targetID, Username: "target"})

	notify := notifier.New(gw, db)
	rec := &recorder{}
	chat := &chatRecorder{}
	h := NewHandler(Dependencies{
		Responder:  rec,
		Sender:     chat,
		Gateway:    gw,
		Owners:     config.BotConfig{OwnerIDs: []string{ownerID}, Prefix: "!"},
		Levels:     leveling.NewEngine(db, gw),
		Voice:      vc,
		Tickets:    tickets.NewManager(db, gw, notify),
		Moderation: moderation.NewService(db, gw, notify),
		Community:  community.NewService(db, gw, notify, nil),
		MemberCount: func(string) int {
			return 7
		},
	})
	return fixture{h: h, rec: rec, chat: chat, gw: gw, db: db}
}

func command(userID string, perms int64, name string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type:      discordgo.InteractionApplicationCommand,
		GuildID:   guildID,
		ChannelID: channelID,
		Member:    &discordgo.Member{User: &discordgo.User{ID: userID, Username: "user" + userID[len(userID)-1:]}, Permissions: perms},
		Data:      discordgo.ApplicationCommandInteractionData{Name: name, Options: opts},
	}}
}

func opt(name string, t discordgo.ApplicationCommandOptionType, value interface{}) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: t, Value: value}
}

func TestCommandKey(t *testing.T) {
	key, opts := commandKey(discordgo.ApplicationCommandInteractionData{
		Name: "ticket",
		Options: []*discordgo.ApplicationCommandInteractionDataOption{{
			Name: "add",
			Type: discordgo.ApplicationCommandOptionSubCommand,
			Options: []*discordgo.ApplicationCommandInteractionDataOption{
				opt("user", discordgo.ApplicationCommandOptionUser, targetID),
			},
		}},
	})
	require.Equal(t, "ticket add", key)
	require.Len(t, opts, 1)

	key, opts = commandKey(discordgo.ApplicationCommandInteractionData{
		Name:    "kick",
		Options: []*discordgo.ApplicationCommandInteractionDataOption{opt("user", discordgo.ApplicationCommandOptionUser, targetID)},
	})
	require.Equal(t, "kick", key)
	require.Len(t, opts, 1)
}

func TestOptionSet(t *testing.T) {
	set := newOptionSet([]*discordgo.ApplicationCommandInteractionDataOption{
		opt("user", discordgo.ApplicationCommandOptionUser, targetID),
		opt("minutes", discordgo.ApplicationCommandOptionInteger, float64(15)),
		opt("reason", discordgo.ApplicationCommandOptionString, "  spam  "),
		opt("message_id", discordgo.ApplicationCommandOptionString, "not-an-id"),
	}, &discordgo.ApplicationCommandInteractionDataResolved{
		Roles: map[string]*discordgo.Role{roleID: {ID: roleID, Name: "Regular"}},
	})

	require.Equal(t, targetID, set.id("user"))
	require.Equal(t, 15, set.int("minutes", 0))
	require.Equal(t, 3, set.int("missing", 3))
	require.Equal(t, "spam", set.string("reason"))
	require.Empty(t, set.id("message_id"))
	require.Equal(t, "Regular", set.roleName(roleID))

	_, err := set.requireID("role")
	require.True(t, errors.Is(err, models.ErrInvalidArgument))
}

func TestParseUserRef(t *testing.T) {
	for in, want := range map[string]string{
		targetID:              targetID,
		"<@" + targetID + ">":  targetID,
		"<@!" + targetID + ">": targetID,
		" " + targetID + " ":   targetID,
	} {
		got, ok := parseUserRef(in)
		require.True(t, ok, in)
		require.Equal(t, want, got)
	}
	for _, in := range []string{"", "bob", "<@bob>", "<#" + targetID + ">"} {
		_, ok := parseUserRef(in)
		require.False(t, ok, in)
	}
}

func TestCheckPermissions(t *testing.T) {
	f := setup(t, nil)

	cases := []struct {
		name  string
		user  string
		perms int64
		key   string
		ok    bool
	}{
		{"public", modID, 0, "lvl", true},
		{"public subcommand", modID, 0, "ticket create", true},
		{"owner bypass", ownerID, 0, "ban", true},
		{"administrator", modID, gateway.PermAdministrator, "ticket setup", true},
		{"delegated", modID, gateway.PermKickMembers, "kick", true},
		{"wrong permission", modID, gateway.PermKickMembers, "ban", false},
		{"no permission", modID, 0, "warn", false},
		{"unlisted needs admin", modID, gateway.PermManageGuild, "unknown", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := f.h.checkPermissions(command(tc.user, tc.perms, tc.key), tc.key)
			if tc.ok {
				require.NoError(t, err)
				return
			}
			require.True(t, errors.Is(err, models.ErrPermissionDenied))
		})
	}
}

func TestHandleRejectsDirectMessages(t *testing.T) {
	f := setup(t, nil)
	i := command(modID, 0, "lvl")
	i.GuildID = ""

	require.NoError(t, f.h.Handle(context.Background(), i))
	require.Equal(t, "Commands only work inside a server.", f.rec.content(t))
}

func TestHandleAnswersFailuresEphemerally(t *testing.T) {
	f := setup(t, nil)

	err := f.h.Handle(context.Background(), command(modID, 0, "nope"))
	require.True(t, errors.Is(err, models.ErrNotFound))

	f = setup(t, nil)
	err = f.h.Handle(context.Background(), command(modID, 0, "kick", opt("user", discordgo.ApplicationCommandOptionUser, targetID)))
	require.True(t, errors.Is(err, models.ErrPermissionDenied))
	require.True(t, strings.HasPrefix(f.rec.content(t), "❌ "))
	require.Equal(t, discordgo.MessageFlagsEphemeral, f.rec.responses[0].Data.Flags)
	require.Empty(t, f.gw.Kicks)
}

func TestKickCommand(t *testing.T) {
	f := setup(t, nil)

	err := f.h.Handle(context.Background(), command(modID, gateway.PermKickMembers, "kick",
		opt("user", discordgo.ApplicationCommandOptionUser, targetID),
		opt("reason", discordgo.ApplicationCommandOptionString, "spam"),
	))
	require.NoError(t, err)
	require.Equal(t, []string{targetID}, f.gw.Kicks)
	require.Contains(t, f.rec.content(t), "was kicked")

	history, err := f.db.ModerationHistory(context.Background(), targetID, moderation.HistoryLimit)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, modID, history[0].ModeratorID)
}

func TestMuteCommandValidatesDuration(t *testing.T) {
	f := setup(t, nil)

	err := f.h.Handle(context.Background(), command(modID, gateway.PermModerateMembers, "mute",
		opt("user", discordgo.ApplicationCommandOptionUser, targetID),
		opt("minutes", discordgo.ApplicationCommandOptionInteger, float64(0)),
	))
	require.True(t, errors.Is(err, models.ErrInvalidArgument))
	require.Empty(t, f.gw.Timeouts)
}

func TestRewardCommands(t *testing.T) {
	ctx := context.Background()
	f := setup(t, nil)

	i := command(modID, gateway.PermManageRoles, "reward-add",
		opt("level", discordgo.ApplicationCommandOptionInteger, float64(5)),
		opt("role", discordgo.ApplicationCommandOptionRole, roleID),
	)
	i.Data = discordgo.ApplicationCommandInteractionData{
		Name:    "reward-add",
		Options: i.ApplicationCommandData().Options,
		Resolved: &discordgo.ApplicationCommandInteractionDataResolved{
			Roles: map[string]*discordgo.Role{roleID: {ID: roleID, Name: "Regular"}},
		},
	}
	require.NoError(t, f.h.Handle(ctx, i))

	rewards, err := f.db.ListLevelRewards(ctx)
	require.NoError(t, err)
	require.Equal(t, []database.LevelReward{{Level: 5, RoleID: roleID, RoleName: "Regular"}}, rewards)

	f2 := setup(t, nil)
	err = f2.h.Handle(ctx, command(modID, gateway.PermManageRoles, "reward-remove",
		opt("level", discordgo.ApplicationCommandOptionInteger, float64(9))))
	require.True(t, errors.Is(err, models.ErrNotFound))
}

func TestLevelCommandDefaultsToInvoker(t *testing.T) {
	f := setup(t, nil)

	require.NoError(t, f.h.Handle(context.Background(), command(modID, 0, "lvl")))
	resp := f.rec.responses[0]
	require.Len(t, resp.Data.Embeds, 1)
	require.Contains(t, resp.Data.Embeds[0].Description, modID)
	require.Equal(t, "unranked", resp.Data.Embeds[0].Fields[2].Value)
}

func TestWelcomePreviewPostsInChannel(t *testing.T) {
	f := setup(t, nil)

	require.NoError(t, f.h.Handle(context.Background(), command(modID, gateway.PermManageGuild, "welcome-preview")))
	sent := f.gw.SentTo(channelID)
	require.Len(t, sent, 1)
	require.Contains(t, sent[0].Embed.Description, "<@"+modID+">")
	require.Equal(t, "7", sent[0].Embed.Fields[0].Value)
}

func TestWelcomeChannelsSetAndRemove(t *testing.T) {
	ctx := context.Background()
	f := setup(t, nil)

	require.NoError(t, f.h.Handle(ctx, command(modID, gateway.PermManageGuild, "welcome-channels",
		opt("rules", discordgo.ApplicationCommandOptionChannel, channelID),
		opt("rules_desc", discordgo.ApplicationCommandOptionString, "Read first"),
	)))
	links, err := f.db.ListWelcomeChannels(ctx)
	require.NoError(t, err)
	require.Len(t, links, 1)
	require.Equal(t, "Read first", links[0].Description)

	f.rec.responses = nil
	require.NoError(t, f.h.Handle(ctx, command(modID, gateway.PermManageGuild, "welcome-channels",
		opt("remove", discordgo.ApplicationCommandOptionString, "rules"))))
	require.Contains(t, f.rec.content(t), "removed")
	links, err = f.db.ListWelcomeChannels(ctx)
	require.NoError(t, err)
	require.Empty(t, links)

	f.rec.responses = nil
	err = f.h.Handle(ctx, command(modID, gateway.PermManageGuild, "welcome-channels"))
	require.True(t, errors.Is(err, models.ErrInvalidArgument))
}

type stubVoice struct {
	owner     string
	transfers []string
	limits    []int
	locked    bool
}

func (s *stubVoice) Owner(string) (string, bool) {
	return s.owner, s.owner != ""
}

func (s *stubVoice) Rename(context.Context, string, string, string) error {
	return nil
}

func (s *stubVoice) SetLimit(_ context.Context, _, _ string, limit int) error {
	if limit < 0 || limit > voice.MaxLimit {
		return errors.Wrap(models.ErrInvalidArgument, "bad limit")
	}
	s.limits = append(s.limits, limit)
	return nil
}

func (s *stubVoice) Lock(context.Context, string, string) error {
	s.locked = true
	return nil
}

func (s *stubVoice) Unlock(context.Context, string, string) error {
	s.locked = false
	return nil
}

func (s *stubVoice) Transfer(_ context.Context, _, _, newOwner string) error {
	s.transfers = append(s.transfers, newOwner)
	return nil
}

func (s *stubVoice) Delete(context.Context, string, string) error {
	return nil
}

func (s *stubVoice) Template() string { return "" }

func (s *stubVoice) Tracked() int { return 1 }

func (s *stubVoice) SetTemplate(context.Context, string) error { return nil }

func (s *stubVoice) Preference(context.Context, string) (*database.VoicePreference, error) {
	return nil, nil
}

func button(userID, customID string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type:      discordgo.InteractionMessageComponent,
		GuildID:   guildID,
		ChannelID: channelID,
		Member:    &discordgo.Member{User: &discordgo.User{ID: userID}},
		Data:      discordgo.MessageComponentInteractionData{CustomID: customID},
	}}
}

func modal(userID, customID, value string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type:    discordgo.InteractionModalSubmit,
		GuildID: guildID,
		Member:  &discordgo.Member{User: &discordgo.User{ID: userID}},
		Data: discordgo.ModalSubmitInteractionData{
			CustomID: customID,
			Components: []discordgo.MessageComponent{
				&discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					&discordgo.TextInput{CustomID: voiceInputID, Value: value},
				}},
			},
		},
	}}
}

func TestVoiceButtonsAreOwnerOnly(t *testing.T) {
	vc := &stubVoice{owner: ownerID}
	f := setup(t, vc)

	err := f.h.Handle(context.Background(), button(modID, voice.ButtonID(voice.ActionLock, voiceID)))
	require.True(t, errors.Is(err, models.ErrPermissionDenied))
	require.False(t, vc.locked)

	f = setup(t, vc)
	require.NoError(t, f.h.Handle(context.Background(), button(ownerID, voice.ButtonID(voice.ActionLock, voiceID))))
	require.True(t, vc.locked)

	f = setup(t, &stubVoice{})
	err = f.h.Handle(context.Background(), button(ownerID, voice.ButtonID(voice.ActionLock, voiceID)))
	require.True(t, errors.Is(err, models.ErrNotFound))
}

func TestVoiceFormRoundTrip(t *testing.T) {
	vc := &stubVoice{owner: ownerID}
	customID := voice.ButtonID(voice.ActionTransfer, voiceID)

	f := setup(t, vc)
	require.NoError(t, f.h.Handle(context.Background(), button(ownerID, customID)))
	resp := f.rec.responses[0]
	require.Equal(t, discordgo.InteractionResponseModal, resp.Type)
	require.Equal(t, customID, resp.Data.CustomID)

	f = setup(t, vc)
	require.NoError(t, f.h.Handle(context.Background(), modal(ownerID, customID, "<@!"+targetID+">")))
	require.Equal(t, []string{targetID}, vc.transfers)

	f = setup(t, vc)
	err := f.h.Handle(context.Background(), modal(ownerID, voice.ButtonID(voice.ActionLimit, voiceID), "lots"))
	require.True(t, errors.Is(err, models.ErrInvalidArgument))

	f = setup(t, vc)
	require.NoError(t, f.h.Handle(context.Background(), modal(ownerID, voice.ButtonID(voice.ActionLimit, voiceID), "12")))
	require.Equal(t, []int{12}, vc.limits)
}

func TestDeferredFailureEditsResponse(t *testing.T) {
	f := setup(t, nil)
	// welcome-setup defers before checking the channel kind.
	f.gw.AddChannel(gateway.Channel{ID: voiceID, GuildID: guildID, Name: "Lounge", Kind: gateway.ChannelVoice})
	err := f.h.Handle(context.Background(), command(modID, gateway.PermManageGuild, "welcome-setup",
		opt("channel", discordgo.ApplicationCommandOptionChannel, voiceID)))
	require.True(t, errors.Is(err, models.ErrInvalidArgument))
	require.Equal(t, discordgo.InteractionResponseDeferredChannelMessageWithSource, f.rec.responses[0].Type)
	require.True(t, strings.HasPrefix(f.rec.lastEdit(t), "❌ "))
}

func ticketClose(userID string) *discordgo.InteractionCreate {
	i := command(userID, 0, "ticket")
	i.Data = discordgo.ApplicationCommandInteractionData{
		Name:    "ticket",
		Options: []*discordgo.ApplicationCommandInteractionDataOption{{Name: "close", Type: discordgo.ApplicationCommandOptionSubCommand}},
	}
	return i
}

func TestTicketCloseReportsOnlyAfterClosing(t *testing.T) {
	ctx := context.Background()
	f := setup(t, nil)
	require.NoError(t, f.db.UpsertTicket(ctx, database.Ticket{ChannelID: channelID, OwnerID: targetID}))

	err := f.h.Handle(ctx, ticketClose(targetID))
	require.True(t, errors.Is(err, models.ErrPermissionDenied))
	for _, e := range f.rec.edits {
		require.NotContains(t, *e.Content, "closed")
	}
	require.True(t, strings.HasPrefix(f.rec.lastEdit(t), "❌ "))

	f.rec.edits = nil
	f.rec.responses = nil
	f.gw.SetPermissions(channelID, modID, gateway.PermManageChannels)
	require.NoError(t, f.h.Handle(ctx, ticketClose(modID)))
	require.Equal(t, "🔒 Ticket closed.", f.rec.lastEdit(t))
	ticket, err := f.db.GetTicket(ctx, channelID)
	require.NoError(t, err)
	require.Nil(t, ticket)
}

func TestCommandTableIsRouted(t *testing.T) {
	h := &Handler{}
	routes := h.routes()
	for _, cmd := range GetAllCommands() {
		key := cmd.Name
		if len(cmd.Options) > 0 && cmd.Options[0].Type == discordgo.ApplicationCommandOptionSubCommand {
			for _, sub := range cmd.Options {
				_, ok := routes[key+" "+sub.Name]
				require.True(t, ok, key+" "+sub.Name)
			}
			continue
		}
		_, ok := routes[key]
		require.True(t, ok, key)
	}
}

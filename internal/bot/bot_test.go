package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/require"

	"go-amadeus/internal/gateway"
	"go-amadeus/internal/metrics"
	"go-amadeus/internal/models"
)

func restError(status int) error {
	return &discordgo.RESTError{
		Response:     &http.Response{StatusCode: status, Status: fmt.Sprint(status)},
		ResponseBody: []byte(`{"message":"nope"}`),
	}
}

func TestClassify(t *testing.T) {
	require.NoError(t, classify(nil, "anything"))

	cases := []struct {
		err  error
		kind error
	}{
		{restError(http.StatusForbidden), models.ErrPermissionDenied},
		{restError(http.StatusNotFound), models.ErrNotFound},
		{restError(http.StatusTooManyRequests), models.ErrRateLimited},
		{restError(http.StatusInternalServerError), models.ErrTransient},
		{errors.New("connection reset"), models.ErrTransient},
		{&discordgo.RateLimitError{RateLimit: &discordgo.RateLimit{TooManyRequests: &discordgo.TooManyRequests{}, URL: "/x"}}, models.ErrRateLimited},
	}
	for _, tc := range cases {
		err := classify(tc.err, "create the channel")
		require.ErrorIs(t, err, tc.kind, "%v", tc.err)
	}

	err := classify(restError(http.StatusForbidden), "create the channel")
	require.Equal(t, "bot is missing permissions to create the channel: permission denied", err.Error())
	require.True(t, models.IsTransient(classify(restError(http.StatusTooManyRequests), "x")))
}

func TestRenderButtonsSplitsRows(t *testing.T) {
	var buttons []gateway.Button
	for i := 0; i < 6; i++ {
		buttons = append(buttons, gateway.Button{CustomID: fmt.Sprint("b", i), Label: "x", Emoji: "✏️", Style: gateway.ButtonDanger})
	}
	rows := renderButtons(buttons)
	require.Len(t, rows, 2)
	require.Len(t, rows[0].(discordgo.ActionsRow).Components, 5)
	second := rows[1].(discordgo.ActionsRow).Components
	require.Len(t, second, 1)
	btn := second[0].(discordgo.Button)
	require.Equal(t, "b5", btn.CustomID)
	require.Equal(t, discordgo.DangerButton, btn.Style)
	require.Equal(t, "✏️", btn.Emoji.Name)

	require.Empty(t, renderButtons(nil))
}

func TestRenderEmbed(t *testing.T) {
	ts := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	out := renderMessage(gateway.Message{Content: "hi", Embed: &gateway.Embed{
		Title:     "T",
		Color:     0x123456,
		Fields:    []gateway.EmbedField{{Name: "a", Value: "b", Inline: true}},
		ImageURL:  "https://img.test/x.png",
		Footer:    "f",
		Timestamp: ts,
	}})
	require.Equal(t, "hi", out.Content)
	require.Len(t, out.Embeds, 1)
	e := out.Embeds[0]
	require.Equal(t, "2026-02-03T04:05:06Z", e.Timestamp)
	require.Equal(t, "https://img.test/x.png", e.Image.URL)
	require.Nil(t, e.Thumbnail)
	require.Equal(t, "f", e.Footer.Text)
	require.True(t, e.Fields[0].Inline)
}

func TestChannelKinds(t *testing.T) {
	for _, k := range []gateway.ChannelKind{gateway.ChannelText, gateway.ChannelVoice, gateway.ChannelCategory} {
		require.Equal(t, k, channelKind(channelType(k)))
	}
	require.Equal(t, gateway.ChannelVoice, channelKind(discordgo.ChannelTypeGuildStageVoice))
}

func TestRouterDispatchesToEveryHandler(t *testing.T) {
	registry := metrics.NewMetricsRegistry()
	r := NewRouter("", registry)

	var got []string
	r.OnMessage("first", func(ctx context.Context, ev models.MessageEvent) error {
		require.NotEmpty(t, TraceID(ctx))
		got = append(got, "first:"+ev.MessageID)
		return errors.New("boom")
	})
	r.OnMessage("panicky", func(context.Context, models.MessageEvent) error {
		panic("kaboom")
	})
	r.OnMessage("last", func(_ context.Context, ev models.MessageEvent) error {
		got = append(got, "last:"+ev.MessageID)
		return nil
	})

	r.DispatchMessage(models.MessageEvent{GuildID: "1", MessageID: "m1"})
	require.Equal(t, []string{"first:m1", "last:m1"}, got)

	s := registry.Snapshot()
	require.Equal(t, uint64(1), s.Events)
	require.Len(t, s.Handlers, 1)
	require.Equal(t, "message_create", s.Handlers[0].Kind)
	require.Equal(t, uint64(2), s.Handlers[0].Calls)
	require.Equal(t, uint64(1), s.Handlers[0].Errors)
	require.Equal(t, uint64(1), s.Handlers[0].Panics)
}

func TestRouterGuildFilter(t *testing.T) {
	r := NewRouter("42", nil)
	calls := 0
	r.OnVoiceState("count", func(context.Context, models.VoiceStateEvent) error {
		calls++
		return nil
	})

	r.DispatchVoiceState(models.VoiceStateEvent{GuildID: "42"})
	r.DispatchVoiceState(models.VoiceStateEvent{GuildID: "7"})
	require.Equal(t, 1, calls)
}

func TestRouterCancelsWithBaseContext(t *testing.T) {
	r := NewRouter("", nil)
	ctx, cancel := context.WithCancel(context.Background())
	r.SetBaseContext(ctx)
	cancel()

	var seen error
	r.OnMemberJoin("check", func(ctx context.Context, _ models.MemberEvent) error {
		seen = ctx.Err()
		return nil
	})
	r.DispatchMemberJoin(models.MemberEvent{GuildID: "1"})
	require.ErrorIs(t, seen, context.Canceled)
}

func TestEventConversion(t *testing.T) {
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ev, ok := messageEvent(&discordgo.MessageCreate{Message: &discordgo.Message{
		ID: "m", ChannelID: "c", GuildID: "g", Content: "hello", Timestamp: ts,
		Author: &discordgo.User{ID: "u", Bot: true},
	}})
	require.True(t, ok)
	require.Equal(t, models.MessageEvent{GuildID: "g", ChannelID: "c", MessageID: "m", AuthorID: "u", AuthorBot: true, Content: "hello", CreatedAt: ts}, ev)

	_, ok = messageEvent(&discordgo.MessageCreate{Message: &discordgo.Message{ID: "m"}})
	require.False(t, ok)

	custom := reactionEvent(&discordgo.MessageReaction{UserID: "u", Emoji: discordgo.Emoji{ID: "99", Name: "party"}})
	require.Equal(t, "party:99", custom.Emoji)
	unicode := reactionEvent(&discordgo.MessageReaction{UserID: "u", Emoji: discordgo.Emoji{Name: "👍"}})
	require.Equal(t, "👍", unicode.Emoji)

	vs := voiceStateEvent(&discordgo.VoiceStateUpdate{
		VoiceState:   &discordgo.VoiceState{GuildID: "g", UserID: "u", ChannelID: "", Member: &discordgo.Member{Nick: "Nick", User: &discordgo.User{ID: "u", Username: "user"}}},
		BeforeUpdate: &discordgo.VoiceState{ChannelID: "v1"},
	})
	require.Equal(t, "v1", vs.BeforeChannelID)
	require.Empty(t, vs.AfterChannelID)
	require.Equal(t, "Nick", vs.DisplayName)
	require.True(t, vs.Moved())
}

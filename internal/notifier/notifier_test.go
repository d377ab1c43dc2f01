package notifier

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"go-amadeus/internal/database"
	"go-amadeus/internal/gateway/gatewaytest"
	"go-amadeus/internal/models"
)

type mapSettings map[string]string

func (m mapSettings) Setting(_ context.Context, key string) (string, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

type brokenSettings struct{}

func (brokenSettings) Setting(context.Context, string) (string, bool, error) {
	return "", false, errors.Wrap(models.ErrStorage, "boom")
}

func TestSendSkipsUnsetChannel(t *testing.T) {
	gw := gatewaytest.New()
	n := New(gw, mapSettings{})

	require.False(t, n.ModerationAction(context.Background(), models.ActionKick, "1", "2", ""))
	require.Empty(t, gw.Sent)
}

func TestSendIgnoresNonNumericChannel(t *testing.T) {
	gw := gatewaytest.New()
	n := New(gw, mapSettings{database.SettingLogChannel: "general"})

	require.False(t, n.MemberLeft(context.Background(), models.MemberEvent{UserID: "1"}))
	require.Empty(t, gw.Sent)
}

func TestSendSwallowsFailures(t *testing.T) {
	gw := gatewaytest.New()
	gw.Fail("SendMessage", gatewaytest.PlatformError(models.ErrPermissionDenied, "send"))
	n := New(gw, mapSettings{database.SettingLogChannel: "42"})

	require.False(t, n.MemberJoined(context.Background(), models.MemberEvent{UserID: "175928847299117063"}))
	require.False(t, New(gw, brokenSettings{}).MemberLeft(context.Background(), models.MemberEvent{UserID: "1"}))
}

func TestModerationActionEmbed(t *testing.T) {
	gw := gatewaytest.New()
	n := New(gw, mapSettings{database.SettingLogChannel: "42"})
	n.now = func() time.Time { return time.Unix(1700000000, 0) }

	require.True(t, n.ModerationAction(context.Background(), models.ActionBan, "7", "8", ""))
	sent := gw.SentTo("42")
	require.Len(t, sent, 1)
	require.Equal(t, "Member Banned", sent[0].Embed.Title)
	require.Equal(t, ColorDanger, sent[0].Embed.Color)
	require.Equal(t, "No reason provided", sent[0].Embed.Fields[2].Value)
}

func TestTicketClosedTranscript(t *testing.T) {
	gw := gatewaytest.New()
	n := New(gw, mapSettings{database.SettingTicketsClosedChannel: "43"})

	ok := n.TicketClosed(context.Background(),
		database.Ticket{ChannelID: "9", OwnerID: "1", CreatedAt: time.Unix(1700000000, 0)},
		"ticket-okabe", "2", []string{"okabe: hello", "kurisu: hi"})
	require.True(t, ok)

	sent := gw.SentTo("43")
	require.Len(t, sent, 1)
	require.Equal(t, "okabe: hello\nkurisu: hi", sent[0].Embed.Fields[4].Value)
}

func TestTicketClosedKeepsNewestLines(t *testing.T) {
	gw := gatewaytest.New()
	n := New(gw, mapSettings{database.SettingTicketsClosedChannel: "43"})

	var transcript []string
	for i := 0; i < 10; i++ {
		transcript = append(transcript, fmt.Sprintf("user%d: %s", i, strings.Repeat("x", 150)))
	}
	require.True(t, n.TicketClosed(context.Background(), database.Ticket{ChannelID: "9", OwnerID: "1"}, "ticket-x", "2", transcript))

	body := gw.SentTo("43")[0].Embed.Fields[4].Value
	require.LessOrEqual(t, utf8.RuneCountInString(body), 1000)
	require.True(t, strings.HasSuffix(body, transcript[9]))
	require.NotContains(t, body, "user0:")
}

func TestLastLines(t *testing.T) {
	require.Equal(t, "b\nc", lastLines([]string{"a", "b", "c"}, 4))
	require.Equal(t, "abc", lastLines([]string{"abcdef"}, 3))
}

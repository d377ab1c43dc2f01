package voice

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"go-amadeus/internal/database"
	"go-amadeus/internal/gateway"
	"go-amadeus/internal/gateway/gatewaytest"
	"go-amadeus/internal/models"
)

const (
	guildID    = "100"
	categoryID = "110"
	templateID = "120"
	ownerID    = "200"
	friendID   = "201"
)

type fixture struct {
	p  *Provisioner
	db *database.Database
	gw *gatewaytest.Fake
}

func setup(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(filepath.Join(t.TempDir(), "voice.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gw := gatewaytest.New()
	gw.AddChannel(gateway.Channel{ID: categoryID, GuildID: guildID, Kind: gateway.ChannelCategory})
	gw.AddChannel(gateway.Channel{ID: templateID, GuildID: guildID, ParentID: categoryID, Name: "Join to Create", Kind: gateway.ChannelVoice})
	gw.AddMember(gateway.Member{GuildID: guildID, UserID: ownerID, DisplayName: "Okabe"})
	gw.AddMember(gateway.Member{GuildID: guildID, UserID: friendID, DisplayName: "Daru"})
	require.NoError(t, db.SetSetting(ctx, database.SettingVoiceTemplate, templateID))

	p := NewProvisioner(db, gw)
	require.NoError(t, p.Load(ctx))
	return fixture{p: p, db: db, gw: gw}
}

// join simulates userID moving from one channel to another, keeping the fake's
// voice cache in step the way the platform state would be.
func (f fixture) join(t *testing.T, userID, from, to string) {
	t.Helper()
	f.gw.SetVoice(guildID, userID, to)
	require.NoError(t, f.p.OnVoiceStateUpdate(context.Background(), models.VoiceStateEvent{
		GuildID:         guildID,
		UserID:          userID,
		DisplayName:     "Okabe",
		BeforeChannelID: from,
		AfterChannelID:  to,
	}))
}

func (f fixture) ownedChannel(t *testing.T) string {
	t.Helper()
	ch := f.gw.ChannelByName(NamePrefix + "Okabe")
	require.NotNil(t, ch)
	return ch.ID
}

func TestJoiningTemplateProvisionsChannel(t *testing.T) {
	f := setup(t)
	f.join(t, ownerID, "", templateID)

	voiceID := f.ownedChannel(t)
	owner, ok := f.p.Owner(voiceID)
	require.True(t, ok)
	require.Equal(t, ownerID, owner)

	ch, err := f.gw.Channel(context.Background(), voiceID)
	require.NoError(t, err)
	require.Equal(t, categoryID, ch.ParentID)
	require.Equal(t, gateway.ChannelVoice, ch.Kind)
	require.Zero(t, ch.UserLimit)

	ow := f.gw.Overwrites(voiceID)
	require.NotZero(t, ow[guildID].Deny&gateway.PermViewChannel)
	require.NotZero(t, ow[guildID].Allow&gateway.PermConnect)
	require.NotZero(t, ow[ownerID].Allow&gateway.PermManageChannels)

	require.Equal(t, []string{ownerID + "->" + voiceID}, f.gw.Moves)

	control := f.gw.ChannelByName("control-okabe")
	require.NotNil(t, control)
	panel := f.gw.SentTo(control.ID)
	require.Len(t, panel, 1)
	require.Equal(t, ButtonID(ActionRename, voiceID), panel[0].Buttons[0].CustomID)
}

func TestPreferencesApplyToNewChannel(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.db.UpsertVoicePreference(context.Background(),
		database.VoicePreference{UserID: ownerID, ChannelName: "Lab", UserLimit: 3, Locked: true}))

	f.join(t, ownerID, "", templateID)

	ch := f.gw.ChannelByName(NamePrefix + "Lab")
	require.NotNil(t, ch)
	require.Equal(t, 3, ch.UserLimit)
	require.NotZero(t, f.gw.Overwrites(ch.ID)[guildID].Deny&gateway.PermConnect)
}

func TestTeardownWhenOwnerLeavesLast(t *testing.T) {
	f := setup(t)
	f.join(t, ownerID, "", templateID)
	voiceID := f.ownedChannel(t)
	control := f.gw.ChannelByName("control-okabe")

	f.join(t, ownerID, voiceID, "")

	require.False(t, f.gw.HasChannel(voiceID))
	require.False(t, f.gw.HasChannel(control.ID))
	_, ok := f.p.Owner(voiceID)
	require.False(t, ok)
	require.Zero(t, f.p.Tracked())
}

func TestTeardownWhenNonOwnerLeavesLast(t *testing.T) {
	f := setup(t)
	f.join(t, ownerID, "", templateID)
	voiceID := f.ownedChannel(t)
	f.join(t, friendID, "", voiceID)

	f.join(t, ownerID, voiceID, "")
	require.True(t, f.gw.HasChannel(voiceID))

	f.join(t, friendID, voiceID, "")
	require.False(t, f.gw.HasChannel(voiceID))
	require.Zero(t, f.p.Tracked())
}

func TestUntrackedChannelsAreLeftAlone(t *testing.T) {
	f := setup(t)
	f.gw.AddChannel(gateway.Channel{ID: "130", GuildID: guildID, Kind: gateway.ChannelVoice})

	f.join(t, friendID, "", "130")
	f.join(t, friendID, "130", "")
	require.True(t, f.gw.HasChannel("130"))
}

func TestCreateFailureRecordsNoOwnership(t *testing.T) {
	f := setup(t)
	f.gw.Fail("CreateChannel", gatewaytest.PlatformError(models.ErrPermissionDenied, "create channel"))

	f.gw.SetVoice(guildID, ownerID, templateID)
	err := f.p.OnVoiceStateUpdate(context.Background(), models.VoiceStateEvent{
		GuildID: guildID, UserID: ownerID, DisplayName: "Okabe", AfterChannelID: templateID,
	})
	require.True(t, errors.Is(err, models.ErrPermissionDenied))
	require.Zero(t, f.p.Tracked())
}

func TestMoveFailureKeepsChannel(t *testing.T) {
	f := setup(t)
	f.gw.Fail("MoveMember", gatewaytest.PlatformError(models.ErrTransient, "move"))

	f.join(t, ownerID, "", templateID)
	require.Equal(t, 1, f.p.Tracked())
}

func TestControlActionsAreOwnerOnly(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.join(t, ownerID, "", templateID)
	voiceID := f.ownedChannel(t)

	for _, err := range []error{
		f.p.Rename(ctx, friendID, voiceID, "Mine"),
		f.p.SetLimit(ctx, friendID, voiceID, 2),
		f.p.Lock(ctx, friendID, voiceID),
		f.p.Unlock(ctx, friendID, voiceID),
		f.p.Transfer(ctx, friendID, voiceID, ownerID),
		f.p.Delete(ctx, friendID, voiceID),
	} {
		require.True(t, errors.Is(err, models.ErrPermissionDenied), "%v", err)
	}
	require.Zero(t, f.gw.CallCount("EditChannel"))

	require.True(t, errors.Is(f.p.Lock(ctx, ownerID, "999"), models.ErrNotFound))
}

func TestRenameLimitLockPersistPreference(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.join(t, ownerID, "", templateID)
	voiceID := f.ownedChannel(t)

	require.NoError(t, f.p.Rename(ctx, ownerID, voiceID, "Future Gadget Lab"))
	require.NoError(t, f.p.SetLimit(ctx, ownerID, voiceID, 4))
	require.NoError(t, f.p.Lock(ctx, ownerID, voiceID))

	ch, err := f.gw.Channel(ctx, voiceID)
	require.NoError(t, err)
	require.Equal(t, NamePrefix+"Future Gadget Lab", ch.Name)
	require.Equal(t, 4, ch.UserLimit)
	require.NotZero(t, f.gw.Overwrites(voiceID)[guildID].Deny&gateway.PermConnect)

	pref, err := f.db.GetVoicePreference(ctx, ownerID)
	require.NoError(t, err)
	require.Equal(t, &database.VoicePreference{UserID: ownerID, ChannelName: "Future Gadget Lab", UserLimit: 4, Locked: true}, pref)

	require.NoError(t, f.p.Unlock(ctx, ownerID, voiceID))
	pref, err = f.db.GetVoicePreference(ctx, ownerID)
	require.NoError(t, err)
	require.False(t, pref.Locked)
	require.Zero(t, f.gw.Overwrites(voiceID)[guildID].Deny&gateway.PermConnect)
}

func TestLimitCanBeCleared(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.join(t, ownerID, "", templateID)
	voiceID := f.ownedChannel(t)

	require.NoError(t, f.p.SetLimit(ctx, ownerID, voiceID, 5))
	require.NoError(t, f.p.SetLimit(ctx, ownerID, voiceID, 0))
	ch, err := f.gw.Channel(ctx, voiceID)
	require.NoError(t, err)
	require.Zero(t, ch.UserLimit)

	require.True(t, errors.Is(f.p.SetLimit(ctx, ownerID, voiceID, 100), models.ErrInvalidArgument))
	require.True(t, errors.Is(f.p.Rename(ctx, ownerID, voiceID, "   "), models.ErrInvalidArgument))
}

func TestEditFailureDoesNotPersist(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.join(t, ownerID, "", templateID)
	voiceID := f.ownedChannel(t)
	f.gw.Fail("EditChannel", gatewaytest.PlatformError(models.ErrPermissionDenied, "edit"))

	require.Error(t, f.p.Rename(ctx, ownerID, voiceID, "Nope"))
	pref, err := f.db.GetVoicePreference(ctx, ownerID)
	require.NoError(t, err)
	require.Nil(t, pref)
}

func TestTransferReassignsOwnership(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.join(t, ownerID, "", templateID)
	voiceID := f.ownedChannel(t)
	control := f.gw.ChannelByName("control-okabe")

	require.NoError(t, f.p.Transfer(ctx, ownerID, voiceID, friendID))

	owner, _ := f.p.Owner(voiceID)
	require.Equal(t, friendID, owner)
	ow := f.gw.Overwrites(voiceID)
	require.NotZero(t, ow[friendID].Allow&gateway.PermManageChannels)
	_, oldOwner := ow[ownerID]
	require.False(t, oldOwner)
	require.NotZero(t, f.gw.Overwrites(control.ID)[friendID].Allow&gateway.PermViewChannel)

	require.True(t, errors.Is(f.p.Rename(ctx, ownerID, voiceID, "x"), models.ErrPermissionDenied))
	require.NoError(t, f.p.Rename(ctx, friendID, voiceID, "Daru's"))

	pref, err := f.db.GetVoicePreference(ctx, ownerID)
	require.NoError(t, err)
	require.Nil(t, pref)
}

func TestTransferValidatesTarget(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.join(t, ownerID, "", templateID)
	voiceID := f.ownedChannel(t)
	f.gw.AddMember(gateway.Member{GuildID: guildID, UserID: "202", Bot: true})

	require.True(t, errors.Is(f.p.Transfer(ctx, ownerID, voiceID, ownerID), models.ErrInvalidArgument))
	require.True(t, errors.Is(f.p.Transfer(ctx, ownerID, voiceID, "202"), models.ErrInvalidArgument))
	require.True(t, errors.Is(f.p.Transfer(ctx, ownerID, voiceID, "404"), models.ErrNotFound))
}

func TestDeleteRemovesBothChannels(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.join(t, ownerID, "", templateID)
	voiceID := f.ownedChannel(t)
	control := f.gw.ChannelByName("control-okabe")

	f.gw.Fail("DeleteChannel", gatewaytest.PlatformError(models.ErrTransient, "delete"))
	require.NoError(t, f.p.Delete(ctx, ownerID, voiceID))
	require.Zero(t, f.p.Tracked())
	require.Equal(t, 2, f.gw.CallCount("DeleteChannel"))

	// Untracked now, so the leftovers are not touched again.
	f.gw.Fail("DeleteChannel", nil)
	f.join(t, ownerID, voiceID, "")
	require.True(t, f.gw.HasChannel(voiceID))
	require.True(t, f.gw.HasChannel(control.ID))
}

func TestSetTemplate(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	require.True(t, errors.Is(f.p.SetTemplate(ctx, categoryID), models.ErrInvalidArgument))
	f.gw.AddChannel(gateway.Channel{ID: "140", GuildID: guildID, Kind: gateway.ChannelVoice})
	require.NoError(t, f.p.SetTemplate(ctx, "140"))
	require.Equal(t, "140", f.p.Template())

	v, _, err := f.db.Setting(ctx, database.SettingVoiceTemplate)
	require.NoError(t, err)
	require.Equal(t, "140", v)
}

func TestControlChannelName(t *testing.T) {
	require.Equal(t, "control-okabe", ControlChannelName("Okabe"))
	require.Equal(t, "control-future-gadget-lab", ControlChannelName(NamePrefix+"Future Gadget Lab"))
	require.Equal(t, "control-voice", ControlChannelName("🔥"))
}

func TestParseButtonID(t *testing.T) {
	action, voiceID, ok := ParseButtonID(ButtonID(ActionLock, "123456"))
	require.True(t, ok)
	require.Equal(t, ActionLock, action)
	require.Equal(t, "123456", voiceID)

	_, _, ok = ParseButtonID("ticket_close")
	require.False(t, ok)
	_, _, ok = ParseButtonID("voice_lock:abc")
	require.False(t, ok)
}

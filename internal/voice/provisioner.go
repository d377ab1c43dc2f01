package voice

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"go-amadeus/internal/database"
	"go-amadeus/internal/gateway"
	"go-amadeus/internal/logging"
	"go-amadeus/internal/models"
	"go-amadeus/pkg/util"
)

const (
	NamePrefix = "🔒 "
	MaxLimit   = 99
	maxName    = 90
)

type Store interface {
	GetVoicePreference(ctx context.Context, userID string) (*database.VoicePreference, error)
	UpsertVoicePreference(ctx context.Context, p database.VoicePreference) error
	Setting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
}

// Controller is what the control panel buttons act through. Every action is
// restricted to the current owner of the private channel.
type Controller interface {
	Owner(voiceChannelID string) (string, bool)
	Rename(ctx context.Context, actorID, voiceChannelID, name string) error
	SetLimit(ctx context.Context, actorID, voiceChannelID string, limit int) error
	Lock(ctx context.Context, actorID, voiceChannelID string) error
	Unlock(ctx context.Context, actorID, voiceChannelID string) error
	Transfer(ctx context.Context, actorID, voiceChannelID, newOwnerID string) error
	Delete(ctx context.Context, actorID, voiceChannelID string) error
}

type privateChannel struct {
	guildID   string
	ownerID   string
	controlID string
	name      string // without prefix
	limit     int
	locked    bool
}

// Provisioner creates a private voice channel for every member who joins the
// template channel and removes it once the last member leaves.
type Provisioner struct {
	store Store
	gw    gateway.Gateway

	mu       sync.Mutex
	template string
	channels map[string]*privateChannel // keyed by voice channel id
}

var _ Controller = (*Provisioner)(nil)

func NewProvisioner(store Store, gw gateway.Gateway) *Provisioner {
	return &Provisioner{
		store:    store,
		gw:       gw,
		channels: make(map[string]*privateChannel),
	}
}

// Load reads the template channel from the settings table.
func (p *Provisioner) Load(ctx context.Context) error {
	value, ok, err := p.store.Setting(ctx, database.SettingVoiceTemplate)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if ok && util.IsSnowflake(value) {
		p.template = value
	}
	return nil
}

func (p *Provisioner) Template() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.template
}

// SetTemplate makes channelID the "join to create" channel.
func (p *Provisioner) SetTemplate(ctx context.Context, channelID string) error {
	ch, err := p.gw.Channel(ctx, channelID)
	if err != nil {
		return err
	}
	if ch.Kind != gateway.ChannelVoice {
		return errors.Wrap(models.ErrInvalidArgument, "the template must be a voice channel")
	}
	if err := p.store.SetSetting(ctx, database.SettingVoiceTemplate, channelID); err != nil {
		return err
	}
	p.mu.Lock()
	p.template = channelID
	p.mu.Unlock()
	return nil
}

func (p *Provisioner) Preference(ctx context.Context, userID string) (*database.VoicePreference, error) {
	return p.store.GetVoicePreference(ctx, userID)
}

func (p *Provisioner) Owner(voiceChannelID string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pc, ok := p.channels[voiceChannelID]
	if !ok {
		return "", false
	}
	return pc.ownerID, true
}

// Tracked returns the number of private channels currently alive.
func (p *Provisioner) Tracked() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.channels)
}

func (p *Provisioner) OnVoiceStateUpdate(ctx context.Context, ev models.VoiceStateEvent) error {
	if ev.GuildID == "" || !ev.Moved() {
		return nil
	}

	if ev.BeforeChannelID != "" {
		p.teardownIfEmpty(ctx, ev.GuildID, ev.BeforeChannelID)
	}

	if ev.AfterChannelID != "" && !ev.Bot && ev.AfterChannelID == p.Template() {
		return p.provision(ctx, ev)
	}
	return nil
}

func (p *Provisioner) provision(ctx context.Context, ev models.VoiceStateEvent) error {
	pref, err := p.store.GetVoicePreference(ctx, ev.UserID)
	if err != nil {
		logging.Warn("[VOICE] Using defaults for %s: %v", ev.UserID, err)
		pref = nil
	}
	pc := &privateChannel{guildID: ev.GuildID, ownerID: ev.UserID, name: ev.DisplayName}
	if pref != nil {
		if pref.ChannelName != "" {
			pc.name = pref.ChannelName
		}
		pc.limit = pref.UserLimit
		pc.locked = pref.Locked
	}
	if pc.name == "" {
		pc.name = "Voice"
	}

	template, err := p.gw.Channel(ctx, ev.AfterChannelID)
	if err != nil {
		return errors.WithMessage(err, "resolve template channel")
	}

	ch, err := p.gw.CreateChannel(ctx, gateway.ChannelSpec{
		GuildID:    ev.GuildID,
		Name:       NamePrefix + pc.name,
		Kind:       gateway.ChannelVoice,
		ParentID:   template.ParentID,
		UserLimit:  pc.limit,
		Overwrites: p.voiceOverwrites(ev.GuildID, pc.ownerID, pc.locked),
		Reason:     "Private voice channel for " + ev.UserID,
	})
	if err != nil {
		return errors.WithMessage(err, "create private voice channel")
	}

	p.mu.Lock()
	p.channels[ch.ID] = pc
	p.mu.Unlock()
	logging.Info("[VOICE] Created %s for %s", ch.ID, ev.UserID)

	if err := p.gw.MoveMember(ctx, ev.GuildID, ev.UserID, ch.ID); err != nil {
		logging.Warn("[VOICE] Failed to move %s into %s: %v", ev.UserID, ch.ID, err)
	}

	p.createControlPanel(ctx, ch.ID, template.ParentID, pc.name, ev.GuildID, ev.UserID)
	return nil
}

func (p *Provisioner) createControlPanel(ctx context.Context, voiceID, parentID, name, guildID, ownerID string) {
	ctrl, err := p.gw.CreateChannel(ctx, gateway.ChannelSpec{
		GuildID:    guildID,
		Name:       ControlChannelName(name),
		Kind:       gateway.ChannelText,
		ParentID:   parentID,
		Overwrites: p.controlOverwrites(guildID, ownerID),
		Reason:     "Voice control panel for " + ownerID,
	})
	if err != nil {
		logging.Warn("[VOICE] Failed to create control channel for %s: %v", voiceID, err)
		return
	}

	p.mu.Lock()
	pc, alive := p.channels[voiceID]
	if alive {
		pc.controlID = ctrl.ID
	}
	p.mu.Unlock()

	if !alive {
		// The voice channel was torn down while the panel was being created.
		if err := p.gw.DeleteChannel(ctx, ctrl.ID, "Voice channel already removed"); err != nil {
			logging.Warn("[VOICE] Failed to delete control channel %s: %v", ctrl.ID, err)
		}
		return
	}

	if _, err := p.gw.SendMessage(ctx, ctrl.ID, controlPanel(voiceID, ownerID)); err != nil {
		logging.Warn("[VOICE] Failed to post control panel in %s: %v", ctrl.ID, err)
	}
}

// teardownIfEmpty removes a tracked channel once nobody is left in it,
// whoever the last member was.
func (p *Provisioner) teardownIfEmpty(ctx context.Context, guildID, voiceID string) {
	p.mu.Lock()
	pc, ok := p.channels[voiceID]
	if !ok || p.gw.VoiceOccupancy(guildID, voiceID) > 0 {
		p.mu.Unlock()
		return
	}
	delete(p.channels, voiceID)
	p.mu.Unlock()

	logging.Info("[VOICE] %s is empty, removing it", voiceID)
	p.deleteChannels(ctx, voiceID, pc.controlID, "Private voice channel empty")
}

func (p *Provisioner) deleteChannels(ctx context.Context, voiceID, controlID, reason string) {
	if controlID != "" {
		if err := p.gw.DeleteChannel(ctx, controlID, reason); err != nil && !errors.Is(err, models.ErrNotFound) {
			logging.Warn("[VOICE] Failed to delete control channel %s: %v", controlID, err)
		}
	}
	if err := p.gw.DeleteChannel(ctx, voiceID, reason); err != nil && !errors.Is(err, models.ErrNotFound) {
		logging.Warn("[VOICE] Failed to delete voice channel %s: %v", voiceID, err)
	}
}

// authorize returns a snapshot of the channel state if actorID owns it.
func (p *Provisioner) authorize(actorID, voiceID string) (privateChannel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pc, ok := p.channels[voiceID]
	if !ok {
		return privateChannel{}, errors.Wrap(models.ErrNotFound, "this private voice channel no longer exists")
	}
	if pc.ownerID != actorID {
		return privateChannel{}, errors.Wrap(models.ErrPermissionDenied, "only the channel owner can do that")
	}
	return *pc, nil
}

// update applies fn to the tracked channel if actorID still owns it and
// returns the resulting preference.
func (p *Provisioner) update(actorID, voiceID string, fn func(pc *privateChannel)) (database.VoicePreference, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pc, ok := p.channels[voiceID]
	if !ok {
		return database.VoicePreference{}, errors.Wrap(models.ErrNotFound, "this private voice channel no longer exists")
	}
	if pc.ownerID != actorID {
		return database.VoicePreference{}, errors.Wrap(models.ErrPermissionDenied, "ownership changed")
	}
	fn(pc)
	return database.VoicePreference{UserID: pc.ownerID, ChannelName: pc.name, UserLimit: pc.limit, Locked: pc.locked}, nil
}

func (p *Provisioner) Rename(ctx context.Context, actorID, voiceID, name string) error {
	name = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(name), strings.TrimSpace(NamePrefix)))
	if name == "" {
		return errors.Wrap(models.ErrInvalidArgument, "the channel name cannot be empty")
	}
	name = util.Truncate(name, maxName)

	if _, err := p.authorize(actorID, voiceID); err != nil {
		return err
	}
	full := NamePrefix + name
	if err := p.gw.EditChannel(ctx, voiceID, gateway.ChannelEdit{Name: &full, Reason: "Renamed by owner"}); err != nil {
		return err
	}
	pref, err := p.update(actorID, voiceID, func(pc *privateChannel) { pc.name = name })
	if err != nil {
		return err
	}
	return p.store.UpsertVoicePreference(ctx, pref)
}

func (p *Provisioner) SetLimit(ctx context.Context, actorID, voiceID string, limit int) error {
	if limit < 0 || limit > MaxLimit {
		return errors.Wrapf(models.ErrInvalidArgument, "the limit must be between 0 and %d", MaxLimit)
	}
	if _, err := p.authorize(actorID, voiceID); err != nil {
		return err
	}
	if err := p.gw.EditChannel(ctx, voiceID, gateway.ChannelEdit{UserLimit: &limit, Reason: "Limit changed by owner"}); err != nil {
		return err
	}
	pref, err := p.update(actorID, voiceID, func(pc *privateChannel) { pc.limit = limit })
	if err != nil {
		return err
	}
	return p.store.UpsertVoicePreference(ctx, pref)
}

func (p *Provisioner) Lock(ctx context.Context, actorID, voiceID string) error {
	return p.setLocked(ctx, actorID, voiceID, true)
}

func (p *Provisioner) Unlock(ctx context.Context, actorID, voiceID string) error {
	return p.setLocked(ctx, actorID, voiceID, false)
}

func (p *Provisioner) setLocked(ctx context.Context, actorID, voiceID string, locked bool) error {
	pc, err := p.authorize(actorID, voiceID)
	if err != nil {
		return err
	}
	edit := gateway.ChannelEdit{
		Overwrites: p.voiceOverwrites(pc.guildID, pc.ownerID, locked),
		Reason:     "Lock changed by owner",
	}
	if err := p.gw.EditChannel(ctx, voiceID, edit); err != nil {
		return err
	}
	pref, err := p.update(actorID, voiceID, func(pc *privateChannel) { pc.locked = locked })
	if err != nil {
		return err
	}
	return p.store.UpsertVoicePreference(ctx, pref)
}

// Transfer hands the channel to newOwnerID. Preferences are not written; the
// new owner's own preferences apply to the next channel they create.
func (p *Provisioner) Transfer(ctx context.Context, actorID, voiceID, newOwnerID string) error {
	if newOwnerID == "" || newOwnerID == actorID {
		return errors.Wrap(models.ErrInvalidArgument, "pick another member to transfer to")
	}
	pc, err := p.authorize(actorID, voiceID)
	if err != nil {
		return err
	}
	member, err := p.gw.Member(ctx, pc.guildID, newOwnerID)
	if err != nil {
		return err
	}
	if member.Bot {
		return errors.Wrap(models.ErrInvalidArgument, "a bot cannot own a voice channel")
	}

	edit := gateway.ChannelEdit{
		Overwrites: p.voiceOverwrites(pc.guildID, newOwnerID, pc.locked),
		Reason:     "Ownership transferred",
	}
	if err := p.gw.EditChannel(ctx, voiceID, edit); err != nil {
		return err
	}
	if _, err := p.update(actorID, voiceID, func(pc *privateChannel) { pc.ownerID = newOwnerID }); err != nil {
		return err
	}

	if pc.controlID != "" {
		if err := p.gw.EditChannel(ctx, pc.controlID, gateway.ChannelEdit{
			Overwrites: p.controlOverwrites(pc.guildID, newOwnerID),
			Reason:     "Ownership transferred",
		}); err != nil {
			logging.Warn("[VOICE] Failed to hand control channel %s to %s: %v", pc.controlID, newOwnerID, err)
		}
	}
	logging.Info("[VOICE] %s transferred %s to %s", actorID, voiceID, newOwnerID)
	return nil
}

// Delete removes the control channel and then the voice channel. Platform
// failures are logged only.
func (p *Provisioner) Delete(ctx context.Context, actorID, voiceID string) error {
	p.mu.Lock()
	pc, ok := p.channels[voiceID]
	if !ok {
		p.mu.Unlock()
		return errors.Wrap(models.ErrNotFound, "this private voice channel no longer exists")
	}
	if pc.ownerID != actorID {
		p.mu.Unlock()
		return errors.Wrap(models.ErrPermissionDenied, "only the channel owner can do that")
	}
	delete(p.channels, voiceID)
	p.mu.Unlock()

	p.deleteChannels(ctx, voiceID, pc.controlID, "Deleted by owner")
	return nil
}

func (p *Provisioner) voiceOverwrites(guildID, ownerID string, locked bool) []gateway.Overwrite {
	everyone := gateway.Overwrite{TargetID: guildID, Deny: gateway.PermViewChannel}
	if locked {
		everyone.Deny |= gateway.PermConnect
	} else {
		everyone.Allow = gateway.PermConnect
	}
	return []gateway.Overwrite{
		everyone,
		gateway.MemberAllow(ownerID, gateway.PermViewChannel|gateway.PermConnect|gateway.PermManageChannels),
		gateway.MemberAllow(p.gw.BotUserID(), gateway.PermViewChannel|gateway.PermConnect|gateway.PermManageChannels|gateway.PermMoveMembers),
	}
}

func (p *Provisioner) controlOverwrites(guildID, ownerID string) []gateway.Overwrite {
	return []gateway.Overwrite{
		gateway.EveryoneDeny(guildID, gateway.PermViewChannel),
		gateway.MemberAllow(ownerID, gateway.PermViewChannel|gateway.PermSendMessages|gateway.PermReadHistory),
		gateway.MemberAllow(p.gw.BotUserID(), gateway.PermViewChannel|gateway.PermSendMessages|gateway.PermManageChannels),
	}
}

var controlNameChars = regexp.MustCompile(`[^\p{L}\p{N}_-]+`)

// ControlChannelName derives "control-<name>" for the paired text channel.
func ControlChannelName(name string) string {
	slug := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, NamePrefix)))
	slug = strings.Trim(controlNameChars.ReplaceAllString(slug, "-"), "-")
	if slug == "" {
		slug = "voice"
	}
	return util.Truncate("control-"+slug, 100)
}

// Control panel button ids carry the voice channel they act on.
const (
	ActionRename   = "voice_rename"
	ActionLimit    = "voice_limit"
	ActionLock     = "voice_lock"
	ActionUnlock   = "voice_unlock"
	ActionTransfer = "voice_transfer"
	ActionDelete   = "voice_delete"
)

func ButtonID(action, voiceID string) string {
	return action + ":" + voiceID
}

// ParseButtonID splits a control panel custom id into action and channel.
func ParseButtonID(customID string) (action, voiceID string, ok bool) {
	action, voiceID, ok = strings.Cut(customID, ":")
	if !ok || !strings.HasPrefix(action, "voice_") || !util.IsSnowflake(voiceID) {
		return "", "", false
	}
	return action, voiceID, true
}

func controlPanel(voiceID, ownerID string) gateway.Message {
	return gateway.Message{
		Content: fmt.Sprintf("<@%s>", ownerID),
		Embed: &gateway.Embed{
			Title:       "Voice Channel Controls",
			Description: fmt.Sprintf("Manage <#%s> with the buttons below. Only the owner can use them.", voiceID),
			Color:       0x5865F2,
		},
		Buttons: []gateway.Button{
			{CustomID: ButtonID(ActionRename, voiceID), Label: "Rename", Emoji: "✏️", Style: gateway.ButtonSecondary},
			{CustomID: ButtonID(ActionLimit, voiceID), Label: "Limit", Emoji: "👥", Style: gateway.ButtonSecondary},
			{CustomID: ButtonID(ActionLock, voiceID), Label: "Lock", Emoji: "🔒", Style: gateway.ButtonSecondary},
			{CustomID: ButtonID(ActionUnlock, voiceID), Label: "Unlock", Emoji: "🔓", Style: gateway.ButtonSecondary},
			{CustomID: ButtonID(ActionTransfer, voiceID), Label: "Transfer", Emoji: "👑", Style: gateway.ButtonPrimary},
			{CustomID: ButtonID(ActionDelete, voiceID), Label: "Delete", Emoji: "🗑️", Style: gateway.ButtonDanger},
		},
	}
}

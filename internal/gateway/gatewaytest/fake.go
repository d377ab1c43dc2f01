// Package gatewaytest provides an in-memory gateway.Gateway for component tests.
package gatewaytest

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"go-amadeus/internal/gateway"
	"go-amadeus/internal/models"
)

const BotID = "900000000000000001"

type SentMessage struct {
	ID        string
	ChannelID string
	Message   gateway.Message
}

type Timeout struct {
	UserID string
	Until  time.Time
	Reason string
}

// Fake records every call and keeps just enough platform state to make
// component behaviour observable. Errors registered with Fail are returned by
// the named method (e.g. "CreateChannel") until cleared.
type Fake struct {
	mu sync.Mutex

	nextID int

	channels   map[string]*gateway.Channel
	overwrites map[string]map[string]gateway.Overwrite
	members    map[string]*gateway.Member // guild/user
	perms      map[string]int64           // channel/user
	history    map[string][]gateway.HistoryMessage
	voice      map[string]string // guild/user -> channel

	Sent      []SentMessage
	Deleted   []string // "channel/message"
	Reactions []string // "channel/message/emoji"
	Moves     []string // "user->channel"
	Kicks     []string
	Bans      []string
	Timeouts  []Timeout
	Calls     []string

	failures map[string]error
}

func New() *Fake {
	return &Fake{
		nextID:     1000,
		channels:   make(map[string]*gateway.Channel),
		overwrites: make(map[string]map[string]gateway.Overwrite),
		members:    make(map[string]*gateway.Member),
		perms:      make(map[string]int64),
		history:    make(map[string][]gateway.HistoryMessage),
		voice:      make(map[string]string),
		failures:   make(map[string]error),
	}
}

var _ gateway.Gateway = (*Fake)(nil)

func (f *Fake) Fail(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failures, method)
		return
	}
	f.failures[method] = err
}

// PlatformError is a convenience for injecting a classified failure.
func PlatformError(kind error, op string) error {
	return errors.Wrap(kind, op)
}

func (f *Fake) call(method string, args ...interface{}) error {
	parts := []string{method}
	for _, a := range args {
		parts = append(parts, fmt.Sprint(a))
	}
	f.Calls = append(f.Calls, strings.Join(parts, " "))
	return f.failures[method]
}

func (f *Fake) newID() string {
	f.nextID++
	return strconv.Itoa(f.nextID)
}

func memberKey(guildID, userID string) string { return guildID + "/" + userID }

// AddChannel seeds an existing channel.
func (f *Fake) AddChannel(ch gateway.Channel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := ch
	f.channels[ch.ID] = &c
}

func (f *Fake) AddMember(m gateway.Member) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := m
	c.Roles = append([]string(nil), m.Roles...)
	f.members[memberKey(m.GuildID, m.UserID)] = &c
}

func (f *Fake) SetPermissions(channelID, userID string, perms int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.perms[channelID+"/"+userID] = perms
}

func (f *Fake) AddHistory(channelID string, msgs ...gateway.HistoryMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range msgs {
		m.ChannelID = channelID
		if m.ID == "" {
			m.ID = f.newID()
		}
		f.history[channelID] = append(f.history[channelID], m)
	}
}

// SetVoice places userID in channelID, or removes them from voice when
// channelID is empty.
func (f *Fake) SetVoice(guildID, userID, channelID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if channelID == "" {
		delete(f.voice, memberKey(guildID, userID))
		return
	}
	f.voice[memberKey(guildID, userID)] = channelID
}

func (f *Fake) HasChannel(channelID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.channels[channelID]
	return ok
}

func (f *Fake) ChannelByName(name string) *gateway.Channel {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.channels {
		if ch.Name == name {
			c := *ch
			return &c
		}
	}
	return nil
}

func (f *Fake) ChannelCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.channels)
}

func (f *Fake) Overwrites(channelID string) map[string]gateway.Overwrite {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]gateway.Overwrite, len(f.overwrites[channelID]))
	for k, v := range f.overwrites[channelID] {
		out[k] = v
	}
	return out
}

func (f *Fake) Roles(guildID, userID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[memberKey(guildID, userID)]
	if !ok {
		return nil
	}
	roles := append([]string(nil), m.Roles...)
	sort.Strings(roles)
	return roles
}

func (f *Fake) SentTo(channelID string) []gateway.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []gateway.Message
	for _, s := range f.Sent {
		if s.ChannelID == channelID {
			out = append(out, s.Message)
		}
	}
	return out
}

func (f *Fake) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if c == method || strings.HasPrefix(c, method+" ") {
			n++
		}
	}
	return n
}

func (f *Fake) BotUserID() string { return BotID }

func (f *Fake) SendMessage(_ context.Context, channelID string, msg gateway.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("SendMessage", channelID); err != nil {
		return "", err
	}
	id := f.newID()
	f.Sent = append(f.Sent, SentMessage{ID: id, ChannelID: channelID, Message: msg})
	f.history[channelID] = append(f.history[channelID], gateway.HistoryMessage{
		ID: id, ChannelID: channelID, AuthorID: BotID, AuthorBot: true, Content: msg.Content,
	})
	return id, nil
}

func (f *Fake) FetchMessage(_ context.Context, channelID, messageID string) (*gateway.HistoryMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("FetchMessage", channelID, messageID); err != nil {
		return nil, err
	}
	for _, m := range f.history[channelID] {
		if m.ID == messageID {
			c := m
			return &c, nil
		}
	}
	return nil, errors.Wrapf(models.ErrNotFound, "message %s", messageID)
}

// RecentMessages returns newest first, like the platform.
func (f *Fake) RecentMessages(_ context.Context, channelID string, limit int) ([]gateway.HistoryMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("RecentMessages", channelID, limit); err != nil {
		return nil, err
	}
	msgs := f.history[channelID]
	var out []gateway.HistoryMessage
	for i := len(msgs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, msgs[i])
	}
	return out, nil
}

func (f *Fake) DeleteMessage(_ context.Context, channelID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("DeleteMessage", channelID, messageID); err != nil {
		return err
	}
	f.Deleted = append(f.Deleted, channelID+"/"+messageID)
	return nil
}

func (f *Fake) AddReaction(_ context.Context, channelID, messageID, emoji string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("AddReaction", channelID, messageID, emoji); err != nil {
		return err
	}
	f.Reactions = append(f.Reactions, channelID+"/"+messageID+"/"+emoji)
	return nil
}

func (f *Fake) Channel(_ context.Context, channelID string) (*gateway.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("Channel", channelID); err != nil {
		return nil, err
	}
	ch, ok := f.channels[channelID]
	if !ok {
		return nil, errors.Wrapf(models.ErrNotFound, "channel %s", channelID)
	}
	c := *ch
	return &c, nil
}

func (f *Fake) CreateChannel(_ context.Context, spec gateway.ChannelSpec) (*gateway.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("CreateChannel", spec.Name); err != nil {
		return nil, err
	}
	ch := &gateway.Channel{
		ID:        f.newID(),
		GuildID:   spec.GuildID,
		ParentID:  spec.ParentID,
		Name:      spec.Name,
		Kind:      spec.Kind,
		UserLimit: spec.UserLimit,
	}
	f.channels[ch.ID] = ch
	f.overwrites[ch.ID] = make(map[string]gateway.Overwrite)
	for _, ow := range spec.Overwrites {
		f.overwrites[ch.ID][ow.TargetID] = ow
	}
	c := *ch
	return &c, nil
}

func (f *Fake) EditChannel(_ context.Context, channelID string, edit gateway.ChannelEdit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("EditChannel", channelID); err != nil {
		return err
	}
	ch, ok := f.channels[channelID]
	if !ok {
		return errors.Wrapf(models.ErrNotFound, "channel %s", channelID)
	}
	if edit.Name != nil {
		ch.Name = *edit.Name
	}
	if edit.UserLimit != nil {
		ch.UserLimit = *edit.UserLimit
	}
	if edit.Overwrites != nil {
		f.overwrites[channelID] = make(map[string]gateway.Overwrite)
		for _, ow := range edit.Overwrites {
			f.overwrites[channelID][ow.TargetID] = ow
		}
	}
	return nil
}

func (f *Fake) DeleteChannel(_ context.Context, channelID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("DeleteChannel", channelID); err != nil {
		return err
	}
	if _, ok := f.channels[channelID]; !ok {
		return errors.Wrapf(models.ErrNotFound, "channel %s", channelID)
	}
	delete(f.channels, channelID)
	delete(f.overwrites, channelID)
	return nil
}

func (f *Fake) SetOverwrite(_ context.Context, channelID string, ow gateway.Overwrite, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("SetOverwrite", channelID, ow.TargetID); err != nil {
		return err
	}
	if _, ok := f.channels[channelID]; !ok {
		return errors.Wrapf(models.ErrNotFound, "channel %s", channelID)
	}
	if f.overwrites[channelID] == nil {
		f.overwrites[channelID] = make(map[string]gateway.Overwrite)
	}
	f.overwrites[channelID][ow.TargetID] = ow
	return nil
}

func (f *Fake) RemoveOverwrite(_ context.Context, channelID, targetID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("RemoveOverwrite", channelID, targetID); err != nil {
		return err
	}
	if _, ok := f.channels[channelID]; !ok {
		return errors.Wrapf(models.ErrNotFound, "channel %s", channelID)
	}
	delete(f.overwrites[channelID], targetID)
	return nil
}

func (f *Fake) Member(_ context.Context, guildID, userID string) (*gateway.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("Member", guildID, userID); err != nil {
		return nil, err
	}
	m, ok := f.members[memberKey(guildID, userID)]
	if !ok {
		return nil, errors.Wrapf(models.ErrNotFound, "member %s", userID)
	}
	c := *m
	c.Roles = append([]string(nil), m.Roles...)
	return &c, nil
}

func (f *Fake) MemberPermissions(_ context.Context, channelID, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("MemberPermissions", channelID, userID); err != nil {
		return 0, err
	}
	return f.perms[channelID+"/"+userID], nil
}

func (f *Fake) GrantRole(_ context.Context, guildID, userID, roleID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("GrantRole", userID, roleID); err != nil {
		return err
	}
	m, ok := f.members[memberKey(guildID, userID)]
	if !ok {
		return errors.Wrapf(models.ErrNotFound, "member %s", userID)
	}
	if !m.HasRole(roleID) {
		m.Roles = append(m.Roles, roleID)
	}
	return nil
}

func (f *Fake) RevokeRole(_ context.Context, guildID, userID, roleID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("RevokeRole", userID, roleID); err != nil {
		return err
	}
	m, ok := f.members[memberKey(guildID, userID)]
	if !ok {
		return errors.Wrapf(models.ErrNotFound, "member %s", userID)
	}
	kept := m.Roles[:0]
	for _, r := range m.Roles {
		if r != roleID {
			kept = append(kept, r)
		}
	}
	m.Roles = kept
	return nil
}

func (f *Fake) MoveMember(_ context.Context, guildID, userID, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("MoveMember", userID, channelID); err != nil {
		return err
	}
	f.Moves = append(f.Moves, userID+"->"+channelID)
	f.voice[memberKey(guildID, userID)] = channelID
	return nil
}

func (f *Fake) KickMember(_ context.Context, guildID, userID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("KickMember", userID); err != nil {
		return err
	}
	f.Kicks = append(f.Kicks, userID)
	delete(f.members, memberKey(guildID, userID))
	return nil
}

func (f *Fake) BanMember(_ context.Context, guildID, userID, _ string, deleteDays int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("BanMember", userID, deleteDays); err != nil {
		return err
	}
	f.Bans = append(f.Bans, userID)
	delete(f.members, memberKey(guildID, userID))
	return nil
}

func (f *Fake) TimeoutMember(_ context.Context, _, userID string, until time.Time, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("TimeoutMember", userID); err != nil {
		return err
	}
	f.Timeouts = append(f.Timeouts, Timeout{UserID: userID, Until: until, Reason: reason})
	return nil
}

func (f *Fake) VoiceOccupancy(guildID, channelID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	prefix := guildID + "/"
	for k, ch := range f.voice {
		if ch == channelID && strings.HasPrefix(k, prefix) {
			n++
		}
	}
	return n
}

package models

import "time"

// EventKind identifies a gateway event category in the router dispatch table.
type EventKind uint8

const (
	EventUnknown EventKind = iota
	EventMessageCreate
	EventReactionAdd
	EventReactionRemove
	EventMemberJoin
	EventMemberLeave
	EventVoiceStateUpdate
	EventInteraction
)

func (k EventKind) String() string {
	switch k {
	case EventMessageCreate:
		return "message_create"
	case EventReactionAdd:
		return "reaction_add"
	case EventReactionRemove:
		return "reaction_remove"
	case EventMemberJoin:
		return "member_join"
	case EventMemberLeave:
		return "member_leave"
	case EventVoiceStateUpdate:
		return "voice_state_update"
	case EventInteraction:
		return "interaction"
	default:
		return "unknown"
	}
}

type MessageEvent struct {
	GuildID   string
	ChannelID string
	MessageID string
	AuthorID  string
	AuthorBot bool
	Content   string
	CreatedAt time.Time
}

// Emoji is normalised: unicode emoji as-is, custom emoji as "name:id".
type ReactionEvent struct {
	GuildID   string
	ChannelID string
	MessageID string
	UserID    string
	UserBot   bool
	Emoji     string
}

type MemberEvent struct {
	GuildID     string
	UserID      string
	Username    string
	DisplayName string
	AvatarURL   string
	Bot         bool
	MemberCount int
	At          time.Time
}

// Empty channel IDs mean "not in a voice channel".
type VoiceStateEvent struct {
	GuildID         string
	UserID          string
	DisplayName     string
	Bot             bool
	BeforeChannelID string
	AfterChannelID  string
}

func (e VoiceStateEvent) Moved() bool {
	return e.BeforeChannelID != e.AfterChannelID
}

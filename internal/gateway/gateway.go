// Package gateway describes what the bot needs from the chat platform. Domain
// components depend on the Gateway interface only; internal/bot provides the
// discordgo implementation and gatewaytest an in-memory one.
package gateway

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Permission bits, identical to the platform's.
const (
	PermKickMembers     = discordgo.PermissionKickMembers
	PermBanMembers      = discordgo.PermissionBanMembers
	PermAdministrator   = discordgo.PermissionAdministrator
	PermManageChannels  = discordgo.PermissionManageChannels
	PermManageGuild     = discordgo.PermissionManageServer
	PermViewChannel     = discordgo.PermissionViewChannel
	PermSendMessages    = discordgo.PermissionSendMessages
	PermManageMessages  = discordgo.PermissionManageMessages
	PermReadHistory     = discordgo.PermissionReadMessageHistory
	PermConnect         = discordgo.PermissionVoiceConnect
	PermMoveMembers     = discordgo.PermissionVoiceMoveMembers
	PermManageRoles     = discordgo.PermissionManageRoles
	PermModerateMembers = discordgo.PermissionModerateMembers
)

type ChannelKind int

const (
	ChannelText ChannelKind = iota
	ChannelVoice
	ChannelCategory
)

// Overwrite is a per-channel permission override. The @everyone role shares
// its id with the guild.
type Overwrite struct {
	TargetID string
	Member   bool
	Allow    int64
	Deny     int64
}

type ChannelSpec struct {
	GuildID    string
	Name       string
	Kind       ChannelKind
	ParentID   string
	Topic      string
	UserLimit  int
	Overwrites []Overwrite
	Reason     string
}

type Channel struct {
	ID        string
	GuildID   string
	ParentID  string
	Name      string
	Kind      ChannelKind
	UserLimit int
}

// ChannelEdit changes only the fields that are set. A nil Overwrites slice
// leaves overwrites untouched; an empty one clears them.
type ChannelEdit struct {
	Name       *string
	UserLimit  *int
	Overwrites []Overwrite
	Reason     string
}

type Member struct {
	GuildID     string
	UserID      string
	Username    string
	DisplayName string
	AvatarURL   string
	Bot         bool
	Roles       []string
}

func (m *Member) HasRole(roleID string) bool {
	for _, r := range m.Roles {
		if r == roleID {
			return true
		}
	}
	return false
}

type HistoryMessage struct {
	ID         string
	ChannelID  string
	AuthorID   string
	AuthorName string
	AuthorBot  bool
	Content    string
	Timestamp  time.Time
}

type ButtonStyle int

const (
	ButtonPrimary ButtonStyle = iota
	ButtonSecondary
	ButtonSuccess
	ButtonDanger
)

type Button struct {
	CustomID string
	Label    string
	Emoji    string
	Style    ButtonStyle
}

type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

type Embed struct {
	Title        string
	Description  string
	Color        int
	Fields       []EmbedField
	ThumbnailURL string
	ImageURL     string
	Footer       string
	Timestamp    time.Time
}

type Message struct {
	Content string
	Embed   *Embed
	Buttons []Button
}

// Gateway is the chat platform as seen by the domain components. Every method
// that talks to the platform may block and honours ctx; failures are
// classified into the models error kinds.
type Gateway interface {
	BotUserID() string

	SendMessage(ctx context.Context, channelID string, msg Message) (string, error)
	FetchMessage(ctx context.Context, channelID, messageID string) (*HistoryMessage, error)
	RecentMessages(ctx context.Context, channelID string, limit int) ([]HistoryMessage, error)
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	AddReaction(ctx context.Context, channelID, messageID, emoji string) error

	Channel(ctx context.Context, channelID string) (*Channel, error)
	CreateChannel(ctx context.Context, spec ChannelSpec) (*Channel, error)
	EditChannel(ctx context.Context, channelID string, edit ChannelEdit) error
	DeleteChannel(ctx context.Context, channelID, reason string) error
	SetOverwrite(ctx context.Context, channelID string, ow Overwrite, reason string) error
	RemoveOverwrite(ctx context.Context, channelID, targetID, reason string) error

	Member(ctx context.Context, guildID, userID string) (*Member, error)
	MemberPermissions(ctx context.Context, channelID, userID string) (int64, error)
	GrantRole(ctx context.Context, guildID, userID, roleID, reason string) error
	RevokeRole(ctx context.Context, guildID, userID, roleID, reason string) error
	MoveMember(ctx context.Context, guildID, userID, channelID string) error
	KickMember(ctx context.Context, guildID, userID, reason string) error
	BanMember(ctx context.Context, guildID, userID, reason string, deleteDays int) error
	TimeoutMember(ctx context.Context, guildID, userID string, until time.Time, reason string) error

	// VoiceOccupancy reads the locally cached voice states and never blocks.
	VoiceOccupancy(guildID, channelID string) int
}

// EveryoneDeny hides a channel from @everyone.
func EveryoneDeny(guildID string, deny int64) Overwrite {
	return Overwrite{TargetID: guildID, Deny: deny}
}

func MemberAllow(userID string, allow int64) Overwrite {
	return Overwrite{TargetID: userID, Member: true, Allow: allow}
}

func RoleAllow(roleID string, allow int64) Overwrite {
	return Overwrite{TargetID: roleID, Allow: allow}
}

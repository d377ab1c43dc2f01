package database

import "time"

// Setting keys stored in the settings table.
const (
	SettingTicketsCategory      = "tickets_category_id"
	SettingTicketsSupportRole   = "tickets_support_role_id"
	SettingTicketsClosedChannel = "tickets_closed_channel_id"
	SettingVoiceTemplate        = "voice_template_channel_id"
	SettingWelcomeChannel       = "welcome_channel_id"
	SettingWelcomeImage         = "welcome_image_url"
	SettingAutorole             = "autorole_id"
	SettingLogChannel           = "log_channel_id"
)

type Warning struct {
	UserID string
	Count  int
}

type ModerationLogEntry struct {
	ID          int64
	Action      string
	UserID      string
	ModeratorID string
	Reason      string
	Timestamp   time.Time
}

// Ticket exists exactly while its channel is an open ticket.
type Ticket struct {
	ChannelID string
	OwnerID   string
	CreatedAt time.Time
}

type MessageStat struct {
	UserID string
	Count  int64
}

type ReactionRole struct {
	MessageID string
	Emoji     string // unicode emoji or "name:id"
	RoleID    string
}

type UserLevel struct {
	UserID          string
	XP              int64
	Level           int
	LastMessageTime time.Time
}

type LevelReward struct {
	Level    int
	RoleID   string
	RoleName string // display only
}

// WelcomeChannel is a link shown in the welcome message, keyed by kind
// ("rules", "roles", "general").
type WelcomeChannel struct {
	ChannelType string
	ChannelID   string
	ChannelName string
	Description string
}

type VoicePreference struct {
	UserID      string
	ChannelName string
	UserLimit   int
	Locked      bool
}

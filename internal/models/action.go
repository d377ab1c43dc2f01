package models

// ModerationAction names the kind of entry appended to the moderation log.
type ModerationAction string

const (
	ActionKick  ModerationAction = "kick"
	ActionBan   ModerationAction = "ban"
	ActionMute  ModerationAction = "mute"
	ActionWarn  ModerationAction = "warn"
	ActionClear ModerationAction = "warns_clear"
)

func (a ModerationAction) Title() string {
	switch a {
	case ActionKick:
		return "Member Kicked"
	case ActionBan:
		return "Member Banned"
	case ActionMute:
		return "Member Muted"
	case ActionWarn:
		return "Member Warned"
	case ActionClear:
		return "Warnings Cleared"
	default:
		return "Moderation Action"
	}
}

package commands

import (
	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"

	"go-amadeus/internal/gateway"
	"go-amadeus/internal/models"
)

// public marks commands anyone may run. Everything else needs an owner id,
// Administrator, or the delegated permission listed in delegated.
var public = map[string]bool{
	"lvl":            true,
	"leaderboard":    true,
	"rewards-list":   true,
	"voice-settings": true,
	"voice-status":   true,
	"ticket create":  true,
	"ticket close":   true, // the ticket manager enforces Manage Channels itself
	"ping":           true,
}

var delegated = map[string]int64{
	"level-reset":               gateway.PermManageRoles,
	"reward-add":                gateway.PermManageRoles,
	"reward-remove":             gateway.PermManageRoles,
	"kick":                      gateway.PermKickMembers,
	"ban":                       gateway.PermBanMembers,
	"mute":                      gateway.PermModerateMembers,
	"warn":                      gateway.PermModerateMembers,
	"warns":                     gateway.PermModerateMembers,
	"warns-clear":               gateway.PermModerateMembers,
	"role-add":                  gateway.PermManageRoles,
	"role-remove":               gateway.PermManageRoles,
	"autorole-set":              gateway.PermManageRoles,
	"reaction-bind":             gateway.PermManageRoles,
	"reaction-unbind":           gateway.PermManageRoles,
	"logs-setup":                gateway.PermManageGuild,
	"welcome-setup":             gateway.PermManageGuild,
	"welcome-channels":          gateway.PermManageGuild,
	"welcome-preview":           gateway.PermManageGuild,
	"welcome-list":              gateway.PermManageGuild,
	"ticket setup":              gateway.PermManageGuild,
	"ticket set-closed-channel": gateway.PermManageGuild,
	"ticket panel":              gateway.PermManageGuild,
	"ticket add":                gateway.PermManageChannels,
	"ticket remove":             gateway.PermManageChannels,
	"voice-setup":               gateway.PermManageChannels,
	"stats":                     gateway.PermManageGuild,
}

// checkPermissions lets a command through when it is public, the invoker is a
// configured owner, holds Administrator, or holds the command's delegated
// permission. Unknown commands are denied.
func (h *Handler) checkPermissions(i *discordgo.InteractionCreate, key string) error {
	if public[key] {
		return nil
	}
	userID := invokerID(i)
	if h.owners.IsOwner(userID) {
		return nil
	}

	var perms int64
	if i.Member != nil {
		perms = i.Member.Permissions
	}
	if perms&gateway.PermAdministrator != 0 {
		return nil
	}

	need, ok := delegated[key]
	if !ok {
		return errors.Wrapf(models.ErrPermissionDenied, "/%s is restricted to administrators", key)
	}
	if perms&need == 0 {
		return errors.Wrapf(models.ErrPermissionDenied, "/%s requires the %s permission", key, permissionName(need))
	}
	return nil
}

func permissionName(p int64) string {
	switch p {
	case gateway.PermManageRoles:
		return "Manage Roles"
	case gateway.PermKickMembers:
		return "Kick Members"
	case gateway.PermBanMembers:
		return "Ban Members"
	case gateway.PermModerateMembers:
		return "Timeout Members"
	case gateway.PermManageGuild:
		return "Manage Server"
	case gateway.PermManageChannels:
		return "Manage Channels"
	default:
		return "required"
	}
}

func invokerID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

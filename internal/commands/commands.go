package commands

import (
	"github.com/bwmarrin/discordgo"

	"go-amadeus/internal/community"
	"go-amadeus/internal/leveling"
	"go-amadeus/internal/moderation"
)

func userOption(description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Name:        "user",
		Description: description,
		Type:        discordgo.ApplicationCommandOptionUser,
		Required:    required,
	}
}

func roleOption(description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Name:        "role",
		Description: description,
		Type:        discordgo.ApplicationCommandOptionRole,
		Required:    required,
	}
}

func channelOption(name, description string, required bool, types ...discordgo.ChannelType) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Name:         name,
		Description:  description,
		Type:         discordgo.ApplicationCommandOptionChannel,
		Required:     required,
		ChannelTypes: types,
	}
}

func stringOption(name, description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Name:        name,
		Description: description,
		Type:        discordgo.ApplicationCommandOptionString,
		Required:    required,
	}
}

func linkKindOption(name, description string) *discordgo.ApplicationCommandOption {
	opt := stringOption(name, description, false)
	for _, kind := range community.LinkKinds {
		opt.Choices = append(opt.Choices, &discordgo.ApplicationCommandOptionChoice{Name: kind, Value: kind})
	}
	return opt
}

func intOption(name, description string, required bool, min, max float64) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Name:        name,
		Description: description,
		Type:        discordgo.ApplicationCommandOptionInteger,
		Required:    required,
		MinValue:    &min,
		MaxValue:    max,
	}
}

func reasonOption() *discordgo.ApplicationCommandOption {
	return stringOption("reason", "Reason shown in the audit log", false)
}

func subcommand(name, description string, opts ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Name:        name,
		Description: description,
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Options:     opts,
	}
}

// GetAllCommands returns all application commands
func GetAllCommands() []*discordgo.ApplicationCommand {
	text := discordgo.ChannelTypeGuildText

	return []*discordgo.ApplicationCommand{
		// Levels
		{
			Name:        "lvl",
			Description: "Show your level or someone else's",
			Options:     []*discordgo.ApplicationCommandOption{userOption("Member to look up", false)},
		},
		{
			Name:        "leaderboard",
			Description: "Top members by XP",
			Options: []*discordgo.ApplicationCommandOption{
				intOption("limit", "How many members to show", false, 1, leveling.MaxLeaderboard),
			},
		},
		{
			Name:        "level-reset",
			Description: "Reset a member's XP and remove their reward roles",
			Options:     []*discordgo.ApplicationCommandOption{userOption("Member to reset", true)},
		},
		{
			Name:        "reward-add",
			Description: "Grant a role when members reach a level",
			Options: []*discordgo.ApplicationCommandOption{
				intOption("level", "Level that grants the role", true, 1, 1000),
				roleOption("Role to grant", true),
			},
		},
		{
			Name:        "reward-remove",
			Description: "Remove the reward of a level",
			Options: []*discordgo.ApplicationCommandOption{
				intOption("level", "Level whose reward is removed", true, 1, 1000),
			},
		},
		{
			Name:        "rewards-list",
			Description: "List level rewards",
		},

		// Moderation
		{
			Name:        "kick",
			Description: "Kick a member",
			Options:     []*discordgo.ApplicationCommandOption{userOption("Member to kick", true), reasonOption()},
		},
		{
			Name:        "ban",
			Description: "Ban a member",
			Options: []*discordgo.ApplicationCommandOption{
				userOption("Member to ban", true),
				reasonOption(),
				intOption("delete_days", "Days of messages to delete", false, 0, moderation.MaxBanDeleteDays),
			},
		},
		{
			Name:        "mute",
			Description: "Time a member out",
			Options: []*discordgo.ApplicationCommandOption{
				userOption("Member to mute", true),
				intOption("minutes", "Duration in minutes", true, moderation.MinMuteMinutes, moderation.MaxMuteMinutes),
				reasonOption(),
			},
		},
		{
			Name:        "warn",
			Description: "Warn a member",
			Options:     []*discordgo.ApplicationCommandOption{userOption("Member to warn", true), reasonOption()},
		},
		{
			Name:        "warns",
			Description: "Show how many warnings a member has",
			Options:     []*discordgo.ApplicationCommandOption{userOption("Member to look up", true)},
		},
		{
			Name:        "warns-clear",
			Description: "Clear a member's warnings",
			Options:     []*discordgo.ApplicationCommandOption{userOption("Member to clear", true), reasonOption()},
		},

		// Roles
		{
			Name:        "role-add",
			Description: "Give a role to a member",
			Options:     []*discordgo.ApplicationCommandOption{userOption("Member", true), roleOption("Role to give", true)},
		},
		{
			Name:        "role-remove",
			Description: "Take a role from a member",
			Options:     []*discordgo.ApplicationCommandOption{userOption("Member", true), roleOption("Role to take", true)},
		},
		{
			Name:        "autorole-set",
			Description: "Role given to new members (omit to disable)",
			Options:     []*discordgo.ApplicationCommandOption{roleOption("Role for new members", false)},
		},
		{
			Name:        "reaction-bind",
			Description: "Grant a role to members reacting to a message",
			Options: []*discordgo.ApplicationCommandOption{
				stringOption("message_id", "Message to bind", true),
				stringOption("emoji", "Emoji to react with", true),
				roleOption("Role to grant", true),
				channelOption("channel", "Channel of the message (defaults to this one)", false, text),
			},
		},
		{
			Name:        "reaction-unbind",
			Description: "Remove a reaction role",
			Options: []*discordgo.ApplicationCommandOption{
				stringOption("message_id", "Bound message", true),
				stringOption("emoji", "Bound emoji", true),
			},
		},

		// Welcome & logs
		{
			Name:        "logs-setup",
			Description: "Channel for moderation, member and ticket logs",
			Options:     []*discordgo.ApplicationCommandOption{channelOption("channel", "Log channel", true, text)},
		},
		{
			Name:        "welcome-setup",
			Description: "Channel where new members are welcomed",
			Options: []*discordgo.ApplicationCommandOption{
				channelOption("channel", "Welcome channel", true, text),
				stringOption("image_url", "Image shown in the welcome message", false),
			},
		},
		{
			Name:        "welcome-channels",
			Description: "Channels linked in the welcome message",
			Options: []*discordgo.ApplicationCommandOption{
				channelOption("rules", "Rules channel", false, text),
				stringOption("rules_desc", "Link text for the rules channel", false),
				channelOption("roles", "Roles channel", false, text),
				stringOption("roles_desc", "Link text for the roles channel", false),
				channelOption("general", "General chat", false, text),
				stringOption("general_desc", "Link text for the general chat", false),
				linkKindOption("remove", "Stop linking this channel kind"),
			},
		},
		{
			Name:        "welcome-preview",
			Description: "Post the welcome message for yourself here",
		},
		{
			Name:        "welcome-list",
			Description: "List the welcome message links",
		},

		// Tickets
		{
			Name:        "ticket",
			Description: "Support tickets",
			Options: []*discordgo.ApplicationCommandOption{
				subcommand("create", "Open a private ticket", stringOption("topic", "What do you need help with?", false)),
				subcommand("close", "Close this ticket"),
				subcommand("add", "Add a member to this ticket", userOption("Member to add", true)),
				subcommand("remove", "Remove a member from this ticket", userOption("Member to remove", true)),
				subcommand("setup", "Configure where tickets are created",
					channelOption("category", "Category for ticket channels", true, discordgo.ChannelTypeGuildCategory),
					&discordgo.ApplicationCommandOption{
						Name:        "support_role",
						Description: "Role that can see every ticket",
						Type:        discordgo.ApplicationCommandOptionRole,
					},
				),
				subcommand("set-closed-channel", "Channel where closed tickets are logged",
					channelOption("channel", "Closed ticket log", true, text)),
				subcommand("panel", "Post the open-ticket button",
					channelOption("channel", "Channel to post in (defaults to this one)", false, text),
					stringOption("title", "Panel title", false),
					stringOption("description", "Panel text", false),
				),
			},
		},

		// Private voice
		{
			Name:        "voice-setup",
			Description: "Set the join-to-create voice channel",
			Options: []*discordgo.ApplicationCommandOption{
				channelOption("channel", "Voice channel members join", true, discordgo.ChannelTypeGuildVoice),
			},
		},
		{
			Name:        "voice-status",
			Description: "Show the private voice setup",
		},
		{
			Name:        "voice-settings",
			Description: "Show your saved private channel settings",
		},

		// Bot
		{
			Name:        "ping",
			Description: "Check bot latency",
		},
		{
			Name:        "stats",
			Description: "Host, bot and activity statistics",
		},
	}
}

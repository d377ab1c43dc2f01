package bot

import (
	"time"

	"github.com/bwmarrin/discordgo"

	"go-amadeus/internal/gateway"
)

// maxButtonsPerRow is the platform limit for an action row.
const maxButtonsPerRow = 5

func renderMessage(msg gateway.Message) *discordgo.MessageSend {
	out := &discordgo.MessageSend{
		Content:    msg.Content,
		Components: renderButtons(msg.Buttons),
	}
	if msg.Embed != nil {
		out.Embeds = []*discordgo.MessageEmbed{renderEmbed(msg.Embed)}
	}
	return out
}

func renderEmbed(e *gateway.Embed) *discordgo.MessageEmbed {
	out := &discordgo.MessageEmbed{
		Title:       e.Title,
		Description: e.Description,
		Color:       e.Color,
	}
	for _, f := range e.Fields {
		out.Fields = append(out.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	if e.ThumbnailURL != "" {
		out.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: e.ThumbnailURL}
	}
	if e.ImageURL != "" {
		out.Image = &discordgo.MessageEmbedImage{URL: e.ImageURL}
	}
	if e.Footer != "" {
		out.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer}
	}
	if !e.Timestamp.IsZero() {
		out.Timestamp = e.Timestamp.Format(time.RFC3339)
	}
	return out
}

// renderButtons lays buttons out in rows of at most five.
func renderButtons(buttons []gateway.Button) []discordgo.MessageComponent {
	var rows []discordgo.MessageComponent
	for start := 0; start < len(buttons); start += maxButtonsPerRow {
		end := start + maxButtonsPerRow
		if end > len(buttons) {
			end = len(buttons)
		}
		row := discordgo.ActionsRow{}
		for _, b := range buttons[start:end] {
			btn := discordgo.Button{
				Label:    b.Label,
				Style:    buttonStyle(b.Style),
				CustomID: b.CustomID,
			}
			if b.Emoji != "" {
				btn.Emoji = &discordgo.ComponentEmoji{Name: b.Emoji}
			}
			row.Components = append(row.Components, btn)
		}
		rows = append(rows, row)
	}
	return rows
}

func buttonStyle(s gateway.ButtonStyle) discordgo.ButtonStyle {
	switch s {
	case gateway.ButtonSecondary:
		return discordgo.SecondaryButton
	case gateway.ButtonSuccess:
		return discordgo.SuccessButton
	case gateway.ButtonDanger:
		return discordgo.DangerButton
	default:
		return discordgo.PrimaryButton
	}
}

func channelKind(t discordgo.ChannelType) gateway.ChannelKind {
	switch t {
	case discordgo.ChannelTypeGuildVoice, discordgo.ChannelTypeGuildStageVoice:
		return gateway.ChannelVoice
	case discordgo.ChannelTypeGuildCategory:
		return gateway.ChannelCategory
	default:
		return gateway.ChannelText
	}
}

func channelType(k gateway.ChannelKind) discordgo.ChannelType {
	switch k {
	case gateway.ChannelVoice:
		return discordgo.ChannelTypeGuildVoice
	case gateway.ChannelCategory:
		return discordgo.ChannelTypeGuildCategory
	default:
		return discordgo.ChannelTypeGuildText
	}
}

func toChannel(c *discordgo.Channel) *gateway.Channel {
	return &gateway.Channel{
		ID:        c.ID,
		GuildID:   c.GuildID,
		ParentID:  c.ParentID,
		Name:      c.Name,
		Kind:      channelKind(c.Type),
		UserLimit: c.UserLimit,
	}
}

func toOverwrites(ows []gateway.Overwrite) []*discordgo.PermissionOverwrite {
	out := make([]*discordgo.PermissionOverwrite, 0, len(ows))
	for _, ow := range ows {
		out = append(out, &discordgo.PermissionOverwrite{
			ID:    ow.TargetID,
			Type:  overwriteType(ow.Member),
			Allow: ow.Allow,
			Deny:  ow.Deny,
		})
	}
	return out
}

func overwriteType(member bool) discordgo.PermissionOverwriteType {
	if member {
		return discordgo.PermissionOverwriteTypeMember
	}
	return discordgo.PermissionOverwriteTypeRole
}

func toMember(guildID string, m *discordgo.Member) *gateway.Member {
	out := &gateway.Member{
		GuildID: guildID,
		Roles:   append([]string(nil), m.Roles...),
	}
	if m.User == nil {
		out.DisplayName = m.Nick
		return out
	}
	out.UserID = m.User.ID
	out.Username = m.User.Username
	out.Bot = m.User.Bot
	out.AvatarURL = m.AvatarURL("")
	out.DisplayName = m.DisplayName()
	return out
}

func toHistory(m *discordgo.Message) gateway.HistoryMessage {
	out := gateway.HistoryMessage{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		Content:   m.Content,
		Timestamp: m.Timestamp,
	}
	if m.Author != nil {
		out.AuthorID = m.Author.ID
		out.AuthorBot = m.Author.Bot
		out.AuthorName = m.Author.DisplayName()
		if m.Member != nil && m.Member.Nick != "" {
			out.AuthorName = m.Member.Nick
		}
	}
	return out
}

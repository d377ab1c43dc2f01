package commands

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"

	"go-amadeus/internal/logging"
	"go-amadeus/internal/models"
)

// MessageSender posts channel messages. *discordgo.Session satisfies it.
type MessageSender interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// prefixCommands can also be typed as "<prefix>name args" or "@bot name args".
var prefixCommands = map[string]bool{
	"lvl":              true,
	"leaderboard":      true,
	"level-reset":      true,
	"reward-add":       true,
	"reward-remove":    true,
	"rewards-list":     true,
	"logs-setup":       true,
	"welcome-setup":    true,
	"welcome-channels": true,
	"welcome-preview":  true,
	"welcome-list":     true,
}

// OnMessage runs text commands through the same routes and permission gate
// as slash commands. Replies are posted in the channel as answers to the
// invoking message.
func (h *Handler) OnMessage(ctx context.Context, ev models.MessageEvent) error {
	if ev.AuthorBot || ev.GuildID == "" || h.sender == nil {
		return nil
	}
	name, args, ok := h.splitCommand(ev.Content)
	if !ok || !prefixCommands[name] {
		return nil
	}

	resp := &messageResponder{send: h.sender, ev: ev}
	i, err := h.textInteraction(ctx, ev, name, args)
	if err != nil {
		if perr := resp.post("❌ "+models.UserMessage(err), nil); perr != nil {
			logging.Debug("Failed to answer text command: %v", perr)
		}
		return err
	}

	text := *h
	text.resp = resp
	return text.Handle(ctx, i)
}

// splitCommand strips the configured prefix or a bot mention and returns the
// lower-cased command name with the remaining words.
func (h *Handler) splitCommand(content string) (string, []string, bool) {
	content = strings.TrimSpace(content)
	var rest string
	var found bool
	if p := h.owners.Prefix; p != "" && strings.HasPrefix(content, p) {
		rest, found = strings.TrimPrefix(content, p), true
	} else if botID := h.gw.BotUserID(); botID != "" {
		for _, mention := range []string{"<@" + botID + ">", "<@!" + botID + ">"} {
			if strings.HasPrefix(content, mention) {
				rest, found = strings.TrimPrefix(content, mention), true
				break
			}
		}
	}
	if !found {
		return "", nil, false
	}
	words := strings.Fields(rest)
	if len(words) == 0 {
		return "", nil, false
	}
	return strings.ToLower(words[0]), words[1:], true
}

func (h *Handler) textInteraction(ctx context.Context, ev models.MessageEvent, name string, args []string) (*discordgo.InteractionCreate, error) {
	var def *discordgo.ApplicationCommand
	for _, c := range GetAllCommands() {
		if c.Name == name {
			def = c
			break
		}
	}
	if def == nil {
		return nil, errors.Wrapf(models.ErrNotFound, "unknown command %s", name)
	}
	opts, err := textOptions(def.Options, args)
	if err != nil {
		return nil, err
	}

	perms, err := h.gw.MemberPermissions(ctx, ev.ChannelID, ev.AuthorID)
	if err != nil {
		return nil, err
	}
	member := &discordgo.Member{
		GuildID:     ev.GuildID,
		User:        &discordgo.User{ID: ev.AuthorID},
		Permissions: perms,
	}
	if m, err := h.gw.Member(ctx, ev.GuildID, ev.AuthorID); err == nil {
		member.User.Username = m.Username
		if m.DisplayName != m.Username {
			member.Nick = m.DisplayName
		}
	}

	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		ID:        ev.MessageID,
		Type:      discordgo.InteractionApplicationCommand,
		GuildID:   ev.GuildID,
		ChannelID: ev.ChannelID,
		Member:    member,
		Data:      discordgo.ApplicationCommandInteractionData{Name: name, Options: opts},
	}}, nil
}

// textOptions fills options positionally. A trailing text option takes the
// rest of the line.
func textOptions(defs []*discordgo.ApplicationCommandOption, args []string) ([]*discordgo.ApplicationCommandInteractionDataOption, error) {
	var out []*discordgo.ApplicationCommandInteractionDataOption
	for n, def := range defs {
		if len(args) == 0 {
			break
		}
		word := args[0]
		args = args[1:]

		var value interface{}
		switch def.Type {
		case discordgo.ApplicationCommandOptionUser:
			id, ok := parseUserRef(word)
			if !ok {
				return nil, errors.Wrapf(models.ErrInvalidArgument, "%s must be a member mention or id", def.Name)
			}
			value = id
		case discordgo.ApplicationCommandOptionRole:
			value = strings.TrimSuffix(strings.TrimPrefix(word, "<@&"), ">")
		case discordgo.ApplicationCommandOptionChannel:
			value = strings.TrimSuffix(strings.TrimPrefix(word, "<#"), ">")
		case discordgo.ApplicationCommandOptionInteger:
			v, err := strconv.Atoi(word)
			if err != nil {
				return nil, errors.Wrapf(models.ErrInvalidArgument, "%s must be a number", def.Name)
			}
			value = float64(v)
		default:
			if n == len(defs)-1 && len(args) > 0 {
				word = strings.Join(append([]string{word}, args...), " ")
				args = nil
			}
			value = word
		}
		out = append(out, &discordgo.ApplicationCommandInteractionDataOption{Name: def.Name, Type: def.Type, Value: value})
	}
	return out, nil
}

// messageResponder turns interaction responses into channel replies.
// Deferrals post nothing; the follow-up edit becomes the reply.
type messageResponder struct {
	send MessageSender
	ev   models.MessageEvent

	mu       sync.Mutex
	answered bool
}

func (r *messageResponder) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	r.mu.Lock()
	if r.answered {
		r.mu.Unlock()
		return errors.New("message has already been answered")
	}
	r.answered = true
	r.mu.Unlock()

	switch resp.Type {
	case discordgo.InteractionResponseDeferredChannelMessageWithSource:
		return nil
	case discordgo.InteractionResponseChannelMessageWithSource:
		if resp.Data == nil {
			return nil
		}
		return r.post(resp.Data.Content, resp.Data.Embeds)
	default:
		return errors.Wrap(models.ErrInvalidArgument, "this only works as a slash command")
	}
}

func (r *messageResponder) InteractionResponseEdit(_ *discordgo.Interaction, edit *discordgo.WebhookEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	var content string
	if edit.Content != nil {
		content = *edit.Content
	}
	var embeds []*discordgo.MessageEmbed
	if edit.Embeds != nil {
		embeds = *edit.Embeds
	}
	return nil, r.post(content, embeds)
}

func (r *messageResponder) post(content string, embeds []*discordgo.MessageEmbed) error {
	_, err := r.send.ChannelMessageSendComplex(r.ev.ChannelID, &discordgo.MessageSend{
		Content: content,
		Embeds:  embeds,
		Reference: &discordgo.MessageReference{
			MessageID: r.ev.MessageID,
			ChannelID: r.ev.ChannelID,
			GuildID:   r.ev.GuildID,
		},
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	})
	return err
}

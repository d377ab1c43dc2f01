package bot

import (
	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"

	"go-amadeus/internal/logging"
	"go-amadeus/internal/models"
)

const intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMembers |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsGuildMessageReactions |
	discordgo.IntentsGuildVoiceStates |
	discordgo.IntentsMessageContent

type Session struct {
	discord *discordgo.Session
	guildID string
}

// NewSession creates the discordgo session without connecting.
func NewSession(token, guildID string) (*Session, error) {
	if token == "" {
		return nil, errors.Wrap(models.ErrConfigurationMissing, "discord token is empty")
	}
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Discord session")
	}
	dg.Identify.Intents = intents
	dg.StateEnabled = true
	dg.State.TrackVoice = true
	dg.State.TrackMembers = true

	return &Session{discord: dg, guildID: guildID}, nil
}

func (s *Session) Discord() *discordgo.Session {
	return s.discord
}

// Connect opens the Discord websocket connection
func (s *Session) Connect() error {
	if err := s.discord.Open(); err != nil {
		return errors.Wrap(err, "failed to open Discord connection")
	}
	if s.discord.State.User != nil {
		logging.Info("Bot ID: %s", s.discord.State.User.ID)
	}
	logging.Info("Discord bot connected successfully")
	return nil
}

func (s *Session) Close() error {
	if s.discord != nil {
		return s.discord.Close()
	}
	return nil
}

// RegisterCommands replaces the registered slash commands in one call. When
// a guild is configured the commands are guild-scoped and appear at once.
func (s *Session) RegisterCommands(commands []*discordgo.ApplicationCommand) error {
	if s.discord.State.User == nil {
		return errors.Wrap(models.ErrTransient, "session is not connected")
	}
	logging.Info("Registering %d slash commands...", len(commands))

	registered, err := s.discord.ApplicationCommandBulkOverwrite(s.discord.State.User.ID, s.guildID, commands)
	if err != nil {
		return classify(err, "register slash commands")
	}
	for _, cmd := range registered {
		logging.Debug("Registered command: /%s", cmd.Name)
	}
	logging.Info("Registered %d slash commands", len(registered))
	return nil
}

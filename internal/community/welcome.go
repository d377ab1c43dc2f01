package community

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"go-amadeus/internal/database"
	"go-amadeus/internal/gateway"
	"go-amadeus/internal/logging"
	"go-amadeus/internal/models"
	"go-amadeus/pkg/util"
)

const welcomeColor = 0x00BFFF

// Link kinds shown in the welcome message, in display order.
var LinkKinds = []string{"rules", "roles", "general"}

var linkEmoji = map[string]string{
	"rules":   "📖",
	"roles":   "🎭",
	"general": "💬",
}

type Store interface {
	Setting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
	DeleteSetting(ctx context.Context, key string) error
	UpsertWelcomeChannel(ctx context.Context, wc database.WelcomeChannel) error
	DeleteWelcomeChannel(ctx context.Context, channelType string) error
	ListWelcomeChannels(ctx context.Context) ([]database.WelcomeChannel, error)
}

type ImageChecker interface {
	Check(ctx context.Context, url string) error
}

type Notifier interface {
	MemberJoined(ctx context.Context, ev models.MemberEvent) bool
	MemberLeft(ctx context.Context, ev models.MemberEvent) bool
}

// Service owns the welcome message, the autorole and the join/leave log.
type Service struct {
	store  Store
	gw     gateway.Gateway
	notify Notifier
	images ImageChecker
	now    func() time.Time
}

func NewService(store Store, gw gateway.Gateway, notify Notifier, images ImageChecker) *Service {
	return &Service{store: store, gw: gw, notify: notify, images: images, now: time.Now}
}

// SetWelcome stores the welcome channel. An empty imageURL keeps the image
// configured previously.
func (s *Service) SetWelcome(ctx context.Context, channelID, imageURL string) error {
	if _, err := s.textChannel(ctx, channelID); err != nil {
		return err
	}
	if imageURL != "" {
		if err := s.images.Check(ctx, imageURL); err != nil {
			return err
		}
	}
	if err := s.store.SetSetting(ctx, database.SettingWelcomeChannel, channelID); err != nil {
		return err
	}
	if imageURL != "" {
		if err := s.store.SetSetting(ctx, database.SettingWelcomeImage, imageURL); err != nil {
			return err
		}
	}
	logging.Info("[WELCOME] Welcome channel set to %s", channelID)
	return nil
}

func (s *Service) SetLink(ctx context.Context, kind, channelID, description string) error {
	if _, ok := linkEmoji[kind]; !ok {
		return errors.Wrapf(models.ErrInvalidArgument, "unknown link kind %q", kind)
	}
	ch, err := s.textChannel(ctx, channelID)
	if err != nil {
		return err
	}
	return s.store.UpsertWelcomeChannel(ctx, database.WelcomeChannel{
		ChannelType: kind,
		ChannelID:   ch.ID,
		ChannelName: ch.Name,
		Description: strings.TrimSpace(description),
	})
}

func (s *Service) RemoveLink(ctx context.Context, kind string) error {
	if _, ok := linkEmoji[kind]; !ok {
		return errors.Wrapf(models.ErrInvalidArgument, "unknown link kind %q", kind)
	}
	return s.store.DeleteWelcomeChannel(ctx, kind)
}

func (s *Service) Links(ctx context.Context) ([]database.WelcomeChannel, error) {
	return s.store.ListWelcomeChannels(ctx)
}

// Render builds the welcome message for a member. Missing links fall back to
// the plain kind name.
func (s *Service) Render(ctx context.Context, ev models.MemberEvent) gateway.Message {
	byKind := make(map[string]database.WelcomeChannel)
	links, err := s.store.ListWelcomeChannels(ctx)
	if err != nil {
		logging.Warn("[WELCOME] Failed to load welcome links: %v", err)
	}
	for _, l := range links {
		byKind[l.ChannelType] = l
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**<@%s>** Welcome new member~!!\n\n", ev.UserID)
	for _, kind := range LinkKinds {
		fmt.Fprintf(&b, "%s %s\n", linkEmoji[kind], linkText(ev.GuildID, kind, byKind[kind]))
	}

	image, _, err := s.store.Setting(ctx, database.SettingWelcomeImage)
	if err != nil {
		logging.Warn("[WELCOME] Failed to load welcome image: %v", err)
	}

	return gateway.Message{Embed: &gateway.Embed{
		Description: b.String(),
		Color:       welcomeColor,
		ImageURL:    image,
		Fields: []gateway.EmbedField{
			{Name: "👥 Members", Value: fmt.Sprint(ev.MemberCount), Inline: true},
		},
		Footer:    "Welcome to the server!",
		Timestamp: s.now(),
	}}
}

func linkText(guildID, kind string, l database.WelcomeChannel) string {
	if l.ChannelID == "" {
		return strings.ToUpper(kind[:1]) + kind[1:]
	}
	text := l.Description
	if text == "" {
		text = l.ChannelName
	}
	return fmt.Sprintf("[%s](%s)", text, util.ChannelURL(guildID, l.ChannelID))
}

func (s *Service) SetAutorole(ctx context.Context, roleID string) error {
	if !util.IsSnowflake(roleID) {
		return errors.Wrap(models.ErrInvalidArgument, "invalid role")
	}
	return s.store.SetSetting(ctx, database.SettingAutorole, roleID)
}

func (s *Service) ClearAutorole(ctx context.Context) error {
	return s.store.DeleteSetting(ctx, database.SettingAutorole)
}

func (s *Service) SetLogChannel(ctx context.Context, channelID string) error {
	if _, err := s.textChannel(ctx, channelID); err != nil {
		return err
	}
	return s.store.SetSetting(ctx, database.SettingLogChannel, channelID)
}

// OnMemberJoin applies the autorole, logs the join and posts the welcome
// message. Every step is best-effort.
func (s *Service) OnMemberJoin(ctx context.Context, ev models.MemberEvent) error {
	if roleID := s.setting(ctx, database.SettingAutorole); roleID != "" && !ev.Bot {
		if err := s.gw.GrantRole(ctx, ev.GuildID, ev.UserID, roleID, "Autorole"); err != nil {
			logging.Warn("[WELCOME] Failed to grant autorole %s to %s: %v", roleID, ev.UserID, err)
		}
	}

	s.notify.MemberJoined(ctx, ev)

	channelID := s.setting(ctx, database.SettingWelcomeChannel)
	if channelID == "" {
		return nil
	}
	if _, err := s.gw.SendMessage(ctx, channelID, s.Render(ctx, ev)); err != nil {
		logging.Warn("[WELCOME] Failed to welcome %s in %s: %v", ev.UserID, channelID, err)
	}
	return nil
}

func (s *Service) OnMemberLeave(ctx context.Context, ev models.MemberEvent) error {
	s.notify.MemberLeft(ctx, ev)
	return nil
}

func (s *Service) setting(ctx context.Context, key string) string {
	value, ok, err := s.store.Setting(ctx, key)
	if err != nil {
		logging.Warn("[WELCOME] Failed to read %s: %v", key, err)
		return ""
	}
	if !ok || !util.IsSnowflake(value) {
		return ""
	}
	return value
}

func (s *Service) textChannel(ctx context.Context, channelID string) (*gateway.Channel, error) {
	ch, err := s.gw.Channel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if ch.Kind != gateway.ChannelText {
		return nil, errors.Wrap(models.ErrInvalidArgument, "channel must be a text channel")
	}
	return ch, nil
}

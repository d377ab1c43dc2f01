package reactionroles

import (
	"context"

	"github.com/pkg/errors"

	"go-amadeus/internal/database"
	"go-amadeus/internal/gateway"
	"go-amadeus/internal/logging"
	"go-amadeus/internal/models"
)

type Store interface {
	GetReactionRole(ctx context.Context, messageID, emoji string) (*database.ReactionRole, error)
	UpsertReactionRole(ctx context.Context, rr database.ReactionRole) error
	DeleteReactionRole(ctx context.Context, messageID, emoji string) error
	ListReactionRoles(ctx context.Context, messageID string) ([]database.ReactionRole, error)
}

type Service struct {
	store Store
	gw    gateway.Gateway
}

func NewService(store Store, gw gateway.Gateway) *Service {
	return &Service{store: store, gw: gw}
}

// Bind attaches roleID to reactions of emoji on a message. The bot's own
// reaction is added first; if that fails nothing is stored. Rebinding the
// same message and emoji replaces the role.
func (s *Service) Bind(ctx context.Context, channelID, messageID, emoji, roleID string) (string, error) {
	key, err := NormalizeEmoji(emoji)
	if err != nil {
		return "", err
	}
	if roleID == "" {
		return "", errors.Wrap(models.ErrInvalidArgument, "a role is required")
	}

	if _, err := s.gw.FetchMessage(ctx, channelID, messageID); err != nil {
		return "", errors.WithMessagef(err, "message %s", messageID)
	}
	if err := s.gw.AddReaction(ctx, channelID, messageID, key); err != nil {
		return "", errors.WithMessage(err, "add reaction")
	}

	if err := s.store.UpsertReactionRole(ctx, database.ReactionRole{MessageID: messageID, Emoji: key, RoleID: roleID}); err != nil {
		return "", err
	}
	logging.Info("[ROLES] Bound %s on message %s to role %s", key, messageID, roleID)
	return key, nil
}

// Unbind removes a binding; NotFound when there was none.
func (s *Service) Unbind(ctx context.Context, messageID, emoji string) error {
	key, err := NormalizeEmoji(emoji)
	if err != nil {
		return err
	}
	rr, err := s.store.GetReactionRole(ctx, messageID, key)
	if err != nil {
		return err
	}
	if rr == nil {
		return errors.Wrapf(models.ErrNotFound, "no role bound to %s on that message", key)
	}
	return s.store.DeleteReactionRole(ctx, messageID, key)
}

func (s *Service) Bindings(ctx context.Context, messageID string) ([]database.ReactionRole, error) {
	return s.store.ListReactionRoles(ctx, messageID)
}

func (s *Service) OnReactionAdded(ctx context.Context, ev models.ReactionEvent) error {
	member, rr, err := s.resolve(ctx, ev)
	if err != nil || member == nil {
		return err
	}
	if member.HasRole(rr.RoleID) {
		return nil
	}
	if err := s.gw.GrantRole(ctx, ev.GuildID, ev.UserID, rr.RoleID, "Reaction role"); err != nil {
		logging.Warn("[ROLES] Failed to grant %s to %s: %v", rr.RoleID, ev.UserID, err)
	}
	return nil
}

func (s *Service) OnReactionRemoved(ctx context.Context, ev models.ReactionEvent) error {
	member, rr, err := s.resolve(ctx, ev)
	if err != nil || member == nil {
		return err
	}
	if !member.HasRole(rr.RoleID) {
		return nil
	}
	if err := s.gw.RevokeRole(ctx, ev.GuildID, ev.UserID, rr.RoleID, "Reaction role removed"); err != nil {
		logging.Warn("[ROLES] Failed to revoke %s from %s: %v", rr.RoleID, ev.UserID, err)
	}
	return nil
}

// resolve returns a nil member when the event should be ignored.
func (s *Service) resolve(ctx context.Context, ev models.ReactionEvent) (*gateway.Member, *database.ReactionRole, error) {
	if ev.GuildID == "" || ev.UserBot || ev.UserID == s.gw.BotUserID() {
		return nil, nil, nil
	}
	rr, err := s.store.GetReactionRole(ctx, ev.MessageID, ev.Emoji)
	if err != nil || rr == nil {
		return nil, nil, err
	}

	member, err := s.gw.Member(ctx, ev.GuildID, ev.UserID)
	if err != nil {
		logging.Warn("[ROLES] Cannot resolve member %s: %v", ev.UserID, err)
		return nil, nil, nil
	}
	if member.Bot {
		return nil, nil, nil
	}
	return member, rr, nil
}

package community

import (
	"context"

	"github.com/pkg/errors"

	"go-amadeus/internal/logging"
)

// AddRole and RemoveRole back the manual role commands.
func (s *Service) AddRole(ctx context.Context, guildID, userID, roleID, actorID string) error {
	if err := s.gw.GrantRole(ctx, guildID, userID, roleID, "Role added by "+actorID); err != nil {
		return errors.WithMessage(err, "add role")
	}
	logging.Info("[ROLES] %s granted %s to %s", actorID, roleID, userID)
	return nil
}

func (s *Service) RemoveRole(ctx context.Context, guildID, userID, roleID, actorID string) error {
	if err := s.gw.RevokeRole(ctx, guildID, userID, roleID, "Role removed by "+actorID); err != nil {
		return errors.WithMessage(err, "remove role")
	}
	logging.Info("[ROLES] %s removed %s from %s", actorID, roleID, userID)
	return nil
}

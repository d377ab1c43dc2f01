package bot

import (
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"

	"go-amadeus/internal/logging"
	"go-amadeus/internal/models"
)

// classify maps a discordgo failure onto the error kinds the domain
// components branch on. The raw platform error is logged, the returned
// message stays short enough to show a user.
func classify(err error, action string) error {
	if err == nil {
		return nil
	}

	var rateErr *discordgo.RateLimitError
	if errors.As(err, &rateErr) {
		logging.Warn("[GATEWAY] Rate limited while trying to %s: %v", action, err)
		return errors.Wrapf(models.ErrRateLimited, "rate limited while trying to %s", action)
	}

	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		logging.Debug("[GATEWAY] %s failed: %v", action, err)
		switch restErr.Response.StatusCode {
		case http.StatusForbidden:
			return errors.Wrapf(models.ErrPermissionDenied, "bot is missing permissions to %s", action)
		case http.StatusNotFound:
			return errors.Wrapf(models.ErrNotFound, "could not %s", action)
		case http.StatusTooManyRequests:
			return errors.Wrapf(models.ErrRateLimited, "rate limited while trying to %s", action)
		}
	}

	logging.Warn("[GATEWAY] %s failed: %v", action, err)
	return errors.Wrapf(models.ErrTransient, "could not %s", action)
}

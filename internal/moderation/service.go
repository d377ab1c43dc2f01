package moderation

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"go-amadeus/internal/database"
	"go-amadeus/internal/gateway"
	"go-amadeus/internal/logging"
	"go-amadeus/internal/models"
)

const (
	MaxBanDeleteDays = 7
	MinMuteMinutes   = 1
	MaxMuteMinutes   = 10080
	HistoryLimit     = 10
)

type Store interface {
	GetWarnings(ctx context.Context, userID string) (int, error)
	AddWarning(ctx context.Context, userID string) (int, error)
	ClearWarnings(ctx context.Context, userID string) error
	AppendModerationLog(ctx context.Context, entry database.ModerationLogEntry) (int64, error)
	ModerationHistory(ctx context.Context, userID string, limit int) ([]database.ModerationLogEntry, error)
}

type Notifier interface {
	ModerationAction(ctx context.Context, action models.ModerationAction, targetID, moderatorID, reason string, extra ...gateway.EmbedField) bool
}

// Action describes one moderation request coming from a command.
type Action struct {
	GuildID     string
	TargetID    string
	ModeratorID string
	Reason      string
}

type Service struct {
	store  Store
	gw     gateway.Gateway
	notify Notifier
	now    func() time.Time
}

func NewService(store Store, gw gateway.Gateway, notify Notifier) *Service {
	return &Service{store: store, gw: gw, notify: notify, now: time.Now}
}

func (s *Service) Kick(ctx context.Context, a Action) error {
	if err := s.checkTarget(a); err != nil {
		return err
	}
	if err := s.gw.KickMember(ctx, a.GuildID, a.TargetID, auditReason(a)); err != nil {
		return errors.WithMessage(err, "kick member")
	}
	s.record(ctx, models.ActionKick, a)
	return nil
}

func (s *Service) Ban(ctx context.Context, a Action, deleteDays int) error {
	if deleteDays < 0 || deleteDays > MaxBanDeleteDays {
		return errors.Wrapf(models.ErrInvalidArgument, "delete days must be between 0 and %d", MaxBanDeleteDays)
	}
	if err := s.checkTarget(a); err != nil {
		return err
	}
	if err := s.gw.BanMember(ctx, a.GuildID, a.TargetID, auditReason(a), deleteDays); err != nil {
		return errors.WithMessage(err, "ban member")
	}
	s.record(ctx, models.ActionBan, a,
		gateway.EmbedField{Name: "Messages deleted", Value: fmt.Sprintf("%d day(s)", deleteDays), Inline: true})
	return nil
}

// Mute times the member out for the given number of minutes and returns the
// moment the timeout ends.
func (s *Service) Mute(ctx context.Context, a Action, minutes int) (time.Time, error) {
	if minutes < MinMuteMinutes || minutes > MaxMuteMinutes {
		return time.Time{}, errors.Wrapf(models.ErrInvalidArgument, "duration must be between %d and %d minutes", MinMuteMinutes, MaxMuteMinutes)
	}
	if err := s.checkTarget(a); err != nil {
		return time.Time{}, err
	}
	until := s.now().Add(time.Duration(minutes) * time.Minute)
	if err := s.gw.TimeoutMember(ctx, a.GuildID, a.TargetID, until, auditReason(a)); err != nil {
		return time.Time{}, errors.WithMessage(err, "timeout member")
	}
	s.record(ctx, models.ActionMute, a,
		gateway.EmbedField{Name: "Duration", Value: fmt.Sprintf("%d minute(s)", minutes), Inline: true},
		gateway.EmbedField{Name: "Until", Value: fmt.Sprintf("<t:%d:F>", until.Unix()), Inline: true})
	return until, nil
}

// Warn increments the stored warning count and returns the new total.
func (s *Service) Warn(ctx context.Context, a Action) (int, error) {
	if err := s.checkTarget(a); err != nil {
		return 0, err
	}
	count, err := s.store.AddWarning(ctx, a.TargetID)
	if err != nil {
		return 0, err
	}
	s.record(ctx, models.ActionWarn, a,
		gateway.EmbedField{Name: "Total warnings", Value: fmt.Sprint(count), Inline: true})
	return count, nil
}

func (s *Service) Warnings(ctx context.Context, userID string) (int, error) {
	return s.store.GetWarnings(ctx, userID)
}

func (s *Service) ClearWarnings(ctx context.Context, a Action) error {
	if err := s.store.ClearWarnings(ctx, a.TargetID); err != nil {
		return err
	}
	s.record(ctx, models.ActionClear, a)
	return nil
}

func (s *Service) History(ctx context.Context, userID string) ([]database.ModerationLogEntry, error) {
	return s.store.ModerationHistory(ctx, userID, HistoryLimit)
}

func (s *Service) checkTarget(a Action) error {
	switch a.TargetID {
	case "":
		return errors.Wrap(models.ErrInvalidArgument, "no member given")
	case a.ModeratorID:
		return errors.Wrap(models.ErrInvalidArgument, "you cannot moderate yourself")
	case s.gw.BotUserID():
		return errors.Wrap(models.ErrInvalidArgument, "i cannot moderate myself")
	}
	return nil
}

// record appends to the moderation log and notifies the log channel. The
// platform action has already happened, so neither failure is reported back.
func (s *Service) record(ctx context.Context, action models.ModerationAction, a Action, extra ...gateway.EmbedField) {
	_, err := s.store.AppendModerationLog(ctx, database.ModerationLogEntry{
		Action:      string(action),
		UserID:      a.TargetID,
		ModeratorID: a.ModeratorID,
		Reason:      a.Reason,
		Timestamp:   s.now(),
	})
	if err != nil {
		logging.Error("[MODERATION] Failed to log %s of %s: %v", action, a.TargetID, err)
	}
	logging.Info("[MODERATION] %s: %s by %s", action, a.TargetID, a.ModeratorID)
	s.notify.ModerationAction(ctx, action, a.TargetID, a.ModeratorID, a.Reason, extra...)
}

func auditReason(a Action) string {
	if a.Reason == "" {
		return "by " + a.ModeratorID
	}
	return a.Reason + " (by " + a.ModeratorID + ")"
}

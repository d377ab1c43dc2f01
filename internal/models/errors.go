package models

import (
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrConfigurationMissing = errors.New("configuration missing")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrNotFound             = errors.New("not found")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrStorage              = errors.New("storage error")
	ErrTransient            = errors.New("transient error")
	ErrRateLimited          = errors.New("rate limited")
)

var kinds = []error{
	ErrConfigurationMissing,
	ErrPermissionDenied,
	ErrNotFound,
	ErrInvalidArgument,
	ErrStorage,
	ErrRateLimited,
	ErrTransient,
}

// Kind returns the taxonomy sentinel err belongs to, or nil for unclassified errors.
func Kind(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// IsTransient reports whether retrying the operation later may succeed.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrRateLimited)
}

// UserMessage renders the short rejection shown to the invoking user.
// Detail after the first colon of the wrapped message is kept for
// configuration, permission, lookup and validation failures; storage and
// platform failures are reported generically.
func UserMessage(err error) string {
	return strings.TrimSpace(userMessage(err))
}

func userMessage(err error) string {
	switch Kind(err) {
	case ErrConfigurationMissing:
		return "This feature is not configured yet. " + detail(err)
	case ErrPermissionDenied:
		return "You don't have permission to do that. " + detail(err)
	case ErrNotFound:
		return "Not found. " + detail(err)
	case ErrInvalidArgument:
		return "Invalid input. " + detail(err)
	case ErrStorage:
		return "Something went wrong while saving. Please try again."
	case ErrRateLimited:
		return "Discord is rate limiting the bot. Please try again in a moment."
	case ErrTransient:
		return "Discord did not respond. Please try again."
	default:
		return "An unexpected error occurred."
	}
}

func detail(err error) string {
	kind := Kind(err)
	if kind == nil {
		return ""
	}
	msg := err.Error()
	suffix := ": " + kind.Error()
	if !strings.HasSuffix(msg, suffix) {
		return ""
	}
	return capitalize(strings.TrimSuffix(msg, suffix))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	if s[0] >= 'a' && s[0] <= 'z' {
		s = string(s[0]-'a'+'A') + s[1:]
	}
	return s + "."
}

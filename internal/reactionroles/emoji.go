package reactionroles

import (
	"regexp"
	"strings"

	"github.com/forPelevin/gomoji"
	"github.com/pkg/errors"

	"go-amadeus/internal/models"
)

var (
	customEmojiMention = regexp.MustCompile(`^<a?:(\w{2,32}):(\d{15,25})>$`)
	customEmojiName    = regexp.MustCompile(`^(\w{2,32}):(\d{15,25})$`)
)

// NormalizeEmoji turns user input into the key reactions are stored under:
// a single unicode emoji as-is, or a custom emoji as "name:id".
func NormalizeEmoji(input string) (string, error) {
	input = strings.TrimSpace(input)
	if m := customEmojiMention.FindStringSubmatch(input); m != nil {
		return m[1] + ":" + m[2], nil
	}
	if customEmojiName.MatchString(input) {
		return input, nil
	}

	found := gomoji.CollectAll(input)
	if len(found) != 1 || found[0].Character != input {
		return "", errors.Wrapf(models.ErrInvalidArgument, "%q is not a single emoji", input)
	}
	return input, nil
}

package commands

import (
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"

	"go-amadeus/internal/models"
	"go-amadeus/pkg/util"
)

// commandKey names an invocation as "command" or "command subcommand" and
// returns the options of the innermost level.
func commandKey(data discordgo.ApplicationCommandInteractionData) (string, []*discordgo.ApplicationCommandInteractionDataOption) {
	key := data.Name
	opts := data.Options
	for len(opts) == 1 && (opts[0].Type == discordgo.ApplicationCommandOptionSubCommand ||
		opts[0].Type == discordgo.ApplicationCommandOptionSubCommandGroup) {
		key += " " + opts[0].Name
		opts = opts[0].Options
	}
	return key, opts
}

type optionSet struct {
	byName   map[string]*discordgo.ApplicationCommandInteractionDataOption
	resolved *discordgo.ApplicationCommandInteractionDataResolved
}

func newOptionSet(opts []*discordgo.ApplicationCommandInteractionDataOption, resolved *discordgo.ApplicationCommandInteractionDataResolved) optionSet {
	set := optionSet{byName: make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts)), resolved: resolved}
	for _, o := range opts {
		set.byName[o.Name] = o
	}
	return set
}

func (o optionSet) has(name string) bool {
	_, ok := o.byName[name]
	return ok
}

func (o optionSet) string(name string) string {
	opt, ok := o.byName[name]
	if !ok {
		return ""
	}
	s, _ := opt.Value.(string)
	return strings.TrimSpace(s)
}

// id returns a user, role or channel option; these arrive as snowflakes.
func (o optionSet) id(name string) string {
	s := o.string(name)
	if !util.IsSnowflake(s) {
		return ""
	}
	return s
}

func (o optionSet) requireID(name string) (string, error) {
	id := o.id(name)
	if id == "" {
		return "", errors.Wrapf(models.ErrInvalidArgument, "%s is required", name)
	}
	return id, nil
}

func (o optionSet) int(name string, fallback int) int {
	opt, ok := o.byName[name]
	if !ok {
		return fallback
	}
	switch v := opt.Value.(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return fallback
}

func (o optionSet) roleName(roleID string) string {
	if o.resolved != nil {
		if r, ok := o.resolved.Roles[roleID]; ok && r != nil {
			return r.Name
		}
	}
	return ""
}

// parseUserRef accepts a raw id or a mention (<@id>, <@!id>).
func parseUserRef(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "<@") && strings.HasSuffix(s, ">") {
		s = strings.TrimPrefix(strings.TrimSuffix(strings.TrimPrefix(s, "<@"), ">"), "!")
	}
	return s, util.IsSnowflake(s)
}

package util

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// DiscordEpoch is the first millisecond of 2015, the zero point of Discord ids.
const DiscordEpoch int64 = 1420070400000

func init() {
	snowflake.Epoch = DiscordEpoch
}

// ParseSnowflake parses a Discord id.
func ParseSnowflake(s string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("failed to parse id %q: %w", s, err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("failed to parse id %q: not positive", s)
	}
	return id, nil
}

// IsSnowflake reports whether s is a positive decimal id.
func IsSnowflake(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	_, err := ParseSnowflake(s)
	return err == nil
}

// SnowflakeTime returns when the object with this id was created.
func SnowflakeTime(s string) (time.Time, error) {
	id, err := ParseSnowflake(s)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(id.Time()).UTC(), nil
}

// ChannelURL links to a channel inside a guild.
func ChannelURL(guildID, channelID string) string {
	return fmt.Sprintf("https://discord.com/channels/%s/%s", guildID, channelID)
}

// MessageURL links to a single message.
func MessageURL(guildID, channelID, messageID string) string {
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", guildID, channelID, messageID)
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

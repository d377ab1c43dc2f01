package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"go-amadeus/pkg/util"
)

const (
	defaultDatabasePath = "./data/amadeus.db"
	defaultLogLevel     = "INFO"
	defaultPrefix       = "!"
	defaultSpamLimit    = 8
	defaultSpamWindow   = 10 * time.Second
	defaultRESTRate     = 40
	defaultFlushEvery   = 20
)

// Viper keys. Each one is also read from the upper-cased environment variable
// of the same name, and from a .env style config file.
const (
	KeyToken        = "discord_token"
	KeyGuildID      = "guild_id"
	KeyOwnerIDs     = "owner_ids"
	KeyLogLevel     = "log_level"
	KeyLogFile      = "log_file"
	KeyDatabasePath = "db_path"
	KeyPrefix       = "prefix"
	KeyHTTPAddress  = "http_address"
	KeySpamLimit    = "spam_threshold"
	KeySpamWindow   = "spam_window"
	KeyRESTRate     = "rest_rate"
	KeyFlushEvery   = "stats_flush_every"
)

type Config struct {
	Bot      BotConfig
	Database DatabaseConfig
	Log      LogConfig
	HTTP     HTTPConfig
	Security SecurityConfig
	Network  NetworkConfig
	Stats    StatsConfig
}

type BotConfig struct {
	Token    string
	GuildID  string   // restricts command registration and event handling when set
	OwnerIDs []string // bypass every permission gate
	Prefix   string
}

type DatabaseConfig struct {
	Path string
}

type LogConfig struct {
	Level string
	File  string
}

type HTTPConfig struct {
	Address string // empty disables the keep-alive server
}

type SecurityConfig struct {
	SpamThreshold int
	SpamWindow    time.Duration
}

type NetworkConfig struct {
	RESTRate int // outbound REST mutations per second
}

type StatsConfig struct {
	FlushEvery int
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	v := viper.New()
	ApplyDefaults(v)
	return v
}

func ApplyDefaults(v *viper.Viper) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyLogLevel, defaultLogLevel)
	v.SetDefault(KeyDatabasePath, defaultDatabasePath)
	v.SetDefault(KeyPrefix, defaultPrefix)
	v.SetDefault(KeySpamLimit, defaultSpamLimit)
	v.SetDefault(KeySpamWindow, defaultSpamWindow)
	v.SetDefault(KeyRESTRate, defaultRESTRate)
	v.SetDefault(KeyFlushEvery, defaultFlushEvery)
}

// ReadFile merges an optional config file (any format viper understands,
// including .env) into v.
func ReadFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if strings.HasSuffix(path, ".env") {
		v.SetConfigType("env")
	}
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return nil
}

func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Bot: BotConfig{
			Token:    strings.TrimSpace(v.GetString(KeyToken)),
			GuildID:  strings.TrimSpace(v.GetString(KeyGuildID)),
			OwnerIDs: ParseOwnerIDs(v.GetString(KeyOwnerIDs)),
			Prefix:   v.GetString(KeyPrefix),
		},
		Database: DatabaseConfig{Path: v.GetString(KeyDatabasePath)},
		Log: LogConfig{
			Level: v.GetString(KeyLogLevel),
			File:  v.GetString(KeyLogFile),
		},
		HTTP: HTTPConfig{Address: v.GetString(KeyHTTPAddress)},
		Security: SecurityConfig{
			SpamThreshold: v.GetInt(KeySpamLimit),
			SpamWindow:    v.GetDuration(KeySpamWindow),
		},
		Network: NetworkConfig{RESTRate: v.GetInt(KeyRESTRate)},
		Stats:   StatsConfig{FlushEvery: v.GetInt(KeyFlushEvery)},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Bot.Token == "" {
		return fmt.Errorf("DISCORD_TOKEN is required")
	}
	if c.Bot.GuildID != "" && !util.IsSnowflake(c.Bot.GuildID) {
		return fmt.Errorf("GUILD_ID must be a numeric id, got %q", c.Bot.GuildID)
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("DB_PATH is required")
	}
	if c.Security.SpamThreshold < 1 {
		return fmt.Errorf("SPAM_THRESHOLD must be positive")
	}
	if c.Security.SpamWindow <= 0 {
		return fmt.Errorf("SPAM_WINDOW must be positive")
	}
	if c.Network.RESTRate < 1 {
		return fmt.Errorf("REST_RATE must be positive")
	}
	if c.Stats.FlushEvery < 1 {
		return fmt.Errorf("STATS_FLUSH_EVERY must be positive")
	}
	return nil
}

// ParseOwnerIDs splits a comma separated id list, dropping anything that is
// not a numeric id.
func ParseOwnerIDs(raw string) []string {
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if util.IsSnowflake(part) {
			ids = append(ids, part)
		}
	}
	return ids
}

// IsOwner reports whether userID is listed in OWNER_IDS.
func (c BotConfig) IsOwner(userID string) bool {
	for _, id := range c.OwnerIDs {
		if id == userID {
			return true
		}
	}
	return false
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	v := NewViper()
	v.Set(KeyToken, "token")

	cfg, err := Load(v)
	require.NoError(t, err)
	require.Equal(t, "token", cfg.Bot.Token)
	require.Equal(t, defaultDatabasePath, cfg.Database.Path)
	require.Equal(t, "INFO", cfg.Log.Level)
	require.Equal(t, "!", cfg.Bot.Prefix)
	require.Equal(t, 8, cfg.Security.SpamThreshold)
	require.Equal(t, 10*time.Second, cfg.Security.SpamWindow)
	require.Equal(t, 40, cfg.Network.RESTRate)
	require.Equal(t, 20, cfg.Stats.FlushEvery)
	require.Empty(t, cfg.HTTP.Address)
}

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	_, err := Load(NewViper())
	require.ErrorContains(t, err, "DISCORD_TOKEN")
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "env-token")
	t.Setenv("GUILD_ID", "123456789012345678")
	t.Setenv("OWNER_IDS", "111, 222,abc,")
	t.Setenv("SPAM_THRESHOLD", "5")

	cfg, err := Load(NewViper())
	require.NoError(t, err)
	require.Equal(t, "env-token", cfg.Bot.Token)
	require.Equal(t, "123456789012345678", cfg.Bot.GuildID)
	require.Equal(t, []string{"111", "222"}, cfg.Bot.OwnerIDs)
	require.Equal(t, 5, cfg.Security.SpamThreshold)
	require.True(t, cfg.Bot.IsOwner("222"))
	require.False(t, cfg.Bot.IsOwner("abc"))
}

func TestLoadRejectsNonNumericGuild(t *testing.T) {
	v := NewViper()
	v.Set(KeyToken, "token")
	v.Set(KeyGuildID, "my-guild")

	_, err := Load(v)
	require.ErrorContains(t, err, "GUILD_ID")
}

func TestReadFileDotEnv(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("DB_PATH", "")
	path := filepath.Join(t.TempDir(), "bot.env")
	require.NoError(t, os.WriteFile(path, []byte("DISCORD_TOKEN=file-token\nDB_PATH=/tmp/x.db\n"), 0o600))

	v := NewViper()
	require.NoError(t, ReadFile(v, path))

	cfg, err := Load(v)
	require.NoError(t, err)
	require.Equal(t, "file-token", cfg.Bot.Token)
	require.Equal(t, "/tmp/x.db", cfg.Database.Path)
}

func TestParseOwnerIDs(t *testing.T) {
	require.Nil(t, ParseOwnerIDs(""))
	require.Equal(t, []string{"1", "2"}, ParseOwnerIDs("1,2"))
}

package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIsSnowflake(t *testing.T) {
	require.True(t, IsSnowflake("175928847299117063"))
	require.False(t, IsSnowflake(""))
	require.False(t, IsSnowflake("12ab"))
	require.False(t, IsSnowflake("-5"))
	require.False(t, IsSnowflake("0"))
	require.False(t, IsSnowflake("99999999999999999999999"))
}

func TestSnowflakeTime(t *testing.T) {
	// Example id from the Discord developer documentation.
	ts, err := SnowflakeTime("175928847299117063")
	require.NoError(t, err)
	require.Equal(t, time.Date(2016, 4, 30, 11, 18, 25, 796000000, time.UTC), ts)

	_, err = SnowflakeTime("nope")
	require.Error(t, err)
}

func TestURLs(t *testing.T) {
	require.Equal(t, "https://discord.com/channels/1/2", ChannelURL("1", "2"))
	require.Equal(t, "https://discord.com/channels/1/2/3", MessageURL("1", "2", "3"))
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "héll", Truncate("héllo", 4))
	require.Equal(t, "hi", Truncate("hi", 10))
	require.Equal(t, "", Truncate("hi", 0))
}

package leveling

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestThresholdSequence(t *testing.T) {
	require.Equal(t, int64(0), TotalXPForLevel(0))
	require.Equal(t, int64(100), TotalXPForLevel(1))
	require.Equal(t, int64(220), TotalXPForLevel(2))
	require.Equal(t, int64(364), TotalXPForLevel(3))
	// 144 * 1.2 = 172.8, floored.
	require.Equal(t, int64(536), TotalXPForLevel(4))
}

func TestLevelForXPBoundaries(t *testing.T) {
	require.Equal(t, 0, LevelForXP(0))
	require.Equal(t, 0, LevelForXP(99))
	require.Equal(t, 1, LevelForXP(100))
	require.Equal(t, 1, LevelForXP(219))
	require.Equal(t, 2, LevelForXP(220))
}

func TestLevelForXPIsMonotonic(t *testing.T) {
	prev := LevelForXP(0)
	for xp := int64(1); xp <= 200000; xp++ {
		lvl := LevelForXP(xp)
		require.GreaterOrEqual(t, lvl, prev, "xp=%d", xp)
		prev = lvl
	}
}

func TestLevelAndTotalXPAreInverse(t *testing.T) {
	for level := 0; level <= 60; level++ {
		total := TotalXPForLevel(level)
		require.Equal(t, level, LevelForXP(total), "level=%d", level)
		if total > 0 {
			require.Equal(t, level-1, LevelForXP(total-1), "level=%d", level)
		}
	}
}

func TestXPToNextLevelBounds(t *testing.T) {
	for xp := int64(0); xp <= 50000; xp += 7 {
		p := ProgressFor(xp)
		next := XPToNextLevel(xp)
		require.Greater(t, next, int64(0))
		require.LessOrEqual(t, next, p.Required)
		require.Equal(t, TotalXPForLevel(p.Level+1), xp+next, "xp=%d", xp)
	}
}

func TestProgressBar(t *testing.T) {
	require.Equal(t, "░░░░░░░░░░", ProgressBar(Progress{Current: 0, Required: 100}, 10))
	require.Equal(t, "█████░░░░░", ProgressBar(Progress{Current: 50, Required: 100}, 10))
	require.Equal(t, "", ProgressBar(Progress{}, 0))
}

package leveling

const (
	// BaseThreshold is the XP needed to go from level 0 to level 1.
	BaseThreshold int64 = 100
)

// nextThreshold grows a per-level requirement by 20%, rounded down.
func nextThreshold(t int64) int64 {
	return t * 6 / 5
}

// LevelForXP returns the highest level whose cumulative requirement is met.
func LevelForXP(xp int64) int {
	level := 0
	required := BaseThreshold
	for xp >= required {
		xp -= required
		level++
		required = nextThreshold(required)
	}
	return level
}

// TotalXPForLevel is the cumulative XP at which level is reached.
func TotalXPForLevel(level int) int64 {
	var total int64
	required := BaseThreshold
	for i := 0; i < level; i++ {
		total += required
		required = nextThreshold(required)
	}
	return total
}

// Progress describes how far xp is into its current level.
type Progress struct {
	Level    int
	Current  int64 // xp earned inside the current level
	Required int64 // xp span of the current level
}

// XPToNextLevel returns the XP still missing for the next level. It is always
// in (0, Required].
func (p Progress) XPToNextLevel() int64 {
	return p.Required - p.Current
}

func ProgressFor(xp int64) Progress {
	level := 0
	required := BaseThreshold
	for xp >= required {
		xp -= required
		level++
		required = nextThreshold(required)
	}
	return Progress{Level: level, Current: xp, Required: required}
}

// XPToNextLevel is the XP still needed from xp to reach the next level.
func XPToNextLevel(xp int64) int64 {
	return ProgressFor(xp).XPToNextLevel()
}

// ProgressBar renders a fixed-width bar for the current level.
func ProgressBar(p Progress, width int) string {
	if width <= 0 {
		return ""
	}
	filled := 0
	if p.Required > 0 {
		filled = int(p.Current * int64(width) / p.Required)
	}
	if filled > width {
		filled = width
	}
	bar := make([]rune, 0, width)
	for i := 0; i < width; i++ {
		if i < filled {
			bar = append(bar, '█')
		} else {
			bar = append(bar, '░')
		}
	}
	return string(bar)
}
